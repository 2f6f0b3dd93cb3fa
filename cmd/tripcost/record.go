package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/tripcost/internal/cli"
	"github.com/Veraticus/tripcost/internal/model"
	"github.com/Veraticus/tripcost/internal/money"
)

func recordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a completed trip's expenses and retrain",
		Long: `Store an expense report as a training row and retrain the cost model.

The distance is looked up from the origin and destination; an unknown city
is stored with a distance of 0.`,
		Args: cobra.NoArgs,
		RunE: runRecord,
	}

	cmd.Flags().String("user", "", "employee identifier")
	cmd.Flags().String("origin", "", "origin city")
	cmd.Flags().String("dest", "", "destination city")
	cmd.Flags().String("start", "", "first day (YYYY-MM-DD)")
	cmd.Flags().String("end", "", "last day (YYYY-MM-DD)")
	cmd.Flags().Float64("hotel", 0, "hotel cost in CHF")
	cmd.Flags().Float64("transport", 0, "transport cost in CHF")
	cmd.Flags().Float64("meals", 0, "meals cost in CHF")
	cmd.Flags().Float64("other", 0, "other costs in CHF")
	for _, name := range []string{"user", "origin", "dest", "start", "end"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func runRecord(cmd *cobra.Command, _ []string) error {
	start, end, err := dateRange(cmd)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	report := model.ExpenseReport{StartDate: start, EndDate: end}
	report.UserID, _ = flags.GetString("user")
	report.OriginCity, _ = flags.GetString("origin")
	report.DestCity, _ = flags.GetString("dest")
	report.HotelCost, _ = flags.GetFloat64("hotel")
	report.TransportCost, _ = flags.GetFloat64("transport")
	report.MealsCost, _ = flags.GetFloat64("meals")
	report.OtherCost, _ = flags.GetFloat64("other")

	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	result, err := a.service.SubmitExpense(ctx, report)
	if result.ID == 0 && err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Recorded trip #%d: CHF %s over %.0f days, %s km",
		result.ID, money.Format(result.Total), result.DurationDays, money.Format(result.DistanceKm))))
	if err != nil {
		fmt.Fprintln(out, cli.FormatWarning("Trip saved but the model was not updated: "+err.Error()))
		return nil
	}
	printMAE(cmd, result.MAE)
	return nil
}

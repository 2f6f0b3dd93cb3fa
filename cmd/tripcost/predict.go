package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/tripcost/internal/cli"
	"github.com/Veraticus/tripcost/internal/model"
	"github.com/Veraticus/tripcost/internal/money"
	"github.com/Veraticus/tripcost/internal/tier"
)

const noModelHint = "No model available yet. Run `tripcost seed` first."

func predictCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict the cost of a trip from its features",
		Args:  cobra.NoArgs,
		RunE:  runPredict,
	}

	cmd.Flags().String("dest", "", "destination city")
	cmd.Flags().Float64("distance", 0, "one-way distance in km")
	cmd.Flags().Float64("days", 1, "trip duration in days")
	cmd.Flags().String("tier", "", "cost tier override (T1, T2, T3)")
	_ = cmd.MarkFlagRequired("dest")

	return cmd
}

func runPredict(cmd *cobra.Command, _ []string) error {
	dest, _ := cmd.Flags().GetString("dest")
	distance, _ := cmd.Flags().GetFloat64("distance")
	days, _ := cmd.Flags().GetFloat64("days")
	tierFlag, _ := cmd.Flags().GetString("tier")

	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	prediction, err := a.service.Predict(ctx, model.Features{
		Tier:         tier.Label(tierFlag),
		DestCity:     dest,
		DistanceKm:   distance,
		DurationDays: days,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !prediction.Available {
		fmt.Fprintln(out, cli.FormatWarning(noModelHint))
		return nil
	}

	fmt.Fprintln(out, cli.RenderBox("Trip cost estimate", cli.RenderFields([]cli.Field{
		{Label: "Destination", Value: prediction.Features.DestCity},
		{Label: "Tier", Value: string(prediction.Features.Tier)},
		{Label: "Distance", Value: money.Format(prediction.Features.DistanceKm) + " km"},
		{Label: "Duration", Value: strconv.FormatFloat(prediction.Features.DurationDays, 'f', -1, 64) + " days"},
		{Label: "Estimated cost", Value: "CHF " + money.Format(prediction.Cost)},
	})))
	return nil
}

func forecastCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Forecast the cost of a planned trip for a group",
		Args:  cobra.NoArgs,
		RunE:  runForecast,
	}

	cmd.Flags().String("origin", "", "origin city")
	cmd.Flags().String("dest", "", "destination city")
	cmd.Flags().String("start", "", "first day (YYYY-MM-DD)")
	cmd.Flags().String("end", "", "last day (YYYY-MM-DD)")
	cmd.Flags().Int("participants", 1, "number of travellers")
	for _, name := range []string{"origin", "dest", "start", "end"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func runForecast(cmd *cobra.Command, _ []string) error {
	origin, _ := cmd.Flags().GetString("origin")
	dest, _ := cmd.Flags().GetString("dest")
	participants, _ := cmd.Flags().GetInt("participants")
	start, end, err := dateRange(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	forecast, err := a.service.ForecastTrip(ctx, origin, dest, start, end, participants)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !forecast.Available {
		fmt.Fprintln(out, cli.FormatWarning(noModelHint))
		return nil
	}

	fmt.Fprintln(out, cli.RenderBox(fmt.Sprintf("%s → %s", origin, dest), cli.RenderFields([]cli.Field{
		{Label: "Tier", Value: string(forecast.Features.Tier)},
		{Label: "Distance", Value: money.Format(forecast.Features.DistanceKm) + " km"},
		{Label: "Duration", Value: strconv.FormatFloat(forecast.Features.DurationDays, 'f', -1, 64) + " days"},
		{Label: "Per person", Value: "CHF " + money.Format(forecast.PerPerson)},
		{Label: fmt.Sprintf("Total (%d)", forecast.Participants), Value: "CHF " + money.Format(forecast.Total)},
	})))
	return nil
}

func dateRange(cmd *cobra.Command) (time.Time, time.Time, error) {
	startRaw, _ := cmd.Flags().GetString("start")
	endRaw, _ := cmd.Flags().GetString("end")

	start, err := time.Parse(time.DateOnly, startRaw)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid --start %q: expected YYYY-MM-DD", startRaw)
	}
	end, err := time.Parse(time.DateOnly, endRaw)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid --end %q: expected YYYY-MM-DD", endRaw)
	}
	return start, end, nil
}

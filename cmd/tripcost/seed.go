package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Veraticus/tripcost/internal/cli"
	"github.com/Veraticus/tripcost/internal/config"
	"github.com/Veraticus/tripcost/internal/model"
	"github.com/Veraticus/tripcost/internal/seed"
)

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Generate synthetic seed trips",
		Long: `Generate synthetic business trips between tiered Swiss cities and write
them to the seed CSV. The seed file is what an empty installation bootstraps
its first cost model from.`,
		Args: cobra.NoArgs,
		RunE: runSeed,
	}

	cmd.Flags().Int("trips", 0, "number of trips to generate (default: seed.trips)")
	cmd.Flags().String("out", "", "output CSV path (default: seed.path)")
	cmd.Flags().Uint64("random-seed", 0, "seed for reproducible output")
	cmd.Flags().Bool("quiet", false, "hide the progress bar")
	cmd.Flags().Bool("load", false, "also store the trips in the training table and retrain")

	return cmd
}

func runSeed(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	trips := cfg.Seed.Trips
	if cmd.Flags().Changed("trips") {
		trips, _ = cmd.Flags().GetInt("trips")
	}
	out := cfg.Seed.Path
	if v, _ := cmd.Flags().GetString("out"); v != "" {
		out = v
	}

	estimator, err := newEstimator(cfg)
	if err != nil {
		return err
	}

	opts := []seed.Option{seed.WithLogger(slog.Default())}
	if cmd.Flags().Changed("random-seed") {
		s, _ := cmd.Flags().GetUint64("random-seed")
		opts = append(opts, seed.WithSeed(s))
	}
	if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet {
		opts = append(opts, seed.WithProgress(cmd.ErrOrStderr()))
	}

	handler := cli.NewInterruptHandler(cmd.ErrOrStderr(), "No seed file was written.")
	ctx, stop := handler.HandleInterrupts(cmd.Context())
	defer stop()

	generated, err := seed.NewGenerator(estimator, opts...).Generate(ctx, trips)
	if err != nil {
		return fmt.Errorf("seed generation failed: %w", err)
	}

	if err := seed.WriteFile(out, generated); err != nil {
		return fmt.Errorf("failed to write seed file: %w", err)
	}

	slog.Info("Seed file written", "path", out, "trips", len(generated), "requested", trips)
	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Wrote %d seed trips to %s", len(generated), out)))

	if load, _ := cmd.Flags().GetBool("load"); load {
		return loadSeed(cmd, cfg, generated)
	}
	return nil
}

func loadSeed(cmd *cobra.Command, cfg *config.Config, trips []model.SeedTrip) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	mae, err := a.service.LoadSeed(ctx, seed.ToObservations(trips))
	if err != nil {
		return fmt.Errorf("failed to load seed trips: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Loaded %d seed trips and retrained", len(trips))))
	printMAE(cmd, mae)
	return nil
}

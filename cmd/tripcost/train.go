package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/tripcost/internal/cli"
	"github.com/Veraticus/tripcost/internal/money"
	"github.com/Veraticus/tripcost/internal/seed"
)

func trainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Retrain the cost model from the training table",
		Long: `Fit the cost model on every stored trip and replace the persisted model.

When the training table is empty the seed file is loaded into it first.`,
		Args: cobra.NoArgs,
		RunE: runTrain,
	}

	cmd.Flags().BoolP("verbose", "v", false, "print the fitted coefficient of every feature")

	return cmd
}

func runTrain(cmd *cobra.Command, _ []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")

	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	out := cmd.OutOrStdout()

	rows, err := a.service.Count(ctx)
	if err != nil {
		return err
	}

	var mae *float64
	if rows == 0 {
		src := seed.FileSource{Path: a.cfg.Seed.Path}
		if !src.Exists() {
			fmt.Fprintln(out, cli.FormatWarning("No training data and no seed file. Run `tripcost seed` first."))
			return nil
		}
		observations, err := src.Observations(ctx)
		if err != nil {
			return err
		}
		if mae, err = a.service.LoadSeed(ctx, observations); err != nil {
			return fmt.Errorf("bootstrap failed: %w", err)
		}
		fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Model ready, trained on %d seed trips", len(observations))))
	} else {
		if mae, err = a.service.Retrain(ctx); err != nil {
			return fmt.Errorf("retrain failed: %w", err)
		}
		fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Trained on %d trips", rows)))
	}
	printMAE(cmd, mae)

	if verbose {
		return printCoefficients(cmd, a)
	}
	return nil
}

func printMAE(cmd *cobra.Command, mae *float64) {
	if mae == nil {
		fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("validation skipped (too few rows)"))
		return
	}
	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("validation MAE: CHF "+money.Format(*mae)))
}

func printCoefficients(cmd *cobra.Command, a *app) error {
	artifact, err := a.loader.Artifact(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read trained model: %w", err)
	}

	pipeline := artifact.Pipeline
	names := pipeline.FeatureNames()
	coef := pipeline.Regressor.Coef

	fields := make([]cli.Field, 0, len(names)+1)
	fields = append(fields, cli.Field{Label: "intercept", Value: money.Format(pipeline.Regressor.Intercept)})
	for i, name := range names {
		if i >= len(coef) {
			break
		}
		fields = append(fields, cli.Field{Label: name, Value: money.Format(coef[i])})
	}
	fmt.Fprintln(cmd.OutOrStdout(), cli.RenderBox("Coefficients", cli.RenderFields(fields)))
	return nil
}

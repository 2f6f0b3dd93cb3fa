package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Veraticus/tripcost/internal/cli"
	"github.com/Veraticus/tripcost/internal/storage"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the training table",
		Long: `Initialize or update the database schema to the latest version.

Safe to run repeatedly; every command also does this on startup.`,
		Args: cobra.NoArgs,
		RunE: runMigrate,
	}

	cmd.Flags().Bool("status", false, "show the schema version without changing anything")

	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	status, _ := cmd.Flags().GetBool("status")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := storage.Open(cfg.Database.Driver, cfg.Database.Path, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	sqlite, isSQLite := store.(*storage.SQLiteStorage)
	if status {
		if !isSQLite {
			fmt.Fprintln(out, cli.FormatInfo("Schema versions are tracked for SQLite only; postgres uses automatic migration."))
			return nil
		}
		current, err := sqlite.SchemaVersion(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, cli.RenderFields([]cli.Field{
			{Label: "Database", Value: sqlite.Path()},
			{Label: "Current version", Value: fmt.Sprint(current)},
			{Label: "Latest version", Value: fmt.Sprint(storage.ExpectedSchemaVersion)},
		}))
		return nil
	}

	slog.Info("Running database migrations", "driver", cfg.Database.Driver)
	if err := store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	fmt.Fprintln(out, cli.FormatSuccess("Database migrations completed"))
	return nil
}

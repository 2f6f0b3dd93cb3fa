package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// TableName is the training table shared by every back end.
const TableName = "expenses_user_data"

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 2

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial training table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS ` + TableName + ` (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					user_id TEXT,
					date TEXT,
					dest_city TEXT NOT NULL,
					duration_days REAL NOT NULL,
					distance_km REAL NOT NULL,
					total_cost REAL NOT NULL
				)
			`)
			return err
		},
	},
	{
		Version:     2,
		Description: "Index training rows by user",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_expenses_user_data_user ON ` + TableName + `(user_id)`)
			return err
		},
	},
}

// SchemaVersion reports the database's current user_version.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, unavailable("failed to get schema version", err)
	}
	return version, nil
}

// Migrate applies pending migrations. Running it again is a no-op.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	currentVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return unavailable("failed to begin transaction", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return unavailable(fmt.Sprintf("migration %d failed", migration.Version), upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return unavailable("failed to update schema version", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return unavailable(fmt.Sprintf("failed to commit migration %d", migration.Version), commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	finalVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}

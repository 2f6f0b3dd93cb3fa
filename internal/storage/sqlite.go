package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Veraticus/tripcost/internal/common"
	"github.com/Veraticus/tripcost/internal/model"
	"github.com/Veraticus/tripcost/internal/service"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

var _ service.TrainingStore = (*SQLiteStorage)(nil)

// SQLiteStorage implements the training store on a local SQLite file.
type SQLiteStorage struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStorage opens (creating if needed) the database at dbPath.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	dsn := dbPath
	if dbPath != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
			return nil, fmt.Errorf("%w: failed to create database directory: %w", common.ErrStorageUnavailable, err)
		}
		dsn = dbPath + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %w", common.ErrStorageUnavailable, err)
	}

	// One connection keeps :memory: databases alive and serialises writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: failed to ping database: %w", common.ErrStorageUnavailable, err)
	}

	return &SQLiteStorage{db: db, dbPath: dbPath}, nil
}

// Path returns the database location.
func (s *SQLiteStorage) Path() string {
	return s.dbPath
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the training table if it does not exist yet.
func (s *SQLiteStorage) EnsureSchema(ctx context.Context) error {
	return s.Migrate(ctx)
}

// AppendMany inserts all rows in a single transaction. Nothing is written
// if any row is invalid.
func (s *SQLiteStorage) AppendMany(ctx context.Context, observations []model.TripObservation) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if len(observations) == 0 {
		return nil
	}
	if err := validateObservations(observations); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("failed to begin transaction", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, insertObservationSQL)
	if err != nil {
		return unavailable("failed to prepare insert", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range observations {
		obs := &observations[i]
		if _, err = stmt.ExecContext(ctx, obs.UserID, obs.Date, obs.DestCity, obs.DurationDays, obs.DistanceKm, obs.TotalCost); err != nil {
			return unavailable(fmt.Sprintf("failed to insert observation %d", i), err)
		}
	}

	if err = tx.Commit(); err != nil {
		return unavailable("failed to commit observations", err)
	}
	return nil
}

// AppendOne inserts a single row and returns its assigned id.
func (s *SQLiteStorage) AppendOne(ctx context.Context, obs model.TripObservation) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateObservation(&obs); err != nil {
		return 0, err
	}

	result, err := s.db.ExecContext(ctx, insertObservationSQL,
		obs.UserID, obs.Date, obs.DestCity, obs.DurationDays, obs.DistanceKm, obs.TotalCost)
	if err != nil {
		return 0, unavailable("failed to insert observation", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, unavailable("failed to read inserted id", err)
	}
	return id, nil
}

// LoadAll returns every stored row in insertion order.
func (s *SQLiteStorage) LoadAll(ctx context.Context) ([]model.TripObservation, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, date, dest_city, duration_days, distance_km, total_cost
		FROM `+TableName+`
		ORDER BY id`)
	if err != nil {
		return nil, unavailable("failed to query observations", err)
	}
	defer func() { _ = rows.Close() }()

	var observations []model.TripObservation
	for rows.Next() {
		var obs model.TripObservation
		var userID, date sql.NullString
		if err := rows.Scan(&obs.ID, &userID, &date, &obs.DestCity, &obs.DurationDays, &obs.DistanceKm, &obs.TotalCost); err != nil {
			return nil, unavailable("failed to scan observation", err)
		}
		obs.UserID = userID.String
		obs.Date = date.String
		observations = append(observations, obs)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("failed to iterate observations", err)
	}

	return observations, nil
}

// Count returns the number of stored rows.
func (s *SQLiteStorage) Count(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+TableName).Scan(&n); err != nil {
		return 0, unavailable("failed to count observations", err)
	}
	return n, nil
}

const insertObservationSQL = `
	INSERT INTO ` + TableName + ` (user_id, date, dest_city, duration_days, distance_km, total_cost)
	VALUES (?, ?, ?, ?, ?, ?)`

func unavailable(msg string, err error) error {
	return fmt.Errorf("%w: %s: %w", common.ErrStorageUnavailable, msg, err)
}

package storage

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Veraticus/tripcost/internal/common"
	"github.com/Veraticus/tripcost/internal/model"
	"github.com/Veraticus/tripcost/internal/service"
)

var _ service.TrainingStore = (*PostgresStorage)(nil)

// expenseRow is the gorm mapping of the training table.
type expenseRow struct {
	UserID       *string `gorm:"column:user_id;index:idx_expenses_user_data_user"`
	Date         *string `gorm:"column:date"`
	DestCity     string  `gorm:"column:dest_city;not null"`
	ID           int64   `gorm:"column:id;primaryKey;autoIncrement"`
	DurationDays float64 `gorm:"column:duration_days;not null"`
	DistanceKm   float64 `gorm:"column:distance_km;not null"`
	TotalCost    float64 `gorm:"column:total_cost;not null"`
}

func (expenseRow) TableName() string { return TableName }

func toRow(obs model.TripObservation) expenseRow {
	row := expenseRow{
		DestCity:     obs.DestCity,
		DurationDays: obs.DurationDays,
		DistanceKm:   obs.DistanceKm,
		TotalCost:    obs.TotalCost,
	}
	if obs.UserID != "" {
		row.UserID = &obs.UserID
	}
	if obs.Date != "" {
		row.Date = &obs.Date
	}
	return row
}

func (r expenseRow) observation() model.TripObservation {
	obs := model.TripObservation{
		ID:           r.ID,
		DestCity:     r.DestCity,
		DurationDays: r.DurationDays,
		DistanceKm:   r.DistanceKm,
		TotalCost:    r.TotalCost,
	}
	if r.UserID != nil {
		obs.UserID = *r.UserID
	}
	if r.Date != nil {
		obs.Date = *r.Date
	}
	return obs
}

// PostgresStorage implements the training store on PostgreSQL through gorm.
type PostgresStorage struct {
	db *gorm.DB
}

// NewPostgresStorage connects to the database described by dsn.
func NewPostgresStorage(dsn string) (*PostgresStorage, error) {
	if err := validateString(dsn, "dsn"); err != nil {
		return nil, err
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, unavailable("failed to connect to database", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, unavailable("failed to get underlying sql.DB", err)
	}
	sqlDB.SetMaxOpenConns(4)
	sqlDB.SetMaxIdleConns(2)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, unavailable("failed to ping database", err)
	}

	return NewPostgresStorageFromDB(db), nil
}

// NewPostgresStorageFromDB wraps an existing gorm connection.
func NewPostgresStorageFromDB(db *gorm.DB) *PostgresStorage {
	return &PostgresStorage{db: db}
}

// Close closes the underlying connection pool.
func (s *PostgresStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// EnsureSchema creates or updates the training table.
func (s *PostgresStorage) EnsureSchema(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).AutoMigrate(&expenseRow{}); err != nil {
		return unavailable("failed to migrate training table", err)
	}
	return nil
}

// AppendMany inserts all rows in one transaction.
func (s *PostgresStorage) AppendMany(ctx context.Context, observations []model.TripObservation) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if len(observations) == 0 {
		return nil
	}
	if err := validateObservations(observations); err != nil {
		return err
	}

	rows := make([]expenseRow, len(observations))
	for i, obs := range observations {
		rows[i] = toRow(obs)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(rows, 500).Error
	})
	if err != nil {
		return unavailable("failed to insert observations", err)
	}
	return nil
}

// AppendOne inserts one row and returns its id.
func (s *PostgresStorage) AppendOne(ctx context.Context, obs model.TripObservation) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateObservation(&obs); err != nil {
		return 0, err
	}

	row := toRow(obs)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, unavailable("failed to insert observation", err)
	}
	return row.ID, nil
}

// LoadAll returns every row ordered by id.
func (s *PostgresStorage) LoadAll(ctx context.Context) ([]model.TripObservation, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var rows []expenseRow
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, unavailable("failed to query observations", err)
	}

	observations := make([]model.TripObservation, len(rows))
	for i, row := range rows {
		observations[i] = row.observation()
	}
	return observations, nil
}

// Count returns the number of stored rows.
func (s *PostgresStorage) Count(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var n int64
	if err := s.db.WithContext(ctx).Model(&expenseRow{}).Count(&n).Error; err != nil {
		return 0, unavailable("failed to count observations", err)
	}
	return int(n), nil
}

// Open returns the store selected by driver: "sqlite" uses path, "postgres" uses dsn.
func Open(driver, path, dsn string) (service.TrainingStore, error) {
	switch driver {
	case "", "sqlite", "sqlite3":
		store, err := NewSQLiteStorage(path)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "postgres", "postgresql":
		store, err := NewPostgresStorage(dsn)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: unknown database driver %q", common.ErrInvalidConfig, driver)
	}
}

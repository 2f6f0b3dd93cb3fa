// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/tripcost/internal/model"
)

// TrainingStore is the append-only log of trip cost observations the cost
// model is fitted on. There is deliberately no update or delete.
type TrainingStore interface {
	// EnsureSchema creates the backing table if needed. Safe to call on every access.
	EnsureSchema(ctx context.Context) error
	// AppendMany inserts all observations in one unit. Duplicates are allowed.
	AppendMany(ctx context.Context, observations []model.TripObservation) error
	// AppendOne inserts a single observation and returns its assigned id.
	AppendOne(ctx context.Context, observation model.TripObservation) (int64, error)
	// LoadAll returns every row ever inserted, in no particular order.
	LoadAll(ctx context.Context) ([]model.TripObservation, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

// Geocoder resolves a city name to coordinates. A city that cannot be found
// is reported with ok == false and a nil error; errors are reserved for
// transport or provider failures.
type Geocoder interface {
	Coords(ctx context.Context, city string) (coords model.Coordinates, ok bool, err error)
}

// GeocoderFunc adapts a plain function to the Geocoder interface.
type GeocoderFunc func(ctx context.Context, city string) (model.Coordinates, bool, error)

// Coords calls f.
func (f GeocoderFunc) Coords(ctx context.Context, city string) (model.Coordinates, bool, error) {
	return f(ctx, city)
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

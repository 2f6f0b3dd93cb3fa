// Package model defines the core domain types shared across the application.
package model

import (
	"github.com/go-playground/validator/v10"
)

// Seed rows are tagged with these values so they can be told apart from
// observations contributed by real expense reports.
const (
	SeedUserID = "seed"
	SeedDate   = "2025-12-07"
)

// TripObservation is one row of the training table: what a trip to DestCity
// of DurationDays days over DistanceKm actually cost. Rows are append-only.
type TripObservation struct {
	UserID       string  `json:"user_id"`
	Date         string  `json:"date"`
	DestCity     string  `json:"dest_city" validate:"required"`
	ID           int64   `json:"id"`
	DurationDays float64 `json:"duration_days" validate:"gt=0"`
	DistanceKm   float64 `json:"distance_km" validate:"gte=0"`
	TotalCost    float64 `json:"total_cost" validate:"gte=0"`
}

// IsSeed reports whether the row came from synthetic seed data.
func (o TripObservation) IsSeed() bool {
	return o.UserID == SeedUserID
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints on the observation.
func (o TripObservation) Validate() error {
	return validate.Struct(o)
}

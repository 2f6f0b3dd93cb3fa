package model

import (
	"time"

	"github.com/Veraticus/tripcost/internal/tier"
)

// SeedTrip is a synthetic trip produced by the seed generator. It only lives
// long enough to be written to the seed file or turned into observations.
type SeedTrip struct {
	OriginCity   string     `json:"origin_city"`
	DestCity     string     `json:"dest_city"`
	Tier         tier.Label `json:"tier"`
	DurationDays int        `json:"duration_days"`
	DistanceKm   float64    `json:"distance_km"`
	HotelCost    float64    `json:"hotel_cost"`
	MealsPerDay  float64    `json:"meals_per_day"`
	MealsCost    float64    `json:"meals_cost"`
	TicketCost   float64    `json:"ticket_cost"`
	TotalCost    float64    `json:"total_cost"`
}

// Observation converts the trip into a training row tagged as seed data.
func (s SeedTrip) Observation() TripObservation {
	return TripObservation{
		UserID:       SeedUserID,
		Date:         SeedDate,
		DestCity:     s.DestCity,
		DurationDays: float64(s.DurationDays),
		DistanceKm:   s.DistanceKm,
		TotalCost:    s.TotalCost,
	}
}

// Features is one row handed to the cost model.
// An empty Tier is derived from DestCity.
type Features struct {
	Tier         tier.Label `json:"tier,omitempty"`
	DestCity     string     `json:"dest_city"`
	DistanceKm   float64    `json:"distance_km"`
	DurationDays float64    `json:"duration_days"`
}

// WithTier returns f with Tier filled from DestCity when it is empty.
func (f Features) WithTier() Features {
	if f.Tier == "" {
		f.Tier = tier.Of(f.DestCity)
	}
	return f
}

// FeaturesOf builds the model input for a stored observation. The tier is
// always recomputed from the current tier sets, never read from storage.
func FeaturesOf(o TripObservation) Features {
	return Features{
		Tier:         tier.Of(o.DestCity),
		DestCity:     o.DestCity,
		DistanceKm:   o.DistanceKm,
		DurationDays: o.DurationDays,
	}
}

// ExpenseReport is what an employee submits after travelling.
type ExpenseReport struct {
	StartDate     time.Time `json:"start_date" validate:"required"`
	EndDate       time.Time `json:"end_date" validate:"required,gtefield=StartDate"`
	UserID        string    `json:"user_id" validate:"required"`
	OriginCity    string    `json:"origin_city" validate:"required"`
	DestCity      string    `json:"dest_city" validate:"required"`
	HotelCost     float64   `json:"hotel_cost" validate:"gte=0"`
	TransportCost float64   `json:"transport_cost" validate:"gte=0"`
	MealsCost     float64   `json:"meals_cost" validate:"gte=0"`
	OtherCost     float64   `json:"other_cost" validate:"gte=0"`
}

// Validate checks field constraints on the report.
func (r ExpenseReport) Validate() error {
	return validate.Struct(r)
}

// Total is the sum of all cost line items.
func (r ExpenseReport) Total() float64 {
	return r.HotelCost + r.TransportCost + r.MealsCost + r.OtherCost
}

// DurationDays counts calendar days from start to end, both inclusive.
func (r ExpenseReport) DurationDays() float64 {
	return float64(InclusiveDays(r.StartDate, r.EndDate))
}

// InclusiveDays returns the number of calendar days covered by [start, end].
// A same-day trip is one day; an inverted range is zero.
func InclusiveDays(start, end time.Time) int {
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	if e.Before(s) {
		return 0
	}
	return int(e.Sub(s).Hours()/24) + 1
}

// Coordinates is a WGS84 latitude/longitude pair in degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

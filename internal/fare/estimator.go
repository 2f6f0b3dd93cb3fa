// Package fare estimates trip distances and the synthetic round-trip rail
// fare used for seed data.
package fare

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/tripcost/internal/geo"
	"github.com/Veraticus/tripcost/internal/service"
)

// Reference fare constants. Existing seed data was produced with these.
const (
	DefaultBaseFare  = 5.0
	DefaultPerKmRate = 0.40
)

// Role says which end of a trip a city was.
type Role string

// Trip ends.
const (
	RoleOrigin      Role = "origin"
	RoleDestination Role = "destination"
)

// CityNotResolvedError reports a city the geocoder could not find.
type CityNotResolvedError struct {
	City string
	Role Role
}

func (e *CityNotResolvedError) Error() string {
	return fmt.Sprintf("could not resolve %s city %q", e.Role, e.City)
}

// Estimator computes distances and ticket prices between two cities.
type Estimator struct {
	geocoder  service.Geocoder
	BaseFare  float64
	PerKmRate float64
}

// NewEstimator returns an estimator using the reference fare constants.
func NewEstimator(geocoder service.Geocoder) *Estimator {
	return &Estimator{
		geocoder:  geocoder,
		BaseFare:  DefaultBaseFare,
		PerKmRate: DefaultPerKmRate,
	}
}

// Estimate returns the great-circle distance between origin and dest and
// the estimated round-trip fare. An unknown city yields *CityNotResolvedError.
func (e *Estimator) Estimate(ctx context.Context, origin, dest string) (distanceKm, ticketCost float64, err error) {
	distanceKm, err = e.Distance(ctx, origin, dest)
	if err != nil {
		return 0, 0, err
	}
	return distanceKm, e.Ticket(distanceKm), nil
}

// Distance resolves both cities and returns the distance between them in km.
func (e *Estimator) Distance(ctx context.Context, origin, dest string) (float64, error) {
	from, ok, err := e.geocoder.Coords(ctx, origin)
	if err != nil {
		return 0, fmt.Errorf("failed to geocode %q: %w", origin, err)
	}
	if !ok {
		return 0, &CityNotResolvedError{City: origin, Role: RoleOrigin}
	}

	to, ok, err := e.geocoder.Coords(ctx, dest)
	if err != nil {
		return 0, fmt.Errorf("failed to geocode %q: %w", dest, err)
	}
	if !ok {
		return 0, &CityNotResolvedError{City: dest, Role: RoleDestination}
	}

	return geo.DistanceKm(from, to), nil
}

// Ticket prices a journey of distanceKm. Always a round trip.
func (e *Estimator) Ticket(distanceKm float64) float64 {
	return (e.BaseFare + e.PerKmRate*distanceKm) * 2
}

// DistanceOrZero is the lenient lookup used for real expense submissions:
// any failure to resolve either city gives a distance of 0.
func (e *Estimator) DistanceOrZero(ctx context.Context, origin, dest string) float64 {
	d, err := e.Distance(ctx, origin, dest)
	if err != nil {
		slog.Warn("Distance unavailable, using 0 km",
			"origin", origin,
			"destination", dest,
			"error", err)
		return 0
	}
	return d
}

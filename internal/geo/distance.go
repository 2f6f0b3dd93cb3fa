// Package geo resolves city names to coordinates and measures distances
// between them.
package geo

import (
	"github.com/golang/geo/s2"

	"github.com/Veraticus/tripcost/internal/model"
)

// EarthRadiusKm is the mean Earth radius used for great-circle distances.
const EarthRadiusKm = 6371.0088

// DistanceKm returns the great-circle distance between a and b in kilometers.
func DistanceKm(a, b model.Coordinates) float64 {
	p1 := s2.LatLngFromDegrees(a.Lat, a.Lon)
	p2 := s2.LatLngFromDegrees(b.Lat, b.Lon)
	return p1.Distance(p2).Radians() * EarthRadiusKm
}

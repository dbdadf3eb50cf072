// Package geo provides great-circle distance helpers for report matching.
package geo

import (
	"carlet-notify/internal/domain/entity"

	"github.com/golang/geo/s2"
)

// EarthRadiusMeters is the mean Earth radius used for distance conversions.
const EarthRadiusMeters = 6371000.0

// DistanceMeters returns the great-circle distance between a and b in meters.
//
// s2.LatLng.Distance evaluates the haversine formula in its atan2 form, so the
// result is stable for coincident points (exactly 0) and antipodal points
// (pi * EarthRadiusMeters).
func DistanceMeters(a, b entity.Location) float64 {
	from := s2.LatLngFromDegrees(a.Lat, a.Lng)
	to := s2.LatLngFromDegrees(b.Lat, b.Lng)
	return from.Distance(to).Radians() * EarthRadiusMeters
}

// Within reports whether b lies no farther than radiusMeters from a.
func Within(a, b entity.Location, radiusMeters float64) bool {
	return DistanceMeters(a, b) <= radiusMeters
}

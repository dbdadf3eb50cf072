package entity

import (
	"fmt"
	"math"
)

// Location is a WGS84 coordinate pair in decimal degrees.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate checks that both coordinates are finite and inside their ranges.
func (l Location) Validate() error {
	if math.IsNaN(l.Lat) || math.IsInf(l.Lat, 0) || l.Lat < -90 || l.Lat > 90 {
		return &ValidationError{Field: "lat", Message: fmt.Sprintf("latitude %v out of range [-90, 90]", l.Lat)}
	}
	if math.IsNaN(l.Lng) || math.IsInf(l.Lng, 0) || l.Lng < -180 || l.Lng > 180 {
		return &ValidationError{Field: "lng", Message: fmt.Sprintf("longitude %v out of range [-180, 180]", l.Lng)}
	}
	return nil
}

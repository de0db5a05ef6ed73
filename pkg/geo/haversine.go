package geo

import (
	"errors"
	"math"

	"medibook/pkg/model"
)

// EarthRadiusKm is the mean Earth radius used for great-circle distances.
const EarthRadiusKm = 6371.0

var ErrInvalidCoordinate = errors.New("invalid coordinate")

// Validate rejects NaN and out-of-range coordinates. A coordinate that fails
// here must never be treated as distance 0.
func Validate(loc model.Location) error {
	if math.IsNaN(loc.Latitude) || math.IsNaN(loc.Longitude) {
		return ErrInvalidCoordinate
	}
	if loc.Latitude < -90 || loc.Latitude > 90 {
		return ErrInvalidCoordinate
	}
	if loc.Longitude < -180 || loc.Longitude > 180 {
		return ErrInvalidCoordinate
	}
	return nil
}

// HaversineKm returns the great-circle distance between two coordinates in
// kilometers: a = sin²(Δφ/2) + cos(φ1)·cos(φ2)·sin²(Δλ/2),
// d = 2·R·atan2(√a, √(1−a)).
func HaversineKm(a, b model.Location) float64 {
	lat1 := radians(a.Latitude)
	lat2 := radians(b.Latitude)
	dLat := radians(b.Latitude - a.Latitude)
	dLng := radians(b.Longitude - a.Longitude)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng

	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

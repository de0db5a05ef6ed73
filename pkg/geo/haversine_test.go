package geo

import (
	"math"
	"testing"

	"medibook/pkg/model"
)

func TestHaversineZeroDistance(t *testing.T) {
	p := model.Location{Latitude: 32.0853, Longitude: 34.7818}
	if d := HaversineKm(p, p); d != 0 {
		t.Fatalf("distance from a point to itself = %f, want 0", d)
	}
}

func TestHaversineSymmetry(t *testing.T) {
	a := model.Location{Latitude: 32.0853, Longitude: 34.7818}
	b := model.Location{Latitude: 31.7683, Longitude: 35.2137}

	ab := HaversineKm(a, b)
	ba := HaversineKm(b, a)
	if math.Abs(ab-ba) > 1e-9 {
		t.Fatalf("distance not symmetric: a->b = %f, b->a = %f", ab, ba)
	}
}

func TestHaversineKnownDistance(t *testing.T) {
	// Tel Aviv to Jerusalem, roughly 54 km great-circle.
	a := model.Location{Latitude: 32.0853, Longitude: 34.7818}
	b := model.Location{Latitude: 31.7683, Longitude: 35.2137}

	d := HaversineKm(a, b)
	if d < 50 || d > 60 {
		t.Fatalf("Tel Aviv to Jerusalem = %f km, want roughly 54", d)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		loc     model.Location
		wantErr bool
	}{
		{"valid", model.Location{Latitude: 0, Longitude: 0}, false},
		{"north pole", model.Location{Latitude: 90, Longitude: 0}, false},
		{"antimeridian", model.Location{Latitude: 0, Longitude: -180}, false},
		{"latitude too high", model.Location{Latitude: 90.1, Longitude: 0}, true},
		{"latitude too low", model.Location{Latitude: -90.1, Longitude: 0}, true},
		{"longitude too high", model.Location{Latitude: 0, Longitude: 180.1}, true},
		{"longitude too low", model.Location{Latitude: 0, Longitude: -180.1}, true},
		{"NaN latitude", model.Location{Latitude: math.NaN(), Longitude: 0}, true},
		{"NaN longitude", model.Location{Latitude: 0, Longitude: math.NaN()}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.loc)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate(%+v) error = %v, wantErr %v", tt.loc, err, tt.wantErr)
			}
		})
	}
}

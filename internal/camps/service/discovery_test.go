package service

import (
	"context"
	"math"
	"testing"

	"medibook/internal/events"
	"medibook/internal/camps/validator"
	apperrors "medibook/pkg/errors"
	"medibook/pkg/model"
)

func campAt(id string, lat, lng float64) *model.HealthCamp {
	c := validCamp()
	c.ID = id
	c.Location = &model.Location{Latitude: lat, Longitude: lng}
	return c
}

func discoveryService(camps []*model.HealthCamp) CampService {
	repo := &fakeCampRepo{
		findOpenWithLocationFn: func(context.Context) ([]*model.HealthCamp, error) {
			return camps, nil
		},
	}
	cfg := newTestConfig()
	return NewCampService(repo, validator.NewCampValidator(cfg.Log), events.NopPublisher{}, cfg)
}

func TestDiscoverFiltersByRadius(t *testing.T) {
	// Origin in central Tel Aviv; one camp nearby, one in Jerusalem
	// (~54 km), one in Eilat (~280 km).
	camps := []*model.HealthCamp{
		campAt("665f1f77bcf86cd799439001", 32.0809, 34.7806),
		campAt("665f1f77bcf86cd799439002", 31.7683, 35.2137),
		campAt("665f1f77bcf86cd799439003", 29.5577, 34.9519),
	}
	svc := discoveryService(camps)
	origin := model.Location{Latitude: 32.0853, Longitude: 34.7818}

	got, err := svc.Discover(context.Background(), origin, 10)
	if err != nil {
		t.Fatalf("Discover returned error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "665f1f77bcf86cd799439001" {
		t.Fatalf("10 km radius matched %d camps: %+v", len(got), got)
	}

	got, err = svc.Discover(context.Background(), origin, 100)
	if err != nil {
		t.Fatalf("Discover returned error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("100 km radius matched %d camps, want 2", len(got))
	}
}

func TestDiscoverSortsByDistance(t *testing.T) {
	camps := []*model.HealthCamp{
		campAt("665f1f77bcf86cd799439002", 31.7683, 35.2137),
		campAt("665f1f77bcf86cd799439001", 32.0809, 34.7806),
	}
	svc := discoveryService(camps)
	origin := model.Location{Latitude: 32.0853, Longitude: 34.7818}

	got, err := svc.Discover(context.Background(), origin, 100)
	if err != nil {
		t.Fatalf("Discover returned error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("matched %d camps, want 2", len(got))
	}
	if got[0].DistanceKm > got[1].DistanceKm {
		t.Fatalf("results not sorted by distance: %f then %f", got[0].DistanceKm, got[1].DistanceKm)
	}
}

func TestDiscoverZeroDistanceForSamePoint(t *testing.T) {
	origin := model.Location{Latitude: 32.0853, Longitude: 34.7818}
	camps := []*model.HealthCamp{
		campAt("665f1f77bcf86cd799439001", origin.Latitude, origin.Longitude),
	}
	svc := discoveryService(camps)

	got, err := svc.Discover(context.Background(), origin, 1)
	if err != nil {
		t.Fatalf("Discover returned error: %v", err)
	}
	if len(got) != 1 || got[0].DistanceKm != 0 {
		t.Fatalf("camp at the origin: %+v", got)
	}
}

func TestDiscoverRejectsInvalidOrigin(t *testing.T) {
	svc := discoveryService(nil)

	_, err := svc.Discover(context.Background(), model.Location{Latitude: 91, Longitude: 0}, 10)
	if code := appErrCode(t, err); code != apperrors.CodeInvalidLocation {
		t.Fatalf("error code = %s, want %s", code, apperrors.CodeInvalidLocation)
	}

	_, err = svc.Discover(context.Background(), model.Location{Latitude: math.NaN(), Longitude: 0}, 10)
	if code := appErrCode(t, err); code != apperrors.CodeInvalidLocation {
		t.Fatalf("error code = %s, want %s", code, apperrors.CodeInvalidLocation)
	}
}

func TestDiscoverEmptyResultIsSuccess(t *testing.T) {
	svc := discoveryService(nil)

	got, err := svc.Discover(context.Background(), model.Location{Latitude: 0, Longitude: 0}, 10)
	if err != nil {
		t.Fatalf("Discover returned error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("matched %d camps, want 0", len(got))
	}
}

func TestDiscoverDefaultsAndClampsRadius(t *testing.T) {
	// Jerusalem is ~54 km out: just past the 50 km default radius.
	camps := []*model.HealthCamp{
		campAt("665f1f77bcf86cd799439002", 31.7683, 35.2137),
	}
	svc := discoveryService(camps)
	origin := model.Location{Latitude: 32.0853, Longitude: 34.7818}

	got, err := svc.Discover(context.Background(), origin, 0)
	if err != nil {
		t.Fatalf("Discover returned error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("default 50 km radius matched %d camps, want 0", len(got))
	}

	// A radius beyond the cap behaves as the cap, which still reaches it.
	got, err = svc.Discover(context.Background(), origin, 1e9)
	if err != nil {
		t.Fatalf("Discover returned error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("clamped radius matched %d camps, want 1", len(got))
	}
}

func TestDiscoverSkipsCampsWithoutCoordinates(t *testing.T) {
	noLocation := validCamp()
	noLocation.ID = "665f1f77bcf86cd799439004"
	noLocation.Location = nil

	camps := []*model.HealthCamp{noLocation}
	svc := discoveryService(camps)

	got, err := svc.Discover(context.Background(), model.Location{Latitude: 0, Longitude: 0}, 100)
	if err != nil {
		t.Fatalf("Discover returned error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("camp without coordinates matched: %+v", got)
	}
}

package service

import (
	"context"
	"sort"

	apperrors "medibook/pkg/errors"
	"medibook/pkg/geo"
	"medibook/pkg/model"
)

// Discover returns the open camps within radiusKm of origin, each annotated
// with its great-circle distance, sorted ascending by distance with the camp
// id as a deterministic tiebreak. An empty result is a success, not an error.
func (s *campService) Discover(ctx context.Context, origin model.Location, radiusKm float64) ([]*model.DiscoveredCamp, error) {
	if err := geo.Validate(origin); err != nil {
		return nil, apperrors.InvalidLocation("Search origin is not a valid coordinate")
	}

	if radiusKm <= 0 {
		radiusKm = s.cfg.SearchRadiusKm
	}
	if radiusKm > s.cfg.MaxSearchRadiusKm {
		radiusKm = s.cfg.MaxSearchRadiusKm
	}

	camps, err := s.repo.FindOpenWithLocation(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to load camps for discovery", "error", err)
		return nil, apperrors.Internal("Failed to search camps", err)
	}

	results := make([]*model.DiscoveredCamp, 0, len(camps))
	for _, camp := range camps {
		if camp.Location == nil {
			// A camp without a coordinate must never rank as distance 0.
			continue
		}
		if geo.Validate(*camp.Location) != nil {
			s.cfg.Log.Warn("Skipping camp with corrupt coordinate", "camp_id", camp.ID)
			continue
		}
		distance := geo.HaversineKm(origin, *camp.Location)
		if distance > radiusKm {
			continue
		}
		results = append(results, &model.DiscoveredCamp{
			HealthCamp: *camp,
			DistanceKm: distance,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].DistanceKm != results[j].DistanceKm {
			return results[i].DistanceKm < results[j].DistanceKm
		}
		return results[i].ID < results[j].ID
	})

	s.cfg.Log.Debug("Camp discovery completed",
		"origin_lat", origin.Latitude,
		"origin_lng", origin.Longitude,
		"radius_km", radiusKm,
		"matches", len(results),
	)
	return results, nil
}

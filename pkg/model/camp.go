package model

import (
	"time"
)

type CampStatus string

const (
	CampUpcoming  CampStatus = "upcoming"
	CampOngoing   CampStatus = "ongoing"
	CampCompleted CampStatus = "completed"
	CampCancelled CampStatus = "cancelled"
)

func (s CampStatus) Valid() bool {
	switch s {
	case CampUpcoming, CampOngoing, CampCompleted, CampCancelled:
		return true
	}
	return false
}

// Open reports whether the camp still accepts registrations and is
// discoverable. Completed and cancelled camps are kept for history.
func (s CampStatus) Open() bool {
	return s == CampUpcoming || s == CampOngoing
}

// Location is a resolved coordinate supplied by a collaborator. The core
// never geocodes addresses itself.
type Location struct {
	Latitude  float64 `json:"latitude" bson:"latitude"`
	Longitude float64 `json:"longitude" bson:"longitude"`
}

// HealthCamp is a capacity-bound resource: a bookable event with a fixed
// maximum number of participants. The invariant registered_count ==
// len(registrants) <= capacity must hold after every operation, including
// concurrent ones; registrants are only ever mutated through the
// reservation service's conditional writes.
type HealthCamp struct {
	ID              string     `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	OrganizerID     string     `json:"organizer_id" bson:"organizer_id" validate:"required,min=1,max=64"`
	Name            string     `json:"name" bson:"name" validate:"required,min=2,max=120"`
	Capacity        int        `json:"capacity" bson:"capacity" validate:"required,min=1,max=10000"`
	RegisteredCount int        `json:"registered_count" bson:"registered_count" validate:"min=0"`
	Registrants     []string   `json:"registrants" bson:"registrants" validate:"omitempty,unique,dive,min=1,max=64"`
	Location        *Location  `json:"location,omitempty" bson:"location,omitempty"`
	WindowStart     time.Time  `json:"window_start" bson:"window_start" validate:"required"`
	WindowEnd       time.Time  `json:"window_end" bson:"window_end" validate:"required,gtfield=WindowStart"`
	Status          CampStatus `json:"status" bson:"status" validate:"required,oneof=upcoming ongoing completed cancelled"`
	CreatedAt       time.Time  `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// IsRegistered reports membership in the registrant set.
func (c *HealthCamp) IsRegistered(participantID string) bool {
	for _, id := range c.Registrants {
		if id == participantID {
			return true
		}
	}
	return false
}

// DiscoveredCamp is a camp annotated with its computed distance from the
// requester, as returned by geospatial discovery.
type DiscoveredCamp struct {
	HealthCamp
	DistanceKm float64 `json:"distance_km"`
}

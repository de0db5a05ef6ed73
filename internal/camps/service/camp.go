package service

import (
	"context"
	"errors"
	"sync"
	"time"

	campserrors "medibook/internal/camps/errors"
	"medibook/internal/camps/repository"
	"medibook/internal/camps/validator"
	"medibook/internal/events"
	"medibook/pkg/config"
	apperrors "medibook/pkg/errors"
	"medibook/pkg/model"
	"medibook/pkg/sanitizer"
)

type CampService interface {
	Create(ctx context.Context, camp *model.HealthCamp) error
	GetByID(ctx context.Context, id string) (*model.HealthCamp, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.HealthCamp, int64, error)
	ListByOrganizer(ctx context.Context, organizerID string, limit int, offset int64) ([]*model.HealthCamp, int64, error)
	Register(ctx context.Context, campID, participantID string) (*model.HealthCamp, error)
	Unregister(ctx context.Context, campID, participantID string) (*model.HealthCamp, error)
	AdvanceStatus(ctx context.Context, campID, organizerID string, target model.CampStatus) error
	Discover(ctx context.Context, origin model.Location, radiusKm float64) ([]*model.DiscoveredCamp, error)
}

// campStatusTransitions is the closed administrative state machine. Status
// is never inferred from registration counts.
var campStatusTransitions = map[model.CampStatus][]model.CampStatus{
	model.CampUpcoming:  {model.CampOngoing, model.CampCancelled},
	model.CampOngoing:   {model.CampCompleted, model.CampCancelled},
	model.CampCompleted: {},
	model.CampCancelled: {},
}

type campService struct {
	repo      repository.CampRepository
	validator *validator.CampValidator
	publisher events.Publisher
	cfg       *config.Config
}

func NewCampService(
	repo repository.CampRepository,
	validator *validator.CampValidator,
	publisher events.Publisher,
	cfg *config.Config,
) CampService {
	return &campService{
		repo:      repo,
		validator: validator,
		publisher: publisher,
		cfg:       cfg,
	}
}

func (s *campService) Create(ctx context.Context, camp *model.HealthCamp) error {
	s.applyDefaults(camp)
	s.sanitize(camp)
	if err := s.validate(camp); err != nil {
		return err
	}

	if err := s.repo.Create(ctx, camp); err != nil {
		s.cfg.Log.Error("Failed to create camp", "error", err)
		return apperrors.Internal("Failed to create camp", err)
	}

	s.cfg.Log.Info("Camp created successfully",
		"id", camp.ID,
		"organizer_id", camp.OrganizerID,
		"capacity", camp.Capacity,
		"window_start", camp.WindowStart,
	)
	return nil
}

func (s *campService) GetByID(ctx context.Context, id string) (*model.HealthCamp, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Camp ID cannot be empty")
	}

	camp, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, campserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Camp", id)
		}
		if errors.Is(err, campserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid camp ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve camp", err)
	}

	return camp, nil
}

func (s *campService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.HealthCamp, int64, error) {
	return s.list(ctx,
		func(ctx context.Context) (int64, error) { return s.repo.Count(ctx) },
		func(ctx context.Context) ([]*model.HealthCamp, error) { return s.repo.FindAll(ctx, limit, offset) },
	)
}

func (s *campService) ListByOrganizer(ctx context.Context, organizerID string, limit int, offset int64) ([]*model.HealthCamp, int64, error) {
	organizerID = sanitizer.NormalizeID(organizerID)
	if organizerID == "" {
		return nil, 0, apperrors.InvalidInput("Organizer ID cannot be empty")
	}
	return s.list(ctx,
		func(ctx context.Context) (int64, error) { return s.repo.CountByOrganizer(ctx, organizerID) },
		func(ctx context.Context) ([]*model.HealthCamp, error) {
			return s.repo.FindByOrganizer(ctx, organizerID, limit, offset)
		},
	)
}

func (s *campService) list(
	ctx context.Context,
	count func(context.Context) (int64, error),
	find func(context.Context) ([]*model.HealthCamp, error),
) ([]*model.HealthCamp, int64, error) {
	var total int64
	var camps []*model.HealthCamp
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		total, errCount = count(ctx)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count camps", "error", errCount)
			errCount = apperrors.Internal("Failed to count camps", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		camps, errFind = find(ctx)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list camps", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve camps", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return camps, total, nil
}

// Register admits a participant through a single conditional write. The
// repository's filter carries the whole precondition (open camp, free seat,
// not yet a member); on failure we re-read once to tell the caller exactly
// which precondition broke. Retrying here would be pointless: each failure
// is a state the caller must re-observe first.
func (s *campService) Register(ctx context.Context, campID, participantID string) (*model.HealthCamp, error) {
	participantID = sanitizer.NormalizeID(participantID)
	if campID == "" || participantID == "" {
		return nil, apperrors.InvalidInput("Camp ID and participant ID are required")
	}

	camp, err := s.repo.Register(ctx, campID, participantID)
	if err != nil {
		if errors.Is(err, campserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid camp ID format")
		}
		if errors.Is(err, campserrors.ErrPreconditionFailed) {
			return nil, s.classifyRegisterFailure(ctx, campID, participantID)
		}
		s.cfg.Log.Error("Failed to register participant",
			"camp_id", campID,
			"participant_id", participantID,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to register for camp", err)
	}

	s.cfg.Log.Info("Participant registered",
		"camp_id", camp.ID,
		"participant_id", participantID,
		"registered_count", camp.RegisteredCount,
		"capacity", camp.Capacity,
	)
	s.publish(ctx, camp.ID, events.TypeCampRegistered, events.CampRegistration{
		CampID:          camp.ID,
		ParticipantID:   participantID,
		RegisteredCount: camp.RegisteredCount,
		Capacity:        camp.Capacity,
		OccurredAt:      time.Now().UTC(),
	})
	return camp, nil
}

func (s *campService) Unregister(ctx context.Context, campID, participantID string) (*model.HealthCamp, error) {
	participantID = sanitizer.NormalizeID(participantID)
	if campID == "" || participantID == "" {
		return nil, apperrors.InvalidInput("Camp ID and participant ID are required")
	}

	camp, err := s.repo.Unregister(ctx, campID, participantID)
	if err != nil {
		if errors.Is(err, campserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid camp ID format")
		}
		if errors.Is(err, campserrors.ErrPreconditionFailed) {
			return nil, s.classifyUnregisterFailure(ctx, campID, participantID)
		}
		s.cfg.Log.Error("Failed to unregister participant",
			"camp_id", campID,
			"participant_id", participantID,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to unregister from camp", err)
	}

	s.cfg.Log.Info("Participant unregistered",
		"camp_id", camp.ID,
		"participant_id", participantID,
		"registered_count", camp.RegisteredCount,
	)
	s.publish(ctx, camp.ID, events.TypeCampUnregistered, events.CampRegistration{
		CampID:          camp.ID,
		ParticipantID:   participantID,
		RegisteredCount: camp.RegisteredCount,
		Capacity:        camp.Capacity,
		OccurredAt:      time.Now().UTC(),
	})
	return camp, nil
}

func (s *campService) AdvanceStatus(ctx context.Context, campID, organizerID string, target model.CampStatus) error {
	if campID == "" {
		return apperrors.InvalidInput("Camp ID cannot be empty")
	}
	if !target.Valid() {
		return apperrors.InvalidInput("Unknown camp status: " + string(target))
	}

	camp, err := s.GetByID(ctx, campID)
	if err != nil {
		return err
	}
	if camp.OrganizerID != organizerID {
		return apperrors.Forbidden("Only the organizer may change camp status")
	}
	if !transitionAllowed(campStatusTransitions[camp.Status], target) {
		return apperrors.InvalidTransition(string(camp.Status), string(target))
	}

	err = s.repo.UpdateStatus(ctx, campID, camp.Status, target)
	if err != nil {
		if errors.Is(err, campserrors.ErrPreconditionFailed) {
			// Someone advanced the camp between our read and write.
			return apperrors.Conflict("Camp status changed concurrently, please refresh and retry")
		}
		s.cfg.Log.Error("Failed to update camp status", "camp_id", campID, "error", err)
		return apperrors.Internal("Failed to update camp status", err)
	}

	s.cfg.Log.Info("Camp status advanced",
		"camp_id", campID,
		"from", camp.Status,
		"to", target,
	)
	s.publish(ctx, campID, events.TypeCampStatusChanged, map[string]any{
		"camp_id": campID,
		"from":    camp.Status,
		"to":      target,
	})
	return nil
}

// --- Helpers ---

// classifyRegisterFailure re-reads the camp to turn a failed precondition
// into the precise typed error the caller can act on.
func (s *campService) classifyRegisterFailure(ctx context.Context, campID, participantID string) error {
	camp, err := s.repo.FindByID(ctx, campID)
	if err != nil {
		if errors.Is(err, campserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Camp", campID)
		}
		return apperrors.Internal("Failed to inspect camp after registration conflict", err)
	}

	if camp.IsRegistered(participantID) {
		return apperrors.AlreadyRegistered(campID, participantID)
	}
	if !camp.Status.Open() {
		return apperrors.Conflict("Camp is no longer accepting registrations")
	}
	if camp.RegisteredCount >= camp.Capacity {
		return apperrors.CampFull(campID)
	}
	// A seat freed up between the write and this read; the caller should
	// simply retry against current state.
	return apperrors.Conflict("Camp registration state changed, please retry")
}

func (s *campService) classifyUnregisterFailure(ctx context.Context, campID, participantID string) error {
	camp, err := s.repo.FindByID(ctx, campID)
	if err != nil {
		if errors.Is(err, campserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Camp", campID)
		}
		return apperrors.Internal("Failed to inspect camp after unregistration conflict", err)
	}

	if !camp.IsRegistered(participantID) {
		return apperrors.NotRegistered(campID, participantID)
	}
	return apperrors.Conflict("Camp registration state changed, please retry")
}

func (s *campService) sanitize(c *model.HealthCamp) {
	c.Name = sanitizer.NormalizeName(c.Name)
	c.OrganizerID = sanitizer.NormalizeID(c.OrganizerID)
	for i, id := range c.Registrants {
		c.Registrants[i] = sanitizer.NormalizeID(id)
	}
}

func (s *campService) applyDefaults(c *model.HealthCamp) {
	if c.Status == "" {
		c.Status = model.CampUpcoming
	}
	if c.Registrants == nil {
		c.Registrants = []string{}
	}
	c.RegisteredCount = len(c.Registrants)
}

func (s *campService) validate(camp *model.HealthCamp) error {
	if err := s.validator.Validate(camp); err != nil {
		s.cfg.Log.Warn("Camp validation failed", "error", err)
		return apperrors.Validation("Camp validation failed", map[string]any{"error": err.Error()})
	}
	return nil
}

func (s *campService) publish(ctx context.Context, key, eventType string, payload any) {
	if err := s.publisher.Publish(ctx, key, eventType, payload); err != nil {
		// Events are informational; the reservation itself already
		// committed, so a publish failure must not fail the call.
		s.cfg.Log.Warn("Failed to publish camp event",
			"event_type", eventType,
			"key", key,
			"error", err,
		)
	}
}

func transitionAllowed(allowed []model.CampStatus, target model.CampStatus) bool {
	for _, s := range allowed {
		if s == target {
			return true
		}
	}
	return false
}

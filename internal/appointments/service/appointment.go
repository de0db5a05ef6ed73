package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	apptserrors "medibook/internal/appointments/errors"
	"medibook/internal/appointments/repository"
	"medibook/internal/appointments/validator"
	"medibook/internal/events"
	"medibook/pkg/config"
	apperrors "medibook/pkg/errors"
	"medibook/pkg/model"
	"medibook/pkg/sanitizer"
)

type Role string

const (
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

// Actor is the party requesting a lifecycle transition. Authorization is
// per-appointment: the role alone is not enough, the actor must be that
// appointment's doctor or patient.
type Actor struct {
	ID   string
	Role Role
}

type AppointmentService interface {
	Request(ctx context.Context, appointment *model.Appointment) error
	GetByID(ctx context.Context, id string) (*model.Appointment, error)
	ListByPatient(ctx context.Context, patientID string, limit int, offset int64) ([]*model.Appointment, int64, error)
	ListByDoctor(ctx context.Context, doctorID string, limit int, offset int64) ([]*model.Appointment, int64, error)
	Transition(ctx context.Context, id string, actor Actor, target model.AppointmentStatus, observedVersion int64) (*model.Appointment, error)
	RecordPayment(ctx context.Context, id string, method model.PaymentMethod, amount int64) (*model.Appointment, error)
	SettlePayment(ctx context.Context, id string, succeeded bool) (*model.Appointment, error)
}

// transition rule: who may move an appointment into the target status, and
// from which current statuses. Self-transitions are rejected before the
// table is consulted, so no rule lists its own target as a source.
type transitionRule struct {
	role Role
	from []model.AppointmentStatus
}

var appointmentTransitions = map[model.AppointmentStatus]transitionRule{
	model.AppointmentConfirmed: {role: RoleDoctor, from: []model.AppointmentStatus{model.AppointmentPending}},
	model.AppointmentRejected:  {role: RoleDoctor, from: []model.AppointmentStatus{model.AppointmentPending}},
	model.AppointmentCompleted: {role: RoleDoctor, from: []model.AppointmentStatus{model.AppointmentConfirmed}},
	model.AppointmentCancelled: {role: RolePatient, from: []model.AppointmentStatus{model.AppointmentPending, model.AppointmentConfirmed}},
}

type appointmentService struct {
	repo      repository.AppointmentRepository
	validator *validator.AppointmentValidator
	publisher events.Publisher
	cfg       *config.Config
	now       func() time.Time
}

func NewAppointmentService(
	repo repository.AppointmentRepository,
	validator *validator.AppointmentValidator,
	publisher events.Publisher,
	cfg *config.Config,
) AppointmentService {
	return &appointmentService{
		repo:      repo,
		validator: validator,
		publisher: publisher,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Request creates a pending, unpaid appointment. The scheduled calendar date
// must be today or later; "today" is compared at date granularity in UTC, so
// a booking for later today is accepted even if the clock time already
// passed. The slot check and the insert run in one transaction so two
// patients requesting the same doctor and slot cannot both land.
func (s *appointmentService) Request(ctx context.Context, appointment *model.Appointment) error {
	s.applyDefaults(appointment)
	s.sanitize(appointment)
	if err := s.validate(appointment); err != nil {
		return err
	}

	today := s.now().Truncate(24 * time.Hour)
	if appointment.ScheduledDate.UTC().Truncate(24 * time.Hour).Before(today) {
		return apperrors.PastDate("Appointments cannot be scheduled on a past date")
	}

	err := s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		taken, err := s.repo.CountActiveByDoctorSlot(sessCtx, appointment.DoctorID, appointment.ScheduledDate, appointment.ScheduledTime)
		if err != nil {
			return err
		}
		if taken > 0 {
			return apperrors.Conflict("Doctor already has an appointment in this slot")
		}
		return s.repo.Create(sessCtx, appointment)
	})
	if err != nil {
		if apperrors.IsAppError(err) {
			return err
		}
		s.cfg.Log.Error("Failed to create appointment", "error", err)
		return apperrors.Internal("Failed to create appointment", err)
	}

	s.cfg.Log.Info("Appointment requested",
		"id", appointment.ID,
		"patient_id", appointment.PatientID,
		"doctor_id", appointment.DoctorID,
		"scheduled_date", appointment.ScheduledDate,
		"modality", appointment.Modality,
	)
	s.publish(ctx, appointment.ID, events.TypeAppointmentRequested, events.AppointmentStatusChanged{
		AppointmentID: appointment.ID,
		PatientID:     appointment.PatientID,
		DoctorID:      appointment.DoctorID,
		From:          "",
		To:            model.AppointmentPending,
		Version:       appointment.Version,
		OccurredAt:    s.now(),
	})
	return nil
}

func (s *appointmentService) GetByID(ctx context.Context, id string) (*model.Appointment, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Appointment ID cannot be empty")
	}

	appointment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, apptserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Appointment", id)
		}
		if errors.Is(err, apptserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid appointment ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve appointment", err)
	}

	return appointment, nil
}

func (s *appointmentService) ListByPatient(ctx context.Context, patientID string, limit int, offset int64) ([]*model.Appointment, int64, error) {
	if patientID == "" {
		return nil, 0, apperrors.InvalidInput("Patient ID cannot be empty")
	}
	return s.list(ctx,
		func(ctx context.Context) (int64, error) { return s.repo.CountByPatient(ctx, patientID) },
		func(ctx context.Context) ([]*model.Appointment, error) {
			return s.repo.FindByPatient(ctx, patientID, limit, offset)
		},
	)
}

func (s *appointmentService) ListByDoctor(ctx context.Context, doctorID string, limit int, offset int64) ([]*model.Appointment, int64, error) {
	if doctorID == "" {
		return nil, 0, apperrors.InvalidInput("Doctor ID cannot be empty")
	}
	return s.list(ctx,
		func(ctx context.Context) (int64, error) { return s.repo.CountByDoctor(ctx, doctorID) },
		func(ctx context.Context) ([]*model.Appointment, error) {
			return s.repo.FindByDoctor(ctx, doctorID, limit, offset)
		},
	)
}

func (s *appointmentService) list(
	ctx context.Context,
	count func(context.Context) (int64, error),
	find func(context.Context) ([]*model.Appointment, error),
) ([]*model.Appointment, int64, error) {
	var total int64
	var appointments []*model.Appointment
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		total, errCount = count(ctx)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count appointments", "error", errCount)
			errCount = apperrors.Internal("Failed to count appointments", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		appointments, errFind = find(ctx)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list appointments", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve appointments", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return appointments, total, nil
}

// Transition moves the appointment's lifecycle status. The caller supplies
// the version it last observed; the write only lands if the stored version
// still matches, so two actors racing on the same read resolve to exactly
// one winner.
func (s *appointmentService) Transition(ctx context.Context, id string, actor Actor, target model.AppointmentStatus, observedVersion int64) (*model.Appointment, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Appointment ID cannot be empty")
	}
	if !target.Valid() {
		return nil, apperrors.InvalidInput("Unknown appointment status: " + string(target))
	}

	current, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Legality before authorization: a transition no party may make is
	// InvalidTransition regardless of who asks.
	if err := checkTransition(current.Status, target); err != nil {
		return nil, err
	}
	if err := s.authorize(current, actor, target); err != nil {
		return nil, err
	}
	if current.Version != observedVersion {
		return nil, apperrors.StaleVersion(id, observedVersion)
	}

	updated, err := s.repo.UpdateStatus(ctx, id, observedVersion, target)
	if err != nil {
		if errors.Is(err, apptserrors.ErrPreconditionFailed) {
			return nil, s.classifyStatusFailure(ctx, id, observedVersion)
		}
		s.cfg.Log.Error("Failed to update appointment status",
			"appointment_id", id,
			"target", target,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to update appointment status", err)
	}

	s.cfg.Log.Info("Appointment status changed",
		"appointment_id", id,
		"from", current.Status,
		"to", target,
		"version", updated.Version,
		"actor_role", actor.Role,
	)
	s.publish(ctx, id, events.TypeAppointmentStatusChanged, events.AppointmentStatusChanged{
		AppointmentID: id,
		PatientID:     updated.PatientID,
		DoctorID:      updated.DoctorID,
		From:          current.Status,
		To:            target,
		Version:       updated.Version,
		OccurredAt:    s.now(),
	})
	return updated, nil
}

func (s *appointmentService) authorize(appointment *model.Appointment, actor Actor, target model.AppointmentStatus) error {
	rule, ok := appointmentTransitions[target]
	if !ok {
		// No rule means nothing may move into the target (e.g. back to
		// pending).
		return apperrors.InvalidTransition(string(appointment.Status), string(target))
	}

	switch rule.role {
	case RoleDoctor:
		if actor.Role != RoleDoctor || actor.ID != appointment.DoctorID {
			return apperrors.Forbidden("Only the appointment's doctor may perform this transition")
		}
	case RolePatient:
		if actor.Role != RolePatient || actor.ID != appointment.PatientID {
			return apperrors.Forbidden("Only the appointment's patient may perform this transition")
		}
	}
	return nil
}

func checkTransition(from, target model.AppointmentStatus) error {
	if from == target {
		return apperrors.InvalidTransition(string(from), string(target))
	}
	rule, ok := appointmentTransitions[target]
	if !ok {
		return apperrors.InvalidTransition(string(from), string(target))
	}
	for _, allowed := range rule.from {
		if from == allowed {
			return nil
		}
	}
	return apperrors.InvalidTransition(string(from), string(target))
}

// classifyStatusFailure re-reads once after a conditional write matched
// nothing: either the appointment vanished or its version moved on.
func (s *appointmentService) classifyStatusFailure(ctx context.Context, id string, observedVersion int64) error {
	_, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, apptserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Appointment", id)
		}
		return apperrors.Internal("Failed to inspect appointment after status conflict", err)
	}
	return apperrors.StaleVersion(id, observedVersion)
}

// --- Helpers ---

func (s *appointmentService) sanitize(a *model.Appointment) {
	a.PatientID = sanitizer.NormalizeID(a.PatientID)
	a.DoctorID = sanitizer.NormalizeID(a.DoctorID)
	a.Reason = sanitizer.NormalizeReason(a.Reason)
}

func (s *appointmentService) applyDefaults(a *model.Appointment) {
	a.Status = model.AppointmentPending
	a.Payment = model.PaymentRecord{
		Method: a.Payment.Method,
		Status: model.PaymentUnpaid,
		Amount: a.Payment.Amount,
	}
	a.VideoNotified = false
	a.Version = 1
}

func (s *appointmentService) validate(a *model.Appointment) error {
	if err := s.validator.Validate(a); err != nil {
		s.cfg.Log.Warn("Appointment validation failed", "error", err)
		return apperrors.Validation("Appointment validation failed", map[string]any{"error": err.Error()})
	}
	return nil
}

func (s *appointmentService) publish(ctx context.Context, key, eventType string, payload any) {
	if err := s.publisher.Publish(ctx, key, eventType, payload); err != nil {
		s.cfg.Log.Warn("Failed to publish appointment event",
			"event_type", eventType,
			"key", key,
			"error", err,
		)
	}
}

package service

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	apptserrors "medibook/internal/appointments/errors"
	"medibook/internal/appointments/validator"
	"medibook/internal/events"
	"medibook/pkg/config"
	mongotx "medibook/pkg/db/mongo"
	apperrors "medibook/pkg/errors"
	"medibook/pkg/logger"
	"medibook/pkg/model"
)

// versionedRepo is an in-memory double that mirrors the store's two
// conditional writes: status swaps guarded by the version, payment swaps
// guarded by the current payment status.
type versionedRepo struct {
	mu          sync.Mutex
	appointment *model.Appointment
}

func newVersionedRepo(a *model.Appointment) *versionedRepo {
	return &versionedRepo{appointment: a}
}

func (r *versionedRepo) snapshot() *model.Appointment {
	c := *r.appointment
	return &c
}

func (r *versionedRepo) Create(_ context.Context, a *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a.ID = "665f1f77bcf86cd799439022"
	a.CreatedAt = time.Now().UTC()
	r.appointment = a
	return nil
}

func (r *versionedRepo) FindByID(_ context.Context, id string) (*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.appointment == nil || id != r.appointment.ID {
		return nil, apptserrors.ErrNotFound
	}
	return r.snapshot(), nil
}

func (r *versionedRepo) FindByPatient(_ context.Context, patientID string, _ int, _ int64) ([]*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.appointment != nil && r.appointment.PatientID == patientID {
		return []*model.Appointment{r.snapshot()}, nil
	}
	return nil, nil
}

func (r *versionedRepo) CountByPatient(_ context.Context, patientID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.appointment != nil && r.appointment.PatientID == patientID {
		return 1, nil
	}
	return 0, nil
}

func (r *versionedRepo) FindByDoctor(_ context.Context, doctorID string, _ int, _ int64) ([]*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.appointment != nil && r.appointment.DoctorID == doctorID {
		return []*model.Appointment{r.snapshot()}, nil
	}
	return nil, nil
}

func (r *versionedRepo) CountByDoctor(_ context.Context, doctorID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.appointment != nil && r.appointment.DoctorID == doctorID {
		return 1, nil
	}
	return 0, nil
}

func (r *versionedRepo) CountActiveByDoctorSlot(_ context.Context, doctorID string, date time.Time, slot model.ClockTime) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := r.appointment
	if a != nil && a.DoctorID == doctorID && a.ScheduledDate.Equal(date) && a.ScheduledTime == slot &&
		(a.Status == model.AppointmentPending || a.Status == model.AppointmentConfirmed) {
		return 1, nil
	}
	return 0, nil
}

func (r *versionedRepo) UpdateStatus(_ context.Context, id string, observedVersion int64, to model.AppointmentStatus) (*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.appointment == nil || id != r.appointment.ID || r.appointment.Version != observedVersion {
		return nil, apptserrors.ErrPreconditionFailed
	}
	r.appointment.Status = to
	r.appointment.Version++
	return r.snapshot(), nil
}

func (r *versionedRepo) UpdatePayment(_ context.Context, id string, from model.PaymentStatus, payment model.PaymentRecord) (*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.appointment == nil || id != r.appointment.ID || r.appointment.Payment.Status != from {
		return nil, apptserrors.ErrPreconditionFailed
	}
	r.appointment.Payment = payment
	return r.snapshot(), nil
}

func (r *versionedRepo) MarkVideoNotified(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.appointment == nil || id != r.appointment.ID || r.appointment.VideoNotified {
		return false, nil
	}
	r.appointment.VideoNotified = true
	return true, nil
}

func (r *versionedRepo) FindPendingVideoNotifications(_ context.Context, _, _ time.Time) ([]*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := r.appointment
	if a != nil && a.Status == model.AppointmentConfirmed && a.Modality == model.ModalityVideo && !a.VideoNotified {
		return []*model.Appointment{r.snapshot()}, nil
	}
	return nil, nil
}

func (r *versionedRepo) ExecuteTransaction(_ context.Context, fn mongotx.TransactionFunc) error {
	return fn(nil)
}

func newTestConfig() *config.Config {
	return &config.Config{
		NotifyThreshold:  15 * time.Minute,
		JoinGateLead:     5 * time.Minute,
		GateTickInterval: time.Second,
		GateLookahead:    30 * time.Minute,
		Log: logger.New(logger.Config{
			Level:   logger.ERROR,
			Output:  io.Discard,
			Service: "appointments-test",
		}),
	}
}

func newTestService(repo *versionedRepo, at time.Time) *appointmentService {
	cfg := newTestConfig()
	svc := NewAppointmentService(repo, validator.NewAppointmentValidator(cfg.Log), events.NopPublisher{}, cfg).(*appointmentService)
	if !at.IsZero() {
		svc.now = func() time.Time { return at }
	}
	return svc
}

func pendingAppointment() *model.Appointment {
	scheduled, _ := model.ParseClockTime("10:00 AM")
	return &model.Appointment{
		ID:            "665f1f77bcf86cd799439022",
		PatientID:     "patient-1",
		DoctorID:      "doctor-1",
		ScheduledDate: time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
		ScheduledTime: scheduled,
		Modality:      model.ModalityVideo,
		Status:        model.AppointmentPending,
		Payment:       model.PaymentRecord{Status: model.PaymentUnpaid},
		Version:       1,
	}
}

func appErrCode(t *testing.T, err error) string {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error, got nil")
	}
	appErr, ok := err.(*apperrors.AppError)
	if !ok {
		t.Fatalf("expected *AppError, got %T: %v", err, err)
	}
	return appErr.Code
}

func TestRequestRejectsPastDate(t *testing.T) {
	repo := newVersionedRepo(nil)
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	svc := newTestService(repo, now)

	a := pendingAppointment()
	a.ID = ""
	a.ScheduledDate = time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)

	err := svc.Request(context.Background(), a)
	if code := appErrCode(t, err); code != apperrors.CodePastDate {
		t.Fatalf("error code = %s, want %s", code, apperrors.CodePastDate)
	}
}

func TestRequestAcceptsLaterToday(t *testing.T) {
	repo := newVersionedRepo(nil)
	// 18:00; the 10:00 slot time already passed but the date is today.
	now := time.Date(2025, 6, 10, 18, 0, 0, 0, time.UTC)
	svc := newTestService(repo, now)

	a := pendingAppointment()
	a.ID = ""
	if err := svc.Request(context.Background(), a); err != nil {
		t.Fatalf("Request returned error: %v", err)
	}

	if a.Status != model.AppointmentPending {
		t.Fatalf("status = %s, want pending", a.Status)
	}
	if a.Payment.Status != model.PaymentUnpaid {
		t.Fatalf("payment status = %s, want unpaid", a.Payment.Status)
	}
	if a.Version != 1 {
		t.Fatalf("version = %d, want 1", a.Version)
	}
}

func TestRequestForcesPendingRegardlessOfInput(t *testing.T) {
	repo := newVersionedRepo(nil)
	svc := newTestService(repo, time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC))

	a := pendingAppointment()
	a.ID = ""
	a.Status = model.AppointmentConfirmed
	a.Payment.Status = model.PaymentPaid
	a.VideoNotified = true
	a.Version = 42

	if err := svc.Request(context.Background(), a); err != nil {
		t.Fatalf("Request returned error: %v", err)
	}
	if a.Status != model.AppointmentPending || a.Payment.Status != model.PaymentUnpaid || a.VideoNotified || a.Version != 1 {
		t.Fatalf("caller-supplied state leaked through: %+v", a)
	}
}

func TestRequestRejectsSameParty(t *testing.T) {
	repo := newVersionedRepo(nil)
	svc := newTestService(repo, time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC))

	a := pendingAppointment()
	a.ID = ""
	a.DoctorID = a.PatientID

	err := svc.Request(context.Background(), a)
	if code := appErrCode(t, err); code != apperrors.CodeValidation {
		t.Fatalf("error code = %s, want %s", code, apperrors.CodeValidation)
	}
}

func TestRequestRequiresScheduledTime(t *testing.T) {
	repo := newVersionedRepo(nil)
	svc := newTestService(repo, time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC))

	a := pendingAppointment()
	a.ID = ""
	a.ScheduledTime = model.ClockTime{}

	err := svc.Request(context.Background(), a)
	if code := appErrCode(t, err); code != apperrors.CodeValidation {
		t.Fatalf("error code = %s, want %s", code, apperrors.CodeValidation)
	}
}

func TestRequestRejectsOccupiedDoctorSlot(t *testing.T) {
	existing := pendingAppointment()
	existing.Status = model.AppointmentConfirmed
	repo := newVersionedRepo(existing)
	svc := newTestService(repo, time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC))

	a := pendingAppointment()
	a.ID = ""
	a.PatientID = "patient-2"

	err := svc.Request(context.Background(), a)
	if code := appErrCode(t, err); code != apperrors.CodeConflict {
		t.Fatalf("error code = %s, want %s", code, apperrors.CodeConflict)
	}
}

func TestDoctorConfirmsPending(t *testing.T) {
	a := pendingAppointment()
	repo := newVersionedRepo(a)
	svc := newTestService(repo, time.Time{})

	updated, err := svc.Transition(context.Background(), a.ID, Actor{ID: "doctor-1", Role: RoleDoctor}, model.AppointmentConfirmed, 1)
	if err != nil {
		t.Fatalf("Transition returned error: %v", err)
	}
	if updated.Status != model.AppointmentConfirmed {
		t.Fatalf("status = %s, want confirmed", updated.Status)
	}
	if updated.Version != 2 {
		t.Fatalf("version = %d, want 2", updated.Version)
	}
}

func TestPatientCannotConfirm(t *testing.T) {
	a := pendingAppointment()
	repo := newVersionedRepo(a)
	svc := newTestService(repo, time.Time{})

	_, err := svc.Transition(context.Background(), a.ID, Actor{ID: "patient-1", Role: RolePatient}, model.AppointmentConfirmed, 1)
	if code := appErrCode(t, err); code != apperrors.CodeForbidden {
		t.Fatalf("error code = %s, want %s", code, apperrors.CodeForbidden)
	}
}

func TestOtherDoctorCannotConfirm(t *testing.T) {
	a := pendingAppointment()
	repo := newVersionedRepo(a)
	svc := newTestService(repo, time.Time{})

	_, err := svc.Transition(context.Background(), a.ID, Actor{ID: "doctor-2", Role: RoleDoctor}, model.AppointmentConfirmed, 1)
	if code := appErrCode(t, err); code != apperrors.CodeForbidden {
		t.Fatalf("error code = %s, want %s", code, apperrors.CodeForbidden)
	}
}

func TestConfirmRejectedAppointmentIsInvalid(t *testing.T) {
	a := pendingAppointment()
	a.Status = model.AppointmentRejected
	repo := newVersionedRepo(a)
	svc := newTestService(repo, time.Time{})

	_, err := svc.Transition(context.Background(), a.ID, Actor{ID: "doctor-1", Role: RoleDoctor}, model.AppointmentConfirmed, 1)
	if code := appErrCode(t, err); code != apperrors.CodeInvalidTransition {
		t.Fatalf("error code = %s, want %s", code, apperrors.CodeInvalidTransition)
	}
}

func TestPatientConfirmRejectedAppointmentIsInvalid(t *testing.T) {
	a := pendingAppointment()
	a.Status = model.AppointmentRejected
	repo := newVersionedRepo(a)
	svc := newTestService(repo, time.Time{})

	// Confirming a rejected appointment is illegal for every party, so even
	// the wrong-role caller sees the transition error, not an authorization
	// one.
	_, err := svc.Transition(context.Background(), a.ID, Actor{ID: "patient-1", Role: RolePatient}, model.AppointmentConfirmed, 1)
	if code := appErrCode(t, err); code != apperrors.CodeInvalidTransition {
		t.Fatalf("error code = %s, want %s", code, apperrors.CodeInvalidTransition)
	}
}

func TestSelfTransitionIsInvalid(t *testing.T) {
	a := pendingAppointment()
	a.Status = model.AppointmentConfirmed
	repo := newVersionedRepo(a)
	svc := newTestService(repo, time.Time{})

	_, err := svc.Transition(context.Background(), a.ID, Actor{ID: "doctor-1", Role: RoleDoctor}, model.AppointmentConfirmed, 1)
	if code := appErrCode(t, err); code != apperrors.CodeInvalidTransition {
		t.Fatalf("error code = %s, want %s", code, apperrors.CodeInvalidTransition)
	}
}

func TestTransitionBackToPendingIsInvalid(t *testing.T) {
	a := pendingAppointment()
	a.Status = model.AppointmentConfirmed
	repo := newVersionedRepo(a)
	svc := newTestService(repo, time.Time{})

	_, err := svc.Transition(context.Background(), a.ID, Actor{ID: "doctor-1", Role: RoleDoctor}, model.AppointmentPending, 1)
	if code := appErrCode(t, err); code != apperrors.CodeInvalidTransition {
		t.Fatalf("error code = %s, want %s", code, apperrors.CodeInvalidTransition)
	}
}

func TestPatientCancelsConfirmed(t *testing.T) {
	a := pendingAppointment()
	a.Status = model.AppointmentConfirmed
	repo := newVersionedRepo(a)
	svc := newTestService(repo, time.Time{})

	updated, err := svc.Transition(context.Background(), a.ID, Actor{ID: "patient-1", Role: RolePatient}, model.AppointmentCancelled, 1)
	if err != nil {
		t.Fatalf("Transition returned error: %v", err)
	}
	if updated.Status != model.AppointmentCancelled {
		t.Fatalf("status = %s, want cancelled", updated.Status)
	}
}

func TestStaleVersionLosesRace(t *testing.T) {
	a := pendingAppointment()
	repo := newVersionedRepo(a)
	svc := newTestService(repo, time.Time{})

	// Both parties read version 1; the doctor's confirmation lands first.
	if _, err := svc.Transition(context.Background(), a.ID, Actor{ID: "doctor-1", Role: RoleDoctor}, model.AppointmentConfirmed, 1); err != nil {
		t.Fatalf("confirm returned error: %v", err)
	}

	_, err := svc.Transition(context.Background(), a.ID, Actor{ID: "patient-1", Role: RolePatient}, model.AppointmentCancelled, 1)
	if code := appErrCode(t, err); code != apperrors.CodeStaleVersion {
		t.Fatalf("error code = %s, want %s", code, apperrors.CodeStaleVersion)
	}

	// Re-reading and retrying with the fresh version succeeds.
	if _, err := svc.Transition(context.Background(), a.ID, Actor{ID: "patient-1", Role: RolePatient}, model.AppointmentCancelled, 2); err != nil {
		t.Fatalf("retry with fresh version returned error: %v", err)
	}
}

func TestTransitionUnknownAppointment(t *testing.T) {
	repo := newVersionedRepo(nil)
	svc := newTestService(repo, time.Time{})

	_, err := svc.Transition(context.Background(), "665f1f77bcf86cd799439099", Actor{ID: "doctor-1", Role: RoleDoctor}, model.AppointmentConfirmed, 1)
	if code := appErrCode(t, err); code != apperrors.CodeNotFound {
		t.Fatalf("error code = %s, want %s", code, apperrors.CodeNotFound)
	}
}

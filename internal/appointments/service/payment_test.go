package service

import (
	"context"
	"testing"
	"time"

	apperrors "medibook/pkg/errors"
	"medibook/pkg/model"
)

func TestRecordPaymentStartsCardAttempt(t *testing.T) {
	a := pendingAppointment()
	repo := newVersionedRepo(a)
	svc := newTestService(repo, time.Time{})

	updated, err := svc.RecordPayment(context.Background(), a.ID, model.PaymentCard, 15000)
	if err != nil {
		t.Fatalf("RecordPayment returned error: %v", err)
	}
	if updated.Payment.Status != model.PaymentPending {
		t.Fatalf("payment status = %s, want pending", updated.Payment.Status)
	}
	if updated.Payment.Method != model.PaymentCard || updated.Payment.Amount != 15000 {
		t.Fatalf("payment record = %+v", updated.Payment)
	}
}

func TestRecordPaymentLeavesLifecycleAlone(t *testing.T) {
	a := pendingAppointment()
	a.Status = model.AppointmentConfirmed
	a.Version = 3
	repo := newVersionedRepo(a)
	svc := newTestService(repo, time.Time{})

	updated, err := svc.RecordPayment(context.Background(), a.ID, model.PaymentCard, 15000)
	if err != nil {
		t.Fatalf("RecordPayment returned error: %v", err)
	}
	if updated.Status != model.AppointmentConfirmed {
		t.Fatalf("lifecycle status changed to %s", updated.Status)
	}
	if updated.Version != 3 {
		t.Fatalf("version changed to %d, payment must not touch it", updated.Version)
	}
}

func TestSettlePaymentSuccess(t *testing.T) {
	a := pendingAppointment()
	a.Payment = model.PaymentRecord{Method: model.PaymentCard, Status: model.PaymentPending, Amount: 15000}
	repo := newVersionedRepo(a)
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	svc := newTestService(repo, now)

	updated, err := svc.SettlePayment(context.Background(), a.ID, true)
	if err != nil {
		t.Fatalf("SettlePayment returned error: %v", err)
	}
	if updated.Payment.Status != model.PaymentPaid {
		t.Fatalf("payment status = %s, want paid", updated.Payment.Status)
	}
	if updated.Payment.SettledAt == nil || !updated.Payment.SettledAt.Equal(now) {
		t.Fatalf("settled_at = %v, want %v", updated.Payment.SettledAt, now)
	}
}

func TestSettlePaymentFailureIsTypedAndRetryable(t *testing.T) {
	a := pendingAppointment()
	a.Payment = model.PaymentRecord{Method: model.PaymentCard, Status: model.PaymentPending, Amount: 15000}
	repo := newVersionedRepo(a)
	svc := newTestService(repo, time.Time{})

	updated, err := svc.SettlePayment(context.Background(), a.ID, false)
	if code := appErrCode(t, err); code != apperrors.CodePaymentFailed {
		t.Fatalf("error code = %s, want %s", code, apperrors.CodePaymentFailed)
	}
	if updated == nil || updated.Payment.Status != model.PaymentFailed {
		t.Fatalf("payment record after failed settlement = %+v", updated)
	}

	// The failed record accepts a retry.
	retried, err := svc.RecordPayment(context.Background(), a.ID, model.PaymentCard, 15000)
	if err != nil {
		t.Fatalf("retry after failure returned error: %v", err)
	}
	if retried.Payment.Status != model.PaymentPending {
		t.Fatalf("payment status after retry = %s, want pending", retried.Payment.Status)
	}
}

func TestCashOnArrivalSettlesImmediatelyFromPending(t *testing.T) {
	a := pendingAppointment()
	a.Payment = model.PaymentRecord{Method: model.PaymentCashOnArrival, Status: model.PaymentPending, Amount: 8000}
	repo := newVersionedRepo(a)
	now := time.Date(2025, 6, 10, 9, 55, 0, 0, time.UTC)
	svc := newTestService(repo, now)

	updated, err := svc.RecordPayment(context.Background(), a.ID, model.PaymentCashOnArrival, 8000)
	if err != nil {
		t.Fatalf("RecordPayment returned error: %v", err)
	}
	if updated.Payment.Status != model.PaymentPaid {
		t.Fatalf("payment status = %s, want paid", updated.Payment.Status)
	}
	if updated.Payment.SettledAt == nil {
		t.Fatal("settled_at not set on cash reconciliation")
	}
}

func TestRecordPaymentOnPaidAppointmentConflicts(t *testing.T) {
	a := pendingAppointment()
	settled := time.Date(2025, 6, 9, 12, 0, 0, 0, time.UTC)
	a.Payment = model.PaymentRecord{Method: model.PaymentCard, Status: model.PaymentPaid, Amount: 15000, SettledAt: &settled}
	repo := newVersionedRepo(a)
	svc := newTestService(repo, time.Time{})

	_, err := svc.RecordPayment(context.Background(), a.ID, model.PaymentCard, 15000)
	if code := appErrCode(t, err); code != apperrors.CodeConflict {
		t.Fatalf("error code = %s, want %s", code, apperrors.CodeConflict)
	}
}

func TestSettleNonPendingPaymentConflicts(t *testing.T) {
	a := pendingAppointment()
	repo := newVersionedRepo(a)
	svc := newTestService(repo, time.Time{})

	_, err := svc.SettlePayment(context.Background(), a.ID, true)
	if code := appErrCode(t, err); code != apperrors.CodeConflict {
		t.Fatalf("error code = %s, want %s", code, apperrors.CodeConflict)
	}
}

func TestRecordPaymentRejectsUnknownMethod(t *testing.T) {
	a := pendingAppointment()
	repo := newVersionedRepo(a)
	svc := newTestService(repo, time.Time{})

	_, err := svc.RecordPayment(context.Background(), a.ID, model.PaymentMethod("barter"), 100)
	if code := appErrCode(t, err); code != apperrors.CodeInvalidInput {
		t.Fatalf("error code = %s, want %s", code, apperrors.CodeInvalidInput)
	}
}

func TestPaymentAxisIndependentOfCancellation(t *testing.T) {
	a := pendingAppointment()
	settled := time.Date(2025, 6, 9, 12, 0, 0, 0, time.UTC)
	a.Status = model.AppointmentConfirmed
	a.Payment = model.PaymentRecord{Method: model.PaymentCard, Status: model.PaymentPaid, Amount: 15000, SettledAt: &settled}
	repo := newVersionedRepo(a)
	svc := newTestService(repo, time.Time{})

	updated, err := svc.Transition(context.Background(), a.ID, Actor{ID: "patient-1", Role: RolePatient}, model.AppointmentCancelled, 1)
	if err != nil {
		t.Fatalf("Transition returned error: %v", err)
	}
	if updated.Payment.Status != model.PaymentPaid {
		t.Fatalf("payment status after cancellation = %s, want paid", updated.Payment.Status)
	}
}

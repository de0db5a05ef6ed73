package service

import (
	"context"
	"errors"

	apptserrors "medibook/internal/appointments/errors"
	"medibook/internal/events"
	apperrors "medibook/pkg/errors"
	"medibook/pkg/model"
)

// RecordPayment starts or retries a payment attempt. It moves unpaid and
// failed records to pending; a cash-on-arrival attempt that is already
// pending settles immediately, since the desk reconciles cash in the same
// call. The lifecycle status is never touched: payment is its own axis.
func (s *appointmentService) RecordPayment(ctx context.Context, id string, method model.PaymentMethod, amount int64) (*model.Appointment, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Appointment ID cannot be empty")
	}
	if method != model.PaymentCard && method != model.PaymentCashOnArrival {
		return nil, apperrors.InvalidInput("Unknown payment method: " + string(method))
	}
	if amount < 0 {
		return nil, apperrors.InvalidInput("Payment amount cannot be negative")
	}

	current, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	from := current.Payment.Status
	record := model.PaymentRecord{
		Method: method,
		Status: model.PaymentPending,
		Amount: amount,
	}

	switch from {
	case model.PaymentUnpaid, model.PaymentFailed:
		// New attempt or retry after a failed settlement.
	case model.PaymentPending:
		if method == model.PaymentCashOnArrival {
			settledAt := s.now()
			record.Status = model.PaymentPaid
			record.SettledAt = &settledAt
			break
		}
		return nil, apperrors.Conflict("A card payment is already being settled for this appointment")
	case model.PaymentPaid:
		return nil, apperrors.Conflict("This appointment is already paid")
	default:
		return nil, apperrors.Internal("Unknown payment status", nil)
	}

	updated, err := s.repo.UpdatePayment(ctx, id, from, record)
	if err != nil {
		if errors.Is(err, apptserrors.ErrPreconditionFailed) {
			return nil, s.classifyPaymentFailure(ctx, id)
		}
		s.cfg.Log.Error("Failed to record payment",
			"appointment_id", id,
			"method", method,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to record payment", err)
	}

	s.cfg.Log.Info("Payment recorded",
		"appointment_id", id,
		"method", method,
		"from", from,
		"to", updated.Payment.Status,
		"amount", amount,
	)
	s.publish(ctx, id, events.TypePaymentStatusChanged, events.PaymentStatusChanged{
		AppointmentID: id,
		Method:        method,
		From:          from,
		To:            updated.Payment.Status,
		Amount:        amount,
		OccurredAt:    s.now(),
	})
	return updated, nil
}

// SettlePayment resolves a pending card payment with the outcome reported
// by the payment provider. A failed settlement is persisted before the
// typed error is returned, so the record is retryable via RecordPayment.
func (s *appointmentService) SettlePayment(ctx context.Context, id string, succeeded bool) (*model.Appointment, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Appointment ID cannot be empty")
	}

	current, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Payment.Status != model.PaymentPending {
		return nil, apperrors.Conflict("Only a pending payment can be settled")
	}

	record := current.Payment
	if succeeded {
		settledAt := s.now()
		record.Status = model.PaymentPaid
		record.SettledAt = &settledAt
	} else {
		record.Status = model.PaymentFailed
		record.SettledAt = nil
	}

	updated, err := s.repo.UpdatePayment(ctx, id, model.PaymentPending, record)
	if err != nil {
		if errors.Is(err, apptserrors.ErrPreconditionFailed) {
			return nil, s.classifyPaymentFailure(ctx, id)
		}
		s.cfg.Log.Error("Failed to settle payment", "appointment_id", id, "error", err)
		return nil, apperrors.Internal("Failed to settle payment", err)
	}

	s.publish(ctx, id, events.TypePaymentStatusChanged, events.PaymentStatusChanged{
		AppointmentID: id,
		Method:        updated.Payment.Method,
		From:          model.PaymentPending,
		To:            updated.Payment.Status,
		Amount:        updated.Payment.Amount,
		OccurredAt:    s.now(),
	})

	if !succeeded {
		s.cfg.Log.Warn("Payment settlement failed", "appointment_id", id, "method", updated.Payment.Method)
		return updated, apperrors.PaymentSettlementFailed(id, nil)
	}

	s.cfg.Log.Info("Payment settled", "appointment_id", id, "amount", updated.Payment.Amount)
	return updated, nil
}

func (s *appointmentService) classifyPaymentFailure(ctx context.Context, id string) error {
	appointment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, apptserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Appointment", id)
		}
		return apperrors.Internal("Failed to inspect appointment after payment conflict", err)
	}
	return apperrors.Conflict("Payment status changed concurrently, observed " + string(appointment.Payment.Status) + ", please refresh and retry")
}

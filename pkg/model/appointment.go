package model

import (
	"time"
)

type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "pending"
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentRejected  AppointmentStatus = "rejected"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

// Terminal reports whether the status has no outgoing transitions.
func (s AppointmentStatus) Terminal() bool {
	switch s {
	case AppointmentCompleted, AppointmentRejected, AppointmentCancelled:
		return true
	}
	return false
}

func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentPending, AppointmentConfirmed, AppointmentCompleted,
		AppointmentRejected, AppointmentCancelled:
		return true
	}
	return false
}

type Modality string

const (
	ModalityVideo    Modality = "video"
	ModalityPhone    Modality = "phone"
	ModalityInPerson Modality = "in_person"
)

type PaymentMethod string

const (
	PaymentCard          PaymentMethod = "card"
	PaymentCashOnArrival PaymentMethod = "cash_on_arrival"
)

type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

// PaymentRecord is the payment axis of an appointment. It is deliberately
// independent of AppointmentStatus: a confirmed appointment may be unpaid and
// a cancelled one may remain paid until refund handling picks it up.
type PaymentRecord struct {
	Method    PaymentMethod `json:"method,omitempty" bson:"method,omitempty" validate:"omitempty,oneof=card cash_on_arrival"`
	Status    PaymentStatus `json:"status" bson:"status" validate:"required,oneof=unpaid pending paid failed"`
	Amount    int64         `json:"amount" bson:"amount" validate:"min=0"`
	SettledAt *time.Time    `json:"settled_at,omitempty" bson:"settled_at,omitempty"`
}

type Appointment struct {
	ID            string            `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	PatientID     string            `json:"patient_id" bson:"patient_id" validate:"required,min=1,max=64"`
	DoctorID      string            `json:"doctor_id" bson:"doctor_id" validate:"required,min=1,max=64"`
	ScheduledDate time.Time         `json:"scheduled_date" bson:"scheduled_date" validate:"required"`
	ScheduledTime ClockTime         `json:"scheduled_time" bson:"scheduled_time"`
	Modality      Modality          `json:"modality" bson:"modality" validate:"required,oneof=video phone in_person"`
	Status        AppointmentStatus `json:"status" bson:"status" validate:"required,oneof=pending confirmed completed rejected cancelled"`
	Payment       PaymentRecord     `json:"payment" bson:"payment"`
	Reason        string            `json:"reason,omitempty" bson:"reason,omitempty" validate:"omitempty,max=500"`
	VideoNotified bool              `json:"video_notified" bson:"video_notified"`
	CreatedAt     time.Time         `json:"created_at" bson:"created_at" validate:"omitempty"`
	Version       int64             `json:"version" bson:"version" validate:"omitempty,min=0"`
}

// StartsAt composes the scheduled calendar date and the scheduled wall-clock
// time into the instant the consultation begins, in UTC.
func (a *Appointment) StartsAt() time.Time {
	d := a.ScheduledDate.UTC()
	return time.Date(d.Year(), d.Month(), d.Day(), a.ScheduledTime.Hour(), a.ScheduledTime.Minute(), 0, 0, time.UTC)
}

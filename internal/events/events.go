// Package events defines the booking core's outbound event surface. Events
// are informational: every invariant is enforced by the store's conditional
// writes, never by consumers of these topics.
package events

import (
	"context"
	"time"

	"medibook/pkg/kafka"
	"medibook/pkg/model"
)

const (
	TopicAppointments  = "medibook.appointments"
	TopicCamps         = "medibook.camps"
	TopicNotifications = "medibook.notifications"

	TopicAppointmentsDLQ  = "medibook.appointments.dlq"
	TopicCampsDLQ         = "medibook.camps.dlq"
	TopicNotificationsDLQ = "medibook.notifications.dlq"
)

const (
	TypeAppointmentRequested     = "appointment.requested"
	TypeAppointmentStatusChanged = "appointment.status_changed"
	TypePaymentStatusChanged     = "appointment.payment_status_changed"
	TypeCampRegistered           = "camp.registered"
	TypeCampUnregistered         = "camp.unregistered"
	TypeCampStatusChanged        = "camp.status_changed"
	TypeConsultStartingSoon      = "consult.starting_soon"
)

type AppointmentStatusChanged struct {
	AppointmentID string                  `json:"appointment_id"`
	PatientID     string                  `json:"patient_id"`
	DoctorID      string                  `json:"doctor_id"`
	From          model.AppointmentStatus `json:"from"`
	To            model.AppointmentStatus `json:"to"`
	Version       int64                   `json:"version"`
	OccurredAt    time.Time               `json:"occurred_at"`
}

type PaymentStatusChanged struct {
	AppointmentID string              `json:"appointment_id"`
	Method        model.PaymentMethod `json:"method"`
	From          model.PaymentStatus `json:"from"`
	To            model.PaymentStatus `json:"to"`
	Amount        int64               `json:"amount"`
	OccurredAt    time.Time           `json:"occurred_at"`
}

type CampRegistration struct {
	CampID          string    `json:"camp_id"`
	ParticipantID   string    `json:"participant_id"`
	RegisteredCount int       `json:"registered_count"`
	Capacity        int       `json:"capacity"`
	OccurredAt      time.Time `json:"occurred_at"`
}

type ConsultStartingSoon struct {
	AppointmentID string    `json:"appointment_id"`
	PatientID     string    `json:"patient_id"`
	DoctorID      string    `json:"doctor_id"`
	StartsAt      time.Time `json:"starts_at"`
	NotifiedAt    time.Time `json:"notified_at"`
}

// Publisher is the slice of the event pipeline services depend on. Tests
// substitute an in-memory fake; production wires a kafka producer.
type Publisher interface {
	Publish(ctx context.Context, key, eventType string, payload any) error
}

type kafkaPublisher struct {
	producer *kafka.Producer
	source   string
}

func NewKafkaPublisher(producer *kafka.Producer, source string) Publisher {
	return &kafkaPublisher{producer: producer, source: source}
}

func (p *kafkaPublisher) Publish(ctx context.Context, key, eventType string, payload any) error {
	msg := kafka.NewMessage().
		WithKey(key).
		WithValue(payload).
		WithEventType(eventType).
		WithSource(p.source).
		Build()
	return p.producer.Publish(ctx, msg)
}

// NopPublisher drops events; used when a deployment runs without brokers.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, string, any) error { return nil }

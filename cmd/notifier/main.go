package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"medibook/internal/events"
	"medibook/pkg/config"
	"medibook/pkg/kafka"
	kafka_config "medibook/pkg/kafka/config"
	kafka_middleware "medibook/pkg/kafka/middleware"
)

const (
	ServiceName   = "notifier"
	consumerGroup = "medibook-notifier"
)

// The notifier drains the notifications topic and hands each starting-soon
// event to the delivery channel (SMS/push). Delivery is out of scope for
// the booking core, so this binary logs what it would send; wiring a real
// sender only replaces the handler below.
func main() {
	cfg := config.Load(ServiceName)

	kafkaCfg := kafka_config.Load()
	kafkaCfg.LogConfiguration(cfg.Log.Info)

	consumer, err := kafka.NewConsumer(
		kafkaCfg,
		events.TopicNotifications,
		consumerGroup,
		events.TopicNotificationsDLQ,
		handleNotification(cfg),
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka consumer", "error", err)
	}
	if kafkaCfg.EnableMiddleware {
		consumer.Use(kafka_middleware.LoggingConsumerMiddleware())
		consumer.Use(kafka_middleware.MetricsConsumerMiddleware())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-shutdown
		cfg.Log.Info("Shutdown signal received", "signal", sig)
		cancel()
	}()

	cfg.Log.Info("Notifier started", "topic", events.TopicNotifications, "group", consumerGroup)
	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		cfg.Log.Error("Consumer stopped with error", "error", err)
	}

	if err := consumer.Close(); err != nil {
		cfg.Log.Error("Failed to close consumer", "error", err)
	}
	cfg.Log.Info("Notifier stopped")
}

func handleNotification(cfg *config.Config) kafka.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		if msg.GetEventType() != events.TypeConsultStartingSoon {
			cfg.Log.Debug("Skipping event", "event_type", msg.GetEventType())
			return nil
		}

		var event events.ConsultStartingSoon
		if err := msg.DecodeValue(&event); err != nil {
			return kafka.NewPermanentError("failed to decode starting-soon event", err)
		}

		cfg.Log.Info("Consultation starting soon",
			"appointment_id", event.AppointmentID,
			"patient_id", event.PatientID,
			"doctor_id", event.DoctorID,
			"starts_at", event.StartsAt,
			"notified_at", event.NotifiedAt,
		)
		return nil
	}
}

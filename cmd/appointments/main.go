package main

import (
	"medibook/internal/appointments/handler"
	"medibook/internal/appointments/repository"
	"medibook/internal/appointments/service"
	"medibook/internal/appointments/validator"
	"medibook/internal/consult"
	"medibook/internal/events"
	"medibook/pkg/app"
	"medibook/pkg/config"
	"medibook/pkg/kafka"
	kafka_config "medibook/pkg/kafka/config"
)

const ServiceName = "appointments"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Appointments service")

	appointmentRepo := repository.NewMongoAppointmentRepository(cfg)
	appointmentService := initServices(cfg, appointmentRepo)

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(handler.NewAppointmentHandler(appointmentService, cfg, cfg.Log))
	serverApp.AddWorker(consult.NewWatcher(appointmentRepo, notificationPublisher(cfg), cfg))
	serverApp.Run()
}

func initServices(cfg *config.Config, repo repository.AppointmentRepository) service.AppointmentService {
	appointmentValidator := validator.NewAppointmentValidator(cfg.Log)
	appointmentService := service.NewAppointmentService(
		repo,
		appointmentValidator,
		eventPublisher(cfg),
		cfg,
	)

	cfg.Log.Info("Appointment service initialized", "database", cfg.MongoDatabaseName)
	return appointmentService
}

func eventPublisher(cfg *config.Config) events.Publisher {
	kafkaCfg := kafka_config.Load()
	producer, err := kafka.NewProducer(kafkaCfg, events.TopicAppointments, events.TopicAppointmentsDLQ)
	if err != nil {
		cfg.Log.Warn("Kafka producer unavailable, appointment events will be dropped", "error", err)
		return events.NopPublisher{}
	}
	return events.NewKafkaPublisher(producer, ServiceName)
}

func notificationPublisher(cfg *config.Config) events.Publisher {
	kafkaCfg := kafka_config.Load()
	producer, err := kafka.NewProducer(kafkaCfg, events.TopicNotifications, events.TopicNotificationsDLQ)
	if err != nil {
		cfg.Log.Warn("Kafka producer unavailable, consult notifications will be dropped", "error", err)
		return events.NopPublisher{}
	}
	return events.NewKafkaPublisher(producer, ServiceName)
}

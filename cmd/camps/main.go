package main

import (
	"medibook/internal/camps/handler"
	"medibook/internal/camps/repository"
	"medibook/internal/camps/service"
	"medibook/internal/camps/validator"
	"medibook/internal/events"
	"medibook/pkg/app"
	"medibook/pkg/config"
	"medibook/pkg/kafka"
	kafka_config "medibook/pkg/kafka/config"
)

const ServiceName = "camps"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Camps service")
	campService := initServices(cfg)

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(handler.NewCampHandler(campService, cfg.Log))
	serverApp.Run()
}

func initServices(cfg *config.Config) service.CampService {
	campValidator := validator.NewCampValidator(cfg.Log)
	campRepo := repository.NewMongoCampRepository(cfg)
	campService := service.NewCampService(
		campRepo,
		campValidator,
		eventPublisher(cfg),
		cfg,
	)

	cfg.Log.Info("Camp service initialized", "database", cfg.MongoDatabaseName)
	return campService
}

func eventPublisher(cfg *config.Config) events.Publisher {
	kafkaCfg := kafka_config.Load()
	producer, err := kafka.NewProducer(kafkaCfg, events.TopicCamps, events.TopicCampsDLQ)
	if err != nil {
		cfg.Log.Warn("Kafka producer unavailable, camp events will be dropped", "error", err)
		return events.NopPublisher{}
	}
	return events.NewKafkaPublisher(producer, ServiceName)
}

package main

import (
	"context"
	"time"

	"seatbook/internal/bookings/handler"
	"seatbook/internal/bookings/repository"
	"seatbook/internal/bookings/service"
	"seatbook/internal/bookings/validator"
	"seatbook/pkg/app"
	"seatbook/pkg/auth"
	"seatbook/pkg/config"
	"seatbook/pkg/kafka"
	kafka_config "seatbook/pkg/kafka/config"
	kafka_middleware "seatbook/pkg/kafka/middleware"
	"seatbook/pkg/lock"
	"seatbook/pkg/obs"

	"github.com/joho/godotenv"
)

const ServiceName = "bookings"

var version = "dev"

func main() {
	_ = godotenv.Load()
	cfg := config.Load(ServiceName)

	cfg.Log.Info("Starting Bookings service", "version", version, "store_driver", cfg.StoreDriver)
	serverApp := app.NewApplication(cfg)

	if cfg.OtelEnabled {
		initTracing(cfg, serverApp)
	}

	admission, bookings := initServices(cfg, serverApp)
	serverApp.SetApp(
		handler.NewBookingHandler(admission, bookings, cfg.Log),
		auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer),
	)
	serverApp.Run()
}

func initServices(cfg *config.Config, serverApp *app.Application) (service.AdmissionService, service.BookingService) {
	var (
		bookingRepo repository.BookingRepository
		callers     service.CallerResolver
	)
	if cfg.UsesMemoryStore() {
		bookingRepo = repository.NewMemoryBookingRepository()
		callers = repository.NewClaimsUserResolver()
		cfg.Log.Warn("Using in-memory booking store, bookings are lost on restart")
	} else {
		cfg.SetMongo()
		bookingRepo = repository.NewMongoBookingRepository(cfg)
		callers = repository.NewMongoUserRepository(cfg)
		cfg.Log.Info("Using Mongo booking store", "database", cfg.MongoDatabaseName)
	}

	var opts []service.AdmissionOption

	cfg.SetRedis()
	if cfg.Client.Redis != nil {
		opts = append(opts, service.WithSeatLocker(lock.NewSeatLock(cfg.Client.Redis, cfg.SeatLockTTL, cfg.SeatLockWait)))
		cfg.Log.Info("Redis seat lock enabled", "ttl", cfg.SeatLockTTL, "wait", cfg.SeatLockWait)
	}

	if cfg.KafkaEnabled {
		if publisher := initPublisher(cfg, serverApp); publisher != nil {
			opts = append(opts, service.WithEventPublisher(publisher))
		}
	}

	admission := service.NewAdmissionService(bookingRepo, callers, validator.NewBookingValidator(cfg.Log), cfg, opts...)
	// Registered after the producer hook so it runs first on shutdown.
	serverApp.OnShutdown("booking events", admission.DrainEvents)
	bookings := service.NewBookingService(bookingRepo, callers, cfg)

	cfg.Log.Info("Booking services initialized")
	return admission, bookings
}

// initPublisher returns nil when Kafka cannot be configured. Admission does
// not depend on event delivery, so the service starts without it.
func initPublisher(cfg *config.Config, serverApp *app.Application) *kafka.BookingPublisher {
	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Error("Kafka configuration invalid, booking events disabled", "error", err)
		return nil
	}
	kafkaCfg.LogConfiguration(cfg.Log.Info)

	producer, err := kafka.NewProducer(kafkaCfg, cfg.KafkaBookingsTopic, cfg.KafkaBookingsDLQTopic, cfg.Log)
	if err != nil {
		cfg.Log.Error("Failed to create Kafka producer, booking events disabled", "error", err)
		return nil
	}
	if kafkaCfg.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
		producer.Use(kafka_middleware.MetricsProducerMiddleware())
	}

	publisher := kafka.NewBookingPublisher(producer, ServiceName)
	serverApp.OnShutdown("kafka producer", func(context.Context) error {
		return publisher.Close()
	})
	cfg.Log.Info("Booking events enabled", "topic", cfg.KafkaBookingsTopic)
	return publisher
}

func initTracing(cfg *config.Config, serverApp *app.Application) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	shutdown, err := obs.InitTracer(ctx, ServiceName, cfg.OtelEndpoint, version)
	if err != nil {
		cfg.Log.Error("Failed to initialize tracing, continuing without it", "error", err)
		return
	}
	serverApp.OnShutdown("tracer provider", func(ctx context.Context) error {
		return shutdown(ctx)
	})
	cfg.Log.Info("Tracing enabled", "endpoint", cfg.OtelEndpoint)
}

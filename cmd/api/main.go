package main

import (
	authhandler "carrental/internal/auth/handler"
	authservice "carrental/internal/auth/service"
	bookinghandler "carrental/internal/bookings/handler"
	bookingrepo "carrental/internal/bookings/repository"
	bookingservice "carrental/internal/bookings/service"
	bookingvalidator "carrental/internal/bookings/validator"
	carhandler "carrental/internal/cars/handler"
	carrepo "carrental/internal/cars/repository"
	carservice "carrental/internal/cars/service"
	"carrental/internal/cars/storage"
	carvalidator "carrental/internal/cars/validator"
	"carrental/internal/events"
	healthhandler "carrental/internal/health/handler"
	paymenthandler "carrental/internal/payments/handler"
	paymentrepo "carrental/internal/payments/repository"
	paymentservice "carrental/internal/payments/service"
	paymentvalidator "carrental/internal/payments/validator"
	userhandler "carrental/internal/users/handler"
	userrepo "carrental/internal/users/repository"
	userservice "carrental/internal/users/service"
	uservalidator "carrental/internal/users/validator"
	"carrental/pkg/app"
	"carrental/pkg/auth"
	"carrental/pkg/config"
	"carrental/pkg/contracts"
	"carrental/pkg/kafka"
	kafka_config "carrental/pkg/kafka/config"
	kafka_middleware "carrental/pkg/kafka/middleware"
	"carrental/pkg/middleware"
	"carrental/pkg/validation"
	"time"
)

const (
	ServiceName         = "carrental-api"
	eventPublishTimeout = 5 * time.Second
)

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetRedis()
	cfg.SetS3()

	cfg.Log.Info("Starting car rental API")

	serverApp := app.NewApplication(cfg)
	publisher := initEvents(cfg, serverApp)
	handlers := initHandlers(cfg, publisher)

	checks := map[string]healthhandler.Check{
		"mongo": healthhandler.MongoCheck(cfg.Client.Mongo),
	}
	if cfg.Client.Redis != nil {
		checks["redis"] = healthhandler.RedisCheck(cfg.Client.Redis)
	}

	serverApp.SetApp(healthhandler.NewHealthHandler(checks, cfg.Log), handlers...)
	serverApp.Run()
}

func initHandlers(cfg *config.Config, publisher events.Publisher) []contracts.Handler {
	v, err := validation.New()
	if err != nil {
		cfg.Log.Fatal("Failed to build validator", "error", err)
	}

	users := userrepo.NewMongoUserRepository(cfg)
	cars := carrepo.NewMongoCarRepository(cfg)
	bookings := bookingrepo.NewMongoBookingRepository(cfg)
	locks := bookingrepo.NewBookingLockRepository(cfg)
	payments := paymentrepo.NewMongoPaymentRepository(cfg)

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
	guard := middleware.NewGuard(tokens, cfg.Log)

	userService := userservice.NewUserService(
		users,
		uservalidator.NewUserValidator(v),
		auth.NewPasswordHasher(cfg.BcryptCost),
		cfg,
	)
	authService := authservice.NewAuthService(userService, tokens, cfg)

	var putter storage.ObjectClient
	if cfg.Client.S3 != nil {
		putter = cfg.Client.S3
	}
	images := storage.NewS3ImageStore(putter, cfg.S3Bucket, cfg.S3Region, cfg.S3PublicBaseURL, cfg.Log)
	carService := carservice.NewCarService(
		cars,
		bookings,
		images,
		carvalidator.NewCarValidator(v, cfg.MaxImagesPerCar),
		cfg,
	)

	bookingService := bookingservice.NewBookingService(
		bookings,
		locks,
		cars,
		users,
		payments,
		publisher,
		bookingvalidator.NewBookingValidator(v, cfg.BookingMaxSpanDays),
		cfg,
	)

	paymentService := paymentservice.NewPaymentService(
		payments,
		bookings,
		publisher,
		paymentvalidator.NewPaymentValidator(v),
		cfg,
	)

	cfg.Log.Info("Services initialized", "database", cfg.MongoDatabaseName)
	return []contracts.Handler{
		authhandler.NewAuthHandler(authService, guard, cfg.Log),
		userhandler.NewUserHandler(userService, guard, cfg.Log),
		carhandler.NewCarHandler(carService, guard, cfg.Log),
		bookinghandler.NewBookingHandler(bookingService, guard, cfg.Log),
		paymenthandler.NewPaymentHandler(paymentService, guard, cfg.Log),
	}
}

// initEvents returns a Kafka-backed publisher when enabled. The producer is
// closed after the HTTP server drains.
func initEvents(cfg *config.Config, serverApp *app.Application) events.Publisher {
	if !cfg.KafkaEnabled {
		cfg.Log.Info("Kafka disabled, domain events are dropped")
		return events.NoopPublisher{}
	}

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log.Info)

	producer, err := kafka.NewProducer(kafkaCfg, cfg.KafkaTopic, cfg.KafkaDLQTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	if kafkaCfg.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
		producer.Use(kafka_middleware.MetricsProducerMiddleware(kafka_middleware.NewMetrics()))
	}
	serverApp.OnShutdown(producer)

	return events.NewKafkaPublisher(producer, cfg.Log, eventPublishTimeout)
}

package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "carrental"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRateLimitRequests = 10
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024  // 1MB
	DefaultMaxUploadSize  = 10 * 1024 * 1024 // 10MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultPaginationLimit    = 100
	DefaultPaginationPageSize = 10

	DefaultJWTTTL     = 24 * time.Hour
	DefaultBcryptCost = 10

	DefaultS3Region = "us-east-1"

	DefaultKafkaEnabled  = false
	DefaultKafkaTopic    = "carrental.events"
	DefaultKafkaDLQTopic = "carrental.events.dlq"

	DefaultBookingMaxSpanDays = 365
	DefaultBookingLockTTL     = 10 * time.Second
	DefaultMaxImagesPerCar    = 10

	DefaultPhoneRegion = "KE"
	DefaultAdminName   = "Administrator"
)

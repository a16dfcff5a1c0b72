package config

import "time"

const (
	StoreDriverMongo  = "mongo"
	StoreDriverMemory = "memory"
)

const (
	DefaultMongoURI          = "mongodb://localhost:27017/?replicaSet=rs0"
	DefaultMongoDatabaseName = "seatbook"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort      = "8080"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultStoreDriver = StoreDriverMongo

	DefaultRateLimitRequests = 30
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 10 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 64 * 1024 // 64KB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultAdmissionMaxAttempts  = 5
	DefaultAdmissionRetryBackoff = 20 * time.Millisecond

	DefaultJWTIssuer = "seatbook"

	DefaultSeatLockTTL  = 5 * time.Second
	DefaultSeatLockWait = 2 * time.Second

	DefaultKafkaBookingsTopic = "bookings.admitted"

	DefaultOtelEndpoint = "otel-collector:4317"

	DefaultPaginationLimit = 100
	MinPaginationLimit     = 10
)

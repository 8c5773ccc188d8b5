// Package config loads the booking service settings from the environment.
package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

type Config struct {
	ServiceName string `envconfig:"SERVICE_NAME" default:"booking-service"`
	Version     string `envconfig:"SERVICE_VERSION" default:"dev"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Network
	HTTPPort        string        `envconfig:"HTTP_PORT" default:"8080"`
	GRPCPort        string        `envconfig:"GRPC_PORT" default:"50060"`
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	// Storage
	StoreDriver       string `envconfig:"STORE_DRIVER" default:"memory"`
	DBHost            string `envconfig:"DB_HOST" default:"localhost"`
	DBPort            int    `envconfig:"DB_PORT" default:"5432"`
	DBUser            string `envconfig:"DB_USER" default:"postgres"`
	DBPassword        string `envconfig:"DB_PASSWORD" default:"postgres"`
	DBName            string `envconfig:"DB_NAME" default:"bookings"`
	DBSSLMode         string `envconfig:"DB_SSLMODE" default:"disable"`
	MigrationsDirPath string `envconfig:"MIGRATIONS_DIR" default:"booking-service/internal/repository/migrations"`

	// Redis availability cache, disabled when empty
	RedisAddr     string        `envconfig:"REDIS_ADDR"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	CacheTTL      time.Duration `envconfig:"CACHE_TTL" default:"30s"`

	// Kafka, disabled when empty
	KafkaBrokers       []string      `envconfig:"KAFKA_BROKERS"`
	ReservationTopic   string        `envconfig:"KAFKA_RESERVATION_TOPIC" default:"reservation-events"`
	PaymentTopic       string        `envconfig:"KAFKA_PAYMENT_TOPIC" default:"payment-events"`
	PaymentGroupID     string        `envconfig:"KAFKA_PAYMENT_GROUP_ID" default:"booking-service"`
	OutboxPollInterval time.Duration `envconfig:"OUTBOX_POLL_INTERVAL" default:"1s"`

	// RabbitMQ notifications, logged only when empty
	RabbitURL      string `envconfig:"RABBITMQ_URL"`
	RabbitExchange string `envconfig:"RABBITMQ_EXCHANGE" default:"booking.notifications"`

	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`

	BookingMaxAttempts int           `envconfig:"BOOKING_MAX_ATTEMPTS" default:"3"`
	BookingRetryDelay  time.Duration `envconfig:"BOOKING_RETRY_DELAY" default:"10ms"`

	// Pending sweep, disabled when PendingTTL is zero
	PendingTTL    time.Duration `envconfig:"PENDING_TTL" default:"0"`
	SweepInterval time.Duration `envconfig:"SWEEP_INTERVAL" default:"1m"`

	// OTLP/HTTP collector, tracing and log export disabled when empty
	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure bool   `envconfig:"OTEL_EXPORTER_OTLP_INSECURE" default:"true"`
}

func Load() (Config, error) {
	var c Config
	err := envconfig.Process("", &c)
	return c, err
}

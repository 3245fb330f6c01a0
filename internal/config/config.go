package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds every process-level setting, loaded from the environment.
type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	ServiceName string `envconfig:"SERVICE_NAME" default:"bazar-backend"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseUser     string `envconfig:"DATABASE_USER" default:"bazar"`
	DatabasePassword string `envconfig:"DATABASE_PASSWORD" default:"bazar_pass"`
	DatabaseHost     string `envconfig:"DATABASE_HOST" default:"localhost"`
	DatabasePort     string `envconfig:"DATABASE_PORT" default:"5432"`
	DatabaseName     string `envconfig:"DATABASE_NAME" default:"bazar_db"`

	RedisAddr    string   `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	KafkaBrokers []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"order-events"`

	JWTSecret string `envconfig:"JWT_SECRET" default:"change-me-in-prod"`

	GatewayBaseURL   string `envconfig:"GATEWAY_BASE_URL" default:"https://sandbox.sslcommerz.com"`
	GatewayStoreID   string `envconfig:"GATEWAY_STORE_ID" default:"testbox"`
	GatewayStorePass string `envconfig:"GATEWAY_STORE_PASS" default:"qwerty"`

	// PublicBaseURL is where the gateway posts its callbacks;
	// FrontendBaseURL is where customers get redirected afterwards.
	PublicBaseURL   string `envconfig:"PUBLIC_BASE_URL" default:"http://localhost:8080"`
	FrontendBaseURL string `envconfig:"FRONTEND_BASE_URL" default:"http://localhost:3000"`

	// PendingOrderTTL bounds how long an unpaid order may hold stock before
	// the sweeper releases it.
	PendingOrderTTLMinutes int `envconfig:"PENDING_ORDER_TTL_MINUTES" default:"30"`
	SweepIntervalMinutes   int `envconfig:"SWEEP_INTERVAL_MINUTES" default:"5"`

	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT" default:"localhost:4318"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	return &cfg, nil
}

// DatabaseDSN assembles the Postgres connection string.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable&pool_max_conns=25&pool_min_conns=5",
		c.DatabaseUser, c.DatabasePassword, c.DatabaseHost, c.DatabasePort, c.DatabaseName,
	)
}

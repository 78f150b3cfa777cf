package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// Logging
	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// HTTP Server
	HTTPPort            string        `env:"HTTP_PORT"             envDefault:"8080"`
	HTTPReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT"     envDefault:"30s"`
	HTTPWriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT"    envDefault:"30s"`
	HTTPIdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT"     envDefault:"60s"`
	HTTPShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	MaxBatchBytes       int64         `env:"MAX_BATCH_BYTES"       envDefault:"10485760"`
	RateLimitRPS        float64       `env:"RATE_LIMIT_RPS"        envDefault:"50"`
	RateLimitBurst      int           `env:"RATE_LIMIT_BURST"      envDefault:"100"`

	// Redis (optional - leave empty to disable idempotent batch replay)
	RedisURL       string        `env:"REDIS_URL"       envDefault:""`
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`

	// Database (optional - leave empty to disable snapshot export)
	DatabaseURL      string        `env:"DATABASE_URL"       envDefault:""`
	DatabaseMaxConns int           `env:"DATABASE_MAX_CONNS" envDefault:"5"`
	DatabaseMinConns int           `env:"DATABASE_MIN_CONNS" envDefault:"0"`
	DatabaseTimeout  time.Duration `env:"DATABASE_TIMEOUT"   envDefault:"30s"`

	// Kafka
	KafkaBrokers      []string      `env:"KAFKA_BROKERS"       envSeparator:","`
	KafkaRecordsTopic string        `env:"KAFKA_RECORDS_TOPIC" envDefault:"transactions"`
	KafkaEventsTopic  string        `env:"KAFKA_EVENTS_TOPIC"  envDefault:""`
	KafkaGroupID      string        `env:"KAFKA_GROUP_ID"      envDefault:""`
	KafkaIdleTimeout  time.Duration `env:"KAFKA_IDLE_TIMEOUT"  envDefault:"5s"`

	// Authentication (optional - leave empty to disable)
	JWTSecret     string        `env:"JWT_SECRET"     envDefault:""`
	JWTExpiration time.Duration `env:"JWT_EXPIRATION" envDefault:"24h"`
	AuthEnabled   bool          `env:"AUTH_ENABLED"   envDefault:"false"`
}

// Load loads configuration from environment variables. Variables found in a
// .env file in the working directory are added first; real environment
// variables take precedence over the file.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read env file: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if cfg.AuthEnabled && cfg.JWTSecret == "" {
		return nil, errors.New("AUTH_ENABLED requires JWT_SECRET")
	}

	return cfg, nil
}

// Package config provides configuration structures and validation for the
// application. It handles environment-based configuration for all major
// components: HTTP server, database, message broker, the compliance
// gateway and card encryption.
package config

import (
	"errors"
	"strings"
	"time"
)

// Config holds the complete application configuration. Each field
// represents a major subsystem's configuration and is validated during
// application startup.
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Auth        AuthConfig
	Postgres    PostgresConfig
	Kafka       KafkaConfig
	Compliance  ComplianceConfig
	Card        CardConfig
	Reconciler  ReconcilerConfig
}

// ApplicationConfig contains general application configuration
type ApplicationConfig struct {
	Env  string
	Name string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port            int           // Port to listen on
	ShutdownTimeout time.Duration // Grace period for server shutdown
	ReadTimeout     time.Duration // Maximum duration for reading entire request
	WriteTimeout    time.Duration // Maximum duration for writing response
	IdleTimeout     time.Duration // Maximum duration to wait for next request
}

// AuthConfig contains session token verification settings
type AuthConfig struct {
	JWTSecret string
}

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string        // Database connection string
	MaxConns        int32         // Maximum number of open connections
	MinConns        int32         // Maximum number of idle connections
	ConnMaxLifetime time.Duration // Maximum lifetime of a connection
	ConnMaxIdleTime time.Duration // Maximum idle time of a connection
	MigrationsPath  string        // Path to migration files
}

// KafkaConfig contains settings for the settled-transaction event feed
type KafkaConfig struct {
	Brokers           string
	SettlementTopic   string
	NumPartitions     int
	ReplicationFactor int
	WriteTimeout      time.Duration
}

// ComplianceConfig contains settings for the external settlement authority
type ComplianceConfig struct {
	BaseURL         string
	Client          string // Credential used to obtain auth codes
	Secret          string
	RequestTimeout  time.Duration
	PollingMaxRetry int           // Extra settlement-status fetches after the first
	PollingDelay    time.Duration // Wait between settlement-status fetches
}

// CardConfig contains card encryption settings
type CardConfig struct {
	SecretKey string
}

// ReconcilerConfig contains reconciliation fan-out settings
type ReconcilerConfig struct {
	PoolSize int // Maximum concurrent per-transaction reconciliations
}

// validate performs comprehensive validation of all configuration values,
// ensuring they meet minimum requirements and logical constraints
func (c *Config) validate() error {
	var validationErrors []string

	// Validate Server config
	if c.Server.Port <= 0 {
		validationErrors = append(validationErrors, "SERVER_PORT must be greater than 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	}
	if c.Server.ReadTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_READ_TIMEOUT must be greater than 0")
	}
	if c.Server.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_WRITE_TIMEOUT must be greater than 0")
	}
	if c.Server.IdleTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_IDLE_TIMEOUT must be greater than 0")
	}

	if c.Auth.JWTSecret == "" {
		validationErrors = append(validationErrors, "AUTH_JWT_SECRET is required")
	}

	// Validate PostgreSQL config
	if c.Postgres.URL == "" {
		validationErrors = append(validationErrors, "POSTGRES_URL is required")
	}
	if c.Postgres.MaxConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONNS must be greater than 0")
	}
	if c.Postgres.MinConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MIN_CONNS must be greater than 0")
	}
	if c.Postgres.ConnMaxLifetime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_LIFETIME must be greater than 0")
	}
	if c.Postgres.ConnMaxIdleTime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate Kafka config
	if len(c.Kafka.Brokers) == 0 {
		validationErrors = append(validationErrors, "KAFKA_BROKERS is required")
	}
	if c.Kafka.SettlementTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_SETTLEMENT_TOPIC is required")
	}
	if c.Kafka.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "KAFKA_WRITE_TIMEOUT must be greater than 0")
	}

	// Validate Compliance config
	if c.Compliance.BaseURL == "" {
		validationErrors = append(validationErrors, "COMPLIANCE_BASE_URL is required")
	}
	if c.Compliance.Client == "" {
		validationErrors = append(validationErrors, "COMPLIANCE_CLIENT is required")
	}
	if c.Compliance.Secret == "" {
		validationErrors = append(validationErrors, "COMPLIANCE_SECRET is required")
	}
	if c.Compliance.RequestTimeout <= 0 {
		validationErrors = append(validationErrors, "COMPLIANCE_REQUEST_TIMEOUT must be greater than 0")
	}
	if c.Compliance.PollingMaxRetry < 0 {
		validationErrors = append(validationErrors, "COMPLIANCE_POLLING_MAX_RETRY must not be negative")
	}
	if c.Compliance.PollingDelay <= 0 {
		validationErrors = append(validationErrors, "COMPLIANCE_POLLING_DELAY must be greater than 0")
	}

	if c.Card.SecretKey == "" {
		validationErrors = append(validationErrors, "CARD_SECRET_KEY is required")
	}

	if c.Reconciler.PoolSize <= 0 {
		validationErrors = append(validationErrors, "RECONCILER_POOL_SIZE must be greater than 0")
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}

package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Environment represents different deployment environments
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvProduction  Environment = "production"
)

// Config holds the configuration for the memspace service.
// Environment variables are parsed from the MEMSPACE_ prefix.
type Config struct {
	Environment Environment `envconfig:"ENVIRONMENT" default:"development"`

	// HTTP Configuration
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`

	// Postgres Configuration (pgvector extension required)
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`

	// Embedding Configuration. Dimensions must match the vector column of
	// previously stored memories; a mismatch is a fatal wiring error.
	EmbedProvider       string `envconfig:"EMBED_PROVIDER" default:"ollama"`
	EmbedModel          string `envconfig:"EMBED_MODEL" default:"nomic-embed-text"`
	EmbedDimensions     int    `envconfig:"EMBED_DIMENSIONS" default:"768"`
	EmbedTimeoutSeconds int    `envconfig:"EMBED_TIMEOUT_SECONDS" default:"15"`

	// Access log worker
	AccessLogBatchSize       int `envconfig:"ACCESS_LOG_BATCH_SIZE" default:"100"`
	AccessLogIntervalSeconds int `envconfig:"ACCESS_LOG_INTERVAL_SECONDS" default:"2"`
	AccessLogMaxAttempts     int `envconfig:"ACCESS_LOG_MAX_ATTEMPTS" default:"8"`

	// Invites
	InviteTTLHours int `envconfig:"INVITE_TTL_HOURS" default:"168"`
}

// ResolveDefaults validates derived settings.
func (c *Config) ResolveDefaults() error {
	allowedEmbed := map[string]bool{"ollama": true}
	if !allowedEmbed[c.EmbedProvider] {
		return fmt.Errorf("unsupported EMBED_PROVIDER: %s", c.EmbedProvider)
	}
	if c.EmbedDimensions <= 0 {
		return fmt.Errorf("EMBED_DIMENSIONS must be positive, got %d", c.EmbedDimensions)
	}
	return nil
}

// New creates a new Config by parsing environment variables.
// Example: MEMSPACE_POSTGRES_DSN, MEMSPACE_HTTP_PORT.
func New() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("MEMSPACE", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// NewForTesting creates a config specifically for testing.
func NewForTesting() *Config {
	return &Config{
		Environment:              EnvTesting,
		HTTPPort:                 8080,
		EmbedProvider:            "ollama",
		EmbedModel:               "nomic-embed-text",
		EmbedDimensions:          8,
		EmbedTimeoutSeconds:      5,
		AccessLogBatchSize:       10,
		AccessLogIntervalSeconds: 1,
		AccessLogMaxAttempts:     3,
	}
}

// IsTesting returns true if the environment is set to testing
func (c *Config) IsTesting() bool { return c.Environment == EnvTesting }

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool { return c.Environment == EnvProduction }

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string { return fmt.Sprintf(":%d", c.HTTPPort) }

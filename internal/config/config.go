// Package config loads connector settings from the environment.
package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/rezonia/peppol-connector/internal/network"
	"github.com/rezonia/peppol-connector/internal/registry"
)

// Validation profiles
const (
	ProfilePeppol    = "peppol"
	ProfileXRechnung = "xrechnung"
)

// Registry backends
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// Config holds all configuration for the connector
type Config struct {
	// Server settings
	Address string
	Debug   bool

	// Logging
	LogLevel  string
	LogFormat string

	// Validation profile applied by the lifecycle manager
	Profile string

	// Registry settings
	Store      string
	SQLitePath string
	RedisURL   string

	// Status fan-out; empty URL disables NATS
	NATSURL     string
	NATSSubject string

	// Collaborator settings
	CallTimeout time.Duration
	SMLZone     string
}

// Load reads configuration from the environment, after loading a .env file
// when one exists
func Load() (*Config, error) {
	godotenv.Load()

	cfg := &Config{
		Address:     getEnv("PEPPOL_ADDRESS", ":8080"),
		LogLevel:    getEnv("PEPPOL_LOG_LEVEL", "info"),
		LogFormat:   getEnv("PEPPOL_LOG_FORMAT", "text"),
		Profile:     strings.ToLower(getEnv("PEPPOL_PROFILE", ProfilePeppol)),
		Store:       strings.ToLower(getEnv("PEPPOL_STORE", StoreMemory)),
		SQLitePath:  getEnv("PEPPOL_SQLITE_PATH", "peppol.db"),
		RedisURL:    os.Getenv("PEPPOL_REDIS_URL"),
		NATSURL:     os.Getenv("PEPPOL_NATS_URL"),
		NATSSubject: getEnv("PEPPOL_NATS_SUBJECT", "peppol.documents.status."),
		SMLZone:     getEnv("PEPPOL_SML_ZONE", network.SMLZoneProduction),
	}

	debug, err := strconv.ParseBool(getEnv("PEPPOL_DEBUG", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid PEPPOL_DEBUG: %w", err)
	}
	cfg.Debug = debug

	timeout, err := time.ParseDuration(getEnv("PEPPOL_CALL_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid PEPPOL_CALL_TIMEOUT: %w", err)
	}
	cfg.CallTimeout = timeout

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerated settings and backend requirements
func (c *Config) Validate() error {
	switch c.Profile {
	case ProfilePeppol, ProfileXRechnung:
	default:
		return fmt.Errorf("unknown profile %q (want %s or %s)", c.Profile, ProfilePeppol, ProfileXRechnung)
	}

	switch c.Store {
	case StoreMemory:
	case StoreSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("PEPPOL_SQLITE_PATH is required for the sqlite store")
		}
	case StoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("PEPPOL_REDIS_URL is required for the redis store")
		}
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}

	if c.CallTimeout < 0 {
		return fmt.Errorf("call timeout must not be negative")
	}
	return nil
}

// OpenStore opens the configured registry backend
func (c *Config) OpenStore(ctx context.Context) (registry.Store, error) {
	switch c.Store {
	case StoreSQLite:
		return registry.OpenSQLite(ctx, c.SQLitePath)
	case StoreRedis:
		return registry.NewRedisStore(ctx, c.RedisURL)
	case StoreMemory, "":
		return registry.NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown store %q", c.Store)
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Package config loads server configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Storage backend selectors.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Config holds runtime settings for the payment-gated registration server.
type Config struct {
	// Port is the TCP port the HTTP server listens on.
	Port int

	// Storage selects the account store backend: "memory" or "postgres".
	Storage string

	// DatabaseURL is the PostgreSQL DSN. Required when Storage is "postgres".
	DatabaseURL string

	// MercadoPagoAccessToken authenticates calls to the MercadoPago API.
	MercadoPagoAccessToken string

	// FrontendURL is the origin the payer returns to after checkout. It is
	// also the allowed CORS origin.
	FrontendURL string

	// BackendURL is this service's public origin, used for the webhook
	// notification URL. MercadoPago must be able to reach it.
	BackendURL string

	// AdminToken protects the administrative mark-as-paid endpoint. When
	// empty the endpoint is not registered at all.
	AdminToken string

	// LogLevel is the zerolog level name ("debug", "info", ...).
	LogLevel string
}

// Load reads configuration from the environment, applying defaults for
// optional settings.
func Load() (*Config, error) {
	cfg := &Config{
		Port:                   3000,
		Storage:                StorageMemory,
		DatabaseURL:            os.Getenv("DATABASE_URL"),
		MercadoPagoAccessToken: os.Getenv("MERCADOPAGO_ACCESS_TOKEN"),
		FrontendURL:            getenvDefault("FRONTEND_URL", "http://localhost:5500"),
		BackendURL:             getenvDefault("BACKEND_URL", "http://localhost:3000"),
		AdminToken:             os.Getenv("ADMIN_API_TOKEN"),
		LogLevel:               getenvDefault("LOG_LEVEL", "info"),
	}

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Port = port
	}

	if v := os.Getenv("STORAGE_BACKEND"); v != "" {
		cfg.Storage = v
	} else if cfg.DatabaseURL != "" {
		cfg.Storage = StoragePostgres
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is complete and consistent.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	switch c.Storage {
	case StorageMemory:
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for postgres storage")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage)
	}
	if c.MercadoPagoAccessToken == "" {
		return fmt.Errorf("MERCADOPAGO_ACCESS_TOKEN is required")
	}
	if c.FrontendURL == "" {
		return fmt.Errorf("FRONTEND_URL is required")
	}
	if c.BackendURL == "" {
		return fmt.Errorf("BACKEND_URL is required")
	}
	return nil
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

/*
config.go - Environment-backed configuration

PURPOSE:
  Loads runtime configuration from a .env file (if present) and the
  process environment. Flags in cmd/server take precedence over the
  environment.

VARIABLES:
  PORT        HTTP server port            (default: 8080)
  DB_PATH     SQLite database path        (default: booking.db)
  JWT_SECRET  HMAC secret for API tokens  (default: dev secret, Dev only)
  APP_ENV     "development" | "production" (default: development)

SEE ALSO:
  - cmd/server/main.go: Startup wiring
*/
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the resolved runtime configuration.
type Config struct {
	Port      int
	DBPath    string
	JWTSecret string
	Dev       bool
}

// Load reads .env (when present) and the environment.
func Load() (*Config, error) {
	// Missing .env is fine; the environment alone is enough.
	_ = godotenv.Load()

	cfg := &Config{
		Port:      8080,
		DBPath:    "booking.db",
		JWTSecret: "dev-secret-change-me",
		Dev:       true,
	}

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Port = port
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if os.Getenv("APP_ENV") == "production" {
		cfg.Dev = false
	}

	if !cfg.Dev && cfg.JWTSecret == "dev-secret-change-me" {
		return nil, fmt.Errorf("JWT_SECRET must be set in production")
	}
	return cfg, nil
}

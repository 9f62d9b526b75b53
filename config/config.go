/*
config.go - Application configuration

PURPOSE:
  Loads server configuration from, in order of precedence:
  1. Command-line flags
  2. Environment variables
  3. A .env file in the working directory, if present
  4. Built-in defaults

SETTINGS:
  -addr    / LISTEN_ADDR       HTTP listen address (default :8080)
  -db      / DATABASE_PATH     SQLite database path (default rewards.db,
                               use ":memory:" for in-memory)
  -jwt-secret / JWT_SECRET     HMAC secret for bearer tokens. Empty
                               disables auth (development only).
  QR_CANONICAL_HOST            Host accepted on full product URLs
  QR_SHORT_HOST                Host accepted on short-link URLs
  LEVEL_THRESHOLDS             Comma-separated ascending point
                               thresholds, first must be 0

SEE ALSO:
  - cmd/server/main.go: Consumes Config at startup
  - ledger/levels.go: Threshold validation rules
*/
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config contains application configuration.
type Config struct {
	ListenAddr      string
	DatabasePath    string
	JWTSecret       string
	CanonicalHost   string
	ShortHost       string
	LevelThresholds []int64
}

// Load builds the configuration from flags, environment and .env.
func Load() (*Config, error) {
	// A missing .env is fine; env vars and flags still apply.
	_ = godotenv.Load()

	cfg := &Config{
		CanonicalHost:   "rewards.fieldloop.com",
		ShortHost:       "fldp.io",
		LevelThresholds: nil, // nil means the built-in schedule
	}

	flag.StringVar(&cfg.ListenAddr, "addr", "", "HTTP listen address")
	flag.StringVar(&cfg.DatabasePath, "db", "", "SQLite database path")
	flag.StringVar(&cfg.JWTSecret, "jwt-secret", "", "HMAC secret for bearer tokens")
	flag.Parse()

	// Flags win over env vars; only fill what the flags left empty.
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = os.Getenv("LISTEN_ADDR")
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = os.Getenv("DATABASE_PATH")
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = os.Getenv("JWT_SECRET")
	}
	if host := os.Getenv("QR_CANONICAL_HOST"); host != "" {
		cfg.CanonicalHost = host
	}
	if host := os.Getenv("QR_SHORT_HOST"); host != "" {
		cfg.ShortHost = host
	}
	if raw := os.Getenv("LEVEL_THRESHOLDS"); raw != "" {
		thresholds, err := parseThresholds(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid LEVEL_THRESHOLDS: %w", err)
		}
		cfg.LevelThresholds = thresholds
	}

	// Defaults
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = "rewards.db"
	}

	return cfg, nil
}

func parseThresholds(raw string) ([]int64, error) {
	parts := strings.Split(raw, ",")
	thresholds := make([]int64, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer", part)
		}
		thresholds = append(thresholds, n)
	}
	return thresholds, nil
}

// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Database
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)

	// Detection settings
	BehaviorWindow     int     // number of recent amounts used for the z-score
	BehaviorZThreshold float64 // z-score above which an amount is anomalous
	GeoMaxKM           float64 // great-circle distance above which travel is implausible

	// Denylists
	BlacklistedIPs []string // static IP denylist, loaded at startup

	// Geo reference
	GeoLocationsFile string // optional JSON file extending the built-in location table

	// Observability
	OTLPEndpoint string // OTLP gRPC endpoint for traces (empty disables tracing)
}

// Defaults
const (
	DefaultPort               = "8080"
	DefaultEnv                = "development"
	DefaultLogLevel           = "info"
	DefaultBehaviorWindow     = 5
	DefaultBehaviorZThreshold = 2.5
	DefaultGeoMaxKM           = 500
)

// DefaultBlacklistedIPs is the shipped IP denylist, used when
// BLACKLISTED_IPS is not set.
var DefaultBlacklistedIPs = []string{
	"203.0.113.5",
	"198.51.100.10",
	"45.33.32.156",
}

// Load reads configuration from environment variables.
// It loads .env file if present (for local development).
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnv("PORT", DefaultPort),
		Env:                getEnv("ENV", DefaultEnv),
		LogLevel:           getEnv("LOG_LEVEL", DefaultLogLevel),
		DatabaseURL:        os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		BehaviorWindow:     int(getEnvInt64("BEHAVIOR_WINDOW", DefaultBehaviorWindow)),
		BehaviorZThreshold: getEnvFloat("BEHAVIOR_Z_THRESHOLD", DefaultBehaviorZThreshold),
		GeoMaxKM:           getEnvFloat("GEO_MAX_KM", DefaultGeoMaxKM),
		BlacklistedIPs:     getEnvList("BLACKLISTED_IPS", DefaultBlacklistedIPs),
		GeoLocationsFile:   os.Getenv("GEO_LOCATIONS_FILE"),
		OTLPEndpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that configuration values are usable.
func (c *Config) Validate() error {
	if c.BehaviorWindow < 2 {
		return fmt.Errorf("BEHAVIOR_WINDOW must be at least 2, got %d", c.BehaviorWindow)
	}
	if c.BehaviorZThreshold <= 0 {
		return fmt.Errorf("BEHAVIOR_Z_THRESHOLD must be positive, got %g", c.BehaviorZThreshold)
	}
	if c.GeoMaxKM <= 0 {
		return fmt.Errorf("GEO_MAX_KM must be positive, got %g", c.GeoMaxKM)
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

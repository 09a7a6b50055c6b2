// Package config loads process configuration from the environment once at
// startup. Values are consumed at startup and are otherwise inert, per the
// collaborator contract this service assumes for its environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrConfigMissing is returned by collaborators (credential.Engine.Hash,
// adminauth.Checker.Check) when a process-wide secret they depend on was
// never set. It surfaces as a 500 INTERNAL_ERROR on the first request
// that needs the missing value, rather than at startup, so a
// misconfigured data plane doesn't prevent an otherwise-healthy control
// plane (or vice versa) from serving traffic.
var ErrConfigMissing = errors.New("config: required value missing")

// Config holds all process-wide configuration.
type Config struct {
	DevicesTable          string
	APIKeysTable          string
	ProcessedBatchesTable string
	DeviceReadingsTable   string

	APIKeyPepper string
	AdminToken   string

	CORSAllowedOrigin string

	HTTPAddr       string
	BoltDBPath     string
	ReapInterval   time.Duration
	LogLevel       string
	LogFormat      string
	ReadingTTLSecs int64 // 0 means no TTL on readings
}

// Load reads configuration from the environment, loading a local .env file
// first if one is present (ignored silently otherwise, matching the
// donor's local-development convenience).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DevicesTable:          strings.TrimSpace(os.Getenv("DEVICES_TABLE")),
		APIKeysTable:          strings.TrimSpace(os.Getenv("API_KEYS_TABLE")),
		ProcessedBatchesTable: strings.TrimSpace(os.Getenv("PROCESSED_BATCHES_TABLE")),
		DeviceReadingsTable:   strings.TrimSpace(os.Getenv("DEVICE_READINGS_TABLE")),
		APIKeyPepper:          strings.TrimSpace(os.Getenv("API_KEY_PEPPER")),
		AdminToken:            strings.TrimSpace(os.Getenv("ADMIN_TOKEN")),
		CORSAllowedOrigin:     GetEnv("CORS_ALLOWED_ORIGIN", "*"),
		HTTPAddr:              GetEnv("HTTP_ADDR", ":8080"),
		BoltDBPath:            GetEnv("BOLT_DB_PATH", "./data/gateway.db"),
		LogLevel:              GetEnv("LOG_LEVEL", "info"),
		LogFormat:             GetEnv("LOG_FORMAT", "json"),
	}

	reapInterval, ok := ParseEnvDuration("PROCESSED_BATCH_REAP_INTERVAL")
	if !ok {
		reapInterval = time.Hour
	}
	cfg.ReapInterval = reapInterval

	if ttl, ok := ParseEnvInt("READING_RETENTION_SECONDS"); ok && ttl > 0 {
		cfg.ReadingTTLSecs = int64(ttl)
	}

	return cfg, nil
}

// RequireDataPlane reports which values the Data Plane needs that are
// currently missing. It is a startup diagnostic only: main logs its
// result so an operator sees the gap immediately, but actual enforcement
// happens per request, in credential.Engine.Hash, which returns
// ErrConfigMissing the moment a device request needs the pepper and
// finds it unset.
func (c *Config) RequireDataPlane() error {
	missing := []string{}
	if c.DevicesTable == "" {
		missing = append(missing, "DEVICES_TABLE")
	}
	if c.APIKeysTable == "" {
		missing = append(missing, "API_KEYS_TABLE")
	}
	if c.ProcessedBatchesTable == "" {
		missing = append(missing, "PROCESSED_BATCHES_TABLE")
	}
	if c.DeviceReadingsTable == "" {
		missing = append(missing, "DEVICE_READINGS_TABLE")
	}
	if c.APIKeyPepper == "" {
		missing = append(missing, "API_KEY_PEPPER")
	}
	return missingErr(missing)
}

// RequireControlPlane reports which values the Control Plane needs that
// are currently missing. Like RequireDataPlane, this is a startup
// diagnostic; adminauth.Checker.Check enforces the admin token's
// presence on every admin request.
func (c *Config) RequireControlPlane() error {
	missing := []string{}
	if c.DevicesTable == "" {
		missing = append(missing, "DEVICES_TABLE")
	}
	if c.APIKeysTable == "" {
		missing = append(missing, "API_KEYS_TABLE")
	}
	if c.DeviceReadingsTable == "" {
		missing = append(missing, "DEVICE_READINGS_TABLE")
	}
	if c.AdminToken == "" {
		missing = append(missing, "ADMIN_TOKEN")
	}
	return missingErr(missing)
}

func missingErr(missing []string) error {
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
}

// GetEnv retrieves an environment variable with a default.
func GetEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// ParseEnvInt parses an integer environment variable.
func ParseEnvInt(key string) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return value, true
}

// ParseEnvDuration parses a duration environment variable.
func ParseEnvDuration(key string) (time.Duration, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, false
	}
	return parsed, true
}

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultDBPath     = "./dev.db"
	defaultPort       = "8080"
	defaultEnv        = "development"
	defaultLogLevel   = "info"
	defaultTimezone   = "America/Bogota"
	defaultSessionTTL = 12 * time.Hour
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	Env           string
	Port          string
	DBPath        string
	LogLevel      string
	Timezone      string
	AdminEmail    string
	AdminPassword string
	SessionSecret string
	SessionTTL    time.Duration
	Wompi         WompiConfig
}

// WompiConfig holds the payment gateway settings.
type WompiConfig struct {
	PublicKey    string
	EventsSecret string
	RedirectURL  string
}

// Load reads environment variables and returns a populated Config.
func Load() Config {
	return LoadFrom(".env")
}

// LoadFrom loads dotenvPath (when present) without overriding variables that are
// already set, then reads the environment.
func LoadFrom(dotenvPath string) Config {
	if err := godotenv.Load(dotenvPath); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load dotenv file", "path", dotenvPath, "error", err)
	}

	cfg := Config{
		Env:           getenv("APP_ENV", defaultEnv),
		Port:          getenv("PORT", defaultPort),
		DBPath:        getenv("DB_PATH", defaultDBPath),
		LogLevel:      getenv("LOG_LEVEL", defaultLogLevel),
		Timezone:      getenv("TIMEZONE", defaultTimezone),
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		SessionSecret: os.Getenv("SESSION_SECRET"),
		SessionTTL:    defaultSessionTTL,
		Wompi: WompiConfig{
			PublicKey:    os.Getenv("WOMPI_PUBLIC_KEY"),
			EventsSecret: os.Getenv("WOMPI_EVENTS_SECRET"),
			RedirectURL:  getenv("WOMPI_REDIRECT_URL", "http://localhost:"+defaultPort+"/pagos/confirmacion"),
		},
	}

	if raw := os.Getenv("SESSION_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil || ttl <= 0 {
			slog.Warn("invalid SESSION_TTL, using default", "value", raw, "default", defaultSessionTTL)
		} else {
			cfg.SessionTTL = ttl
		}
	}

	if cfg.AdminEmail == "" {
		slog.Warn("ADMIN_EMAIL is not set")
	}
	if cfg.AdminPassword == "" {
		slog.Warn("ADMIN_PASSWORD is not set")
	}
	if cfg.SessionSecret == "" {
		slog.Warn("SESSION_SECRET is not set")
	}
	if cfg.Wompi.EventsSecret == "" {
		slog.Warn("WOMPI_EVENTS_SECRET is not set, webhook events will be rejected outside development")
	}

	return cfg
}

// ErrMissingSecret is returned by Validate when a required secret is unset.
var ErrMissingSecret = errors.New("required secret is not set")

// Validate reports configuration the server must not start with. Outside
// development the session and webhook secrets are mandatory.
func (c Config) Validate() error {
	if c.IsDev() {
		return nil
	}
	var missing []error
	if c.SessionSecret == "" {
		missing = append(missing, fmt.Errorf("SESSION_SECRET: %w", ErrMissingSecret))
	}
	if c.Wompi.EventsSecret == "" {
		missing = append(missing, fmt.Errorf("WOMPI_EVENTS_SECRET: %w", ErrMissingSecret))
	}
	return errors.Join(missing...)
}

// IsDev reports whether the app runs in the development environment.
func (c Config) IsDev() bool {
	return c.Env == defaultEnv
}

// Location resolves the configured timezone, falling back to UTC.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		slog.Warn("unknown timezone, using UTC", "timezone", c.Timezone, "error", err)
		return time.UTC
	}
	return loc
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

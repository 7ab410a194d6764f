// Package config loads service configuration from the environment once at
// startup. Missing signing secrets or the database URL abort startup: a
// service that cannot verify tokens must not come up half-working.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the users-service configuration. Loaded once, immutable.
type Config struct {
	Env  string
	Port string

	DatabaseURL string

	// Token signing. Access and refresh secrets must differ so that a
	// compromise of one cannot forge the other kind.
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration

	BcryptCost  int
	MaxSessions int

	// Rate limiting.
	PublicRequestsPerMin int
	LoginMaxAttempts     int
	LoginWindow          time.Duration

	// VerboseErrors includes internal error detail in 500 responses.
	// Forced off in production.
	VerboseErrors bool
}

// Load reads the users-service configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Env:  getString("APP_ENV", "development"),
		Port: getString("PORT", "3010"),

		DatabaseURL:   os.Getenv("DATABASE_URL"),
		AccessSecret:  os.Getenv("JWT_SECRET"),
		RefreshSecret: os.Getenv("JWT_REFRESH_SECRET"),

		AccessTTL:  getDuration("JWT_EXPIRES_IN", 24*time.Hour),
		RefreshTTL: getDuration("JWT_REFRESH_EXPIRES_IN", 7*24*time.Hour),

		BcryptCost:  getInt("BCRYPT_ROUNDS", 10),
		MaxSessions: getInt("MAX_SESSIONS", 3),

		PublicRequestsPerMin: getInt("RATE_LIMIT_REQUESTS", 100),
		LoginMaxAttempts:     getInt("LOGIN_MAX_ATTEMPTS", 5),
		LoginWindow:          getDuration("LOGIN_WINDOW", 15*time.Minute),
	}

	var missing []string
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if cfg.AccessSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if cfg.RefreshSecret == "" {
		missing = append(missing, "JWT_REFRESH_SECRET")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, fmt.Errorf("JWT_SECRET and JWT_REFRESH_SECRET must differ")
	}

	cfg.VerboseErrors = os.Getenv("VERBOSE_ERRORS") == "1" && !cfg.Production()

	return cfg, nil
}

// Production reports whether the service runs in production mode.
func (c *Config) Production() bool {
	return c.Env == "production"
}

// GatewayConfig holds the API gateway configuration.
type GatewayConfig struct {
	Port                 string
	UsersServiceURL      string
	GamificationURL      string
	PublicRequestsPerMin int
}

// LoadGateway reads the gateway configuration from environment variables.
func LoadGateway() (*GatewayConfig, error) {
	cfg := &GatewayConfig{
		Port:                 getString("GATEWAY_PORT", "3000"),
		UsersServiceURL:      os.Getenv("USERS_SERVICE_URL"),
		GamificationURL:      os.Getenv("GAMIFICATION_SERVICE_URL"),
		PublicRequestsPerMin: getInt("RATE_LIMIT_REQUESTS", 100),
	}
	if cfg.UsersServiceURL == "" {
		return nil, fmt.Errorf("required environment variables are not set: USERS_SERVICE_URL")
	}
	return cfg, nil
}

func getString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

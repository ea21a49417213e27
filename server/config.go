package server

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// Config holds the runtime configuration for the application.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// ProviderBaseURL and ProviderAPIKey locate the hosted backend.
	ProviderBaseURL string
	ProviderAPIKey  string

	// RedisURL enables the Redis rate-limit store when non-empty;
	// otherwise the bounded in-memory store is used.
	RedisURL      string
	RedisPassword string

	// RateLimitCapacity bounds the in-memory rate-limit store.
	RateLimitCapacity int

	// SecureCookies marks the session and CSRF cookies Secure.
	// Disable only for local development over plain HTTP.
	SecureCookies bool

	// SessionCookieName and SessionTTL govern the session cookie set on
	// sign-in. The token inside is provider-issued and opaque.
	SessionCookieName string
	SessionTTL        time.Duration

	// CSRFStrict enables the session-bound CSRF validation mode.
	CSRFStrict bool
}

// ConfigFromEnv builds a Config from environment variables, applying
// defaults for anything unset.
func ConfigFromEnv() Config {
	return Config{
		Addr:              envOr("SIMTRACK_ADDR", ":8080"),
		ProviderBaseURL:   os.Getenv("SIMTRACK_PROVIDER_URL"),
		ProviderAPIKey:    os.Getenv("SIMTRACK_PROVIDER_API_KEY"),
		RedisURL:          os.Getenv("SIMTRACK_REDIS_URL"),
		RedisPassword:     os.Getenv("SIMTRACK_REDIS_PASSWORD"),
		RateLimitCapacity: envIntOr("SIMTRACK_RATELIMIT_CAPACITY", 0),
		SecureCookies:     envBoolOr("SIMTRACK_SECURE_COOKIES", true),
		SessionCookieName: envOr("SIMTRACK_SESSION_COOKIE", "session"),
		SessionTTL:        envDurationOr("SIMTRACK_SESSION_TTL", 24*time.Hour),
		CSRFStrict:        envBoolOr("SIMTRACK_CSRF_STRICT", false),
	}
}

// Validate reports configuration errors that prevent startup.
func (c Config) Validate() error {
	if c.Addr == "" {
		return errors.New("listen address is required")
	}
	if c.ProviderBaseURL == "" {
		return errors.New("provider base URL is required")
	}
	if c.ProviderAPIKey == "" {
		return errors.New("provider API key is required")
	}
	if c.SessionTTL <= 0 {
		return errors.New("session TTL must be positive")
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envBoolOr(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envDurationOr(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

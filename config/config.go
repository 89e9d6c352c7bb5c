package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string
	HTTPAddr    string

	ResendAPIKey string
	EmailFrom    string
	AppBaseURL   string

	TokenTTL     time.Duration
	TokenMaxUses int

	RateLimitMax    int
	RateLimitWindow time.Duration

	JanitorInterval  time.Duration
	RateLogRetention time.Duration
}

// Load reads .env if present, then the environment, falling back to the
// documented defaults for anything unset.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		HTTPAddr:    envString("HTTP_ADDR", ":8080"),

		ResendAPIKey: os.Getenv("RESEND_API_KEY"),
		EmailFrom:    os.Getenv("EMAIL_FROM"),
		AppBaseURL:   os.Getenv("APP_BASE_URL"),

		TokenTTL:     envDuration("TOKEN_TTL", 30*time.Minute),
		TokenMaxUses: envInt("TOKEN_MAX_USES", 3),

		RateLimitMax:    envInt("RATE_LIMIT_MAX", 3),
		RateLimitWindow: envDuration("RATE_LIMIT_WINDOW", time.Hour),

		JanitorInterval:  envDuration("JANITOR_INTERVAL", time.Hour),
		RateLogRetention: envDuration("RATE_LOG_RETENTION", 48*time.Hour),
	}
}

func envString(key string, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

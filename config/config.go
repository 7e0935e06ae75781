package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type Config struct {
	Port            string
	UpstreamURL     string
	UpstreamTimeout time.Duration
	CartBackend     string
	RedisURL        string
	DatabaseURL     string
	CartTTL         time.Duration
	CartIdleEvict   time.Duration
	FrontendURL     string
	AdminURL        string
	LogLevel        string
	NotifyEmail     string
	SMTP            SMTPConfig
}

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

func LoadEnv() error {
	// A missing .env is normal in production, where the environment is set directly.
	_ = godotenv.Load()
	return nil
}

// ValidateEnv checks that critical environment variables are set.
// Returns an error if any critical variable is missing.
func ValidateEnv(log logrus.FieldLogger) error {
	var missing []string

	if os.Getenv("JWT_SECRET") == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if os.Getenv("UPSTREAM_API_URL") == "" {
		missing = append(missing, "UPSTREAM_API_URL")
	}

	backend := GetEnv("CART_BACKEND", BackendMemory)
	switch backend {
	case BackendMemory:
	case BackendRedis:
		if os.Getenv("REDIS_URL") == "" {
			missing = append(missing, "REDIS_URL")
		}
	case BackendPostgres:
		if os.Getenv("DATABASE_URL") == "" {
			missing = append(missing, "DATABASE_URL")
		}
	default:
		return fmt.Errorf("CART_BACKEND must be one of memory, redis, postgres; got %q", backend)
	}

	if len(missing) > 0 {
		return fmt.Errorf("critical environment variables not set: %v", missing)
	}

	if backend == BackendMemory {
		log.Warn("CART_BACKEND is memory - carts are lost on restart")
	}
	if os.Getenv("FRONTEND_URL") == "" {
		log.Warn("FRONTEND_URL not set - CORS may not work correctly")
	}
	if os.Getenv("ADMIN_URL") == "" {
		log.Warn("ADMIN_URL not set")
	}
	if os.Getenv("SMTP_HOST") == "" || os.Getenv("SMTP_PORT") == "" || os.Getenv("SMTP_FROM") == "" {
		log.Warn("SMTP_HOST, SMTP_PORT or SMTP_FROM not set - email notifications will not work")
	}
	if os.Getenv("NOTIFY_EMAIL") == "" {
		log.Warn("NOTIFY_EMAIL not set - the workshop will not be told about new appointments")
	}

	return nil
}

// Load reads the typed configuration. Call ValidateEnv first.
func Load() (*Config, error) {
	upstreamTimeout, err := GetDuration("UPSTREAM_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	cartTTL, err := GetDuration("CART_TTL", 7*24*time.Hour)
	if err != nil {
		return nil, err
	}
	idle, err := GetDuration("CART_IDLE_EVICT", 30*time.Minute)
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:            GetEnv("PORT", "8080"),
		UpstreamURL:     strings.TrimRight(os.Getenv("UPSTREAM_API_URL"), "/"),
		UpstreamTimeout: upstreamTimeout,
		CartBackend:     GetEnv("CART_BACKEND", BackendMemory),
		RedisURL:        os.Getenv("REDIS_URL"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		CartTTL:         cartTTL,
		CartIdleEvict:   idle,
		FrontendURL:     GetEnv("FRONTEND_URL", "http://localhost:3000"),
		AdminURL:        GetEnv("ADMIN_URL", "http://localhost:3001"),
		LogLevel:        GetEnv("LOG_LEVEL", "info"),
		NotifyEmail:     os.Getenv("NOTIFY_EMAIL"),
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     os.Getenv("SMTP_PORT"),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     os.Getenv("SMTP_FROM"),
		},
	}, nil
}

func GetEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetDuration parses key as a Go duration such as "30m" or "168h".
func GetDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, value)
	}
	return d, nil
}

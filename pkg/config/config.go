package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration
type Config struct {
	Environment        string
	ServerPort         int
	RedisURL           string
	LogLevel           string
	CORSAllowedOrigins []string

	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Token lifecycle
	JWTSecret       string
	JWTIssuer       string
	JWTAudience     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// Account lockout
	MaxFailedLogins int
	LockoutDuration time.Duration

	// Background maintenance
	LockSweepIntervalMinutes int

	// Rate limiting
	RateLimitPerMinute  int
	LoginLimitPerMinute int

	// Tracing. Empty disables the exporter.
	OTLPEndpoint string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	port, err := strconv.Atoi(getEnv("SERVER_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	accessTTL, err := strconv.Atoi(getEnv("ACCESS_TOKEN_TTL_MINUTES", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid ACCESS_TOKEN_TTL_MINUTES: %w", err)
	}

	refreshTTL, err := strconv.Atoi(getEnv("REFRESH_TOKEN_TTL_HOURS", "168"))
	if err != nil {
		return nil, fmt.Errorf("invalid REFRESH_TOKEN_TTL_HOURS: %w", err)
	}

	maxFailed, err := strconv.Atoi(getEnv("MAX_FAILED_LOGINS", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_FAILED_LOGINS: %w", err)
	}

	lockoutMin, err := strconv.Atoi(getEnv("LOCKOUT_DURATION_MINUTES", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOCKOUT_DURATION_MINUTES: %w", err)
	}

	sweepInterval, err := strconv.Atoi(getEnv("LOCK_SWEEP_INTERVAL_MINUTES", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOCK_SWEEP_INTERVAL_MINUTES: %w", err)
	}

	rateLimit, err := strconv.Atoi(getEnv("RATE_LIMIT_PER_MINUTE", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE: %w", err)
	}

	loginLimit, err := strconv.Atoi(getEnv("LOGIN_LIMIT_PER_MINUTE", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOGIN_LIMIT_PER_MINUTE: %w", err)
	}

	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		ServerPort:  port,
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: parseCSVEnv("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:5173",
			"http://localhost:3000",
		}),
		DBHost:                   getEnv("DB_HOST", "localhost"),
		DBPort:                   dbPort,
		DBUser:                   getEnv("DB_USER", "insurance"),
		DBPassword:               getEnv("DB_PASSWORD", "dev"),
		DBName:                   getEnv("DB_NAME", "insurance"),
		DBSSLMode:                getEnv("DB_SSLMODE", "disable"),
		JWTSecret:                getEnv("JWT_SECRET", ""),
		JWTIssuer:                getEnv("JWT_ISSUER", "insurance-admin"),
		JWTAudience:              getEnv("JWT_AUDIENCE", "insurance-web"),
		AccessTokenTTL:           time.Duration(accessTTL) * time.Minute,
		RefreshTokenTTL:          time.Duration(refreshTTL) * time.Hour,
		MaxFailedLogins:          maxFailed,
		LockoutDuration:          time.Duration(lockoutMin) * time.Minute,
		LockSweepIntervalMinutes: sweepInterval,
		RateLimitPerMinute:       rateLimit,
		LoginLimitPerMinute:      loginLimit,
		OTLPEndpoint:             getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}, nil
}

// IsProduction reports whether the server runs in production mode.
// Debug fields in transition results are only populated when this is false.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseCSVEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}

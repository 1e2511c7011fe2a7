// Package config loads gateway configuration from the environment with
// validation and sensible defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds configuration for the note gateway service.
type Config struct {
	// Service configuration.
	Port             string
	LogLevel         string
	GracefulShutdown time.Duration
	RequestTimeout   time.Duration
	MaxRequestSize   int64

	// CORS configuration.
	CORSEnabled    bool
	AllowedOrigins []string

	// Database configuration.
	DatabaseURL string

	// Rate limiting. The upstream fixed window is shared via Redis when
	// REDIS_ADDR is set; otherwise a process-local window is used.
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	RateLimitRequests int
	RateLimitWindow   time.Duration
	RateLimitLocalTTL time.Duration

	// Response cache.
	CacheMaxEntries int
	CacheTTL        time.Duration

	// LLM backend.
	LLMAPIURL               string
	LLMAPIKey               string
	LLMModel                string
	LLMTimeout              time.Duration
	CircuitBreakerThreshold int
	CircuitBreakerCooldown  time.Duration
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Port:             "8080",
		LogLevel:         "info",
		GracefulShutdown: 30 * time.Second,
		RequestTimeout:   30 * time.Second,
		MaxRequestSize:   1048576, // 1MB

		CORSEnabled:    true,
		AllowedOrigins: []string{},

		RateLimitRequests: 15,
		RateLimitWindow:   5 * time.Minute,
		RateLimitLocalTTL: 5 * time.Minute,

		CacheMaxEntries: 1000,
		CacheTTL:        time.Hour,

		LLMModel:                "llama-3.1-8b-instant",
		LLMTimeout:              60 * time.Second,
		CircuitBreakerThreshold: 5,
		CircuitBreakerCooldown:  30 * time.Second,
	}
}

// Load builds the configuration from environment variables, validating as
// it goes. All validation failures are reported together.
func Load() (*Config, error) {
	cfg := Default()
	var errs []string

	cfg.Port = getEnvOrDefault("PORT", cfg.Port)
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		errs = append(errs, fmt.Sprintf("PORT must be numeric, got %q", cfg.Port))
	}

	cfg.LogLevel = strings.ToLower(getEnvOrDefault("LOG_LEVEL", cfg.LogLevel))
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("LOG_LEVEL must be debug|info|warn|error, got %q", cfg.LogLevel))
	}

	cfg.GracefulShutdown = parseDuration("GRACEFUL_SHUTDOWN", cfg.GracefulShutdown, &errs)
	cfg.RequestTimeout = parseDuration("REQUEST_TIMEOUT", cfg.RequestTimeout, &errs)
	cfg.MaxRequestSize = parseInt64("MAX_REQUEST_SIZE", cfg.MaxRequestSize, &errs)

	cfg.CORSEnabled = parseBool("CORS_ENABLED", cfg.CORSEnabled)
	cfg.AllowedOrigins = parseStringSlice(os.Getenv("ALLOWED_ORIGINS"))

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")

	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.RedisDB = parseInt("REDIS_DB", cfg.RedisDB, &errs)
	cfg.RateLimitRequests = parseInt("RATE_LIMIT_REQUESTS", cfg.RateLimitRequests, &errs)
	cfg.RateLimitWindow = parseDuration("RATE_LIMIT_WINDOW", cfg.RateLimitWindow, &errs)
	cfg.RateLimitLocalTTL = parseDuration("RATE_LIMIT_LOCAL_TTL", cfg.RateLimitLocalTTL, &errs)
	if cfg.RateLimitRequests <= 0 {
		errs = append(errs, "RATE_LIMIT_REQUESTS must be positive")
	}
	if cfg.RateLimitLocalTTL > cfg.RateLimitWindow {
		errs = append(errs, "RATE_LIMIT_LOCAL_TTL must not exceed RATE_LIMIT_WINDOW")
	}

	cfg.CacheMaxEntries = parseInt("CACHE_MAX_ENTRIES", cfg.CacheMaxEntries, &errs)
	cfg.CacheTTL = parseDuration("CACHE_TTL", cfg.CacheTTL, &errs)
	if cfg.CacheMaxEntries <= 0 {
		errs = append(errs, "CACHE_MAX_ENTRIES must be positive")
	}

	cfg.LLMAPIURL = os.Getenv("LLM_API_URL")
	cfg.LLMAPIKey = os.Getenv("LLM_API_KEY")
	cfg.LLMModel = getEnvOrDefault("LLM_MODEL", cfg.LLMModel)
	cfg.LLMTimeout = parseDuration("LLM_TIMEOUT", cfg.LLMTimeout, &errs)
	cfg.CircuitBreakerThreshold = parseInt("CIRCUIT_BREAKER_THRESHOLD", cfg.CircuitBreakerThreshold, &errs)
	cfg.CircuitBreakerCooldown = parseDuration("CIRCUIT_BREAKER_COOLDOWN", cfg.CircuitBreakerCooldown, &errs)
	if cfg.LLMAPIURL == "" {
		errs = append(errs, "LLM_API_URL is required")
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(key string, defaultValue time.Duration, errs *[]string) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s must be a duration (e.g. 5m), got %q", key, value))
		return defaultValue
	}
	return d
}

func parseInt(key string, defaultValue int, errs *[]string) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s must be an integer, got %q", key, value))
		return defaultValue
	}
	return n
}

func parseInt64(key string, defaultValue int64, errs *[]string) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s must be an integer, got %q", key, value))
		return defaultValue
	}
	return n
}

func parseBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

func parseStringSlice(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

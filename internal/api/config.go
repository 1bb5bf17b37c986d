package api

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds the API configuration
type Config struct {
	Host string
	Port int

	APIKey          string
	RequestTimeout  int
	ShutdownTimeout int

	// Per-IP request budget for the v1 group
	RateLimitPerMinute int

	MetricsPath string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	port, err := strconv.Atoi(getEnvOrDefault("PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	requestTimeout, err := strconv.Atoi(getEnvOrDefault("REQUEST_TIMEOUT", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid REQUEST_TIMEOUT: %w", err)
	}

	shutdownTimeout, err := strconv.Atoi(getEnvOrDefault("SHUTDOWN_TIMEOUT", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	rateLimit, err := strconv.Atoi(getEnvOrDefault("RATE_LIMIT_PER_MINUTE", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE: %w", err)
	}

	return &Config{
		Host:               getEnvOrDefault("HOST", "0.0.0.0"),
		Port:               port,
		APIKey:             os.Getenv("API_KEY"),
		RequestTimeout:     requestTimeout,
		ShutdownTimeout:    shutdownTimeout,
		RateLimitPerMinute: rateLimit,
		MetricsPath:        getEnvOrDefault("METRICS_PATH", "/metrics"),
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

package telemetry

import (
	"os"
	"strconv"
)

// Config holds the configuration for telemetry
type Config struct {
	OTLPEndpoint   string
	ServiceName    string
	Environment    string
	ServiceVersion string

	SamplingRate float64
	LogLevel     string

	EnableTracing bool
}

// NewConfigFromEnv creates a new config from environment variables
func NewConfigFromEnv() *Config {
	return &Config{
		OTLPEndpoint:   getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		ServiceName:    getEnv("OTEL_SERVICE_NAME", "emerald-market"),
		Environment:    getEnv("MARKET_ENV", "development"),
		ServiceVersion: getEnv("SERVICE_VERSION", "unknown"),
		SamplingRate:   getEnvFloat("OTEL_SAMPLING_RATE", 1.0),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		EnableTracing:  getEnvBool("ENABLE_TRACING", true),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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

package events

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds event publishing configuration
type Config struct {
	// NATS connection settings
	URL      string
	Name     string
	User     string
	Password string

	// JetStream settings
	StreamName       string
	StreamMaxAge     time.Duration
	StreamMaxBytes   int64
	StreamMaxMsgs    int64
	StreamMaxMsgSize int32
	StreamReplicas   int
}

// NewConfigFromEnv creates a new Config from environment variables
func NewConfigFromEnv() (*Config, error) {
	streamMaxBytes, err := strconv.ParseInt(getEnvOrDefault("NATS_STREAM_MAX_BYTES", "1073741824"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid NATS_STREAM_MAX_BYTES: %w", err)
	}

	streamMaxMsgs, err := strconv.ParseInt(getEnvOrDefault("NATS_STREAM_MAX_MSGS", "1000000"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid NATS_STREAM_MAX_MSGS: %w", err)
	}

	streamMaxMsgSize, err := strconv.ParseInt(getEnvOrDefault("NATS_STREAM_MAX_MSG_SIZE", "1048576"), 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid NATS_STREAM_MAX_MSG_SIZE: %w", err)
	}

	streamReplicas, err := strconv.Atoi(getEnvOrDefault("NATS_STREAM_REPLICAS", "1"))
	if err != nil {
		return nil, fmt.Errorf("invalid NATS_STREAM_REPLICAS: %w", err)
	}

	return &Config{
		URL:              getEnvOrDefault("NATS_URL", "nats://localhost:4222"),
		Name:             getEnvOrDefault("NATS_NAME", "emerald-market"),
		User:             os.Getenv("NATS_USER"),
		Password:         os.Getenv("NATS_PASSWORD"),
		StreamName:       getEnvOrDefault("NATS_STREAM_NAME", "MARKET_LISTINGS"),
		StreamMaxAge:     24 * time.Hour,
		StreamMaxBytes:   streamMaxBytes,
		StreamMaxMsgs:    streamMaxMsgs,
		StreamMaxMsgSize: int32(streamMaxMsgSize),
		StreamReplicas:   streamReplicas,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

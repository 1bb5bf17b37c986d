package cleanup

import (
	"os"
	"strconv"
	"time"
)

// Config controls the expired listing janitor
type Config struct {
	// How often to sweep for expired listings
	Interval time.Duration

	// Rows removed per DELETE statement
	BatchSize int
}

// LoadConfig loads janitor configuration from environment variables
func LoadConfig() Config {
	return Config{
		Interval:  getEnvDuration("CLEANUP_INTERVAL", 5*time.Minute),
		BatchSize: getEnvInt("CLEANUP_BATCH_SIZE", 500),
	}
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}

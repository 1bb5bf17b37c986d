package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewConfigFromEnvDefaults(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "")
	t.Setenv("MARKET_ENV", "")
	t.Setenv("OTEL_SAMPLING_RATE", "")
	t.Setenv("ENABLE_TRACING", "")

	cfg := NewConfigFromEnv()

	assert.Equal(t, "emerald-market", cfg.ServiceName)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 1.0, cfg.SamplingRate)
	assert.True(t, cfg.EnableTracing)
}

func TestNewConfigFromEnvOverrides(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "market-canary")
	t.Setenv("MARKET_ENV", "production")
	t.Setenv("OTEL_SAMPLING_RATE", "0.25")
	t.Setenv("ENABLE_TRACING", "false")

	cfg := NewConfigFromEnv()

	assert.Equal(t, "market-canary", cfg.ServiceName)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 0.25, cfg.SamplingRate)
	assert.False(t, cfg.EnableTracing)
}

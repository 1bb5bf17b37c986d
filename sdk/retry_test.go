package sdk

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryExecutor(maxRetries int) *retryExecutor {
	return newRetryExecutor(RetryConfig{
		MaxRetries:      maxRetries,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Multiplier:      2.0,
	})
}

func TestRetryExecutorSucceedsAfterRetries(t *testing.T) {
	attempts := 0
	err := fastRetryExecutor(3).Execute(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return &NetworkError{Op: "dial", Err: errors.New("refused")}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryExecutorStopsOnNonRetryable(t *testing.T) {
	attempts := 0
	addrErr := newAddressConstructionError("bad base/x", "address is neither absolute nor rooted", nil)
	err := fastRetryExecutor(5).Execute(context.Background(), func() error {
		attempts++
		return addrErr
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.ErrorAs(t, err, new(*AddressConstructionError))
}

func TestRetryExecutorExhaustsRetries(t *testing.T) {
	attempts := 0
	err := fastRetryExecutor(2).Execute(context.Background(), func() error {
		attempts++
		return &TimeoutError{Op: "fetch"}
	})
	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestRetryExecutorHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := fastRetryExecutor(3).Execute(ctx, func() error {
		return &TimeoutError{Op: "fetch"}
	})
	assert.ErrorIs(t, err, ErrContextCanceled)
}

func TestNextIntervalBounds(t *testing.T) {
	r := newRetryExecutor(RetryConfig{
		MaxRetries:      10,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     time.Second,
		Multiplier:      2.0,
	})

	for attempt := 1; attempt <= 10; attempt++ {
		interval := r.nextInterval(attempt)
		assert.GreaterOrEqual(t, interval, time.Duration(0))
		// Cap plus 30% jitter headroom.
		assert.LessOrEqual(t, interval, 1300*time.Millisecond)
	}
}

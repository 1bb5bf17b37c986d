package sdk

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// retryExecutor runs an operation with exponential backoff and jitter.
// Only retryable errors (see IsRetryable) trigger another attempt; an
// AddressConstructionError or a plain 4xx aborts immediately.
type retryExecutor struct {
	maxRetries      int
	initialInterval time.Duration
	maxInterval     time.Duration
	multiplier      float64
	jitter          float64
}

func newRetryExecutor(cfg RetryConfig) *retryExecutor {
	return &retryExecutor{
		maxRetries:      cfg.MaxRetries,
		initialInterval: cfg.InitialInterval,
		maxInterval:     cfg.MaxInterval,
		multiplier:      cfg.Multiplier,
		jitter:          0.3,
	}
}

// Execute runs fn, retrying on retryable failures until the retry count
// is exhausted or the context ends. The last error is returned.
func (r *retryExecutor) Execute(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				if errors.Is(ctx.Err(), context.DeadlineExceeded) {
					return ErrTimeout
				}
				return ErrContextCanceled
			case <-time.After(r.nextInterval(attempt)):
			}
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !IsRetryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

// nextInterval computes the delay before the given retry attempt.
// attempt starts at 1 for the first retry.
func (r *retryExecutor) nextInterval(attempt int) time.Duration {
	base := float64(r.initialInterval) * math.Pow(r.multiplier, float64(attempt-1))
	if base > float64(r.maxInterval) {
		base = float64(r.maxInterval)
	}
	if r.jitter > 0 {
		delta := base * r.jitter
		base = base - delta + rand.Float64()*2*delta
	}
	if base < 0 {
		base = 0
	}
	return time.Duration(base)
}

package index

import (
	"context"
	"time"
)

// retryConfig is the bounded exponential backoff the spec fixes for
// transient index failures, grounded in shape on AleutianLocal's
// services/trace/context.RetryConfig/Retry but with the jitter and
// circuit-breaker machinery trimmed: the index client doesn't need either
// and the spec pins exact numbers (3 attempts, 200ms base, 2x backoff).
type retryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	BackoffFactor float64
}

func defaultRetryConfig() retryConfig {
	return retryConfig{
		MaxAttempts:   3,
		InitialDelay:  200 * time.Millisecond,
		BackoffFactor: 2.0,
	}
}

// retryableFunc returns true if the error is worth retrying (transient),
// false if it should be surfaced immediately.
type retryableFunc func(ctx context.Context, attempt int) (transient bool, err error)

// retry runs fn up to cfg.MaxAttempts times, waiting with exponential
// backoff between attempts as long as fn reports the failure as transient.
// It returns the last error once attempts are exhausted or fn reports a
// non-transient failure.
func retry(ctx context.Context, cfg retryConfig, fn retryableFunc) error {
	delay := cfg.InitialDelay
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		transient, err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		lastErr = err
		if !transient || attempt == cfg.MaxAttempts {
			return lastErr
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * cfg.BackoffFactor)
	}
	return lastErr
}

package probe

import (
	"context"
	"math/rand"
	"time"
)

// RetryPolicy retries transient probe failures with capped exponential
// backoff. Deterministic failures (TLS, redirect loops) abort immediately.
type RetryPolicy struct {
	MaxAttempts int           // total attempts including the first
	BaseDelay   time.Duration // delay before the first retry
	MaxDelay    time.Duration // upper bound on any single delay

	// sleep is overridable in tests so backoff runs without real waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy matches the scanner defaults: 3 attempts, 500ms base
// delay doubling up to 8s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    8 * time.Second,
	}
}

// Do runs fn until it succeeds, fails with a non-transient error, exhausts
// MaxAttempts, or the context is cancelled. The last observed error is
// returned; Do never panics past this boundary.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !IsTransient(lastErr) {
			return lastErr
		}

		if attempt < attempts-1 {
			if err := p.wait(ctx, p.Delay(attempt)); err != nil {
				return lastErr
			}
		}
	}
	return lastErr
}

// Delay computes the backoff before retry number attempt (0-indexed):
// base * 2^attempt, capped at MaxDelay, with ±20% jitter.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	delay := base << uint(attempt)
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	if jitter := int64(delay) / 5; jitter > 0 {
		delay += time.Duration(rand.Int63n(2*jitter) - jitter)
	}
	return delay
}

func (p RetryPolicy) wait(ctx context.Context, d time.Duration) error {
	if p.sleep != nil {
		return p.sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

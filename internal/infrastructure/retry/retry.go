package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrAttemptsExhausted is returned when every attempt failed.
// The last attempt's error is wrapped alongside it.
var ErrAttemptsExhausted = errors.New("retry: attempts exhausted")

// Policy describes a bounded retry schedule with a fixed delay between
// attempts. The zero value is not usable; use a policy with at least one
// attempt.
type Policy struct {
	// Attempts is the maximum number of times the operation is invoked.
	Attempts int

	// Delay is the fixed wait between attempts.
	Delay time.Duration
}

// Do invokes op until it succeeds, the policy is exhausted, or ctx is
// cancelled. The delay between attempts honours context cancellation, so
// callers never block past shutdown.
//
// Returns nil on the first successful attempt. On exhaustion the last
// error is wrapped with ErrAttemptsExhausted. Context cancellation
// returns the context's error.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	if p.Attempts < 1 {
		return fmt.Errorf("retry: policy requires at least one attempt")
	}

	var lastErr error
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		if attempt == p.Attempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.Delay):
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrAttemptsExhausted, p.Attempts, lastErr)
}

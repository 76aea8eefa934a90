// Package retry implements the bounded exponential-backoff policy
// bookmaker adapters use on transient network errors: a context-aware
// Execute with a configurable attempt count and delay band.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy retries a function on transient failures with exponential
// backoff, bounded by MaxAttempts and [InitialDelay, MaxDelay].
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// New builds the adapter-layer policy: 3 attempts,
// exponential backoff between 1s and 10s.
func New() Policy {
	return Policy{MaxAttempts: 3, InitialDelay: 1 * time.Second, MaxDelay: 10 * time.Second}
}

// Retryable is implemented by errors the policy should retry. Errors
// that don't implement it (e.g. InvalidEventIDError) are returned
// immediately on first failure.
type Retryable interface {
	Retryable() bool
}

// Execute runs fn, retrying while the returned error is Retryable and
// attempts remain. It stops early if ctx is done.
func (p Policy) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error
	delay := p.InitialDelay

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		var r Retryable
		if !errors.As(err, &r) || !r.Retryable() {
			return err
		}

		if attempt < p.MaxAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > p.MaxDelay {
				delay = p.MaxDelay
			}
		}
	}

	return fmt.Errorf("failed after %d attempts: %w", p.MaxAttempts, lastErr)
}

// Package retry provides a small bounded-retry helper for idempotent
// read-only collaborator calls. Mutating calls must never go through it:
// re-issuing a create can duplicate a remote resource.
package retry

import (
	"context"
	"time"
)

// DefaultAttempts is the number of extra attempts after the first failure.
const DefaultAttempts = 2

// DefaultBackoff is the initial delay before the first retry.
const DefaultBackoff = 100 * time.Millisecond

// Do runs fn, retrying up to attempts more times with exponential backoff
// starting at base. It returns the first success or the last error. Context
// cancellation stops the loop between attempts.
func Do(ctx context.Context, attempts int, base time.Duration, fn func(ctx context.Context) error) error {
	if attempts < 0 {
		attempts = 0
	}
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	var err error
	delay := base
	for i := 0; i <= attempts; i++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if i == attempts {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
	}
	return err
}

// Package retry provides the explicit backoff policy applied at every
// external-call site.
package retry

import (
	"context"
	"time"
)

// Policy describes a bounded exponential backoff.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultPolicy matches the upstream call sites: 3 attempts, 4s base
// delay, capped at 10s.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: 4 * time.Second, MaxDelay: 10 * time.Second}
}

// NextBackoff returns the wait before the given retry attempt
// (attempt counts from 0 after the first failure), or -1 when the
// policy says stop.
func (p Policy) NextBackoff(attempt int) time.Duration {
	if attempt >= p.MaxAttempts-1 {
		return -1
	}
	backoff := p.BaseDelay * (1 << attempt)
	if p.MaxDelay > 0 && backoff > p.MaxDelay {
		backoff = p.MaxDelay
	}
	return backoff
}

// Do runs op until it succeeds, the policy is exhausted, or the
// context is cancelled. The last error is returned on exhaustion.
func (p Policy) Do(ctx context.Context, op func() error) error {
	var lastErr error
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = op()
		if lastErr == nil {
			return nil
		}

		backoff := p.NextBackoff(attempt)
		if backoff < 0 {
			return lastErr
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

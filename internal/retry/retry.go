// Package retry provides the bounded backoff policy shared by the generation
// gateway and the retrieval clients.
package retry

import (
	"context"
	"time"
)

// Policy bounds retries with exponential backoff. The zero value is not
// usable; construct with Default or explicit fields.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// Default matches the retrieval contract: three attempts, backoff starting
// at one second.
func Default() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: time.Second}
}

// Do invokes fn up to MaxAttempts times, sleeping BaseDelay<<attempt between
// tries. It returns nil on the first success, the last error on exhaustion,
// and the context error if the context is cancelled while waiting.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := p.BaseDelay << uint(attempt-1)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if lastErr = fn(); lastErr == nil {
			return nil
		}
	}
	return lastErr
}

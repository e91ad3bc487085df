// Package retry provides a small retry policy with exponential backoff,
// shared by every fallible upstream call instead of hand-coded loops.
package retry

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// Policy describes how often and how patiently an operation is retried.
// Delay before attempt n (n starting at 1) is BaseDelay * 2^(n-1), plus up to
// Jitter of random slack.
type Policy struct {
	Attempts  int           // total tries, including the first
	BaseDelay time.Duration // delay after the first failure
	Jitter    time.Duration // random extra delay, 0 disables
}

// Do runs fn until it succeeds, attempts are exhausted or ctx is done.
// The last error is wrapped with the attempt count.
func Do(ctx context.Context, p Policy, fn func() error) error {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if attempt == p.Attempts {
			break
		}
		delay := p.BaseDelay << (attempt - 1)
		if p.Jitter > 0 {
			delay += time.Duration(rand.Int63n(int64(p.Jitter)))
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("after %d attempts: %w", p.Attempts, lastErr)
}

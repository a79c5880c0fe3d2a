package apperr

import (
	"context"
	"time"
)

// DefaultMaxAttempts is the retry budget for transient failures.
const DefaultMaxAttempts = 3

const (
	baseBackoff = time.Second
	maxBackoff  = 10 * time.Second
)

// Backoff returns the delay before retrying after the given zero-based
// attempt: min(1s * 2^attempt, 10s).
func Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := baseBackoff << uint(attempt)
	if d <= 0 || d > maxBackoff {
		return maxBackoff
	}
	return d
}

// Retry runs fn up to maxAttempts times, sleeping per Backoff between
// attempts. It stops early on the first success, the first non-retryable
// error, or context cancellation.
func Retry(ctx context.Context, maxAttempts int, fn func() error) error {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}

	var last error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(Backoff(attempt - 1))
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		last = fn()
		if last == nil {
			return nil
		}
		if !Retryable(last) {
			return last
		}
	}
	return last
}

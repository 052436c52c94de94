// Package retry re-runs failing work: bounded retries with jittered backoff
// for single calls, and supervision for long-running workers.
package retry

import (
	"context"
	"math/rand/v2"
	"time"
)

type ShouldRetry func(err error, attempt int) bool

// Always retries every error.
func Always(error, int) bool {
	return true
}

// Do calls f up to attempts times, sleeping a random duration in
// [0, base * 2^(attempt-1)) between failures. It returns the last error, or
// the context's error when cancelled while waiting.
func Do(ctx context.Context, attempts int, base time.Duration, shouldRetry ShouldRetry, f func(ctx context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	if shouldRetry == nil {
		shouldRetry = Always
	}

	var err error
	for attempt := 1; ; attempt++ {
		err = f(ctx)
		if err == nil {
			return nil
		}
		if attempt >= attempts || !shouldRetry(err, attempt) {
			return err
		}

		if err := sleep(ctx, Jitter(base<<(attempt-1))); err != nil {
			return err
		}
	}
}

// Jitter returns a random duration in [0, d).
func Jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return rand.N(d) //nolint:gosec
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

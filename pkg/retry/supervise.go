package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

var ErrPanic = errors.New("worker panicked")

type Supervisor struct {
	Logger *slog.Logger
	Name   string

	// MinBackoff doubles after every short-lived run up to MaxBackoff.
	MinBackoff time.Duration
	MaxBackoff time.Duration
	// HealthyRun is how long a run must last to reset the backoff.
	HealthyRun time.Duration
}

// Supervise runs f until ctx is cancelled with the default backoff of one
// second doubling up to thirty, reset after a run of at least a minute.
func Supervise(ctx context.Context, logger *slog.Logger, name string, f func(ctx context.Context) error) {
	s := Supervisor{
		Logger:     logger,
		Name:       name,
		MinBackoff: time.Second,
		MaxBackoff: 30 * time.Second,
		HealthyRun: time.Minute,
	}
	s.Run(ctx, f)
}

// Run calls f again whenever it returns or panics. Only cancellation of ctx
// ends the loop.
func (s Supervisor) Run(ctx context.Context, f func(ctx context.Context) error) {
	backoff := s.MinBackoff

	for ctx.Err() == nil {
		started := time.Now()
		err := protect(ctx, f)
		if ctx.Err() != nil {
			return
		}

		if time.Since(started) >= s.HealthyRun {
			backoff = s.MinBackoff
		}

		if err != nil {
			s.Logger.Error("Worker failed, restarting", "worker", s.Name, "error", err, "backoff", backoff)
		} else {
			s.Logger.Warn("Worker exited, restarting", "worker", s.Name, "backoff", backoff)
		}

		if sleep(ctx, backoff) != nil {
			return
		}

		backoff = min(backoff*2, s.MaxBackoff)
	}
}

func protect(ctx context.Context, f func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return f(ctx)
}

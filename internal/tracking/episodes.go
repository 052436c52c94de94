// Package tracking announces new episodes and live streams to followers.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"podfed/internal/activitypub"
	"podfed/internal/config"
	"podfed/internal/core"
	"podfed/internal/metrics"
	"podfed/pkg/retry"
)

const (
	defaultPollInterval = time.Minute
	defaultActorDelay   = 2 * time.Second
)

// Episodes polls the metadata source for every followed podcast and announces
// an episode whenever the newest guid differs from the stored cursor.
type Episodes struct {
	Logger    *slog.Logger
	Config    *config.Config
	URLs      *activitypub.URLs
	Actors    core.ActorRepository
	Followers core.FollowerRepository
	Metadata  core.Metadata
	Fanout    core.Fanout
}

func (e *Episodes) Init(_ context.Context) error {
	e.Logger = e.Logger.With("component", "tracking.Episodes")
	return nil
}

func (e *Episodes) Run(ctx context.Context) error {
	retry.Supervise(ctx, e.Logger, "episodes", func(ctx context.Context) error {
		for {
			e.Poll(ctx)

			if err := sleep(ctx, durationOr(e.Config.PollInterval, defaultPollInterval)); err != nil {
				return nil
			}
		}
	})
	return nil
}

func (e *Episodes) Poll(ctx context.Context) {
	actors, err := e.Actors.ListWithFollowers(ctx)
	if err != nil {
		e.Logger.Error("Failed to list followed actors", "error", err)
		return
	}

	e.Logger.Debug("Polling episodes", "actors", len(actors))

	for i, actor := range actors {
		if i > 0 {
			if err := sleep(ctx, durationOr(e.Config.ActorDelay, defaultActorDelay)); err != nil {
				return
			}
		}

		if err := e.pollActor(ctx, actor); err != nil {
			e.Logger.Error("Failed to poll actor", "actor", actor.ID, "error", err)
		}
	}
}

func (e *Episodes) pollActor(ctx context.Context, actor core.ActorModel) error {
	episodes, err := e.Metadata.GetEpisodes(ctx, actor.ID, 1)
	if errors.Is(err, core.ErrNotFound) || (err == nil && len(episodes) == 0) {
		return nil
	}
	if err != nil {
		return err
	}

	newest := episodes[0]
	if newest.GUID == "" || newest.GUID == actor.LastEpisodeCursor {
		return nil
	}

	followers, err := e.Followers.List(ctx, actor.ID)
	if err != nil {
		return err
	}

	note := activitypub.NewEpisodeNote(e.URLs, actor.ID, newest)
	results := e.Fanout.Notify(ctx, actor.ID, &note, followers)
	metrics.Announcements.WithLabelValues("episode").Inc()

	e.Logger.Info("Announced episode",
		"actor", actor.ID, "guid", newest.GUID, "inboxes", len(results), "failed", failed(results))

	// Cursor advances once delivery was attempted, whatever its outcome.
	if err := e.Actors.UpdateCursor(ctx, actor.ID, newest.GUID); err != nil {
		return fmt.Errorf("advance cursor: %w", err)
	}

	return nil
}

func failed(results []core.DeliveryResult) int {
	return lo.CountBy(results, func(r core.DeliveryResult) bool { return r.Err != nil })
}

func durationOr(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
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

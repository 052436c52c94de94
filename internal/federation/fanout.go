package federation

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"podfed/internal/activitypub"
	"podfed/internal/config"
	"podfed/internal/core"
	"podfed/internal/metrics"
)

const defaultDeliveryConcurrency = 8

// Fanout delivers one copy of a note per distinct shared inbox.
type Fanout struct {
	Logger    *slog.Logger
	Config    *config.Config
	URLs      *activitypub.URLs
	Deliverer core.Deliverer
}

func (f *Fanout) Init(_ context.Context) error {
	f.Logger = f.Logger.With("component", "federation.Fanout")
	return nil
}

// sharedInbox is the fan-out key of a follower.
func sharedInbox(follower core.FollowerModel) string {
	if follower.SharedInboxURL != "" {
		return follower.SharedInboxURL
	}
	return follower.InboxURL
}

func (f *Fanout) Notify(ctx context.Context, ownerActorID uint64, note *activitypub.Object, followers []core.FollowerModel) []core.DeliveryResult {
	_, statusID, ok := f.URLs.ParseNote(note.ID)
	if !ok {
		statusID = uuid.NewString()
	}
	create := activitypub.NewCreate(f.URLs, ownerActorID, statusID, *note)

	targets := lo.UniqBy(followers, sharedInbox)
	results := make([]core.DeliveryResult, len(targets))

	limit := defaultDeliveryConcurrency
	if f.Config != nil && f.Config.DeliveryConcurrency > 0 {
		limit = f.Config.DeliveryConcurrency
	}

	var g errgroup.Group
	g.SetLimit(limit)

	for i, target := range targets {
		inbox := sharedInbox(target)
		g.Go(func() error {
			err := f.Deliverer.Deliver(ctx, ownerActorID, inbox, &create)
			results[i] = core.DeliveryResult{Inbox: inbox, Err: err}
			return nil
		})
	}
	g.Wait() //nolint:errcheck

	failed := lo.CountBy(results, func(r core.DeliveryResult) bool { return r.Err != nil })
	for _, r := range results {
		if r.Err != nil {
			f.Logger.Warn("Delivery failed", "actor_id", ownerActorID, "inbox", r.Inbox, "error", r.Err)
		}
	}

	metrics.Deliveries.WithLabelValues("ok").Add(float64(len(results) - failed))
	metrics.Deliveries.WithLabelValues("failed").Add(float64(failed))

	f.Logger.Info("Fan-out finished", "actor_id", ownerActorID, "note", note.ID,
		"followers", len(followers), "inboxes", len(results), "failed", failed)

	return results
}

package tracking

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/lo"

	"podfed/internal/activitypub"
	"podfed/internal/config"
	"podfed/internal/core"
	"podfed/internal/metrics"
	"podfed/pkg/podcastindex"
	"podfed/pkg/retry"
)

// Live announces live items named by podpings. Each live item is announced
// at most once, as decided by Dedupe.
type Live struct {
	Logger    *slog.Logger
	Config    *config.Config
	URLs      *activitypub.URLs
	Stream    core.PodpingStream
	Metadata  core.Metadata
	Dedupe    core.LiveDedupe
	Followers core.FollowerRepository
	Fanout    core.Fanout
}

func (l *Live) Init(_ context.Context) error {
	l.Logger = l.Logger.With("component", "tracking.Live")
	return nil
}

func (l *Live) Run(ctx context.Context) error {
	retry.Supervise(ctx, l.Logger, "live", l.listen)
	return nil
}

// listen returns when the stream ends.
func (l *Live) listen(ctx context.Context) error {
	podpings, err := l.Stream.Subscribe(ctx)
	if err != nil {
		return err
	}

	for res := range podpings {
		podping, err := res.Unpack()
		if err != nil {
			return err
		}
		l.Handle(ctx, podping)
	}

	return nil
}

func (l *Live) reasons() []string {
	if len(l.Config.LiveReasons) > 0 {
		return l.Config.LiveReasons
	}
	return []string{core.PodpingReasonLive}
}

func (l *Live) Handle(ctx context.Context, podping core.Podping) {
	live := lo.ContainsBy(l.reasons(), func(reason string) bool {
		return strings.EqualFold(reason, podping.Reason)
	})
	if !live {
		return
	}

	for _, feed := range lo.Uniq(podping.Feeds()) {
		if err := l.announce(ctx, feed); err != nil {
			l.Logger.Error("Failed to announce live item", "feed", feed, "error", err)
		}
	}
}

func (l *Live) announce(ctx context.Context, feedURL string) error {
	items, err := l.Metadata.GetLiveItems(ctx, feedURL)
	if err != nil {
		return err
	}

	live := lo.Filter(items, func(item podcastindex.LiveItem, _ int) bool { return item.IsLive() })
	if len(live) == 0 {
		l.Logger.Debug("No live item", "feed", feedURL)
		return nil
	}

	newest := lo.MaxBy(live, func(a, b podcastindex.LiveItem) bool { return a.StartTime > b.StartTime })
	if newest.FeedID == 0 || newest.GUID == "" {
		return fmt.Errorf("live item without feed id or guid: %q", newest.Title)
	}

	// Followers are listed before claiming so a storage failure leaves the
	// item unclaimed for the next podping.
	followers, err := l.Followers.List(ctx, newest.FeedID)
	if err != nil {
		return err
	}

	claimed, err := l.Dedupe.Claim(ctx, fmt.Sprintf("%d:%s", newest.FeedID, newest.GUID))
	if err != nil {
		return err
	}
	if !claimed {
		l.Logger.Debug("Live item already announced", "feed", newest.FeedID, "guid", newest.GUID)
		return nil
	}

	note := activitypub.NewLiveNote(l.URLs, newest.FeedID, newest, time.Now())
	results := l.Fanout.Notify(ctx, newest.FeedID, &note, followers)
	metrics.Announcements.WithLabelValues("live").Inc()

	l.Logger.Info("Announced live item",
		"actor", newest.FeedID, "guid", newest.GUID, "inboxes", len(results), "failed", failed(results))

	return nil
}

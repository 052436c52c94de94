package tracking_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"podfed/internal/activitypub"
	"podfed/internal/core"
	"podfed/internal/persistence/actors"
	"podfed/internal/persistence/followers"
	"podfed/internal/persistence/persistencetest"
	"podfed/pkg/async"
	"podfed/pkg/podcastindex"
)

var (
	errUpstream = errors.New("upstream down")

	// The test database is closed in t.Cleanup, after leak checks ran.
	ignoreDB = goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener")
)

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testURLs(t *testing.T) *activitypub.URLs {
	t.Helper()

	u, err := activitypub.NewURLs("https://bridge.example")
	require.NoError(t, err)
	return u
}

type store struct {
	actors    *actors.Repository
	followers *followers.Repository
}

func newStore(t *testing.T) store {
	t.Helper()

	db := persistencetest.New(t)
	return store{
		actors:    &actors.Repository{DB: db},
		followers: &followers.Repository{DB: db},
	}
}

// follow stores an actor with a single follower on its own instance.
func (s store) follow(t *testing.T, actorID uint64, remote string) {
	t.Helper()

	require.NoError(t, s.actors.CreateIfAbsent(t.Context(), core.ActorModel{ID: actorID}))
	require.NoError(t, s.followers.Add(t.Context(), core.FollowerModel{
		OwnerActorID:  actorID,
		RemoteActorID: remote,
		InboxURL:      remote + "/inbox",
	}))
}

func (s store) cursor(t *testing.T, actorID uint64) string {
	t.Helper()

	actor, err := s.actors.Get(t.Context(), actorID)
	require.NoError(t, err)
	return actor.LastEpisodeCursor
}

// flakyFollowers fails the first failures List calls.
type flakyFollowers struct {
	core.FollowerRepository

	mu       sync.Mutex
	failures int
}

func (f *flakyFollowers) List(ctx context.Context, ownerActorID uint64) ([]core.FollowerModel, error) {
	f.mu.Lock()
	fail := f.failures > 0
	f.failures--
	f.mu.Unlock()

	if fail {
		return nil, errUpstream
	}
	return f.FollowerRepository.List(ctx, ownerActorID)
}

type fakeMetadata struct {
	mu        sync.Mutex
	episodes  map[uint64][]podcastindex.Item
	live      map[string][]podcastindex.LiveItem
	failFeeds map[uint64]bool
}

func (f *fakeMetadata) setEpisodes(id uint64, items ...podcastindex.Item) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.episodes == nil {
		f.episodes = map[uint64][]podcastindex.Item{}
	}
	f.episodes[id] = items
}

func (f *fakeMetadata) GetPodcast(_ context.Context, id uint64) (*podcastindex.Feed, error) {
	return &podcastindex.Feed{ID: id}, nil
}

func (f *fakeMetadata) GetEpisodes(_ context.Context, id uint64, limit int) ([]podcastindex.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failFeeds[id] {
		return nil, errUpstream
	}
	items, ok := f.episodes[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (f *fakeMetadata) GetLiveItems(_ context.Context, feedURL string) ([]podcastindex.LiveItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.live[feedURL], nil
}

func (f *fakeMetadata) Rescan(context.Context, uint64) error {
	return nil
}

type notification struct {
	Owner     uint64
	Note      activitypub.Object
	Followers int
}

type fakeFanout struct {
	mu            sync.Mutex
	notifications []notification
}

func (f *fakeFanout) Notify(_ context.Context, owner uint64, note *activitypub.Object, followers []core.FollowerModel) []core.DeliveryResult {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.notifications = append(f.notifications, notification{Owner: owner, Note: *note, Followers: len(followers)})

	results := make([]core.DeliveryResult, 0, len(followers))
	for _, follower := range followers {
		results = append(results, core.DeliveryResult{Inbox: follower.InboxURL})
	}
	return results
}

func (f *fakeFanout) sent() []notification {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]notification(nil), f.notifications...)
}

// fakeStream yields its podpings, then holds the connection open until ctx
// is cancelled.
type fakeStream struct {
	podpings []core.Podping
}

func (f *fakeStream) Subscribe(ctx context.Context) (<-chan async.Result[core.Podping], error) {
	return async.Generator(ctx, func(ctx context.Context, yield async.Yielder[core.Podping]) error {
		for _, p := range f.podpings {
			if !yield(p) {
				return nil
			}
		}
		<-ctx.Done()
		return nil
	}), nil
}

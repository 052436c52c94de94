package federation_test

import (
	"context"
	"crypto/rsa"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"podfed/internal/activitypub"
	"podfed/internal/core"
	"podfed/internal/federation"
	"podfed/internal/httpsig"
	"podfed/internal/persistence/actors"
	"podfed/internal/persistence/persistencetest"
	"podfed/pkg/podcastindex"
)

var (
	sharedKey     *rsa.PrivateKey
	sharedKeyOnce sync.Once
)

func testKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()

	sharedKeyOnce.Do(func() {
		key, err := httpsig.GenerateKey()
		if err != nil {
			panic(err)
		}
		sharedKey = key
	})
	return sharedKey
}

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testURLs(t *testing.T) *activitypub.URLs {
	t.Helper()

	u, err := activitypub.NewURLs("https://bridge.example")
	require.NoError(t, err)
	return u
}

// newKeyStore returns a store over a fresh database that hands out the same
// pre-generated key to every actor.
func newKeyStore(t *testing.T, db core.DB) *federation.KeyStore {
	t.Helper()

	key := testKey(t)
	return federation.NewKeyStore(&actors.Repository{DB: db}, testURLs(t), func() (*rsa.PrivateKey, error) {
		return key, nil
	})
}

type fakeRemote struct {
	actors map[string]*activitypub.RemoteActor
}

func (f *fakeRemote) Fetch(_ context.Context, _ uint64, actorURL string) (*activitypub.RemoteActor, error) {
	actor, ok := f.actors[actorURL]
	if !ok {
		return nil, fmt.Errorf("%w: %s", federation.ErrRemoteFetch, actorURL)
	}
	return actor, nil
}

type delivery struct {
	Owner    uint64
	Inbox    string
	Activity activitypub.Object
}

type fakeDeliverer struct {
	mu         sync.Mutex
	deliveries []delivery
	failInbox  string
}

func (f *fakeDeliverer) Deliver(_ context.Context, owner uint64, inbox string, activity *activitypub.Object) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if inbox == f.failInbox {
		return fmt.Errorf("%w: %s", federation.ErrDelivery, inbox)
	}
	f.deliveries = append(f.deliveries, delivery{Owner: owner, Inbox: inbox, Activity: *activity})
	return nil
}

func (f *fakeDeliverer) sent() []delivery {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]delivery(nil), f.deliveries...)
}

type fakeMetadata struct {
	episodes  []podcastindex.Item
	rescanned []uint64
	err       error
}

func (f *fakeMetadata) GetPodcast(_ context.Context, id uint64) (*podcastindex.Feed, error) {
	return &podcastindex.Feed{ID: id, Title: "Show"}, nil
}

func (f *fakeMetadata) GetEpisodes(_ context.Context, _ uint64, limit int) ([]podcastindex.Item, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit > 0 && len(f.episodes) > limit {
		return f.episodes[:limit], nil
	}
	return f.episodes, nil
}

func (f *fakeMetadata) GetLiveItems(context.Context, string) ([]podcastindex.LiveItem, error) {
	return nil, nil
}

func (f *fakeMetadata) Rescan(_ context.Context, id uint64) error {
	if f.err != nil {
		return f.err
	}
	f.rescanned = append(f.rescanned, id)
	return nil
}

func newDB(t *testing.T) core.DB {
	t.Helper()
	return persistencetest.New(t)
}

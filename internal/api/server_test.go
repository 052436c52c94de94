package api_test

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"podfed/internal/activitypub"
	"podfed/internal/api"
	"podfed/internal/config"
	"podfed/internal/core"
	"podfed/internal/federation"
	"podfed/internal/httpsig"
	"podfed/internal/persistence/actors"
	"podfed/internal/persistence/followers"
	"podfed/internal/persistence/persistencetest"
	"podfed/internal/persistence/replies"
	"podfed/pkg/podcastindex"
)

const alice = "https://mastodon.example/users/alice"

var (
	sharedKey     *rsa.PrivateKey
	sharedKeyOnce sync.Once
)

func testKey() *rsa.PrivateKey {
	sharedKeyOnce.Do(func() {
		key, err := httpsig.GenerateKey()
		if err != nil {
			panic(err)
		}
		sharedKey = key
	})
	return sharedKey
}

type fakeMetadata struct {
	feeds    map[uint64]*podcastindex.Feed
	episodes map[uint64][]podcastindex.Item
	fail     bool
}

func (f *fakeMetadata) GetPodcast(_ context.Context, id uint64) (*podcastindex.Feed, error) {
	if f.fail {
		return nil, errors.New("upstream down")
	}
	feed, ok := f.feeds[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return feed, nil
}

func (f *fakeMetadata) GetEpisodes(_ context.Context, id uint64, _ int) ([]podcastindex.Item, error) {
	items, ok := f.episodes[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return items, nil
}

func (f *fakeMetadata) GetLiveItems(context.Context, string) ([]podcastindex.LiveItem, error) {
	return nil, nil
}

func (f *fakeMetadata) Rescan(context.Context, uint64) error {
	return nil
}

type dispatched struct {
	Owner    uint64
	Activity *activitypub.Object
}

type fakeDispatcher struct {
	mu    sync.Mutex
	calls []dispatched
	err   error
}

func (f *fakeDispatcher) Dispatch(_ context.Context, owner uint64, activity *activitypub.Object) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, dispatched{Owner: owner, Activity: activity})
	return f.err
}

func (f *fakeDispatcher) dispatched() []dispatched {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]dispatched(nil), f.calls...)
}

type fakeVerifier struct {
	signer string
	err    error
}

func (f *fakeVerifier) Verify(context.Context, uint64, httpsig.Request) (string, error) {
	return f.signer, f.err
}

type fixture struct {
	handler    http.Handler
	db         core.DB
	dispatcher *fakeDispatcher
	verifier   *fakeVerifier
	metadata   *fakeMetadata
	config     *config.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	urls, err := activitypub.NewURLs("https://bridge.example")
	require.NoError(t, err)

	db := persistencetest.New(t)
	f := &fixture{
		db:         db,
		dispatcher: &fakeDispatcher{},
		verifier:   &fakeVerifier{signer: alice},
		metadata:   newMetadata(),
		config:     &config.Config{VerifySignatures: true},
	}

	server := &api.Server{
		Logger: slog.New(slog.DiscardHandler),
		Config: f.config,
		URLs:   urls,
		Keys: federation.NewKeyStore(&actors.Repository{DB: db}, urls, func() (*rsa.PrivateKey, error) {
			return testKey(), nil
		}),
		Metadata:   f.metadata,
		Followers:  &followers.Repository{DB: db},
		Replies:    &replies.Repository{DB: db},
		Dispatcher: f.dispatcher,
		Verifier:   f.verifier,
	}
	f.handler = server.Handler()

	return f
}

func newMetadata() *fakeMetadata {
	return &fakeMetadata{
		feeds: map[uint64]*podcastindex.Feed{
			42: {ID: 42, Title: "Show <&>", Description: "<b>About</b> the show", Image: "https://img.example/42.png", Link: "https://show.example", EpisodeCount: 120},
		},
		episodes: map[uint64][]podcastindex.Item{
			42: {
				{GUID: "E2", Title: "Two", DatePublished: 1700000100},
				{GUID: "E1", Title: "One", DatePublished: 1700000000},
			},
		},
	}
}

func (f *fixture) do(t *testing.T, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequestWithContext(t.Context(), method, target, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestServer_Webfinger(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	t.Run("known podcast", func(t *testing.T) {
		t.Parallel()

		rec := f.do(t, http.MethodGet, "/.well-known/webfinger?resource=acct:42@bridge.example", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "application/jrd+json; charset=utf-8", rec.Header().Get("Content-Type"))

		out := decode(t, rec)
		require.Equal(t, "acct:42@bridge.example", out["subject"])
		require.Len(t, out["links"], 3)
	})

	for name, tc := range map[string]struct {
		target string
		status int
	}{
		"no resource":     {"/.well-known/webfinger", http.StatusBadRequest},
		"foreign host":    {"/.well-known/webfinger?resource=acct:42@elsewhere.example", http.StatusNotFound},
		"unknown podcast": {"/.well-known/webfinger?resource=acct:7@bridge.example", http.StatusNotFound},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, tc.status, f.do(t, http.MethodGet, tc.target, nil).Code)
		})
	}
}

func TestServer_Actor(t *testing.T) {
	t.Parallel()

	t.Run("document with a stable key", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)

		rec := f.do(t, http.MethodGet, "/podcasts?id=42", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "application/activity+json; charset=utf-8", rec.Header().Get("Content-Type"))

		out := decode(t, rec)
		require.Equal(t, "https://bridge.example/podcasts?id=42", out["id"])
		require.Equal(t, "Person", out["type"])
		require.Equal(t, "https://bridge.example/inbox?id=0", out["endpoints"].(map[string]any)["sharedInbox"])

		key := out["publicKey"].(map[string]any)
		require.Equal(t, "https://bridge.example/podcasts?id=42#main-key", key["id"])
		require.Equal(t, httpsig.EncodePublicKeyPKCS1(&testKey().PublicKey), key["publicKeyPem"])

		again := decode(t, f.do(t, http.MethodGet, "/podcasts?id=42", nil))
		require.Equal(t, key["publicKeyPem"], again["publicKey"].(map[string]any)["publicKeyPem"])
	})

	t.Run("bad id", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		for _, target := range []string{"/podcasts", "/podcasts?id=abc", "/podcasts?id=0"} {
			require.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, target, nil).Code, target)
		}
	})

	t.Run("unknown podcast", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		require.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/podcasts?id=7", nil).Code)
	})

	t.Run("metadata source down", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.metadata.fail = true
		require.Equal(t, http.StatusBadGateway, f.do(t, http.MethodGet, "/podcasts?id=42", nil).Code)
	})
}

func TestServer_Profile(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/profiles?id=42", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Body.String(), "Show &lt;&amp;&gt;")
	require.Contains(t, rec.Body.String(), "https://podcastindex.org/podcast/42")
	require.NotContains(t, rec.Body.String(), "<b>")
}

func TestServer_Collections(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	followersRepo := &followers.Repository{DB: f.db}
	for _, remote := range []string{alice, "https://mastodon.example/users/bob"} {
		require.NoError(t, followersRepo.Add(t.Context(), core.FollowerModel{
			OwnerActorID: 42, RemoteActorID: remote, InboxURL: remote + "/inbox",
		}))
	}

	repliesRepo := &replies.Repository{DB: f.db}
	_, err := repliesRepo.Add(t.Context(), core.ReplyModel{
		OwnerActorID: 42, EpisodeID: "E1", ObjectID: "https://mastodon.example/notes/1", Content: "hi",
	})
	require.NoError(t, err)

	t.Run("outbox summary", func(t *testing.T) {
		t.Parallel()

		out := decode(t, f.do(t, http.MethodGet, "/outbox?id=42", nil))
		require.Equal(t, "OrderedCollection", out["type"])
		require.InDelta(t, 120, out["totalItems"], 0)
		require.Equal(t, "https://bridge.example/outbox?id=42&page=true", out["first"])
	})

	t.Run("outbox page", func(t *testing.T) {
		t.Parallel()

		out := decode(t, f.do(t, http.MethodGet, "/outbox?id=42&page=true", nil))
		require.Equal(t, "OrderedCollectionPage", out["type"])

		items := out["orderedItems"].([]any)
		require.Len(t, items, 2)
		first := items[0].(map[string]any)
		require.Equal(t, "Create", first["type"])
		require.Equal(t, "https://bridge.example/episodes?id=42&statusid=E2&resource=activity", first["id"])
	})

	t.Run("followers", func(t *testing.T) {
		t.Parallel()

		out := decode(t, f.do(t, http.MethodGet, "/followers?id=42", nil))
		require.InDelta(t, 2, out["totalItems"], 0)
	})

	t.Run("following", func(t *testing.T) {
		t.Parallel()

		out := decode(t, f.do(t, http.MethodGet, "/following?id=42", nil))
		require.InDelta(t, 0, out["totalItems"], 0)
	})

	t.Run("featured", func(t *testing.T) {
		t.Parallel()

		out := decode(t, f.do(t, http.MethodGet, "/featured?id=42", nil))
		items := out["orderedItems"].([]any)
		require.Len(t, items, 1)
		require.Equal(t, activitypub.PinnedText, items[0].(map[string]any)["content"])
	})

	t.Run("contexts", func(t *testing.T) {
		t.Parallel()

		out := decode(t, f.do(t, http.MethodGet, "/contexts?id=42&statusid=E1", nil))
		require.InDelta(t, 1, out["totalItems"], 0)
	})
}

func TestServer_Episode(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	t.Run("pinned", func(t *testing.T) {
		t.Parallel()

		out := decode(t, f.do(t, http.MethodGet, "/episodes?id=42&statusid=0", nil))
		require.Equal(t, "Note", out["type"])
		require.Equal(t, activitypub.PinnedText, out["content"])
	})

	t.Run("note", func(t *testing.T) {
		t.Parallel()

		out := decode(t, f.do(t, http.MethodGet, "/episodes?id=42&statusid=E1&resource=post", nil))
		require.Equal(t, "Note", out["type"])
		require.Equal(t, "https://bridge.example/episodes?id=42&statusid=E1&resource=post", out["id"])
	})

	t.Run("activity", func(t *testing.T) {
		t.Parallel()

		out := decode(t, f.do(t, http.MethodGet, "/episodes?id=42&statusid=E1&resource=activity", nil))
		require.Equal(t, "Create", out["type"])
	})

	t.Run("unknown episode", func(t *testing.T) {
		t.Parallel()

		require.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/episodes?id=42&statusid=E9", nil).Code)
	})

	t.Run("missing status id", func(t *testing.T) {
		t.Parallel()

		require.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/episodes?id=42", nil).Code)
	})
}

func follow(actor string) []byte {
	return fmt.Appendf(nil, `{"@context":"https://www.w3.org/ns/activitystreams","id":"%s#follow","type":"Follow","actor":"%s","object":"https://bridge.example/podcasts?id=42"}`, actor, actor)
}

func TestServer_Inbox(t *testing.T) {
	t.Parallel()

	t.Run("accepted", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)

		rec := f.do(t, http.MethodPost, "/inbox?id=42", follow(alice))
		require.Equal(t, http.StatusAccepted, rec.Code)

		calls := f.dispatcher.dispatched()
		require.Len(t, calls, 1)
		require.Equal(t, uint64(42), calls[0].Owner)
		require.Equal(t, activitypub.KindFollow, calls[0].Activity.Kind())
	})

	t.Run("shared inbox", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)

		require.Equal(t, http.StatusAccepted, f.do(t, http.MethodPost, "/inbox", follow(alice)).Code)
		require.Equal(t, activitypub.SharedInboxID, f.dispatcher.dispatched()[0].Owner)
	})

	t.Run("verification disabled", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.config.VerifySignatures = false
		f.verifier.err = httpsig.ErrSignature

		require.Equal(t, http.StatusAccepted, f.do(t, http.MethodPost, "/inbox?id=42", follow(alice)).Code)
	})

	t.Run("delete skips verification", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.verifier.err = httpsig.ErrSignature

		body := []byte(`{"type":"Delete","actor":"https://gone.example/users/x","object":"https://gone.example/users/x"}`)
		require.Equal(t, http.StatusAccepted, f.do(t, http.MethodPost, "/inbox?id=42", body).Code)
	})

	t.Run("rejections", func(t *testing.T) {
		t.Parallel()

		for name, tc := range map[string]struct {
			target      string
			body        []byte
			verifyErr   error
			dispatchErr error
			status      int
		}{
			"malformed json":      {target: "/inbox?id=42", body: []byte(`{"type":`), status: http.StatusBadRequest},
			"bad inbox id":        {target: "/inbox?id=x", body: follow(alice), status: http.StatusBadRequest},
			"bad signature":       {target: "/inbox?id=42", body: follow(alice), verifyErr: httpsig.ErrSignature, status: http.StatusUnauthorized},
			"actor is not signer": {target: "/inbox?id=42", body: follow("https://evil.example/users/mallory"), status: http.StatusUnauthorized},
			"too large":           {target: "/inbox?id=42", body: bytes.Repeat([]byte("x"), api.MaxInboxBody+1), status: http.StatusRequestEntityTooLarge},
			"unknown owner":       {target: "/inbox", body: follow(alice), dispatchErr: federation.ErrUnknownOwner, status: http.StatusNotFound},
			"remote failure":      {target: "/inbox?id=42", body: follow(alice), dispatchErr: federation.ErrDelivery, status: http.StatusBadGateway},
			"metadata failure":    {target: "/inbox?id=42", body: follow(alice), dispatchErr: fmt.Errorf("%w: timeout", federation.ErrMetadata), status: http.StatusBadGateway},
			"storage failure":     {target: "/inbox?id=42", body: follow(alice), dispatchErr: errors.New("disk full"), status: http.StatusInternalServerError},
		} {
			t.Run(name, func(t *testing.T) {
				t.Parallel()

				f := newFixture(t)
				f.verifier.err = tc.verifyErr
				f.dispatcher.err = tc.dispatchErr

				rec := f.do(t, http.MethodPost, tc.target, tc.body)
				require.Equal(t, tc.status, rec.Code, rec.Body.String())

				if tc.status == http.StatusUnauthorized || tc.status == http.StatusBadRequest {
					require.Empty(t, f.dispatcher.dispatched())
				}
			})
		}
	})
}

func TestServer_Recover(t *testing.T) {
	t.Parallel()

	server := &api.Server{
		Logger: slog.New(slog.DiscardHandler),
		Config: &config.Config{},
	}

	// Without URLs every actor route panics.
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/featured?id=42", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.True(t, strings.HasPrefix(rec.Body.String(), "Internal Server Error"))
}

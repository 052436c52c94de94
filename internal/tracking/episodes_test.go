package tracking_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"podfed/internal/config"
	"podfed/internal/core"
	"podfed/internal/tracking"
	"podfed/pkg/podcastindex"
)

func newEpisodes(t *testing.T, s store, metadata *fakeMetadata, fanout *fakeFanout) *tracking.Episodes {
	t.Helper()

	episodes := &tracking.Episodes{
		Logger:    discard(),
		Config:    &config.Config{PollInterval: 10 * time.Millisecond, ActorDelay: time.Millisecond},
		URLs:      testURLs(t),
		Actors:    s.actors,
		Followers: s.followers,
		Metadata:  metadata,
		Fanout:    fanout,
	}
	require.NoError(t, episodes.Init(t.Context()))
	return episodes
}

func TestEpisodes_Poll(t *testing.T) {
	t.Parallel()

	t.Run("cursor only moves on a new guid", func(t *testing.T) {
		t.Parallel()

		s := newStore(t)
		s.follow(t, 42, "https://mastodon.example/users/alice")

		metadata := &fakeMetadata{}
		metadata.setEpisodes(42, podcastindex.Item{GUID: "E1", Title: "One"})
		fanout := &fakeFanout{}
		episodes := newEpisodes(t, s, metadata, fanout)

		episodes.Poll(t.Context())
		require.Len(t, fanout.sent(), 1)
		require.Equal(t, "E1", s.cursor(t, 42))

		episodes.Poll(t.Context())
		require.Len(t, fanout.sent(), 1)
		require.Equal(t, "E1", s.cursor(t, 42))

		metadata.setEpisodes(42, podcastindex.Item{GUID: "E2", Title: "Two"}, podcastindex.Item{GUID: "E1"})
		episodes.Poll(t.Context())

		sent := fanout.sent()
		require.Len(t, sent, 2)
		require.Equal(t, uint64(42), sent[1].Owner)
		require.Equal(t, 1, sent[1].Followers)
		require.Equal(t, "https://bridge.example/episodes?id=42&statusid=E2&resource=post", sent[1].Note.ID)
		require.Equal(t, "E2", s.cursor(t, 42))
	})

	t.Run("one failing actor does not stop the others", func(t *testing.T) {
		t.Parallel()

		s := newStore(t)
		s.follow(t, 1, "https://mastodon.example/users/alice")
		s.follow(t, 2, "https://mastodon.example/users/bob")
		s.follow(t, 3, "https://mastodon.example/users/carol")

		metadata := &fakeMetadata{failFeeds: map[uint64]bool{1: true}}
		metadata.setEpisodes(3, podcastindex.Item{GUID: "C1"})
		fanout := &fakeFanout{}

		newEpisodes(t, s, metadata, fanout).Poll(t.Context())

		sent := fanout.sent()
		require.Len(t, sent, 1)
		require.Equal(t, uint64(3), sent[0].Owner)
		require.Empty(t, s.cursor(t, 1))
		require.Empty(t, s.cursor(t, 2))
		require.Equal(t, "C1", s.cursor(t, 3))
	})

	t.Run("actors without followers are skipped", func(t *testing.T) {
		t.Parallel()

		s := newStore(t)
		require.NoError(t, s.actors.CreateIfAbsent(t.Context(), core.ActorModel{ID: 7}))

		metadata := &fakeMetadata{}
		metadata.setEpisodes(7, podcastindex.Item{GUID: "E1"})
		fanout := &fakeFanout{}

		newEpisodes(t, s, metadata, fanout).Poll(t.Context())

		require.Empty(t, fanout.sent())
		require.Empty(t, s.cursor(t, 7))
	})
}

func TestEpisodes_Run(t *testing.T) {
	defer goleak.VerifyNone(t, ignoreDB)

	s := newStore(t)
	s.follow(t, 42, "https://mastodon.example/users/alice")

	metadata := &fakeMetadata{}
	metadata.setEpisodes(42, podcastindex.Item{GUID: "E1"})
	fanout := &fakeFanout{}
	episodes := newEpisodes(t, s, metadata, fanout)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error)
	go func() { done <- episodes.Run(ctx) }()

	require.Eventually(t, func() bool { return len(fanout.sent()) == 1 }, time.Second, 5*time.Millisecond)

	metadata.setEpisodes(42, podcastindex.Item{GUID: "E2"})
	require.Eventually(t, func() bool { return len(fanout.sent()) == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

package followers_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"podfed/internal/core"
	"podfed/internal/persistence/followers"
	"podfed/internal/persistence/persistencetest"
)

func follower(owner uint64, remote, inbox, shared string) core.FollowerModel {
	return core.FollowerModel{
		OwnerActorID:   owner,
		RemoteActorID:  remote,
		InstanceHost:   "mastodon.example",
		InboxURL:       inbox,
		SharedInboxURL: shared,
	}
}

func TestRepository_Add(t *testing.T) {
	t.Parallel()

	t.Run("same pair twice keeps one row", func(t *testing.T) {
		t.Parallel()

		repo := &followers.Repository{DB: persistencetest.New(t)}

		require.NoError(t, repo.Add(t.Context(), follower(42, "https://mastodon.example/users/alice",
			"https://mastodon.example/users/alice/inbox", "")))
		require.NoError(t, repo.Add(t.Context(), follower(42, "https://mastodon.example/users/alice",
			"https://mastodon.example/users/alice/inbox", "https://mastodon.example/inbox")))

		count, err := repo.Count(t.Context(), 42)
		require.NoError(t, err)
		require.Equal(t, int64(1), count)

		list, err := repo.List(t.Context(), 42)
		require.NoError(t, err)
		require.Len(t, list, 1)
		require.Equal(t, "https://mastodon.example/inbox", list[0].SharedInboxURL)
		require.Equal(t, core.FollowerStatusAccepted, list[0].Status)
	})

	t.Run("shared inbox defaults to inbox", func(t *testing.T) {
		t.Parallel()

		repo := &followers.Repository{DB: persistencetest.New(t)}

		require.NoError(t, repo.Add(t.Context(), follower(42, "https://solo.example/u",
			"https://solo.example/u/inbox", "")))

		list, err := repo.List(t.Context(), 42)
		require.NoError(t, err)
		require.Len(t, list, 1)
		require.Equal(t, "https://solo.example/u/inbox", list[0].SharedInboxURL)
	})

	t.Run("owners are independent", func(t *testing.T) {
		t.Parallel()

		repo := &followers.Repository{DB: persistencetest.New(t)}

		require.NoError(t, repo.Add(t.Context(), follower(1, "https://a.example/u", "https://a.example/u/inbox", "")))
		require.NoError(t, repo.Add(t.Context(), follower(2, "https://a.example/u", "https://a.example/u/inbox", "")))

		count, err := repo.Count(t.Context(), 1)
		require.NoError(t, err)
		require.Equal(t, int64(1), count)

		count, err = repo.Count(t.Context(), 2)
		require.NoError(t, err)
		require.Equal(t, int64(1), count)
	})
}

func TestRepository_Remove(t *testing.T) {
	t.Parallel()

	t.Run("missing pair is a no-op", func(t *testing.T) {
		t.Parallel()

		repo := &followers.Repository{DB: persistencetest.New(t)}

		require.NoError(t, repo.Remove(t.Context(), 42, "https://mastodon.example/users/nobody"))

		list, err := repo.List(t.Context(), 42)
		require.NoError(t, err)
		require.Empty(t, list)
	})

	t.Run("removes only the matching pair", func(t *testing.T) {
		t.Parallel()

		repo := &followers.Repository{DB: persistencetest.New(t)}

		require.NoError(t, repo.Add(t.Context(), follower(42, "https://a.example/u", "https://a.example/u/inbox", "")))
		require.NoError(t, repo.Add(t.Context(), follower(42, "https://b.example/u", "https://b.example/u/inbox", "")))

		require.NoError(t, repo.Remove(t.Context(), 42, "https://a.example/u"))

		list, err := repo.List(t.Context(), 42)
		require.NoError(t, err)
		require.Len(t, list, 1)
		require.Equal(t, "https://b.example/u", list[0].RemoteActorID)
	})
}

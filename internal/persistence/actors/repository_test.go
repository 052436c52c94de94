package actors_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"podfed/internal/core"
	"podfed/internal/persistence/actors"
	"podfed/internal/persistence/followers"
	"podfed/internal/persistence/persistencetest"
)

func TestRepository(t *testing.T) {
	t.Parallel()

	t.Run("get missing", func(t *testing.T) {
		t.Parallel()

		repo := &actors.Repository{DB: persistencetest.New(t)}

		_, err := repo.Get(t.Context(), 42)
		require.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("create if absent keeps the first row", func(t *testing.T) {
		t.Parallel()

		repo := &actors.Repository{DB: persistencetest.New(t)}

		require.NoError(t, repo.CreateIfAbsent(t.Context(), core.ActorModel{ID: 42, PrivateKeyPEM: "first", PublicKeyPEM: "first-pub"}))
		require.NoError(t, repo.CreateIfAbsent(t.Context(), core.ActorModel{ID: 42, PrivateKeyPEM: "second", PublicKeyPEM: "second-pub"}))

		actor, err := repo.Get(t.Context(), 42)
		require.NoError(t, err)
		require.Equal(t, "first", actor.PrivateKeyPEM)
		require.Equal(t, "first-pub", actor.PublicKeyPEM)
		require.Empty(t, actor.LastEpisodeCursor)
	})

	t.Run("update cursor", func(t *testing.T) {
		t.Parallel()

		repo := &actors.Repository{DB: persistencetest.New(t)}

		require.NoError(t, repo.CreateIfAbsent(t.Context(), core.ActorModel{ID: 42, PrivateKeyPEM: "k", PublicKeyPEM: "p"}))
		require.NoError(t, repo.UpdateCursor(t.Context(), 42, "E1"))

		actor, err := repo.Get(t.Context(), 42)
		require.NoError(t, err)
		require.Equal(t, "E1", actor.LastEpisodeCursor)
	})

	t.Run("list with followers", func(t *testing.T) {
		t.Parallel()

		db := persistencetest.New(t)
		repo := &actors.Repository{DB: db}
		followerRepo := &followers.Repository{DB: db}

		for _, id := range []uint64{1, 2, 3} {
			require.NoError(t, repo.CreateIfAbsent(t.Context(), core.ActorModel{ID: id, PrivateKeyPEM: "k", PublicKeyPEM: "p"}))
		}
		require.NoError(t, followerRepo.Add(t.Context(), core.FollowerModel{
			OwnerActorID: 3, RemoteActorID: "https://a.example/u", InboxURL: "https://a.example/u/inbox",
		}))
		require.NoError(t, followerRepo.Add(t.Context(), core.FollowerModel{
			OwnerActorID: 1, RemoteActorID: "https://a.example/u", InboxURL: "https://a.example/u/inbox",
		}))
		require.NoError(t, followerRepo.Add(t.Context(), core.FollowerModel{
			OwnerActorID: 1, RemoteActorID: "https://b.example/u", InboxURL: "https://b.example/u/inbox",
		}))

		list, err := repo.ListWithFollowers(t.Context())
		require.NoError(t, err)
		require.Len(t, list, 2)
		require.Equal(t, uint64(1), list[0].ID)
		require.Equal(t, uint64(3), list[1].ID)
	})
}

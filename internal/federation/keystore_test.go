package federation_test

import (
	"crypto/rsa"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"podfed/internal/core"
	"podfed/internal/federation"
	"podfed/internal/httpsig"
	"podfed/internal/persistence/actors"
)

func TestKeyStore_GetOrCreate(t *testing.T) {
	t.Parallel()

	t.Run("second call generates nothing", func(t *testing.T) {
		t.Parallel()

		key := testKey(t)
		var generated atomic.Int32
		store := federation.NewKeyStore(&actors.Repository{DB: newDB(t)}, testURLs(t), func() (*rsa.PrivateKey, error) {
			generated.Add(1)
			return key, nil
		})

		first, err := store.GetOrCreate(t.Context(), 42)
		require.NoError(t, err)
		second, err := store.GetOrCreate(t.Context(), 42)
		require.NoError(t, err)

		require.Equal(t, int32(1), generated.Load())
		require.Equal(t, first.PrivateKeyPEM, second.PrivateKeyPEM)
		require.Equal(t, first.PublicKeyPEM, second.PublicKeyPEM)
		require.Empty(t, second.LastEpisodeCursor)
		require.Empty(t, second.GUID)

		decoded, err := httpsig.DecodePrivateKey(first.PrivateKeyPEM)
		require.NoError(t, err)
		require.True(t, decoded.Equal(key))
	})

	t.Run("stored row wins over a racing insert", func(t *testing.T) {
		t.Parallel()

		db := newDB(t)
		repo := &actors.Repository{DB: db}

		other, err := httpsig.GenerateKey()
		require.NoError(t, err)

		store := federation.NewKeyStore(repo, testURLs(t), func() (*rsa.PrivateKey, error) {
			// Another writer stores its pair between the miss and our insert.
			err := repo.CreateIfAbsent(t.Context(), core.ActorModel{
				ID:            42,
				PrivateKeyPEM: httpsig.EncodePrivateKeyPKCS1(other),
				PublicKeyPEM:  httpsig.EncodePublicKeyPKCS1(&other.PublicKey),
			})
			if err != nil {
				return nil, err
			}
			return testKey(t), nil
		})

		actor, err := store.GetOrCreate(t.Context(), 42)
		require.NoError(t, err)
		require.Equal(t, httpsig.EncodePrivateKeyPKCS1(other), actor.PrivateKeyPEM)
	})

	t.Run("generation failure", func(t *testing.T) {
		t.Parallel()

		store := federation.NewKeyStore(&actors.Repository{DB: newDB(t)}, testURLs(t), func() (*rsa.PrivateKey, error) {
			return nil, errors.New("no entropy")
		})

		_, err := store.GetOrCreate(t.Context(), 42)
		require.ErrorIs(t, err, httpsig.ErrKey)
	})
}

func TestKeyStore_Signer(t *testing.T) {
	t.Parallel()

	store := newKeyStore(t, newDB(t))

	signer, err := store.Signer(t.Context(), 42)
	require.NoError(t, err)
	require.Equal(t, "https://bridge.example/podcasts?id=42#main-key", signer.KeyID)
	require.True(t, signer.Key.Equal(testKey(t)))
}

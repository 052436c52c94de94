package federation

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"

	"podfed/internal/activitypub"
	"podfed/internal/core"
	"podfed/internal/httpsig"
)

// KeyStore reads actor keys through to storage, generating a pair the first
// time an actor is addressed. Nothing is cached.
type KeyStore struct {
	Actors core.ActorRepository
	URLs   *activitypub.URLs

	generate func() (*rsa.PrivateKey, error)
}

// NewKeyStore builds a store with a custom key generator.
func NewKeyStore(actors core.ActorRepository, urls *activitypub.URLs, generate func() (*rsa.PrivateKey, error)) *KeyStore {
	return &KeyStore{Actors: actors, URLs: urls, generate: generate}
}

func (k *KeyStore) GetOrCreate(ctx context.Context, actorID uint64) (*core.ActorModel, error) {
	actor, err := k.Actors.Get(ctx, actorID)
	if err == nil {
		return actor, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return nil, err
	}

	generate := k.generate
	if generate == nil {
		generate = httpsig.GenerateKey
	}

	key, err := generate()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", httpsig.ErrKey, err)
	}

	err = k.Actors.CreateIfAbsent(ctx, core.ActorModel{
		ID:            actorID,
		PrivateKeyPEM: httpsig.EncodePrivateKeyPKCS1(key),
		PublicKeyPEM:  httpsig.EncodePublicKeyPKCS1(&key.PublicKey),
	})
	if err != nil {
		return nil, err
	}

	// A concurrent first access may have won the insert.
	return k.Actors.Get(ctx, actorID)
}

func (k *KeyStore) Signer(ctx context.Context, actorID uint64) (*httpsig.Signer, error) {
	actor, err := k.GetOrCreate(ctx, actorID)
	if err != nil {
		return nil, err
	}

	key, err := httpsig.DecodePrivateKey(actor.PrivateKeyPEM)
	if err != nil {
		return nil, err
	}

	return &httpsig.Signer{Key: key, KeyID: k.URLs.KeyID(actorID)}, nil
}

package federation

import (
	"context"
	"fmt"
	"strings"

	"podfed/internal/activitypub"
	"podfed/internal/core"
	"podfed/internal/httpsig"
)

type Verifier struct {
	Remote core.RemoteActorFetcher
}

// Verify resolves the signature's keyId to the actor holding the key and
// checks the request against it. A key document naming another actor as its
// owner is only trusted when that actor publishes the same key id.
func (v *Verifier) Verify(ctx context.Context, ownerActorID uint64, req httpsig.Request) (string, error) {
	keyID, err := httpsig.KeyIDOf(req.Header)
	if err != nil {
		return "", err
	}

	docURL, _, _ := strings.Cut(keyID, "#")

	signer, err := v.fetch(ctx, ownerActorID, docURL)
	if err != nil {
		return "", err
	}

	if owner := signer.PublicKey.Owner; owner != "" && owner != signer.ID {
		signer, err = v.fetch(ctx, ownerActorID, owner)
		if err != nil {
			return "", err
		}
		if signer.PublicKey.ID != keyID {
			return "", fmt.Errorf("%w: %s does not claim key %s", httpsig.ErrSignature, owner, keyID)
		}
	}

	key, err := httpsig.DecodePublicKey(signer.PublicKey.PublicKeyPem)
	if err != nil {
		return "", fmt.Errorf("%w: %w", httpsig.ErrSignature, err)
	}

	if err := httpsig.Verify(req, key); err != nil {
		return "", err
	}
	return signer.ID, nil
}

// fetch returns the document at actorURL when it publishes a key under its
// own id.
func (v *Verifier) fetch(ctx context.Context, ownerActorID uint64, actorURL string) (*activitypub.RemoteActor, error) {
	actor, err := v.Remote.Fetch(ctx, ownerActorID, actorURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", httpsig.ErrSignature, err)
	}
	if actor.ID != actorURL {
		return nil, fmt.Errorf("%w: %s serves a document for %q", httpsig.ErrSignature, actorURL, actor.ID)
	}
	if actor.PublicKey == nil || actor.PublicKey.PublicKeyPem == "" {
		return nil, fmt.Errorf("%w: %s publishes no key", httpsig.ErrSignature, actorURL)
	}
	return actor, nil
}

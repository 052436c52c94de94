package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"podfed/internal/activitypub"
	"podfed/internal/federation"
	"podfed/internal/httpsig"
)

// MaxInboxBody caps inbound activity bodies.
const MaxInboxBody = 1 << 20

var errActorMismatch = errors.New("activity actor does not own the signing key")

func (s *Server) inbox(w http.ResponseWriter, r *http.Request) {
	owner, err := activitypub.ParseInboxID(r.URL.Query().Get("id"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxInboxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, err)
			return
		}
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	activity, err := activitypub.Parse(body)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	// Deletes of remote accounts arrive after the signing key is gone.
	if s.Config.VerifySignatures && activity.Kind() != activitypub.KindDelete {
		if err := s.verify(r, owner, body, activity); err != nil {
			writeError(w, r, http.StatusUnauthorized, err)
			return
		}
	}

	if err := s.Dispatcher.Dispatch(r.Context(), owner, activity); err != nil {
		writeError(w, r, dispatchStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) verify(r *http.Request, owner uint64, body []byte, activity *activitypub.Object) error {
	signer, err := s.Verifier.Verify(r.Context(), owner, httpsig.FromHTTP(r, body))
	if err != nil {
		return err
	}

	if actor := activity.Actor.IRI(); actor != "" && actor != signer {
		return fmt.Errorf("%w: %q signed by %q", errActorMismatch, actor, signer)
	}
	return nil
}

func dispatchStatus(err error) int {
	switch {
	case errors.Is(err, activitypub.ErrParse):
		return http.StatusBadRequest
	case errors.Is(err, federation.ErrUnknownOwner):
		return http.StatusNotFound
	case errors.Is(err, federation.ErrRemoteFetch), errors.Is(err, federation.ErrDelivery),
		errors.Is(err, federation.ErrMetadata):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

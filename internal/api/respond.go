package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"podfed/internal/activitypub"
	"podfed/internal/core"
)

const (
	contentTypeActivity = activitypub.ContentType + "; charset=utf-8"
	contentTypeJRD      = "application/jrd+json; charset=utf-8"
)

var errBadID = errors.New("missing or invalid id")

func writeJSON(w http.ResponseWriter, r *http.Request, contentType string, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		logger(r.Context()).Error("Failed to encode response", "error", err)
		http.Error(w, "Response prep error.", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	w.Write(body) //nolint:errcheck
}

func writeActivity(w http.ResponseWriter, r *http.Request, v any) {
	writeJSON(w, r, contentTypeActivity, http.StatusOK, v)
}

// writeError logs err and answers with status and its text.
func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	log := logger(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error("Request failed", "status", status, "error", err)
	} else {
		log.Debug("Request rejected", "status", status, "error", err)
	}
	http.Error(w, http.StatusText(status), status)
}

// metadataStatus maps a metadata source failure onto a response status.
func metadataStatus(err error) int {
	if errors.Is(err, core.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}

// actorID reads the id query parameter naming a podcast actor.
func actorID(r *http.Request) (uint64, error) {
	raw := r.URL.Query().Get("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == activitypub.SharedInboxID {
		return 0, fmt.Errorf("%w: %q", errBadID, raw)
	}
	return id, nil
}

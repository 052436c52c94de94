package api

import (
	"fmt"
	"html/template"
	"net/http"

	"github.com/samber/lo"

	"podfed/internal/activitypub"
	"podfed/pkg/podcastindex"
)

var profileTemplate = template.Must(template.New("profile").Parse(`<!DOCTYPE html>
<html lang="en">
  <head>
    <meta charset="utf-8" />
    <meta content="{{.Title}}" property="og:title" />
    <meta content="{{.ActorURL}}" property="og:url" />
    <meta content="{{.Description}}" property="og:description" />
    <meta content="article" property="og:type" />
    <meta content="{{.Image}}" property="og:image" />
    <meta content="150" property="og:image:width" />
    <meta content="150" property="og:image:height" />
    <title>{{.Title}}</title>
  </head>
  <body>
    <h1>{{.Title}}</h1>
    <p>{{.Description}}</p>
    <p><a href="{{.IndexURL}}">{{.IndexURL}}</a></p>
  </body>
</html>
`))

func (s *Server) webfinger(w http.ResponseWriter, r *http.Request) {
	resource := r.URL.Query().Get("resource")
	if resource == "" {
		writeError(w, r, http.StatusBadRequest, fmt.Errorf("%w: no resource", errBadID))
		return
	}

	id, ok := s.URLs.ParseAcct(resource)
	if !ok {
		writeError(w, r, http.StatusNotFound, fmt.Errorf("%w: %q", errBadID, resource))
		return
	}

	feed, err := s.Metadata.GetPodcast(r.Context(), id)
	if err != nil {
		writeError(w, r, metadataStatus(err), err)
		return
	}

	writeJSON(w, r, contentTypeJRD, http.StatusOK, activitypub.NewWebfinger(s.URLs, feed))
}

func (s *Server) actor(w http.ResponseWriter, r *http.Request) {
	id, err := actorID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	feed, err := s.Metadata.GetPodcast(r.Context(), id)
	if err != nil {
		writeError(w, r, metadataStatus(err), err)
		return
	}

	keys, err := s.Keys.GetOrCreate(r.Context(), id)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}

	writeActivity(w, r, activitypub.NewActor(s.URLs, feed, keys.PublicKeyPEM))
}

func (s *Server) profile(w http.ResponseWriter, r *http.Request) {
	id, err := actorID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	feed, err := s.Metadata.GetPodcast(r.Context(), id)
	if err != nil {
		writeError(w, r, metadataStatus(err), err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err = profileTemplate.Execute(w, map[string]string{
		"Title":       feed.Title,
		"Description": activitypub.PlainText(feed.Description),
		"Image":       lo.Ternary(feed.Image != "", feed.Image, feed.Artwork),
		"ActorURL":    s.URLs.Actor(id),
		"IndexURL":    activitypub.ProfileURL(id),
	})
	if err != nil {
		logger(r.Context()).Error("Failed to render profile", "error", err)
	}
}

func (s *Server) outbox(w http.ResponseWriter, r *http.Request) {
	id, err := actorID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	if r.URL.Query().Get("page") != "true" {
		feed, err := s.Metadata.GetPodcast(r.Context(), id)
		if err != nil {
			writeError(w, r, metadataStatus(err), err)
			return
		}
		writeActivity(w, r, activitypub.NewOutbox(s.URLs, id, int64(feed.EpisodeCount)))
		return
	}

	items, err := s.Metadata.GetEpisodes(r.Context(), id, activitypub.OutboxPageSize)
	if err != nil {
		writeError(w, r, metadataStatus(err), err)
		return
	}

	writeActivity(w, r, activitypub.NewOutboxPage(s.URLs, id, int64(len(items)), items))
}

func (s *Server) followers(w http.ResponseWriter, r *http.Request) {
	id, err := actorID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	count, err := s.Followers.Count(r.Context(), id)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}

	writeActivity(w, r, activitypub.NewFollowers(s.URLs, id, count))
}

// following is always empty; podcast actors follow nobody.
func (s *Server) following(w http.ResponseWriter, r *http.Request) {
	id, err := actorID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	writeActivity(w, r, activitypub.OrderedCollection{
		Context: activitypub.ActivityStreamsContext,
		ID:      s.URLs.Following(id),
		Type:    "OrderedCollection",
	})
}

func (s *Server) featured(w http.ResponseWriter, r *http.Request) {
	id, err := actorID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	writeActivity(w, r, activitypub.NewFeatured(s.URLs, id))
}

func (s *Server) episode(w http.ResponseWriter, r *http.Request) {
	id, err := actorID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	statusID := r.URL.Query().Get("statusid")
	if statusID == "" {
		writeError(w, r, http.StatusBadRequest, fmt.Errorf("%w: no status id", errBadID))
		return
	}

	if statusID == activitypub.PinnedStatusID {
		writeActivity(w, r, activitypub.NewPinnedNote(s.URLs, id))
		return
	}

	items, err := s.Metadata.GetEpisodes(r.Context(), id, activitypub.OutboxPageSize)
	if err != nil {
		writeError(w, r, metadataStatus(err), err)
		return
	}

	item, ok := lo.Find(items, func(item podcastindex.Item) bool { return item.GUID == statusID })
	if !ok {
		writeError(w, r, http.StatusNotFound, fmt.Errorf("episode %q of %d not found", statusID, id))
		return
	}

	note := activitypub.NewEpisodeNote(s.URLs, id, item)
	if r.URL.Query().Get("resource") == "activity" {
		writeActivity(w, r, activitypub.NewCreate(s.URLs, id, statusID, note))
		return
	}

	writeActivity(w, r, note)
}

// context summarises the replies received in an episode's thread.
func (s *Server) context(w http.ResponseWriter, r *http.Request) {
	id, err := actorID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	statusID := r.URL.Query().Get("statusid")

	count, err := s.Replies.CountByEpisode(r.Context(), id, statusID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}

	writeActivity(w, r, activitypub.OrderedCollection{
		Context:    activitypub.ActivityStreamsContext,
		ID:         s.URLs.Context(id, statusID),
		Type:       "OrderedCollection",
		TotalItems: count,
	})
}

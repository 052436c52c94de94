package activitypub

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrBaseURL = errors.New("invalid base url")

const (
	pathActor     = "/podcasts"
	pathInbox     = "/inbox"
	pathOutbox    = "/outbox"
	pathFollowers = "/followers"
	pathFollowing = "/following"
	pathFeatured  = "/featured"
	pathEpisodes  = "/episodes"
	pathContexts  = "/contexts"

	// SharedInboxID is the inbox id that addresses every actor at once.
	SharedInboxID uint64 = 0

	// PinnedStatusID is the status id of the pinned introduction note.
	PinnedStatusID = "0"
)

// URLs builds and recognises the bridge's own URLs. Every actor-scoped
// resource carries the podcast id in the id query parameter.
type URLs struct {
	base *url.URL
}

func NewURLs(base string) (*URLs, error) {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBaseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q needs a scheme and a host", ErrBaseURL, base)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return &URLs{base: u}, nil
}

func (u *URLs) Host() string {
	return u.base.Host
}

func (u *URLs) Base() string {
	return u.base.String()
}

func (u *URLs) build(path string, params ...string) string {
	out := u.Base() + path
	for i := 0; i+1 < len(params); i += 2 {
		sep := "&"
		if i == 0 {
			sep = "?"
		}
		out += sep + params[i] + "=" + url.QueryEscape(params[i+1])
	}
	return out
}

func formatID(podcastID uint64) string {
	return strconv.FormatUint(podcastID, 10)
}

func (u *URLs) Actor(podcastID uint64) string {
	return u.build(pathActor, "id", formatID(podcastID))
}

func (u *URLs) KeyID(podcastID uint64) string {
	return u.Actor(podcastID) + "#main-key"
}

func (u *URLs) Inbox(podcastID uint64) string {
	return u.build(pathInbox, "id", formatID(podcastID))
}

func (u *URLs) SharedInbox() string {
	return u.Inbox(SharedInboxID)
}

func (u *URLs) Outbox(podcastID uint64) string {
	return u.build(pathOutbox, "id", formatID(podcastID))
}

func (u *URLs) OutboxFirst(podcastID uint64) string {
	return u.build(pathOutbox, "id", formatID(podcastID), "page", "true")
}

func (u *URLs) OutboxLast(podcastID uint64) string {
	return u.build(pathOutbox, "id", formatID(podcastID), "page", "true", "min_id", "0")
}

func (u *URLs) Followers(podcastID uint64) string {
	return u.build(pathFollowers, "id", formatID(podcastID))
}

func (u *URLs) Following(podcastID uint64) string {
	return u.build(pathFollowing, "id", formatID(podcastID))
}

func (u *URLs) Featured(podcastID uint64) string {
	return u.build(pathFeatured, "id", formatID(podcastID))
}

// Note is the id of the note announcing statusID (an episode guid).
func (u *URLs) Note(podcastID uint64, statusID string) string {
	return u.build(pathEpisodes, "id", formatID(podcastID), "statusid", statusID, "resource", "post")
}

// Activity is the id of the Create wrapping the note for statusID.
func (u *URLs) Activity(podcastID uint64, statusID string) string {
	return u.build(pathEpisodes, "id", formatID(podcastID), "statusid", statusID, "resource", "activity")
}

func (u *URLs) Pinned(podcastID uint64) string {
	return u.build(pathEpisodes, "id", formatID(podcastID), "statusid", PinnedStatusID)
}

func (u *URLs) Context(podcastID uint64, statusID string) string {
	return u.build(pathContexts, "id", formatID(podcastID), "statusid", statusID)
}

// Accept is a fresh id for an Accept sent by the actor.
func (u *URLs) Accept(podcastID uint64) string {
	return u.build(pathActor, "id", formatID(podcastID), "context", "accept", "nonce", uuid.NewString())
}

// Conversation is the OStatus conversation tag of an episode thread.
func (u *URLs) Conversation(statusID string, published time.Time) string {
	return fmt.Sprintf("tag:%s,%s:objectId=%s:objectType=Conversation",
		u.Host(), published.UTC().Format(time.RFC3339), statusID)
}

// Acct is the webfinger subject of an actor.
func (u *URLs) Acct(podcastID uint64) string {
	return "acct:" + formatID(podcastID) + "@" + u.Host()
}

// ParseAcct extracts the podcast id from a webfinger resource, accepting
// "acct:<id>@<host>", "<id>@<host>" and the actor URL itself.
func (u *URLs) ParseAcct(resource string) (uint64, bool) {
	if podcastID, ok := u.ParseActor(resource); ok {
		return podcastID, true
	}

	name := strings.TrimPrefix(resource, "acct:")
	name = strings.TrimPrefix(name, "@")
	user, host, found := strings.Cut(name, "@")
	if found && !strings.EqualFold(host, u.Host()) {
		return 0, false
	}
	podcastID, err := strconv.ParseUint(user, 10, 64)
	if err != nil || podcastID == SharedInboxID {
		return 0, false
	}
	return podcastID, true
}

// ParseActor reports the podcast id of one of the bridge's actor URLs.
func (u *URLs) ParseActor(raw string) (uint64, bool) {
	q, ok := u.match(raw, pathActor)
	if !ok {
		return 0, false
	}
	return parseID(q.Get("id"))
}

// ParseNote reports the podcast id and status id of one of the bridge's note
// URLs.
func (u *URLs) ParseNote(raw string) (uint64, string, bool) {
	q, ok := u.match(raw, pathEpisodes)
	if !ok {
		return 0, "", false
	}
	podcastID, ok := parseID(q.Get("id"))
	statusID := q.Get("statusid")
	if !ok || statusID == "" {
		return 0, "", false
	}
	return podcastID, statusID, true
}

func (u *URLs) match(raw, path string) (url.Values, bool) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, false
	}
	if !strings.EqualFold(parsed.Host, u.base.Host) || parsed.Path != u.base.Path+path {
		return nil, false
	}
	return parsed.Query(), true
}

func parseID(raw string) (uint64, bool) {
	podcastID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || podcastID == SharedInboxID {
		return 0, false
	}
	return podcastID, true
}

// ParseInboxID reads the id query parameter of an inbox request. A missing
// id addresses the shared inbox.
func ParseInboxID(raw string) (uint64, error) {
	if raw == "" {
		return SharedInboxID, nil
	}
	podcastID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad inbox id %q", ErrParse, raw)
	}
	return podcastID, nil
}

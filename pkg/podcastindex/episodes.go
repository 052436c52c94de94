package podcastindex

import (
	"context"
	"strconv"
	"time"
)

const (
	episodesByFeedID  = "/episodes/byfeedid"
	episodesByFeedURL = "/episodes/byfeedurl"

	LiveStatusLive    = "live"
	LiveStatusPending = "pending"
	LiveStatusEnded   = "ended"
)

// https://podcastindex-org.github.io/docs-api/#get-/episodes/byfeedid
type Item struct {
	ID            uint64 `json:"id"`
	GUID          string `json:"guid"`
	Title         string `json:"title"`
	Link          string `json:"link"`
	Description   string `json:"description"`
	DatePublished int64  `json:"datePublished"`
	EnclosureURL  string `json:"enclosureUrl"`
	EnclosureType string `json:"enclosureType"`
	Duration      int64  `json:"duration"`
	Image         string `json:"image"`
	FeedImage     string `json:"feedImage"`
	FeedID        uint64 `json:"feedId"`
}

func (i Item) Published() time.Time {
	return time.Unix(i.DatePublished, 0).UTC()
}

// LiveItem is a podcast:liveItem from the feed.
type LiveItem struct {
	Item

	Status      string `json:"status"`
	StartTime   int64  `json:"startTime"`
	EndTime     int64  `json:"endTime"`
	ContentLink string `json:"contentLink"`
}

func (i LiveItem) IsLive() bool {
	return i.Status == LiveStatusLive
}

// ListenURL prefers the live stream's web page over the raw enclosure.
func (i LiveItem) ListenURL() string {
	if i.ContentLink != "" {
		return i.ContentLink
	}
	return i.EnclosureURL
}

type Episodes struct {
	Items     []Item     `json:"items"`
	LiveItems []LiveItem `json:"liveItems"`
	Count     int        `json:"count"`
}

// EpisodesByFeedID returns the newest episodes of a feed, newest first.
func (c *Client) EpisodesByFeedID(ctx context.Context, id uint64, limit int) (*Episodes, error) {
	type response struct {
		status
		Episodes
	}

	req := c.r(ctx).
		SetQueryParam("id", strconv.FormatUint(id, 10)).
		SetResult(&response{})
	if limit > 0 {
		req.SetQueryParam("max", strconv.Itoa(limit))
	}

	res, err := req.Get(episodesByFeedID)
	if err := check(res, err); err != nil {
		return nil, err
	}

	return &res.Result().(*response).Episodes, nil
}

// EpisodesByFeedURL returns a feed's episodes and its live items.
func (c *Client) EpisodesByFeedURL(ctx context.Context, feedURL string, limit int) (*Episodes, error) {
	type response struct {
		status
		Episodes
	}

	req := c.r(ctx).
		SetQueryParam("url", feedURL).
		SetResult(&response{})
	if limit > 0 {
		req.SetQueryParam("max", strconv.Itoa(limit))
	}

	res, err := req.Get(episodesByFeedURL)
	if err := check(res, err); err != nil {
		return nil, err
	}

	return &res.Result().(*response).Episodes, nil
}

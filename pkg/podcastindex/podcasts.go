package podcastindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

const (
	podcastsByFeedID = "/podcasts/byfeedid"
)

// https://podcastindex-org.github.io/docs-api/#get-/podcasts/byfeedid
type Feed struct {
	ID          uint64 `json:"id"`
	PodcastGUID string `json:"podcastGuid"`
	Medium      string `json:"medium"`

	Title       string `json:"title"`
	URL         string `json:"url"`
	OriginalURL string `json:"originalUrl"`
	Link        string `json:"link"`
	Description string `json:"description"`
	Author      string `json:"author"`
	OwnerName   string `json:"ownerName"`
	Image       string `json:"image"`
	Artwork     string `json:"artwork"`
	Language    string `json:"language"`

	EpisodeCount int `json:"episodeCount"`
}

func (c *Client) PodcastByFeedID(ctx context.Context, id uint64) (*Feed, error) {
	type response struct {
		status
		// Unknown feeds come back as an empty array instead of an object.
		Feed json.RawMessage `json:"feed"`
	}

	res, err := c.r(ctx).
		SetQueryParam("id", strconv.FormatUint(id, 10)).
		SetResult(&response{}).
		Get(podcastsByFeedID)
	if err := check(res, err); err != nil {
		return nil, err
	}

	raw := bytes.TrimSpace(res.Result().(*response).Feed)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, fmt.Errorf("%w: feed %d", ErrNotFound, id)
	}

	var feed Feed
	if err := json.Unmarshal(raw, &feed); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequest, err)
	}
	return &feed, nil
}

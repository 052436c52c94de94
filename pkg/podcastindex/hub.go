package podcastindex

import (
	"context"
	"strconv"
)

const (
	hubPubNotify = "/hub/pubnotify"
)

// PubNotify asks the index to re-crawl a feed.
func (c *Client) PubNotify(ctx context.Context, id uint64) error {
	res, err := c.r(ctx).
		SetQueryParam("id", strconv.FormatUint(id, 10)).
		Get(hubPubNotify)
	return check(res, err)
}

// Package podcastindex is a small client for the PodcastIndex.org API.
package podcastindex

import (
	"context"
	"crypto/sha1" //nolint:gosec
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"resty.dev/v3"
)

var (
	ErrRequest  = errors.New("podcastindex request failed")
	ErrNotFound = errors.New("podcastindex: not found")
)

type Client struct {
	client *resty.Client
	config ClientConfig
}

func NewClient(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig
	}
	cfg := *config
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.TransportSettings == nil {
		cfg.TransportSettings = DefaultConfig.TransportSettings
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	client := resty.NewWithTransportSettings(cfg.TransportSettings).
		SetBaseURL(cfg.BaseURL).
		SetHeader("User-Agent", cfg.UserAgent)

	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	for _, m := range cfg.RequestMiddlewares {
		client.AddRequestMiddleware(m)
	}
	for _, m := range cfg.ResponseMiddlewares {
		client.AddResponseMiddleware(m)
	}

	return &Client{
		client: client,
		config: cfg,
	}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// r returns a request carrying fresh authentication headers.
func (c *Client) r(ctx context.Context) *resty.Request {
	date := strconv.FormatInt(c.config.Now().Unix(), 10)

	return c.client.R().
		WithContext(ctx).
		SetHeader("X-Auth-Date", date).
		SetHeader("X-Auth-Key", c.config.Key).
		SetHeader("Authorization", AuthToken(c.config.Key, c.config.Secret, date))
}

// AuthToken is the lowercase hex sha1 of key, secret and unix date
// concatenated.
func AuthToken(key, secret, date string) string {
	sum := sha1.Sum([]byte(key + secret + date)) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

// status is the envelope every API response carries.
type status struct {
	Status      any    `json:"status"`
	Description string `json:"description"`
}

func check(res *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequest, err)
	}
	if res.StatusCode() == 404 {
		return fmt.Errorf("%w: %s", ErrNotFound, res.Request.URL)
	}
	if !res.IsSuccess() {
		return fmt.Errorf("%w: %s %s: %s", ErrRequest, res.Request.Method, res.Request.URL, res.Status())
	}
	return nil
}

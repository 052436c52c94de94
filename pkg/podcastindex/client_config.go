package podcastindex

import (
	"time"

	"resty.dev/v3"
)

const (
	DefaultBaseURL   = "https://api.podcastindex.org/api/1.0"
	DefaultUserAgent = "podfed/0.1"
)

type ClientConfig struct {
	BaseURL   string
	UserAgent string

	Key    string
	Secret string

	Timeout           time.Duration
	TransportSettings *resty.TransportSettings

	ResponseMiddlewares []resty.ResponseMiddleware
	RequestMiddlewares  []resty.RequestMiddleware

	// Now is the clock used for X-Auth-Date; overridable in tests.
	Now func() time.Time
}

var DefaultConfig = &ClientConfig{
	BaseURL:   DefaultBaseURL,
	UserAgent: DefaultUserAgent,
	Timeout:   10 * time.Second,
	TransportSettings: &resty.TransportSettings{
		DialerTimeout:         5 * time.Second,
		DialerKeepAlive:       30 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
	},
}

package federation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"resty.dev/v3"

	"podfed/internal/activitypub"
	"podfed/internal/config"
	"podfed/internal/core"
	"podfed/internal/metrics"
	"podfed/pkg/podcastindex"
	"podfed/pkg/retry"
)

const (
	defaultTimeout      = 10 * time.Second
	deliveryBackoffBase = 500 * time.Millisecond
)

// statusError is a non-2xx answer from a remote server.
type statusError struct {
	code   int
	status string
}

func (e statusError) Error() string {
	return e.status
}

// retryable reports whether a failed delivery may succeed later: transport
// errors, rate limiting and server errors.
func retryable(err error, _ int) bool {
	var se statusError
	if !errors.As(err, &se) {
		return true
	}
	return se.code == http.StatusTooManyRequests || se.code >= http.StatusInternalServerError
}

// Client performs signed requests on behalf of the bridge's actors.
type Client struct {
	Logger *slog.Logger
	Config *config.Config
	Keys   core.KeyStore

	client *resty.Client
}

func (c *Client) Init(_ context.Context) error {
	c.Logger = c.Logger.With("component", "federation.Client")

	timeout := c.Config.HTTPTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	userAgent := c.Config.UserAgent
	if userAgent == "" {
		userAgent = podcastindex.DefaultUserAgent
	}

	c.client = resty.NewWithTransportSettings(podcastindex.DefaultConfig.TransportSettings).
		SetHeader("User-Agent", userAgent).
		SetTimeout(timeout).
		AddResponseMiddleware(metrics.HostLatency(metrics.FederationLatency))

	return nil
}

func (c *Client) Shutdown(_ context.Context) error {
	return c.client.Close()
}

// Fetch GETs an actor document. Requests on behalf of the shared inbox are
// sent unsigned.
func (c *Client) Fetch(ctx context.Context, ownerActorID uint64, actorURL string) (*activitypub.RemoteActor, error) {
	req := c.client.R().
		WithContext(ctx).
		SetHeader("Accept", activitypub.ContentType+", "+activitypub.ContentTypeLD)

	if ownerActorID != activitypub.SharedInboxID {
		signer, err := c.Keys.Signer(ctx, ownerActorID)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRemoteFetch, err)
		}
		headers, err := signer.Sign(http.MethodGet, actorURL, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRemoteFetch, err)
		}
		req.SetHeaders(headers.Map())
	}

	res, err := req.Get(actorURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRemoteFetch, err)
	}
	if !res.IsSuccess() {
		return nil, fmt.Errorf("%w: GET %s: %s", ErrRemoteFetch, actorURL, res.Status())
	}

	var actor activitypub.RemoteActor
	if err := json.Unmarshal(res.Bytes(), &actor); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRemoteFetch, actorURL, err)
	}
	if actor.Inbox == "" {
		return nil, fmt.Errorf("%w: %s has no inbox", ErrRemoteFetch, actorURL)
	}

	return &actor, nil
}

// Deliver POSTs activity to inboxURL, retrying transient failures up to the
// configured number of attempts. Every attempt is signed afresh.
func (c *Client) Deliver(ctx context.Context, ownerActorID uint64, inboxURL string, activity *activitypub.Object) error {
	body, err := json.Marshal(activity)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDelivery, err)
	}

	signer, err := c.Keys.Signer(ctx, ownerActorID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDelivery, err)
	}

	err = retry.Do(ctx, c.Config.DeliveryAttempts, deliveryBackoffBase, retryable, func(ctx context.Context) error {
		headers, err := signer.Sign(http.MethodPost, inboxURL, body)
		if err != nil {
			return err
		}

		res, err := c.client.R().
			WithContext(ctx).
			SetHeader("Content-Type", activitypub.ContentType).
			SetHeaders(headers.Map()).
			SetBody(body).
			Post(inboxURL)
		if err != nil {
			return err
		}
		if !res.IsSuccess() {
			return statusError{code: res.StatusCode(), status: res.Status()}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: POST %s: %w", ErrDelivery, inboxURL, err)
	}

	c.Logger.Debug("Delivered activity", "inbox", inboxURL, "type", activity.Type, "actor_id", ownerActorID)
	return nil
}

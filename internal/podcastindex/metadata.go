// Package podcastindex adapts the PodcastIndex API client to the bridge's
// metadata source.
package podcastindex

import (
	"context"
	"errors"
	"log/slog"

	"resty.dev/v3"

	"podfed/internal/config"
	"podfed/internal/core"
	"podfed/internal/metrics"
	"podfed/pkg/podcastindex"
)

// liveLookupLimit bounds the episode list fetched alongside live items.
const liveLookupLimit = 1

type Metadata struct {
	Logger *slog.Logger
	Config *config.Config

	client *podcastindex.Client
}

// NewMetadata wraps an existing client.
func NewMetadata(logger *slog.Logger, client *podcastindex.Client) *Metadata {
	return &Metadata{
		Logger: logger.With("component", "podcastindex.Metadata"),
		client: client,
	}
}

func (m *Metadata) Init(_ context.Context) error {
	m.Logger = m.Logger.With("component", "podcastindex.Metadata")

	m.client = podcastindex.NewClient(&podcastindex.ClientConfig{
		BaseURL:           m.Config.PodcastIndexURL,
		UserAgent:         m.Config.UserAgent,
		Key:               m.Config.PodcastIndexKey,
		Secret:            m.Config.PodcastIndexSecret,
		Timeout:           m.Config.HTTPTimeout,
		TransportSettings: podcastindex.DefaultConfig.TransportSettings,

		ResponseMiddlewares: []resty.ResponseMiddleware{metrics.PathLatency(metrics.PodcastIndexLatency)},
	})

	return nil
}

func (m *Metadata) Shutdown(_ context.Context) error {
	return m.client.Close()
}

func (m *Metadata) GetPodcast(ctx context.Context, id uint64) (*podcastindex.Feed, error) {
	feed, err := m.client.PodcastByFeedID(ctx, id)
	return feed, notFound(err)
}

func (m *Metadata) GetEpisodes(ctx context.Context, id uint64, limit int) ([]podcastindex.Item, error) {
	episodes, err := m.client.EpisodesByFeedID(ctx, id, limit)
	if err != nil {
		return nil, notFound(err)
	}
	return episodes.Items, nil
}

func (m *Metadata) GetLiveItems(ctx context.Context, feedURL string) ([]podcastindex.LiveItem, error) {
	episodes, err := m.client.EpisodesByFeedURL(ctx, feedURL, liveLookupLimit)
	if err != nil {
		return nil, notFound(err)
	}
	return episodes.LiveItems, nil
}

func (m *Metadata) Rescan(ctx context.Context, id uint64) error {
	m.Logger.Info("Requesting feed rescan", "podcast_id", id)
	return m.client.PubNotify(ctx, id)
}

func notFound(err error) error {
	if errors.Is(err, podcastindex.ErrNotFound) {
		return errors.Join(core.ErrNotFound, err)
	}
	return err
}

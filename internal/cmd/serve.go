package cmd

import (
	"context"

	"github.com/urfave/cli/v3"
	"github.com/zhulik/pal"

	"podfed/internal/activitypub"
	"podfed/internal/api"
	"podfed/internal/cmd/flags"
	"podfed/internal/config"
	"podfed/internal/core"
	"podfed/internal/federation"
	"podfed/internal/metrics"
	"podfed/internal/nats"
	"podfed/internal/persistence"
	"podfed/internal/persistence/actors"
	"podfed/internal/persistence/followers"
	"podfed/internal/persistence/replies"
	"podfed/internal/podcastindex"
	"podfed/internal/podping"
	"podfed/internal/tracking"
)

var serveCmd = &cli.Command{
	Name:  "serve",
	Usage: "Serve the ActivityPub actors, announce new episodes and live streams to followers",
	Flags: []cli.Flag{
		flags.Listen,
		flags.MetricsListen,
		flags.BaseURL,
		flags.DatabaseURL,
		flags.PodcastIndexKey,
		flags.PodcastIndexSecret,
		flags.PodcastIndexURL,
		flags.UserAgent,
		flags.PodpingURL,
		flags.NATSURL,
		flags.InitNATS,
		flags.PollInterval,
		flags.ActorDelay,
		flags.HTTPTimeout,
		flags.DeliveryAttempts,
		flags.DeliveryConcurrency,
		flags.VerifySignatures,
		flags.LiveReasons,
	},
	Action: func(ctx context.Context, c *cli.Command) error {
		return run(ctx, c, func(cfg *config.Config) ([]pal.ServiceImpl, error) {
			urls, err := activitypub.NewURLs(cfg.BaseURL)
			if err != nil {
				return nil, err
			}

			return []pal.ServiceImpl{
				pal.ProvideConst[*activitypub.URLs](urls),

				pal.Provide[core.DB, persistence.DB](),
				pal.Provide[core.ActorRepository, actors.Repository](),
				pal.Provide[core.FollowerRepository, followers.Repository](),
				pal.Provide[core.ReplyRepository, replies.Repository](),

				pal.Provide[core.Metadata, podcastindex.Metadata](),

				pal.Provide[core.KeyStore, federation.KeyStore](),
				pal.Provide[core.RemoteActorFetcher, federation.Client](),
				pal.Provide[core.Deliverer, federation.Client](),
				pal.Provide[core.SignatureVerifier, federation.Verifier](),
				pal.Provide[core.Dispatcher, federation.Dispatcher](),
				pal.Provide[core.Fanout, federation.Fanout](),

				pal.Provide[core.LiveDedupe, nats.NATS](),
				pal.Provide[core.PodpingStream, podping.Subscriber](),

				pal.Provide[core.EpisodeTracker, tracking.Episodes](),
				pal.Provide[core.LiveTracker, tracking.Live](),

				pal.Provide[core.APIServer, api.Server](),
				pal.Provide[core.MetricsServer, metrics.HTTPServer](),
				pal.Provide[core.MetricsCollector, metrics.Collector](),
			}, nil
		})
	},
}

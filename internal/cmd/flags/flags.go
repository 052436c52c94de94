package flags

import (
	"fmt"
	"slices"
	"time"

	libnats "github.com/nats-io/nats.go"
	"github.com/urfave/cli/v3"

	"podfed/internal/activitypub"
	"podfed/internal/podping"
	"podfed/pkg/podcastindex"
)

var validLogLevels = []string{"debug", "info", "warn", "error"}

var LogLevel = &cli.StringFlag{
	Name:    "log-level",
	Aliases: []string{"l"},
	Usage:   "The level of the logs",
	Value:   "info",
	Validator: func(value string) error {
		if !slices.Contains(validLogLevels, value) {
			return fmt.Errorf("invalid log level: %s, allowed values are: %s", value, validLogLevels)
		}
		return nil
	},
	Sources: cli.EnvVars("LOG_LEVEL"),
}

var Inspect = &cli.BoolFlag{
	Name:    "inspect",
	Usage:   "Expose the service graph inspector",
	Sources: cli.EnvVars("INSPECT"),
}

var Listen = &cli.StringFlag{
	Name:    "listen",
	Usage:   "The address the ActivityPub server listens on",
	Value:   ":8888",
	Sources: cli.EnvVars("LISTEN"),
}

var MetricsListen = &cli.StringFlag{
	Name:    "metrics-listen",
	Usage:   "The address the metrics and health server listens on",
	Value:   ":9090",
	Sources: cli.EnvVars("METRICS_LISTEN"),
}

var BaseURL = &cli.StringFlag{
	Name:     "base-url",
	Aliases:  []string{"b"},
	Usage:    "The public URL of the bridge, e.g. https://ap.podcastindex.org",
	Required: true,
	Validator: func(value string) error {
		_, err := activitypub.NewURLs(value)
		return err
	},
	Sources: cli.EnvVars("BASE_URL"),
}

var DatabaseURL = &cli.StringFlag{
	Name:     "database-url",
	Aliases:  []string{"d"},
	Usage:    "The postgres connection URL",
	Required: true,
	Sources:  cli.EnvVars("DATABASE_URL"),
}

var PodcastIndexKey = &cli.StringFlag{
	Name:     "podcastindex-key",
	Usage:    "The PodcastIndex API key",
	Required: true,
	Sources:  cli.EnvVars("PODCASTINDEX_KEY"),
}

var PodcastIndexSecret = &cli.StringFlag{
	Name:     "podcastindex-secret",
	Usage:    "The PodcastIndex API secret",
	Required: true,
	Sources:  cli.EnvVars("PODCASTINDEX_SECRET"),
}

var PodcastIndexURL = &cli.StringFlag{
	Name:    "podcastindex-url",
	Usage:   "The PodcastIndex API base URL",
	Value:   podcastindex.DefaultBaseURL,
	Sources: cli.EnvVars("PODCASTINDEX_URL"),
}

var UserAgent = &cli.StringFlag{
	Name:    "user-agent",
	Usage:   "The User-Agent of outbound requests",
	Value:   podcastindex.DefaultUserAgent,
	Sources: cli.EnvVars("USER_AGENT"),
}

var PodpingURL = &cli.StringFlag{
	Name:    "podping-url",
	Usage:   "The websocket URL of the podping stream",
	Value:   podping.DefaultURL,
	Sources: cli.EnvVars("PODPING_URL"),
}

var NATSURL = &cli.StringFlag{
	Name:    "nats-url",
	Aliases: []string{"n"},
	Usage:   "The URL of the NATS server, e.g. " + libnats.DefaultURL + "; live items are deduplicated in memory when empty",
	Sources: cli.EnvVars("NATS_URL"),
}

var InitNATS = &cli.BoolFlag{
	Name:        "nats-init",
	Aliases:     []string{"i"},
	Usage:       "Initialize the NATS server: create the key-value bucket",
	DefaultText: "false",
	Value:       false,
	Sources:     cli.EnvVars("NATS_INIT"),
}

var PollInterval = &cli.DurationFlag{
	Name:    "poll-interval",
	Usage:   "How often followed podcasts are checked for new episodes",
	Value:   time.Minute,
	Sources: cli.EnvVars("POLL_INTERVAL"),
}

var ActorDelay = &cli.DurationFlag{
	Name:    "actor-delay",
	Usage:   "The pause between two podcasts during an episode poll",
	Value:   2 * time.Second,
	Sources: cli.EnvVars("ACTOR_DELAY"),
}

var HTTPTimeout = &cli.DurationFlag{
	Name:    "http-timeout",
	Usage:   "The timeout of every outbound HTTP request",
	Value:   10 * time.Second,
	Sources: cli.EnvVars("HTTP_TIMEOUT"),
}

var DeliveryAttempts = &cli.IntFlag{
	Name:    "delivery-attempts",
	Usage:   "Attempts per inbox delivery, transient failures are retried with jittered backoff",
	Value:   1,
	Sources: cli.EnvVars("DELIVERY_ATTEMPTS"),
	Validator: func(value int) error {
		if value < 1 {
			return fmt.Errorf("delivery attempts must be positive, got %d", value)
		}
		return nil
	},
}

var DeliveryConcurrency = &cli.IntFlag{
	Name:    "delivery-concurrency",
	Usage:   "Concurrent inbox deliveries per announcement",
	Value:   8,
	Sources: cli.EnvVars("DELIVERY_CONCURRENCY"),
	Validator: func(value int) error {
		if value < 1 {
			return fmt.Errorf("delivery concurrency must be positive, got %d", value)
		}
		return nil
	},
}

var VerifySignatures = &cli.BoolFlag{
	Name:    "verify-signatures",
	Usage:   "Reject inbox requests without a valid HTTP signature",
	Value:   true,
	Sources: cli.EnvVars("VERIFY_SIGNATURES"),
}

var LiveReasons = &cli.StringSliceFlag{
	Name:    "live-reasons",
	Usage:   "Podping reasons that announce a live stream",
	Value:   []string{"live"},
	Sources: cli.EnvVars("LIVE_REASONS"),
}

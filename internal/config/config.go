package config

import "time"

type Config struct {
	LogLevel string `flag:"log-level"`

	Listen        string `flag:"listen"`
	MetricsListen string `flag:"metrics-listen"`
	BaseURL       string `flag:"base-url"`

	DatabaseURL string `flag:"database-url"`

	PodcastIndexKey    string `flag:"podcastindex-key"`
	PodcastIndexSecret string `flag:"podcastindex-secret"`
	PodcastIndexURL    string `flag:"podcastindex-url"`
	UserAgent          string `flag:"user-agent"`

	PodpingURL string `flag:"podping-url"`

	NATSURL  string `flag:"nats-url"`
	NATSInit bool   `flag:"nats-init"`

	PollInterval time.Duration `flag:"poll-interval"`
	ActorDelay   time.Duration `flag:"actor-delay"`
	HTTPTimeout  time.Duration `flag:"http-timeout"`

	DeliveryAttempts    int `flag:"delivery-attempts"`
	DeliveryConcurrency int `flag:"delivery-concurrency"`

	VerifySignatures bool `flag:"verify-signatures"`

	// LiveReasons lists the podping reasons that announce a live stream.
	LiveReasons []string `flag:"live-reasons"`
}

// Package metrics holds the process-wide prometheus collectors and the
// metrics HTTP server.
package metrics

import (
	"fmt"
	"net/url"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"resty.dev/v3"
)

var (
	PodcastIndexLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "podfed_podcastindex_request_latency",
			Help:    "Histogram of PodcastIndex API request latency in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"method", "path", "status_code"},
	)

	FederationLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "podfed_federation_request_latency",
			Help:    "Histogram of outbound federation request latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"method", "host", "status_code"},
	)

	InboundActivities = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "podfed_inbound_activities_total",
		Help: "Inbound activities by type and outcome.",
	}, []string{"type", "outcome"})

	Deliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "podfed_deliveries_total",
		Help: "Outbound inbox deliveries by outcome.",
	}, []string{"outcome"})

	Announcements = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "podfed_announcements_total",
		Help: "Notes fanned out to followers by kind.",
	}, []string{"kind"})

	Followers = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "podfed_follower_changes_total",
		Help: "Follower additions and removals.",
	}, []string{"change"})

	Podpings = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "podfed_podpings_total",
		Help: "Podping events read from the stream by reason.",
	}, []string{"reason"})
)

// PathLatency observes request latency labelled by method, path and status.
func PathLatency(histogram *prometheus.HistogramVec) resty.ResponseMiddleware {
	return func(_ *resty.Client, response *resty.Response) error {
		reqURL, err := url.Parse(response.Request.URL)
		if err != nil {
			return err
		}

		histogram.WithLabelValues(
			response.Request.Method,
			reqURL.Path,
			fmt.Sprintf("%d", response.StatusCode()),
		).Observe(response.Duration().Seconds())

		return nil
	}
}

// HostLatency is PathLatency keyed by remote host, for requests to arbitrary
// fediverse servers.
func HostLatency(histogram *prometheus.HistogramVec) resty.ResponseMiddleware {
	return func(_ *resty.Client, response *resty.Response) error {
		reqURL, err := url.Parse(response.Request.URL)
		if err != nil {
			return err
		}

		histogram.WithLabelValues(
			response.Request.Method,
			reqURL.Host,
			fmt.Sprintf("%d", response.StatusCode()),
		).Observe(response.Duration().Seconds())

		return nil
	}
}

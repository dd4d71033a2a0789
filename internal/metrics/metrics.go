// Package metrics holds the process's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "doodlemint"

var Registry = prometheus.NewRegistry()

var (
	// MintAttempts counts finished mint attempts by outcome: success,
	// validation, publish, submission or busy.
	MintAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mint_attempts_total",
		Help:      "Mint attempts by outcome.",
	}, []string{"outcome"})

	// PublishedBytes counts bytes published per stage (image or metadata).
	PublishedBytes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "published_bytes_total",
		Help:      "Bytes published to the content store.",
	}, []string{"stage"})

	// GalleryFetches counts gallery metadata fetches by outcome: ok, failed
	// or stale.
	GalleryFetches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "gallery_fetches_total",
		Help:      "Gallery metadata fetches by outcome.",
	}, []string{"outcome"})

	// GatewayRequests counts local gateway requests by status code class.
	GatewayRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "gateway_requests_total",
		Help:      "Local gateway requests by response code.",
	}, []string{"code"})
)

func init() {
	Registry.MustRegister(
		MintAttempts,
		PublishedBytes,
		GalleryFetches,
		GatewayRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

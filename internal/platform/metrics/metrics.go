package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the gateway's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	ClaimsTotal      *prometheus.CounterVec
	ClaimDuration    *prometheus.HistogramVec
	UpstreamFailures *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ClaimsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tapgate",
			Name:      "claims_total",
			Help:      "Claim requests by distributor and outcome.",
		}, []string{"distributor", "outcome"}),
		ClaimDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tapgate",
			Name:      "claim_duration_seconds",
			Help:      "End-to-end claim processing latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"distributor"}),
		UpstreamFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tapgate",
			Name:      "upstream_failures_total",
			Help:      "Upstream faucet failures by kind.",
		}, []string{"kind"}),
	}
	m.registry.MustRegister(
		m.ClaimsTotal,
		m.ClaimDuration,
		m.UpstreamFailures,
	)
	return m
}

// HTTPHandler serves the scrape endpoint for this registry.
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sitecheck-ai/agentforge/routing"
)

// Metrics holds the server's Prometheus collectors and doubles as the
// orchestrator's observer.
type Metrics struct {
	registry *prometheus.Registry

	requestsRouted   *prometheus.CounterVec
	requestsFinished *prometheus.CounterVec
	firstTokenDelay  *prometheus.HistogramVec
	providerRetries  prometheus.Counter
	rateLimited      prometheus.Counter
}

// NewMetrics creates and registers the collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsRouted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentforge",
			Name:      "requests_routed_total",
			Help:      "Requests by routing mode.",
		}, []string{"mode"}),
		requestsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentforge",
			Name:      "requests_finished_total",
			Help:      "Finished requests by routing mode and outcome.",
		}, []string{"mode", "outcome"}),
		firstTokenDelay: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "agentforge",
			Name:      "first_token_seconds",
			Help:      "Time from request ingress to first streamed token.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"provider"}),
		providerRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agentforge",
			Name:      "provider_retries_total",
			Help:      "Provider invocation attempts beyond the first.",
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agentforge",
			Name:      "requests_rate_limited_total",
			Help:      "Requests rejected by the ingress rate limiter.",
		}),
	}
	m.registry.MustRegister(m.requestsRouted, m.requestsFinished, m.firstTokenDelay, m.providerRetries, m.rateLimited)
	return m
}

// Registry exposes the underlying registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) RequestRouted(mode routing.Mode) {
	m.requestsRouted.WithLabelValues(string(mode)).Inc()
}

func (m *Metrics) RequestFinished(mode routing.Mode, outcome string) {
	m.requestsFinished.WithLabelValues(string(mode), outcome).Inc()
}

func (m *Metrics) FirstToken(provider string, elapsed time.Duration) {
	m.firstTokenDelay.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// ProviderRetry records one retried provider attempt. Wired into the retry
// policy's OnRetry hook.
func (m *Metrics) ProviderRetry() {
	m.providerRetries.Inc()
}

func (m *Metrics) RateLimited() {
	m.rateLimited.Inc()
}

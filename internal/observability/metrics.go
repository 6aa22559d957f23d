package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce         sync.Once
	httpRequestsTotal    *prometheus.CounterVec
	httpDurationSeconds  *prometheus.HistogramVec
	enrichmentFallbacks  *prometheus.CounterVec
	eventsPublishedTotal *prometheus.CounterVec
	identityCacheLookups *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used across the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
		}, []string{"method", "route"})

		enrichmentFallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "enrichment_fallbacks_total",
			Help: "Records served with a placeholder because enrichment failed.",
		}, []string{"kind"})

		eventsPublishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "domain_events_published_total",
			Help: "Domain events published to the message bus.",
		}, []string{"subject", "status"})

		identityCacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "identity_cache_lookups_total",
			Help: "Identity cache lookups by result.",
		}, []string{"result"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpDurationSeconds,
			enrichmentFallbacks,
			eventsPublishedTotal,
			identityCacheLookups,
		)
	})
}

// HTTPRequests exposes the request counter.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPDuration exposes the request latency histogram.
func HTTPDuration() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpDurationSeconds
}

// EnrichmentFallbacks counts records that were degraded during enrichment.
func EnrichmentFallbacks() *prometheus.CounterVec {
	RegisterMetrics()
	return enrichmentFallbacks
}

// EventsPublished counts domain events by outcome.
func EventsPublished() *prometheus.CounterVec {
	RegisterMetrics()
	return eventsPublishedTotal
}

// IdentityCacheLookups counts identity cache hits and misses.
func IdentityCacheLookups() *prometheus.CounterVec {
	RegisterMetrics()
	return identityCacheLookups
}

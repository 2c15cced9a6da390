package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Search outcomes used as the "outcome" label of SearchesTotal.
const (
	OutcomeComplete = "complete"
	OutcomePartial  = "partial"
	OutcomeCached   = "cached"
	OutcomeInvalid  = "invalid"
)

// Metrics contains all Prometheus metrics for the scholar search service.
// Metrics are organized by subsystem: searches, cache, providers, normalization,
// inbound throttling and events. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// SearchesTotal counts unified searches, labeled by result type and outcome.
	SearchesTotal *prometheus.CounterVec

	// SearchDuration observes end-to-end search duration in seconds, labeled by cache result.
	SearchDuration *prometheus.HistogramVec

	// CacheHits counts searches answered from the result cache.
	CacheHits prometheus.Counter

	// CacheMisses counts searches that had to fan out to providers.
	CacheMisses prometheus.Counter

	// ProviderRequestsTotal counts provider calls, labeled by provider and kind (papers, authors).
	ProviderRequestsTotal *prometheus.CounterVec

	// ProviderRequestsFailed counts provider calls that returned an error.
	ProviderRequestsFailed *prometheus.CounterVec

	// ProviderRequestDuration observes provider call duration in seconds,
	// including time spent queued behind the provider's rate limiter.
	ProviderRequestDuration *prometheus.HistogramVec

	// PapersPerSearch observes the number of papers in each fresh response.
	PapersPerSearch prometheus.Histogram

	// DuplicatesMerged counts paper and author records folded into an earlier record.
	DuplicatesMerged *prometheus.CounterVec

	// RequestsThrottled counts inbound requests rejected by a throttle, labeled by scope.
	RequestsThrottled *prometheus.CounterVec

	// EventsPublished counts events written to the broker, labeled by event type.
	EventsPublished *prometheus.CounterVec

	// EventsFailed counts events that could not be written, labeled by event type.
	EventsFailed *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance registered with the default
// Prometheus registry. The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWithRegistry(namespace, prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry creates a new Metrics instance registered with reg.
// A nil reg creates unregistered collectors.
func NewMetricsWithRegistry(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Searches
		SearchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Total number of unified searches by type and outcome",
		}, []string{"type", "outcome"}),
		SearchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Duration of unified searches in seconds",
			Buckets:   []float64{0.005, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		}, []string{"cache"}),

		// Cache
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of searches served from the result cache",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of searches not found in the result cache",
		}),

		// Providers
		ProviderRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Total number of provider calls",
		}, []string{"provider", "kind"}),
		ProviderRequestsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_failed_total",
			Help:      "Total number of failed provider calls",
		}, []string{"provider", "kind"}),
		ProviderRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Duration of provider calls in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
		}, []string{"provider", "kind"}),

		// Normalization
		PapersPerSearch: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "papers_per_search",
			Help:      "Number of papers returned per fresh search",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100},
		}),
		DuplicatesMerged: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_merged_total",
			Help:      "Total number of duplicate records merged",
		}, []string{"kind"}),

		// Inbound throttling
		RequestsThrottled: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_throttled_total",
			Help:      "Total number of inbound requests rejected by a throttle",
		}, []string{"scope"}),

		// Events
		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Total number of events published",
		}, []string{"event_type"}),
		EventsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_failed_total",
			Help:      "Total number of events that failed to publish",
		}, []string{"event_type"}),
	}
}

// RecordSearch records a finished search.
func (m *Metrics) RecordSearch(resultType, outcome string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.SearchesTotal.WithLabelValues(resultType, outcome).Inc()

	cache := "miss"
	if outcome == OutcomeCached {
		cache = "hit"
	}
	m.SearchDuration.WithLabelValues(cache).Observe(durationSeconds)
}

// RecordInvalidSearch records a search rejected during validation.
func (m *Metrics) RecordInvalidSearch() {
	if m == nil {
		return
	}
	m.SearchesTotal.WithLabelValues("", OutcomeInvalid).Inc()
}

// RecordCacheHit records a result cache hit.
func (m *Metrics) RecordCacheHit() {
	if m == nil {
		return
	}
	m.CacheHits.Inc()
}

// RecordCacheMiss records a result cache miss.
func (m *Metrics) RecordCacheMiss() {
	if m == nil {
		return
	}
	m.CacheMisses.Inc()
}

// RecordProviderRequest records a successful provider call.
func (m *Metrics) RecordProviderRequest(provider, kind string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.ProviderRequestsTotal.WithLabelValues(provider, kind).Inc()
	m.ProviderRequestDuration.WithLabelValues(provider, kind).Observe(durationSeconds)
}

// RecordProviderFailure records a failed provider call.
func (m *Metrics) RecordProviderFailure(provider, kind string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.ProviderRequestsTotal.WithLabelValues(provider, kind).Inc()
	m.ProviderRequestsFailed.WithLabelValues(provider, kind).Inc()
	m.ProviderRequestDuration.WithLabelValues(provider, kind).Observe(durationSeconds)
}

// RecordPapersReturned records the size of a fresh paper result set.
func (m *Metrics) RecordPapersReturned(count int) {
	if m == nil {
		return
	}
	m.PapersPerSearch.Observe(float64(count))
}

// RecordDuplicates records merged duplicates of the given kind.
func (m *Metrics) RecordDuplicates(kind string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.DuplicatesMerged.WithLabelValues(kind).Add(float64(count))
}

// RecordThrottled records an inbound request rejected by the named throttle.
func (m *Metrics) RecordThrottled(scope string) {
	if m == nil {
		return
	}
	m.RequestsThrottled.WithLabelValues(scope).Inc()
}

// RecordEventPublished records a published event.
func (m *Metrics) RecordEventPublished(eventType string) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(eventType).Inc()
}

// RecordEventFailed records an event that could not be published.
func (m *Metrics) RecordEventFailed(eventType string) {
	if m == nil {
		return
	}
	m.EventsFailed.WithLabelValues(eventType).Inc()
}

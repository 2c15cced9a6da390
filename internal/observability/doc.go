// Package observability provides logging, metrics, error reporting and
// context helpers for the scholar search service.
//
// # Logging
//
// Create a logger from configuration:
//
//	logger := observability.NewLogger(observability.LoggingConfig{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "stdout",
//	})
//
// Enrich it per request or per provider call:
//
//	logger = observability.LoggerFromContext(ctx, logger)
//	logger = observability.WithSearchContext(logger, params.Query, params.Type)
//	logger = observability.WithProviderContext(logger, domain.ProviderArXiv)
//
// # Metrics
//
// Metrics are registered through promauto with an injectable registerer:
//
//	metrics := observability.NewMetricsWithRegistry("scholar_search", prometheus.NewRegistry())
//	metrics.RecordProviderRequest("openalex", "papers", 0.42)
//
// A nil *Metrics is valid and records nothing, so components can be built
// without metrics in tests.
//
// # Error reporting
//
// InitSentry enables Sentry when a DSN is configured. CapturePanic and
// CaptureError are no-ops otherwise.
//
// # Standard Fields
//
//   - request_id: chi request identifier
//   - correlation_id: caller-supplied or generated correlation identifier
//   - query: search query text
//   - type: requested result type (papers, authors, all)
//   - provider: upstream provider name
//
// # Thread Safety
//
// All components are safe for concurrent use from multiple goroutines.
package observability

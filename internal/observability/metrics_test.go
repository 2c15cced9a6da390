package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetrics(t *testing.T) *Metrics {
	t.Helper()
	return NewMetricsWithRegistry("test_scholar", prometheus.NewRegistry())
}

func TestNewMetricsWithRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWithRegistry("scholar", reg)

	assert.NotNil(t, m.SearchesTotal)
	assert.NotNil(t, m.SearchDuration)
	assert.NotNil(t, m.CacheHits)
	assert.NotNil(t, m.CacheMisses)
	assert.NotNil(t, m.ProviderRequestsTotal)
	assert.NotNil(t, m.ProviderRequestsFailed)
	assert.NotNil(t, m.ProviderRequestDuration)
	assert.NotNil(t, m.PapersPerSearch)
	assert.NotNil(t, m.DuplicatesMerged)
	assert.NotNil(t, m.RequestsThrottled)
	assert.NotNil(t, m.EventsPublished)
	assert.NotNil(t, m.EventsFailed)

	m.RecordCacheHit()
	families, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "scholar_cache_hits_total")
}

func TestNewMetricsWithNilRegistry(t *testing.T) {
	m := NewMetricsWithRegistry("unregistered", nil)
	m.RecordCacheMiss()
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheMisses))
}

func TestNilMetricsRecordNothing(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordSearch("all", OutcomeComplete, 1)
		m.RecordInvalidSearch()
		m.RecordCacheHit()
		m.RecordCacheMiss()
		m.RecordProviderRequest("openalex", "papers", 0.1)
		m.RecordProviderFailure("openalex", "papers", 0.1)
		m.RecordPapersReturned(3)
		m.RecordDuplicates("papers", 2)
		m.RecordThrottled("search")
		m.RecordEventPublished("search.completed")
		m.RecordEventFailed("search.completed")
	})
}

func TestRecordSearch(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordSearch("papers", OutcomePartial, 1.5)
	m.RecordSearch("papers", OutcomeCached, 0.001)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.SearchesTotal.WithLabelValues("papers", OutcomePartial)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SearchesTotal.WithLabelValues("papers", OutcomeCached)))

	count, err := getHistogramSampleCount(m.SearchDuration.WithLabelValues("hit").(prometheus.Histogram))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestRecordInvalidSearch(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordInvalidSearch()
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SearchesTotal.WithLabelValues("", OutcomeInvalid)))
}

func TestRecordCache(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordCacheHit()
	m.RecordCacheMiss()
	m.RecordCacheMiss()

	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheHits))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.CacheMisses))
}

func TestRecordProviderCalls(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordProviderRequest("openalex", "papers", 0.2)
	m.RecordProviderFailure("arxiv", "papers", 10)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.ProviderRequestsTotal.WithLabelValues("openalex", "papers")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ProviderRequestsTotal.WithLabelValues("arxiv", "papers")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ProviderRequestsFailed.WithLabelValues("arxiv", "papers")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.ProviderRequestsFailed.WithLabelValues("openalex", "papers")))

	count, err := getHistogramSampleCount(m.ProviderRequestDuration.WithLabelValues("arxiv", "papers").(prometheus.Histogram))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestRecordPapersAndDuplicates(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordPapersReturned(19)
	m.RecordDuplicates("papers", 3)
	m.RecordDuplicates("authors", 0)

	count, err := getHistogramSampleCount(m.PapersPerSearch)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
	assert.Equal(t, float64(3), testutil.ToFloat64(m.DuplicatesMerged.WithLabelValues("papers")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.DuplicatesMerged))
}

func TestRecordThrottledAndEvents(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordThrottled("global")
	m.RecordEventPublished("search.completed")
	m.RecordEventFailed("search.completed")
	m.RecordEventFailed("search.completed")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.RequestsThrottled.WithLabelValues("global")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.EventsPublished.WithLabelValues("search.completed")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.EventsFailed.WithLabelValues("search.completed")))
}

// Helper to get histogram sample count
func getHistogramSampleCount(h prometheus.Histogram) (uint64, error) {
	ch := make(chan prometheus.Metric, 1)
	h.Collect(ch)
	close(ch)

	var m prometheus.Metric
	for m = range ch {
		break
	}

	var dto = &dto.Metric{}
	if err := m.Write(dto); err != nil {
		return 0, err
	}

	return dto.Histogram.GetSampleCount(), nil
}

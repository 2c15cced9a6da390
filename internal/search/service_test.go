package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/scholar-search-service/internal/cache"
	"github.com/helixir/scholar-search-service/internal/domain"
	"github.com/helixir/scholar-search-service/internal/normalize"
	"github.com/helixir/scholar-search-service/internal/observability"
	"github.com/helixir/scholar-search-service/internal/papersources"
)

// fakeProvider scripts the behaviour of one provider.
type fakeProvider struct {
	name       domain.ProviderName
	disabled   bool
	delay      time.Duration
	hang       bool
	panicValue any
	err        error
	papers     []domain.PaperResult
	nextCursor string
	authors    []domain.AuthorResult

	paperCalls  atomic.Int32
	authorCalls atomic.Int32
	sawCanceled atomic.Bool
}

func (f *fakeProvider) Name() domain.ProviderName { return f.name }
func (f *fakeProvider) IsEnabled() bool           { return !f.disabled }

func (f *fakeProvider) run(ctx context.Context) error {
	if f.panicValue != nil {
		panic(f.panicValue)
	}
	if f.hang {
		<-ctx.Done()
		return domain.NewProviderError(f.name, ctx.Err())
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return domain.NewProviderError(f.name, ctx.Err())
		}
	}
	if ctx.Err() != nil {
		f.sawCanceled.Store(true)
	}
	if f.err != nil {
		return domain.NewProviderError(f.name, f.err)
	}
	return nil
}

func (f *fakeProvider) searchPapers(ctx context.Context) (*papersources.PaperPage, error) {
	f.paperCalls.Add(1)
	if err := f.run(ctx); err != nil {
		return nil, err
	}
	return &papersources.PaperPage{Papers: f.papers, NextCursor: f.nextCursor}, nil
}

func (f *fakeProvider) searchAuthors(ctx context.Context) ([]domain.AuthorResult, error) {
	f.authorCalls.Add(1)
	if err := f.run(ctx); err != nil {
		return nil, err
	}
	return f.authors, nil
}

type paperSource struct{ *fakeProvider }

func (p paperSource) SearchPapers(ctx context.Context, _ domain.SearchParams) (*papersources.PaperPage, error) {
	return p.searchPapers(ctx)
}

type authorSource struct{ *fakeProvider }

func (a authorSource) SearchAuthors(ctx context.Context, _ domain.SearchParams) ([]domain.AuthorResult, error) {
	return a.searchAuthors(ctx)
}

type dualSource struct{ *fakeProvider }

func (d dualSource) SearchPapers(ctx context.Context, _ domain.SearchParams) (*papersources.PaperPage, error) {
	return d.searchPapers(ctx)
}

func (d dualSource) SearchAuthors(ctx context.Context, _ domain.SearchParams) ([]domain.AuthorResult, error) {
	return d.searchAuthors(ctx)
}

type recordingPublisher struct {
	mu        sync.Mutex
	responses []*domain.SearchResponse
}

func (r *recordingPublisher) PublishSearchCompleted(_ context.Context, resp *domain.SearchResponse) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses = append(r.responses, resp)
}

func (r *recordingPublisher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.responses)
}

// fakeSet holds one fake per provider, registered in the production order.
type fakeSet struct {
	openalex, s2, arxiv, crossref, orcid *fakeProvider
}

func newFakeSet() *fakeSet {
	return &fakeSet{
		openalex: &fakeProvider{name: domain.ProviderOpenAlex},
		s2:       &fakeProvider{name: domain.ProviderSemanticScholar},
		arxiv:    &fakeProvider{name: domain.ProviderArXiv},
		crossref: &fakeProvider{name: domain.ProviderCrossref},
		orcid:    &fakeProvider{name: domain.ProviderORCID},
	}
}

func (f *fakeSet) registry() *papersources.Registry {
	r := papersources.NewRegistry()
	r.Register(dualSource{f.openalex})
	r.Register(dualSource{f.s2})
	r.Register(paperSource{f.arxiv})
	r.Register(paperSource{f.crossref})
	r.Register(authorSource{f.orcid})
	return r
}

func newTestService(providers Providers, opts ...Option) *Service {
	return NewService(providers, cache.New(cache.Config{}), zerolog.Nop(), Config{ProviderDeadline: 2 * time.Second}, opts...)
}

func makePapers(provider domain.ProviderName, n int, citations int) []domain.PaperResult {
	papers := make([]domain.PaperResult, 0, n)
	for i := 0; i < n; i++ {
		p := domain.NewPaperResult(provider, fmt.Sprintf("%s-%d", provider, i), fmt.Sprintf("%s paper %d", provider, i))
		p.DOI = fmt.Sprintf("10.1000/%s.%d", provider, i)
		p.CitedByCount = citations + i
		papers = append(papers, p)
	}
	return papers
}

func names(in []domain.ProviderName) []string {
	out := make([]string, 0, len(in))
	for _, n := range in {
		out = append(out, string(n))
	}
	return out
}

func TestService_UnifiedSearch_EndToEnd(t *testing.T) {
	fakes := newFakeSet()
	fakes.openalex.papers = makePapers(domain.ProviderOpenAlex, 5, 10)
	fakes.s2.papers = makePapers(domain.ProviderSemanticScholar, 5, 2000)
	fakes.arxiv.papers = makePapers(domain.ProviderArXiv, 5, 0)
	fakes.crossref.papers = makePapers(domain.ProviderCrossref, 5, 5000)

	// One exact DOI overlap between arXiv and Crossref.
	fakes.crossref.papers[2].DOI = "10.1000/ARXIV.3"

	svc := newTestService(fakes.registry())
	resp, err := svc.UnifiedSearch(context.Background(), url.Values{
		"q": {"transformers"}, "type": {"papers"}, "limit": {"5"},
	})
	require.NoError(t, err)

	require.Len(t, resp.Papers, 19)
	for i := 1; i < len(resp.Papers); i++ {
		assert.GreaterOrEqual(t,
			normalize.RelevanceScore(resp.Papers[i-1]),
			normalize.RelevanceScore(resp.Papers[i]),
			"papers must be sorted by composite score")
	}

	overlap := 0
	for _, p := range resp.Papers {
		if normalize.PaperKey(p) == "10.1000/arxiv.3" {
			overlap++
		}
	}
	assert.Equal(t, 1, overlap)

	assert.Empty(t, resp.Authors)
	assert.NotNil(t, resp.Authors)
	assert.False(t, resp.Meta.Partial)
	assert.Empty(t, resp.Meta.Errors)
	assert.Equal(t, []string{"openalex", "semanticscholar", "arxiv", "crossref"}, names(resp.Query.ProvidersUsed))
	assert.Equal(t, "transformers", resp.Query.Query)
	assert.Equal(t, 5, resp.Query.Limit)
	assert.Zero(t, fakes.orcid.authorCalls.Load())
	assert.Zero(t, fakes.openalex.authorCalls.Load())
}

func TestService_PartialFailure(t *testing.T) {
	fakes := newFakeSet()
	fakes.openalex.papers = makePapers(domain.ProviderOpenAlex, 2, 0)
	fakes.s2.papers = makePapers(domain.ProviderSemanticScholar, 2, 0)
	fakes.arxiv.papers = makePapers(domain.ProviderArXiv, 2, 0)
	fakes.crossref.err = context.DeadlineExceeded

	svc := newTestService(fakes.registry())
	resp, err := svc.Search(context.Background(), domain.SearchParams{Query: "graphs", Type: domain.ResultTypePapers})
	require.NoError(t, err)

	assert.True(t, resp.Meta.Partial)
	require.Len(t, resp.Meta.Errors, 1)
	assert.Equal(t, domain.ProviderCrossref, resp.Meta.Errors[0].Provider)
	assert.Contains(t, resp.Meta.Errors[0].Message, "deadline exceeded")

	assert.Len(t, resp.Papers, 6)
	for _, p := range resp.Papers {
		assert.NotEqual(t, domain.ProviderCrossref, p.Provider)
	}
	assert.Contains(t, resp.Query.ProvidersUsed, domain.ProviderCrossref)
}

func TestService_AllProvidersFail(t *testing.T) {
	fakes := newFakeSet()
	for _, f := range []*fakeProvider{fakes.openalex, fakes.s2, fakes.arxiv, fakes.crossref, fakes.orcid} {
		f.err = fmt.Errorf("%s unavailable", f.name)
	}

	resp, err := newTestService(fakes.registry()).Search(context.Background(), domain.SearchParams{Query: "anything"})
	require.NoError(t, err)

	assert.True(t, resp.Meta.Partial)
	// OpenAlex and Semantic Scholar fail once per branch.
	assert.Len(t, resp.Meta.Errors, 7)
	assert.Empty(t, resp.Papers)
	assert.Empty(t, resp.Authors)
	assert.Equal(t, []string{"openalex", "semanticscholar", "arxiv", "crossref", "orcid"}, names(resp.Query.ProvidersUsed))
}

func TestService_HungProviderIsBounded(t *testing.T) {
	fakes := newFakeSet()
	fakes.arxiv.hang = true
	fakes.openalex.papers = makePapers(domain.ProviderOpenAlex, 1, 0)

	svc := NewService(fakes.registry(), cache.New(cache.Config{}), zerolog.Nop(), Config{ProviderDeadline: 100 * time.Millisecond})

	start := time.Now()
	resp, err := svc.Search(context.Background(), domain.SearchParams{Query: "slow", Type: domain.ResultTypePapers})
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 2*time.Second)
	require.Len(t, resp.Meta.Errors, 1)
	assert.Equal(t, domain.ProviderArXiv, resp.Meta.Errors[0].Provider)
	assert.Contains(t, resp.Meta.Errors[0].Message, "deadline exceeded")
	assert.Len(t, resp.Papers, 1)
}

func TestService_CallerCancellationDoesNotStopProviders(t *testing.T) {
	fakes := newFakeSet()
	fakes.openalex.papers = makePapers(domain.ProviderOpenAlex, 1, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp, err := newTestService(fakes.registry()).Search(ctx, domain.SearchParams{
		Query: "detached", Type: domain.ResultTypePapers, Providers: []domain.ProviderName{domain.ProviderOpenAlex},
	})
	require.NoError(t, err)

	assert.False(t, fakes.openalex.sawCanceled.Load())
	assert.Len(t, resp.Papers, 1)
	assert.False(t, resp.Meta.Partial)
}

func TestService_CacheIdempotence(t *testing.T) {
	fakes := newFakeSet()
	fakes.openalex.papers = makePapers(domain.ProviderOpenAlex, 3, 0)
	fakes.openalex.delay = 20 * time.Millisecond
	fakes.orcid.authors = []domain.AuthorResult{domain.NewAuthorResult(domain.ProviderORCID, "0000-0001", "Ada Lovelace")}

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetricsWithRegistry("test", reg)
	svc := newTestService(fakes.registry(), WithMetrics(metrics))

	values := url.Values{"q": {"lovelace"}}
	first, err := svc.UnifiedSearch(context.Background(), values)
	require.NoError(t, err)
	second, err := svc.UnifiedSearch(context.Background(), values)
	require.NoError(t, err)

	assert.Equal(t, int32(1), fakes.openalex.paperCalls.Load())
	assert.Equal(t, int32(1), fakes.orcid.authorCalls.Load())
	assert.Less(t, second.Meta.TookMs, int64(10))

	strip := func(r *domain.SearchResponse) string {
		b, err := json.Marshal(r.WithTook(0))
		require.NoError(t, err)
		return string(b)
	}
	assert.Equal(t, strip(first), strip(second))

	// Every hit is a fresh copy; the cached envelope keeps its original timing.
	again, err := svc.UnifiedSearch(context.Background(), values)
	require.NoError(t, err)
	assert.NotSame(t, second, again)
	assert.GreaterOrEqual(t, first.Meta.TookMs, int64(20))

	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.CacheHits))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.CacheMisses))
}

func TestService_DifferentParamsMissCache(t *testing.T) {
	fakes := newFakeSet()
	svc := newTestService(fakes.registry())

	_, err := svc.UnifiedSearch(context.Background(), url.Values{"q": {"graphs"}, "type": {"papers"}})
	require.NoError(t, err)
	_, err = svc.UnifiedSearch(context.Background(), url.Values{"q": {"graphs"}, "type": {"papers"}, "page": {"2"}})
	require.NoError(t, err)

	assert.Equal(t, int32(2), fakes.arxiv.paperCalls.Load())
}

func TestService_NextCursorFromOpenAlexOnly(t *testing.T) {
	t.Run("openalex cursor is reported", func(t *testing.T) {
		fakes := newFakeSet()
		fakes.openalex.nextCursor = "IlsxNjk0ODc"
		fakes.s2.nextCursor = "ignored"

		resp, err := newTestService(fakes.registry()).Search(context.Background(), domain.SearchParams{Query: "cursor"})
		require.NoError(t, err)
		assert.Equal(t, "IlsxNjk0ODc", resp.Meta.NextCursor)
	})

	t.Run("no cursor without openalex", func(t *testing.T) {
		fakes := newFakeSet()
		fakes.s2.nextCursor = "ignored"

		resp, err := newTestService(fakes.registry()).Search(context.Background(), domain.SearchParams{
			Query: "cursor", Providers: []domain.ProviderName{domain.ProviderSemanticScholar},
		})
		require.NoError(t, err)
		assert.Empty(t, resp.Meta.NextCursor)
	})
}

func TestService_BranchSelection(t *testing.T) {
	t.Run("authors only", func(t *testing.T) {
		fakes := newFakeSet()
		resp, err := newTestService(fakes.registry()).Search(context.Background(), domain.SearchParams{
			Query: "curie", Type: domain.ResultTypeAuthors,
		})
		require.NoError(t, err)

		assert.Equal(t, []string{"openalex", "orcid", "semanticscholar"}, names(resp.Query.ProvidersUsed))
		assert.NotNil(t, resp.Papers)
		assert.Empty(t, resp.Papers)
		assert.Zero(t, fakes.arxiv.paperCalls.Load())
		assert.Zero(t, fakes.openalex.paperCalls.Load())
	})

	t.Run("provider filter applies to both branches", func(t *testing.T) {
		fakes := newFakeSet()
		resp, err := newTestService(fakes.registry()).Search(context.Background(), domain.SearchParams{
			Query: "curie", Providers: []domain.ProviderName{domain.ProviderSemanticScholar, domain.ProviderArXiv},
		})
		require.NoError(t, err)

		assert.Equal(t, []string{"semanticscholar", "arxiv"}, names(resp.Query.ProvidersUsed))
		assert.Equal(t, int32(1), fakes.s2.paperCalls.Load())
		assert.Equal(t, int32(1), fakes.s2.authorCalls.Load())
		assert.Zero(t, fakes.orcid.authorCalls.Load())
		assert.Zero(t, fakes.crossref.paperCalls.Load())
	})

	t.Run("disabled providers are skipped", func(t *testing.T) {
		fakes := newFakeSet()
		fakes.crossref.disabled = true

		resp, err := newTestService(fakes.registry()).Search(context.Background(), domain.SearchParams{Query: "x y", Type: domain.ResultTypePapers})
		require.NoError(t, err)
		assert.NotContains(t, resp.Query.ProvidersUsed, domain.ProviderCrossref)
		assert.Zero(t, fakes.crossref.paperCalls.Load())
	})
}

func TestService_MergeOrderIsFixed(t *testing.T) {
	fakes := newFakeSet()
	fakes.openalex.delay = 40 * time.Millisecond
	fakes.openalex.authors = []domain.AuthorResult{domain.NewAuthorResult(domain.ProviderOpenAlex, "A1", "First")}
	fakes.orcid.authors = []domain.AuthorResult{domain.NewAuthorResult(domain.ProviderORCID, "O1", "Second")}
	fakes.s2.authors = []domain.AuthorResult{domain.NewAuthorResult(domain.ProviderSemanticScholar, "S1", "Third")}

	resp, err := newTestService(fakes.registry()).Search(context.Background(), domain.SearchParams{
		Query: "order", Type: domain.ResultTypeAuthors,
	})
	require.NoError(t, err)

	require.Len(t, resp.Authors, 3)
	assert.Equal(t, "First", resp.Authors[0].Name)
	assert.Equal(t, "Second", resp.Authors[1].Name)
	assert.Equal(t, "Third", resp.Authors[2].Name)
}

func TestService_DeduplicatesAcrossProviders(t *testing.T) {
	fakes := newFakeSet()
	arx := domain.NewPaperResult(domain.ProviderArXiv, "1706.03762", "Attention Is All You Need")
	arx.Abstract = "The dominant sequence transduction models"
	s2 := domain.NewPaperResult(domain.ProviderSemanticScholar, "204e", "Attention is All you Need")
	s2.CitedByCount = 90000
	fakes.arxiv.papers = []domain.PaperResult{arx}
	fakes.s2.papers = []domain.PaperResult{s2}

	oa := domain.NewAuthorResult(domain.ProviderOpenAlex, "A5", "Ashish Vaswani")
	oa.WorksCount = 40
	s2a := domain.NewAuthorResult(domain.ProviderSemanticScholar, "40348417", "ashish vaswani")
	s2a.Affiliation = "Google Brain"
	s2a.WorksCount = 55
	fakes.openalex.authors = []domain.AuthorResult{oa}
	fakes.s2.authors = []domain.AuthorResult{s2a}

	resp, err := newTestService(fakes.registry()).Search(context.Background(), domain.SearchParams{Query: "attention"})
	require.NoError(t, err)

	require.Len(t, resp.Papers, 1)
	// Semantic Scholar is merged before arXiv, so arXiv only fills the abstract.
	assert.Equal(t, "semanticscholar:204e", resp.Papers[0].ID)
	assert.Equal(t, "The dominant sequence transduction models", resp.Papers[0].Abstract)
	assert.Equal(t, 90000, resp.Papers[0].CitedByCount)

	require.Len(t, resp.Authors, 1)
	assert.Equal(t, "openalex:A5", resp.Authors[0].ID)
	assert.Equal(t, "Google Brain", resp.Authors[0].Affiliation)
	assert.Equal(t, 55, resp.Authors[0].WorksCount)
}

func TestService_ProviderPanicPropagates(t *testing.T) {
	fakes := newFakeSet()
	fakes.crossref.panicValue = "nil map write"
	fakes.arxiv.delay = 20 * time.Millisecond

	svc := newTestService(fakes.registry())

	assert.Panics(t, func() {
		_, _ = svc.Search(context.Background(), domain.SearchParams{Query: "boom", Type: domain.ResultTypePapers})
	})
	// Siblings ran to completion before the panic surfaced.
	assert.Equal(t, int32(1), fakes.arxiv.paperCalls.Load())
	assert.Equal(t, int32(1), fakes.openalex.paperCalls.Load())
}

func TestService_ValidationFailsBeforeProviders(t *testing.T) {
	fakes := newFakeSet()
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetricsWithRegistry("test", reg)
	svc := newTestService(fakes.registry(), WithMetrics(metrics))

	resp, err := svc.UnifiedSearch(context.Background(), url.Values{"q": {""}, "limit": {"999"}})
	require.Error(t, err)
	assert.Nil(t, resp)

	fields := fieldsOf(t, err)
	assert.Contains(t, fields, "q")
	assert.Contains(t, fields, "limit")
	assert.Zero(t, fakes.openalex.paperCalls.Load())
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.SearchesTotal.WithLabelValues("", observability.OutcomeInvalid)))

	_, err = svc.Search(context.Background(), domain.SearchParams{Query: "ok", Limit: 26})
	assert.Equal(t, "must be at most 25", fieldsOf(t, err)["limit"])
}

func TestService_PublishesFreshResponsesOnly(t *testing.T) {
	fakes := newFakeSet()
	publisher := &recordingPublisher{}
	svc := newTestService(fakes.registry(), WithEventPublisher(publisher))

	params := domain.SearchParams{Query: "events"}
	_, err := svc.Search(context.Background(), params)
	require.NoError(t, err)
	_, err = svc.Search(context.Background(), params)
	require.NoError(t, err)

	assert.Equal(t, 1, publisher.count())
}

func TestInProviderOrder(t *testing.T) {
	in := []papersources.AuthorSearcher{
		authorSource{&fakeProvider{name: domain.ProviderSemanticScholar}},
		authorSource{&fakeProvider{name: "extra"}},
		authorSource{&fakeProvider{name: domain.ProviderORCID}},
		authorSource{&fakeProvider{name: domain.ProviderOpenAlex}},
	}

	out := inProviderOrder(in, authorProviderOrder)

	got := make([]domain.ProviderName, 0, len(out))
	for _, p := range out {
		got = append(got, p.Name())
	}
	assert.Equal(t, []string{"openalex", "orcid", "semanticscholar", "extra"}, names(got))
	assert.Equal(t, domain.ProviderSemanticScholar, in[0].Name())
}

// Package search implements the unified search orchestrator: it validates a
// request, consults the result cache, fans the request out to every applicable
// provider, and assembles the normalized response envelope.
package search

import (
	"context"
	"net/url"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"

	"github.com/helixir/scholar-search-service/internal/domain"
	"github.com/helixir/scholar-search-service/internal/normalize"
	"github.com/helixir/scholar-search-service/internal/observability"
	"github.com/helixir/scholar-search-service/internal/papersources"
)

// DefaultProviderDeadline bounds a single provider call, including time
// spent queued behind its rate limiter and any retries.
const DefaultProviderDeadline = 25 * time.Second

// Fan-out order. Results are merged in this order regardless of which
// provider answers first.
var (
	paperProviderOrder = []domain.ProviderName{
		domain.ProviderOpenAlex,
		domain.ProviderSemanticScholar,
		domain.ProviderArXiv,
		domain.ProviderCrossref,
	}
	authorProviderOrder = []domain.ProviderName{
		domain.ProviderOpenAlex,
		domain.ProviderORCID,
		domain.ProviderSemanticScholar,
	}
)

// Providers exposes the provider clients able to serve a request.
// *papersources.Registry implements it.
type Providers interface {
	PaperSearchers(params domain.SearchParams) []papersources.PaperSearcher
	AuthorSearchers(params domain.SearchParams) []papersources.AuthorSearcher
}

// ResultCache stores complete responses keyed by SearchParams.CacheKey.
// *cache.ResponseCache implements it.
type ResultCache interface {
	Get(key string) (*domain.SearchResponse, bool)
	Set(key string, resp *domain.SearchResponse)
}

// EventPublisher is notified of every freshly computed response.
// Implementations must not block the caller.
type EventPublisher interface {
	PublishSearchCompleted(ctx context.Context, resp *domain.SearchResponse)
}

// Config holds orchestrator settings.
type Config struct {
	// ProviderDeadline bounds each provider call. Zero uses DefaultProviderDeadline.
	ProviderDeadline time.Duration
}

// Service runs unified searches across all registered providers.
type Service struct {
	providers Providers
	cache     ResultCache
	publisher EventPublisher // nil = events disabled
	metrics   *observability.Metrics
	logger    zerolog.Logger
	config    Config
}

// Option configures optional Service dependencies.
type Option func(*Service)

// WithEventPublisher attaches a publisher for search.completed events.
func WithEventPublisher(p EventPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithMetrics attaches Prometheus metrics to the service.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService creates a new search Service.
func NewService(providers Providers, cache ResultCache, logger zerolog.Logger, cfg Config, opts ...Option) *Service {
	if cfg.ProviderDeadline <= 0 {
		cfg.ProviderDeadline = DefaultProviderDeadline
	}

	s := &Service{
		providers: providers,
		cache:     cache,
		logger:    logger,
		config:    cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UnifiedSearch validates raw query values and runs the search.
// It returns domain.ValidationErrors for invalid input; provider failures
// never produce an error and are reported in the response metadata instead.
func (s *Service) UnifiedSearch(ctx context.Context, values url.Values) (*domain.SearchResponse, error) {
	start := time.Now()

	params, err := ParseParams(values)
	if err != nil {
		s.metrics.RecordInvalidSearch()
		return nil, err
	}
	return s.search(ctx, params, start), nil
}

// Search runs a search for already-typed params. Zero values take their
// defaults before validation.
func (s *Service) Search(ctx context.Context, params domain.SearchParams) (*domain.SearchResponse, error) {
	start := time.Now()

	params = params.WithDefaults()
	if err := ValidateParams(params); err != nil {
		s.metrics.RecordInvalidSearch()
		return nil, err
	}
	return s.search(ctx, params, start), nil
}

func (s *Service) search(ctx context.Context, params domain.SearchParams, start time.Time) *domain.SearchResponse {
	logger := observability.WithSearchContext(observability.LoggerFromContext(ctx, s.logger), params.Query, params.Type)
	key := params.CacheKey()

	if cached, ok := s.cache.Get(key); ok {
		s.metrics.RecordCacheHit()
		resp := cached.WithTook(time.Since(start).Milliseconds())
		s.metrics.RecordSearch(string(params.Type), observability.OutcomeCached, time.Since(start).Seconds())
		logger.Debug().Msg("search served from cache")
		return resp
	}
	s.metrics.RecordCacheMiss()

	fan := s.fanOut(ctx, params, logger)

	papers := normalize.DeduplicatePapers(fan.papers)
	s.metrics.RecordDuplicates("papers", len(fan.papers)-len(papers))
	papers = normalize.RankPapers(papers, params.Sort)

	authors := normalize.DeduplicateAuthors(fan.authors)
	s.metrics.RecordDuplicates("authors", len(fan.authors)-len(authors))

	resp := &domain.SearchResponse{
		Query: domain.QueryEcho{
			SearchParams:  params,
			ProvidersUsed: fan.used,
		},
		Papers:  papers,
		Authors: authors,
		Meta: domain.ResponseMeta{
			TookMs:     time.Since(start).Milliseconds(),
			Partial:    len(fan.errors) > 0,
			Errors:     fan.errors,
			NextCursor: fan.nextCursor,
		},
	}

	s.cache.Set(key, resp)

	outcome := observability.OutcomeComplete
	if resp.Meta.Partial {
		outcome = observability.OutcomePartial
	}
	s.metrics.RecordSearch(string(params.Type), outcome, time.Since(start).Seconds())
	s.metrics.RecordPapersReturned(len(papers))

	logger.Info().
		Int("papers", len(papers)).
		Int("authors", len(authors)).
		Int("failed_providers", len(fan.errors)).
		Int64("took_ms", resp.Meta.TookMs).
		Msg("search completed")

	if s.publisher != nil {
		s.publisher.PublishSearchCompleted(context.WithoutCancel(ctx), resp)
	}
	return resp
}

// fanOutResult is the merged output of every provider call of one search.
type fanOutResult struct {
	papers     []domain.PaperResult
	authors    []domain.AuthorResult
	used       []domain.ProviderName
	errors     []domain.ProviderFailure
	nextCursor string
}

type paperOutcome struct {
	provider domain.ProviderName
	page     *papersources.PaperPage
	err      error
}

type authorOutcome struct {
	provider domain.ProviderName
	authors  []domain.AuthorResult
	err      error
}

// fanOut calls every selected provider concurrently and waits for all of
// them. Calls run on a context detached from the caller, each bounded by the
// provider deadline. A panic in any call is re-raised after all calls settle.
func (s *Service) fanOut(ctx context.Context, params domain.SearchParams, logger zerolog.Logger) fanOutResult {
	var paperSearchers []papersources.PaperSearcher
	if params.Type.IncludesPapers() {
		paperSearchers = inProviderOrder(s.providers.PaperSearchers(params), paperProviderOrder)
	}
	var authorSearchers []papersources.AuthorSearcher
	if params.Type.IncludesAuthors() {
		authorSearchers = inProviderOrder(s.providers.AuthorSearchers(params), authorProviderOrder)
	}

	detached := context.WithoutCancel(ctx)
	paperOutcomes := make([]paperOutcome, len(paperSearchers))
	authorOutcomes := make([]authorOutcome, len(authorSearchers))

	var wg conc.WaitGroup
	for i, p := range paperSearchers {
		wg.Go(func() {
			paperOutcomes[i] = s.searchPapers(detached, p, params)
		})
	}
	for i, p := range authorSearchers {
		wg.Go(func() {
			authorOutcomes[i] = s.searchAuthors(detached, p, params)
		})
	}
	wg.Wait()

	result := fanOutResult{
		papers:  []domain.PaperResult{},
		authors: []domain.AuthorResult{},
		used:    []domain.ProviderName{},
		errors:  []domain.ProviderFailure{},
	}
	seen := make(map[domain.ProviderName]bool)
	markUsed := func(name domain.ProviderName) {
		if !seen[name] {
			seen[name] = true
			result.used = append(result.used, name)
		}
	}
	recordFailure := func(name domain.ProviderName, kind string, err error) {
		pe := domain.NewProviderError(name, err)
		providerLogger := observability.WithProviderContext(logger, name)
		providerLogger.Warn().
			Err(err).
			Str("kind", kind).
			Msg("provider search failed")
		result.errors = append(result.errors, domain.ProviderFailure{Provider: name, Message: pe.Message})
	}

	for _, o := range paperOutcomes {
		markUsed(o.provider)
		if o.err != nil {
			recordFailure(o.provider, "papers", o.err)
			continue
		}
		result.papers = append(result.papers, o.page.Papers...)
		if o.provider == domain.ProviderOpenAlex {
			result.nextCursor = o.page.NextCursor
		}
	}
	for _, o := range authorOutcomes {
		markUsed(o.provider)
		if o.err != nil {
			recordFailure(o.provider, "authors", o.err)
			continue
		}
		result.authors = append(result.authors, o.authors...)
	}

	return result
}

func (s *Service) searchPapers(ctx context.Context, p papersources.PaperSearcher, params domain.SearchParams) paperOutcome {
	ctx, cancel := context.WithTimeout(ctx, s.config.ProviderDeadline)
	defer cancel()

	start := time.Now()
	page, err := p.SearchPapers(ctx, params)
	if err == nil && page == nil {
		page = &papersources.PaperPage{}
	}
	s.recordProviderCall(p.Name(), "papers", start, err)

	return paperOutcome{provider: p.Name(), page: page, err: err}
}

func (s *Service) searchAuthors(ctx context.Context, p papersources.AuthorSearcher, params domain.SearchParams) authorOutcome {
	ctx, cancel := context.WithTimeout(ctx, s.config.ProviderDeadline)
	defer cancel()

	start := time.Now()
	authors, err := p.SearchAuthors(ctx, params)
	s.recordProviderCall(p.Name(), "authors", start, err)

	return authorOutcome{provider: p.Name(), authors: authors, err: err}
}

func (s *Service) recordProviderCall(name domain.ProviderName, kind string, start time.Time, err error) {
	elapsed := time.Since(start).Seconds()
	if err != nil {
		s.metrics.RecordProviderFailure(string(name), kind, elapsed)
		return
	}
	s.metrics.RecordProviderRequest(string(name), kind, elapsed)
}

// inProviderOrder returns providers sorted by their position in order.
// Providers missing from order keep their relative order at the end.
func inProviderOrder[T papersources.Provider](providers []T, order []domain.ProviderName) []T {
	position := make(map[domain.ProviderName]int, len(order))
	for i, name := range order {
		position[name] = i
	}
	rank := func(name domain.ProviderName) int {
		if i, ok := position[name]; ok {
			return i
		}
		return len(order)
	}

	sorted := make([]T, len(providers))
	copy(sorted, providers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return rank(sorted[i].Name()) < rank(sorted[j].Name())
	})
	return sorted
}

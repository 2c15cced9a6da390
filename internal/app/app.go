// Package app assembles the scholar search service from configuration:
// provider clients and their limiters, the result cache, the search
// orchestrator and the optional event publisher.
package app

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/scholar-search-service/internal/cache"
	"github.com/helixir/scholar-search-service/internal/config"
	"github.com/helixir/scholar-search-service/internal/domain"
	"github.com/helixir/scholar-search-service/internal/events"
	"github.com/helixir/scholar-search-service/internal/observability"
	"github.com/helixir/scholar-search-service/internal/papersources"
	"github.com/helixir/scholar-search-service/internal/papersources/arxiv"
	"github.com/helixir/scholar-search-service/internal/papersources/crossref"
	"github.com/helixir/scholar-search-service/internal/papersources/openalex"
	"github.com/helixir/scholar-search-service/internal/papersources/orcid"
	"github.com/helixir/scholar-search-service/internal/papersources/semanticscholar"
	"github.com/helixir/scholar-search-service/internal/search"
)

// ProviderInfo describes one configured provider.
type ProviderInfo struct {
	Name        domain.ProviderName `json:"name"`
	Enabled     bool                `json:"enabled"`
	Papers      bool                `json:"papers"`
	Authors     bool                `json:"authors"`
	BaseURL     string              `json:"baseUrl"`
	MinInterval time.Duration       `json:"minInterval"`
	MaxRetries  int                 `json:"maxRetries"`
	HasAPIKey   bool                `json:"hasApiKey"`
}

// App holds the assembled service components.
type App struct {
	Registry  *papersources.Registry
	Cache     *cache.ResponseCache
	Service   *search.Service
	Publisher *events.Publisher // nil when events are disabled
	Providers []ProviderInfo
}

// Options carries optional collaborators for New.
type Options struct {
	// Metrics may be nil.
	Metrics *observability.Metrics
	// EventWriter overrides the Kafka writer built from config.Events.
	EventWriter events.MessageWriter
}

// New builds every component described by cfg. Each provider gets its own
// spacing limiter shared by all of its requests.
func New(cfg *config.Config, logger zerolog.Logger, opts Options) *App {
	registry := papersources.NewRegistry()
	providers := registerProviders(registry, cfg.Providers)

	resultCache := cache.New(cache.Config{
		MaxEntries: cfg.Cache.MaxEntries,
		TTL:        cfg.Cache.TTL,
	})

	serviceOpts := []search.Option{search.WithMetrics(opts.Metrics)}

	var publisher *events.Publisher
	if cfg.Events.Enabled || opts.EventWriter != nil {
		writer := opts.EventWriter
		if writer == nil {
			writer = events.NewKafkaWriter(events.WriterConfig{
				Brokers:      cfg.Events.Brokers,
				Topic:        cfg.Events.Topic,
				BatchSize:    cfg.Events.BatchSize,
				BatchTimeout: cfg.Events.BatchTimeout,
			})
		}
		publisher = events.NewPublisher(writer, events.NewEmitter(events.EmitterConfig{}), logger, opts.Metrics,
			events.PublisherConfig{WriteTimeout: cfg.Events.WriteTimeout})
		serviceOpts = append(serviceOpts, search.WithEventPublisher(publisher))

		logger.Info().
			Strs("brokers", cfg.Events.Brokers).
			Str("topic", cfg.Events.Topic).
			Msg("search events enabled")
	}

	svc := search.NewService(registry, resultCache, logger, search.Config{
		ProviderDeadline: cfg.Search.ProviderDeadline,
	}, serviceOpts...)

	return &App{
		Registry:  registry,
		Cache:     resultCache,
		Service:   svc,
		Publisher: publisher,
		Providers: providers,
	}
}

// Close flushes pending events.
func (a *App) Close() error {
	if a.Publisher == nil {
		return nil
	}
	return a.Publisher.Close()
}

// registerProviders registers every provider client in merge order and
// returns their descriptions.
func registerProviders(registry *papersources.Registry, cfg config.ProvidersConfig) []ProviderInfo {
	cfg.OpenAlex = withInterval(cfg.OpenAlex, openalex.DefaultMinInterval)
	cfg.ORCID = withInterval(cfg.ORCID, orcid.DefaultMinInterval)
	cfg.SemanticScholar = withInterval(cfg.SemanticScholar, semanticscholar.DefaultMinInterval)
	cfg.ArXiv = withInterval(cfg.ArXiv, arxiv.DefaultMinInterval)
	cfg.Crossref = withInterval(cfg.Crossref, crossref.DefaultMinInterval)

	var infos []ProviderInfo
	add := func(p papersources.Provider, pc config.ProviderConfig) {
		registry.Register(p)
		_, papers := p.(papersources.PaperSearcher)
		_, authors := p.(papersources.AuthorSearcher)
		infos = append(infos, ProviderInfo{
			Name:        p.Name(),
			Enabled:     p.IsEnabled(),
			Papers:      papers,
			Authors:     authors,
			BaseURL:     pc.BaseURL,
			MinInterval: pc.MinInterval,
			MaxRetries:  pc.MaxRetries,
			HasAPIKey:   pc.APIKey != "",
		})
	}

	add(openalex.New(openalex.Config{
		BaseURL:    cfg.OpenAlex.BaseURL,
		Mailto:     cfg.Mailto,
		APIKey:     cfg.OpenAlex.APIKey,
		Timeout:    cfg.OpenAlex.Timeout,
		MaxRetries: cfg.OpenAlex.MaxRetries,
		Enabled:    cfg.OpenAlex.Enabled,
	}, papersources.NewSpacingLimiter(cfg.OpenAlex.MinInterval)), cfg.OpenAlex)

	add(orcid.New(orcid.Config{
		BaseURL:    cfg.ORCID.BaseURL,
		APIKey:     cfg.ORCID.APIKey,
		Timeout:    cfg.ORCID.Timeout,
		MaxRetries: cfg.ORCID.MaxRetries,
		Enabled:    cfg.ORCID.Enabled,
	}, papersources.NewSpacingLimiter(cfg.ORCID.MinInterval)), cfg.ORCID)

	add(semanticscholar.NewClient(semanticscholar.Config{
		BaseURL:    cfg.SemanticScholar.BaseURL,
		APIKey:     cfg.SemanticScholar.APIKey,
		Timeout:    cfg.SemanticScholar.Timeout,
		MaxRetries: cfg.SemanticScholar.MaxRetries,
		Limiter:    papersources.NewSpacingLimiter(cfg.SemanticScholar.MinInterval),
		Enabled:    cfg.SemanticScholar.Enabled,
	}, nil), cfg.SemanticScholar)

	add(arxiv.New(arxiv.Config{
		BaseURL:    cfg.ArXiv.BaseURL,
		Timeout:    cfg.ArXiv.Timeout,
		MaxRetries: cfg.ArXiv.MaxRetries,
		Enabled:    cfg.ArXiv.Enabled,
	}, papersources.NewSpacingLimiter(cfg.ArXiv.MinInterval)), cfg.ArXiv)

	add(crossref.New(crossref.Config{
		BaseURL:    cfg.Crossref.BaseURL,
		Mailto:     cfg.Mailto,
		Timeout:    cfg.Crossref.Timeout,
		MaxRetries: cfg.Crossref.MaxRetries,
		Enabled:    cfg.Crossref.Enabled,
	}, papersources.NewSpacingLimiter(cfg.Crossref.MinInterval)), cfg.Crossref)

	return infos
}

// withInterval fills a zero MinInterval with the provider's published minimum.
func withInterval(pc config.ProviderConfig, fallback time.Duration) config.ProviderConfig {
	if pc.MinInterval <= 0 {
		pc.MinInterval = fallback
	}
	return pc
}

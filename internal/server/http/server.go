// Package httpserver provides the HTTP REST API server for the scholar search service.
package httpserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/helixir/scholar-search-service/internal/domain"
	"github.com/helixir/scholar-search-service/internal/observability"
)

// Searcher runs unified searches. *search.Service implements it.
type Searcher interface {
	UnifiedSearch(ctx context.Context, values url.Values) (*domain.SearchResponse, error)
}

// ProviderStatus reports which providers are enabled.
// *papersources.Registry implements it.
type ProviderStatus interface {
	Enabled() []domain.ProviderName
}

// Server is the HTTP REST API server.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	searcher   Searcher
	providers  ProviderStatus
	config     Config
	metrics    *observability.Metrics
	logger     zerolog.Logger
	now        func() time.Time
}

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// AllowedOrigins lists the CORS origins allowed to call the API.
	// Empty allows any origin.
	AllowedOrigins []string

	Throttle ThrottleConfig
}

// NewServer creates a new HTTP server with all dependencies.
// The metrics parameter may be nil.
func NewServer(
	cfg Config,
	searcher Searcher,
	providers ProviderStatus,
	logger zerolog.Logger,
	metrics *observability.Metrics,
) *Server {
	s := &Server{
		searcher:  searcher,
		providers: providers,
		config:    cfg,
		metrics:   metrics,
		logger:    logger.With().Str("component", "http-server").Logger(),
		now:       time.Now,
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	allowedOrigins := s.config.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(correlationIDMiddleware)
	r.Use(accessLogMiddleware(s.logger))
	r.Use(recoverMiddleware(s.logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Correlation-ID", "X-Request-ID"},
		ExposedHeaders: []string{"X-Correlation-ID", "X-Request-ID", "Retry-After"},
		MaxAge:         300,
	}))
	r.Use(jsonContentTypeMiddleware)

	throttle := s.config.Throttle
	if throttle.Enabled {
		r.Use(newIPThrottle(scopeGlobal, throttle.GlobalRequests, throttle.GlobalWindow,
			throttle.MaxClients, "Too many requests, please try again later.", s.metrics).middleware)
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	// Health endpoints
	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)
	r.Get("/api/health", s.apiHealthHandler)

	r.Route("/api/v1/search", func(r chi.Router) {
		if throttle.Enabled {
			r.Use(newIPThrottle(scopeSearch, throttle.SearchRequests, throttle.SearchWindow,
				throttle.MaxClients, "Search rate limit exceeded.", s.metrics).middleware)
		}

		r.Get("/", s.searchHandler(""))
		r.Get("/papers", s.searchHandler(domain.ResultTypePapers))
		r.Get("/authors", s.searchHandler(domain.ResultTypeAuthors))
	})

	return r
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/helixir/scholar-search-service/internal/domain"
	"github.com/helixir/scholar-search-service/internal/observability"
	"github.com/helixir/scholar-search-service/internal/search"
)

var errNoProviders = fmt.Errorf("%w: no providers enabled", domain.ErrServiceUnavailable)

// searchHandler handles GET /api/v1/search and its typed variants.
// The typed variants use defaultType when the caller sends no type; an
// explicit type query parameter always wins.
func (s *Server) searchHandler(defaultType domain.ResultType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		values := r.URL.Query()
		if defaultType != "" && strings.TrimSpace(values.Get(search.ParamType)) == "" {
			values.Set(search.ParamType, string(defaultType))
		}

		resp, err := s.searcher.UnifiedSearch(r.Context(), values)
		if err != nil {
			s.writeSearchError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

// writeSearchError maps an orchestrator error to an HTTP response.
func (s *Server) writeSearchError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs domain.ValidationErrors
	var verr *domain.ValidationError

	switch {
	case errors.As(err, &verrs):
		writeJSON(w, http.StatusBadRequest, validationErrorResponse{
			Error:  invalidParamsMessage,
			Fields: verrs.Fields(),
		})
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, validationErrorResponse{
			Error:  invalidParamsMessage,
			Fields: map[string]string{verr.Field: verr.Message},
		})
	default:
		logger := observability.LoggerFromContext(r.Context(), s.logger)
		logger.Error().
			Err(err).
			Str("path", r.URL.Path).
			Msg("search failed")
		observability.CaptureError(r.Context(), err)
		writeError(w, http.StatusInternalServerError, internalErrorMessage)
	}
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readinessHandler reports ready while at least one provider is enabled.
func (s *Server) readinessHandler(w http.ResponseWriter, _ *http.Request) {
	var enabled []domain.ProviderName
	if s.providers != nil {
		enabled = s.providers.Enabled()
	}

	if len(enabled) == 0 {
		writeJSON(w, http.StatusServiceUnavailable, readinessResponse{
			Status:    "not_ready",
			Providers: []domain.ProviderName{},
			Error:     errNoProviders.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, readinessResponse{
		Status:    "ready",
		Providers: enabled,
	})
}

// apiHealthHandler handles GET /api/health.
func (s *Server) apiHealthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: s.now().UTC().Format(time.RFC3339Nano),
	})
}

// retryAfterSeconds rounds a delay up to whole seconds for the Retry-After header.
func retryAfterSeconds(d time.Duration) string {
	secs := int64((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return fmt.Sprintf("%d", secs)
}

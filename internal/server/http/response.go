package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/helixir/scholar-search-service/internal/domain"
)

const (
	invalidParamsMessage = "invalid search parameters"
	internalErrorMessage = "internal server error"
)

// validationErrorResponse is the 400 body listing every invalid field.
type validationErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

type readinessResponse struct {
	Status    string                `json:"status"`
	Providers []domain.ProviderName `json:"providers"`
	Error     string                `json:"error,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Best-effort; headers already sent.
		_ = err
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, errorResponse{Error: message})
}

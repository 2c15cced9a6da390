package domain

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"unicode/utf8"
)

// maxAPIErrorMessage bounds the upstream text kept in an ExternalAPIError.
const maxAPIErrorMessage = 256

// Sentinel errors for common error conditions.
var (
	// ErrInvalidInput indicates that the input data is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrRateLimited indicates that the request was rate limited.
	ErrRateLimited = errors.New("rate limited")

	// ErrServiceUnavailable indicates that an external service is unavailable.
	ErrServiceUnavailable = errors.New("service unavailable")
)

// ValidationError represents a validation error for a specific field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// ValidationErrors collects every invalid field of a request so callers can
// report them all at once.
type ValidationErrors []*ValidationError

// Error implements the error interface.
func (v ValidationErrors) Error() string {
	fields := v.Fields()
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+fields[name])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Is reports ErrInvalidInput as a match.
func (v ValidationErrors) Is(target error) bool {
	return target == ErrInvalidInput
}

// Fields returns the errors keyed by field name. When a field has more than
// one error the first one wins.
func (v ValidationErrors) Fields() map[string]string {
	fields := make(map[string]string, len(v))
	for _, e := range v {
		if _, seen := fields[e.Field]; !seen {
			fields[e.Field] = e.Message
		}
	}
	return fields
}

// Add appends a field error, returning the extended list.
func (v ValidationErrors) Add(field, message string) ValidationErrors {
	return append(v, NewValidationError(field, message))
}

// ExternalAPIError provides details about an external API error.
type ExternalAPIError struct {
	Source     string
	StatusCode int
	Message    string
	Cause      error
}

// Error implements the error interface.
func (e *ExternalAPIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Source, e.StatusCode, e.Message)
}

// Unwrap returns the underlying cause error.
func (e *ExternalAPIError) Unwrap() error {
	return e.Cause
}

// ProviderError is the single failure type returned by provider adapters.
// Transport failures, timeouts, non-2xx responses and decode errors all
// surface as a ProviderError carrying the provider name.
type ProviderError struct {
	Provider ProviderName
	Message  string
	Cause    error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// Unwrap returns the underlying cause error.
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewExternalAPIError creates a new ExternalAPIError. The message is
// collapsed to a single line and truncated; markup bodies are replaced by the
// status text. Without an explicit cause, 429 responses wrap ErrRateLimited
// and 5xx responses wrap ErrServiceUnavailable.
func NewExternalAPIError(source string, statusCode int, message string, cause error) *ExternalAPIError {
	if cause == nil {
		cause = statusCause(statusCode)
	}
	return &ExternalAPIError{
		Source:     source,
		StatusCode: statusCode,
		Message:    shortAPIMessage(statusCode, message),
		Cause:      cause,
	}
}

func statusCause(statusCode int) error {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case statusCode >= 500 && statusCode < 600:
		return ErrServiceUnavailable
	default:
		return nil
	}
}

func shortAPIMessage(statusCode int, message string) string {
	message = strings.Join(strings.Fields(message), " ")
	if message == "" || strings.HasPrefix(message, "<") {
		return http.StatusText(statusCode)
	}
	if len(message) <= maxAPIErrorMessage {
		return message
	}

	cut := maxAPIErrorMessage
	for cut > 0 && !utf8.RuneStart(message[cut]) {
		cut--
	}
	return message[:cut] + "..."
}

// NewProviderError wraps err as a ProviderError for the given provider.
// An existing ProviderError is returned unchanged.
func NewProviderError(provider ProviderName, err error) *ProviderError {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return &ProviderError{
		Provider: provider,
		Message:  msg,
		Cause:    err,
	}
}

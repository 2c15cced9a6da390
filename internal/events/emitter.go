package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/helixir/scholar-search-service/internal/domain"
)

const (
	// EventTypeSearchCompleted is emitted for every freshly computed search response.
	EventTypeSearchCompleted = "search.completed"

	defaultServiceName = "scholar-search-service"
)

// Event is the envelope written to Kafka.
type Event struct {
	EventID       string          `json:"eventId"`
	EventType     string          `json:"eventType"`
	Source        string          `json:"source"`
	OccurredAt    time.Time       `json:"occurredAt"`
	CorrelationID string          `json:"correlationId,omitempty"`
	RequestID     string          `json:"requestId,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// SearchCompletedPayload summarizes a search without carrying its results.
type SearchCompletedPayload struct {
	Query           string                `json:"query"`
	Type            domain.ResultType     `json:"type"`
	Sort            domain.SortMode       `json:"sort"`
	Page            int                   `json:"page"`
	Limit           int                   `json:"limit"`
	ProvidersUsed   []domain.ProviderName `json:"providersUsed"`
	PaperCount      int                   `json:"paperCount"`
	AuthorCount     int                   `json:"authorCount"`
	Partial         bool                  `json:"partial"`
	FailedProviders []domain.ProviderName `json:"failedProviders"`
	TookMs          int64                 `json:"tookMs"`
}

// NewSearchCompletedPayload builds the event payload for resp.
func NewSearchCompletedPayload(resp *domain.SearchResponse) SearchCompletedPayload {
	used := resp.Query.ProvidersUsed
	if used == nil {
		used = []domain.ProviderName{}
	}

	return SearchCompletedPayload{
		Query:           resp.Query.Query,
		Type:            resp.Query.Type,
		Sort:            resp.Query.Sort,
		Page:            resp.Query.Page,
		Limit:           resp.Query.Limit,
		ProvidersUsed:   used,
		PaperCount:      len(resp.Papers),
		AuthorCount:     len(resp.Authors),
		Partial:         resp.Meta.Partial,
		FailedProviders: resp.FailedProviders(),
		TookMs:          resp.Meta.TookMs,
	}
}

// EmitterConfig configures the Emitter with service context.
type EmitterConfig struct {
	// ServiceName identifies the source service.
	ServiceName string
}

// EmitParams contains the parameters for emitting an event.
type EmitParams struct {
	// EventType is the type of event (e.g., "search.completed").
	EventType string
	// Payload is the event payload that will be JSON-serialized.
	Payload interface{}
	// CorrelationID for request tracing (optional).
	CorrelationID string
	// RequestID of the originating HTTP request (optional).
	RequestID string
}

// Emitter creates events enriched with service context.
type Emitter struct {
	config EmitterConfig
	now    func() time.Time
}

// NewEmitter creates a new Emitter with the given service configuration.
func NewEmitter(config EmitterConfig) *Emitter {
	if config.ServiceName == "" {
		config.ServiceName = defaultServiceName
	}
	return &Emitter{config: config, now: time.Now}
}

// Emit creates an Event from the given parameters.
func (e *Emitter) Emit(params EmitParams) (Event, error) {
	if params.EventType == "" {
		return Event{}, fmt.Errorf("event_type is required")
	}

	payloadBytes, err := json.Marshal(params.Payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal payload: %w", err)
	}

	return Event{
		EventID:       uuid.New().String(),
		EventType:     params.EventType,
		Source:        e.config.ServiceName,
		OccurredAt:    e.now().UTC(),
		CorrelationID: params.CorrelationID,
		RequestID:     params.RequestID,
		Payload:       payloadBytes,
	}, nil
}

// EmitSearchCompleted is a convenience method for emitting search.completed events.
func (e *Emitter) EmitSearchCompleted(resp *domain.SearchResponse, correlationID, requestID string) (Event, error) {
	if resp == nil {
		return Event{}, fmt.Errorf("response is required")
	}
	return e.Emit(EmitParams{
		EventType:     EventTypeSearchCompleted,
		Payload:       NewSearchCompletedPayload(resp),
		CorrelationID: correlationID,
		RequestID:     requestID,
	})
}

package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/helixir/scholar-search-service/internal/domain"
	"github.com/helixir/scholar-search-service/internal/observability"
)

const defaultWriteTimeout = 10 * time.Second

// MessageWriter is the subset of *kafka.Writer used by the Publisher.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// WriterConfig configures the Kafka writer.
type WriterConfig struct {
	// Brokers is the list of Kafka broker addresses.
	Brokers []string
	// Topic is the Kafka topic events are written to.
	Topic string
	// BatchSize is the maximum number of messages per batch.
	BatchSize int
	// BatchTimeout is the maximum time before an incomplete batch is flushed.
	BatchTimeout time.Duration
}

// NewKafkaWriter creates a Kafka writer for search events.
func NewKafkaWriter(cfg WriterConfig) *kafka.Writer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 10 * time.Millisecond
	}

	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: false,
	}
}

// PublisherConfig configures the Publisher.
type PublisherConfig struct {
	// WriteTimeout bounds a single background write.
	WriteTimeout time.Duration
}

// Publisher writes events to Kafka.
type Publisher struct {
	writer  MessageWriter
	emitter *Emitter
	metrics *observability.Metrics
	logger  zerolog.Logger
	config  PublisherConfig

	mu      sync.Mutex
	closed  bool
	pending sync.WaitGroup
}

// NewPublisher creates a new Publisher. The metrics parameter may be nil.
func NewPublisher(
	writer MessageWriter,
	emitter *Emitter,
	logger zerolog.Logger,
	metrics *observability.Metrics,
	cfg PublisherConfig,
) *Publisher {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if emitter == nil {
		emitter = NewEmitter(EmitterConfig{})
	}
	return &Publisher{
		writer:  writer,
		emitter: emitter,
		metrics: metrics,
		logger:  logger.With().Str("component", "event-publisher").Logger(),
		config:  cfg,
	}
}

// Publish writes event synchronously.
func (p *Publisher) Publish(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		p.metrics.RecordEventFailed(event.EventType)
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(messageKey(event)),
		Value: value,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "event_id", Value: []byte(event.EventID)},
		},
	}
	if event.CorrelationID != "" {
		msg.Headers = append(msg.Headers, kafka.Header{Key: "correlation_id", Value: []byte(event.CorrelationID)})
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.metrics.RecordEventFailed(event.EventType)
		return fmt.Errorf("write event %s: %w", event.EventID, err)
	}

	p.metrics.RecordEventPublished(event.EventType)
	return nil
}

// PublishSearchCompleted emits a search.completed event for resp and writes
// it in the background. It never blocks on the broker.
func (p *Publisher) PublishSearchCompleted(ctx context.Context, resp *domain.SearchResponse) {
	logger := observability.LoggerFromContext(ctx, p.logger)

	event, err := p.emitter.EmitSearchCompleted(resp,
		observability.CorrelationIDFromContext(ctx),
		observability.RequestIDFromContext(ctx),
	)
	if err != nil {
		p.metrics.RecordEventFailed(EventTypeSearchCompleted)
		logger.Error().Err(err).Msg("failed to build search event")
		return
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.metrics.RecordEventFailed(event.EventType)
		logger.Warn().Str("event_id", event.EventID).Msg("publisher closed, dropping event")
		return
	}
	p.pending.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.pending.Done()

		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.config.WriteTimeout)
		defer cancel()

		if err := p.Publish(writeCtx, event); err != nil {
			logger.Warn().
				Err(err).
				Str("event_id", event.EventID).
				Str("event_type", event.EventType).
				Msg("failed to publish event")
			return
		}

		logger.Debug().
			Str("event_id", event.EventID).
			Str("event_type", event.EventType).
			Msg("event published")
	}()
}

// Close waits for in-flight writes and closes the underlying writer.
// Events submitted after Close are dropped.
func (p *Publisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.pending.Wait()

	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("close event writer: %w", err)
	}
	return nil
}

// messageKey partitions events of one request together.
func messageKey(event Event) string {
	if event.CorrelationID != "" {
		return event.CorrelationID
	}
	return event.EventID
}

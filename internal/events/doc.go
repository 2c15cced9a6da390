// Package events publishes search service events to Kafka.
//
// # Overview
//
// Every freshly computed search response produces one search.completed event.
// Cache hits and rejected requests produce none. Events are built on the
// request path and written in the background, so a slow or unreachable broker
// never delays a search response. Write failures are logged and counted.
//
// # Components
//
//   - Emitter: builds Event envelopes with ids, timestamps and tracing context
//   - Publisher: writes events through a kafka-go Writer
//
// # Event Types
//
//   - search.completed: a unified search finished and its response was cached
//
// # Usage
//
//	writer := events.NewKafkaWriter(events.WriterConfig{Brokers: brokers, Topic: topic})
//	publisher := events.NewPublisher(writer, events.NewEmitter(events.EmitterConfig{}), logger, metrics, events.PublisherConfig{})
//	defer publisher.Close()
//
//	svc := search.NewService(registry, cache, logger, cfg, search.WithEventPublisher(publisher))
package events

// Package events publishes order lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"storefront-orders/internal/config"
	"storefront-orders/internal/model"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

const (
	// EventOrderCreated is the event type emitted for every newly stored order.
	EventOrderCreated = "OrderCreated"
	eventVersion      = 1
	producerName      = "storefront-orders"
)

// Envelope wraps every event written to the bus.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id"`
	Payload       json.RawMessage `json:"payload"`
}

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes OrderCreated events keyed by order code.
type KafkaPublisher struct {
	writer messageWriter
	now    func() time.Time
	logger zerolog.Logger
}

// NewKafkaPublisher creates an asynchronous publisher for cfg.Topic. Delivery
// failures are reported through the writer's completion callback and logged.
func NewKafkaPublisher(cfg config.KafkaConfig, logger zerolog.Logger) *KafkaPublisher {
	logger = logger.With().Str("component", "events").Str("topic", cfg.Topic).Logger()

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err == nil {
				return
			}
			for _, m := range messages {
				logger.Error().Err(err).Str("order_code", string(m.Key)).Msg("failed to deliver order event")
			}
		},
	}

	return newKafkaPublisher(writer, logger)
}

func newKafkaPublisher(writer messageWriter, logger zerolog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: writer,
		now:    time.Now,
		logger: logger,
	}
}

// PublishOrderCreated enqueues an OrderCreated event for order.
func (p *KafkaPublisher) PublishOrderCreated(ctx context.Context, order model.Order) error {
	envelope, err := p.envelope(EventOrderCreated, order.OrderCode, order)
	if err != nil {
		return err
	}

	value, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(order.OrderCode),
		Value: value,
		Time:  envelope.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(envelope.EventType)},
			{Key: "event_id", Value: []byte(envelope.EventID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error().Err(err).Str("order_code", order.OrderCode).Msg("failed to write order event")
		return fmt.Errorf("failed to publish order event: %w", err)
	}

	p.logger.Debug().
		Str("order_code", order.OrderCode).
		Str("event_id", envelope.EventID).
		Msg("order event published")

	return nil
}

// Close flushes pending messages and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func (p *KafkaPublisher) envelope(eventType, correlationID string, payload any) (Envelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to encode event payload: %w", err)
	}

	occurred := p.now().UTC()
	return Envelope{
		EventID:       ulid.MustNew(ulid.Timestamp(occurred), ulid.DefaultEntropy()).String(),
		EventType:     eventType,
		EventVersion:  eventVersion,
		OccurredAt:    occurred,
		Producer:      producerName,
		CorrelationID: correlationID,
		Payload:       body,
	}, nil
}

// NoopPublisher drops every event. It is used when Kafka is disabled.
type NoopPublisher struct{}

// PublishOrderCreated does nothing.
func (NoopPublisher) PublishOrderCreated(context.Context, model.Order) error { return nil }

// Close does nothing.
func (NoopPublisher) Close() error { return nil }

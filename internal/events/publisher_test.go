package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"storefront-orders/internal/model"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisher_PublishOrderCreated(t *testing.T) {
	writer := &recordingWriter{}
	publisher := newKafkaPublisher(writer, zerolog.Nop())
	fixed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	publisher.now = func() time.Time { return fixed }

	order := model.Order{
		OrderCode:   "AB12CD34-1",
		SellerName:  "Store A",
		TotalAmount: decimal.NewFromInt(5200),
	}

	require.NoError(t, publisher.PublishOrderCreated(context.Background(), order))
	require.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	assert.Equal(t, "AB12CD34-1", string(msg.Key))
	assert.Equal(t, fixed, msg.Time)

	var envelope Envelope
	require.NoError(t, json.Unmarshal(msg.Value, &envelope))
	assert.Equal(t, EventOrderCreated, envelope.EventType)
	assert.Equal(t, 1, envelope.EventVersion)
	assert.Equal(t, "storefront-orders", envelope.Producer)
	assert.Equal(t, "AB12CD34-1", envelope.CorrelationID)
	assert.True(t, fixed.Equal(envelope.OccurredAt))

	id, err := ulid.Parse(envelope.EventID)
	require.NoError(t, err)
	assert.Equal(t, ulid.Timestamp(fixed), id.Time())

	var payload model.Order
	require.NoError(t, json.Unmarshal(envelope.Payload, &payload))
	assert.Equal(t, "Store A", payload.SellerName)
	assert.True(t, decimal.NewFromInt(5200).Equal(payload.TotalAmount))
}

func TestKafkaPublisher_WriteFailure(t *testing.T) {
	writer := &recordingWriter{err: errors.New("broker unavailable")}
	publisher := newKafkaPublisher(writer, zerolog.Nop())

	err := publisher.PublishOrderCreated(context.Background(), model.Order{OrderCode: "X"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker unavailable")
}

func TestKafkaPublisher_Close(t *testing.T) {
	writer := &recordingWriter{}
	publisher := newKafkaPublisher(writer, zerolog.Nop())

	require.NoError(t, publisher.Close())
	assert.True(t, writer.closed)
}

func TestNoopPublisher(t *testing.T) {
	var p NoopPublisher
	assert.NoError(t, p.PublishOrderCreated(context.Background(), model.Order{}))
	assert.NoError(t, p.Close())
}

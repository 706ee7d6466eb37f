package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/api/internal/services"
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

func TestKafkaOrderPublisherKeysByOrder(t *testing.T) {
	writer := &recordingWriter{}
	publisher := newKafkaOrderPublisher(writer)

	occurredAt := time.Date(2024, 3, 9, 10, 30, 0, 0, time.UTC)
	err := publisher.PublishOrderEvent(context.Background(), services.OrderEvent{
		ID:         "evt-1",
		Type:       "order.created",
		OrderID:    "ord_1",
		OccurredAt: occurredAt,
	})
	require.NoError(t, err)
	require.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	assert.Equal(t, "ord_1", string(msg.Key))
	assert.Equal(t, occurredAt, msg.Time)

	var payload services.OrderEvent
	require.NoError(t, json.Unmarshal(msg.Value, &payload))
	assert.Equal(t, "order.created", payload.Type)

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, map[string]string{"type": "order.created", "eventId": "evt-1"}, headers)

	require.NoError(t, publisher.Close())
	assert.True(t, writer.closed)
}

func TestKafkaOrderPublisherKeysLowStockByProduct(t *testing.T) {
	writer := &recordingWriter{}
	publisher := newKafkaOrderPublisher(writer)

	require.NoError(t, publisher.PublishOrderEvent(context.Background(), services.OrderEvent{Type: "inventory.low_stock", ProductID: "prod-a"}))
	assert.Equal(t, "prod-a", string(writer.messages[0].Key))
}

func TestKafkaOrderPublisherWrapsWriteErrors(t *testing.T) {
	cause := errors.New("leader not available")
	publisher := newKafkaOrderPublisher(&recordingWriter{err: cause})

	err := publisher.PublishOrderEvent(context.Background(), services.OrderEvent{Type: "order.created", OrderID: "ord_1"})
	assert.ErrorIs(t, err, cause)
}

func TestNewKafkaOrderPublisherValidatesConfig(t *testing.T) {
	_, err := NewKafkaOrderPublisher(nil, "orders")
	assert.Error(t, err)
	_, err = NewKafkaOrderPublisher([]string{"localhost:9092"}, "")
	assert.Error(t, err)

	publisher, err := NewKafkaOrderPublisher([]string{"localhost:9092"}, "orders")
	require.NoError(t, err)
	assert.NoError(t, publisher.Close())
}

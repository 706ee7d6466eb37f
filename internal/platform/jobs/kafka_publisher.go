package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/storefront/api/internal/services"
)

// messageWriter is the subset of *kafka.Writer used by the publisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaOrderPublisher writes order events to a Kafka topic keyed by order id, so every event for
// an order lands on the same partition.
type KafkaOrderPublisher struct {
	writer  messageWriter
	marshal func(any) ([]byte, error)
}

var _ services.EventPublisher = (*KafkaOrderPublisher)(nil)

// NewKafkaOrderPublisher builds a publisher writing to topic on brokers.
func NewKafkaOrderPublisher(brokers []string, topic string) (*KafkaOrderPublisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka order publisher: at least one broker is required")
	}
	if topic == "" {
		return nil, errors.New("kafka order publisher: topic is required")
	}
	return newKafkaOrderPublisher(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}), nil
}

func newKafkaOrderPublisher(writer messageWriter) *KafkaOrderPublisher {
	return &KafkaOrderPublisher{writer: writer, marshal: json.Marshal}
}

// PublishOrderEvent writes a single message and blocks until the brokers acknowledge it.
func (p *KafkaOrderPublisher) PublishOrderEvent(ctx context.Context, event services.OrderEvent) error {
	if p == nil || p.writer == nil {
		return errors.New("kafka order publisher: not initialised")
	}
	data, err := p.marshal(event)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	headers := make([]kafka.Header, 0, 2)
	for key, value := range map[string]string{"type": event.Type, "eventId": event.ID} {
		if value != "" {
			headers = append(headers, kafka.Header{Key: key, Value: []byte(value)})
		}
	}

	msg := kafka.Message{
		Key:     []byte(event.Key()),
		Value:   data,
		Headers: headers,
		Time:    event.OccurredAt.UTC(),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write order event: %w", err)
	}
	return nil
}

// Close flushes buffered messages and releases broker connections.
func (p *KafkaOrderPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

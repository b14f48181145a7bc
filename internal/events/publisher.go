package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

type Publisher interface {
	PublishOrderEvent(ctx context.Context, event *OrderEvent) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaPublisher struct {
	writer messageWriter
}

// NewKafkaPublisher writes order events to topic, keyed by order id so all
// events of one order land on the same partition.
func NewKafkaPublisher(brokers []string, topic string) Publisher {
	return &kafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: kafka.RequireAll,
		},
	}
}

func (p *kafkaPublisher) PublishOrderEvent(ctx context.Context, event *OrderEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.OrderID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}

	if event.CorrelationID != "" {
		msg.Headers = append(msg.Headers, kafka.Header{Key: "correlation_id", Value: []byte(event.CorrelationID)})
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s for order %s: %w", event.Type, event.OrderID, err)
	}

	return nil
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}

type noopPublisher struct{}

// NewNoopPublisher is used when no brokers are configured.
func NewNoopPublisher() Publisher {
	return noopPublisher{}
}

func (noopPublisher) PublishOrderEvent(context.Context, *OrderEvent) error { return nil }

func (noopPublisher) Close() error { return nil }

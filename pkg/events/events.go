// Package events defines the Kafka messages exchanged between the cart and
// orders services.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/money"
	"github.com/segmentio/kafka-go"
)

// HeaderEventType names the header carrying the event type of a message.
const HeaderEventType = "event_type"

const (
	OrderCreated       = "order.created"
	OrderStatusChanged = "order.status_changed"
	PaymentConfirmed   = "payment.confirmed"
)

// OrderEvent is published on the order events topic, keyed by order id.
type OrderEvent struct {
	Type          string      `json:"type"`
	OrderID       string      `json:"order_id"`
	OrderNumber   string      `json:"order_number"`
	UserID        string      `json:"user_id"`
	OrderStatus   string      `json:"order_status,omitempty"`
	PaymentStatus string      `json:"payment_status,omitempty"`
	Total         money.Cents `json:"total"`
	OccurredAt    time.Time   `json:"occurred_at"`
}

// Message encodes v as a JSON Kafka message with the event type header.
func Message(key, eventType string, v any) (kafka.Message, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	return kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(eventType)},
		},
	}, nil
}

// Type returns the event type header of m, or "" when absent.
func Type(m kafka.Message) string {
	for _, h := range m.Headers {
		if h.Key == HeaderEventType {
			return string(h.Value)
		}
	}
	return ""
}

// Writer is the part of *kafka.Writer used by publishers.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewWriter returns a least-bytes balanced writer for topic.
func NewWriter(topic string, brokers ...string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
}

// Package notify hands customer notifications to the messaging layer. Email
// delivery itself happens downstream of the notifications topic.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/circuitbreaker"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/events"
)

const EventShipment = "shipment"

var ErrNoRecipient = errors.New("notification has no recipient")

type Payload struct {
	OrderNumber       string     `json:"order_number"`
	TrackingNumber    string     `json:"tracking_number"`
	Carrier           string     `json:"carrier,omitempty"`
	EstimatedDelivery *time.Time `json:"estimated_delivery,omitempty"`
}

type Notification struct {
	Event     string  `json:"event"`
	Recipient string  `json:"recipient"`
	Payload   Payload `json:"payload"`
}

type Dispatcher interface {
	Dispatch(ctx context.Context, n Notification) error
}

// KafkaDispatcher publishes notifications keyed by recipient so one
// customer's messages stay ordered.
type KafkaDispatcher struct {
	writer  events.Writer
	breaker *circuitbreaker.Breaker
}

func NewKafkaDispatcher(writer events.Writer, breaker *circuitbreaker.Breaker) *KafkaDispatcher {
	return &KafkaDispatcher{writer: writer, breaker: breaker}
}

func (d *KafkaDispatcher) Dispatch(ctx context.Context, n Notification) error {
	if n.Recipient == "" {
		return ErrNoRecipient
	}
	msg, err := events.Message(n.Recipient, n.Event, n)
	if err != nil {
		return err
	}
	if err := d.breaker.Do(func() error {
		return d.writer.WriteMessages(ctx, msg)
	}); err != nil {
		return fmt.Errorf("dispatch %s notification: %w", n.Event, err)
	}
	return nil
}

// Package publisher emits order lifecycle events to Kafka.
package publisher

import (
	"context"
	"fmt"
	"time"

	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/orders-service/internal/domain"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/events"
)

type Publisher struct {
	writer events.Writer
}

func NewPublisher(writer events.Writer) *Publisher {
	return &Publisher{writer: writer}
}

// OrderCreated announces a new order; the cart service clears the buyer's cart on it.
func (p *Publisher) OrderCreated(ctx context.Context, order domain.Order) error {
	return p.publish(ctx, events.OrderCreated, order, order.CreatedAt)
}

func (p *Publisher) StatusChanged(ctx context.Context, order domain.Order) error {
	return p.publish(ctx, events.OrderStatusChanged, order, order.UpdatedAt)
}

func (p *Publisher) publish(ctx context.Context, eventType string, order domain.Order, at time.Time) error {
	msg, err := events.Message(order.ID, eventType, events.OrderEvent{
		Type:          eventType,
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		UserID:        order.UserID,
		OrderStatus:   order.OrderStatus.String(),
		PaymentStatus: order.PaymentStatus.String(),
		Total:         order.Total,
		OccurredAt:    at,
	})
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s for order %s: %w", eventType, order.ID, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

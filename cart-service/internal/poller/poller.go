package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/events"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

var errMissingUserID = errors.New("missing or invalid user_id")

// CartClearer empties a user's cart; clearing an absent cart must succeed.
type CartClearer interface {
	ClearCart(ctx context.Context, userID string) error
}

// Poller clears the owning user's cart once an order has been created.
type Poller struct {
	carts  CartClearer
	reader *kafka.Reader
	log    zerolog.Logger
}

func NewPoller(carts CartClearer, log zerolog.Logger, topic string, brokers ...string) *Poller {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  "cart-service-consumer",
		MaxBytes: 10e6, // 10MB
	})
	return &Poller{carts: carts, reader: reader, log: log}
}

func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		p.readAndClearCart(ctx)
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		p.log.Error().Err(err).Msg("error closing reader")
	}
}

func (p *Poller) readAndClearCart(ctx context.Context) {
	m, err := p.reader.ReadMessage(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.log.Error().Err(err).Msg("error reading message")
		}
		return
	}

	if err := p.handle(ctx, m); err != nil {
		p.log.Error().Err(err).
			Str("topic", m.Topic).
			Int64("offset", m.Offset).
			Msg("order event not applied")
	}
}

// handle ignores every event but order.created.
func (p *Poller) handle(ctx context.Context, m kafka.Message) error {
	var ev events.OrderEvent
	if err := json.Unmarshal(m.Value, &ev); err != nil {
		return fmt.Errorf("error parsing message: %w", err)
	}

	eventType := events.Type(m)
	if eventType == "" {
		eventType = ev.Type
	}
	if eventType != events.OrderCreated {
		return nil
	}
	if ev.UserID == "" {
		return errMissingUserID
	}

	if err := p.carts.ClearCart(ctx, ev.UserID); err != nil {
		return fmt.Errorf("failed to clear cart of %s: %w", ev.UserID, err)
	}
	p.log.Info().Str("user_id", ev.UserID).Str("order_number", ev.OrderNumber).Msg("cart cleared after order")
	return nil
}

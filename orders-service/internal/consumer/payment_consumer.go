package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/orders-service/internal/domain"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/orders-service/internal/repository"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/orders-service/internal/service"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/coupon"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/events"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

const (
	ProviderCard = "card"
	ProviderCOD  = "cod"
)

const (
	retryBackoff    = 500 * time.Millisecond
	maxRetryBackoff = 30 * time.Second
)

var (
	errUnknownProvider = errors.New("unknown payment provider")
	errMalformedEvent  = errors.New("malformed payment event")
)

// PaymentConfirmedEvent is published by the payment collaborator once a
// charge succeeded (or a cash-on-delivery order was accepted).
type PaymentConfirmedEvent struct {
	PaymentID       string             `json:"payment_id"`
	Provider        string             `json:"provider"`
	UserID          string             `json:"user_id"`
	Email           string             `json:"email"`
	Items           []domain.OrderItem `json:"items"`
	ShippingAddress domain.Address     `json:"shipping_address"`
	BillingAddress  domain.Address     `json:"billing_address"`
	CouponCode      string             `json:"coupon_code,omitempty"`
	Currency        string             `json:"currency,omitempty"`
}

type OrderPlacer interface {
	PlaceOrder(ctx context.Context, in service.PlaceOrderInput) (*domain.Order, error)
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	orders     OrderPlacer
	reader     messageReader
	log        zerolog.Logger
	backoff    time.Duration
	maxBackoff time.Duration
}

func NewConsumer(orders OrderPlacer, log zerolog.Logger, topic string, brokers ...string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  "orders-service",
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{orders: orders, reader: reader, log: log, backoff: retryBackoff, maxBackoff: maxRetryBackoff}
}

func (c *Consumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.processMessage(ctx)
	}
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.log.Error().Err(err).Msg("error closing kafka reader")
	}
}

// processMessage commits the offset only once the payment has an order or
// the event can never produce one. Other failures are retried with backoff
// until they succeed or ctx ends, leaving the offset uncommitted.
func (c *Consumer) processMessage(ctx context.Context) {
	m, err := c.reader.FetchMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		c.log.Error().Err(err).Msg("error reading message")
		return
	}

	if err := c.handleWithRetry(ctx, m); err != nil {
		c.log.Warn().Err(err).Int64("offset", m.Offset).Msg("payment event left uncommitted")
		return
	}
	if err := c.reader.CommitMessages(ctx, m); err != nil {
		c.log.Error().Err(err).Int64("offset", m.Offset).Msg("error committing message")
	}
}

func (c *Consumer) handleWithRetry(ctx context.Context, m kafka.Message) error {
	wait := c.backoff
	for attempt := 1; ; attempt++ {
		err := c.handle(ctx, m)
		if err == nil {
			return nil
		}
		if permanent(err) {
			c.log.Error().Err(err).Int64("offset", m.Offset).Msg("payment event rejected, skipping")
			return nil
		}
		c.log.Warn().Err(err).Int64("offset", m.Offset).Int("attempt", attempt).Dur("retry_in", wait).Msg("payment event not processed")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait = min(wait*2, c.maxBackoff)
	}
}

// permanent reports whether retrying the event can never succeed.
func permanent(err error) bool {
	if _, ok := coupon.ReasonOf(err); ok {
		return true
	}
	return errors.Is(err, errMalformedEvent) ||
		errors.Is(err, errUnknownProvider) ||
		errors.Is(err, domain.ErrMissingRequiredField) ||
		errors.Is(err, domain.ErrInvalidQuantity) ||
		errors.Is(err, domain.ErrProductUnavailable)
}

// handle creates the order for one confirmed payment. Replays of an already
// processed payment are skipped.
func (c *Consumer) handle(ctx context.Context, m kafka.Message) error {
	if t := events.Type(m); t != "" && t != events.PaymentConfirmed {
		return nil
	}

	var event PaymentConfirmedEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		return fmt.Errorf("%w: %w", errMalformedEvent, err)
	}
	if event.Provider != ProviderCard && event.Provider != ProviderCOD {
		return fmt.Errorf("%w: %q", errUnknownProvider, event.Provider)
	}

	order, err := c.orders.PlaceOrder(ctx, service.PlaceOrderInput{
		UserID:          event.UserID,
		CustomerEmail:   event.Email,
		Items:           event.Items,
		ShippingAddress: event.ShippingAddress,
		BillingAddress:  event.BillingAddress,
		PaymentMethod:   event.Provider,
		PaymentID:       event.PaymentID,
		CouponCode:      event.CouponCode,
		Currency:        event.Currency,
	})
	if errors.Is(err, repository.ErrDuplicatePayment) {
		c.log.Info().Str("payment_id", event.PaymentID).Msg("order for payment already exists, skipping")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create order for payment %s: %w", event.PaymentID, err)
	}

	c.log.Info().Str("order_id", order.ID).Str("payment_id", event.PaymentID).Msg("order created from payment")
	return nil
}

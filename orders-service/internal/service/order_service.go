package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/orders-service/internal/domain"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/orders-service/internal/metrics"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/orders-service/internal/notify"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/orders-service/internal/repository"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/coupon"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/money"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/pricing"
	"github.com/rs/zerolog"
)

// ErrAggregateUpdateFailed marks a failed customer aggregate increment. The
// order it belongs to stays valid.
var ErrAggregateUpdateFailed = errors.New("customer aggregate update failed")

const maxOrderNumberAttempts = 3

// CouponStore validates coupons and counts their redemptions.
type CouponStore interface {
	coupon.Lookup
	IncrementUsage(ctx context.Context, code string) error
}

type EventPublisher interface {
	OrderCreated(ctx context.Context, order domain.Order) error
	StatusChanged(ctx context.Context, order domain.Order) error
}

type PlaceOrderInput struct {
	UserID          string             `json:"user_id"`
	CustomerEmail   string             `json:"customer_email"`
	Items           []domain.OrderItem `json:"items"`
	ShippingAddress domain.Address     `json:"shipping_address"`
	BillingAddress  domain.Address     `json:"billing_address"`
	PaymentMethod   string             `json:"payment_method"`
	PaymentID       string             `json:"payment_id"`
	CouponCode      string             `json:"coupon_code,omitempty"`
	Currency        string             `json:"currency,omitempty"`
}

type OrderService struct {
	orders    repository.OrderRepository
	customers repository.CustomerRepository
	catalog   repository.ProductCatalog
	coupons   CouponStore
	notifier  notify.Dispatcher
	events    EventPublisher
	pricing   pricing.Config
	metrics   *metrics.Metrics
	log       zerolog.Logger
	now       func() time.Time
}

func NewOrderService(
	orders repository.OrderRepository,
	customers repository.CustomerRepository,
	catalog repository.ProductCatalog,
	coupons CouponStore,
	notifier notify.Dispatcher,
	events EventPublisher,
	cfg pricing.Config,
	m *metrics.Metrics,
	log zerolog.Logger,
) *OrderService {
	return &OrderService{
		orders:    orders,
		customers: customers,
		catalog:   catalog,
		coupons:   coupons,
		notifier:  notifier,
		events:    events,
		pricing:   cfg,
		metrics:   m,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// PlaceOrder prices and persists an order for an already confirmed payment.
// Unit prices and names come from the product catalog; prices on the input
// items are ignored. Once the order is stored, the customer aggregate, coupon usage and the
// order.created event are best effort: their failures are logged and the
// order is still returned.
func (s *OrderService) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*domain.Order, error) {
	if strings.TrimSpace(in.PaymentID) == "" {
		return nil, fmt.Errorf("%w: payment_id", domain.ErrMissingRequiredField)
	}
	if strings.TrimSpace(in.UserID) == "" {
		return nil, fmt.Errorf("%w: user_id", domain.ErrMissingRequiredField)
	}
	if err := domain.ValidateItems(in.Items); err != nil {
		return nil, err
	}

	items, err := s.priceItems(ctx, in.Items)
	if err != nil {
		return nil, err
	}

	now := s.now()
	lines := domain.LinesOf(items)

	var discount money.Cents
	code := coupon.NormalizeCode(in.CouponCode)
	if code != "" {
		res, err := coupon.Validate(ctx, code, s.coupons, now)
		if err != nil {
			return nil, err
		}
		if !res.Valid {
			return nil, res.Err()
		}
		discount = coupon.Discount(*res.Coupon, pricing.Subtotal(lines))
	}
	totals := pricing.ComputeTotals(lines, discount, s.pricing)

	currency := in.Currency
	if currency == "" {
		currency = s.pricing.Currency.String()
	}
	params := domain.NewOrderParams{
		UserID:          in.UserID,
		CustomerEmail:   in.CustomerEmail,
		Items:           items,
		ShippingAddress: in.ShippingAddress,
		BillingAddress:  in.BillingAddress,
		PaymentMethod:   in.PaymentMethod,
		PaymentID:       in.PaymentID,
		CouponCode:      code,
		Currency:        currency,
	}

	order, err := s.createOrder(ctx, params, totals, now)
	if err != nil {
		return nil, err
	}
	s.metrics.OrdersCreated.Inc()

	log := s.log.With().Str("order_id", order.ID).Str("order_number", order.OrderNumber).Logger()
	unit, err := money.ParseCurrency(order.Currency)
	if err != nil {
		unit = s.pricing.Currency
	}
	log.Info().Str("user_id", order.UserID).Str("total", money.Format(order.Total, unit)).Msg("order created")

	if err := s.customers.RecordOrder(ctx, order.UserID, int64(order.Total)); err != nil {
		s.metrics.CustomerAggregateFailure.Inc()
		log.Error().Err(fmt.Errorf("%w: %w", ErrAggregateUpdateFailed, err)).Str("user_id", order.UserID).Msg("customer aggregate not updated")
	}
	if code != "" {
		if err := s.coupons.IncrementUsage(ctx, code); err != nil {
			log.Warn().Err(err).Str("coupon_code", code).Msg("coupon usage not incremented")
		}
	}
	if err := s.events.OrderCreated(ctx, *order); err != nil {
		log.Warn().Err(err).Msg("order.created event not published")
	}

	return order, nil
}

// priceItems snapshots the current catalog name and price onto a copy of items.
func (s *OrderService) priceItems(ctx context.Context, items []domain.OrderItem) ([]domain.OrderItem, error) {
	out := make([]domain.OrderItem, len(items))
	for i, it := range items {
		p, err := s.catalog.Product(ctx, it.ProductID)
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrProductUnavailable, it.ProductID)
		}
		if err != nil {
			return nil, err
		}
		if !p.Active {
			return nil, fmt.Errorf("%w: %s", domain.ErrProductUnavailable, it.ProductID)
		}
		it.ProductName = p.Name
		it.UnitPrice = p.Price
		out[i] = it
	}
	return out, nil
}

// createOrder retries with a fresh order number when the generated one is
// already taken.
func (s *OrderService) createOrder(ctx context.Context, p domain.NewOrderParams, totals pricing.Totals, now time.Time) (*domain.Order, error) {
	var err error
	for attempt := 0; attempt < maxOrderNumberAttempts; attempt++ {
		order := domain.NewOrder(p, totals, now)
		err = s.orders.CreateOrder(ctx, &order)
		if err == nil {
			return &order, nil
		}
		if !errors.Is(err, repository.ErrDuplicateOrderNumber) {
			return nil, err
		}
		s.log.Warn().Str("order_number", order.OrderNumber).Int("attempt", attempt+1).Msg("order number collision")
	}
	return nil, err
}

func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.orders.GetOrderByID(ctx, orderID)
}

// GetUserOrder returns the order only when it belongs to userID.
func (s *OrderService) GetUserOrder(ctx context.Context, userID, orderID string) (*domain.Order, error) {
	order, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, repository.ErrOrderNotFound
	}
	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, userID string) ([]*domain.Order, error) {
	return s.orders.ListOrdersByUserID(ctx, userID)
}

func (s *OrderService) ListAllOrders(ctx context.Context, filter repository.ListFilter) ([]*domain.Order, error) {
	return s.orders.ListOrders(ctx, filter)
}

// TransitionStatus applies req to the stored order, persists it and then
// carries out the resulting effects.
func (s *OrderService) TransitionStatus(ctx context.Context, orderID string, req domain.TransitionRequest) (*domain.Order, error) {
	current, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	next, effects, err := domain.Transition(*current, req, s.now())
	if err != nil {
		return nil, err
	}
	if len(effects) == 0 {
		return current, nil
	}

	if err := s.orders.SaveStatus(ctx, &next); err != nil {
		return nil, err
	}
	s.applyEffects(ctx, next, effects)
	return &next, nil
}

func (s *OrderService) applyEffects(ctx context.Context, order domain.Order, effects []domain.Effect) {
	log := s.log.With().Str("order_id", order.ID).Str("order_number", order.OrderNumber).Logger()

	for _, effect := range effects {
		switch e := effect.(type) {
		case domain.StatusChanged:
			s.metrics.Transitions.WithLabelValues(e.From.String(), e.To.String()).Inc()
			log.Info().Str("from", e.From.String()).Str("to", e.To.String()).Msg("order status changed")
			if err := s.events.StatusChanged(ctx, order); err != nil {
				log.Warn().Err(err).Msg("order.status_changed event not published")
			}
		case domain.Shipment:
			n := notify.Notification{
				Event:     notify.EventShipment,
				Recipient: e.Recipient,
				Payload: notify.Payload{
					OrderNumber:       e.OrderNumber,
					TrackingNumber:    e.TrackingNumber,
					Carrier:           e.Carrier,
					EstimatedDelivery: e.EstimatedDelivery,
				},
			}
			if err := s.notifier.Dispatch(ctx, n); err != nil {
				s.metrics.NotificationsFailed.Inc()
				log.Error().Err(err).Msg("shipment notification not dispatched")
			}
		case domain.Advisory:
			log.Warn().Msg(e.Message)
		}
	}
}

// UpdatePaymentStatus moves the payment status of the stored order.
func (s *OrderService) UpdatePaymentStatus(ctx context.Context, orderID string, target domain.PaymentStatus) (*domain.Order, error) {
	current, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	next, err := domain.TransitionPayment(*current, target, s.now())
	if err != nil {
		return nil, err
	}
	if next.PaymentStatus == current.PaymentStatus {
		return current, nil
	}
	if err := s.orders.SaveStatus(ctx, &next); err != nil {
		return nil, err
	}
	s.log.Info().Str("order_id", next.ID).
		Str("from", current.PaymentStatus.String()).
		Str("to", next.PaymentStatus.String()).
		Msg("payment status changed")
	return &next, nil
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/orders-service/internal/domain"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/docstore"
	"github.com/rs/zerolog"
)

const (
	OrdersCollection    = "orders"
	CustomersCollection = "customers"
	ProductsCollection  = "products"
)

type uniqueIndexer interface {
	EnsureUniqueIndex(ctx context.Context, collection, field string) error
}

type Repository struct {
	store docstore.Store
	log   zerolog.Logger
}

func NewRepository(store docstore.Store, log zerolog.Logger) *Repository {
	return &Repository{store: store, log: log}
}

// EnsureIndexes creates the unique indexes on order_number and payment_id
// when the store supports them.
func (r *Repository) EnsureIndexes(ctx context.Context) error {
	indexer, ok := r.store.(uniqueIndexer)
	if !ok {
		return nil
	}
	for _, field := range []string{"order_number", "payment_id"} {
		if err := indexer.EnsureUniqueIndex(ctx, OrdersCollection, field); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) CreateOrder(ctx context.Context, order *domain.Order) error {
	err := r.store.InsertDocument(ctx, OrdersCollection, order.ID, order)
	if err == nil {
		return nil
	}
	if !errors.Is(err, docstore.ErrDuplicate) {
		return fmt.Errorf("failed to create order: %w", err)
	}

	if _, lookupErr := r.GetOrderByPaymentID(ctx, order.PaymentID); lookupErr == nil {
		return ErrDuplicatePayment
	}
	return fmt.Errorf("%w: %s", ErrDuplicateOrderNumber, order.OrderNumber)
}

func (r *Repository) GetOrderByID(ctx context.Context, id string) (*domain.Order, error) {
	var order domain.Order
	err := r.store.GetDocument(ctx, OrdersCollection, id, &order)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}

func (r *Repository) GetOrderByPaymentID(ctx context.Context, paymentID string) (*domain.Order, error) {
	var orders []*domain.Order
	if err := r.store.QueryDocuments(ctx, OrdersCollection, docstore.Filter{"payment_id": paymentID}, &orders, docstore.Limit(1)); err != nil {
		return nil, fmt.Errorf("failed to query order by payment: %w", err)
	}
	if len(orders) == 0 {
		return nil, ErrOrderNotFound
	}
	return orders[0], nil
}

// ListOrdersByUserID returns the user's orders, newest first.
func (r *Repository) ListOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error) {
	orders := make([]*domain.Order, 0)
	err := r.store.QueryDocuments(ctx, OrdersCollection, docstore.Filter{"user_id": userID}, &orders, docstore.SortBy("created_at", true))
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (r *Repository) ListOrders(ctx context.Context, filter ListFilter) ([]*domain.Order, error) {
	f := docstore.Filter{}
	if filter.OrderStatus != "" {
		f["order_status"] = filter.OrderStatus
	}
	if filter.PaymentStatus != "" {
		f["payment_status"] = filter.PaymentStatus
	}
	opts := []docstore.QueryOption{docstore.SortBy("created_at", true)}
	if filter.Limit > 0 {
		opts = append(opts, docstore.Limit(filter.Limit))
	}

	orders := make([]*domain.Order, 0)
	if err := r.store.QueryDocuments(ctx, OrdersCollection, f, &orders, opts...); err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (r *Repository) SaveStatus(ctx context.Context, order *domain.Order) error {
	err := r.store.SetFields(ctx, OrdersCollection, order.ID, docstore.Fields{
		"order_status":       order.OrderStatus,
		"payment_status":     order.PaymentStatus,
		"tracking_number":    order.TrackingNumber,
		"carrier":            order.Carrier,
		"estimated_delivery": order.EstimatedDelivery,
		"paid_at":            order.PaidAt,
		"shipped_at":         order.ShippedAt,
		"delivered_at":       order.DeliveredAt,
		"cancelled_at":       order.CancelledAt,
		"returned_at":        order.ReturnedAt,
		"updated_at":         order.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to save order status: %w", err)
	}
	return nil
}

func (r *Repository) Watch(ctx context.Context, onChange func(domain.Order)) (*docstore.Subscription, error) {
	return r.store.Subscribe(ctx, OrdersCollection, nil, func(ev docstore.ChangeEvent) {
		var order domain.Order
		if err := ev.Decode(&order); err != nil {
			r.log.Warn().Err(err).Str("order_id", ev.ID).Msg("undecodable order change")
			return
		}
		onChange(order)
	})
}

func (r *Repository) RecordOrder(ctx context.Context, userID string, total int64) error {
	return r.store.AtomicIncrement(ctx, CustomersCollection, userID, docstore.Increments{
		"orders":            1,
		"total_spent_cents": total,
	})
}

func (r *Repository) GetCustomer(ctx context.Context, userID string) (*Customer, error) {
	var c Customer
	if err := r.store.GetDocument(ctx, CustomersCollection, userID, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repository) Product(ctx context.Context, id string) (*Product, error) {
	var p Product
	err := r.store.GetDocument(ctx, ProductsCollection, id, &p)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &p, nil
}

package repository

import (
	"context"
	"errors"

	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/orders-service/internal/domain"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/docstore"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/money"
)

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrDuplicatePayment     = errors.New("order for this payment already exists")
	ErrDuplicateOrderNumber = errors.New("order number already taken")
	ErrProductNotFound      = errors.New("product not found")
)

// ListFilter narrows the admin order listing. Zero values match everything.
type ListFilter struct {
	OrderStatus   domain.OrderStatus
	PaymentStatus domain.PaymentStatus
	Limit         int64
}

type OrderRepository interface {
	// CreateOrder returns ErrDuplicatePayment when an order already exists
	// for the payment id and ErrDuplicateOrderNumber on a number collision.
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrderByID(ctx context.Context, id string) (*domain.Order, error)
	GetOrderByPaymentID(ctx context.Context, paymentID string) (*domain.Order, error)
	ListOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error)
	ListOrders(ctx context.Context, filter ListFilter) ([]*domain.Order, error)
	// SaveStatus writes the status, fulfilment and timestamp fields of order.
	SaveStatus(ctx context.Context, order *domain.Order) error
	// Watch calls onChange with every created or updated order.
	Watch(ctx context.Context, onChange func(domain.Order)) (*docstore.Subscription, error)
}

// CustomerRepository keeps per-customer order aggregates.
type CustomerRepository interface {
	// RecordOrder atomically adds one order and total to the customer's
	// aggregates.
	RecordOrder(ctx context.Context, userID string, total int64) error
	GetCustomer(ctx context.Context, userID string) (*Customer, error)
}

type Customer struct {
	ID         string `bson:"_id" json:"id"`
	Orders     int64  `bson:"orders" json:"orders"`
	TotalSpent int64  `bson:"total_spent_cents" json:"total_spent_cents"`
}

// ProductCatalog reads the products the cart service sells. Orders take their
// prices from here, never from the caller.
type ProductCatalog interface {
	Product(ctx context.Context, id string) (*Product, error)
}

type Product struct {
	ID     string      `bson:"_id" json:"id"`
	Name   string      `bson:"name" json:"name"`
	Price  money.Cents `bson:"price_cents" json:"price"`
	Active bool        `bson:"active" json:"active"`
}

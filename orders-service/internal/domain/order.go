package domain

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/money"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/pricing"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

var (
	ErrIllegalStatusTransition = errors.New("illegal status transition")
	ErrMissingRequiredField    = errors.New("missing required field")
	ErrInvalidQuantity         = errors.New("quantity must be at least 1")
	ErrUnknownStatus           = errors.New("unknown status")
	ErrProductUnavailable      = errors.New("product is not available")
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusReturned   OrderStatus = "returned"
)

var orderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
	OrderStatusReturned,
}

func (s OrderStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is accepted.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCancelled || s == OrderStatusReturned
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(orderStatuses, status) {
		return "", fmt.Errorf("%w: order status %q", ErrUnknownStatus, s)
	}
	return status, nil
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

var paymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusPaid,
	PaymentStatusFailed,
	PaymentStatusRefunded,
}

func (s PaymentStatus) String() string {
	return string(s)
}

func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusRefunded
}

func ParsePaymentStatus(s string) (PaymentStatus, error) {
	status := PaymentStatus(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(paymentStatuses, status) {
		return "", fmt.Errorf("%w: payment status %q", ErrUnknownStatus, s)
	}
	return status, nil
}

type Address struct {
	FullName   string `bson:"full_name" json:"full_name"`
	Line1      string `bson:"line1" json:"line1"`
	Line2      string `bson:"line2,omitempty" json:"line2,omitempty"`
	City       string `bson:"city" json:"city"`
	State      string `bson:"state,omitempty" json:"state,omitempty"`
	PostalCode string `bson:"postal_code" json:"postal_code"`
	Country    string `bson:"country" json:"country"`
	Phone      string `bson:"phone,omitempty" json:"phone,omitempty"`
}

type OrderItem struct {
	ProductID     string      `bson:"product_id" json:"product_id"`
	ProductName   string      `bson:"product_name" json:"product_name"`
	SelectedSize  string      `bson:"selected_size,omitempty" json:"selected_size,omitempty"`
	SelectedColor string      `bson:"selected_color,omitempty" json:"selected_color,omitempty"`
	Quantity      int         `bson:"quantity" json:"quantity"`
	UnitPrice     money.Cents `bson:"unit_price_cents" json:"unit_price"`
}

type Order struct {
	ID              string      `bson:"_id" json:"id"`
	OrderNumber     string      `bson:"order_number" json:"order_number"`
	UserID          string      `bson:"user_id" json:"user_id"`
	CustomerEmail   string      `bson:"customer_email" json:"customer_email"`
	Items           []OrderItem `bson:"items" json:"items"`
	ShippingAddress Address     `bson:"shipping_address" json:"shipping_address"`
	BillingAddress  Address     `bson:"billing_address" json:"billing_address"`
	PaymentMethod   string      `bson:"payment_method" json:"payment_method"`
	PaymentID       string      `bson:"payment_id" json:"payment_id"`
	CouponCode      string      `bson:"coupon_code,omitempty" json:"coupon_code,omitempty"`

	Subtotal money.Cents `bson:"subtotal_cents" json:"subtotal"`
	Discount money.Cents `bson:"discount_cents" json:"discount"`
	Shipping money.Cents `bson:"shipping_cents" json:"shipping"`
	Tax      money.Cents `bson:"tax_cents" json:"tax"`
	Total    money.Cents `bson:"total_cents" json:"total"`
	Currency string      `bson:"currency" json:"currency"`

	OrderStatus   OrderStatus   `bson:"order_status" json:"order_status"`
	PaymentStatus PaymentStatus `bson:"payment_status" json:"payment_status"`

	TrackingNumber    string     `bson:"tracking_number,omitempty" json:"tracking_number,omitempty"`
	Carrier           string     `bson:"carrier,omitempty" json:"carrier,omitempty"`
	EstimatedDelivery *time.Time `bson:"estimated_delivery,omitempty" json:"estimated_delivery,omitempty"`

	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	PaidAt      *time.Time `bson:"paid_at,omitempty" json:"paid_at,omitempty"`
	ShippedAt   *time.Time `bson:"shipped_at,omitempty" json:"shipped_at,omitempty"`
	DeliveredAt *time.Time `bson:"delivered_at,omitempty" json:"delivered_at,omitempty"`
	CancelledAt *time.Time `bson:"cancelled_at,omitempty" json:"cancelled_at,omitempty"`
	ReturnedAt  *time.Time `bson:"returned_at,omitempty" json:"returned_at,omitempty"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updated_at"`
}

// Lines returns the items in the form the pricing engine takes.
func (o Order) Lines() []pricing.Line {
	return LinesOf(o.Items)
}

func LinesOf(items []OrderItem) []pricing.Line {
	return lo.Map(items, func(it OrderItem, _ int) pricing.Line {
		return pricing.Line{UnitPrice: it.UnitPrice, Quantity: it.Quantity}
	})
}

// ValidateItems requires at least one item, each with quantity >= 1 and a
// non-negative price.
func ValidateItems(items []OrderItem) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: items", ErrMissingRequiredField)
	}
	for _, it := range items {
		if it.ProductID == "" {
			return fmt.Errorf("%w: items.product_id", ErrMissingRequiredField)
		}
		if it.Quantity < 1 {
			return fmt.Errorf("%w: %s has quantity %d", ErrInvalidQuantity, it.ProductID, it.Quantity)
		}
		if it.UnitPrice < 0 {
			return fmt.Errorf("%w: %s has a negative price", ErrInvalidQuantity, it.ProductID)
		}
	}
	return nil
}

type NewOrderParams struct {
	UserID          string
	CustomerEmail   string
	Items           []OrderItem
	ShippingAddress Address
	BillingAddress  Address
	PaymentMethod   string
	PaymentID       string
	CouponCode      string
	Currency        string
}

// NewOrder builds a freshly paid order. Orders are only created once the
// payment provider has confirmed the charge, so the order starts confirmed
// and paid.
func NewOrder(p NewOrderParams, totals pricing.Totals, now time.Time) Order {
	paidAt := now
	return Order{
		ID:              uuid.NewString(),
		OrderNumber:     NewOrderNumber(now),
		UserID:          p.UserID,
		CustomerEmail:   p.CustomerEmail,
		Items:           slices.Clone(p.Items),
		ShippingAddress: p.ShippingAddress,
		BillingAddress:  p.BillingAddress,
		PaymentMethod:   p.PaymentMethod,
		PaymentID:       p.PaymentID,
		CouponCode:      p.CouponCode,
		Subtotal:        totals.Subtotal,
		Discount:        totals.Discount,
		Shipping:        totals.Shipping,
		Tax:             totals.Tax,
		Total:           totals.Total,
		Currency:        p.Currency,
		OrderStatus:     OrderStatusConfirmed,
		PaymentStatus:   PaymentStatusPaid,
		CreatedAt:       now,
		PaidAt:          &paidAt,
		UpdatedAt:       now,
	}
}

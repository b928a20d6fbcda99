package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// forward is the strict fulfilment chain.
var forward = map[OrderStatus]OrderStatus{
	OrderStatusPending:    OrderStatusConfirmed,
	OrderStatusConfirmed:  OrderStatusProcessing,
	OrderStatusProcessing: OrderStatusShipped,
	OrderStatusShipped:    OrderStatusDelivered,
}

type TransitionRequest struct {
	Target            OrderStatus
	TrackingNumber    string
	Carrier           string
	EstimatedDelivery *time.Time
	// Override lets an admin jump to any status from an open order. Returned
	// still requires a delivered order and shipped still requires tracking.
	// Re-entering shipped or delivered keeps the first timestamp and does not
	// notify the customer again.
	Override bool
}

// Effect is something the caller must do after persisting a transition.
type Effect interface {
	isEffect()
}

// StatusChanged is emitted by every effective transition.
type StatusChanged struct {
	OrderID     string
	OrderNumber string
	UserID      string
	From        OrderStatus
	To          OrderStatus
}

// Shipment asks for a shipment notification to the customer.
type Shipment struct {
	OrderID           string
	OrderNumber       string
	Recipient         string
	TrackingNumber    string
	Carrier           string
	EstimatedDelivery *time.Time
}

// Advisory reports a transition that is allowed but looks wrong.
type Advisory struct {
	OrderID string
	Message string
}

func (StatusChanged) isEffect() {}
func (Shipment) isEffect()      {}
func (Advisory) isEffect()      {}

// CanTransition reports whether an order in from may move to to. Same-state
// requests are handled by Transition as no-ops and are not covered here.
func CanTransition(from, to OrderStatus, override bool) bool {
	switch {
	case !slices.Contains(orderStatuses, to):
		return false
	case from.IsTerminal():
		return false
	case to == OrderStatusReturned:
		return from == OrderStatusDelivered
	case to == OrderStatusCancelled:
		return true
	case override:
		return true
	default:
		return forward[from] == to
	}
}

// AllowedTargets lists the statuses reachable from from without override.
func AllowedTargets(from OrderStatus) []OrderStatus {
	var out []OrderStatus
	for _, to := range orderStatuses {
		if to != from && CanTransition(from, to, false) {
			out = append(out, to)
		}
	}
	return out
}

// Transition applies req to order. It never mutates its input and rejects
// the request before any change when it is illegal or incomplete. Asking for
// the current status is a no-op that returns the order unchanged and no
// effects.
func Transition(order Order, req TransitionRequest, now time.Time) (Order, []Effect, error) {
	from, to := order.OrderStatus, req.Target
	if from == to {
		return order, nil, nil
	}
	if !CanTransition(from, to, req.Override) {
		return order, nil, fmt.Errorf("%w: %s -> %s", ErrIllegalStatusTransition, from, to)
	}

	tracking := strings.TrimSpace(req.TrackingNumber)
	if to == OrderStatusShipped && tracking == "" {
		return order, nil, fmt.Errorf("%w: tracking_number is required to ship", ErrMissingRequiredField)
	}

	out := order
	out.Items = slices.Clone(order.Items)
	out.OrderStatus = to
	out.UpdatedAt = now

	effects := []Effect{StatusChanged{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		From:        from,
		To:          to,
	}}

	stamp := now
	switch to {
	case OrderStatusShipped:
		out.TrackingNumber = tracking
		out.Carrier = strings.TrimSpace(req.Carrier)
		out.EstimatedDelivery = req.EstimatedDelivery
		if order.ShippedAt == nil {
			out.ShippedAt = &stamp
			effects = append(effects, Shipment{
				OrderID:           out.ID,
				OrderNumber:       out.OrderNumber,
				Recipient:         out.CustomerEmail,
				TrackingNumber:    out.TrackingNumber,
				Carrier:           out.Carrier,
				EstimatedDelivery: out.EstimatedDelivery,
			})
		}
		if out.PaymentStatus == PaymentStatusPending || out.PaymentStatus == PaymentStatusFailed {
			effects = append(effects, Advisory{
				OrderID: out.ID,
				Message: fmt.Sprintf("order shipped while payment is %s", out.PaymentStatus),
			})
		}
	case OrderStatusDelivered:
		if order.DeliveredAt == nil {
			out.DeliveredAt = &stamp
		}
	case OrderStatusCancelled:
		out.CancelledAt = &stamp
	case OrderStatusReturned:
		out.ReturnedAt = &stamp
	}

	return out, effects, nil
}

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending: {PaymentStatusPaid, PaymentStatusFailed},
	PaymentStatusFailed:  {PaymentStatusPaid},
	PaymentStatusPaid:    {PaymentStatusRefunded},
}

// TransitionPayment moves the payment dimension of an order. Like Transition,
// a same-state request is a no-op.
func TransitionPayment(order Order, target PaymentStatus, now time.Time) (Order, error) {
	if order.PaymentStatus == target {
		return order, nil
	}
	if !slices.Contains(paymentTransitions[order.PaymentStatus], target) {
		return order, fmt.Errorf("%w: payment %s -> %s", ErrIllegalStatusTransition, order.PaymentStatus, target)
	}

	out := order
	out.Items = slices.Clone(order.Items)
	out.PaymentStatus = target
	out.UpdatedAt = now
	if target == PaymentStatusPaid {
		paidAt := now
		out.PaidAt = &paidAt
	}
	return out, nil
}

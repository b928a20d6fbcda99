package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/orders-service/internal/domain"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/orders-service/internal/repository"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/orders-service/internal/service"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/coupon"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/httpapi"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

const maxListLimit = 500

// OrderService is the part of service.OrderService the handlers use.
type OrderService interface {
	PlaceOrder(ctx context.Context, in service.PlaceOrderInput) (*domain.Order, error)
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
	GetUserOrder(ctx context.Context, userID, orderID string) (*domain.Order, error)
	ListOrders(ctx context.Context, userID string) ([]*domain.Order, error)
	ListAllOrders(ctx context.Context, filter repository.ListFilter) ([]*domain.Order, error)
	TransitionStatus(ctx context.Context, orderID string, req domain.TransitionRequest) (*domain.Order, error)
	UpdatePaymentStatus(ctx context.Context, orderID string, target domain.PaymentStatus) (*domain.Order, error)
}

type OrdersHandler struct {
	service OrderService
	timeout time.Duration
}

func NewOrdersHandler(service OrderService, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{service: service, timeout: timeout}
}

// OrderItemRequestDTO carries no price: orders are priced from the catalog.
type OrderItemRequestDTO struct {
	ProductID     string `json:"product_id"`
	SelectedSize  string `json:"selected_size,omitempty"`
	SelectedColor string `json:"selected_color,omitempty"`
	Quantity      int    `json:"quantity"`
}

type PlaceOrderRequestDTO struct {
	CustomerEmail   string                `json:"customer_email"`
	Items           []OrderItemRequestDTO `json:"items"`
	ShippingAddress domain.Address        `json:"shipping_address"`
	BillingAddress  domain.Address        `json:"billing_address"`
	PaymentMethod   string                `json:"payment_method"`
	PaymentID       string                `json:"payment_id"`
	CouponCode      string                `json:"coupon_code,omitempty"`
	Currency        string                `json:"currency,omitempty"`
}

func (d PlaceOrderRequestDTO) items() []domain.OrderItem {
	return lo.Map(d.Items, func(it OrderItemRequestDTO, _ int) domain.OrderItem {
		return domain.OrderItem{
			ProductID:     it.ProductID,
			SelectedSize:  it.SelectedSize,
			SelectedColor: it.SelectedColor,
			Quantity:      it.Quantity,
		}
	})
}

type StatusRequestDTO struct {
	Status            string     `json:"status"`
	TrackingNumber    string     `json:"tracking_number,omitempty"`
	Carrier           string     `json:"carrier,omitempty"`
	EstimatedDelivery *time.Time `json:"estimated_delivery,omitempty"`
	Override          bool       `json:"override,omitempty"`
}

type PaymentStatusRequestDTO struct {
	PaymentStatus string `json:"payment_status"`
}

// AdminOrderView adds the statuses an admin may move the order to.
type AdminOrderView struct {
	*domain.Order
	AllowedTransitions []domain.OrderStatus `json:"allowed_transitions"`
}

type ListResponse struct {
	Orders []*domain.Order `json:"orders"`
	Count  int             `json:"count"`
}

// Routes mounts the customer API; every route requires X-User-ID.
func (h *OrdersHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(httpapi.RequireUser)
	r.Post("/", h.PlaceOrder)
	r.Get("/", h.ListOrders)
	r.Get("/{order_id}", h.GetOrder)
	return r
}

// AdminRoutes mounts the admin API. stream serves the live order feed.
func (h *OrdersHandler) AdminRoutes(stream http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(httpapi.RequireAdmin)
	r.Get("/", h.ListAllOrders)
	r.Handle("/stream", stream)
	r.Get("/{order_id}", h.GetAdminOrder)
	r.Patch("/{order_id}/status", h.UpdateStatus)
	r.Patch("/{order_id}/payment-status", h.UpdatePaymentStatus)
	return r
}

func (h *OrdersHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req PlaceOrderRequestDTO
	if err := httpapi.DecodeJSON(w, r, &req); err != nil {
		httpapi.RespondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	order, err := h.service.PlaceOrder(ctx, service.PlaceOrderInput{
		UserID:          httpapi.UserID(ctx),
		CustomerEmail:   req.CustomerEmail,
		Items:           req.items(),
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		PaymentMethod:   req.PaymentMethod,
		PaymentID:       req.PaymentID,
		CouponCode:      req.CouponCode,
		Currency:        req.Currency,
	})
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}
	httpapi.RespondJSON(w, http.StatusCreated, order)
}

func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orders, err := h.service.ListOrders(ctx, httpapi.UserID(ctx))
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}
	respondList(w, orders)
}

func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	order, err := h.service.GetUserOrder(ctx, httpapi.UserID(ctx), chi.URLParam(r, "order_id"))
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}
	httpapi.RespondJSON(w, http.StatusOK, order)
}

// ListAllOrders filters by the order_status, payment_status and limit query
// parameters.
func (h *OrdersHandler) ListAllOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	filter, err := parseListFilter(r)
	if err != nil {
		httpapi.RespondError(w, http.StatusBadRequest, "invalid_filter", err.Error())
		return
	}

	orders, err := h.service.ListAllOrders(ctx, filter)
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}
	respondList(w, orders)
}

func (h *OrdersHandler) GetAdminOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	order, err := h.service.GetOrder(ctx, chi.URLParam(r, "order_id"))
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}
	httpapi.RespondJSON(w, http.StatusOK, AdminOrderView{
		Order:              order,
		AllowedTransitions: domain.AllowedTargets(order.OrderStatus),
	})
}

func (h *OrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req StatusRequestDTO
	if err := httpapi.DecodeJSON(w, r, &req); err != nil {
		httpapi.RespondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	target, err := domain.ParseOrderStatus(req.Status)
	if err != nil {
		httpapi.RespondError(w, http.StatusBadRequest, "invalid_status", err.Error())
		return
	}

	order, err := h.service.TransitionStatus(ctx, chi.URLParam(r, "order_id"), domain.TransitionRequest{
		Target:            target,
		TrackingNumber:    req.TrackingNumber,
		Carrier:           req.Carrier,
		EstimatedDelivery: req.EstimatedDelivery,
		Override:          req.Override,
	})
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}
	httpapi.RespondJSON(w, http.StatusOK, order)
}

func (h *OrdersHandler) UpdatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req PaymentStatusRequestDTO
	if err := httpapi.DecodeJSON(w, r, &req); err != nil {
		httpapi.RespondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	target, err := domain.ParsePaymentStatus(req.PaymentStatus)
	if err != nil {
		httpapi.RespondError(w, http.StatusBadRequest, "invalid_status", err.Error())
		return
	}

	order, err := h.service.UpdatePaymentStatus(ctx, chi.URLParam(r, "order_id"), target)
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}
	httpapi.RespondJSON(w, http.StatusOK, order)
}

func parseListFilter(r *http.Request) (repository.ListFilter, error) {
	q := r.URL.Query()
	var filter repository.ListFilter
	if s := q.Get("order_status"); s != "" {
		status, err := domain.ParseOrderStatus(s)
		if err != nil {
			return filter, err
		}
		filter.OrderStatus = status
	}
	if s := q.Get("payment_status"); s != "" {
		status, err := domain.ParsePaymentStatus(s)
		if err != nil {
			return filter, err
		}
		filter.PaymentStatus = status
	}
	if s := q.Get("limit"); s != "" {
		limit, err := strconv.ParseInt(s, 10, 64)
		if err != nil || limit < 1 {
			return filter, errors.New("limit must be a positive integer")
		}
		filter.Limit = min(limit, maxListLimit)
	}
	return filter, nil
}

func respondList(w http.ResponseWriter, orders []*domain.Order) {
	if orders == nil {
		orders = []*domain.Order{}
	}
	httpapi.RespondJSON(w, http.StatusOK, ListResponse{Orders: orders, Count: len(orders)})
}

func handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if reason, ok := coupon.ReasonOf(err); ok {
		httpapi.RespondError(w, http.StatusUnprocessableEntity, string(reason), err.Error())
		return
	}

	switch {
	case errors.Is(err, domain.ErrMissingRequiredField):
		httpapi.RespondError(w, http.StatusBadRequest, "missing_required_field", err.Error())
	case errors.Is(err, domain.ErrInvalidQuantity):
		httpapi.RespondError(w, http.StatusBadRequest, "invalid_quantity", err.Error())
	case errors.Is(err, domain.ErrProductUnavailable):
		httpapi.RespondError(w, http.StatusUnprocessableEntity, "product_unavailable", err.Error())
	case errors.Is(err, domain.ErrUnknownStatus):
		httpapi.RespondError(w, http.StatusBadRequest, "invalid_status", err.Error())
	case errors.Is(err, domain.ErrIllegalStatusTransition):
		httpapi.RespondError(w, http.StatusConflict, "illegal_transition", err.Error())
	case errors.Is(err, repository.ErrDuplicatePayment):
		httpapi.RespondError(w, http.StatusConflict, "duplicate_payment", err.Error())
	case errors.Is(err, repository.ErrOrderNotFound):
		httpapi.RespondError(w, http.StatusNotFound, "not_found", "order not found")
	case errors.Is(err, context.DeadlineExceeded):
		httpapi.RespondError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		zerolog.Ctx(ctx).Error().Err(err).Msg("orders request failed")
		httpapi.RespondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/cart-service/internal/catalog"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/cart-service/internal/domain"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/cart-service/internal/service"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/coupon"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/httpapi"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// CartService is the part of service.CartService the handlers use.
type CartService interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	Summary(ctx context.Context, userID string) (*service.Summary, error)
	AddItem(ctx context.Context, userID, productID, size, color string, qty int) (*domain.Cart, error)
	UpdateQuantity(ctx context.Context, userID string, key domain.Key, qty int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, userID string, key domain.Key) (*domain.Cart, error)
	ApplyCoupon(ctx context.Context, userID, code string) (*domain.Cart, error)
	RemoveCoupon(ctx context.Context, userID string) (*domain.Cart, error)
	ClearCart(ctx context.Context, userID string) error
}

type CartHandler struct {
	service CartService
	timeout time.Duration
}

func NewCartHandler(service CartService, timeout time.Duration) *CartHandler {
	return &CartHandler{
		service: service,
		timeout: timeout,
	}
}

type ItemRequestDTO struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Quantity  int    `json:"quantity"`
}

func (d ItemRequestDTO) key() domain.Key {
	return domain.Key{ProductID: d.ProductID, Size: d.Size, Color: d.Color}
}

type CouponRequestDTO struct {
	Code string `json:"code"`
}

// Routes mounts the cart API; every route requires X-User-ID.
func (h *CartHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(httpapi.RequireUser)
	r.Get("/", h.GetCart)
	r.Delete("/", h.ClearCart)
	r.Get("/summary", h.Summary)
	r.Post("/items", h.AddItem)
	r.Put("/items", h.UpdateQuantity)
	r.Delete("/items", h.RemoveItem)
	r.Post("/coupon", h.ApplyCoupon)
	r.Delete("/coupon", h.RemoveCoupon)
	return r
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart, err := h.service.GetCart(ctx, httpapi.UserID(ctx))
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}
	httpapi.RespondJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) Summary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	summary, err := h.service.Summary(ctx, httpapi.UserID(ctx))
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}
	httpapi.RespondJSON(w, http.StatusOK, summary)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req ItemRequestDTO
	if err := httpapi.DecodeJSON(w, r, &req); err != nil {
		httpapi.RespondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.ProductID == "" {
		httpapi.RespondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	cart, err := h.service.AddItem(ctx, httpapi.UserID(ctx), req.ProductID, req.Size, req.Color, req.Quantity)
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}
	httpapi.RespondJSON(w, http.StatusCreated, cart)
}

// UpdateQuantity sets the quantity of one line; zero or less removes it.
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req ItemRequestDTO
	if err := httpapi.DecodeJSON(w, r, &req); err != nil {
		httpapi.RespondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.ProductID == "" {
		httpapi.RespondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	cart, err := h.service.UpdateQuantity(ctx, httpapi.UserID(ctx), req.key(), req.Quantity)
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}
	httpapi.RespondJSON(w, http.StatusOK, cart)
}

// RemoveItem takes the line key from the product_id, size and color query
// parameters.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	q := r.URL.Query()
	key := domain.Key{ProductID: q.Get("product_id"), Size: q.Get("size"), Color: q.Get("color")}
	if key.ProductID == "" {
		httpapi.RespondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	cart, err := h.service.RemoveItem(ctx, httpapi.UserID(ctx), key)
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}
	httpapi.RespondJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CouponRequestDTO
	if err := httpapi.DecodeJSON(w, r, &req); err != nil {
		httpapi.RespondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	cart, err := h.service.ApplyCoupon(ctx, httpapi.UserID(ctx), req.Code)
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}
	httpapi.RespondJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart, err := h.service.RemoveCoupon(ctx, httpapi.UserID(ctx))
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}
	httpapi.RespondJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.service.ClearCart(ctx, httpapi.UserID(ctx)); err != nil {
		handleServiceError(ctx, w, err)
		return
	}
	httpapi.RespondJSON(w, http.StatusNoContent, nil)
}

func handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if reason, ok := coupon.ReasonOf(err); ok {
		httpapi.RespondError(w, http.StatusUnprocessableEntity, string(reason), err.Error())
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidQuantity):
		httpapi.RespondError(w, http.StatusBadRequest, "invalid_quantity", err.Error())
	case errors.Is(err, domain.ErrInvalidOption):
		httpapi.RespondError(w, http.StatusBadRequest, "invalid_option", err.Error())
	case errors.Is(err, domain.ErrProductUnavailable):
		httpapi.RespondError(w, http.StatusUnprocessableEntity, "product_unavailable", err.Error())
	case errors.Is(err, catalog.ErrProductNotFound):
		httpapi.RespondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		httpapi.RespondError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		zerolog.Ctx(ctx).Error().Err(err).Msg("cart request failed")
		httpapi.RespondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

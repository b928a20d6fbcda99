package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/cart-service/internal/catalog"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/cart-service/internal/domain"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/cart-service/internal/service"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/coupon"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/httpapi"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/pricing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serviceMock struct {
	m        sync.RWMutex
	cart     *domain.Cart
	err      error
	lastUser string
	lastKey  domain.Key
	lastQty  int
	lastCode string
}

func (s *serviceMock) record(userID string) (*domain.Cart, error) {
	s.lastUser = userID
	if s.err != nil {
		return nil, s.err
	}
	return s.cart, nil
}

func (s *serviceMock) GetCart(_ context.Context, userID string) (*domain.Cart, error) {
	s.m.Lock()
	defer s.m.Unlock()
	return s.record(userID)
}

func (s *serviceMock) Summary(_ context.Context, userID string) (*service.Summary, error) {
	s.m.Lock()
	defer s.m.Unlock()
	cart, err := s.record(userID)
	if err != nil {
		return nil, err
	}
	return &service.Summary{
		Cart:      cart,
		ItemCount: cart.ItemCount(),
		Totals:    pricing.ComputeTotals(cart.Lines(), cart.DiscountAmount, pricing.DefaultConfig()),
	}, nil
}

func (s *serviceMock) AddItem(_ context.Context, userID, productID, size, color string, qty int) (*domain.Cart, error) {
	s.m.Lock()
	defer s.m.Unlock()
	s.lastKey = domain.Key{ProductID: productID, Size: size, Color: color}
	s.lastQty = qty
	return s.record(userID)
}

func (s *serviceMock) UpdateQuantity(_ context.Context, userID string, key domain.Key, qty int) (*domain.Cart, error) {
	s.m.Lock()
	defer s.m.Unlock()
	s.lastKey, s.lastQty = key, qty
	return s.record(userID)
}

func (s *serviceMock) RemoveItem(_ context.Context, userID string, key domain.Key) (*domain.Cart, error) {
	s.m.Lock()
	defer s.m.Unlock()
	s.lastKey = key
	return s.record(userID)
}

func (s *serviceMock) ApplyCoupon(_ context.Context, userID, code string) (*domain.Cart, error) {
	s.m.Lock()
	defer s.m.Unlock()
	s.lastCode = code
	return s.record(userID)
}

func (s *serviceMock) RemoveCoupon(_ context.Context, userID string) (*domain.Cart, error) {
	s.m.Lock()
	defer s.m.Unlock()
	return s.record(userID)
}

func (s *serviceMock) ClearCart(_ context.Context, userID string) error {
	s.m.Lock()
	defer s.m.Unlock()
	_, err := s.record(userID)
	return err
}

func testCart() *domain.Cart {
	return &domain.Cart{
		UserID: "u1",
		Items: []domain.LineItem{
			{ProductID: "kurta-1", ProductName: "Cotton Kurta", SelectedSize: "M", SelectedColor: "red", Quantity: 2, UnitPrice: 10000},
		},
		CouponCode:     "SAVE10",
		DiscountAmount: 2000,
	}
}

func serve(t *testing.T, svc CartService, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	handler := NewCartHandler(svc, 5*time.Second)

	request := httptest.NewRequest(method, target, strings.NewReader(body))
	request.Header.Set(httpapi.HeaderUserID, "u1")

	recorder := httptest.NewRecorder()
	handler.Routes().ServeHTTP(recorder, request)
	return recorder
}

func TestGetCart_Success(t *testing.T) {
	svc := &serviceMock{cart: testCart()}

	recorder := serve(t, svc, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, recorder.Code)

	var response domain.Cart
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Equal(t, "u1", response.UserID)
	require.Len(t, response.Items, 1)
	assert.Equal(t, "100.00", response.Items[0].UnitPrice.String())
	assert.Equal(t, "u1", svc.lastUser)
}

func TestGetCart_Unauthorized(t *testing.T) {
	handler := NewCartHandler(&serviceMock{cart: testCart()}, 5*time.Second)

	recorder := httptest.NewRecorder()
	handler.Routes().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	var response httpapi.ErrorResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Equal(t, "unauthorized", response.Code)
}

func TestSummary_ReturnsTotals(t *testing.T) {
	recorder := serve(t, &serviceMock{cart: testCart()}, http.MethodGet, "/summary", "")
	require.Equal(t, http.StatusOK, recorder.Code)

	var response struct {
		ItemCount int `json:"item_count"`
		Totals    struct {
			Total json.Number `json:"total"`
			Tax   json.Number `json:"tax"`
		} `json:"totals"`
	}
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Equal(t, 2, response.ItemCount)
	assert.Equal(t, "189.00", response.Totals.Total.String())
	assert.Equal(t, "9.00", response.Totals.Tax.String())
}

func TestAddItem_Success(t *testing.T) {
	svc := &serviceMock{cart: testCart()}

	recorder := serve(t, svc, http.MethodPost, "/items", `{"product_id":"kurta-1","size":"M","color":"red","quantity":2}`)
	assert.Equal(t, http.StatusCreated, recorder.Code)
	assert.Equal(t, domain.Key{ProductID: "kurta-1", Size: "M", Color: "red"}, svc.lastKey)
	assert.Equal(t, 2, svc.lastQty)
}

func TestAddItem_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
		code string
	}{
		{name: "invalid json", body: `{"product_id":`, code: "invalid_request"},
		{name: "missing product", body: `{"quantity":1}`, code: "invalid_product_id"},
		{name: "invalid quantity", body: `{"product_id":"p","quantity":0}`, err: domain.ErrInvalidQuantity, code: "invalid_quantity"},
		{name: "invalid option", body: `{"product_id":"p","size":"XXL","quantity":1}`, err: domain.ErrInvalidOption, code: "invalid_option"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := serve(t, &serviceMock{err: tt.err}, http.MethodPost, "/items", tt.body)
			assert.Equal(t, http.StatusBadRequest, recorder.Code)

			var response httpapi.ErrorResponse
			require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
			assert.Equal(t, tt.code, response.Code)
		})
	}
}

func TestAddItem_ProductErrors(t *testing.T) {
	recorder := serve(t, &serviceMock{err: fmt.Errorf("%w: ghost", catalog.ErrProductNotFound)}, http.MethodPost, "/items", `{"product_id":"ghost","quantity":1}`)
	assert.Equal(t, http.StatusNotFound, recorder.Code)

	recorder = serve(t, &serviceMock{err: domain.ErrProductUnavailable}, http.MethodPost, "/items", `{"product_id":"old","quantity":1}`)
	assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
}

func TestUpdateQuantity(t *testing.T) {
	svc := &serviceMock{cart: testCart()}

	recorder := serve(t, svc, http.MethodPut, "/items", `{"product_id":"kurta-1","size":"M","color":"red","quantity":0}`)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "kurta-1", svc.lastKey.ProductID)
	assert.Equal(t, 0, svc.lastQty)
}

func TestRemoveItem_UsesQueryKey(t *testing.T) {
	svc := &serviceMock{cart: testCart()}

	recorder := serve(t, svc, http.MethodDelete, "/items?product_id=kurta-1&size=M&color=red", "")
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, domain.Key{ProductID: "kurta-1", Size: "M", Color: "red"}, svc.lastKey)

	recorder = serve(t, svc, http.MethodDelete, "/items", "")
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestApplyCoupon_Rejected(t *testing.T) {
	svc := &serviceMock{err: fmt.Errorf("apply: %w", coupon.ErrCouponExpired)}

	recorder := serve(t, svc, http.MethodPost, "/coupon", `{"code":"old"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
	assert.Equal(t, "old", svc.lastCode)

	var response httpapi.ErrorResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Equal(t, "EXPIRED", response.Code)
}

func TestApplyAndRemoveCoupon_Success(t *testing.T) {
	svc := &serviceMock{cart: testCart()}

	assert.Equal(t, http.StatusOK, serve(t, svc, http.MethodPost, "/coupon", `{"code":"SAVE10"}`).Code)
	assert.Equal(t, http.StatusOK, serve(t, svc, http.MethodDelete, "/coupon", "").Code)
}

func TestClearCart(t *testing.T) {
	recorder := serve(t, &serviceMock{}, http.MethodDelete, "/", "")
	assert.Equal(t, http.StatusNoContent, recorder.Code)

	recorder = serve(t, &serviceMock{err: errors.New("mongo down")}, http.MethodDelete, "/", "")
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
}

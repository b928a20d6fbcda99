package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/orders-service/internal/domain"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/docstore"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/pricing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRepo(t *testing.T) *Repository {
	repo := NewRepository(docstore.NewMemoryStore(), zerolog.Nop())
	require.NoError(t, repo.EnsureIndexes(context.Background()))
	return repo
}

func newTestOrder(userID, paymentID string, createdAt time.Time) *domain.Order {
	items := []domain.OrderItem{{ProductID: "saree-3", ProductName: "Silk Saree", Quantity: 1, UnitPrice: 12000}}
	o := domain.NewOrder(domain.NewOrderParams{
		UserID:        userID,
		CustomerEmail: userID + "@example.com",
		Items:         items,
		PaymentMethod: "card",
		PaymentID:     paymentID,
		Currency:      "USD",
	}, pricing.ComputeTotals(domain.LinesOf(items), 0, pricing.DefaultConfig()), createdAt)
	return &o
}

func TestCreateOrder_Success(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	order := newTestOrder("u1", "pay_1", time.Now().UTC().Truncate(time.Millisecond))

	require.NoError(t, repo.CreateOrder(ctx, order))

	got, err := repo.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderNumber, got.OrderNumber)
	assert.Equal(t, domain.OrderStatusConfirmed, got.OrderStatus)
	assert.Equal(t, order.Total, got.Total)
	assert.Equal(t, order.Items, got.Items)
	assert.True(t, order.CreatedAt.Equal(got.CreatedAt))

	byPayment, err := repo.GetOrderByPaymentID(ctx, "pay_1")
	require.NoError(t, err)
	assert.Equal(t, order.ID, byPayment.ID)
}

func TestCreateOrder_DuplicatePayment(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateOrder(ctx, newTestOrder("u1", "pay_1", time.Now())))
	err := repo.CreateOrder(ctx, newTestOrder("u1", "pay_1", time.Now()))
	assert.ErrorIs(t, err, ErrDuplicatePayment)
}

func TestCreateOrder_DuplicateOrderNumber(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	first := newTestOrder("u1", "pay_1", time.Now())
	require.NoError(t, repo.CreateOrder(ctx, first))

	second := newTestOrder("u2", "pay_2", time.Now())
	second.OrderNumber = first.OrderNumber
	err := repo.CreateOrder(ctx, second)
	assert.ErrorIs(t, err, ErrDuplicateOrderNumber)
}

func TestGetOrderByID_NotFound(t *testing.T) {
	repo := setupTestRepo(t)

	_, err := repo.GetOrderByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = repo.GetOrderByPaymentID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestListOrders(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	older := newTestOrder("u1", "pay_1", base)
	newer := newTestOrder("u1", "pay_2", base.Add(time.Hour))
	other := newTestOrder("u2", "pay_3", base.Add(2*time.Hour))
	for _, o := range []*domain.Order{older, newer, other} {
		require.NoError(t, repo.CreateOrder(ctx, o))
	}

	mine, err := repo.ListOrdersByUserID(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, newer.ID, mine[0].ID)
	assert.Equal(t, older.ID, mine[1].ID)

	none, err := repo.ListOrdersByUserID(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	shipped, _, err := domain.Transition(*other, domain.TransitionRequest{Target: domain.OrderStatusCancelled}, base.Add(3*time.Hour))
	require.NoError(t, err)
	require.NoError(t, repo.SaveStatus(ctx, &shipped))

	cancelled, err := repo.ListOrders(ctx, ListFilter{OrderStatus: domain.OrderStatusCancelled})
	require.NoError(t, err)
	require.Len(t, cancelled, 1)
	assert.Equal(t, other.ID, cancelled[0].ID)

	limited, err := repo.ListOrders(ctx, ListFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, other.ID, limited[0].ID)
}

func TestSaveStatus(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	order := newTestOrder("u1", "pay_1", time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC))
	require.NoError(t, repo.CreateOrder(ctx, order))

	later := order.CreatedAt.Add(time.Hour)
	processing, _, err := domain.Transition(*order, domain.TransitionRequest{Target: domain.OrderStatusProcessing}, later)
	require.NoError(t, err)
	shipped, _, err := domain.Transition(processing, domain.TransitionRequest{Target: domain.OrderStatusShipped, TrackingNumber: "TRK1", Carrier: "DHL"}, later)
	require.NoError(t, err)
	require.NoError(t, repo.SaveStatus(ctx, &shipped))

	got, err := repo.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusShipped, got.OrderStatus)
	assert.Equal(t, "TRK1", got.TrackingNumber)
	assert.Equal(t, "DHL", got.Carrier)
	require.NotNil(t, got.ShippedAt)
	assert.True(t, later.Equal(*got.ShippedAt))
	assert.Nil(t, got.DeliveredAt)
	assert.Equal(t, order.Items, got.Items)
}

func TestRecordOrder_ConcurrentIncrements(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, repo.RecordOrder(ctx, "u1", 18900))
		}()
	}
	wg.Wait()

	c, err := repo.GetCustomer(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(20), c.Orders)
	assert.Equal(t, int64(20*18900), c.TotalSpent)
}

func TestWatch_DeliversOrderChanges(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	var mu sync.Mutex
	var seen []domain.OrderStatus
	sub, err := repo.Watch(ctx, func(o domain.Order) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, o.OrderStatus)
	})
	require.NoError(t, err)
	defer sub.Close()

	order := newTestOrder("u1", "pay_1", time.Now())
	require.NoError(t, repo.CreateOrder(ctx, order))
	processing, _, err := domain.Transition(*order, domain.TransitionRequest{Target: domain.OrderStatusProcessing}, time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.SaveStatus(ctx, &processing))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 2
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []domain.OrderStatus{domain.OrderStatusConfirmed, domain.OrderStatusProcessing}, seen)
}

func TestProduct_ReadsCatalogDocument(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	repo := NewRepository(store, zerolog.Nop())

	require.NoError(t, store.SetFields(ctx, ProductsCollection, "kurta-1", docstore.Fields{
		"name":        "Cotton Kurta",
		"price_cents": int64(4599),
		"sizes":       []string{"S", "M"},
		"active":      true,
	}))

	p, err := repo.Product(ctx, "kurta-1")
	require.NoError(t, err)
	assert.Equal(t, "Cotton Kurta", p.Name)
	assert.Equal(t, "45.99", p.Price.String())
	assert.True(t, p.Active)

	_, err = repo.Product(ctx, "missing")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

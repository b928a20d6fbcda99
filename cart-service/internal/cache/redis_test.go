package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/cart-service/internal/domain"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T, opts ...Option) (*RedisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCache(client, opts...), mr
}

func testCart(userID string) *domain.Cart {
	return &domain.Cart{
		UserID: userID,
		Items: []domain.LineItem{
			{ProductID: "saree-1", ProductName: "Silk Saree", SelectedSize: "Free", SelectedColor: "maroon", Quantity: 2, UnitPrice: 4599},
			{ProductID: "kurta-7", ProductName: "Linen Kurta", SelectedSize: "L", SelectedColor: "white", Quantity: 3, UnitPrice: 1250},
		},
		CouponCode:     "SAVE10",
		DiscountAmount: 1295,
		CreatedAt:      time.Now().UTC().Truncate(time.Second),
		UpdatedAt:      time.Now().UTC().Truncate(time.Second),
	}
}

func TestGet_ReadsStoredJSON(t *testing.T) {
	cache, mr := setupTestRedis(t)

	raw, err := json.Marshal(testCart("user123"))
	require.NoError(t, err)
	require.NoError(t, mr.Set("cart:user123", string(raw)))

	got, err := cache.Get(context.Background(), "user123")
	require.NoError(t, err)
	assert.Equal(t, "user123", got.UserID)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "45.99", got.Items[0].UnitPrice.String())
	assert.Equal(t, "12.95", got.DiscountAmount.String())
}

func TestGet_Miss(t *testing.T) {
	cache, _ := setupTestRedis(t)

	got, err := cache.Get(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Nil(t, got)
}

func TestGet_CorruptEntry(t *testing.T) {
	cache, mr := setupTestRedis(t)
	require.NoError(t, mr.Set(cacheKey("user123"), `{"user_id":"user1`))

	_, err := cache.Get(context.Background(), "user123")
	assert.ErrorContains(t, err, "decode cached cart user123")
}

func TestGet_NilItemsBecomeEmpty(t *testing.T) {
	cache, mr := setupTestRedis(t)
	require.NoError(t, mr.Set(cacheKey("u1"), `{"user_id":"u1","items":null,"discount_amount":0}`))

	got, err := cache.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.NotNil(t, got.Items)
	assert.True(t, got.IsEmpty())
}

func TestSet_RoundTrip(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()
	cart := testCart("user456")

	require.NoError(t, cache.Set(ctx, "user456", cart))

	stored, err := mr.Get("cart:user456")
	require.NoError(t, err)
	assert.Contains(t, stored, `"unit_price":45.99`)

	got, err := cache.Get(ctx, "user456")
	require.NoError(t, err)
	assert.Equal(t, cart.Items, got.Items)
	assert.Equal(t, cart.CouponCode, got.CouponCode)
	assert.Equal(t, cart.Subtotal(), got.Subtotal())
}

func TestSet_ExpiresWithinJitterWindow(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "user789", &domain.Cart{UserID: "user789", Items: []domain.LineItem{}}))

	ttl := mr.TTL(cacheKey("user789"))
	assert.GreaterOrEqual(t, ttl, defaultTTL)
	assert.Less(t, ttl, defaultTTL+defaultJitter)

	mr.FastForward(defaultTTL + defaultJitter)
	_, err := cache.Get(ctx, "user789")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestSet_Options(t *testing.T) {
	cache, mr := setupTestRedis(t, WithTTL(time.Minute), WithJitter(0))

	require.NoError(t, cache.Set(context.Background(), "u1", testCart("u1")))
	assert.Equal(t, time.Minute, mr.TTL(cacheKey("u1")))

	fallback, _ := setupTestRedis(t, WithTTL(-time.Second))
	assert.Equal(t, defaultTTL, fallback.ttl)
}

func TestDelete(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()
	require.NoError(t, mr.Set(cacheKey("user999"), `{"user_id":"user999"}`))

	require.NoError(t, cache.Delete(ctx, "user999"))
	assert.False(t, mr.Exists(cacheKey("user999")))

	// deleting a missing key is not an error
	assert.NoError(t, cache.Delete(ctx, "nonexistent"))
}

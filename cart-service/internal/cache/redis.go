package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/cart-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix     = "cart:"
	defaultTTL    = 15 * time.Minute
	defaultJitter = 5 * time.Minute
)

// RedisCache stores carts as JSON under "cart:<user id>". Entries expire
// after the TTL plus a random jitter so carts cached together do not all
// expire at once.
type RedisCache struct {
	client redis.Cmdable
	ttl    time.Duration
	jitter time.Duration
}

type Option func(*RedisCache)

// WithTTL sets the base lifetime of an entry; non-positive values keep the
// default.
func WithTTL(ttl time.Duration) Option {
	return func(c *RedisCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithJitter bounds the random extra lifetime; zero disables it.
func WithJitter(jitter time.Duration) Option {
	return func(c *RedisCache) {
		c.jitter = max(jitter, 0)
	}
}

func NewRedisCache(client redis.Cmdable, opts ...Option) *RedisCache {
	c := &RedisCache{client: client, ttl: defaultTTL, jitter: defaultJitter}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RedisCache) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	raw, err := c.client.Get(ctx, cacheKey(userID)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, ErrCacheMiss
	case err != nil:
		return nil, fmt.Errorf("redis get %s: %w", userID, err)
	}

	cart := &domain.Cart{}
	if err := json.Unmarshal(raw, cart); err != nil {
		return nil, fmt.Errorf("decode cached cart %s: %w", userID, err)
	}
	if cart.Items == nil {
		cart.Items = []domain.LineItem{}
	}
	return cart, nil
}

func (c *RedisCache) Set(ctx context.Context, userID string, cart *domain.Cart) error {
	raw, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("encode cart %s: %w", userID, err)
	}
	if err := c.client.Set(ctx, cacheKey(userID), raw, c.expiry()).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", userID, err)
	}
	return nil
}

// Delete drops the entry; a missing key is not an error.
func (c *RedisCache) Delete(ctx context.Context, userID string) error {
	if err := c.client.Del(ctx, cacheKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", userID, err)
	}
	return nil
}

func (c *RedisCache) expiry() time.Duration {
	if c.jitter <= 0 {
		return c.ttl
	}
	return c.ttl + time.Duration(rand.Int63n(int64(c.jitter)))
}

func cacheKey(userID string) string {
	return keyPrefix + userID
}

package cache

import (
	"context"
	"errors"

	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/cart-service/internal/domain"
)

// CartCache is a read-through copy of carts keyed by user id. The repository
// stays the source of truth; callers delete entries after every write.
type CartCache interface {
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	Set(ctx context.Context, userID string, cart *domain.Cart) error
	Delete(ctx context.Context, userID string) error
}

var ErrCacheMiss = errors.New("cache miss")

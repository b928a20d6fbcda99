package repository

import (
	"context"

	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/cart-service/internal/domain"
)

// CartRepository defines the interface for cart data operations
// Consumers define this interface, not the MongoDB implementation
type CartRepository interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	// UpsertCart replaces the stored cart with the given state
	UpsertCart(ctx context.Context, cart *domain.Cart) error
}

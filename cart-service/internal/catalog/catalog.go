// Package catalog reads product prices and options for the cart from the
// document store "products" collection.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/cart-service/internal/domain"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/docstore"
)

const Collection = "products"

var ErrProductNotFound = errors.New("product not found")

type Store struct {
	docs docstore.Store
}

func NewStore(docs docstore.Store) *Store {
	return &Store{docs: docs}
}

func (s *Store) Product(ctx context.Context, id string) (domain.Product, error) {
	var p domain.Product
	err := s.docs.GetDocument(ctx, Collection, id, &p)
	if errors.Is(err, docstore.ErrNotFound) {
		return domain.Product{}, fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("load product %s: %w", id, err)
	}
	return p, nil
}

// Save writes the cart-relevant fields of p.
func (s *Store) Save(ctx context.Context, p domain.Product) error {
	return s.docs.SetFields(ctx, Collection, p.ID, docstore.Fields{
		"name":        p.Name,
		"price_cents": p.Price,
		"sizes":       p.Sizes,
		"colors":      p.Colors,
		"active":      p.Active,
	})
}

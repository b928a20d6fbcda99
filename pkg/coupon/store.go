package coupon

import (
	"context"
	"errors"
	"fmt"

	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/docstore"
)

const Collection = "coupons"

// StoreRepository keeps coupons in the document store, one document per
// upper-cased code.
type StoreRepository struct {
	store docstore.Store
}

func NewStoreRepository(store docstore.Store) *StoreRepository {
	return &StoreRepository{store: store}
}

func (r *StoreRepository) FindByCode(ctx context.Context, code string) (*Coupon, error) {
	var c Coupon
	err := r.store.GetDocument(ctx, Collection, NormalizeCode(code), &c)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *StoreRepository) Save(ctx context.Context, c Coupon) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return r.store.SetFields(ctx, Collection, NormalizeCode(c.Code), docstore.Fields{
		"discount_type":  c.DiscountType,
		"discount_value": c.DiscountValue,
		"active":         c.Active,
		"expiry_date":    c.ExpiryDate,
		"usage_limit":    c.UsageLimit,
		"usage_count":    c.UsageCount,
	})
}

// IncrementUsage records one redemption. Unknown codes are rejected rather
// than created.
func (r *StoreRepository) IncrementUsage(ctx context.Context, code string) error {
	if _, err := r.FindByCode(ctx, code); err != nil {
		return fmt.Errorf("increment usage of %q: %w", code, err)
	}
	return r.store.AtomicIncrement(ctx, Collection, NormalizeCode(code), docstore.Inc("usage_count", 1))
}

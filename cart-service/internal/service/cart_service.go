package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/cart-service/internal/cache"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/cart-service/internal/domain"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/cart-service/internal/repository"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/coupon"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/pricing"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Catalog resolves the current price and options of a product.
type Catalog interface {
	Product(ctx context.Context, id string) (domain.Product, error)
}

// Summary is a cart together with its computed totals.
type Summary struct {
	Cart      *domain.Cart   `json:"cart"`
	ItemCount int            `json:"item_count"`
	Totals    pricing.Totals `json:"totals"`
}

type CartService struct {
	repo    repository.CartRepository
	cache   cache.CartCache
	catalog Catalog
	coupons coupon.Lookup
	pricing pricing.Config
	log     zerolog.Logger
	now     func() time.Time
	sfg     singleflight.Group // Prevents cache stampede
}

func NewCartService(
	repo repository.CartRepository,
	cache cache.CartCache,
	catalog Catalog,
	coupons coupon.Lookup,
	cfg pricing.Config,
	log zerolog.Logger,
) *CartService {
	return &CartService{
		repo:    repo,
		cache:   cache,
		catalog: catalog,
		coupons: coupons,
		pricing: cfg,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// GetCart returns the user's cart, or an empty one when none is stored.
func (s *CartService) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	// Use singleflight to prevent multiple concurrent cache misses for same key
	v, err, _ := s.sfg.Do(userID, func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cart, nil // cart is in cache
		}

		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.Warn().Err(err).Str("user_id", userID).Msg("cache get failed")
		}

		cart, err = s.repo.GetCart(ctx, userID)
		if errors.Is(err, repository.ErrCartNotFound) {
			return s.emptyCart(userID), nil
		}
		if err != nil {
			return nil, err
		}

		go func() {
			if errSet := s.cache.Set(context.Background(), userID, cart); errSet != nil {
				s.log.Warn().Err(errSet).Str("user_id", userID).Msg("cache set failed")
			}
		}()

		return cart, nil
	})

	if err != nil {
		return nil, err
	}

	return v.(*domain.Cart), nil
}

func (s *CartService) Summary(ctx context.Context, userID string) (*Summary, error) {
	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Summary{
		Cart:      cart,
		ItemCount: cart.ItemCount(),
		Totals:    pricing.ComputeTotals(cart.Lines(), cart.DiscountAmount, s.pricing),
	}, nil
}

func (s *CartService) AddItem(ctx context.Context, userID, productID, size, color string, qty int) (*domain.Cart, error) {
	if qty < 1 {
		return nil, domain.ErrInvalidQuantity
	}
	product, err := s.catalog.Product(ctx, productID)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, userID, true, func(c domain.Cart) (domain.Cart, error) {
		return domain.AddItem(c, product, size, color, qty)
	})
}

func (s *CartService) UpdateQuantity(ctx context.Context, userID string, key domain.Key, qty int) (*domain.Cart, error) {
	return s.mutate(ctx, userID, true, func(c domain.Cart) (domain.Cart, error) {
		return domain.UpdateQuantity(c, key, qty), nil
	})
}

func (s *CartService) RemoveItem(ctx context.Context, userID string, key domain.Key) (*domain.Cart, error) {
	return s.mutate(ctx, userID, true, func(c domain.Cart) (domain.Cart, error) {
		return domain.RemoveItem(c, key), nil
	})
}

// ApplyCoupon validates code against the store and records the discount it
// grants on the current subtotal. Rejections are returned as the coupon
// package's sentinel errors.
func (s *CartService) ApplyCoupon(ctx context.Context, userID, code string) (*domain.Cart, error) {
	return s.mutate(ctx, userID, false, func(c domain.Cart) (domain.Cart, error) {
		res, err := coupon.Validate(ctx, code, s.coupons, s.now())
		if err != nil {
			return c, err
		}
		if !res.Valid {
			return c, res.Err()
		}
		return domain.ApplyCoupon(c, res.Coupon.Code, coupon.Discount(*res.Coupon, c.Subtotal())), nil
	})
}

func (s *CartService) RemoveCoupon(ctx context.Context, userID string) (*domain.Cart, error) {
	return s.mutate(ctx, userID, false, func(c domain.Cart) (domain.Cart, error) {
		return domain.RemoveCoupon(c), nil
	})
}

// ClearCart empties the stored cart and drops its coupon. Clearing a cart
// that does not exist is not an error and stores nothing.
func (s *CartService) ClearCart(ctx context.Context, userID string) error {
	current, err := s.repo.GetCart(ctx, userID)
	if errors.Is(err, repository.ErrCartNotFound) {
		return nil
	}
	if err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Msg("repo get cart failed")
		return err
	}

	cleared := domain.Clear(*current)
	s.stamp(&cleared)
	if err := s.repo.UpsertCart(ctx, &cleared); err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Msg("repo upsert cart failed")
		return fmt.Errorf("save cart: %w", err)
	}

	s.invalidateCache(userID)
	return nil
}

// mutate loads the stored cart, applies fn, optionally re-prices the coupon,
// persists the result and drops the cached copy.
func (s *CartService) mutate(ctx context.Context, userID string, reprice bool, fn func(domain.Cart) (domain.Cart, error)) (*domain.Cart, error) {
	current, err := s.repo.GetCart(ctx, userID)
	if errors.Is(err, repository.ErrCartNotFound) {
		current = s.emptyCart(userID)
	} else if err != nil {
		return nil, err
	}

	next, err := fn(*current)
	if err != nil {
		return nil, err
	}
	if reprice {
		if next, err = s.repriceCoupon(ctx, next); err != nil {
			return nil, err
		}
	}

	s.stamp(&next)
	if err := s.repo.UpsertCart(ctx, &next); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("user_id", userID).Msg("repo upsert cart failed")
		return nil, fmt.Errorf("save cart: %w", err)
	}

	s.invalidateCache(userID)
	return &next, nil
}

// repriceCoupon recomputes the discount of an applied coupon for the cart's
// current subtotal and drops a coupon that can no longer be redeemed.
func (s *CartService) repriceCoupon(ctx context.Context, c domain.Cart) (domain.Cart, error) {
	if c.CouponCode == "" {
		return c, nil
	}
	res, err := coupon.Validate(ctx, c.CouponCode, s.coupons, s.now())
	if err != nil {
		return c, err
	}
	if !res.Valid {
		zerolog.Ctx(ctx).Info().
			Str("user_id", c.UserID).
			Str("coupon", c.CouponCode).
			Str("reason", string(res.Reason)).
			Msg("coupon removed from cart")
		return domain.RemoveCoupon(c), nil
	}
	return domain.ApplyCoupon(c, res.Coupon.Code, coupon.Discount(*res.Coupon, c.Subtotal())), nil
}

func (s *CartService) stamp(c *domain.Cart) {
	now := s.now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	for i := range c.Items {
		if c.Items[i].AddedAt.IsZero() {
			c.Items[i].AddedAt = now
		}
	}
}

func (s *CartService) emptyCart(userID string) *domain.Cart {
	now := s.now()
	return &domain.Cart{
		UserID:    userID,
		Items:     []domain.LineItem{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *CartService) invalidateCache(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if errInvalidate := s.cache.Delete(ctx, userID); errInvalidate != nil {
		s.log.Warn().Err(errInvalidate).Str("user_id", userID).Msg("cache invalidate failed")
	}
}

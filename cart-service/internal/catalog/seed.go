package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/cart-service/internal/domain"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/coupon"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/money"
	"gopkg.in/yaml.v3"
)

var ErrInvalidSeed = errors.New("invalid seed data")

// Seed is the YAML document loaded by the seed command.
type Seed struct {
	Products []SeedProduct `yaml:"products"`
	Coupons  []SeedCoupon  `yaml:"coupons"`
}

type SeedProduct struct {
	ID     string   `yaml:"id"`
	Name   string   `yaml:"name"`
	Price  string   `yaml:"price"`
	Sizes  []string `yaml:"sizes"`
	Colors []string `yaml:"colors"`
	// Active defaults to true.
	Active *bool `yaml:"active"`
}

type SeedCoupon struct {
	Code          string              `yaml:"code"`
	DiscountType  coupon.DiscountType `yaml:"discount_type"`
	DiscountValue float64             `yaml:"discount_value"`
	Active        *bool               `yaml:"active"`
	ExpiryDate    *time.Time          `yaml:"expiry_date"`
	UsageLimit    *int                `yaml:"usage_limit"`
}

// CouponStore is the part of coupon.StoreRepository the seed writes through.
type CouponStore interface {
	coupon.Lookup
	Save(ctx context.Context, c coupon.Coupon) error
}

func LoadSeed(path string) (Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("read seed file: %w", err)
	}
	return ParseSeed(data)
}

func ParseSeed(data []byte) (Seed, error) {
	var s Seed
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Seed{}, fmt.Errorf("%w: %w", ErrInvalidSeed, err)
	}
	return s, nil
}

func (p SeedProduct) product() (domain.Product, error) {
	if p.ID == "" || p.Name == "" {
		return domain.Product{}, fmt.Errorf("%w: product needs id and name", ErrInvalidSeed)
	}
	price, err := money.ParseCents(p.Price)
	if err != nil {
		return domain.Product{}, fmt.Errorf("%w: product %s price: %w", ErrInvalidSeed, p.ID, err)
	}
	if price < 0 {
		return domain.Product{}, fmt.Errorf("%w: product %s has a negative price", ErrInvalidSeed, p.ID)
	}
	return domain.Product{
		ID:     p.ID,
		Name:   p.Name,
		Price:  price,
		Sizes:  p.Sizes,
		Colors: p.Colors,
		Active: p.Active == nil || *p.Active,
	}, nil
}

// Apply upserts every product and coupon. Coupons keep the usage count they
// already have in the store.
func (s Seed) Apply(ctx context.Context, products *Store, coupons CouponStore) error {
	for _, sp := range s.Products {
		p, err := sp.product()
		if err != nil {
			return err
		}
		if err := products.Save(ctx, p); err != nil {
			return fmt.Errorf("save product %s: %w", p.ID, err)
		}
	}

	for _, sc := range s.Coupons {
		c := coupon.Coupon{
			Code:          coupon.NormalizeCode(sc.Code),
			DiscountType:  sc.DiscountType,
			DiscountValue: sc.DiscountValue,
			Active:        sc.Active == nil || *sc.Active,
			ExpiryDate:    sc.ExpiryDate,
			UsageLimit:    sc.UsageLimit,
		}
		existing, err := coupons.FindByCode(ctx, c.Code)
		switch {
		case err == nil:
			c.UsageCount = existing.UsageCount
		case !errors.Is(err, coupon.ErrNotFound):
			return fmt.Errorf("load coupon %s: %w", c.Code, err)
		}
		if err := coupons.Save(ctx, c); err != nil {
			return fmt.Errorf("save coupon %s: %w", c.Code, err)
		}
	}
	return nil
}

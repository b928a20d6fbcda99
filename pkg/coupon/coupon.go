// Package coupon validates coupon codes and computes the discount they grant.
// Validation never mutates a coupon; usage is counted by the order flow.
package coupon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/money"
	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

func (t DiscountType) Valid() bool {
	return t == DiscountPercentage || t == DiscountFixed
}

// Reason is the single outcome code of a failed validation.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonNotFound          Reason = "NOT_FOUND"
	ReasonInactive          Reason = "INACTIVE"
	ReasonExpired           Reason = "EXPIRED"
	ReasonUsageLimitReached Reason = "USAGE_LIMIT_REACHED"
)

var (
	ErrNotFound = errors.New("coupon not found")

	ErrCouponNotFound          = errors.New("coupon code does not exist")
	ErrCouponInactive          = errors.New("coupon is not active")
	ErrCouponExpired           = errors.New("coupon has expired")
	ErrCouponUsageLimitReached = errors.New("coupon usage limit reached")

	ErrInvalidCoupon = errors.New("invalid coupon definition")
)

// Coupon is stored under its upper-cased code. DiscountValue is kept as a
// plain number; Value converts it for money math.
type Coupon struct {
	Code          string       `bson:"_id" json:"code"`
	DiscountType  DiscountType `bson:"discount_type" json:"discount_type"`
	DiscountValue float64      `bson:"discount_value" json:"discount_value"`
	Active        bool         `bson:"active" json:"active"`
	ExpiryDate    *time.Time   `bson:"expiry_date,omitempty" json:"expiry_date,omitempty"`
	UsageLimit    *int         `bson:"usage_limit,omitempty" json:"usage_limit,omitempty"`
	UsageCount    int          `bson:"usage_count" json:"usage_count"`
}

// Value is DiscountValue as the shortest decimal that round-trips the float,
// so 19.99 is exactly 19.99.
func (c Coupon) Value() decimal.Decimal {
	return decimal.NewFromFloat(c.DiscountValue)
}

// Validate checks the definition itself, not whether it can be redeemed.
func (c Coupon) Validate() error {
	if NormalizeCode(c.Code) == "" {
		return fmt.Errorf("%w: empty code", ErrInvalidCoupon)
	}
	switch c.DiscountType {
	case DiscountPercentage:
		if c.DiscountValue < 0 || c.DiscountValue > 100 {
			return fmt.Errorf("%w: percentage %v outside [0,100]", ErrInvalidCoupon, c.DiscountValue)
		}
	case DiscountFixed:
		if c.DiscountValue < 0 {
			return fmt.Errorf("%w: negative fixed amount", ErrInvalidCoupon)
		}
	default:
		return fmt.Errorf("%w: unknown discount type %q", ErrInvalidCoupon, c.DiscountType)
	}
	if c.UsageLimit != nil && *c.UsageLimit < 0 {
		return fmt.Errorf("%w: negative usage limit", ErrInvalidCoupon)
	}
	return nil
}

func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Lookup finds a coupon by its normalized code. Implementations return
// ErrNotFound when no coupon matches.
type Lookup interface {
	FindByCode(ctx context.Context, code string) (*Coupon, error)
}

type Result struct {
	Valid  bool
	Coupon *Coupon
	Reason Reason
}

// Err maps a rejection to its sentinel error, nil for a valid result.
func (r Result) Err() error {
	switch r.Reason {
	case ReasonNone:
		return nil
	case ReasonNotFound:
		return ErrCouponNotFound
	case ReasonInactive:
		return ErrCouponInactive
	case ReasonExpired:
		return ErrCouponExpired
	case ReasonUsageLimitReached:
		return ErrCouponUsageLimitReached
	default:
		return fmt.Errorf("unknown coupon rejection %q", r.Reason)
	}
}

// ReasonOf maps a rejection error back to its reason code.
func ReasonOf(err error) (Reason, bool) {
	switch {
	case errors.Is(err, ErrCouponNotFound):
		return ReasonNotFound, true
	case errors.Is(err, ErrCouponInactive):
		return ReasonInactive, true
	case errors.Is(err, ErrCouponExpired):
		return ReasonExpired, true
	case errors.Is(err, ErrCouponUsageLimitReached):
		return ReasonUsageLimitReached, true
	}
	return ReasonNone, false
}

// Validate runs the redeemability checks in order (existence, active flag,
// expiry, usage limit) and reports the first failure only. The returned error
// is non-nil only when the lookup itself failed.
func Validate(ctx context.Context, code string, lookup Lookup, now time.Time) (Result, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return Result{Reason: ReasonNotFound}, nil
	}

	c, err := lookup.FindByCode(ctx, normalized)
	if errors.Is(err, ErrNotFound) {
		return Result{Reason: ReasonNotFound}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("coupon lookup failed: %w", err)
	}

	switch {
	case !c.Active:
		return Result{Coupon: c, Reason: ReasonInactive}, nil
	case c.ExpiryDate != nil && !now.Before(*c.ExpiryDate):
		return Result{Coupon: c, Reason: ReasonExpired}, nil
	case c.UsageLimit != nil && c.UsageCount >= *c.UsageLimit:
		return Result{Coupon: c, Reason: ReasonUsageLimitReached}, nil
	}

	return Result{Valid: true, Coupon: c}, nil
}

// Discount is what c takes off subtotal: a rounded percentage, or the fixed
// amount capped at the subtotal.
func Discount(c Coupon, subtotal money.Cents) money.Cents {
	if subtotal <= 0 {
		return 0
	}
	switch c.DiscountType {
	case DiscountPercentage:
		return money.Min(subtotal.PercentOf(c.Value()), subtotal)
	case DiscountFixed:
		return money.Min(money.Max(money.FromDecimal(c.Value()), 0), subtotal)
	default:
		return 0
	}
}

// Package pricing turns cart lines, a discount and the store configuration
// into order totals. Everything here is pure: no I/O, no shared state.
package pricing

import (
	"errors"
	"fmt"

	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/money"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

var ErrInvalidConfig = errors.New("invalid pricing config")

// Config is read by the caller (settings document, config file) and passed in
// on every computation.
type Config struct {
	FreeShippingThreshold money.Cents
	StandardShippingRate  money.Cents
	TaxRatePercent        decimal.Decimal
	// Currency labels stored orders; amounts are always in its minor units.
	Currency currency.Unit
}

func DefaultConfig() Config {
	return Config{
		FreeShippingThreshold: 15000,
		StandardShippingRate:  1000,
		TaxRatePercent:        decimal.NewFromInt(5),
		Currency:              currency.USD,
	}
}

func (c Config) Validate() error {
	if c.FreeShippingThreshold < 0 {
		return fmt.Errorf("%w: free shipping threshold is negative", ErrInvalidConfig)
	}
	if c.StandardShippingRate < 0 {
		return fmt.Errorf("%w: shipping rate is negative", ErrInvalidConfig)
	}
	if c.TaxRatePercent.IsNegative() || c.TaxRatePercent.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("%w: tax rate %s outside [0,100]", ErrInvalidConfig, c.TaxRatePercent)
	}
	return nil
}

// Line is a priced quantity. Callers guarantee non-negative values.
type Line struct {
	UnitPrice money.Cents
	Quantity  int
}

func (l Line) Amount() money.Cents {
	return l.UnitPrice.Mul(l.Quantity)
}

func Subtotal(lines []Line) money.Cents {
	return lo.SumBy(lines, Line.Amount)
}

type Totals struct {
	Subtotal    money.Cents `json:"subtotal"`
	Discount    money.Cents `json:"discount"`
	TaxableBase money.Cents `json:"taxable_base"`
	Shipping    money.Cents `json:"shipping"`
	Tax         money.Cents `json:"tax"`
	Total       money.Cents `json:"total"`
}

// ComputeTotals prices lines after applying discount, which is clamped to the
// subtotal. Shipping is free once the discounted base reaches the threshold.
// An empty line set prices to zero.
func ComputeTotals(lines []Line, discount money.Cents, cfg Config) Totals {
	if len(lines) == 0 {
		return Totals{}
	}

	subtotal := Subtotal(lines)
	discount = money.Min(money.Max(discount, 0), subtotal)
	base := subtotal - discount

	shipping := cfg.StandardShippingRate
	if base >= cfg.FreeShippingThreshold {
		shipping = 0
	}

	tax := base.PercentOf(cfg.TaxRatePercent)

	return Totals{
		Subtotal:    subtotal,
		Discount:    discount,
		TaxableBase: base,
		Shipping:    shipping,
		Tax:         tax,
		Total:       base + shipping + tax,
	}
}

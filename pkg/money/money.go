// Package money holds the currency arithmetic shared by pricing, carts and orders.
// Amounts are kept as integer minor units; decimals only appear at the edges
// (JSON, configuration, display).
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

var hundred = decimal.NewFromInt(100)

// Cents is an amount in minor currency units.
type Cents int64

// RoundCurrency rounds x to two decimal places, half-up.
func RoundCurrency(x float64) float64 {
	return decimal.NewFromFloat(x).Round(2).InexactFloat64()
}

// PercentOf returns percent% of amount rounded with RoundCurrency.
func PercentOf(amount, percent float64) float64 {
	v := decimal.NewFromFloat(amount).Mul(decimal.NewFromFloat(percent)).Div(hundred)
	return v.Round(2).InexactFloat64()
}

// FromDecimal converts a major-unit decimal (12.345) to cents, rounding half-up.
func FromDecimal(d decimal.Decimal) Cents {
	return Cents(d.Shift(2).Round(0).IntPart())
}

func FromFloat(f float64) Cents {
	return FromDecimal(decimal.NewFromFloat(f))
}

// ParseCents parses "12.50" style amounts.
func ParseCents(s string) (Cents, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return FromDecimal(d), nil
}

func (c Cents) Decimal() decimal.Decimal {
	return decimal.New(int64(c), -2)
}

func (c Cents) Float64() float64 {
	return c.Decimal().InexactFloat64()
}

func (c Cents) String() string {
	return c.Decimal().StringFixed(2)
}

// Mul multiplies by an integer quantity.
func (c Cents) Mul(qty int) Cents {
	return c * Cents(qty)
}

// PercentOf returns percent% of c, rounded half-up to the nearest cent.
func (c Cents) PercentOf(percent decimal.Decimal) Cents {
	v := decimal.NewFromInt(int64(c)).Mul(percent).Div(hundred)
	return Cents(v.Round(0).IntPart())
}

func Min(a, b Cents) Cents {
	if a < b {
		return a
	}
	return b
}

func Max(a, b Cents) Cents {
	if a > b {
		return a
	}
	return b
}

func (c Cents) MarshalJSON() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalJSON accepts both 12.5 and "12.50".
func (c *Cents) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}
	*c = FromDecimal(d)
	return nil
}

var ErrUnknownCurrency = errors.New("unknown currency")

// ParseCurrency validates an ISO 4217 code.
func ParseCurrency(code string) (currency.Unit, error) {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return currency.Unit{}, fmt.Errorf("%w: %q", ErrUnknownCurrency, code)
	}
	return unit, nil
}

// Format renders an amount with its ISO code, e.g. "USD 189.00".
func Format(c Cents, unit currency.Unit) string {
	return unit.String() + " " + c.String()
}

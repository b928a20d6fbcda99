package domain

import (
	"errors"
	"slices"
	"time"

	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/money"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/pricing"
	"github.com/samber/lo"
)

var (
	ErrInvalidQuantity    = errors.New("quantity must be at least 1")
	ErrProductUnavailable = errors.New("product is not available")
	ErrInvalidOption      = errors.New("size or color is not offered for this product")
)

type Product struct {
	ID     string      `bson:"_id" json:"id"`
	Name   string      `bson:"name" json:"name"`
	Price  money.Cents `bson:"price_cents" json:"price"`
	Sizes  []string    `bson:"sizes,omitempty" json:"sizes,omitempty"`
	Colors []string    `bson:"colors,omitempty" json:"colors,omitempty"`
	Active bool        `bson:"active" json:"active"`
}

// Key identifies a line item: the same product in another size or color is
// a separate line.
type Key struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

type LineItem struct {
	ProductID     string      `bson:"product_id" json:"product_id"`
	ProductName   string      `bson:"product_name" json:"product_name"`
	SelectedSize  string      `bson:"selected_size" json:"selected_size"`
	SelectedColor string      `bson:"selected_color" json:"selected_color"`
	Quantity      int         `bson:"quantity" json:"quantity"`
	UnitPrice     money.Cents `bson:"unit_price_cents" json:"unit_price"`
	AddedAt       time.Time   `bson:"added_at" json:"added_at"`
}

func (li LineItem) Key() Key {
	return Key{ProductID: li.ProductID, Size: li.SelectedSize, Color: li.SelectedColor}
}

type Cart struct {
	ID             string      `bson:"_id,omitempty" json:"-"`
	UserID         string      `bson:"user_id" json:"user_id"`
	Items          []LineItem  `bson:"items" json:"items"`
	CouponCode     string      `bson:"coupon_code,omitempty" json:"coupon_code,omitempty"`
	DiscountAmount money.Cents `bson:"discount_cents" json:"discount_amount"`
	CreatedAt      time.Time   `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time   `bson:"updated_at" json:"updated_at"`
}

// The functions below never modify their input cart; each returns a new
// value with its own Items slice.

// AddItem merges qty into the line with the same key, or appends a new line
// priced at the product's current price.
func AddItem(c Cart, p Product, size, color string, qty int) (Cart, error) {
	if qty < 1 {
		return c, ErrInvalidQuantity
	}
	if !p.Active {
		return c, ErrProductUnavailable
	}
	if !offers(p.Sizes, size) || !offers(p.Colors, color) {
		return c, ErrInvalidOption
	}

	out := c.clone()
	key := Key{ProductID: p.ID, Size: size, Color: color}
	if i := out.indexOf(key); i >= 0 {
		out.Items[i].Quantity += qty
		return out, nil
	}

	out.Items = append(out.Items, LineItem{
		ProductID:     p.ID,
		ProductName:   p.Name,
		SelectedSize:  size,
		SelectedColor: color,
		Quantity:      qty,
		UnitPrice:     p.Price,
	})
	return out, nil
}

// UpdateQuantity replaces the quantity of the line with key; qty <= 0 removes it.
func UpdateQuantity(c Cart, key Key, qty int) Cart {
	if qty <= 0 {
		return RemoveItem(c, key)
	}
	out := c.clone()
	if i := out.indexOf(key); i >= 0 {
		out.Items[i].Quantity = qty
	}
	return out
}

func RemoveItem(c Cart, key Key) Cart {
	out := c.clone()
	out.Items = slices.DeleteFunc(out.Items, func(li LineItem) bool {
		return li.Key() == key
	})
	return out
}

// ApplyCoupon stores code with a discount the caller already computed.
func ApplyCoupon(c Cart, code string, discount money.Cents) Cart {
	out := c.clone()
	out.CouponCode = code
	out.DiscountAmount = discount
	return out
}

func RemoveCoupon(c Cart) Cart {
	return ApplyCoupon(c, "", 0)
}

func Clear(c Cart) Cart {
	out := RemoveCoupon(c)
	out.Items = []LineItem{}
	return out
}

func (c Cart) Find(key Key) (LineItem, bool) {
	if i := c.indexOf(key); i >= 0 {
		return c.Items[i], true
	}
	return LineItem{}, false
}

func (c Cart) Lines() []pricing.Line {
	return lo.Map(c.Items, func(li LineItem, _ int) pricing.Line {
		return pricing.Line{UnitPrice: li.UnitPrice, Quantity: li.Quantity}
	})
}

func (c Cart) Subtotal() money.Cents {
	return lo.SumBy(c.Lines(), pricing.Line.Amount)
}

func (c Cart) ItemCount() int {
	return lo.SumBy(c.Items, func(li LineItem) int { return li.Quantity })
}

func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

func (c Cart) indexOf(key Key) int {
	_, i, ok := lo.FindIndexOf(c.Items, func(li LineItem) bool {
		return li.Key() == key
	})
	if !ok {
		return -1
	}
	return i
}

func (c Cart) clone() Cart {
	out := c
	out.Items = slices.Clone(c.Items)
	if out.Items == nil {
		out.Items = []LineItem{}
	}
	return out
}

// offers reports whether value is allowed; products without a list accept
// any value.
func offers(options []string, value string) bool {
	return len(options) == 0 || slices.Contains(options, value)
}

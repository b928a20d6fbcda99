package coupon

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/docstore"
	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockLookup struct {
	m       sync.RWMutex
	coupons map[string]*Coupon
	err     error
	calls   []string
}

func (l *mockLookup) FindByCode(_ context.Context, code string) (*Coupon, error) {
	l.m.Lock()
	defer l.m.Unlock()
	l.calls = append(l.calls, code)
	if l.err != nil {
		return nil, l.err
	}
	c, ok := l.coupons[code]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func intPtr(v int) *int { return &v }

func timePtr(t time.Time) *time.Time { return &t }

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestValidate_Valid(t *testing.T) {
	lookup := &mockLookup{coupons: map[string]*Coupon{
		"SAVE10": {Code: "SAVE10", DiscountType: DiscountPercentage, DiscountValue: 10, Active: true},
	}}

	res, err := Validate(context.Background(), " save10 ", lookup, now)
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, ReasonNone, res.Reason)
	assert.NoError(t, res.Err())
	require.NotNil(t, res.Coupon)
	assert.Equal(t, "SAVE10", res.Coupon.Code)
	assert.Equal(t, []string{"SAVE10"}, lookup.calls)
}

func TestValidate_Reasons(t *testing.T) {
	lookup := &mockLookup{coupons: map[string]*Coupon{
		"OFF":      {Code: "OFF", DiscountType: DiscountFixed, DiscountValue: 5, Active: false},
		"OLD":      {Code: "OLD", DiscountType: DiscountFixed, DiscountValue: 5, Active: true, ExpiryDate: timePtr(now.Add(-time.Hour))},
		"NOW":      {Code: "NOW", DiscountType: DiscountFixed, DiscountValue: 5, Active: true, ExpiryDate: timePtr(now)},
		"USED":     {Code: "USED", DiscountType: DiscountFixed, DiscountValue: 5, Active: true, UsageLimit: intPtr(3), UsageCount: 3},
		"OLD_USED": {Code: "OLD_USED", DiscountType: DiscountFixed, DiscountValue: 5, Active: true, ExpiryDate: timePtr(now.Add(-time.Hour)), UsageLimit: intPtr(1), UsageCount: 5},
		"ALL_BAD":  {Code: "ALL_BAD", DiscountType: DiscountFixed, DiscountValue: 5, Active: false, ExpiryDate: timePtr(now.Add(-time.Hour)), UsageLimit: intPtr(1), UsageCount: 5},
		"FUTURE":   {Code: "FUTURE", DiscountType: DiscountFixed, DiscountValue: 5, Active: true, ExpiryDate: timePtr(now.Add(time.Hour)), UsageLimit: intPtr(2), UsageCount: 1},
	}}

	cases := []struct {
		code   string
		reason Reason
		err    error
	}{
		{"missing", ReasonNotFound, ErrCouponNotFound},
		{"", ReasonNotFound, ErrCouponNotFound},
		{"off", ReasonInactive, ErrCouponInactive},
		{"old", ReasonExpired, ErrCouponExpired},
		{"now", ReasonExpired, ErrCouponExpired},
		{"used", ReasonUsageLimitReached, ErrCouponUsageLimitReached},
		{"old_used", ReasonExpired, ErrCouponExpired},
		{"all_bad", ReasonInactive, ErrCouponInactive},
		{"future", ReasonNone, nil},
	}

	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			res, err := Validate(context.Background(), tc.code, lookup, now)
			require.NoError(t, err)
			assert.Equal(t, tc.reason, res.Reason)
			assert.Equal(t, tc.reason == ReasonNone, res.Valid)
			if tc.err == nil {
				assert.NoError(t, res.Err())
			} else {
				assert.ErrorIs(t, res.Err(), tc.err)
			}
		})
	}
}

func TestValidate_LookupFailure(t *testing.T) {
	lookup := &mockLookup{err: errors.New("connection refused")}

	_, err := Validate(context.Background(), "SAVE10", lookup, now)
	require.Error(t, err)
	assert.ErrorContains(t, err, "connection refused")
}

func TestValidate_DoesNotMutateUsage(t *testing.T) {
	c := &Coupon{Code: "ONCE", DiscountType: DiscountFixed, DiscountValue: 5, Active: true, UsageLimit: intPtr(1)}
	lookup := &mockLookup{coupons: map[string]*Coupon{"ONCE": c}}

	for i := 0; i < 3; i++ {
		res, err := Validate(context.Background(), "once", lookup, now)
		require.NoError(t, err)
		assert.True(t, res.Valid)
	}
	assert.Equal(t, 0, c.UsageCount)
}

func TestDiscount(t *testing.T) {
	pct := Coupon{DiscountType: DiscountPercentage, DiscountValue: 10}
	assert.Equal(t, money.Cents(2000), Discount(pct, 20000))
	assert.Equal(t, money.Cents(0), Discount(pct, 0))

	half := Coupon{DiscountType: DiscountPercentage, DiscountValue: 12.5}
	assert.Equal(t, money.Cents(125), Discount(half, 1000))

	fixed := Coupon{DiscountType: DiscountFixed, DiscountValue: 25}
	assert.Equal(t, money.Cents(2500), Discount(fixed, 20000))
	assert.Equal(t, money.Cents(1999), Discount(fixed, 1999))

	unknown := Coupon{DiscountType: "bogo", DiscountValue: 25}
	assert.Equal(t, money.Cents(0), Discount(unknown, 20000))
}

func TestDiscount_ExactDecimalValues(t *testing.T) {
	fixed := Coupon{DiscountType: DiscountFixed, DiscountValue: 19.99}
	assert.Equal(t, "19.99", fixed.Value().String())
	assert.Equal(t, money.Cents(1999), Discount(fixed, 50000))

	a, b := 0.1, 0.2
	tiny := Coupon{DiscountType: DiscountFixed, DiscountValue: a + b}
	assert.Equal(t, money.Cents(30), Discount(tiny, 50000))

	// 12.5% of 199.99 is 24.99875, rounded half-up
	pct := Coupon{DiscountType: DiscountPercentage, DiscountValue: 12.5}
	assert.Equal(t, money.Cents(2500), Discount(pct, 19999))
}

func TestCouponValidate(t *testing.T) {
	assert.NoError(t, Coupon{Code: "A", DiscountType: DiscountPercentage, DiscountValue: 100}.Validate())
	assert.NoError(t, Coupon{Code: "A", DiscountType: DiscountFixed, DiscountValue: 0}.Validate())
	assert.ErrorIs(t, Coupon{Code: "A", DiscountType: DiscountPercentage, DiscountValue: 101}.Validate(), ErrInvalidCoupon)
	assert.ErrorIs(t, Coupon{Code: "A", DiscountType: DiscountFixed, DiscountValue: -1}.Validate(), ErrInvalidCoupon)
	assert.ErrorIs(t, Coupon{Code: " ", DiscountType: DiscountFixed}.Validate(), ErrInvalidCoupon)
	assert.ErrorIs(t, Coupon{Code: "A", DiscountType: "bogo"}.Validate(), ErrInvalidCoupon)
	assert.ErrorIs(t, Coupon{Code: "A", DiscountType: DiscountFixed, UsageLimit: intPtr(-1)}.Validate(), ErrInvalidCoupon)
}

func TestStoreRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewStoreRepository(docstore.NewMemoryStore())

	require.NoError(t, repo.Save(ctx, Coupon{
		Code:          "welcome",
		DiscountType:  DiscountPercentage,
		DiscountValue: 10,
		Active:        true,
		UsageLimit:    intPtr(2),
	}))

	c, err := repo.FindByCode(ctx, "Welcome")
	require.NoError(t, err)
	assert.Equal(t, "WELCOME", c.Code)
	assert.Equal(t, 10.0, c.DiscountValue)
	assert.Nil(t, c.ExpiryDate)
	require.NotNil(t, c.UsageLimit)
	assert.Equal(t, 2, *c.UsageLimit)

	require.NoError(t, repo.IncrementUsage(ctx, "welcome"))
	require.NoError(t, repo.IncrementUsage(ctx, "WELCOME"))

	res, err := Validate(ctx, "welcome", repo, now)
	require.NoError(t, err)
	assert.Equal(t, ReasonUsageLimitReached, res.Reason)

	_, err = repo.FindByCode(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.IncrementUsage(ctx, "nope"), ErrNotFound)

	assert.ErrorIs(t, repo.Save(ctx, Coupon{Code: "BAD", DiscountType: DiscountPercentage, DiscountValue: 150}), ErrInvalidCoupon)
}

func TestReasonOf(t *testing.T) {
	for _, reason := range []Reason{ReasonNotFound, ReasonInactive, ReasonExpired, ReasonUsageLimitReached} {
		err := fmt.Errorf("apply coupon: %w", Result{Reason: reason}.Err())
		got, ok := ReasonOf(err)
		assert.True(t, ok)
		assert.Equal(t, reason, got)
	}

	_, ok := ReasonOf(errors.New("other"))
	assert.False(t, ok)
}

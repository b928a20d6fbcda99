package domain

import (
	"time"

	"github.com/oklog/ulid/v2"
)

const orderNumberPrefix = "ORD-"

// NewOrderNumber returns a human-facing order number that sorts by creation
// time. Numbers are unique with overwhelming probability; the store's unique
// index catches the rest.
func NewOrderNumber(now time.Time) string {
	return orderNumberPrefix + ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String()
}

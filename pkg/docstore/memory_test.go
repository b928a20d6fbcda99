package docstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type customer struct {
	ID         string    `bson:"_id"`
	Email      string    `bson:"email"`
	Orders     int64     `bson:"orders"`
	TotalSpent int64     `bson:"total_spent_cents"`
	CreatedAt  time.Time `bson:"created_at"`
}

func TestMemoryStore_GetDocument_NotFound(t *testing.T) {
	s := NewMemoryStore()

	var c customer
	err := s.GetDocument(context.Background(), "customers", "missing", &c)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_InsertAndGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	err := s.InsertDocument(ctx, "customers", "u1", customer{Email: "a@example.com", CreatedAt: now})
	require.NoError(t, err)

	var c customer
	require.NoError(t, s.GetDocument(ctx, "customers", "u1", &c))
	assert.Equal(t, "u1", c.ID)
	assert.Equal(t, "a@example.com", c.Email)
	assert.True(t, now.Equal(c.CreatedAt))

	err = s.InsertDocument(ctx, "customers", "u1", customer{Email: "b@example.com"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestMemoryStore_UniqueIndex(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.EnsureUniqueIndex(ctx, "customers", "email"))

	require.NoError(t, s.InsertDocument(ctx, "customers", "u1", customer{Email: "a@example.com"}))
	err := s.InsertDocument(ctx, "customers", "u2", customer{Email: "a@example.com"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestMemoryStore_SetFieldsUpserts(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.SetFields(ctx, "customers", "u1", Fields{"email": "a@example.com"}))
	require.NoError(t, s.SetFields(ctx, "customers", "u1", Fields{"orders": int64(3)}))

	var c customer
	require.NoError(t, s.GetDocument(ctx, "customers", "u1", &c))
	assert.Equal(t, "a@example.com", c.Email)
	assert.Equal(t, int64(3), c.Orders)
}

func TestMemoryStore_QueryDocuments(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.InsertDocument(ctx, "customers", "a", customer{Email: "x", CreatedAt: base}))
	require.NoError(t, s.InsertDocument(ctx, "customers", "b", customer{Email: "y", CreatedAt: base.Add(time.Hour)}))
	require.NoError(t, s.InsertDocument(ctx, "customers", "c", customer{Email: "x", CreatedAt: base.Add(2 * time.Hour)}))

	var matched []customer
	require.NoError(t, s.QueryDocuments(ctx, "customers", Filter{"email": "x"}, &matched, SortBy("created_at", true)))
	require.Len(t, matched, 2)
	assert.Equal(t, "c", matched[0].ID)
	assert.Equal(t, "a", matched[1].ID)

	var limited []customer
	require.NoError(t, s.QueryDocuments(ctx, "customers", nil, &limited, SortBy("created_at", false), Limit(1)))
	require.Len(t, limited, 1)
	assert.Equal(t, "a", limited[0].ID)

	var none []customer
	require.NoError(t, s.QueryDocuments(ctx, "customers", Filter{"email": "nobody"}, &none))
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestMemoryStore_QueryDocuments_RejectsNonSlice(t *testing.T) {
	s := NewMemoryStore()
	var c customer
	err := s.QueryDocuments(context.Background(), "customers", nil, &c)
	assert.Error(t, err)
}

func TestMemoryStore_AtomicIncrement_Concurrent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.AtomicIncrement(ctx, "customers", "u1", Increments{"orders": 1, "total_spent_cents": 18900})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var c customer
	require.NoError(t, s.GetDocument(ctx, "customers", "u1", &c))
	assert.Equal(t, int64(50), c.Orders)
	assert.Equal(t, int64(50*18900), c.TotalSpent)
}

func TestMemoryStore_AtomicIncrement_NonNumericField(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.SetFields(ctx, "customers", "u1", Fields{"orders": "many"}))

	err := s.AtomicIncrement(ctx, "customers", "u1", Inc("orders", 1))
	assert.Error(t, err)
}

func TestMemoryStore_Subscribe(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var mu sync.Mutex
	var seen []string
	sub, err := s.Subscribe(ctx, "customers", Filter{"email": "x"}, func(ev ChangeEvent) {
		var c customer
		if err := ev.Decode(&c); err != nil {
			return
		}
		mu.Lock()
		seen = append(seen, ev.Operation+":"+c.ID)
		mu.Unlock()
	})
	require.NoError(t, err)

	require.NoError(t, s.InsertDocument(ctx, "customers", "a", customer{Email: "x"}))
	require.NoError(t, s.InsertDocument(ctx, "customers", "b", customer{Email: "y"}))
	require.NoError(t, s.AtomicIncrement(ctx, "customers", "a", Inc("orders", 1)))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 2
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.Equal(t, []string{"insert:a", "update:a"}, seen)
	mu.Unlock()

	sub.Close()
	assert.NoError(t, sub.Err())

	require.NoError(t, s.InsertDocument(ctx, "customers", "c", customer{Email: "x"}))
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	assert.Len(t, seen, 2)
	mu.Unlock()
}

func TestChangeEvent_DecodeWithoutDocument(t *testing.T) {
	var c customer
	assert.ErrorIs(t, ChangeEvent{Operation: "delete"}.Decode(&c), ErrNotFound)
}

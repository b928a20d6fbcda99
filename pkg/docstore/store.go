// Package docstore is the document database boundary used by coupons, orders,
// customers and the product catalog. Documents are addressed by collection and
// string id (stored as _id) and encoded with BSON.
package docstore

import (
	"context"
	"errors"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
)

// Common errors returned by the store
var (
	ErrNotFound  = errors.New("document not found")
	ErrDuplicate = errors.New("duplicate document")
)

// Filter matches documents whose fields equal the given values.
type Filter map[string]any

// Fields is a partial document used by SetFields.
type Fields map[string]any

// Increments maps numeric fields to the delta applied by AtomicIncrement.
type Increments map[string]int64

// Inc is the single-field form of Increments.
func Inc(field string, delta int64) Increments {
	return Increments{field: delta}
}

// Store defines the document operations the services rely on
type Store interface {
	// GetDocument decodes the document with the given id into out.
	// Returns ErrNotFound if it does not exist.
	GetDocument(ctx context.Context, collection, id string, out any) error

	// QueryDocuments decodes every document matching filter into out,
	// which must be a pointer to a slice.
	QueryDocuments(ctx context.Context, collection string, filter Filter, out any, opts ...QueryOption) error

	// InsertDocument creates a new document. Returns ErrDuplicate when the id
	// or a unique field is already taken.
	InsertDocument(ctx context.Context, collection, id string, doc any) error

	// SetFields overwrites the given top-level fields, creating the document
	// if it does not exist.
	SetFields(ctx context.Context, collection, id string, fields Fields) error

	// AtomicIncrement adds every delta in one atomic update, creating the
	// document (with zero values) if needed.
	AtomicIncrement(ctx context.Context, collection, id string, inc Increments) error

	// Subscribe calls onChange for every insert or update of a document in
	// collection matching filter until ctx is cancelled or the subscription
	// is closed.
	Subscribe(ctx context.Context, collection string, filter Filter, onChange func(ChangeEvent)) (*Subscription, error)
}

// ChangeEvent describes one write observed by a subscription.
type ChangeEvent struct {
	Operation string
	ID        string
	document  bson.Raw
}

// Decode decodes the full document after the change.
func (e ChangeEvent) Decode(out any) error {
	if len(e.document) == 0 {
		return ErrNotFound
	}
	return bson.Unmarshal(e.document, out)
}

// Subscription is a running change feed.
type Subscription struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu  sync.Mutex
	err error
}

func newSubscription(cancel context.CancelFunc) *Subscription {
	return &Subscription{cancel: cancel, done: make(chan struct{})}
}

func (s *Subscription) finish(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	close(s.done)
}

// Close stops the feed and waits for the delivery goroutine to exit.
func (s *Subscription) Close() {
	s.cancel()
	<-s.done
}

// Done is closed once the feed has stopped.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Err reports why the feed stopped; nil after a normal Close.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

type queryOptions struct {
	sortField  string
	descending bool
	limit      int64
}

type QueryOption func(*queryOptions)

// SortBy orders results by a single field.
func SortBy(field string, descending bool) QueryOption {
	return func(o *queryOptions) {
		o.sortField = field
		o.descending = descending
	}
}

func Limit(n int64) QueryOption {
	return func(o *queryOptions) {
		o.limit = n
	}
}

func collectOptions(opts []QueryOption) queryOptions {
	var o queryOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

package docstore

import (
	"context"
	"fmt"
	"maps"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const subscriberBuffer = 64

// MemoryStore implements Store in process. Documents are BSON round-tripped so
// decoding behaves like the Mongo implementation; writes replace the stored
// map instead of mutating it.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]bson.M
	unique      map[string][]string // collection -> unique fields
	subscribers map[string][]*memorySubscriber
}

type memorySubscriber struct {
	filter Filter
	events chan ChangeEvent
	ctx    context.Context
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]bson.M),
		unique:      make(map[string][]string),
		subscribers: make(map[string][]*memorySubscriber),
	}
}

// EnsureUniqueIndex makes InsertDocument reject a second document with the
// same value for field.
func (s *MemoryStore) EnsureUniqueIndex(_ context.Context, collection, field string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.unique[collection] {
		if f == field {
			return nil
		}
	}
	s.unique[collection] = append(s.unique[collection], field)
	return nil
}

func (s *MemoryStore) GetDocument(_ context.Context, collection, id string, out any) error {
	s.mu.RLock()
	doc, ok := s.collections[collection][id]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	return decodeInto(doc, out)
}

func (s *MemoryStore) QueryDocuments(_ context.Context, collection string, filter Filter, out any, opts ...QueryOption) error {
	o := collectOptions(opts)

	s.mu.RLock()
	matched := make([]bson.M, 0)
	for _, doc := range s.collections[collection] {
		if matches(doc, filter) {
			matched = append(matched, doc)
		}
	}
	s.mu.RUnlock()

	if o.sortField != "" {
		sort.SliceStable(matched, func(i, j int) bool {
			c := compareValues(matched[i][o.sortField], matched[j][o.sortField])
			if o.descending {
				return c > 0
			}
			return c < 0
		})
	} else {
		sort.SliceStable(matched, func(i, j int) bool {
			return fmt.Sprint(matched[i]["_id"]) < fmt.Sprint(matched[j]["_id"])
		})
	}
	if o.limit > 0 && int64(len(matched)) > o.limit {
		matched = matched[:o.limit]
	}

	target := reflect.ValueOf(out)
	if target.Kind() != reflect.Pointer || target.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("query %s: out must be a pointer to a slice, got %T", collection, out)
	}
	sliceType := target.Elem().Type()
	result := reflect.MakeSlice(sliceType, 0, len(matched))
	for _, doc := range matched {
		elem := reflect.New(sliceType.Elem())
		if err := decodeInto(doc, elem.Interface()); err != nil {
			return fmt.Errorf("failed to decode %s: %w", collection, err)
		}
		result = reflect.Append(result, elem.Elem())
	}
	target.Elem().Set(result)
	return nil
}

func (s *MemoryStore) InsertDocument(_ context.Context, collection, id string, doc any) error {
	d, err := toDocument(doc)
	if err != nil {
		return err
	}
	d["_id"] = id

	s.mu.Lock()
	coll := s.collection(collection)
	if _, exists := coll[id]; exists {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s/%s", ErrDuplicate, collection, id)
	}
	for _, field := range s.unique[collection] {
		for _, other := range coll {
			if v, ok := d[field]; ok && reflect.DeepEqual(other[field], v) {
				s.mu.Unlock()
				return fmt.Errorf("%w: %s.%s", ErrDuplicate, collection, field)
			}
		}
	}
	coll[id] = d
	subs := s.matchingSubscribers(collection, d)
	s.mu.Unlock()

	s.publish(subs, "insert", id, d)
	return nil
}

func (s *MemoryStore) SetFields(_ context.Context, collection, id string, fields Fields) error {
	patch, err := toDocument(fields)
	if err != nil {
		return err
	}

	s.mu.Lock()
	coll := s.collection(collection)
	op := "update"
	doc, ok := coll[id]
	if ok {
		doc = maps.Clone(doc)
	} else {
		op = "insert"
		doc = bson.M{"_id": id}
	}
	for k, v := range patch {
		doc[k] = v
	}
	coll[id] = doc
	subs := s.matchingSubscribers(collection, doc)
	s.mu.Unlock()

	s.publish(subs, op, id, doc)
	return nil
}

func (s *MemoryStore) AtomicIncrement(_ context.Context, collection, id string, inc Increments) error {
	s.mu.Lock()
	coll := s.collection(collection)
	op := "update"
	doc, ok := coll[id]
	if ok {
		doc = maps.Clone(doc)
	} else {
		op = "insert"
		doc = bson.M{"_id": id}
	}
	for field, delta := range inc {
		current, err := asInt64(doc[field])
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("failed to increment %s/%s.%s: %w", collection, id, field, err)
		}
		doc[field] = current + delta
	}
	coll[id] = doc
	subs := s.matchingSubscribers(collection, doc)
	s.mu.Unlock()

	s.publish(subs, op, id, doc)
	return nil
}

func (s *MemoryStore) Subscribe(ctx context.Context, collection string, filter Filter, onChange func(ChangeEvent)) (*Subscription, error) {
	subCtx, cancel := context.WithCancel(ctx)
	sub := &memorySubscriber{
		filter: filter,
		events: make(chan ChangeEvent, subscriberBuffer),
		ctx:    subCtx,
	}

	s.mu.Lock()
	s.subscribers[collection] = append(s.subscribers[collection], sub)
	s.mu.Unlock()

	handle := newSubscription(cancel)
	go func() {
		for {
			select {
			case ev := <-sub.events:
				onChange(ev)
			case <-subCtx.Done():
				s.unsubscribe(collection, sub)
				handle.finish(nil)
				return
			}
		}
	}()
	return handle, nil
}

func (s *MemoryStore) unsubscribe(collection string, sub *memorySubscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	subs := s.subscribers[collection]
	for i, candidate := range subs {
		if candidate == sub {
			s.subscribers[collection] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

// collection must be called with mu held.
func (s *MemoryStore) collection(name string) map[string]bson.M {
	coll, ok := s.collections[name]
	if !ok {
		coll = make(map[string]bson.M)
		s.collections[name] = coll
	}
	return coll
}

// matchingSubscribers must be called with mu held.
func (s *MemoryStore) matchingSubscribers(collection string, doc bson.M) []*memorySubscriber {
	var out []*memorySubscriber
	for _, sub := range s.subscribers[collection] {
		if matches(doc, sub.filter) {
			out = append(out, sub)
		}
	}
	return out
}

func (s *MemoryStore) publish(subs []*memorySubscriber, op, id string, doc bson.M) {
	if len(subs) == 0 {
		return
	}
	raw, err := bson.Marshal(doc)
	if err != nil {
		return
	}
	ev := ChangeEvent{Operation: op, ID: id, document: raw}
	for _, sub := range subs {
		select {
		case sub.events <- ev:
		case <-sub.ctx.Done():
		}
	}
}

func matches(doc bson.M, filter Filter) bool {
	if len(filter) == 0 {
		return true
	}
	normalized, err := toDocument(map[string]any(filter))
	if err != nil {
		return false
	}
	for k, want := range normalized {
		if !reflect.DeepEqual(lookupPath(doc, k), want) {
			return false
		}
	}
	return true
}

func lookupPath(doc bson.M, path string) any {
	var cur any = doc
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(bson.M)
		if !ok {
			return nil
		}
		cur = m[part]
	}
	return cur
}

func decodeInto(doc bson.M, out any) error {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	return bson.Unmarshal(raw, out)
}

func asInt64(v any) (int64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("field is not numeric (%T)", v)
	}
}

func compareValues(a, b any) int {
	switch av := a.(type) {
	case primitive.DateTime:
		if bv, ok := b.(primitive.DateTime); ok {
			return compareOrdered(av, bv)
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv)
		}
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv)
		}
	case int32, int64, float64:
		an, _ := asInt64(av)
		bn, err := asInt64(b)
		if err == nil {
			return compareOrdered(an, bn)
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func compareOrdered[T int64 | primitive.DateTime](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

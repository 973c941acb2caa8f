package db

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"plantmaint/models"
)

// MemoryStore keeps records in process memory. It backs local development
// (STORE_BACKEND=memory) and tests.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]interface{}
	subscribers map[string][]*memorySubscriber
	now         func() time.Time
}

type memorySubscriber struct {
	preds []Predicate
	order *OrderBy
	ch    chan []Record
}

// NewMemoryStore creates an empty store that stamps records with time.Now.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithClock(time.Now)
}

// NewMemoryStoreWithClock creates an empty store that stamps records with now.
func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]map[string]interface{}),
		subscribers: make(map[string][]*memorySubscriber),
		now:         now,
	}
}

func (s *MemoryStore) collection(name string) map[string]map[string]interface{} {
	c, ok := s.collections[name]
	if !ok {
		c = make(map[string]map[string]interface{})
		s.collections[name] = c
	}
	return c
}

// Create inserts a record under a new id.
func (s *MemoryStore) Create(ctx context.Context, collection string, fields map[string]interface{}) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(collection, fields), nil
}

func (s *MemoryStore) insertLocked(collection string, fields map[string]interface{}) string {
	id := uuid.NewString()
	doc := copyFields(fields)
	now := s.now()
	doc[models.FieldCreatedAt] = now
	doc[models.FieldUpdatedAt] = now
	s.collection(collection)[id] = doc
	s.notifyLocked(collection)
	return id
}

// CreateUnique inserts a record unless uniqueField's value is taken.
func (s *MemoryStore) CreateUnique(ctx context.Context, collection, uniqueField string, fields map[string]interface{}) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	want := fields[uniqueField]
	for _, doc := range s.collection(collection) {
		if cmp, ok := compareValues(doc[uniqueField], want); ok && cmp == 0 {
			return "", ErrAlreadyExists
		}
	}
	return s.insertLocked(collection, fields), nil
}

// Set creates or replaces the record with id.
func (s *MemoryStore) Set(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collection(collection)
	doc := copyFields(fields)
	now := s.now()
	if prev, ok := c[id]; ok {
		doc[models.FieldCreatedAt] = prev[models.FieldCreatedAt]
	} else {
		doc[models.FieldCreatedAt] = now
	}
	doc[models.FieldUpdatedAt] = now
	c[id] = doc
	s.notifyLocked(collection)
	return nil
}

// Get returns the record with id.
func (s *MemoryStore) Get(ctx context.Context, collection, id string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.collections[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return &Record{ID: id, Fields: copyFields(doc)}, nil
}

// Query returns the records matching every predicate.
func (s *MemoryStore) Query(ctx context.Context, collection string, preds []Predicate, order *OrderBy) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, p := range preds {
		if !validOp(p.Op) {
			return nil, fmt.Errorf("unsupported operator %q", p.Op)
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryLocked(collection, preds, order), nil
}

func (s *MemoryStore) queryLocked(collection string, preds []Predicate, order *OrderBy) []Record {
	records := []Record{}
	for id, doc := range s.collections[collection] {
		if matches(doc, preds) {
			records = append(records, Record{ID: id, Fields: copyFields(doc)})
		}
	}

	// Map iteration is random; sort by id first so ties are stable.
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	if order != nil {
		sort.SliceStable(records, func(i, j int) bool {
			cmp, ok := compareValues(records[i].Fields[order.Field], records[j].Fields[order.Field])
			if !ok {
				return false
			}
			if order.Desc {
				return cmp > 0
			}
			return cmp < 0
		})
	}
	return records
}

// Update merges fields into the record with id.
func (s *MemoryStore) Update(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.collections[collection][id]
	if !ok {
		return ErrNotFound
	}
	for k, v := range fields {
		doc[k] = v
	}
	doc[models.FieldUpdatedAt] = s.now()
	s.notifyLocked(collection)
	return nil
}

// Delete removes the record with id.
func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[collection][id]; !ok {
		return ErrNotFound
	}
	delete(s.collections[collection], id)
	s.notifyLocked(collection)
	return nil
}

// Subscribe delivers the current result set immediately and again after
// every write to collection.
func (s *MemoryStore) Subscribe(ctx context.Context, collection string, preds []Predicate, order *OrderBy) (<-chan []Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sub := &memorySubscriber{preds: preds, order: order, ch: make(chan []Record, 1)}

	s.mu.Lock()
	s.subscribers[collection] = append(s.subscribers[collection], sub)
	sub.ch <- s.queryLocked(collection, preds, order)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		subs := s.subscribers[collection]
		for i, other := range subs {
			if other == sub {
				s.subscribers[collection] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		close(sub.ch)
	}()
	return sub.ch, nil
}

// notifyLocked pushes a fresh snapshot to each subscriber of collection.
// A snapshot the subscriber has not read yet is replaced.
func (s *MemoryStore) notifyLocked(collection string) {
	for _, sub := range s.subscribers[collection] {
		snap := s.queryLocked(collection, sub.preds, sub.order)
		select {
		case <-sub.ch:
		default:
		}
		sub.ch <- snap
	}
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

func validOp(op Op) bool {
	switch op {
	case OpEqual, OpLess, OpLessEqual, OpGreater, OpGreaterEqual:
		return true
	}
	return false
}

func matches(doc map[string]interface{}, preds []Predicate) bool {
	for _, p := range preds {
		cmp, ok := compareValues(doc[p.Field], p.Value)
		if !ok {
			return false
		}
		switch p.Op {
		case OpEqual:
			if cmp != 0 {
				return false
			}
		case OpLess:
			if cmp >= 0 {
				return false
			}
		case OpLessEqual:
			if cmp > 0 {
				return false
			}
		case OpGreater:
			if cmp <= 0 {
				return false
			}
		case OpGreaterEqual:
			if cmp < 0 {
				return false
			}
		}
	}
	return true
}

// compareValues orders two field values of the same kind. ok is false when
// they are not comparable, which makes any predicate on them fail.
func compareValues(a, b interface{}) (int, bool) {
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(av, bv), true
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case av == bv:
			return 0, true
		case !av:
			return -1, true
		default:
			return 1, true
		}
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return av.Compare(bv), true
	}

	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if !aok || !bok {
		return 0, false
	}
	switch {
	case af < bf:
		return -1, true
	case af > bf:
		return 1, true
	}
	return 0, true
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// Package store holds versioned in-memory collections keyed by an integer id.
//
// A Store owns its items exclusively. Readers get copies, writers are
// serialized, and every effective mutation bumps the version and notifies
// subscribers exactly once before the next mutation is accepted.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/global"
	"go.uber.org/zap"

	"github.com/SergeyParamoshkin/articlefeed/internal/observable"
)

var (
	// ErrDuplicateKey indicates that ReplaceAll received two items with the same key.
	ErrDuplicateKey = errors.New("store: duplicate key")
	// ErrKeyChanged indicates that an UpdateOne mutator changed the item key.
	ErrKeyChanged = errors.New("store: mutator changed key")
)

var (
	storeKey = attribute.Key("store")
	opKey    = attribute.Key("op")
)

// Keyed is implemented by items that can live in a Store.
type Keyed interface {
	Key() int
}

// Snapshot is a point-in-time copy of a store.
type Snapshot[T any] struct {
	Version uint64
	Items   []T
}

// Option configures a Store.
type Option func(*options)

type options struct {
	logger *zap.SugaredLogger
	meter  metric.Meter
}

// WithLogger sets the logger used for mutation tracing.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMeter sets the meter used for the mutation counter.
func WithMeter(meter metric.Meter) Option {
	return func(o *options) {
		o.meter = meter
	}
}

// Store is a versioned, ordered collection of T with unique keys.
type Store[T Keyed] struct {
	name   string
	logger *zap.SugaredLogger

	mutations metric.Int64Counter

	// writeMu serializes a mutation together with its notification.
	writeMu sync.Mutex

	mu      sync.RWMutex
	version uint64
	items   []T
	index   map[int]int

	changes *observable.Channel[Snapshot[T]]
}

// New creates an empty store at version 0.
func New[T Keyed](name string, opts ...Option) *Store[T] {
	o := options{
		logger: zap.NewNop().Sugar(),
		meter:  global.Meter("articlefeed/store"),
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Store[T]{
		name:   name,
		logger: o.logger.With("store", name),
		mutations: metric.Must(o.meter).NewInt64Counter(
			"store/mutation_count",
			metric.WithDescription("Count of effective store mutations, by store and operation"),
		),
		items:   []T{},
		index:   map[int]int{},
		changes: observable.New[Snapshot[T]](),
	}
}

// Name returns the store name given at construction.
func (s *Store[T]) Name() string {
	return s.name
}

// Snapshot returns a copy of the current items and version. It never waits
// for a notification in progress.
func (s *Store[T]) Snapshot() Snapshot[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot[T]{Version: s.version, Items: cloneItems(s.items)}
}

// Get returns the item stored under id.
func (s *Store[T]) Get(id int) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		var zero T
		return zero, false
	}

	return s.items[i], true
}

// Subscribe registers handler for change notifications. If the store has been
// mutated before, the latest snapshot is replayed first. Handlers run on the
// mutating goroutine and must not mutate this store.
func (s *Store[T]) Subscribe(handler func(Snapshot[T])) (unsubscribe func()) {
	return s.changes.Subscribe(handler)
}

// ReplaceAll sets the store to exactly items, in order. Items with duplicate
// keys are rejected and leave the store unchanged.
func (s *Store[T]) ReplaceAll(items []T) error {
	index := make(map[int]int, len(items))
	for i, item := range items {
		key := item.Key()
		if _, dup := index[key]; dup {
			return fmt.Errorf("replace %s: key %d: %w", s.name, key, ErrDuplicateKey)
		}
		index[key] = i
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.commit("replace_all", cloneItems(items), index)

	return nil
}

// UpdateOne replaces the item with id by mutate(item). It reports false and
// does not notify when no such item exists.
func (s *Store[T]) UpdateOne(id int, mutate func(T) T) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	i, ok := s.index[id]
	var current T
	if ok {
		current = s.items[i]
	}
	s.mu.RUnlock()

	if !ok {
		s.logger.Debugw("update skipped, key not found", "id", id)
		return false, nil
	}

	updated := mutate(current)
	if updated.Key() != id {
		return false, fmt.Errorf("update %s: key %d became %d: %w", s.name, id, updated.Key(), ErrKeyChanged)
	}

	s.mu.RLock()
	items := cloneItems(s.items)
	index := s.index
	s.mu.RUnlock()
	items[i] = updated

	s.commit("update_one", items, index)

	return true, nil
}

// DeleteOne removes the item with id. It reports false and does not notify
// when no such item exists.
func (s *Store[T]) DeleteOne(id int) bool {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	i, ok := s.index[id]
	var items []T
	if ok {
		items = make([]T, 0, len(s.items)-1)
		items = append(items, s.items[:i]...)
		items = append(items, s.items[i+1:]...)
	}
	s.mu.RUnlock()

	if !ok {
		s.logger.Debugw("delete skipped, key not found", "id", id)
		return false
	}

	index := make(map[int]int, len(items))
	for j, item := range items {
		index[item.Key()] = j
	}

	s.commit("delete_one", items, index)

	return true
}

// commit installs a new generation and notifies subscribers. Callers hold
// writeMu, so the notification finishes before the next mutation starts.
func (s *Store[T]) commit(op string, items []T, index map[int]int) {
	s.mu.Lock()
	s.version++
	s.items = items
	s.index = index
	snapshot := Snapshot[T]{Version: s.version, Items: cloneItems(items)}
	s.mu.Unlock()

	s.mutations.Add(context.Background(), 1, storeKey.String(s.name), opKey.String(op))
	s.logger.Debugw("store mutated", "op", op, "version", snapshot.Version, "size", len(snapshot.Items))

	s.changes.Publish(snapshot)
}

func cloneItems[T any](items []T) []T {
	out := make([]T, len(items))
	copy(out, items)

	return out
}

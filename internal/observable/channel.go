// Package observable provides a latest-value publish/subscribe channel.
//
// A Channel remembers only the most recently published value. New subscribers
// receive that value immediately and then every later publish, in order.
// Superseded values are never replayed.
package observable

import (
	"sync"
	"sync/atomic"
)

// Channel is a single-latest-value pub/sub primitive. The zero value is ready
// to use.
//
// Deliveries are serialized: a handler is never invoked concurrently with
// another delivery on the same channel. Handlers may unsubscribe themselves or
// read other state, but must not Publish or Subscribe on the same channel.
type Channel[T any] struct {
	// deliverMu orders publishes and subscription replays.
	deliverMu sync.Mutex

	mu     sync.Mutex
	nextID uint64
	subs   []*subscription[T]
	latest T
	has    bool
}

type subscription[T any] struct {
	id      uint64
	handler func(T)
	active  atomic.Bool
}

// New creates an empty channel.
func New[T any]() *Channel[T] {
	return &Channel[T]{}
}

// Subscribe registers handler and replays the latest value to it, if any.
// The returned function removes the subscription; it is safe to call more
// than once and from inside a handler.
func (c *Channel[T]) Subscribe(handler func(T)) (unsubscribe func()) {
	if handler == nil {
		return func() {}
	}

	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	c.mu.Lock()
	c.nextID++
	sub := &subscription[T]{id: c.nextID, handler: handler}
	sub.active.Store(true)
	c.subs = append(c.subs, sub)
	value, has := c.latest, c.has
	c.mu.Unlock()

	if has {
		handler(value)
	}

	return func() { c.remove(sub) }
}

// Publish stores value as the latest and delivers it to every current
// subscriber before returning.
func (c *Channel[T]) Publish(value T) {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	c.mu.Lock()
	c.latest = value
	c.has = true
	subs := make([]*subscription[T], len(c.subs))
	copy(subs, c.subs)
	c.mu.Unlock()

	for _, sub := range subs {
		if !sub.active.Load() {
			continue
		}
		sub.handler(value)
	}
}

// Latest returns the most recently published value and whether one exists.
func (c *Channel[T]) Latest() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.latest, c.has
}

// Len reports the number of active subscribers.
func (c *Channel[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.subs)
}

func (c *Channel[T]) remove(sub *subscription[T]) {
	if !sub.active.CompareAndSwap(true, false) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i, s := range c.subs {
		if s.id == sub.id {
			c.subs = append(c.subs[:i:i], c.subs[i+1:]...)

			return
		}
	}
}

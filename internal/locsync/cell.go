package locsync

import "sync"

type subscriber[T any] struct {
	id int
	fn func(T)
}

// Cell is a piece of observable state. Observers run synchronously on the
// goroutine that called Set, after the value has been stored.
type Cell[T any] struct {
	mu     sync.Mutex
	value  T
	subs   []subscriber[T]
	nextID int
}

// NewCell creates a Cell holding v.
func NewCell[T any](v T) *Cell[T] {
	return &Cell[T]{value: v}
}

// Get returns the current value.
func (c *Cell[T]) Get() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Set stores v and notifies every observer, even if v equals the old value.
func (c *Cell[T]) Set(v T) {
	c.mu.Lock()
	c.value = v
	subs := append([]subscriber[T](nil), c.subs...)
	c.mu.Unlock()

	for _, s := range subs {
		s.fn(v)
	}
}

// Subscribe registers fn for later changes and returns a function that removes it.
func (c *Cell[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.subs = append(c.subs, subscriber[T]{id: id, fn: fn})

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, s := range c.subs {
			if s.id == id {
				c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
				return
			}
		}
	}
}

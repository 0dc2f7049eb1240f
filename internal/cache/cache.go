package cache

import (
	"sync"

	"github.com/railwatch/trainview/internal/model"
)

// TrainCache keeps trains already read from the open snapshot, keyed by id.
// Trains are frozen, so cached values can be handed out without copying.
type TrainCache struct {
	mu     sync.RWMutex
	trains map[int64]model.Train
	hits   SafeCounter
	misses SafeCounter
}

func NewTrainCache() *TrainCache {
	return &TrainCache{
		trains: make(map[int64]model.Train),
	}
}

// Get returns the cached train and counts the lookup as a hit or miss.
func (c *TrainCache) Get(id int64) (model.Train, bool) {
	c.mu.RLock()
	t, ok := c.trains[id]
	c.mu.RUnlock()
	if ok {
		c.hits.Inc()
	} else {
		c.misses.Inc()
	}
	return t, ok
}

func (c *TrainCache) Add(t model.Train) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trains[t.ID()] = t
}

// AddAll caches every train of a page.
func (c *TrainCache) AddAll(trains []model.Train) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range trains {
		c.trains[t.ID()] = t
	}
}

func (c *TrainCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.trains)
}

// Reset drops every train, e.g. when another snapshot is opened.
func (c *TrainCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trains = make(map[int64]model.Train)
	c.hits.Set(0)
	c.misses.Set(0)
}

// Stats returns the hit and miss counts since the last Reset.
func (c *TrainCache) Stats() (hits, misses int) {
	return c.hits.Value(), c.misses.Value()
}

// SafeCounter is a thread-safe counter
type SafeCounter struct {
	mu sync.Mutex
	v  int
}

func (c *SafeCounter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

func (c *SafeCounter) Set(v int) {
	c.mu.Lock()
	c.v = v
	c.mu.Unlock()
}

func (c *SafeCounter) Inc() {
	c.mu.Lock()
	c.v++
	c.mu.Unlock()
}

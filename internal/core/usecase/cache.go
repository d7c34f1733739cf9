package usecase

import (
	"strings"
	"sync"
)

// boundedCache is a fixed-capacity string-keyed cache with FIFO eviction.
// Concurrent writers of the same key race harmlessly: last writer wins, the
// loser only wasted a recompute. Capacity <= 0 disables caching.
type boundedCache[V any] struct {
	mu       sync.Mutex
	capacity int
	order    []string
	items    map[string]V
}

func newBoundedCache[V any](capacity int) *boundedCache[V] {
	return &boundedCache[V]{
		capacity: capacity,
		items:    make(map[string]V),
	}
}

func (c *boundedCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	return v, ok
}

func (c *boundedCache[V]) Put(key string, value V) {
	if c.capacity <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; !exists {
		c.order = append(c.order, key)
	}
	c.items[key] = value

	for len(c.items) > c.capacity && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.items, oldest)
	}
}

func (c *boundedCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// cacheKey normalizes query text into a cache key.
func cacheKey(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

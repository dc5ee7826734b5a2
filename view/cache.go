package view

import (
	"strings"
	"sync"
)

// Cache holds per-component values, such as controllers or measured
// layouts, keyed by component path. The owner evicts entries when the
// subtree they belong to is torn down; OnEvict runs for each eviction.
type Cache[T any] struct {
	mu      sync.Mutex
	entries map[string]T
	onEvict func(path string, v T)
}

// NewCache creates an empty Cache.
func NewCache[T any]() *Cache[T] {
	return &Cache[T]{entries: make(map[string]T)}
}

// OnEvict sets the hook called for every evicted entry.
func (c *Cache[T]) OnEvict(fn func(path string, v T)) *Cache[T] {
	c.onEvict = fn
	return c
}

// Get returns the entry at path.
func (c *Cache[T]) Get(path string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[path]
	return v, ok
}

// Put stores v at path, evicting any previous entry.
func (c *Cache[T]) Put(path string, v T) {
	c.mu.Lock()
	old, had := c.entries[path]
	c.entries[path] = v
	c.mu.Unlock()
	if had {
		c.evicted(path, old)
	}
}

// Load returns the entry at path, creating it with fn when absent.
func (c *Cache[T]) Load(path string, fn func() T) T {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.entries[path]; ok {
		return v
	}
	v := fn()
	c.entries[path] = v
	return v
}

// Evict removes the entry at path.
func (c *Cache[T]) Evict(path string) {
	c.mu.Lock()
	v, ok := c.entries[path]
	delete(c.entries, path)
	c.mu.Unlock()
	if ok {
		c.evicted(path, v)
	}
}

// EvictSubtree removes the entry at path and every entry below it.
func (c *Cache[T]) EvictSubtree(path string) {
	prefix := strings.TrimSuffix(path, "/") + "/"
	c.mu.Lock()
	var gone []string
	for p := range c.entries {
		if p == path || strings.HasPrefix(p, prefix) {
			gone = append(gone, p)
		}
	}
	vals := make([]T, len(gone))
	for i, p := range gone {
		vals[i] = c.entries[p]
		delete(c.entries, p)
	}
	c.mu.Unlock()
	for i, p := range gone {
		c.evicted(p, vals[i])
	}
}

// Clear evicts every entry.
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	old := c.entries
	c.entries = make(map[string]T)
	c.mu.Unlock()
	for p, v := range old {
		c.evicted(p, v)
	}
}

// Len returns the number of entries.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache[T]) evicted(path string, v T) {
	if c.onEvict != nil {
		c.onEvict(path, v)
	}
}

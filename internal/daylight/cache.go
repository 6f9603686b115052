package daylight

import (
	"sync"

	"github.com/pfederi/Next-Wave-sub001/internal/waves"
)

// Cache holds sun times keyed by local calendar date (YYYY-MM-DD).
// Entries never expire; the number of distinct dates a process asks for is small.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]waves.SunTimes
}

// NewCache creates an empty cache
func NewCache() *Cache {
	return &Cache{entries: make(map[string]waves.SunTimes)}
}

// Get returns the cached sun times for a date key
func (c *Cache) Get(key string) (waves.SunTimes, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st, ok := c.entries[key]
	return st, ok
}

// Put stores sun times for a date key, replacing any previous value
func (c *Cache) Put(key string, st waves.SunTimes) {
	c.mu.Lock()
	c.entries[key] = st
	c.mu.Unlock()
}

// Len returns the number of cached dates
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

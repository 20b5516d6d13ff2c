// Package cache holds generated statements keyed by (input, dialect).
//
// Eviction is first-in first-out: reads never refresh an entry, and only
// re-inserting a key moves it to the newest position.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/pario-ai/sqlpilot/pkg/models"
)

// DefaultCapacity is used when New is given a non-positive capacity.
const DefaultCapacity = 100

// Cache is a bounded in-memory statement cache, safe for concurrent use.
type Cache struct {
	mu        sync.Mutex
	entries   *simplelru.LRU[string, string]
	capacity  int
	hits      int64
	misses    int64
	evictions int64
}

// New creates a Cache holding at most capacity entries.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	// NewLRU only fails for size <= 0.
	entries, _ := simplelru.NewLRU[string, string](capacity, nil)
	return &Cache{entries: entries, capacity: capacity}
}

// Key derives the cache key for an input and dialect: the SHA-256 hex digest
// of the trimmed input and the lower-cased dialect joined by a NUL byte.
func Key(input, dialect string) string {
	h := sha256.New()
	h.Write([]byte(strings.TrimSpace(input)))
	h.Write([]byte{0})
	h.Write([]byte(strings.ToLower(strings.TrimSpace(dialect))))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached statement for input and dialect.
func (c *Cache) Get(input, dialect string) (string, bool) {
	key := Key(input, dialect)

	c.mu.Lock()
	defer c.mu.Unlock()

	stmt, ok := c.entries.Peek(key)
	if !ok {
		c.misses++
		return "", false
	}
	c.hits++
	return stmt, true
}

// Set stores statement for input and dialect. When the cache is full and the
// key is new, the oldest inserted entry is evicted first.
func (c *Cache) Set(input, dialect, statement string) {
	key := Key(input, dialect)

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.entries.Contains(key) && c.entries.Len() >= c.capacity {
		if _, _, ok := c.entries.RemoveOldest(); ok {
			c.evictions++
		}
	}
	c.entries.Add(key, statement)
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

// Stats returns cache performance metrics.
func (c *Cache) Stats() models.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return models.CacheStats{
		Entries:   c.entries.Len(),
		Capacity:  c.capacity,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}

// Clear removes all entries. Counters are kept.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Purge()
}

// Package cache provides a small in-memory TTL cache with group-prefixed keys.
//
// Entries belong to a group (a key prefix), which lets an owning component
// enumerate everything it has stored, for example to dispose live client
// handles at shutdown, without the cache knowing anything about the values.
package cache

import (
	"strings"
	"sync"
	"time"
)

// DefaultTTL is applied by Set when the owner does not choose one explicitly.
const DefaultTTL = 15 * time.Minute

type entry struct {
	value     any
	createdAt time.Time
	ttl       time.Duration
}

func (e entry) expired(now time.Time) bool {
	return e.ttl > 0 && now.Sub(e.createdAt) > e.ttl
}

// Cache is a concurrency-safe map of string keys to arbitrary values with
// per-entry TTL. Expired entries are treated as absent by Get but are kept
// until deleted or overwritten, so owners can still retrieve a stale value
// via Peek and release any resources it holds.
type Cache struct {
	mu         sync.RWMutex
	entries    map[string]entry
	defaultTTL time.Duration
	now        func() time.Time
}

// New creates an empty cache. A non-positive defaultTTL falls back to DefaultTTL.
func New(defaultTTL time.Duration) *Cache {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &Cache{
		entries:    make(map[string]entry),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// Key builds a group-prefixed cache key.
func Key(group, name string) string {
	return group + ":" + name
}

// Set stores value under key with the cache's default TTL.
func (c *Cache) Set(key string, value any) {
	c.SetTTL(key, value, c.defaultTTL)
}

// SetTTL stores value under key with an explicit TTL. A non-positive ttl means
// the entry never expires.
func (c *Cache) SetTTL(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, createdAt: c.now(), ttl: ttl}
}

// Get returns the value for key if present and not expired.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || e.expired(c.now()) {
		return nil, false
	}
	return e.value, true
}

// Peek returns the value for key even if it has expired. It reports nothing
// about freshness; callers that need that distinction should use Get first.
func (c *Cache) Peek(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return e.value, true
}

// Delete removes key and returns the value that was stored, expired or not.
func (c *Cache) Delete(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	delete(c.entries, key)
	return e.value, true
}

// Keys returns every key in the given group, including keys whose entries have
// expired but not yet been deleted. Order is unspecified.
func (c *Cache) Keys(group string) []string {
	prefix := group + ":"
	c.mu.RLock()
	defer c.mu.RUnlock()
	var keys []string
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

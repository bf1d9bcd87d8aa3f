package cache

import (
	"container/list"
	"sync"
	"time"
)

// PathHashCache memoizes the identifier computed while walking a step's
// key path (§4.1's paths_match hashing), under a caller-chosen string key.
// GroupByStep is its one user: it keys entries by the parent key path plus
// the item key, so the item identifier is not rebuilt on every deeper
// pass-through event that touches the same row.
//
// Adapted from a two-tier L1/L2 hierarchical cache: this keeps only the
// fast in-memory tier (an LRU over the memoized hash), since the hashed
// path identifier is cheap to recompute on a cold start and not worth
// persisting to disk.
type PathHashCache struct {
	mu        sync.Mutex
	capacity  int
	ttl       time.Duration
	entries   map[string]*list.Element
	order     *list.List
	analytics *CacheAnalytics
	name      string
}

type pathHashEntry struct {
	key       string
	hash      string
	expiresAt time.Time
}

// PathHashCacheConfig configures a PathHashCache.
type PathHashCacheConfig struct {
	// Name identifies this cache's stats within CacheAnalytics.
	Name string
	// Capacity is the maximum number of memoized path hashes retained.
	Capacity int
	// TTL is how long a memoized hash stays valid. Zero disables expiry.
	TTL time.Duration
}

// DefaultPathHashCacheConfig returns sensible defaults for memoizing key
// path hashes across a moderately deep dataflow graph.
func DefaultPathHashCacheConfig() PathHashCacheConfig {
	return PathHashCacheConfig{
		Name:     "path_hash",
		Capacity: 10000,
		TTL:      30 * time.Minute,
	}
}

// NewPathHashCache creates a cache reporting hits, misses, evictions, and
// fill rate to analytics. A nil analytics uses the process-wide collector.
func NewPathHashCache(config PathHashCacheConfig, analytics *CacheAnalytics) *PathHashCache {
	if analytics == nil {
		analytics = GetCacheAnalytics()
	}
	name := config.Name
	if name == "" {
		name = "path_hash"
	}
	return &PathHashCache{
		capacity:  config.Capacity,
		ttl:       config.TTL,
		entries:   make(map[string]*list.Element),
		order:     list.New(),
		analytics: analytics,
		name:      name,
	}
}

// Get returns the memoized hash for key, recording a hit, miss, or
// TTL-expiry eviction.
func (c *PathHashCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		c.analytics.RecordMiss(c.name, key, 0)
		return "", false
	}

	entry := el.Value.(*pathHashEntry)
	if c.ttl > 0 && time.Now().After(entry.expiresAt) {
		c.removeElement(el)
		c.analytics.RecordEviction(c.name, 1, "ttl")
		c.analytics.RecordMiss(c.name, key, 0)
		return "", false
	}

	c.order.MoveToFront(el)
	c.analytics.RecordHit(c.name, key)
	return entry.hash, true
}

// Set memoizes hash for key. loadTime is not recorded: the miss for key is
// recorded by Get, with a zero load time.
func (c *PathHashCache) Set(key, hash string, loadTime time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		entry := el.Value.(*pathHashEntry)
		entry.hash = hash
		entry.expiresAt = c.expiry()
		c.order.MoveToFront(el)
		return
	}

	entry := &pathHashEntry{key: key, hash: hash, expiresAt: c.expiry()}
	el := c.order.PushFront(entry)
	c.entries[key] = el

	for c.capacity > 0 && c.order.Len() > c.capacity {
		c.evictOldest()
	}

	c.analytics.UpdateSize(c.name, int64(c.order.Len()), int64(c.capacity))
}

func (c *PathHashCache) expiry() time.Time {
	if c.ttl <= 0 {
		return time.Time{}
	}
	return time.Now().Add(c.ttl)
}

func (c *PathHashCache) evictOldest() {
	el := c.order.Back()
	if el == nil {
		return
	}
	c.removeElement(el)
	c.analytics.RecordEviction(c.name, 1, "capacity")
}

func (c *PathHashCache) removeElement(el *list.Element) {
	entry := el.Value.(*pathHashEntry)
	c.order.Remove(el)
	delete(c.entries, entry.key)
}

// Delete removes key from the cache, if present.
func (c *PathHashCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.removeElement(el)
	}
}

// Clear empties the cache.
func (c *PathHashCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*list.Element)
	c.order = list.New()
}

// Len returns the number of memoized entries currently held.
func (c *PathHashCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

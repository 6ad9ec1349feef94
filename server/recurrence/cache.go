package recurrence

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/samber/mo"
)

// CacheConfig holds configuration for the expansion cache
type CacheConfig struct {
	TTL        time.Duration // How long entries stay valid
	MaxEntries int           // Maximum number of entries before eviction
}

type cacheEntry struct {
	starts     []time.Time
	expiresAt  time.Time
	accessedAt time.Time
}

// Cache memoizes expansion results keyed by rule, anchor, end bound and
// window. Expired entries are dropped lazily on access and during eviction.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]*cacheEntry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time

	hits, misses int
}

// NewCache creates a new expansion cache with the given configuration
func NewCache(config CacheConfig) *Cache {
	if config.TTL <= 0 {
		config.TTL = DefaultCacheConfig.TTL
	}
	if config.MaxEntries <= 0 {
		config.MaxEntries = DefaultCacheConfig.MaxEntries
	}
	return &Cache{
		entries:    make(map[string]*cacheEntry),
		ttl:        config.TTL,
		maxEntries: config.MaxEntries,
		now:        time.Now,
	}
}

func cacheKey(rule Rule, anchor time.Time, until mo.Option[time.Time], windowStart, windowEnd time.Time) string {
	h := sha256.New()
	h.Write([]byte(rule.RRule(anchor, mo.None[time.Time]())))
	h.Write([]byte{0})
	h.Write([]byte(anchor.Format(time.RFC3339Nano)))
	h.Write([]byte(anchor.Location().String()))
	if end, ok := until.Get(); ok {
		h.Write([]byte(end.UTC().Format(time.RFC3339Nano)))
	}
	h.Write([]byte{0})
	h.Write([]byte(windowStart.UTC().Format(time.RFC3339Nano)))
	h.Write([]byte(windowEnd.UTC().Format(time.RFC3339Nano)))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns a copy of the cached starts.
func (c *Cache) Get(key string) ([]time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	now := c.now()
	if ok && now.After(entry.expiresAt) {
		delete(c.entries, key)
		ok = false
	}
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	entry.accessedAt = now
	return slices.Clone(entry.starts), true
}

// Set stores a copy of starts under key.
func (c *Cache) Set(key string, starts []time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.entries[key] = &cacheEntry{
		starts:     slices.Clone(starts),
		expiresAt:  now.Add(c.ttl),
		accessedAt: now,
	}
	if len(c.entries) > c.maxEntries {
		c.evict(now)
	}
}

// evict removes expired entries, then the least recently accessed ones until
// the cache is back under its limit. Caller holds c.mu.
func (c *Cache) evict(now time.Time) {
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
	if len(c.entries) <= c.maxEntries {
		return
	}

	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return c.entries[keys[i]].accessedAt.Before(c.entries[keys[j]].accessedAt)
	})
	for _, key := range keys[:len(keys)-c.maxEntries] {
		delete(c.entries, key)
	}
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*cacheEntry)
	c.mu.Unlock()
}

// Stats returns cache statistics
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	expired := 0
	now := c.now()
	for _, entry := range c.entries {
		if now.After(entry.expiresAt) {
			expired++
		}
	}
	return CacheStats{
		TotalEntries:   len(c.entries),
		ExpiredEntries: expired,
		ActiveEntries:  len(c.entries) - expired,
		Hits:           c.hits,
		Misses:         c.misses,
	}
}

// CacheStats provides information about cache performance
type CacheStats struct {
	TotalEntries   int
	ExpiredEntries int
	ActiveEntries  int
	Hits           int
	Misses         int
}

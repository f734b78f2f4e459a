package api

import (
	"os"
	"strconv"
	"sync"

	"github.com/nuages/nuages/pkg/cloud"
)

// CloudCache is a thread-safe LRU cache of computed clouds, keyed by
// collection and query, so that writes to a collection can drop every
// variant computed from it.
type CloudCache struct {
	mu      sync.Mutex
	maxSize int
	entries map[string]*cacheEntry
	order   []string          // oldest first
	gens    map[string]uint64 // bumped by Invalidate
}

type cacheEntry struct {
	collection string
	cloud      cloud.Cloud
}

// NewCloudCache creates a cache with the given maximum number of entries.
// If maxSize <= 0, it defaults to 64.
func NewCloudCache(maxSize int) *CloudCache {
	if maxSize <= 0 {
		maxSize = 64
	}
	return &CloudCache{
		maxSize: maxSize,
		entries: make(map[string]*cacheEntry),
		gens:    make(map[string]uint64),
	}
}

// NewCloudCacheFromEnv creates a cache with size from CLOUD_CACHE_SIZE env var.
func NewCloudCacheFromEnv() *CloudCache {
	size := 64
	if v := os.Getenv("CLOUD_CACHE_SIZE"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			size = parsed
		}
	}
	return NewCloudCache(size)
}

// Get returns a copy of a cached cloud, or nil if not found.
func (c *CloudCache) Get(key string) cloud.Cloud {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil
	}

	// Move to end (most recently used)
	c.moveToEnd(key)
	return clone(entry.cloud)
}

// Generation returns the invalidation generation of collection. Read it
// before loading the tags a cloud is computed from and pass it to Put.
func (c *CloudCache) Generation(collection string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[collection]
}

// Put stores a copy of a cloud computed from collection, evicting the oldest
// if full. The cloud is dropped if collection was invalidated after gen was read.
func (c *CloudCache) Put(collection, key string, gen uint64, cl cloud.Cloud) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gens[collection] != gen {
		return
	}

	entry := &cacheEntry{collection: collection, cloud: clone(cl)}
	if _, ok := c.entries[key]; ok {
		c.entries[key] = entry
		c.moveToEnd(key)
		return
	}

	// Evict oldest if at capacity
	for len(c.entries) >= c.maxSize && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[key] = entry
	c.order = append(c.order, key)
}

// Invalidate drops every entry computed from collection.
func (c *CloudCache) Invalidate(collection string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gens[collection]++
	kept := c.order[:0]
	for _, k := range c.order {
		if c.entries[k].collection == collection {
			delete(c.entries, k)
			continue
		}
		kept = append(kept, k)
	}
	c.order = kept
}

// Len returns the number of cached clouds.
func (c *CloudCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *CloudCache) moveToEnd(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			c.order = append(c.order, key)
			return
		}
	}
}

func clone(c cloud.Cloud) cloud.Cloud {
	out := make(cloud.Cloud, len(c))
	for i, t := range c {
		cp := *t
		out[i] = &cp
	}
	return out
}

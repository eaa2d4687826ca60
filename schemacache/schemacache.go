// Package schemacache memoizes parsed Schemas keyed by resolved IDL
// root path, so hosts that load the same service definition on every
// connection (or every hot-reload tick) don't re-run the lexer,
// parser, and Resolver each time.
package schemacache

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ritksm/thriftpy/schema"
)

// Stats mirrors a cache's hit/miss/eviction counters.
type Stats struct {
	Size      int
	MaxSize   int
	Hits      int64
	Misses    int64
	Evictions int64
}

// Cache is a bounded, LRU-evicted cache of loaded Schemas. Safe for
// concurrent use.
type Cache struct {
	lru       *lru.Cache[string, *schema.Schema]
	maxSize   int
	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// New creates a Cache holding at most maxSize Schemas. maxSize <= 0
// defaults to 128.
func New(maxSize int) (*Cache, error) {
	if maxSize <= 0 {
		maxSize = 128
	}
	c := &Cache{maxSize: maxSize}
	l, err := lru.NewWithEvict(maxSize, func(key string, value *schema.Schema) {
		c.evictions.Add(1)
	})
	if err != nil {
		return nil, err
	}
	c.lru = l
	return c, nil
}

// Get returns a previously loaded Schema for path, if still cached.
func (c *Cache) Get(path string) (*schema.Schema, bool) {
	s, ok := c.lru.Get(path)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return s, ok
}

// Put stores s under path, evicting the least-recently-used entry if
// the cache is at capacity.
func (c *Cache) Put(path string, s *schema.Schema) {
	c.lru.Add(path, s)
}

// GetOrLoad returns the cached Schema for path, or calls load, caches
// its result, and returns it on a miss. load is not called while
// holding any internal lock, so it may itself populate other cache
// entries (e.g. via include resolution) without deadlocking.
func (c *Cache) GetOrLoad(path string, load func() (*schema.Schema, error)) (*schema.Schema, error) {
	if s, ok := c.Get(path); ok {
		return s, nil
	}
	s, err := load()
	if err != nil {
		return nil, err
	}
	c.Put(path, s)
	return s, nil
}

// Invalidate removes path's cached Schema, if any, e.g. in response
// to a schemawatch change notification.
func (c *Cache) Invalidate(path string) {
	c.lru.Remove(path)
}

// Purge drops every cached Schema.
func (c *Cache) Purge() {
	c.lru.Purge()
}

// Stats reports the cache's current size and lifetime counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Size:      c.lru.Len(),
		MaxSize:   c.maxSize,
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}

// Package cache provides the bounded, access-ordered cache shared by all
// patch jobs of a process.
//
// Concurrent lookups, inserts and evictions are serialized by the underlying
// LRU. GetOrCreate additionally collapses concurrent misses for the same key
// into a single create call.
package cache

import (
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// DefaultSize is the capacity used when none is configured.
const DefaultSize = 256

// Key identifies a cached fragment: the pass that produced it, the
// Parameters signature it was built for, and a name within the pass.
type Key struct {
	Pass      string
	Signature string
	Name      string
}

func (k Key) String() string {
	return k.Pass + "/" + k.Signature + "/" + k.Name
}

// Stats counts cache traffic.
type Stats struct {
	Entries   int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// LRU is a fixed-capacity least-recently-used cache.
type LRU[K comparable, V any] struct {
	inner *lru.Cache[K, V]
	group singleflight.Group

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// New creates a cache holding at most size entries.
func New[K comparable, V any](size int) (*LRU[K, V], error) {
	if size <= 0 {
		return nil, fmt.Errorf("cache size must be positive, got %d", size)
	}
	c := &LRU[K, V]{}
	inner, err := lru.NewWithEvict[K, V](size, func(K, V) {
		c.evictions.Add(1)
	})
	if err != nil {
		return nil, err
	}
	c.inner = inner
	return c, nil
}

// Get looks up key and marks it most recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	v, ok := c.inner.Get(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return v, ok
}

// Add inserts or refreshes key, evicting the least recently used entry when
// full. It reports whether an eviction happened.
func (c *LRU[K, V]) Add(key K, value V) bool {
	return c.inner.Add(key, value)
}

// GetOrCreate returns the cached value for key or builds it with create.
// Concurrent callers missing on the same key share one create call. Errors
// are not cached.
func (c *LRU[K, V]) GetOrCreate(key K, create func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	res, err, _ := c.group.Do(fmt.Sprint(key), func() (any, error) {
		if v, ok := c.inner.Get(key); ok {
			return v, nil
		}
		v, err := create()
		if err != nil {
			return nil, err
		}
		c.Add(key, v)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}

// Stats returns a snapshot of the traffic counters.
func (c *LRU[K, V]) Stats() Stats {
	return Stats{
		Entries:   c.inner.Len(),
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}

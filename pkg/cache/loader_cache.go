// Package cache memoizes loaded values behind a bounded LRU, optionally with
// a time-to-live, and shares in-flight loads between callers of the same key.
package cache

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

// store is the subset of the LRU API shared by the plain and expiring caches.
type store[V any] interface {
	Get(key string) (V, bool)
	Add(key string, value V) bool
	Remove(key string) bool
	Purge()
	Len() int
}

// LoaderFunc produces the value for a key that is not cached.
type LoaderFunc[K comparable, V any] func(ctx context.Context, key K) (V, error)

// Option configures a LoaderCache.
type Option func(*options)

type options struct {
	ttl time.Duration
}

// WithTTL expires entries ttl after they were loaded. Zero keeps entries until evicted.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) { o.ttl = ttl }
}

// LoaderCache maps K to V. Keys are folded to strings by keyOf, so two keys
// that fold to the same string share one entry.
type LoaderCache[K comparable, V any] struct {
	entries  store[V]
	inflight singleflight.Group
	keyOf    func(K) string
}

// NewLoaderCache returns a cache holding at most maxEntries values.
func NewLoaderCache[K comparable, V any](maxEntries int, keyOf func(K) string, opts ...Option) (*LoaderCache[K, V], error) {
	if maxEntries <= 0 {
		return nil, fmt.Errorf("cache size must be positive, got %d", maxEntries)
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	c := &LoaderCache[K, V]{keyOf: keyOf}

	if o.ttl > 0 {
		c.entries = expirable.NewLRU[string, V](maxEntries, nil, o.ttl)

		return c, nil
	}

	plain, err := lru.New[string, V](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}

	c.entries = plain

	return c, nil
}

// Get returns the cached value for key or loads it.
func (c *LoaderCache[K, V]) Get(ctx context.Context, key K, load LoaderFunc[K, V]) (V, error) {
	v, _, err := c.GetWithStats(ctx, key, load)

	return v, err
}

// GetWithStats is Get that also reports whether the value was served from the cache.
// Concurrent misses on one key run load once; a caller whose ctx ends stops
// waiting without cancelling the shared load. Errors are never cached.
func (c *LoaderCache[K, V]) GetWithStats(ctx context.Context, key K, load LoaderFunc[K, V]) (V, bool, error) {
	var none V

	k := c.keyOf(key)
	if v, ok := c.entries.Get(k); ok {
		return v, true, nil
	}

	ch := c.inflight.DoChan(k, func() (any, error) {
		v, err := load(context.WithoutCancel(ctx), key)
		if err != nil {
			return nil, err
		}

		c.entries.Add(k, v)

		return v, nil
	})

	select {
	case <-ctx.Done():
		return none, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return none, false, res.Err
		}

		v, _ := res.Val.(V)

		return v, false, nil
	}
}

// Invalidate drops the entry for key.
func (c *LoaderCache[K, V]) Invalidate(key K) {
	c.entries.Remove(c.keyOf(key))
}

// InvalidateAll empties the cache.
func (c *LoaderCache[K, V]) InvalidateAll() {
	c.entries.Purge()
}

// Len reports the number of cached entries, expired ones included until they are swept.
func (c *LoaderCache[K, V]) Len() int {
	return c.entries.Len()
}

package statement

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Source produces a full multi-year load. *Loader implements it.
type Source interface {
	Load(ctx context.Context) (*LoadResult, error)
}

// Cache holds the result of a Source for the lifetime of the process.
// Concurrent first calls share a single load; callers never observe a
// partially built result. A shared load runs to completion even if the
// caller that started it is cancelled. Failed loads are not cached.
type Cache struct {
	source Source

	group singleflight.Group

	mu         sync.RWMutex
	result     *LoadResult
	generation uint64
}

// NewCache wraps source.
func NewCache(source Source) *Cache {
	return &Cache{source: source}
}

// Load returns the cached result, loading it on first use.
func (c *Cache) Load(ctx context.Context) (*LoadResult, error) {
	c.mu.RLock()
	res, gen := c.result, c.generation
	c.mu.RUnlock()
	if res != nil {
		return res, nil
	}

	v, err, _ := c.group.Do("load", func() (interface{}, error) {
		c.mu.RLock()
		if c.result != nil {
			r := c.result
			c.mu.RUnlock()
			return r, nil
		}
		c.mu.RUnlock()

		// Shared by every waiting caller; runs to completion regardless of ctx.
		r, err := c.source.Load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		// An Invalidate during the load means r may be stale; hand it to
		// the waiting callers but do not keep it.
		if c.generation == gen {
			c.result = r
		}
		c.mu.Unlock()
		return r, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*LoadResult), nil
}

// Cached reports whether a result is currently held.
func (c *Cache) Cached() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.result != nil
}

// Invalidate drops the cached result so the next Load re-reads the source.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.result = nil
	c.generation++
	c.mu.Unlock()
	c.group.Forget("load")
}

// Registry holds one cache per statement kind.
type Registry struct {
	caches map[Kind]*Cache
}

// NewRegistry creates a registry from per-kind sources.
func NewRegistry(sources map[Kind]Source) *Registry {
	r := &Registry{caches: make(map[Kind]*Cache, len(sources))}
	for k, s := range sources {
		r.caches[k] = NewCache(s)
	}
	return r
}

// Cache returns the cache for kind, or nil when the kind is not configured.
func (r *Registry) Cache(kind Kind) *Cache {
	return r.caches[kind]
}

// Kinds returns the configured kinds, P/L first.
func (r *Registry) Kinds() []Kind {
	var out []Kind
	for _, k := range []Kind{KindPL, KindBS} {
		if _, ok := r.caches[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

// InvalidateAll drops every cached result.
func (r *Registry) InvalidateAll() {
	for _, c := range r.caches {
		c.Invalidate()
	}
}

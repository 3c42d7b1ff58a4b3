package core

import (
	"context"
	"sync"
)

// LookupFunc finds an existing entity. found is false when none matches.
type LookupFunc func(ctx context.Context) (id string, found bool, err error)

// CreateFunc creates an entity and returns its id.
type CreateFunc func(ctx context.Context) (string, error)

// ProgramKey is the cache key for a Program.
func ProgramKey(name string) string {
	return name
}

// ChildKey is the cache key for an entity scoped under parentID.
func ChildKey(parentID, name string) string {
	return parentID + "_" + name
}

type cacheKey struct {
	kind Kind
	key  string
}

// CacheStats counts cache outcomes.
type CacheStats struct {
	Hits   int `json:"hits"`
	Misses int `json:"misses"`
}

// ResolutionCache maps natural keys to entity ids for a single run.
// A new cache is built for every run and discarded when it ends.
type ResolutionCache struct {
	mu      sync.Mutex
	entries map[cacheKey]string
	stats   CacheStats
	metrics *Metrics
}

// NewResolutionCache creates an empty cache. metrics may be nil.
func NewResolutionCache(metrics *Metrics) *ResolutionCache {
	return &ResolutionCache{
		entries: make(map[cacheKey]string),
		metrics: metrics,
	}
}

// GetOrCreate returns the id cached for (kind, key). On a miss it runs
// lookup, then create if lookup found nothing, and caches the id. Errors
// from either function are returned and leave the cache unchanged.
//
// Calls for one run arrive sequentially, so the lock only guards reads
// from concurrent Stats callers; lookup and create run unlocked.
func (c *ResolutionCache) GetOrCreate(ctx context.Context, kind Kind, key string, lookup LookupFunc, create CreateFunc) (string, error) {
	ck := cacheKey{kind: kind, key: key}

	c.mu.Lock()
	if id, ok := c.entries[ck]; ok {
		c.stats.Hits++
		c.mu.Unlock()
		c.metrics.CacheLookup(kind, true)
		return id, nil
	}
	c.stats.Misses++
	c.mu.Unlock()
	c.metrics.CacheLookup(kind, false)

	id, found, err := lookup(ctx)
	if err != nil {
		return "", err
	}
	if !found {
		id, err = create(ctx)
		if err != nil {
			return "", err
		}
	}

	c.mu.Lock()
	c.entries[ck] = id
	c.mu.Unlock()
	return id, nil
}

// Len returns the number of cached entries.
func (c *ResolutionCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns hit and miss counts.
func (c *ResolutionCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

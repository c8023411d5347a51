package stats

import (
	"context"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"ledgerly/internal/cache"
	"ledgerly/internal/ledger"
)

// Cached serves reports from a cache and collapses concurrent computations
// of the same report into one. It drops an owner's reports whenever a ledger
// event for that owner is published to it.
//
// Every invalidation bumps the owner's generation. A computation only stores
// its report when the generation it started under is still current, and
// callers never join a computation started under an older generation.
type Cached struct {
	agg   *Aggregator
	cache cache.Cache[Report]
	group singleflight.Group

	mu   sync.Mutex
	gens map[string]uint64
}

var _ ledger.EventPublisher = (*Cached)(nil)

func NewCached(agg *Aggregator, c cache.Cache[Report]) *Cached {
	return &Cached{agg: agg, cache: c, gens: make(map[string]uint64)}
}

func cacheKey(ownerID string, p Period) string {
	return "stats:" + ownerID + ":" + string(p)
}

func (c *Cached) generation(ownerID string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[ownerID]
}

func (c *Cached) Aggregate(ctx context.Context, ownerID string, period Period) (Report, error) {
	key := cacheKey(ownerID, period)
	if r, ok := c.cache.Get(ctx, key); ok {
		return r, nil
	}

	gen := c.generation(ownerID)
	v, err, _ := c.group.Do(key+"#"+strconv.FormatUint(gen, 10), func() (any, error) {
		r, err := c.agg.Aggregate(ctx, ownerID, period)
		if err != nil {
			return Report{}, err
		}
		c.mu.Lock()
		if c.gens[ownerID] == gen {
			c.cache.Set(ctx, key, r)
		}
		c.mu.Unlock()
		return r, nil
	})
	if err != nil {
		return Report{}, err
	}
	return v.(Report), nil
}

// Invalidate drops every cached report of ownerID and discards reports still
// being computed for it.
func (c *Cached) Invalidate(ctx context.Context, ownerID string) {
	c.mu.Lock()
	c.gens[ownerID]++
	c.mu.Unlock()

	keys := make([]string, len(Periods))
	for i, p := range Periods {
		keys[i] = cacheKey(ownerID, p)
	}
	c.cache.Delete(ctx, keys...)
}

func (c *Cached) Publish(ctx context.Context, ev ledger.Event) error {
	if ev.OwnerID != "" {
		c.Invalidate(ctx, ev.OwnerID)
	}
	return nil
}

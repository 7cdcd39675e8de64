package cache

import (
	"time"

	"github.com/coriolis-labs/concord/clock"
	"github.com/coriolis-labs/concord/sortedmap"
)

// IntCache is a TTL-bounded, int64-keyed cache backed by sortedmap.Tree —
// the concrete realization of spec.md §2's "sorted map... as a client of
// the core" for this repo's cache package. A companion tree tracks each
// key's expiry instant so the package's existing Janitor can sweep
// expired entries on its usual schedule, through the State contract
// lru_janitor.go defines.
type IntCache struct {
	values  *sortedmap.Tree
	expires *sortedmap.Tree // key -> expiry as UnixNano; absent means no TTL
	ttl     time.Duration
}

// NewIntCache creates an empty cache. A ttl of 0 disables expiry — entries
// live until explicitly deleted. When ttl > 0, the cache registers itself
// with the shared Janitor so expired entries are swept on its background
// schedule. The Janitor index is not kept, so no out-of-band sweep can be
// triggered for it; Cleanup can be called directly instead.
func NewIntCache(ttl time.Duration) *IntCache {
	values, _ := sortedmap.New(true)
	expires, _ := sortedmap.New(true)
	c := &IntCache{values: values, expires: expires, ttl: ttl}
	if ttl > 0 {
		Janitor.Add(c, ttl)
	}
	return c
}

// Get returns the value for key, reporting false if absent or expired.
func (c *IntCache) Get(key int64) (int64, bool) {
	if c.ttl > 0 {
		if exp, ok := c.expires.Get(key); ok && clock.Now().UnixNano() >= exp {
			c.values.Delete(key)
			c.expires.Delete(key)
			return 0, false
		}
	}
	return c.values.Get(key)
}

// Put inserts or replaces key's value and resets its TTL clock.
func (c *IntCache) Put(key, value int64) {
	c.values.Put(key, value)
	if c.ttl > 0 {
		c.expires.Put(key, clock.Now().Add(c.ttl).UnixNano())
	}
}

// Delete removes key unconditionally.
func (c *IntCache) Delete(key int64) {
	c.values.Delete(key)
	if c.ttl > 0 {
		c.expires.Delete(key)
	}
}

// Size reports the number of entries currently stored, including any not
// yet swept by the janitor past their TTL.
func (c *IntCache) Size() int {
	return c.values.Size()
}

// Cleanup implements the State interface lru_janitor.go's statesJanitor
// sweeps: it walks the expiry tree once and evicts every key whose TTL
// has elapsed.
func (c *IntCache) Cleanup() {
	if c.ttl <= 0 {
		return
	}
	now := clock.Now().UnixNano()
	var expired []int64
	c.expires.InOrder(func(key, exp int64) bool {
		if now >= exp {
			expired = append(expired, key)
		}
		return true
	})
	for _, key := range expired {
		c.values.Delete(key)
		c.expires.Delete(key)
	}
}

package cache_test

import (
	"testing"
	"time"

	"github.com/coriolis-labs/concord/cache"
	"github.com/coriolis-labs/concord/clock"
	expect "github.com/coriolis-labs/concord/internal/expect"
)

func TestIntCachePutGet(t *testing.T) {
	c := cache.NewIntCache(0)
	c.Put(1, 100)
	v, ok := c.Get(1)
	expect.True(t, ok)
	expect.Equal(t, v, int64(100))
	expect.Equal(t, c.Size(), 1)
}

func TestIntCacheMissing(t *testing.T) {
	c := cache.NewIntCache(0)
	_, ok := c.Get(404)
	expect.False(t, ok)
}

func TestIntCacheExpiry(t *testing.T) {
	base := time.Now()
	clock.Mock(base)
	defer clock.Unmock()

	c := cache.NewIntCache(10 * time.Millisecond)
	c.Put(1, 7)

	v, ok := c.Get(1)
	expect.True(t, ok)
	expect.Equal(t, v, int64(7))

	clock.Mock(base.Add(20 * time.Millisecond))
	_, ok = c.Get(1)
	expect.False(t, ok)
}

func TestIntCacheCleanupSweepsExpired(t *testing.T) {
	base := time.Now()
	clock.Mock(base)
	defer clock.Unmock()

	c := cache.NewIntCache(5 * time.Millisecond)
	c.Put(1, 1)
	c.Put(2, 2)

	clock.Mock(base.Add(50 * time.Millisecond))
	c.Cleanup()
	expect.Equal(t, c.Size(), 0)
}

func TestIntCacheDelete(t *testing.T) {
	c := cache.NewIntCache(0)
	c.Put(1, 1)
	c.Delete(1)
	_, ok := c.Get(1)
	expect.False(t, ok)
}

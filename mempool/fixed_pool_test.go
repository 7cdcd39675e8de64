package mempool_test

import (
	"testing"

	expect "github.com/coriolis-labs/concord/internal/expect"
	"github.com/coriolis-labs/concord/mempool"
)

func TestFixedPoolAllocFreeRoundTrip(t *testing.T) {
	p, err := mempool.Create(32, 4, false)
	expect.NoError(t, err)
	expect.Equal(t, p.NumCells(), 4)

	buf, handle, err := p.Alloc()
	expect.NoError(t, err)
	expect.Equal(t, len(buf), 32)

	expect.NoError(t, p.Free(handle))
}

func TestFixedPoolExhaustionReturnsResourceExhausted(t *testing.T) {
	p, err := mempool.Create(16, 2, false)
	expect.NoError(t, err)

	_, _, err = p.Alloc()
	expect.NoError(t, err)
	_, _, err = p.Alloc()
	expect.NoError(t, err)

	_, _, err = p.Alloc()
	expect.NotNil(t, err)
}

func TestFixedPoolFreeThenReallocSucceeds(t *testing.T) {
	p, err := mempool.Create(16, 1, false)
	expect.NoError(t, err)

	_, h, err := p.Alloc()
	expect.NoError(t, err)
	expect.NoError(t, p.Free(h))

	_, _, err = p.Alloc()
	expect.NoError(t, err)
}

func TestFixedPoolDoubleFreeIsRejected(t *testing.T) {
	p, err := mempool.Create(16, 2, false)
	expect.NoError(t, err)

	_, h, err := p.Alloc()
	expect.NoError(t, err)
	expect.NoError(t, p.Free(h))

	err = p.Free(h)
	expect.NotNil(t, err)
}

func TestFixedPoolFreeFromWrongPoolIsRejected(t *testing.T) {
	p1, err := mempool.Create(16, 2, false)
	expect.NoError(t, err)
	p2, err := mempool.Create(16, 2, false)
	expect.NoError(t, err)

	_, h, err := p1.Alloc()
	expect.NoError(t, err)

	err = p2.Free(h)
	expect.NotNil(t, err)
}

func TestFixedPoolInvalidArgumentsRejected(t *testing.T) {
	_, err := mempool.Create(0, 2, false)
	expect.NotNil(t, err)

	_, err = mempool.Create(16, 0, false)
	expect.NotNil(t, err)
}

func TestFixedPoolStatsReportsLoadFactor(t *testing.T) {
	p, err := mempool.Create(16, 4, false)
	expect.NoError(t, err)

	_, _, err = p.Alloc()
	expect.NoError(t, err)
	_, _, err = p.Alloc()
	expect.NoError(t, err)

	stats := p.Stats()
	expect.Equal(t, stats.NumCells, 4)
	expect.Equal(t, stats.FreeCells, 2)
	expect.StringsContain(t, stats.String(), "2/4 cells used")
}

func TestFixedPoolDestroyRejectsFurtherUse(t *testing.T) {
	p, err := mempool.Create(16, 2, false)
	expect.NoError(t, err)
	expect.NoError(t, p.Destroy())

	_, _, err = p.Alloc()
	expect.NotNil(t, err)
}

func TestFixedPoolPinUnpinRoundTrip(t *testing.T) {
	p, err := mempool.Create(16, 2, false)
	expect.NoError(t, err)

	expect.NoError(t, p.Pin(0))
	expect.NoError(t, p.Pin(0)) // nested pin just bumps the refcount
	expect.NoError(t, p.Unpin())
	expect.NoError(t, p.Unpin())
}

func TestFixedPoolUnpinWithoutPinIsRejected(t *testing.T) {
	p, err := mempool.Create(16, 2, false)
	expect.NoError(t, err)

	err = p.Unpin()
	expect.NotNil(t, err)
}

func TestFixedPoolProtectedConcurrentAllocFree(t *testing.T) {
	p, err := mempool.Create(16, 16, true)
	expect.NoError(t, err)

	done := make(chan struct{})
	for range 8 {
		go func() {
			defer func() { done <- struct{}{} }()
			for range 50 {
				_, h, aerr := p.Alloc()
				if aerr != nil {
					continue
				}
				p.Free(h) //nolint:errcheck
			}
		}()
	}
	for range 8 {
		<-done
	}
}

package mempool

import (
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sys/unix"

	cerr "github.com/coriolis-labs/concord/errs"
)

// Pin requests that the OS lock the pool's block in RAM (mlock), retrying
// transient failures (the kernel returns EAGAIN/ENOMEM when RLIMIT_MEMLOCK
// or available physical memory is momentarily exhausted) with an
// exponential backoff. maxRetries <= 0 means try once, no retry.
func (p *FixedPool) Pin(maxRetries int) cerr.Error {
	p.lock()
	defer p.unlock()

	if p.destroyed {
		return cerr.InvalidArgument("mempool.FixedPool.Pin: pool is destroyed")
	}
	if p.pinCount > 0 {
		p.pinCount++
		return nil
	}

	if err := mlockWithRetry(p.block, maxRetries); err != nil {
		return cerr.Internal("mempool.FixedPool.Pin: mlock failed").With(err)
	}
	p.pinCount++
	return nil
}

// Unpin releases one Pin reservation, unlocking the block once the count
// reaches zero.
func (p *FixedPool) Unpin() cerr.Error {
	p.lock()
	defer p.unlock()

	if p.pinCount <= 0 {
		return cerr.InvalidArgument("mempool.FixedPool.Unpin: not pinned")
	}
	p.pinCount--
	if p.pinCount > 0 {
		return nil
	}
	if err := unix.Munlock(p.block); err != nil {
		return cerr.Internal("mempool.FixedPool.Unpin: munlock failed").With(err)
	}
	return nil
}

func mlockWithRetry(block []byte, maxRetries int) error {
	if len(block) == 0 {
		return nil
	}
	if maxRetries <= 0 {
		return unix.Mlock(block)
	}

	b := backoff.NewExponentialBackOff()
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		lastErr = unix.Mlock(block)
		if lastErr == nil {
			return nil
		}
		if lastErr != unix.EAGAIN && lastErr != unix.ENOMEM {
			return lastErr
		}
		d := b.NextBackOff()
		if d == backoff.Stop {
			break
		}
		time.Sleep(d)
	}
	return lastErr
}

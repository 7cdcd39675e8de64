// Package rwlock implements the reader/writer lock spec.md §4.2 describes:
// many-reader xor single-writer, built on a mutex and condition variable —
// not on sem.Semaphore, and not on sync.RWMutex, which has no timed
// acquisition.
//
// Grounded on original_source/rwlock.c and rwlock.h.
package rwlock

import (
	"sync"

	"github.com/coriolis-labs/concord/clock"
	cerr "github.com/coriolis-labs/concord/errs"
	"github.com/coriolis-labs/concord/internal/condwait"
)

// RWLock is a many-reader/single-writer lock. value > 0 counts active
// readers, value == 0 is idle, value == -1 is write-held. The zero value is
// not usable (it has no condition variable); construct one with New, which
// starts value at 0.
type RWLock struct {
	mu    sync.Mutex
	cond  *sync.Cond
	value int
}

// New returns a ready-to-use RWLock.
func New() *RWLock {
	l := &RWLock{}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// AcquireReader blocks while a writer holds the lock, then registers as a
// reader.
func (l *RWLock) AcquireReader() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for l.value < 0 {
		l.cond.Wait()
	}
	l.value++
}

// ReleaseReader releases one reader slot and wakes one waiter. Calling this
// without holding a reader slot is undefined behavior, per spec.md §4.2.
func (l *RWLock) ReleaseReader() {
	l.mu.Lock()
	l.value--
	l.mu.Unlock()
	l.cond.Signal()
}

// AcquireWriter blocks until the lock is idle, then claims it for writing.
func (l *RWLock) AcquireWriter() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for l.value != 0 {
		l.cond.Wait()
	}
	l.value = -1
}

// ReleaseWriter releases the write lock and wakes one waiter. Calling this
// without holding the write lock is undefined behavior.
func (l *RWLock) ReleaseWriter() {
	l.mu.Lock()
	l.value = 0
	l.mu.Unlock()
	l.cond.Signal()
}

// TimedAcquireReader is AcquireReader with a deadline; timeoutMillis must
// be > 0.
func (l *RWLock) TimedAcquireReader(timeoutMillis int64) cerr.Error {
	if timeoutMillis <= 0 {
		return cerr.InvalidArgument("rwlock.TimedAcquireReader: timeoutMillis must be > 0")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.value >= 0 {
		l.value++
		return nil
	}

	deadline := clock.Deadline(clock.FromMillis(timeoutMillis))
	for l.value < 0 {
		remaining := clock.Remaining(deadline)
		if remaining <= 0 {
			return cerr.Timeout("rwlock.TimedAcquireReader: deadline exceeded")
		}
		if !condwait.TimedWait(l.cond, remaining) && clock.Expired(deadline) {
			return cerr.Timeout("rwlock.TimedAcquireReader: deadline exceeded")
		}
	}
	l.value++
	return nil
}

// TimedAcquireWriter is AcquireWriter with a deadline; timeoutMillis must
// be > 0.
func (l *RWLock) TimedAcquireWriter(timeoutMillis int64) cerr.Error {
	if timeoutMillis <= 0 {
		return cerr.InvalidArgument("rwlock.TimedAcquireWriter: timeoutMillis must be > 0")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	deadline := clock.Deadline(clock.FromMillis(timeoutMillis))
	for l.value != 0 {
		remaining := clock.Remaining(deadline)
		if remaining <= 0 {
			return cerr.Timeout("rwlock.TimedAcquireWriter: deadline exceeded")
		}
		if !condwait.TimedWait(l.cond, remaining) && clock.Expired(deadline) {
			return cerr.Timeout("rwlock.TimedAcquireWriter: deadline exceeded")
		}
	}
	l.value = -1
	return nil
}

// Package sem implements the counting semaphore spec.md §4.1 describes: a
// non-negative integer value with blocking and timed multi-unit up/down.
//
// Grounded on original_source/sem.c and sem.h (the most complete revision,
// per spec.md §9's note that multiple incomplete revisions exist in the
// source): value is guarded by a sync.Mutex, waiters block on a sync.Cond,
// and timed waits recompute their remaining budget on every wake using
// clock.Remaining — not a single up-front timer — exactly as spec.md §4.1
// requires.
package sem

import (
	"sync"

	"github.com/coriolis-labs/concord/clock"
	cerr "github.com/coriolis-labs/concord/errs"
	"github.com/coriolis-labs/concord/internal/condwait"
)

// Semaphore is a classic counting semaphore with multi-unit operations.
// The zero value is not usable; construct one with New.
type Semaphore struct {
	mu    sync.Mutex
	cond  *sync.Cond
	value int
	init  bool
}

// New creates a semaphore whose value starts at maxValue (fully
// available). maxValue must be > 0.
func New(maxValue int) (*Semaphore, cerr.Error) {
	if maxValue <= 0 {
		return nil, cerr.InvalidArgument("sem.New: maxValue must be > 0")
	}
	s := &Semaphore{value: maxValue, init: true}
	s.cond = sync.NewCond(&s.mu)
	return s, nil
}

// Value returns the current value. Intended for tests and debug/stats
// reporting — do not use it to decide whether a subsequent Down will block,
// since the value can change between the read and the call.
func (s *Semaphore) Value() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Up is shorthand for Op(1).
func (s *Semaphore) Up() cerr.Error { return s.Op(1) }

// Down is shorthand for Op(-1).
func (s *Semaphore) Down() cerr.Error { return s.Op(-1) }

// Op adds k to the semaphore's value (k > 0, non-blocking, wakes one
// waiter) or blocks until the value is at least |k| and then subtracts it
// (k < 0). k must not be 0.
func (s *Semaphore) Op(k int) cerr.Error {
	if !s.init {
		return cerr.InvalidArgument("sem.Op: semaphore not initialized")
	}
	if k == 0 {
		return cerr.InvalidArgument("sem.Op: k must not be 0")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if k > 0 {
		s.value += k
		s.cond.Signal()
		return nil
	}

	need := -k
	for s.value < need {
		s.cond.Wait()
	}
	s.value -= need
	return nil
}

// TimedOp is Op, but fails with a KindTimeout error if the deadline elapses
// before the precondition holds. timeoutMillis must be > 0.
func (s *Semaphore) TimedOp(k int, timeoutMillis int64) cerr.Error {
	if !s.init {
		return cerr.InvalidArgument("sem.TimedOp: semaphore not initialized")
	}
	if k == 0 {
		return cerr.InvalidArgument("sem.TimedOp: k must not be 0")
	}
	if timeoutMillis <= 0 {
		return cerr.InvalidArgument("sem.TimedOp: timeoutMillis must be > 0")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if k > 0 {
		s.value += k
		s.cond.Signal()
		return nil
	}

	need := -k
	if s.value >= need {
		s.value -= need
		return nil
	}

	deadline := clock.Deadline(clock.FromMillis(timeoutMillis))
	for s.value < need {
		remaining := clock.Remaining(deadline)
		if remaining <= 0 {
			return cerr.Timeout("sem.TimedOp: deadline exceeded waiting for value")
		}
		if !condwait.TimedWait(s.cond, remaining) {
			// woken by timer, not by a signal; recheck remaining on the
			// next loop iteration instead of assuming timeout, since a
			// concurrent Up may have landed in the same instant.
			if clock.Expired(deadline) {
				return cerr.Timeout("sem.TimedOp: deadline exceeded waiting for value")
			}
		}
	}
	s.value -= need
	return nil
}

// Package barrier implements the sense-reversing N-way rendezvous spec.md
// §4.7 describes.
//
// Grounded directly on spec.md's pseudocode (the filtered original_source/
// set has no C file implementing this primitive): a mutex-guarded arrived
// counter and a sense bit, flipped exactly when the last participant
// arrives, with waiters blocking while the sense bit still equals the
// value they observed on entry. That "observed on entry" check is what
// keeps a fast thread from generation k+1 from racing past a slow thread
// still finishing generation k.
package barrier

import (
	"sync"

	cerr "github.com/coriolis-labs/concord/errs"
)

// Barrier is a reusable rendezvous point for exactly n participants.
type Barrier struct {
	mu      sync.Mutex
	cond    *sync.Cond
	n       int
	arrived int
	sense   bool
}

// New creates a barrier requiring n participants per generation. n must be
// > 0.
func New(n int) (*Barrier, cerr.Error) {
	if n <= 0 {
		return nil, cerr.InvalidArgument("barrier.New: n must be > 0")
	}
	b := &Barrier{n: n}
	b.cond = sync.NewCond(&b.mu)
	return b, nil
}

// Sync blocks the calling goroutine until n participants, including this
// one, have called Sync for the current generation. The last arrival
// flips the generation's sense bit and wakes every waiter; it does not
// itself block.
func (b *Barrier) Sync() {
	b.mu.Lock()
	defer b.mu.Unlock()

	generation := b.sense
	b.arrived++
	if b.arrived == b.n {
		b.arrived = 0
		b.sense = !b.sense
		b.cond.Broadcast()
		return
	}
	for b.sense == generation {
		b.cond.Wait()
	}
}

// N reports the number of participants required per generation.
func (b *Barrier) N() int {
	return b.n
}

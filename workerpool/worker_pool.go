// Package workerpool implements the thread pool with futures spec.md
// §4.6 describes: a fixed or elastic pool of long-lived goroutines that
// dispatch caller-supplied work and hand back a Future the caller can
// Join on.
//
// Grounded on _examples/yusing-goutils/synk/workerpool/worker_pool.go,
// whose `sem chan struct{}` backpressure idea is the direct ancestor of
// this package's availability semaphore — generalized here from a plain
// `Go`/`Wait` fire-and-forget pool into the full fixed/elastic,
// futures-bearing protocol spec.md requires. The availability semaphore
// and each worker's binary workAvailable semaphore are sem.Semaphore,
// not raw channels, so the timed/multi-unit machinery in package sem is
// shared rather than duplicated.
package workerpool

import (
	"fmt"
	"sync"
	"sync/atomic"

	cerr "github.com/coriolis-labs/concord/errs"
	"github.com/coriolis-labs/concord/num"
	"github.com/coriolis-labs/concord/sem"
)

type state int

const (
	stateUninitialized state = iota
	stateAvailable
	stateBusy
)

// Callback is a unit of work submitted to a Pool. Its return value is
// delivered to the submitter's Future verbatim — the pool never
// inspects, wraps, or translates it.
type Callback func(arg any) any

// workItem is the {callback, argument, future} triple spec.md §3
// describes.
type workItem struct {
	callback Callback
	arg      any
	future   *Future
}

// Future is a one-shot handle on which the submitter awaits the result
// of a work item. A Future must be joined by at most one caller; joining
// twice is undefined behavior per spec.md §4.6 (the second Join blocks
// forever, since nothing posts the result semaphore a second time).
type Future struct {
	resultAvailable *sem.Semaphore
	result          any
}

func newFuture() *Future {
	s, _ := sem.New(1)
	s.Down() //nolint:errcheck // freshly constructed with value 1; cannot block
	return &Future{resultAvailable: s}
}

// Join blocks until the work item's callback has run and returns its
// result.
func (f *Future) Join() any {
	f.resultAvailable.Down() //nolint:errcheck // binary semaphore, Down(1) never returns an error once posted
	return f.result
}

// workerRecord is a long-lived worker goroutine owned by the pool.
type workerRecord struct {
	id            int
	workAvailable *sem.Semaphore
	slot          atomic.Pointer[workItem]
	done          chan struct{}
}

func newWorkerRecord(id int) *workerRecord {
	s, _ := sem.New(1)
	s.Down() //nolint:errcheck
	return &workerRecord{id: id, workAvailable: s, done: make(chan struct{})}
}

// Pool is a fixed or elastic pool of worker goroutines dispatching
// Callback work items and returning Futures. The zero value is not
// usable; construct one with New.
type Pool struct {
	mu           sync.Mutex
	min, max     int
	workers      []*workerRecord
	states       []state
	liveWorkers  int
	availableSem *sem.Semaphore
	destroyed    bool
}

// New creates a pool. A fixed pool has min == max: exactly that many
// workers are spawned up front and the count never changes. An elastic
// pool has min < max: min workers are spawned up front, and the pool
// spawns additional workers on demand (never releasing them) up to max.
//
// Per spec.md §4.6's elastic-growth design, the availability semaphore
// starts at the pool's full eventual capacity (max), not at the number
// of workers alive right now (min) — the semaphore value and the live
// count are allowed to disagree transiently while the pool is still
// growing toward max; see the package-level worker loop and Execute for
// how that's reconciled.
func New(min, max int) (*Pool, cerr.Error) {
	if min <= 0 || max <= 0 || min > max {
		return nil, cerr.InvalidArgument("workerpool.New: requires 0 < min <= max")
	}

	availableSem, err := sem.New(max)
	if err != nil {
		return nil, err
	}

	p := &Pool{min: min, max: max, availableSem: availableSem}
	for range min {
		p.spawnWorkerLocked()
	}
	return p, nil
}

// NewFixed creates a fixed pool of exactly n workers.
func NewFixed(n int) (*Pool, cerr.Error) {
	return New(n, n)
}

func (p *Pool) isElastic() bool {
	return p.min != p.max
}

// spawnWorkerLocked must be called with p.mu held. It appends a new
// worker record in state available and starts its goroutine.
func (p *Pool) spawnWorkerLocked() *workerRecord {
	w := newWorkerRecord(p.liveWorkers)
	p.workers = append(p.workers, w)
	p.states = append(p.states, stateAvailable)
	p.liveWorkers++
	go p.workerLoop(w)
	return w
}

func (p *Pool) workerLoop(w *workerRecord) {
	for {
		w.workAvailable.Down() //nolint:errcheck
		item := w.slot.Load()
		if item == nil {
			close(w.done)
			return
		}
		w.slot.Store(nil)
		result := item.callback(item.arg)
		item.future.result = result
		item.future.resultAvailable.Up() //nolint:errcheck

		p.mu.Lock()
		p.states[w.id] = stateAvailable
		p.mu.Unlock()
		p.availableSem.Up() //nolint:errcheck
	}
}

// Execute submits a work item: it blocks on the availability semaphore
// (the pool's backpressure point), finds or spawns a worker, publishes
// the item, and returns a Future the caller can Join.
func (p *Pool) Execute(cb Callback, arg any) (*Future, cerr.Error) {
	if cb == nil {
		return nil, cerr.InvalidArgument("workerpool.Pool.Execute: callback must not be nil")
	}

	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return nil, cerr.InvalidArgument("workerpool.Pool.Execute: pool is destroyed")
	}
	p.mu.Unlock()

	future := newFuture()
	item := &workItem{callback: cb, arg: arg, future: future}

	if err := p.availableSem.Down(); err != nil {
		return nil, err
	}

	for {
		p.mu.Lock()
		chosenIdx := -1
		for i, s := range p.states {
			if s == stateAvailable {
				chosenIdx = i
				break
			}
		}
		if chosenIdx < 0 {
			if p.isElastic() && p.liveWorkers < p.max {
				p.spawnWorkerLocked()
				p.mu.Unlock()
				continue
			}
			p.mu.Unlock()
			return nil, cerr.Internal("workerpool.Pool.Execute: no worker available despite an acquired permit")
		}
		p.states[chosenIdx] = stateBusy
		w := p.workers[chosenIdx]
		p.mu.Unlock()

		w.slot.Store(item)
		w.workAvailable.Up() //nolint:errcheck
		return future, nil
	}
}

// LiveWorkers reports the number of worker goroutines currently spawned
// (between min and max for an elastic pool, always n for a fixed one).
func (p *Pool) LiveWorkers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.liveWorkers
}

// Stats is a point-in-time snapshot of worker occupancy.
type Stats struct {
	Min, Max    int
	LiveWorkers int
	BusyWorkers int
	Load        num.Percentage
}

// String renders a one-line human-readable summary, e.g.
// "3/4 workers busy (74.9%), 4/8 live".
func (s Stats) String() string {
	return fmt.Sprintf("%d/%d workers busy (%s), %d/%d live",
		s.BusyWorkers, s.LiveWorkers, s.Load, s.LiveWorkers, s.Max)
}

// Stats reports current worker occupancy. Intended for debug/registry
// introspection, not the hot path: it is O(liveWorkers).
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	busy := 0
	for _, s := range p.states {
		if s == stateBusy {
			busy++
		}
	}
	load := 0.0
	if p.liveWorkers > 0 {
		load = 100 * float64(busy) / float64(p.liveWorkers)
	}
	return Stats{
		Min:         p.min,
		Max:         p.max,
		LiveWorkers: p.liveWorkers,
		BusyWorkers: busy,
		Load:        num.NewPercentage(load),
	}
}

// Destroy drains the pool (waiting until every worker is idle), then
// signals every worker to exit and waits for its goroutine to finish.
// Submissions concurrent with Destroy are undefined behavior per
// spec.md §4.6.
func (p *Pool) Destroy() cerr.Error {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return cerr.InvalidArgument("workerpool.Pool.Destroy: already destroyed")
	}
	p.destroyed = true
	p.mu.Unlock()

	for range p.max {
		if err := p.availableSem.Down(); err != nil {
			return err
		}
	}

	p.mu.Lock()
	workers := append([]*workerRecord(nil), p.workers...)
	p.mu.Unlock()

	for _, w := range workers {
		w.slot.Store(nil)
		w.workAvailable.Up() //nolint:errcheck
	}
	for _, w := range workers {
		<-w.done
	}
	return nil
}

// Package seglist implements the segmented growable list spec.md §4.9
// describes: an indexed sequence of integers stored in fixed-capacity
// rows, with a row-pointer directory that doubles on exhaustion.
//
// Grounded on original_source/arraylist.c and arraylist.h. Per spec.md
// §5's resource-sharing note ("the variable arena is shared by all
// allocators it is passed to ... list directories"), a List may source its
// row storage from a shared mempool.Arena instead of the Go heap — rows
// hold only int64 values with no embedded pointers, so presenting an
// arena-backed []byte as a row is safe, unlike sortedmap's node graph
// (see that package's doc comment).
package seglist

import (
	"encoding/binary"

	cerr "github.com/coriolis-labs/concord/errs"
	"github.com/coriolis-labs/concord/mempool"
	"github.com/coriolis-labs/concord/rwlock"
)

// RowSize is the tunable number of elements per row (spec.md §3: "e.g.
// 128 per row").
const RowSize = 128

const elemSize = 8 // one int64 per element, little-endian

// List is an indexed, append-friendly sequence of int64 values.
type List struct {
	lock  *rwlock.RWLock // nil when unprotected
	arena *mempool.Arena // nil when rows are plain Go-heap slices
	rows  []row
	size  int64
}

type row struct {
	bytes []byte
	block mempool.Block // zero value when not arena-backed
}

// New creates an empty list backed by the Go heap.
func New(isProtected bool) (*List, cerr.Error) {
	return newList(isProtected, nil)
}

// NewFromArena creates an empty list whose rows are allocated from arena
// as they are needed. The caller retains ownership of arena; destroying
// the list releases its rows back to the arena but does not destroy the
// arena itself.
func NewFromArena(isProtected bool, arena *mempool.Arena) (*List, cerr.Error) {
	if arena == nil {
		return nil, cerr.InvalidArgument("seglist.NewFromArena: arena must not be nil")
	}
	return newList(isProtected, arena)
}

func newList(isProtected bool, arena *mempool.Arena) (*List, cerr.Error) {
	l := &List{arena: arena}
	if isProtected {
		l.lock = rwlock.New()
	}
	return l, nil
}

func (l *List) rlock() {
	if l.lock != nil {
		l.lock.AcquireReader()
	}
}

func (l *List) runlock() {
	if l.lock != nil {
		l.lock.ReleaseReader()
	}
}

func (l *List) wlock() {
	if l.lock != nil {
		l.lock.AcquireWriter()
	}
}

func (l *List) wunlock() {
	if l.lock != nil {
		l.lock.ReleaseWriter()
	}
}

// Size reports the number of logical elements in the list.
func (l *List) Size() int64 {
	l.rlock()
	defer l.runlock()
	return l.size
}

// Get returns the element at logical index i.
func (l *List) Get(i int64) (int64, cerr.Error) {
	l.rlock()
	defer l.runlock()

	if i < 0 || i >= l.size {
		return 0, cerr.InvalidArgument("seglist.List.Get: index out of range")
	}
	r := &l.rows[i/RowSize]
	return int64(binary.LittleEndian.Uint64(r.bytes[(i%RowSize)*elemSize:])), nil
}

// Set replaces the element at logical index i.
func (l *List) Set(i, value int64) cerr.Error {
	l.wlock()
	defer l.wunlock()

	if i < 0 || i >= l.size {
		return cerr.InvalidArgument("seglist.List.Set: index out of range")
	}
	r := &l.rows[i/RowSize]
	binary.LittleEndian.PutUint64(r.bytes[(i%RowSize)*elemSize:], uint64(value))
	return nil
}

// Append adds value at the end of the list, growing the row directory
// (doubling it) if every existing row is full.
func (l *List) Append(value int64) cerr.Error {
	l.wlock()
	defer l.wunlock()

	rowIdx := l.size / RowSize
	if rowIdx >= int64(len(l.rows)) {
		if err := l.addRow(); err != nil {
			return err
		}
	}
	r := &l.rows[rowIdx]
	binary.LittleEndian.PutUint64(r.bytes[(l.size%RowSize)*elemSize:], uint64(value))
	l.size++
	return nil
}

// addRow appends one more row to the directory. The directory itself is
// a Go slice, whose own append-driven capacity growth already doubles —
// realizing spec.md §4.9's "row-pointer directory doubles when
// exhausted" without a hand-rolled capacity dance.
func (l *List) addRow() cerr.Error {
	if l.arena == nil {
		l.rows = append(l.rows, row{bytes: make([]byte, RowSize*elemSize)})
		return nil
	}
	bytes, block, err := l.arena.Alloc(RowSize * elemSize)
	if err != nil {
		return err
	}
	l.rows = append(l.rows, row{bytes: bytes, block: block})
	return nil
}

// RemoveAt deletes the element at logical index i, shifting every
// subsequent element left by one. O(n), deliberately per spec.md §4.9's
// design target ("removal is deliberately expensive").
func (l *List) RemoveAt(i int64) cerr.Error {
	l.wlock()
	defer l.wunlock()

	if i < 0 || i >= l.size {
		return cerr.InvalidArgument("seglist.List.RemoveAt: index out of range")
	}
	for j := i; j < l.size-1; j++ {
		v := l.getUnlocked(j + 1)
		l.setUnlocked(j, v)
	}
	l.size--
	return nil
}

func (l *List) getUnlocked(i int64) int64 {
	r := &l.rows[i/RowSize]
	return int64(binary.LittleEndian.Uint64(r.bytes[(i%RowSize)*elemSize:]))
}

func (l *List) setUnlocked(i, value int64) {
	r := &l.rows[i/RowSize]
	binary.LittleEndian.PutUint64(r.bytes[(i%RowSize)*elemSize:], uint64(value))
}

// Clear empties the list, releasing arena-backed rows (if any) back to
// their arena.
func (l *List) Clear() cerr.Error {
	l.wlock()
	defer l.wunlock()

	if l.arena != nil {
		for _, r := range l.rows {
			if err := l.arena.Free(r.block); err != nil {
				return err
			}
		}
	}
	l.rows = nil
	l.size = 0
	return nil
}

// IndexOf returns the logical index of the first element equal to value,
// or -1 if absent. O(n) linear scan, per spec.md §4.9.
func (l *List) IndexOf(value int64) int64 {
	l.rlock()
	defer l.runlock()

	for i := int64(0); i < l.size; i++ {
		if l.getUnlocked(i) == value {
			return i
		}
	}
	return -1
}

// ToArray copies every logical element out into a freshly allocated
// slice, in index order.
func (l *List) ToArray() []int64 {
	l.rlock()
	defer l.runlock()

	out := make([]int64, l.size)
	for i := int64(0); i < l.size; i++ {
		out[i] = l.getUnlocked(i)
	}
	return out
}

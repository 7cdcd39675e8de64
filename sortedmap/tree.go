// Package sortedmap implements the red/black tree ordered map spec.md
// §4.8 describes: an int64-keyed mapping with strictly ascending in-order
// traversal, concurrency via a per-map reader/writer lock (writers for Put
// and Delete, readers for Get), and iterative insert/delete rebalancing.
//
// Grounded on original_source/treemap.c and treemap.h. Per spec.md §9,
// the delete path's double-black rebalancing — left as a "TODO" comment
// in the source — is implemented here in full: red-sibling rotation,
// black-sibling-with-two-black-children recolor-and-ascend, and
// black-sibling-with-a-red-child terminal rotation.
//
// Node topology is kept as ordinary Go struct pointers rather than
// spans inside a mempool.Arena: spec.md §9's own design note says to
// prefer typed handles over raw pointer arithmetic, and a tree's parent/
// left/right pointers embedded in a manually managed byte arena would
// need exactly the unsafe, GC-unfriendly reinterpretation that note warns
// against. The arena's "client" role (spec.md §2) is instead realized by
// seglist, whose row contents are plain integers with no embedded
// pointers — a safe fit for arena-backed storage.
package sortedmap

import (
	cerr "github.com/coriolis-labs/concord/errs"
	"github.com/coriolis-labs/concord/rwlock"
)

type color bool

const (
	red   color = true
	black color = false
)

type node struct {
	color  color
	parent *node
	left   *node
	right  *node
	key    int64
	value  int64
}

// Comparator orders two keys the way spec.md §4.8's optional comparator
// override does. The default is the natural ordering of int64.
type Comparator func(a, b int64) int

func defaultComparator(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Tree is a red/black tree mapping int64 keys to int64 values, guarded by
// a reader/writer lock.
type Tree struct {
	lock       *rwlock.RWLock // nil when the tree is unprotected
	root       *node
	size       int
	comparator Comparator
}

// New creates an empty tree. When isProtected is true, Put/Get/Delete
// acquire the tree's reader/writer lock; otherwise the caller warrants
// single-threaded use.
func New(isProtected bool) (*Tree, cerr.Error) {
	t := &Tree{comparator: defaultComparator}
	if isProtected {
		t.lock = rwlock.New()
	}
	return t, nil
}

// OverrideComparator replaces the tree's key ordering. It is the caller's
// responsibility to only call this before the tree holds any entries;
// changing comparators on a populated tree invalidates the red/black
// invariants.
func (t *Tree) OverrideComparator(cmp Comparator) cerr.Error {
	if cmp == nil {
		return cerr.InvalidArgument("sortedmap.Tree.OverrideComparator: comparator must not be nil")
	}
	t.comparator = cmp
	return nil
}

func (t *Tree) rlock() {
	if t.lock != nil {
		t.lock.AcquireReader()
	}
}

func (t *Tree) runlock() {
	if t.lock != nil {
		t.lock.ReleaseReader()
	}
}

func (t *Tree) wlock() {
	if t.lock != nil {
		t.lock.AcquireWriter()
	}
}

func (t *Tree) wunlock() {
	if t.lock != nil {
		t.lock.ReleaseWriter()
	}
}

// Size reports the number of entries in the tree.
func (t *Tree) Size() int {
	t.rlock()
	defer t.runlock()
	return t.size
}

// Get returns the value for key and reports whether it was present.
func (t *Tree) Get(key int64) (int64, bool) {
	t.rlock()
	defer t.runlock()

	n := t.find(key)
	if n == nil {
		return 0, false
	}
	return n.value, true
}

func (t *Tree) find(key int64) *node {
	cur := t.root
	for cur != nil {
		switch c := t.comparator(key, cur.key); {
		case c < 0:
			cur = cur.left
		case c > 0:
			cur = cur.right
		default:
			return cur
		}
	}
	return nil
}

// Put inserts key/value, or replaces the value of an existing key
// (spec.md §3's invariant (e): keys are unique).
func (t *Tree) Put(key, value int64) {
	t.wlock()
	defer t.wunlock()

	if t.root == nil {
		t.root = &node{color: black, key: key, value: value}
		t.size++
		return
	}

	cur := t.root
	for {
		switch c := t.comparator(key, cur.key); {
		case c == 0:
			cur.value = value
			return
		case c < 0:
			if cur.left == nil {
				cur.left = &node{color: red, parent: cur, key: key, value: value}
				t.insertFixup(cur.left)
				t.size++
				return
			}
			cur = cur.left
		default:
			if cur.right == nil {
				cur.right = &node{color: red, parent: cur, key: key, value: value}
				t.insertFixup(cur.right)
				t.size++
				return
			}
			cur = cur.right
		}
	}
}

// Delete removes key if present. It is not an error to delete a missing
// key.
func (t *Tree) Delete(key int64) {
	t.wlock()
	defer t.wunlock()

	n := t.find(key)
	if n == nil {
		return
	}
	t.deleteNode(n)
	t.size--
}

// Destroy drops the tree's contents. It is a no-op beyond clearing state
// since Go's garbage collector reclaims the node graph.
func (t *Tree) Destroy() {
	t.wlock()
	defer t.wunlock()
	t.root = nil
	t.size = 0
}

// InOrder calls visit for every key/value pair in strictly ascending key
// order. visit returning false stops the traversal early.
func (t *Tree) InOrder(visit func(key, value int64) bool) {
	t.rlock()
	defer t.runlock()

	// Explicit-stack in-order walk: no recursion (spec.md §4.8's "iterative,
	// no recursion in the hot path" mandate), and unlike a Morris traversal
	// it never mutates node pointers, so it is safe to run concurrently
	// with other readers holding the same reader-lock slot.
	stack := make([]*node, 0, 32)
	cur := t.root
	for cur != nil || len(stack) > 0 {
		for cur != nil {
			stack = append(stack, cur)
			cur = cur.left
		}
		cur = stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !visit(cur.key, cur.value) {
			return
		}
		cur = cur.right
	}
}

package sortedmap

import (
	"fmt"

	"github.com/coriolis-labs/concord/strutils/ansi"
)

// CheckInvariants walks the tree and reports the first red/black
// invariant violation it finds, with the contract spec.md §4.8 states:
// it returns success (ok == true) iff the tree satisfies every invariant
// in spec.md §3 — root black, no red-red, uniform black-depth, strictly
// ascending in-order keys.
func (t *Tree) CheckInvariants() (ok bool, violation string) {
	t.rlock()
	defer t.runlock()

	if t.root != nil && t.root.color != black {
		return false, "root is not black"
	}

	if !checkNoRedRed(t.root) {
		return false, "a red node has a red child"
	}

	if _, ok := blackDepth(t.root); !ok {
		return false, "black-node count differs across root-to-leaf paths"
	}

	var prevKey int64
	seenAny := false
	ascending := true
	var walk func(n *node)
	walk = func(n *node) {
		if n == nil || !ascending {
			return
		}
		walk(n.left)
		if !ascending {
			return
		}
		if seenAny && n.key <= prevKey {
			ascending = false
			return
		}
		prevKey, seenAny = n.key, true
		walk(n.right)
	}
	walk(t.root)
	if !ascending {
		return false, "in-order keys are not strictly ascending"
	}

	return true, ""
}

func checkNoRedRed(n *node) bool {
	if n == nil {
		return true
	}
	if n.color == red {
		if isRed(n.left) || isRed(n.right) {
			return false
		}
	}
	return checkNoRedRed(n.left) && checkNoRedRed(n.right)
}

// blackDepth returns the number of black nodes on every root-to-nil path
// under n, and whether that count is uniform across all such paths.
func blackDepth(n *node) (int, bool) {
	if n == nil {
		return 1, true
	}
	left, leftOK := blackDepth(n.left)
	right, rightOK := blackDepth(n.right)
	if !leftOK || !rightOK || left != right {
		return 0, false
	}
	depth := left
	if n.color == black {
		depth++
	}
	return depth, true
}

// String renders a compact, parenthesized debug view of the tree's shape
// for test failure messages: key:color pairs, e.g. "5:b(3:r,8:r)".
func (t *Tree) String() string {
	t.rlock()
	defer t.runlock()
	return dumpNode(t.root)
}

func dumpNode(n *node) string {
	if n == nil {
		return "."
	}
	c := "b"
	if n.color == red {
		c = "r"
	}
	if n.left == nil && n.right == nil {
		return fmt.Sprintf("%d:%s", n.key, c)
	}
	return fmt.Sprintf("%d:%s(%s,%s)", n.key, c, dumpNode(n.left), dumpNode(n.right))
}

// DumpANSI is String with red nodes highlighted, for CLI-facing debug
// tools that render to a terminal.
func (t *Tree) DumpANSI() string {
	t.rlock()
	defer t.runlock()
	return dumpNodeANSI(t.root)
}

func dumpNodeANSI(n *node) string {
	if n == nil {
		return "."
	}
	label := fmt.Sprintf("%d:b", n.key)
	if n.color == red {
		label = ansi.WithANSI(fmt.Sprintf("%d:r", n.key), ansi.BrightRed)
	}
	if n.left == nil && n.right == nil {
		return label
	}
	return fmt.Sprintf("%s(%s,%s)", label, dumpNodeANSI(n.left), dumpNodeANSI(n.right))
}

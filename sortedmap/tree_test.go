package sortedmap_test

import (
	"math/rand"
	"testing"

	expect "github.com/coriolis-labs/concord/internal/expect"
	"github.com/coriolis-labs/concord/sortedmap"
)

func TestPutGetReplace(t *testing.T) {
	tree, err := sortedmap.New(false)
	expect.NoError(t, err)

	tree.Put(5, 1)
	v, ok := tree.Get(5)
	expect.True(t, ok)
	expect.Equal(t, v, int64(1))

	tree.Put(5, 2)
	v, ok = tree.Get(5)
	expect.True(t, ok)
	expect.Equal(t, v, int64(2))
	expect.Equal(t, tree.Size(), 1)
}

func TestGetMissing(t *testing.T) {
	tree, err := sortedmap.New(false)
	expect.NoError(t, err)
	_, ok := tree.Get(42)
	expect.False(t, ok)
}

func TestInOrderAscending(t *testing.T) {
	tree, err := sortedmap.New(false)
	expect.NoError(t, err)

	keys := []int64{50, 20, 70, 10, 30, 60, 80, 5, 15}
	for _, k := range keys {
		tree.Put(k, k*10)
	}

	var seen []int64
	tree.InOrder(func(key, value int64) bool {
		expect.Equal(t, value, key*10)
		seen = append(seen, key)
		return true
	})

	for i := 1; i < len(seen); i++ {
		expect.True(t, seen[i] > seen[i-1])
	}
	expect.Equal(t, len(seen), len(keys))
}

func TestInvariantsHoldAfterRandomOps(t *testing.T) {
	tree, err := sortedmap.New(false)
	expect.NoError(t, err)

	rng := rand.New(rand.NewSource(1))
	present := map[int64]bool{}

	for range 2000 {
		k := rng.Int63n(500)
		if rng.Intn(2) == 0 {
			tree.Put(k, k)
			present[k] = true
		} else {
			tree.Delete(k)
			delete(present, k)
		}
		ok, violation := tree.CheckInvariants()
		expect.True(t, ok, violation)
	}

	expect.Equal(t, tree.Size(), len(present))
	for k := range present {
		v, found := tree.Get(k)
		expect.True(t, found)
		expect.Equal(t, v, k)
	}
}

func TestDeleteMissingIsNoop(t *testing.T) {
	tree, err := sortedmap.New(false)
	expect.NoError(t, err)
	tree.Put(1, 1)
	tree.Delete(999)
	expect.Equal(t, tree.Size(), 1)
}

func TestDeleteAllEmptiesTree(t *testing.T) {
	tree, err := sortedmap.New(false)
	expect.NoError(t, err)

	for k := int64(0); k < 100; k++ {
		tree.Put(k, k)
	}
	for k := int64(0); k < 100; k++ {
		tree.Delete(k)
		ok, violation := tree.CheckInvariants()
		expect.True(t, ok, violation)
	}
	expect.Equal(t, tree.Size(), 0)
}

func TestDumpANSIHighlightsRedNodes(t *testing.T) {
	tree, err := sortedmap.New(false)
	expect.NoError(t, err)

	for _, k := range []int64{10, 5, 20, 1, 30} {
		tree.Put(k, k)
	}

	plain := tree.String()
	colored := tree.DumpANSI()
	expect.True(t, len(colored) >= len(plain))
}

func TestProtectedConcurrentAccess(t *testing.T) {
	tree, err := sortedmap.New(true)
	expect.NoError(t, err)

	done := make(chan struct{})
	for i := range 8 {
		go func(base int64) {
			defer func() { done <- struct{}{} }()
			for j := int64(0); j < 50; j++ {
				tree.Put(base*1000+j, j)
			}
		}(int64(i))
	}
	for range 8 {
		<-done
	}
	expect.Equal(t, tree.Size(), 400)
	ok, violation := tree.CheckInvariants()
	expect.True(t, ok, violation)
}

// Package mempool implements the fixed-size object pool and the
// variable-size coalescing arena spec.md §4.3–§4.4 describe.
//
// Grounded on original_source/mempool.c and mempool.h. Per spec.md §9's
// redesign note, routing free() by an in-band back-pointer (the C source's
// "first word of every allocation is a pointer to the owning pool" trick)
// is replaced by typed, opaque handles: Handle and Block each carry the
// identity of the pool or arena they came from, so Free takes an
// explicit (pool, handle) pair instead of reading a raw pointer out of the
// block. The magic-marker corruption check from the source is kept as a
// belt-and-suspenders validation on top of that type safety.
package mempool

import "encoding/binary"

const wordSize = 8

func readWord(block []byte, offset int64) int64 {
	return int64(binary.LittleEndian.Uint64(block[offset : offset+wordSize]))
}

func writeWord(block []byte, offset int64, v int64) {
	binary.LittleEndian.PutUint64(block[offset:offset+wordSize], uint64(v))
}

const (
	fixedMagic    uint32 = 0xdecaf123
	variableMagic uint32 = 0xc0ffee12
)

// nilOffset marks the absence of a link in an intrusive list built out of
// byte-slice offsets (offset 0 is a legitimate cell, so -1 stands for nil).
const nilOffset int64 = -1

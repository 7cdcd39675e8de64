package mempool

import (
	"fmt"
	"sync"
	"sync/atomic"

	cerr "github.com/coriolis-labs/concord/errs"
	"github.com/coriolis-labs/concord/num"
	"github.com/coriolis-labs/concord/strutils"
)

var fixedPoolIDs atomic.Uint64

// Handle identifies a cell previously returned by FixedPool.Alloc. It
// carries the owning pool's identity so Free can validate membership
// without reading a back-pointer out of the cell itself.
type Handle struct {
	poolID int64
	offset int64
}

func (h Handle) valid() bool { return h.poolID != 0 }

// FixedPool is a pool of fixed-size cells backed by one contiguous block
// and an intrusive singly-linked free list. Alloc and Free are O(1) once
// the pool is constructed; construction is O(numCells).
type FixedPool struct {
	mu         *sync.Mutex // nil when the pool is unprotected
	block      []byte
	owned      bool // true if this pool allocated block itself (vs createFromBlock)
	cellSize   int64
	stride     int64 // cellSize + header
	numCells   int
	freeHead   int64
	id         int64
	magic      uint32
	pinCount   int
	destroyed  bool
}

// header layout of a cell: word 0 holds either the next free offset (cell
// on the free list) or the pool's magic constant (cell handed out, used to
// cross-check the Handle at Free time).
const fixedHeaderSize = wordSize

// Create allocates an owned block sized to hold numCells cells of
// cellSize bytes each and links them into a free list. cellSize and
// numCells must both be positive.
func Create(cellSize int64, numCells int, isProtected bool) (*FixedPool, cerr.Error) {
	if cellSize <= 0 || numCells <= 0 {
		return nil, cerr.InvalidArgument("mempool.Create: cellSize and numCells must be > 0")
	}
	stride := cellSize + fixedHeaderSize
	block := make([]byte, stride*int64(numCells))
	return newFixedPool(block, cellSize, numCells, isProtected, true)
}

// CreateFromBlock is Create, except the caller supplies the backing block
// and retains ownership of its lifetime; Destroy will not attempt to
// reclaim it.
func CreateFromBlock(cellSize int64, numCells int, isProtected bool, block []byte) (*FixedPool, cerr.Error) {
	if cellSize <= 0 || numCells <= 0 {
		return nil, cerr.InvalidArgument("mempool.CreateFromBlock: cellSize and numCells must be > 0")
	}
	stride := cellSize + fixedHeaderSize
	if int64(len(block)) < stride*int64(numCells) {
		return nil, cerr.InvalidArgument("mempool.CreateFromBlock: block too small for cellSize*numCells")
	}
	return newFixedPool(block, cellSize, numCells, isProtected, false)
}

func newFixedPool(block []byte, cellSize int64, numCells int, isProtected, owned bool) (*FixedPool, cerr.Error) {
	stride := cellSize + fixedHeaderSize
	p := &FixedPool{
		block:    block,
		owned:    owned,
		cellSize: cellSize,
		stride:   stride,
		numCells: numCells,
		id:       int64(fixedPoolIDs.Add(1)),
		magic:    fixedMagic,
	}
	if isProtected {
		p.mu = &sync.Mutex{}
	}

	// Link every cell into the free list upfront so alloc/free are O(1)
	// from the first call, per spec.md §4.3.
	for i := range numCells - 1 {
		offset := int64(i) * stride
		writeWord(p.block, offset, offset+stride)
	}
	lastOffset := int64(numCells-1) * stride
	writeWord(p.block, lastOffset, nilOffset)
	p.freeHead = 0
	return p, nil
}

func (p *FixedPool) lock() {
	if p.mu != nil {
		p.mu.Lock()
	}
}

func (p *FixedPool) unlock() {
	if p.mu != nil {
		p.mu.Unlock()
	}
}

// Alloc pops a cell off the free list. It returns an InvalidArgument error
// if the pool is destroyed and a ResourceExhausted error if the free list
// is empty.
func (p *FixedPool) Alloc() ([]byte, Handle, cerr.Error) {
	p.lock()
	defer p.unlock()

	if p.destroyed {
		return nil, Handle{}, cerr.InvalidArgument("mempool.FixedPool.Alloc: pool is destroyed")
	}
	if p.freeHead == nilOffset {
		return nil, Handle{}, cerr.ResourceExhausted("mempool.FixedPool.Alloc: free list exhausted")
	}

	offset := p.freeHead
	p.freeHead = readWord(p.block, offset)
	writeWord(p.block, offset, int64(p.magic))

	cellStart := offset + fixedHeaderSize
	return p.block[cellStart : cellStart+p.cellSize : cellStart+p.cellSize], Handle{poolID: p.id, offset: offset}, nil
}

// Free returns a cell to the pool's free list. The handle must have come
// from this exact pool's Alloc; a mismatched or corrupted handle is
// reported rather than silently accepted, which is a deliberate departure
// from spec.md §4.3's back-pointer routing (see the package doc comment).
func (p *FixedPool) Free(h Handle) cerr.Error {
	if !h.valid() {
		return cerr.InvalidArgument("mempool.FixedPool.Free: zero handle")
	}

	p.lock()
	defer p.unlock()

	if p.destroyed {
		return cerr.InvalidArgument("mempool.FixedPool.Free: pool is destroyed")
	}
	if h.poolID != p.id {
		return cerr.Corruption("mempool.FixedPool.Free: handle belongs to a different pool")
	}
	if h.offset < 0 || h.offset >= int64(p.numCells)*p.stride || h.offset%p.stride != 0 {
		return cerr.Corruption("mempool.FixedPool.Free: handle offset out of range")
	}
	if uint32(readWord(p.block, h.offset)) != p.magic {
		return cerr.Corruption("mempool.FixedPool.Free: cell header does not match pool magic")
	}

	writeWord(p.block, h.offset, p.freeHead)
	p.freeHead = h.offset
	return nil
}

// Destroy invalidates the pool. If the pool owns its block (created via
// Create, not CreateFromBlock) the block is released for garbage
// collection; otherwise the caller retains ownership.
func (p *FixedPool) Destroy() cerr.Error {
	p.lock()
	defer p.unlock()

	if p.destroyed {
		return cerr.InvalidArgument("mempool.FixedPool.Destroy: already destroyed")
	}
	p.destroyed = true
	p.magic = 0
	if p.owned {
		p.block = nil
	}
	return nil
}

// NumCells reports the pool's fixed capacity.
func (p *FixedPool) NumCells() int { return p.numCells }

// FixedPoolStats is a point-in-time introspection snapshot.
type FixedPoolStats struct {
	NumCells   int
	FreeCells  int
	LoadFactor num.Percentage
	TotalBytes int64
}

// String renders a one-line human-readable summary, e.g.
// "3/8 cells used (37.6%), 2 KiB total".
func (s FixedPoolStats) String() string {
	return fmt.Sprintf("%d/%d cells used (%s), %s total",
		s.NumCells-s.FreeCells, s.NumCells, s.LoadFactor, strutils.FormatByteSize(s.TotalBytes))
}

// Stats walks the free list to report current occupancy. Intended for
// debug/registry introspection, not the hot path: it is O(numCells).
func (p *FixedPool) Stats() FixedPoolStats {
	p.lock()
	defer p.unlock()

	free := 0
	for offset := p.freeHead; offset != nilOffset; offset = readWord(p.block, offset) {
		free++
	}
	used := p.numCells - free
	load := 0.0
	if p.numCells > 0 {
		load = 100 * float64(used) / float64(p.numCells)
	}
	return FixedPoolStats{
		NumCells:   p.numCells,
		FreeCells:  free,
		LoadFactor: num.NewPercentage(load),
		TotalBytes: p.stride * int64(p.numCells),
	}
}

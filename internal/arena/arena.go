// Package arena implements the Recorder's bump allocator: a growing chain
// of fixed-size blocks that normalized create-infos are copied into, freed
// as one unit when the owning Recorder is torn down (spec §9 "Custom arena
// allocator"). Capture data lives entirely in one process's heap with no
// concurrent free, so a single growing block chain is enough; there is no
// shared-memory boundary to route allocations across, and the only
// bookkeeping needed is the allocation/byte counters spec §3 asks the
// Recorder's lifecycle to expose.
package arena

import "sync/atomic"

// DefaultBlockSize is a page-friendly size for a heap-backed block chain.
const DefaultBlockSize = 64 * 1024

// Arena is a single-writer bump allocator. It is not safe for concurrent
// Alloc calls; the Recorder serializes all mutation on its recording
// worker (spec §4.2 "Concurrency").
type Arena struct {
	blockSize int
	blocks    [][]byte
	cur       []byte

	allocated uint64
	allocs    uint64
}

// New creates an arena whose blocks are blockSize bytes; DefaultBlockSize
// is used if blockSize <= 0.
func New(blockSize int) *Arena {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	return &Arena{blockSize: blockSize}
}

func (a *Arena) newBlock(want int) []byte {
	size := a.blockSize
	if want > size {
		size = want
	}
	block := make([]byte, 0, size)
	a.blocks = append(a.blocks, block)
	return block
}

// AllocBytes reserves n zeroed bytes inside the arena and returns a slice
// over them. The slice is only valid for the arena's lifetime.
func (a *Arena) AllocBytes(n int) []byte {
	if n == 0 {
		return nil
	}
	if cap(a.cur)-len(a.cur) < n {
		a.cur = a.newBlock(n)
	}
	start := len(a.cur)
	a.cur = a.cur[:start+n]
	atomic.AddUint64(&a.allocated, uint64(n))
	atomic.AddUint64(&a.allocs, 1)
	return a.cur[start : start+n : start+n]
}

// CopyBytes deep-copies src into the arena, returning the arena's copy.
// This is how the Recorder severs pointer identity from a caller's
// create-info (spec §3 "Normalized create-info") for raw byte payloads
// such as SPIR-V-as-bytes or driver-opaque shader identifiers.
func (a *Arena) CopyBytes(src []byte) []byte {
	if len(src) == 0 {
		return nil
	}
	dst := a.AllocBytes(len(src))
	copy(dst, src)
	return dst
}

// CopyString deep-copies s into the arena and returns an arena-backed
// string (Go strings are immutable, so this mainly exists to account the
// bytes against the arena's stats rather than to defeat aliasing).
func (a *Arena) CopyString(s string) string {
	if s == "" {
		return ""
	}
	raw := a.AllocBytes(len(s))
	copy(raw, s)
	return string(raw)
}

// Stats reports arena utilization.
type Stats struct {
	Blocks    int
	Allocated uint64
	Allocs    uint64
}

func (a *Arena) Stats() Stats {
	return Stats{
		Blocks:    len(a.blocks),
		Allocated: atomic.LoadUint64(&a.allocated),
		Allocs:    atomic.LoadUint64(&a.allocs),
	}
}

// Release drops every block, freeing the arena's memory as one unit
// (spec §3 "Lifecycles" — released as one).
func (a *Arena) Release() {
	a.blocks = nil
	a.cur = nil
	atomic.StoreUint64(&a.allocated, 0)
	atomic.StoreUint64(&a.allocs, 0)
}

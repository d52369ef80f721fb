package sharedblock

import (
	"sync/atomic"
	"unsafe"

	"github.com/nmxmxh/fossilize/internal/errutil"
	"github.com/nmxmxh/fossilize/internal/model"
)

// VersionCookie identifies a region as a valid SharedControlBlock (spec
// §6 "version_cookie: u32 = 0x19bcde1d").
const VersionCookie uint32 = 0x19bcde1d

// Fixed byte offsets of the SharedControlBlock header (spec §6). Every
// field is a little-endian u32 accessed with 32-bit atomics; the region
// must therefore be at least HeaderSize bytes before the ring buffer
// payload begins.
const (
	offVersionCookie = 0
	offFutexLock     = 4

	// Per-pipeline-kind counters: successes, skips, caches, parses,
	// failures (spec §6 "Atomic counters: successes, skips, caches,
	// parses, failures per pipeline kind"). Three kinds: graphics,
	// compute, raytracing, in model.PipelineTags order.
	offCountersBase = 8
	countersPerKind = 5
	counterKinds    = 3
	countersSize    = 4 * countersPerKind * counterKinds // bytes

	offModulesTotal            = offCountersBase + countersSize
	offModulesCompleted        = offModulesTotal + 4
	offModulesBanned           = offModulesCompleted + 4
	offModulesValidationFailed = offModulesBanned + 4

	offProcessDeathsClean = offModulesValidationFailed + 4
	offProcessDeathsDirty = offProcessDeathsClean + 4

	offStaticTotalsBase = offProcessDeathsDirty + 4 // 3 u32, one per pipeline kind
	staticTotalsSize    = 4 * counterKinds

	offProgressStarted  = offStaticTotalsBase + staticTotalsSize
	offProgressComplete = offProgressStarted + 4

	offWriteCount  = offProgressComplete + 4
	offReadCount   = offWriteCount + 4
	offReadOffset  = offReadCount + 4
	offWriteOffset = offReadOffset + 4

	offRingBufferOffset = offWriteOffset + 4
	offRingBufferSize   = offRingBufferOffset + 4

	// HeaderSize is the fixed portion of the region; the ring buffer's
	// payload bytes begin at HeaderSize (spec §6 "Ring:
	// ring_buffer_offset, ring_buffer_size").
	HeaderSize = offRingBufferSize + 4
)

// counterKind maps a pipeline tag to its slot within the per-kind counter
// block (spec §4.7 "graphics, compute, raytracing partitioned
// independently").
func counterKind(tag model.Tag) (int, bool) {
	for i, t := range model.PipelineTags {
		if t == tag {
			return i, true
		}
	}
	return 0, false
}

// CounterField selects one of the five per-pipeline-kind counters.
type CounterField int

const (
	CounterSuccesses CounterField = iota
	CounterSkips
	CounterCaches
	CounterParses
	CounterFailures
)

// Block wraps a Provider with structured, atomic access to the
// SharedControlBlock fields (spec §6).
type Block struct {
	p *Provider
}

// Init formats a freshly-mapped region as a SharedControlBlock: writes
// the version cookie, ring geometry, and zeroes every counter. ringSize
// must be a power of two (spec §6 "ring size must be a power of two").
func Init(p *Provider, ringSize uint32) (*Block, error) {
	if ringSize == 0 || ringSize&(ringSize-1) != 0 {
		return nil, &errutil.CapacityError{Resource: "ring size must be a power of two"}
	}
	if uint32(HeaderSize)+ringSize*messageSize > p.Size() {
		return nil, &errutil.CapacityError{Resource: "shared region too small for requested ring size"}
	}
	b := &Block{p: p}
	for i := range p.Bytes()[:HeaderSize] {
		p.Bytes()[i] = 0
	}
	b.store32(offVersionCookie, VersionCookie)
	b.store32(offRingBufferOffset, uint32(HeaderSize))
	b.store32(offRingBufferSize, ringSize)
	return b, nil
}

// Attach wraps an already-initialized region (a worker mapping the
// master's SharedControlBlock) and validates the version cookie.
func Attach(p *Provider) (*Block, error) {
	b := &Block{p: p}
	if b.load32(offVersionCookie) != VersionCookie {
		return nil, &errutil.IntegrityError{Reason: "shared control block version cookie mismatch"}
	}
	return b, nil
}

func (b *Block) ptr32(offset uint32) *uint32 {
	return (*uint32)(unsafe.Pointer(&b.p.Bytes()[offset]))
}

func (b *Block) load32(offset uint32) uint32       { return atomic.LoadUint32(b.ptr32(offset)) }
func (b *Block) store32(offset uint32, v uint32)    { atomic.StoreUint32(b.ptr32(offset), v) }
func (b *Block) add32(offset uint32, d uint32) uint32 { return atomic.AddUint32(b.ptr32(offset), d) }

// AddCounter increments one of a pipeline kind's five counters and
// returns the new value. Go's atomics are sequentially consistent, which
// is stronger than the relaxed ordering the reader needs for these
// advisory counters (spec §5 "relaxed memory order is used for the
// numeric counters").
func (b *Block) AddCounter(tag model.Tag, field CounterField, delta uint32) (uint32, error) {
	kind, ok := counterKind(tag)
	if !ok {
		return 0, &errutil.CapacityError{Resource: "not a pipeline tag: " + tag.String()}
	}
	offset := uint32(offCountersBase + 4*(kind*countersPerKind+int(field)))
	return b.add32(offset, delta), nil
}

// Counter reads one of a pipeline kind's five counters.
func (b *Block) Counter(tag model.Tag, field CounterField) (uint32, error) {
	kind, ok := counterKind(tag)
	if !ok {
		return 0, &errutil.CapacityError{Resource: "not a pipeline tag: " + tag.String()}
	}
	offset := uint32(offCountersBase + 4*(kind*countersPerKind+int(field)))
	return b.load32(offset), nil
}

// StaticTotal returns the archive-derived total index count for a
// pipeline kind, and SetStaticTotal records it (spec §6 "static totals
// per pipeline kind").
func (b *Block) SetStaticTotal(tag model.Tag, total uint32) error {
	kind, ok := counterKind(tag)
	if !ok {
		return &errutil.CapacityError{Resource: "not a pipeline tag: " + tag.String()}
	}
	b.store32(uint32(offStaticTotalsBase+4*kind), total)
	return nil
}

func (b *Block) StaticTotal(tag model.Tag) (uint32, error) {
	kind, ok := counterKind(tag)
	if !ok {
		return 0, &errutil.CapacityError{Resource: "not a pipeline tag: " + tag.String()}
	}
	return b.load32(uint32(offStaticTotalsBase + 4*kind)), nil
}

func (b *Block) AddModulesTotal(delta uint32) uint32            { return b.add32(offModulesTotal, delta) }
func (b *Block) AddModulesCompleted(delta uint32) uint32        { return b.add32(offModulesCompleted, delta) }
func (b *Block) AddModulesBanned(delta uint32) uint32           { return b.add32(offModulesBanned, delta) }
func (b *Block) AddModulesValidationFailed(delta uint32) uint32 { return b.add32(offModulesValidationFailed, delta) }
func (b *Block) ModulesTotal() uint32                           { return b.load32(offModulesTotal) }
func (b *Block) ModulesCompleted() uint32                       { return b.load32(offModulesCompleted) }
func (b *Block) ModulesBanned() uint32                          { return b.load32(offModulesBanned) }
func (b *Block) ModulesValidationFailed() uint32                { return b.load32(offModulesValidationFailed) }

func (b *Block) AddProcessDeathClean() uint32 { return b.add32(offProcessDeathsClean, 1) }
func (b *Block) AddProcessDeathDirty() uint32 { return b.add32(offProcessDeathsDirty, 1) }
func (b *Block) ProcessDeathsClean() uint32   { return b.load32(offProcessDeathsClean) }
func (b *Block) ProcessDeathsDirty() uint32   { return b.load32(offProcessDeathsDirty) }

// SetProgressStarted and SetProgressComplete use Go's sequentially
// consistent atomics, which satisfy the release/acquire pairing spec §5
// requires between these two flags.
func (b *Block) SetProgressStarted(v bool)  { b.store32(offProgressStarted, boolToU32(v)) }
func (b *Block) ProgressStarted() bool      { return b.load32(offProgressStarted) != 0 }
func (b *Block) SetProgressComplete(v bool) { b.store32(offProgressComplete, boolToU32(v)) }
func (b *Block) ProgressComplete() bool     { return b.load32(offProgressComplete) != 0 }

func boolToU32(v bool) uint32 {
	if v {
		return 1
	}
	return 0
}

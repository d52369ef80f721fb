package sharedblock

import (
	"runtime"
	"sync/atomic"

	"github.com/nmxmxh/fossilize/internal/errutil"
)

// messageSize is the fixed size of one ring message: 64 bytes of textual
// payload (spec §3 "a ring buffer of fixed-size (64-byte) textual
// messages").
const messageSize = 64

const (
	lockUnlocked int32 = 0
	lockHeld     int32 = 1
)

// Lock acquires the cross-process mutex guarding the ring buffer: a
// spin-until-CAS-succeeds loop over the futex_lock word living in shared
// memory, so it works across process boundaries the way a named mutex or
// futex would (spec §6 "futex_lock: i32", §5 "a small user-space
// futex-based lock on one platform, a named mutex on the other"). Lock
// ordering is acquire mutex → read/write counters and buffer → release
// mutex; no other lock may be taken while holding it (spec §5).
func (b *Block) Lock() {
	lockPtr := b.ptr32(offFutexLock)
	spins := 0
	for !atomic.CompareAndSwapUint32((*uint32)(lockPtr), uint32(lockUnlocked), uint32(lockHeld)) {
		spins++
		if spins > 64 {
			runtime.Gosched()
			spins = 0
		}
	}
}

// Unlock releases the ring buffer's cross-process mutex.
func (b *Block) Unlock() {
	atomic.StoreUint32(b.ptr32(offFutexLock), uint32(lockUnlocked))
}

// ringCapacity returns the ring's message capacity (a power of two).
func (b *Block) ringCapacity() uint32 { return b.load32(offRingBufferSize) }

// Available reports write_count − read_count (spec §4 invariant 4,
// §6 "Available = write_count − read_count").
func (b *Block) Available() uint32 {
	return b.load32(offWriteCount) - b.load32(offReadCount)
}

// Free reports ring_size − available (spec §6 "Free = ring_size −
// available").
func (b *Block) Free() uint32 {
	return b.ringCapacity() - b.Available()
}

// enqueueLocked writes msg (truncated/zero-padded to messageSize bytes) into
// the ring, or returns a CapacityError if the ring is full (spec §6
// "ring buffer", §8 property 8 "no message is lost or duplicated when
// available < capacity"). The caller must already hold Lock.
func (b *Block) enqueueLocked(msg []byte) error {
	if b.Free() == 0 {
		return &errutil.CapacityError{Resource: "shared control block message ring"}
	}
	writeOffset := b.load32(offWriteOffset)
	ringBase := b.load32(offRingBufferOffset)
	slot := ringBase + writeOffset*messageSize

	var buf [messageSize]byte
	copy(buf[:], msg)
	copy(b.p.Bytes()[slot:slot+messageSize], buf[:])

	b.store32(offWriteOffset, (writeOffset+1)%b.ringCapacity())
	b.add32(offWriteCount, 1)
	return nil
}

// Enqueue acquires the cross-process lock, writes msg, and releases it.
func (b *Block) Enqueue(msg []byte) error {
	b.Lock()
	defer b.Unlock()
	return b.enqueueLocked(msg)
}

// dequeueLocked reads the oldest message out of the ring. The caller
// must already hold Lock.
func (b *Block) dequeueLocked() ([]byte, bool) {
	if b.Available() == 0 {
		return nil, false
	}
	readOffset := b.load32(offReadOffset)
	ringBase := b.load32(offRingBufferOffset)
	slot := ringBase + readOffset*messageSize

	msg := make([]byte, messageSize)
	copy(msg, b.p.Bytes()[slot:slot+messageSize])

	b.store32(offReadOffset, (readOffset+1)%b.ringCapacity())
	b.add32(offReadCount, 1)
	return msg, true
}

// Dequeue acquires the cross-process lock, reads the oldest message, and
// releases it. Only the master reads the ring (spec §4 "the master maps
// it read/write and is the only reader of the message ring").
func (b *Block) Dequeue() ([]byte, bool) {
	b.Lock()
	defer b.Unlock()
	return b.dequeueLocked()
}

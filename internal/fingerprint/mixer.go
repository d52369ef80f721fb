// Package fingerprint implements the hash-consing engine C1: a
// deterministic 64-bit fingerprint over normalized create-info graphs
// (spec §4.1). The engine has no failure modes — callers are expected to
// hand it structurally valid, already-normalized data (§4.1 "Contract").
package fingerprint

import (
	"math"

	"github.com/nmxmxh/fossilize/internal/model"
)

// mulConst is the FNV-1a-style multiplier from spec §3.
const mulConst = model.Hash(0x100000001b3)

// stringSentinel delimits string fields so "abc"+"d" cannot collide with
// "ab"+"cd" (spec §3).
const stringSentinel = 0xff

// Mixer accumulates a rolling 64-bit hash. Fields must be mixed in a fixed
// declaration order for the result to be meaningful (spec §4.1).
type Mixer struct {
	h model.Hash
}

// New starts a fresh mixer at the canonical seed.
func New() *Mixer {
	return &Mixer{h: model.Seed}
}

func (m *Mixer) word(w uint32) {
	m.h = (m.h * mulConst) ^ model.Hash(w)
}

// U32 mixes an unsigned 32-bit scalar.
func (m *Mixer) U32(v uint32) { m.word(v) }

// I32 mixes a signed 32-bit scalar, bit-cast per spec §4.1.
func (m *Mixer) I32(v int32) { m.word(uint32(v)) }

// F32 mixes a float by its raw bits.
func (m *Mixer) F32(v float32) { m.word(math.Float32bits(v)) }

// Bool mixes a boolean as 0/1.
func (m *Mixer) Bool(v bool) {
	if v {
		m.word(1)
	} else {
		m.word(0)
	}
}

// U64 mixes a 64-bit scalar as two words, low word first.
func (m *Mixer) U64(v uint64) {
	m.word(uint32(v))
	m.word(uint32(v >> 32))
}

// MixHash mixes a referenced object's hash in place of a live handle
// (spec §4.1 "substitutes the referenced object's hash").
func (m *Mixer) MixHash(h model.Hash) { m.U64(uint64(h)) }

// String mixes a string, sentinel-delimited on both ends.
func (m *Mixer) String(s string) {
	m.word(stringSentinel)
	for i := 0; i < len(s); i++ {
		m.word(uint32(s[i]))
	}
	m.word(stringSentinel)
}

// Len mixes an array or chain length prefix ahead of its elements
// (spec §4.1 "Arrays ... are mixed in declaration order with their length
// prefix").
func (m *Mixer) Len(n int) { m.word(uint32(n)) }

// Absent mixes the single 0 sentinel for a missing optional sub-struct.
func (m *Mixer) Absent() { m.word(0) }

// Sum returns the accumulated fingerprint.
func (m *Mixer) Sum() model.Hash { return m.h }

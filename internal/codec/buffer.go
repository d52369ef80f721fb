package codec

import (
	"math"

	"github.com/nmxmxh/fossilize/internal/errutil"
	"github.com/nmxmxh/fossilize/internal/model"
)

// Encoder accumulates the little-endian, self-describing binary form of a
// normalized create-info (spec §4.3). Field order must match the
// corresponding Decoder calls exactly, and in turn the fingerprint mixer's
// declaration order (§4.1) wherever a field participates in hashing.
type Encoder struct {
	buf []byte
}

// NewEncoder returns an empty Encoder.
func NewEncoder() *Encoder { return &Encoder{} }

// Bytes returns the accumulated buffer.
func (e *Encoder) Bytes() []byte { return e.buf }

func (e *Encoder) U8(v uint8) { e.buf = append(e.buf, v) }

func (e *Encoder) U16(v uint16) {
	e.buf = append(e.buf, byte(v), byte(v>>8))
}

func (e *Encoder) U32(v uint32) {
	e.buf = append(e.buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func (e *Encoder) U64(v uint64) {
	e.U32(uint32(v))
	e.U32(uint32(v >> 32))
}

func (e *Encoder) I32(v int32) { e.U32(uint32(v)) }
func (e *Encoder) F32(v float32) { e.U32(math.Float32bits(v)) }

func (e *Encoder) Bool(v bool) {
	if v {
		e.U8(1)
	} else {
		e.U8(0)
	}
}

// Present writes the one-byte present/absent flag ahead of an optional
// sub-struct (spec §4.3 "optional sub-structs are preceded by a one-byte
// present/absent flag").
func (e *Encoder) Present(v bool) { e.Bool(v) }

// Varint writes w as the 5-byte-max unsigned varint (spec §4.3).
func (e *Encoder) Varint(w uint32) { e.buf = AppendVarint(e.buf, w) }

// Len writes an array/string length prefix as a varint.
func (e *Encoder) Len(n int) { e.Varint(uint32(n)) }

// WriteBytes writes a varint length prefix followed by raw bytes.
func (e *Encoder) WriteBytes(b []byte) {
	e.Len(len(b))
	e.buf = append(e.buf, b...)
}

// WriteString writes a varint length prefix followed by the string's bytes.
func (e *Encoder) WriteString(s string) {
	e.Len(len(s))
	e.buf = append(e.buf, s...)
}

// Hash writes a 64-bit fingerprint.
func (e *Encoder) Hash(h model.Hash) { e.U64(uint64(h)) }

// SPIRV writes a SPIR-V word stream as a varint-length-prefixed sequence
// of per-word varints (spec §4.3).
func (e *Encoder) SPIRV(words []uint32) {
	e.Len(len(words))
	for _, w := range words {
		e.Varint(w)
	}
}

// Decoder reads the binary form produced by Encoder, rejecting truncated
// or malformed input with a *errutil.ParseError (spec §4.3 "Decoding
// rejects ... trailing garbage").
type Decoder struct {
	buf []byte
	off int
}

// NewDecoder wraps buf for sequential decoding.
func NewDecoder(buf []byte) *Decoder { return &Decoder{buf: buf} }

// Remaining reports how many bytes are left to decode.
func (d *Decoder) Remaining() int { return len(d.buf) - d.off }

// AtEnd reports whether every byte has been consumed (used to detect
// trailing garbage after a full object has been decoded).
func (d *Decoder) AtEnd() bool { return d.off == len(d.buf) }

func (d *Decoder) need(n int) error {
	if d.Remaining() < n {
		return &errutil.ParseError{Reason: "truncated payload"}
	}
	return nil
}

func (d *Decoder) U8() (uint8, error) {
	if err := d.need(1); err != nil {
		return 0, err
	}
	v := d.buf[d.off]
	d.off++
	return v, nil
}

func (d *Decoder) U16() (uint16, error) {
	if err := d.need(2); err != nil {
		return 0, err
	}
	v := uint16(d.buf[d.off]) | uint16(d.buf[d.off+1])<<8
	d.off += 2
	return v, nil
}

func (d *Decoder) U32() (uint32, error) {
	if err := d.need(4); err != nil {
		return 0, err
	}
	v := uint32(d.buf[d.off]) | uint32(d.buf[d.off+1])<<8 |
		uint32(d.buf[d.off+2])<<16 | uint32(d.buf[d.off+3])<<24
	d.off += 4
	return v, nil
}

func (d *Decoder) U64() (uint64, error) {
	lo, err := d.U32()
	if err != nil {
		return 0, err
	}
	hi, err := d.U32()
	if err != nil {
		return 0, err
	}
	return uint64(lo) | uint64(hi)<<32, nil
}

func (d *Decoder) I32() (int32, error) {
	v, err := d.U32()
	return int32(v), err
}

func (d *Decoder) F32() (float32, error) {
	v, err := d.U32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

func (d *Decoder) Bool() (bool, error) {
	v, err := d.U8()
	if err != nil {
		return false, err
	}
	if v > 1 {
		return false, &errutil.ParseError{Reason: "invalid boolean byte"}
	}
	return v == 1, nil
}

func (d *Decoder) Present() (bool, error) { return d.Bool() }

func (d *Decoder) Varint() (uint32, error) {
	v, n, err := DecodeVarint(d.buf, d.off)
	if err != nil {
		return 0, err
	}
	d.off += n
	return v, nil
}

func (d *Decoder) Len() (int, error) {
	n, err := d.Varint()
	return int(n), err
}

func (d *Decoder) ReadBytes() ([]byte, error) {
	n, err := d.Len()
	if err != nil {
		return nil, err
	}
	if err := d.need(n); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	copy(b, d.buf[d.off:d.off+n])
	d.off += n
	return b, nil
}

func (d *Decoder) ReadString() (string, error) {
	b, err := d.ReadBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (d *Decoder) ReadHash() (model.Hash, error) {
	v, err := d.U64()
	return model.Hash(v), err
}

// SPIRV reads a varint-length-prefixed sequence of per-word varints.
func (d *Decoder) SPIRV() ([]uint32, error) {
	n, err := d.Len()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	words := make([]uint32, n)
	for i := range words {
		w, err := d.Varint()
		if err != nil {
			return nil, err
		}
		words[i] = w
	}
	return words, nil
}

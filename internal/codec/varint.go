// Package codec implements C3: compact, self-describing binary encoding
// of normalized create-infos, including the SPIR-V word varint (spec
// §4.3), and symmetric decoding for replay.
package codec

import "github.com/nmxmxh/fossilize/internal/errutil"

// AppendVarint appends w to buf as an unsigned LEB128-style varint: 7 data
// bits per byte, high bit set means "continues", at most 5 bytes for a
// 32-bit word (spec §4.3).
func AppendVarint(buf []byte, w uint32) []byte {
	for {
		b := byte(w & 0x7f)
		w >>= 7
		if w != 0 {
			buf = append(buf, b|0x80)
			continue
		}
		buf = append(buf, b)
		return buf
	}
}

// DecodeVarint reads one varint from buf at offset, returning the decoded
// word and the number of bytes consumed. It rejects encodings that would
// need more than 32 bits of accumulated shift (spec §4.3 "Decoding rejects
// over-long encodings").
func DecodeVarint(buf []byte, offset int) (uint32, int, error) {
	var result uint32
	shift := uint(0)
	for i := 0; i < 5; i++ {
		pos := offset + i
		if pos >= len(buf) {
			return 0, 0, &errutil.ParseError{Reason: "truncated varint"}
		}
		b := buf[pos]
		data := uint32(b & 0x7f)
		if shift == 28 && data&0x70 != 0 {
			return 0, 0, &errutil.ParseError{Reason: "over-long varint encoding"}
		}
		result |= data << shift
		if b&0x80 == 0 {
			return result, i + 1, nil
		}
		shift += 7
	}
	return 0, 0, &errutil.ParseError{Reason: "varint exceeds 5 bytes"}
}

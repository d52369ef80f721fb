// Package archive implements C4: the append-only, content-addressed blob
// store with an index recovered by streaming the file on open (spec §4.4).
package archive

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/nmxmxh/fossilize/internal/model"
)

// fileMagic is the 12-byte identifier at the start of every single-file
// archive; padded to a 16-byte header together with formatVersion (spec
// §4.4 "A 16-byte file header: { magic, format version, reserved }").
var fileMagic = [12]byte{'F', 'O', 'S', 'S', 'I', 'L', 'I', 'Z', 'E', 'D', 'B', 0}

// formatVersion is bumped when the on-disk record layout changes, or when
// the fingerprint/masking rules change enough to invalidate old archives
// (spec §9 Open Questions).
const formatVersion uint32 = 1

const fileHeaderSize = 16 // 12-byte magic + 4-byte version

// recordHeaderSize is the fixed portion of an entry record: tag(1) +
// hash(8) + stored_size(4) + uncompressed_size(4) + crc32(4) + flags(1).
const recordHeaderSize = 1 + 8 + 4 + 4 + 4 + 1

// Flag bits within a record's flags byte (spec §6).
const (
	flagCompressed    uint8 = 1 << 0
	flagChecksumValid uint8 = 1 << 1
)

// recordHeader is the fixed-size prefix of one archive entry (spec §4.4,
// §6).
type recordHeader struct {
	Tag              model.Tag
	Hash             model.Hash
	StoredSize       uint32
	UncompressedSize uint32
	CRC32            uint32
	Flags            uint8
}

func encodeFileHeader() []byte {
	buf := make([]byte, fileHeaderSize)
	copy(buf, fileMagic[:])
	binary.LittleEndian.PutUint32(buf[12:], formatVersion)
	return buf
}

func decodeFileHeader(buf []byte) (version uint32, ok bool) {
	if len(buf) < fileHeaderSize {
		return 0, false
	}
	var magic [12]byte
	copy(magic[:], buf[:12])
	if magic != fileMagic {
		return 0, false
	}
	return binary.LittleEndian.Uint32(buf[12:16]), true
}

func encodeRecord(h recordHeader, payload []byte) []byte {
	buf := make([]byte, 0, recordHeaderSize+len(payload))
	buf = append(buf, uint8(h.Tag))
	var hashBuf [8]byte
	binary.LittleEndian.PutUint64(hashBuf[:], uint64(h.Hash))
	buf = append(buf, hashBuf[:]...)
	var u32 [4]byte
	binary.LittleEndian.PutUint32(u32[:], h.StoredSize)
	buf = append(buf, u32[:]...)
	binary.LittleEndian.PutUint32(u32[:], h.UncompressedSize)
	buf = append(buf, u32[:]...)
	binary.LittleEndian.PutUint32(u32[:], h.CRC32)
	buf = append(buf, u32[:]...)
	buf = append(buf, h.Flags)
	buf = append(buf, payload...)
	return buf
}

// decodeRecordHeader parses the fixed header portion from buf. The
// caller is responsible for bounds-checking buf against recordHeaderSize
// before calling.
func decodeRecordHeader(buf []byte) recordHeader {
	return recordHeader{
		Tag:              model.Tag(buf[0]),
		Hash:             model.Hash(binary.LittleEndian.Uint64(buf[1:9])),
		StoredSize:       binary.LittleEndian.Uint32(buf[9:13]),
		UncompressedSize: binary.LittleEndian.Uint32(buf[13:17]),
		CRC32:            binary.LittleEndian.Uint32(buf[17:21]),
		Flags:            buf[21],
	}
}

func checksum(payload []byte) uint32 { return crc32.ChecksumIEEE(payload) }

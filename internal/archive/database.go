package archive

import (
	"bytes"
	"io"
	"os"
	"sync"

	"github.com/klauspost/compress/flate"

	"github.com/nmxmxh/fossilize/internal/errutil"
	"github.com/nmxmxh/fossilize/internal/logging"
	"github.com/nmxmxh/fossilize/internal/model"
)

// Mode selects how Open attaches to the underlying file (spec §4.4).
type Mode int

const (
	// Append seeks to the end of an existing file, or creates one.
	Append Mode = iota
	// ReadOnly opens an existing file and never writes.
	ReadOnly
	// Overwrite truncates any existing file before writing.
	Overwrite
)

// IndexEntry records where a blob lives in the file and how to read it
// back (spec §3 "Archive index").
type IndexEntry struct {
	Offset           int64
	StoredSize       uint32
	UncompressedSize uint32
	CRC32            uint32
	Flags            uint8
}

func (e IndexEntry) compressed() bool { return e.Flags&flagCompressed != 0 }

// Options configures a Database.
type Options struct {
	// Compress enables per-entry deflate compression on WriteEntry (spec
	// §4.4 "Compression. Optional per-entry deflate").
	Compress bool
	Log      *logging.Logger
}

// Database is the single-file, content-addressed blob store (spec §4.4).
// It is safe for concurrent readers in ReadOnly mode; Append/Overwrite
// writers serialize through mu, matching the single-writer-per-process
// rule in spec §5 ("except in the concurrent-writer mode where each
// process owns its own distinct file").
type Database struct {
	mu       sync.Mutex
	path     string
	file     *os.File
	mode     Mode
	compress bool
	log      *logging.Logger

	index map[model.Tag]map[model.Hash]IndexEntry
	order map[model.Tag][]model.Hash
}

// Open opens or creates the archive at path in the given mode, then
// recovers its index by streaming the file (spec §4.4 "prepare()").
func Open(path string, mode Mode, opts Options) (*Database, error) {
	if opts.Log == nil {
		opts.Log = logging.Default("archive")
	}
	var flags int
	switch mode {
	case Append:
		flags = os.O_RDWR | os.O_CREATE
	case Overwrite:
		flags = os.O_RDWR | os.O_CREATE | os.O_TRUNC
	case ReadOnly:
		flags = os.O_RDONLY
	default:
		return nil, &errutil.IoError{Op: "open", Cause: errutil.Wrap(nil, "unknown archive mode")}
	}

	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, &errutil.IoError{Op: "open " + path, Cause: err}
	}

	db := &Database{
		path:     path,
		file:     f,
		mode:     mode,
		compress: opts.Compress,
		log:      opts.Log,
		index:    make(map[model.Tag]map[model.Hash]IndexEntry),
		order:    make(map[model.Tag][]model.Hash),
	}
	for _, tag := range model.PlaybackOrder {
		db.index[tag] = make(map[model.Hash]IndexEntry)
	}
	db.index[model.TagApplicationBlobLink] = make(map[model.Hash]IndexEntry)

	if err := db.prepare(); err != nil {
		_ = f.Close()
		return nil, err
	}

	if mode == Append {
		if _, err := f.Seek(0, io.SeekEnd); err != nil {
			_ = f.Close()
			return nil, &errutil.IoError{Op: "seek to end", Cause: err}
		}
	}
	return db, nil
}

// prepare scans the file from the start, validating each record's CRC32
// and building the in-memory per-tag index. A record that fails
// validation, whose stored_size exceeds the remaining file, or whose tag
// is unknown ends the scan at that point — everything before it is kept
// (spec §4.4, §8 property 7 "truncation tolerance").
func (db *Database) prepare() error {
	info, err := db.file.Stat()
	if err != nil {
		return &errutil.IoError{Op: "stat", Cause: err}
	}
	if info.Size() == 0 {
		if db.mode != ReadOnly {
			if _, err := db.file.WriteAt(encodeFileHeader(), 0); err != nil {
				return &errutil.IoError{Op: "write file header", Cause: err}
			}
		}
		return nil
	}

	header := make([]byte, fileHeaderSize)
	n, err := db.file.ReadAt(header, 0)
	if err != nil && err != io.EOF {
		return &errutil.IoError{Op: "read file header", Cause: err}
	}
	if n < fileHeaderSize {
		return nil // truncated before a full header was ever written
	}
	if _, ok := decodeFileHeader(header); !ok {
		return &errutil.IntegrityError{Reason: "bad file magic or version"}
	}

	offset := int64(fileHeaderSize)
	fixed := make([]byte, recordHeaderSize)
	for {
		n, err := db.file.ReadAt(fixed, offset)
		if err != nil && err != io.EOF {
			return &errutil.IoError{Op: "read record header", Cause: err}
		}
		if n < recordHeaderSize {
			break // partial record header at EOF: truncation, stop here
		}
		rec := decodeRecordHeader(fixed)
		if !rec.Tag.Valid() {
			break
		}
		payloadEnd := offset + recordHeaderSize + int64(rec.StoredSize)
		if payloadEnd > info.Size() {
			break // stored_size exceeds remaining file: truncation
		}
		payload := make([]byte, rec.StoredSize)
		if _, err := db.file.ReadAt(payload, offset+recordHeaderSize); err != nil && err != io.EOF {
			return &errutil.IoError{Op: "read record payload", Cause: err}
		}
		if rec.Flags&flagChecksumValid != 0 && checksum(payload) != rec.CRC32 {
			break // CRC failure ends the scan at this record
		}

		if _, ok := db.index[rec.Tag]; !ok {
			db.index[rec.Tag] = make(map[model.Hash]IndexEntry)
		}
		if _, exists := db.index[rec.Tag][rec.Hash]; !exists {
			db.index[rec.Tag][rec.Hash] = IndexEntry{
				Offset: offset + recordHeaderSize, StoredSize: rec.StoredSize,
				UncompressedSize: rec.UncompressedSize, CRC32: rec.CRC32, Flags: rec.Flags,
			}
			db.order[rec.Tag] = append(db.order[rec.Tag], rec.Hash)
		}
		offset = payloadEnd
	}
	return nil
}

// HasEntry reports whether (tag, hash) is already present (spec §4.4
// "O(1) map lookup").
func (db *Database) HasEntry(tag model.Tag, hash model.Hash) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	_, ok := db.index[tag][hash]
	return ok
}

// WriteEntry appends payload under (tag, hash). If the key already
// exists this is a no-op that returns success without writing (spec §4.4,
// §3 invariant 3, §8 properties 5 and 6).
func (db *Database) WriteEntry(tag model.Tag, hash model.Hash, payload []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.index[tag][hash]; exists {
		return nil
	}
	if db.mode == ReadOnly {
		return &errutil.IoError{Op: "write", Cause: errutil.Wrap(nil, "archive opened read-only")}
	}

	stored := payload
	var flags uint8
	if db.compress {
		compressed, err := deflate(payload)
		if err == nil && len(compressed) < len(payload) {
			stored = compressed
			flags |= flagCompressed
		}
	}
	crc := checksum(stored)
	flags |= flagChecksumValid

	rec := recordHeader{
		Tag: tag, Hash: hash, StoredSize: uint32(len(stored)),
		UncompressedSize: uint32(len(payload)), CRC32: crc, Flags: flags,
	}
	buf := encodeRecord(rec, stored)

	off, err := db.file.Seek(0, io.SeekEnd)
	if err != nil {
		return &errutil.IoError{Op: "seek to end", Cause: err}
	}
	// A single Write call is the atomicity boundary spec §4.4 requires:
	// either the whole record lands or prepare()'s truncation tolerance
	// treats a short write as EOF on the next open.
	if _, err := db.file.Write(buf); err != nil {
		return &errutil.IoError{Op: "append record", Cause: err}
	}

	db.index[tag][hash] = IndexEntry{
		Offset: off + recordHeaderSize, StoredSize: rec.StoredSize,
		UncompressedSize: rec.UncompressedSize, CRC32: rec.CRC32, Flags: rec.Flags,
	}
	db.order[tag] = append(db.order[tag], hash)
	return nil
}

// ReadEntry extracts the payload for (tag, hash), decompressing it if
// needed. (Spec §4.4 describes a two-call null-buffer-then-fill pattern
// to let a C caller size its own allocation; Go's garbage collector makes
// that unnecessary, so ReadEntry simply returns the payload — see
// DESIGN.md.)
func (db *Database) ReadEntry(tag model.Tag, hash model.Hash) ([]byte, error) {
	db.mu.Lock()
	entry, ok := db.index[tag][hash]
	db.mu.Unlock()
	if !ok {
		return nil, &errutil.DependencyError{Tag: tag.String(), Hash: uint64(hash)}
	}

	stored := make([]byte, entry.StoredSize)
	if _, err := db.file.ReadAt(stored, entry.Offset); err != nil {
		return nil, &errutil.IoError{Op: "read entry", Cause: err}
	}
	if entry.Flags&flagChecksumValid != 0 && checksum(stored) != entry.CRC32 {
		return nil, &errutil.IntegrityError{Reason: "CRC mismatch reading " + tag.String()}
	}
	if !entry.compressed() {
		return stored, nil
	}
	return inflate(stored, entry.UncompressedSize)
}

// GetHashListForResourceTag returns every hash recorded under tag, in
// insertion (archive iteration) order (spec §4.4).
func (db *Database) GetHashListForResourceTag(tag model.Tag) []model.Hash {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make([]model.Hash, len(db.order[tag]))
	copy(out, db.order[tag])
	return out
}

// Close flushes and releases the underlying file.
func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.file.Close(); err != nil {
		return &errutil.IoError{Op: "close", Cause: err}
	}
	return nil
}

func deflate(payload []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(payload); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func inflate(stored []byte, uncompressedSize uint32) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(stored))
	defer r.Close()
	out := make([]byte, uncompressedSize)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, &errutil.IntegrityError{Reason: "deflate stream shorter than declared size"}
	}
	return out, nil
}

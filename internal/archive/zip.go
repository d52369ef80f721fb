package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/klauspost/compress/flate"

	"github.com/nmxmxh/fossilize/internal/errutil"
	"github.com/nmxmxh/fossilize/internal/model"
)

func init() {
	// Use klauspost/compress's faster deflate for the zip container too,
	// instead of archive/zip's built-in compress/flate (spec §9
	// supplemented feature 5).
	zip.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.DefaultCompression)
	})
	zip.RegisterDecompressor(zip.Deflate, func(r io.Reader) io.ReadCloser {
		return flate.NewReader(r)
	})
}

// entryName derives a ZIP entry name from a (tag, hash) key: "<tag>/<hash
// as 16 hex digits>.foz" (spec §4.4/§6, §9 supplemented feature 5).
func entryName(tag model.Tag, hash model.Hash) string {
	return fmt.Sprintf("%d/%016x.foz", uint8(tag), uint64(hash))
}

func parseEntryName(name string) (model.Tag, model.Hash, bool) {
	slash := strings.IndexByte(name, '/')
	if slash < 0 || !strings.HasSuffix(name, ".foz") {
		return 0, 0, false
	}
	tagNum, err := strconv.ParseUint(name[:slash], 10, 8)
	if err != nil {
		return 0, 0, false
	}
	hashHex := strings.TrimSuffix(name[slash+1:], ".foz")
	hashNum, err := strconv.ParseUint(hashHex, 16, 64)
	if err != nil {
		return 0, 0, false
	}
	tag := model.Tag(tagNum)
	if !tag.Valid() {
		return 0, 0, false
	}
	return tag, model.Hash(hashNum), true
}

// ZipDatabase is the ZIP-container variant of Database (spec §4.4 "a ZIP
// archive is also an acceptable container"). Unlike the single-file
// format, ZIP's own central directory supplies the index, so there is no
// prepare() scan — the directory is either intact or the ZIP reader
// rejects the file outright.
type ZipDatabase struct {
	mu    sync.Mutex
	path  string
	mode  Mode
	index map[model.Tag]map[model.Hash][]byte // ReadOnly/Append: every entry read in full at open; Append/Overwrite: buffered until Close
	order map[model.Tag][]model.Hash
}

// OpenZip opens a ZIP-container archive. Append and Overwrite modes
// buffer entries in memory and flush them on Close, since archive/zip's
// writer cannot append to an existing central directory in place.
func OpenZip(path string, mode Mode) (*ZipDatabase, error) {
	db := &ZipDatabase{
		path:  path,
		mode:  mode,
		index: make(map[model.Tag]map[model.Hash][]byte),
		order: make(map[model.Tag][]model.Hash),
	}
	for _, tag := range model.PlaybackOrder {
		db.index[tag] = make(map[model.Hash][]byte)
	}
	db.index[model.TagApplicationBlobLink] = make(map[model.Hash][]byte)

	if mode == Overwrite {
		return db, nil
	}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return db, nil
	}
	if err != nil {
		return nil, &errutil.IoError{Op: "open zip " + path, Cause: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, &errutil.IoError{Op: "stat zip", Cause: err}
	}
	r, err := zip.NewReader(f, info.Size())
	if err != nil {
		return nil, &errutil.IntegrityError{Reason: "zip central directory corrupt", Cause: err}
	}
	for _, zf := range r.File {
		tag, hash, ok := parseEntryName(zf.Name)
		if !ok {
			continue
		}
		rc, err := zf.Open()
		if err != nil {
			return nil, &errutil.IoError{Op: "open zip entry", Cause: err}
		}
		payload, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, &errutil.IoError{Op: "read zip entry", Cause: err}
		}
		db.index[tag][hash] = payload
		db.order[tag] = append(db.order[tag], hash)
	}
	return db, nil
}

func (db *ZipDatabase) HasEntry(tag model.Tag, hash model.Hash) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	_, ok := db.index[tag][hash]
	return ok
}

func (db *ZipDatabase) WriteEntry(tag model.Tag, hash model.Hash, payload []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.mode == ReadOnly {
		return &errutil.IoError{Op: "write", Cause: errutil.Wrap(nil, "zip archive opened read-only")}
	}
	if _, exists := db.index[tag][hash]; exists {
		return nil
	}
	stored := make([]byte, len(payload))
	copy(stored, payload)
	db.index[tag][hash] = stored
	db.order[tag] = append(db.order[tag], hash)
	return nil
}

func (db *ZipDatabase) ReadEntry(tag model.Tag, hash model.Hash) ([]byte, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	payload, ok := db.index[tag][hash]
	if !ok {
		return nil, &errutil.DependencyError{Tag: tag.String(), Hash: uint64(hash)}
	}
	return payload, nil
}

func (db *ZipDatabase) GetHashListForResourceTag(tag model.Tag) []model.Hash {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make([]model.Hash, len(db.order[tag]))
	copy(out, db.order[tag])
	return out
}

// Close flushes every entry to the ZIP container at path. ReadOnly
// databases are never written back.
func (db *ZipDatabase) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.mode == ReadOnly {
		return nil
	}

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for tag, byHash := range db.index {
		for _, hash := range db.order[tag] {
			fw, err := w.CreateHeader(&zip.FileHeader{Name: entryName(tag, hash), Method: zip.Deflate})
			if err != nil {
				return &errutil.IoError{Op: "create zip entry", Cause: err}
			}
			if _, err := fw.Write(byHash[hash]); err != nil {
				return &errutil.IoError{Op: "write zip entry", Cause: err}
			}
		}
	}
	if err := w.Close(); err != nil {
		return &errutil.IoError{Op: "finalize zip", Cause: err}
	}
	if err := os.WriteFile(db.path, buf.Bytes(), 0o644); err != nil {
		return &errutil.IoError{Op: "write zip file", Cause: err}
	}
	return nil
}

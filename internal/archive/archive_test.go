package archive

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nmxmxh/fossilize/internal/model"
)

func tempPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.foz")
}

// TestIdempotentWrites covers spec §8 scenario S2: writing the same
// (tag, hash, payload) 100 times produces exactly one record.
func TestIdempotentWrites(t *testing.T) {
	path := tempPath(t)
	db, err := Open(path, Append, Options{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	hash := model.Hash(0x1234)
	for i := 0; i < 100; i++ {
		if err := db.WriteEntry(model.TagSampler, hash, []byte("sampler-payload")); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}
	if got := db.GetHashListForResourceTag(model.TagSampler); len(got) != 1 {
		t.Fatalf("expected exactly one entry after 100 idempotent writes, got %d", len(got))
	}

	payload, err := db.ReadEntry(model.TagSampler, hash)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(payload) != "sampler-payload" {
		t.Fatalf("payload mismatch: %q", payload)
	}
}

// TestReopenRecoversIndex covers spec §4.4's "prepare() streams the file
// on open to recover the index" and property 5 (archive self-describing
// from a fresh open).
func TestReopenRecoversIndex(t *testing.T) {
	path := tempPath(t)
	db, err := Open(path, Append, Options{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := db.WriteEntry(model.TagShaderModule, 0xaaaa, []byte("spirv-words")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := db.WriteEntry(model.TagRenderPass, 0xbbbb, []byte("render-pass-blob")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db2, err := Open(path, Append, Options{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db2.Close()

	if !db2.HasEntry(model.TagShaderModule, 0xaaaa) {
		t.Fatalf("expected shader module entry to survive reopen")
	}
	payload, err := db2.ReadEntry(model.TagRenderPass, 0xbbbb)
	if err != nil {
		t.Fatalf("read after reopen: %v", err)
	}
	if string(payload) != "render-pass-blob" {
		t.Fatalf("payload mismatch after reopen: %q", payload)
	}
}

// TestTruncationTolerance covers spec §8 scenario S3: a file truncated
// mid-record must still recover every complete record before the cut.
func TestTruncationTolerance(t *testing.T) {
	path := tempPath(t)
	db, err := Open(path, Append, Options{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := db.WriteEntry(model.TagSampler, 0x1, []byte("first")); err != nil {
		t.Fatalf("write first: %v", err)
	}
	if err := db.WriteEntry(model.TagSampler, 0x2, []byte("second")); err != nil {
		t.Fatalf("write second: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if err := os.Truncate(path, info.Size()-3); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	db2, err := Open(path, Append, Options{})
	if err != nil {
		t.Fatalf("reopen truncated file: %v", err)
	}
	defer db2.Close()

	if !db2.HasEntry(model.TagSampler, 0x1) {
		t.Fatalf("expected the first (complete) record to survive truncation")
	}
	if db2.HasEntry(model.TagSampler, 0x2) {
		t.Fatalf("expected the truncated second record to be dropped")
	}
}

// TestCompressedRoundTrip exercises the optional per-entry deflate path
// (spec §4.4 "Compression").
func TestCompressedRoundTrip(t *testing.T) {
	path := tempPath(t)
	db, err := Open(path, Append, Options{Compress: true})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	payload := make([]byte, 4096)
	for i := range payload {
		payload[i] = byte(i % 7)
	}
	if err := db.WriteEntry(model.TagShaderModule, 0x55, payload); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := db.ReadEntry(model.TagShaderModule, 0x55)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("compressed round-trip mismatch")
	}
}

// TestReadOnlyRejectsWrite covers the ReadOnly mode contract (spec §4.4).
func TestReadOnlyRejectsWrite(t *testing.T) {
	path := tempPath(t)
	db, err := Open(path, Append, Options{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := db.WriteEntry(model.TagSampler, 0x9, []byte("x")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	ro, err := Open(path, ReadOnly, Options{})
	if err != nil {
		t.Fatalf("reopen read-only: %v", err)
	}
	defer ro.Close()

	if !ro.HasEntry(model.TagSampler, 0x9) {
		t.Fatalf("expected existing entry to be visible read-only")
	}
	if err := ro.WriteEntry(model.TagSampler, 0xa, []byte("y")); err == nil {
		t.Fatalf("expected write on a read-only archive to fail")
	}
}

// TestOverwriteTruncatesExisting covers the Overwrite mode contract.
func TestOverwriteTruncatesExisting(t *testing.T) {
	path := tempPath(t)
	db, err := Open(path, Append, Options{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := db.WriteEntry(model.TagSampler, 0x1, []byte("old")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	fresh, err := Open(path, Overwrite, Options{})
	if err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	defer fresh.Close()
	if fresh.HasEntry(model.TagSampler, 0x1) {
		t.Fatalf("expected Overwrite to discard prior entries")
	}
}

// TestHashListOrder covers GetHashListForResourceTag's insertion-order
// contract (spec §4.4).
func TestHashListOrder(t *testing.T) {
	path := tempPath(t)
	db, err := Open(path, Append, Options{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	hashes := []model.Hash{0x3, 0x1, 0x2}
	for _, h := range hashes {
		if err := db.WriteEntry(model.TagSampler, h, []byte("x")); err != nil {
			t.Fatalf("write %v: %v", h, err)
		}
	}
	got := db.GetHashListForResourceTag(model.TagSampler)
	if len(got) != 3 || got[0] != 0x3 || got[1] != 0x1 || got[2] != 0x2 {
		t.Fatalf("expected insertion order preserved, got %v", got)
	}
}

package archive

import (
	"path/filepath"
	"testing"

	"github.com/nmxmxh/fossilize/internal/model"
)

func TestZipRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.zip")
	db, err := OpenZip(path, Overwrite)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := db.WriteEntry(model.TagGraphicsPipeline, 0xabc, []byte("pso-blob")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db2, err := OpenZip(path, ReadOnly)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if !db2.HasEntry(model.TagGraphicsPipeline, 0xabc) {
		t.Fatalf("expected entry to survive zip round-trip")
	}
	got, err := db2.ReadEntry(model.TagGraphicsPipeline, 0xabc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "pso-blob" {
		t.Fatalf("payload mismatch: %q", got)
	}
}

func TestZipEntryNameRoundTrip(t *testing.T) {
	tag, hash, ok := parseEntryName(entryName(model.TagShaderModule, 0xdeadbeef))
	if !ok || tag != model.TagShaderModule || hash != 0xdeadbeef {
		t.Fatalf("entry name round-trip failed: tag=%v hash=%v ok=%v", tag, hash, ok)
	}
}

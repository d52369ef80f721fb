// Package testutil builds synthetic archives and shared-memory regions
// so other packages' tests don't each hand-roll fixture setup.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/nmxmxh/fossilize/internal/archive"
	"github.com/nmxmxh/fossilize/internal/codec"
	"github.com/nmxmxh/fossilize/internal/model"
)

// ArchiveBuilder fluently assembles a temporary archive.Database for
// tests, encoding each value through the real codec so fixtures stay
// honest about the on-disk format.
type ArchiveBuilder struct {
	t  *testing.T
	db *archive.Database
}

// NewArchiveBuilder opens a fresh temp-dir archive in Append mode.
func NewArchiveBuilder(t *testing.T) *ArchiveBuilder {
	t.Helper()
	db, err := archive.Open(filepath.Join(t.TempDir(), "fixture.foz"), archive.Append, archive.Options{})
	if err != nil {
		t.Fatalf("testutil: open fixture archive: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &ArchiveBuilder{t: t, db: db}
}

// With encodes value under (tag, hash) and writes it, failing the test
// on error. Returns the builder for chaining.
func (b *ArchiveBuilder) With(tag model.Tag, hash model.Hash, value any) *ArchiveBuilder {
	b.t.Helper()
	blob, err := codec.EncodeObject(tag, value)
	if err != nil {
		b.t.Fatalf("testutil: encode %v: %v", tag, err)
	}
	if err := b.db.WriteEntry(tag, hash, blob); err != nil {
		b.t.Fatalf("testutil: write %v: %v", tag, err)
	}
	return b
}

// WithRawEntry writes a pre-encoded payload verbatim, bypassing the
// codec — useful for truncation/corruption fixtures.
func (b *ArchiveBuilder) WithRawEntry(tag model.Tag, hash model.Hash, payload []byte) *ArchiveBuilder {
	b.t.Helper()
	if err := b.db.WriteEntry(tag, hash, payload); err != nil {
		b.t.Fatalf("testutil: write raw %v: %v", tag, err)
	}
	return b
}

// Database returns the underlying archive.Database for direct reads.
func (b *ArchiveBuilder) Database() *archive.Database { return b.db }

// DefaultGraphicsPipeline returns a minimally valid GraphicsPipeline
// fixture, enough to round-trip through the codec and fingerprint.
func DefaultGraphicsPipeline() *model.GraphicsPipeline {
	return &model.GraphicsPipeline{
		Stages: []model.PipelineShaderStage{{Stage: 1, Module: 0xdead, EntryPoint: "main"}},
		InputAssembly: &model.InputAssemblyState{Topology: 3},
		Rasterization: &model.RasterizationState{LineWidth: 1},
		Multisample:   &model.MultisampleState{RasterizationSamples: 1},
	}
}

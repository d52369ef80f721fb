package replay

import (
	"path/filepath"
	"testing"

	"github.com/nmxmxh/fossilize/internal/archive"
	"github.com/nmxmxh/fossilize/internal/codec"
	"github.com/nmxmxh/fossilize/internal/model"
)

type recordingCreator struct {
	order     []model.Tag
	skipHash  model.Hash
	syncCalls int
}

func (c *recordingCreator) CreateApplicationInfo(hash model.Hash, info *model.ApplicationInfo) error {
	c.order = append(c.order, model.TagApplicationInfo)
	return nil
}
func (c *recordingCreator) CreateShaderModule(hash model.Hash, m *model.ShaderModule) error {
	c.order = append(c.order, model.TagShaderModule)
	return nil
}
func (c *recordingCreator) CreateSampler(hash model.Hash, s *model.Sampler) error {
	if hash == c.skipHash {
		return ErrSkip
	}
	c.order = append(c.order, model.TagSampler)
	return nil
}
func (c *recordingCreator) CreateDescriptorSetLayout(hash model.Hash, d *model.DescriptorSetLayout) error {
	c.order = append(c.order, model.TagDescriptorSetLayout)
	return nil
}
func (c *recordingCreator) CreatePipelineLayout(hash model.Hash, p *model.PipelineLayout) error {
	c.order = append(c.order, model.TagPipelineLayout)
	return nil
}
func (c *recordingCreator) CreateRenderPass(hash model.Hash, rp *model.RenderPass) error {
	c.order = append(c.order, model.TagRenderPass)
	return nil
}
func (c *recordingCreator) CreateGraphicsPipeline(hash model.Hash, g *model.GraphicsPipeline) error {
	c.order = append(c.order, model.TagGraphicsPipeline)
	return nil
}
func (c *recordingCreator) CreateComputePipeline(hash model.Hash, p *model.ComputePipeline) error {
	c.order = append(c.order, model.TagComputePipeline)
	return nil
}
func (c *recordingCreator) CreateRaytracingPipeline(hash model.Hash, rt *model.RaytracingPipeline) error {
	c.order = append(c.order, model.TagRaytracingPipeline)
	return nil
}
func (c *recordingCreator) SyncThreads() error {
	c.syncCalls++
	return nil
}

func buildArchive(t *testing.T) *archive.Database {
	t.Helper()
	db, err := archive.Open(filepath.Join(t.TempDir(), "replay.foz"), archive.Append, archive.Options{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	write := func(tag model.Tag, hash model.Hash, v any) {
		blob, err := codec.EncodeObject(tag, v)
		if err != nil {
			t.Fatalf("encode %v: %v", tag, err)
		}
		if err := db.WriteEntry(tag, hash, blob); err != nil {
			t.Fatalf("write %v: %v", tag, err)
		}
	}
	write(model.TagGraphicsPipeline, 0x1, &model.GraphicsPipeline{Flags: 1})
	write(model.TagApplicationInfo, 0x2, &model.ApplicationInfo{APIVersion: 1})
	write(model.TagSampler, 0x3, &model.Sampler{MagFilter: 1})
	write(model.TagSampler, 0x4, &model.Sampler{MagFilter: 2})
	return db
}

func TestRunFollowsFixedPlaybackOrder(t *testing.T) {
	db := buildArchive(t)
	r := New(db, nil)
	c := &recordingCreator{}

	stats, err := r.Run(c, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := []model.Tag{model.TagApplicationInfo, model.TagSampler, model.TagSampler, model.TagGraphicsPipeline}
	if len(c.order) != len(want) {
		t.Fatalf("order = %v, want %v", c.order, want)
	}
	for i, tag := range want {
		if c.order[i] != tag {
			t.Fatalf("order[%d] = %v, want %v (full: %v)", i, c.order[i], tag, c.order)
		}
	}
	if stats.Created[model.TagSampler] != 2 {
		t.Fatalf("expected 2 created samplers, got %d", stats.Created[model.TagSampler])
	}
	if c.syncCalls == 0 {
		t.Fatalf("expected SyncThreads to be called")
	}
}

func TestSkipSignalCountsAsSkipped(t *testing.T) {
	db := buildArchive(t)
	r := New(db, nil)
	c := &recordingCreator{skipHash: 0x3}

	stats, err := r.Run(c, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.Skipped[model.TagSampler] != 1 {
		t.Fatalf("expected 1 skipped sampler, got %d", stats.Skipped[model.TagSampler])
	}
	if stats.Created[model.TagSampler] != 1 {
		t.Fatalf("expected 1 created sampler, got %d", stats.Created[model.TagSampler])
	}
}

func TestRangeRestrictsPipelineIndices(t *testing.T) {
	db := buildArchive(t)
	if err := db.WriteEntry(model.TagGraphicsPipeline, 0x99, mustEncode(t, &model.GraphicsPipeline{Flags: 2})); err != nil {
		t.Fatalf("write: %v", err)
	}
	r := New(db, nil)
	c := &recordingCreator{}

	ranges := map[model.Tag]Range{model.TagGraphicsPipeline: {Tag: model.TagGraphicsPipeline, Start: 0, End: 1}}
	stats, err := r.Run(c, ranges)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.Created[model.TagGraphicsPipeline] != 1 {
		t.Fatalf("expected range to restrict playback to 1 graphics pipeline, got %d", stats.Created[model.TagGraphicsPipeline])
	}
}

func mustEncode(t *testing.T, g *model.GraphicsPipeline) []byte {
	t.Helper()
	blob, err := codec.EncodeObject(model.TagGraphicsPipeline, g)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return blob
}

package recorder

import (
	"testing"

	"github.com/nmxmxh/fossilize/internal/model"
)

func TestRecordSamplerThenDescriptorSetLayout(t *testing.T) {
	r := New(nil)
	samplerHash, err := r.RecordSampler(1, &model.Sampler{MagFilter: 1, MinFilter: 2, MipLodBias: 90})
	if err != nil {
		t.Fatalf("RecordSampler: %v", err)
	}

	immutables, err := r.ResolveImmutableSamplers([]Handle{1, 1})
	if err != nil {
		t.Fatalf("ResolveImmutableSamplers: %v", err)
	}
	if len(immutables) != 2 || immutables[0] != samplerHash {
		t.Fatalf("expected resolved hashes to match sampler hash, got %v", immutables)
	}

	layout := &model.DescriptorSetLayout{
		Bindings: []model.DescriptorBinding{{Binding: 8, DescriptorType: 1, DescriptorCount: 2, ImmutableSamplers: immutables}},
	}
	if _, err := r.RecordDescriptorSetLayout(2, layout); err != nil {
		t.Fatalf("RecordDescriptorSetLayout: %v", err)
	}
}

func TestRecordSameHandleTwiceIsError(t *testing.T) {
	r := New(nil)
	if _, err := r.RecordSampler(1, &model.Sampler{}); err != nil {
		t.Fatalf("first record: %v", err)
	}
	if _, err := r.RecordSampler(1, &model.Sampler{MagFilter: 1}); err == nil {
		t.Fatalf("expected error recording the same handle twice")
	}
}

func TestDuplicateFingerprintIsIdempotent(t *testing.T) {
	r := New(nil)
	s := &model.Sampler{MagFilter: 1, MinFilter: 2}
	h1, err := r.RecordSampler(1, s)
	if err != nil {
		t.Fatalf("record 1: %v", err)
	}
	h2, err := r.RecordSampler(2, &model.Sampler{MagFilter: 1, MinFilter: 2})
	if err != nil {
		t.Fatalf("record 2: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("identical samplers should fingerprint identically")
	}
	if len(r.Entries(model.TagSampler)) != 1 {
		t.Fatalf("expected a single interned sampler entry, got %d", len(r.Entries(model.TagSampler)))
	}
}

func TestBasePipelineFallbackToCallerHash(t *testing.T) {
	r := New(nil)
	// Base pipeline handle 99 was never recorded (it was created later),
	// so the caller's reported hash must be trusted (spec §4.2).
	g := &model.GraphicsPipeline{BaseHashOverride: 0xfeed}
	hash, err := r.RecordGraphicsPipeline(1, 99, true, g)
	if err != nil {
		t.Fatalf("RecordGraphicsPipeline: %v", err)
	}
	if g.EffectiveBaseHash() != 0xfeed {
		t.Fatalf("expected base hash override to survive an unresolved base handle")
	}
	if hash.IsZero() {
		t.Fatalf("expected non-zero hash")
	}
}

func TestRecordApplicationBlobLink(t *testing.T) {
	r := New(nil)
	link := &model.ApplicationBlobLink{LinkedApplication: 0x1234, Payload: []byte("blob")}
	hash, err := r.RecordApplicationBlobLink(1, link, 0xabcd)
	if err != nil {
		t.Fatalf("RecordApplicationBlobLink: %v", err)
	}
	if hash != 0xabcd {
		t.Fatalf("expected the caller-supplied custom hash to be used verbatim, got %v", hash)
	}
	entries := r.Entries(model.TagApplicationBlobLink)
	if len(entries) != 1 {
		t.Fatalf("expected a single interned blob link entry, got %d", len(entries))
	}
	if _, err := r.RecordApplicationBlobLink(1, link, 0xabcd); err == nil {
		t.Fatalf("expected error recording the same handle twice")
	}
}

func TestBasePipelineResolvedWhenAvailable(t *testing.T) {
	r := New(nil)
	baseHash, err := r.RecordGraphicsPipeline(1, 0, false, &model.GraphicsPipeline{Flags: 1})
	if err != nil {
		t.Fatalf("record base: %v", err)
	}
	derived := &model.GraphicsPipeline{BaseHashOverride: 0xdead}
	if _, err := r.RecordGraphicsPipeline(2, 1, true, derived); err != nil {
		t.Fatalf("record derived: %v", err)
	}
	if derived.EffectiveBaseHash() != baseHash {
		t.Fatalf("expected resolved base pipeline hash to take priority over the override")
	}
}

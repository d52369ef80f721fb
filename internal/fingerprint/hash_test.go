package fingerprint

import (
	"testing"

	"github.com/nmxmxh/fossilize/internal/model"
)

func baseGraphicsPipeline() *model.GraphicsPipeline {
	return &model.GraphicsPipeline{
		Stages: []model.PipelineShaderStage{{Stage: 1, Module: 0xdead, EntryPoint: "main"}},
		ColorBlend: &model.ColorBlendState{
			Attachments: []model.ColorBlendAttachment{
				{BlendEnable: false, ColorWriteMask: 0xf},
			},
			BlendConstants: [4]float32{9, 19, 29, 39},
		},
		Layout:     0x1,
		RenderPass: 0x2,
	}
}

// TestBlendConstantsIrrelevantWhenUnused covers spec §8 scenario S6: two
// pipelines differing only in BlendConstants must hash identically when no
// attachment actually blends with the constant factor.
func TestBlendConstantsIrrelevantWhenUnused(t *testing.T) {
	a := baseGraphicsPipeline()
	b := baseGraphicsPipeline()
	b.ColorBlend.BlendConstants = [4]float32{0, 0, 0, 0}

	ha := GraphicsPipeline(a)
	hb := GraphicsPipeline(b)
	if ha != hb {
		t.Fatalf("expected identical hashes, got %s vs %s", ha, hb)
	}
}

func TestBlendConstantsRelevantWhenUsed(t *testing.T) {
	a := baseGraphicsPipeline()
	a.ColorBlend.Attachments[0].BlendEnable = true
	a.ColorBlend.Attachments[0].SrcColorBlendFactor = model.BlendFactorConstantColor
	a.ColorBlend.Attachments[0].DstColorBlendFactor = model.BlendFactorConstantColor

	b := baseGraphicsPipeline()
	b.ColorBlend.Attachments[0].BlendEnable = true
	b.ColorBlend.Attachments[0].SrcColorBlendFactor = model.BlendFactorConstantColor
	b.ColorBlend.Attachments[0].DstColorBlendFactor = model.BlendFactorConstantColor
	b.ColorBlend.BlendConstants = [4]float32{0, 0, 0, 0}

	if GraphicsPipeline(a) == GraphicsPipeline(b) {
		t.Fatalf("expected different hashes when blend constants are actually used")
	}
}

func TestDynamicViewportOmitsArrays(t *testing.T) {
	a := baseGraphicsPipeline()
	a.Viewport = &model.ViewportState{Viewports: []model.Viewport{{Width: 100}}}
	a.Dynamic = []model.DynamicState{model.DynamicViewport, model.DynamicScissor}

	b := baseGraphicsPipeline()
	b.Viewport = &model.ViewportState{Viewports: []model.Viewport{{Width: 999}}}
	b.Dynamic = []model.DynamicState{model.DynamicViewport, model.DynamicScissor}

	if GraphicsPipeline(a) != GraphicsPipeline(b) {
		t.Fatalf("expected identical hashes when viewport/scissor are both dynamic")
	}
}

func TestSamplerAnisotropyMasking(t *testing.T) {
	a := &model.Sampler{MagFilter: 1, MinFilter: 2, MipLodBias: 90.0, AnisotropyEnable: false, MaxAnisotropy: 4}
	b := &model.Sampler{MagFilter: 1, MinFilter: 2, MipLodBias: 90.0, AnisotropyEnable: false, MaxAnisotropy: 16}
	if Sampler(a) != Sampler(b) {
		t.Fatalf("MaxAnisotropy should be irrelevant when AnisotropyEnable is false")
	}
	c := &model.Sampler{MagFilter: 1, MinFilter: 2, MipLodBias: 90.0, AnisotropyEnable: true, MaxAnisotropy: 4}
	d := &model.Sampler{MagFilter: 1, MinFilter: 2, MipLodBias: 90.0, AnisotropyEnable: true, MaxAnisotropy: 16}
	if Sampler(c) == Sampler(d) {
		t.Fatalf("MaxAnisotropy should matter when AnisotropyEnable is true")
	}
}

func TestStringSentinelPreventsConcatenationCollision(t *testing.T) {
	m1 := New()
	m1.String("abc")
	m1.String("d")
	m2 := New()
	m2.String("ab")
	m2.String("cd")
	if m1.Sum() == m2.Sum() {
		t.Fatalf("expected distinct hashes for abc+d vs ab+cd")
	}
}

func TestShaderModuleIdentifierVsSPIRV(t *testing.T) {
	spirv := &model.ShaderModule{SPIRV: []uint32{0xdeadbeef}}
	ident := &model.ShaderModule{Identifier: []byte{0xde, 0xad, 0xbe, 0xef}}
	if ShaderModule(spirv) == ShaderModule(ident) {
		t.Fatalf("identifier-based and SPIR-V-based modules must not collide trivially")
	}
}

package codec

import (
	"testing"

	"github.com/nmxmxh/fossilize/internal/fingerprint"
	"github.com/nmxmxh/fossilize/internal/model"
)

// TestVarintBoundaries covers spec §8 scenario S4.
func TestVarintBoundaries(t *testing.T) {
	cases := []struct {
		w        uint32
		wantSize int
	}{
		{0, 1}, {127, 1}, {128, 2}, {16383, 2}, {16384, 3},
		{2097151, 3}, {2097152, 4}, {268435455, 4}, {268435456, 5}, {0xffffffff, 5},
	}
	for _, c := range cases {
		buf := AppendVarint(nil, c.w)
		if len(buf) != c.wantSize {
			t.Errorf("word %d: encoded size = %d, want %d", c.w, len(buf), c.wantSize)
		}
		got, n, err := DecodeVarint(buf, 0)
		if err != nil {
			t.Fatalf("word %d: decode error: %v", c.w, err)
		}
		if n != len(buf) || got != c.w {
			t.Errorf("word %d: round-trip got %d (consumed %d), want %d", c.w, got, n, len(buf))
		}
	}
}

func TestVarintRejectsOverLongEncoding(t *testing.T) {
	// Five bytes whose accumulated shift exceeds 32 bits and whose 5th byte
	// carries data outside the top 4 valid bits.
	buf := []byte{0x80, 0x80, 0x80, 0x80, 0x10}
	if _, _, err := DecodeVarint(buf, 0); err == nil {
		t.Fatalf("expected over-long varint to be rejected")
	}
}

func TestVarintRejectsTruncation(t *testing.T) {
	buf := []byte{0x80, 0x80}
	if _, _, err := DecodeVarint(buf, 0); err == nil {
		t.Fatalf("expected truncated varint to be rejected")
	}
}

// TestGraphicsPipelineRoundTrip covers spec §8 properties 1 and 2.
func TestGraphicsPipelineRoundTrip(t *testing.T) {
	g := &model.GraphicsPipeline{
		Flags: 1,
		Stages: []model.PipelineShaderStage{
			{Stage: 1, Module: 0xdead, EntryPoint: "main"},
			{Stage: 16, Module: 0xbeef, EntryPoint: "frag"},
		},
		VertexInput: &model.VertexInputState{
			Bindings:   []model.VertexInputBinding{{Binding: 0, Stride: 12, InputRate: 0}},
			Attributes: []model.VertexInputAttribute{{Location: 0, Binding: 0, Format: 100, Offset: 0}},
		},
		InputAssembly: &model.InputAssemblyState{Topology: 3},
		Viewport: &model.ViewportState{
			Viewports: []model.Viewport{{Width: 1920, Height: 1080, MaxDepth: 1}},
			Scissors:  []model.Rect2D{{Width: 1920, Height: 1080}},
		},
		Rasterization: &model.RasterizationState{PolygonMode: 0, CullMode: 2, LineWidth: 1},
		Multisample:   &model.MultisampleState{RasterizationSamples: 1},
		DepthStencil:  &model.DepthStencilState{DepthTestEnable: true, DepthCompareOp: 4},
		ColorBlend: &model.ColorBlendState{
			Attachments:    []model.ColorBlendAttachment{{ColorWriteMask: 0xf}},
			BlendConstants: [4]float32{1, 2, 3, 4},
		},
		Dynamic:    []model.DynamicState{model.DynamicViewport},
		Layout:     0x1234,
		RenderPass: 0x5678,
		Subpass:    0,
		Extensions: []model.Extension{{Type: model.ExtDepthClipEnable, Body: []byte{1, 2, 3}}},
	}

	blob, err := EncodeObject(model.TagGraphicsPipeline, g)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	tag, obj, err := DecodeObject(blob)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tag != model.TagGraphicsPipeline {
		t.Fatalf("tag = %v, want GraphicsPipeline", tag)
	}
	got := obj.(*model.GraphicsPipeline)

	if fingerprint.GraphicsPipeline(got) != fingerprint.GraphicsPipeline(g) {
		t.Fatalf("hash(decode(encode(c))) != hash(c)")
	}
	if len(got.Stages) != len(g.Stages) || got.Stages[1].EntryPoint != "frag" {
		t.Fatalf("stages did not round-trip: %+v", got.Stages)
	}
	if got.ColorBlend.BlendConstants != g.ColorBlend.BlendConstants {
		t.Fatalf("blend constants did not round-trip")
	}
	if len(got.Extensions) != 1 || got.Extensions[0].Type != model.ExtDepthClipEnable {
		t.Fatalf("extensions did not round-trip: %+v", got.Extensions)
	}
}

func TestDecodeRejectsUnknownExtension(t *testing.T) {
	g := &model.GraphicsPipeline{Extensions: []model.Extension{{Type: 0xffff, Body: []byte{1}}}}
	e := NewEncoder()
	encodeGraphicsPipeline(e, g)
	blob := EncodeBlob(model.TagGraphicsPipeline, e.Bytes())
	if _, _, err := DecodeObject(blob); err == nil {
		t.Fatalf("expected unknown extension tag to be rejected")
	}
}

func TestShaderModuleIdentifierRoundTrip(t *testing.T) {
	s := &model.ShaderModule{Flags: 1, Identifier: []byte{1, 2, 3, 4}, IdentifierAlgorithm: [16]byte{0xaa}}
	blob, err := EncodeObject(model.TagShaderModule, s)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	_, obj, err := DecodeObject(blob)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	got := obj.(*model.ShaderModule)
	if !got.UsesIdentifier() || string(got.Identifier) != string(s.Identifier) {
		t.Fatalf("identifier path did not round-trip: %+v", got)
	}
	if got.IdentifierAlgorithm != s.IdentifierAlgorithm {
		t.Fatalf("identifier algorithm UUID did not round-trip")
	}
}

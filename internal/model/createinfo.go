package model

// Every struct below is the normalized, value-semantic form of a
// graphics-API create-info: live object handles have already been replaced
// by the Hash of the referenced (already-interned) object, every sub-array
// and extension struct lives in the Recorder's arena, and pointer identity
// no longer matters (spec §3 "Normalized create-info").
//
// Field order here is the codec's encoding order (spec §4.1: declaration
// order matters). The fingerprint engine follows the same order, except
// that MinDepthBounds/MaxDepthBounds are mixed right after
// DepthBoundsTestEnable, and a pipeline's base is mixed as one effective
// hash with BasePipelineIndex left out.

// ApplicationInfo identifies the application and engine; it combines with
// a feature struct to select an archive (spec §3 ApplicationFeatureHash).
type ApplicationInfo struct {
	ApplicationName    string
	ApplicationVersion uint32
	EngineName         string
	EngineVersion      uint32
	APIVersion         uint32
}

// ApplicationBlobLink is an opaque payload tag-associated with the current
// ApplicationInfo, used by embedders to stash auxiliary blobs alongside a
// capture (spec §3 resource tag enum).
type ApplicationBlobLink struct {
	LinkedApplication Hash
	Payload           []byte
}

// ShaderModule carries either SPIR-V words or a driver-opaque identifier
// (spec §4.2 bullet 4, supplemented feature 2). Exactly one of SPIRV or
// Identifier is populated.
type ShaderModule struct {
	Flags      uint32
	SPIRV      []uint32
	Identifier []byte
	// IdentifierAlgorithm is the driver's algorithm-UUID key for Identifier;
	// it does not participate in hashing (only Identifier bytes do, per
	// spec §4.2), but is stored so replay can pick the matching creation
	// path back out.
	IdentifierAlgorithm [16]byte
}

// UsesIdentifier reports whether this module was recorded from an opaque
// driver identifier rather than SPIR-V bytes.
func (s *ShaderModule) UsesIdentifier() bool { return len(s.Identifier) > 0 }

type Sampler struct {
	Flags                   uint32
	MagFilter               int32
	MinFilter               int32
	MipmapMode              int32
	AddressModeU            int32
	AddressModeV            int32
	AddressModeW            int32
	MipLodBias              float32
	AnisotropyEnable        bool
	MaxAnisotropy           float32 // omitted when !AnisotropyEnable (spec §4.1)
	CompareEnable           bool
	CompareOp               int32 // omitted when !CompareEnable
	MinLod                  float32
	MaxLod                  float32
	BorderColor             int32
	UnnormalizedCoordinates bool
}

type DescriptorBinding struct {
	Binding         uint32
	DescriptorType  int32
	DescriptorCount uint32
	StageFlags      uint32
	// ImmutableSamplers holds the hashes of already-interned Sampler
	// objects, expanded from the embedded immutable-sampler array
	// (spec §4.2 bullet 3).
	ImmutableSamplers []Hash
}

type DescriptorSetLayout struct {
	Flags    uint32
	Bindings []DescriptorBinding
}

type PushConstantRange struct {
	StageFlags uint32
	Offset     uint32
	Size       uint32
}

type PipelineLayout struct {
	Flags              uint32
	SetLayouts         []Hash
	PushConstantRanges []PushConstantRange
}

type AttachmentDescription struct {
	Flags          uint32
	Format         int32
	Samples        int32
	LoadOp         int32
	StoreOp        int32
	StencilLoadOp  int32
	StencilStoreOp int32
	InitialLayout  int32
	FinalLayout    int32
}

// AttachmentUnused mirrors VK_ATTACHMENT_UNUSED (0xFFFFFFFF) so
// "no reference" mixes distinctly from a real index 0 reference.
const AttachmentUnused uint32 = 0xFFFFFFFF

type AttachmentReference struct {
	Attachment uint32
	Layout     int32
}

type SubpassDescription struct {
	Flags                  uint32
	PipelineBindPoint      int32
	InputAttachments       []AttachmentReference
	ColorAttachments       []AttachmentReference
	ResolveAttachments     []AttachmentReference
	DepthStencilAttachment *AttachmentReference // omitted sentinel if nil
	PreserveAttachments    []uint32
}

type SubpassDependency struct {
	SrcSubpass      uint32
	DstSubpass      uint32
	SrcStageMask    uint32
	DstStageMask    uint32
	SrcAccessMask   uint32
	DstAccessMask   uint32
	DependencyFlags uint32
}

type RenderPass struct {
	Flags        uint32
	Attachments  []AttachmentDescription
	Subpasses    []SubpassDescription
	Dependencies []SubpassDependency
}

// PipelineShaderStage references an already-interned ShaderModule by hash.
type PipelineShaderStage struct {
	Stage      uint32
	Module     Hash
	EntryPoint string
}

type VertexInputBinding struct {
	Binding   uint32
	Stride    uint32
	InputRate int32
}

type VertexInputAttribute struct {
	Location uint32
	Binding  uint32
	Format   int32
	Offset   uint32
}

type VertexInputState struct {
	Bindings   []VertexInputBinding
	Attributes []VertexInputAttribute
}

type InputAssemblyState struct {
	Topology               int32
	PrimitiveRestartEnable bool
}

type TessellationState struct {
	PatchControlPoints uint32
}

type Viewport struct{ X, Y, Width, Height, MinDepth, MaxDepth float32 }
type Rect2D struct {
	X, Y          int32
	Width, Height uint32
}

// ViewportState is omitted entirely by the fingerprint engine when both
// viewport count and scissor count are dynamic (spec §4.1, §8 property 4).
type ViewportState struct {
	Viewports []Viewport
	Scissors  []Rect2D
}

type RasterizationState struct {
	DepthClampEnable        bool
	RasterizerDiscardEnable bool
	PolygonMode             int32
	CullMode                uint32
	FrontFace               int32
	DepthBiasEnable         bool
	DepthBiasConstantFactor float32 // omitted when !DepthBiasEnable
	DepthBiasClamp          float32 // omitted when !DepthBiasEnable
	DepthBiasSlopeFactor    float32 // omitted when !DepthBiasEnable
	LineWidth               float32 // omitted when line width is dynamic
}

type MultisampleState struct {
	RasterizationSamples  int32
	SampleShadingEnable   bool
	MinSampleShading      float32 // omitted when !SampleShadingEnable
	SampleMask            []uint32
	AlphaToCoverageEnable bool
	AlphaToOneEnable      bool
}

type StencilOpState struct {
	FailOp, PassOp, DepthFailOp, CompareOp int32
	CompareMask, WriteMask, Reference      uint32 // omitted when stencil test disabled or dynamic
}

type DepthStencilState struct {
	DepthTestEnable        bool
	DepthWriteEnable       bool
	DepthCompareOp         int32
	DepthBoundsTestEnable  bool
	StencilTestEnable      bool
	Front, Back            StencilOpState // omitted when !StencilTestEnable
	MinDepthBounds         float32        // omitted when !DepthBoundsTestEnable
	MaxDepthBounds         float32        // omitted when !DepthBoundsTestEnable
}

type ColorBlendAttachment struct {
	BlendEnable         bool
	SrcColorBlendFactor int32 // omitted when !BlendEnable
	DstColorBlendFactor int32 // omitted when !BlendEnable
	ColorBlendOp        int32 // omitted when !BlendEnable
	SrcAlphaBlendFactor int32 // omitted when !BlendEnable
	DstAlphaBlendFactor int32 // omitted when !BlendEnable
	AlphaBlendOp        int32 // omitted when !BlendEnable
	ColorWriteMask      uint32
}

// usesConstantBlendFactor reports whether this attachment's enabled blend
// factors reference the constant blend color, per the closed factor enum.
func (a ColorBlendAttachment) usesConstantBlendFactor() bool {
	if !a.BlendEnable {
		return false
	}
	isConstant := func(f int32) bool { return f == BlendFactorConstantColor || f == BlendFactorOneMinusConstantColor || f == BlendFactorConstantAlpha || f == BlendFactorOneMinusConstantAlpha }
	return isConstant(a.SrcColorBlendFactor) || isConstant(a.DstColorBlendFactor) ||
		isConstant(a.SrcAlphaBlendFactor) || isConstant(a.DstAlphaBlendFactor)
}

// Closed subset of the blend-factor enum relevant to constant-color masking
// (spec §4.1, §8 scenario S6).
const (
	BlendFactorConstantColor         int32 = 100
	BlendFactorOneMinusConstantColor int32 = 101
	BlendFactorConstantAlpha         int32 = 102
	BlendFactorOneMinusConstantAlpha int32 = 103
)

type ColorBlendState struct {
	LogicOpEnable bool
	LogicOp       int32 // omitted when !LogicOpEnable
	Attachments   []ColorBlendAttachment
	// BlendConstants is omitted by the fingerprint engine unless at least
	// one attachment both blends and references the constant factor, and
	// DynamicBlendConstants is not set (spec §4.1, §8 scenario S6).
	BlendConstants [4]float32
}

// UsesConstantBlend reports whether any attachment needs BlendConstants.
func (c *ColorBlendState) UsesConstantBlend() bool {
	for _, a := range c.Attachments {
		if a.usesConstantBlendFactor() {
			return true
		}
	}
	return false
}

// DynamicState enumerates the pipeline state flags that mark a field as
// dynamic, so the fingerprint engine omits it from hashing.
type DynamicState int32

const (
	DynamicViewport DynamicState = iota
	DynamicScissor
	DynamicLineWidth
	DynamicDepthBias
	DynamicBlendConstants
	DynamicDepthBounds
	DynamicStencilCompareMask
	DynamicStencilWriteMask
	DynamicStencilReference
)

type GraphicsPipeline struct {
	Flags         uint32
	Stages        []PipelineShaderStage
	VertexInput   *VertexInputState
	InputAssembly *InputAssemblyState
	Tessellation  *TessellationState // mixed whenever non-nil; the fingerprint does not check for a tessellation stage
	// Viewport is omitted entirely when both viewport and scissor are
	// dynamic (spec §4.1).
	Viewport     *ViewportState
	Rasterization *RasterizationState
	Multisample   *MultisampleState
	DepthStencil  *DepthStencilState
	ColorBlend    *ColorBlendState
	Dynamic       []DynamicState
	Layout        Hash
	RenderPass    Hash
	Subpass       uint32
	// BasePipeline is the hash of the base pipeline's interned create-info,
	// or zero if this pipeline has none. If the base was not yet interned
	// when this one is recorded, BaseHashOverride carries the caller's own
	// reported hash for the base (spec §4.2, supplemented feature 3).
	BasePipeline     Hash
	BaseHashOverride Hash
	BasePipelineIndex int32
	// Extensions is the pNext-style chained extension-struct list
	// (spec §4.3).
	Extensions []Extension
}

// HasDynamic reports whether state s is listed as dynamic.
func (g *GraphicsPipeline) HasDynamic(s DynamicState) bool {
	for _, d := range g.Dynamic {
		if d == s {
			return true
		}
	}
	return false
}

// EffectiveBaseHash resolves the base-pipeline dependency, preferring the
// real interned hash and falling back to the caller-supplied override
// (spec §4.2 "falls back to recording the base's own hash as reported by
// the caller").
func (g *GraphicsPipeline) EffectiveBaseHash() Hash {
	if !g.BasePipeline.IsZero() {
		return g.BasePipeline
	}
	return g.BaseHashOverride
}

type ComputePipeline struct {
	Flags             uint32
	Stage             PipelineShaderStage
	Layout            Hash
	BasePipeline      Hash
	BaseHashOverride  Hash
	BasePipelineIndex int32
}

func (c *ComputePipeline) EffectiveBaseHash() Hash {
	if !c.BasePipeline.IsZero() {
		return c.BasePipeline
	}
	return c.BaseHashOverride
}

type RaytracingShaderGroup struct {
	Type         int32
	General      uint32
	ClosestHit   uint32
	AnyHit       uint32
	Intersection uint32
}

type RaytracingPipeline struct {
	Flags             uint32
	Stages            []PipelineShaderStage
	Groups            []RaytracingShaderGroup
	MaxRecursionDepth uint32
	Layout            Hash
	BasePipeline      Hash
	BaseHashOverride  Hash
	BasePipelineIndex int32
}

func (r *RaytracingPipeline) EffectiveBaseHash() Hash {
	if !r.BasePipeline.IsZero() {
		return r.BasePipeline
	}
	return r.BaseHashOverride
}

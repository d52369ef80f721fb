package fingerprint

import "github.com/nmxmxh/fossilize/internal/model"

// ApplicationInfo fingerprints an application/engine identity.
func ApplicationInfo(a *model.ApplicationInfo) model.Hash {
	m := New()
	m.String(a.ApplicationName)
	m.U32(a.ApplicationVersion)
	m.String(a.EngineName)
	m.U32(a.EngineVersion)
	m.U32(a.APIVersion)
	return m.Sum()
}

// Sampler fingerprints a sampler, omitting anisotropy/compare fields the
// corresponding enable flag makes irrelevant (spec §4.1).
func Sampler(s *model.Sampler) model.Hash {
	m := New()
	m.U32(s.Flags)
	m.I32(s.MagFilter)
	m.I32(s.MinFilter)
	m.I32(s.MipmapMode)
	m.I32(s.AddressModeU)
	m.I32(s.AddressModeV)
	m.I32(s.AddressModeW)
	m.F32(s.MipLodBias)
	m.Bool(s.AnisotropyEnable)
	if s.AnisotropyEnable {
		m.F32(s.MaxAnisotropy)
	}
	m.Bool(s.CompareEnable)
	if s.CompareEnable {
		m.I32(s.CompareOp)
	}
	m.F32(s.MinLod)
	m.F32(s.MaxLod)
	m.I32(s.BorderColor)
	m.Bool(s.UnnormalizedCoordinates)
	return m.Sum()
}

func mixImmutableSamplers(m *Mixer, hashes []model.Hash) {
	m.Len(len(hashes))
	for _, h := range hashes {
		m.MixHash(h)
	}
}

// DescriptorSetLayout fingerprints a set layout, expanding immutable
// sampler arrays to their hashes (spec §4.2 bullet 3).
func DescriptorSetLayout(d *model.DescriptorSetLayout) model.Hash {
	m := New()
	m.U32(d.Flags)
	m.Len(len(d.Bindings))
	for _, b := range d.Bindings {
		m.U32(b.Binding)
		m.I32(b.DescriptorType)
		m.U32(b.DescriptorCount)
		m.U32(b.StageFlags)
		mixImmutableSamplers(m, b.ImmutableSamplers)
	}
	return m.Sum()
}

// PipelineLayout fingerprints a pipeline layout, substituting the hash of
// each referenced descriptor set layout.
func PipelineLayout(p *model.PipelineLayout) model.Hash {
	m := New()
	m.U32(p.Flags)
	m.Len(len(p.SetLayouts))
	for _, h := range p.SetLayouts {
		m.MixHash(h)
	}
	m.Len(len(p.PushConstantRanges))
	for _, r := range p.PushConstantRanges {
		m.U32(r.StageFlags)
		m.U32(r.Offset)
		m.U32(r.Size)
	}
	return m.Sum()
}

// ShaderModule fingerprints either the SPIR-V word stream or the
// driver-opaque identifier bytes — never both, and never the algorithm
// UUID (spec §4.2 bullet 4: "the hash is computed over the identifier
// bytes").
func ShaderModule(s *model.ShaderModule) model.Hash {
	m := New()
	m.U32(s.Flags)
	if s.UsesIdentifier() {
		m.Bool(true)
		m.Len(len(s.Identifier))
		for _, b := range s.Identifier {
			m.word(uint32(b))
		}
		return m.Sum()
	}
	m.Bool(false)
	m.Len(len(s.SPIRV))
	for _, w := range s.SPIRV {
		m.U32(w)
	}
	return m.Sum()
}

func mixAttachmentRef(m *Mixer, r model.AttachmentReference) {
	m.U32(r.Attachment)
	m.I32(r.Layout)
}

// RenderPass fingerprints attachments, subpasses and dependencies in
// declaration order.
func RenderPass(r *model.RenderPass) model.Hash {
	m := New()
	m.U32(r.Flags)
	m.Len(len(r.Attachments))
	for _, a := range r.Attachments {
		m.U32(a.Flags)
		m.I32(a.Format)
		m.I32(a.Samples)
		m.I32(a.LoadOp)
		m.I32(a.StoreOp)
		m.I32(a.StencilLoadOp)
		m.I32(a.StencilStoreOp)
		m.I32(a.InitialLayout)
		m.I32(a.FinalLayout)
	}
	m.Len(len(r.Subpasses))
	for _, s := range r.Subpasses {
		m.U32(s.Flags)
		m.I32(s.PipelineBindPoint)
		m.Len(len(s.InputAttachments))
		for _, a := range s.InputAttachments {
			mixAttachmentRef(m, a)
		}
		m.Len(len(s.ColorAttachments))
		for _, a := range s.ColorAttachments {
			mixAttachmentRef(m, a)
		}
		m.Len(len(s.ResolveAttachments))
		for _, a := range s.ResolveAttachments {
			mixAttachmentRef(m, a)
		}
		if s.DepthStencilAttachment == nil {
			m.Absent()
		} else {
			mixAttachmentRef(m, *s.DepthStencilAttachment)
		}
		m.Len(len(s.PreserveAttachments))
		for _, p := range s.PreserveAttachments {
			m.U32(p)
		}
	}
	m.Len(len(r.Dependencies))
	for _, d := range r.Dependencies {
		m.U32(d.SrcSubpass)
		m.U32(d.DstSubpass)
		m.U32(d.SrcStageMask)
		m.U32(d.DstStageMask)
		m.U32(d.SrcAccessMask)
		m.U32(d.DstAccessMask)
		m.U32(d.DependencyFlags)
	}
	return m.Sum()
}

func mixShaderStage(m *Mixer, s model.PipelineShaderStage) {
	m.U32(s.Stage)
	m.MixHash(s.Module)
	m.String(s.EntryPoint)
}

func mixStages(m *Mixer, stages []model.PipelineShaderStage) {
	m.Len(len(stages))
	for _, s := range stages {
		mixShaderStage(m, s)
	}
}

func mixVertexInput(m *Mixer, v *model.VertexInputState) {
	if v == nil {
		m.Absent()
		return
	}
	m.Len(len(v.Bindings))
	for _, b := range v.Bindings {
		m.U32(b.Binding)
		m.U32(b.Stride)
		m.I32(b.InputRate)
	}
	m.Len(len(v.Attributes))
	for _, a := range v.Attributes {
		m.U32(a.Location)
		m.U32(a.Binding)
		m.I32(a.Format)
		m.U32(a.Offset)
	}
}

func mixInputAssembly(m *Mixer, a *model.InputAssemblyState) {
	if a == nil {
		m.Absent()
		return
	}
	m.I32(a.Topology)
	m.Bool(a.PrimitiveRestartEnable)
}

func mixTessellation(m *Mixer, t *model.TessellationState) {
	if t == nil {
		m.Absent()
		return
	}
	m.U32(t.PatchControlPoints)
}

// mixViewport omits the whole viewport/scissor block when both counts are
// dynamic (spec §4.1, §8 property 4).
func mixViewport(m *Mixer, v *model.ViewportState, dynamicViewport, dynamicScissor bool) {
	if v == nil || (dynamicViewport && dynamicScissor) {
		m.Absent()
		return
	}
	if !dynamicViewport {
		m.Len(len(v.Viewports))
		for _, vp := range v.Viewports {
			m.F32(vp.X)
			m.F32(vp.Y)
			m.F32(vp.Width)
			m.F32(vp.Height)
			m.F32(vp.MinDepth)
			m.F32(vp.MaxDepth)
		}
	} else {
		m.Len(0)
	}
	if !dynamicScissor {
		m.Len(len(v.Scissors))
		for _, sc := range v.Scissors {
			m.I32(sc.X)
			m.I32(sc.Y)
			m.U32(sc.Width)
			m.U32(sc.Height)
		}
	} else {
		m.Len(0)
	}
}

func mixRasterization(m *Mixer, r *model.RasterizationState, dynamicLineWidth, dynamicDepthBias bool) {
	if r == nil {
		m.Absent()
		return
	}
	m.Bool(r.DepthClampEnable)
	m.Bool(r.RasterizerDiscardEnable)
	m.I32(r.PolygonMode)
	m.U32(r.CullMode)
	m.I32(r.FrontFace)
	m.Bool(r.DepthBiasEnable)
	if r.DepthBiasEnable && !dynamicDepthBias {
		m.F32(r.DepthBiasConstantFactor)
		m.F32(r.DepthBiasClamp)
		m.F32(r.DepthBiasSlopeFactor)
	}
	if !dynamicLineWidth {
		m.F32(r.LineWidth)
	}
}

func mixMultisample(m *Mixer, ms *model.MultisampleState) {
	if ms == nil {
		m.Absent()
		return
	}
	m.I32(ms.RasterizationSamples)
	m.Bool(ms.SampleShadingEnable)
	if ms.SampleShadingEnable {
		m.F32(ms.MinSampleShading)
	}
	m.Len(len(ms.SampleMask))
	for _, w := range ms.SampleMask {
		m.U32(w)
	}
	m.Bool(ms.AlphaToCoverageEnable)
	m.Bool(ms.AlphaToOneEnable)
}

func mixStencilOp(m *Mixer, s model.StencilOpState, dynamicMask bool) {
	m.I32(s.FailOp)
	m.I32(s.PassOp)
	m.I32(s.DepthFailOp)
	m.I32(s.CompareOp)
	if !dynamicMask {
		m.U32(s.CompareMask)
		m.U32(s.WriteMask)
		m.U32(s.Reference)
	}
}

func mixDepthStencil(m *Mixer, ds *model.DepthStencilState, dynamicMask bool) {
	if ds == nil {
		m.Absent()
		return
	}
	m.Bool(ds.DepthTestEnable)
	if ds.DepthTestEnable {
		m.Bool(ds.DepthWriteEnable)
		m.I32(ds.DepthCompareOp)
	}
	m.Bool(ds.DepthBoundsTestEnable)
	if ds.DepthBoundsTestEnable {
		m.F32(ds.MinDepthBounds)
		m.F32(ds.MaxDepthBounds)
	}
	m.Bool(ds.StencilTestEnable)
	if ds.StencilTestEnable {
		mixStencilOp(m, ds.Front, dynamicMask)
		mixStencilOp(m, ds.Back, dynamicMask)
	}
}

func mixColorBlend(m *Mixer, c *model.ColorBlendState, dynamicConstants bool) {
	if c == nil {
		m.Absent()
		return
	}
	m.Bool(c.LogicOpEnable)
	if c.LogicOpEnable {
		m.I32(c.LogicOp)
	}
	m.Len(len(c.Attachments))
	for _, a := range c.Attachments {
		m.Bool(a.BlendEnable)
		if a.BlendEnable {
			m.I32(a.SrcColorBlendFactor)
			m.I32(a.DstColorBlendFactor)
			m.I32(a.ColorBlendOp)
			m.I32(a.SrcAlphaBlendFactor)
			m.I32(a.DstAlphaBlendFactor)
			m.I32(a.AlphaBlendOp)
		}
		m.U32(a.ColorWriteMask)
	}
	// BlendConstants only matter if some attachment actually samples the
	// constant factor and the state is not dynamic (spec §8 scenario S6).
	if c.UsesConstantBlend() && !dynamicConstants {
		for _, v := range c.BlendConstants {
			m.F32(v)
		}
	}
}

func mixDynamicState(m *Mixer, dyn []model.DynamicState) {
	m.Len(len(dyn))
	for _, d := range dyn {
		m.I32(int32(d))
	}
}

// GraphicsPipeline fingerprints a graphics pipeline, applying every
// dynamic-state/disabled-feature omission rule from spec §4.1 so that two
// create-infos differing only in now-irrelevant fields hash identically.
func GraphicsPipeline(g *model.GraphicsPipeline) model.Hash {
	m := New()
	m.U32(g.Flags)
	mixStages(m, g.Stages)
	mixVertexInput(m, g.VertexInput)
	mixInputAssembly(m, g.InputAssembly)
	mixTessellation(m, g.Tessellation)

	dynViewport := g.HasDynamic(model.DynamicViewport)
	dynScissor := g.HasDynamic(model.DynamicScissor)
	dynLineWidth := g.HasDynamic(model.DynamicLineWidth)
	dynDepthBias := g.HasDynamic(model.DynamicDepthBias)
	dynBlendConstants := g.HasDynamic(model.DynamicBlendConstants)
	dynStencilMask := g.HasDynamic(model.DynamicStencilCompareMask) ||
		g.HasDynamic(model.DynamicStencilWriteMask) ||
		g.HasDynamic(model.DynamicStencilReference)

	mixViewport(m, g.Viewport, dynViewport, dynScissor)
	mixRasterization(m, g.Rasterization, dynLineWidth, dynDepthBias)
	mixMultisample(m, g.Multisample)
	mixDepthStencil(m, g.DepthStencil, dynStencilMask)
	mixColorBlend(m, g.ColorBlend, dynBlendConstants)
	mixDynamicState(m, g.Dynamic)

	m.MixHash(g.Layout)
	m.MixHash(g.RenderPass)
	m.U32(g.Subpass)
	m.MixHash(g.EffectiveBaseHash())
	mixExtensions(m, g.Extensions)
	return m.Sum()
}

// mixExtensions mixes a chained extension-struct list in declaration order
// with a length prefix (spec §4.1 "Arrays and chained extension structs
// are mixed in declaration order with their length prefix").
func mixExtensions(m *Mixer, exts []model.Extension) {
	m.Len(len(exts))
	for _, e := range exts {
		m.U32(e.Type)
		m.Len(len(e.Body))
		for _, b := range e.Body {
			m.word(uint32(b))
		}
	}
}

// ComputePipeline fingerprints a compute pipeline.
func ComputePipeline(c *model.ComputePipeline) model.Hash {
	m := New()
	m.U32(c.Flags)
	mixShaderStage(m, c.Stage)
	m.MixHash(c.Layout)
	m.MixHash(c.EffectiveBaseHash())
	return m.Sum()
}

// RaytracingPipeline fingerprints a raytracing pipeline.
func RaytracingPipeline(r *model.RaytracingPipeline) model.Hash {
	m := New()
	m.U32(r.Flags)
	mixStages(m, r.Stages)
	m.Len(len(r.Groups))
	for _, g := range r.Groups {
		m.I32(g.Type)
		m.U32(g.General)
		m.U32(g.ClosestHit)
		m.U32(g.AnyHit)
		m.U32(g.Intersection)
	}
	m.U32(r.MaxRecursionDepth)
	m.MixHash(r.Layout)
	m.MixHash(r.EffectiveBaseHash())
	return m.Sum()
}

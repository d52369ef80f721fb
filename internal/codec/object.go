// Encode/decode pairs for every normalized create-info in internal/model.
// Unlike the fingerprint mixer (internal/fingerprint), the codec never
// omits a field: decode(encode(c)) == c must hold structure-by-structure
// for every field, including ones the fingerprint treats as irrelevant
// (spec §8 property 1). Field order mirrors internal/model/createinfo.go.
package codec

import (
	"github.com/nmxmxh/fossilize/internal/errutil"
	"github.com/nmxmxh/fossilize/internal/model"
)

// EncodeObject dispatches to the per-tag encoder and wraps the result in
// the blob header.
func EncodeObject(tag model.Tag, obj any) ([]byte, error) {
	e := NewEncoder()
	switch tag {
	case model.TagApplicationInfo:
		encodeApplicationInfo(e, obj.(*model.ApplicationInfo))
	case model.TagApplicationBlobLink:
		encodeApplicationBlobLink(e, obj.(*model.ApplicationBlobLink))
	case model.TagShaderModule:
		encodeShaderModule(e, obj.(*model.ShaderModule))
	case model.TagSampler:
		encodeSampler(e, obj.(*model.Sampler))
	case model.TagDescriptorSetLayout:
		encodeDescriptorSetLayout(e, obj.(*model.DescriptorSetLayout))
	case model.TagPipelineLayout:
		encodePipelineLayout(e, obj.(*model.PipelineLayout))
	case model.TagRenderPass:
		encodeRenderPass(e, obj.(*model.RenderPass))
	case model.TagGraphicsPipeline:
		encodeGraphicsPipeline(e, obj.(*model.GraphicsPipeline))
	case model.TagComputePipeline:
		encodeComputePipeline(e, obj.(*model.ComputePipeline))
	case model.TagRaytracingPipeline:
		encodeRaytracingPipeline(e, obj.(*model.RaytracingPipeline))
	default:
		return nil, &errutil.ParseError{Reason: "unknown resource tag"}
	}
	return EncodeBlob(tag, e.Bytes()), nil
}

// DecodeObject parses a full blob (header + body) back into the matching
// model struct. The tag returned is the one declared in the header.
func DecodeObject(buf []byte) (model.Tag, any, error) {
	tag, _, body, err := DecodeBlobHeader(buf)
	if err != nil {
		return 0, nil, err
	}
	d := NewDecoder(body)
	var obj any
	switch tag {
	case model.TagApplicationInfo:
		obj, err = decodeApplicationInfo(d)
	case model.TagApplicationBlobLink:
		obj, err = decodeApplicationBlobLink(d)
	case model.TagShaderModule:
		obj, err = decodeShaderModule(d)
	case model.TagSampler:
		obj, err = decodeSampler(d)
	case model.TagDescriptorSetLayout:
		obj, err = decodeDescriptorSetLayout(d)
	case model.TagPipelineLayout:
		obj, err = decodePipelineLayout(d)
	case model.TagRenderPass:
		obj, err = decodeRenderPass(d)
	case model.TagGraphicsPipeline:
		obj, err = decodeGraphicsPipeline(d)
	case model.TagComputePipeline:
		obj, err = decodeComputePipeline(d)
	case model.TagRaytracingPipeline:
		obj, err = decodeRaytracingPipeline(d)
	default:
		return 0, nil, &errutil.ParseError{Reason: "unknown resource tag"}
	}
	if err != nil {
		return 0, nil, err
	}
	if !d.AtEnd() {
		return 0, nil, &errutil.ParseError{Reason: "trailing garbage after object body"}
	}
	return tag, obj, nil
}

func encodeApplicationInfo(e *Encoder, a *model.ApplicationInfo) {
	e.WriteString(a.ApplicationName)
	e.U32(a.ApplicationVersion)
	e.WriteString(a.EngineName)
	e.U32(a.EngineVersion)
	e.U32(a.APIVersion)
}

func decodeApplicationInfo(d *Decoder) (*model.ApplicationInfo, error) {
	a := &model.ApplicationInfo{}
	var err error
	if a.ApplicationName, err = d.ReadString(); err != nil {
		return nil, err
	}
	if a.ApplicationVersion, err = d.U32(); err != nil {
		return nil, err
	}
	if a.EngineName, err = d.ReadString(); err != nil {
		return nil, err
	}
	if a.EngineVersion, err = d.U32(); err != nil {
		return nil, err
	}
	if a.APIVersion, err = d.U32(); err != nil {
		return nil, err
	}
	return a, nil
}

func encodeApplicationBlobLink(e *Encoder, l *model.ApplicationBlobLink) {
	e.Hash(l.LinkedApplication)
	e.WriteBytes(l.Payload)
}

func decodeApplicationBlobLink(d *Decoder) (*model.ApplicationBlobLink, error) {
	l := &model.ApplicationBlobLink{}
	var err error
	if l.LinkedApplication, err = d.ReadHash(); err != nil {
		return nil, err
	}
	if l.Payload, err = d.ReadBytes(); err != nil {
		return nil, err
	}
	return l, nil
}

func encodeShaderModule(e *Encoder, s *model.ShaderModule) {
	e.U32(s.Flags)
	e.Bool(s.UsesIdentifier())
	if s.UsesIdentifier() {
		e.WriteBytes(s.Identifier)
		e.buf = append(e.buf, s.IdentifierAlgorithm[:]...)
	} else {
		e.SPIRV(s.SPIRV)
	}
}

func decodeShaderModule(d *Decoder) (*model.ShaderModule, error) {
	s := &model.ShaderModule{}
	var err error
	if s.Flags, err = d.U32(); err != nil {
		return nil, err
	}
	usesID, err := d.Bool()
	if err != nil {
		return nil, err
	}
	if usesID {
		if s.Identifier, err = d.ReadBytes(); err != nil {
			return nil, err
		}
		if err := d.need(16); err != nil {
			return nil, err
		}
		copy(s.IdentifierAlgorithm[:], d.buf[d.off:d.off+16])
		d.off += 16
		return s, nil
	}
	if s.SPIRV, err = d.SPIRV(); err != nil {
		return nil, err
	}
	return s, nil
}

func encodeSampler(e *Encoder, s *model.Sampler) {
	e.U32(s.Flags)
	e.I32(s.MagFilter)
	e.I32(s.MinFilter)
	e.I32(s.MipmapMode)
	e.I32(s.AddressModeU)
	e.I32(s.AddressModeV)
	e.I32(s.AddressModeW)
	e.F32(s.MipLodBias)
	e.Bool(s.AnisotropyEnable)
	e.F32(s.MaxAnisotropy)
	e.Bool(s.CompareEnable)
	e.I32(s.CompareOp)
	e.F32(s.MinLod)
	e.F32(s.MaxLod)
	e.I32(s.BorderColor)
	e.Bool(s.UnnormalizedCoordinates)
}

func decodeSampler(d *Decoder) (*model.Sampler, error) {
	s := &model.Sampler{}
	var err error
	if s.Flags, err = d.U32(); err != nil {
		return nil, err
	}
	if s.MagFilter, err = d.I32(); err != nil {
		return nil, err
	}
	if s.MinFilter, err = d.I32(); err != nil {
		return nil, err
	}
	if s.MipmapMode, err = d.I32(); err != nil {
		return nil, err
	}
	if s.AddressModeU, err = d.I32(); err != nil {
		return nil, err
	}
	if s.AddressModeV, err = d.I32(); err != nil {
		return nil, err
	}
	if s.AddressModeW, err = d.I32(); err != nil {
		return nil, err
	}
	if s.MipLodBias, err = d.F32(); err != nil {
		return nil, err
	}
	if s.AnisotropyEnable, err = d.Bool(); err != nil {
		return nil, err
	}
	if s.MaxAnisotropy, err = d.F32(); err != nil {
		return nil, err
	}
	if s.CompareEnable, err = d.Bool(); err != nil {
		return nil, err
	}
	if s.CompareOp, err = d.I32(); err != nil {
		return nil, err
	}
	if s.MinLod, err = d.F32(); err != nil {
		return nil, err
	}
	if s.MaxLod, err = d.F32(); err != nil {
		return nil, err
	}
	if s.BorderColor, err = d.I32(); err != nil {
		return nil, err
	}
	if s.UnnormalizedCoordinates, err = d.Bool(); err != nil {
		return nil, err
	}
	return s, nil
}

func encodeDescriptorBinding(e *Encoder, b model.DescriptorBinding) {
	e.U32(b.Binding)
	e.I32(b.DescriptorType)
	e.U32(b.DescriptorCount)
	e.U32(b.StageFlags)
	e.Len(len(b.ImmutableSamplers))
	for _, h := range b.ImmutableSamplers {
		e.Hash(h)
	}
}

func decodeDescriptorBinding(d *Decoder) (model.DescriptorBinding, error) {
	var b model.DescriptorBinding
	var err error
	if b.Binding, err = d.U32(); err != nil {
		return b, err
	}
	if b.DescriptorType, err = d.I32(); err != nil {
		return b, err
	}
	if b.DescriptorCount, err = d.U32(); err != nil {
		return b, err
	}
	if b.StageFlags, err = d.U32(); err != nil {
		return b, err
	}
	n, err := d.Len()
	if err != nil {
		return b, err
	}
	if n > 0 {
		b.ImmutableSamplers = make([]model.Hash, n)
		for i := range b.ImmutableSamplers {
			if b.ImmutableSamplers[i], err = d.ReadHash(); err != nil {
				return b, err
			}
		}
	}
	return b, nil
}

func encodeDescriptorSetLayout(e *Encoder, s *model.DescriptorSetLayout) {
	e.U32(s.Flags)
	e.Len(len(s.Bindings))
	for _, b := range s.Bindings {
		encodeDescriptorBinding(e, b)
	}
}

func decodeDescriptorSetLayout(d *Decoder) (*model.DescriptorSetLayout, error) {
	s := &model.DescriptorSetLayout{}
	var err error
	if s.Flags, err = d.U32(); err != nil {
		return nil, err
	}
	n, err := d.Len()
	if err != nil {
		return nil, err
	}
	if n > 0 {
		s.Bindings = make([]model.DescriptorBinding, n)
		for i := range s.Bindings {
			if s.Bindings[i], err = decodeDescriptorBinding(d); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

func encodePipelineLayout(e *Encoder, p *model.PipelineLayout) {
	e.U32(p.Flags)
	e.Len(len(p.SetLayouts))
	for _, h := range p.SetLayouts {
		e.Hash(h)
	}
	e.Len(len(p.PushConstantRanges))
	for _, r := range p.PushConstantRanges {
		e.U32(r.StageFlags)
		e.U32(r.Offset)
		e.U32(r.Size)
	}
}

func decodePipelineLayout(d *Decoder) (*model.PipelineLayout, error) {
	p := &model.PipelineLayout{}
	var err error
	if p.Flags, err = d.U32(); err != nil {
		return nil, err
	}
	n, err := d.Len()
	if err != nil {
		return nil, err
	}
	if n > 0 {
		p.SetLayouts = make([]model.Hash, n)
		for i := range p.SetLayouts {
			if p.SetLayouts[i], err = d.ReadHash(); err != nil {
				return nil, err
			}
		}
	}
	m, err := d.Len()
	if err != nil {
		return nil, err
	}
	if m > 0 {
		p.PushConstantRanges = make([]model.PushConstantRange, m)
		for i := range p.PushConstantRanges {
			if p.PushConstantRanges[i].StageFlags, err = d.U32(); err != nil {
				return nil, err
			}
			if p.PushConstantRanges[i].Offset, err = d.U32(); err != nil {
				return nil, err
			}
			if p.PushConstantRanges[i].Size, err = d.U32(); err != nil {
				return nil, err
			}
		}
	}
	return p, nil
}

func encodeAttachmentDescription(e *Encoder, a model.AttachmentDescription) {
	e.U32(a.Flags)
	e.I32(a.Format)
	e.I32(a.Samples)
	e.I32(a.LoadOp)
	e.I32(a.StoreOp)
	e.I32(a.StencilLoadOp)
	e.I32(a.StencilStoreOp)
	e.I32(a.InitialLayout)
	e.I32(a.FinalLayout)
}

func decodeAttachmentDescription(d *Decoder) (model.AttachmentDescription, error) {
	var a model.AttachmentDescription
	var err error
	if a.Flags, err = d.U32(); err != nil {
		return a, err
	}
	if a.Format, err = d.I32(); err != nil {
		return a, err
	}
	if a.Samples, err = d.I32(); err != nil {
		return a, err
	}
	if a.LoadOp, err = d.I32(); err != nil {
		return a, err
	}
	if a.StoreOp, err = d.I32(); err != nil {
		return a, err
	}
	if a.StencilLoadOp, err = d.I32(); err != nil {
		return a, err
	}
	if a.StencilStoreOp, err = d.I32(); err != nil {
		return a, err
	}
	if a.InitialLayout, err = d.I32(); err != nil {
		return a, err
	}
	if a.FinalLayout, err = d.I32(); err != nil {
		return a, err
	}
	return a, nil
}

func encodeAttachmentRef(e *Encoder, r model.AttachmentReference) {
	e.U32(r.Attachment)
	e.I32(r.Layout)
}

func decodeAttachmentRef(d *Decoder) (model.AttachmentReference, error) {
	var r model.AttachmentReference
	var err error
	if r.Attachment, err = d.U32(); err != nil {
		return r, err
	}
	if r.Layout, err = d.I32(); err != nil {
		return r, err
	}
	return r, nil
}

func encodeAttachmentRefs(e *Encoder, refs []model.AttachmentReference) {
	e.Len(len(refs))
	for _, r := range refs {
		encodeAttachmentRef(e, r)
	}
}

func decodeAttachmentRefs(d *Decoder) ([]model.AttachmentReference, error) {
	n, err := d.Len()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	refs := make([]model.AttachmentReference, n)
	for i := range refs {
		if refs[i], err = decodeAttachmentRef(d); err != nil {
			return nil, err
		}
	}
	return refs, nil
}

func encodeSubpass(e *Encoder, s model.SubpassDescription) {
	e.U32(s.Flags)
	e.I32(s.PipelineBindPoint)
	encodeAttachmentRefs(e, s.InputAttachments)
	encodeAttachmentRefs(e, s.ColorAttachments)
	encodeAttachmentRefs(e, s.ResolveAttachments)
	e.Present(s.DepthStencilAttachment != nil)
	if s.DepthStencilAttachment != nil {
		encodeAttachmentRef(e, *s.DepthStencilAttachment)
	}
	e.Len(len(s.PreserveAttachments))
	for _, p := range s.PreserveAttachments {
		e.U32(p)
	}
}

func decodeSubpass(d *Decoder) (model.SubpassDescription, error) {
	var s model.SubpassDescription
	var err error
	if s.Flags, err = d.U32(); err != nil {
		return s, err
	}
	if s.PipelineBindPoint, err = d.I32(); err != nil {
		return s, err
	}
	if s.InputAttachments, err = decodeAttachmentRefs(d); err != nil {
		return s, err
	}
	if s.ColorAttachments, err = decodeAttachmentRefs(d); err != nil {
		return s, err
	}
	if s.ResolveAttachments, err = decodeAttachmentRefs(d); err != nil {
		return s, err
	}
	present, err := d.Present()
	if err != nil {
		return s, err
	}
	if present {
		ref, err := decodeAttachmentRef(d)
		if err != nil {
			return s, err
		}
		s.DepthStencilAttachment = &ref
	}
	n, err := d.Len()
	if err != nil {
		return s, err
	}
	if n > 0 {
		s.PreserveAttachments = make([]uint32, n)
		for i := range s.PreserveAttachments {
			if s.PreserveAttachments[i], err = d.U32(); err != nil {
				return s, err
			}
		}
	}
	return s, nil
}

func encodeRenderPass(e *Encoder, r *model.RenderPass) {
	e.U32(r.Flags)
	e.Len(len(r.Attachments))
	for _, a := range r.Attachments {
		encodeAttachmentDescription(e, a)
	}
	e.Len(len(r.Subpasses))
	for _, s := range r.Subpasses {
		encodeSubpass(e, s)
	}
	e.Len(len(r.Dependencies))
	for _, dep := range r.Dependencies {
		e.U32(dep.SrcSubpass)
		e.U32(dep.DstSubpass)
		e.U32(dep.SrcStageMask)
		e.U32(dep.DstStageMask)
		e.U32(dep.SrcAccessMask)
		e.U32(dep.DstAccessMask)
		e.U32(dep.DependencyFlags)
	}
}

func decodeRenderPass(d *Decoder) (*model.RenderPass, error) {
	r := &model.RenderPass{}
	var err error
	if r.Flags, err = d.U32(); err != nil {
		return nil, err
	}
	n, err := d.Len()
	if err != nil {
		return nil, err
	}
	if n > 0 {
		r.Attachments = make([]model.AttachmentDescription, n)
		for i := range r.Attachments {
			if r.Attachments[i], err = decodeAttachmentDescription(d); err != nil {
				return nil, err
			}
		}
	}
	m, err := d.Len()
	if err != nil {
		return nil, err
	}
	if m > 0 {
		r.Subpasses = make([]model.SubpassDescription, m)
		for i := range r.Subpasses {
			if r.Subpasses[i], err = decodeSubpass(d); err != nil {
				return nil, err
			}
		}
	}
	k, err := d.Len()
	if err != nil {
		return nil, err
	}
	if k > 0 {
		r.Dependencies = make([]model.SubpassDependency, k)
		for i := range r.Dependencies {
			dep := &r.Dependencies[i]
			if dep.SrcSubpass, err = d.U32(); err != nil {
				return nil, err
			}
			if dep.DstSubpass, err = d.U32(); err != nil {
				return nil, err
			}
			if dep.SrcStageMask, err = d.U32(); err != nil {
				return nil, err
			}
			if dep.DstStageMask, err = d.U32(); err != nil {
				return nil, err
			}
			if dep.SrcAccessMask, err = d.U32(); err != nil {
				return nil, err
			}
			if dep.DstAccessMask, err = d.U32(); err != nil {
				return nil, err
			}
			if dep.DependencyFlags, err = d.U32(); err != nil {
				return nil, err
			}
		}
	}
	return r, nil
}

func encodeShaderStage(e *Encoder, s model.PipelineShaderStage) {
	e.U32(s.Stage)
	e.Hash(s.Module)
	e.WriteString(s.EntryPoint)
}

func decodeShaderStage(d *Decoder) (model.PipelineShaderStage, error) {
	var s model.PipelineShaderStage
	var err error
	if s.Stage, err = d.U32(); err != nil {
		return s, err
	}
	if s.Module, err = d.ReadHash(); err != nil {
		return s, err
	}
	if s.EntryPoint, err = d.ReadString(); err != nil {
		return s, err
	}
	return s, nil
}

func encodeShaderStages(e *Encoder, stages []model.PipelineShaderStage) {
	e.Len(len(stages))
	for _, s := range stages {
		encodeShaderStage(e, s)
	}
}

func decodeShaderStages(d *Decoder) ([]model.PipelineShaderStage, error) {
	n, err := d.Len()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	stages := make([]model.PipelineShaderStage, n)
	for i := range stages {
		if stages[i], err = decodeShaderStage(d); err != nil {
			return nil, err
		}
	}
	return stages, nil
}

func encodeVertexInput(e *Encoder, v *model.VertexInputState) {
	e.Present(v != nil)
	if v == nil {
		return
	}
	e.Len(len(v.Bindings))
	for _, b := range v.Bindings {
		e.U32(b.Binding)
		e.U32(b.Stride)
		e.I32(b.InputRate)
	}
	e.Len(len(v.Attributes))
	for _, a := range v.Attributes {
		e.U32(a.Location)
		e.U32(a.Binding)
		e.I32(a.Format)
		e.U32(a.Offset)
	}
}

func decodeVertexInput(d *Decoder) (*model.VertexInputState, error) {
	present, err := d.Present()
	if err != nil || !present {
		return nil, err
	}
	v := &model.VertexInputState{}
	n, err := d.Len()
	if err != nil {
		return nil, err
	}
	if n > 0 {
		v.Bindings = make([]model.VertexInputBinding, n)
		for i := range v.Bindings {
			if v.Bindings[i].Binding, err = d.U32(); err != nil {
				return nil, err
			}
			if v.Bindings[i].Stride, err = d.U32(); err != nil {
				return nil, err
			}
			if v.Bindings[i].InputRate, err = d.I32(); err != nil {
				return nil, err
			}
		}
	}
	m, err := d.Len()
	if err != nil {
		return nil, err
	}
	if m > 0 {
		v.Attributes = make([]model.VertexInputAttribute, m)
		for i := range v.Attributes {
			if v.Attributes[i].Location, err = d.U32(); err != nil {
				return nil, err
			}
			if v.Attributes[i].Binding, err = d.U32(); err != nil {
				return nil, err
			}
			if v.Attributes[i].Format, err = d.I32(); err != nil {
				return nil, err
			}
			if v.Attributes[i].Offset, err = d.U32(); err != nil {
				return nil, err
			}
		}
	}
	return v, nil
}

func encodeInputAssembly(e *Encoder, a *model.InputAssemblyState) {
	e.Present(a != nil)
	if a == nil {
		return
	}
	e.I32(a.Topology)
	e.Bool(a.PrimitiveRestartEnable)
}

func decodeInputAssembly(d *Decoder) (*model.InputAssemblyState, error) {
	present, err := d.Present()
	if err != nil || !present {
		return nil, err
	}
	a := &model.InputAssemblyState{}
	if a.Topology, err = d.I32(); err != nil {
		return nil, err
	}
	if a.PrimitiveRestartEnable, err = d.Bool(); err != nil {
		return nil, err
	}
	return a, nil
}

func encodeTessellation(e *Encoder, t *model.TessellationState) {
	e.Present(t != nil)
	if t == nil {
		return
	}
	e.U32(t.PatchControlPoints)
}

func decodeTessellation(d *Decoder) (*model.TessellationState, error) {
	present, err := d.Present()
	if err != nil || !present {
		return nil, err
	}
	t := &model.TessellationState{}
	if t.PatchControlPoints, err = d.U32(); err != nil {
		return nil, err
	}
	return t, nil
}

func encodeViewport(e *Encoder, v *model.ViewportState) {
	e.Present(v != nil)
	if v == nil {
		return
	}
	e.Len(len(v.Viewports))
	for _, vp := range v.Viewports {
		e.F32(vp.X)
		e.F32(vp.Y)
		e.F32(vp.Width)
		e.F32(vp.Height)
		e.F32(vp.MinDepth)
		e.F32(vp.MaxDepth)
	}
	e.Len(len(v.Scissors))
	for _, sc := range v.Scissors {
		e.I32(sc.X)
		e.I32(sc.Y)
		e.U32(sc.Width)
		e.U32(sc.Height)
	}
}

func decodeViewport(d *Decoder) (*model.ViewportState, error) {
	present, err := d.Present()
	if err != nil || !present {
		return nil, err
	}
	v := &model.ViewportState{}
	n, err := d.Len()
	if err != nil {
		return nil, err
	}
	if n > 0 {
		v.Viewports = make([]model.Viewport, n)
		for i := range v.Viewports {
			vp := &v.Viewports[i]
			if vp.X, err = d.F32(); err != nil {
				return nil, err
			}
			if vp.Y, err = d.F32(); err != nil {
				return nil, err
			}
			if vp.Width, err = d.F32(); err != nil {
				return nil, err
			}
			if vp.Height, err = d.F32(); err != nil {
				return nil, err
			}
			if vp.MinDepth, err = d.F32(); err != nil {
				return nil, err
			}
			if vp.MaxDepth, err = d.F32(); err != nil {
				return nil, err
			}
		}
	}
	m, err := d.Len()
	if err != nil {
		return nil, err
	}
	if m > 0 {
		v.Scissors = make([]model.Rect2D, m)
		for i := range v.Scissors {
			sc := &v.Scissors[i]
			if sc.X, err = d.I32(); err != nil {
				return nil, err
			}
			if sc.Y, err = d.I32(); err != nil {
				return nil, err
			}
			if sc.Width, err = d.U32(); err != nil {
				return nil, err
			}
			if sc.Height, err = d.U32(); err != nil {
				return nil, err
			}
		}
	}
	return v, nil
}

func encodeRasterization(e *Encoder, r *model.RasterizationState) {
	e.Present(r != nil)
	if r == nil {
		return
	}
	e.Bool(r.DepthClampEnable)
	e.Bool(r.RasterizerDiscardEnable)
	e.I32(r.PolygonMode)
	e.U32(r.CullMode)
	e.I32(r.FrontFace)
	e.Bool(r.DepthBiasEnable)
	e.F32(r.DepthBiasConstantFactor)
	e.F32(r.DepthBiasClamp)
	e.F32(r.DepthBiasSlopeFactor)
	e.F32(r.LineWidth)
}

func decodeRasterization(d *Decoder) (*model.RasterizationState, error) {
	present, err := d.Present()
	if err != nil || !present {
		return nil, err
	}
	r := &model.RasterizationState{}
	if r.DepthClampEnable, err = d.Bool(); err != nil {
		return nil, err
	}
	if r.RasterizerDiscardEnable, err = d.Bool(); err != nil {
		return nil, err
	}
	if r.PolygonMode, err = d.I32(); err != nil {
		return nil, err
	}
	if r.CullMode, err = d.U32(); err != nil {
		return nil, err
	}
	if r.FrontFace, err = d.I32(); err != nil {
		return nil, err
	}
	if r.DepthBiasEnable, err = d.Bool(); err != nil {
		return nil, err
	}
	if r.DepthBiasConstantFactor, err = d.F32(); err != nil {
		return nil, err
	}
	if r.DepthBiasClamp, err = d.F32(); err != nil {
		return nil, err
	}
	if r.DepthBiasSlopeFactor, err = d.F32(); err != nil {
		return nil, err
	}
	if r.LineWidth, err = d.F32(); err != nil {
		return nil, err
	}
	return r, nil
}

func encodeMultisample(e *Encoder, ms *model.MultisampleState) {
	e.Present(ms != nil)
	if ms == nil {
		return
	}
	e.I32(ms.RasterizationSamples)
	e.Bool(ms.SampleShadingEnable)
	e.F32(ms.MinSampleShading)
	e.Len(len(ms.SampleMask))
	for _, w := range ms.SampleMask {
		e.U32(w)
	}
	e.Bool(ms.AlphaToCoverageEnable)
	e.Bool(ms.AlphaToOneEnable)
}

func decodeMultisample(d *Decoder) (*model.MultisampleState, error) {
	present, err := d.Present()
	if err != nil || !present {
		return nil, err
	}
	ms := &model.MultisampleState{}
	if ms.RasterizationSamples, err = d.I32(); err != nil {
		return nil, err
	}
	if ms.SampleShadingEnable, err = d.Bool(); err != nil {
		return nil, err
	}
	if ms.MinSampleShading, err = d.F32(); err != nil {
		return nil, err
	}
	n, err := d.Len()
	if err != nil {
		return nil, err
	}
	if n > 0 {
		ms.SampleMask = make([]uint32, n)
		for i := range ms.SampleMask {
			if ms.SampleMask[i], err = d.U32(); err != nil {
				return nil, err
			}
		}
	}
	if ms.AlphaToCoverageEnable, err = d.Bool(); err != nil {
		return nil, err
	}
	if ms.AlphaToOneEnable, err = d.Bool(); err != nil {
		return nil, err
	}
	return ms, nil
}

func encodeStencilOp(e *Encoder, s model.StencilOpState) {
	e.I32(s.FailOp)
	e.I32(s.PassOp)
	e.I32(s.DepthFailOp)
	e.I32(s.CompareOp)
	e.U32(s.CompareMask)
	e.U32(s.WriteMask)
	e.U32(s.Reference)
}

func decodeStencilOp(d *Decoder) (model.StencilOpState, error) {
	var s model.StencilOpState
	var err error
	if s.FailOp, err = d.I32(); err != nil {
		return s, err
	}
	if s.PassOp, err = d.I32(); err != nil {
		return s, err
	}
	if s.DepthFailOp, err = d.I32(); err != nil {
		return s, err
	}
	if s.CompareOp, err = d.I32(); err != nil {
		return s, err
	}
	if s.CompareMask, err = d.U32(); err != nil {
		return s, err
	}
	if s.WriteMask, err = d.U32(); err != nil {
		return s, err
	}
	if s.Reference, err = d.U32(); err != nil {
		return s, err
	}
	return s, nil
}

func encodeDepthStencil(e *Encoder, ds *model.DepthStencilState) {
	e.Present(ds != nil)
	if ds == nil {
		return
	}
	e.Bool(ds.DepthTestEnable)
	e.Bool(ds.DepthWriteEnable)
	e.I32(ds.DepthCompareOp)
	e.Bool(ds.DepthBoundsTestEnable)
	e.Bool(ds.StencilTestEnable)
	encodeStencilOp(e, ds.Front)
	encodeStencilOp(e, ds.Back)
	e.F32(ds.MinDepthBounds)
	e.F32(ds.MaxDepthBounds)
}

func decodeDepthStencil(d *Decoder) (*model.DepthStencilState, error) {
	present, err := d.Present()
	if err != nil || !present {
		return nil, err
	}
	ds := &model.DepthStencilState{}
	if ds.DepthTestEnable, err = d.Bool(); err != nil {
		return nil, err
	}
	if ds.DepthWriteEnable, err = d.Bool(); err != nil {
		return nil, err
	}
	if ds.DepthCompareOp, err = d.I32(); err != nil {
		return nil, err
	}
	if ds.DepthBoundsTestEnable, err = d.Bool(); err != nil {
		return nil, err
	}
	if ds.StencilTestEnable, err = d.Bool(); err != nil {
		return nil, err
	}
	if ds.Front, err = decodeStencilOp(d); err != nil {
		return nil, err
	}
	if ds.Back, err = decodeStencilOp(d); err != nil {
		return nil, err
	}
	if ds.MinDepthBounds, err = d.F32(); err != nil {
		return nil, err
	}
	if ds.MaxDepthBounds, err = d.F32(); err != nil {
		return nil, err
	}
	return ds, nil
}

func encodeColorBlend(e *Encoder, c *model.ColorBlendState) {
	e.Present(c != nil)
	if c == nil {
		return
	}
	e.Bool(c.LogicOpEnable)
	e.I32(c.LogicOp)
	e.Len(len(c.Attachments))
	for _, a := range c.Attachments {
		e.Bool(a.BlendEnable)
		e.I32(a.SrcColorBlendFactor)
		e.I32(a.DstColorBlendFactor)
		e.I32(a.ColorBlendOp)
		e.I32(a.SrcAlphaBlendFactor)
		e.I32(a.DstAlphaBlendFactor)
		e.I32(a.AlphaBlendOp)
		e.U32(a.ColorWriteMask)
	}
	for _, v := range c.BlendConstants {
		e.F32(v)
	}
}

func decodeColorBlend(d *Decoder) (*model.ColorBlendState, error) {
	present, err := d.Present()
	if err != nil || !present {
		return nil, err
	}
	c := &model.ColorBlendState{}
	if c.LogicOpEnable, err = d.Bool(); err != nil {
		return nil, err
	}
	if c.LogicOp, err = d.I32(); err != nil {
		return nil, err
	}
	n, err := d.Len()
	if err != nil {
		return nil, err
	}
	if n > 0 {
		c.Attachments = make([]model.ColorBlendAttachment, n)
		for i := range c.Attachments {
			a := &c.Attachments[i]
			if a.BlendEnable, err = d.Bool(); err != nil {
				return nil, err
			}
			if a.SrcColorBlendFactor, err = d.I32(); err != nil {
				return nil, err
			}
			if a.DstColorBlendFactor, err = d.I32(); err != nil {
				return nil, err
			}
			if a.ColorBlendOp, err = d.I32(); err != nil {
				return nil, err
			}
			if a.SrcAlphaBlendFactor, err = d.I32(); err != nil {
				return nil, err
			}
			if a.DstAlphaBlendFactor, err = d.I32(); err != nil {
				return nil, err
			}
			if a.AlphaBlendOp, err = d.I32(); err != nil {
				return nil, err
			}
			if a.ColorWriteMask, err = d.U32(); err != nil {
				return nil, err
			}
		}
	}
	for i := range c.BlendConstants {
		if c.BlendConstants[i], err = d.F32(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func encodeDynamicState(e *Encoder, dyn []model.DynamicState) {
	e.Len(len(dyn))
	for _, s := range dyn {
		e.I32(int32(s))
	}
}

func decodeDynamicState(d *Decoder) ([]model.DynamicState, error) {
	n, err := d.Len()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	dyn := make([]model.DynamicState, n)
	for i := range dyn {
		v, err := d.I32()
		if err != nil {
			return nil, err
		}
		dyn[i] = model.DynamicState(v)
	}
	return dyn, nil
}

func encodeGraphicsPipeline(e *Encoder, g *model.GraphicsPipeline) {
	e.U32(g.Flags)
	encodeShaderStages(e, g.Stages)
	encodeVertexInput(e, g.VertexInput)
	encodeInputAssembly(e, g.InputAssembly)
	encodeTessellation(e, g.Tessellation)
	encodeViewport(e, g.Viewport)
	encodeRasterization(e, g.Rasterization)
	encodeMultisample(e, g.Multisample)
	encodeDepthStencil(e, g.DepthStencil)
	encodeColorBlend(e, g.ColorBlend)
	encodeDynamicState(e, g.Dynamic)
	e.Hash(g.Layout)
	e.Hash(g.RenderPass)
	e.U32(g.Subpass)
	e.Hash(g.BasePipeline)
	e.Hash(g.BaseHashOverride)
	e.I32(g.BasePipelineIndex)
	encodeExtensions(e, g.Extensions)
}

func decodeGraphicsPipeline(d *Decoder) (*model.GraphicsPipeline, error) {
	g := &model.GraphicsPipeline{}
	var err error
	if g.Flags, err = d.U32(); err != nil {
		return nil, err
	}
	if g.Stages, err = decodeShaderStages(d); err != nil {
		return nil, err
	}
	if g.VertexInput, err = decodeVertexInput(d); err != nil {
		return nil, err
	}
	if g.InputAssembly, err = decodeInputAssembly(d); err != nil {
		return nil, err
	}
	if g.Tessellation, err = decodeTessellation(d); err != nil {
		return nil, err
	}
	if g.Viewport, err = decodeViewport(d); err != nil {
		return nil, err
	}
	if g.Rasterization, err = decodeRasterization(d); err != nil {
		return nil, err
	}
	if g.Multisample, err = decodeMultisample(d); err != nil {
		return nil, err
	}
	if g.DepthStencil, err = decodeDepthStencil(d); err != nil {
		return nil, err
	}
	if g.ColorBlend, err = decodeColorBlend(d); err != nil {
		return nil, err
	}
	if g.Dynamic, err = decodeDynamicState(d); err != nil {
		return nil, err
	}
	if g.Layout, err = d.ReadHash(); err != nil {
		return nil, err
	}
	if g.RenderPass, err = d.ReadHash(); err != nil {
		return nil, err
	}
	if g.Subpass, err = d.U32(); err != nil {
		return nil, err
	}
	if g.BasePipeline, err = d.ReadHash(); err != nil {
		return nil, err
	}
	if g.BaseHashOverride, err = d.ReadHash(); err != nil {
		return nil, err
	}
	if g.BasePipelineIndex, err = d.I32(); err != nil {
		return nil, err
	}
	if g.Extensions, err = decodeExtensions(d); err != nil {
		return nil, err
	}
	return g, nil
}

func encodeComputePipeline(e *Encoder, c *model.ComputePipeline) {
	e.U32(c.Flags)
	encodeShaderStage(e, c.Stage)
	e.Hash(c.Layout)
	e.Hash(c.BasePipeline)
	e.Hash(c.BaseHashOverride)
	e.I32(c.BasePipelineIndex)
}

func decodeComputePipeline(d *Decoder) (*model.ComputePipeline, error) {
	c := &model.ComputePipeline{}
	var err error
	if c.Flags, err = d.U32(); err != nil {
		return nil, err
	}
	if c.Stage, err = decodeShaderStage(d); err != nil {
		return nil, err
	}
	if c.Layout, err = d.ReadHash(); err != nil {
		return nil, err
	}
	if c.BasePipeline, err = d.ReadHash(); err != nil {
		return nil, err
	}
	if c.BaseHashOverride, err = d.ReadHash(); err != nil {
		return nil, err
	}
	if c.BasePipelineIndex, err = d.I32(); err != nil {
		return nil, err
	}
	return c, nil
}

func encodeRaytracingPipeline(e *Encoder, r *model.RaytracingPipeline) {
	e.U32(r.Flags)
	encodeShaderStages(e, r.Stages)
	e.Len(len(r.Groups))
	for _, g := range r.Groups {
		e.I32(g.Type)
		e.U32(g.General)
		e.U32(g.ClosestHit)
		e.U32(g.AnyHit)
		e.U32(g.Intersection)
	}
	e.U32(r.MaxRecursionDepth)
	e.Hash(r.Layout)
	e.Hash(r.BasePipeline)
	e.Hash(r.BaseHashOverride)
	e.I32(r.BasePipelineIndex)
}

func decodeRaytracingPipeline(d *Decoder) (*model.RaytracingPipeline, error) {
	r := &model.RaytracingPipeline{}
	var err error
	if r.Flags, err = d.U32(); err != nil {
		return nil, err
	}
	if r.Stages, err = decodeShaderStages(d); err != nil {
		return nil, err
	}
	n, err := d.Len()
	if err != nil {
		return nil, err
	}
	if n > 0 {
		r.Groups = make([]model.RaytracingShaderGroup, n)
		for i := range r.Groups {
			g := &r.Groups[i]
			if g.Type, err = d.I32(); err != nil {
				return nil, err
			}
			if g.General, err = d.U32(); err != nil {
				return nil, err
			}
			if g.ClosestHit, err = d.U32(); err != nil {
				return nil, err
			}
			if g.AnyHit, err = d.U32(); err != nil {
				return nil, err
			}
			if g.Intersection, err = d.U32(); err != nil {
				return nil, err
			}
		}
	}
	if r.MaxRecursionDepth, err = d.U32(); err != nil {
		return nil, err
	}
	if r.Layout, err = d.ReadHash(); err != nil {
		return nil, err
	}
	if r.BasePipeline, err = d.ReadHash(); err != nil {
		return nil, err
	}
	if r.BaseHashOverride, err = d.ReadHash(); err != nil {
		return nil, err
	}
	if r.BasePipelineIndex, err = d.I32(); err != nil {
		return nil, err
	}
	return r, nil
}

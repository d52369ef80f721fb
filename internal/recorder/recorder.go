// Package recorder implements C2: the normalized object store that
// canonicalizes and interns create-infos, deep-copying them into an
// arena and deduplicating by fingerprint (spec §4.2).
//
// The graphics-API interception layer that owns live object handles and
// walks a create-info's pNext chain is explicitly out of scope (spec
// §1); that layer is expected to resolve each embedded handle via
// Lookup before building the internal/model struct it hands to a
// RecordX method. The Recorder's own job — deep-copying into the arena,
// computing the fingerprint, and deduplicating by hash — is what spec
// §4.2 actually specifies as this component's contract.
package recorder

import (
	"sync"

	"github.com/nmxmxh/fossilize/internal/arena"
	"github.com/nmxmxh/fossilize/internal/errutil"
	"github.com/nmxmxh/fossilize/internal/fingerprint"
	"github.com/nmxmxh/fossilize/internal/logging"
	"github.com/nmxmxh/fossilize/internal/model"
)

// Handle is an opaque, API-supplied live object handle. Its concrete
// meaning (a pointer-sized integer on the API side) is irrelevant here;
// the Recorder only ever uses it as a map key (spec §4.2).
type Handle uint64

// Entry is one interned object: its tag, its fingerprint, and the
// arena-owned normalized create-info (spec §3 "Interned object").
type Entry struct {
	Tag   model.Tag
	Hash  model.Hash
	Value any
}

// Recorder canonicalizes and interns create-infos for a single
// (application, feature-set) capture (spec §3 ApplicationFeatureHash).
// It is single-writer: the embedder's capture threads are expected to
// serialize through a recordworker.Worker (spec §4.2 "Concurrency").
type Recorder struct {
	mu      sync.Mutex
	arena   *arena.Arena
	log     *logging.Logger
	handles map[model.Tag]map[Handle]model.Hash
	interns map[model.Tag]map[model.Hash]*Entry
	order   map[model.Tag][]model.Hash // insertion order, per tag
}

// New creates an empty Recorder.
func New(log *logging.Logger) *Recorder {
	if log == nil {
		log = logging.Default("recorder")
	}
	r := &Recorder{
		arena:   arena.New(0),
		log:     log,
		handles: make(map[model.Tag]map[Handle]model.Hash),
		interns: make(map[model.Tag]map[model.Hash]*Entry),
		order:   make(map[model.Tag][]model.Hash),
	}
	for _, tag := range model.PlaybackOrder {
		r.handles[tag] = make(map[Handle]model.Hash)
		r.interns[tag] = make(map[model.Hash]*Entry)
	}
	// ApplicationBlobLink isn't part of the replay PlaybackOrder (it
	// resolves inline with ApplicationInfo) but it's still a recordable
	// resource tag (spec §3) and needs its own map pair.
	r.handles[model.TagApplicationBlobLink] = make(map[Handle]model.Hash)
	r.interns[model.TagApplicationBlobLink] = make(map[model.Hash]*Entry)
	return r
}

// Lookup resolves a previously-recorded handle to its fingerprint. The
// caller (the interception layer) uses this to substitute a referenced
// object's hash for an embedded handle before building the normalized
// struct it passes to a RecordX method (spec §4.2 "replaces every
// embedded handle with the stable hash of the referenced object").
func (r *Recorder) Lookup(tag model.Tag, h Handle) (model.Hash, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	hash, ok := r.handles[tag][h]
	return hash, ok
}

// ResolveImmutableSamplers expands an immutable-sampler handle array
// into the hashes of already-interned Sampler objects (spec §4.2 bullet
// 3). It fails if any handle was never recorded.
func (r *Recorder) ResolveImmutableSamplers(handles []Handle) ([]model.Hash, error) {
	if len(handles) == 0 {
		return nil, nil
	}
	out := make([]model.Hash, len(handles))
	for i, h := range handles {
		hash, ok := r.Lookup(model.TagSampler, h)
		if !ok {
			return nil, &errutil.DependencyError{Tag: model.TagSampler.String(), Hash: uint64(h)}
		}
		out[i] = hash
	}
	return out, nil
}

// intern is the common tail of every RecordX method: it rejects a
// duplicate handle, stores the entry keyed by (tag, hash) under the hash
// its caller computed, if not already present, and remembers the
// handle→hash mapping.
func (r *Recorder) intern(tag model.Tag, h Handle, value any, hash model.Hash) (model.Hash, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handles[tag][h]; exists {
		return 0, &errutil.CapacityError{Resource: "duplicate handle recorded for " + tag.String()}
	}
	if _, exists := r.interns[tag][hash]; !exists {
		r.interns[tag][hash] = &Entry{Tag: tag, Hash: hash, Value: value}
		r.order[tag] = append(r.order[tag], hash)
	}
	r.handles[tag][h] = hash
	r.log.Debug("recorded object", logging.String("tag", tag.String()), logging.String("hash", hash.String()))
	return hash, nil
}

// Entries returns every interned object for tag, in insertion order.
func (r *Recorder) Entries(tag model.Tag) []*Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	hashes := r.order[tag]
	out := make([]*Entry, len(hashes))
	for i, h := range hashes {
		out[i] = r.interns[tag][h]
	}
	return out
}

// Arena exposes the Recorder's bump allocator so callers can deep-copy
// strings/byte slices before embedding them in a create-info (spec §3
// "Normalized create-info").
func (r *Recorder) Arena() *arena.Arena { return r.arena }

// Close releases the Recorder's arena as one unit (spec §3 "Lifecycles").
func (r *Recorder) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.arena.Release()
}

// RecordApplicationInfo interns the application identity.
func (r *Recorder) RecordApplicationInfo(h Handle, info *model.ApplicationInfo) (model.Hash, error) {
	hash := fingerprint.ApplicationInfo(info)
	return r.intern(model.TagApplicationInfo, h, info, hash)
}

// RecordSampler interns a sampler.
func (r *Recorder) RecordSampler(h Handle, s *model.Sampler) (model.Hash, error) {
	hash := fingerprint.Sampler(s)
	return r.intern(model.TagSampler, h, s, hash)
}

// RecordDescriptorSetLayout interns a descriptor set layout. Bindings'
// ImmutableSamplers must already be resolved via ResolveImmutableSamplers.
func (r *Recorder) RecordDescriptorSetLayout(h Handle, d *model.DescriptorSetLayout) (model.Hash, error) {
	hash := fingerprint.DescriptorSetLayout(d)
	return r.intern(model.TagDescriptorSetLayout, h, d, hash)
}

// RecordPipelineLayout interns a pipeline layout. SetLayouts must already
// be resolved to hashes.
func (r *Recorder) RecordPipelineLayout(h Handle, p *model.PipelineLayout) (model.Hash, error) {
	hash := fingerprint.PipelineLayout(p)
	return r.intern(model.TagPipelineLayout, h, p, hash)
}

// RecordShaderModule interns a shader module. If customHash is non-zero
// it is used verbatim instead of computing one (spec §4.2 "unless
// custom_hash is given").
func (r *Recorder) RecordShaderModule(h Handle, s *model.ShaderModule, customHash model.Hash) (model.Hash, error) {
	hash := customHash
	if hash.IsZero() {
		hash = fingerprint.ShaderModule(s)
	}
	return r.intern(model.TagShaderModule, h, s, hash)
}

// RecordRenderPass interns a render pass.
func (r *Recorder) RecordRenderPass(h Handle, rp *model.RenderPass) (model.Hash, error) {
	hash := fingerprint.RenderPass(rp)
	return r.intern(model.TagRenderPass, h, rp, hash)
}

// RecordGraphicsPipeline interns a graphics pipeline. If baseHandle is
// resolvable it is used as the pipeline's BasePipeline hash; otherwise
// g.BaseHashOverride (the caller-reported hash) is trusted as-is (spec
// §4.2 "falls back to recording the base's own hash as reported by the
// caller").
func (r *Recorder) RecordGraphicsPipeline(h Handle, baseHandle Handle, hasBase bool, g *model.GraphicsPipeline) (model.Hash, error) {
	if hasBase {
		if base, ok := r.Lookup(model.TagGraphicsPipeline, baseHandle); ok {
			g.BasePipeline = base
		}
	}
	hash := fingerprint.GraphicsPipeline(g)
	return r.intern(model.TagGraphicsPipeline, h, g, hash)
}

// RecordComputePipeline interns a compute pipeline, with the same
// base-pipeline fallback as RecordGraphicsPipeline.
func (r *Recorder) RecordComputePipeline(h Handle, baseHandle Handle, hasBase bool, c *model.ComputePipeline) (model.Hash, error) {
	if hasBase {
		if base, ok := r.Lookup(model.TagComputePipeline, baseHandle); ok {
			c.BasePipeline = base
		}
	}
	hash := fingerprint.ComputePipeline(c)
	return r.intern(model.TagComputePipeline, h, c, hash)
}

// RecordRaytracingPipeline interns a raytracing pipeline, with the same
// base-pipeline fallback.
func (r *Recorder) RecordRaytracingPipeline(h Handle, baseHandle Handle, hasBase bool, rt *model.RaytracingPipeline) (model.Hash, error) {
	if hasBase {
		if base, ok := r.Lookup(model.TagRaytracingPipeline, baseHandle); ok {
			rt.BasePipeline = base
		}
	}
	hash := fingerprint.RaytracingPipeline(rt)
	return r.intern(model.TagRaytracingPipeline, h, rt, hash)
}

// RecordApplicationBlobLink interns an opaque embedder-supplied blob
// linked to the current application.
func (r *Recorder) RecordApplicationBlobLink(h Handle, link *model.ApplicationBlobLink, customHash model.Hash) (model.Hash, error) {
	hash := customHash
	return r.intern(model.TagApplicationBlobLink, h, link, hash)
}

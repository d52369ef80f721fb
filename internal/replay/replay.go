// Package replay implements C6: walking an archive in dependency order
// and handing decoded create-infos to a pluggable creator (spec §4.6).
package replay

import (
	"errors"

	"github.com/nmxmxh/fossilize/internal/archive"
	"github.com/nmxmxh/fossilize/internal/codec"
	"github.com/nmxmxh/fossilize/internal/errutil"
	"github.com/nmxmxh/fossilize/internal/logging"
	"github.com/nmxmxh/fossilize/internal/model"
)

// ErrSkip is returned by a Creator method to signal that a blob should be
// counted as skipped rather than failed (spec §4.6 "Skipping").
var ErrSkip = errors.New("replay: skip")

// Creator is the capability set the replayer drives: one method per tag,
// each of the shape enqueue_create_X(hash, decoded_info) (spec §4.6).
// Implementations may return ErrSkip to skip a single object without
// aborting playback.
type Creator interface {
	CreateApplicationInfo(hash model.Hash, info *model.ApplicationInfo) error
	CreateShaderModule(hash model.Hash, m *model.ShaderModule) error
	CreateSampler(hash model.Hash, s *model.Sampler) error
	CreateDescriptorSetLayout(hash model.Hash, d *model.DescriptorSetLayout) error
	CreatePipelineLayout(hash model.Hash, p *model.PipelineLayout) error
	CreateRenderPass(hash model.Hash, rp *model.RenderPass) error
	CreateGraphicsPipeline(hash model.Hash, g *model.GraphicsPipeline) error
	CreateComputePipeline(hash model.Hash, c *model.ComputePipeline) error
	CreateRaytracingPipeline(hash model.Hash, rt *model.RaytracingPipeline) error

	// SyncThreads flushes in-flight compilations before the next tag
	// begins (spec §4.6 "A sync_threads() hook").
	SyncThreads() error
}

// Stats accumulates playback counters across a Run.
type Stats struct {
	Created map[model.Tag]int
	Skipped map[model.Tag]int
	Failed  map[model.Tag]int
}

func newStats() Stats {
	return Stats{
		Created: make(map[model.Tag]int),
		Skipped: make(map[model.Tag]int),
		Failed:  make(map[model.Tag]int),
	}
}

// Replayer drives a Creator over an archive's contents in the fixed
// playback order (spec §4.6).
type Replayer struct {
	db  *archive.Database
	log *logging.Logger
}

// New builds a Replayer over db.
func New(db *archive.Database, log *logging.Logger) *Replayer {
	if log == nil {
		log = logging.Default("replay")
	}
	return &Replayer{db: db, log: log}
}

// Range restricts playback of a pipeline tag to a half-open index range
// [Start, End) over that tag's GetHashListForResourceTag order (spec
// §4.7 "partitions the pipeline index space evenly across N workers").
type Range struct {
	Tag   model.Tag
	Start int
	End   int // 0 means "to the end"
}

// Run walks the archive in model.PlaybackOrder, decoding each blob and
// dispatching it to the matching Creator method. ranges, if non-nil,
// restricts which index window of each pipeline tag is replayed; other
// tags are always played in full since pipelines depend on them.
func (r *Replayer) Run(creator Creator, ranges map[model.Tag]Range) (Stats, error) {
	stats := newStats()
	for _, tag := range model.PlaybackOrder {
		hashes := r.db.GetHashListForResourceTag(tag)
		start, end := 0, len(hashes)
		if rng, ok := ranges[tag]; ok {
			start = rng.Start
			if rng.End > 0 && rng.End < end {
				end = rng.End
			}
		}
		for i := start; i < end; i++ {
			hash := hashes[i]
			if err := r.playOne(creator, tag, hash, &stats); err != nil {
				return stats, err
			}
		}
		if err := creator.SyncThreads(); err != nil {
			return stats, &errutil.IoError{Op: "sync_threads after " + tag.String(), Cause: err}
		}
	}
	return stats, nil
}

func (r *Replayer) playOne(creator Creator, tag model.Tag, hash model.Hash, stats *Stats) error {
	blob, err := r.db.ReadEntry(tag, hash)
	if err != nil {
		return &errutil.DependencyError{Tag: tag.String(), Hash: uint64(hash)}
	}
	decodedTag, obj, err := codec.DecodeObject(blob)
	if err != nil {
		return &errutil.ParseError{Reason: "decode " + tag.String(), Cause: err}
	}
	if decodedTag != tag {
		return &errutil.ParseError{Reason: "tag mismatch decoding " + tag.String()}
	}

	var createErr error
	switch v := obj.(type) {
	case *model.ApplicationInfo:
		createErr = creator.CreateApplicationInfo(hash, v)
	case *model.ShaderModule:
		createErr = creator.CreateShaderModule(hash, v)
	case *model.Sampler:
		createErr = creator.CreateSampler(hash, v)
	case *model.DescriptorSetLayout:
		createErr = creator.CreateDescriptorSetLayout(hash, v)
	case *model.PipelineLayout:
		createErr = creator.CreatePipelineLayout(hash, v)
	case *model.RenderPass:
		createErr = creator.CreateRenderPass(hash, v)
	case *model.GraphicsPipeline:
		createErr = creator.CreateGraphicsPipeline(hash, v)
	case *model.ComputePipeline:
		createErr = creator.CreateComputePipeline(hash, v)
	case *model.RaytracingPipeline:
		createErr = creator.CreateRaytracingPipeline(hash, v)
	default:
		return &errutil.ParseError{Reason: "unrecognized decoded type for " + tag.String()}
	}

	switch {
	case createErr == nil:
		stats.Created[tag]++
	case errors.Is(createErr, ErrSkip):
		stats.Skipped[tag]++
		r.log.Debug("skipped during replay", logging.String("tag", tag.String()), logging.String("hash", hash.String()))
	default:
		stats.Failed[tag]++
		r.log.Warn("creator failed", logging.String("tag", tag.String()), logging.String("hash", hash.String()), logging.Err(createErr))
	}
	return nil
}

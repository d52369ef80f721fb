package replayclient

import (
	"testing"

	"github.com/nmxmxh/fossilize/internal/model"
)

func TestComputeCondensedProgressWeighting(t *testing.T) {
	p := Progress{
		Successes: map[model.Tag]uint32{model.TagGraphicsPipeline: 10},
		Skips:     map[model.Tag]uint32{model.TagGraphicsPipeline: 100},
		Caches:    map[model.Tag]uint32{model.TagGraphicsPipeline: 0},
		Parses:    map[model.Tag]uint32{model.TagGraphicsPipeline: 110},
		Failures:  map[model.Tag]uint32{model.TagGraphicsPipeline: 0},
		ModulesTotal:     1000,
		ModulesCompleted: 500,
	}
	for _, tag := range []model.Tag{model.TagComputePipeline, model.TagRaytracingPipeline} {
		p.Successes[tag], p.Skips[tag], p.Caches[tag], p.Parses[tag], p.Failures[tag] = 0, 0, 0, 0, 0
	}

	cp := ComputeCondensedProgress(p)
	wantCompleted := 10.0 + 100.0*0.01 + 500.0*0.1
	if cp.Completed != wantCompleted {
		t.Fatalf("completed = %v, want %v", cp.Completed, wantCompleted)
	}
	if cp.Total <= cp.Completed {
		t.Fatalf("total (%v) should exceed completed (%v) while replay is in progress", cp.Total, cp.Completed)
	}
}

func TestComputeCondensedProgressMonotonicAsModulesStream(t *testing.T) {
	base := Progress{
		Successes: map[model.Tag]uint32{}, Skips: map[model.Tag]uint32{}, Caches: map[model.Tag]uint32{},
		Parses: map[model.Tag]uint32{}, Failures: map[model.Tag]uint32{},
		ModulesTotal: 100, ModulesCompleted: 10,
	}
	before := ComputeCondensedProgress(base)
	base.ModulesTotal = 200 // more modules discovered as the archive streams in
	after := ComputeCondensedProgress(base)
	if after.Completed < before.Completed {
		t.Fatalf("completed should never move backwards as more modules are discovered: before=%v after=%v", before.Completed, after.Completed)
	}
}

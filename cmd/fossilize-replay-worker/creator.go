package main

import (
	"fmt"
	"os"
	"sync"
	"syscall"

	"github.com/nmxmxh/fossilize/internal/logging"
	"github.com/nmxmxh/fossilize/internal/model"
	"github.com/nmxmxh/fossilize/internal/replay"
	"github.com/nmxmxh/fossilize/internal/sharedblock"
)

// crashTrigger names a (tag, index) pair at which the worker should
// self-raise a fatal signal immediately after reporting that index's
// progress, so the worker-side crash path can be exercised
// deterministically (spec §8 S5) instead of only on a real fault.
type crashTrigger struct {
	tag     model.Tag
	index   int
	enabled bool
}

// ipcCreator is the worker subprocess's replay.Creator: it has no real
// graphics driver to call into (driver integration is explicitly out of
// scope), so "creating" an object means validating it decoded cleanly,
// masking modules in the fault set, and reporting progress over the IPC
// line protocol and the SharedControlBlock (spec §4.6, §4.7).
type ipcCreator struct {
	block    *sharedblock.Block
	faultSet map[model.Hash]struct{}
	log      *logging.Logger
	crashAt  crashTrigger

	graphicsIndex, computeIndex, raytraceIndex int

	// mu guards the last-reported-progress snapshot the crash handler
	// reads from a signal-handling goroutine (spec §9 "narrow,
	// async-signal-safe shim that writes pre-formatted bytes ... and
	// then exits"). Go can't run arbitrary code from inside a real
	// signal trampoline, so the handler goroutine takes this lock
	// instead of the async-signal-safety the original relies on.
	mu              sync.Mutex
	graphicsProg    progressSnapshot
	computeProg     progressSnapshot
	inFlightModules []model.Hash
}

type progressSnapshot struct {
	index int
	hash  model.Hash
}

func (c *ipcCreator) reportProgress(tag model.Tag, index int, hash model.Hash, modules []model.Hash) {
	var label string
	switch tag {
	case model.TagGraphicsPipeline:
		label = "GRAPHICS"
	case model.TagComputePipeline:
		label = "COMPUTE"
	case model.TagRaytracingPipeline:
		label = "RAYTRACE"
	default:
		return
	}
	fmt.Printf("%s %d %x\n", label, index, uint64(hash))
	_, _ = c.block.AddCounter(tag, sharedblock.CounterSuccesses, 1)

	c.mu.Lock()
	switch tag {
	case model.TagGraphicsPipeline:
		c.graphicsProg = progressSnapshot{index: index, hash: hash}
	case model.TagComputePipeline:
		c.computeProg = progressSnapshot{index: index, hash: hash}
	}
	c.inFlightModules = modules
	c.mu.Unlock()

	if c.crashAt.enabled && c.crashAt.tag == tag && c.crashAt.index == index {
		// Raise the same signal the real crash handler watches for, so
		// the injected failure exercises the exact reporting path a
		// genuine fault would (spec §8 S5 "deterministically crashes").
		_ = syscall.Kill(os.Getpid(), syscall.SIGABRT)
	}
}

// reportCrash writes the worker-crashed IPC sequence: CRASH, one MODULE
// line per shader module referenced by the pipeline in flight when the
// fault occurred, then the last graphics/compute progress the worker
// reported (spec §4.7, grounded on the original's crash_handler: report
// modules that may have contributed, then where we stopped, then exit 2).
func (c *ipcCreator) reportCrash() {
	c.mu.Lock()
	modules := append([]model.Hash(nil), c.inFlightModules...)
	graphics := c.graphicsProg
	compute := c.computeProg
	c.mu.Unlock()

	fmt.Println("CRASH")
	for _, m := range modules {
		fmt.Printf("MODULE %x\n", uint64(m))
	}
	fmt.Printf("GRAPHICS %d %x\n", graphics.index, uint64(graphics.hash))
	fmt.Printf("COMPUTE %d %x\n", compute.index, uint64(compute.hash))
}

func (c *ipcCreator) CreateApplicationInfo(hash model.Hash, info *model.ApplicationInfo) error {
	return nil
}

func (c *ipcCreator) CreateShaderModule(hash model.Hash, m *model.ShaderModule) error {
	if _, faulty := c.faultSet[hash]; faulty {
		c.block.AddModulesBanned(1)
		return replay.ErrSkip
	}
	c.block.AddModulesCompleted(1)
	return nil
}

func (c *ipcCreator) CreateSampler(hash model.Hash, s *model.Sampler) error { return nil }
func (c *ipcCreator) CreateDescriptorSetLayout(hash model.Hash, d *model.DescriptorSetLayout) error {
	return nil
}
func (c *ipcCreator) CreatePipelineLayout(hash model.Hash, p *model.PipelineLayout) error { return nil }
func (c *ipcCreator) CreateRenderPass(hash model.Hash, rp *model.RenderPass) error        { return nil }

func (c *ipcCreator) referencesBannedModule(modules ...model.Hash) bool {
	for _, h := range modules {
		if _, faulty := c.faultSet[h]; faulty {
			return true
		}
	}
	return false
}

func (c *ipcCreator) CreateGraphicsPipeline(hash model.Hash, g *model.GraphicsPipeline) error {
	modules := make([]model.Hash, len(g.Stages))
	for i, s := range g.Stages {
		modules[i] = s.Module
	}
	if c.referencesBannedModule(modules...) {
		_, _ = c.block.AddCounter(model.TagGraphicsPipeline, sharedblock.CounterSkips, 1)
		return replay.ErrSkip
	}
	c.reportProgress(model.TagGraphicsPipeline, c.graphicsIndex, hash, modules)
	c.graphicsIndex++
	return nil
}

func (c *ipcCreator) CreateComputePipeline(hash model.Hash, cp *model.ComputePipeline) error {
	if c.referencesBannedModule(cp.Stage.Module) {
		_, _ = c.block.AddCounter(model.TagComputePipeline, sharedblock.CounterSkips, 1)
		return replay.ErrSkip
	}
	c.reportProgress(model.TagComputePipeline, c.computeIndex, hash, []model.Hash{cp.Stage.Module})
	c.computeIndex++
	return nil
}

func (c *ipcCreator) CreateRaytracingPipeline(hash model.Hash, rt *model.RaytracingPipeline) error {
	modules := make([]model.Hash, len(rt.Stages))
	for i, s := range rt.Stages {
		modules[i] = s.Module
	}
	if c.referencesBannedModule(modules...) {
		_, _ = c.block.AddCounter(model.TagRaytracingPipeline, sharedblock.CounterSkips, 1)
		return replay.ErrSkip
	}
	c.reportProgress(model.TagRaytracingPipeline, c.raytraceIndex, hash, modules)
	c.raytraceIndex++
	return nil
}

func (c *ipcCreator) SyncThreads() error {
	return nil
}

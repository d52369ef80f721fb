package orchestrator

import (
	"errors"
	"testing"

	"github.com/nmxmxh/fossilize/internal/model"
)

func TestParseMessageVariants(t *testing.T) {
	cases := []struct {
		line string
		want message
	}{
		{"CRASH", message{Type: msgCrash}},
		{"HEARTBEAT", message{Type: msgHeartbeat}},
		{"GRAPHICS 12 cafe", message{Type: msgGraphics, Index: 12, Hash: 0xcafe}},
		{"COMPUTE 3 1", message{Type: msgCompute, Index: 3, Hash: 1}},
		{"RAYTRACE 0 abcdef", message{Type: msgRaytrace, Index: 0, Hash: 0xabcdef}},
		{"MODULE deadbeef", message{Type: msgModule, Hash: 0xdeadbeef}},
		{"GRAPHICS_VERR 7", message{Type: msgGraphicsVerr, Hash: 7}},
		{"MODULE_UUID aabbccdd", message{Type: msgModuleUUID, Hex: "aabbccdd"}},
	}
	for _, c := range cases {
		got, err := parseMessage(c.line)
		if err != nil {
			t.Fatalf("parse %q: %v", c.line, err)
		}
		if got != c.want {
			t.Errorf("parse %q = %+v, want %+v", c.line, got, c.want)
		}
	}
}

func TestParseMessageRejectsGarbage(t *testing.T) {
	for _, line := range []string{"", "BOGUS", "GRAPHICS not-a-number cafe", "MODULE zzzz"} {
		if _, err := parseMessage(line); err == nil {
			t.Errorf("expected %q to be rejected", line)
		}
	}
}

func TestEncodeFaultSetTerminatesWithBlankLine(t *testing.T) {
	got := encodeFaultSet([]model.Hash{0x1, 0x2})
	want := "1\n2\n\n"
	if got != want && got != "2\n1\n\n" {
		t.Fatalf("encodeFaultSet = %q", got)
	}
}

func TestPartitionEvenlyDistributesRemainder(t *testing.T) {
	ranges := partitionEvenly(10, 3)
	if len(ranges) != 3 {
		t.Fatalf("expected 3 ranges, got %d", len(ranges))
	}
	total := 0
	for _, r := range ranges {
		total += r.End - r.Start
	}
	if total != 10 {
		t.Fatalf("ranges do not cover the full index space: %v", ranges)
	}
	if ranges[0].Start != 0 || ranges[len(ranges)-1].End != 10 {
		t.Fatalf("ranges not contiguous from 0 to 10: %v", ranges)
	}
}

func TestResumeStartTakesMax(t *testing.T) {
	if got := resumeStart(5, 2); got != 6 {
		t.Fatalf("resumeStart(5,2) = %d, want 6", got)
	}
	if got := resumeStart(1, 9); got != 10 {
		t.Fatalf("resumeStart(1,9) = %d, want 10", got)
	}
}

func TestFaultSetMonotonicallyGrows(t *testing.T) {
	f := NewFaultSet()
	if !f.Add(0x1) {
		t.Fatalf("expected first add to report new")
	}
	if f.Add(0x1) {
		t.Fatalf("expected duplicate add to report not-new")
	}
	f.Add(0x2)
	if f.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", f.Len())
	}
}

func TestStateTransitions(t *testing.T) {
	cases := []struct {
		from        State
		ev          eventKind
		sawProgress bool
		want        State
	}{
		{Starting, evProgress, false, Running},
		{Running, evCrash, false, Crashed},
		{Running, evExitClean, true, Done},
		{Running, evExitFatal, false, Failed},
		{Running, evExitFatal, true, Crashed},
		{Crashed, evTimeout, false, TimedOut},
		{Crashed, evExitClean, true, Done},
		{Crashed, evExitClean, false, Crashed},
	}
	for _, c := range cases {
		got := transition(c.from, c.ev, c.sawProgress)
		if got != c.want {
			t.Errorf("transition(%v, %v, %v) = %v, want %v", c.from, c.ev, c.sawProgress, got, c.want)
		}
	}
}

func TestBuildPlanPartitionsPipelineTagsIndependently(t *testing.T) {
	totals := map[model.Tag]int{
		model.TagGraphicsPipeline:   9,
		model.TagComputePipeline:    4,
		model.TagRaytracingPipeline: 0,
	}
	plan := buildPlan(totals, 3)
	if len(plan.workers) != 3 {
		t.Fatalf("expected 3 workers in plan, got %d", len(plan.workers))
	}
	sumGraphics := 0
	for _, w := range plan.workers {
		sumGraphics += w[model.TagGraphicsPipeline].End - w[model.TagGraphicsPipeline].Start
	}
	if sumGraphics != 9 {
		t.Fatalf("graphics partitions sum to %d, want 9", sumGraphics)
	}
}

func TestTeardownCombinesEveryWorkerError(t *testing.T) {
	errA := errors.New("worker 0 failed")
	errB := errors.New("worker 2 failed")
	combined := teardown(nil, errA, nil, errB)
	if combined == nil {
		t.Fatalf("expected a non-nil combined error")
	}
	if !errors.Is(combined, errA) || !errors.Is(combined, errB) {
		t.Fatalf("expected both worker errors to survive combination, got %v", combined)
	}
}

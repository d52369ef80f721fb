package main

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/nmxmxh/fossilize/internal/model"
	"github.com/nmxmxh/fossilize/internal/testutil"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	orig := os.Stdout
	os.Stdout = w
	fn()
	os.Stdout = orig
	w.Close()
	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}

func TestReportProgressTracksLastSnapshot(t *testing.T) {
	block := testutil.NewSharedBlockBuilder(t, 8).Block()
	c := &ipcCreator{block: block, faultSet: map[model.Hash]struct{}{}}

	out := captureStdout(t, func() {
		c.reportProgress(model.TagComputePipeline, 50, model.Hash(0xdead), []model.Hash{0xbeef})
	})
	if !strings.Contains(out, "COMPUTE 50 dead") {
		t.Fatalf("expected a COMPUTE progress line, got %q", out)
	}

	c.mu.Lock()
	snap := c.computeProg
	modules := c.inFlightModules
	c.mu.Unlock()
	if snap.index != 50 || snap.hash != model.Hash(0xdead) {
		t.Fatalf("expected last compute snapshot to be recorded, got %+v", snap)
	}
	if len(modules) != 1 || modules[0] != model.Hash(0xbeef) {
		t.Fatalf("expected in-flight modules to be recorded, got %v", modules)
	}
}

// TestReportCrashEmitsModuleThenProgressLines exercises the worker-side
// crash-attribution sequence (spec §4.7, §8 S5) without actually raising
// a signal: it drives reportProgress for pipeline index 50, then calls
// reportCrash directly to assert the CRASH/MODULE/GRAPHICS/COMPUTE
// sequence the master's IPC parser expects.
func TestReportCrashEmitsModuleThenProgressLines(t *testing.T) {
	block := testutil.NewSharedBlockBuilder(t, 8).Block()
	c := &ipcCreator{block: block, faultSet: map[model.Hash]struct{}{}}

	captureStdout(t, func() {
		c.reportProgress(model.TagComputePipeline, 50, model.Hash(0xabc), []model.Hash{0x1, 0x2})
	})

	out := captureStdout(t, c.reportCrash)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if lines[0] != "CRASH" {
		t.Fatalf("expected first line CRASH, got %q", lines[0])
	}
	if !strings.Contains(out, "MODULE 1") || !strings.Contains(out, "MODULE 2") {
		t.Fatalf("expected a MODULE line per in-flight module, got %q", out)
	}
	if !strings.Contains(out, "COMPUTE 50 abc") {
		t.Fatalf("expected the last compute progress to be reported, got %q", out)
	}
}

func TestParseCrashAfter(t *testing.T) {
	trigger, err := parseCrashAfter("ComputePipeline:50")
	if err != nil {
		t.Fatalf("parseCrashAfter: %v", err)
	}
	if !trigger.enabled || trigger.tag != model.TagComputePipeline || trigger.index != 50 {
		t.Fatalf("unexpected trigger: %+v", trigger)
	}

	if _, err := parseCrashAfter(""); err != nil {
		t.Fatalf("empty crash-after should be a no-op, got %v", err)
	}

	if _, err := parseCrashAfter("bogus"); err == nil {
		t.Fatalf("expected an error for a malformed crash-after value")
	}
}

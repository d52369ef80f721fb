package sharedblock

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/nmxmxh/fossilize/internal/model"
)

func openTestBlock(t *testing.T, ringSize uint32) (*Provider, *Block) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "control.block")
	size := uint32(HeaderSize) + ringSize*messageSize
	p, err := Open(Options{Path: path, Size: size, Create: true})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	b, err := Init(p, ringSize)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	return p, b
}

func TestAttachValidatesVersionCookie(t *testing.T) {
	p, _ := openTestBlock(t, 4)
	attached, err := Attach(p)
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if attached.ProgressStarted() {
		t.Fatalf("expected a freshly initialized block to report no progress")
	}
}

func TestCountersPerPipelineKind(t *testing.T) {
	_, b := openTestBlock(t, 4)

	if _, err := b.AddCounter(model.TagGraphicsPipeline, CounterSuccesses, 3); err != nil {
		t.Fatalf("add counter: %v", err)
	}
	if _, err := b.AddCounter(model.TagComputePipeline, CounterFailures, 1); err != nil {
		t.Fatalf("add counter: %v", err)
	}

	got, err := b.Counter(model.TagGraphicsPipeline, CounterSuccesses)
	if err != nil || got != 3 {
		t.Fatalf("graphics successes = %d, err %v, want 3", got, err)
	}
	got, err = b.Counter(model.TagComputePipeline, CounterFailures)
	if err != nil || got != 1 {
		t.Fatalf("compute failures = %d, err %v, want 1", got, err)
	}
	// Other kinds/fields must remain zero.
	if got, _ := b.Counter(model.TagComputePipeline, CounterSuccesses); got != 0 {
		t.Fatalf("expected untouched counter to stay zero, got %d", got)
	}
	if _, err := b.Counter(model.TagSampler, CounterSuccesses); err == nil {
		t.Fatalf("expected non-pipeline tag to be rejected")
	}
}

func TestProgressFlags(t *testing.T) {
	_, b := openTestBlock(t, 4)
	if b.ProgressStarted() || b.ProgressComplete() {
		t.Fatalf("expected fresh block to report no progress")
	}
	b.SetProgressStarted(true)
	if !b.ProgressStarted() {
		t.Fatalf("expected progress_started to read back true")
	}
	b.SetProgressComplete(true)
	if !b.ProgressComplete() {
		t.Fatalf("expected progress_complete to read back true")
	}
}

func TestRingEnqueueDequeueFIFO(t *testing.T) {
	_, b := openTestBlock(t, 4)

	if err := b.Enqueue([]byte("CRASH")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := b.Enqueue([]byte("HEARTBEAT")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if b.Available() != 2 {
		t.Fatalf("available = %d, want 2", b.Available())
	}

	msg, ok := b.Dequeue()
	if !ok {
		t.Fatalf("expected a message")
	}
	if got := trimZero(msg); got != "CRASH" {
		t.Fatalf("first message = %q, want CRASH", got)
	}
	msg, ok = b.Dequeue()
	if !ok || trimZero(msg) != "HEARTBEAT" {
		t.Fatalf("second message = %q, want HEARTBEAT", trimZero(msg))
	}
	if b.Available() != 0 {
		t.Fatalf("expected ring to be drained")
	}
}

func TestRingRejectsOverflow(t *testing.T) {
	_, b := openTestBlock(t, 2)
	if err := b.Enqueue([]byte("a")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := b.Enqueue([]byte("b")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := b.Enqueue([]byte("c")); err == nil {
		t.Fatalf("expected ring full error")
	}
}

// TestRingConcurrentAccess covers spec §8 property 8: no message is lost
// or duplicated under concurrent producers obeying the cross-process lock.
func TestRingConcurrentAccess(t *testing.T) {
	_, b := openTestBlock(t, 64)
	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := b.Enqueue([]byte("HEARTBEAT")); err != nil {
				t.Errorf("enqueue: %v", err)
			}
		}()
	}
	wg.Wait()
	if b.Available() != n {
		t.Fatalf("available = %d, want %d", b.Available(), n)
	}
	count := 0
	for {
		if _, ok := b.Dequeue(); !ok {
			break
		}
		count++
	}
	if count != n {
		t.Fatalf("dequeued %d messages, want %d", count, n)
	}
}

func trimZero(b []byte) string {
	i := 0
	for i < len(b) && b[i] != 0 {
		i++
	}
	return string(b[:i])
}

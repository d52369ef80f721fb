package recordworker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/nmxmxh/fossilize/internal/archive"
	"github.com/nmxmxh/fossilize/internal/model"
)

func openTestDB(t *testing.T) *archive.Database {
	t.Helper()
	db, err := archive.Open(filepath.Join(t.TempDir(), "worker.foz"), archive.Append, archive.Options{})
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestAsyncWorkerPersistsAndDrains(t *testing.T) {
	db := openTestDB(t)
	w := New(db, Options{QueueSize: 4})

	s := &model.Sampler{MagFilter: 1, MinFilter: 2}
	if err := w.Enqueue(Job{Tag: model.TagSampler, Hash: 0x42, Value: s}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := w.Drain(ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}
	if !db.HasEntry(model.TagSampler, 0x42) {
		t.Fatalf("expected sampler to be persisted after drain")
	}

	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if stats := w.Stats(); stats.Persisted != 1 {
		t.Fatalf("expected 1 persisted job, got %+v", stats)
	}
}

func TestSynchronousWorkerPersistsInline(t *testing.T) {
	db := openTestDB(t)
	w := New(db, Options{Synchronous: true})

	s := &model.Sampler{MagFilter: 3}
	if err := w.Enqueue(Job{Tag: model.TagSampler, Hash: 0x7, Value: s}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if !db.HasEntry(model.TagSampler, 0x7) {
		t.Fatalf("expected synchronous mode to persist immediately")
	}
}

func TestEnqueueAfterCloseFails(t *testing.T) {
	db := openTestDB(t)
	w := New(db, Options{QueueSize: 1})
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := w.Enqueue(Job{Tag: model.TagSampler, Hash: 1, Value: &model.Sampler{}}); err == nil {
		t.Fatalf("expected enqueue after close to fail")
	}
}

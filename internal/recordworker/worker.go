// Package recordworker implements C5: the background goroutine that
// absorbs capture events off the hot path and persists them in order
// (spec §4.5).
package recordworker

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/nmxmxh/fossilize/internal/archive"
	"github.com/nmxmxh/fossilize/internal/codec"
	"github.com/nmxmxh/fossilize/internal/errutil"
	"github.com/nmxmxh/fossilize/internal/logging"
	"github.com/nmxmxh/fossilize/internal/model"
)

// Job is one capture event enqueued by the interception layer: a tagged,
// already-normalized create-info ready for encoding (spec §4.5 "{tag,
// handle, normalized-info-ref}"; the Recorder has already resolved the
// handle to Hash by the time a Job reaches the worker).
type Job struct {
	Tag   model.Tag
	Hash  model.Hash
	Value any
}

// Worker absorbs Jobs from a bounded queue and persists them to an
// archive.Database in order. Mode selects whether persistence happens
// inline (synchronous) or on a dedicated goroutine (asynchronous, the
// default).
type Worker struct {
	db  *archive.Database
	log *logging.Logger

	queue chan Job
	sync  bool

	wg      sync.WaitGroup
	closed  atomic.Bool
	drained chan struct{}

	enqueued  atomic.Uint64
	persisted atomic.Uint64
	failed    atomic.Uint64
}

// Options configures a Worker.
type Options struct {
	// QueueSize bounds the number of in-flight Jobs before the capture
	// side blocks (spec §4.5 "Backpressure"). Ignored in synchronous mode.
	QueueSize int
	// Synchronous performs encode+write inline on Enqueue, preferring
	// eager persistence over throughput when crash recovery is expected
	// to be fragile (spec §4.5 "A 'synchronous' mode exists...").
	Synchronous bool
	Log         *logging.Logger
}

// New starts a Worker backed by db. Call Close to drain the queue and
// stop the background goroutine (spec §4.5 "On teardown the worker
// drains its queue before returning").
func New(db *archive.Database, opts Options) *Worker {
	if opts.Log == nil {
		opts.Log = logging.Default("recordworker")
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	w := &Worker{
		db:      db,
		log:     opts.Log,
		queue:   make(chan Job, opts.QueueSize),
		sync:    opts.Synchronous,
		drained: make(chan struct{}),
	}
	if !w.sync {
		w.wg.Add(1)
		go w.run()
	}
	return w
}

// Enqueue submits a Job. In asynchronous mode this blocks only if the
// queue is full (spec §4.5 "the capture side blocks briefly"); in
// synchronous mode it performs encode+write inline and returns any
// resulting error.
func (w *Worker) Enqueue(job Job) error {
	if w.closed.Load() {
		return &errutil.IoError{Op: "enqueue", Cause: errutil.Wrap(nil, "worker is closed")}
	}
	w.enqueued.Add(1)
	if w.sync {
		return w.persist(job)
	}
	w.queue <- job
	return nil
}

func (w *Worker) run() {
	defer w.wg.Done()
	defer close(w.drained)
	for job := range w.queue {
		if err := w.persist(job); err != nil {
			w.log.Error("failed to persist capture event",
				logging.String("tag", job.Tag.String()),
				logging.String("hash", job.Hash.String()),
				logging.Err(err))
		}
	}
}

func (w *Worker) persist(job Job) error {
	if marker, ok := job.Value.(markerFunc); ok {
		marker()
		return nil
	}
	blob, err := codec.EncodeObject(job.Tag, job.Value)
	if err != nil {
		w.failed.Add(1)
		return &errutil.ParseError{Reason: "encode " + job.Tag.String(), Cause: err}
	}
	if err := w.db.WriteEntry(job.Tag, job.Hash, blob); err != nil {
		w.failed.Add(1)
		return err
	}
	w.persisted.Add(1)
	return nil
}

// Drain blocks until every Job enqueued before the call has been
// persisted, without closing the Worker. It works by enqueuing a marker
// and waiting for the run loop to reach it, so it never races with
// concurrent producers the way polling queue length would.
func (w *Worker) Drain(ctx context.Context) error {
	if w.sync {
		return nil
	}
	reached := make(chan struct{})
	marker := Job{Value: markerFunc(func() { close(reached) })}
	select {
	case w.queue <- marker:
	case <-ctx.Done():
		return &errutil.TimeoutDetected{Operation: "recordworker drain enqueue"}
	}
	select {
	case <-reached:
		return nil
	case <-ctx.Done():
		return &errutil.TimeoutDetected{Operation: "recordworker drain"}
	}
}

// markerFunc is a non-persisted Job payload used only to synchronize
// Drain with the run loop.
type markerFunc func()

// Close drains the remaining queue and stops the background goroutine
// (spec §4.5 "On teardown the worker drains its queue before returning").
func (w *Worker) Close() error {
	if w.closed.Swap(true) {
		return nil
	}
	if w.sync {
		return nil
	}
	close(w.queue)
	w.wg.Wait()
	return nil
}

// Stats reports the Worker's lifetime counters.
type Stats struct {
	Enqueued  uint64
	Persisted uint64
	Failed    uint64
}

func (w *Worker) Stats() Stats {
	return Stats{
		Enqueued:  w.enqueued.Load(),
		Persisted: w.persisted.Load(),
		Failed:    w.failed.Load(),
	}
}

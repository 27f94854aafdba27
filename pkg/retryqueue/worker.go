package retryqueue

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/localsearch/engine/pkg/errs"
	"github.com/localsearch/engine/pkg/extraction"
	"github.com/localsearch/engine/pkg/model"
)

// ActivityGate is the subset of ActivityMonitor the retry worker consults
// between individual retries, kept as a small local interface so this
// package never imports pkg/activity directly.
type ActivityGate interface {
	WaitUntilIdle(ctx context.Context)
}

// Store is the subset of pkg/store.Store the retry worker needs.
type Store interface {
	Upsert(path, content string, mtime time.Time) error
}

// Worker periodically drains a Queue and retries each path, per §4.4: a
// vanished file or one now over the size cap is simply removed; otherwise
// the extractor is re-run and success clears the record, a retryable
// failure (or a failed Store write) bumps the attempt counter, and any other
// failure removes the record. There is intentionally no hard attempt cap —
// a file a user keeps open is expected to succeed as soon as they close it.
type Worker struct {
	queue      *Queue
	store      Store
	dispatcher *extraction.Dispatcher
	gate       ActivityGate
	maxSize    int64
	interval   time.Duration
	log        *slog.Logger
}

// NewWorker builds a retry Worker. gate may be nil to disable activity
// gating (e.g. in tests).
func NewWorker(queue *Queue, store Store, dispatcher *extraction.Dispatcher, gate ActivityGate, maxSize int64, interval time.Duration) *Worker {
	return &Worker{
		queue:      queue,
		store:      store,
		dispatcher: dispatcher,
		gate:       gate,
		maxSize:    maxSize,
		interval:   interval,
		log:        slog.Default(),
	}
}

// Run blocks, draining the queue every interval until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.drainOnce(ctx)
		}
	}
}

// drainOnce runs a single drain pass; kept as its own method (rather than
// inlined in Run) so tests can trigger a pass deterministically.
func (w *Worker) drainOnce(ctx context.Context) {
	for _, record := range w.queue.Drain() {
		if ctx.Err() != nil {
			return
		}
		w.retryOne(ctx, record)
	}
}

func (w *Worker) retryOne(ctx context.Context, record model.RetryRecord) {
	if w.gate != nil {
		w.gate.WaitUntilIdle(ctx)
	}

	info, err := os.Stat(record.Path)
	if err != nil {
		w.queue.Remove(record.Path)
		return
	}
	if info.Size() > w.maxSize {
		w.queue.Remove(record.Path)
		return
	}

	result, err := w.dispatcher.Extract(ctx, record.Path)
	if err != nil {
		if errs.IsRetryable(err) {
			w.queue.BumpAttempt(record.Path)
		} else {
			w.queue.Remove(record.Path)
		}
		return
	}

	if err := w.store.Upsert(record.Path, result.Text, info.ModTime()); err != nil {
		w.log.Error("retry upsert failed", "path", record.Path, "error", err)
		w.queue.BumpAttempt(record.Path)
		return
	}
	w.queue.Remove(record.Path)
}

// Package indexworker implements the scheduler: the Collect → Process →
// Reconcile → Maintain state machine that consumes Crawler output,
// consults the Store for change detection, calls Extractors under
// activity gating, writes batches to the Store, and feeds the RetryQueue.
package indexworker

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/localsearch/engine/pkg/errs"
	"github.com/localsearch/engine/pkg/extraction"
	"github.com/localsearch/engine/pkg/model"
)

// State is one of IndexWorker's five lifecycle states.
type State int32

const (
	StateIdle State = iota
	StateCollecting
	StateProcessing
	StateReconciling
	StateMaintaining
)

func (s State) String() string {
	switch s {
	case StateCollecting:
		return "collecting"
	case StateProcessing:
		return "processing"
	case StateReconciling:
		return "reconciling"
	case StateMaintaining:
		return "maintaining"
	default:
		return "idle"
	}
}

// ErrBusy is returned by Run when an IndexWorker pass is already active —
// the specification requires exactly one active crawl at a time.
var ErrBusy = errors.New("indexworker: a pass is already running")

// Store is the subset of pkg/store.Store the scheduler needs.
type Store interface {
	Upsert(path, content string, mtime time.Time) error
	UpsertBatch(entries []model.IndexEntry) error
	GetMTime(path string) (*time.Time, error)
	ListLivePaths() ([]string, error)
	Tombstone(path string) error
	Optimize() error
	Vacuum() error
}

// Gate is the subset of pkg/activity.Monitor the scheduler consults once
// per file before any I/O-heavy work.
type Gate interface {
	IsActive() bool
	WaitUntilIdle(ctx context.Context)
}

// RetryQueue is the subset of pkg/retryqueue.Queue the scheduler feeds.
type RetryQueue interface {
	Offer(path string, reason model.RetryReason)
}

// Extractor is satisfied by *extraction.Dispatcher.
type Extractor interface {
	Extract(ctx context.Context, path string) (extraction.ExtractedContent, error)
}

// DiscoverFunc adapts a directory walker (typically
// (*crawler.Crawler).Discover, with its *crawler.Stats return value
// dropped) to the one thing the scheduler needs: a channel of candidate
// paths. Kept as a function type rather than an interface so this package
// never needs to import pkg/crawler.
type DiscoverFunc func(ctx context.Context, root string) <-chan string

// EventLogger is the subset of pkg/indexlog.Logs the scheduler writes to.
type EventLogger interface {
	Event(status, path, detail string)
	Skip(path, reason string)
	ErrorEvent(path string, err error)
	IndexedEvent(path, content string)
}

// Worker is the IndexWorker scheduler. Exactly one Run call may be active
// at a time; a second concurrent call is rejected with ErrBusy.
type Worker struct {
	store      Store
	dispatcher Extractor
	retryQueue RetryQueue
	gate       Gate
	discover   DiscoverFunc
	logs       EventLogger

	maxFileSize    int64
	batchSize      int
	interFilePause time.Duration
	mtimeTolerance time.Duration

	running atomic.Bool
	state   atomic.Int32
	log     *slog.Logger
}

// Config bundles Worker's tunables, all of which the specification names
// explicit defaults for.
type Config struct {
	MaxFileSize    int64
	BatchSize      int
	InterFilePause time.Duration
}

// New builds a Worker. discover is typically (*crawler.Crawler).Discover
// adapted to DiscoverFunc by the caller (see pkg/supervisor), keeping this
// package decoupled from pkg/crawler.
func New(store Store, dispatcher Extractor, retryQueue RetryQueue, gate Gate, discover DiscoverFunc, logs EventLogger, cfg Config) *Worker {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 2
	}
	if cfg.InterFilePause <= 0 {
		cfg.InterFilePause = 10 * time.Millisecond
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 100 * 1024 * 1024
	}
	return &Worker{
		store:          store,
		dispatcher:     dispatcher,
		retryQueue:     retryQueue,
		gate:           gate,
		discover:       discover,
		logs:           logs,
		maxFileSize:    cfg.MaxFileSize,
		batchSize:      cfg.BatchSize,
		interFilePause: cfg.InterFilePause,
		mtimeTolerance: time.Second,
		log:            slog.Default(),
	}
}

// State returns the worker's current lifecycle state; Supervisor polls it
// during shutdown to wait for an in-flight pass to reach StateIdle.
func (w *Worker) State() State { return State(w.state.Load()) }

// Run executes one full Collect → Process → Reconcile → Maintain pass over
// roots. reconcile controls whether the Reconcile phase runs — the
// specification restricts it to full-root passes, not single-file
// triggers (which the Watcher handles directly).
func (w *Worker) Run(ctx context.Context, roots []string, reconcile bool) (model.IndexStats, error) {
	if !w.running.CompareAndSwap(false, true) {
		return model.IndexStats{}, ErrBusy
	}
	defer func() {
		w.running.Store(false)
		w.state.Store(int32(StateIdle))
	}()

	stats := model.IndexStats{RunID: uuid.NewString(), StartTime: time.Now()}
	w.logs.Event("PassStart", "", stats.RunID)

	discovered := w.collect(ctx, roots, &stats)
	batch := w.process(ctx, discovered, &stats)

	if reconcile && ctx.Err() == nil {
		w.reconcileTombstones(discovered, &stats)
	}

	w.maintain(batch, &stats)

	stats.EndTime = time.Now()
	return stats, nil
}

func (w *Worker) collect(ctx context.Context, roots []string, stats *model.IndexStats) []string {
	w.state.Store(int32(StateCollecting))

	var discovered []string
	for _, root := range roots {
		if ctx.Err() != nil {
			break
		}
		for path := range w.discover(ctx, root) {
			discovered = append(discovered, path)
			stats.TotalDiscovered++
		}
	}
	return discovered
}

func (w *Worker) process(ctx context.Context, discovered []string, stats *model.IndexStats) []model.IndexEntry {
	w.state.Store(int32(StateProcessing))

	var batch []model.IndexEntry

	for _, path := range discovered {
		if ctx.Err() != nil {
			break
		}

		if w.gate != nil && w.gate.IsActive() {
			w.gate.WaitUntilIdle(ctx)
			stats.PausedCount++
		}

		info, err := os.Stat(path)
		if err != nil {
			// Vanished between discovery and processing; not an error.
			continue
		}
		if info.Size() > w.maxFileSize {
			stats.Skipped++
			w.logs.Skip(path, "SizeExceeded")
			continue
		}

		currentMTime := info.ModTime()
		storedMTime, err := w.store.GetMTime(path)
		if err != nil {
			stats.Errored++
			w.logs.ErrorEvent(path, err)
			continue
		}

		if storedMTime != nil && math.Abs(currentMTime.Sub(*storedMTime).Seconds()) < w.mtimeTolerance.Seconds() {
			continue // unchanged
		}
		isNew := storedMTime == nil

		result, err := w.dispatcher.Extract(ctx, path)
		if err != nil {
			w.handleExtractFailure(path, err, stats)
			w.pause(ctx)
			continue
		}

		if isNew {
			batch = append(batch, model.IndexEntry{Path: path, Content: result.Text, MTime: currentMTime})
			// stats.New/stats.Indexed are credited only once flushBatch
			// confirms the write actually committed.
			if len(batch) >= w.batchSize {
				w.flushBatch(batch, stats)
				batch = nil
			}
		} else {
			if err := w.store.Upsert(path, result.Text, currentMTime); err != nil {
				stats.Errored++
				w.logs.ErrorEvent(path, err)
				w.pause(ctx)
				continue
			}
			stats.Modified++
			stats.Indexed++
			w.logs.IndexedEvent(path, result.Text)
		}
		w.pause(ctx)
	}

	return batch
}

func (w *Worker) handleExtractFailure(path string, err error, stats *model.IndexStats) {
	stats.Skipped++
	reason := reasonFromError(err)
	if reason != "" {
		w.retryQueue.Offer(path, reason)
	}
	w.logs.Skip(path, err.Error())
}

func reasonFromError(err error) model.RetryReason {
	switch {
	case errors.Is(err, errs.ErrFileLocked):
		return model.ReasonFileLocked
	case errors.Is(err, errs.ErrTimeout):
		return model.ReasonTimeout
	case errors.Is(err, errs.ErrPasswordProtected):
		return model.ReasonPasswordProtected
	case errors.Is(err, errs.ErrTransientIO):
		return model.ReasonTransientIO
	default:
		return ""
	}
}

func (w *Worker) flushBatch(batch []model.IndexEntry, stats *model.IndexStats) {
	if len(batch) == 0 {
		return
	}
	if err := w.store.UpsertBatch(batch); err != nil {
		stats.Errored += len(batch)
		for _, e := range batch {
			w.logs.ErrorEvent(e.Path, err)
		}
		return
	}
	stats.New += len(batch)
	stats.Indexed += len(batch)
	for _, e := range batch {
		w.logs.IndexedEvent(e.Path, e.Content)
	}
}

func (w *Worker) pause(ctx context.Context) {
	select {
	case <-time.After(w.interFilePause):
	case <-ctx.Done():
	}
}

func (w *Worker) reconcileTombstones(discovered []string, stats *model.IndexStats) {
	w.state.Store(int32(StateReconciling))

	discoveredSet := make(map[string]struct{}, len(discovered))
	for _, p := range discovered {
		discoveredSet[p] = struct{}{}
	}

	live, err := w.store.ListLivePaths()
	if err != nil {
		w.log.Error("reconcile: list live paths failed", "error", err)
		return
	}

	for _, p := range live {
		if _, found := discoveredSet[p]; found {
			continue
		}
		if err := w.store.Tombstone(p); err != nil {
			w.log.Error("reconcile: tombstone failed", "path", p, "error", err)
			continue
		}
		stats.Tombstoned++
		w.logs.Event("Tombstoned", p, "")
	}
}

func (w *Worker) maintain(remainingBatch []model.IndexEntry, stats *model.IndexStats) {
	w.state.Store(int32(StateMaintaining))

	w.flushBatch(remainingBatch, stats)

	if err := w.store.Optimize(); err != nil {
		w.log.Error("maintain: optimize failed", "error", err)
	}
	if err := w.store.Vacuum(); err != nil {
		w.log.Error("maintain: vacuum failed", "error", err)
	}
}

// Package supervisor owns startup, shutdown, and lifecycle of every other
// component: Store, ActivityMonitor, IndexWorker, Watcher, and the retry
// worker, per §4.9. Startup order is Store → ActivityMonitor → IndexWorker
// and Watcher; shutdown signals cancellation to every subsystem, joins
// each with its own bounded timeout, then commits and closes the Store.
package supervisor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/localsearch/engine/pkg/activity"
	"github.com/localsearch/engine/pkg/config"
	"github.com/localsearch/engine/pkg/crawler"
	"github.com/localsearch/engine/pkg/exclusion"
	"github.com/localsearch/engine/pkg/extraction"
	"github.com/localsearch/engine/pkg/indexlog"
	"github.com/localsearch/engine/pkg/indexworker"
	"github.com/localsearch/engine/pkg/model"
	"github.com/localsearch/engine/pkg/retryqueue"
	"github.com/localsearch/engine/pkg/store"
	"github.com/localsearch/engine/pkg/watcher"
)

// Supervisor wires every component together according to cfg and owns
// their combined lifecycle.
type Supervisor struct {
	cfg *config.Config
	log *slog.Logger

	Store      *store.Store
	Monitor    *activity.Monitor
	RetryQueue *retryqueue.Queue
	IndexW     *indexworker.Worker
	Watch      *watcher.Watcher
	Logs       *indexlog.Logs

	retryWorker *retryqueue.Worker

	cancel context.CancelFunc
	mu     sync.Mutex

	watcherDone chan struct{}
	retryDone   chan struct{}
	monitorDone chan struct{}
}

// New constructs every component wired per cfg but does not start any
// background goroutines — call Start for that.
func New(cfg *config.Config) (*Supervisor, error) {
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	logs, err := indexlog.Open(cfg.LogDir)
	if err != nil {
		st.Close()
		return nil, err
	}

	filter := exclusion.New(exclusion.WithGlobPatterns(cfg.ExcludePatterns))
	registry := extraction.DefaultRegistry()
	dispatcher := extraction.NewDispatcher(registry, cfg.ExtractionTimeout(), cfg.HWPTimeout())
	cr := crawler.New(filter)

	var source activity.Source
	if !cfg.EnableActivityMonitor {
		source = activity.NoopSource{}
	}
	monitor := activity.New(cfg.IdleThreshold(), 100*time.Millisecond, source)

	rq := retryqueue.New()
	retryWorker := retryqueue.NewWorker(rq, st, dispatcher, monitor, cfg.MaxFileSizeBytes, cfg.RetryInterval())

	discover := func(ctx context.Context, root string) <-chan string {
		ch, _ := cr.Discover(ctx, root)
		return ch
	}
	iw := indexworker.New(st, dispatcher, rq, monitor, discover, logs, indexworker.Config{
		MaxFileSize: cfg.MaxFileSizeBytes,
	})

	w, err := watcher.New(st, dispatcher, monitor, filter)
	if err != nil {
		logs.Close()
		st.Close()
		return nil, err
	}

	return &Supervisor{
		cfg:         cfg,
		log:         slog.Default(),
		Store:       st,
		Monitor:     monitor,
		RetryQueue:  rq,
		IndexW:      iw,
		Watch:       w,
		Logs:        logs,
		retryWorker: retryWorker,
		// A no-op cancel until Start installs the real one, so Shutdown
		// still closes the Store of a Supervisor that was never started.
		cancel: func() {},
	}, nil
}

// Start launches the ActivityMonitor listener, the retry worker, and the
// filesystem watcher over every configured root. It does not itself run an
// IndexWorker pass — callers (the CLI's "scan"/"watch" commands, or an
// auto-indexing timer) invoke RunIndexPass explicitly.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.monitorDone = make(chan struct{})
	go func() {
		defer close(s.monitorDone)
		s.Monitor.Start(ctx)
	}()

	s.retryDone = make(chan struct{})
	go func() {
		defer close(s.retryDone)
		s.retryWorker.Run(ctx)
	}()

	for _, root := range s.cfg.Roots {
		if err := s.Watch.AddRoot(root); err != nil {
			s.log.Warn("supervisor: failed to watch root", "root", root, "error", err)
		}
	}
	s.watcherDone = make(chan struct{})
	go func() {
		defer close(s.watcherDone)
		s.Watch.Run(ctx)
	}()

	return nil
}

// RunIndexPass runs one full IndexWorker pass over the configured roots.
func (s *Supervisor) RunIndexPass(ctx context.Context) (model.IndexStats, error) {
	return s.IndexW.Run(ctx, s.cfg.Roots, true)
}

// Shutdown cancels every subsystem, joins each with its documented bounded
// timeout (10s for IndexWorker's in-flight pass, 3s for everything else),
// then commits and closes the Store and flushes logs. Idempotent: a second
// call is a no-op.
func (s *Supervisor) Shutdown() error {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return nil // already shut down
	}
	cancel()

	s.joinWithTimeout("watcher", s.watcherDone, 3*time.Second)
	s.joinWithTimeout("retry-worker", s.retryDone, 3*time.Second)
	s.joinWithTimeout("activity-monitor", s.monitorDone, 3*time.Second)
	s.waitForIndexWorkerIdle(10 * time.Second)

	if err := s.Watch.Close(); err != nil {
		s.log.Warn("supervisor: watcher close failed", "error", err)
	}
	s.Logs.Close()
	return s.Store.Close()
}

func (s *Supervisor) joinWithTimeout(name string, done <-chan struct{}, timeout time.Duration) {
	if done == nil {
		return
	}
	select {
	case <-done:
	case <-time.After(timeout):
		s.log.Warn("supervisor: shutdown timed out waiting for subsystem", "subsystem", name)
	}
}

func (s *Supervisor) waitForIndexWorkerIdle(timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if s.IndexW.State() == indexworker.StateIdle {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	s.log.Warn("supervisor: shutdown timed out waiting for indexworker to idle")
}

// Package watcher subscribes to filesystem events under each active root
// and translates create/modify/delete/move events into Store mutations
// and single-file extractions, per §4.8. Grounded on the teacher's
// fsnotify-based watcher (pkg/context/document_store.go's
// initializeWatcher/setupFileWatching/watchFileEvents/handleFileEvent) for
// the event-loop shape, and on the debounce style of
// other_examples/.../templar's Debouncer (time.AfterFunc per key) for
// coalescing bursts of events on the same path. The per-path "in-flight"
// guard mirrors the original implementation's processing_files set
// (file_watcher.py), kept here as a sync.Map.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/localsearch/engine/pkg/extraction"
)

// Store is the subset of pkg/store.Store the watcher mutates.
type Store interface {
	ExistsLive(path string) (bool, error)
	Upsert(path, content string, mtime time.Time) error
	Tombstone(path string) error
}

// Gate is the subset of pkg/activity.Monitor the watcher consults before
// extracting — an event is always accepted and queued even while the user
// is active; the gate only delays the extraction itself.
type Gate interface {
	IsActive() bool
	WaitUntilIdle(ctx context.Context)
}

// ExclusionFilter is the subset of pkg/exclusion.Filter the watcher needs.
type ExclusionFilter interface {
	Include(path string) bool
	IncludeDir(path string) bool
}

// Extractor is satisfied by *extraction.Dispatcher.
type Extractor interface {
	Extract(ctx context.Context, path string) (extraction.ExtractedContent, error)
}

const debounceDelay = 500 * time.Millisecond

// Watcher watches a fixed set of root directories recursively.
type Watcher struct {
	fsw        *fsnotify.Watcher
	store      Store
	dispatcher Extractor
	gate       Gate
	filter     ExclusionFilter
	roots      []string

	mu      sync.Mutex
	timers  map[string]*time.Timer
	inFlight sync.Map // path -> struct{}

	log *slog.Logger
}

// New builds a Watcher. Call AddRoot for every directory to watch, then
// Run to start the event loop.
func New(store Store, dispatcher Extractor, gate Gate, filter ExclusionFilter) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fsw:        fsw,
		store:      store,
		dispatcher: dispatcher,
		gate:       gate,
		filter:     filter,
		timers:     make(map[string]*time.Timer),
		log:        slog.Default(),
	}, nil
}

// Close releases the underlying fsnotify watcher.
func (w *Watcher) Close() error { return w.fsw.Close() }

// AddRoot registers root and every subdirectory it currently contains
// (fsnotify has no native recursive mode) with the underlying watcher.
func (w *Watcher) AddRoot(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	w.roots = append(w.roots, abs)

	return filepath.Walk(abs, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		if path != abs && !w.filter.IncludeDir(path) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

// Run processes fsnotify events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) underRoot(path string) bool {
	for _, r := range w.roots {
		if strings.HasPrefix(path, r) {
			return true
		}
	}
	return false
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if !w.underRoot(event.Name) {
		return
	}

	switch {
	case event.Op&fsnotify.Create != 0:
		w.handleCreate(ctx, event.Name)
	case event.Op&fsnotify.Write != 0:
		w.handleModify(ctx, event.Name)
	case event.Op&fsnotify.Remove != 0:
		w.handleDelete(event.Name)
	case event.Op&fsnotify.Rename != 0:
		w.handleDelete(event.Name)
	}
}

func (w *Watcher) handleCreate(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err == nil && info.IsDir() {
		if w.filter.IncludeDir(path) {
			_ = w.fsw.Add(path)
		}
		return
	}
	if !w.filter.Include(path) {
		return
	}
	w.scheduleExtract(ctx, path)
}

func (w *Watcher) handleModify(ctx context.Context, path string) {
	live, err := w.store.ExistsLive(path)
	if err != nil || !live {
		return
	}
	w.scheduleExtract(ctx, path)
}

func (w *Watcher) handleDelete(path string) {
	live, err := w.store.ExistsLive(path)
	if err != nil || !live {
		return
	}
	if err := w.store.Tombstone(path); err != nil {
		w.log.Error("watcher: tombstone failed", "path", path, "error", err)
	}
}

// scheduleExtract debounces path: repeated events within debounceDelay
// reset the timer rather than triggering duplicate extractions.
func (w *Watcher) scheduleExtract(ctx context.Context, path string) {
	w.mu.Lock()
	if t, exists := w.timers[path]; exists {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(debounceDelay, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		w.extractAndUpsert(ctx, path)
	})
	w.mu.Unlock()
}

func (w *Watcher) extractAndUpsert(ctx context.Context, path string) {
	if _, inFlight := w.inFlight.LoadOrStore(path, struct{}{}); inFlight {
		return
	}
	defer w.inFlight.Delete(path)

	if w.gate != nil && w.gate.IsActive() {
		w.gate.WaitUntilIdle(ctx)
	}

	info, err := os.Stat(path)
	if err != nil {
		return // vanished before debounce fired
	}

	result, err := w.dispatcher.Extract(ctx, path)
	if err != nil {
		w.log.Warn("watcher: extraction failed", "path", path, "error", err)
		return
	}

	if err := w.store.Upsert(path, result.Text, info.ModTime()); err != nil {
		w.log.Error("watcher: upsert failed", "path", path, "error", err)
	}
}

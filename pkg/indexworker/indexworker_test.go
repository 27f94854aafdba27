package indexworker

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localsearch/engine/pkg/extraction"
	"github.com/localsearch/engine/pkg/model"
)

type fakeStore struct {
	mu      sync.Mutex
	entries map[string]model.IndexEntry
	live    map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: map[string]model.IndexEntry{}, live: map[string]bool{}}
}

func (s *fakeStore) Upsert(path, content string, mtime time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[path] = model.IndexEntry{Path: path, Content: content, MTime: mtime}
	s.live[path] = true
	return nil
}

func (s *fakeStore) UpsertBatch(entries []model.IndexEntry) error {
	for _, e := range entries {
		if err := s.Upsert(e.Path, e.Content, e.MTime); err != nil {
			return err
		}
	}
	return nil
}

func (s *fakeStore) GetMTime(path string) (*time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.live[path] {
		return nil, nil
	}
	t := s.entries[path].MTime
	return &t, nil
}

func (s *fakeStore) ListLivePaths() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for p, live := range s.live {
		if live {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *fakeStore) Tombstone(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live[path] = false
	return nil
}

func (s *fakeStore) Optimize() error { return nil }
func (s *fakeStore) Vacuum() error   { return nil }

type fakeRetryQueue struct {
	offered []string
}

func (q *fakeRetryQueue) Offer(path string, reason model.RetryReason) {
	q.offered = append(q.offered, path)
}

type noopLogger struct{}

func (noopLogger) Event(string, string, string)       {}
func (noopLogger) Skip(string, string)                {}
func (noopLogger) ErrorEvent(string, error)            {}
func (noopLogger) IndexedEvent(string, string)        {}

type fakeExtractor struct{}

func (fakeExtractor) Extract(ctx context.Context, path string) (extraction.ExtractedContent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return extraction.ExtractedContent{}, err
	}
	return extraction.ExtractedContent{Text: string(data), Chars: len(data)}, nil
}

func discoverDir(dir string) DiscoverFunc {
	return func(ctx context.Context, root string) <-chan string {
		out := make(chan string, 16)
		go func() {
			defer close(out)
			entries, _ := os.ReadDir(root)
			for _, e := range entries {
				if !e.IsDir() {
					out <- filepath.Join(root, e.Name())
				}
			}
		}()
		return out
	}
}

func TestRunIndexesNewFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("world"), 0o644))

	s := newFakeStore()
	w := New(s, fakeExtractor{}, &fakeRetryQueue{}, nil, discoverDir(dir), noopLogger{}, Config{BatchSize: 2, InterFilePause: time.Millisecond})

	stats, err := w.Run(context.Background(), []string{dir}, true)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.New)
	assert.Equal(t, 2, stats.Indexed)
	assert.Equal(t, 0, stats.Modified)
}

func TestRunTwiceUnchangedProducesZeroDeltas(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o644))

	s := newFakeStore()
	w := New(s, fakeExtractor{}, &fakeRetryQueue{}, nil, discoverDir(dir), noopLogger{}, Config{BatchSize: 2, InterFilePause: time.Millisecond})

	_, err := w.Run(context.Background(), []string{dir}, true)
	require.NoError(t, err)

	stats, err := w.Run(context.Background(), []string{dir}, true)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.New)
	assert.Equal(t, 0, stats.Modified)
	assert.Equal(t, 0, stats.Tombstoned)
}

func TestRunRejectsConcurrentPass(t *testing.T) {
	dir := t.TempDir()
	s := newFakeStore()
	w := New(s, fakeExtractor{}, &fakeRetryQueue{}, nil, discoverDir(dir), noopLogger{}, Config{})
	w.running.Store(true)

	_, err := w.Run(context.Background(), []string{dir}, true)
	assert.ErrorIs(t, err, ErrBusy)
}

func TestReconcileTombstonesVanishedFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	s := newFakeStore()
	w := New(s, fakeExtractor{}, &fakeRetryQueue{}, nil, discoverDir(dir), noopLogger{}, Config{BatchSize: 2, InterFilePause: time.Millisecond})
	_, err := w.Run(context.Background(), []string{dir}, true)
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))
	stats, err := w.Run(context.Background(), []string{dir}, true)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Tombstoned)
}

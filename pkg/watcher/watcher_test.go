package watcher

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
)

type fakeStore struct {
	mu        sync.Mutex
	live      map[string]bool
	contents  map[string]string
	tombstoned []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{live: map[string]bool{}, contents: map[string]string{}}
}

func (s *fakeStore) ExistsLive(path string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live[path], nil
}

func (s *fakeStore) Upsert(path, content string, mtime time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live[path] = true
	s.contents[path] = content
	return nil
}

func (s *fakeStore) Tombstone(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live[path] = false
	s.tombstoned = append(s.tombstoned, path)
	return nil
}

type passFilter struct{}

func (passFilter) Include(string) bool    { return true }
func (passFilter) IncludeDir(string) bool { return true }

type fakeExtractor struct{}

func (fakeExtractor) Extract(ctx context.Context, path string) (extraction.ExtractedContent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return extraction.ExtractedContent{}, err
	}
	return extraction.ExtractedContent{Text: string(data)}, nil
}

func TestWatcherIndexesCreatedFile(t *testing.T) {
	dir := t.TempDir()
	s := newFakeStore()
	w, err := New(s, fakeExtractor{}, nil, passFilter{})
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.AddRoot(dir))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	path := filepath.Join(dir, "new.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	require.Eventually(t, func() bool {
		live, _ := s.ExistsLive(path)
		return live
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatcherTombstonesDeletedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gone.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	s := newFakeStore()
	s.live[path] = true

	w, err := New(s, fakeExtractor{}, nil, passFilter{})
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.AddRoot(dir))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, os.Remove(path))

	require.Eventually(t, func() bool {
		live, _ := s.ExistsLive(path)
		return !live
	}, 2*time.Second, 10*time.Millisecond)
}

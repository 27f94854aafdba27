package retryqueue

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localsearch/engine/pkg/extraction"
	"github.com/localsearch/engine/pkg/model"
)

type fakeStore struct {
	upserted map[string]string
}

func (s *fakeStore) Upsert(path, content string, mtime time.Time) error {
	s.upserted[path] = content
	return nil
}

func newDispatcher() *extraction.Dispatcher {
	registry := extraction.NewRegistry(extraction.NewTextExtractor())
	return extraction.NewDispatcher(registry, time.Second, time.Second)
}

func TestDrainOnceSucceedsAndRemovesRecord(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	q := New()
	q.Offer(path, model.ReasonFileLocked)

	store := &fakeStore{upserted: map[string]string{}}
	w := NewWorker(q, store, newDispatcher(), nil, 1<<20, time.Hour)

	w.drainOnce(context.Background())

	assert.Equal(t, "hello", store.upserted[path])
	assert.Equal(t, 0, q.Size())
}

func TestDrainOnceRemovesVanishedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gone.txt")

	q := New()
	q.Offer(path, model.ReasonTimeout)

	store := &fakeStore{upserted: map[string]string{}}
	w := NewWorker(q, store, newDispatcher(), nil, 1<<20, time.Hour)

	w.drainOnce(context.Background())

	assert.Equal(t, 0, q.Size())
	assert.Empty(t, store.upserted)
}

func TestDrainOnceRemovesOversizedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.txt")
	require.NoError(t, os.WriteFile(path, []byte("0123456789"), 0o644))

	q := New()
	q.Offer(path, model.ReasonFileLocked)

	store := &fakeStore{upserted: map[string]string{}}
	w := NewWorker(q, store, newDispatcher(), nil, 4, time.Hour)

	w.drainOnce(context.Background())

	assert.Equal(t, 0, q.Size())
}

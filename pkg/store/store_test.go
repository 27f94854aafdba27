package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localsearch/engine/pkg/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertAndGetDetail(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	require.NoError(t, s.Upsert("/root/a.txt", "hello world", now))

	entry, err := s.GetDetail("/root/a.txt")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "hello world", entry.Content)
	assert.False(t, entry.Deleted)
	assert.Nil(t, entry.DeletedAt)
}

func TestTombstoneThenUpsertClearsDeletedAt(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	require.NoError(t, s.Upsert("/root/a.txt", "hello", now))
	require.NoError(t, s.Tombstone("/root/a.txt"))

	entry, err := s.GetDetail("/root/a.txt")
	require.NoError(t, err)
	require.True(t, entry.Deleted)
	require.NotNil(t, entry.DeletedAt)

	require.NoError(t, s.Upsert("/root/a.txt", "hello again", now))
	entry, err = s.GetDetail("/root/a.txt")
	require.NoError(t, err)
	assert.False(t, entry.Deleted)
	assert.Nil(t, entry.DeletedAt)
}

func TestSearchLiteralQuotedPhrase(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	require.NoError(t, s.Upsert("/root/a.txt", "hello world", now))
	require.NoError(t, s.Upsert("/root/b.md", "world peace", now))

	hits, err := s.Search(`"hello world"`, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "/root/a.txt", hits[0].Path)
	assert.Equal(t, float64(0), hits[0].Rank)
}

func TestSearchSingleTokenMatchesBoth(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	require.NoError(t, s.Upsert("/root/a.txt", "hello world", now))
	require.NoError(t, s.Upsert("/root/b.md", "world peace", now))

	hits, err := s.Search("world", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestSearchDoesNotReturnTombstoned(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	require.NoError(t, s.Upsert("/root/b.md", "world peace", now))
	require.NoError(t, s.Tombstone("/root/b.md"))

	hits, err := s.Search("peace", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchPunctuationOnlyYieldsNoCrash(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Upsert("/root/a.txt", "hello world", time.Now()))

	hits, err := s.Search(`-()[]*`, 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchKoreanAndLatinScripts(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	require.NoError(t, s.Upsert("/root/korean.txt", "한국어 검색 테스트", now))
	require.NoError(t, s.Upsert("/root/latin.txt", "search engine test", now))

	hits, err := s.Search("검색", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "/root/korean.txt", hits[0].Path)

	hits, err = s.Search("search", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "/root/latin.txt", hits[0].Path)
}

func TestUpsertBatchAtomic(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	entries := []model.IndexEntry{
		{Path: "/root/x.txt", Content: "x content", MTime: now},
		{Path: "/root/y.txt", Content: "y content", MTime: now},
	}
	require.NoError(t, s.UpsertBatch(entries))

	paths, err := s.ListLivePaths()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"/root/x.txt", "/root/y.txt"}, paths)
}

func TestGCTombstones(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Upsert("/root/a.txt", "hello", time.Now()))
	require.NoError(t, s.Tombstone("/root/a.txt"))

	n, err := s.GCTombstones(0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	entry, err := s.GetDetail("/root/a.txt")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestListByPathPrefixFiltersAndOrdersByMTimeDescending(t *testing.T) {
	s := newTestStore(t)
	older := time.Now().Add(-time.Hour)
	newer := time.Now()
	require.NoError(t, s.Upsert("/root/docs/a.txt", "a", older))
	require.NoError(t, s.Upsert("/root/docs/b.txt", "b", newer))
	require.NoError(t, s.Upsert("/root/other/c.txt", "c", newer))

	entries, err := s.ListByPathPrefix("/root/docs/", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "/root/docs/b.txt", entries[0].Path)
	assert.Equal(t, "/root/docs/a.txt", entries[1].Path)
}

func TestListByPathPrefixExcludesTombstoned(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Upsert("/root/docs/a.txt", "a", time.Now()))
	require.NoError(t, s.Tombstone("/root/docs/a.txt"))

	entries, err := s.ListByPathPrefix("/root/docs/", 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSearchHistoryUpsert(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddHistory("invoice"))
	require.NoError(t, s.AddHistory("invoice"))

	list, err := s.ListHistory(10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "invoice", list[0].Keyword)
}

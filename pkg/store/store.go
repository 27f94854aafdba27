// Package store is the persistent full-text index: a SQLite FTS5-backed
// table of IndexEntry rows with tombstone semantics, plus the
// search-history table. The schema and trigger-sync pattern are grounded
// on the external-content FTS5 table approach used for SQL-backed stores
// elsewhere in the example pack (an FTS5 virtual table kept in sync with
// its base table via AFTER INSERT/DELETE/UPDATE triggers).
package store

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/localsearch/engine/pkg/errs"
	"github.com/localsearch/engine/pkg/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	path TEXT NOT NULL UNIQUE,
	content TEXT NOT NULL DEFAULT '',
	mtime REAL NOT NULL,
	deleted INTEGER NOT NULL DEFAULT 0,
	deleted_at REAL
);
CREATE INDEX IF NOT EXISTS idx_documents_path ON documents(path);
CREATE INDEX IF NOT EXISTS idx_documents_deleted ON documents(deleted);

CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts USING fts5(
	content,
	content='documents',
	content_rowid='id',
	tokenize='trigram'
);

CREATE TRIGGER IF NOT EXISTS documents_ai AFTER INSERT ON documents BEGIN
	INSERT INTO documents_fts(rowid, content) VALUES (new.id, new.content);
END;
CREATE TRIGGER IF NOT EXISTS documents_ad AFTER DELETE ON documents BEGIN
	INSERT INTO documents_fts(documents_fts, rowid, content) VALUES('delete', old.id, old.content);
END;
CREATE TRIGGER IF NOT EXISTS documents_au AFTER UPDATE ON documents BEGIN
	INSERT INTO documents_fts(documents_fts, rowid, content) VALUES('delete', old.id, old.content);
	INSERT INTO documents_fts(rowid, content) VALUES (new.id, new.content);
END;

CREATE TABLE IF NOT EXISTS search_history (
	keyword TEXT PRIMARY KEY,
	last_used REAL NOT NULL
);
`

// Store is the FTS-backed index. Every mutation of the documents table and
// its FTS index serializes through mu in addition to whatever SQLite itself
// enforces, so that upsert_batch can offer an all-or-nothing guarantee
// without relying on busy-retry loops under concurrent writers. Search-history
// writes do not take mu; they go straight to the single writer connection. Reads go through a separate read-only handle
// (readDB) with many connections, so concurrent Search/GetDetail/etc. calls
// never queue behind the single writer connection or each other, per
// §4.1's "concurrent readers must not block one another."
type Store struct {
	db     *sql.DB // single writer connection, guarded by mu
	readDB *sql.DB // many read-only connections, WAL lets these run unblocked
	mu     sync.Mutex
}

// Open opens (creating if necessary) the SQLite database at path in WAL
// mode with a busy timeout, and applies the schema. Two handles are
// opened: a single-connection writer and a multi-connection read-only
// handle, so reads never serialize behind writes or each other.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errs.NewStoreError("Open", "failed to open database", path, err)
	}
	// A single writer connection avoids SQLITE_BUSY storms under concurrent
	// upserts; the separate readDB handle below is what actually keeps
	// readers unblocked under WAL.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errs.NewStoreError("Open", "failed to apply schema", path, err)
	}

	readDSN := fmt.Sprintf("file:%s?mode=ro&_journal_mode=WAL&_busy_timeout=5000", path)
	readDB, err := sql.Open("sqlite3", readDSN)
	if err != nil {
		db.Close()
		return nil, errs.NewStoreError("Open", "failed to open read handle", path, err)
	}
	readDB.SetMaxOpenConns(max(4, runtime.NumCPU()))

	return &Store{db: db, readDB: readDB}, nil
}

// Close releases both underlying database handles.
func (s *Store) Close() error {
	readErr := s.readDB.Close()
	if err := s.db.Close(); err != nil {
		return err
	}
	return readErr
}

func toEpoch(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func fromEpoch(sec float64) time.Time {
	return time.Unix(0, int64(sec*1e9))
}

// Upsert inserts or updates a single entry, clearing any tombstone.
func (s *Store) Upsert(path, content string, mtime time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertTx(s.db, path, content, mtime)
}

func (s *Store) upsertTx(ex execer, path, content string, mtime time.Time) error {
	_, err := ex.Exec(`
		INSERT INTO documents (path, content, mtime, deleted, deleted_at)
		VALUES (?, ?, ?, 0, NULL)
		ON CONFLICT(path) DO UPDATE SET
			content = excluded.content,
			mtime = excluded.mtime,
			deleted = 0,
			deleted_at = NULL
	`, path, content, toEpoch(mtime))
	if err != nil {
		return errs.NewStoreError("Upsert", "failed to upsert entry", path, err)
	}
	return nil
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

// UpsertBatch persists every entry atomically: all entries commit, or none
// do, matching the specification's batch-write durability requirement.
func (s *Store) UpsertBatch(entries []model.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return errs.NewStoreError("UpsertBatch", "failed to begin transaction", "", err)
	}

	for _, e := range entries {
		if err := s.upsertTx(tx, e.Path, e.Content, e.MTime); err != nil {
			tx.Rollback()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return errs.NewStoreError("UpsertBatch", "failed to commit batch", "", err)
	}
	return nil
}

// Tombstone marks an existing entry deleted. No-op if the path is unknown.
func (s *Store) Tombstone(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := toEpoch(time.Now())
	_, err := s.db.Exec(`UPDATE documents SET deleted = 1, deleted_at = ? WHERE path = ?`, now, path)
	if err != nil {
		return errs.NewStoreError("Tombstone", "failed to tombstone entry", path, err)
	}
	return nil
}

// Untombstone clears the tombstone flag on an existing entry.
func (s *Store) Untombstone(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`UPDATE documents SET deleted = 0, deleted_at = NULL WHERE path = ?`, path)
	if err != nil {
		return errs.NewStoreError("Untombstone", "failed to untombstone entry", path, err)
	}
	return nil
}

// ExistsLive reports whether path has a live (non-tombstoned) entry.
func (s *Store) ExistsLive(path string) (bool, error) {
	var count int
	err := s.readDB.QueryRow(`SELECT COUNT(1) FROM documents WHERE path = ? AND deleted = 0`, path).Scan(&count)
	if err != nil {
		return false, errs.NewStoreError("ExistsLive", "query failed", path, err)
	}
	return count > 0, nil
}

// GetMTime returns the stored mtime for a live entry, or nil if the path is
// unknown or tombstoned.
func (s *Store) GetMTime(path string) (*time.Time, error) {
	var mtime float64
	err := s.readDB.QueryRow(`SELECT mtime FROM documents WHERE path = ? AND deleted = 0`, path).Scan(&mtime)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errs.NewStoreError("GetMTime", "query failed", path, err)
	}
	t := fromEpoch(mtime)
	return &t, nil
}

// GetDetail returns the entry for path regardless of tombstone state, using
// the resolver cascade in §4.1.1: exact canonicalized match, then
// case-insensitive, then separator-swapped variants of both. Returns nil if
// no branch matches.
func (s *Store) GetDetail(path string) (*model.IndexEntry, error) {
	canon := canonicalize(path)

	candidates := []struct {
		query string
		arg   string
	}{
		{`SELECT path, content, mtime, deleted, deleted_at FROM documents WHERE path = ?`, canon},
		{`SELECT path, content, mtime, deleted, deleted_at FROM documents WHERE path = ? COLLATE NOCASE`, canon},
	}

	swapped := swapSeparator(canon)
	if swapped != canon {
		candidates = append(candidates,
			struct {
				query string
				arg   string
			}{`SELECT path, content, mtime, deleted, deleted_at FROM documents WHERE path = ?`, swapped},
			struct {
				query string
				arg   string
			}{`SELECT path, content, mtime, deleted, deleted_at FROM documents WHERE path = ? COLLATE NOCASE`, swapped},
		)
	}

	for _, c := range candidates {
		row := s.readDB.QueryRow(c.query, c.arg)
		entry, err := scanEntry(row)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, errs.NewStoreError("GetDetail", "query failed", path, err)
		}
		return entry, nil
	}
	return nil, nil
}

func canonicalize(path string) string {
	clean := filepath.Clean(path)
	for len(clean) > 1 && strings.HasSuffix(clean, string(filepath.Separator)) {
		clean = clean[:len(clean)-1]
	}
	return clean
}

func swapSeparator(path string) string {
	if runtime.GOOS == "windows" {
		return strings.ReplaceAll(path, "/", "\\")
	}
	return strings.ReplaceAll(path, "\\", "/")
}

func scanEntry(row *sql.Row) (*model.IndexEntry, error) {
	var (
		p         string
		content   string
		mtime     float64
		deletedI  int
		deletedAt sql.NullFloat64
	)
	if err := row.Scan(&p, &content, &mtime, &deletedI, &deletedAt); err != nil {
		return nil, err
	}
	e := &model.IndexEntry{
		Path:    p,
		Content: content,
		MTime:   fromEpoch(mtime),
		Deleted: deletedI != 0,
	}
	if deletedAt.Valid {
		t := fromEpoch(deletedAt.Float64)
		e.DeletedAt = &t
	}
	return e, nil
}

// ListLivePaths returns every non-tombstoned path, used by IndexWorker's
// reconcile phase to compute which known paths vanished from the crawl.
func (s *Store) ListLivePaths() ([]string, error) {
	rows, err := s.readDB.Query(`SELECT path FROM documents WHERE deleted = 0`)
	if err != nil {
		return nil, errs.NewStoreError("ListLivePaths", "query failed", "", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, errs.NewStoreError("ListLivePaths", "scan failed", "", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// ListByPathPrefix returns live entries whose path starts with prefix,
// ordered by mtime descending. A diagnostic access pattern beyond the
// operations the specification names explicitly, reflecting the original
// implementation's ad hoc "path LIKE ..., deleted='0', ORDER BY mtime DESC"
// queries used for on-demand troubleshooting.
func (s *Store) ListByPathPrefix(prefix string, limit int) ([]model.IndexEntry, error) {
	rows, err := s.readDB.Query(`
		SELECT path, content, mtime, deleted, deleted_at FROM documents
		WHERE path LIKE ? AND deleted = 0
		ORDER BY mtime DESC
		LIMIT ?
	`, prefix+"%", limit)
	if err != nil {
		return nil, errs.NewStoreError("ListByPathPrefix", "query failed", prefix, err)
	}
	defer rows.Close()

	var out []model.IndexEntry
	for rows.Next() {
		var (
			p         string
			content   string
			mtime     float64
			deletedI  int
			deletedAt sql.NullFloat64
		)
		if err := rows.Scan(&p, &content, &mtime, &deletedI, &deletedAt); err != nil {
			return nil, errs.NewStoreError("ListByPathPrefix", "scan failed", prefix, err)
		}
		e := model.IndexEntry{Path: p, Content: content, MTime: fromEpoch(mtime), Deleted: deletedI != 0}
		if deletedAt.Valid {
			t := fromEpoch(deletedAt.Float64)
			e.DeletedAt = &t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GCTombstones physically removes tombstoned entries older than threshold
// and returns how many rows were removed.
func (s *Store) GCTombstones(ageThreshold time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := toEpoch(time.Now().Add(-ageThreshold))
	res, err := s.db.Exec(`DELETE FROM documents WHERE deleted = 1 AND deleted_at < ?`, cutoff)
	if err != nil {
		return 0, errs.NewStoreError("GCTombstones", "delete failed", "", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errs.NewStoreError("GCTombstones", "rows affected failed", "", err)
	}
	return int(n), nil
}

// Optimize compacts the FTS5 index (an FTS5 "merge" special command).
func (s *Store) Optimize() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(`INSERT INTO documents_fts(documents_fts) VALUES('optimize')`); err != nil {
		return errs.NewStoreError("Optimize", "fts optimize failed", "", err)
	}
	return nil
}

// Vacuum reclaims free pages from the main database file.
func (s *Store) Vacuum() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(`VACUUM`); err != nil {
		return errs.NewStoreError("Vacuum", "vacuum failed", "", err)
	}
	return nil
}

// --- search history ---

// AddHistory upserts keyword with the current time as last_used.
func (s *Store) AddHistory(keyword string) error {
	_, err := s.db.Exec(`
		INSERT INTO search_history (keyword, last_used) VALUES (?, ?)
		ON CONFLICT(keyword) DO UPDATE SET last_used = excluded.last_used
	`, keyword, toEpoch(time.Now()))
	if err != nil {
		return errs.NewStoreError("AddHistory", "upsert failed", "", err)
	}
	return nil
}

// ListHistory returns up to limit most-recently-used keywords.
func (s *Store) ListHistory(limit int) ([]model.SearchHistoryEntry, error) {
	rows, err := s.readDB.Query(`SELECT keyword, last_used FROM search_history ORDER BY last_used DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errs.NewStoreError("ListHistory", "query failed", "", err)
	}
	defer rows.Close()

	var out []model.SearchHistoryEntry
	for rows.Next() {
		var kw string
		var lu float64
		if err := rows.Scan(&kw, &lu); err != nil {
			return nil, errs.NewStoreError("ListHistory", "scan failed", "", err)
		}
		out = append(out, model.SearchHistoryEntry{Keyword: kw, LastUsed: fromEpoch(lu)})
	}
	return out, rows.Err()
}

// DeleteHistory removes one keyword from the search history.
func (s *Store) DeleteHistory(keyword string) error {
	if _, err := s.db.Exec(`DELETE FROM search_history WHERE keyword = ?`, keyword); err != nil {
		return errs.NewStoreError("DeleteHistory", "delete failed", "", err)
	}
	return nil
}

// ClearHistory removes every search-history entry.
func (s *Store) ClearHistory() error {
	if _, err := s.db.Exec(`DELETE FROM search_history`); err != nil {
		return errs.NewStoreError("ClearHistory", "delete failed", "", err)
	}
	return nil
}

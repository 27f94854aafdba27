// Package model holds the data types shared across the indexing pipeline:
// the persisted IndexEntry/RetryRecord/SearchHistoryEntry rows and the
// transient IndexStats counters produced by a single IndexWorker pass.
package model

import "time"

// MaxContentScalarValues is the maximum number of Unicode scalar values an
// extractor may hand to the Store. The Store never truncates; extractors do.
const MaxContentScalarValues = 100_000

// IndexEntry is one row of the persistent index: content plus the metadata
// needed for change detection and tombstone search filtering.
type IndexEntry struct {
	Path      string
	Content   string
	MTime     time.Time
	Deleted   bool
	DeletedAt *time.Time
}

// RetryReason enumerates why an extraction attempt is queued for retry.
// Only the Transient category (see pkg/errs) ever becomes a RetryReason.
type RetryReason string

const (
	ReasonFileLocked        RetryReason = "FileLocked"
	ReasonTimeout           RetryReason = "Timeout"
	ReasonPasswordProtected RetryReason = "PasswordProtected"
	ReasonTransientIO       RetryReason = "TransientIO"
)

// RetryRecord is one path currently awaiting a retry attempt.
type RetryRecord struct {
	Path          string
	Reason        RetryReason
	FirstFailedAt time.Time
	AttemptCount  int
}

// SearchHistoryEntry records the last time a keyword was searched.
type SearchHistoryEntry struct {
	Keyword  string
	LastUsed time.Time
}

// SearchHit is one ranked result row from Store.Search.
type SearchHit struct {
	Path    string
	Snippet string
	MTime   time.Time
	Rank    float64
}

// IndexStats accumulates the counters for a single IndexWorker pass. It is
// reset at the start of every Collect phase.
type IndexStats struct {
	RunID           string
	TotalDiscovered int
	Indexed         int
	Skipped         int
	Errored         int
	New             int
	Modified        int
	Tombstoned      int
	PausedCount     int
	StartTime       time.Time
	EndTime         time.Time
}

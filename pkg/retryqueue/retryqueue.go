// Package retryqueue holds the in-memory set of paths awaiting
// re-extraction after a transient failure, plus the periodic worker that
// drains it. Grounded in shape on the teacher's in-process registries
// (map behind a mutex, e.g. DocumentStoreRegistry), adapted here to the
// specification's RetryRecord semantics.
package retryqueue

import (
	"sync"
	"time"

	"github.com/localsearch/engine/pkg/model"
)

// Queue is the path → RetryRecord map behind a mutex.
type Queue struct {
	mu      sync.Mutex
	records map[string]*model.RetryRecord
}

// New builds an empty Queue.
func New() *Queue {
	return &Queue{records: make(map[string]*model.RetryRecord)}
}

// Offer inserts a record for path if reason is retryable and no record
// exists yet; re-offering an already-queued path leaves its attempt_count
// unchanged.
func (q *Queue) Offer(path string, reason model.RetryReason) {
	if !isRetryable(reason) {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.records[path]; exists {
		return
	}
	q.records[path] = &model.RetryRecord{
		Path:          path,
		Reason:        reason,
		FirstFailedAt: time.Now(),
		AttemptCount:  0,
	}
}

func isRetryable(reason model.RetryReason) bool {
	switch reason {
	case model.ReasonFileLocked, model.ReasonTimeout, model.ReasonPasswordProtected, model.ReasonTransientIO:
		return true
	default:
		return false
	}
}

// Drain returns a snapshot of every queued record, in no particular order.
func (q *Queue) Drain() []model.RetryRecord {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]model.RetryRecord, 0, len(q.records))
	for _, r := range q.records {
		out = append(out, *r)
	}
	return out
}

// Remove deletes path's record, if any.
func (q *Queue) Remove(path string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.records, path)
}

// BumpAttempt increments the attempt counter for path, if queued.
func (q *Queue) BumpAttempt(path string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if r, ok := q.records[path]; ok {
		r.AttemptCount++
	}
}

// Size returns the number of currently queued paths.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.records)
}

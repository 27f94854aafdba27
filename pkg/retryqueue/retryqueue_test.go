package retryqueue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localsearch/engine/pkg/model"
)

func TestOfferQueuesRetryableReason(t *testing.T) {
	q := New()
	q.Offer("/a.txt", model.ReasonFileLocked)
	assert.Equal(t, 1, q.Size())

	records := q.Drain()
	require.Len(t, records, 1)
	assert.Equal(t, "/a.txt", records[0].Path)
	assert.Equal(t, model.ReasonFileLocked, records[0].Reason)
	assert.Equal(t, 0, records[0].AttemptCount)
}

func TestOfferIgnoresNonRetryableReason(t *testing.T) {
	q := New()
	q.Offer("/a.txt", model.RetryReason("Corrupted"))
	assert.Equal(t, 0, q.Size())
}

func TestOfferIsIdempotentForAlreadyQueuedPath(t *testing.T) {
	q := New()
	q.Offer("/a.txt", model.ReasonTimeout)
	q.BumpAttempt("/a.txt")
	q.Offer("/a.txt", model.ReasonTimeout) // should not reset AttemptCount

	records := q.Drain()
	require.Len(t, records, 1)
	assert.Equal(t, 1, records[0].AttemptCount)
}

func TestRemoveDeletesRecord(t *testing.T) {
	q := New()
	q.Offer("/a.txt", model.ReasonTransientIO)
	q.Remove("/a.txt")
	assert.Equal(t, 0, q.Size())
}

func TestBumpAttemptOnUnqueuedPathIsNoop(t *testing.T) {
	q := New()
	assert.NotPanics(t, func() { q.BumpAttempt("/missing.txt") })
}

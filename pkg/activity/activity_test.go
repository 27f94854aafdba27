package activity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDegradesToAlwaysIdleWithoutSource(t *testing.T) {
	m := New(2*time.Second, 10*time.Millisecond, nil)
	assert.False(t, m.IsActive())
	assert.Greater(t, m.IdleDuration(), 2*time.Second)
}

type fakeSource struct {
	fire chan struct{}
}

func (f *fakeSource) Start(ctx context.Context, onActivity func()) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-f.fire:
			onActivity()
		}
	}
}

func TestWaitUntilIdleReturnsOnceActivityStops(t *testing.T) {
	src := &fakeSource{fire: make(chan struct{}, 1)}
	m := New(30*time.Millisecond, 5*time.Millisecond, src)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Start(ctx)

	src.fire <- struct{}{}
	require.Eventually(t, func() bool { return m.IsActive() }, time.Second, time.Millisecond)

	start := time.Now()
	waitCtx, waitCancel := context.WithTimeout(context.Background(), time.Second)
	defer waitCancel()
	m.WaitUntilIdle(waitCtx)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	assert.False(t, m.IsActive())
}

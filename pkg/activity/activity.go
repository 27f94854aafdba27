// Package activity implements the global keyboard/mouse idle detector the
// specification calls the ActivityMonitor: IsActive, IdleDuration, and
// WaitUntilIdle, backed by a process-wide "last activity" timestamp.
//
// No example repo in the retrieval pack, nor the wider corpus it draws
// from, carries a global OS input-hook dependency (no robotgo/gohook/
// equivalent) — the specification itself anticipates this host limitation
// and documents the required fallback explicitly (§4.5: "If the host
// cannot provide global input hooks, the monitor degrades to 'always
// idle' and logs the degradation once at startup"). Source is kept as an
// injectable interface precisely so a real global-hook implementation can
// be wired in later without touching IndexWorker, RetryQueue, or Watcher,
// following the design notes' "expose it as an injected handle... so it
// can be replaced by a stub in tests" guidance.
package activity

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Source feeds activity events into a Monitor. Start must call onActivity
// every time a key or pointer event is observed and must return promptly
// when ctx is cancelled.
type Source interface {
	Start(ctx context.Context, onActivity func())
}

// NoopSource is the degraded fallback used when no host-level global input
// hook is available: it never reports activity, so the Monitor it feeds
// reports "always idle".
type NoopSource struct{}

func (NoopSource) Start(ctx context.Context, onActivity func()) {
	<-ctx.Done()
}

// Monitor tracks the global "last activity" timestamp and answers the
// idle/active questions IndexWorker, RetryQueue and Watcher gate on.
type Monitor struct {
	lastActivityAtNano atomic.Int64
	threshold          time.Duration
	pollInterval       time.Duration
	source             Source
	log                *slog.Logger
}

// New builds a Monitor with the given idle threshold (default 2s per spec)
// and poll interval (default 100ms). If source is nil, a NoopSource is used
// and the degradation is logged once, matching §4.5.
func New(threshold, pollInterval time.Duration, source Source) *Monitor {
	if threshold <= 0 {
		threshold = 2 * time.Second
	}
	if pollInterval <= 0 {
		pollInterval = 100 * time.Millisecond
	}
	log := slog.Default()
	if source == nil {
		source = NoopSource{}
		log.Warn("no global input hook available on this host; activity monitor degraded to always-idle")
	}
	m := &Monitor{threshold: threshold, pollInterval: pollInterval, source: source, log: log}
	m.lastActivityAtNano.Store(time.Now().Add(-threshold - time.Second).UnixNano())
	return m
}

// Start begins listening for activity events until ctx is cancelled. Safe
// to run in its own goroutine; Supervisor owns the lifetime of ctx.
func (m *Monitor) Start(ctx context.Context) {
	m.source.Start(ctx, func() {
		m.lastActivityAtNano.Store(time.Now().UnixNano())
	})
}

// IdleDuration returns how long it has been since the last observed
// activity event.
func (m *Monitor) IdleDuration() time.Duration {
	last := time.Unix(0, m.lastActivityAtNano.Load())
	return time.Since(last)
}

// IsActive reports whether the idle duration is below the configured
// threshold.
func (m *Monitor) IsActive() bool {
	return m.IdleDuration() < m.threshold
}

// WaitUntilIdle polls IsActive at the configured poll interval until it
// reports false or ctx is cancelled, giving sub-second responsiveness to
// an activity stop as the specification requires.
func (m *Monitor) WaitUntilIdle(ctx context.Context) {
	if !m.IsActive() {
		return
	}
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !m.IsActive() {
				return
			}
		}
	}
}

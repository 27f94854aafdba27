// Package indexlog provides the four append-only, human-auditable log
// files the specification requires under the logs/ directory:
// indexing_log.txt, skipcheck.txt, error.txt and Indexed.txt. Each is a
// thin slog.Logger built on a custom tab-separated slog.Handler, following
// the teacher's pkg/logger pattern of wrapping a base handler rather than
// building a second logging system from scratch.
package indexlog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// recordHandler formats a slog.Record as "[ts]\tstatus\tpath\tdetail\n",
// the tab-separated shape the specification's log files require. status is
// the record's Message; path and detail are pulled from the "path" and
// "detail" attribute keys, and any other attribute is appended to detail as
// key=value.
type recordHandler struct {
	writer io.Writer
}

func (h *recordHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordHandler) Handle(_ context.Context, r slog.Record) error {
	status := r.Message
	path := ""
	detail := ""

	r.Attrs(func(a slog.Attr) bool {
		switch a.Key {
		case "path":
			path = a.Value.String()
		case "detail":
			detail = a.Value.String()
		default:
			if detail == "" {
				detail = a.Key + "=" + a.Value.String()
			} else {
				detail += " " + a.Key + "=" + a.Value.String()
			}
		}
		return true
	})

	line := fmt.Sprintf("[%s]\t%s\t%s\t%s\n", r.Time.Format(time.RFC3339), status, path, detail)
	_, err := h.writer.Write([]byte(line))
	return err
}

func (h *recordHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *recordHandler) WithGroup(string) slog.Handler      { return h }

// Logs bundles the four per-purpose loggers plus the underlying files so
// Supervisor can flush and close them on shutdown.
type Logs struct {
	Indexing  *slog.Logger
	SkipCheck *slog.Logger
	Error     *slog.Logger
	Indexed   *slog.Logger

	files []*os.File
}

// Open creates (or appends to) the four log files under dir, which is
// created if missing.
func Open(dir string) (*Logs, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("indexlog: mkdir %s: %w", dir, err)
	}

	l := &Logs{}
	specs := []struct {
		name string
		dst  **slog.Logger
	}{
		{"indexing_log.txt", &l.Indexing},
		{"skipcheck.txt", &l.SkipCheck},
		{"error.txt", &l.Error},
		{"Indexed.txt", &l.Indexed},
	}

	for _, s := range specs {
		f, err := os.OpenFile(filepath.Join(dir, s.name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			l.Close()
			return nil, fmt.Errorf("indexlog: open %s: %w", s.name, err)
		}
		l.files = append(l.files, f)
		*s.dst = slog.New(&recordHandler{writer: f})
	}

	return l, nil
}

// Close flushes and closes every underlying log file. Safe to call more
// than once.
func (l *Logs) Close() {
	for _, f := range l.files {
		f.Close()
	}
	l.files = nil
}

// Skip records a retryable-or-terminal skip in skipcheck.txt.
func (l *Logs) Skip(path, reason string) {
	l.SkipCheck.Info("Skipped", "path", path, "detail", reason)
}

// ErrorEvent records a recoverable local failure in error.txt.
func (l *Logs) ErrorEvent(path string, err error) {
	l.Error.Error("Error", "path", path, "detail", err.Error())
}

// IndexedEvent records a successful extraction in Indexed.txt with a content
// preview truncated to 500 characters, as the specification requires.
func (l *Logs) IndexedEvent(path, content string) {
	preview := content
	if r := []rune(preview); len(r) > 500 {
		preview = string(r[:500])
	}
	preview = strings.ReplaceAll(preview, "\n", " ")
	l.Indexed.Info("Indexed", "path", path, "detail", preview)
}

// Event records a generic indexing pipeline event (new/modified/tombstoned)
// in indexing_log.txt.
func (l *Logs) Event(status, path, detail string) {
	l.Indexing.Info(status, "path", path, "detail", detail)
}

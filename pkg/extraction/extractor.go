// Package extraction implements the per-format text extractors and the
// dispatcher that wraps every one of them in the safe-copy + timeout +
// truncation combinator the specification calls the "extractor wrapper".
// The dispatcher interface is grounded on the teacher's ContentExtractor /
// ExtractorRegistry (pkg/context/extraction/extractor.go): Name/CanExtract/
// Extract/Priority, registered and dispatched by priority order.
package extraction

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/localsearch/engine/pkg/errs"
	"github.com/localsearch/engine/pkg/model"
)

// ExtractedContent is what a successful extraction yields before it is
// truncated and handed to the Store.
type ExtractedContent struct {
	Text  string
	Chars int
}

// Extractor is a single per-format text extractor. Implementations must be
// safe to call concurrently and must not mutate the file at path — they
// receive a path to the safe-copy, never the original.
type Extractor interface {
	Name() string
	CanExtract(path string) bool
	Extract(ctx context.Context, path string) (ExtractedContent, error)
	// Priority breaks ties when more than one extractor claims a path;
	// lower values are tried first.
	Priority() int
}

// Registry dispatches a path to the highest-priority Extractor that claims
// it, grounded on the teacher's ExtractorRegistry.
type Registry struct {
	extractors []Extractor
}

// NewRegistry builds a Registry from extractors, sorted by Priority.
func NewRegistry(extractors ...Extractor) *Registry {
	sorted := make([]Extractor, len(extractors))
	copy(sorted, extractors)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority() < sorted[j].Priority() })
	return &Registry{extractors: sorted}
}

// Find returns the first (lowest priority value) Extractor that claims
// path, or nil if none do.
func (r *Registry) Find(path string) Extractor {
	for _, e := range r.extractors {
		if e.CanExtract(path) {
			return e
		}
	}
	return nil
}

// DefaultRegistry builds the standard set of extractors for every format
// the specification names, wired with the per-format timeout that §4.3
// documents (60s default, 30s for HWP) via the Dispatcher below rather than
// inside each Extractor.
func DefaultRegistry() *Registry {
	return NewRegistry(
		NewTextExtractor(),
		NewCSVExtractor(),
		NewDOCXExtractor(),
		NewPPTXExtractor(),
		NewXLSXExtractor(),
		NewLegacyOfficeExtractor(),
		NewPDFExtractor(),
	)
}

// Dispatcher applies the safe-copy + timeout + truncation wrapper around
// whichever Extractor in its Registry claims a path.
type Dispatcher struct {
	registry        *Registry
	defaultTimeout  time.Duration
	hwpTimeout      time.Duration
}

// NewDispatcher builds a Dispatcher with the given default and HWP-specific
// extraction timeouts.
func NewDispatcher(registry *Registry, defaultTimeout, hwpTimeout time.Duration) *Dispatcher {
	return &Dispatcher{registry: registry, defaultTimeout: defaultTimeout, hwpTimeout: hwpTimeout}
}

// Extract runs the full wrapper composition for path: safe-copy, deadline,
// per-format Extract, truncation.
func (d *Dispatcher) Extract(ctx context.Context, path string) (ExtractedContent, error) {
	e := d.registry.Find(path)
	if e == nil {
		return ExtractedContent{}, errs.NewExtractError("dispatcher", path, "no extractor claims this format", errs.ErrUnsupportedFormat)
	}

	tmpPath, cleanup, err := safeCopy(path)
	if err != nil {
		return ExtractedContent{}, errs.NewExtractError(e.Name(), path, "safe-copy failed", err)
	}
	defer cleanup()

	timeout := d.timeoutFor(path)
	result, err := runWithDeadline(ctx, timeout, func(ctx context.Context) (ExtractedContent, error) {
		return e.Extract(ctx, tmpPath)
	})
	if err != nil {
		return ExtractedContent{}, errs.NewExtractError(e.Name(), path, "extraction failed", err)
	}

	result.Text = truncate(result.Text, model.MaxContentScalarValues)
	result.Chars = len([]rune(result.Text))
	return result, nil
}

func (d *Dispatcher) timeoutFor(path string) time.Duration {
	if strings.EqualFold(filepath.Ext(path), ".hwp") {
		return d.hwpTimeout
	}
	return d.defaultTimeout
}

// truncate bounds s to at most n Unicode scalar values.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Package crawler implements the depth-first directory walk that emits
// candidate paths past the ExclusionFilter, grounded on the teacher's
// DirectorySource.DiscoverFiles (pkg/context/indexing/directory_source.go):
// a filepath.Walk-driven walker that prunes excluded directories and
// streams results over a channel so the caller can consume them as they
// arrive rather than waiting for the whole tree to be walked.
package crawler

import (
	"context"
	"os"
	"path/filepath"
)

// ExclusionFilter is the subset of pkg/exclusion.Filter the crawler needs.
type ExclusionFilter interface {
	IncludeDir(path string) bool
	Include(path string) bool
}

// Crawler walks one or more root directories.
type Crawler struct {
	filter ExclusionFilter
}

// New builds a Crawler using filter to prune directories and files.
func New(filter ExclusionFilter) *Crawler {
	return &Crawler{filter: filter}
}

// Stats accumulates counters for one Discover call.
type Stats struct {
	Visited  int
	Excluded int
	Yielded  int
}

// Discover walks root depth-first, sending every included file path on the
// returned channel. The channel is closed when the walk completes or ctx
// is cancelled. The caller owns draining the channel; Discover itself
// never blocks past ctx cancellation thanks to the select in its send.
func (c *Crawler) Discover(ctx context.Context, root string) (<-chan string, *Stats) {
	out := make(chan string)
	stats := &Stats{}

	go func() {
		defer close(out)

		_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if ctx.Err() != nil {
				return filepath.SkipAll
			}
			if err != nil {
				// Unreadable directory entries are skipped, not fatal —
				// the walk of this root continues with the next entry,
				// and a Collect-phase fault never ends the whole pass.
				return nil
			}

			if info.IsDir() {
				if path != root && !c.filter.IncludeDir(path) {
					stats.Excluded++
					return filepath.SkipDir
				}
				return nil
			}

			stats.Visited++
			if !c.filter.Include(path) {
				stats.Excluded++
				return nil
			}

			abs, err := filepath.Abs(path)
			if err != nil {
				abs = path
			}

			select {
			case out <- abs:
				stats.Yielded++
			case <-ctx.Done():
				return filepath.SkipAll
			}
			return nil
		})
	}()

	return out, stats
}

package extraction

import (
	"io"
	"os"
	"path/filepath"

	"github.com/localsearch/engine/pkg/errs"
)

// safeCopy duplicates path into a fresh private temporary directory so the
// rest of extraction never opens the user's original file. Returns the
// temporary copy's path and a cleanup func that removes both the file and
// its directory; callers must defer cleanup() on every return path.
func safeCopy(path string) (string, func(), error) {
	dir, err := os.MkdirTemp("", "filesearch-extract-*")
	if err != nil {
		return "", func() {}, errs.ErrTransientIO
	}
	cleanup := func() { os.RemoveAll(dir) }

	src, err := os.Open(path)
	if err != nil {
		cleanup()
		if os.IsPermission(err) {
			return "", func() {}, errs.ErrFileLocked
		}
		return "", func() {}, errs.ErrFileLocked
	}
	defer src.Close()

	dstPath := filepath.Join(dir, filepath.Base(path))
	dst, err := os.Create(dstPath)
	if err != nil {
		cleanup()
		return "", func() {}, errs.ErrTransientIO
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		cleanup()
		return "", func() {}, errs.ErrFileLocked
	}
	if err := dst.Close(); err != nil {
		cleanup()
		return "", func() {}, errs.ErrTransientIO
	}

	return dstPath, cleanup, nil
}

// Package file implements a local filesystem-backed data source, used when
// the per-table flat files have already been downloaded next to the binary.
package file

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Sanjarbek1024/Demo-project/internal/datasource"
)

// Local is a filesystem data source that opens one file from local disk.
type Local struct{ path string }

// NewLocal returns a Local data source bound to the provided path.
func NewLocal(path string) *Local { return &Local{path: path} }

// Open opens the configured path for reading. A context that is already
// canceled returns the context error without touching the filesystem;
// filesystem errors are wrapped with the path while remaining inspectable
// with errors.Is (e.g., os.ErrNotExist).
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	return f, nil
}

// Dir resolves source file names against a base directory.
type Dir struct{ base string }

// NewDir returns an Opener rooted at the given directory.
func NewDir(base string) *Dir { return &Dir{base: base} }

// Source returns a Local source for the named file inside the directory.
func (d *Dir) Source(file string) datasource.Source {
	return NewLocal(filepath.Join(d.base, file))
}

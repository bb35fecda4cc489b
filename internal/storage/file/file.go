// Package file keeps the snapshot in a single text file that is rewritten
// in full on every save.
package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"tracker/internal/manager"
)

// Backend writes snapshots to Path.
type Backend struct {
	Path string
}

// New returns a backend for path.
func New(path string) *Backend {
	return &Backend{Path: path}
}

// Save truncates and rewrites the file. The parent directory must exist.
// A failure part way through may leave a partially written file.
func (b *Backend) Save(data []byte) (err error) {
	f, err := os.OpenFile(b.Path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w: %w", b.Path, manager.ErrIO, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w: %w", b.Path, manager.ErrIO, cerr)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write %s: %w: %w", b.Path, manager.ErrIO, err)
	}
	return nil
}

// Load returns the file contents, or nil when the file does not exist yet.
func (b *Backend) Load() ([]byte, error) {
	data, err := os.ReadFile(b.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w: %w", b.Path, manager.ErrIO, err)
	}
	return data, nil
}

// String names the backend in logs.
func (b *Backend) String() string {
	return "file:" + b.Path
}

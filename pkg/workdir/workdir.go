// Package workdir owns the scratch directory of a single run.
package workdir

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Dir is a temporary directory that exists from New until Close.
type Dir struct {
	path string

	once sync.Once
	err  error
}

// New creates a fresh directory under the OS temp dir whose name starts
// with prefix.
func New(prefix string) (*Dir, error) {
	path, err := os.MkdirTemp("", prefix+"-*")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	return &Dir{path: path}, nil
}

// Path returns the directory path.
func (d *Dir) Path() string { return d.path }

// Join returns name inside the directory.
func (d *Dir) Join(name string) string { return filepath.Join(d.path, name) }

// Close removes the directory and everything in it, then checks that it is
// really gone. Calling Close again returns the first result.
func (d *Dir) Close() error {
	d.once.Do(func() {
		if err := os.RemoveAll(d.path); err != nil {
			d.err = fmt.Errorf("remove work dir: %w", err)
			return
		}
		if _, err := os.Lstat(d.path); !errors.Is(err, fs.ErrNotExist) {
			d.err = fmt.Errorf("work dir %s still present after removal", d.path)
		}
	})
	return d.err
}

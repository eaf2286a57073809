// Package publish places a finished document at its destination.
package publish

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

var (
	// ErrDestinationExists is returned when attempting to publish over an existing file
	ErrDestinationExists = errors.New("destination file already exists")
)

// Options configures the publish behavior.
type Options struct {
	// Overwrite allows replacing an existing destination.
	// Default should be false for safety.
	Overwrite bool

	// Mode is the permission of the published file. Zero means 0o644.
	Mode os.FileMode
}

// File copies src to dst.
//
// With Overwrite the content is staged in a temporary sibling of dst and
// renamed over it, so dst is either the previous file or the complete new
// one. Without Overwrite an existing dst is never touched.
func File(src, dst string, opts Options) error {
	mode := opts.Mode
	if mode == 0 {
		mode = 0o644
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	if !opts.Overwrite {
		return copyExclusive(src, dst, mode)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create staging file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := fill(tmp, src); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close staging file: %w", err)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("chmod: %w", err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func copyExclusive(src, dst string, mode os.FileMode) error {
	dstFile, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode)
	if err != nil {
		if os.IsExist(err) {
			return ErrDestinationExists
		}
		return fmt.Errorf("create destination: %w", err)
	}

	if err := fill(dstFile, src); err != nil {
		_ = dstFile.Close()
		// Try to clean up partial file on error (we created it)
		_ = os.Remove(dst)
		return err
	}
	return dstFile.Close()
}

// fill copies src into w and syncs it to disk.
func fill(w *os.File, src string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer srcFile.Close()

	if _, err := io.Copy(w, srcFile); err != nil {
		return fmt.Errorf("copy content: %w", err)
	}

	// Ensure data is written to disk
	if err := w.Sync(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	return nil
}

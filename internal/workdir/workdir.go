// Package workdir provides the scoped working directory a patch run extracts
// into, and atomic file replacement inside it.
package workdir

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// DefaultPattern names working directories created by New.
const DefaultPattern = "jarpatch-*"

// tempPrefix marks in-flight files so a failed write is recognizable.
const tempPrefix = ".jarpatch-"

// Dir is an exclusively owned temporary directory. Release removes it; it is
// safe to call Release more than once.
type Dir struct {
	path     string
	released bool
}

// New creates a uniquely named directory under parent. An empty parent uses
// the system temporary directory.
func New(parent, pattern string) (*Dir, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if parent != "" {
		if err := os.MkdirAll(parent, 0o750); err != nil {
			return nil, fmt.Errorf("create %s: %w", parent, err)
		}
	}
	path, err := os.MkdirTemp(parent, pattern)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		_ = os.RemoveAll(path) //nolint:errcheck // best-effort cleanup
		return nil, err
	}
	return &Dir{path: abs}, nil
}

// Path returns the absolute directory path.
func (d *Dir) Path() string {
	return d.path
}

// Release recursively removes the directory.
func (d *Dir) Release() error {
	if d.released {
		return nil
	}
	d.released = true
	return os.RemoveAll(d.path)
}

// Sink writes one file inside an os.Root atomically: content goes to a
// uniquely named sibling and is renamed over the destination on Commit, so a
// partially written file is never visible under its final name.
type Sink struct {
	root     *os.Root
	destPath string
	tempPath string
	file     *os.File
}

// NewSink creates the temp file for name, a slash-separated path relative to
// root. Parent directories are created as needed.
func NewSink(root *os.Root, name string) (*Sink, error) {
	destPath := filepath.FromSlash(name)
	dir := filepath.Dir(destPath)
	if dir != "." {
		if err := root.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	tempPath := filepath.Join(dir, tempPrefix+uuid.NewString())
	f, err := root.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	return &Sink{root: root, destPath: destPath, tempPath: tempPath, file: f}, nil
}

// Write implements io.Writer.
func (s *Sink) Write(p []byte) (int, error) {
	return s.file.Write(p)
}

// Commit closes the temp file and renames it to the final path.
func (s *Sink) Commit() error {
	if err := s.file.Close(); err != nil {
		_ = s.root.Remove(s.tempPath) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := s.root.Rename(s.tempPath, s.destPath); err != nil {
		_ = s.root.Remove(s.tempPath) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("rename to %s: %w", s.destPath, err)
	}
	return nil
}

// Discard closes and removes the temp file.
func (s *Sink) Discard() error {
	_ = s.file.Close() //nolint:errcheck // we're cleaning up
	return s.root.Remove(s.tempPath)
}

// WriteFile atomically replaces name under dir with data.
func WriteFile(dir, name string, data []byte) (err error) {
	root, err := os.OpenRoot(dir)
	if err != nil {
		return err
	}
	defer root.Close()

	s, err := NewSink(root, name)
	if err != nil {
		return err
	}
	if _, err := s.Write(data); err != nil {
		return errors.Join(err, s.Discard())
	}
	return s.Commit()
}

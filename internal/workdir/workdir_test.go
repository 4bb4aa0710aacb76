package workdir

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsUniqueAndReleased(t *testing.T) {
	t.Parallel()

	parent := filepath.Join(t.TempDir(), "nested")
	a, err := New(parent, "")
	require.NoError(t, err)
	b, err := New(parent, "")
	require.NoError(t, err)
	assert.NotEqual(t, a.Path(), b.Path())
	assert.True(t, filepath.IsAbs(a.Path()))
	assert.True(t, strings.HasPrefix(filepath.Base(a.Path()), "jarpatch-"))

	require.NoError(t, os.MkdirAll(filepath.Join(a.Path(), "x", "y"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(a.Path(), "x", "y", "f"), []byte("f"), 0o600))

	require.NoError(t, a.Release())
	require.NoError(t, a.Release())
	assert.NoDirExists(t, a.Path())
	assert.DirExists(t, b.Path())
	require.NoError(t, b.Release())
}

func TestWriteFileReplacesAtomically(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, WriteFile(dir, "com/example/App.class", []byte("v1")))
	require.NoError(t, WriteFile(dir, "com/example/App.class", []byte("v2")))

	got, err := os.ReadFile(filepath.Join(dir, "com", "example", "App.class"))
	require.NoError(t, err)
	assert.Equal(t, "v2", string(got))

	entries, err := os.ReadDir(filepath.Join(dir, "com", "example"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files may remain")
}

func TestSinkDiscard(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	root, err := os.OpenRoot(dir)
	require.NoError(t, err)
	defer root.Close()

	s, err := NewSink(root, "a.txt")
	require.NoError(t, err)
	_, err = s.Write([]byte("partial"))
	require.NoError(t, err)
	require.NoError(t, s.Discard())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWriteFileRejectsEscape(t *testing.T) {
	t.Parallel()

	require.Error(t, WriteFile(t.TempDir(), "../outside.txt", []byte("x")))
}

package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"

	"github.com/meigma/jarpatch/internal/pathutil"
	"github.com/meigma/jarpatch/internal/workdir"
)

// Extract materializes every entry of the zip archive at src under dir and
// returns the archive Index. dir must exist. Entries are written through an
// os.Root, so no entry can land outside dir, and each file is committed with
// an atomic rename.
func Extract(ctx context.Context, src, dir string, opts ...Option) (*Index, error) {
	o := newOptions(opts)

	r, err := zip.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer r.Close()
	r.RegisterDecompressor(zstd.ZipMethodWinZip, zstd.ZipDecompressor())

	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, err
	}
	defer root.Close()

	ix := NewIndex()
	for _, f := range r.File {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name, dir, err := pathutil.EntryName(f.Name)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrUnsafePath, f.Name)
		}
		if _, ok := ix.Lookup(name); ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateEntry, name)
		}
		e, err := extractEntry(root, f, name, dir, o)
		if err != nil {
			return nil, fmt.Errorf("extract %s: %w", name, err)
		}
		ix.add(e)
		o.logger.Debug("extracted entry", "name", e.Name, "dir", e.Dir, "size", e.Size)
	}
	return ix, nil
}

func extractEntry(root *os.Root, f *zip.File, name string, dir bool, o *options) (Entry, error) {
	e := Entry{
		Name:     name,
		Dir:      dir,
		Method:   f.Method,
		Modified: f.Modified,
	}
	if dir {
		if err := root.MkdirAll(filepath.FromSlash(name), 0o750); err != nil {
			return Entry{}, err
		}
		return e, nil
	}

	if o.maxEntrySize >= 0 && f.UncompressedSize64 > uint64(o.maxEntrySize) {
		return Entry{}, fmt.Errorf("%w: %d bytes", ErrEntryTooLarge, f.UncompressedSize64)
	}
	rc, err := f.Open()
	if err != nil {
		return Entry{}, err
	}
	defer rc.Close()

	sink, err := workdir.NewSink(root, name)
	if err != nil {
		return Entry{}, err
	}
	dr := newDigestReader(rc, o.maxEntrySize)
	if _, err := io.Copy(sink, dr); err != nil {
		return Entry{}, errors.Join(err, sink.Discard())
	}
	if err := sink.Commit(); err != nil {
		return Entry{}, err
	}
	e.Size = dr.n
	e.Digest = dr.Digest()
	return e, nil
}

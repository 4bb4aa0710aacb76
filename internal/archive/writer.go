package archive

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/opencontainers/go-digest"

	"github.com/meigma/jarpatch/internal/manifest"
	"github.com/meigma/jarpatch/internal/pathutil"
)

// OutputMode is the permission of archives created by Write.
const OutputMode fs.FileMode = 0o644

// Result describes an archive produced by Write.
type Result struct {
	// Entries is the number of entries written, synthesized directories
	// included.
	Entries int

	// Size is the archive size in bytes.
	Size int64

	// Digest is the digest of the archive bytes.
	Digest digest.Digest
}

const (
	zipVersion20       = 20
	flagDataDescriptor = 0x8
	flagUTF8           = 0x800
	extTimeExtraID     = 0x5455
)

// item is one path found in the working directory.
type item struct {
	name    string
	dir     bool
	modTime time.Time
}

// Write builds the zip archive dst from the contents of dir.
//
// Entries recorded in ix are emitted first, in ix order; files that are not
// in ix follow in lexical order. Without an index the manifest is emitted
// first. Missing parent directory entries are synthesized before their first
// child. The archive is built in a temporary file beside dst and renamed into
// place only once every entry has been written, so a failed Write leaves no
// file at dst.
func Write(ctx context.Context, dir, dst string, ix *Index, opts ...Option) (*Result, error) {
	o := newOptions(opts)
	if !o.compression.Valid() {
		return nil, fmt.Errorf("archive: unknown compression %q", o.compression)
	}

	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, err
	}
	defer root.Close()

	found, err := scan(root)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	items := order(ix, found)

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".jarpatch-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create output: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()           //nolint:errcheck // cleaning up
			_ = os.Remove(tmp.Name()) //nolint:errcheck // best-effort cleanup
		}
	}()

	dw := newDigestWriter(tmp)
	zw := zip.NewWriter(dw)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, o.level)
	})
	zw.RegisterCompressor(zstd.ZipMethodWinZip, zstd.ZipCompressor())

	w := &writer{root: root, zw: zw, ix: ix, opts: o, emitted: make(map[string]bool)}
	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := w.emit(it); err != nil {
			return nil, fmt.Errorf("write %s: %w", it.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finish archive: %w", err)
	}
	if err := tmp.Chmod(OutputMode); err != nil {
		return nil, fmt.Errorf("chmod output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close output: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return nil, fmt.Errorf("commit output: %w", err)
	}
	committed = true

	return &Result{Entries: w.count, Size: dw.n, Digest: dw.digester.Digest()}, nil
}

// scan lists the regular files and directories under root in lexical order.
func scan(root *os.Root) ([]item, error) {
	var items []item
	err := fs.WalkDir(root.FS(), ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == "." {
			return nil
		}
		if !d.IsDir() && !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		items = append(items, item{name: path, dir: d.IsDir(), modTime: info.ModTime()})
		return nil
	})
	return items, err
}

// order arranges found paths for emission.
func order(ix *Index, found []item) []item {
	byName := make(map[string]item, len(found))
	for _, it := range found {
		byName[it.name] = it
	}

	items := make([]item, 0, len(found))
	taken := make(map[string]bool, len(found))
	take := func(name string, dir bool) {
		it, ok := byName[name]
		if !ok || it.dir != dir || taken[name] {
			return
		}
		taken[name] = true
		items = append(items, it)
	}

	if ix.Len() == 0 {
		take(pathutil.Parents(manifest.Path)[0], true)
		take(manifest.Path, false)
	}
	for _, e := range ix.Entries() {
		take(e.Name, e.Dir)
	}
	for _, it := range found {
		take(it.name, it.dir)
	}
	return items
}

type writer struct {
	root    *os.Root
	zw      *zip.Writer
	ix      *Index
	opts    *options
	emitted map[string]bool
	count   int
}

func (w *writer) emit(it item) error {
	e, indexed := w.ix.Lookup(it.name)
	modified := it.modTime
	if indexed {
		modified = e.Modified
	}
	for _, parent := range pathutil.Parents(it.name) {
		if err := w.dir(parent, modified); err != nil {
			return err
		}
	}
	if it.dir {
		return w.dir(it.name, modified)
	}

	fh := &zip.FileHeader{
		Name:     it.name,
		Method:   w.method(e, indexed),
		Modified: modified,
	}
	f, err := w.root.Open(filepath.FromSlash(it.name))
	if err != nil {
		return err
	}
	defer f.Close()

	var dst io.Writer
	if fh.Method == zip.Store {
		dst, err = w.createStored(fh, f)
	} else {
		dst, err = w.zw.CreateHeader(fh)
	}
	if err != nil {
		return err
	}

	dr := newDigestReader(f, -1)
	if _, err := io.Copy(dst, dr); err != nil {
		return err
	}
	if fh.Method == zip.Store && uint64(dr.n) != fh.UncompressedSize64 { //nolint:gosec // n is non-negative
		return fmt.Errorf("%s changed while being written", it.name)
	}
	w.count++

	if w.opts.verify && indexed && !w.opts.modified[it.name] && dr.Digest() != e.Digest {
		return fmt.Errorf("%w: expected %s, got %s", ErrDigestMismatch, e.Digest, dr.Digest())
	}
	w.opts.logger.Debug("wrote entry", "name", it.name, "method", fh.Method, "size", dr.n)
	return nil
}

// createStored starts a STORED entry with its CRC and sizes in the local
// header and no data descriptor, which streaming jar readers require. f is
// read once to measure it and left rewound.
func (w *writer) createStored(fh *zip.FileHeader, f *os.File) (io.Writer, error) {
	crc := crc32.NewIEEE()
	n, err := io.Copy(crc, f)
	if err != nil {
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	fh.CreatorVersion = fh.CreatorVersion&0xff00 | zipVersion20
	fh.ReaderVersion = zipVersion20
	fh.Flags &^= flagDataDescriptor
	if needsUTF8(fh.Name) {
		fh.Flags |= flagUTF8
	}
	fh.CRC32 = crc.Sum32()
	fh.CompressedSize64 = uint64(n)   //nolint:gosec // n is non-negative
	fh.UncompressedSize64 = uint64(n) //nolint:gosec // n is non-negative
	if !fh.Modified.IsZero() {
		fh.ModifiedDate, fh.ModifiedTime = msDosTime(fh.Modified)
		fh.Extra = appendExtendedTime(fh.Extra, fh.Modified)
	}
	return w.zw.CreateRaw(fh)
}

// dir writes a directory entry once.
func (w *writer) dir(name string, modified time.Time) error {
	if w.emitted[name] {
		return nil
	}
	if e, ok := w.ix.Lookup(name); ok && e.Dir {
		modified = e.Modified
	}
	w.emitted[name] = true
	fh := &zip.FileHeader{
		Name:     pathutil.DirPrefix(name),
		Method:   zip.Store,
		Modified: modified,
	}
	if _, err := w.zw.CreateHeader(fh); err != nil {
		return err
	}
	w.count++
	return nil
}

func (w *writer) method(e Entry, indexed bool) uint16 {
	switch w.opts.compression {
	case CompressionStore:
		return zip.Store
	case CompressionDeflate:
		return zip.Deflate
	}
	if indexed {
		return e.Method
	}
	return zip.Deflate
}

func needsUTF8(s string) bool {
	if !utf8.ValidString(s) {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return true
		}
	}
	return false
}

// msDosTime encodes t as the MS-DOS date and time fields of a zip header, in
// t's own location.
func msDosTime(t time.Time) (date, clock uint16) {
	date = uint16(t.Day() + int(t.Month())<<5 + (t.Year()-1980)<<9) //nolint:gosec // zip dates are 16 bits
	clock = uint16(t.Second()/2 + t.Minute()<<5 + t.Hour()<<11)     //nolint:gosec // zip times are 16 bits
	return date, clock
}

// appendExtendedTime appends an Info-ZIP extended timestamp holding the
// modification time.
func appendExtendedTime(extra []byte, t time.Time) []byte {
	extra = binary.LittleEndian.AppendUint16(extra, extTimeExtraID)
	extra = binary.LittleEndian.AppendUint16(extra, 5)
	extra = append(extra, 1)
	return binary.LittleEndian.AppendUint32(extra, uint32(t.Unix())) //nolint:gosec // the field is 32 bits
}

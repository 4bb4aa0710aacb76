package archive

import (
	"io"

	"github.com/opencontainers/go-digest"
)

// digestReader digests and counts everything read through it and fails once
// more than limit bytes have been read. A negative limit disables the check.
type digestReader struct {
	r        io.Reader
	digester digest.Digester
	n        int64
	limit    int64
}

func newDigestReader(r io.Reader, limit int64) *digestReader {
	return &digestReader{r: r, digester: digest.Canonical.Digester(), limit: limit}
}

// Read implements io.Reader.
func (dr *digestReader) Read(p []byte) (int, error) {
	n, err := dr.r.Read(p)
	if n > 0 {
		_, _ = dr.digester.Hash().Write(p[:n]) //nolint:errcheck // hash writes never fail
		dr.n += int64(n)
		if dr.limit >= 0 && dr.n > dr.limit {
			return n, ErrEntryTooLarge
		}
	}
	return n, err
}

// Digest returns the digest of the bytes read so far.
func (dr *digestReader) Digest() digest.Digest {
	return dr.digester.Digest()
}

// digestWriter digests and counts everything written through it.
type digestWriter struct {
	w        io.Writer
	digester digest.Digester
	n        int64
}

func newDigestWriter(w io.Writer) *digestWriter {
	return &digestWriter{w: w, digester: digest.Canonical.Digester()}
}

// Write implements io.Writer.
func (dw *digestWriter) Write(p []byte) (int, error) {
	n, err := dw.w.Write(p)
	if n > 0 {
		_, _ = dw.digester.Hash().Write(p[:n]) //nolint:errcheck // hash writes never fail
		dw.n += int64(n)
	}
	return n, err
}

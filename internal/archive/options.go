package archive

import (
	"log/slog"

	"github.com/klauspost/compress/flate"
)

// DefaultMaxEntrySize bounds the uncompressed size of a single entry.
const DefaultMaxEntrySize = 256 << 20

// Compression selects how Write compresses file entries.
type Compression string

const (
	// CompressionPreserve keeps each entry's input method.
	CompressionPreserve Compression = "preserve"
	// CompressionStore writes every file uncompressed.
	CompressionStore Compression = "store"
	// CompressionDeflate deflates every file.
	CompressionDeflate Compression = "deflate"
)

// Valid reports whether c is a known compression mode.
func (c Compression) Valid() bool {
	switch c {
	case CompressionPreserve, CompressionStore, CompressionDeflate:
		return true
	}
	return false
}

type options struct {
	logger       *slog.Logger
	maxEntrySize int64
	compression  Compression
	level        int
	verify       bool
	modified     map[string]bool
}

func newOptions(opts []Option) *options {
	o := &options{
		maxEntrySize: DefaultMaxEntrySize,
		compression:  CompressionPreserve,
		level:        flate.DefaultCompression,
		verify:       true,
		modified:     make(map[string]bool),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// Option configures Extract and Write.
type Option func(*options)

// WithLogger sets the logger for per-entry diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMaxEntrySize limits the uncompressed size of each extracted entry.
// Zero or a negative value disables the limit.
func WithMaxEntrySize(n int64) Option {
	return func(o *options) {
		if n <= 0 {
			n = -1
		}
		o.maxEntrySize = n
	}
}

// WithCompression sets how Write compresses file entries.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithLevel sets the deflate level used by Write.
func WithLevel(level int) Option {
	return func(o *options) {
		o.level = level
	}
}

// WithVerify enables or disables digest verification of unmodified entries
// during Write.
func WithVerify(verify bool) Option {
	return func(o *options) {
		o.verify = verify
	}
}

// WithModified marks entries as rewritten since extraction so Write does not
// verify their digests.
func WithModified(names ...string) Option {
	return func(o *options) {
		for _, name := range names {
			o.modified[name] = true
		}
	}
}

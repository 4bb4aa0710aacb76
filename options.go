package jarpatch

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/meigma/jarpatch/internal/archive"
)

// Compression selects how output entries are compressed.
type Compression = archive.Compression

// Compression modes.
const (
	// CompressionPreserve keeps each entry's input method. New entries are
	// deflated.
	CompressionPreserve = archive.CompressionPreserve

	// CompressionStore writes every file uncompressed.
	CompressionStore = archive.CompressionStore

	// CompressionDeflate deflates every file.
	CompressionDeflate = archive.CompressionDeflate
)

// DefaultMaxEntrySize bounds the uncompressed size of one archive entry.
const DefaultMaxEntrySize = archive.DefaultMaxEntrySize

// Option configures PatchArchive and ListClasses.
type Option func(*config)

type config struct {
	logger       *slog.Logger
	progress     ProgressFunc
	workDir      string
	maxEntrySize int64
	compression  Compression
	level        int
	verify       bool
}

func newConfig(opts []Option) *config {
	cfg := &config{
		maxEntrySize: DefaultMaxEntrySize,
		compression:  CompressionPreserve,
		level:        -1,
		verify:       true,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// log returns the logger for one run, tagged with a fresh run identifier.
func (c *config) log() *slog.Logger {
	logger := c.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return logger.With("run", uuid.NewString())
}

// report sends a progress event if a callback is configured.
func (c *config) report(stage ProgressStage, path string, done, total int) {
	if c.progress == nil {
		return
	}
	c.progress(ProgressEvent{Stage: stage, Path: path, FilesDone: done, FilesTotal: total})
}

func (c *config) archiveOptions(log *slog.Logger) []archive.Option {
	return []archive.Option{
		archive.WithLogger(log),
		archive.WithMaxEntrySize(c.maxEntrySize),
		archive.WithCompression(c.compression),
		archive.WithLevel(c.level),
		archive.WithVerify(c.verify),
	}
}

// WithLogger sets the logger for diagnostics. By default nothing is logged.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithProgress sets a callback for progress updates.
func WithProgress(fn ProgressFunc) Option {
	return func(c *config) {
		c.progress = fn
	}
}

// WithWorkDir sets the parent of the per-run working directory.
// By default the system temporary directory is used.
func WithWorkDir(dir string) Option {
	return func(c *config) {
		c.workDir = dir
	}
}

// WithMaxEntrySize limits the uncompressed size of each archive entry.
// Zero disables the limit.
func WithMaxEntrySize(n int64) Option {
	return func(c *config) {
		c.maxEntrySize = n
	}
}

// WithCompression sets how output entries are compressed.
// By default each entry keeps its input method.
func WithCompression(mode Compression) Option {
	return func(c *config) {
		c.compression = mode
	}
}

// WithCompressionLevel sets the deflate level, from -2 (Huffman only) to 9.
// -1 selects the default level.
func WithCompressionLevel(level int) Option {
	return func(c *config) {
		c.level = level
	}
}

// WithVerify controls whether untouched entries are checked against the
// digests recorded at extraction while the output is written.
// Verification is on by default.
func WithVerify(verify bool) Option {
	return func(c *config) {
		c.verify = verify
	}
}

package jarpatch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	v1 "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/meigma/jarpatch/internal/archive"
	"github.com/meigma/jarpatch/internal/manifest"
	"github.com/meigma/jarpatch/internal/pathutil"
	"github.com/meigma/jarpatch/internal/workdir"
)

// MediaTypeJar is the media type recorded for produced archives.
const MediaTypeJar = "application/java-archive"

// Report describes a completed patch run.
type Report struct {
	// Class is the dotted name of the patched class.
	Class string `json:"class"`

	// AddedMain reports whether a main method was synthesized.
	AddedMain bool `json:"addedMain"`

	// Target is the method that received the injected statement.
	Target string `json:"target"`

	// Statement is the injected statement.
	Statement string `json:"statement"`

	// Output describes the written archive.
	Output v1.Descriptor `json:"output"`

	// Entries is the number of entries in the written archive.
	Entries int `json:"entries"`
}

// PatchArchive patches one class of the jar at in and writes the result to
// out.
//
// When className is empty the class is taken from the Main-Class attribute
// of the jar manifest. The class gains a main method if it declares none,
// and a println is inserted at the start of its init method, or of main when
// there is no init. Every other entry is copied unchanged.
//
// The archive is extracted into a fresh working directory that is removed
// before PatchArchive returns. On error no file is written at out.
func PatchArchive(ctx context.Context, in, out, className string, opts ...Option) (*Report, error) {
	cfg := newConfig(opts)
	log := cfg.log().With("input", in)

	wd, err := workdir.New(cfg.workDir, "")
	if err != nil {
		return nil, ioError("create working directory", err)
	}
	defer release(wd, log)

	cfg.report(StageExtracting, in, 0, 0)
	ix, err := archive.Extract(ctx, in, wd.Path(), cfg.archiveOptions(log)...)
	if err != nil {
		return nil, ioError("extract "+in, err)
	}
	log.Info("extracted archive", "entries", ix.Len(), "dir", wd.Path())

	cfg.report(StageResolving, in, 0, 0)
	name, entry, err := resolveClass(ix, wd.Path(), className)
	if err != nil {
		return nil, err
	}
	log = log.With("class", name)

	cfg.report(StagePatching, entry, 0, 1)
	pool := NewFilePool(log)
	if err := pool.InsertClassPath(wd.Path()); err != nil {
		return nil, err
	}
	res, err := (&Patcher{Logger: log}).Patch(pool, name, wd.Path())
	if err != nil {
		return nil, err
	}
	cfg.report(StagePatching, entry, 1, 1)

	cfg.report(StageWriting, out, 0, ix.Len())
	written, err := archive.Write(ctx, wd.Path(), out, ix,
		append(cfg.archiveOptions(log), archive.WithModified(entry))...)
	if err != nil {
		return nil, ioError("write "+out, err)
	}
	cfg.report(StageWriting, out, written.Entries, written.Entries)
	log.Info("wrote archive", "output", out, "size", written.Size, "digest", written.Digest)

	return &Report{
		Class:     res.Class,
		AddedMain: res.Plan.AddMain,
		Target:    res.Plan.Target,
		Statement: res.Plan.Statement.String(),
		Output: v1.Descriptor{
			MediaType: MediaTypeJar,
			Digest:    written.Digest,
			Size:      written.Size,
			Annotations: map[string]string{
				v1.AnnotationTitle: filepath.Base(out),
			},
		},
		Entries: written.Entries,
	}, nil
}

// resolveClass determines the target class and checks that it is one
// archive entry. It returns the dotted name and the entry name.
func resolveClass(ix *archive.Index, dir, className string) (name, entry string, err error) {
	name = pathutil.NormalizeClassName(className)
	if name == "" {
		m, err := manifest.ReadFile(filepath.Join(dir, filepath.FromSlash(manifest.Path)))
		if err != nil {
			return "", "", fmt.Errorf("%w: %w", ErrManifestAttributeMissing, err)
		}
		mainClass, ok := m.MainClass()
		if !ok {
			return "", "", ErrManifestAttributeMissing
		}
		name = pathutil.NormalizeClassName(mainClass)
	}

	entry = pathutil.ClassPath(name)
	if e, ok := ix.Lookup(entry); !ok || e.Dir {
		return "", "", fmt.Errorf("%w: %s", ErrClassNotFound, name)
	}
	return name, entry, nil
}

// release removes the working directory. Failure is logged, not returned.
func release(wd *workdir.Dir, log *slog.Logger) {
	if err := wd.Release(); err != nil {
		log.Debug("remove working directory", "dir", wd.Path(), "error", err)
	}
}

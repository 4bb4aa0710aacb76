package jarpatch

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/meigma/jarpatch/internal/archive"
	"github.com/meigma/jarpatch/internal/workdir"
)

// ListHeader is the first line written by ListClasses.
const ListHeader = "Classes and methods defined in the JAR:"

// ListClasses writes every class of the jar at in with its declared
// methods, in archive order:
//
//	Classes and methods defined in the JAR:
//	Class: com.example.App
//	  Method: main
//
// Constructors and static initializers are not listed. If any class fails
// to load nothing is written to w.
func ListClasses(ctx context.Context, in string, w io.Writer, opts ...Option) error {
	cfg := newConfig(opts)
	log := cfg.log().With("input", in)

	wd, err := workdir.New(cfg.workDir, "")
	if err != nil {
		return ioError("create working directory", err)
	}
	defer release(wd, log)

	cfg.report(StageExtracting, in, 0, 0)
	ix, err := archive.Extract(ctx, in, wd.Path(), cfg.archiveOptions(log)...)
	if err != nil {
		return ioError("extract "+in, err)
	}

	pool := NewFilePool(log)
	if err := pool.InsertClassPath(wd.Path()); err != nil {
		return err
	}

	var buf bytes.Buffer
	fmt.Fprintln(&buf, ListHeader)
	classes := ix.Classes()
	for i, name := range classes {
		if err := ctx.Err(); err != nil {
			return err
		}
		cfg.report(StageListing, name, i, len(classes))
		cls, err := pool.Get(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(&buf, "Class: %s\n", cls.Name())
		for _, m := range cls.DeclaredMethods() {
			fmt.Fprintf(&buf, "  Method: %s\n", m)
		}
	}
	cfg.report(StageListing, "", len(classes), len(classes))
	log.Info("listed classes", "classes", len(classes))

	if _, err := buf.WriteTo(w); err != nil {
		return ioError("write listing", err)
	}
	return nil
}

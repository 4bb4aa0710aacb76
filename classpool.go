package jarpatch

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/meigma/jarpatch/classfile"
	"github.com/meigma/jarpatch/internal/pathutil"
	"github.com/meigma/jarpatch/internal/workdir"
)

// FilePool is a ClassPool over directories of class files.
type FilePool struct {
	paths  []string
	logger *slog.Logger
}

// NewFilePool returns a FilePool with no class paths. A nil logger discards
// diagnostics.
func NewFilePool(logger *slog.Logger) *FilePool {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &FilePool{logger: logger}
}

// InsertClassPath implements ClassPool.
func (p *FilePool) InsertClassPath(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return ioError("class path", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: class path %s is not a directory", ErrIO, abs)
	}
	p.paths = slices.Insert(p.paths, 0, abs)
	return nil
}

// Get implements ClassPool.
func (p *FilePool) Get(name string) (Class, error) {
	if !validClassName(name) {
		return nil, fmt.Errorf("%w: %q", ErrClassNotFound, name)
	}
	entry := pathutil.ClassPath(name)
	for _, dir := range p.paths {
		data, err := readClassFile(dir, entry)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, ioError("read "+entry, err)
		}

		cf, err := classfile.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", entry, err)
		}
		p.logger.Debug("loaded class", "class", name, "path", dir)
		return &fileClass{name: name, entry: entry, cf: cf}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrClassNotFound, name)
}

func readClassFile(dir, entry string) ([]byte, error) {
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, err
	}
	defer root.Close()
	return root.ReadFile(filepath.FromSlash(entry))
}

// validClassName reports whether name is a dotted name with non-empty
// segments.
func validClassName(name string) bool {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return false
	}
	for seg := range strings.SplitSeq(name, ".") {
		if seg == "" {
			return false
		}
	}
	return true
}

// fileClass is a Class backed by a parsed class file.
type fileClass struct {
	name  string
	entry string
	cf    *classfile.ClassFile
}

func (c *fileClass) Name() string {
	return c.name
}

func (c *fileClass) HasDeclaredMethod(name string) bool {
	return slices.Contains(c.DeclaredMethods(), name)
}

func (c *fileClass) DeclaredMethods() []string {
	return slices.DeleteFunc(c.cf.MethodNames(), func(n string) bool {
		return n == classfile.ConstructorName || n == classfile.InitializerName
	})
}

func (c *fileClass) AddMethod(spec MethodSpec) error {
	var code []byte
	var err error
	for _, stmt := range spec.Body {
		if code, err = c.cf.AppendPrintln(code, stmt.Message); err != nil {
			return err
		}
	}
	code = append(code, classfile.OpReturn)

	locals, err := classfile.ArgSlots(spec.Descriptor)
	if err != nil {
		return err
	}
	var access uint16
	if spec.Public {
		access |= classfile.AccPublic
	}
	if spec.Static {
		access |= classfile.AccStatic
	} else {
		locals++
	}
	_, err = c.cf.AddMethod(access, spec.Name, spec.Descriptor, &classfile.Code{
		MaxStack:  classfile.PrintlnStack,
		MaxLocals: uint16(locals),
		Code:      code,
	})
	return err
}

func (c *fileClass) InsertBefore(method string, stmt Statement) error {
	if !c.HasDeclaredMethod(method) {
		return fmt.Errorf("%w: %s.%s", ErrMethodNotFound, c.name, method)
	}
	m, err := c.cf.FindMethod(method)
	if err != nil {
		return err
	}
	prologue, err := c.cf.AppendPrintln(nil, stmt.Message)
	if err != nil {
		return err
	}
	return c.cf.InsertBefore(m, prologue, classfile.PrintlnStack)
}

func (c *fileClass) WriteFile(dir string) error {
	data, err := c.cf.Bytes()
	if err != nil {
		return err
	}
	if err := workdir.WriteFile(dir, c.entry, data); err != nil {
		return ioError("write "+c.entry, err)
	}
	return nil
}

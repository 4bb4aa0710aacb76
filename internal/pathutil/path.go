// Package pathutil provides path manipulation for slash-separated archive
// entry names and the class names they carry.
package pathutil

import (
	"errors"
	"io/fs"
	"strings"
)

// ClassSuffix is the file suffix of compiled classes.
const ClassSuffix = ".class"

// ErrInvalidPath is returned for entry names that are not clean relative
// slash-separated paths.
var ErrInvalidPath = errors.New("pathutil: invalid entry path")

// EntryName validates a raw archive entry name. It returns the name without
// a trailing slash and whether the entry is a directory. Absolute names,
// backslashes, and "." or ".." elements are rejected.
func EntryName(raw string) (name string, dir bool, err error) {
	name, dir = strings.CutSuffix(raw, "/")
	if strings.Contains(name, `\`) || !fs.ValidPath(name) || name == "." {
		return "", false, ErrInvalidPath
	}
	return name, dir, nil
}

// DirPrefix converts a path to its directory entry form.
// For ".", returns "" (the archive root has no entry).
func DirPrefix(name string) string {
	if name == "." || name == "" {
		return ""
	}
	return name + "/"
}

// Parents returns the directory prefixes of name from the outermost in,
// excluding name itself: "a/b/c.txt" yields ["a", "a/b"].
func Parents(name string) []string {
	var parents []string
	for i := 0; i < len(name); i++ {
		if name[i] == '/' {
			parents = append(parents, name[:i])
		}
	}
	return parents
}

// ClassName converts an entry name such as "com/example/App.class" to the
// dotted class name "com.example.App". ok is false for non-class entries.
func ClassName(entry string) (name string, ok bool) {
	base, ok := strings.CutSuffix(entry, ClassSuffix)
	if !ok || base == "" || strings.HasSuffix(base, "/") {
		return "", false
	}
	return strings.ReplaceAll(base, "/", "."), true
}

// ClassPath converts a dotted class name to its entry name.
func ClassPath(className string) string {
	return strings.ReplaceAll(className, ".", "/") + ClassSuffix
}

// NormalizeClassName cleans a user-supplied class descriptor: surrounding
// space is trimmed, a trailing ".class" dropped and slashes become dots.
func NormalizeClassName(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ClassSuffix)
	return strings.ReplaceAll(s, "/", ".")
}

package archive

import (
	"time"

	"github.com/opencontainers/go-digest"

	"github.com/meigma/jarpatch/internal/pathutil"
)

// Entry describes one archive member.
type Entry struct {
	// Name is the slash-separated path without a trailing slash.
	Name string

	// Dir reports whether the entry is a directory marker.
	Dir bool

	// Method is the zip compression method the entry was stored with.
	Method uint16

	// Modified is the entry modification time.
	Modified time.Time

	// Size is the uncompressed size. Zero for directories.
	Size int64

	// Digest is the content digest. Empty for directories.
	Digest digest.Digest
}

// ZipName returns the name as written in the zip central directory.
func (e Entry) ZipName() string {
	if e.Dir {
		return pathutil.DirPrefix(e.Name)
	}
	return e.Name
}

// Index is the ordered entry list of an extracted archive.
type Index struct {
	entries []Entry
	byName  map[string]int
}

// NewIndex returns an empty Index.
func NewIndex() *Index {
	return &Index{byName: make(map[string]int)}
}

// add appends e, reporting false if an entry with the same name exists.
func (ix *Index) add(e Entry) bool {
	if _, ok := ix.byName[e.Name]; ok {
		return false
	}
	ix.byName[e.Name] = len(ix.entries)
	ix.entries = append(ix.entries, e)
	return true
}

// Len returns the number of entries.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.entries)
}

// Entries returns a copy of the entries in archive order.
func (ix *Index) Entries() []Entry {
	if ix == nil {
		return nil
	}
	return append([]Entry(nil), ix.entries...)
}

// Lookup returns the entry with the given name.
func (ix *Index) Lookup(name string) (Entry, bool) {
	if ix == nil {
		return Entry{}, false
	}
	i, ok := ix.byName[name]
	if !ok {
		return Entry{}, false
	}
	return ix.entries[i], true
}

// Classes returns the dotted names of all class entries in archive order.
func (ix *Index) Classes() []string {
	if ix == nil {
		return nil
	}
	var names []string
	for _, e := range ix.entries {
		if e.Dir {
			continue
		}
		if name, ok := pathutil.ClassName(e.Name); ok {
			names = append(names, name)
		}
	}
	return names
}

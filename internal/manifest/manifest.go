// Package manifest reads attributes from a jar manifest.
//
// Only the main section is parsed. It is a sequence of "Name: value" lines
// ending at the first blank line; a line beginning with a single space
// continues the previous value.
package manifest

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Path is the entry name of the manifest inside a jar.
const Path = "META-INF/MANIFEST.MF"

// MainClass is the attribute naming the entry-point class.
const MainClass = "Main-Class"

// ErrMalformed is returned for a header line without a colon separator.
var ErrMalformed = errors.New("manifest: malformed header")

// Manifest holds main section attributes keyed by lower-cased name.
type Manifest struct {
	values map[string]string
}

// Parse parses the main section of a manifest.
func Parse(data []byte) (*Manifest, error) {
	m := &Manifest{values: make(map[string]string)}
	data = bytes.TrimPrefix(data, []byte("\ufeff"))

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 4096), len(data)+1)
	sc.Split(scanLines)

	var last string
	for line := 1; sc.Scan(); line++ {
		text := sc.Text()
		if text == "" {
			break
		}
		if cont, ok := strings.CutPrefix(text, " "); ok {
			if last == "" {
				return nil, fmt.Errorf("%w: line %d: continuation without header", ErrMalformed, line)
			}
			m.values[last] += cont
			continue
		}
		name, value, ok := strings.Cut(text, ":")
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: line %d", ErrMalformed, line)
		}
		key := strings.ToLower(name)
		m.values[key] = strings.TrimPrefix(value, " ")
		last = key
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

// ReadFile parses the manifest stored at path. A missing file yields
// (nil, nil) so callers can treat it like a manifest without attributes.
func ReadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Get returns the value of the named attribute. Names are matched
// case-insensitively. A nil Manifest has no attributes.
func (m *Manifest) Get(name string) (string, bool) {
	if m == nil {
		return "", false
	}
	v, ok := m.values[strings.ToLower(name)]
	return v, ok
}

// MainClass returns the trimmed Main-Class attribute. ok is false when the
// attribute is absent or blank.
func (m *Manifest) MainClass() (string, bool) {
	v, ok := m.Get(MainClass)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

// scanLines splits on LF, CRLF, or a lone CR.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i], nil
		}
		if i+1 < len(data) {
			if data[i+1] == '\n' {
				return i + 2, data[:i], nil
			}
			return i + 1, data[:i], nil
		}
		if atEOF {
			return i + 1, data[:i], nil
		}
		return 0, nil, nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

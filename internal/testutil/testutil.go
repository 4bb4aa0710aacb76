// Package testutil builds class files and jars for tests, so no JDK is needed.
package testutil

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"

	"github.com/meigma/jarpatch/classfile"
)

// ModTime is the timestamp of generated entries.
var ModTime = time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

// Method describes a method of a generated class. The body prints each of
// Messages in turn and returns.
type Method struct {
	Name       string
	Descriptor string // defaults to "()V", or "([Ljava/lang/String;)V" for main
	Static     bool
	Messages   []string
}

// Init returns an instance method named init printing messages.
func Init(messages ...string) Method {
	return Method{Name: "init", Messages: messages}
}

// Main returns a static main method printing messages.
func Main(messages ...string) Method {
	return Method{Name: "main", Static: true, Messages: messages}
}

// Constructor returns a no-argument constructor.
func Constructor() Method {
	return Method{Name: classfile.ConstructorName}
}

// ClassBytes returns a serialized class. name may be dotted or
// slash-separated.
func ClassBytes(tb testing.TB, name string, methods ...Method) []byte {
	tb.Helper()

	cf, err := classfile.New(strings.ReplaceAll(name, ".", "/"), "java/lang/Object")
	require.NoError(tb, err)
	for _, m := range methods {
		desc := m.Descriptor
		if desc == "" {
			desc = "()V"
			if m.Name == "main" {
				desc = "([Ljava/lang/String;)V"
			}
		}
		var body []byte
		for _, msg := range m.Messages {
			body, err = cf.AppendPrintln(body, msg)
			require.NoError(tb, err)
		}
		body = append(body, classfile.OpReturn)

		slots, err := classfile.ArgSlots(desc)
		require.NoError(tb, err)
		access := uint16(classfile.AccPublic)
		if m.Static {
			access |= classfile.AccStatic
		} else {
			slots++
		}
		_, err = cf.AddMethod(access, m.Name, desc, &classfile.Code{
			MaxStack:  classfile.PrintlnStack,
			MaxLocals: uint16(slots),
			Code:      body,
		})
		require.NoError(tb, err)
	}
	data, err := cf.Bytes()
	require.NoError(tb, err)
	return data
}

// Manifest returns manifest bytes, with a Main-Class attribute when
// mainClass is not empty.
func Manifest(mainClass string) []byte {
	var b strings.Builder
	b.WriteString("Manifest-Version: 1.0\r\nCreated-By: testutil\r\n")
	if mainClass != "" {
		b.WriteString("Main-Class: " + mainClass + "\r\n")
	}
	b.WriteString("\r\n")
	return []byte(b.String())
}

// Entry is one jar member. Names ending in "/" are directories.
type Entry struct {
	Name   string
	Data   []byte
	Method uint16
}

// File returns a deflated file entry.
func File(name string, data []byte) Entry {
	return Entry{Name: name, Data: data, Method: zip.Deflate}
}

// Dir returns a directory entry.
func Dir(name string) Entry {
	return Entry{Name: strings.TrimSuffix(name, "/") + "/"}
}

// WriteJar writes entries in order to a new zip file at path.
func WriteJar(tb testing.TB, path string, entries ...Entry) {
	tb.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.Name, Method: e.Method, Modified: ModTime})
		require.NoError(tb, err)
		if len(e.Data) > 0 {
			_, err = w.Write(e.Data)
			require.NoError(tb, err)
		}
	}
	require.NoError(tb, zw.Close())
	require.NoError(tb, os.WriteFile(path, buf.Bytes(), 0o600))
}

// ReadJar returns the entries of the zip file at path in order.
func ReadJar(tb testing.TB, path string) []Entry {
	tb.Helper()

	r, err := zip.OpenReader(path)
	require.NoError(tb, err)
	defer r.Close()

	entries := make([]Entry, 0, len(r.File))
	for _, f := range r.File {
		rc, err := f.Open()
		require.NoError(tb, err)
		data, err := io.ReadAll(rc)
		require.NoError(tb, rc.Close())
		require.NoError(tb, err)
		entries = append(entries, Entry{Name: f.Name, Data: data, Method: f.Method})
	}
	return entries
}

// Names returns the entry names.
func Names(entries []Entry) []string {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

// Find returns the entry named name.
func Find(tb testing.TB, entries []Entry, name string) Entry {
	tb.Helper()
	for _, e := range entries {
		if e.Name == name {
			return e
		}
	}
	require.Failf(tb, "entry not found", "%s", name)
	return Entry{}
}

package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/zip"
	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/jarpatch/internal/testutil"
)

func sampleJar(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.jar")
	testutil.WriteJar(t, path,
		testutil.Dir("META-INF/"),
		testutil.File("META-INF/MANIFEST.MF", testutil.Manifest("com.example.App")),
		testutil.Dir("com/"),
		testutil.Dir("com/example/"),
		testutil.File("com/example/App.class", testutil.ClassBytes(t, "com.example.App", testutil.Main("hi"))),
		testutil.Entry{Name: "com/example/data.bin", Data: []byte{0, 1, 2, 3}, Method: zip.Store},
		testutil.File("README.txt", []byte("readme")),
	)
	return path
}

func TestExtract(t *testing.T) {
	t.Parallel()

	src := sampleJar(t)
	dir := t.TempDir()
	ix, err := Extract(context.Background(), src, dir)
	require.NoError(t, err)

	names := make([]string, 0, ix.Len())
	for _, e := range ix.Entries() {
		names = append(names, e.ZipName())
	}
	want := []string{
		"META-INF/", "META-INF/MANIFEST.MF", "com/", "com/example/",
		"com/example/App.class", "com/example/data.bin", "README.txt",
	}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}

	e, ok := ix.Lookup("com/example/data.bin")
	require.True(t, ok)
	assert.Equal(t, zip.Store, e.Method)
	assert.Equal(t, int64(4), e.Size)
	assert.Equal(t, digest.FromBytes([]byte{0, 1, 2, 3}), e.Digest)
	assert.True(t, e.Modified.Equal(testutil.ModTime))

	got, err := os.ReadFile(filepath.Join(dir, "README.txt"))
	require.NoError(t, err)
	assert.Equal(t, "readme", string(got))
	assert.Equal(t, []string{"com.example.App"}, ix.Classes())
}

func TestExtractRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		entries []testutil.Entry
		opts    []Option
		wantErr error
	}{
		{
			name:    "parent traversal",
			entries: []testutil.Entry{testutil.File("../evil.txt", []byte("x"))},
			wantErr: ErrUnsafePath,
		},
		{
			name:    "absolute",
			entries: []testutil.Entry{testutil.File("/etc/evil", []byte("x"))},
			wantErr: ErrUnsafePath,
		},
		{
			name:    "backslash",
			entries: []testutil.Entry{testutil.File(`..\evil`, []byte("x"))},
			wantErr: ErrUnsafePath,
		},
		{
			name: "duplicate",
			entries: []testutil.Entry{
				testutil.File("a.txt", []byte("1")),
				testutil.File("a.txt", []byte("2")),
			},
			wantErr: ErrDuplicateEntry,
		},
		{
			name:    "too large",
			entries: []testutil.Entry{testutil.File("big.bin", make([]byte, 64))},
			opts:    []Option{WithMaxEntrySize(16)},
			wantErr: ErrEntryTooLarge,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			src := filepath.Join(t.TempDir(), "in.jar")
			testutil.WriteJar(t, src, tt.entries...)

			parent := t.TempDir()
			dir := filepath.Join(parent, "work")
			require.NoError(t, os.Mkdir(dir, 0o750))
			_, err := Extract(context.Background(), src, dir, tt.opts...)
			require.ErrorIs(t, err, tt.wantErr)
			assert.NoFileExists(t, filepath.Join(parent, "evil.txt"))
		})
	}
}

func TestExtractCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Extract(ctx, sampleJar(t), t.TempDir())
	require.ErrorIs(t, err, context.Canceled)
}

func TestWriteRoundTrip(t *testing.T) {
	t.Parallel()

	src := sampleJar(t)
	dir := t.TempDir()
	ix, err := Extract(context.Background(), src, dir)
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "out.jar")
	res, err := Write(context.Background(), dir, out, ix)
	require.NoError(t, err)

	in := testutil.ReadJar(t, src)
	got := testutil.ReadJar(t, out)
	if diff := cmp.Diff(in, got); diff != "" {
		t.Fatalf("round trip mismatch (-in +out):\n%s", diff)
	}

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), res.Size)
	assert.Equal(t, digest.FromBytes(data), res.Digest)
	assert.Equal(t, len(in), res.Entries)
}

func TestWriteSynthesizesDirectories(t *testing.T) {
	t.Parallel()

	src := filepath.Join(t.TempDir(), "in.jar")
	testutil.WriteJar(t, src,
		testutil.File("z/last.txt", []byte("z")),
		testutil.File("META-INF/MANIFEST.MF", testutil.Manifest("")),
		testutil.File("a/b/c.txt", []byte("c")),
	)
	dir := t.TempDir()
	ix, err := Extract(context.Background(), src, dir)
	require.NoError(t, err)

	// A file that was not in the input is appended after indexed entries.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a", "b", "extra.txt"), []byte("e"), 0o600))

	out := filepath.Join(t.TempDir(), "out.jar")
	_, err = Write(context.Background(), dir, out, ix)
	require.NoError(t, err)

	want := []string{
		"z/", "z/last.txt",
		"META-INF/", "META-INF/MANIFEST.MF",
		"a/", "a/b/", "a/b/c.txt",
		"a/b/extra.txt",
	}
	if diff := cmp.Diff(want, testutil.Names(testutil.ReadJar(t, out))); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteWithoutIndex(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "META-INF"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "META-INF", "MANIFEST.MF"), testutil.Manifest("App"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "App.class"), []byte("class"), 0o600))

	out := filepath.Join(t.TempDir(), "out.jar")
	_, err := Write(context.Background(), dir, out, nil)
	require.NoError(t, err)

	entries := testutil.ReadJar(t, out)
	want := []string{"META-INF/", "META-INF/MANIFEST.MF", "App.class"}
	if diff := cmp.Diff(want, testutil.Names(entries)); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, zip.Deflate, testutil.Find(t, entries, "App.class").Method)
}

func TestWriteCompression(t *testing.T) {
	t.Parallel()

	src := sampleJar(t)
	dir := t.TempDir()
	ix, err := Extract(context.Background(), src, dir)
	require.NoError(t, err)

	tests := []struct {
		name string
		mode Compression
		want uint16
	}{
		{name: "store", mode: CompressionStore, want: zip.Store},
		{name: "deflate", mode: CompressionDeflate, want: zip.Deflate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			out := filepath.Join(t.TempDir(), "out.jar")
			_, err := Write(context.Background(), dir, out, ix, WithCompression(tt.mode), WithLevel(9))
			require.NoError(t, err)
			for _, e := range testutil.ReadJar(t, out) {
				if e.Name[len(e.Name)-1] == '/' {
					continue
				}
				assert.Equal(t, tt.want, e.Method, e.Name)
			}
		})
	}

	_, err = Write(context.Background(), dir, filepath.Join(t.TempDir(), "x.jar"), ix, WithCompression("zstd"))
	require.Error(t, err)
}

func TestWriteVerify(t *testing.T) {
	t.Parallel()

	src := sampleJar(t)
	dir := t.TempDir()
	ix, err := Extract(context.Background(), src, dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.txt"), []byte("changed"), 0o600))

	outDir := t.TempDir()
	out := filepath.Join(outDir, "out.jar")
	_, err = Write(context.Background(), dir, out, ix)
	require.ErrorIs(t, err, ErrDigestMismatch)
	assert.NoFileExists(t, out)
	leftovers, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Empty(t, leftovers, "failed writes must not leave temp files")

	_, err = Write(context.Background(), dir, out, ix, WithModified("README.txt"))
	require.NoError(t, err)
	assert.Equal(t, "changed", string(testutil.Find(t, testutil.ReadJar(t, out), "README.txt").Data))

	_, err = Write(context.Background(), dir, filepath.Join(outDir, "noverify.jar"), ix, WithVerify(false))
	require.NoError(t, err)
}

func TestWriteStoredWithoutDataDescriptor(t *testing.T) {
	t.Parallel()

	src := filepath.Join(t.TempDir(), "in.jar")
	testutil.WriteJar(t, src,
		testutil.Entry{Name: "META-INF/MANIFEST.MF", Data: testutil.Manifest("App"), Method: zip.Store},
		testutil.Entry{Name: "App.class", Data: []byte("class"), Method: zip.Store},
		testutil.Entry{Name: "res/données.txt", Data: []byte("données"), Method: zip.Store},
		testutil.Entry{Name: "res/empty.txt", Method: zip.Store},
		testutil.File("res/deflated.txt", []byte("deflated")),
	)
	dir := t.TempDir()
	ix, err := Extract(context.Background(), src, dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "App.class"), []byte("patched class"), 0o600))

	out := filepath.Join(t.TempDir(), "out.jar")
	_, err = Write(context.Background(), dir, out, ix, WithModified("App.class"))
	require.NoError(t, err)

	zr, err := zip.OpenReader(out)
	require.NoError(t, err)
	defer zr.Close()

	stored := 0
	for _, f := range zr.File {
		if f.Name == "App.class" {
			assert.True(t, testutil.ModTime.Equal(f.Modified), "modification time kept")
		}
		if f.Method != zip.Store {
			continue
		}
		stored++
		assert.Zero(t, f.Flags&0x8, "%s has a data descriptor", f.Name)
	}
	assert.Equal(t, 4+2, stored, "four files plus META-INF/ and res/")

	entries := testutil.ReadJar(t, out)
	assert.Equal(t, "patched class", string(testutil.Find(t, entries, "App.class").Data))
	assert.Equal(t, "données", string(testutil.Find(t, entries, "res/données.txt").Data))
	assert.Equal(t, zip.Deflate, testutil.Find(t, entries, "res/deflated.txt").Method)
}

func TestWriteOutputMode(t *testing.T) {
	t.Parallel()

	src := sampleJar(t)
	dir := t.TempDir()
	ix, err := Extract(context.Background(), src, dir)
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "out.jar")
	_, err = Write(context.Background(), dir, out, ix)
	require.NoError(t, err)

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Equal(t, OutputMode, info.Mode().Perm())
}

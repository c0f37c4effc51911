package aufs_test

import (
	"io"
	"io/fs"
	"sort"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/kylelemons/godebug/pretty"

	"github.com/aufs-fs/aufs"
)

const testBlockSize = 512

func formatMapFS(t *testing.T, blocks uint32, mapFS fstest.MapFS) (*aufs.FS, aufs.BlockDevice) {
	t.Helper()

	formatter, err := aufs.NewFormatter(testBlockSize, aufs.WithCtime(1700000000))
	if err != nil {
		t.Fatalf("NewFormatter: %s", err)
	}

	tree, err := formatter.BuildTree(mapFS, ".", "")
	if err != nil {
		t.Fatalf("BuildTree: %s", err)
	}

	dev := newTestDevice(blocks)
	if err := formatter.Format(dev, tree); err != nil {
		t.Fatalf("Format: %s", err)
	}

	fsys, err := aufs.Mount(dev)
	if err != nil {
		t.Fatalf("Mount: %s", err)
	}
	return fsys, dev
}

func TestFormatEmptyRoot(t *testing.T) {
	fsys, _ := formatMapFS(t, 64, fstest.MapFS{})

	entries, err := fsys.ReadDir(".")
	if err != nil {
		t.Fatalf("ReadDir: %s", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty root, got %d entries", len(entries))
	}

	fi, err := fsys.Stat(".")
	if err != nil {
		t.Fatalf("Stat: %s", err)
	}
	if !fi.IsDir() {
		t.Fatalf("expected root to be a directory")
	}
}

func TestFormatSingleFileRoundTrip(t *testing.T) {
	content := make([]byte, 5000)
	for i := range content {
		content[i] = byte(i % 251)
	}
	mapFS := fstest.MapFS{
		"hello.bin": &fstest.MapFile{Data: content},
	}

	fsys, _ := formatMapFS(t, 64, mapFS)

	f, err := fsys.Open("hello.bin")
	if err != nil {
		t.Fatalf("Open: %s", err)
	}
	defer f.Close()

	got, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("ReadAll: %s", err)
	}
	if len(got) != len(content) {
		t.Fatalf("length mismatch: got %d want %d", len(got), len(content))
	}
	for i := range content {
		if got[i] != content[i] {
			t.Fatalf("content mismatch at byte %d", i)
		}
	}
}

func TestFormatNestedDirectories(t *testing.T) {
	mapFS := fstest.MapFS{
		"a/b/c.txt": &fstest.MapFile{Data: []byte("leaf")},
		"a/d.txt":   &fstest.MapFile{Data: []byte("sibling")},
	}

	fsys, _ := formatMapFS(t, 64, mapFS)

	if err := fstest.TestFS(fsys, "a/b/c.txt", "a/d.txt"); err != nil {
		t.Fatalf("fstest.TestFS: %s", err)
	}

	data, err := fs.ReadFile(fsys, "a/b/c.txt")
	if err != nil {
		t.Fatalf("ReadFile: %s", err)
	}
	if string(data) != "leaf" {
		t.Fatalf("got %q want %q", data, "leaf")
	}
}

// TestFormatDirectoryListingMatchesSourceTree structurally diffs the
// mounted root listing against the names present in the source tree,
// using kylelemons/godebug/pretty the way hanwen-go-fuse's own test
// suite diffs structured results.
func TestFormatDirectoryListingMatchesSourceTree(t *testing.T) {
	mapFS := fstest.MapFS{
		"one.txt":   &fstest.MapFile{Data: []byte("1")},
		"two.txt":   &fstest.MapFile{Data: []byte("22")},
		"three.txt": &fstest.MapFile{Data: []byte("333")},
	}
	fsys, _ := formatMapFS(t, 64, mapFS)

	entries, err := fsys.ReadDir(".")
	if err != nil {
		t.Fatalf("ReadDir: %s", err)
	}
	var got []string
	for _, e := range entries {
		got = append(got, e.Name())
	}
	sort.Strings(got)

	want := []string{"one.txt", "three.txt", "two.txt"}
	if diff := pretty.Compare(got, want); diff != "" {
		t.Fatalf("directory listing mismatch (-got +want):\n%s", diff)
	}
}

func TestFormatLookupMissingNameNotFound(t *testing.T) {
	fsys, _ := formatMapFS(t, 64, fstest.MapFS{
		"present.txt": &fstest.MapFile{Data: []byte("x")},
	})

	_, err := fsys.Open("missing.txt")
	if err == nil {
		t.Fatalf("expected an error opening a missing file")
	}
}

// TestFormatPreservesHostPermissions exercises WithPreserveHostPermissions:
// a host file's non-default permission bits are translated by
// fileModeToUnix and survive into the mounted inode's mode, instead of
// the formatter's uniform DefaultPerm.
func TestFormatPreservesHostPermissions(t *testing.T) {
	mapFS := fstest.MapFS{
		"exec.sh": &fstest.MapFile{Data: []byte("#!/bin/sh\n"), Mode: 0o640},
	}

	formatter, err := aufs.NewFormatter(testBlockSize, aufs.WithCtime(1700000000), aufs.WithPreserveHostPermissions(true))
	if err != nil {
		t.Fatalf("NewFormatter: %s", err)
	}
	tree, err := formatter.BuildTree(mapFS, ".", "")
	if err != nil {
		t.Fatalf("BuildTree: %s", err)
	}
	dev := newTestDevice(64)
	if err := formatter.Format(dev, tree); err != nil {
		t.Fatalf("Format: %s", err)
	}
	fsys, err := aufs.Mount(dev)
	if err != nil {
		t.Fatalf("Mount: %s", err)
	}

	fi, err := fsys.Stat("exec.sh")
	if err != nil {
		t.Fatalf("Stat: %s", err)
	}
	if fi.Mode().Perm() != 0o640 {
		t.Fatalf("got perm %o, want %o", fi.Mode().Perm(), 0o640)
	}
}

// TestFormatTruncatesLongNames exercises spec.md §8 scenario S4: a
// 40-character host file name is truncated to NameMaxLen (27) bytes
// when staged into the container, and the truncated name is what
// Lookup (via Open/ReadDir) actually finds on the mounted filesystem.
func TestFormatTruncatesLongNames(t *testing.T) {
	longName := strings.Repeat("a", 40)
	wantName := strings.Repeat("a", aufs.NameMaxLen)

	mapFS := fstest.MapFS{
		longName: &fstest.MapFile{Data: []byte("content")},
	}
	fsys, _ := formatMapFS(t, 64, mapFS)

	entries, err := fsys.ReadDir(".")
	if err != nil {
		t.Fatalf("ReadDir: %s", err)
	}
	if len(entries) != 1 || entries[0].Name() != wantName {
		t.Fatalf("expected a single entry named %q, got %v", wantName, entries)
	}

	data, err := fs.ReadFile(fsys, wantName)
	if err != nil {
		t.Fatalf("ReadFile(%q): %s", wantName, err)
	}
	if string(data) != "content" {
		t.Fatalf("got %q want %q", data, "content")
	}

	if _, err := fsys.Open(longName); err == nil {
		t.Fatalf("expected the untruncated 40-byte name not to resolve")
	}
}

func TestFormatPartialReadsAcrossBlockBoundary(t *testing.T) {
	content := make([]byte, 3*testBlockSize+37)
	for i := range content {
		content[i] = byte(i)
	}
	fsys, _ := formatMapFS(t, 64, fstest.MapFS{
		"big.bin": &fstest.MapFile{Data: content},
	})

	f, err := fsys.Open("big.bin")
	if err != nil {
		t.Fatalf("Open: %s", err)
	}
	defer f.Close()

	r, ok := f.(io.ReaderAt)
	if !ok {
		t.Fatalf("expected File to implement io.ReaderAt")
	}

	buf := make([]byte, 100)
	n, err := r.ReadAt(buf, int64(testBlockSize-50))
	if err != nil {
		t.Fatalf("ReadAt: %s", err)
	}
	if n != 100 {
		t.Fatalf("expected to read across the block boundary in one call, got %d bytes", n)
	}
	for i := 0; i < 100; i++ {
		want := content[testBlockSize-50+i]
		if buf[i] != want {
			t.Fatalf("byte %d: got %d want %d", i, buf[i], want)
		}
	}
}

package aufs

import (
	"errors"
	"testing"
)

func TestEntriesPerBlock(t *testing.T) {
	if got := entriesPerBlock(4096); got != 128 {
		t.Fatalf("got %d want 128", got)
	}
	if got := entriesPerBlock(64); got != 2 {
		t.Fatalf("got %d want 2", got)
	}
}

func TestDirEntryRoundTrip(t *testing.T) {
	rec := encodeDirEntry("hello.bin", 42)
	if len(rec) != DirEntrySize {
		t.Fatalf("encoded record is %d bytes, want %d", len(rec), DirEntrySize)
	}
	ent := decodeDirEntry(rec)
	if ent.name != "hello.bin" || ent.ino != 42 {
		t.Fatalf("got %+v", ent)
	}
}

func TestDirEntryNameExactly27Bytes(t *testing.T) {
	name := make([]byte, NameMaxLen)
	for i := range name {
		name[i] = 'a'
	}
	rec := encodeDirEntry(string(name), 7)
	ent := decodeDirEntry(rec)
	if ent.name != string(name) {
		t.Fatalf("a name exactly NameMaxLen long must round-trip without truncation or an off-by-one NUL")
	}
}

// TestTruncateNameTruncatesLongNames is the direct unit-level companion
// to TestFormatTruncatesLongNames: it exercises truncateName itself
// (spec.md §4.4, §8 scenario S4), the only place a host name is
// mutated on its way into the container.
func TestTruncateNameTruncatesLongNames(t *testing.T) {
	long := make([]byte, 40)
	for i := range long {
		long[i] = 'a'
	}
	got, err := truncateName(string(long))
	if err != nil {
		t.Fatalf("truncateName: %s", err)
	}
	if len(got) != NameMaxLen {
		t.Fatalf("got length %d, want %d", len(got), NameMaxLen)
	}
	if got != string(long[:NameMaxLen]) {
		t.Fatalf("got %q, want the first %d bytes of the original name", got, NameMaxLen)
	}

	// A name already within bounds passes through unchanged.
	short, err := truncateName("short.txt")
	if err != nil {
		t.Fatalf("truncateName: %s", err)
	}
	if short != "short.txt" {
		t.Fatalf("got %q, want %q", short, "short.txt")
	}

	if _, err := truncateName(""); !errors.Is(err, ErrNameTooLong) {
		t.Fatalf("expected ErrNameTooLong for an empty name, got %v", err)
	}
}

// TestInodeGetRejectsUndefinedMode verifies the fix for the historical
// bug where an inode whose mode was neither S_IFDIR nor S_IFREG would
// fall through into directory behavior instead of being rejected.
func TestInodeGetRejectsUndefinedMode(t *testing.T) {
	dev := newMemDevice(512, 8)
	sb := &Superblock{Magic: Magic, BlockSize: 512, BlocksCount: 8, InodesCount: 16, Start: 4, RootIno: 0}
	dev.WriteBlock(0, sb.MarshalBinary())

	// Write inode 0 with an unrecognized mode (neither S_IFDIR nor S_IFREG).
	block, _ := dev.ReadBlock(firstInodeTableBlock)
	copy(block[:InodeSize], encodeInode(&Inode{Mode: 0o755})) // no type bits at all
	dev.WriteBlock(firstInodeTableBlock, block)

	fsys := &FS{dev: dev, sb: sb}
	_, err := fsys.InodeGet(0)
	if !errors.Is(err, ErrBadMode) {
		t.Fatalf("expected ErrBadMode for an undefined inode format, got %v", err)
	}
}

// TestLookupRejectsRegularFileInode verifies the fix for the historical
// bug where directory operations could be bound to a regular-file
// inode.
func TestLookupRejectsRegularFileInode(t *testing.T) {
	dev := newMemDevice(512, 8)
	sb := &Superblock{Magic: Magic, BlockSize: 512, BlocksCount: 8, InodesCount: 16, Start: 4, RootIno: 0}
	fsys := &FS{dev: dev, sb: sb}

	regular := &Inode{Ino: 0, Mode: ModeReg | DefaultPerm, Length: 0}
	if _, err := fsys.Lookup(regular, "anything"); !errors.Is(err, ErrBadMode) {
		t.Fatalf("expected ErrBadMode when looking up inside a regular-file inode, got %v", err)
	}
	if err := fsys.Iterate(regular, func(string, uint32) bool { return true }); !errors.Is(err, ErrBadMode) {
		t.Fatalf("expected ErrBadMode when iterating a regular-file inode, got %v", err)
	}
}

// countingDevice wraps a memDevice and counts ReadBlock calls, so a test
// can assert a path took zero block reads rather than merely happening
// to return the right answer.
type countingDevice struct {
	*memDevice
	reads int
}

func (d *countingDevice) ReadBlock(n uint32) ([]byte, error) {
	d.reads++
	return d.memDevice.ReadBlock(n)
}

// TestLookupRejectsOutOfBoundsNameWithoutReadingBlocks verifies spec.md
// §4.6's bounds check / §8 scenario S6: a name that is empty or at/over
// the 28-byte name field can never have been stored, so Lookup must
// return ErrNotFound immediately, without reading a single directory
// block, even against a non-empty directory.
func TestLookupRejectsOutOfBoundsNameWithoutReadingBlocks(t *testing.T) {
	const blockSize = 512
	mem := newMemDevice(blockSize, 8)
	sb := &Superblock{Magic: Magic, BlockSize: blockSize, BlocksCount: 8, InodesCount: 16, Start: 4, RootIno: 0}

	block := make([]byte, blockSize)
	copy(block, encodeDirEntry("present.txt", 1))
	mem.WriteBlock(4, block)

	// Inode 1 (block 3, slot 1) is the regular file the entry points at.
	table := make([]byte, blockSize)
	copy(table[InodeSize:], encodeInode(&Inode{Mode: ModeReg | DefaultPerm}))
	mem.WriteBlock(firstInodeTableBlock, table)

	dir := &Inode{Ino: 0, Mode: ModeDir | DefaultPerm, Block: 4, Blocks: 1, Length: 1}

	dev := &countingDevice{memDevice: mem}
	fsys := &FS{dev: dev, sb: sb}

	tooLong := make([]byte, nameFieldLen)
	for i := range tooLong {
		tooLong[i] = 'x'
	}

	for _, name := range []string{"", string(tooLong)} {
		dev.reads = 0
		_, err := fsys.Lookup(dir, name)
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("Lookup(%q): expected ErrNotFound, got %v", name, err)
		}
		if dev.reads != 0 {
			t.Fatalf("Lookup(%q): expected zero block reads, got %d", name, dev.reads)
		}
	}

	// Sanity check: a name within bounds does take the normal path and
	// does read the directory's block(s).
	dev.reads = 0
	if _, err := fsys.Lookup(dir, "present.txt"); err != nil {
		t.Fatalf("Lookup(present.txt): unexpected error %v", err)
	}
	if dev.reads == 0 {
		t.Fatalf("expected Lookup on a valid name to read at least one block")
	}
}

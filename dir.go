package aufs

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io/fs"
)

// Directory data (spec.md §3) is a flat array of fixed 32-byte entries —
// a 28-byte NUL-padded name plus a big-endian u32 inode number — packed
// across the directory inode's block extent. Inode.Length holds the
// entry count, not a byte length.
//
// This replaces the teacher's dirReader (dir.go), which streams
// variable-length SquashFS directory headers/entries out of a
// metadata-block table reader; AUFS directories need no header framing
// or metadata-block indirection, just a flat slice of fixed records.

// dirEntry is one decoded directory entry.
type dirEntry struct {
	name string
	ino  uint32
}

// entriesPerBlock is the number of 32-byte directory entries that fit in
// one block: E = B/32. spec.md §9(c) calls out a historical bug where
// this divisor was computed as a byte count instead of an entry count,
// which overran entries by a factor of DirEntrySize; every reader here
// goes through this helper so the mistake has exactly one place to live
// (nowhere).
func entriesPerBlock(blockSize int) uint32 {
	return uint32(blockSize) / DirEntrySize
}

// decodeDirEntry parses one 32-byte directory record.
func decodeDirEntry(rec []byte) dirEntry {
	raw := rec[:nameFieldLen]
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	return dirEntry{
		name: string(raw),
		ino:  binary.BigEndian.Uint32(rec[nameFieldLen : nameFieldLen+4]),
	}
}

// encodeDirEntry serializes name and ino into a 32-byte record; used
// only by the formatter. name must already have been validated to fit
// within NameMaxLen.
func encodeDirEntry(name string, ino uint32) []byte {
	buf := make([]byte, DirEntrySize)
	copy(buf[:nameFieldLen], name)
	binary.BigEndian.PutUint32(buf[nameFieldLen:nameFieldLen+4], ino)
	return buf
}

// dirEntryAt reads the i'th directory entry (0-based) out of dir's
// block extent, per the block/slot split in inodeBlockSlot: block
// dir.Block + i/E, slot i%E, where E = entriesPerBlock.
func (fsys *FS) dirEntryAt(dir *Inode, i uint32) (dirEntry, error) {
	e := entriesPerBlock(fsys.sb.BlockSize)
	blockOff := i / e
	slot := i % e
	if blockOff >= dir.Blocks {
		return dirEntry{}, fmt.Errorf("%w: directory entry %d out of extent", ErrIO, i)
	}
	data, err := fsys.dev.ReadBlock(dir.Block + blockOff)
	if err != nil {
		return dirEntry{}, err
	}
	off := slot * DirEntrySize
	if int(off+DirEntrySize) > len(data) {
		return dirEntry{}, fmt.Errorf("%w: directory entry %d slot out of block bounds", ErrIO, i)
	}
	return decodeDirEntry(data[off : off+DirEntrySize]), nil
}

// Iterate calls fn for every entry in dir, in on-disk order, stopping
// early if fn returns false. dir must be a directory inode (InodeGet
// already guarantees this is the only mode an *Inode with IsDir() true
// can carry).
func (fsys *FS) Iterate(dir *Inode, fn func(name string, ino uint32) bool) error {
	if !dir.IsDir() {
		return fmt.Errorf("%w: iterate called on non-directory inode %d", ErrBadMode, dir.Ino)
	}
	for i := uint32(0); i < dir.Length; i++ {
		ent, err := fsys.dirEntryAt(dir, i)
		if err != nil {
			return err
		}
		if !fn(ent.name, ent.ino) {
			return nil
		}
	}
	return nil
}

// Lookup resolves name within dir, returning ErrNotFound if absent. A
// name that could never have been stored (empty, or at/over the
// 28-byte name field) is rejected immediately, before any directory
// block is read (spec.md §4.6's bounds check, §8 scenario S6).
func (fsys *FS) Lookup(dir *Inode, name string) (*Inode, error) {
	if !dir.IsDir() {
		return nil, fmt.Errorf("%w: lookup called on non-directory inode %d", ErrBadMode, dir.Ino)
	}
	if len(name) == 0 || len(name) >= nameFieldLen {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	var found uint32
	ok := false
	err := fsys.Iterate(dir, func(n string, ino uint32) bool {
		if n == name {
			found, ok = ino, true
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return fsys.InodeGet(found)
}

// dirEntryInfo adapts a dirEntry plus its resolved inode to fs.DirEntry,
// in the spirit of the teacher's direntry (dir.go), but backed directly
// by an *Inode rather than a lazily-resolved inodeRef, since AUFS
// directory entries already carry a direct inode number.
type dirEntryInfo struct {
	name string
	ino  *Inode
}

func (de *dirEntryInfo) Name() string               { return de.name }
func (de *dirEntryInfo) IsDir() bool                 { return de.ino.IsDir() }
func (de *dirEntryInfo) Type() fs.FileMode           { return unixToFileMode(de.ino.Mode).Type() }
func (de *dirEntryInfo) Info() (fs.FileInfo, error)  { return &fileInfo{name: de.name, ino: de.ino}, nil }

package aufs

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Inode is the decoded 32-byte on-disk inode record (spec.md §3).
//
// Unlike the teacher's Inode, which dispatches on several SquashFS
// inode-type variants (basic/extended dir, basic/extended file,
// symlink, ...), AUFS has exactly two live shapes, S_IFDIR and S_IFREG;
// anything else is rejected at fetch time rather than dispatched on,
// which is the fix for spec.md §9(a)/(b).
type Inode struct {
	Ino    uint32
	Block  uint32 // first data block of the extent
	Blocks uint32 // length of the extent, in blocks
	Length uint32 // bytes for a file, entry count for a directory
	UID    uint32
	GID    uint32
	Mode   uint32
	Ctime  uint64 // seconds since the epoch
}

// IsDir reports whether the inode is a directory.
func (i *Inode) IsDir() bool { return i.Mode&ModeType == ModeDir }

// IsRegular reports whether the inode is a regular file.
func (i *Inode) IsRegular() bool { return i.Mode&ModeType == ModeReg }

// Perm returns the permission bits, with the type bits masked off.
func (i *Inode) Perm() uint32 { return i.Mode &^ ModeType }

// ModTime exposes Ctime as the single timestamp AUFS records; per
// spec.md §4.5, access/modify/change all read back as this same value.
func (i *Inode) ModTime() time.Time { return time.Unix(int64(i.Ctime), 0) }

// inodeBlockSlot computes the inode-table block number and in-block slot
// for inode number n, per spec.md §3: block 3 + n/K, slot n mod K.
func inodeBlockSlot(sb *Superblock, n uint32) (block uint32, slot uint32) {
	k := sb.K()
	return firstInodeTableBlock + n/k, n % k
}

// decodeInode parses one 32-byte on-disk record. Field order follows
// original_source/kern/inode.h's struct aufs_dinode, with uid/gid/mode/
// ctime appended as there.
func decodeInode(ino uint32, rec []byte) (*Inode, error) {
	if len(rec) < InodeSize {
		return nil, fmt.Errorf("%w: inode record too short", ErrIO)
	}
	return &Inode{
		Ino:    ino,
		Block:  binary.BigEndian.Uint32(rec[0:4]),
		Blocks: binary.BigEndian.Uint32(rec[4:8]),
		Length: binary.BigEndian.Uint32(rec[8:12]),
		UID:    binary.BigEndian.Uint32(rec[12:16]),
		GID:    binary.BigEndian.Uint32(rec[16:20]),
		Mode:   binary.BigEndian.Uint32(rec[20:24]),
		Ctime:  binary.BigEndian.Uint64(rec[24:32]),
	}, nil
}

// encodeInode serializes an Inode back to its 32-byte on-disk form; used
// only by the formatter.
func encodeInode(i *Inode) []byte {
	buf := make([]byte, InodeSize)
	binary.BigEndian.PutUint32(buf[0:4], i.Block)
	binary.BigEndian.PutUint32(buf[4:8], i.Blocks)
	binary.BigEndian.PutUint32(buf[8:12], i.Length)
	binary.BigEndian.PutUint32(buf[12:16], i.UID)
	binary.BigEndian.PutUint32(buf[16:20], i.GID)
	binary.BigEndian.PutUint32(buf[20:24], i.Mode)
	binary.BigEndian.PutUint64(buf[24:32], i.Ctime)
	return buf
}

// InodeGet materializes inode n from the inode table (spec.md §4.5). It
// is the sole place that decides which operation set an inode is bound
// to: S_IFDIR gets directory operations, S_IFREG gets file operations,
// and everything else is rejected with ErrBadMode rather than silently
// treated as a directory (spec.md §9(a)) or falling through an
// "undefined inode format" default into directory behavior (§9(b)).
func (fsys *FS) InodeGet(n uint32) (*Inode, error) {
	block, slot := inodeBlockSlot(fsys.sb, n)
	data, err := fsys.dev.ReadBlock(block)
	if err != nil {
		return nil, err
	}
	off := slot * InodeSize
	if int(off+InodeSize) > len(data) {
		return nil, fmt.Errorf("%w: inode %d slot out of block bounds", ErrIO, n)
	}
	ino, err := decodeInode(n, data[off:off+InodeSize])
	if err != nil {
		return nil, err
	}

	switch {
	case ino.IsDir(), ino.IsRegular():
		return ino, nil
	default:
		logrus.WithFields(logrus.Fields{"ino": n, "mode": fmt.Sprintf("0%o", ino.Mode)}).
			Warn("aufs: undefined inode format")
		return nil, fmt.Errorf("%w: inode %d has mode 0%o", ErrBadMode, n, ino.Mode)
	}
}

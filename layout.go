package aufs

// On-disk layout constants for AUFS. All multi-byte integers on disk are
// big-endian. See original_source/kern/super.h and
// original_source/kern/inode.h for the C struct layouts these mirror.
const (
	// Magic is the constant superblock signature.
	Magic uint32 = 0x13131313

	// DefaultBlockSize is the block size used by mkfs/mkfsimg when the
	// caller does not request a different one.
	DefaultBlockSize = 4096

	// SuperblockSize is the number of significant bytes at the start of
	// block 0; the remainder of the block is zero padding.
	SuperblockSize = 24

	// InodeSize is the fixed size, in bytes, of one on-disk inode
	// record: block, blocks, length, uid, gid, mode (5x u32) + ctime
	// (u64).
	InodeSize = 32

	// DirEntrySize is the fixed size, in bytes, of one on-disk
	// directory entry: a 28-byte NUL-padded name plus a u32 inode
	// number.
	DirEntrySize = 32

	// NameMaxLen is the maximum stored name length, one byte short of
	// the 28-byte field to guarantee room for a terminating NUL.
	NameMaxLen = 27

	// nameFieldLen is the width of the name field within a directory
	// entry.
	nameFieldLen = 28

	// blockBitmapBlock, inodeBitmapBlock and firstInodeTableBlock are
	// the fixed block numbers of the header region (block 0 is the
	// superblock).
	blockBitmapBlock    = 1
	inodeBitmapBlock    = 2
	firstInodeTableBlock = 3

	// HeaderBlocks is the number of fixed header blocks before the
	// inode table begins (superblock, block bitmap, inode bitmap).
	HeaderBlocks = firstInodeTableBlock
)

// Mode type bits, POSIX-compatible (see original_source/user/mkfs.cpp and
// original_source/user/format.cpp, which OR these into freshly allocated
// inodes).
const (
	ModeDir  uint32 = 0x4000 // S_IFDIR
	ModeReg  uint32 = 0x8000 // S_IFREG
	ModeType uint32 = 0xf000 // S_IFMT

	// DefaultPerm is the permission bits stamped onto newly allocated
	// inodes before the type bit is OR'd in (spec.md §4.4 "Stamping").
	DefaultPerm uint32 = 0o755
)

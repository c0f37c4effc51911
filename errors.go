package aufs

import "errors"

// Package-specific error variables, checked with errors.Is().
var (
	// ErrIO is returned when a read or write against the backing
	// BlockDevice fails, or when a block number is out of range.
	ErrIO = errors.New("aufs: backing device i/o error")

	// ErrBadMagic is returned when the superblock magic does not match.
	ErrBadMagic = errors.New("aufs: invalid superblock magic")

	// ErrBadBlockSize is returned when the backing device cannot honor
	// the block size recorded in the superblock.
	ErrBadBlockSize = errors.New("aufs: backing device rejects block size")

	// ErrBadMode is returned when an inode's mode carries an
	// unsupported type bit, or an operation is applied to the wrong
	// inode type (e.g. Lookup or Iterate on a regular file).
	ErrBadMode = errors.New("aufs: unsupported or mismatched inode mode")

	// ErrNotFound is returned by Lookup when no entry matches the name.
	ErrNotFound = errors.New("aufs: name not found")

	// ErrNoSpace is returned by the formatter when no contiguous run of
	// blocks of the requested size is free.
	ErrNoSpace = errors.New("aufs: no contiguous free space")

	// ErrNoInodes is returned by the formatter when no free inode slot
	// remains.
	ErrNoInodes = errors.New("aufs: no free inodes")

	// ErrFault names the failure to copy data into a caller-supplied
	// buffer. No function in this package returns it; aufsfuse maps it to
	// EFAULT.
	ErrFault = errors.New("aufs: fault copying to caller buffer")

	// ErrNoMemory names the failure to allocate an inode object. No
	// function in this package returns it.
	ErrNoMemory = errors.New("aufs: cannot allocate inode object")

	// ErrNameTooLong is returned when add_child is asked to store a
	// name that cannot be truncated sensibly (empty name).
	ErrNameTooLong = errors.New("aufs: name too long")
)

// Package aufs implements AUFS, a minimal read-only filesystem stored in a
// single block-addressable container (a regular file or a block device).
//
// A container is produced by a Formatter from a host directory tree and
// later opened read-only through FS, which exposes the usual io/fs
// surface (Open, ReadDir, Stat) on top of the on-disk superblock, bitmaps,
// inode table and data blocks described in the package's layout constants.
//
// The filesystem is read-only once formatted: all mutation happens during
// formatting, and FS never writes to the backing BlockDevice.
package aufs

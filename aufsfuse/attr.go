package aufsfuse

import (
	"errors"
	"io"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/aufs-fs/aufs"
)

// fillAttr populates out from ino, the way loopbackNode.Lookup fills
// out.Attr from a syscall.Stat_t.
func fillAttr(ino *aufs.Inode, out *fuse.Attr) {
	out.Ino = uint64(ino.Ino)
	out.Uid = ino.UID
	out.Gid = ino.GID
	out.Mode = ino.Mode
	if ino.IsDir() {
		out.Size = 0
	} else {
		out.Size = uint64(ino.Length)
	}
	sec := uint64(ino.Ctime)
	out.Atime, out.Mtime, out.Ctime = sec, sec, sec
}

// isEOF reports whether err is (or wraps) io.EOF, which aufs's
// ReaderAt uses to signal "nothing more to read" rather than a fault.
func isEOF(err error) bool {
	return errors.Is(err, io.EOF)
}

// toErrno maps aufs's sentinel errors onto the syscall.Errno values
// go-fuse callbacks must return, the way loopbackNode's ToErrno maps
// host syscall errors.
func toErrno(err error) syscall.Errno {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, aufs.ErrNotFound):
		return syscall.ENOENT
	case errors.Is(err, aufs.ErrBadMode):
		return syscall.ENOTDIR
	case errors.Is(err, aufs.ErrNameTooLong):
		return syscall.ENAMETOOLONG
	case errors.Is(err, aufs.ErrNoSpace):
		return syscall.ENOSPC
	case errors.Is(err, aufs.ErrNoInodes):
		return syscall.ENOSPC
	case errors.Is(err, aufs.ErrFault):
		return syscall.EFAULT
	default:
		return syscall.EIO
	}
}

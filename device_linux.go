//go:build linux

package aufs

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// blockDeviceSize asks the kernel for the size of a block device via the
// BLKGETSIZE64 ioctl, in the spirit of diskfs-go-diskfs/disk/disk_unix.go's
// use of unix.Syscall/unix.IoctlGetInt for its own block-device ioctl
// (BLKRRPART); BLKGETSIZE64 takes a *uint64 out-argument rather than
// returning an int, so the raw syscall is used directly.
func blockDeviceSize(f *os.File) (int64, error) {
	var size uint64
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), unix.BLKGETSIZE64, uintptr(unsafe.Pointer(&size)))
	if errno != 0 {
		return 0, fmt.Errorf("%w: BLKGETSIZE64: %v", ErrIO, errno)
	}
	return int64(size), nil
}

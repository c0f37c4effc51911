//go:build !linux

package aufs

import (
	"fmt"
	"os"
)

// blockDeviceSize has no portable ioctl outside Linux in this package; a
// caller targeting a raw block device on another OS should use
// NewFileDevice with an explicit block count instead of OpenFileDevice.
func blockDeviceSize(f *os.File) (int64, error) {
	return 0, fmt.Errorf("%w: block device size detection unsupported on this platform, use NewFileDevice", ErrIO)
}

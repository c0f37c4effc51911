package aufs_test

import (
	"fmt"

	"github.com/aufs-fs/aufs"
)

// testDevice is an in-memory aufs.BlockDevice for black-box tests,
// mirroring the teacher's mock_test.go in-memory backing store.
type testDevice struct {
	blockSize int
	blocks    [][]byte
}

func newTestDevice(count uint32) *testDevice {
	d := &testDevice{blockSize: testBlockSize, blocks: make([][]byte, count)}
	for i := range d.blocks {
		d.blocks[i] = make([]byte, testBlockSize)
	}
	return d
}

func (d *testDevice) BlockSize() int      { return d.blockSize }
func (d *testDevice) BlocksCount() uint32 { return uint32(len(d.blocks)) }

func (d *testDevice) ReadBlock(n uint32) ([]byte, error) {
	if n >= uint32(len(d.blocks)) {
		return nil, fmt.Errorf("block %d out of range", n)
	}
	out := make([]byte, d.blockSize)
	copy(out, d.blocks[n])
	return out, nil
}

func (d *testDevice) WriteBlock(n uint32, data []byte) error {
	if n >= uint32(len(d.blocks)) {
		return fmt.Errorf("block %d out of range", n)
	}
	buf := make([]byte, d.blockSize)
	copy(buf, data)
	d.blocks[n] = buf
	return nil
}

var _ aufs.BlockDevice = (*testDevice)(nil)

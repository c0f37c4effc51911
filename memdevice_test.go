package aufs

import "fmt"

// memDevice is an in-memory BlockDevice for tests, in the spirit of the
// teacher's mock_test.go in-memory backing store.
type memDevice struct {
	blockSize int
	blocks    [][]byte
}

func newMemDevice(blockSize int, count uint32) *memDevice {
	d := &memDevice{blockSize: blockSize, blocks: make([][]byte, count)}
	for i := range d.blocks {
		d.blocks[i] = make([]byte, blockSize)
	}
	return d
}

func (d *memDevice) BlockSize() int      { return d.blockSize }
func (d *memDevice) BlocksCount() uint32 { return uint32(len(d.blocks)) }

func (d *memDevice) ReadBlock(n uint32) ([]byte, error) {
	if n >= uint32(len(d.blocks)) {
		return nil, fmt.Errorf("%w: block %d out of range", ErrIO, n)
	}
	out := make([]byte, d.blockSize)
	copy(out, d.blocks[n])
	return out, nil
}

func (d *memDevice) WriteBlock(n uint32, data []byte) error {
	if n >= uint32(len(d.blocks)) {
		return fmt.Errorf("%w: block %d out of range", ErrIO, n)
	}
	buf := make([]byte, d.blockSize)
	copy(buf, data)
	d.blocks[n] = buf
	return nil
}

package aufs

import (
	"encoding/binary"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Superblock is the decoded block-0 header (spec.md §3): geometry,
// magic, and the root inode number. Its shape mirrors the teacher's
// Superblock in super.go, trimmed to AUFS's much smaller on-disk header.
type Superblock struct {
	Magic        uint32
	BlockSize    uint32
	BlocksCount  uint32
	InodesCount  uint32
	Start        uint32 // first data block
	RootIno      uint32
}

// K returns the number of inode records packed per inode-table block.
func (sb *Superblock) K() uint32 {
	return sb.BlockSize / InodeSize
}

// MarshalBinary encodes only the superblock's SuperblockSize significant
// bytes; zero-padding the rest of block 0 is left to the BlockDevice's
// WriteBlock (FileDevice pads a short slice). UnmarshalSuperblock likewise
// reads only the first SuperblockSize bytes of a full block.
func (sb *Superblock) MarshalBinary() []byte {
	buf := make([]byte, SuperblockSize)
	binary.BigEndian.PutUint32(buf[0:4], sb.Magic)
	binary.BigEndian.PutUint32(buf[4:8], sb.BlockSize)
	binary.BigEndian.PutUint32(buf[8:12], sb.BlocksCount)
	binary.BigEndian.PutUint32(buf[12:16], sb.InodesCount)
	binary.BigEndian.PutUint32(buf[16:20], sb.Start)
	binary.BigEndian.PutUint32(buf[20:24], sb.RootIno)
	return buf
}

// UnmarshalSuperblock decodes a block-0 buffer (at least SuperblockSize
// bytes) into a Superblock, without validating it; ReadSuperblock performs
// the validation spec.md §4.5 requires at mount time.
func UnmarshalSuperblock(block []byte) (*Superblock, error) {
	if len(block) < SuperblockSize {
		return nil, fmt.Errorf("%w: superblock block too short (%d bytes)", ErrIO, len(block))
	}
	sb := &Superblock{
		Magic:       binary.BigEndian.Uint32(block[0:4]),
		BlockSize:   binary.BigEndian.Uint32(block[4:8]),
		BlocksCount: binary.BigEndian.Uint32(block[8:12]),
		InodesCount: binary.BigEndian.Uint32(block[12:16]),
		Start:       binary.BigEndian.Uint32(block[16:20]),
		RootIno:     binary.BigEndian.Uint32(block[20:24]),
	}
	return sb, nil
}

// ReadSuperblock reads and validates block 0 of dev: magic must match,
// and dev's block size must already agree with what the superblock
// records (mirrors original_source/kern/super.c's read_super_block,
// which logs the decoded fields before validating magic, then calls
// sb_set_blocksize and fails mount with BadBlockSize if the device
// rejects it).
func ReadSuperblock(dev BlockDevice) (*Superblock, error) {
	block, err := dev.ReadBlock(0)
	if err != nil {
		return nil, err
	}
	sb, err := UnmarshalSuperblock(block)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"magic":        fmt.Sprintf("0x%x", sb.Magic),
		"block_size":   sb.BlockSize,
		"blocks_count": sb.BlocksCount,
		"inodes_count": sb.InodesCount,
		"start":        sb.Start,
		"root_ino":     sb.RootIno,
	}).Debug("aufs: decoded superblock")

	if sb.Magic != Magic {
		return nil, fmt.Errorf("%w: got 0x%x want 0x%x", ErrBadMagic, sb.Magic, Magic)
	}
	if int(sb.BlockSize) != dev.BlockSize() {
		return nil, fmt.Errorf("%w: superblock wants %d, device gives %d", ErrBadBlockSize, sb.BlockSize, dev.BlockSize())
	}
	return sb, nil
}

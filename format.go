package aufs

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// Formatter implements C4 (spec.md §4.4): given a BlockDevice already
// sized to N blocks, lay out a fresh AUFS container from an in-memory
// stageNode tree. It is idempotent in the sense the spec requires:
// running it twice against the same device and tree produces the same
// bytes, since every allocation decision is a deterministic function of
// the tree and the bitmaps built from scratch each time.
//
// Mirrors the teacher's Writer (writer.go) at the architectural level —
// build an in-memory tree, then walk it once to emit the final image —
// but AUFS's fixed-size records and whole-extent allocation need none of
// SquashFS's metadata-block/fragment/compression bookkeeping.
type Formatter struct {
	blockSize     int
	blocksCount   uint32 // 0 means "use the whole device"
	inodesCount   uint32 // 0 means "compute the default formula"
	uid, gid      uint32
	ctime         int64 // 0 means "use sourceDateEpoch() at Format time"
	preserveTimes bool
	preservePerms bool
}

// NewFormatter creates a Formatter for containers using the given block
// size.
func NewFormatter(blockSize int, opts ...FormatOption) (*Formatter, error) {
	if blockSize <= 0 || blockSize%InodeSize != 0 {
		return nil, fmt.Errorf("%w: block size must be a positive multiple of %d", ErrBadBlockSize, InodeSize)
	}
	f := &Formatter{blockSize: blockSize}
	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, err
		}
	}
	return f, nil
}

type formatState struct {
	dev    BlockDevice
	sb     *Superblock
	blocks *Bitmap
	inodes *Bitmap
	ctime  int64
	f      *Formatter
}

// Format lays out tree as the container's contents on dev, per spec.md
// §4.4 steps 1-6.
func (f *Formatter) Format(dev BlockDevice, tree *stageNode) error {
	b := dev.BlockSize()
	n := dev.BlocksCount()
	if b != f.blockSize {
		return fmt.Errorf("%w: formatter built for %d, device reports %d", ErrBadBlockSize, f.blockSize, b)
	}
	if f.blocksCount != 0 {
		if f.blocksCount > n {
			return fmt.Errorf("%w: requested %d blocks, device only has %d", ErrNoSpace, f.blocksCount, n)
		}
		n = f.blocksCount
	}
	k := uint32(b / InodeSize)
	if k < 2 {
		return fmt.Errorf("%w: block size %d too small to hold any inodes", ErrBadBlockSize, b)
	}
	if n <= firstInodeTableBlock {
		return fmt.Errorf("%w: device too small (%d blocks)", ErrNoSpace, n)
	}

	inodesCount := f.inodesCount
	if inodesCount == 0 {
		inodesCount = ((n - firstInodeTableBlock) / (k - 1) - 1) * k
	}
	if inodesCount == 0 {
		return fmt.Errorf("%w: device too small to host any inodes", ErrNoSpace)
	}

	inodeTableBlocks := ceilDiv(inodesCount, k)
	start := firstInodeTableBlock + inodeTableBlocks

	bitLen := b * 8
	if uint32(bitLen) < n {
		return fmt.Errorf("%w: block size %d cannot bitmap %d blocks", ErrBadBlockSize, b, n)
	}

	blockBM := NewBitmap(make([]byte, b))
	blockBM.SetBits(0, int(start))
	blockBM.SetBits(int(n), bitLen)

	inodeBM := NewBitmap(make([]byte, b))
	inodeBM.SetBits(0, 1) // inode 0 permanently reserved
	inodeBM.SetBits(int(inodesCount), bitLen)

	ctime := f.ctime
	if ctime == 0 {
		ctime = sourceDateEpoch().Unix()
	}

	sb := &Superblock{
		Magic:       Magic,
		BlockSize:   uint32(b),
		BlocksCount: n,
		InodesCount: inodesCount,
		Start:       start,
		RootIno:     0,
	}

	st := &formatState{dev: dev, sb: sb, blocks: blockBM, inodes: inodeBM, ctime: ctime, f: f}

	if err := dev.WriteBlock(0, sb.MarshalBinary()); err != nil {
		return err
	}

	zero := make([]byte, b)
	for blk := uint32(firstInodeTableBlock); blk < start; blk++ {
		if err := dev.WriteBlock(blk, zero); err != nil {
			return err
		}
	}

	rootIno, err := st.writeNode(tree)
	if err != nil {
		return err
	}

	sb.RootIno = rootIno
	if err := dev.WriteBlock(0, sb.MarshalBinary()); err != nil {
		return err
	}
	if err := dev.WriteBlock(blockBitmapBlock, blockBM.Bytes()); err != nil {
		return err
	}
	if err := dev.WriteBlock(inodeBitmapBlock, inodeBM.Bytes()); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"blocks_count": n, "inodes_count": inodesCount, "start": start, "root_ino": rootIno,
	}).Info("aufs: formatted container")
	return nil
}

// writeNode formats node (recursively, children first) and returns its
// assigned inode number.
func (st *formatState) writeNode(node *stageNode) (uint32, error) {
	if node.isDir {
		return st.writeDir(node)
	}
	return st.writeFile(node)
}

func (st *formatState) writeFile(node *stageNode) (uint32, error) {
	needBlocks := int(ceilDiv(uint32(node.size), uint32(st.sb.BlockSize)))
	startBlock, err := st.allocBlocks(needBlocks)
	if err != nil {
		return 0, err
	}

	if node.open != nil && needBlocks > 0 {
		rc, oerr := node.open()
		if oerr != nil {
			return 0, oerr
		}
		defer rc.Close()
		buf := make([]byte, st.sb.BlockSize)
		for blk := uint32(0); blk < uint32(needBlocks); blk++ {
			nRead, rerr := io.ReadFull(rc, buf)
			if rerr != nil && rerr != io.ErrUnexpectedEOF && rerr != io.EOF {
				return 0, fmt.Errorf("%w: read %s: %v", ErrIO, node.name, rerr)
			}
			out := buf
			if nRead < len(buf) {
				out = make([]byte, st.sb.BlockSize)
				copy(out, buf[:nRead])
			}
			if werr := st.dev.WriteBlock(startBlock+blk, out); werr != nil {
				return 0, werr
			}
		}
	}

	ino, err := st.allocInode()
	if err != nil {
		return 0, err
	}
	rec := &Inode{
		Ino:    ino,
		Block:  startBlock,
		Blocks: uint32(needBlocks),
		Length: uint32(node.size),
		UID:    st.f.uid,
		GID:    st.f.gid,
		Mode:   st.modeFor(node, ModeReg|DefaultPerm),
		Ctime:  uint64(st.ctimeFor(node)),
	}
	if err := st.putInode(rec); err != nil {
		return 0, err
	}
	return ino, nil
}

func (st *formatState) writeDir(node *stageNode) (uint32, error) {
	childIno := make([]uint32, len(node.children))
	for i, c := range node.children {
		ino, err := st.writeNode(c)
		if err != nil {
			return 0, err
		}
		childIno[i] = ino
	}

	entries := uint32(len(node.children))
	e := entriesPerBlock(st.sb.BlockSize)
	needBlocks := int(ceilDiv(entries, e))
	if needBlocks == 0 {
		// Every directory, even an empty one, keeps a one-block extent
		// ready for add_child rather than a null extent that would need
		// reallocating on the first entry.
		needBlocks = 1
	}
	startBlock, err := st.allocBlocks(needBlocks)
	if err != nil {
		return 0, err
	}

	if needBlocks > 0 {
		buf := make([]byte, needBlocks*st.sb.BlockSize)
		for i, c := range node.children {
			name, nerr := truncateName(c.name)
			if nerr != nil {
				return 0, nerr
			}
			rec := encodeDirEntry(name, childIno[i])
			copy(buf[uint32(i)*DirEntrySize:], rec)
		}
		for blk := 0; blk < needBlocks; blk++ {
			off := blk * st.sb.BlockSize
			if err := st.dev.WriteBlock(startBlock+uint32(blk), buf[off:off+st.sb.BlockSize]); err != nil {
				return 0, err
			}
		}
	}

	ino, err := st.allocInode()
	if err != nil {
		return 0, err
	}
	rec := &Inode{
		Ino:    ino,
		Block:  startBlock,
		Blocks: uint32(needBlocks),
		Length: entries,
		UID:    st.f.uid,
		GID:    st.f.gid,
		Mode:   st.modeFor(node, ModeDir|DefaultPerm),
		Ctime:  uint64(st.ctimeFor(node)),
	}
	if err := st.putInode(rec); err != nil {
		return 0, err
	}
	return ino, nil
}

// modeFor returns node's on-disk mode word: its host permission bits
// (translated by fileModeToUnix) when the formatter was built
// WithPreserveHostPermissions and BuildTree captured one, otherwise
// fallback (ModeReg|DefaultPerm or ModeDir|DefaultPerm).
func (st *formatState) modeFor(node *stageNode, fallback uint32) uint32 {
	if !st.f.preservePerms || node.mode == 0 {
		return fallback
	}
	mode, err := fileModeToUnix(node.mode)
	if err != nil {
		return fallback
	}
	return mode
}

func (st *formatState) ctimeFor(node *stageNode) int64 {
	if st.f.preserveTimes && node.ctime != 0 {
		return node.ctime
	}
	return st.ctime
}

// truncateName enforces spec.md §4.4's "names are truncated to 27 bytes
// plus a terminating NUL if longer" rule.
func truncateName(name string) (string, error) {
	if len(name) == 0 {
		return "", fmt.Errorf("%w: empty name", ErrNameTooLong)
	}
	if len(name) > NameMaxLen {
		return name[:NameMaxLen], nil
	}
	return name, nil
}

func (st *formatState) allocBlocks(need int) (uint32, error) {
	if need == 0 {
		return 0, nil
	}
	i := st.blocks.FindClearRun(st.blocks.Len(), need)
	if i < 0 {
		return 0, ErrNoSpace
	}
	st.blocks.SetBits(i, i+need)
	return uint32(i), nil
}

func (st *formatState) allocInode() (uint32, error) {
	i := st.inodes.FindClearRun(st.inodes.Len(), 1)
	if i < 0 {
		return 0, ErrNoInodes
	}
	st.inodes.SetBits(i, i+1)
	return uint32(i), nil
}

func (st *formatState) putInode(rec *Inode) error {
	block, slot := inodeBlockSlot(st.sb, rec.Ino)
	data, err := st.dev.ReadBlock(block)
	if err != nil {
		return err
	}
	off := slot * InodeSize
	copy(data[off:off+InodeSize], encodeInode(rec))
	return st.dev.WriteBlock(block, data)
}

func ceilDiv(a, b uint32) uint32 {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}

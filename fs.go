package aufs

import (
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/sirupsen/logrus"
)

// FS is a mounted, read-only AUFS container exposed through io/fs.FS,
// the way the teacher's Superblock doubles as the filesystem root
// object. Open/ReadDir/Stat all resolve paths through repeated Lookup
// calls from the cached root inode, per spec.md §4.5's mount sequence.
type FS struct {
	dev  BlockDevice
	sb   *Superblock
	root *Inode
}

var (
	_ fs.FS        = (*FS)(nil)
	_ fs.StatFS    = (*FS)(nil)
	_ fs.ReadDirFS = (*FS)(nil)
)

// Mount validates dev's superblock and fetches the root inode, per
// spec.md §4.5. The returned FS retains no extra bitmap-backing buffers
// beyond the Superblock fields themselves — AUFS's reader never
// allocates, so it has no allocator state to keep alive for the
// lifetime of the mount the way the formatter does.
func Mount(dev BlockDevice) (*FS, error) {
	sb, err := ReadSuperblock(dev)
	if err != nil {
		return nil, err
	}
	fsys := &FS{dev: dev, sb: sb}

	root, err := fsys.InodeGet(sb.RootIno)
	if err != nil {
		return nil, err
	}
	if !root.IsDir() {
		return nil, fmt.Errorf("%w: root inode %d is not a directory", ErrBadMode, sb.RootIno)
	}
	fsys.root = root

	logrus.WithFields(logrus.Fields{
		"root_ino": sb.RootIno, "blocks_count": sb.BlocksCount, "inodes_count": sb.InodesCount,
	}).Debug("aufs: mounted")
	return fsys, nil
}

// resolve walks name's path components from the root, per io/fs's
// slash-separated, rooted-at-the-FS-root path convention.
func (fsys *FS) resolve(name string) (*Inode, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	cur := fsys.root
	if name == "." {
		return cur, nil
	}
	for _, part := range strings.Split(name, "/") {
		if !cur.IsDir() {
			return nil, &fs.PathError{Op: "open", Path: name, Err: ErrBadMode}
		}
		next, err := fsys.Lookup(cur, part)
		if err != nil {
			return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
		}
		cur = next
	}
	return cur, nil
}

// Open implements fs.FS.
func (fsys *FS) Open(name string) (fs.File, error) {
	ino, err := fsys.resolve(name)
	if err != nil {
		return nil, err
	}
	return fsys.openFile(ino, path.Base(name)), nil
}

// Stat implements fs.StatFS.
func (fsys *FS) Stat(name string) (fs.FileInfo, error) {
	ino, err := fsys.resolve(name)
	if err != nil {
		return nil, err
	}
	return &fileInfo{name: path.Base(name), ino: ino}, nil
}

// ReadDir implements fs.ReadDirFS.
func (fsys *FS) ReadDir(name string) ([]fs.DirEntry, error) {
	ino, err := fsys.resolve(name)
	if err != nil {
		return nil, err
	}
	if !ino.IsDir() {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: ErrBadMode}
	}
	var entries []fs.DirEntry
	walkErr := fsys.Iterate(ino, func(n string, childIno uint32) bool {
		child, gerr := fsys.InodeGet(childIno)
		if gerr != nil {
			err = gerr
			return false
		}
		entries = append(entries, &dirEntryInfo{name: n, ino: child})
		return true
	})
	if walkErr != nil {
		return nil, walkErr
	}
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// RootIno returns the root directory's inode number, as recorded in the
// superblock.
func (fsys *FS) RootIno() uint32 { return fsys.sb.RootIno }

// Superblock returns the mounted filesystem's decoded superblock.
func (fsys *FS) Superblock() *Superblock { return fsys.sb }

// Close releases the backing device, the put_super half of spec.md
// §4.6's mount/unmount pair. FS itself holds no allocator state to tear
// down; this exists so callers have one place to release the device
// regardless of which BlockDevice implementation backs it.
func (fsys *FS) Close() error {
	if c, ok := fsys.dev.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

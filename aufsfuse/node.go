// Package aufsfuse bridges a mounted aufs.FS onto the host VFS through
// go-fuse, the way hanwen-go-fuse's loopback/mem node types bridge a
// POSIX tree or an in-memory one. It maps spec.md §6's named host VFS
// dispatch points onto go-fuse's InodeEmbedder callbacks:
//
//	alloc_inode / destroy_inode -> Lookup (NewInode) / node GC
//	put_super                   -> (*aufs.FS).Close, called by cmd/mount.aufs after unmount
//	inode_lookup                -> Node.Lookup
//	inode_iterate                -> Node.Readdir
//	file_read                    -> Node.Read
package aufsfuse

import (
	"context"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/aufs-fs/aufs"
)

// Node is one mounted inode, embedding fs.Inode the way every
// InodeEmbedder in the examples does.
type Node struct {
	fs.Inode

	fsys *aufs.FS
	ino  *aufs.Inode
}

var (
	_ fs.NodeLookuper  = (*Node)(nil)
	_ fs.NodeReaddirer = (*Node)(nil)
	_ fs.NodeOpener    = (*Node)(nil)
	_ fs.NodeReader    = (*Node)(nil)
	_ fs.NodeGetattrer = (*Node)(nil)
)

// Root builds the root Node for fsys, to be passed to fs.Mount.
func Root(fsys *aufs.FS) fs.InodeEmbedder {
	rootIno, err := fsys.InodeGet(fsys.RootIno())
	if err != nil {
		// Mount already validated the root inode; this can only mean
		// the backing device changed under us.
		panic(err)
	}
	return &Node{fsys: fsys, ino: rootIno}
}

func stableAttr(ino *aufs.Inode) fs.StableAttr {
	mode := uint32(syscall.S_IFREG)
	if ino.IsDir() {
		mode = syscall.S_IFDIR
	}
	return fs.StableAttr{Mode: mode, Ino: uint64(ino.Ino)}
}

// Lookup implements inode_lookup (spec.md §4.6) through go-fuse's
// NodeLookuper, mirroring loopbackNode.Lookup's
// "resolve, then NewInode" shape.
func (n *Node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	child, err := n.fsys.Lookup(n.ino, name)
	if err != nil {
		return nil, toErrno(err)
	}
	fillAttr(child, &out.Attr)
	childNode := &Node{fsys: n.fsys, ino: child}
	return n.NewInode(ctx, childNode, stableAttr(child)), 0
}

// Readdir implements inode_iterate (spec.md §4.6).
func (n *Node) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	if !n.ino.IsDir() {
		return nil, syscall.ENOTDIR
	}
	var entries []fuse.DirEntry
	err := n.fsys.Iterate(n.ino, func(name string, ino uint32) bool {
		child, gerr := n.fsys.InodeGet(ino)
		if gerr != nil {
			return true // skip a single bad entry rather than aborting the listing
		}
		mode := uint32(fuse.S_IFREG)
		if child.IsDir() {
			mode = fuse.S_IFDIR
		}
		entries = append(entries, fuse.DirEntry{Name: name, Ino: uint64(ino), Mode: mode})
		return true
	})
	if err != nil {
		return nil, toErrno(err)
	}
	return fs.NewListDirStream(entries), 0
}

// Open implements the open half of file_read; AUFS files are read-only,
// so there is nothing to prepare beyond rejecting writes.
func (n *Node) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	if n.ino.IsDir() {
		return nil, 0, syscall.EISDIR
	}
	if flags&(syscall.O_WRONLY|syscall.O_RDWR) != 0 {
		return nil, 0, syscall.EROFS
	}
	return nil, fuse.FOPEN_KEEP_CACHE, 0
}

// Read implements file_read (spec.md §4.7): a single call may return a
// short read at a block boundary; go-fuse's Read contract, like the
// teacher's MemRegularFile.Read, loops on the caller's behalf via the
// kernel's page cache, so aufsfuse fills dest fully from fsys's
// io.ReaderAt-backed File in one call.
func (n *Node) Read(ctx context.Context, fh fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	if n.ino.IsDir() {
		return nil, syscall.EISDIR
	}
	nRead, rerr := n.fsys.NewReaderAt(n.ino).ReadAt(dest, off)
	if rerr != nil && !isEOF(rerr) {
		return nil, toErrno(rerr)
	}
	return fuse.ReadResultData(dest[:nRead]), 0
}

// Getattr implements the host's stat() path, exposing the inode
// attributes spec.md §4.5 says the reader never mutates.
func (n *Node) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	fillAttr(n.ino, &out.Attr)
	return 0
}

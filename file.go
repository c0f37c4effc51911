package aufs

import (
	"io"
	"io/fs"
	"path"
	"time"
)

// File adapts a regular-file inode to fs.File/io.ReaderAt, mirroring the
// teacher's File (file.go), but reading straight from the inode's
// contiguous block extent (Block..Block+Blocks-1) instead of following
// SquashFS's per-block compression/fragment table indirection.
type File struct {
	*io.SectionReader
	fsys *FS
	ino  *Inode
	name string
}

// FileDir adapts a directory inode to fs.ReadDirFile, mirroring the
// teacher's FileDir.
type FileDir struct {
	fsys *FS
	ino  *Inode
	name string
	pos  uint32
}

type fileInfo struct {
	ino  *Inode
	name string
}

var (
	_ fs.File        = (*File)(nil)
	_ io.ReaderAt    = (*File)(nil)
	_ fs.ReadDirFile = (*FileDir)(nil)
	_ fs.FileInfo    = (*fileInfo)(nil)
)

// openFile returns a fs.File for ino, named name for Stat purposes. A
// directory inode gets a FileDir (implementing ReadDir); a regular file
// gets a File backed by an io.SectionReader over the inode's extent.
func (fsys *FS) openFile(ino *Inode, name string) fs.File {
	if ino.IsDir() {
		return &FileDir{fsys: fsys, ino: ino, name: name}
	}
	sec := io.NewSectionReader(&inodeReaderAt{fsys: fsys, ino: ino}, 0, int64(ino.Length))
	return &File{SectionReader: sec, fsys: fsys, ino: ino, name: name}
}

// inodeReaderAt implements io.ReaderAt over a regular-file inode's
// contiguous block extent, the C7 "file read" operation (spec.md §4.5 /
// §6): reads never span more than the declared Length, and out-of-range
// offsets return io.EOF exactly like the teacher's Inode.ReadAt does for
// SquashFS's (non-contiguous) block list.
type inodeReaderAt struct {
	fsys *FS
	ino  *Inode
}

// NewReaderAt exposes the C7 file-read operation directly as an
// io.ReaderAt, for callers (such as the aufsfuse bridge) that want to
// read a known regular-file inode without going through a path lookup.
func (fsys *FS) NewReaderAt(ino *Inode) io.ReaderAt {
	return &inodeReaderAt{fsys: fsys, ino: ino}
}

// readOne is the C7 read() primitive verbatim (spec.md §4.7): pos >=
// length returns 0, io.EOF; otherwise it reads at most
// min(len(p), remaining_in_file, remaining_in_block) bytes from the one
// block covering pos, and no more — a read spanning a block boundary
// comes back short, and the caller (ReadAt below, or a direct caller
// wanting the exact on-disk granularity) loops.
func (fsys *FS) readOne(ino *Inode, p []byte, pos int64) (int, error) {
	if pos < 0 {
		return 0, fs.ErrInvalid
	}
	length := int64(ino.Length)
	if pos >= length {
		return 0, io.EOF
	}
	blockSize := int64(fsys.sb.BlockSize)
	blockIdx := pos / blockSize
	if blockIdx >= int64(ino.Blocks) {
		return 0, io.EOF
	}
	inBlock := pos % blockSize
	remainingInFile := length - pos
	remainingInBlock := blockSize - inBlock

	want := int64(len(p))
	if want > remainingInFile {
		want = remainingInFile
	}
	if want > remainingInBlock {
		want = remainingInBlock
	}

	data, err := fsys.dev.ReadBlock(ino.Block + uint32(blockIdx))
	if err != nil {
		return 0, err
	}
	n := copy(p[:want], data[inBlock:])
	return n, nil
}

// ReadAt loops readOne until p is full or the file ends, giving callers
// the full-buffer io.ReaderAt semantics Go code expects (io.ReadAll,
// io.SectionReader, and so on all assume a short read means an error).
func (r *inodeReaderAt) ReadAt(p []byte, off int64) (int, error) {
	n := 0
	for n < len(p) {
		c, err := r.fsys.readOne(r.ino, p[n:], off+int64(n))
		n += c
		if err != nil {
			return n, err
		}
		if c == 0 {
			return n, io.EOF
		}
	}
	return n, nil
}

// (File)

func (f *File) Stat() (fs.FileInfo, error) {
	return &fileInfo{name: path.Base(f.name), ino: f.ino}, nil
}

func (f *File) Sys() any { return f.ino }

func (f *File) Close() error { return nil }

// (FileDir)

func (d *FileDir) Read(p []byte) (int, error) { return 0, fs.ErrInvalid }

func (d *FileDir) Stat() (fs.FileInfo, error) {
	return &fileInfo{name: path.Base(d.name), ino: d.ino}, nil
}

func (d *FileDir) Sys() any { return d.ino }

func (d *FileDir) Close() error { return nil }

// ReadDir implements the C6 "directory iterate" operation through the
// fs.ReadDirFile surface, honoring n<=0 meaning "all remaining entries"
// and n>0 meaning "at most n, then io.EOF on the next call with none
// left", per io/fs's documented ReadDir contract.
func (d *FileDir) ReadDir(n int) ([]fs.DirEntry, error) {
	var res []fs.DirEntry
	for d.pos < d.ino.Length {
		ent, err := d.fsys.dirEntryAt(d.ino, d.pos)
		if err != nil {
			return res, err
		}
		d.pos++
		child, err := d.fsys.InodeGet(ent.ino)
		if err != nil {
			return res, err
		}
		res = append(res, &dirEntryInfo{name: ent.name, ino: child})
		if n > 0 && len(res) >= n {
			return res, nil
		}
	}
	if n > 0 && len(res) == 0 {
		return nil, io.EOF
	}
	return res, nil
}

// (fileInfo)

func (fi *fileInfo) Name() string { return fi.name }

func (fi *fileInfo) Size() int64 {
	if fi.ino.IsDir() {
		return 0
	}
	return int64(fi.ino.Length)
}

func (fi *fileInfo) Mode() fs.FileMode { return unixToFileMode(fi.ino.Mode) }

// ModTime returns the inode's single recorded timestamp (spec.md §4.5);
// AUFS keeps no separate access/modify/change times.
func (fi *fileInfo) ModTime() time.Time { return fi.ino.ModTime() }

func (fi *fileInfo) IsDir() bool { return fi.ino.IsDir() }

func (fi *fileInfo) Sys() any { return fi.ino }

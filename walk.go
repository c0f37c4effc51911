package aufs

import (
	"io"
	"io/fs"
	"os"
	"path"
	"strconv"
	"time"

	tm "gopkg.in/djherbis/times.v1"
)

// stageNode is one in-memory tree node awaiting formatting, built by
// BuildTree or, for an empty image, by EmptyRoot. This mirrors
// the teacher's writerInode (writer.go), trimmed to the two shapes AUFS
// supports plus a lazily-opened content source for files.
type stageNode struct {
	name     string
	isDir    bool
	children []*stageNode
	open     func() (io.ReadCloser, error) // nil for directories
	size     int64
	ctime    int64       // zero means "use the formatter's default"
	mode     fs.FileMode // zero means "use the formatter's default permission bits"
}

// BuildTree walks hostFS starting at root (fs.WalkDir-compatible,
// grounded on the teacher's Writer.Add(path, d, err) method, which is
// itself built to be passed straight to fs.WalkDir) and returns an
// in-memory stageNode tree ready for (*Formatter).Format.
//
// When f was built WithPreserveSourceTimes, hostRoot (the real
// filesystem path backing hostFS, empty if hostFS isn't rooted on disk)
// is used to read each entry's change time via gopkg.in/djherbis/
// times.v1, the way direktiv-vorteil and diskfs-go-diskfs read source
// timestamps when staging a fresh image. When f was built
// WithPreserveHostPermissions, each entry's host permission bits ride
// along too and are translated by fileModeToUnix at format time instead
// of the formatter's uniform default.
func (f *Formatter) BuildTree(hostFS fs.FS, root string, hostRoot string) (*stageNode, error) {
	var top *stageNode
	nodes := map[string]*stageNode{}

	err := fs.WalkDir(hostFS, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		n := &stageNode{name: path.Base(p), isDir: d.IsDir()}
		if f.preserveTimes && hostRoot != "" {
			if ts, terr := tm.Stat(path.Join(hostRoot, p)); terr == nil {
				if ts.HasChangeTime() {
					n.ctime = ts.ChangeTime().Unix()
				} else {
					n.ctime = ts.ModTime().Unix()
				}
			}
		}

		info, ierr := d.Info()
		if ierr != nil {
			return ierr
		}
		if f.preservePerms {
			n.mode = info.Mode()
		}

		if !d.IsDir() {
			n.size = info.Size()
			p := p // capture
			n.open = func() (io.ReadCloser, error) {
				file, oerr := hostFS.Open(p)
				if oerr != nil {
					return nil, oerr
				}
				if rc, ok := file.(io.ReadCloser); ok {
					return rc, nil
				}
				return struct {
					io.Reader
					io.Closer
				}{file, file}, nil
			}
		}

		nodes[p] = n
		if p == root {
			top = n
			return nil
		}
		parent := nodes[path.Dir(p)]
		parent.children = append(parent.children, n)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if top == nil {
		top = &stageNode{name: "", isDir: true}
	}
	return top, nil
}

// EmptyRoot returns a bare root directory with no children, for
// formatting an image with nothing in it (spec.md §8 scenario S1).
func EmptyRoot() *stageNode {
	return &stageNode{name: "", isDir: true}
}

// sourceDateEpoch returns the reproducible-build timestamp from
// SOURCE_DATE_EPOCH if set and valid, mirroring diskfs-go-diskfs's
// util/timestamp.GetTime(); otherwise it returns time.Now().
func sourceDateEpoch() time.Time {
	if v, ok := os.LookupEnv("SOURCE_DATE_EPOCH"); ok {
		if sec, err := strconv.ParseInt(v, 10, 64); err == nil {
			return time.Unix(sec, 0)
		}
	}
	return time.Now()
}

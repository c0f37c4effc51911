package aufs

import "io/fs"

// AUFS only ever stores two inode shapes on disk (spec.md §3); unlike the
// teacher's UnixToMode/ModeToUnix (mode.go), which round-trip the full
// Unix type bitfield (char/block devices, fifos, sockets, symlinks),
// these only handle ModeDir and ModeReg: fileModeToUnix rejects every
// other type, and unixToFileMode maps any other type bits to a plain
// permission-only mode, matching the fix for spec.md §9(a)/(b): there is
// no "other" type to fall through to.

// unixToFileMode converts an on-disk mode word into an fs.FileMode,
// following the teacher's UnixToMode field layout (permission bits plus
// a type bit translated to the fs.Mode* constant).
func unixToFileMode(mode uint32) fs.FileMode {
	res := fs.FileMode(mode & 0777)
	switch mode & ModeType {
	case ModeDir:
		res |= fs.ModeDir
	case ModeReg:
		// no extra bit; fs.FileMode's zero value already means regular
	}
	return res
}

// fileModeToUnix is ModeToUnix's inverse, restricted to the two shapes
// the formatter is allowed to write; anything else (symlink, device,
// socket, ...) returns ErrBadMode, on which the formatter's modeFor falls
// back to its default mode.
func fileModeToUnix(mode fs.FileMode) (uint32, error) {
	res := uint32(mode.Perm())
	switch {
	case mode.IsDir():
		res |= ModeDir
	case mode.IsRegular():
		res |= ModeReg
	default:
		return 0, ErrBadMode
	}
	return res, nil
}

package aufs

// FormatOption configures a Formatter, in the spirit of the teacher's
// WriterOption (writer.go) — small functional options over a handful of
// format-time parameters, rather than a wide constructor.
type FormatOption func(*Formatter) error

// WithInodesCount overrides the formatter's default inode-count formula
// (spec.md §4.4 step 1): I = ((N-3)/(K-1) - 1) * K.
func WithInodesCount(i uint32) FormatOption {
	return func(f *Formatter) error {
		f.inodesCount = i
		return nil
	}
}

// WithBlocksCount limits the number of blocks the formatter treats as
// usable, to fewer than the backing BlockDevice actually reports —
// mirroring original_source/user/format.cpp's Formatter(cache,
// blocks_count) constructor, which formats only a prefix of a larger
// device. Zero (the default) means "use the whole device."
func WithBlocksCount(n uint32) FormatOption {
	return func(f *Formatter) error {
		f.blocksCount = n
		return nil
	}
}

// WithOwner sets the uid/gid stamped onto every inode the formatter
// creates (spec.md §4.4 "Stamping"); defaults to 0/0 if unset.
func WithOwner(uid, gid uint32) FormatOption {
	return func(f *Formatter) error {
		f.uid, f.gid = uid, gid
		return nil
	}
}

// WithCtime overrides the wall-clock ctime the formatter stamps onto
// every inode. Without it, Format uses SOURCE_DATE_EPOCH if set and valid
// (sourceDateEpoch, see walk.go), otherwise time.Now(); tests use this to
// pin it.
func WithCtime(sec int64) FormatOption {
	return func(f *Formatter) error {
		f.ctime = sec
		return nil
	}
}

// WithPreserveSourceTimes makes BuildTree stamp each inode with its host
// file's ctime (via gopkg.in/djherbis/times.v1) instead of the
// formatter's uniform ctime. spec.md §4.4 only requires "current wall
// time"; this is a supplemental mode for callers staging a host source
// directory (original_source/user/mkfs.cpp preserved the source tree's
// timestamps when populating a fresh image). cmd/mkfsimg does not enable
// it.
func WithPreserveSourceTimes(v bool) FormatOption {
	return func(f *Formatter) error {
		f.preserveTimes = v
		return nil
	}
}

// WithPreserveHostPermissions makes BuildTree stamp each inode with its
// host file's permission bits (translated via fileModeToUnix) instead of
// the formatter's uniform DefaultPerm. spec.md §4.4's "Stamping" step
// only requires a fixed default; this is a supplemental mode for callers
// staging a host source directory, the same spirit as
// WithPreserveSourceTimes. cmd/mkfsimg does not enable it.
func WithPreserveHostPermissions(v bool) FormatOption {
	return func(f *Formatter) error {
		f.preservePerms = v
		return nil
	}
}

// Command mkfs.img creates and formats a fresh AUFS image file, per
// spec.md §4.8's two-binary split (grounded on original_source/user/
// mkfs.cpp, which builds a fresh image separately from formatting an
// existing device): mkfs.img <image> [<source_directory>].
//
// If a source directory is given, its contents become the root
// directory; otherwise the root is created empty (spec.md §8 S1).
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/aufs-fs/aufs"
)

func main() {
	var blockBits int
	var blocksCount uint32
	var verbose bool

	fs := pflag.NewFlagSet("mkfs.img", pflag.ContinueOnError)
	fs.IntVarP(&blockBits, "block_bits", "b", 12, "block size as a power of two (default 4096 bytes)")
	fs.Uint32Var(&blocksCount, "blocks_count", 1024, "number of blocks in the image")
	fs.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	args := fs.Args()
	if len(args) < 1 || len(args) > 2 {
		fmt.Fprintln(os.Stderr, "usage: mkfs.img [flags] <image> [<source_directory>]")
		fs.PrintDefaults()
		os.Exit(1)
	}
	imagePath := args[0]

	blockSize := 1 << uint(blockBits)

	f, err := os.OpenFile(imagePath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		logrus.WithError(err).Fatal("aufs: create image")
	}
	defer f.Close()

	if err := f.Truncate(int64(blockSize) * int64(blocksCount)); err != nil {
		logrus.WithError(err).Fatal("aufs: size image")
	}

	dev := aufs.NewFileDevice(f, blockSize, blocksCount)

	formatter, err := aufs.NewFormatter(blockSize)
	if err != nil {
		logrus.WithError(err).Fatal("aufs: build formatter")
	}

	var tree = aufs.EmptyRoot()
	if len(args) == 2 {
		srcDir := args[1]
		hostFS := os.DirFS(srcDir)
		tree, err = formatter.BuildTree(hostFS, ".", srcDir)
		if err != nil {
			logrus.WithError(err).Fatal("aufs: walk source directory")
		}
	}

	if err := formatter.Format(dev, tree); err != nil {
		logrus.WithError(err).Fatal("aufs: format")
	}

	if err := f.Sync(); err != nil {
		logrus.WithError(err).Fatal("aufs: sync image")
	}

	logrus.WithFields(logrus.Fields{"image": imagePath, "block_size": blockSize, "blocks_count": blocksCount}).
		Info("aufs: image formatted")
}

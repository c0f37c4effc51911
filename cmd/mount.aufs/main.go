// Command mount.aufs mounts an AUFS container onto a host directory via
// FUSE, grounded on hanwen-go-fuse/fs.Mount (the standard go-fuse
// convenience wrapper around NewNodeFS + fuse.NewServer).
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	gofs "github.com/hanwen/go-fuse/v2/fs"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/aufs-fs/aufs"
	"github.com/aufs-fs/aufs/aufsfuse"
)

func main() {
	var blockBits int
	var verbose bool

	fs := pflag.NewFlagSet("mount.aufs", pflag.ContinueOnError)
	fs.IntVarP(&blockBits, "block_bits", "b", 12, "block size as a power of two (default 4096 bytes)")
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
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: mount.aufs [flags] <image-or-device> <mountpoint>")
		fs.PrintDefaults()
		os.Exit(1)
	}
	imagePath, mountPoint := args[0], args[1]
	blockSize := 1 << uint(blockBits)

	dev, err := aufs.OpenFileDevice(imagePath, blockSize, false)
	if err != nil {
		logrus.WithError(err).Fatal("aufs: open backing device")
	}

	fsys, err := aufs.Mount(dev)
	if err != nil {
		dev.Close()
		logrus.WithError(err).Fatal("aufs: mount")
	}

	root := aufsfuse.Root(fsys)
	server, err := gofs.Mount(mountPoint, root, &gofs.Options{})
	if err != nil {
		dev.Close()
		logrus.WithError(err).Fatal("aufs: fuse mount")
	}

	logrus.WithFields(logrus.Fields{"image": imagePath, "mountpoint": mountPoint}).Info("aufs: mounted")

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc

	if err := server.Unmount(); err != nil {
		logrus.WithError(err).Error("aufs: unmount")
	}
	if err := fsys.Close(); err != nil {
		logrus.WithError(err).Error("aufs: close backing device")
	}
}

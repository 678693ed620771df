//go:build !windows

package scanner

import (
	"os"
	"syscall"
)

// fileIdentity is the device and inode behind a file, when the platform exposes them.
type fileIdentity struct {
	dev uint64
	ino uint64
	ok  bool // true if platform stat was available
}

// identityOf extracts device and inode from file info.
func identityOf(info os.FileInfo) fileIdentity {
	if info == nil {
		return fileIdentity{}
	}
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return fileIdentity{}
	}
	return fileIdentity{
		dev: uint64(stat.Dev),
		ino: stat.Ino,
		ok:  true,
	}
}

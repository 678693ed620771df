//go:build windows

package scanner

import "os"

// fileIdentity is the device and inode behind a file, when the platform exposes them.
type fileIdentity struct {
	dev uint64
	ino uint64
	ok  bool
}

// identityOf on Windows reports no identity; directory cycles fall back to
// resolved paths and hardlinks are not flagged.
func identityOf(os.FileInfo) fileIdentity {
	return fileIdentity{}
}

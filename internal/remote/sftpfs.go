package remote

import (
	"errors"
	"os"
	"syscall"
	"time"

	"github.com/pkg/sftp"
	"github.com/spf13/afero"
)

// errReadOnly is returned by every mutating call. Scans never write to the host.
var errReadOnly = errors.New("read-only filesystem")

var errIsDirectory = errors.New("is a directory")

// sftpFs is a read-only afero view of an SFTP session. Besides the afero.Fs
// methods it offers Lstat and RealPath, which the scanner uses for symlinks
// and cycle detection.
type sftpFs struct {
	client *sftp.Client
}

var (
	_ afero.Fs      = (*sftpFs)(nil)
	_ afero.Lstater = (*sftpFs)(nil)
)

func newSFTPFs(client *sftp.Client) *sftpFs {
	return &sftpFs{client: client}
}

func (f *sftpFs) Name() string { return "sftpFs" }

func (f *sftpFs) RealPath(p string) (string, error) {
	return f.client.RealPath(p)
}

func (f *sftpFs) Stat(name string) (os.FileInfo, error) {
	info, err := f.client.Stat(name)
	if err != nil {
		return nil, &os.PathError{Op: "stat", Path: name, Err: err}
	}
	return info, nil
}

func (f *sftpFs) LstatIfPossible(name string) (os.FileInfo, bool, error) {
	info, err := f.client.Lstat(name)
	if err != nil {
		return nil, true, &os.PathError{Op: "lstat", Path: name, Err: err}
	}
	return info, true, nil
}

// Open returns a directory handle for directories and a read-only file otherwise.
func (f *sftpFs) Open(name string) (afero.File, error) {
	info, err := f.Stat(name)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return &remoteDir{client: f.client, name: name, info: info}, nil
	}
	file, err := f.client.Open(name)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: name, Err: err}
	}
	return &remoteFile{File: file}, nil
}

func (f *sftpFs) OpenFile(name string, flag int, _ os.FileMode) (afero.File, error) {
	if flag&(os.O_WRONLY|os.O_RDWR|os.O_APPEND|os.O_CREATE|os.O_TRUNC) != 0 {
		return nil, &os.PathError{Op: "open", Path: name, Err: errReadOnly}
	}
	return f.Open(name)
}

func (f *sftpFs) Create(name string) (afero.File, error) {
	return nil, &os.PathError{Op: "create", Path: name, Err: errReadOnly}
}

func (f *sftpFs) Mkdir(name string, _ os.FileMode) error {
	return &os.PathError{Op: "mkdir", Path: name, Err: errReadOnly}
}

func (f *sftpFs) MkdirAll(p string, _ os.FileMode) error {
	return &os.PathError{Op: "mkdir", Path: p, Err: errReadOnly}
}

func (f *sftpFs) Remove(name string) error {
	return &os.PathError{Op: "remove", Path: name, Err: errReadOnly}
}

func (f *sftpFs) RemoveAll(p string) error {
	return &os.PathError{Op: "remove", Path: p, Err: errReadOnly}
}

func (f *sftpFs) Rename(oldname, newname string) error {
	return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: errReadOnly}
}

func (f *sftpFs) Chmod(name string, _ os.FileMode) error {
	return &os.PathError{Op: "chmod", Path: name, Err: errReadOnly}
}

func (f *sftpFs) Chown(name string, _, _ int) error {
	return &os.PathError{Op: "chown", Path: name, Err: errReadOnly}
}

func (f *sftpFs) Chtimes(name string, _, _ time.Time) error {
	return &os.PathError{Op: "chtimes", Path: name, Err: errReadOnly}
}

// remoteFile is a regular file opened for reading.
type remoteFile struct {
	*sftp.File
}

func (f *remoteFile) Readdir(int) ([]os.FileInfo, error) {
	return nil, &os.PathError{Op: "readdir", Path: f.Name(), Err: syscall.ENOTDIR}
}

func (f *remoteFile) Readdirnames(int) ([]string, error) {
	return nil, &os.PathError{Op: "readdir", Path: f.Name(), Err: syscall.ENOTDIR}
}

func (f *remoteFile) Sync() error { return nil }

func (f *remoteFile) Write([]byte) (int, error) {
	return 0, &os.PathError{Op: "write", Path: f.Name(), Err: errReadOnly}
}

func (f *remoteFile) WriteAt([]byte, int64) (int, error) {
	return 0, &os.PathError{Op: "write", Path: f.Name(), Err: errReadOnly}
}

func (f *remoteFile) WriteString(string) (int, error) {
	return 0, &os.PathError{Op: "write", Path: f.Name(), Err: errReadOnly}
}

func (f *remoteFile) Truncate(int64) error {
	return &os.PathError{Op: "truncate", Path: f.Name(), Err: errReadOnly}
}

// remoteDir is a directory handle backed by SFTP READDIR. Nothing is held
// open on the server between calls.
type remoteDir struct {
	client *sftp.Client
	name   string
	info   os.FileInfo
}

func (d *remoteDir) Name() string               { return d.name }
func (d *remoteDir) Stat() (os.FileInfo, error) { return d.info, nil }
func (d *remoteDir) Close() error               { return nil }
func (d *remoteDir) Sync() error                { return nil }

// Readdir lists the directory. Entries keep their lstat modes, so symlinks
// are reported as links.
func (d *remoteDir) Readdir(count int) ([]os.FileInfo, error) {
	entries, err := d.client.ReadDir(d.name)
	if err != nil {
		return nil, &os.PathError{Op: "readdir", Path: d.name, Err: err}
	}
	if count > 0 && len(entries) > count {
		entries = entries[:count]
	}
	return entries, nil
}

func (d *remoteDir) Readdirnames(count int) ([]string, error) {
	entries, err := d.Readdir(count)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names, nil
}

func (d *remoteDir) Read([]byte) (int, error) {
	return 0, &os.PathError{Op: "read", Path: d.name, Err: errIsDirectory}
}

func (d *remoteDir) ReadAt([]byte, int64) (int, error) {
	return 0, &os.PathError{Op: "read", Path: d.name, Err: errIsDirectory}
}

func (d *remoteDir) Seek(int64, int) (int64, error) {
	return 0, &os.PathError{Op: "seek", Path: d.name, Err: errIsDirectory}
}

func (d *remoteDir) Write([]byte) (int, error) {
	return 0, &os.PathError{Op: "write", Path: d.name, Err: errReadOnly}
}

func (d *remoteDir) WriteAt([]byte, int64) (int, error) {
	return 0, &os.PathError{Op: "write", Path: d.name, Err: errReadOnly}
}

func (d *remoteDir) WriteString(string) (int, error) {
	return 0, &os.PathError{Op: "write", Path: d.name, Err: errReadOnly}
}

func (d *remoteDir) Truncate(int64) error {
	return &os.PathError{Op: "truncate", Path: d.name, Err: errReadOnly}
}

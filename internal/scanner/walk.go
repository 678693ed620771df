package scanner

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// fileJob is a regular file waiting to be digested. seq is its position in
// traversal order and decides where it lands in the report.
type fileJob struct {
	seq  int
	path string
	info os.FileInfo
}

// realPather is implemented by filesystems that can canonicalize paths,
// such as the SFTP filesystem.
type realPather interface {
	RealPath(string) (string, error)
}

// walker lists directories from an explicit stack. It runs on one goroutine,
// so its own state needs no locking.
type walker struct {
	fs       afero.Fs
	local    bool
	opts     ScanOptions
	root     string
	exclude  *excludeMatcher
	stats    *counters
	diag     func(seq int, path string, err error)
	visited  map[string]struct{}
	rootReal string
	seq      int
}

func (w *walker) join(dir, name string) string {
	if w.local {
		return filepath.Join(dir, name)
	}
	return path.Join(dir, name)
}

func (w *walker) rel(p string) string {
	if w.local {
		if r, err := filepath.Rel(w.root, p); err == nil {
			return filepath.ToSlash(r)
		}
		return filepath.ToSlash(p)
	}
	return strings.TrimPrefix(strings.TrimPrefix(p, w.root), "/")
}

func (w *walker) next() int {
	w.seq++
	return w.seq
}

// resolve returns the canonical form of p, or false if the filesystem cannot say.
func (w *walker) resolve(p string) (string, bool) {
	if rp, ok := w.fs.(realPather); ok {
		if resolved, err := rp.RealPath(p); err == nil {
			return path.Clean(resolved), true
		}
	}
	if w.local {
		if resolved, err := filepath.EvalSymlinks(p); err == nil {
			return resolved, true
		}
	}
	return "", false
}

// within reports whether target lies inside the resolved scan root.
func (w *walker) within(target string) bool {
	if w.rootReal == "" {
		return false
	}
	if w.local {
		rel, err := filepath.Rel(w.rootReal, target)
		if err != nil {
			return false
		}
		return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
	}
	prefix := strings.TrimSuffix(w.rootReal, "/") + "/"
	return target == w.rootReal || strings.HasPrefix(target, prefix)
}

// dirKey identifies a directory for cycle detection.
func (w *walker) dirKey(p string, info os.FileInfo) string {
	if id := identityOf(info); id.ok {
		return fmt.Sprintf("id:%d:%d", id.dev, id.ino)
	}
	if resolved, ok := w.resolve(p); ok {
		return "path:" + resolved
	}
	return "path:" + p
}

// walk visits every directory reachable from root, children in name order,
// and calls emit for each regular file. It stops at the first emit error
// or when ctx is done.
func (w *walker) walk(ctx context.Context, rootInfo os.FileInfo, emit func(fileJob) error) error {
	w.visited = map[string]struct{}{w.dirKey(w.root, rootInfo): {}}
	w.rootReal, _ = w.resolve(w.root)
	stack := []string{w.root}
	log := w.opts.logger()

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		w.stats.currentPath.Store(dir)

		entries, err := afero.ReadDir(w.fs, dir)
		if err != nil {
			w.diag(w.next(), dir, err)
			continue
		}
		w.stats.dirsScanned.Add(1)
		log.WithField("dir", dir).WithField("entries", len(entries)).Debug("listed directory")

		var subdirs []string
		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				return err
			}

			name := entry.Name()
			if !w.opts.ShowHidden && isHidden(name) {
				continue
			}
			full := w.join(dir, name)
			if w.exclude.match(w.rel(full)) {
				log.WithField("path", full).Debug("excluded")
				continue
			}

			info := entry
			if entry.Mode()&os.ModeSymlink != 0 {
				if !w.opts.FollowSymlinks {
					continue
				}
				target, err := w.fs.Stat(full)
				if err != nil {
					w.diag(w.next(), full, fmt.Errorf("resolving symlink: %w", err))
					continue
				}
				// Linked directories inside the root are walked under their own name.
				if target.IsDir() {
					if resolved, ok := w.resolve(full); ok && w.within(resolved) {
						continue
					}
				}
				info = target
			}

			switch {
			case info.IsDir():
				key := w.dirKey(full, info)
				if _, seen := w.visited[key]; seen {
					log.WithField("path", full).Debug("directory already visited")
					continue
				}
				w.visited[key] = struct{}{}
				subdirs = append(subdirs, full)
			case info.Mode().IsRegular():
				if info.Size() < w.opts.MinSize {
					continue
				}
				w.stats.filesFound.Add(1)
				if err := emit(fileJob{seq: w.next(), path: full, info: info}); err != nil {
					return err
				}
			default:
				// Devices, sockets and pipes: reading them can block forever.
			}
		}

		// Push in reverse so the smallest name is popped first.
		for i := len(subdirs) - 1; i >= 0; i-- {
			stack = append(stack, subdirs[i])
		}
	}
	return nil
}

// uniqueSizeFilter drops jobs whose size no other job shares.
func uniqueSizeFilter(jobs []fileJob) (kept []fileJob, dropped int) {
	counts := make(map[int64]int, len(jobs))
	for _, j := range jobs {
		counts[j.info.Size()]++
	}
	kept = jobs[:0:0]
	for _, j := range jobs {
		if counts[j.info.Size()] > 1 {
			kept = append(kept, j)
		} else {
			dropped++
		}
	}
	return kept, dropped
}

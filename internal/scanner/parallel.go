package scanner

import (
	"context"
	"errors"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/sadopc/godupe/internal/digest"
	"github.com/sadopc/godupe/internal/model"
	"github.com/spf13/afero"
)

// ParallelScanner implements Scanner with a single walker feeding a bounded
// pool of digest workers.
type ParallelScanner struct {
	fs    afero.Fs
	local bool
}

// NewParallelScanner creates a scanner over the local filesystem.
func NewParallelScanner() *ParallelScanner {
	return &ParallelScanner{fs: afero.NewOsFs(), local: true}
}

// NewFsScanner creates a scanner over fs. Paths are treated as slash separated.
func NewFsScanner(fs afero.Fs) *ParallelScanner {
	return &ParallelScanner{fs: fs}
}

func (s *ParallelScanner) rootPath(root string) (string, error) {
	if s.local {
		return filepath.Abs(root)
	}
	root = strings.ReplaceAll(strings.TrimSpace(root), "\\", "/")
	if root == "" {
		return ".", nil
	}
	return path.Clean(root), nil
}

func (s *ParallelScanner) Scan(ctx context.Context, root string, opts ScanOptions, progress chan<- Progress) (*model.Report, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	alg, _ := digest.LookupAlgorithm(opts.Algorithm)
	digester := &digest.Digester{Algorithm: alg, BufferSize: opts.BufferSize}
	log := opts.logger()

	rootPath, err := s.rootPath(root)
	if err != nil {
		return nil, &InvalidRootError{Path: root, Err: err}
	}

	// Stat (not Lstat) so a symlinked root like /tmp -> /private/tmp works.
	info, err := s.fs.Stat(rootPath)
	if err != nil {
		return nil, &InvalidRootError{Path: rootPath, Err: err}
	}
	if !info.IsDir() {
		return nil, &InvalidRootError{Path: rootPath, Err: ErrNotDirectory}
	}
	if err := ctx.Err(); err != nil {
		return nil, &CancellationError{Err: err}
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}

	stats := &counters{start: time.Now()}
	stats.currentPath.Store(rootPath)

	var progressWg sync.WaitGroup
	var stopOnce sync.Once
	progressDone := make(chan struct{})
	stopProgress := func() {
		stopOnce.Do(func() {
			close(progressDone)
			progressWg.Wait()
		})
	}
	if progress != nil {
		progressWg.Add(1)
		go func() {
			defer progressWg.Done()
			reportProgress(stats, progress, progressDone)
		}()
	}
	defer stopProgress()

	groups := newGrouper()
	recordFailure := func(seq int, p string, err error) {
		stats.errors.Add(1)
		groups.fail(seq, p, err)
		log.WithField("path", p).WithError(err).Debug("recorded diagnostic")
	}

	jobs := make(chan fileJob, concurrency*2)
	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				if ctx.Err() != nil {
					continue
				}
				sum, err := digester.SumFile(ctx, s.fs, job.path)
				if err != nil {
					if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
						continue
					}
					recordFailure(job.seq, job.path, err)
					continue
				}
				groups.add(job, sum)
				stats.filesHashed.Add(1)
				stats.bytesHashed.Add(job.info.Size())
			}
		}()
	}

	w := &walker{
		fs:      s.fs,
		local:   s.local,
		opts:    opts,
		root:    rootPath,
		exclude: newExcludeMatcher(opts.ExcludePatterns),
		stats:   stats,
		diag:    recordFailure,
	}

	send := func(job fileJob) error {
		select {
		case jobs <- job:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	var walkErr error
	if opts.SizePrefilter {
		var pending []fileJob
		walkErr = w.walk(ctx, info, func(job fileJob) error {
			pending = append(pending, job)
			return nil
		})
		if walkErr == nil {
			kept, dropped := uniqueSizeFilter(pending)
			log.WithField("skipped", dropped).Debug("skipped files with unique sizes")
			for _, job := range kept {
				if walkErr = send(job); walkErr != nil {
					break
				}
			}
		}
	} else {
		walkErr = w.walk(ctx, info, send)
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, &CancellationError{Err: err}
	}
	if walkErr != nil {
		return nil, walkErr
	}

	report := &model.Report{
		Root:         rootPath,
		Algorithm:    alg.Name,
		Groups:       groups.duplicates(),
		Diagnostics:  groups.diagnostics(),
		FilesScanned: stats.filesHashed.Load(),
		BytesScanned: stats.bytesHashed.Load(),
		StartedAt:    stats.start,
		Duration:     time.Since(stats.start),
	}
	log.WithField("root", rootPath).
		WithField("groups", len(report.Groups)).
		WithField("diagnostics", len(report.Diagnostics)).
		Debug("scan finished")

	// The ticker must be stopped first so the final snapshot is the last one sent.
	stopProgress()
	if progress != nil {
		select {
		case progress <- stats.snapshot(true):
		default:
		}
	}
	return report, nil
}

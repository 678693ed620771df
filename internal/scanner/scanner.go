package scanner

import (
	"context"
	"errors"
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/sadopc/godupe/internal/digest"
	"github.com/sadopc/godupe/internal/logging"
	"github.com/sadopc/godupe/internal/model"
	"github.com/sirupsen/logrus"
)

// ScanOptions configures the scanner behavior.
type ScanOptions struct {
	// FollowSymlinks digests link targets and descends into linked directories (default: false)
	FollowSymlinks bool
	// Algorithm names the digest algorithm (default: md5)
	Algorithm string
	// Concurrency is the number of digest workers (default 1, 0 = GOMAXPROCS)
	Concurrency int
	// BufferSize is the read chunk size per file (0 = digest.DefaultBufferSize)
	BufferSize int
	// ShowHidden includes dot files and directories (default: true)
	ShowHidden bool
	// ExcludePatterns are doublestar globs matched against the root-relative
	// slash path and the base name. Matching directories are pruned.
	ExcludePatterns []string
	// MinSize skips regular files smaller than this many bytes.
	MinSize int64
	// SizePrefilter skips digesting files whose size is unique in the tree.
	SizePrefilter bool
	// Logger receives debug output. Nil discards.
	Logger *logrus.Entry
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() ScanOptions {
	return ScanOptions{
		FollowSymlinks:  false,
		Algorithm:       digest.DefaultAlgorithm,
		Concurrency:     1,
		BufferSize:      digest.DefaultBufferSize,
		ShowHidden:      true,
		ExcludePatterns: []string{},
	}
}

// Validate reports option values a scan cannot run with.
func (o ScanOptions) Validate() error {
	if o.Concurrency < 0 {
		return fmt.Errorf("concurrency must be >= 0, got %d", o.Concurrency)
	}
	if o.BufferSize < 0 || o.BufferSize > digest.MaxBufferSize {
		return fmt.Errorf("buffer size must be between 0 and %d, got %d", digest.MaxBufferSize, o.BufferSize)
	}
	if o.MinSize < 0 {
		return fmt.Errorf("min size must be >= 0, got %d", o.MinSize)
	}
	if _, err := digest.LookupAlgorithm(o.Algorithm); err != nil {
		return err
	}
	for _, p := range o.ExcludePatterns {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid exclude pattern %q", p)
		}
	}
	return nil
}

func (o ScanOptions) logger() *logrus.Entry {
	if o.Logger != nil {
		return o.Logger
	}
	return logging.Discard()
}

// Scanner is the interface for duplicate scanning.
type Scanner interface {
	// Scan walks root and returns the duplicate report.
	// Progress updates are sent on the progress channel when it is non-nil.
	Scan(ctx context.Context, root string, opts ScanOptions, progress chan<- Progress) (*model.Report, error)
}

// ScanResult wraps the result of a scan operation.
type ScanResult struct {
	Report *model.Report
	Err    error
}

// ErrNotDirectory is wrapped by InvalidRootError when the root is a file.
var ErrNotDirectory = errors.New("not a directory")

// InvalidRootError means the scan root is missing or not a directory.
// No report is produced.
type InvalidRootError struct {
	Path string
	Err  error
}

func (e *InvalidRootError) Error() string {
	return fmt.Sprintf("invalid scan root %s: %v", e.Path, e.Err)
}

func (e *InvalidRootError) Unwrap() error { return e.Err }

// CancellationError is returned when the context ends before the scan completes.
// Partial results are discarded.
type CancellationError struct {
	Err error
}

func (e *CancellationError) Error() string {
	return "scan canceled: " + e.Err.Error()
}

func (e *CancellationError) Unwrap() error { return e.Err }

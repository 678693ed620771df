package scanner

import (
	"sync/atomic"
	"time"
)

// Progress reports scanning progress.
type Progress struct {
	// CurrentPath is the directory most recently listed.
	CurrentPath string
	// FilesFound counts regular files queued for digesting.
	FilesFound int64
	// DirsScanned is the total directories listed so far.
	DirsScanned int64
	// FilesHashed counts files digested successfully.
	FilesHashed int64
	// BytesHashed is the total size of digested files.
	BytesHashed int64
	// Errors is the count of diagnostics recorded.
	Errors int64
	// Done indicates scanning is complete.
	Done bool
	// StartTime is when the scan began.
	StartTime time.Time
	// Duration is elapsed time.
	Duration time.Duration
}

// FilesPerSecond returns the digest rate.
func (p Progress) FilesPerSecond() float64 {
	if p.Duration.Seconds() == 0 {
		return 0
	}
	return float64(p.FilesHashed) / p.Duration.Seconds()
}

// Fraction returns the share of found files already digested, in [0,1].
func (p Progress) Fraction() float64 {
	if p.FilesFound == 0 {
		return 0
	}
	f := float64(p.FilesHashed) / float64(p.FilesFound)
	if f > 1 {
		return 1
	}
	return f
}

// counters is the shared atomic state behind Progress snapshots.
type counters struct {
	filesFound  atomic.Int64
	dirsScanned atomic.Int64
	filesHashed atomic.Int64
	bytesHashed atomic.Int64
	errors      atomic.Int64
	currentPath atomic.Value
	start       time.Time
}

func (c *counters) snapshot(done bool) Progress {
	cur, _ := c.currentPath.Load().(string)
	return Progress{
		CurrentPath: cur,
		FilesFound:  c.filesFound.Load(),
		DirsScanned: c.dirsScanned.Load(),
		FilesHashed: c.filesHashed.Load(),
		BytesHashed: c.bytesHashed.Load(),
		Errors:      c.errors.Load(),
		Done:        done,
		StartTime:   c.start,
		Duration:    time.Since(c.start),
	}
}

// reportProgress sends a snapshot every 50ms until stop is closed.
// Sends never block; a full channel drops the update.
func reportProgress(c *counters, progress chan<- Progress, stop <-chan struct{}) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			select {
			case progress <- c.snapshot(false):
			default:
			}
		case <-stop:
			return
		}
	}
}

package model

import (
	"encoding/json"
	"errors"
	"time"
)

const maxInt64 = int64(^uint64(0) >> 1)

// FileRecord is a regular file visited by a scan.
type FileRecord struct {
	Path    string    `json:"path" yaml:"path"`
	Size    int64     `json:"size" yaml:"size"`
	ModTime time.Time `json:"mtime" yaml:"mtime"`
	Digest  string    `json:"-" yaml:"-"`
	// Hardlink is set when the file shares device and inode with an
	// earlier member of the same group.
	Hardlink bool `json:"hardlink,omitempty" yaml:"hardlink,omitempty"`
}

// DuplicateGroup is a set of files with identical content.
type DuplicateGroup struct {
	Digest string       `json:"digest" yaml:"digest"`
	Size   int64        `json:"size" yaml:"size"`
	Files  []FileRecord `json:"files" yaml:"files"`
}

// Count returns the number of members.
func (g *DuplicateGroup) Count() int { return len(g.Files) }

// Paths returns member paths in group order.
func (g *DuplicateGroup) Paths() []string {
	out := make([]string, len(g.Files))
	for i, f := range g.Files {
		out[i] = f.Path
	}
	return out
}

// Wasted returns the bytes that would be reclaimed by keeping a single copy.
// Hardlinked members occupy no extra space and are not counted.
func (g *DuplicateGroup) Wasted() int64 {
	var copies int64
	for i, f := range g.Files {
		if i > 0 && !f.Hardlink {
			copies++
		}
	}
	if copies == 0 || g.Size <= 0 {
		return 0
	}
	if g.Size > maxInt64/copies {
		return maxInt64
	}
	return g.Size * copies
}

// Diagnostic records a path that could not be processed. It never aborts a scan.
type Diagnostic struct {
	Path string
	Err  error
}

func (d Diagnostic) Error() string {
	if d.Err == nil {
		return d.Path
	}
	return d.Path + ": " + d.Err.Error()
}

func (d Diagnostic) Unwrap() error { return d.Err }

type diagnosticJSON struct {
	Path  string `json:"path" yaml:"path"`
	Cause string `json:"cause" yaml:"cause"`
}

func (d Diagnostic) cause() string {
	if d.Err == nil {
		return ""
	}
	return d.Err.Error()
}

func (d Diagnostic) MarshalJSON() ([]byte, error) {
	return json.Marshal(diagnosticJSON{Path: d.Path, Cause: d.cause()})
}

func (d *Diagnostic) UnmarshalJSON(data []byte) error {
	var raw diagnosticJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d.Path = raw.Path
	if raw.Cause != "" {
		d.Err = errors.New(raw.Cause)
	}
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Diagnostic) MarshalYAML() (any, error) {
	return diagnosticJSON{Path: d.Path, Cause: d.cause()}, nil
}

// Report is the result of a single scan. The caller owns it.
type Report struct {
	Root         string           `json:"root" yaml:"root"`
	Algorithm    string           `json:"algorithm" yaml:"algorithm"`
	Groups       []DuplicateGroup `json:"groups" yaml:"groups"`
	Diagnostics  []Diagnostic     `json:"diagnostics" yaml:"diagnostics"`
	FilesScanned int64            `json:"files_scanned" yaml:"files_scanned"`
	BytesScanned int64            `json:"bytes_scanned" yaml:"bytes_scanned"`
	StartedAt    time.Time        `json:"started_at" yaml:"started_at"`
	Duration     time.Duration    `json:"duration_ns" yaml:"duration_ns"`
}

// Empty reports whether no duplicates were found.
func (r *Report) Empty() bool { return r == nil || len(r.Groups) == 0 }

// WastedBytes sums Wasted over all groups.
func (r *Report) WastedBytes() int64 {
	if r == nil {
		return 0
	}
	var total int64
	for i := range r.Groups {
		w := r.Groups[i].Wasted()
		if total > maxInt64-w {
			return maxInt64
		}
		total += w
	}
	return total
}

// DuplicateFiles counts members beyond the first in every group.
func (r *Report) DuplicateFiles() int64 {
	if r == nil {
		return 0
	}
	var n int64
	for i := range r.Groups {
		if c := r.Groups[i].Count(); c > 1 {
			n += int64(c - 1)
		}
	}
	return n
}

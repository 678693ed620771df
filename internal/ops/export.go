package ops

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/sadopc/godupe/internal/model"
	"gopkg.in/yaml.v3"
)

// Progname identifies export files written by this program.
const Progname = "godupe"

// Export format version. Readers reject a different major.
const (
	formatMajor = 1
	formatMinor = 0
)

// JSON export layout, one group per line so large reports stream:
// [1, 0, {"progname":"godupe","progver":"1.0","timestamp":1234567890},
//   {"root":"/data","algorithm":"md5","files_scanned":3,...},
//   [{"digest":"5d41...","size":5,"files":[{"path":"/data/a.txt",...},...]},
//    ...],
//   [{"path":"/data/locked","cause":"permission denied"}]
// ]

type exportHeader struct {
	Progname  string `json:"progname" yaml:"progname"`
	Progver   string `json:"progver" yaml:"progver"`
	Timestamp int64  `json:"timestamp" yaml:"timestamp"`
}

type exportSummary struct {
	Root         string    `json:"root" yaml:"root"`
	Algorithm    string    `json:"algorithm" yaml:"algorithm"`
	FilesScanned int64     `json:"files_scanned" yaml:"files_scanned"`
	BytesScanned int64     `json:"bytes_scanned" yaml:"bytes_scanned"`
	StartedAt    time.Time `json:"started_at" yaml:"started_at"`
	DurationNS   int64     `json:"duration_ns" yaml:"duration_ns"`
}

func newHeader(version string) exportHeader {
	if version == "" {
		version = "dev"
	}
	return exportHeader{Progname: Progname, Progver: version, Timestamp: time.Now().Unix()}
}

func summaryOf(r *model.Report) exportSummary {
	return exportSummary{
		Root:         r.Root,
		Algorithm:    r.Algorithm,
		FilesScanned: r.FilesScanned,
		BytesScanned: r.BytesScanned,
		StartedAt:    r.StartedAt,
		DurationNS:   int64(r.Duration),
	}
}

// errWriter wraps an io.Writer and captures the first write error.
// Subsequent writes after an error are no-ops, avoiding verbose per-call checks.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) WriteString(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = io.WriteString(ew.w, s)
}

// writeJSON marshals v and writes it, recording the first failure.
func (ew *errWriter) writeJSON(v any) {
	if ew.err != nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		ew.err = err
		return
	}
	_, ew.err = ew.w.Write(data)
}

// ExportJSON writes the report in the streaming JSON layout above.
// path "-" writes to stdout. File targets are written to a temp file and
// atomically renamed on success, so a partial file is never left behind.
func ExportJSON(report *model.Report, path string, version string) error {
	if report == nil {
		return fmt.Errorf("nothing to export")
	}
	return writeTarget(path, func(w io.Writer) error {
		return exportJSONTo(report, w, version)
	})
}

// ExportYAML writes the report as a single YAML document.
func ExportYAML(report *model.Report, path string, version string) error {
	if report == nil {
		return fmt.Errorf("nothing to export")
	}
	return writeTarget(path, func(w io.Writer) error {
		return exportYAMLTo(report, w, version)
	})
}

// WriteJSON writes the JSON layout to w.
func WriteJSON(w io.Writer, report *model.Report, version string) error {
	if report == nil {
		return fmt.Errorf("nothing to export")
	}
	return exportJSONTo(report, w, version)
}

// WriteYAML writes the YAML document to w.
func WriteYAML(w io.Writer, report *model.Report, version string) error {
	if report == nil {
		return fmt.Errorf("nothing to export")
	}
	return exportYAMLTo(report, w, version)
}

func writeTarget(path string, write func(io.Writer) error) (retErr error) {
	if path == "-" {
		return write(os.Stdout)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".godupe-export-*.tmp")
	if err != nil {
		return fmt.Errorf("cannot create export file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if retErr != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if err := write(tmp); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		// On Windows, Rename cannot replace an existing destination.
		if runtime.GOOS != "windows" {
			return err
		}
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			return fmt.Errorf("cannot replace export file %s: %w", path, err)
		}
		if err := os.Rename(tmpPath, path); err != nil {
			return err
		}
	}
	return nil
}

func exportJSONTo(report *model.Report, out io.Writer, version string) error {
	bw := bufio.NewWriterSize(out, 64*1024)
	ew := &errWriter{w: bw}

	ew.WriteString(fmt.Sprintf("[%d, %d, ", formatMajor, formatMinor))
	ew.writeJSON(newHeader(version))
	ew.WriteString(",\n")
	ew.writeJSON(summaryOf(report))
	ew.WriteString(",\n[")
	for i := range report.Groups {
		if i > 0 {
			ew.WriteString(",")
		}
		ew.WriteString("\n")
		ew.writeJSON(&report.Groups[i])
	}
	ew.WriteString("\n],\n")
	diags := report.Diagnostics
	if diags == nil {
		diags = []model.Diagnostic{}
	}
	ew.writeJSON(diags)
	ew.WriteString("\n]\n")

	if ew.err != nil {
		return ew.err
	}
	return bw.Flush()
}

type yamlDocument struct {
	Format      []int                  `yaml:"format,flow"`
	Header      exportHeader           `yaml:"header"`
	Summary     exportSummary          `yaml:"summary"`
	Groups      []model.DuplicateGroup `yaml:"groups"`
	Diagnostics []model.Diagnostic     `yaml:"diagnostics"`
}

func exportYAMLTo(report *model.Report, out io.Writer, version string) error {
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	doc := yamlDocument{
		Format:      []int{formatMajor, formatMinor},
		Header:      newHeader(version),
		Summary:     summaryOf(report),
		Groups:      report.Groups,
		Diagnostics: report.Diagnostics,
	}
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

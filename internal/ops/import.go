package ops

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sadopc/godupe/internal/model"
)

// ImportJSON reads a report written by ExportJSON.
func ImportJSON(path string) (*model.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open import file: %w", err)
	}

	// [major, minor, header, summary, groups, diagnostics]
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if len(raw) != 6 {
		return nil, fmt.Errorf("invalid export format: expected 6 elements, got %d", len(raw))
	}

	var major int
	if err := json.Unmarshal(raw[0], &major); err != nil {
		return nil, fmt.Errorf("cannot parse format version: %w", err)
	}
	if major != formatMajor {
		return nil, fmt.Errorf("unsupported export format version %d", major)
	}

	var header exportHeader
	if err := json.Unmarshal(raw[2], &header); err != nil {
		return nil, fmt.Errorf("cannot parse header: %w", err)
	}
	if header.Progname != Progname {
		return nil, fmt.Errorf("not a %s export (progname %q)", Progname, header.Progname)
	}

	var summary exportSummary
	if err := json.Unmarshal(raw[3], &summary); err != nil {
		return nil, fmt.Errorf("cannot parse summary: %w", err)
	}

	report := &model.Report{
		Root:         summary.Root,
		Algorithm:    summary.Algorithm,
		FilesScanned: summary.FilesScanned,
		BytesScanned: summary.BytesScanned,
		StartedAt:    summary.StartedAt,
		Duration:     time.Duration(summary.DurationNS),
	}
	if err := json.Unmarshal(raw[4], &report.Groups); err != nil {
		return nil, fmt.Errorf("cannot parse groups: %w", err)
	}
	if err := json.Unmarshal(raw[5], &report.Diagnostics); err != nil {
		return nil, fmt.Errorf("cannot parse diagnostics: %w", err)
	}

	for i := range report.Groups {
		g := &report.Groups[i]
		if g.Digest == "" || len(g.Files) < 2 {
			return nil, fmt.Errorf("group %d: expected a digest and at least two files", i)
		}
		for j := range g.Files {
			g.Files[j].Digest = g.Digest
		}
	}
	if report.Groups == nil {
		report.Groups = []model.DuplicateGroup{}
	}
	if report.Diagnostics == nil {
		report.Diagnostics = []model.Diagnostic{}
	}
	return report, nil
}

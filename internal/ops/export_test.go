package ops

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sadopc/godupe/internal/model"
	"gopkg.in/yaml.v3"
)

func sampleReport() *model.Report {
	mtime := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return &model.Report{
		Root:      "/data",
		Algorithm: "md5",
		Groups: []model.DuplicateGroup{
			{
				Digest: "5d41402abc4b2a76b9719d911017c592",
				Size:   5,
				Files: []model.FileRecord{
					{Path: "/data/a.txt", Size: 5, ModTime: mtime},
					{Path: "/data/sub/b.txt", Size: 5, ModTime: mtime, Hardlink: true},
				},
			},
		},
		Diagnostics:  []model.Diagnostic{{Path: "/data/locked", Err: os.ErrPermission}},
		FilesScanned: 3,
		BytesScanned: 15,
		StartedAt:    mtime,
		Duration:     1500 * time.Millisecond,
	}
}

func TestExportJSON_Stdout(t *testing.T) {
	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer r.Close()
	os.Stdout = w

	exportErr := ExportJSON(sampleReport(), "-", "test-version")
	closeErr := w.Close()
	os.Stdout = oldStdout

	if exportErr != nil {
		t.Fatalf("ExportJSON returned error: %v", exportErr)
	}
	if closeErr != nil {
		t.Fatalf("closing pipe writer failed: %v", closeErr)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}

	out := strings.TrimSpace(string(data))
	for _, want := range []string{`"progname":"godupe"`, `"progver":"test-version"`, `"path":"/data/sub/b.txt"`, `"cause":"permission denied"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in export output, got:\n%s", want, out)
		}
	}

	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(out), &raw); err != nil {
		t.Fatalf("export output is not valid JSON: %v\n%s", err, out)
	}
	if len(raw) != 6 {
		t.Fatalf("expected 6 top-level elements, got %d", len(raw))
	}
}

func TestExportJSON_RoundTrip(t *testing.T) {
	target := filepath.Join(t.TempDir(), "report.json")
	want := sampleReport()

	if err := ExportJSON(want, target, "test"); err != nil {
		t.Fatalf("export: %v", err)
	}
	got, err := ImportJSON(target)
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	if got.Root != want.Root || got.Algorithm != want.Algorithm || got.Duration != want.Duration {
		t.Fatalf("summary mismatch: got %+v", got)
	}
	if len(got.Groups) != 1 || got.Groups[0].Count() != 2 {
		t.Fatalf("unexpected groups: %+v", got.Groups)
	}
	if got.Groups[0].Files[0].Digest != want.Groups[0].Digest {
		t.Fatal("expected member digests restored from the group")
	}
	if !got.Groups[0].Files[1].Hardlink {
		t.Fatal("expected hardlink flag to survive")
	}
	if !got.Groups[0].Files[0].ModTime.Equal(want.Groups[0].Files[0].ModTime) {
		t.Fatalf("mtime mismatch: %v", got.Groups[0].Files[0].ModTime)
	}
	if len(got.Diagnostics) != 1 || got.Diagnostics[0].Error() != "/data/locked: permission denied" {
		t.Fatalf("unexpected diagnostics: %v", got.Diagnostics)
	}
}

func TestExportJSON_EmptyReport(t *testing.T) {
	target := filepath.Join(t.TempDir(), "empty.json")
	if err := ExportJSON(&model.Report{Root: "/empty"}, target, ""); err != nil {
		t.Fatalf("export: %v", err)
	}
	got, err := ImportJSON(target)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if got.Groups == nil || len(got.Groups) != 0 || len(got.Diagnostics) != 0 {
		t.Fatalf("expected empty groups and diagnostics, got %+v", got)
	}
}

func TestExportJSON_AtomicNoPartialFile(t *testing.T) {
	tmp := t.TempDir()
	target := filepath.Join(tmp, "missing-dir", "output.json")

	if err := ExportJSON(sampleReport(), target, "test"); err == nil {
		t.Fatal("expected error for missing directory")
	}
	entries, err := os.ReadDir(tmp)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no leftover files, got %d", len(entries))
	}
}

func TestExportJSON_OverwriteExistingFile(t *testing.T) {
	tmp := t.TempDir()
	target := filepath.Join(tmp, "output.json")
	if err := os.WriteFile(target, []byte("old content"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := ExportJSON(sampleReport(), target, "v2"); err != nil {
		t.Fatalf("export: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"progver":"v2"`) {
		t.Fatalf("expected new export content, got:\n%s", data)
	}

	entries, _ := os.ReadDir(tmp)
	if len(entries) != 1 {
		t.Fatalf("expected only the export file in %s, got %d entries", tmp, len(entries))
	}
}

func TestExportYAML(t *testing.T) {
	target := filepath.Join(t.TempDir(), "report.yaml")
	if err := ExportYAML(sampleReport(), target, "test"); err != nil {
		t.Fatalf("export: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}

	var doc struct {
		Format []int `yaml:"format"`
		Header struct {
			Progname string `yaml:"progname"`
		} `yaml:"header"`
		Groups []struct {
			Digest string `yaml:"digest"`
			Files  []struct {
				Path string `yaml:"path"`
			} `yaml:"files"`
		} `yaml:"groups"`
		Diagnostics []struct {
			Path  string `yaml:"path"`
			Cause string `yaml:"cause"`
		} `yaml:"diagnostics"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		t.Fatalf("invalid YAML: %v\n%s", err, data)
	}
	if doc.Header.Progname != "godupe" || len(doc.Format) != 2 || doc.Format[0] != 1 {
		t.Fatalf("unexpected header: %+v %v", doc.Header, doc.Format)
	}
	if len(doc.Groups) != 1 || len(doc.Groups[0].Files) != 2 || doc.Groups[0].Files[1].Path != "/data/sub/b.txt" {
		t.Fatalf("unexpected groups: %+v", doc.Groups)
	}
	if len(doc.Diagnostics) != 1 || doc.Diagnostics[0].Cause != "permission denied" {
		t.Fatalf("unexpected diagnostics: %+v", doc.Diagnostics)
	}
}

func TestWriteJSON_MatchesExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	if err := ExportJSON(sampleReport(), path, "1.0"); err != nil {
		t.Fatalf("ExportJSON: %v", err)
	}
	fromFile, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var buf strings.Builder
	if err := WriteJSON(&buf, sampleReport(), "1.0"); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	// Only the header timestamp may differ.
	if strings.Count(string(fromFile), "\n") != strings.Count(buf.String(), "\n") {
		t.Fatalf("line count differs:\n%s\nvs\n%s", fromFile, buf.String())
	}
	if !strings.Contains(buf.String(), `"progname":"godupe"`) {
		t.Fatalf("missing header: %s", buf.String())
	}

	if err := WriteJSON(&buf, nil, "1.0"); err == nil {
		t.Fatal("expected error for nil report")
	}
	if err := WriteYAML(&buf, nil, "1.0"); err == nil {
		t.Fatal("expected error for nil report")
	}
}

package ops

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestImportJSON_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{name: "not json", content: "nope", wantErr: "invalid JSON"},
		{name: "short", content: `[1, 0, {"progname":"godupe"}]`, wantErr: "expected 6 elements"},
		{name: "major", content: `[2, 0, {"progname":"godupe"}, {}, [], []]`, wantErr: "unsupported export format version 2"},
		{name: "progname", content: `[1, 0, {"progname":"ncdu"}, {}, [], []]`, wantErr: "not a godupe export"},
		{name: "groups not array", content: `[1, 0, {"progname":"godupe"}, {}, {}, []]`, wantErr: "cannot parse groups"},
		{name: "singleton group", content: `[1, 0, {"progname":"godupe"}, {}, [{"digest":"ab","size":1,"files":[{"path":"/x"}]}], []]`, wantErr: "at least two files"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "in.json")
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := ImportJSON(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestImportJSON_MissingFile(t *testing.T) {
	_, err := ImportJSON(filepath.Join(t.TempDir(), "absent.json"))
	if err == nil || !strings.Contains(err.Error(), "cannot open import file") {
		t.Fatalf("unexpected error: %v", err)
	}
}

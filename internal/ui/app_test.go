package ui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sadopc/godupe/internal/model"
	"github.com/sadopc/godupe/internal/ops"
	"github.com/sadopc/godupe/internal/scanner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScanner struct {
	report *model.Report
	err    error

	root string
	opts scanner.ScanOptions
}

func (f *fakeScanner) Scan(_ context.Context, root string, opts scanner.ScanOptions, progress chan<- scanner.Progress) (*model.Report, error) {
	f.root = root
	f.opts = opts
	if progress != nil {
		progress <- scanner.Progress{FilesFound: 4, FilesHashed: 4, Done: true}
	}
	return f.report, f.err
}

func testReport() *model.Report {
	return &model.Report{
		Root:      "/data",
		Algorithm: "md5",
		Groups: []model.DuplicateGroup{
			{Digest: "aaa", Size: 10, Files: []model.FileRecord{
				{Path: "/data/z/small.txt", Size: 10},
				{Path: "/data/y/small.txt", Size: 10},
				{Path: "/data/x/small.txt", Size: 10},
			}},
			{Digest: "bbb", Size: 500, Files: []model.FileRecord{
				{Path: "/data/a/big.bin", Size: 500},
				{Path: "/data/b/big.bin", Size: 500},
			}},
		},
		Diagnostics:  []model.Diagnostic{{Path: "/data/locked", Err: errors.New("permission denied")}},
		FilesScanned: 5,
	}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func browsingApp(t *testing.T) *App {
	t.Helper()
	app := NewApp(&fakeScanner{report: testReport()}, "/data", scanner.DefaultOptions())
	app.Update(tea.WindowSizeMsg{Width: 120, Height: 30})
	app.Update(ScanDoneMsg{Report: testReport()})
	require.Equal(t, StateBrowsing, app.state)
	return app
}

func digests(groups []model.DuplicateGroup) []string {
	out := make([]string, len(groups))
	for i, g := range groups {
		out[i] = g.Digest
	}
	return out
}

func TestAppFatalError_SetOnScanDoneError(t *testing.T) {
	app := NewApp(nil, "/tmp", scanner.DefaultOptions())
	scanErr := errors.New("scan failed")

	_, cmd := app.Update(ScanDoneMsg{Err: scanErr})
	assert.ErrorIs(t, app.FatalError(), scanErr)
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	assert.True(t, ok, "expected tea.QuitMsg")
}

func TestAppFatalError_NotSetByStatusMessages(t *testing.T) {
	app := NewApp(nil, "/tmp", scanner.DefaultOptions())

	_, _ = app.Update(ExportDoneMsg{Path: "out.json"})
	assert.NoError(t, app.FatalError())
	assert.Contains(t, app.statusMsg, "Exported to out.json")

	_, _ = app.Update(ExportDoneMsg{Path: "out.json", Err: errors.New("disk full")})
	assert.NoError(t, app.FatalError())
	assert.Contains(t, app.statusMsg, "disk full")
}

func TestAppScanCmd_UsesScannerAndRelaysProgress(t *testing.T) {
	fs := &fakeScanner{report: testReport()}
	opts := scanner.DefaultOptions()
	opts.Algorithm = "sha256"
	app := NewApp(fs, "/data", opts)

	msg, ok := app.scanCmd()().(ScanDoneMsg)
	require.True(t, ok)
	require.NoError(t, msg.Err)
	assert.Equal(t, "/data", fs.root)
	assert.Equal(t, "sha256", fs.opts.Algorithm)
	assert.Len(t, msg.Report.Groups, 2)

	app.Update(tickMsg{})
	assert.True(t, app.scanProgress.Done)
	assert.EqualValues(t, 4, app.scanProgress.FilesFound)
}

func TestApp_DefaultSortIsWastedDescending(t *testing.T) {
	app := browsingApp(t)
	// bbb wastes 500 bytes, aaa wastes 20.
	assert.Equal(t, []string{"bbb", "aaa"}, digests(app.groups))
	// The report itself keeps scan order.
	assert.Equal(t, "aaa", app.Report().Groups[0].Digest)
}

func TestApp_ToggleSort(t *testing.T) {
	app := browsingApp(t)

	app.Update(runes("c"))
	assert.Equal(t, model.SortByCount, app.sortConfig.Field)
	assert.Equal(t, []string{"aaa", "bbb"}, digests(app.groups))

	app.Update(runes("c"))
	assert.Equal(t, model.SortAsc, app.sortConfig.Order)
	assert.Equal(t, []string{"bbb", "aaa"}, digests(app.groups))
}

func TestApp_SortKeepsSelection(t *testing.T) {
	app := browsingApp(t)
	app.Update(runes("j"))
	require.Equal(t, "aaa", app.selectedDigest())

	app.Update(runes("c"))
	assert.Equal(t, "aaa", app.selectedDigest())
	assert.Equal(t, 0, app.cursor)
}

func TestApp_OpenAndCloseGroup(t *testing.T) {
	app := browsingApp(t)
	app.Update(runes("j"))

	app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, app.openedGroup())
	assert.Equal(t, "aaa", app.openedGroup().Digest)

	view := app.View()
	assert.Contains(t, view, "/data/z/small.txt")
	assert.Contains(t, view, "3 copies")

	app.Update(runes("G"))
	assert.Equal(t, 2, app.memberCursor)
	app.Update(runes("j"))
	assert.Equal(t, 2, app.memberCursor)

	app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, app.openedGroup())
	assert.Equal(t, 1, app.cursor)
}

func TestApp_CursorClamped(t *testing.T) {
	app := browsingApp(t)
	app.Update(runes("k"))
	assert.Equal(t, 0, app.cursor)
	for i := 0; i < 5; i++ {
		app.Update(runes("j"))
	}
	assert.Equal(t, 1, app.cursor)
	app.Update(runes("g"))
	assert.Equal(t, 0, app.cursor)
}

func TestApp_Views(t *testing.T) {
	app := browsingApp(t)

	app.Update(runes("2"))
	assert.Equal(t, ViewFileTypes, app.viewMode)
	assert.Contains(t, app.View(), "Wasted")

	app.Update(runes("3"))
	assert.Equal(t, ViewDiagnostics, app.viewMode)
	view := app.View()
	assert.Contains(t, view, "/data/locked")
	assert.Contains(t, view, "permission denied")

	// Enter does nothing outside the group list.
	app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, app.openedGroup())
}

func TestApp_HelpToggle(t *testing.T) {
	app := browsingApp(t)
	app.Update(runes("?"))
	assert.Equal(t, StateHelp, app.state)
	assert.Contains(t, app.View(), "Keyboard Shortcuts")

	app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, StateBrowsing, app.state)
}

func TestApp_QuitDuringScanCancels(t *testing.T) {
	app := NewApp(nil, "/data", scanner.DefaultOptions())
	canceled := false
	app.setScanCancel(func() { canceled = true })

	_, cmd := app.Update(runes("q"))
	assert.True(t, canceled)
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	assert.True(t, ok)
}

func TestApp_ExportWritesImportableReport(t *testing.T) {
	app := browsingApp(t)
	app.ExportPath = filepath.Join(t.TempDir(), "report.json")
	app.Version = "test"

	_, cmd := app.Update(runes("E"))
	require.NotNil(t, cmd)
	assert.Equal(t, StateExporting, app.state)

	msg := cmd()
	app.Update(msg)
	assert.Equal(t, StateBrowsing, app.state)
	require.NoError(t, msg.(ExportDoneMsg).Err)

	imported, err := ops.ImportJSON(app.ExportPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"aaa", "bbb"}, digests(imported.Groups))
}

func TestApp_ExportYAMLByExtension(t *testing.T) {
	app := browsingApp(t)
	app.ExportPath = filepath.Join(t.TempDir(), "report.yml")

	_, cmd := app.Update(runes("E"))
	require.NotNil(t, cmd)
	msg := cmd().(ExportDoneMsg)
	require.NoError(t, msg.Err)

	data, err := os.ReadFile(app.ExportPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "groups:")
}

func TestApp_ImportMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, ops.ExportJSON(testReport(), path, "test"))

	app := NewAppFromImport(path)
	cmd := app.Init()
	require.NotNil(t, cmd)
	app.Update(tea.WindowSizeMsg{Width: 100, Height: 20})
	app.Update(cmd())
	require.Equal(t, StateBrowsing, app.state)
	assert.Len(t, app.groups, 2)
	assert.Contains(t, app.View(), "imported")

	_, cmd = app.Update(runes("r"))
	assert.Nil(t, cmd)
	assert.Equal(t, StateBrowsing, app.state)
	assert.Contains(t, app.statusMsg, "unavailable")
}

func TestApp_ImportMissingFileIsFatal(t *testing.T) {
	app := NewAppFromImport(filepath.Join(t.TempDir(), "missing.json"))
	app.Update(app.Init()())
	assert.Error(t, app.FatalError())
}

func TestApp_RescanKeepsSelection(t *testing.T) {
	app := browsingApp(t)
	app.Update(runes("j"))

	_, cmd := app.Update(runes("r"))
	require.NotNil(t, cmd)
	assert.Equal(t, StateScanning, app.state)

	app.Update(ScanDoneMsg{Report: testReport()})
	assert.Equal(t, "aaa", app.selectedDigest())
}

func TestApp_FromReport(t *testing.T) {
	app := NewAppFromReport(testReport())
	app.Update(tea.WindowSizeMsg{Width: 100, Height: 20})
	app.Update(app.Init()())
	require.Equal(t, StateBrowsing, app.state)
	assert.Equal(t, "/data", app.Report().Root)

	_, cmd := app.Update(runes("r"))
	assert.Nil(t, cmd)
}

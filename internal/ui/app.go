package ui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sadopc/godupe/internal/model"
	"github.com/sadopc/godupe/internal/ops"
	"github.com/sadopc/godupe/internal/scanner"
	"github.com/sadopc/godupe/internal/ui/components"
	"github.com/sadopc/godupe/internal/ui/style"
)

// DefaultExportPath is where E writes when no export path was given.
const DefaultExportPath = "godupe-export.json"

// ViewMode represents the current view.
type ViewMode int

const (
	ViewGroups ViewMode = iota
	ViewFileTypes
	ViewDiagnostics
)

// AppState represents the application state.
type AppState int

const (
	StateScanning AppState = iota
	StateBrowsing
	StateHelp
	StateExporting
)

// ScanDoneMsg is sent when scanning or importing completes.
type ScanDoneMsg struct {
	Report *model.Report
	Err    error
}

// ExportDoneMsg is sent when export completes.
type ExportDoneMsg struct {
	Path string
	Err  error
}

type tickMsg time.Time

// App is the root Bubble Tea model.
type App struct {
	// Scanner runs the scan; nil means the local filesystem.
	Scanner     scanner.Scanner
	ScanPath    string
	ScanOptions scanner.ScanOptions
	ImportPath  string
	ExportPath  string
	Version     string

	state    AppState
	viewMode ViewMode
	width    int
	height   int

	report     *model.Report
	groups     []model.DuplicateGroup
	breakdown  []model.CategoryStats
	sortConfig model.SortConfig

	cursor int
	offset int
	// open indexes groups when a group's members are shown, else -1.
	open         int
	memberCursor int
	memberOffset int
	diagOffset   int

	imported  bool
	preloaded *model.Report

	scanProgress   scanner.Progress
	progressMu     sync.Mutex
	latestProgress scanner.Progress
	scanCancel     context.CancelFunc
	scanCancelMu   sync.Mutex

	theme  style.Theme
	keys   KeyMap
	layout style.Layout

	statusMsg string
	fatalErr  error
}

func (a *App) setScanCancel(cancel context.CancelFunc) {
	a.scanCancelMu.Lock()
	a.scanCancel = cancel
	a.scanCancelMu.Unlock()
}

func (a *App) callScanCancel() {
	a.scanCancelMu.Lock()
	if a.scanCancel != nil {
		a.scanCancel()
	}
	a.scanCancelMu.Unlock()
}

// NewApp creates an App that scans scanPath with s.
func NewApp(s scanner.Scanner, scanPath string, opts scanner.ScanOptions) *App {
	return &App{
		Scanner:     s,
		ScanPath:    scanPath,
		ScanOptions: opts,
		state:       StateScanning,
		viewMode:    ViewGroups,
		sortConfig:  model.DefaultSort(),
		open:        -1,
		theme:       style.DefaultTheme(),
		keys:        DefaultKeyMap(),
	}
}

// NewAppFromImport creates an App that loads a previously exported report.
func NewAppFromImport(importPath string) *App {
	return &App{
		ImportPath: importPath,
		state:      StateScanning,
		viewMode:   ViewGroups,
		sortConfig: model.DefaultSort(),
		open:       -1,
		imported:   true,
		theme:      style.DefaultTheme(),
		keys:       DefaultKeyMap(),
	}
}

// NewAppFromReport creates an App that browses a finished report, such as
// one produced by a remote scan before the terminal UI started.
func NewAppFromReport(r *model.Report) *App {
	a := NewAppFromImport("")
	a.preloaded = r
	return a
}

func (a *App) Init() tea.Cmd {
	if a.preloaded != nil {
		r := a.preloaded
		return func() tea.Msg { return ScanDoneMsg{Report: r} }
	}
	if a.ImportPath != "" {
		return a.importCmd()
	}
	return tea.Batch(a.scanCmd(), a.tickCmd())
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.layout = style.NewLayout(msg.Width, msg.Height)
		return a, nil

	case ScanDoneMsg:
		if msg.Err != nil {
			a.fatalErr = msg.Err
			return a, tea.Quit
		}
		a.fatalErr = nil
		a.setReport(msg.Report)
		a.state = StateBrowsing
		return a, tea.ClearScreen

	case tickMsg:
		if a.state == StateScanning {
			a.progressMu.Lock()
			a.scanProgress = a.latestProgress
			a.progressMu.Unlock()
			return a, a.tickCmd()
		}
		return a, nil

	case ExportDoneMsg:
		a.state = StateBrowsing
		if msg.Err != nil {
			a.statusMsg = fmt.Sprintf("Export failed: %v", msg.Err)
		} else {
			a.statusMsg = fmt.Sprintf("Exported to %s", msg.Path)
		}
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, a.keys.ForceQuit) {
		a.callScanCancel()
		return a, tea.Quit
	}

	switch a.state {
	case StateScanning:
		if key.Matches(msg, a.keys.Quit) {
			a.callScanCancel()
			return a, tea.Quit
		}
		return a, nil

	case StateHelp:
		if key.Matches(msg, a.keys.Help) || msg.String() == "esc" {
			a.state = StateBrowsing
			return a, tea.ClearScreen
		}
		return a, nil

	case StateBrowsing:
		return a.handleBrowsingKey(msg)
	}

	return a, nil
}

func (a *App) handleBrowsingKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a.statusMsg = ""
	switch {
	case key.Matches(msg, a.keys.Quit):
		return a, tea.Quit

	case key.Matches(msg, a.keys.Help):
		a.state = StateHelp
		return a, tea.ClearScreen

	case key.Matches(msg, a.keys.Up):
		a.moveCursor(-1)
	case key.Matches(msg, a.keys.Down):
		a.moveCursor(1)
	case key.Matches(msg, a.keys.Top):
		a.moveCursor(-a.rowCount())
	case key.Matches(msg, a.keys.Bottom):
		a.moveCursor(a.rowCount())
	case key.Matches(msg, a.keys.Open):
		a.openGroup()
	case key.Matches(msg, a.keys.Back):
		a.closeGroup()

	case key.Matches(msg, a.keys.ViewGroups):
		a.viewMode = ViewGroups
		return a, tea.ClearScreen
	case key.Matches(msg, a.keys.ViewFileTypes):
		a.viewMode = ViewFileTypes
		return a, tea.ClearScreen
	case key.Matches(msg, a.keys.ViewDiagnostics):
		a.viewMode = ViewDiagnostics
		return a, tea.ClearScreen

	case key.Matches(msg, a.keys.SortWasted):
		a.toggleSort(model.SortByWasted)
	case key.Matches(msg, a.keys.SortSize):
		a.toggleSort(model.SortBySize)
	case key.Matches(msg, a.keys.SortCount):
		a.toggleSort(model.SortByCount)
	case key.Matches(msg, a.keys.SortPath):
		a.toggleSort(model.SortByPath)

	case key.Matches(msg, a.keys.Export):
		return a, a.exportCmd()

	case key.Matches(msg, a.keys.Rescan):
		if a.imported {
			a.statusMsg = "Rescan is unavailable for an imported report"
			return a, nil
		}
		a.progressMu.Lock()
		a.latestProgress = scanner.Progress{}
		a.progressMu.Unlock()
		a.scanProgress = scanner.Progress{}
		a.state = StateScanning
		return a, tea.Batch(tea.ClearScreen, a.scanCmd(), a.tickCmd())
	}

	return a, nil
}

func (a *App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	switch a.state {
	case StateScanning:
		return components.RenderScanProgress(a.theme, a.scanProgress, a.width, a.height)

	case StateHelp:
		return components.RenderHelp(a.theme, a.width, a.height)

	case StateBrowsing, StateExporting:
		return a.renderBrowsing()
	}

	return ""
}

func (a *App) renderBrowsing() string {
	group := a.openedGroup()

	header := components.RenderHeader(a.theme, a.report, a.width)
	breadcrumb := components.RenderBreadcrumb(a.theme, a.algorithm(), group, a.width)
	tabBar := components.RenderTabBar(a.theme, int(a.viewMode), a.sortConfig, a.width)

	var content string
	switch a.viewMode {
	case ViewGroups:
		if group != nil {
			ml := &components.MemberList{
				Theme:  a.theme,
				Layout: a.layout,
				Group:  group,
				Cursor: a.memberCursor,
				Offset: a.memberOffset,
			}
			ml.EnsureVisible()
			a.memberOffset = ml.Offset
			content = ml.Render()
		} else {
			gl := &components.GroupList{
				Theme:       a.theme,
				Layout:      a.layout,
				Groups:      a.groups,
				Cursor:      a.cursor,
				Offset:      a.offset,
				TotalWasted: a.report.WastedBytes(),
			}
			gl.EnsureVisible()
			a.offset = gl.Offset
			content = gl.Render()
		}

	case ViewFileTypes:
		content = components.RenderFileTypes(a.theme, a.breakdown, a.layout.ContentWidth(), a.layout.ContentHeight())

	case ViewDiagnostics:
		content = components.RenderDiagnostics(a.theme, a.diagnostics(), a.diagOffset, a.layout.ContentWidth(), a.layout.ContentHeight())
	}

	statusBar := components.RenderStatusBar(a.theme, components.StatusInfo{
		Groups:      len(a.groups),
		Diagnostics: len(a.diagnostics()),
		Algorithm:   a.algorithm(),
		Imported:    a.imported,
		Group:       group,
		ErrorMsg:    a.statusMsg,
	}, a.width)

	return header + "\n" + breadcrumb + "\n" + tabBar + "\n" + content + "\n" + statusBar
}

// setReport installs a finished report. The selected group is kept when it
// still exists after a rescan.
func (a *App) setReport(r *model.Report) {
	if r == nil {
		r = &model.Report{}
	}
	selected := a.selectedDigest()
	a.report = r
	a.groups = append([]model.DuplicateGroup(nil), r.Groups...)
	a.breakdown = model.Breakdown(r.Groups)
	a.open = -1
	a.memberCursor = 0
	a.memberOffset = 0
	a.diagOffset = 0
	a.cursor = 0
	a.offset = 0
	a.sortGroups(selected)
}

func (a *App) selectedDigest() string {
	if a.cursor >= 0 && a.cursor < len(a.groups) {
		return a.groups[a.cursor].Digest
	}
	return ""
}

// sortGroups re-sorts the list and moves the cursor, and the open group if
// any, back onto the group with the given digest.
func (a *App) sortGroups(digest string) {
	openDigest := ""
	if g := a.openedGroup(); g != nil {
		openDigest = g.Digest
	}
	model.SortGroups(a.groups, a.sortConfig)
	for i := range a.groups {
		if digest != "" && a.groups[i].Digest == digest {
			a.cursor = i
		}
		if openDigest != "" && a.groups[i].Digest == openDigest {
			a.open = i
		}
	}
}

func (a *App) toggleSort(field model.SortField) {
	if a.sortConfig.Field == field {
		if a.sortConfig.Order == model.SortDesc {
			a.sortConfig.Order = model.SortAsc
		} else {
			a.sortConfig.Order = model.SortDesc
		}
	} else {
		a.sortConfig.Field = field
		a.sortConfig.Order = model.SortDesc
	}
	a.sortGroups(a.selectedDigest())
}

func (a *App) openedGroup() *model.DuplicateGroup {
	if a.open < 0 || a.open >= len(a.groups) {
		return nil
	}
	return &a.groups[a.open]
}

func (a *App) openGroup() {
	if a.viewMode != ViewGroups || a.open >= 0 || a.cursor >= len(a.groups) {
		return
	}
	a.open = a.cursor
	a.memberCursor = 0
	a.memberOffset = 0
}

func (a *App) closeGroup() {
	if a.open < 0 {
		return
	}
	a.cursor = a.open
	a.open = -1
}

// rowCount is the number of rows the cursor moves over in the current view.
func (a *App) rowCount() int {
	switch a.viewMode {
	case ViewDiagnostics:
		return len(a.diagnostics())
	case ViewGroups:
		if g := a.openedGroup(); g != nil {
			return g.Count()
		}
		return len(a.groups)
	}
	return 0
}

func (a *App) moveCursor(delta int) {
	n := a.rowCount()
	clamp := func(v int) int {
		if v >= n {
			v = n - 1
		}
		if v < 0 {
			v = 0
		}
		return v
	}

	switch {
	case a.viewMode == ViewDiagnostics:
		maxOffset := n - a.layout.ContentHeight()
		a.diagOffset += delta
		if a.diagOffset > maxOffset {
			a.diagOffset = maxOffset
		}
		if a.diagOffset < 0 {
			a.diagOffset = 0
		}
	case a.viewMode != ViewGroups:
	case a.open >= 0:
		a.memberCursor = clamp(a.memberCursor + delta)
	default:
		a.cursor = clamp(a.cursor + delta)
	}
}

func (a *App) diagnostics() []model.Diagnostic {
	if a.report == nil {
		return nil
	}
	return a.report.Diagnostics
}

func (a *App) algorithm() string {
	if a.report == nil {
		return ""
	}
	return a.report.Algorithm
}

// scanCmd runs the scan in a background goroutine. Progress is relayed
// through a.latestProgress and picked up on each tick.
func (a *App) scanCmd() tea.Cmd {
	s := a.Scanner
	if s == nil {
		s = scanner.NewParallelScanner()
	}
	return func() tea.Msg {
		ctx, cancel := context.WithCancel(context.Background())
		a.setScanCancel(cancel)
		defer cancel()

		progressCh := make(chan scanner.Progress, 10)
		relayDone := make(chan struct{})
		go func() {
			defer close(relayDone)
			for p := range progressCh {
				a.progressMu.Lock()
				a.latestProgress = p
				a.progressMu.Unlock()
			}
		}()

		report, err := s.Scan(ctx, a.ScanPath, a.ScanOptions, progressCh)
		close(progressCh)
		<-relayDone

		return ScanDoneMsg{Report: report, Err: err}
	}
}

func (a *App) importCmd() tea.Cmd {
	path := a.ImportPath
	return func() tea.Msg {
		report, err := ops.ImportJSON(path)
		return ScanDoneMsg{Report: report, Err: err}
	}
}

func (a *App) tickCmd() tea.Cmd {
	return tea.Tick(60*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// FatalError returns the scan or import error that ended the program, if any.
func (a *App) FatalError() error { return a.fatalErr }

// Report returns the report being browsed, nil before the first scan ends.
func (a *App) Report() *model.Report { return a.report }

func (a *App) exportCmd() tea.Cmd {
	if a.report == nil {
		return nil
	}

	exportPath := a.ExportPath
	if exportPath == "" {
		exportPath = DefaultExportPath
	}

	a.state = StateExporting
	report := a.report
	version := a.Version
	return func() tea.Msg {
		export := ops.ExportJSON
		switch strings.ToLower(filepath.Ext(exportPath)) {
		case ".yaml", ".yml":
			export = ops.ExportYAML
		}
		err := export(report, exportPath, version)
		return ExportDoneMsg{Path: exportPath, Err: err}
	}
}

package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/godupe/internal/model"
	"github.com/sadopc/godupe/internal/ui/style"
	"github.com/sadopc/godupe/internal/util"
)

// GroupList renders duplicate groups, one row each.
type GroupList struct {
	Theme  style.Theme
	Layout style.Layout
	Groups []model.DuplicateGroup
	Cursor int
	Offset int
	// TotalWasted scales the bars; it is the report's total.
	TotalWasted int64
}

// Render renders the visible rows.
func (gl *GroupList) Render() string {
	width := gl.Layout.ContentWidth()
	contentHeight := gl.Layout.ContentHeight()

	if len(gl.Groups) == 0 {
		empty := lipgloss.NewStyle().Foreground(gl.Theme.TextMuted).Render("  (no duplicates found)")
		return padLines([]string{style.FullWidth(empty, width)}, contentHeight, width)
	}

	barWidth := gl.Layout.BarWidth()
	nameWidth := gl.Layout.NameWidth()

	start := gl.Offset
	end := min(start+contentHeight, len(gl.Groups))

	var lines []string
	for i := start; i < end; i++ {
		lines = append(lines, gl.renderRow(&gl.Groups[i], i == gl.Cursor, barWidth, nameWidth, width))
	}
	return padLines(lines, contentHeight, width)
}

func (gl *GroupList) renderRow(g *model.DuplicateGroup, selected bool, barWidth, nameWidth, totalWidth int) string {
	wasted := g.Wasted()
	pct := util.Percent(wasted, gl.TotalWasted)
	bar := gl.Theme.BarGradient(barWidth, pct/100.0)

	indicator := "  "
	if selected {
		indicator = gl.Theme.CursorIndicator.Render(" >")
	}

	first := ""
	if len(g.Files) > 0 {
		first = g.Files[0].Path
	}
	name := util.TruncatePath(first, nameWidth)

	pctStyled := gl.Theme.PercentText.Render(fmt.Sprintf("%5.1f%%", pct))
	countStyled := gl.Theme.CountText.Width(5).Render(fmt.Sprintf("x%d", g.Count()))
	nameStyled := gl.Theme.PathText.Render(name)
	sizeStyled := gl.Theme.SizeText.Width(10).Render(util.FormatSize(wasted))

	row := fmt.Sprintf("%s%s [%s] %s %s", indicator, pctStyled, bar, countStyled, nameStyled)
	// Right-align the size column.
	row = style.FullWidth(row, totalWidth-lipgloss.Width(sizeStyled)-1) + " " + sizeStyled

	if selected {
		return gl.Theme.SelectedRow.Width(totalWidth).Render(row)
	}
	return row
}

// EnsureVisible adjusts offset to keep cursor visible.
func (gl *GroupList) EnsureVisible() {
	gl.Offset = visibleOffset(gl.Cursor, gl.Offset, gl.Layout.ContentHeight())
}

// MemberList renders the files of one duplicate group.
type MemberList struct {
	Theme  style.Theme
	Layout style.Layout
	Group  *model.DuplicateGroup
	Cursor int
	Offset int
}

// Render renders the visible members.
func (ml *MemberList) Render() string {
	width := ml.Layout.ContentWidth()
	contentHeight := ml.Layout.ContentHeight()
	if ml.Group == nil {
		return padLines(nil, contentHeight, width)
	}

	pathWidth := ml.Layout.MemberPathWidth()
	files := ml.Group.Files
	start := ml.Offset
	end := min(start+contentHeight, len(files))

	var lines []string
	for i := start; i < end; i++ {
		lines = append(lines, ml.renderRow(i, &files[i], i == ml.Cursor, pathWidth, width))
	}
	return padLines(lines, contentHeight, width)
}

func (ml *MemberList) renderRow(i int, f *model.FileRecord, selected bool, pathWidth, totalWidth int) string {
	indicator := "  "
	if selected {
		indicator = ml.Theme.CursorIndicator.Render(" >")
	}

	index := ml.Theme.CountText.Width(5).Render(fmt.Sprintf("%d.", i+1))
	icon := util.FileIcon(f.Path)
	p := ml.Theme.PathText.Width(pathWidth).Render(icon + " " + util.TruncatePath(f.Path, max(pathWidth-3, 1)))

	mtime := ""
	if !f.ModTime.IsZero() {
		mtime = f.ModTime.Local().Format("2006-01-02 15:04")
	}
	mtimeStyled := ml.Theme.SizeText.Width(16).Render(mtime)

	flag := ""
	switch {
	case f.Hardlink:
		flag = ml.Theme.HardlinkText.Render("hardlink")
	case i == 0:
		flag = lipgloss.NewStyle().Foreground(ml.Theme.TextMuted).Render("first")
	}

	row := fmt.Sprintf("%s%s %s %s %s", indicator, index, p, mtimeStyled, flag)
	row = style.FullWidth(row, totalWidth)
	if selected {
		return ml.Theme.SelectedRow.Width(totalWidth).Render(row)
	}
	return row
}

// EnsureVisible adjusts offset to keep cursor visible.
func (ml *MemberList) EnsureVisible() {
	ml.Offset = visibleOffset(ml.Cursor, ml.Offset, ml.Layout.ContentHeight())
}

// RenderDiagnostics lists paths the scan could not read, with their causes.
func RenderDiagnostics(theme style.Theme, diags []model.Diagnostic, offset, width, height int) string {
	if len(diags) == 0 {
		ok := lipgloss.NewStyle().Foreground(theme.Success).Render("  every file was read")
		return padLines([]string{ok}, height, width)
	}

	pathW := max(width/2, 8)
	end := min(offset+height, len(diags))
	var lines []string
	for i := max(offset, 0); i < end; i++ {
		d := diags[i]
		p := theme.PathText.Width(pathW).Render("  " + util.TruncatePath(d.Path, pathW-2))
		cause := "unknown error"
		if d.Err != nil {
			cause = d.Err.Error()
		}
		causeW := max(width-pathW-1, 1)
		lines = append(lines, p+" "+theme.ErrorText.Render(util.TruncateString(cause, causeW)))
	}
	return padLines(lines, height, width)
}

func visibleOffset(cursor, offset, height int) int {
	if cursor < offset {
		offset = cursor
	}
	if cursor >= offset+height {
		offset = cursor - height + 1
	}
	if offset < 0 {
		offset = 0
	}
	return offset
}

func padLines(lines []string, height, width int) string {
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", max(width, 0)))
	}
	return strings.Join(lines, "\n")
}

package components

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/godupe/internal/model"
	"github.com/sadopc/godupe/internal/ui/style"
	"github.com/sadopc/godupe/internal/util"
)

// RenderFileTypes renders wasted space per file category. stats is expected
// in model.Breakdown order.
func RenderFileTypes(theme style.Theme, stats []model.CategoryStats, width, height int) string {
	var totalWasted int64
	for _, s := range stats {
		totalWasted += s.Wasted
	}

	if len(stats) == 0 {
		return padLines([]string{lipgloss.NewStyle().
			Foreground(theme.TextMuted).
			Render("  (no duplicates found)")}, height, max(width, 0))
	}

	catW := 16
	groupsW := 8
	filesW := 8
	sizeW := 12
	barW := width - catW - groupsW - filesW - sizeW - 14
	if barW < 10 {
		barW = 10
	}
	if barW > 30 {
		barW = 30
	}

	var lines []string

	hdrStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.TextPrimary)
	lines = append(lines, hdrStyle.Render(fmt.Sprintf("  %-*s %*s %*s %*s  %s",
		catW, "Category",
		groupsW, "Groups",
		filesW, "Files",
		sizeW, "Wasted",
		"Share",
	)))

	sep := lipgloss.NewStyle().Foreground(theme.TextMuted).Render("  " + strings.Repeat("-", max(width-4, 0)))
	lines = append(lines, sep)

	for _, s := range stats {
		pct := util.Percent(s.Wasted, totalWasted)

		catColor := lipgloss.Color(model.CategoryColor(s.Category))
		label := util.CategoryIcon(s.Category) + " " + model.CategoryName(s.Category)
		catName := lipgloss.NewStyle().Foreground(catColor).Bold(true).Width(catW).Render(label)
		right := lipgloss.NewStyle().Foreground(theme.TextSecondary).Align(lipgloss.Right)
		groups := right.Width(groupsW).Render(util.FormatCount(int64(s.Groups)))
		files := right.Width(filesW).Render(util.FormatCount(s.Files))
		size := right.Width(sizeW).Render(util.FormatSize(s.Wasted))

		bar := renderCategoryBar(barW, pct/100.0, catColor, theme.TextMuted)
		pctStr := lipgloss.NewStyle().Foreground(theme.TextMuted).Render(fmt.Sprintf(" %5.1f%%", pct))

		lines = append(lines, fmt.Sprintf("  %s %s %s %s  %s%s", catName, groups, files, size, bar, pctStr))

		if top := topExtensions(s.TopExts, 3); len(top) > 0 {
			lines = append(lines, lipgloss.NewStyle().Foreground(theme.TextMuted).
				Render("    "+strings.Join(top, ", ")))
		}
	}

	lines = append(lines, sep)
	lines = append(lines, hdrStyle.Render(fmt.Sprintf("  %-*s %*s %*s %*s",
		catW, "Total",
		groupsW, "",
		filesW, "",
		sizeW, util.FormatSize(totalWasted),
	)))

	if height > 0 && len(lines) > height {
		lines = lines[:height]
	}
	return padLines(lines, height, max(width, 0))
}

// topExtensions returns the n extensions wasting the most bytes, formatted
// for display. Ties are broken by name so the output is stable.
func topExtensions(exts map[string]int64, n int) []string {
	type extEntry struct {
		ext  string
		size int64
	}
	entries := make([]extEntry, 0, len(exts))
	for ext, size := range exts {
		entries = append(entries, extEntry{ext, size})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].size != entries[j].size {
			return entries[i].size > entries[j].size
		}
		return entries[i].ext < entries[j].ext
	})

	var result []string
	for i := 0; i < n && i < len(entries); i++ {
		result = append(result, fmt.Sprintf("%s (%s)", entries[i].ext, util.FormatSize(entries[i].size)))
	}
	return result
}

func renderCategoryBar(width int, ratio float64, color, dimColor lipgloss.Color) string {
	filled := int(ratio * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	filledStyle := lipgloss.NewStyle().Foreground(color)
	dimStyle := lipgloss.NewStyle().Foreground(dimColor)
	return filledStyle.Render(strings.Repeat("=", filled)) + dimStyle.Render(strings.Repeat("-", width-filled))
}

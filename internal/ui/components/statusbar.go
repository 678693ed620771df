package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/godupe/internal/model"
	"github.com/sadopc/godupe/internal/ui/style"
	"github.com/sadopc/godupe/internal/util"
)

// StatusInfo holds the current state for the status bar.
type StatusInfo struct {
	Groups      int
	Diagnostics int
	Algorithm   string
	Imported    bool
	// Group is the open group, nil in the list views.
	Group    *model.DuplicateGroup
	ErrorMsg string
}

// RenderStatusBar renders the bottom status bar.
func RenderStatusBar(theme style.Theme, info StatusInfo, width int) string {
	if info.ErrorMsg != "" {
		errLine := " " + lipgloss.NewStyle().Foreground(theme.Warning).Bold(true).Render(info.ErrorMsg)
		return theme.StatusBarStyle.Width(width).Render(errLine)
	}

	var parts []string
	if info.Group != nil {
		parts = append(parts,
			fmt.Sprintf("%d copies", info.Group.Count()),
			fmt.Sprintf("%s each", util.FormatSize(info.Group.Size)),
			fmt.Sprintf("%s reclaimable", util.FormatSize(info.Group.Wasted())),
		)
	} else {
		parts = append(parts, fmt.Sprintf("%s groups", util.FormatCount(int64(info.Groups))))
		if info.Algorithm != "" {
			parts = append(parts, info.Algorithm)
		}
	}

	if info.Diagnostics > 0 {
		warn := lipgloss.NewStyle().
			Foreground(theme.Error).
			Bold(true).
			Render(fmt.Sprintf("! %d unreadable", info.Diagnostics))
		parts = append(parts, warn)
	}
	if info.Imported {
		parts = append(parts, "imported")
	}

	left := " " + strings.Join(parts, " | ")

	hints := []struct{ key, desc string }{
		{"?", "help"},
		{"E", "export"},
		{"q", "quit"},
	}

	var rightParts []string
	for _, h := range hints {
		k := lipgloss.NewStyle().Foreground(theme.Primary).Bold(true).Render(h.key)
		d := lipgloss.NewStyle().Foreground(theme.TextMuted).Render(" " + h.desc)
		rightParts = append(rightParts, k+d)
	}
	right := strings.Join(rightParts, "  ") + " "

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}

	line := left + strings.Repeat(" ", gap) + right
	return theme.StatusBarStyle.Width(width).Render(line)
}

// TabNames labels the views in tab order.
var TabNames = []string{"Groups", "File Types", "Unreadable"}

// RenderTabBar renders the view tabs and the active sort.
func RenderTabBar(theme style.Theme, activeView int, sort model.SortConfig, width int) string {
	var tabLine []string
	for i, tab := range TabNames {
		label := fmt.Sprintf(" %d %s ", i+1, tab)
		if i == activeView {
			tabLine = append(tabLine, theme.TabActiveStyle.Render(label))
		} else {
			tabLine = append(tabLine, theme.TabInactiveStyle.Render(label))
		}
	}

	left := " " + strings.Join(tabLine, " ")

	arrow := "↓"
	if sort.Order == model.SortAsc {
		arrow = "↑"
	}
	sortLabel := lipgloss.NewStyle().
		Foreground(theme.TextMuted).
		Render("Sort: " + sort.Field.String() + " " + arrow + " ")

	gap := width - lipgloss.Width(left) - lipgloss.Width(sortLabel)
	if gap < 1 {
		gap = 1
	}

	line := left + strings.Repeat(" ", gap) + sortLabel
	return lipgloss.NewStyle().
		Foreground(theme.TextSecondary).
		Background(theme.BgLight).
		Width(width).
		Render(line)
}

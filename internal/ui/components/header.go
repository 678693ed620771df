package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/godupe/internal/model"
	"github.com/sadopc/godupe/internal/ui/style"
	"github.com/sadopc/godupe/internal/util"
)

// RenderHeader renders the top bar: scanned root on the left, report totals
// on the right.
func RenderHeader(theme style.Theme, report *model.Report, width int) string {
	if report == nil || width < 10 {
		return ""
	}

	titleStyled := lipgloss.NewStyle().Bold(true).Foreground(theme.Primary).Render(" godupe")

	stats := fmt.Sprintf("%s groups  %s files  %s wasted ",
		util.FormatCount(int64(len(report.Groups))),
		util.FormatCount(report.FilesScanned),
		util.FormatSize(report.WastedBytes()),
	)
	statsStyled := lipgloss.NewStyle().Foreground(theme.TextMuted).Render(stats)

	titleW := lipgloss.Width(titleStyled)
	statsW := lipgloss.Width(statsStyled)

	pathMaxW := width - titleW - statsW - 3
	pathStr := ""
	if pathMaxW > 5 {
		pathStr = util.TruncatePath(report.Root, pathMaxW)
	}

	pathStyled := lipgloss.NewStyle().Foreground(theme.TextPrimary).Render("  " + pathStr)
	pathW := lipgloss.Width(pathStyled)

	gap := width - titleW - pathW - statsW
	if gap < 1 {
		gap = 1
	}

	line := titleStyled + pathStyled + strings.Repeat(" ", gap) + statsStyled
	return theme.HeaderStyle.Width(width).Render(line)
}

// RenderBreadcrumb shows where the user is: the group list, or one group
// identified by its short digest and member size.
func RenderBreadcrumb(theme style.Theme, algorithm string, group *model.DuplicateGroup, width int) string {
	muted := lipgloss.NewStyle().Foreground(theme.TextMuted)
	current := lipgloss.NewStyle().Foreground(theme.TextPrimary).Bold(true)
	sep := muted.Render(" > ")

	var crumb string
	if group == nil {
		crumb = " " + current.Render("all groups")
	} else {
		label := current.Render(algorithm+" ") +
			theme.DigestText.Render(util.ShortDigest(group.Digest, 12)) +
			current.Render(fmt.Sprintf("  %d x %s", group.Count(), util.FormatSize(group.Size)))
		crumb = " " + muted.Render("all groups") + sep + label
	}

	if lipgloss.Width(crumb) > width {
		crumb = util.TruncateString(crumb, width)
	}
	return theme.BreadcrumbStyle.Width(width).Render(crumb)
}

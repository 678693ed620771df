package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/godupe/internal/scanner"
	"github.com/sadopc/godupe/internal/ui/style"
	"github.com/sadopc/godupe/internal/util"
)

// RenderScanProgress renders the scanning progress overlay.
func RenderScanProgress(theme style.Theme, progress scanner.Progress, width, height int) string {
	boxWidth := 56
	if boxWidth > width-4 {
		boxWidth = width - 4
	}
	inner := boxWidth - 6 // border + padding
	if inner < 1 {
		inner = 1
	}

	var lines []string

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.Primary).
		Render("  Finding duplicates...")
	lines = append(lines, title, "")

	statStyle := lipgloss.NewStyle().Foreground(theme.TextSecondary)
	lines = append(lines,
		statStyle.Render(fmt.Sprintf("  Dirs:    %s", util.FormatCount(progress.DirsScanned))),
		statStyle.Render(fmt.Sprintf("  Files:   %s / %s hashed",
			util.FormatCount(progress.FilesHashed), util.FormatCount(progress.FilesFound))),
		statStyle.Render(fmt.Sprintf("  Read:    %s", util.FormatSize(progress.BytesHashed))),
		statStyle.Render(fmt.Sprintf("  Speed:   %s files/s", util.FormatCount(int64(progress.FilesPerSecond())))),
	)

	if progress.Errors > 0 {
		lines = append(lines, theme.ErrorText.Render(fmt.Sprintf("  Unreadable: %d", progress.Errors)))
	}

	lines = append(lines, "")
	barW := inner - 2
	if barW > 0 {
		lines = append(lines, "  "+theme.BarGradient(barW, progress.Fraction()))
	}

	if progress.CurrentPath != "" {
		cur := util.TruncatePath(progress.CurrentPath, max(inner-2, 1))
		lines = append(lines, lipgloss.NewStyle().Foreground(theme.TextMuted).Render("  "+cur))
	}

	elapsed := fmt.Sprintf("  Elapsed: %.1fs", progress.Duration.Seconds())
	lines = append(lines, lipgloss.NewStyle().Foreground(theme.TextMuted).Render(elapsed))

	content := strings.Join(lines, "\n")

	box := theme.ModalStyle.
		Width(max(boxWidth, 0)).
		Render(content)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}

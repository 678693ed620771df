package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/godupe/internal/ui/style"
)

type helpBind struct{ key, desc string }

var helpSections = []struct {
	name  string
	binds []helpBind
}{
	{
		name: "Navigation",
		binds: []helpBind{
			{"j/k", "Move down/up"},
			{"g/G", "First / last row"},
			{"Enter/l", "Open duplicate group"},
			{"Esc/h", "Back to group list"},
		},
	},
	{
		name: "Views",
		binds: []helpBind{
			{"1", "Duplicate groups"},
			{"2", "Wasted space by file type"},
			{"3", "Unreadable paths"},
		},
	},
	{
		name: "Sorting",
		binds: []helpBind{
			{"w", "Sort by wasted space"},
			{"s", "Sort by file size"},
			{"c", "Sort by copy count"},
			{"p", "Sort by path"},
		},
	},
	{
		name: "Actions & General",
		binds: []helpBind{
			{"E", "Export report to JSON"},
			{"r", "Rescan"},
			{"?", "Toggle help"},
			{"q", "Quit"},
		},
	},
}

// RenderHelp renders the help overlay.
func RenderHelp(theme style.Theme, width, height int) string {
	boxWidth := 60
	if boxWidth > width-4 {
		boxWidth = width - 4
	}

	var lines []string
	lines = append(lines, theme.ModalTitle.Render("  godupe - Keyboard Shortcuts"), "")

	for _, sec := range helpSections {
		lines = append(lines, lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Accent).
			Render("  "+sec.name))

		for _, b := range sec.binds {
			key := lipgloss.NewStyle().
				Foreground(theme.Primary).
				Bold(true).
				Width(14).
				Render("    " + b.key)
			desc := lipgloss.NewStyle().
				Foreground(theme.TextSecondary).
				Render(b.desc)
			lines = append(lines, fmt.Sprintf("%s %s", key, desc))
		}
		lines = append(lines, "")
	}

	lines = append(lines, lipgloss.NewStyle().
		Foreground(theme.TextMuted).
		Render("  Pressing a sort key twice reverses the order"))
	lines = append(lines, lipgloss.NewStyle().
		Foreground(theme.TextMuted).
		Render("  Press ? or Esc to close"))

	box := theme.ModalStyle.
		Width(max(boxWidth, 0)).
		Render(strings.Join(lines, "\n"))

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}

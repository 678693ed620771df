package style

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
)

// Theme holds the colors and styles of the duplicate browser.
type Theme struct {
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Accent    lipgloss.Color
	Muted     lipgloss.Color
	Error     lipgloss.Color
	Warning   lipgloss.Color
	Success   lipgloss.Color

	BgDark     lipgloss.Color
	BgMedium   lipgloss.Color
	BgLight    lipgloss.Color
	BgSelected lipgloss.Color

	TextPrimary   lipgloss.Color
	TextSecondary lipgloss.Color
	TextMuted     lipgloss.Color

	// Wasted-space bars run from GradientStart (little) to GradientEnd (most).
	GradientStart lipgloss.Color
	GradientEnd   lipgloss.Color

	HeaderStyle      lipgloss.Style
	BreadcrumbStyle  lipgloss.Style
	TabActiveStyle   lipgloss.Style
	TabInactiveStyle lipgloss.Style
	StatusBarStyle   lipgloss.Style
	SelectedRow      lipgloss.Style
	CursorIndicator  lipgloss.Style
	CountText        lipgloss.Style
	PathText         lipgloss.Style
	DigestText       lipgloss.Style
	HardlinkText     lipgloss.Style
	SizeText         lipgloss.Style
	PercentText      lipgloss.Style
	ErrorText        lipgloss.Style
	ModalStyle       lipgloss.Style
	ModalTitle       lipgloss.Style
}

// DefaultTheme returns the default dark theme.
func DefaultTheme() Theme {
	t := Theme{
		Primary:   lipgloss.Color("#7B2FBE"),
		Secondary: lipgloss.Color("#00D4AA"),
		Accent:    lipgloss.Color("#61AFEF"),
		Muted:     lipgloss.Color("#5C6370"),
		Error:     lipgloss.Color("#E06C75"),
		Warning:   lipgloss.Color("#E5C07B"),
		Success:   lipgloss.Color("#98C379"),

		BgDark:     lipgloss.Color("#1E1E2E"),
		BgMedium:   lipgloss.Color("#282A36"),
		BgLight:    lipgloss.Color("#313244"),
		BgSelected: lipgloss.Color("#3E4451"),

		TextPrimary:   lipgloss.Color("#CDD6F4"),
		TextSecondary: lipgloss.Color("#BAC2DE"),
		TextMuted:     lipgloss.Color("#6C7086"),

		GradientStart: lipgloss.Color("#00D4AA"),
		GradientEnd:   lipgloss.Color("#E06C75"),
	}

	t.HeaderStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(t.TextPrimary).
		Background(t.BgMedium)

	t.BreadcrumbStyle = lipgloss.NewStyle().
		Foreground(t.TextMuted)

	t.TabActiveStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(t.TextPrimary).
		Background(t.Primary).
		Padding(0, 1)

	t.TabInactiveStyle = lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Padding(0, 1)

	t.StatusBarStyle = lipgloss.NewStyle().
		Foreground(t.TextSecondary).
		Background(t.BgMedium)

	t.SelectedRow = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#4A4A6A"))

	t.CursorIndicator = lipgloss.NewStyle().
		Foreground(t.Primary).
		Bold(true)

	t.CountText = lipgloss.NewStyle().
		Foreground(t.Warning).
		Bold(true)

	t.PathText = lipgloss.NewStyle().
		Foreground(t.TextSecondary)

	t.DigestText = lipgloss.NewStyle().
		Foreground(t.Accent)

	t.HardlinkText = lipgloss.NewStyle().
		Foreground(t.Success)

	t.SizeText = lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Align(lipgloss.Right)

	t.PercentText = lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Width(6).
		Align(lipgloss.Right)

	t.ErrorText = lipgloss.NewStyle().
		Foreground(t.Error)

	t.ModalStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Primary).
		Padding(1, 2).
		Background(t.BgMedium)

	t.ModalTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(t.TextPrimary).
		Padding(0, 0, 1, 0)

	return t
}

// GradientColor returns a color interpolated between gradient start and end.
func (t Theme) GradientColor(ratio float64) lipgloss.Color {
	if ratio <= 0 {
		return t.GradientStart
	}
	if ratio >= 1 {
		return t.GradientEnd
	}

	c1, _ := colorful.Hex(string(t.GradientStart))
	c2, _ := colorful.Hex(string(t.GradientEnd))
	return lipgloss.Color(c1.BlendLab(c2, ratio).Hex())
}

// BarGradient renders a bar filled to ratio, each filled cell colored by
// its position along the gradient.
func (t Theme) BarGradient(width int, ratio float64) string {
	if width <= 0 {
		return ""
	}
	if ratio < 0 {
		ratio = 0
	}
	filled := int(ratio * float64(width))
	if filled > width {
		filled = width
	}

	var buf strings.Builder
	buf.Grow(width * 20)

	c1, _ := colorful.Hex(string(t.GradientStart))
	c2, _ := colorful.Hex(string(t.GradientEnd))

	for i := 0; i < filled; i++ {
		pos := float64(i) / float64(max(width-1, 1))
		color := lipgloss.Color(c1.BlendLab(c2, pos).Hex())
		buf.WriteString(lipgloss.NewStyle().Foreground(color).Render("━"))
	}

	if filled < width {
		dim := lipgloss.NewStyle().Foreground(t.TextMuted)
		buf.WriteString(dim.Render(strings.Repeat("─", width-filled)))
	}

	return buf.String()
}

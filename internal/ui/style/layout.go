package style

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Layout manages the arrangement of UI components within terminal dimensions.
type Layout struct {
	Width  int
	Height int
}

// NewLayout creates a layout for the given terminal dimensions.
func NewLayout(width, height int) Layout {
	return Layout{Width: width, Height: height}
}

// ContentHeight returns the height available for the main content area.
func (l Layout) ContentHeight() int {
	h := l.Height - 4 // header + breadcrumb + tabbar + statusbar
	if h < 1 {
		h = 1
	}
	return h
}

// ContentWidth returns the width available for the main content area.
func (l Layout) ContentWidth() int {
	if l.Width < 20 {
		return 20
	}
	return l.Width
}

// BarWidth returns the width of the wasted-space bar in the group list.
// It takes a third of what the fixed columns leave over.
func (l Layout) BarWidth() int {
	bar := (l.ContentWidth() - groupRowOverhead) / 3
	if bar < 5 {
		bar = 5
	}
	if bar > 30 {
		bar = 30
	}
	return bar
}

// NameWidth returns the width left for the first member's path in a group row.
func (l Layout) NameWidth() int {
	w := l.ContentWidth() - groupRowOverhead - l.BarWidth()
	if w < 8 {
		w = 8
	}
	return w
}

// MemberPathWidth returns the width left for a path in the member list.
func (l Layout) MemberPathWidth() int {
	w := l.ContentWidth() - memberRowOverhead
	if w < 8 {
		w = 8
	}
	return w
}

// Group row: cursor(2) + pct(6) + " [" + bar + "] " + "x999"(5) + " " + path + " " + wasted(10)
const groupRowOverhead = 2 + 6 + 2 + 2 + 5 + 1 + 1 + 10

// Member row: cursor(2) + "999."(5) + " " + path + " " + mtime(16) + " " + flag(8)
const memberRowOverhead = 2 + 5 + 1 + 1 + 16 + 1 + 8

// Center centers content in the available width.
func (l Layout) Center(content string) string {
	return lipgloss.PlaceHorizontal(l.Width, lipgloss.Center, content)
}

// FullWidth pads a string with spaces to reach exactly the target visual width.
// If the string is already wider, it is returned as-is (no truncation).
func FullWidth(s string, width int) string {
	visLen := lipgloss.Width(s)
	if visLen >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visLen)
}

package util

import (
	"fmt"

	"github.com/charmbracelet/x/ansi"
)

// FormatSize returns a human-readable size string.
func FormatSize(bytes int64) string {
	if bytes < 0 {
		return "0 B"
	}

	const (
		_          = iota
		kB float64 = 1 << (10 * iota)
		mB
		gB
		tB
		pB
	)

	b := float64(bytes)
	switch {
	case b >= pB:
		return fmt.Sprintf("%.1f PiB", b/pB)
	case b >= tB:
		return fmt.Sprintf("%.1f TiB", b/tB)
	case b >= gB:
		return fmt.Sprintf("%.1f GiB", b/gB)
	case b >= mB:
		return fmt.Sprintf("%.1f MiB", b/mB)
	case b >= kB:
		return fmt.Sprintf("%.1f KiB", b/kB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// FormatCount returns a human-readable count string.
func FormatCount(n int64) string {
	switch {
	case n < 1000:
		return fmt.Sprintf("%d", n)
	case n < 1_000_000:
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	case n < 1_000_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	}
	return fmt.Sprintf("%.1fB", float64(n)/1_000_000_000)
}

// Percent returns the percentage of part relative to total.
func Percent(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// ShortDigest returns the first n hex characters of a digest.
func ShortDigest(digest string, n int) string {
	if n <= 0 || len(digest) <= n {
		return digest
	}
	return digest[:n]
}

// TruncateString cuts s to at most width terminal cells, ending in "..."
// when there is room for it. Wide runes count as two cells.
func TruncateString(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if ansi.StringWidth(s) <= width {
		return s
	}
	if width <= 3 {
		return ansi.Truncate(s, width, "")
	}
	return ansi.Truncate(s, width, "...")
}

// TruncatePath keeps the end of p, which names the file, and drops leading
// cells behind a "…" marker so the result fits in width cells.
func TruncatePath(p string, width int) string {
	if width <= 0 {
		return ""
	}
	if ansi.StringWidth(p) <= width {
		return p
	}
	if width == 1 {
		return "…"
	}

	runes := []rune(p)
	used := 1
	start := len(runes)
	for start > 0 {
		w := ansi.StringWidth(string(runes[start-1]))
		if used+w > width {
			break
		}
		used += w
		start--
	}
	return "…" + string(runes[start:])
}

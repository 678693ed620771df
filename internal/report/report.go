// Package report renders a duplicate report for terminals and pipes.
package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/sadopc/godupe/internal/model"
	"github.com/sadopc/godupe/internal/util"
)

// Options controls headless output.
type Options struct {
	// Color enables ANSI colors. fatih/color also honors NO_COLOR.
	Color bool
	// DigestWidth is how many hex characters of each digest to print (0 = all).
	DigestWidth int
	Sort        model.SortConfig
	// ScanOrder prints groups in report order and ignores Sort.
	ScanOrder bool
}

// DefaultOptions returns the options used by the CLI.
func DefaultOptions() Options {
	return Options{DigestWidth: 12, Sort: model.DefaultSort()}
}

type palette struct {
	header *color.Color
	digest *color.Color
	path   *color.Color
	link   *color.Color
	warn   *color.Color
	total  *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		header: color.New(color.Bold),
		digest: color.New(color.FgYellow),
		path:   color.New(color.FgCyan),
		link:   color.New(color.Faint),
		warn:   color.New(color.FgRed),
		total:  color.New(color.FgGreen, color.Bold),
	}
	for _, c := range []*color.Color{p.header, p.digest, p.path, p.link, p.warn, p.total} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// sortedGroups returns a sorted copy so the caller's report keeps scan order.
func sortedGroups(r *model.Report, opts Options) []model.DuplicateGroup {
	groups := make([]model.DuplicateGroup, len(r.Groups))
	copy(groups, r.Groups)
	if !opts.ScanOrder {
		model.SortGroups(groups, opts.Sort)
	}
	return groups
}

// PrintText writes one block per group followed by diagnostics and totals.
func PrintText(w io.Writer, r *model.Report, opts Options) error {
	p := newPalette(opts.Color)
	ew := &errWriter{w: w}

	for i, g := range sortedGroups(r, opts) {
		if i > 0 {
			ew.printf("\n")
		}
		ew.printf("%s %s\n",
			p.digest.Sprint(util.ShortDigest(g.Digest, opts.DigestWidth)),
			p.header.Sprintf("%d files × %s, %s wasted", g.Count(), util.FormatSize(g.Size), util.FormatSize(g.Wasted())))
		for _, f := range g.Files {
			if f.Hardlink {
				ew.printf("  %s %s\n", p.path.Sprint(f.Path), p.link.Sprint("(hardlink)"))
				continue
			}
			ew.printf("  %s\n", p.path.Sprint(f.Path))
		}
	}

	if len(r.Diagnostics) > 0 {
		ew.printf("\n%s\n", p.warn.Sprintf("%d path(s) could not be read:", len(r.Diagnostics)))
		for _, d := range r.Diagnostics {
			ew.printf("  %s\n", d.Error())
		}
	}

	if len(r.Groups) > 0 || len(r.Diagnostics) > 0 {
		ew.printf("\n")
	}
	ew.printf("%s\n", footer(r, p))
	return ew.err
}

func footer(r *model.Report, p palette) string {
	if r.Empty() {
		return fmt.Sprintf("No duplicates among %s files (%s, %s).",
			util.FormatCount(r.FilesScanned), util.FormatSize(r.BytesScanned), r.Algorithm)
	}
	return fmt.Sprintf("%d groups, %d duplicate files, %s reclaimable. Scanned %s files (%s, %s) in %s.",
		len(r.Groups), r.DuplicateFiles(), p.total.Sprint(util.FormatSize(r.WastedBytes())),
		util.FormatCount(r.FilesScanned), util.FormatSize(r.BytesScanned), r.Algorithm,
		r.Duration.Round(time.Millisecond))
}

// PrintTable writes one row per group member.
func PrintTable(w io.Writer, r *model.Report, opts Options) error {
	table := tablewriter.NewWriter(w)
	table.Header("Group", "Digest", "Size", "Wasted", "Path")
	for i, g := range sortedGroups(r, opts) {
		for j, f := range g.Files {
			row := []string{"", "", "", "", f.Path}
			if j == 0 {
				row[0] = strconv.Itoa(i + 1)
				row[1] = util.ShortDigest(g.Digest, opts.DigestWidth)
				row[2] = util.FormatSize(g.Size)
				row[3] = util.FormatSize(g.Wasted())
			}
			if f.Hardlink {
				row[4] += " (hardlink)"
			}
			if err := table.Append(row); err != nil {
				return err
			}
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	ew := &errWriter{w: w}
	for _, d := range r.Diagnostics {
		ew.printf("error: %s\n", d.Error())
	}
	ew.printf("%s\n", footer(r, newPalette(false)))
	return ew.err
}

type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/sadopc/godupe/internal/config"
	"github.com/sadopc/godupe/internal/digest"
	"github.com/sadopc/godupe/internal/logging"
	"github.com/sadopc/godupe/internal/model"
	"github.com/sadopc/godupe/internal/ops"
	"github.com/sadopc/godupe/internal/remote"
	"github.com/sadopc/godupe/internal/report"
	"github.com/sadopc/godupe/internal/scanner"
	"github.com/sadopc/godupe/internal/ui"
	"github.com/sadopc/godupe/internal/util"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const exitInterrupted = 130

var (
	formats   = []string{"text", "table", "json", "yaml"}
	sortNames = map[string]model.SortField{
		"wasted": model.SortByWasted,
		"size":   model.SortBySize,
		"count":  model.SortByCount,
		"path":   model.SortByPath,
	}
)

type cliOptions struct {
	configPath string

	algorithm      string
	jobs           int
	bufferSize     string
	followSymlinks bool
	exclude        []string
	minSize        string
	quick          bool
	noHidden       bool

	format      string
	sortBy      string
	noColor     bool
	quiet       bool
	exportPath  string
	importPath  string
	interactive bool

	logLevel string
	logJSON  bool

	sshPort        int
	sshBatch       bool
	sshTimeout     time.Duration
	sshScanTimeout time.Duration
	knownHosts     string
}

// run executes the CLI and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCode(err)
	}
	return 0
}

func exitCode(err error) int {
	var cancelErr *scanner.CancellationError
	if errors.As(err, &cancelErr) {
		return exitInterrupted
	}
	return 1
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	o := &cliOptions{}
	cmd := &cobra.Command{
		Use:   "godupe [flags] [path | user@host [remote-path]]",
		Short: "Find duplicate files by content",
		Long: "godupe walks a directory tree, digests every regular file and reports the groups of\n" +
			"files whose contents are identical. A user@host target scans a remote tree over SFTP.",
		Example: strings.Join([]string{
			"  godupe .                          Report duplicates under the current directory",
			"  godupe -i ~/Pictures              Browse duplicates interactively",
			"  godupe --algo xxh64 -j 8 /data    Fast digest with 8 workers",
			"  godupe --format json /data        Machine-readable report on stdout",
			"  godupe --export dupes.json /data  Save the report for later",
			"  godupe -i --import dupes.json     Browse a saved report",
			"  godupe alice@nas /volume1/photos  Scan a remote tree over SFTP",
		}, "\n"),
		Version:       version,
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, args)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetVersionTemplate("godupe {{.Version}}\n")

	f := cmd.Flags()
	f.StringVar(&o.configPath, "config", "", "config file (default "+config.DefaultPath()+")")
	f.StringVar(&o.algorithm, "algo", digest.DefaultAlgorithm, "digest algorithm: "+strings.Join(digest.Names(), ", "))
	f.IntVarP(&o.jobs, "jobs", "j", 1, "digest workers (0 = GOMAXPROCS)")
	f.StringVar(&o.bufferSize, "buffer-size", "8K", "read chunk size per file")
	f.BoolVar(&o.followSymlinks, "follow-symlinks", false, "digest symlink targets and descend into linked directories")
	f.StringSliceVar(&o.exclude, "exclude", nil, "comma-separated globs to skip (e.g. node_modules,**/*.tmp)")
	f.StringVar(&o.minSize, "min-size", "0", "skip files smaller than this (e.g. 1M)")
	f.BoolVar(&o.quick, "quick", false, "skip files whose size no other file shares")
	f.BoolVar(&o.noHidden, "no-hidden", false, "skip dot files and directories")

	f.StringVar(&o.format, "format", "text", "output format: "+strings.Join(formats, ", "))
	f.StringVar(&o.sortBy, "sort", "scan", "group order: scan, wasted, size, count, path")
	f.BoolVar(&o.noColor, "no-color", false, "disable colorized output")
	f.BoolVarP(&o.quiet, "quiet", "q", false, "do not show scan progress")
	f.StringVar(&o.exportPath, "export", "", "write the report to a JSON (or .yaml) file, '-' for stdout")
	f.StringVar(&o.importPath, "import", "", "load a report written by --export instead of scanning")
	f.BoolVarP(&o.interactive, "interactive", "i", false, "browse the report in a terminal UI")

	f.StringVar(&o.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	f.BoolVar(&o.logJSON, "log-json", false, "log as JSON")

	f.IntVar(&o.sshPort, "ssh-port", 22, "SSH port for remote scans")
	f.BoolVar(&o.sshBatch, "ssh-batch", false, "never prompt (key or agent auth only, unknown hosts fail)")
	f.DurationVar(&o.sshTimeout, "ssh-timeout", 15*time.Second, "SSH connection timeout")
	f.DurationVar(&o.sshScanTimeout, "ssh-scan-timeout", 0, "limit for the whole remote scan (0 = none)")
	f.StringVar(&o.knownHosts, "known-hosts", "", "known_hosts file (default ~/.ssh/known_hosts)")

	return cmd
}

// loadConfig merges defaults, the config file, GODUPE_* variables and the
// flags the user actually set, in that order.
func (o *cliOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	set := func(name string, apply func()) {
		if flags.Changed(name) {
			apply()
		}
	}
	set("algo", func() { cfg.Scan.Algorithm = o.algorithm })
	set("jobs", func() { cfg.Scan.Concurrency = o.jobs })
	set("buffer-size", func() { cfg.Scan.BufferSize = o.bufferSize })
	set("follow-symlinks", func() { cfg.Scan.FollowSymlinks = o.followSymlinks })
	set("exclude", func() { cfg.Scan.Exclude = o.exclude })
	set("min-size", func() { cfg.Scan.MinSize = o.minSize })
	set("quick", func() { cfg.Scan.SizePrefilter = o.quick })
	set("no-hidden", func() { cfg.Scan.ShowHidden = !o.noHidden })
	set("log-level", func() { cfg.Log.Level = o.logLevel })
	set("log-json", func() { cfg.Log.JSON = o.logJSON })
	set("ssh-port", func() { cfg.SSH.Port = o.sshPort })
	set("ssh-batch", func() { cfg.SSH.Batch = o.sshBatch })
	set("ssh-timeout", func() { cfg.SSH.Timeout = o.sshTimeout })
	set("ssh-scan-timeout", func() { cfg.SSH.ScanTimeout = o.sshScanTimeout })
	set("known-hosts", func() { cfg.SSH.KnownHostsFile = o.knownHosts })

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (o *cliOptions) validate() error {
	if !contains(formats, o.format) {
		return fmt.Errorf("unknown format %q (want %s)", o.format, strings.Join(formats, ", "))
	}
	if _, ok := sortNames[o.sortBy]; !ok && o.sortBy != "scan" {
		return fmt.Errorf("unknown sort %q (want scan, wasted, size, count or path)", o.sortBy)
	}
	return nil
}

func (o *cliOptions) run(cmd *cobra.Command, args []string) error {
	if err := o.validate(); err != nil {
		return err
	}
	cfg, err := o.loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.JSON, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	log := logrus.NewEntry(logger)
	ctx := cmd.Context()

	if o.importPath != "" {
		return o.runImport(cmd, args)
	}

	target, err := resolveScanTarget(args)
	if err != nil {
		return err
	}

	opts, err := cfg.ScanOptions()
	if err != nil {
		return err
	}
	opts.Logger = log.WithField("component", "scanner")

	var s scanner.Scanner
	root := target.LocalPath
	if target.Remote {
		rc := cfg.Remote(target.SSHDestination)
		rc.Logger = log.WithField("component", "remote")
		s = remote.NewSFTPScanner(rc)
		root = target.RemotePath
	} else {
		s = scanner.NewParallelScanner()
	}
	log.WithField("root", root).
		WithField("algorithm", opts.Algorithm).
		WithField("concurrency", opts.Concurrency).
		Debug("starting scan")

	// Local scans run inside the UI. Remote scans may prompt for passwords or
	// host keys, so they finish before the alternate screen takes over.
	if o.interactive && !target.Remote {
		return o.runTUI(ctx, ui.NewApp(s, root, opts))
	}

	r, err := o.scan(ctx, s, root, opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if o.interactive {
		return o.runTUI(ctx, ui.NewAppFromReport(r))
	}
	return o.output(cmd.OutOrStdout(), r)
}

func (o *cliOptions) runImport(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return errors.New("--import cannot be used with scan targets")
	}
	if o.interactive {
		return o.runTUI(cmd.Context(), ui.NewAppFromImport(o.importPath))
	}
	r, err := ops.ImportJSON(o.importPath)
	if err != nil {
		return fmt.Errorf("importing %s: %w", o.importPath, err)
	}
	return o.output(cmd.OutOrStdout(), r)
}

// scan runs s, drawing a one-line progress meter on stderr when it is a terminal.
func (o *cliOptions) scan(ctx context.Context, s scanner.Scanner, root string, opts scanner.ScanOptions, stderr io.Writer) (*model.Report, error) {
	width, tty := terminalWidth(stderr)
	if o.quiet || !tty {
		return s.Scan(ctx, root, opts, nil)
	}

	progress := make(chan scanner.Progress, 10)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for p := range progress {
			line := fmt.Sprintf("%s dirs, %s/%s files hashed, %s read, %d unreadable  %s",
				util.FormatCount(p.DirsScanned),
				util.FormatCount(p.FilesHashed),
				util.FormatCount(p.FilesFound),
				util.FormatSize(p.BytesHashed),
				p.Errors,
				p.CurrentPath,
			)
			fmt.Fprint(stderr, "\r"+ansi.EraseLineRight+ansi.Truncate(line, max(width-1, 1), "…"))
		}
		fmt.Fprint(stderr, "\r"+ansi.EraseLineRight)
	}()

	r, err := s.Scan(ctx, root, opts, progress)
	close(progress)
	wg.Wait()
	return r, err
}

func (o *cliOptions) output(w io.Writer, r *model.Report) error {
	if o.exportPath != "" {
		return o.export(w, r)
	}

	ropts := report.DefaultOptions()
	ropts.Color = !o.noColor && isTerminal(w)
	if field, ok := sortNames[o.sortBy]; ok {
		ropts.Sort = model.SortConfig{Field: field, Order: model.SortDesc}
	} else {
		ropts.ScanOrder = true
	}

	switch o.format {
	case "json":
		return ops.WriteJSON(w, r, version)
	case "yaml":
		return ops.WriteYAML(w, r, version)
	case "table":
		return report.PrintTable(w, r, ropts)
	default:
		return report.PrintText(w, r, ropts)
	}
}

func (o *cliOptions) export(w io.Writer, r *model.Report) error {
	if o.exportPath == "-" {
		if o.format == "yaml" {
			return ops.WriteYAML(w, r, version)
		}
		return ops.WriteJSON(w, r, version)
	}

	var err error
	switch strings.ToLower(filepath.Ext(o.exportPath)) {
	case ".yaml", ".yml":
		err = ops.ExportYAML(r, o.exportPath, version)
	default:
		err = ops.ExportJSON(r, o.exportPath, version)
	}
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	fmt.Fprintf(w, "Exported to %s\n", o.exportPath)
	return nil
}

func (o *cliOptions) runTUI(ctx context.Context, app *ui.App) error {
	app.Version = version
	app.ExportPath = ui.DefaultExportPath
	if o.exportPath != "" && o.exportPath != "-" {
		app.ExportPath = o.exportPath
	}

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if ctx.Err() != nil {
			return &scanner.CancellationError{Err: ctx.Err()}
		}
		return err
	}
	return app.FatalError()
}

func isTerminal(w io.Writer) bool {
	_, ok := terminalWidth(w)
	return ok
}

func terminalWidth(w io.Writer) (int, bool) {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0, false
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		width = 80
	}
	return width, true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

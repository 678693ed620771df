// Package config loads godupe settings from an ini file and GODUPE_*
// environment variables. Command-line flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-ini/ini"
	"github.com/kelseyhightower/envconfig"
	"github.com/sadopc/godupe/internal/digest"
	"github.com/sadopc/godupe/internal/remote"
	"github.com/sadopc/godupe/internal/scanner"
)

// EnvPrefix is the prefix of environment overrides, e.g. GODUPE_SCAN_ALGORITHM.
const EnvPrefix = "GODUPE"

// ScanConfig is the [scan] section.
type ScanConfig struct {
	Algorithm      string   `ini:"algorithm" envconfig:"ALGORITHM"`
	Concurrency    int      `ini:"concurrency" envconfig:"CONCURRENCY"`
	FollowSymlinks bool     `ini:"follow_symlinks" envconfig:"FOLLOW_SYMLINKS"`
	BufferSize     string   `ini:"buffer_size" envconfig:"BUFFER_SIZE"`
	MinSize        string   `ini:"min_size" envconfig:"MIN_SIZE"`
	Exclude        []string `ini:"exclude" delim:"," envconfig:"EXCLUDE"`
	ShowHidden     bool     `ini:"show_hidden" envconfig:"SHOW_HIDDEN"`
	SizePrefilter  bool     `ini:"size_prefilter" envconfig:"SIZE_PREFILTER"`
}

// SSHConfig is the [ssh] section.
type SSHConfig struct {
	Port           int           `ini:"port" envconfig:"PORT"`
	Batch          bool          `ini:"batch" envconfig:"BATCH"`
	Timeout        time.Duration `ini:"timeout" envconfig:"TIMEOUT"`
	ScanTimeout    time.Duration `ini:"scan_timeout" envconfig:"SCAN_TIMEOUT"`
	KnownHostsFile string        `ini:"known_hosts" envconfig:"KNOWN_HOSTS"`
}

// LogConfig is the [log] section.
type LogConfig struct {
	Level string `ini:"level" envconfig:"LEVEL"`
	JSON  bool   `ini:"json" envconfig:"JSON"`
}

// Config is the merged file and environment configuration.
type Config struct {
	Scan ScanConfig `ini:"scan"`
	SSH  SSHConfig  `ini:"ssh"`
	Log  LogConfig  `ini:"log"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Scan: ScanConfig{
			Algorithm:   digest.DefaultAlgorithm,
			Concurrency: 1,
			BufferSize:  strconv.Itoa(digest.DefaultBufferSize),
			MinSize:     "0",
			ShowHidden:  true,
		},
		SSH: SSHConfig{
			Port:    22,
			Timeout: 15 * time.Second,
		},
		Log: LogConfig{Level: "warn"},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/godupe/config.ini or its platform equivalent.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "godupe", "config.ini")
}

// Load reads path over the defaults, then applies environment overrides.
// An empty path means DefaultPath, which may be absent. An explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			if explicit || !errors.Is(err, os.ErrNotExist) {
				return nil, err
			}
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("parsing environment variables: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("config file: %w", err)
	}
	f, err := ini.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load config file: %w", err)
	}
	if err := f.MapTo(c); err != nil {
		return fmt.Errorf("failed to map config file %s: %w", path, err)
	}
	return nil
}

// Validate checks values that the file format cannot.
func (c *Config) Validate() error {
	if _, err := digest.LookupAlgorithm(c.Scan.Algorithm); err != nil {
		return fmt.Errorf("scan.algorithm: %w", err)
	}
	if c.Scan.Concurrency < 0 {
		return fmt.Errorf("scan.concurrency must be >= 0, got %d", c.Scan.Concurrency)
	}
	if _, err := parseBufferSize(c.Scan.BufferSize); err != nil {
		return err
	}
	if _, err := ParseSize(c.Scan.MinSize); err != nil {
		return fmt.Errorf("scan.min_size: %w", err)
	}
	if c.SSH.Port < 1 || c.SSH.Port > 65535 {
		return fmt.Errorf("ssh.port must be between 1 and 65535, got %d", c.SSH.Port)
	}
	if c.SSH.Timeout < 0 || c.SSH.ScanTimeout < 0 {
		return fmt.Errorf("ssh timeouts must be >= 0")
	}
	return nil
}

// parseBufferSize parses scan.buffer_size and checks it before it can
// overflow an int on 32-bit platforms.
func parseBufferSize(s string) (int64, error) {
	n, err := ParseSize(s)
	if err != nil {
		return 0, fmt.Errorf("scan.buffer_size: %w", err)
	}
	if n > digest.MaxBufferSize {
		return 0, fmt.Errorf("scan.buffer_size: %s exceeds the 64M limit", s)
	}
	return n, nil
}

// ScanOptions converts the [scan] section.
func (c *Config) ScanOptions() (scanner.ScanOptions, error) {
	opts := scanner.DefaultOptions()
	bufSize, err := parseBufferSize(c.Scan.BufferSize)
	if err != nil {
		return opts, err
	}
	minSize, err := ParseSize(c.Scan.MinSize)
	if err != nil {
		return opts, fmt.Errorf("scan.min_size: %w", err)
	}

	opts.Algorithm = c.Scan.Algorithm
	opts.Concurrency = c.Scan.Concurrency
	opts.FollowSymlinks = c.Scan.FollowSymlinks
	opts.BufferSize = int(bufSize)
	opts.MinSize = minSize
	opts.ShowHidden = c.Scan.ShowHidden
	opts.SizePrefilter = c.Scan.SizePrefilter
	opts.ExcludePatterns = append([]string{}, c.Scan.Exclude...)
	return opts, opts.Validate()
}

// Remote converts the [ssh] section for target.
func (c *Config) Remote(target string) remote.Config {
	return remote.Config{
		Target:         target,
		Port:           c.SSH.Port,
		BatchMode:      c.SSH.Batch,
		Timeout:        c.SSH.Timeout,
		ScanTimeout:    c.SSH.ScanTimeout,
		KnownHostsFile: c.SSH.KnownHostsFile,
	}
}

// ParseSize parses a byte count with an optional K, M, G or T suffix
// (powers of 1024, optional trailing "B" or "iB").
func ParseSize(orig string) (int64, error) {
	s := strings.ToUpper(strings.TrimSpace(orig))
	if s == "" {
		return 0, nil
	}
	s = strings.TrimSuffix(strings.TrimSuffix(s, "IB"), "B")

	mult := int64(1)
	if n := len(s); n > 0 {
		switch s[n-1] {
		case 'K':
			mult = 1 << 10
		case 'M':
			mult = 1 << 20
		case 'G':
			mult = 1 << 30
		case 'T':
			mult = 1 << 40
		}
		if mult > 1 {
			s = strings.TrimSpace(s[:n-1])
		}
	}

	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q", orig)
	}
	if v < 0 {
		return 0, fmt.Errorf("size must be >= 0, got %d", v)
	}
	if v > (1<<63-1)/mult {
		return 0, fmt.Errorf("size %q overflows", orig)
	}
	return v * mult, nil
}

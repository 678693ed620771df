package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.ini")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("AppData", t.TempDir())
}

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	opts, err := cfg.ScanOptions()
	require.NoError(t, err)
	assert.Equal(t, "md5", opts.Algorithm)
	assert.Equal(t, 1, opts.Concurrency)
	assert.Equal(t, 8192, opts.BufferSize)
	assert.True(t, opts.ShowHidden)
	assert.False(t, opts.FollowSymlinks)
}

func TestLoad_File(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `
[scan]
algorithm = sha256
concurrency = 8
follow_symlinks = true
buffer_size = 64K
min_size = 1MiB
exclude = node_modules, *.log
show_hidden = false
size_prefilter = true

[ssh]
port = 2222
batch = true
timeout = 5s

[log]
level = debug
json = true
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2222, cfg.SSH.Port)
	assert.True(t, cfg.SSH.Batch)
	assert.Equal(t, 5*time.Second, cfg.SSH.Timeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.JSON)

	opts, err := cfg.ScanOptions()
	require.NoError(t, err)
	assert.Equal(t, "sha256", opts.Algorithm)
	assert.Equal(t, 8, opts.Concurrency)
	assert.True(t, opts.FollowSymlinks)
	assert.Equal(t, 64*1024, opts.BufferSize)
	assert.Equal(t, int64(1<<20), opts.MinSize)
	assert.Equal(t, []string{"node_modules", "*.log"}, opts.ExcludePatterns)
	assert.False(t, opts.ShowHidden)
	assert.True(t, opts.SizePrefilter)

	rc := cfg.Remote("alice@host")
	assert.Equal(t, "alice@host", rc.Target)
	assert.Equal(t, 2222, rc.Port)
	assert.True(t, rc.BatchMode)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	isolate(t)
	path := writeConfig(t, "[scan]\nalgorithm = sha256\nconcurrency = 2\n")
	t.Setenv("GODUPE_SCAN_ALGORITHM", "xxh64")
	t.Setenv("GODUPE_SCAN_EXCLUDE", "a,b")
	t.Setenv("GODUPE_SSH_TIMEOUT", "1m")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "xxh64", cfg.Scan.Algorithm)
	assert.Equal(t, 2, cfg.Scan.Concurrency)
	assert.Equal(t, []string{"a", "b"}, cfg.Scan.Exclude)
	assert.Equal(t, time.Minute, cfg.SSH.Timeout)
}

func TestLoad_Errors(t *testing.T) {
	isolate(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.ini"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	tests := map[string]string{
		"algorithm":   "[scan]\nalgorithm = crc32\n",
		"concurrency": "[scan]\nconcurrency = -2\n",
		"buffer":      "[scan]\nbuffer_size = lots\n",
		"huge buffer": "[scan]\nbuffer_size = 1T\n",
		"port":        "[ssh]\nport = 70000\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			assert.Error(t, err)
		})
	}

	t.Run("bad env", func(t *testing.T) {
		t.Setenv("GODUPE_SCAN_CONCURRENCY", "many")
		_, err := Load("")
		assert.Error(t, err)
	})
}

func TestScanOptions_BufferSizeLimit(t *testing.T) {
	cfg := Default()
	cfg.Scan.BufferSize = "64M"
	opts, err := cfg.ScanOptions()
	require.NoError(t, err)
	assert.Equal(t, 64<<20, opts.BufferSize)

	cfg.Scan.BufferSize = "1T"
	_, err = cfg.ScanOptions()
	assert.ErrorContains(t, err, "scan.buffer_size")
	assert.Error(t, cfg.Validate())
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "", want: 0},
		{in: "0", want: 0},
		{in: "512", want: 512},
		{in: "100B", want: 100},
		{in: "8k", want: 8 << 10},
		{in: "8 KB", want: 8 << 10},
		{in: "2M", want: 2 << 20},
		{in: "1GiB", want: 1 << 30},
		{in: "1T", want: 1 << 40},
		{in: "-1", wantErr: true},
		{in: "ten", wantErr: true},
		{in: "99999999999T", wantErr: true},
	}
	for _, tc := range tests {
		got, err := ParseSize(tc.in)
		if tc.wantErr {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lfs-debug.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	t.Setenv("LFS_DEBUG_ENV", "development")

	require.NoError(t, Reload(""))
	assert.False(t, ConfigLoaded)
	assert.Equal(t, uint32(4096), Instance.Device.BlockSize)
	assert.Equal(t, []uint32{0, 1}, Instance.Device.Roots)
	assert.Equal(t, 64, Instance.Device.CacheBlocks)
	assert.Equal(t, "text", Instance.Report.Format)
	assert.Equal(t, "tree", Instance.Report.Mode)
	assert.True(t, Instance.Report.Truncate)
	assert.Equal(t, 16, Instance.Report.PreviewBytes)
	assert.Equal(t, "human", Instance.LogFormat)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
debug: true
log_format: json
device:
  block_size: 512
  block_count: 128
  roots: [2, 3]
  mmap: true
walk:
  max_mdirs: 100
report:
  format: yaml
  mode: tags
  truncate: false
  digest: blake3
`)

	require.NoError(t, Reload(path))
	assert.True(t, ConfigLoaded)
	assert.Equal(t, path, ConfigFile)
	assert.True(t, Instance.Debug)
	assert.Equal(t, uint32(512), Instance.Device.BlockSize)
	assert.Equal(t, uint32(128), Instance.Device.BlockCount)
	assert.Equal(t, []uint32{2, 3}, Instance.Device.Roots)
	assert.True(t, Instance.Device.Mmap)
	assert.Equal(t, 100, Instance.Walk.MaxMdirs)
	assert.Equal(t, "yaml", Instance.Report.Format)
	assert.Equal(t, "tags", Instance.Report.Mode)
	assert.False(t, Instance.Report.Truncate)
	assert.Equal(t, "blake3", Instance.Report.Digest)
}

func TestEnvOverride(t *testing.T) {
	path := writeConfig(t, "device:\n  block_size: 512\n")
	t.Setenv("LFS_DEBUG_DEVICE_BLOCK_SIZE", "1024")
	t.Setenv("LFS_DEBUG_REPORT_FORMAT", "json")

	require.NoError(t, Reload(path))
	assert.Equal(t, uint32(1024), Instance.Device.BlockSize)
	assert.Equal(t, "json", Instance.Report.Format)
}

func TestInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"tiny block", "device:\n  block_size: 16\n"},
		{"one root", "device:\n  roots: [0]\n"},
		{"negative cap", "walk:\n  max_mdirs: -1\n"},
		{"log format", "log_format: xml\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, Reload(writeConfig(t, tt.body)))
		})
	}
}

func TestUnreadableConfig(t *testing.T) {
	path := writeConfig(t, "device: [unclosed\n")
	assert.Error(t, Reload(path))
}

func TestDefaultLogFile(t *testing.T) {
	t.Setenv("LFS_DEBUG_ENV", "development")
	assert.Equal(t, filepath.Join("logs", "lfs-debug.log"), DefaultLogFile())
}

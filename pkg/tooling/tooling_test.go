package tooling_test

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	compression "github.com/deploymenttheory/go-lfs-debug/internal/common/compressionutil"
	"github.com/deploymenttheory/go-lfs-debug/internal/config"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/builder"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/report"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/types"
	"github.com/deploymenttheory/go-lfs-debug/pkg/tooling"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func demoOptions() tooling.Options {
	opts := tooling.DefaultOptions()
	opts.BlockSize = builder.DemoBlockSize
	return opts
}

func writeDemo(t *testing.T, format compression.Format) string {
	t.Helper()
	img, err := builder.Demo()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "demo.img")
	require.NoError(t, compression.WriteFile(path, img.Bytes(), format))
	return path
}

func TestInspect(t *testing.T) {
	for _, format := range []compression.Format{compression.FormatNone, compression.FormatGzip, compression.FormatZstd, compression.FormatXZ} {
		t.Run(string(format), func(t *testing.T) {
			res, err := tooling.Inspect(writeDemo(t, format), demoOptions())
			require.NoError(t, err)
			assert.Equal(t, 0, res.ExitCode())
			assert.Len(t, res.Dirs, 3)
			require.NotNil(t, res.Superblock)
			assert.Equal(t, uint32(builder.DemoBlockSize), res.Superblock.BlockSize)

			e, err := res.Lookup("/docs/readme.md")
			require.NoError(t, err)
			assert.Equal(t, "readme.md", e.Name)
		})
	}
}

func TestInspectWithMmap(t *testing.T) {
	opts := demoOptions()
	opts.Mmap = true
	res, err := tooling.Inspect(writeDemo(t, compression.FormatNone), opts)
	require.NoError(t, err)
	assert.Empty(t, res.Diagnostics)
}

func TestInspectMissingImage(t *testing.T) {
	_, err := tooling.Inspect(filepath.Join(t.TempDir(), "missing.img"), demoOptions())
	assert.Error(t, err)
}

func TestInspectWrongRoots(t *testing.T) {
	opts := demoOptions()
	opts.Roots = types.Pair{40, 41}
	res, err := tooling.Inspect(writeDemo(t, compression.FormatNone), opts)
	require.NoError(t, err)
	assert.NotZero(t, res.ExitCode())
}

func TestReportJSON(t *testing.T) {
	ropts := report.DefaultOptions()
	ropts.Format = report.FormatJSON

	var buf bytes.Buffer
	code, err := tooling.Report(&buf, writeDemo(t, compression.FormatNone), demoOptions(), ropts)
	require.NoError(t, err)
	assert.Equal(t, 0, code)

	var doc report.Document
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, uint32(builder.DemoBlockSize), doc.BlockSize)
	assert.Equal(t, uint32(builder.DemoBlockCount), doc.BlockCount)
	assert.Len(t, doc.Dirs, 3)
}

func TestOptionsFromConfig(t *testing.T) {
	var c config.AppConfig
	c.Device.BlockSize = 512
	c.Device.BlockCount = 10
	c.Device.Roots = []uint32{4, 5}
	c.Device.CacheBlocks = 8
	c.Walk.MaxMdirs = 3

	opts := tooling.OptionsFromConfig(c)
	assert.Equal(t, uint32(512), opts.BlockSize)
	assert.Equal(t, uint32(10), opts.BlockCount)
	assert.Equal(t, types.Pair{4, 5}, opts.Roots)
	assert.Equal(t, 8, opts.CacheBlocks)
	assert.Equal(t, 3, opts.MaxMdirs)

	assert.Equal(t, types.RootPair, tooling.OptionsFromConfig(config.AppConfig{}).Roots)
}

func TestVersion(t *testing.T) {
	assert.NotEmpty(t, tooling.GetVersion())
	assert.NoError(t, tooling.Shutdown())
}

package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T, level zap.AtomicLevel) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(level)
	prev := Logger
	Logger = zap.New(core).Sugar()
	t.Cleanup(func() { Logger = prev })
	return logs
}

func TestDefaultLoggerIsUsable(t *testing.T) {
	assert.NotPanics(t, func() {
		LogDebug("walk step", map[string]interface{}{"pair": "{0x0, 0x1}"})
		LogInfo("walk done", nil)
	})
}

func TestLogFields(t *testing.T) {
	logs := observe(t, zap.NewAtomicLevelAt(zap.DebugLevel))

	LogDebug("parsed mdir", map[string]interface{}{"rev": 3, "block": 0})
	LogWarn("block size mismatch", map[string]interface{}{"superblock": 512})
	LogError("fetch failed", os.ErrNotExist, nil)
	WithField("image", "a.img").Info("opened")

	entries := logs.AllUntimed()
	require.Len(t, entries, 4)

	assert.Equal(t, "parsed mdir", entries[0].Message)
	assert.Equal(t, map[string]interface{}{"rev": int64(3), "block": int64(0)}, entries[0].ContextMap())
	assert.Equal(t, zap.WarnLevel, entries[1].Level)
	assert.Equal(t, os.ErrNotExist.Error(), entries[2].ContextMap()["error"])
	assert.Equal(t, "a.img", entries[3].ContextMap()["image"])
}

func TestLogErrorNilError(t *testing.T) {
	logs := observe(t, zap.NewAtomicLevelAt(zap.DebugLevel))

	LogError("plan invalid", nil, map[string]interface{}{"images": 0})

	entries := logs.AllUntimed()
	require.Len(t, entries, 1)
	_, ok := entries[0].ContextMap()["error"]
	assert.False(t, ok)
}

func TestFlattenFieldsSorted(t *testing.T) {
	flat := flattenFields(map[string]interface{}{"b": 2, "a": 1})
	assert.Equal(t, []interface{}{"a", 1, "b", 2}, flat)
	assert.Empty(t, flattenFields(nil))
}

func TestInitLoggerWithFile(t *testing.T) {
	prev := Logger
	t.Cleanup(func() { Logger = prev })

	path := filepath.Join(t.TempDir(), "logs", "lfs-debug.log")
	require.NoError(t, InitLogger(LoggerConfig{Debug: true, LogFormat: "json", LogFile: path}))

	LogDebug("hello", map[string]interface{}{"k": "v"})
	_ = Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `"msg":"hello"`), string(data))
	assert.True(t, strings.Contains(string(data), `"k":"v"`), string(data))
}

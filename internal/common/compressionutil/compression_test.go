package compression

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleImage() []byte {
	data := make([]byte, 4096)
	for i := range data {
		data[i] = 0xFF
	}
	copy(data, []byte("littlefs"))
	return data
}

func TestRoundTripAllFormats(t *testing.T) {
	formats := []Format{FormatNone, FormatGzip, FormatZstd, FormatXZ, FormatBzip2, FormatLZ4}
	dir := t.TempDir()
	for _, format := range formats {
		t.Run(string(format)+"-image", func(t *testing.T) {
			path := filepath.Join(dir, "image-"+string(format))
			require.NoError(t, WriteFile(path, sampleImage(), format))

			raw, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, format, DetectFormat(raw))

			got, detected, err := ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, format, detected)
			assert.True(t, bytes.Equal(sampleImage(), got))
		})
	}
}

func TestDetectFormatRaw(t *testing.T) {
	assert.Equal(t, FormatNone, DetectFormat([]byte{0x01, 0x00, 0x00, 0x00}))
	assert.Equal(t, FormatNone, DetectFormat(nil))
}

func TestFormatFromExtension(t *testing.T) {
	tests := map[string]Format{
		"disk.img":     FormatNone,
		"disk.img.gz":  FormatGzip,
		"disk.img.zst": FormatZstd,
		"disk.img.XZ":  FormatXZ,
		"disk.bz2":     FormatBzip2,
		"disk.lz4":     FormatLZ4,
	}
	for name, expected := range tests {
		assert.Equal(t, expected, FormatFromExtension(name), name)
	}
}

func TestUnsupportedFormat(t *testing.T) {
	_, err := NewReader(Format("rar"), bytes.NewReader(nil))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

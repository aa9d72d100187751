package device

import (
	"bytes"
)

// MemDevice serves an image held in memory
type MemDevice struct {
	r    *bytes.Reader
	size int64
}

// NewMemDevice wraps data; data must not be modified afterwards
func NewMemDevice(data []byte) *MemDevice {
	return &MemDevice{r: bytes.NewReader(data), size: int64(len(data))}
}

// ReadAt implements io.ReaderAt
func (d *MemDevice) ReadAt(p []byte, off int64) (int, error) {
	return d.r.ReadAt(p, off)
}

// Size returns the image size
func (d *MemDevice) Size() int64 {
	return d.size
}

// Close is a no-op
func (d *MemDevice) Close() error {
	return nil
}

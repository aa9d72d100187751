package device

import (
	"io"
	"os"

	"github.com/edsrzf/mmap-go"
)

// MmapDevice serves an image through a read-only memory mapping
type MmapDevice struct {
	f *os.File
	m mmap.MMap
}

func newMmapDevice(f *os.File) (*MmapDevice, error) {
	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	// zero-length files cannot be mapped
	if stat.Size() == 0 {
		return &MmapDevice{f: f}, nil
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, err
	}
	return &MmapDevice{f: f, m: m}, nil
}

// ReadAt implements io.ReaderAt
func (d *MmapDevice) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(d.m)) {
		return 0, io.EOF
	}
	n := copy(p, d.m[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Size returns the mapped size
func (d *MmapDevice) Size() int64 {
	return int64(len(d.m))
}

// Close unmaps and closes the file
func (d *MmapDevice) Close() error {
	var err error
	if d.m != nil {
		err = d.m.Unmap()
	}
	if cerr := d.f.Close(); err == nil {
		err = cerr
	}
	return err
}

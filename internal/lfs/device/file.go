package device

import (
	"io"
	"os"

	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/types"
)

// FileDevice reads an image through an open file
type FileDevice struct {
	f    *os.File
	size int64
}

func newFileDevice(f *os.File) (*FileDevice, error) {
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, types.NewLFSError(types.ErrIOError, "OpenFileDevice", f.Name(), err.Error())
	}
	return &FileDevice{f: f, size: stat.Size()}, nil
}

// ReadAt implements io.ReaderAt. Reads past the end return io.EOF with no error
// wrapping so padding callers can tell them apart from I/O failures.
func (d *FileDevice) ReadAt(p []byte, off int64) (int, error) {
	if off >= d.size {
		return 0, io.EOF
	}
	return d.f.ReadAt(p, off)
}

// Size returns the file size
func (d *FileDevice) Size() int64 {
	return d.size
}

// Close closes the underlying file
func (d *FileDevice) Close() error {
	return d.f.Close()
}

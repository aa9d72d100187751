// Package device provides read-only block access to filesystem images.
//
// Reads never fail on short data: bytes past the end of the image read back as
// 0xFF, the value of erased flash, so a truncated image parses as garbage and
// is rejected by checksums rather than by the reader.
package device

import (
	"fmt"
	"io"
	"os"

	compression "github.com/deploymenttheory/go-lfs-debug/internal/common/compressionutil"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/types"
)

// Erased is the fill value for bytes the device cannot supply
const Erased byte = 0xFF

// Device is a read-only backing store for an image
type Device interface {
	io.ReaderAt
	// Size returns the image size in bytes
	Size() int64
	Close() error
}

// OpenOptions selects how an image file is opened
type OpenOptions struct {
	Mmap bool // map the file instead of issuing reads
}

// Open opens an image. Compressed images are decoded into memory; raw images
// are read through the file or, with Mmap, through a memory mapping.
func Open(path string, opts OpenOptions) (Device, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, types.NewLFSError(types.ErrIOError, "Open", path, err.Error())
	}

	header := make([]byte, compression.HeaderLen)
	n, _ := f.ReadAt(header, 0)
	if format := compression.DetectFormat(header[:n]); format != compression.FormatNone {
		f.Close()
		data, _, err := compression.ReadFile(path)
		if err != nil {
			return nil, types.NewLFSError(types.ErrIOError, "Open", path, err.Error())
		}
		return NewMemDevice(data), nil
	}

	if opts.Mmap {
		dev, err := newMmapDevice(f)
		if err != nil {
			f.Close()
			return nil, types.NewLFSError(types.ErrIOError, "Open", path, err.Error())
		}
		return dev, nil
	}

	return newFileDevice(f)
}

// ReadBlock reads block index of blockSize bytes, padding short reads with
// Erased
func ReadBlock(dev io.ReaderAt, index types.Block, blockSize uint32) ([]byte, error) {
	return ReadRange(dev, index, blockSize, 0, blockSize)
}

// ReadRange reads length bytes at off within block index, with the same
// padding convention as ReadBlock
func ReadRange(dev io.ReaderAt, index types.Block, blockSize, off, length uint32) ([]byte, error) {
	if blockSize == 0 {
		return nil, types.NewLFSError(types.ErrInvalidBlockSize, "ReadRange", fmt.Sprintf("block 0x%x", uint32(index)), "block size is zero")
	}
	buf := make([]byte, length)
	pos := int64(index)*int64(blockSize) + int64(off)
	n, err := dev.ReadAt(buf, pos)
	if err != nil && err != io.EOF {
		return nil, types.NewLFSError(types.ErrIOError, "ReadRange", fmt.Sprintf("block 0x%x", uint32(index)), err.Error())
	}
	for i := n; i < len(buf); i++ {
		buf[i] = Erased
	}
	return buf, nil
}

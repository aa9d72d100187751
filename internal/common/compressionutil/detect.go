// Package compression opens filesystem images that were stored compressed.
// Images are small enough to decode fully into memory; the decoder only ever
// needs random access to the decompressed bytes.
package compression

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Format identifies a compression container
type Format string

const (
	FormatNone  Format = ""
	FormatGzip  Format = "gzip"
	FormatZstd  Format = "zstd"
	FormatXZ    Format = "xz"
	FormatBzip2 Format = "bzip2"
	FormatLZ4   Format = "lz4"
)

// ErrUnsupportedFormat is returned for formats this package cannot decode
var ErrUnsupportedFormat = errors.New("unsupported compression format")

// magicNumbers is checked in order; the longest signatures come first
var magicNumbers = []struct {
	format Format
	magic  []byte
}{
	{FormatXZ, []byte{0xFD, 0x37, 0x7A, 0x58, 0x5A, 0x00}},
	{FormatZstd, []byte{0x28, 0xB5, 0x2F, 0xFD}},
	{FormatLZ4, []byte{0x04, 0x22, 0x4D, 0x18}},
	{FormatBzip2, []byte{0x42, 0x5A, 0x68}},
	{FormatGzip, []byte{0x1F, 0x8B}},
}

// HeaderLen is how many leading bytes DetectFormat needs
const HeaderLen = 6

// DetectFormat identifies the compression format from the first bytes of a file.
// A raw image returns FormatNone.
func DetectFormat(header []byte) Format {
	for _, m := range magicNumbers {
		if bytes.HasPrefix(header, m.magic) {
			return m.format
		}
	}
	return FormatNone
}

// FormatFromExtension maps a file name onto a format, for writers that have no
// header to sniff
func FormatFromExtension(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".gz", ".gzip":
		return FormatGzip
	case ".zst", ".zstd":
		return FormatZstd
	case ".xz":
		return FormatXZ
	case ".bz2":
		return FormatBzip2
	case ".lz4":
		return FormatLZ4
	default:
		return FormatNone
	}
}

// NewReader wraps r with a decompressor for format
func NewReader(format Format, r io.Reader) (io.ReadCloser, error) {
	switch format {
	case FormatNone:
		return io.NopCloser(r), nil
	case FormatGzip:
		return newGzipReader(r)
	case FormatZstd:
		return newZstdReader(r)
	case FormatXZ:
		return newXZReader(r)
	case FormatBzip2:
		return newBzip2Reader(r)
	case FormatLZ4:
		return newLZ4Reader(r), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// NewWriter wraps w with a compressor for format
func NewWriter(format Format, w io.Writer) (io.WriteCloser, error) {
	switch format {
	case FormatNone:
		return nopWriteCloser{w}, nil
	case FormatGzip:
		return newGzipWriter(w), nil
	case FormatZstd:
		return newZstdWriter(w)
	case FormatXZ:
		return newXZWriter(w)
	case FormatBzip2:
		return newBzip2Writer(w)
	case FormatLZ4:
		return newLZ4Writer(w), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// ReadFile reads path, transparently decompressing it when its header matches
// a known format
func ReadFile(path string) ([]byte, Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, FormatNone, err
	}
	defer f.Close()

	header := make([]byte, HeaderLen)
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, FormatNone, err
	}
	format := DetectFormat(header[:n])

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, format, err
	}

	rc, err := NewReader(format, f)
	if err != nil {
		return nil, format, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, format, fmt.Errorf("failed to decompress %s image: %w", format, err)
	}
	return data, format, nil
}

// WriteFile writes data to path, compressed with format
func WriteFile(path string, data []byte, format Format) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	wc, err := NewWriter(format, f)
	if err != nil {
		return err
	}
	if _, err := wc.Write(data); err != nil {
		wc.Close()
		return fmt.Errorf("failed to compress image: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to compress image: %w", err)
	}
	return f.Close()
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

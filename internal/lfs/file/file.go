// Package file reconstructs file contents from the three struct encodings:
// inline payloads, ctz skip-lists and B-trees of fragments.
package file

import (
	"fmt"
	"io"

	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/mdir"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/types"
)

// BlockReader is what reconstruction needs from device.Reader
type BlockReader interface {
	ReadBlock(b types.Block) ([]byte, error)
	BlockSize() uint32
	BlockCount() uint32
}

// Read returns the full contents of a file entry
func Read(r BlockReader, e mdir.Entry) ([]byte, error) {
	if e.Err != nil {
		return nil, e.Err
	}
	switch e.Struct {
	case mdir.StructNone:
		return []byte{}, nil
	case mdir.StructInline:
		return e.Inline, nil
	case mdir.StructCTZ:
		return ReadCTZ(r, e.Head, e.Size)
	case mdir.StructBTree:
		return ReadBTree(r, e.Head, e.Size)
	case mdir.StructDir:
		return nil, types.NewLFSError(types.ErrNotFile, "Read", e.Name, "")
	default:
		return nil, types.NewLFSError(types.ErrUnsupportedStruct, "Read", e.Name, string(e.Struct))
	}
}

// ReadAt returns up to n bytes at off. ctz files are read through FindCTZ
// and B-tree files through StreamBTree, so only the touched blocks are fetched
// and nothing past the window is materialized.
func ReadAt(r BlockReader, e mdir.Entry, off, n uint32) ([]byte, error) {
	if e.Err != nil {
		return nil, e.Err
	}
	switch e.Struct {
	case mdir.StructCTZ:
		return readCTZAt(r, e, off, n)
	case mdir.StructBTree:
		return ReadBTreeAt(r, e.Head, e.Size, off, n)
	}
	data, err := Read(r, e)
	if err != nil {
		return nil, err
	}
	return window(data, off, n), nil
}

func readCTZAt(r BlockReader, e mdir.Entry, off, n uint32) ([]byte, error) {
	if off >= e.Size {
		return []byte{}, nil
	}
	if err := checkCTZSize(r, e.Head, e.Size); err != nil {
		return nil, err
	}
	if n > e.Size-off {
		n = e.Size - off
	}
	out := make([]byte, 0, n)
	for pos := off; pos < off+n; {
		b, boff, err := FindCTZ(r, e.Head, e.Size, pos)
		if err != nil {
			return nil, err
		}
		buf, err := r.ReadBlock(b)
		if err != nil {
			return nil, types.NewLFSError(err, "ReadAt", e.Name, fmt.Sprintf("block 0x%x", uint32(b)))
		}
		take := r.BlockSize() - boff
		if rest := off + n - pos; take > rest {
			take = rest
		}
		out = append(out, buf[boff:boff+take]...)
		pos += take
	}
	return out, nil
}

// WriteTo streams the full contents of a file entry to w without holding the
// whole file in memory. It returns the number of bytes written.
func WriteTo(w io.Writer, r BlockReader, e mdir.Entry) (int64, error) {
	if e.Err != nil {
		return 0, e.Err
	}
	var written int64
	emit := func(p []byte) error {
		n, err := w.Write(p)
		written += int64(n)
		return err
	}
	var err error
	switch e.Struct {
	case mdir.StructCTZ:
		err = StreamCTZ(r, e.Head, e.Size, emit)
	case mdir.StructBTree:
		err = StreamBTree(r, e.Head, e.Size, 0, e.Size, emit)
	default:
		var data []byte
		if data, err = Read(r, e); err == nil {
			err = emit(data)
		}
	}
	return written, err
}

func window(data []byte, off, n uint32) []byte {
	if uint64(off) >= uint64(len(data)) {
		return []byte{}
	}
	end := uint64(off) + uint64(n)
	if end > uint64(len(data)) {
		end = uint64(len(data))
	}
	return data[off:end]
}

package file

import (
	"errors"
	"fmt"

	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/commit"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/tag"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/types"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/varint"
)

// LeafFunc is called for every non-branch entry of a B-tree, in id order.
// node is the block holding the entry.
type LeafFunc func(node types.Block, t tag.Tag) error

type frame struct {
	node types.Block
	tags []tag.Tag
	next int
}

// Leaves walks the B-tree rooted at root depth first with an explicit stack.
// Each node is a single block holding one commit log; branch entries descend
// into the child node. A node reached twice fails with ErrCycleDetected.
func Leaves(r BlockReader, root types.Block, fn LeafFunc) error {
	visited := map[types.Block]bool{}
	load := func(b types.Block) (*frame, error) {
		if visited[b] {
			return nil, types.NewLFSError(types.ErrCycleDetected, "Leaves", fmt.Sprintf("node 0x%x", uint32(b)), "node reached twice")
		}
		visited[b] = true
		buf, err := r.ReadBlock(b)
		if err != nil {
			return nil, types.NewLFSError(err, "Leaves", fmt.Sprintf("node 0x%x", uint32(b)), "")
		}
		log := commit.ParseBlock(buf)
		if !log.Valid() {
			return nil, types.NewLFSError(types.ErrBadStruct, "Leaves", fmt.Sprintf("node 0x%x", uint32(b)), "no valid commit")
		}
		var tags []tag.Tag
		for _, t := range log.Table.Tags() {
			if t.HasID() {
				tags = append(tags, t)
			}
		}
		return &frame{node: b, tags: tags}, nil
	}

	top, err := load(root)
	if err != nil {
		return err
	}
	stack := []*frame{top}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		if f.next >= len(f.tags) {
			stack = stack[:len(stack)-1]
			continue
		}
		t := f.tags[f.next]
		f.next++

		if t.Type&tag.TypeMask == tag.Branch {
			child := types.Block(varint.ReadU32LEOr(t.Payload, varint.Unset))
			cf, err := load(child)
			if err != nil {
				return err
			}
			stack = append(stack, cf)
			continue
		}
		if err := fn(f.node, t); err != nil {
			return err
		}
	}
	return nil
}

// Fragment is a decoded B-tree data leaf
type Fragment struct {
	Span   uint32      // logical bytes covered, zero-filled past the data
	Block  types.Block // NoBlock for inline fragments
	Off    uint32
	Size   uint32
	Inline []byte
}

// DecodeFragment decodes a data leaf of a file B-tree
func DecodeFragment(t tag.Tag) (Fragment, error) {
	switch t.Type & tag.TypeMask {
	case tag.Inlined:
		return Fragment{Span: t.Weight, Block: types.NoBlock, Size: uint32(len(t.Payload)), Inline: t.Payload}, nil
	case tag.BlockPtr:
		p := t.Payload
		b, err := varint.ReadU32LE(p)
		if err != nil {
			return Fragment{}, types.NewLFSError(types.ErrBadStruct, "DecodeFragment", tag.Label(t.Type), "short block pointer")
		}
		p = p[4:]
		if !varint.Terminated(p) {
			return Fragment{}, types.NewLFSError(types.ErrBadStruct, "DecodeFragment", tag.Label(t.Type), "unterminated offset")
		}
		off, w := varint.ReadLEB128(p)
		p = p[w:]
		if !varint.Terminated(p) {
			return Fragment{}, types.NewLFSError(types.ErrBadStruct, "DecodeFragment", tag.Label(t.Type), "unterminated size")
		}
		size, _ := varint.ReadLEB128(p)
		return Fragment{Span: t.Weight, Block: types.Block(b), Off: off, Size: size}, nil
	default:
		return Fragment{}, types.NewLFSError(types.ErrUnsupportedStruct, "DecodeFragment", tag.Label(t.Type), "")
	}
}

// errWindowDone stops a leaf walk once the requested window is covered
var errWindowDone = errors.New("window covered")

var zeros [512]byte

func emitZeros(n uint64, emit func([]byte) error) error {
	for n > 0 {
		chunk := uint64(len(zeros))
		if n < chunk {
			chunk = n
		}
		if err := emit(zeros[:chunk]); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}

// fragmentData returns the stored bytes of frag, reading its block if needed
func fragmentData(r BlockReader, node types.Block, frag Fragment) ([]byte, error) {
	if frag.Block == types.NoBlock {
		return frag.Inline, nil
	}
	buf, err := r.ReadBlock(frag.Block)
	if err != nil {
		return nil, types.NewLFSError(err, "ReadBTree", fmt.Sprintf("node 0x%x", uint32(node)), "")
	}
	return buf[frag.Off : frag.Off+frag.Size], nil
}

// StreamBTree passes the bytes of [off, off+n) of a B-tree file to emit, in
// order and clipped to size. Each leaf covers Span logical bytes starting where
// the previous one ended; holes and the tail past the last leaf read as zeros.
// Leaves before the window are skipped unread and the walk stops at its end.
func StreamBTree(r BlockReader, root types.Block, size, off, n uint32, emit func([]byte) error) error {
	end := uint64(off) + uint64(n)
	if end > uint64(size) {
		end = uint64(size)
	}
	cursor := uint64(off)
	if cursor >= end {
		return nil
	}

	var pos uint64
	err := Leaves(r, root, func(node types.Block, t tag.Tag) error {
		frag, err := DecodeFragment(t)
		if err != nil {
			return err
		}
		if frag.Block != types.NoBlock && uint64(frag.Off)+uint64(frag.Size) > uint64(r.BlockSize()) {
			return types.NewLFSError(types.ErrBadStruct, "ReadBTree", fmt.Sprintf("node 0x%x", uint32(node)),
				fmt.Sprintf("fragment 0x%x off=%d size=%d past block end", uint32(frag.Block), frag.Off, frag.Size))
		}
		start := pos
		pos += uint64(frag.Span)
		if pos <= cursor {
			return nil
		}

		hi := pos
		if hi > end {
			hi = end
		}
		stored := uint64(frag.Size)
		if stored > uint64(frag.Span) {
			stored = uint64(frag.Span)
		}
		if dataEnd := start + stored; cursor < dataEnd {
			data, err := fragmentData(r, node, frag)
			if err != nil {
				return err
			}
			stop := dataEnd
			if stop > hi {
				stop = hi
			}
			if err := emit(data[cursor-start : stop-start]); err != nil {
				return err
			}
			cursor = stop
		}
		if err := emitZeros(hi-cursor, emit); err != nil {
			return err
		}
		cursor = hi
		if cursor >= end {
			return errWindowDone
		}
		return nil
	})
	if err != nil && !errors.Is(err, errWindowDone) {
		return err
	}
	return emitZeros(end-cursor, emit)
}

// ReadBTreeAt returns up to n bytes of a B-tree file starting at off
func ReadBTreeAt(r BlockReader, root types.Block, size, off, n uint32) ([]byte, error) {
	out := []byte{}
	err := StreamBTree(r, root, size, off, n, func(p []byte) error {
		out = append(out, p...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReadBTree reconstructs a whole B-tree file by concatenating its fragments
// in id order. Fragments past size are ignored and a short tree is
// zero-extended.
func ReadBTree(r BlockReader, root types.Block, size uint32) ([]byte, error) {
	return ReadBTreeAt(r, root, size, 0, size)
}

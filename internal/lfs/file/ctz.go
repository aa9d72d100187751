package file

import (
	"fmt"
	"math/bits"

	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/types"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/varint"
)

// PointerSize is the width of one skip pointer
const PointerSize = 4

// Pointers returns how many skip pointers the block at index n stores. Block
// n >= 1 points back to n-2^k for every k up to ctz(n).
func Pointers(n uint32) uint32 {
	if n == 0 {
		return 0
	}
	return uint32(bits.TrailingZeros32(n)) + 1
}

// Index maps a logical file position onto the chain: the index of the block
// holding pos and the byte offset inside that block, pointers included.
func Index(blockSize, pos uint32) (index, off uint32) {
	b := blockSize - 2*PointerSize
	i := pos / b
	if i == 0 {
		return 0, pos
	}
	i = (pos - PointerSize*(uint32(bits.OnesCount32(i-1))+2)) / b
	return i, pos - b*i - PointerSize*uint32(bits.OnesCount32(i))
}

func pointer(r BlockReader, b types.Block, k uint32) (types.Block, error) {
	buf, err := r.ReadBlock(b)
	if err != nil {
		return types.NoBlock, err
	}
	p, err := varint.ReadU32LE(buf[k*PointerSize:])
	if err != nil {
		return types.NoBlock, err
	}
	return types.Block(p), nil
}

// chain returns every block of a ctz list, index 0 first
func chain(r BlockReader, head types.Block, size uint32) ([]types.Block, uint32, error) {
	last, lastOff := Index(r.BlockSize(), size-1)
	blocks := make([]types.Block, last+1)
	cur := head
	for i := last; ; i-- {
		blocks[i] = cur
		if i == 0 {
			break
		}
		next, err := pointer(r, cur, 0)
		if err != nil {
			return nil, 0, types.NewLFSError(err, "ReadCTZ", fmt.Sprintf("block 0x%x", uint32(cur)), fmt.Sprintf("index %d", i))
		}
		cur = next
	}
	return blocks, lastOff, nil
}

// checkCTZSize rejects a ctz size no chain on the device could hold
func checkCTZSize(r BlockReader, head types.Block, size uint32) error {
	if uint64(size) > uint64(r.BlockCount())*uint64(r.BlockSize()) {
		return types.NewLFSError(types.ErrBadStruct, "ReadCTZ", fmt.Sprintf("head 0x%x", uint32(head)),
			fmt.Sprintf("size %d exceeds the device", size))
	}
	return nil
}

// StreamCTZ passes a ctz file's data regions to emit in order. The chain is
// walked from the head back to index 0 through each block's first pointer
// before any data is emitted.
func StreamCTZ(r BlockReader, head types.Block, size uint32, emit func([]byte) error) error {
	if size == 0 {
		return nil
	}
	if err := checkCTZSize(r, head, size); err != nil {
		return err
	}
	blocks, lastOff, err := chain(r, head, size)
	if err != nil {
		return err
	}

	var total uint64
	for i, b := range blocks {
		buf, err := r.ReadBlock(b)
		if err != nil {
			return types.NewLFSError(err, "ReadCTZ", fmt.Sprintf("block 0x%x", uint32(b)), fmt.Sprintf("index %d", i))
		}
		start := Pointers(uint32(i)) * PointerSize
		end := r.BlockSize()
		if i == len(blocks)-1 {
			end = lastOff + 1
		}
		if start > end {
			return types.NewLFSError(types.ErrBadStruct, "ReadCTZ", fmt.Sprintf("block 0x%x", uint32(b)), "data region before pointers")
		}
		if err := emit(buf[start:end]); err != nil {
			return err
		}
		total += uint64(end - start)
	}
	if total != uint64(size) {
		return types.NewLFSError(types.ErrBadStruct, "ReadCTZ", fmt.Sprintf("head 0x%x", uint32(head)),
			fmt.Sprintf("reconstructed %d bytes, want %d", total, size))
	}
	return nil
}

// ReadCTZ reconstructs a whole ctz file
func ReadCTZ(r BlockReader, head types.Block, size uint32) ([]byte, error) {
	out := []byte{}
	err := StreamCTZ(r, head, size, func(p []byte) error {
		out = append(out, p...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FindCTZ locates the block holding pos without walking the whole chain: from
// the head it takes the largest skip pointer that does not overshoot.
func FindCTZ(r BlockReader, head types.Block, size, pos uint32) (types.Block, uint32, error) {
	if pos >= size {
		return types.NoBlock, 0, types.NewLFSError(types.ErrBlockOutOfRange, "FindCTZ", fmt.Sprintf("head 0x%x", uint32(head)),
			fmt.Sprintf("position %d past size %d", pos, size))
	}
	cur, _ := Index(r.BlockSize(), size-1)
	target, off := Index(r.BlockSize(), pos)

	b := head
	for cur > target {
		skip := uint32(bits.Len32(cur-target)) - 1
		if tz := uint32(bits.TrailingZeros32(cur)); tz < skip {
			skip = tz
		}
		next, err := pointer(r, b, skip)
		if err != nil {
			return types.NoBlock, 0, types.NewLFSError(err, "FindCTZ", fmt.Sprintf("block 0x%x", uint32(b)), fmt.Sprintf("index %d", cur))
		}
		b = next
		cur -= 1 << skip
	}
	return b, off, nil
}

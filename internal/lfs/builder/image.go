package builder

import (
	"fmt"
	"math/bits"

	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/types"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/varint"
)

// Image is an in-memory device image under construction
type Image struct {
	BlockSize  uint32
	BlockCount uint32
	data       []byte
}

// NewImage returns an erased image
func NewImage(blockSize, blockCount uint32) *Image {
	data := make([]byte, int(blockSize)*int(blockCount))
	for i := range data {
		data[i] = 0xFF
	}
	return &Image{BlockSize: blockSize, BlockCount: blockCount, data: data}
}

// Bytes returns the image contents
func (img *Image) Bytes() []byte {
	return img.data
}

// Block returns a writable view of block b
func (img *Image) Block(b types.Block) []byte {
	off := int(b) * int(img.BlockSize)
	return img.data[off : off+int(img.BlockSize)]
}

// SetBlock copies data into block b
func (img *Image) SetBlock(b types.Block, data []byte) {
	copy(img.Block(b), data)
}

// NewBlock starts a commit log for this image's block size
func (img *Image) NewBlock(rev uint32) *BlockWriter {
	return NewBlock(img.BlockSize, rev)
}

// WriteMdir writes a metadata pair whose first block holds one commit per
// element of commits. The second block is left erased.
func (img *Image) WriteMdir(pair types.Pair, rev uint32, commits ...[]Tag) error {
	w := img.NewBlock(rev)
	for i, c := range commits {
		if err := w.Commit(c...); err != nil {
			return fmt.Errorf("mdir %v commit %d: %w", pair, i, err)
		}
	}
	img.SetBlock(pair[0], w.Bytes())
	return nil
}

// WriteNode writes a single-block B-tree node containing one commit
func (img *Image) WriteNode(b types.Block, entries ...Tag) error {
	w := img.NewBlock(1)
	if err := w.Commit(entries...); err != nil {
		return fmt.Errorf("node 0x%x: %w", uint32(b), err)
	}
	img.SetBlock(b, w.Bytes())
	return nil
}

// CTZPointers returns how many skip pointers block index n carries
func CTZPointers(n uint32) int {
	if n == 0 {
		return 0
	}
	return bits.TrailingZeros32(n) + 1
}

// WriteCTZ lays data out as a ctz chain over blocks, in order, and returns
// the head block and the number of blocks used
func (img *Image) WriteCTZ(blocks []types.Block, data []byte) (types.Block, int, error) {
	if len(data) == 0 {
		return types.NoBlock, 0, nil
	}
	pos := 0
	for i := 0; ; i++ {
		if i >= len(blocks) {
			return types.NoBlock, i, fmt.Errorf("ctz chain needs more than %d blocks", len(blocks))
		}
		buf := img.Block(blocks[i])
		off := 0
		for k := 0; k < CTZPointers(uint32(i)); k++ {
			copy(buf[off:], varint.PutU32LE(nil, uint32(blocks[i-(1<<k)])))
			off += 4
		}
		n := copy(buf[off:], data[pos:])
		pos += n
		if pos >= len(data) {
			return blocks[i], i + 1, nil
		}
	}
}

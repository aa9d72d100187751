package device

import (
	"fmt"

	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/types"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Reader reads whole blocks of a fixed geometry from a Device, optionally
// through an LRU cache. Walks revisit the same pairs when following tails and
// when dumping, so even a small cache saves most reads.
type Reader struct {
	dev        Device
	blockSize  uint32
	blockCount uint32
	cache      *lru.Cache[types.Block, []byte]
	reads      int
}

// NewReader creates a Reader. A zero blockCount is derived from the device
// size; cacheBlocks of zero disables caching.
func NewReader(dev Device, blockSize, blockCount uint32, cacheBlocks int) (*Reader, error) {
	if blockSize < 32 {
		return nil, types.NewLFSError(types.ErrInvalidBlockSize, "NewReader", "", fmt.Sprintf("block size %d is too small", blockSize))
	}
	if blockCount == 0 {
		blockCount = uint32(dev.Size() / int64(blockSize))
		if dev.Size()%int64(blockSize) != 0 {
			blockCount++
		}
	}
	r := &Reader{dev: dev, blockSize: blockSize, blockCount: blockCount}
	if cacheBlocks > 0 {
		cache, err := lru.New[types.Block, []byte](cacheBlocks)
		if err != nil {
			return nil, err
		}
		r.cache = cache
	}
	return r, nil
}

// BlockSize returns the configured block size
func (r *Reader) BlockSize() uint32 {
	return r.blockSize
}

// BlockCount returns the number of addressable blocks
func (r *Reader) BlockCount() uint32 {
	return r.blockCount
}

// Reads returns how many blocks were fetched from the device
func (r *Reader) Reads() int {
	return r.reads
}

// InRange reports whether b is addressable
func (r *Reader) InRange(b types.Block) bool {
	return b != types.NoBlock && uint32(b) < r.blockCount
}

// ReadBlock returns the contents of block b. The returned slice may be shared
// with the cache and must not be modified.
func (r *Reader) ReadBlock(b types.Block) ([]byte, error) {
	if !r.InRange(b) {
		return nil, types.NewLFSError(types.ErrBlockOutOfRange, "ReadBlock", fmt.Sprintf("block 0x%x", uint32(b)), fmt.Sprintf("block count %d", r.blockCount))
	}
	if r.cache != nil {
		if buf, ok := r.cache.Get(b); ok {
			return buf, nil
		}
	}
	buf, err := ReadBlock(r.dev, b, r.blockSize)
	if err != nil {
		return nil, err
	}
	r.reads++
	if r.cache != nil {
		r.cache.Add(b, buf)
	}
	return buf, nil
}

// ReadRange returns length bytes at off inside block b
func (r *Reader) ReadRange(b types.Block, off, length uint32) ([]byte, error) {
	if uint64(off)+uint64(length) > uint64(r.blockSize) {
		return nil, types.NewLFSError(types.ErrBlockOutOfRange, "ReadRange", fmt.Sprintf("block 0x%x", uint32(b)), fmt.Sprintf("off=%d length=%d block size=%d", off, length, r.blockSize))
	}
	buf, err := r.ReadBlock(b)
	if err != nil {
		return nil, err
	}
	out := make([]byte, length)
	copy(out, buf[off:off+length])
	return out, nil
}

// Close closes the underlying device
func (r *Reader) Close() error {
	return r.dev.Close()
}

// Package builder encodes valid (and deliberately damaged) images. The
// decoder's tests lean on it, and the fixture command uses it to produce demo
// images.
package builder

import (
	"fmt"

	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/checksum"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/tag"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/types"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/varint"
)

// Tag is one record to encode. Size is only used for alts, whose size field
// is a jump distance instead of a payload length.
type Tag struct {
	Type   uint16
	ID     uint16
	Weight uint32
	Size   uint32
	Data   []byte
}

// BlockWriter appends commits to a single block
type BlockWriter struct {
	buf  []byte
	off  int
	prev uint32
	crc  uint32

	// Align pads every commit so the next one starts on a multiple of Align
	Align int
	// ECheck, when non-zero, adds an erase check over that many bytes past
	// each commit
	ECheck uint32
}

// NewBlock starts an erased block with the given revision count
func NewBlock(blockSize uint32, rev uint32) *BlockWriter {
	buf := make([]byte, blockSize)
	for i := range buf {
		buf[i] = 0xFF
	}
	copy(buf, varint.PutU32LE(nil, rev))
	return &BlockWriter{
		buf: buf,
		off: 4,
		crc: checksum.Sum(buf[:4]),
	}
}

// Bytes returns the block contents
func (w *BlockWriter) Bytes() []byte {
	return w.buf
}

// Off returns the current append offset
func (w *BlockWriter) Off() int {
	return w.off
}

func (w *BlockWriter) encode(t Tag) []byte {
	raw, next := tag.EncodeWord(tag.Word{Valid: true, Type: t.Type, ID: t.ID}, w.prev)
	w.prev = next
	out := varint.PutU32LE(nil, raw)
	out = varint.AppendLEB128(out, t.Weight)
	if tag.IsAlt(t.Type) {
		return varint.AppendLEB128(out, t.Size)
	}
	out = varint.AppendLEB128(out, uint32(len(t.Data)))
	return append(out, t.Data...)
}

func (w *BlockWriter) write(p []byte) error {
	if w.off+len(p) > len(w.buf) {
		return fmt.Errorf("block full: need %d bytes at offset %d of %d", len(p), w.off, len(w.buf))
	}
	copy(w.buf[w.off:], p)
	w.crc = checksum.Update(w.crc, p)
	w.off += len(p)
	return nil
}

// Append writes tags without closing the commit, which leaves them
// uncommitted unless Commit follows
func (w *BlockWriter) Append(tags ...Tag) error {
	for _, t := range tags {
		if err := w.write(w.encode(t)); err != nil {
			return err
		}
	}
	return nil
}

// Commit writes tags followed by a checksum tag
func (w *BlockWriter) Commit(tags ...Tag) error {
	return w.commit(false, tags...)
}

// CommitCorrupt writes tags followed by a checksum tag holding the wrong CRC,
// as an interrupted or bit-flipped commit would
func (w *BlockWriter) CommitCorrupt(tags ...Tag) error {
	return w.commit(true, tags...)
}

func (w *BlockWriter) commit(corrupt bool, tags ...Tag) error {
	if err := w.Append(tags...); err != nil {
		return err
	}

	// the erase check describes the bytes after this commit, which are still
	// erased while it is written
	if w.ECheck > 0 {
		erased := make([]byte, w.ECheck)
		for i := range erased {
			erased[i] = 0xFF
		}
		payload := varint.AppendLEB128(nil, w.ECheck)
		payload = varint.PutU32LE(payload, checksum.Sum(erased))
		if err := w.Append(Tag{Type: tag.ECksum, ID: types.NoID, Data: payload}); err != nil {
			return err
		}
	}

	padding := 0
	if w.Align > 0 {
		// size of the header is needed before the padding is known; a
		// one-byte LEB128 covers any padding below 124
		hdr := tag.WordSize + 2
		end := w.off + hdr + 4
		padding = (w.Align - end%w.Align) % w.Align
	}

	raw, next := tag.EncodeWord(tag.Word{Valid: true, Type: tag.Cksum, ID: types.NoID}, w.prev)
	w.prev = next
	hdr := varint.PutU32LE(nil, raw)
	hdr = varint.AppendLEB128(hdr, 0)
	hdr = varint.AppendLEB128(hdr, uint32(4+padding))
	if err := w.write(hdr); err != nil {
		return err
	}
	crc := w.crc
	if corrupt {
		crc ^= 0x1
	}
	if w.off+4+padding > len(w.buf) {
		return fmt.Errorf("block full: no room for checksum at offset %d", w.off)
	}
	copy(w.buf[w.off:], varint.PutU32LE(nil, crc))
	for i := 0; i < padding; i++ {
		w.buf[w.off+4+i] = 0xFF
	}
	w.off += 4 + padding
	w.crc = checksum.Seed
	return nil
}

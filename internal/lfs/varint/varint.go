// Package varint decodes the fixed-width and LEB128 integers used throughout the
// on-disk format.
package varint

import (
	"encoding/binary"

	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/types"
)

// Unset is what erased flash reads back as.
const Unset uint32 = 0xFFFFFFFF

// MaxLEB128Len is the widest LEB128 encoding of a 32-bit value
const MaxLEB128Len = 5

// ReadU32LE reads a little-endian uint32 from the front of b
func ReadU32LE(b []byte) (uint32, error) {
	if len(b) < 4 {
		return 0, types.ErrTruncated
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadU32LEOr reads a little-endian uint32, treating missing bytes as fill.
// Callers probing for the end of a structure pass Unset so a short read
// compares equal to "absent".
func ReadU32LEOr(b []byte, fill uint32) uint32 {
	if len(b) >= 4 {
		return binary.LittleEndian.Uint32(b)
	}
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], fill)
	copy(buf[:], b)
	return binary.LittleEndian.Uint32(buf[:])
}

// ReadLEB128 decodes an unsigned LEB128 value of at most five bytes. If b ends
// before a terminating byte, the partial value is returned with width len(b);
// such a value is only trustworthy once a checksum has covered it.
func ReadLEB128(b []byte) (value uint32, width int) {
	var v uint64
	for i := 0; i < len(b) && i < MaxLEB128Len; i++ {
		v |= uint64(b[i]&0x7f) << (7 * uint(i))
		if b[i]&0x80 == 0 {
			return uint32(v), i + 1
		}
	}
	if len(b) > MaxLEB128Len {
		return uint32(v), MaxLEB128Len
	}
	return uint32(v), len(b)
}

// Terminated reports whether b begins with a complete LEB128 encoding
func Terminated(b []byte) bool {
	for i := 0; i < len(b) && i < MaxLEB128Len; i++ {
		if b[i]&0x80 == 0 {
			return true
		}
	}
	return false
}

// PutU32LE appends v in little-endian order
func PutU32LE(b []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(b, v)
}

// AppendLEB128 appends the LEB128 encoding of v
func AppendLEB128(b []byte, v uint32) []byte {
	for v >= 0x80 {
		b = append(b, byte(v)|0x80)
		v >>= 7
	}
	return append(b, byte(v))
}

// LEB128Len returns the encoded width of v
func LEB128Len(v uint32) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

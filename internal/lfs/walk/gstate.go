package walk

import (
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/mdir"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/tag"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/types"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/varint"
)

const (
	pendingBit  = 0x80000000
	idMask      = 0x3FF
	orphanShift = 20
	orphanMask  = 0xFF
)

// GState is the XOR of every visited pair's global deltas
type GState struct {
	Move [mdir.GDeltaSize]byte
	Rm   [mdir.GDeltaSize]byte
}

func xorInto(dst *[mdir.GDeltaSize]byte, src [mdir.GDeltaSize]byte) {
	for i := range dst {
		dst[i] ^= src[i]
	}
}

// Add folds one pair's deltas in; absent tags contribute zero
func (g *GState) Add(m *mdir.MDir) {
	xorInto(&g.Move, m.GDelta(tag.MoveState))
	xorInto(&g.Rm, m.GDelta(tag.GRmDelta))
}

// IsZero reports whether nothing is pending
func (g GState) IsZero() bool {
	return g == GState{}
}

// Bytes returns both halves back to back
func (g GState) Bytes() []byte {
	return append(append([]byte{}, g.Move[:]...), g.Rm[:]...)
}

// Pending is one decoded half of the global state
type Pending struct {
	Pending bool
	ID      uint16
	Pair    types.Pair
}

func decodeHalf(h [mdir.GDeltaSize]byte) (Pending, uint32) {
	word := varint.ReadU32LEOr(h[:], 0)
	pair, _ := mdir.DecodePair(h[4:])
	return Pending{
		Pending: word&pendingBit != 0,
		ID:      uint16(word & idMask),
		Pair:    pair,
	}, word
}

// MoveState decodes the move half
func (g GState) MoveState() Pending {
	p, _ := decodeHalf(g.Move)
	return p
}

// Orphans is the count of orphaned pairs recorded in the move half
func (g GState) Orphans() uint8 {
	_, word := decodeHalf(g.Move)
	return uint8(word >> orphanShift & orphanMask)
}

// RmState decodes the pending-removal half
func (g GState) RmState() Pending {
	p, _ := decodeHalf(g.Rm)
	return p
}

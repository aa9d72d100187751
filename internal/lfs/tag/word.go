package tag

import (
	"fmt"

	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/types"
)

// WordSize is the width of the fixed part of a tag header
const WordSize = 4

const (
	invalidBit = 0x80000000
	typeShift  = 15
	idShift    = 5
	idMask     = 0x3FF
)

// Word is the decoded fixed part of a tag header
type Word struct {
	Valid bool
	Type  uint16
	ID    uint16
}

// DecodeWord undoes the XOR chaining of an on-disk tag word. prev is the chain
// state returned by the previous call (zero at the start of a block) and the
// updated state is returned alongside the word.
func DecodeWord(raw uint32, prev uint32) (Word, uint32) {
	w := raw ^ prev
	word := Word{
		Valid: w&invalidBit == 0,
		Type:  uint16(w >> typeShift),
		ID:    uint16(w>>idShift) & idMask,
	}
	return word, w &^ invalidBit
}

// EncodeWord is the inverse of DecodeWord for a valid tag
func EncodeWord(w Word, prev uint32) (uint32, uint32) {
	d := (uint32(w.Type)<<typeShift | uint32(w.ID&idMask)<<idShift) &^ invalidBit
	return d ^ prev, d
}

// Tag is one record scanned out of a block
type Tag struct {
	Type    uint16
	ID      uint16
	Weight  uint32
	Size    uint32
	Off     int    // offset of the tag word within its block
	HdrLen  int    // word plus the two LEB128 fields
	Payload []byte // nil for alts
}

// Category classifies the tag
func (t Tag) Category() Category {
	return Classify(t.Type)
}

// HasID reports whether the tag belongs to an entry
func (t Tag) HasID() bool {
	return t.ID != types.NoID
}

// IsShrub reports whether the tag belongs to a shrub
func (t Tag) IsShrub() bool {
	return IsShrub(t.Type)
}

// End is the offset of the first byte after the tag and its payload
func (t Tag) End() int {
	return t.Off + t.HdrLen + len(t.Payload)
}

// Key returns the table key of the tag
func (t Tag) Key() uint16 {
	return Key(t.Type, t.ID)
}

func (t Tag) String() string {
	id := "-"
	if t.HasID() {
		id = fmt.Sprintf("%d", t.ID)
	}
	if t.Weight != 0 {
		return fmt.Sprintf("%s id=%s w=%d size=%d", Label(t.Type), id, t.Weight, t.Size)
	}
	return fmt.Sprintf("%s id=%s size=%d", Label(t.Type), id, t.Size)
}

package tag

import (
	"testing"

	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/types"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		typ      uint16
		expected Category
	}{
		{Null, CategoryConfig},
		{Magic, CategoryConfig},
		{Geometry, CategoryConfig},
		{MoveState, CategoryGDelta},
		{GRmDelta, CategoryGDelta},
		{Reg, CategoryName},
		{Dir, CategoryName},
		{Rm, CategoryName},
		{Inlined, CategoryStruct},
		{HardTail, CategoryStruct},
		{RAttrBase | 0x12, CategoryRAttr},
		{WAttrBase | 0x7f, CategoryWAttr},
		{Cksum, CategoryChecksum},
		{Cksum | 0x01, CategoryChecksum},
		{Perturb, CategoryPerturb},
		{ECksum, CategoryECksum},
		{AltBit, CategoryAlt},
		{AltBit | RedBit | GTBit | 0x201, CategoryAlt},
		{ShrubBit | Inlined, CategoryStruct},
		{ShrubBit | Reg, CategoryName},
		{0x0600, CategoryUnknown},
		{0x3300, CategoryUnknown},
		{0x8000, CategoryUnknown},
		{0x2000, CategoryUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, Classify(tt.typ), "Classify(0x%04x)", tt.typ)
	}
}

func TestIsShrub(t *testing.T) {
	assert.True(t, IsShrub(ShrubBit|Inlined))
	assert.False(t, IsShrub(Inlined))
	assert.False(t, IsShrub(AltBit|GTBit|Inlined), "alts are never shrubs")
	assert.False(t, IsShrub(Cksum))
}

func TestAltVariants(t *testing.T) {
	assert.True(t, IsRed(AltBit|RedBit|0x200))
	assert.False(t, IsRed(AltBit|0x200))
	assert.True(t, IsGT(AltBit|GTBit|0x200))
	assert.True(t, IsNullAlt(AltBit|GTBit))
	assert.False(t, IsNullAlt(AltBit|0x001))
	assert.False(t, IsRed(RedBit|Cksum), "checksums are not alts")
}

func TestLabel(t *testing.T) {
	tests := []struct {
		typ      uint16
		expected string
	}{
		{Reg, "reg"},
		{Dir, "dir"},
		{ShrubBit | Inlined, "shrubinlined"},
		{CTZ, "ctz"},
		{Cksum, "cksum"},
		{ECksum, "ecksum"},
		{RAttrBase | 0x2a, "rattr 0x2a"},
		{AltBit | RedBit | 0x201, "altrle 0x201"},
		{AltBit | GTBit | 0x300, "altbgt 0x300"},
		{AltBit | GTBit, "altn"},
		{0x0600, "unknown 0x0600"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, Label(tt.typ))
	}
}

func TestKey(t *testing.T) {
	assert.Equal(t, NameBase, Key(Reg, 3))
	assert.Equal(t, NameBase, Key(Dir, 3))
	assert.Equal(t, StructBase, Key(CTZ, 0))
	assert.Equal(t, SoftTail, Key(SoftTail, types.NoID))
	assert.Equal(t, Branch, Key(Branch, types.NoID))
	assert.Equal(t, Inlined&TypeMask, Key(ShrubBit|Inlined, types.NoID))
	assert.Equal(t, RAttrBase|0x01, Key(RAttrBase|0x01, 2))
}

func TestWordRoundTrip(t *testing.T) {
	words := []Word{
		{Valid: true, Type: Reg, ID: 0},
		{Valid: true, Type: Inlined, ID: 5},
		{Valid: true, Type: SoftTail, ID: types.NoID},
		{Valid: true, Type: AltBit | RedBit | GTBit | 0x201, ID: 0},
		{Valid: true, Type: Cksum, ID: types.NoID},
	}
	var encPrev, decPrev uint32
	for _, w := range words {
		var raw uint32
		raw, encPrev = EncodeWord(w, encPrev)
		var got Word
		got, decPrev = DecodeWord(raw, decPrev)
		assert.Equal(t, w, got)
		assert.Equal(t, encPrev, decPrev)
	}
}

func TestDecodeWordErased(t *testing.T) {
	w, _ := DecodeWord(0xFFFFFFFF, 0)
	assert.False(t, w.Valid)

	// erased flash after any valid tag still reads as invalid
	_, prev := EncodeWord(Word{Valid: true, Type: Reg, ID: 1}, 0)
	w, _ = DecodeWord(0xFFFFFFFF, prev)
	assert.False(t, w.Valid)
}

func TestTagString(t *testing.T) {
	tg := Tag{Type: Reg, ID: 2, Size: 3}
	assert.Equal(t, "reg id=2 size=3", tg.String())
	tg = Tag{Type: AltBit | 0x200, ID: types.NoID, Weight: 4, Size: 20}
	assert.Equal(t, "altble 0x200 id=- w=4 size=20", tg.String())
}

// Package tag models metadata record headers: the 16-bit type, its category, and
// the XOR-chained tag word that frames every record in a commit log.
package tag

// Type modifier bits
const (
	AltBit   uint16 = 0x4000
	RedBit   uint16 = 0x2000
	GTBit    uint16 = 0x1000
	ShrubBit uint16 = 0x1000

	// TypeMask keeps the 12-bit type proper, stripping modifier bits
	TypeMask uint16 = 0x0FFF
)

// Config tags, written with no id
const (
	Null      uint16 = 0x000
	Magic     uint16 = 0x001
	Version   uint16 = 0x002
	Flags     uint16 = 0x003
	Geometry  uint16 = 0x004
	NameLimit uint16 = 0x005
	FileLimit uint16 = 0x006
)

// Global deltas
const (
	MoveState uint16 = 0x101
	GRmDelta  uint16 = 0x102
)

// Names; the subtype fixes the entry type
const (
	NameBase uint16 = 0x200
	Reg      uint16 = 0x201
	Dir      uint16 = 0x202
	Bookmark uint16 = 0x203
	Orphan   uint16 = 0x204
	Rm       uint16 = 0x2FF
)

// Structs
const (
	StructBase uint16 = 0x300
	Inlined    uint16 = 0x301
	CTZ        uint16 = 0x302
	BTree      uint16 = 0x303
	DirStruct  uint16 = 0x304
	Branch     uint16 = 0x305
	BlockPtr   uint16 = 0x306
	MPair      uint16 = 0x307
	SoftTail   uint16 = 0x308
	HardTail   uint16 = 0x309
)

// Attribute bases; the low byte is the attribute number
const (
	RAttrBase uint16 = 0x400
	WAttrBase uint16 = 0x500
)

// Commit framing
const (
	Cksum   uint16 = 0x3000
	Perturb uint16 = 0x3100
	ECksum  uint16 = 0x3200
)

// MagicString is the payload of the Magic config tag
const MagicString = "littlefs"

// Category groups tag types by what they describe
type Category int

const (
	CategoryUnknown Category = iota
	CategoryConfig
	CategoryGDelta
	CategoryName
	CategoryStruct
	CategoryRAttr
	CategoryWAttr
	CategoryChecksum
	CategoryPerturb
	CategoryECksum
	CategoryAlt
)

var categoryNames = map[Category]string{
	CategoryUnknown:  "unknown",
	CategoryConfig:   "config",
	CategoryGDelta:   "gdelta",
	CategoryName:     "name",
	CategoryStruct:   "struct",
	CategoryRAttr:    "rattr",
	CategoryWAttr:    "wattr",
	CategoryChecksum: "cksum",
	CategoryPerturb:  "perturb",
	CategoryECksum:   "ecksum",
	CategoryAlt:      "alt",
}

func (c Category) String() string {
	if s, ok := categoryNames[c]; ok {
		return s
	}
	return "unknown"
}

// HasPayload reports whether tags of this category are followed by size bytes of payload.
// Alt tags reuse the size field as a jump distance.
func (c Category) HasPayload() bool {
	return c != CategoryAlt
}

// IsContent reports whether tags of this category land in the tag table
func (c Category) IsContent() bool {
	switch c {
	case CategoryConfig, CategoryGDelta, CategoryName, CategoryStruct, CategoryRAttr, CategoryWAttr:
		return true
	}
	return false
}

package tag

import (
	"fmt"

	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/types"
)

type rule struct {
	mask     uint16
	match    uint16
	category Category
}

// rules are tested in order; the first match wins. Alts are checked first since
// their modifier bits overlap the checksum range.
var rules = []rule{
	{0xC000, 0x4000, CategoryAlt},
	{0xFF00, 0x3000, CategoryChecksum},
	{0xFF00, 0x3100, CategoryPerturb},
	{0xFF00, 0x3200, CategoryECksum},
	{0xEF00, 0x0000, CategoryConfig},
	{0xEF00, 0x0100, CategoryGDelta},
	{0xEF00, 0x0200, CategoryName},
	{0xEF00, 0x0300, CategoryStruct},
	{0xEF00, 0x0400, CategoryRAttr},
	{0xEF00, 0x0500, CategoryWAttr},
}

// Classify maps a raw 16-bit type onto its category
func Classify(t uint16) Category {
	for _, r := range rules {
		if t&r.mask == r.match {
			return r.category
		}
	}
	return CategoryUnknown
}

// IsAlt reports whether t is a conditional-branch record
func IsAlt(t uint16) bool {
	return Classify(t) == CategoryAlt
}

// IsShrub reports whether t belongs to an inlined sub-tree instead of the
// top-level commit
func IsShrub(t uint16) bool {
	return t&AltBit == 0 && t&0x3000 == ShrubBit
}

// IsRed reports the color of an alt
func IsRed(t uint16) bool { return IsAlt(t) && t&RedBit != 0 }

// IsGT reports whether an alt is taken for keys greater than its own
func IsGT(t uint16) bool { return IsAlt(t) && t&GTBit != 0 }

// IsNullAlt reports whether an alt has no key and is therefore unconditional
func IsNullAlt(t uint16) bool { return IsAlt(t) && t&TypeMask == 0 }

// Key returns the table key for a content tag. Name and struct tags that belong
// to an entry share one slot per category, so a later dir name replaces an
// earlier reg name for the same id. Everything else is keyed by its full type.
func Key(t uint16, id uint16) uint16 {
	typ := t & TypeMask
	if id != types.NoID {
		switch Classify(t) {
		case CategoryName:
			return NameBase
		case CategoryStruct:
			return StructBase
		}
	}
	return typ
}

var subtypeNames = map[uint16]string{
	Null:      "null",
	Magic:     "magic",
	Version:   "version",
	Flags:     "flags",
	Geometry:  "geometry",
	NameLimit: "namelimit",
	FileLimit: "filelimit",
	MoveState: "movestate",
	GRmDelta:  "grmdelta",
	Reg:       "reg",
	Dir:       "dir",
	Bookmark:  "bookmark",
	Orphan:    "orphan",
	Rm:        "rm",
	Inlined:   "inlined",
	CTZ:       "ctz",
	BTree:     "btree",
	DirStruct: "dirstruct",
	Branch:    "branch",
	BlockPtr:  "block",
	MPair:     "mpair",
	SoftTail:  "softtail",
	HardTail:  "hardtail",
}

// Label renders a human-readable name for t
func Label(t uint16) string {
	switch c := Classify(t); c {
	case CategoryAlt:
		if IsNullAlt(t) {
			return "altn"
		}
		color := "b"
		if t&RedBit != 0 {
			color = "r"
		}
		dir := "le"
		if t&GTBit != 0 {
			dir = "gt"
		}
		return fmt.Sprintf("alt%s%s 0x%03x", color, dir, t&TypeMask)
	case CategoryChecksum, CategoryPerturb, CategoryECksum:
		if t&0xFF != 0 {
			return fmt.Sprintf("%s 0x%02x", c, t&0xFF)
		}
		return c.String()
	case CategoryRAttr, CategoryWAttr:
		return shrubPrefix(t) + fmt.Sprintf("%s 0x%02x", c, t&0xFF)
	case CategoryUnknown:
		return fmt.Sprintf("unknown 0x%04x", t)
	default:
		if name, ok := subtypeNames[t&TypeMask]; ok {
			return shrubPrefix(t) + name
		}
		return shrubPrefix(t) + fmt.Sprintf("%s 0x%02x", c, t&0xFF)
	}
}

func shrubPrefix(t uint16) string {
	if IsShrub(t) {
		return "shrub"
	}
	return ""
}

package builder

import (
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/tag"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/types"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/varint"
)

func pairBytes(p types.Pair) []byte {
	out := varint.PutU32LE(nil, uint32(p[0]))
	return varint.PutU32LE(out, uint32(p[1]))
}

// Superblock returns the config tags the root metadata pair carries
func Superblock(blockSize, blockCount uint32) []Tag {
	geometry := varint.PutU32LE(nil, blockSize)
	geometry = varint.PutU32LE(geometry, blockCount)
	return []Tag{
		{Type: tag.Magic, ID: types.NoID, Data: []byte(tag.MagicString)},
		{Type: tag.Version, ID: types.NoID, Data: varint.PutU32LE(nil, 0x00020001)},
		{Type: tag.Geometry, ID: types.NoID, Data: geometry},
		{Type: tag.NameLimit, ID: types.NoID, Data: varint.AppendLEB128(nil, 255)},
		{Type: tag.FileLimit, ID: types.NoID, Data: varint.AppendLEB128(nil, 0x7FFFFFFF)},
	}
}

// Name creates an entry of the given name type
func Name(typ uint16, id uint16, name string) Tag {
	return Tag{Type: typ, ID: id, Data: []byte(name)}
}

// Inline stores data directly in the metadata pair
func Inline(id uint16, data []byte) Tag {
	return Tag{Type: tag.Inlined, ID: id, Data: data}
}

// CTZStruct points an entry at a ctz chain
func CTZStruct(id uint16, head types.Block, size uint32) Tag {
	p := varint.PutU32LE(nil, uint32(head))
	return Tag{Type: tag.CTZ, ID: id, Data: varint.PutU32LE(p, size)}
}

// BTreeStruct points an entry at a file B-tree
func BTreeStruct(id uint16, root types.Block, size uint32) Tag {
	p := varint.PutU32LE(nil, uint32(root))
	return Tag{Type: tag.BTree, ID: id, Data: varint.PutU32LE(p, size)}
}

// DirStruct points a dir entry at its first metadata pair
func DirStruct(id uint16, pair types.Pair) Tag {
	return Tag{Type: tag.DirStruct, ID: id, Data: pairBytes(pair)}
}

// SoftTail threads the next directory
func SoftTail(pair types.Pair) Tag {
	return Tag{Type: tag.SoftTail, ID: types.NoID, Data: pairBytes(pair)}
}

// HardTail continues the current directory
func HardTail(pair types.Pair) Tag {
	return Tag{Type: tag.HardTail, ID: types.NoID, Data: pairBytes(pair)}
}

// MdirBranch points a metadata pair at the root of its B-tree
func MdirBranch(root types.Block) Tag {
	return Tag{Type: tag.Branch, ID: types.NoID, Data: varint.PutU32LE(nil, uint32(root))}
}

// NodeBranch is a B-tree node entry pointing at a child node
func NodeBranch(id uint16, child types.Block, weight uint32) Tag {
	return Tag{Type: tag.Branch, ID: id, Weight: weight, Data: varint.PutU32LE(nil, uint32(child))}
}

// BlockFragment is a B-tree leaf entry holding size bytes at off in block
func BlockFragment(id uint16, weight uint32, block types.Block, off, size uint32) Tag {
	p := varint.PutU32LE(nil, uint32(block))
	p = varint.AppendLEB128(p, off)
	return Tag{Type: tag.BlockPtr, ID: id, Weight: weight, Data: varint.AppendLEB128(p, size)}
}

// InlineFragment is a B-tree leaf entry holding its bytes directly
func InlineFragment(id uint16, weight uint32, data []byte) Tag {
	return Tag{Type: tag.Inlined, ID: id, Weight: weight, Data: data}
}

// MPairLeaf is a B-tree leaf entry naming a metadata pair
func MPairLeaf(id uint16, pair types.Pair) Tag {
	return Tag{Type: tag.MPair, ID: id, Data: pairBytes(pair)}
}

// Remove deletes every key of id
func Remove(id uint16) Tag {
	return Tag{Type: tag.Rm, ID: id, Data: []byte{0}}
}

// Delete removes a single key by writing it with no payload
func Delete(typ uint16, id uint16) Tag {
	return Tag{Type: typ, ID: id}
}

// RAttr attaches a user attribute
func RAttr(id uint16, n uint8, data []byte) Tag {
	return Tag{Type: tag.RAttrBase | uint16(n), ID: id, Data: data}
}

// Shrub marks t as belonging to an inlined sub-tree
func Shrub(t Tag) Tag {
	t.Type |= tag.ShrubBit
	return t
}

// Alt encodes a conditional-branch record
func Alt(red, gt bool, key uint16, weight, jump uint32) Tag {
	t := tag.AltBit | key&tag.TypeMask
	if red {
		t |= tag.RedBit
	}
	if gt {
		t |= tag.GTBit
	}
	return Tag{Type: t, ID: types.NoID, Weight: weight, Size: jump}
}

// GStateDelta encodes one half of the global state
func GStateDelta(word uint32, pair types.Pair) []byte {
	return append(varint.PutU32LE(nil, word), pairBytes(pair)...)
}

// MoveState carries a move-state delta
func MoveState(delta []byte) Tag {
	return Tag{Type: tag.MoveState, ID: types.NoID, Data: delta}
}

// GRmDelta carries a pending-removal delta
func GRmDelta(delta []byte) Tag {
	return Tag{Type: tag.GRmDelta, ID: types.NoID, Data: delta}
}

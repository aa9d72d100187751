package mdir

import (
	"fmt"

	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/tag"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/types"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/varint"
)

// EntryType is the kind of filesystem object an id names
type EntryType string

const (
	TypeReg      EntryType = "reg"
	TypeDir      EntryType = "dir"
	TypeBookmark EntryType = "bookmark"
	TypeOrphan   EntryType = "orphan"
	TypeUnknown  EntryType = "unknown"
)

// StructKind is how an entry's data is represented
type StructKind string

const (
	StructNone    StructKind = "none"
	StructInline  StructKind = "inline"
	StructCTZ     StructKind = "ctz"
	StructBTree   StructKind = "btree"
	StructDir     StructKind = "dir"
	StructUnknown StructKind = "unknown"
)

// Attr is a user attribute attached to an entry
type Attr struct {
	Type uint16
	Data []byte
}

// Entry is one filesystem object within a metadata pair
type Entry struct {
	ID     uint16
	Name   string
	Type   EntryType
	Struct StructKind

	Size   uint32      // logical size for files
	Inline []byte      // inline data
	Head   types.Block // ctz head or btree root
	Dir    types.Pair  // child directory
	Attrs  []Attr
	Err    error // malformed struct payload
}

// Entries decodes every named id in id order. Ids without a name tag carry
// no filesystem object and are skipped.
func (m *MDir) Entries() []Entry {
	var out []Entry
	for _, id := range m.IDs() {
		if e, ok := m.Entry(id); ok {
			out = append(out, e)
		}
	}
	return out
}

// Entry decodes a single id
func (m *MDir) Entry(id uint16) (Entry, bool) {
	tbl := m.Table()
	name, ok := tbl.Get(id, tag.NameBase)
	if !ok {
		return Entry{}, false
	}
	e := Entry{
		ID:     id,
		Name:   string(name.Payload),
		Type:   entryType(name.Type),
		Struct: StructNone,
		Head:   types.NoBlock,
		Dir:    types.Pair{types.NoBlock, types.NoBlock},
	}
	if st, ok := tbl.Get(id, tag.StructBase); ok {
		decodeStruct(&e, st)
	}
	for _, t := range tbl.ForID(id) {
		switch t.Category() {
		case tag.CategoryRAttr, tag.CategoryWAttr:
			e.Attrs = append(e.Attrs, Attr{Type: t.Type & tag.TypeMask, Data: t.Payload})
		}
	}
	return e, true
}

func entryType(t uint16) EntryType {
	switch t & tag.TypeMask {
	case tag.Reg:
		return TypeReg
	case tag.Dir:
		return TypeDir
	case tag.Bookmark:
		return TypeBookmark
	case tag.Orphan:
		return TypeOrphan
	default:
		return TypeUnknown
	}
}

func decodeStruct(e *Entry, t tag.Tag) {
	malformed := func(want int) {
		e.Err = types.NewLFSError(types.ErrBadStruct, "decodeStruct", fmt.Sprintf("id %d", e.ID),
			fmt.Sprintf("%s payload is %d bytes, want %d", tag.Label(t.Type), len(t.Payload), want))
	}
	switch t.Type & tag.TypeMask {
	case tag.Inlined:
		e.Struct = StructInline
		e.Inline = t.Payload
		e.Size = uint32(len(t.Payload))
	case tag.CTZ, tag.BTree:
		e.Struct = StructCTZ
		if t.Type&tag.TypeMask == tag.BTree {
			e.Struct = StructBTree
		}
		if len(t.Payload) < 8 {
			malformed(8)
			return
		}
		e.Head = types.Block(varint.ReadU32LEOr(t.Payload, varint.Unset))
		e.Size = varint.ReadU32LEOr(t.Payload[4:], 0)
	case tag.DirStruct:
		e.Struct = StructDir
		p, ok := DecodePair(t.Payload)
		if !ok {
			malformed(8)
			return
		}
		e.Dir = p
	default:
		e.Struct = StructUnknown
		e.Err = types.NewLFSError(types.ErrUnsupportedStruct, "decodeStruct", fmt.Sprintf("id %d", e.ID), tag.Label(t.Type))
	}
}

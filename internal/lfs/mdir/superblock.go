package mdir

import (
	"fmt"

	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/tag"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/types"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/varint"
)

// Superblock is the configuration recorded in the root pair
type Superblock struct {
	Magic      string `json:"magic" yaml:"magic" cbor:"magic" plist:"magic"`
	Version    uint32 `json:"version" yaml:"version" cbor:"version" plist:"version"`
	Flags      uint32 `json:"flags" yaml:"flags" cbor:"flags" plist:"flags"`
	BlockSize  uint32 `json:"block_size" yaml:"block_size" cbor:"block_size" plist:"block_size"`
	BlockCount uint32 `json:"block_count" yaml:"block_count" cbor:"block_count" plist:"block_count"`
	NameLimit  uint32 `json:"name_limit" yaml:"name_limit" cbor:"name_limit" plist:"name_limit"`
	FileLimit  uint32 `json:"file_limit" yaml:"file_limit" cbor:"file_limit" plist:"file_limit"`
}

// Valid reports whether the magic matched
func (s Superblock) Valid() bool {
	return s.Magic == tag.MagicString
}

// VersionString renders the version as major.minor
func (s Superblock) VersionString() string {
	return fmt.Sprintf("%d.%d", s.Version>>16, s.Version&0xFFFF)
}

// Superblock decodes the config tags of the pair. ok is false when the pair
// carries no config at all.
func (m *MDir) Superblock() (Superblock, bool) {
	tbl := m.Table()
	var sb Superblock
	found := false
	get := func(typ uint16) ([]byte, bool) {
		t, ok := tbl.Lookup(types.NoID, typ)
		if ok {
			found = true
		}
		return t.Payload, ok
	}
	if p, ok := get(tag.Magic); ok {
		sb.Magic = string(p)
	}
	if p, ok := get(tag.Version); ok {
		sb.Version = varint.ReadU32LEOr(p, 0)
	}
	if p, ok := get(tag.Flags); ok {
		sb.Flags = varint.ReadU32LEOr(p, 0)
	}
	if p, ok := get(tag.Geometry); ok {
		sb.BlockSize = varint.ReadU32LEOr(p, 0)
		if len(p) >= 8 {
			sb.BlockCount = varint.ReadU32LEOr(p[4:], 0)
		}
	}
	if p, ok := get(tag.NameLimit); ok {
		sb.NameLimit, _ = varint.ReadLEB128(p)
	}
	if p, ok := get(tag.FileLimit); ok {
		sb.FileLimit, _ = varint.ReadLEB128(p)
	}
	return sb, found
}

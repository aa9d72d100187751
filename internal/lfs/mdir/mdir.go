// Package mdir assembles a metadata pair from its two redundant blocks and
// decodes the entries, pointers and global deltas of the winning block.
package mdir

import (
	"fmt"

	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/commit"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/tag"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/types"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/varint"
)

// BlockReader is the subset of device.Reader the pair fetch needs
type BlockReader interface {
	ReadBlock(b types.Block) ([]byte, error)
}

// MDir is one metadata pair
type MDir struct {
	Pair   types.Pair
	Logs   [2]*commit.Log // per block of Pair, nil when the block could not be read
	Errs   [2]error       // read errors per block
	Active int            // index into Pair of the authoritative block, -1 if none
	Rev    uint32
}

// Fetch reads and parses both blocks of pair. Unreadable blocks (out of range,
// I/O errors) are recorded, never returned: an unusable pair is simply not
// Valid.
func Fetch(r BlockReader, pair types.Pair) *MDir {
	var logs [2]*commit.Log
	var errs [2]error
	for i, b := range pair {
		buf, err := r.ReadBlock(b)
		if err != nil {
			errs[i] = err
			continue
		}
		logs[i] = commit.ParseBlock(buf)
	}
	m := FromLogs(pair, logs[0], logs[1])
	m.Errs = errs
	return m
}

// FromLogs selects the authoritative block of a pair. The more recent
// revision wins, but only if it holds a committed state; otherwise the other
// block is used.
func FromLogs(pair types.Pair, a, b *commit.Log) *MDir {
	m := &MDir{Pair: pair, Logs: [2]*commit.Log{a, b}, Active: -1}

	valid := func(l *commit.Log) bool { return l != nil && l.Valid() }
	switch {
	case valid(a) && valid(b):
		if types.SeqMoreRecent(b.Rev, a.Rev) {
			m.Active = 1
		} else {
			m.Active = 0
		}
	case valid(a):
		m.Active = 0
	case valid(b):
		m.Active = 1
	}
	if m.Active >= 0 {
		m.Rev = m.Logs[m.Active].Rev
	}
	return m
}

// Valid reports whether either block yielded a committed state
func (m *MDir) Valid() bool {
	return m.Active >= 0
}

// Block returns the authoritative block
func (m *MDir) Block() types.Block {
	if m.Active < 0 {
		return types.NoBlock
	}
	return m.Pair[m.Active]
}

// Log returns the authoritative block's log
func (m *MDir) Log() *commit.Log {
	if m.Active < 0 {
		return nil
	}
	return m.Logs[m.Active]
}

// Table returns the authoritative tag table; empty for invalid pairs
func (m *MDir) Table() *commit.Table {
	if l := m.Log(); l != nil {
		return l.Table
	}
	return commit.NewTable()
}

// Shrub returns the authoritative shrub table
func (m *MDir) Shrub() *commit.Table {
	if l := m.Log(); l != nil {
		return l.Shrub
	}
	return commit.NewTable()
}

// IDs returns the active entry ids
func (m *MDir) IDs() []uint16 {
	return m.Table().IDs(types.NoID)
}

// Tail returns the tail pointer, and whether it continues this directory
// (hard) rather than threading the next one (soft)
func (m *MDir) Tail() (pair types.Pair, hard bool, ok bool) {
	tbl := m.Table()
	if t, found := tbl.Lookup(types.NoID, tag.HardTail); found {
		if p, ok := DecodePair(t.Payload); ok && !p.IsNull() {
			return p, true, true
		}
	}
	if t, found := tbl.Lookup(types.NoID, tag.SoftTail); found {
		if p, ok := DecodePair(t.Payload); ok && !p.IsNull() {
			return p, false, true
		}
	}
	return types.Pair{types.NoBlock, types.NoBlock}, false, false
}

// Branch returns the root of this pair's B-tree of additional pairs
func (m *MDir) Branch() (types.Block, bool) {
	t, found := m.Table().Lookup(types.NoID, tag.Branch)
	if !found {
		return types.NoBlock, false
	}
	b := types.Block(varint.ReadU32LEOr(t.Payload, varint.Unset))
	return b, b != types.NoBlock
}

// GDeltaSize is the width of each half of the global state
const GDeltaSize = 12

// GDelta returns this pair's contribution to one half of the global state,
// zero when the tag is absent. Short payloads are zero-extended.
func (m *MDir) GDelta(typ uint16) [GDeltaSize]byte {
	var out [GDeltaSize]byte
	if t, found := m.Table().Lookup(types.NoID, typ); found {
		copy(out[:], t.Payload)
	}
	return out
}

func (m *MDir) String() string {
	if !m.Valid() {
		return fmt.Sprintf("mdir %v (corrupted)", m.Pair)
	}
	return fmt.Sprintf("mdir %v rev %d", m.Pair, m.Rev)
}

// DecodePair reads a block pair from two little-endian words
func DecodePair(p []byte) (types.Pair, bool) {
	if len(p) < 8 {
		return types.Pair{types.NoBlock, types.NoBlock}, false
	}
	return types.Pair{
		types.Block(varint.ReadU32LEOr(p, varint.Unset)),
		types.Block(varint.ReadU32LEOr(p[4:], varint.Unset)),
	}, true
}

// Package commit parses one block as an append-only log of checksummed commits
// and flattens the committed tags into a table.
package commit

import (
	"errors"

	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/checksum"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/tag"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/types"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/varint"
)

// RevSize is the width of the revision count at the start of every block
const RevSize = 4

// Commit describes one validated commit within a block
type Commit struct {
	Off  int    // offset of the first tag
	End  int    // offset after the checksum payload and padding
	CRC  uint32 // stored checksum
	Tags int    // number of tags, checksum included
}

// Scanned is a tag as it was found in the block, whether or not a checksum
// later covered it
type Scanned struct {
	tag.Tag
	Commit int // index into Log.Commits, -1 when not committed
}

// Committed reports whether a valid checksum covered the tag
func (s Scanned) Committed() bool {
	return s.Commit >= 0
}

// ECheck is the erase check recorded by an ecksum tag
type ECheck struct {
	Size uint32
	CRC  uint32
}

// Log is the parse result of one block
type Log struct {
	Rev     uint32
	Commits []Commit
	Tags    []Scanned
	Table   *Table // committed top-level tags
	Shrub   *Table // committed shrub tags
	StopOff int    // where scanning ended
	StopErr error  // why scanning ended; nil means the block was exhausted cleanly
	ECheck  *ECheck
	Erased  bool // the bytes after the last commit match ECheck
}

// Valid reports whether the block holds at least one committed state
func (l *Log) Valid() bool {
	return len(l.Commits) > 0
}

// End is the offset after the last valid commit
func (l *Log) End() int {
	if len(l.Commits) == 0 {
		return RevSize
	}
	return l.Commits[len(l.Commits)-1].End
}

// ErrInvalidTag marks the end of a log at an erased or unwritten tag word
var ErrInvalidTag = errors.New("invalid tag")

// ErrUnknownTag marks the end of a log at a tag the decoder cannot classify
var ErrUnknownTag = errors.New("unknown tag type")

// scanState is the running parser state threaded through readTag
type scanState struct {
	prev uint32 // XOR chain
	crc  uint32
}

// readTag decodes the tag at off. The returned state has the chain advanced
// but the CRC untouched; the caller decides what the checksum covers.
func readTag(buf []byte, off int, st scanState) (tag.Tag, scanState, error) {
	raw, err := varint.ReadU32LE(buf[off:])
	if err != nil {
		return tag.Tag{}, st, err
	}
	word, prev := tag.DecodeWord(raw, st.prev)
	if !word.Valid {
		return tag.Tag{}, st, ErrInvalidTag
	}

	pos := off + tag.WordSize
	if !varint.Terminated(buf[pos:]) {
		return tag.Tag{}, st, types.ErrTruncated
	}
	weight, w := varint.ReadLEB128(buf[pos:])
	pos += w
	if !varint.Terminated(buf[pos:]) {
		return tag.Tag{}, st, types.ErrTruncated
	}
	size, w := varint.ReadLEB128(buf[pos:])
	pos += w

	t := tag.Tag{
		Type:   word.Type,
		ID:     word.ID,
		Weight: weight,
		Size:   size,
		Off:    off,
		HdrLen: pos - off,
	}
	cat := t.Category()
	if cat == tag.CategoryUnknown {
		return t, st, ErrUnknownTag
	}
	if cat.HasPayload() && cat != tag.CategoryChecksum {
		if uint64(pos)+uint64(size) > uint64(len(buf)) {
			return t, st, types.ErrTruncated
		}
		t.Payload = buf[pos : pos+int(size)]
	}
	st.prev = prev
	return t, st, nil
}

// ParseBlock scans buf as a commit log. It never fails: a block without a
// single valid commit yields a Log whose Valid method is false.
func ParseBlock(buf []byte) *Log {
	log := &Log{
		Rev:     varint.ReadU32LEOr(buf, varint.Unset),
		Table:   NewTable(),
		Shrub:   NewTable(),
		StopOff: RevSize,
	}
	if len(buf) < RevSize {
		log.StopErr = types.ErrTruncated
		return log
	}

	st := scanState{crc: checksum.Update(checksum.Seed, buf[:RevSize])}
	off := RevSize
	start := off
	var pending []tag.Tag
	var pendingECheck *ECheck

	for {
		if off >= len(buf) {
			log.StopErr = nil
			break
		}
		t, next, err := readTag(buf, off, st)
		if err != nil {
			log.StopErr = err
			if t.HdrLen > 0 {
				log.Tags = append(log.Tags, Scanned{Tag: t, Commit: -1})
			}
			break
		}
		st = next

		if t.Category() != tag.CategoryChecksum {
			st.crc = checksum.Update(st.crc, buf[off:t.End()])
			pending = append(pending, t)
			log.Tags = append(log.Tags, Scanned{Tag: t, Commit: -1})
			if t.Category() == tag.CategoryECksum {
				if ec, ok := decodeECheck(t.Payload); ok {
					pendingECheck = &ec
				}
			}
			off = t.End()
			continue
		}

		// checksum: covers everything up to and including its own header
		hdrEnd := off + t.HdrLen
		st.crc = checksum.Update(st.crc, buf[off:hdrEnd])
		if t.Size < 4 || uint64(hdrEnd)+uint64(t.Size) > uint64(len(buf)) {
			log.StopErr = types.ErrTruncated
			log.Tags = append(log.Tags, Scanned{Tag: t, Commit: -1})
			break
		}
		t.Payload = buf[hdrEnd : hdrEnd+int(t.Size)]
		stored := varint.ReadU32LEOr(t.Payload, varint.Unset)
		log.Tags = append(log.Tags, Scanned{Tag: t, Commit: -1})
		if stored != st.crc {
			log.StopErr = types.ErrChecksumMismatch
			break
		}

		idx := len(log.Commits)
		log.Commits = append(log.Commits, Commit{
			Off:  start,
			End:  t.End(),
			CRC:  stored,
			Tags: len(pending) + 1,
		})
		for i := len(log.Tags) - len(pending) - 1; i < len(log.Tags); i++ {
			log.Tags[i].Commit = idx
		}
		for _, p := range pending {
			apply(log, p)
		}
		log.ECheck = pendingECheck

		pending = nil
		pendingECheck = nil
		st.crc = checksum.Seed
		off = t.End()
		start = off
	}
	log.StopOff = off

	if log.ECheck != nil {
		end := log.End()
		if uint64(end)+uint64(log.ECheck.Size) <= uint64(len(buf)) {
			log.Erased = checksum.Sum(buf[end:end+int(log.ECheck.Size)]) == log.ECheck.CRC
		}
	}
	return log
}

func apply(log *Log, t tag.Tag) {
	if !t.Category().IsContent() || t.Type&tag.TypeMask == tag.Null && t.Category() == tag.CategoryConfig {
		return
	}
	if t.IsShrub() {
		log.Shrub.Apply(t)
		return
	}
	log.Table.Apply(t)
}

func decodeECheck(p []byte) (ECheck, bool) {
	if !varint.Terminated(p) {
		return ECheck{}, false
	}
	size, w := varint.ReadLEB128(p)
	crc, err := varint.ReadU32LE(p[w:])
	if err != nil {
		return ECheck{}, false
	}
	return ECheck{Size: size, CRC: crc}, true
}

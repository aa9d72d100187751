// Package report turns a traversal result into a report document and renders
// it as text or one of the structured formats.
package report

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/deploymenttheory/go-lfs-debug/internal/common/cryptoutil"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/commit"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/file"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/mdir"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/tag"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/types"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/walk"
)

// Document is the renderer-independent report. Every structured format
// encodes exactly these fields.
type Document struct {
	Image       string           `json:"image" yaml:"image" cbor:"image" plist:"image"`
	BlockSize   uint32           `json:"block_size" yaml:"block_size" cbor:"block_size" plist:"block_size"`
	BlockCount  uint32           `json:"block_count" yaml:"block_count" cbor:"block_count" plist:"block_count"`
	Roots       string           `json:"roots" yaml:"roots" cbor:"roots" plist:"roots"`
	Mode        Mode             `json:"mode" yaml:"mode" cbor:"mode" plist:"mode"`
	Superblock  *mdir.Superblock `json:"superblock,omitempty" yaml:"superblock,omitempty" cbor:"superblock,omitempty" plist:"superblock,omitempty"`
	Dirs        []Dir            `json:"dirs" yaml:"dirs" cbor:"dirs" plist:"dirs"`
	Mdirs       []Mdir           `json:"mdirs" yaml:"mdirs" cbor:"mdirs" plist:"mdirs"`
	Orphans     []Orphan         `json:"orphans" yaml:"orphans" cbor:"orphans" plist:"orphans"`
	GState      GState           `json:"gstate" yaml:"gstate" cbor:"gstate" plist:"gstate"`
	Diagnostics []Diagnostic     `json:"diagnostics" yaml:"diagnostics" cbor:"diagnostics" plist:"diagnostics"`
	ExitCode    int              `json:"exit_code" yaml:"exit_code" cbor:"exit_code" plist:"exit_code"`
}

// Dir is one directory
type Dir struct {
	Path    string   `json:"path" yaml:"path" cbor:"path" plist:"path"`
	Pairs   []string `json:"pairs" yaml:"pairs" cbor:"pairs" plist:"pairs"`
	Entries []Entry  `json:"entries" yaml:"entries" cbor:"entries" plist:"entries"`
}

// Entry is one filesystem object
type Entry struct {
	ID        uint16 `json:"id" yaml:"id" cbor:"id" plist:"id"`
	Name      string `json:"name" yaml:"name" cbor:"name" plist:"name"`
	Type      string `json:"type" yaml:"type" cbor:"type" plist:"type"`
	Struct    string `json:"struct" yaml:"struct" cbor:"struct" plist:"struct"`
	Size      uint32 `json:"size" yaml:"size" cbor:"size" plist:"size"`
	Head      string `json:"head,omitempty" yaml:"head,omitempty" cbor:"head,omitempty" plist:"head,omitempty"`
	Dir       string `json:"dir,omitempty" yaml:"dir,omitempty" cbor:"dir,omitempty" plist:"dir,omitempty"`
	Preview   string `json:"preview,omitempty" yaml:"preview,omitempty" cbor:"preview,omitempty" plist:"preview,omitempty"`
	Truncated bool   `json:"truncated,omitempty" yaml:"truncated,omitempty" cbor:"truncated,omitempty" plist:"truncated,omitempty"`
	Digest    string `json:"digest,omitempty" yaml:"digest,omitempty" cbor:"digest,omitempty" plist:"digest,omitempty"`
	Attrs     []Attr `json:"attrs,omitempty" yaml:"attrs,omitempty" cbor:"attrs,omitempty" plist:"attrs,omitempty"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty" cbor:"error,omitempty" plist:"error,omitempty"`
}

// Attr is a user attribute
type Attr struct {
	Type string `json:"type" yaml:"type" cbor:"type" plist:"type"`
	Data string `json:"data" yaml:"data" cbor:"data" plist:"data"`
}

// Mdir is one parsed metadata pair
type Mdir struct {
	Pair   string     `json:"pair" yaml:"pair" cbor:"pair" plist:"pair"`
	Path   string     `json:"path,omitempty" yaml:"path,omitempty" cbor:"path,omitempty" plist:"path,omitempty"`
	Valid  bool       `json:"valid" yaml:"valid" cbor:"valid" plist:"valid"`
	Block  string     `json:"block,omitempty" yaml:"block,omitempty" cbor:"block,omitempty" plist:"block,omitempty"`
	Rev    uint32     `json:"rev" yaml:"rev" cbor:"rev" plist:"rev"`
	Erased bool       `json:"erased,omitempty" yaml:"erased,omitempty" cbor:"erased,omitempty" plist:"erased,omitempty"`
	Tags   []Tag      `json:"tags,omitempty" yaml:"tags,omitempty" cbor:"tags,omitempty" plist:"tags,omitempty"`
	Logs   []BlockLog `json:"logs,omitempty" yaml:"logs,omitempty" cbor:"logs,omitempty" plist:"logs,omitempty"`
}

// Tag is one record
type Tag struct {
	Off    int    `json:"off" yaml:"off" cbor:"off" plist:"off"`
	Label  string `json:"label" yaml:"label" cbor:"label" plist:"label"`
	Type   uint16 `json:"type" yaml:"type" cbor:"type" plist:"type"`
	ID     int    `json:"id" yaml:"id" cbor:"id" plist:"id"`
	Weight uint32 `json:"weight,omitempty" yaml:"weight,omitempty" cbor:"weight,omitempty" plist:"weight,omitempty"`
	Size   uint32 `json:"size" yaml:"size" cbor:"size" plist:"size"`
	Data   string `json:"data,omitempty" yaml:"data,omitempty" cbor:"data,omitempty" plist:"data,omitempty"`
	Commit int    `json:"commit" yaml:"commit" cbor:"commit" plist:"commit"`
}

// BlockLog is the raw commit log of one block of a pair
type BlockLog struct {
	Block   string   `json:"block" yaml:"block" cbor:"block" plist:"block"`
	Active  bool     `json:"active" yaml:"active" cbor:"active" plist:"active"`
	Rev     uint32   `json:"rev" yaml:"rev" cbor:"rev" plist:"rev"`
	Error   string   `json:"error,omitempty" yaml:"error,omitempty" cbor:"error,omitempty" plist:"error,omitempty"`
	Commits []Commit `json:"commits,omitempty" yaml:"commits,omitempty" cbor:"commits,omitempty" plist:"commits,omitempty"`
	Tags    []Tag    `json:"tags,omitempty" yaml:"tags,omitempty" cbor:"tags,omitempty" plist:"tags,omitempty"`
	StopOff int      `json:"stop_off" yaml:"stop_off" cbor:"stop_off" plist:"stop_off"`
	Stop    string   `json:"stop,omitempty" yaml:"stop,omitempty" cbor:"stop,omitempty" plist:"stop,omitempty"`
	Erased  bool     `json:"erased,omitempty" yaml:"erased,omitempty" cbor:"erased,omitempty" plist:"erased,omitempty"`
}

// Commit is one validated commit
type Commit struct {
	Off int    `json:"off" yaml:"off" cbor:"off" plist:"off"`
	End int    `json:"end" yaml:"end" cbor:"end" plist:"end"`
	CRC string `json:"crc" yaml:"crc" cbor:"crc" plist:"crc"`
}

// Orphan is a run of unreachable pairs
type Orphan struct {
	Pairs []string `json:"pairs" yaml:"pairs" cbor:"pairs" plist:"pairs"`
}

// GState is the decoded global state
type GState struct {
	Move        string `json:"move" yaml:"move" cbor:"move" plist:"move"`
	Rm          string `json:"rm" yaml:"rm" cbor:"rm" plist:"rm"`
	MovePending bool   `json:"move_pending" yaml:"move_pending" cbor:"move_pending" plist:"move_pending"`
	MoveID      uint16 `json:"move_id" yaml:"move_id" cbor:"move_id" plist:"move_id"`
	MovePair    string `json:"move_pair" yaml:"move_pair" cbor:"move_pair" plist:"move_pair"`
	RmPending   bool   `json:"rm_pending" yaml:"rm_pending" cbor:"rm_pending" plist:"rm_pending"`
	RmID        uint16 `json:"rm_id" yaml:"rm_id" cbor:"rm_id" plist:"rm_id"`
	RmPair      string `json:"rm_pair" yaml:"rm_pair" cbor:"rm_pair" plist:"rm_pair"`
	Orphans     uint8  `json:"orphans" yaml:"orphans" cbor:"orphans" plist:"orphans"`
}

// Diagnostic is one problem found by the traversal
type Diagnostic struct {
	Kind    string `json:"kind" yaml:"kind" cbor:"kind" plist:"kind"`
	Path    string `json:"path,omitempty" yaml:"path,omitempty" cbor:"path,omitempty" plist:"path,omitempty"`
	Pair    string `json:"pair" yaml:"pair" cbor:"pair" plist:"pair"`
	GState  string `json:"gstate,omitempty" yaml:"gstate,omitempty" cbor:"gstate,omitempty" plist:"gstate,omitempty"`
	Detail  string `json:"detail,omitempty" yaml:"detail,omitempty" cbor:"detail,omitempty" plist:"detail,omitempty"`
	Message string `json:"message" yaml:"message" cbor:"message" plist:"message"`
}

// Meta describes the image a result came from
type Meta struct {
	Image      string
	BlockSize  uint32
	BlockCount uint32
}

func blockString(b types.Block) string {
	return fmt.Sprintf("0x%x", uint32(b))
}

// hexData renders p, cut to limit bytes when limit > 0
func hexData(p []byte, limit int) string {
	if limit > 0 && len(p) > limit {
		p = p[:limit]
	}
	return hex.EncodeToString(p)
}

type builder struct {
	r      file.BlockReader
	opts   Options
	hasher cryptoutil.Hasher
}

// Build assembles the report document. r is used to read file contents for
// previews and digests.
func Build(res *walk.Result, r file.BlockReader, meta Meta, opts Options) (*Document, error) {
	b := &builder{r: r, opts: opts}
	if opts.Digest != cryptoutil.None {
		h, err := cryptoutil.NewHasher(opts.Digest)
		if err != nil {
			return nil, err
		}
		b.hasher = h
	}

	doc := &Document{
		Image:       meta.Image,
		BlockSize:   meta.BlockSize,
		BlockCount:  meta.BlockCount,
		Roots:       res.Roots.String(),
		Mode:        opts.Mode,
		Superblock:  res.Superblock,
		Dirs:        make([]Dir, 0, len(res.Dirs)),
		Mdirs:       make([]Mdir, 0, len(res.Mdirs)),
		Orphans:     make([]Orphan, 0, len(res.Orphans)),
		Diagnostics: make([]Diagnostic, 0, len(res.Diagnostics)),
		ExitCode:    res.ExitCode(),
	}

	owner := map[types.Pair]string{}
	for _, d := range res.Dirs {
		dd := Dir{Path: d.Path, Pairs: make([]string, 0, len(d.Mdirs)), Entries: make([]Entry, 0)}
		for _, m := range d.Mdirs {
			dd.Pairs = append(dd.Pairs, m.Pair.String())
			owner[m.Pair.Key()] = d.Path
		}
		for _, e := range d.Entries() {
			dd.Entries = append(dd.Entries, b.entry(e))
		}
		doc.Dirs = append(doc.Dirs, dd)
	}

	for _, m := range res.Mdirs {
		doc.Mdirs = append(doc.Mdirs, b.mdir(m, owner[m.Pair.Key()]))
	}

	for _, run := range res.Orphans {
		o := Orphan{Pairs: make([]string, 0, len(run.Mdirs))}
		for _, m := range run.Mdirs {
			o.Pairs = append(o.Pairs, m.Pair.String())
		}
		doc.Orphans = append(doc.Orphans, o)
	}

	move, rm := res.GState.MoveState(), res.GState.RmState()
	doc.GState = GState{
		Move:        hex.EncodeToString(res.GState.Move[:]),
		Rm:          hex.EncodeToString(res.GState.Rm[:]),
		MovePending: move.Pending,
		MoveID:      move.ID,
		MovePair:    move.Pair.String(),
		RmPending:   rm.Pending,
		RmID:        rm.ID,
		RmPair:      rm.Pair.String(),
		Orphans:     res.GState.Orphans(),
	}

	for _, d := range res.Diagnostics {
		doc.Diagnostics = append(doc.Diagnostics, Diagnostic{
			Kind:    string(d.Kind),
			Path:    d.Path,
			Pair:    d.Pair.String(),
			GState:  hex.EncodeToString(d.GState),
			Detail:  d.Detail,
			Message: d.String(),
		})
	}
	return doc, nil
}

func (b *builder) entry(e mdir.Entry) Entry {
	out := Entry{
		ID:     e.ID,
		Name:   e.Name,
		Type:   string(e.Type),
		Struct: string(e.Struct),
		Size:   e.Size,
	}
	switch e.Struct {
	case mdir.StructCTZ, mdir.StructBTree:
		out.Head = blockString(e.Head)
	case mdir.StructDir:
		out.Dir = e.Dir.String()
	}
	for _, a := range e.Attrs {
		out.Attrs = append(out.Attrs, Attr{Type: tag.Label(a.Type), Data: hexData(a.Data, b.limit())})
	}
	if e.Err != nil {
		out.Error = e.Err.Error()
		return out
	}
	if e.Type == mdir.TypeDir || e.Struct == mdir.StructDir {
		return out
	}

	n := e.Size
	if b.opts.Truncate && uint32(b.opts.PreviewBytes) < n {
		n = uint32(b.opts.PreviewBytes)
		out.Truncated = true
	}
	preview, err := file.ReadAt(b.r, e, 0, n)
	if err != nil {
		out.Error = err.Error()
		return out
	}
	out.Preview = hex.EncodeToString(preview)

	if b.hasher != nil {
		sum, err := b.hasher.HashWith(func(w io.Writer) error {
			_, err := file.WriteTo(w, b.r, e)
			return err
		})
		if err != nil {
			out.Error = err.Error()
			return out
		}
		out.Digest = string(b.hasher.Algorithm()) + ":" + sum
	}
	return out
}

func (b *builder) limit() int {
	if b.opts.Truncate {
		return b.opts.PreviewBytes
	}
	return 0
}

func (b *builder) tag(t tag.Tag, commitIdx int) Tag {
	id := -1
	if t.HasID() {
		id = int(t.ID)
	}
	return Tag{
		Off:    t.Off,
		Label:  tag.Label(t.Type),
		Type:   t.Type,
		ID:     id,
		Weight: t.Weight,
		Size:   t.Size,
		Data:   hexData(t.Payload, b.limit()),
		Commit: commitIdx,
	}
}

func (b *builder) mdir(m *mdir.MDir, path string) Mdir {
	out := Mdir{Pair: m.Pair.String(), Path: path, Valid: m.Valid(), Rev: m.Rev}
	if m.Valid() {
		out.Block = blockString(m.Block())
		out.Erased = m.Log().Erased
	}

	switch b.opts.Mode {
	case ModeTags:
		if !m.Valid() {
			break
		}
		commitAt := map[int]int{}
		for _, s := range m.Log().Tags {
			commitAt[s.Off] = s.Commit
		}
		for _, t := range m.Table().Tags() {
			out.Tags = append(out.Tags, b.tag(t, commitAt[t.Off]))
		}
		for _, t := range m.Shrub().Tags() {
			out.Tags = append(out.Tags, b.tag(t, commitAt[t.Off]))
		}
	case ModeLog:
		for i, blk := range m.Pair {
			out.Logs = append(out.Logs, b.blockLog(blk, m.Logs[i], m.Errs[i], i == m.Active))
		}
	}
	return out
}

func (b *builder) blockLog(blk types.Block, log *commit.Log, readErr error, active bool) BlockLog {
	out := BlockLog{Block: blockString(blk), Active: active}
	if readErr != nil {
		out.Error = readErr.Error()
		return out
	}
	if log == nil {
		return out
	}
	out.Rev = log.Rev
	out.StopOff = log.StopOff
	out.Erased = log.Erased
	if log.StopErr != nil {
		out.Stop = log.StopErr.Error()
	}
	for _, c := range log.Commits {
		out.Commits = append(out.Commits, Commit{Off: c.Off, End: c.End, CRC: fmt.Sprintf("0x%08x", c.CRC)})
	}
	for _, s := range log.Tags {
		out.Tags = append(out.Tags, b.tag(s.Tag, s.Commit))
	}
	return out
}

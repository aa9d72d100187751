package commit_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/builder"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/commit"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/tag"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const blockSize = 512

func payloadOf(t *testing.T, tbl *commit.Table, id, typ uint16) []byte {
	t.Helper()
	tg, ok := tbl.Lookup(id, typ)
	require.True(t, ok, "missing tag 0x%03x for id %d", typ, id)
	return tg.Payload
}

func TestRoundTripTable(t *testing.T) {
	w := builder.NewBlock(blockSize, 7)
	require.NoError(t, w.Commit(
		builder.Name(tag.Reg, 0, "foo"),
		builder.Inline(0, []byte("bar")),
		builder.Name(tag.Reg, 1, "baz"),
		builder.SoftTail(types.Pair{4, 5}),
	))

	log := commit.ParseBlock(w.Bytes())
	require.True(t, log.Valid())
	assert.Equal(t, uint32(7), log.Rev)
	assert.Len(t, log.Commits, 1)
	assert.Equal(t, []uint16{0, 1}, log.Table.IDs(types.NoID))
	assert.Equal(t, []byte("foo"), payloadOf(t, log.Table, 0, tag.Reg))
	assert.Equal(t, []byte("bar"), payloadOf(t, log.Table, 0, tag.Inlined))
	assert.Equal(t, []byte("baz"), payloadOf(t, log.Table, 1, tag.Reg))
	assert.Len(t, payloadOf(t, log.Table, types.NoID, tag.SoftTail), 8)
	assert.Equal(t, 4, log.Table.Len())
}

func TestLaterTagsOverwrite(t *testing.T) {
	w := builder.NewBlock(blockSize, 1)
	require.NoError(t, w.Commit(
		builder.Name(tag.Reg, 0, "old"),
		builder.Inline(0, []byte("v1")),
	))
	require.NoError(t, w.Commit(
		builder.Name(tag.Dir, 0, "new"),
		builder.Inline(0, []byte("v2")),
	))

	log := commit.ParseBlock(w.Bytes())
	require.Len(t, log.Commits, 2)
	name, ok := log.Table.Lookup(0, tag.Reg)
	require.True(t, ok)
	assert.Equal(t, tag.Dir, name.Type, "a later name of a different subtype replaces the earlier one")
	assert.Equal(t, []byte("new"), name.Payload)
	assert.Equal(t, []byte("v2"), payloadOf(t, log.Table, 0, tag.Inlined))
}

func TestDeleteAndRemove(t *testing.T) {
	w := builder.NewBlock(blockSize, 1)
	require.NoError(t, w.Commit(
		builder.Name(tag.Reg, 0, "a"),
		builder.Inline(0, []byte("x")),
		builder.RAttr(0, 1, []byte("attr")),
		builder.Name(tag.Reg, 1, "b"),
		builder.Inline(1, []byte("y")),
	))
	require.NoError(t, w.Commit(
		builder.Delete(tag.RAttrBase|1, 0),
		builder.Remove(1),
	))

	log := commit.ParseBlock(w.Bytes())
	assert.Equal(t, []uint16{0}, log.Table.IDs(types.NoID))
	_, ok := log.Table.Lookup(0, tag.RAttrBase|1)
	assert.False(t, ok)
	assert.Len(t, log.Table.ForID(0), 2)
}

func TestTruncatedSecondCommit(t *testing.T) {
	first := func() *builder.BlockWriter {
		w := builder.NewBlock(blockSize, 3)
		require.NoError(t, w.Commit(
			builder.Name(tag.Reg, 0, "foo"),
			builder.Inline(0, []byte("bar")),
		))
		return w
	}
	expected := commit.ParseBlock(first().Bytes())
	require.True(t, expected.Valid())

	tests := []struct {
		name    string
		extend  func(w *builder.BlockWriter)
		stopErr error
	}{
		{
			name: "bad crc",
			extend: func(w *builder.BlockWriter) {
				require.NoError(t, w.CommitCorrupt(builder.Inline(0, []byte("zzz"))))
			},
			stopErr: types.ErrChecksumMismatch,
		},
		{
			name: "no checksum",
			extend: func(w *builder.BlockWriter) {
				require.NoError(t, w.Append(builder.Inline(0, []byte("zzz"))))
			},
			stopErr: commit.ErrInvalidTag,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := first()
			tt.extend(w)
			log := commit.ParseBlock(w.Bytes())

			require.Len(t, log.Commits, 1)
			assert.Equal(t, expected.Table.Tags(), log.Table.Tags())
			assert.True(t, errors.Is(log.StopErr, tt.stopErr), "stop error %v", log.StopErr)
			assert.Equal(t, []byte("bar"), payloadOf(t, log.Table, 0, tag.Inlined))

			var uncommitted int
			for _, s := range log.Tags {
				if !s.Committed() {
					uncommitted++
				}
			}
			assert.Greater(t, uncommitted, 0)
		})
	}
}

func TestScanRunsPastBuffer(t *testing.T) {
	w := builder.NewBlock(blockSize, 3)
	require.NoError(t, w.Commit(builder.Name(tag.Reg, 0, "foo")))
	end := w.Off()
	require.NoError(t, w.Commit(builder.Inline(0, bytes.Repeat([]byte{1}, 64))))

	// cut the block in the middle of the second commit's payload
	log := commit.ParseBlock(w.Bytes()[:end+20])
	require.Len(t, log.Commits, 1)
	assert.True(t, errors.Is(log.StopErr, types.ErrTruncated))
	_, ok := log.Table.Lookup(0, tag.Inlined)
	assert.False(t, ok)
}

func TestErasedBlock(t *testing.T) {
	buf := bytes.Repeat([]byte{0xFF}, blockSize)
	log := commit.ParseBlock(buf)
	assert.False(t, log.Valid())
	assert.Equal(t, uint32(0xFFFFFFFF), log.Rev)
	assert.Equal(t, 0, log.Table.Len())

	log = commit.ParseBlock([]byte{1, 2})
	assert.False(t, log.Valid())
}

func TestParseIsIdempotent(t *testing.T) {
	w := builder.NewBlock(blockSize, 9)
	require.NoError(t, w.Commit(builder.Name(tag.Reg, 0, "a"), builder.Inline(0, []byte("b"))))
	require.NoError(t, w.Commit(builder.Name(tag.Reg, 1, "c")))
	buf := w.Bytes()

	a := commit.ParseBlock(buf)
	b := commit.ParseBlock(buf)
	assert.Equal(t, a.Commits, b.Commits)
	assert.Equal(t, a.Tags, b.Tags)
	assert.Equal(t, a.Table.Tags(), b.Table.Tags())
	assert.Equal(t, a.StopOff, b.StopOff)
}

func TestShrubAndAltTags(t *testing.T) {
	w := builder.NewBlock(blockSize, 1)
	require.NoError(t, w.Commit(
		builder.Alt(true, false, tag.Reg, 2, 12),
		builder.Name(tag.Reg, 0, "foo"),
		builder.Shrub(builder.Inline(0, []byte("shrubbed"))),
		builder.Alt(false, true, 0, 0, 0),
	))

	log := commit.ParseBlock(w.Bytes())
	require.True(t, log.Valid())
	_, ok := log.Table.Lookup(0, tag.Inlined)
	assert.False(t, ok, "shrub tags stay out of the main table")
	assert.Equal(t, []byte("shrubbed"), payloadOf(t, log.Shrub, 0, tag.ShrubBit|tag.Inlined))

	var alts int
	for _, s := range log.Tags {
		if s.Category() == tag.CategoryAlt {
			alts++
			assert.Nil(t, s.Payload)
		}
	}
	assert.Equal(t, 2, alts)
	assert.Equal(t, 1, log.Table.Len())
}

func TestCommitPaddingAndEraseCheck(t *testing.T) {
	w := builder.NewBlock(blockSize, 1)
	w.Align = 16
	w.ECheck = 32
	require.NoError(t, w.Commit(builder.Name(tag.Reg, 0, "foo")))
	assert.Equal(t, 0, w.Off()%16)

	log := commit.ParseBlock(w.Bytes())
	require.True(t, log.Valid())
	assert.Equal(t, w.Off(), log.End())
	require.NotNil(t, log.ECheck)
	assert.Equal(t, uint32(32), log.ECheck.Size)
	assert.True(t, log.Erased)

	// dirty the area the erase check covers
	buf := append([]byte(nil), w.Bytes()...)
	buf[w.Off()+3] = 0x00
	log = commit.ParseBlock(buf)
	require.True(t, log.Valid())
	assert.False(t, log.Erased)
}

func TestSingleBitFlipInvalidatesCommit(t *testing.T) {
	w := builder.NewBlock(blockSize, 1)
	require.NoError(t, w.Commit(builder.Name(tag.Reg, 0, "foo"), builder.Inline(0, []byte("bar"))))
	buf := append([]byte(nil), w.Bytes()...)

	for _, off := range []int{0, 4, 5, 10, w.Off() - 5} {
		flipped := append([]byte(nil), buf...)
		flipped[off] ^= 0x04
		log := commit.ParseBlock(flipped)
		assert.False(t, log.Valid(), "bit flip at %d went unnoticed", off)
	}
}

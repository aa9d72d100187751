package mdir_test

import (
	"errors"
	"testing"

	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/builder"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/device"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/mdir"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/tag"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reader(t *testing.T, img *builder.Image) *device.Reader {
	t.Helper()
	r, err := device.NewReader(device.NewMemDevice(img.Bytes()), img.BlockSize, img.BlockCount, 0)
	require.NoError(t, err)
	return r
}

func writeBlock(t *testing.T, img *builder.Image, b types.Block, rev uint32, corrupt bool, tags ...builder.Tag) {
	t.Helper()
	w := img.NewBlock(rev)
	if corrupt {
		require.NoError(t, w.CommitCorrupt(tags...))
	} else {
		require.NoError(t, w.Commit(tags...))
	}
	img.SetBlock(b, w.Bytes())
}

func TestFetchRevisionSelection(t *testing.T) {
	tests := []struct {
		name       string
		revA, revB uint32
		corruptB   bool
		wantActive int
		wantName   string
	}{
		{"newer second block", 1, 2, false, 1, "b"},
		{"newer first block", 5, 4, false, 0, "a"},
		{"wraparound", 0xFFFFFFFF, 0, false, 1, "b"},
		{"newer block corrupt", 1, 2, true, 0, "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := builder.NewImage(512, 4)
			writeBlock(t, img, 0, tt.revA, false, builder.Name(tag.Reg, 0, "a"))
			writeBlock(t, img, 1, tt.revB, tt.corruptB, builder.Name(tag.Reg, 0, "b"))

			m := mdir.Fetch(reader(t, img), types.RootPair)
			require.True(t, m.Valid())
			assert.Equal(t, tt.wantActive, m.Active)
			assert.Equal(t, types.Block(tt.wantActive), m.Block())

			e, ok := m.Entry(0)
			require.True(t, ok)
			assert.Equal(t, tt.wantName, e.Name)
		})
	}
}

func TestFetchErasedPair(t *testing.T) {
	img := builder.NewImage(512, 4)
	m := mdir.Fetch(reader(t, img), types.RootPair)
	assert.False(t, m.Valid())
	assert.Equal(t, types.NoBlock, m.Block())
	assert.Nil(t, m.Log())
	assert.Empty(t, m.IDs())
	assert.Empty(t, m.Entries())
	assert.Contains(t, m.String(), "corrupted")
}

func TestFetchOutOfRange(t *testing.T) {
	img := builder.NewImage(512, 4)
	m := mdir.Fetch(reader(t, img), types.Pair{2, 100})
	assert.False(t, m.Valid())
	assert.NoError(t, m.Errs[0])
	require.Error(t, m.Errs[1])
	assert.True(t, errors.Is(m.Errs[1], types.ErrBlockOutOfRange))
}

func TestDemoRoot(t *testing.T) {
	img, err := builder.Demo()
	require.NoError(t, err)
	m := mdir.Fetch(reader(t, img), types.RootPair)
	require.True(t, m.Valid())
	assert.Equal(t, uint32(1), m.Rev)
	assert.Equal(t, []uint16{0, 1, 2, 3}, m.IDs())

	entries := m.Entries()
	require.Len(t, entries, 4)

	hello := entries[0]
	assert.Equal(t, "hello.txt", hello.Name)
	assert.Equal(t, mdir.TypeReg, hello.Type)
	assert.Equal(t, mdir.StructInline, hello.Struct)
	assert.Equal(t, builder.DemoFiles()["/hello.txt"], hello.Inline)
	require.Len(t, hello.Attrs, 1)
	assert.Equal(t, tag.RAttrBase|0x74, hello.Attrs[0].Type)
	assert.Equal(t, []byte("text/plain"), hello.Attrs[0].Data)

	docs := entries[1]
	assert.Equal(t, mdir.TypeDir, docs.Type)
	assert.Equal(t, mdir.StructDir, docs.Struct)
	assert.Equal(t, types.Pair{2, 3}, docs.Dir)

	big := entries[2]
	assert.Equal(t, mdir.StructCTZ, big.Struct)
	assert.Equal(t, uint32(3000), big.Size)
	assert.NotEqual(t, types.NoBlock, big.Head)

	sparse := entries[3]
	assert.Equal(t, mdir.StructBTree, sparse.Struct)
	assert.Equal(t, types.Block(20), sparse.Head)

	tail, hard, ok := m.Tail()
	require.True(t, ok)
	assert.False(t, hard)
	assert.Equal(t, types.Pair{2, 3}, tail)

	_, ok = m.Branch()
	assert.False(t, ok)

	sb, ok := m.Superblock()
	require.True(t, ok)
	assert.True(t, sb.Valid())
	assert.Equal(t, uint32(builder.DemoBlockSize), sb.BlockSize)
	assert.Equal(t, uint32(builder.DemoBlockCount), sb.BlockCount)
	assert.Equal(t, uint32(255), sb.NameLimit)
	assert.Equal(t, "2.1", sb.VersionString())
}

func TestDemoHardTail(t *testing.T) {
	img, err := builder.Demo()
	require.NoError(t, err)
	m := mdir.Fetch(reader(t, img), types.Pair{2, 3})
	require.True(t, m.Valid())

	tail, hard, ok := m.Tail()
	require.True(t, ok)
	assert.True(t, hard)
	assert.Equal(t, types.Pair{4, 5}, tail)

	_, ok = m.Superblock()
	assert.False(t, ok)
}

func TestGDelta(t *testing.T) {
	img := builder.NewImage(512, 4)
	delta := builder.GStateDelta(0x80000003, types.Pair{2, 3})
	writeBlock(t, img, 0, 1, false, builder.MoveState(delta[:8]))

	m := mdir.Fetch(reader(t, img), types.RootPair)
	require.True(t, m.Valid())

	move := m.GDelta(tag.MoveState)
	assert.Equal(t, delta[:8], move[:8])
	assert.Equal(t, make([]byte, 4), move[8:], "short deltas are zero-extended")
	assert.Equal(t, [mdir.GDeltaSize]byte{}, m.GDelta(tag.GRmDelta))
}

func TestMalformedStruct(t *testing.T) {
	img := builder.NewImage(512, 4)
	writeBlock(t, img, 0, 1, false,
		builder.Name(tag.Reg, 0, "short"),
		builder.Tag{Type: tag.CTZ, ID: 0, Data: []byte{1, 2}},
		builder.Name(tag.Reg, 1, "odd"),
		builder.Tag{Type: tag.StructBase | 0x7F, ID: 1, Data: []byte{1}},
	)
	m := mdir.Fetch(reader(t, img), types.RootPair)

	short, ok := m.Entry(0)
	require.True(t, ok)
	assert.Equal(t, mdir.StructCTZ, short.Struct)
	assert.True(t, errors.Is(short.Err, types.ErrBadStruct))

	odd, ok := m.Entry(1)
	require.True(t, ok)
	assert.Equal(t, mdir.StructUnknown, odd.Struct)
	assert.True(t, errors.Is(odd.Err, types.ErrUnsupportedStruct))
}

func TestRemovedEntryDisappears(t *testing.T) {
	img := builder.NewImage(512, 4)
	w := img.NewBlock(1)
	require.NoError(t, w.Commit(builder.Name(tag.Reg, 0, "gone"), builder.Inline(0, []byte("x")), builder.Name(tag.Reg, 1, "kept")))
	require.NoError(t, w.Commit(builder.Remove(0)))
	img.SetBlock(0, w.Bytes())

	m := mdir.Fetch(reader(t, img), types.RootPair)
	assert.Equal(t, []uint16{1}, m.IDs())
	entries := m.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "kept", entries[0].Name)
	assert.Equal(t, mdir.StructNone, entries[0].Struct)
}

package file_test

import (
	"bytes"
	"errors"
	"runtime"
	"testing"

	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/builder"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/device"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/file"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/mdir"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/tag"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reader(t *testing.T, img *builder.Image) *device.Reader {
	t.Helper()
	r, err := device.NewReader(device.NewMemDevice(img.Bytes()), img.BlockSize, img.BlockCount, 8)
	require.NoError(t, err)
	return r
}

func pattern(n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(i*7 + i/251)
	}
	return out
}

func TestPointers(t *testing.T) {
	want := map[uint32]uint32{0: 0, 1: 1, 2: 2, 3: 1, 4: 3, 6: 2, 8: 4, 12: 3}
	for n, p := range want {
		assert.Equal(t, p, file.Pointers(n), "block %d", n)
	}
}

// TestIndexMatchesLayout walks a chain byte by byte the way it is written and
// checks the closed-form index at every position
func TestIndexMatchesLayout(t *testing.T) {
	for _, bs := range []uint32{64, 128, 512, 4096} {
		var index uint32
		off := uint32(0)
		for pos := uint32(0); pos < bs*40; pos++ {
			if off == bs {
				index++
				off = file.Pointers(index) * file.PointerSize
			}
			gotIndex, gotOff := file.Index(bs, pos)
			require.Equal(t, index, gotIndex, "bs=%d pos=%d", bs, pos)
			require.Equal(t, off, gotOff, "bs=%d pos=%d", bs, pos)
			off++
		}
	}
}

func TestCTZFourBlocks(t *testing.T) {
	img := builder.NewImage(64, 16)
	// capacities 64, 60, 56, 60
	data := pattern(64 + 60 + 56 + 30)
	blocks := []types.Block{5, 9, 2, 7}
	head, used, err := img.WriteCTZ(blocks, data)
	require.NoError(t, err)
	require.Equal(t, 4, used)
	require.Equal(t, types.Block(7), head)

	r := reader(t, img)
	got, err := file.ReadCTZ(r, head, uint32(len(data)))
	require.NoError(t, err)
	assert.Equal(t, data, got)

	for pos := uint32(0); pos < uint32(len(data)); pos++ {
		b, off, err := file.FindCTZ(r, head, uint32(len(data)), pos)
		require.NoError(t, err)
		assert.Equal(t, data[pos], img.Block(b)[off], "pos %d", pos)
	}

	_, _, err = file.FindCTZ(r, head, uint32(len(data)), uint32(len(data)))
	assert.True(t, errors.Is(err, types.ErrBlockOutOfRange))
}

func TestCTZLongChainSkips(t *testing.T) {
	img := builder.NewImage(64, 64)
	blocks := make([]types.Block, 40)
	for i := range blocks {
		blocks[i] = types.Block(63 - i)
	}
	data := pattern(2000)
	head, _, err := img.WriteCTZ(blocks, data)
	require.NoError(t, err)

	r := reader(t, img)
	got, err := file.ReadCTZ(r, head, uint32(len(data)))
	require.NoError(t, err)
	assert.Equal(t, data, got)

	e := mdir.Entry{Name: "long", Struct: mdir.StructCTZ, Head: head, Size: uint32(len(data))}
	for _, w := range []struct{ off, n uint32 }{{0, 10}, {63, 5}, {500, 300}, {1990, 50}, {3000, 1}} {
		part, err := file.ReadAt(r, e, w.off, w.n)
		require.NoError(t, err)
		end := w.off + w.n
		if end > uint32(len(data)) {
			end = uint32(len(data))
		}
		if w.off > uint32(len(data)) {
			assert.Empty(t, part)
			continue
		}
		assert.Equal(t, data[w.off:end], part, "window %d+%d", w.off, w.n)
	}
}

func TestCTZEmptyAndBroken(t *testing.T) {
	img := builder.NewImage(64, 8)
	r := reader(t, img)

	got, err := file.ReadCTZ(r, types.NoBlock, 0)
	require.NoError(t, err)
	assert.Empty(t, got)

	// erased head: pointer 0 reads as 0xFFFFFFFF
	_, err = file.ReadCTZ(r, 3, 200)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrBlockOutOfRange))
}

func TestBTreeDemo(t *testing.T) {
	img, err := builder.Demo()
	require.NoError(t, err)
	r := reader(t, img)

	want := builder.DemoFiles()["/sparse.bin"]
	got, err := file.ReadBTree(r, 20, uint32(len(want)))
	require.NoError(t, err)
	assert.True(t, bytes.Equal(want, got))

	var nodes []types.Block
	require.NoError(t, file.Leaves(r, 20, func(node types.Block, tg tag.Tag) error {
		nodes = append(nodes, node)
		return nil
	}))
	assert.Equal(t, []types.Block{21, 21, 22}, nodes)

	short, err := file.ReadBTree(r, 20, 10)
	require.NoError(t, err)
	assert.Equal(t, want[:10], short)
}

func TestBTreeCycle(t *testing.T) {
	img := builder.NewImage(512, 8)
	require.NoError(t, img.WriteNode(2, builder.NodeBranch(0, 3, 10)))
	require.NoError(t, img.WriteNode(3, builder.NodeBranch(0, 2, 10)))

	_, err := file.ReadBTree(reader(t, img), 2, 10)
	assert.True(t, errors.Is(err, types.ErrCycleDetected))
}

func TestBTreeBadNodes(t *testing.T) {
	img := builder.NewImage(512, 8)
	require.NoError(t, img.WriteNode(2, builder.NodeBranch(0, 4, 10)))
	require.NoError(t, img.WriteNode(3, builder.BlockFragment(0, 10, 5, 500, 100)))
	r := reader(t, img)

	_, err := file.ReadBTree(r, 2, 10)
	assert.True(t, errors.Is(err, types.ErrBadStruct), "erased child node")

	_, err = file.ReadBTree(r, 3, 10)
	assert.True(t, errors.Is(err, types.ErrBadStruct), "fragment past block end")
}

func TestReadDispatch(t *testing.T) {
	img, err := builder.Demo()
	require.NoError(t, err)
	r := reader(t, img)
	root := mdir.Fetch(r, types.RootPair)

	files := builder.DemoFiles()
	for _, e := range root.Entries() {
		data, err := file.Read(r, e)
		if e.Type == mdir.TypeDir {
			assert.True(t, errors.Is(err, types.ErrNotFile))
			continue
		}
		require.NoError(t, err, e.Name)
		assert.Equal(t, files["/"+e.Name], data, e.Name)
	}

	data, err := file.Read(r, mdir.Entry{Struct: mdir.StructNone})
	require.NoError(t, err)
	assert.Empty(t, data)

	part, err := file.ReadAt(r, root.Entries()[0], 7, 8)
	require.NoError(t, err)
	assert.Equal(t, []byte("littlefs"), part)
}

func TestBTreeSparseWindow(t *testing.T) {
	const size = 1 << 30
	img := builder.NewImage(512, 8)
	require.NoError(t, img.WriteNode(2, builder.InlineFragment(0, 4, []byte("abc"))))
	r := reader(t, img)
	e := mdir.Entry{Name: "huge", Type: mdir.TypeReg, Struct: mdir.StructBTree, Head: 2, Size: size}

	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	head, err := file.ReadAt(r, e, 0, 16)
	runtime.ReadMemStats(&after)
	require.NoError(t, err)
	assert.Equal(t, append([]byte("abc"), make([]byte, 13)...), head)
	assert.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(1<<20), "preview allocated the declared size")

	mid, err := file.ReadAt(r, e, 1, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte("bc\x00\x00"), mid)

	tail, err := file.ReadAt(r, e, size-4, 16)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 4), tail)

	past, err := file.ReadAt(r, e, size, 16)
	require.NoError(t, err)
	assert.Empty(t, past)
}

func TestBTreeWindowsMatchFullRead(t *testing.T) {
	img, err := builder.Demo()
	require.NoError(t, err)
	r := reader(t, img)
	want := builder.DemoFiles()["/sparse.bin"]
	e := mdir.Entry{Name: "sparse.bin", Type: mdir.TypeReg, Struct: mdir.StructBTree, Head: 20, Size: uint32(len(want))}

	windows := []struct{ off, n uint32 }{
		{0, 16}, {500, 30}, {512, 3}, {514, 20}, {1000, 200}, {1124, 100}, {uint32(len(want)) - 5, 50},
	}
	for _, w := range windows {
		got, err := file.ReadAt(r, e, w.off, w.n)
		require.NoError(t, err)
		end := w.off + w.n
		if end > uint32(len(want)) {
			end = uint32(len(want))
		}
		assert.Equal(t, want[w.off:end], got, "window %d+%d", w.off, w.n)
	}
}

func TestWriteToStreamsContents(t *testing.T) {
	img, err := builder.Demo()
	require.NoError(t, err)
	r := reader(t, img)
	root := mdir.Fetch(r, types.RootPair)

	files := builder.DemoFiles()
	for _, e := range root.Entries() {
		var buf bytes.Buffer
		n, err := file.WriteTo(&buf, r, e)
		if e.Type == mdir.TypeDir {
			assert.True(t, errors.Is(err, types.ErrNotFile))
			continue
		}
		require.NoError(t, err, e.Name)
		assert.Equal(t, int64(len(files["/"+e.Name])), n, e.Name)
		assert.Equal(t, files["/"+e.Name], buf.Bytes(), e.Name)
	}
}

func TestCTZSizeLargerThanDevice(t *testing.T) {
	img := builder.NewImage(64, 8)
	r := reader(t, img)

	_, err := file.ReadCTZ(r, 3, 64*8+1)
	assert.True(t, errors.Is(err, types.ErrBadStruct))

	e := mdir.Entry{Name: "big", Type: mdir.TypeReg, Struct: mdir.StructCTZ, Head: 3, Size: 0xFFFFFFFF}
	_, err = file.ReadAt(r, e, 0, 16)
	assert.True(t, errors.Is(err, types.ErrBadStruct))
}

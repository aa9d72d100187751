package builder

import (
	"bytes"

	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/tag"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/types"
)

// Demo geometry
const (
	DemoBlockSize  = 512
	DemoBlockCount = 64
)

// DemoFiles is the content of every regular file in the demo image, by path
func DemoFiles() map[string][]byte {
	return map[string][]byte{
		"/hello.txt":      []byte("Hello, littlefs!\n"),
		"/big.bin":        demoBig(),
		"/sparse.bin":     demoSparse(),
		"/docs/readme.md": []byte("# docs\n"),
		"/docs/notes.txt": []byte("continued in a second metadata pair\n"),
	}
}

func demoBig() []byte {
	data := make([]byte, 3000)
	for i := range data {
		data[i] = byte('a' + i%26)
	}
	return data
}

func demoSparse() []byte {
	var b bytes.Buffer
	b.Write(bytes.Repeat([]byte{0x5A}, 512))
	b.Write([]byte("abc"))
	b.Write(make([]byte, 512-3))
	b.Write(bytes.Repeat([]byte{0x11}, 100))
	b.Write(make([]byte, 500))
	return b.Bytes()
}

// Demo builds a small, consistent image: a root with an inline file, a ctz
// file, a B-tree file and a subdirectory spread over two metadata pairs.
func Demo() (*Image, error) {
	img := NewImage(DemoBlockSize, DemoBlockCount)
	files := DemoFiles()

	ctzBlocks := []types.Block{10, 11, 12, 13, 14, 15, 16, 17}
	head, _, err := img.WriteCTZ(ctzBlocks, files["/big.bin"])
	if err != nil {
		return nil, err
	}

	// sparse.bin: root node 20 -> nodes 21 and 22, data blocks 23 and 24
	sparse := files["/sparse.bin"]
	img.SetBlock(23, sparse[:512])
	img.SetBlock(24, sparse[1024:1124])
	if err := img.WriteNode(21,
		BlockFragment(0, 512, 23, 0, 512),
		InlineFragment(1, 512, []byte("abc")),
	); err != nil {
		return nil, err
	}
	if err := img.WriteNode(22,
		BlockFragment(0, 600, 24, 0, 100),
	); err != nil {
		return nil, err
	}
	if err := img.WriteNode(20,
		NodeBranch(0, 21, 1024),
		NodeBranch(1, 22, 600),
	); err != nil {
		return nil, err
	}

	root := append(Superblock(DemoBlockSize, DemoBlockCount),
		Name(tag.Reg, 0, "hello.txt"),
		Inline(0, files["/hello.txt"]),
		Name(tag.Dir, 1, "docs"),
		DirStruct(1, types.Pair{2, 3}),
		Name(tag.Reg, 2, "big.bin"),
		CTZStruct(2, head, uint32(len(files["/big.bin"]))),
		Name(tag.Reg, 3, "sparse.bin"),
		BTreeStruct(3, 20, uint32(len(sparse))),
		SoftTail(types.Pair{2, 3}),
	)
	if err := img.WriteMdir(types.RootPair, 1, root,
		[]Tag{RAttr(0, 0x74, []byte("text/plain"))},
	); err != nil {
		return nil, err
	}

	if err := img.WriteMdir(types.Pair{2, 3}, 1, []Tag{
		Name(tag.Reg, 0, "readme.md"),
		Inline(0, files["/docs/readme.md"]),
		HardTail(types.Pair{4, 5}),
	}); err != nil {
		return nil, err
	}

	if err := img.WriteMdir(types.Pair{4, 5}, 1, []Tag{
		Name(tag.Reg, 0, "notes.txt"),
		Inline(0, files["/docs/notes.txt"]),
	}); err != nil {
		return nil, err
	}
	return img, nil
}

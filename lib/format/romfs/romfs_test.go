package romfs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartvfs/n3ds/lib/accessor"
	"github.com/cartvfs/n3ds/lib/vfserr"
)

func sampleTree() *Tree {
	root := &Dir{
		Files: []*File{
			{Name: "info.txt", Data: []byte("hello romfs")},
		},
		Dirs: []*Dir{
			{
				Name: "textures",
				Files: []*File{
					{Name: "a.bin", Data: []byte{1, 2, 3}},
					{Name: "b.bin", Data: make([]byte, 5000)},
				},
			},
			{
				Name:  "sound",
				Files: []*File{{Name: "bgm.bin", Data: []byte("music bytes")}},
			},
		},
	}
	for i := range root.Dirs[0].Files[1].Data {
		root.Dirs[0].Files[1].Data[i] = byte(i)
	}
	return &Tree{Root: root}
}

func TestBuildLoad_RoundTrip(t *testing.T) {
	tree := sampleTree()

	raw, err := Build(tree)
	require.NoError(t, err)
	require.True(t, Probe(accessor.NewMemory(raw)))

	decoded, err := Load(accessor.NewMemory(raw))
	require.NoError(t, err)

	rootFile, ok := decoded.Root.FindFile("info.txt")
	require.True(t, ok)
	assert.Equal(t, []byte("hello romfs"), rootFile.Data)

	textures, ok := decoded.Root.FindDir([]string{"textures"})
	require.True(t, ok)
	a, ok := textures.FindFile("a.bin")
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, a.Data)
	b, ok := textures.FindFile("b.bin")
	require.True(t, ok)
	assert.Equal(t, tree.Root.Dirs[0].Files[1].Data, b.Data)

	sound, ok := decoded.Root.FindDir([]string{"sound"})
	require.True(t, ok)
	bgm, ok := sound.FindFile("bgm.bin")
	require.True(t, ok)
	assert.Equal(t, []byte("music bytes"), bgm.Data)
}

func TestBuild_Deterministic(t *testing.T) {
	unsorted := &Dir{
		Files: []*File{
			{Name: "zeta.bin", Data: []byte{9}},
			{Name: "alpha.bin", Data: []byte{1}},
		},
		Dirs: []*Dir{
			{Name: "b_dir"},
			{Name: "a_dir"},
		},
	}
	raw1, err := Build(&Tree{Root: unsorted})
	require.NoError(t, err)

	reordered := &Dir{
		Files: []*File{
			{Name: "alpha.bin", Data: []byte{1}},
			{Name: "zeta.bin", Data: []byte{9}},
		},
		Dirs: []*Dir{
			{Name: "a_dir"},
			{Name: "b_dir"},
		},
	}
	raw2, err := Build(&Tree{Root: reordered})
	require.NoError(t, err)

	assert.Equal(t, raw1, raw2)
}

func TestLoad_RejectsNonIVFC(t *testing.T) {
	_, err := Load(accessor.NewMemory(make([]byte, 0x100)))
	require.Error(t, err)
}

func TestProbe_TooSmall(t *testing.T) {
	assert.False(t, Probe(accessor.NewMemory(make([]byte, 4))))
}

func TestBuild_RejectsDuplicateSiblingFiles(t *testing.T) {
	root := &Dir{
		Files: []*File{
			{Name: "dup.bin", Data: []byte{1}},
			{Name: "dup.bin", Data: []byte{2}},
		},
	}
	_, err := Build(&Tree{Root: root})
	require.Error(t, err)
	assert.True(t, errors.Is(err, vfserr.ErrInvalidTree))
}

func TestBuild_RejectsDuplicateSiblingDirAndFile(t *testing.T) {
	root := &Dir{
		Dirs:  []*Dir{{Name: "same"}},
		Files: []*File{{Name: "same", Data: []byte{1}}},
	}
	_, err := Build(&Tree{Root: root})
	require.Error(t, err)
	assert.True(t, errors.Is(err, vfserr.ErrInvalidTree))
}

func TestBuild_RejectsDuplicateSiblingNestedDirs(t *testing.T) {
	root := &Dir{
		Dirs: []*Dir{
			{
				Name: "parent",
				Dirs: []*Dir{
					{Name: "child"},
					{Name: "child"},
				},
			},
		},
	}
	_, err := Build(&Tree{Root: root})
	require.Error(t, err)
	assert.True(t, errors.Is(err, vfserr.ErrInvalidTree))
}

func TestCheckDataRegionSize_RejectsOverSizeLimit(t *testing.T) {
	assert.NoError(t, checkDataRegionSize(maxDataRegionSize))

	err := checkDataRegionSize(maxDataRegionSize + 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, vfserr.ErrSizeLimit))
}

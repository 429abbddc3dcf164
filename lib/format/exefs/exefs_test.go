package exefs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartvfs/n3ds/lib/accessor"
)

func TestBuildExeFS_RoundTrip(t *testing.T) {
	files := []NamedFile{
		{Name: "icon", Data: []byte{1, 2, 3, 4}},
		{Name: "banner.bnr", Data: make([]byte, 0x1234)}, // truncated below to fit name limit
		{Name: "code.bin", Data: []byte("main code bytes")},
	}
	files[1].Name = "banner"
	for i := range files[1].Data {
		files[1].Data[i] = byte(i)
	}

	raw, err := BuildExeFS(files)
	require.NoError(t, err)
	require.Equal(t, HeaderSize, len(raw[:HeaderSize]))

	acc := accessor.NewMemory(raw)
	decoded, err := Load(acc)
	require.NoError(t, err)
	require.Len(t, decoded.Entries, len(files))

	for _, f := range files {
		entry, ok := decoded.Find(f.Name)
		require.True(t, ok, "missing %s", f.Name)
		got, err := entry.Data.Read(0, entry.Data.Len())
		require.NoError(t, err)
		assert.Equal(t, f.Data, got)
	}
}

func TestBuildExeFS_CapacityLimits(t *testing.T) {
	var tooMany []NamedFile
	for i := 0; i < MaxFiles+1; i++ {
		tooMany = append(tooMany, NamedFile{Name: "f", Data: []byte{1}})
	}
	_, err := BuildExeFS(tooMany)
	require.Error(t, err)

	_, err = BuildExeFS([]NamedFile{{Name: "toolongname", Data: []byte{1}}})
	require.Error(t, err)
}

func TestLoad_IgnoresEmptySlots(t *testing.T) {
	raw, err := BuildExeFS([]NamedFile{{Name: "only", Data: []byte("x")}})
	require.NoError(t, err)

	decoded, err := Load(accessor.NewMemory(raw))
	require.NoError(t, err)
	assert.Len(t, decoded.Entries, 1)
}

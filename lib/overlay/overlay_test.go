package overlay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartvfs/n3ds/internal/hostfs"
)

func TestWrite_ThenRead(t *testing.T) {
	o := New(hostfs.NewMemory(), "")

	data, ok := o.ReadFile("/a/b.txt")
	assert.False(t, ok)

	require.NoError(t, o.Write("/a/b.txt", []byte("hello")))
	data, ok = o.ReadFile("/a/b.txt")
	require.True(t, ok)
	assert.Equal(t, "hello", string(data))
	assert.False(t, o.IsDeleted("/a/b.txt"))
}

func TestDelete_ThenWrite_Resurrects(t *testing.T) {
	o := New(hostfs.NewMemory(), "")

	require.NoError(t, o.Write("/a/b.txt", []byte("hello")))
	require.NoError(t, o.Delete("/a/b.txt"))
	assert.True(t, o.IsDeleted("/a/b.txt"))
	_, ok := o.ReadFile("/a/b.txt")
	assert.False(t, ok)

	require.NoError(t, o.Write("/a/b.txt", []byte("again")))
	assert.False(t, o.IsDeleted("/a/b.txt"))
	data, ok := o.ReadFile("/a/b.txt")
	require.True(t, ok)
	assert.Equal(t, "again", string(data))
}

func TestDelete_CaseInsensitive(t *testing.T) {
	o := New(hostfs.NewMemory(), "")
	require.NoError(t, o.Delete("/A/B.txt"))
	assert.True(t, o.IsDeleted("/a/b.txt"))
}

func TestCreateDirectory_ClearsBlacklist(t *testing.T) {
	o := New(hostfs.NewMemory(), "")
	require.NoError(t, o.Delete("/dir"))
	require.NoError(t, o.CreateDirectory("/dir"))
	assert.False(t, o.IsDeleted("/dir"))
	assert.True(t, o.HasDirectory("/dir"))
}

func TestListUnder_NonRecursive(t *testing.T) {
	o := New(hostfs.NewMemory(), "")
	require.NoError(t, o.Write("/a/one.txt", []byte("1")))
	require.NoError(t, o.Write("/a/sub/two.txt", []byte("2")))

	entries, err := o.ListUnder("/a", false)
	require.NoError(t, err)

	names := map[string]bool{}
	for _, e := range entries {
		names[e.Path] = true
	}
	assert.True(t, names["/a/one.txt"])
	assert.True(t, names["/a/sub"])
	assert.False(t, names["/a/sub/two.txt"])
}

func TestListUnder_Recursive(t *testing.T) {
	o := New(hostfs.NewMemory(), "")
	require.NoError(t, o.Write("/a/one.txt", []byte("1")))
	require.NoError(t, o.Write("/a/sub/two.txt", []byte("2")))

	entries, err := o.ListUnder("/a", true)
	require.NoError(t, err)

	names := map[string]bool{}
	for _, e := range entries {
		names[e.Path] = true
	}
	assert.True(t, names["/a/sub/two.txt"])
}

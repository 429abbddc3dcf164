package hostfs

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func testFS(t *testing.T, fs FS) {
	t.Helper()

	require.False(t, fs.FileExists("/a/b.txt"))
	require.NoError(t, fs.WriteAllBytes("/a/b.txt", []byte("hello")))
	require.True(t, fs.FileExists("/a/b.txt"))
	require.True(t, fs.DirectoryExists("/a"))

	got, err := fs.ReadAllBytes("/a/b.txt")
	require.NoError(t, err)
	require.Equal(t, "hello", string(got))

	require.NoError(t, fs.CreateDirectory("/empty/dir"))
	require.True(t, fs.DirectoryExists("/empty/dir"))

	require.NoError(t, fs.DeleteDirectory("/a"))
	require.False(t, fs.FileExists("/a/b.txt"))

	_, err = fs.ReadAllBytes("/a/b.txt")
	require.Error(t, err)
}

func TestMemoryFS(t *testing.T) {
	testFS(t, NewMemory())
}

func TestDiskFS(t *testing.T) {
	dir := t.TempDir()
	fs := NewDisk()

	join := func(p string) string { return filepath.Join(dir, p) }
	require.False(t, fs.FileExists(join("a/b.txt")))
	require.NoError(t, fs.WriteAllBytes(join("a/b.txt"), []byte("hello")))
	require.True(t, fs.FileExists(join("a/b.txt")))
	require.True(t, fs.DirectoryExists(join("a")))

	got, err := fs.ReadAllBytes(join("a/b.txt"))
	require.NoError(t, err)
	require.Equal(t, "hello", string(got))

	require.NoError(t, fs.DeleteDirectory(join("a")))
	require.False(t, fs.FileExists(join("a/b.txt")))
}

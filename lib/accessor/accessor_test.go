package accessor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartvfs/n3ds/lib/vfserr"
)

func TestMemoryAccessor_ReadsAndSlices(t *testing.T) {
	buf := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0A}
	root := NewMemory(buf)

	require.Equal(t, int64(10), root.Len())

	u16, err := root.ReadU16LE(0)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0201), u16)

	u32, err := root.ReadU32LE(2)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x06050403), u32)

	sub, err := root.Slice(4, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(4), sub.Len())

	b, err := sub.Read(0, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x05, 0x06, 0x07, 0x08}, b)
}

func TestMemoryAccessor_OutOfRange(t *testing.T) {
	root := NewMemory(make([]byte, 4))

	_, err := root.Read(0, 8)
	assert.True(t, vfserr.Is(err, vfserr.OutOfRange))

	_, err = root.Slice(2, 4)
	assert.True(t, vfserr.Is(err, vfserr.OutOfRange))
}

func TestMemoryAccessor_SliceSharesBacking(t *testing.T) {
	buf := make([]byte, 8)
	root := NewMemory(buf)

	sub, err := root.SliceMutable(4, 4)
	require.NoError(t, err)

	require.NoError(t, sub.Write(0, []byte{0xAA, 0xBB}))

	got, err := root.Read(4, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0xBB}, got)
}

func TestMemoryAccessor_DoubleSlice(t *testing.T) {
	buf := []byte("0123456789")
	root := NewMemory(buf)

	a, err := root.Slice(2, 6) // "234567"
	require.NoError(t, err)
	b, err := a.Slice(1, 3) // "345"
	require.NoError(t, err)

	s, err := b.ReadString(0, 3)
	require.NoError(t, err)
	assert.Equal(t, "345", s)
}

package nds

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartvfs/n3ds/lib/accessor"
)

// buildImage assembles a minimal, hand-laid-out DS image:
//
//	/hello.txt
//	/sub/world.txt
//
// plus an ARM9 region, with withFooter controlling whether the 0x2106C0DE
// footer magic immediately follows the declared ARM9 size.
func buildImage(t *testing.T, withFooter bool) ([]byte, map[string]string) {
	t.Helper()

	const (
		arm9Off  = 0x200
		arm9Size = 0x10
		fntOff   = 0x240
	)

	mainTableSize := 2 * mainTableEntrySize
	sub0Off := uint32(mainTableSize)
	sub0 := []byte{}
	sub0 = append(sub0, 9)
	sub0 = append(sub0, []byte("hello.txt")...)
	sub0 = append(sub0, 128+3)
	sub0 = append(sub0, []byte("sub")...)
	sub0 = append(sub0, 0, 0) // subDirID 0xF001 filled below
	binary.LittleEndian.PutUint16(sub0[len(sub0)-2:], 0xF001)
	sub0 = append(sub0, 0) // terminator

	sub1Off := sub0Off + uint32(len(sub0))
	sub1 := []byte{}
	sub1 = append(sub1, 9)
	sub1 = append(sub1, []byte("world.txt")...)
	sub1 = append(sub1, 0)

	fntSize := uint32(mainTableSize) + uint32(len(sub0)) + uint32(len(sub1))
	fatOff := fntOff + fntSize

	file0 := []byte("hello world!")
	file1 := []byte("second file")
	dataBase := fatOff + 2*fatEntrySize
	file0Start, file0End := dataBase, dataBase+uint32(len(file0))
	file1Start, file1End := file0End, file0End+uint32(len(file1))

	total := file1End
	buf := make([]byte, total)

	binary.LittleEndian.PutUint32(buf[arm9OffsetOff:], arm9Off)
	binary.LittleEndian.PutUint32(buf[arm9SizeOff:], arm9Size)
	binary.LittleEndian.PutUint32(buf[arm7OffsetOff:], arm9Off) // unused by this test, point at arm9 to stay in range
	binary.LittleEndian.PutUint32(buf[arm7SizeOff:], arm9Size)
	binary.LittleEndian.PutUint32(buf[fntOffsetOff:], fntOff)
	binary.LittleEndian.PutUint32(buf[fntSizeOff:], fntSize)
	binary.LittleEndian.PutUint32(buf[fatOffsetOff:], fatOff)
	binary.LittleEndian.PutUint32(buf[fatSizeOff:], 2*fatEntrySize)

	for i, b := range []byte("CART") {
		buf[gameCodeOff+i] = b
	}

	if withFooter {
		binary.LittleEndian.PutUint32(buf[arm9Off+arm9Size:], Arm9FooterMagic)
	}

	// main table: entry0 (root, dirCount=2), entry1 (sub, parent=root)
	binary.LittleEndian.PutUint32(buf[fntOff:], sub0Off)
	binary.LittleEndian.PutUint16(buf[fntOff+4:], 0)
	binary.LittleEndian.PutUint16(buf[fntOff+6:], 2) // dir count
	binary.LittleEndian.PutUint32(buf[fntOff+8:], sub1Off)
	binary.LittleEndian.PutUint16(buf[fntOff+12:], 1)
	binary.LittleEndian.PutUint16(buf[fntOff+14:], 0xF000)

	copy(buf[int(fntOff+sub0Off):], sub0)
	copy(buf[int(fntOff+sub1Off):], sub1)

	binary.LittleEndian.PutUint32(buf[fatOff:], file0Start)
	binary.LittleEndian.PutUint32(buf[fatOff+4:], file0End)
	binary.LittleEndian.PutUint32(buf[fatOff+8:], file1Start)
	binary.LittleEndian.PutUint32(buf[fatOff+12:], file1End)

	copy(buf[file0Start:], file0)
	copy(buf[file1Start:], file1)

	return buf, map[string]string{"hello.txt": string(file0), "sub/world.txt": string(file1)}
}

func TestLoad_DecodesFntTree(t *testing.T) {
	buf, contents := buildImage(t, false)
	cart, err := Load(accessor.NewMemory(buf))
	require.NoError(t, err)

	require.Len(t, cart.Root.Files, 1)
	assert.Equal(t, "hello.txt", cart.Root.Files[0].Name)
	data, err := cart.Root.Files[0].Data.Read(0, cart.Root.Files[0].Data.Len())
	require.NoError(t, err)
	assert.Equal(t, contents["hello.txt"], string(data))

	require.Len(t, cart.Root.Dirs, 1)
	sub := cart.Root.Dirs[0]
	assert.Equal(t, "sub", sub.Name)
	require.Len(t, sub.Files, 1)
	data, err = sub.Files[0].Data.Read(0, sub.Files[0].Data.Len())
	require.NoError(t, err)
	assert.Equal(t, contents["sub/world.txt"], string(data))
}

func TestFAT_StartEndAreDistinctFields(t *testing.T) {
	buf, _ := buildImage(t, false)
	cart, err := Load(accessor.NewMemory(buf))
	require.NoError(t, err)

	require.Len(t, cart.Fat, 2)
	assert.NotEqual(t, cart.Fat[0].Start, cart.Fat[0].End)
	assert.Equal(t, uint32(12), cart.Fat[0].Length())
	assert.Equal(t, uint32(11), cart.Fat[1].Length())
}

func TestArm9_FooterExtendsLength(t *testing.T) {
	withFooter, _ := buildImage(t, true)
	cart, err := Load(accessor.NewMemory(withFooter))
	require.NoError(t, err)
	arm9, err := cart.Arm9()
	require.NoError(t, err)
	assert.EqualValues(t, 0x10+12, arm9.Len())

	withoutFooter, _ := buildImage(t, false)
	cart2, err := Load(accessor.NewMemory(withoutFooter))
	require.NoError(t, err)
	arm9b, err := cart2.Arm9()
	require.NoError(t, err)
	assert.EqualValues(t, 0x10, arm9b.Len())
}

func TestParseSubTable_RejectsReservedLength(t *testing.T) {
	buf, _ := buildImage(t, false)
	// Corrupt the root sub-table's first length byte to the reserved 0x80.
	buf[0x240+16] = 0x80
	_, err := Load(accessor.NewMemory(buf))
	require.Error(t, err)
}

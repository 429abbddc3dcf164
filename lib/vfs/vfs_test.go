package vfs

import (
	"crypto/sha256"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartvfs/n3ds/lib/accessor"
	"github.com/cartvfs/n3ds/lib/format/exefs"
	"github.com/cartvfs/n3ds/lib/format/ncch"
	"github.com/cartvfs/n3ds/lib/format/romfs"
)

// buildNCCHPartition hand-assembles a single media-unit-aligned NCCH
// partition: the 0x200-byte header (magic + ExeFS/RomFS region table)
// followed immediately by the ExeFS bytes (if any) and the RomFS bytes (if
// any), each placed on a media-unit boundary.
func buildNCCHPartition(t *testing.T, exefsBytes, romfsBytes []byte) []byte {
	t.Helper()

	const mu = ncch.MediaUnitSize
	cursor := int64(ncch.HeaderSize)

	var exefsOff, exefsLen, romfsOff, romfsLen uint32
	var body []byte
	if exefsBytes != nil {
		exefsOff = uint32(cursor / mu)
		exefsLen = uint32((int64(len(exefsBytes)) + mu - 1) / mu)
		body = append(body, exefsBytes...)
		for int64(len(body))%mu != 0 {
			body = append(body, 0)
		}
		cursor += int64(exefsLen) * mu
	}
	if romfsBytes != nil {
		romfsOff = uint32(cursor / mu)
		romfsLen = uint32((int64(len(romfsBytes)) + mu - 1) / mu)
		body = append(body, romfsBytes...)
		for int64(len(body))%mu != 0 {
			body = append(body, 0)
		}
		cursor += int64(romfsLen) * mu
	}

	header := make([]byte, ncch.HeaderSize)
	copy(header[0x100:0x104], "NCCH")
	if exefsBytes != nil {
		binary.LittleEndian.PutUint32(header[0x1A0:], exefsOff)
		binary.LittleEndian.PutUint32(header[0x1A4:], exefsLen)
	}
	if romfsBytes != nil {
		binary.LittleEndian.PutUint32(header[0x1B0:], romfsOff)
		binary.LittleEndian.PutUint32(header[0x1B4:], romfsLen)
	}

	return append(header, body...)
}

// buildNCSD hand-assembles an NCSD container from a set of partition
// blobs, each already media-unit aligned, placed back to back after the
// NCSD header.
func buildNCSD(t *testing.T, partitions map[int][]byte) []byte {
	t.Helper()

	const mu = ncch.MediaUnitSize
	out := make([]byte, ncch.HeaderSize)
	copy(out[0x100:0x104], "NCSD")

	for i := 0; i < 8; i++ {
		blob, ok := partitions[i]
		if !ok {
			continue
		}
		off := uint32(len(out) / mu)
		size := uint32((len(blob) + mu - 1) / mu)
		entryOff := 0x120 + i*8
		binary.LittleEndian.PutUint32(out[entryOff:], off)
		binary.LittleEndian.PutUint32(out[entryOff+4:], size)
		out = append(out, blob...)
		for len(out)%mu != 0 {
			out = append(out, 0)
		}
	}
	return out
}

func romTreeWithFile(name string, data []byte) *romfs.Tree {
	return &romfs.Tree{Root: &romfs.Dir{Files: []*romfs.File{{Name: name, Data: data}}}}
}

// TestScenario1_NCSDOpenAndList covers spec's end-to-end scenario 1: a CCI
// with partitions {0: NCCH(ExeFS+RomFS), 1: NCCH(RomFS), 6: NCCH(RomFS)}.
func TestScenario1_NCSDOpenAndList(t *testing.T) {
	exefsBytes, err := exefs.BuildExeFS([]exefs.NamedFile{{Name: "code.bin", Data: []byte("hi")}})
	require.NoError(t, err)
	romfsBytes, err := romfs.Build(romTreeWithFile("a.txt", []byte("x")))
	require.NoError(t, err)

	part0 := buildNCCHPartition(t, exefsBytes, romfsBytes)
	part1 := buildNCCHPartition(t, nil, romfsBytes)
	part6 := buildNCCHPartition(t, nil, romfsBytes)

	image := buildNCSD(t, map[int][]byte{0: part0, 1: part1, 6: part6})

	rom, err := Open(accessor.NewMemory(image))
	require.NoError(t, err)

	dirs, err := rom.GetDirectories("/", "*", true)
	require.NoError(t, err)
	want := map[string]bool{"/ExeFS/": true, "/RomFS/": true, "/Manual/": true, "/N3DSUpdate/": true}
	got := map[string]bool{}
	for _, d := range dirs {
		got[d] = true
	}
	for name := range want {
		assert.True(t, got[name], "missing directory %s", name)
	}

	assert.True(t, rom.FileExists("/Header.bin"))
	assert.True(t, rom.FileExists("/Header-6.bin"))
	assert.False(t, rom.FileExists("/Header-3.bin"))
}

// TestScenario2_ExeFSRead covers spec's end-to-end scenario 2.
func TestScenario2_ExeFSRead(t *testing.T) {
	payload := make([]byte, 0x1234)
	for i := range payload {
		payload[i] = byte(i)
	}
	exefsBytes, err := exefs.BuildExeFS([]exefs.NamedFile{{Name: "code.bin", Data: payload}})
	require.NoError(t, err)

	part0 := buildNCCHPartition(t, exefsBytes, nil)
	image := buildNCSD(t, map[int][]byte{0: part0})

	rom, err := Open(accessor.NewMemory(image))
	require.NoError(t, err)

	data, err := rom.ReadAllBytes("/ExeFS/code.bin")
	require.NoError(t, err)
	assert.Len(t, data, 0x1234)

	want := sha256.Sum256(payload)
	got := sha256.Sum256(data)
	assert.Equal(t, want, got)
}

// TestScenario3_OverlayShadowsBacking covers spec's end-to-end scenario 3.
func TestScenario3_OverlayShadowsBacking(t *testing.T) {
	romfsBytes, err := romfs.Build(&romfs.Tree{Root: &romfs.Dir{
		Dirs: []*romfs.Dir{{Name: "a", Files: []*romfs.File{{Name: "b.txt", Data: []byte("backing")}}}},
	}})
	require.NoError(t, err)

	part0 := buildNCCHPartition(t, nil, romfsBytes)
	image := buildNCSD(t, map[int][]byte{0: part0})

	rom, err := Open(accessor.NewMemory(image))
	require.NoError(t, err)

	require.NoError(t, rom.WriteAllBytes("/RomFS/a/b.txt", []byte("hello")))
	data, err := rom.ReadAllBytes("/RomFS/a/b.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	files, err := rom.GetFiles("/RomFS/a", "*", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"/RomFS/a/b.txt"}, files)
}

// TestScenario4_DeleteThenResurrect covers spec's end-to-end scenario 4.
func TestScenario4_DeleteThenResurrect(t *testing.T) {
	romfsBytes, err := romfs.Build(romTreeWithFile("foo.dat", []byte("orig")))
	require.NoError(t, err)

	part0 := buildNCCHPartition(t, nil, romfsBytes)
	image := buildNCSD(t, map[int][]byte{0: part0})

	rom, err := Open(accessor.NewMemory(image))
	require.NoError(t, err)

	require.NoError(t, rom.DeleteFile("/RomFS/foo.dat"))
	assert.False(t, rom.FileExists("/RomFS/foo.dat"))
	_, err = rom.ReadAllBytes("/RomFS/foo.dat")
	require.Error(t, err)

	require.NoError(t, rom.WriteAllBytes("/RomFS/foo.dat", []byte{1, 2, 3}))
	data, err := rom.ReadAllBytes("/RomFS/foo.dat")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)
}

// TestStandaloneRomFS_Roundtrip exercises a bare RomFS image end to end
// through the VFS (DS FNT/FAT tree decoding is covered in nds_test.go; the
// DS ARM9 footer case through the Rom stack is TestScenario5_DSArm9Footer
// below).
func TestStandaloneRomFS_Roundtrip(t *testing.T) {
	romfsBytes, err := romfs.Build(romTreeWithFile("hello.txt", []byte("world")))
	require.NoError(t, err)

	rom, err := Open(accessor.NewMemory(romfsBytes))
	require.NoError(t, err)

	data, err := rom.ReadAllBytes("/RomFS/hello.txt")
	require.NoError(t, err)
	assert.Equal(t, "world", string(data))
}

func TestGetFiles_Invariant(t *testing.T) {
	romfsBytes, err := romfs.Build(&romfs.Tree{Root: &romfs.Dir{
		Files: []*romfs.File{{Name: "a.txt", Data: []byte("1")}, {Name: "b.txt", Data: []byte("22")}},
	}})
	require.NoError(t, err)

	part0 := buildNCCHPartition(t, nil, romfsBytes)
	image := buildNCSD(t, map[int][]byte{0: part0})

	rom, err := Open(accessor.NewMemory(image))
	require.NoError(t, err)

	files, err := rom.GetFiles("/", "*", false)
	require.NoError(t, err)
	for _, p := range files {
		assert.True(t, rom.FileExists(p))
		data, err := rom.ReadAllBytes(p)
		require.NoError(t, err)
		length, err := rom.GetFileLength(p)
		require.NoError(t, err)
		assert.Equal(t, int64(len(data)), length)
	}
}

// buildDSImage hand-assembles a minimal DS cartridge image: a root-only
// FNT (no files or subdirectories), an empty FAT, and an ARM9 region
// whose footer presence is controlled by withFooter — enough structure
// for nds.Probe's bounds checks and a full vfs.Open+GetFileLength
// round trip (spec's end-to-end scenario 5).
func buildDSImage(t *testing.T, withFooter bool) []byte {
	t.Helper()

	const (
		arm9Off  = 0x200
		arm9Size = 0x10
		fntOff   = 0x240
		fntSize  = 8 + 1 // one main-table entry + root terminator byte
		fatOff   = fntOff + fntSize
		fatSize  = 8 // one unused dummy entry; Probe requires a non-empty FAT region
	)

	total := fatOff + fatSize
	if footerEnd := arm9Off + arm9Size + 4; withFooter && footerEnd > total {
		total = footerEnd
	}
	buf := make([]byte, total+0x10)

	copy(buf[0x0C:0x10], "CART")

	binary.LittleEndian.PutUint32(buf[0x20:], arm9Off) // Arm9Offset
	binary.LittleEndian.PutUint32(buf[0x2C:], arm9Size) // Arm9Size
	binary.LittleEndian.PutUint32(buf[0x30:], arm9Off) // Arm7Offset (reuse, unused by this test)
	binary.LittleEndian.PutUint32(buf[0x3C:], arm9Size) // Arm7Size
	binary.LittleEndian.PutUint32(buf[0x40:], fntOff)   // FntOffset
	binary.LittleEndian.PutUint32(buf[0x44:], fntSize)  // FntSize
	binary.LittleEndian.PutUint32(buf[0x48:], fatOff)   // FatOffset
	binary.LittleEndian.PutUint32(buf[0x4C:], fatSize)  // FatSize

	// main table: single entry, root (subtable right after the 8-byte
	// entry, dir count = 1).
	binary.LittleEndian.PutUint32(buf[fntOff:], 8)
	binary.LittleEndian.PutUint16(buf[fntOff+4:], 0)
	binary.LittleEndian.PutUint16(buf[fntOff+6:], 1)
	buf[fntOff+8] = 0 // root sub-table terminator

	// one unreferenced FAT entry, just to give Probe a non-empty region.
	binary.LittleEndian.PutUint32(buf[fatOff:], 0)
	binary.LittleEndian.PutUint32(buf[fatOff+4:], 0)

	if withFooter {
		binary.LittleEndian.PutUint32(buf[arm9Off+arm9Size:], 0x2106C0DE)
	}

	return buf
}

// TestScenario5_DSArm9Footer covers spec's end-to-end scenario 5 through
// the full Rom stack: a DS image whose ARM9 region is immediately
// followed by the footer magic reports an extended /arm9.bin length.
func TestScenario5_DSArm9Footer(t *testing.T) {
	withFooter := buildDSImage(t, true)
	rom, err := Open(accessor.NewMemory(withFooter))
	require.NoError(t, err)

	length, err := rom.GetFileLength("/arm9.bin")
	require.NoError(t, err)
	assert.EqualValues(t, 0x10+12, length)

	assert.True(t, rom.DirectoryExists("/data"))
	assert.True(t, rom.FileExists("/header.bin"))

	withoutFooter := buildDSImage(t, false)
	rom2, err := Open(accessor.NewMemory(withoutFooter))
	require.NoError(t, err)
	length2, err := rom2.GetFileLength("/arm9.bin")
	require.NoError(t, err)
	assert.EqualValues(t, 0x10, length2)
}

func TestCurrentDirectory_RelativeResolution(t *testing.T) {
	romfsBytes, err := romfs.Build(&romfs.Tree{Root: &romfs.Dir{
		Dirs: []*romfs.Dir{{Name: "sub", Files: []*romfs.File{{Name: "f.txt", Data: []byte("x")}}}},
	}})
	require.NoError(t, err)

	part0 := buildNCCHPartition(t, nil, romfsBytes)
	image := buildNCSD(t, map[int][]byte{0: part0})

	rom, err := Open(accessor.NewMemory(image))
	require.NoError(t, err)

	require.NoError(t, rom.SetCurrentDirectory("/RomFS/sub"))
	assert.Equal(t, "/RomFS/sub/", rom.GetCurrentDirectory())
	data, err := rom.ReadAllBytes("f.txt")
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
}

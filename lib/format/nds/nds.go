package nds

import (
	"fmt"

	"github.com/cartvfs/n3ds/lib/accessor"
	"github.com/cartvfs/n3ds/lib/vfserr"
)

// File is a single DS file: its name and its content accessor (sliced
// directly from the FAT-addressed image region, no copy).
type File struct {
	Name string
	Data accessor.Accessor
}

// Dir is a directory in the decoded FNT tree.
type Dir struct {
	Name  string
	Dirs  []*Dir
	Files []*File
}

// Cartridge is a fully decoded DS cartridge image.
type Cartridge struct {
	Header Header

	acc accessor.Accessor

	Fat          []FatEntry
	Root         *Dir
	Arm9Overlays []OverlayEntry
	Arm7Overlays []OverlayEntry
}

// Load parses acc (expected to start at offset 0 of a DS image) into a
// Cartridge.
func Load(acc accessor.Accessor) (*Cartridge, error) {
	h, err := readHeader(acc)
	if err != nil {
		return nil, err
	}
	fat, err := parseFAT(acc, h.FatOffset, h.FatSize)
	if err != nil {
		return nil, err
	}
	fntDirs, err := parseFNT(acc, h.FntOffset, h.FntSize)
	if err != nil {
		return nil, err
	}
	arm9ov, err := parseOverlayTable(acc, h.Arm9OverlayOffset, h.Arm9OverlaySize)
	if err != nil {
		return nil, err
	}
	arm7ov, err := parseOverlayTable(acc, h.Arm7OverlayOffset, h.Arm7OverlaySize)
	if err != nil {
		return nil, err
	}

	root, err := buildDirTree(acc, fntDirs, fat, dirIDBase)
	if err != nil {
		return nil, err
	}

	return &Cartridge{
		Header:       h,
		acc:          acc,
		Fat:          fat,
		Root:         root,
		Arm9Overlays: arm9ov,
		Arm7Overlays: arm7ov,
	}, nil
}

func buildDirTree(acc accessor.Accessor, dirs map[uint16]*FntDir, fat []FatEntry, dirID uint16) (*Dir, error) {
	fntDir, ok := dirs[dirID]
	if !ok {
		return nil, vfserr.New(vfserr.InvalidFormat, "", "FNT references unknown directory id", nil)
	}
	d := &Dir{}
	for _, e := range fntDir.Entries {
		if e.IsDir {
			sub, err := buildDirTree(acc, dirs, fat, e.DirID)
			if err != nil {
				return nil, err
			}
			sub.Name = e.Name
			d.Dirs = append(d.Dirs, sub)
			continue
		}
		if int(e.FileID) >= len(fat) {
			return nil, vfserr.New(vfserr.InvalidFormat, e.Name, "FAT index out of range", nil)
		}
		extent := fat[e.FileID]
		data, err := acc.Slice(int64(extent.Start), int64(extent.Length()))
		if err != nil {
			return nil, vfserr.New(vfserr.InvalidFormat, e.Name, "file data out of range", err)
		}
		d.Files = append(d.Files, &File{Name: e.Name, Data: data})
	}
	return d, nil
}

// Arm9 returns the ARM9 binary region, extended by 12 bytes when the
// footer magic immediately follows the declared size.
func (c *Cartridge) Arm9() (accessor.Accessor, error) {
	size := int64(c.Header.Arm9Size)
	if arm9FooterPresent(c.acc, c.Header) {
		size += 12
	}
	return c.acc.Slice(int64(c.Header.Arm9Offset), size)
}

// Arm7 returns the ARM7 binary region.
func (c *Cartridge) Arm7() (accessor.Accessor, error) {
	return c.acc.Slice(int64(c.Header.Arm7Offset), int64(c.Header.Arm7Size))
}

// HeaderBytes returns the raw 0x200-byte cartridge header.
func (c *Cartridge) HeaderBytes() (accessor.Accessor, error) {
	return c.acc.Slice(0, HeaderSize)
}

// Y9 returns the raw ARM9 overlay table bytes.
func (c *Cartridge) Y9() (accessor.Accessor, error) {
	return c.acc.Slice(int64(c.Header.Arm9OverlayOffset), int64(c.Header.Arm9OverlaySize))
}

// Y7 returns the raw ARM7 overlay table bytes.
func (c *Cartridge) Y7() (accessor.Accessor, error) {
	return c.acc.Slice(int64(c.Header.Arm7OverlayOffset), int64(c.Header.Arm7OverlaySize))
}

// Accessor returns the cartridge's whole-image accessor, for FAT-addressed
// lookups (e.g. overlay file contents) that need to slice outside any
// single named region.
func (c *Cartridge) Accessor() accessor.Accessor {
	return c.acc
}

// OverlayFiles materializes an overlay table as named files (the content
// each overlay entry's FileID addresses in the FAT), in table order, for
// the synthesized "overlay"/"overlay7" directories.
func OverlayFiles(acc accessor.Accessor, overlays []OverlayEntry, fat []FatEntry) ([]*File, error) {
	files := make([]*File, 0, len(overlays))
	for _, ov := range overlays {
		if int(ov.FileID) >= len(fat) {
			return nil, vfserr.New(vfserr.InvalidFormat, "", "overlay FAT index out of range", nil)
		}
		extent := fat[ov.FileID]
		data, err := acc.Slice(int64(extent.Start), int64(extent.Length()))
		if err != nil {
			return nil, vfserr.New(vfserr.InvalidFormat, "", "overlay file data out of range", err)
		}
		files = append(files, &File{
			Name: fmt.Sprintf("overlay_%04d.bin", ov.OverlayID),
			Data: data,
		})
	}
	return files, nil
}

package nds

import (
	"github.com/cartvfs/n3ds/lib/accessor"
	"github.com/cartvfs/n3ds/lib/vfserr"
)

const overlayEntrySize = 32

// OverlayEntry is one ARM9/ARM7 overlay table record: a relocatable code
// segment loaded on demand, backed by the file named by FileID in the FAT.
type OverlayEntry struct {
	OverlayID       uint32
	RamAddress      uint32
	RamSize         uint32
	BssSize         uint32
	StaticInitStart uint32
	StaticInitEnd   uint32
	FileID          uint32
}

func parseOverlayTable(acc accessor.Accessor, offset, size uint32) ([]OverlayEntry, error) {
	if size%overlayEntrySize != 0 {
		return nil, vfserr.New(vfserr.InvalidFormat, "", "overlay table size is not a multiple of 32", nil)
	}
	count := int(size / overlayEntrySize)
	entries := make([]OverlayEntry, count)
	for i := 0; i < count; i++ {
		base := int64(offset) + int64(i*overlayEntrySize)
		fields := []struct {
			off  int64
			dest *uint32
		}{
			{0, &entries[i].OverlayID},
			{4, &entries[i].RamAddress},
			{8, &entries[i].RamSize},
			{12, &entries[i].BssSize},
			{16, &entries[i].StaticInitStart},
			{20, &entries[i].StaticInitEnd},
			{24, &entries[i].FileID},
			// offset 28: reserved, ignored.
		}
		for _, f := range fields {
			v, err := acc.ReadU32LE(base + f.off)
			if err != nil {
				return nil, vfserr.New(vfserr.InvalidFormat, "", "overlay entry truncated", err)
			}
			*f.dest = v
		}
	}
	return entries, nil
}

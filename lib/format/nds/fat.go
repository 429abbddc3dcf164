package nds

import (
	"github.com/cartvfs/n3ds/lib/accessor"
	"github.com/cartvfs/n3ds/lib/vfserr"
)

const fatEntrySize = 8

// FatEntry is one file's extent within the image: byte range [Start, End).
type FatEntry struct {
	Start, End uint32
}

func (e FatEntry) Length() uint32 { return e.End - e.Start }

// parseFAT reads the File Allocation Table as a sequence of (start, end)
// pairs.
//
// Note: end is read from offset+4, not duplicated from offset+0 — an
// earlier implementation of this parser read end from the same offset as
// start, which silently produced zero-length files.
func parseFAT(acc accessor.Accessor, offset, size uint32) ([]FatEntry, error) {
	if size%fatEntrySize != 0 {
		return nil, vfserr.New(vfserr.InvalidFormat, "", "FAT size is not a multiple of 8", nil)
	}
	count := int(size / fatEntrySize)
	entries := make([]FatEntry, count)
	for i := 0; i < count; i++ {
		base := int64(offset) + int64(i*fatEntrySize)
		start, err := acc.ReadU32LE(base)
		if err != nil {
			return nil, vfserr.New(vfserr.InvalidFormat, "", "FAT entry truncated", err)
		}
		end, err := acc.ReadU32LE(base + 4)
		if err != nil {
			return nil, vfserr.New(vfserr.InvalidFormat, "", "FAT entry truncated", err)
		}
		entries[i] = FatEntry{Start: start, End: end}
	}
	return entries, nil
}

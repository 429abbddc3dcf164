package nds

import (
	"github.com/cartvfs/n3ds/lib/accessor"
	"github.com/cartvfs/n3ds/lib/vfserr"
)

const (
	mainTableEntrySize = 8
	dirIDBase          = 0xF000

	subTableEnd      = 0x00
	subTableReserved = 0x80
	subTableMaxFile  = 0x7F
)

// FntEntry is one entry in a directory's filename sub-table: either a
// file (FileID set) or a subdirectory (DirID set).
type FntEntry struct {
	Name  string
	IsDir bool
	FileID uint16
	DirID  uint16
}

// FntDir is one directory's decoded entries, keyed by directory ID
// (0xF000 + main-table index; the root directory is 0xF000).
type FntDir struct {
	ID      uint16
	Entries []FntEntry
}

// parseFNT walks the FNT main table (whose first entry's parentDir field
// holds the total directory count) and decodes every directory's
// sub-table into an ordered entry list.
func parseFNT(acc accessor.Accessor, fntOffset, fntSize uint32) (map[uint16]*FntDir, error) {
	if fntSize < mainTableEntrySize {
		return nil, vfserr.New(vfserr.InvalidFormat, "", "FNT too small", nil)
	}
	dirCount, err := acc.ReadU16LE(int64(fntOffset) + 6)
	if err != nil {
		return nil, vfserr.New(vfserr.InvalidFormat, "", "FNT main table truncated", err)
	}

	dirs := make(map[uint16]*FntDir, dirCount)
	for i := uint32(0); i < uint32(dirCount); i++ {
		entryOff := int64(fntOffset) + int64(i*mainTableEntrySize)
		subTableOffset, err := acc.ReadU32LE(entryOff)
		if err != nil {
			return nil, vfserr.New(vfserr.InvalidFormat, "", "FNT main table entry truncated", err)
		}
		firstFileID, err := acc.ReadU16LE(entryOff + 4)
		if err != nil {
			return nil, vfserr.New(vfserr.InvalidFormat, "", "FNT main table entry truncated", err)
		}

		dirID := uint16(dirIDBase + i)
		entries, err := parseSubTable(acc, int64(fntOffset)+int64(subTableOffset), firstFileID)
		if err != nil {
			return nil, err
		}
		dirs[dirID] = &FntDir{ID: dirID, Entries: entries}
	}
	return dirs, nil
}

func parseSubTable(acc accessor.Accessor, offset int64, firstFileID uint16) ([]FntEntry, error) {
	var entries []FntEntry
	cursor := offset
	fileID := firstFileID
	for {
		lengthByte, err := acc.ReadU8LE(cursor)
		if err != nil {
			return nil, vfserr.New(vfserr.InvalidFormat, "", "FNT sub-table truncated", err)
		}
		cursor++

		switch {
		case lengthByte == subTableEnd:
			return entries, nil
		case lengthByte == subTableReserved:
			return nil, vfserr.New(vfserr.InvalidFormat, "", "FNT sub-table entry length 0x80 is reserved", nil)
		case lengthByte <= subTableMaxFile:
			name, err := acc.ReadString(cursor, int64(lengthByte))
			if err != nil {
				return nil, vfserr.New(vfserr.InvalidFormat, "", "FNT file name truncated", err)
			}
			cursor += int64(lengthByte)
			entries = append(entries, FntEntry{Name: name, IsDir: false, FileID: fileID})
			fileID++
		default:
			nameLen := int64(lengthByte) - 128
			name, err := acc.ReadString(cursor, nameLen)
			if err != nil {
				return nil, vfserr.New(vfserr.InvalidFormat, "", "FNT directory name truncated", err)
			}
			cursor += nameLen
			subDirID, err := acc.ReadU16LE(cursor)
			if err != nil {
				return nil, vfserr.New(vfserr.InvalidFormat, "", "FNT directory id truncated", err)
			}
			cursor += 2
			entries = append(entries, FntEntry{Name: name, IsDir: true, DirID: subDirID})
		}
	}
}

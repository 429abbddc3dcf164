package romfs

import (
	"encoding/binary"

	"github.com/cartvfs/n3ds/lib/accessor"
	"github.com/cartvfs/n3ds/lib/vfserr"
)

type dirRecord struct {
	node           *Dir
	offset         uint32
	childDirOffset uint32
	childFileOff   uint32
	siblingOffset  uint32
}

type fileRecord struct {
	node          *File
	offset        uint32
	siblingOffset uint32
}

// Probe reports whether acc could hold a RomFS/IVFC archive by checking
// for the IVFC magic at the start.
func Probe(acc accessor.Accessor) bool {
	if acc.Len() < ivfcHeaderSize {
		return false
	}
	magic, err := acc.ReadString(0, 4)
	return err == nil && magic == ivfcMagic
}

// Load parses acc (an IVFC-wrapped RomFS archive) into a directory Tree.
// The Level1/Level2 hash blocks are skipped over and not verified: this
// module does not implement signature or hash-chain verification.
func Load(acc accessor.Accessor) (*Tree, error) {
	h, err := readIVFCHeader(acc)
	if err != nil {
		return nil, err
	}
	level3Off := int64(ivfcHeaderSize) + h.Level1Size + h.Level2Size
	level3, err := acc.Slice(level3Off, h.Level3Size)
	if err != nil {
		return nil, vfserr.New(vfserr.InvalidFormat, "", "RomFS Level3 region out of range", err)
	}
	if level3.Len() < level3HeaderSize {
		return nil, vfserr.New(vfserr.InvalidFormat, "", "RomFS Level3 header truncated", nil)
	}
	headerRaw, err := level3.Read(0, level3HeaderSize)
	if err != nil {
		return nil, vfserr.New(vfserr.InvalidFormat, "", "RomFS Level3 header truncated", err)
	}
	l3 := unmarshalLevel3Header(headerRaw)

	dirMeta, err := level3.Slice(int64(l3.DirMetaOff), int64(l3.DirMetaLen))
	if err != nil {
		return nil, vfserr.New(vfserr.InvalidFormat, "", "directory metadata table out of range", err)
	}
	fileMeta, err := level3.Slice(int64(l3.FileMetaOff), int64(l3.FileMetaLen))
	if err != nil {
		return nil, vfserr.New(vfserr.InvalidFormat, "", "file metadata table out of range", err)
	}

	dirs, dirOrder, err := parseDirEntries(dirMeta)
	if err != nil {
		return nil, err
	}
	files, err := parseFileEntries(fileMeta)
	if err != nil {
		return nil, err
	}
	fileData, err := level3.Slice(int64(l3.FileDataOff), level3.Len()-int64(l3.FileDataOff))
	if err != nil {
		return nil, vfserr.New(vfserr.InvalidFormat, "", "file data region out of range", err)
	}

	if err := loadFileContents(fileMeta, files, fileData); err != nil {
		return nil, err
	}
	if len(dirOrder) == 0 {
		return nil, vfserr.New(vfserr.InvalidTree, "", "RomFS has no root directory", nil)
	}
	linkDecodedTree(dirs, files)

	root, ok := dirs[dirOrder[0]]
	if !ok {
		return nil, vfserr.New(vfserr.InvalidTree, "", "RomFS root directory missing", nil)
	}
	return &Tree{Root: root.node}, nil
}

// parseDirEntries walks the directory metadata table sequentially (entries
// are variable length, so there's no way to index into it other than
// walking from the start) and returns every entry by its table offset.
func parseDirEntries(table accessor.Accessor) (map[uint32]*dirRecord, []uint32, error) {
	out := make(map[uint32]*dirRecord)
	var order []uint32
	var off int64
	for off+dirEntryFixedSize <= table.Len() {
		fixed, err := table.Read(off, dirEntryFixedSize)
		if err != nil {
			return nil, nil, vfserr.New(vfserr.InvalidFormat, "", "directory entry truncated", err)
		}
		childDirOffset := binary.LittleEndian.Uint32(fixed[8:12])
		childFileOff := binary.LittleEndian.Uint32(fixed[12:16])
		siblingOffset := binary.LittleEndian.Uint32(fixed[4:8])
		nameLen := binary.LittleEndian.Uint32(fixed[20:24])

		nameRaw, err := table.Read(off+dirEntryFixedSize, int64(nameLen))
		if err != nil {
			return nil, nil, vfserr.New(vfserr.InvalidFormat, "", "directory name truncated", err)
		}
		name, err := decodeUTF16(nameRaw)
		if err != nil {
			return nil, nil, vfserr.New(vfserr.InvalidFormat, "", "directory name is not valid UTF-16", err)
		}

		entryOffset := uint32(off)
		out[entryOffset] = &dirRecord{
			node:           &Dir{Name: name},
			offset:         entryOffset,
			childDirOffset: childDirOffset,
			childFileOff:   childFileOff,
			siblingOffset:  siblingOffset,
		}
		order = append(order, entryOffset)
		off += dirEntryFixedSize + align(int64(nameLen), 4)
	}
	return out, order, nil
}

func parseFileEntries(table accessor.Accessor) (map[uint32]*fileRecord, error) {
	out := make(map[uint32]*fileRecord)
	var off int64
	for off+fileEntryFixedSize <= table.Len() {
		fixed, err := table.Read(off, fileEntryFixedSize)
		if err != nil {
			return nil, vfserr.New(vfserr.InvalidFormat, "", "file entry truncated", err)
		}
		siblingOffset := binary.LittleEndian.Uint32(fixed[4:8])
		nameLen := binary.LittleEndian.Uint32(fixed[28:32])

		nameRaw, err := table.Read(off+fileEntryFixedSize, int64(nameLen))
		if err != nil {
			return nil, vfserr.New(vfserr.InvalidFormat, "", "file name truncated", err)
		}
		name, err := decodeUTF16(nameRaw)
		if err != nil {
			return nil, vfserr.New(vfserr.InvalidFormat, "", "file name is not valid UTF-16", err)
		}

		entryOffset := uint32(off)
		out[entryOffset] = &fileRecord{
			node:          &File{Name: name},
			offset:        entryOffset,
			siblingOffset: siblingOffset,
		}
		off += fileEntryFixedSize + align(int64(nameLen), 4)
	}
	return out, nil
}

func loadFileContents(table accessor.Accessor, files map[uint32]*fileRecord, data accessor.Accessor) error {
	for offset, rec := range files {
		fixed, err := table.Read(int64(offset), fileEntryFixedSize)
		if err != nil {
			return vfserr.New(vfserr.InvalidFormat, "", "file entry truncated", err)
		}
		dataOffset := int64(binary.LittleEndian.Uint64(fixed[8:16]))
		dataLength := int64(binary.LittleEndian.Uint64(fixed[16:24]))
		content, err := data.Read(dataOffset, dataLength)
		if err != nil {
			return vfserr.New(vfserr.InvalidFormat, rec.node.Name, "file data out of range", err)
		}
		rec.node.Data = content
	}
	return nil
}

func linkDecodedTree(dirs map[uint32]*dirRecord, files map[uint32]*fileRecord) {
	for _, rec := range dirs {
		for off := rec.childDirOffset; off != sentinelOffset; {
			child, ok := dirs[off]
			if !ok {
				break
			}
			rec.node.Dirs = append(rec.node.Dirs, child.node)
			off = child.siblingOffset
		}
		for off := rec.childFileOff; off != sentinelOffset; {
			f, ok := files[off]
			if !ok {
				break
			}
			rec.node.Files = append(rec.node.Files, f.node)
			off = f.siblingOffset
		}
	}
}

package romfs

import (
	"encoding/binary"

	"github.com/cartvfs/n3ds/lib/vfserr"
)

const fileDataAlignment = 16

// maxDataRegionSize is the 2^56 byte ceiling on a RomFS Level3 data region:
// file data offsets are packed into the low 56 bits of a metadata field
// shared with flags elsewhere in the format, so a rebuild whose packed data
// would cross it is rejected rather than silently truncated.
const maxDataRegionSize = int64(1) << 56

type builtDir struct {
	dir            *Dir
	offset         uint32
	parentOffset   uint32
	siblingOffset  uint32
	childDirOffset uint32
	childFileOff   uint32
	nextHashOffset uint32
}

type builtFile struct {
	file           *File
	offset         uint32
	parentOffset   uint32
	siblingOffset  uint32
	dataOffset     int64
	nextHashOffset uint32
}

// Build serializes tree into a byte-exact RomFS archive: an IVFC wrapper
// around a Level3 payload holding the directory/file hash-bucket and
// metadata tables plus packed file data.
//
// Children within every directory are re-sorted by UTF-16 code unit before
// emission (Dir.sortChildren), so Build(tree) is deterministic regardless
// of how tree's slices were originally ordered.
func Build(tree *Tree) ([]byte, error) {
	root := tree.Root
	if err := checkNoDuplicateSiblings("", root); err != nil {
		return nil, err
	}
	root.sortChildren()

	dirs := flattenDirs(root)
	assignDirOffsets(dirs)
	files := flattenFiles(dirs)
	assignFileOffsets(files)

	// Second pass: now that every dir's and file's final byte offset is
	// known, resolve parent/sibling/child links and file data placement.
	linkDirs(dirs)
	linkFiles(dirs, files)

	// Hash tables first: building them sets each entry's nextHashOffset,
	// which the metadata tables then carry.
	dirHash := marshalHashTable(dirBucketAssignment(dirs))
	dirMeta := marshalDirMeta(dirs)
	fileHash := marshalHashTable(fileBucketAssignment(files))
	fileMeta := marshalFileMeta(files)
	fileData := marshalFileData(files)
	if err := checkDataRegionSize(int64(len(fileData))); err != nil {
		return nil, err
	}

	l3header := level3Header{
		DirHashOff:  level3HeaderSize,
		DirHashLen:  uint32(len(dirHash)),
		DirMetaOff:  level3HeaderSize + uint32(len(dirHash)),
		DirMetaLen:  uint32(len(dirMeta)),
	}
	l3header.FileHashOff = l3header.DirMetaOff + l3header.DirMetaLen
	l3header.FileHashLen = uint32(len(fileHash))
	l3header.FileMetaOff = l3header.FileHashOff + l3header.FileHashLen
	l3header.FileMetaLen = uint32(len(fileMeta))
	l3header.FileDataOff = l3header.FileMetaOff + l3header.FileMetaLen

	level3 := make([]byte, 0, l3header.FileDataOff+uint32(len(fileData)))
	level3 = append(level3, l3header.marshal()...)
	level3 = append(level3, dirHash...)
	level3 = append(level3, dirMeta...)
	level3 = append(level3, fileHash...)
	level3 = append(level3, fileMeta...)
	level3 = append(level3, fileData...)

	level2 := hashBlocks(level3)
	level1 := hashBlocks(level2)

	out := make([]byte, ivfcHeaderSize+len(level1)+len(level2)+len(level3))
	writeIVFCHeader(out, ivfcHeader{
		Level1Size: int64(len(level1)),
		Level2Size: int64(len(level2)),
		Level3Size: int64(len(level3)),
	})
	copy(out[ivfcHeaderSize:], level1)
	copy(out[ivfcHeaderSize+len(level1):], level2)
	copy(out[ivfcHeaderSize+len(level1)+len(level2):], level3)
	return out, nil
}

// checkNoDuplicateSiblings rejects a tree where two entries in the same
// directory share a name, whether both are directories, both are files, or
// one of each: RomFS's hash-chained metadata tables have no way to
// represent two entries at the same parent/name, so Build would otherwise
// silently emit a tree an unhasher can't walk correctly.
func checkNoDuplicateSiblings(path string, d *Dir) error {
	seen := make(map[string]bool, len(d.Dirs)+len(d.Files))
	for _, sub := range d.Dirs {
		if seen[sub.Name] {
			return vfserr.New(vfserr.InvalidTree, path+sub.Name, "duplicate sibling name", nil)
		}
		seen[sub.Name] = true
	}
	for _, f := range d.Files {
		if seen[f.Name] {
			return vfserr.New(vfserr.InvalidTree, path+f.Name, "duplicate sibling name", nil)
		}
		seen[f.Name] = true
	}
	for _, sub := range d.Dirs {
		if err := checkNoDuplicateSiblings(path+sub.Name+"/", sub); err != nil {
			return err
		}
	}
	return nil
}

func flattenDirs(root *Dir) []*builtDir {
	var out []*builtDir
	var walk func(d *Dir)
	walk = func(d *Dir) {
		out = append(out, &builtDir{dir: d})
		for _, sub := range d.Dirs {
			walk(sub)
		}
	}
	walk(root)
	return out
}

func assignDirOffsets(dirs []*builtDir) {
	var cursor uint32
	for _, bd := range dirs {
		bd.offset = cursor
		cursor += uint32(dirEntryFixedSize + align(int64(len(encodeUTF16(bd.dir.Name))), 4))
	}
}

func flattenFiles(dirs []*builtDir) []*builtFile {
	var out []*builtFile
	for _, bd := range dirs {
		for _, f := range bd.dir.Files {
			out = append(out, &builtFile{file: f})
		}
	}
	return out
}

func assignFileOffsets(files []*builtFile) {
	var cursor uint32
	for _, bf := range files {
		bf.offset = cursor
		cursor += uint32(fileEntryFixedSize + align(int64(len(encodeUTF16(bf.file.Name))), 4))
	}
}

func dirIndex(dirs []*builtDir) map[*Dir]*builtDir {
	m := make(map[*Dir]*builtDir, len(dirs))
	for _, bd := range dirs {
		m[bd.dir] = bd
	}
	return m
}

func linkDirs(dirs []*builtDir) {
	byDir := dirIndex(dirs)
	for _, bd := range dirs {
		bd.nextHashOffset = sentinelOffset
		bd.childDirOffset = sentinelOffset
		bd.childFileOff = sentinelOffset
		bd.siblingOffset = sentinelOffset
	}
	for _, bd := range dirs {
		d := bd.dir
		if len(d.Dirs) > 0 {
			bd.childDirOffset = byDir[d.Dirs[0]].offset
		}
		for i := 0; i+1 < len(d.Dirs); i++ {
			byDir[d.Dirs[i]].siblingOffset = byDir[d.Dirs[i+1]].offset
		}
		for _, sub := range d.Dirs {
			byDir[sub].parentOffset = bd.offset
		}
	}
	if len(dirs) > 0 {
		dirs[0].parentOffset = dirs[0].offset // root is its own parent
	}
}

func linkFiles(dirs []*builtDir, files []*builtFile) {
	byFile := make(map[*File]*builtFile, len(files))
	for _, bf := range files {
		bf.nextHashOffset = sentinelOffset
		bf.siblingOffset = sentinelOffset
		byFile[bf.file] = bf
	}
	for _, bd := range dirs {
		d := bd.dir
		if len(d.Files) == 0 {
			continue
		}
		bd.childFileOff = byFile[d.Files[0]].offset
		for i := 0; i+1 < len(d.Files); i++ {
			byFile[d.Files[i]].siblingOffset = byFile[d.Files[i+1]].offset
		}
		for _, f := range d.Files {
			byFile[f].parentOffset = bd.offset
		}
	}

	var cursor int64
	for _, bf := range files {
		bf.dataOffset = cursor
		cursor += align(int64(len(bf.file.Data)), fileDataAlignment)
	}
}

func marshalDirMeta(dirs []*builtDir) []byte {
	var out []byte
	for _, bd := range dirs {
		name := encodeUTF16(bd.dir.Name)
		entry := make([]byte, dirEntryFixedSize+align(int64(len(name)), 4))
		binary.LittleEndian.PutUint32(entry[0:4], bd.parentOffset)
		binary.LittleEndian.PutUint32(entry[4:8], bd.siblingOffset)
		binary.LittleEndian.PutUint32(entry[8:12], bd.childDirOffset)
		binary.LittleEndian.PutUint32(entry[12:16], bd.childFileOff)
		binary.LittleEndian.PutUint32(entry[16:20], bd.nextHashOffset)
		binary.LittleEndian.PutUint32(entry[20:24], uint32(len(name)))
		copy(entry[24:], name)
		out = append(out, entry...)
	}
	return out
}

func marshalFileMeta(files []*builtFile) []byte {
	var out []byte
	for _, bf := range files {
		name := encodeUTF16(bf.file.Name)
		entry := make([]byte, fileEntryFixedSize+align(int64(len(name)), 4))
		binary.LittleEndian.PutUint32(entry[0:4], bf.parentOffset)
		binary.LittleEndian.PutUint32(entry[4:8], bf.siblingOffset)
		binary.LittleEndian.PutUint64(entry[8:16], uint64(bf.dataOffset))
		binary.LittleEndian.PutUint64(entry[16:24], uint64(len(bf.file.Data)))
		binary.LittleEndian.PutUint32(entry[24:28], bf.nextHashOffset)
		binary.LittleEndian.PutUint32(entry[28:32], uint32(len(name)))
		copy(entry[32:], name)
		out = append(out, entry...)
	}
	return out
}

func marshalFileData(files []*builtFile) []byte {
	if len(files) == 0 {
		return nil
	}
	last := files[len(files)-1]
	total := last.dataOffset + align(int64(len(last.file.Data)), fileDataAlignment)
	out := make([]byte, total)
	for _, bf := range files {
		copy(out[bf.dataOffset:], bf.file.Data)
	}
	return out
}

// checkDataRegionSize rejects a packed data region over the 2^56 byte
// ceiling RomFS file data offsets can address.
func checkDataRegionSize(size int64) error {
	if size > maxDataRegionSize {
		return vfserr.New(vfserr.SizeLimit, "", "packed file data exceeds the 2^56 byte RomFS data region limit", nil)
	}
	return nil
}

// bucketAssignment pairs a metadata-table offset with the hash bucket it
// falls in, in metadata-table order (the order nextHashOffset chains must
// follow).
type bucketAssignment struct {
	offset uint32
	bucket uint32
}

func dirBucketAssignment(dirs []*builtDir) (count uint32, assign []bucketAssignment) {
	count = bucketCount(len(dirs))
	for _, bd := range dirs {
		hash := nameHash(bd.parentOffset, bd.dir.Name)
		assign = append(assign, bucketAssignment{offset: bd.offset, bucket: hash % count})
	}
	chainDirHash(dirs, assign, count)
	return count, assign
}

func chainDirHash(dirs []*builtDir, assign []bucketAssignment, count uint32) {
	tails := make(map[uint32]*builtDir, count)
	byOffset := make(map[uint32]*builtDir, len(dirs))
	for _, bd := range dirs {
		byOffset[bd.offset] = bd
	}
	for _, a := range assign {
		bd := byOffset[a.offset]
		if tail, ok := tails[a.bucket]; ok {
			tail.nextHashOffset = bd.offset
		}
		tails[a.bucket] = bd
	}
}

func fileBucketAssignment(files []*builtFile) (count uint32, assign []bucketAssignment) {
	count = bucketCount(len(files))
	for _, bf := range files {
		hash := nameHash(bf.parentOffset, bf.file.Name)
		assign = append(assign, bucketAssignment{offset: bf.offset, bucket: hash % count})
	}
	chainFileHash(files, assign)
	return count, assign
}

func chainFileHash(files []*builtFile, assign []bucketAssignment) {
	tails := make(map[uint32]*builtFile, len(files))
	byOffset := make(map[uint32]*builtFile, len(files))
	for _, bf := range files {
		byOffset[bf.offset] = bf
	}
	for _, a := range assign {
		bf := byOffset[a.offset]
		if tail, ok := tails[a.bucket]; ok {
			tail.nextHashOffset = bf.offset
		}
		tails[a.bucket] = bf
	}
}

func marshalHashTable(count uint32, assign []bucketAssignment) []byte {
	out := make([]byte, count*4)
	for i := range out {
		out[i] = 0xFF
	}
	heads := make(map[uint32]uint32, count)
	for _, a := range assign {
		if _, ok := heads[a.bucket]; !ok {
			heads[a.bucket] = a.offset
		}
	}
	for bucket, offset := range heads {
		binary.LittleEndian.PutUint32(out[bucket*4:bucket*4+4], offset)
	}
	return out
}

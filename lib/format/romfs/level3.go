package romfs

import "encoding/binary"

// level3Header is the fixed-size table of contents at the start of the
// Level3 payload: offset and byte length of each of the five sub-regions
// that follow it.
const level3HeaderSize = 0x28

type level3Header struct {
	DirHashOff, DirHashLen   uint32
	DirMetaOff, DirMetaLen   uint32
	FileHashOff, FileHashLen uint32
	FileMetaOff, FileMetaLen uint32
	FileDataOff              uint32
}

func (h level3Header) marshal() []byte {
	buf := make([]byte, level3HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], level3HeaderSize)
	binary.LittleEndian.PutUint32(buf[4:8], h.DirHashOff)
	binary.LittleEndian.PutUint32(buf[8:12], h.DirHashLen)
	binary.LittleEndian.PutUint32(buf[12:16], h.DirMetaOff)
	binary.LittleEndian.PutUint32(buf[16:20], h.DirMetaLen)
	binary.LittleEndian.PutUint32(buf[20:24], h.FileHashOff)
	binary.LittleEndian.PutUint32(buf[24:28], h.FileHashLen)
	binary.LittleEndian.PutUint32(buf[28:32], h.FileMetaOff)
	binary.LittleEndian.PutUint32(buf[32:36], h.FileMetaLen)
	binary.LittleEndian.PutUint32(buf[36:40], h.FileDataOff)
	return buf
}

func unmarshalLevel3Header(buf []byte) level3Header {
	return level3Header{
		DirHashOff:  binary.LittleEndian.Uint32(buf[4:8]),
		DirHashLen:  binary.LittleEndian.Uint32(buf[8:12]),
		DirMetaOff:  binary.LittleEndian.Uint32(buf[12:16]),
		DirMetaLen:  binary.LittleEndian.Uint32(buf[16:20]),
		FileHashOff: binary.LittleEndian.Uint32(buf[20:24]),
		FileHashLen: binary.LittleEndian.Uint32(buf[24:28]),
		FileMetaOff: binary.LittleEndian.Uint32(buf[28:32]),
		FileMetaLen: binary.LittleEndian.Uint32(buf[32:36]),
		FileDataOff: binary.LittleEndian.Uint32(buf[36:40]),
	}
}

// Directory metadata entry: parent/sibling/child offsets, next-hash-chain
// offset, then a UTF-16LE name prefixed by its byte length.
const dirEntryFixedSize = 0x18

// File metadata entry: parent, sibling, 64-bit data offset/length,
// next-hash-chain offset, then the UTF-16LE name.
const fileEntryFixedSize = 0x20

const sentinelOffset = uint32(0xFFFFFFFF)

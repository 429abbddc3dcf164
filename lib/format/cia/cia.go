// Package cia decodes a CIA (CTR Importable Archive): the installable
// container wrapping a certificate chain, ticket, TMD, and a sequence of
// NCCH contents declared by the TMD's content chunk table.
//
// https://www.3dbrew.org/wiki/CIA
// https://www.3dbrew.org/wiki/Title_metadata
//
// Unlike NCSD/NCCH (little-endian throughout), the TMD body is big-endian,
// inherited from the Wii title-metadata format 3DS reuses.
package cia

import (
	"encoding/binary"

	"github.com/cartvfs/n3ds/lib/accessor"
	"github.com/cartvfs/n3ds/lib/format/ncch"
	"github.com/cartvfs/n3ds/lib/vfserr"
)

const (
	archiveHeaderFieldsSize = 0x20

	headerSizeOff     = 0x00
	certChainSizeOff  = 0x08
	ticketSizeOff     = 0x0C
	tmdSizeOff        = 0x10
	metaSizeOff       = 0x14
	contentSizeOff    = 0x18
	sectionAlign      = 0x40
	signatureTypeSize = 4
)

// sigBlockSize maps a TMD/ticket signature type to the size of its
// signature block (signature bytes + type-specific padding), per 3dbrew.
var sigBlockSize = map[uint32]int64{
	0x10000: 0x200 + 0x3C, // RSA_4096 SHA1
	0x10001: 0x100 + 0x3C, // RSA_2048 SHA1
	0x10002: 0x3C + 0x40,  // ECDSA SHA1
	0x10003: 0x200 + 0x3C, // RSA_4096 SHA256
	0x10004: 0x100 + 0x3C, // RSA_2048 SHA256
	0x10005: 0x3C + 0x40,  // ECDSA SHA256
}

const (
	// Offsets relative to the start of the TMD body (immediately after the
	// signature block).
	bodyTitleIDOff      = 0x4C
	bodyContentCountOff = 0x9E
	bodyContentChunkOff = 0x9C4
	chunkEntrySize      = 0x30
)

// CIA is a fully decoded CIA archive: the TMD title ID plus every content
// chunk's NCCH partition, in TMD-declared order.
type CIA struct {
	TitleID  uint64
	Contents []*ncch.Partition
}

func align64(off int64) int64 {
	return (off + sectionAlign - 1) &^ (sectionAlign - 1)
}

// Probe reports whether acc looks like a CIA archive. CIA has no magic
// number; the heuristic (same one real tools use) is that the declared
// header/cert/ticket/TMD/content section layout fits within acc's length.
func Probe(acc accessor.Accessor) bool {
	_, err := readArchiveHeader(acc)
	return err == nil
}

type archiveHeader struct {
	certChainSize, ticketSize, tmdSize, metaSize uint32
	contentSize                                  uint64
	headerSize                                   uint32
}

func readArchiveHeader(acc accessor.Accessor) (archiveHeader, error) {
	var h archiveHeader
	if acc.Len() < archiveHeaderFieldsSize {
		return h, vfserr.New(vfserr.UnsupportedFormat, "", "too small for a CIA archive header", nil)
	}
	headerSize, err := acc.ReadU32LE(headerSizeOff)
	if err != nil || headerSize < archiveHeaderFieldsSize {
		return h, vfserr.New(vfserr.UnsupportedFormat, "", "implausible CIA header size", err)
	}
	certChainSize, _ := acc.ReadU32LE(certChainSizeOff)
	ticketSize, _ := acc.ReadU32LE(ticketSizeOff)
	tmdSize, _ := acc.ReadU32LE(tmdSizeOff)
	metaSize, _ := acc.ReadU32LE(metaSizeOff)
	contentSize, _ := acc.ReadU64LE(contentSizeOff)

	tmdOffset := align64(align64(align64(int64(headerSize))+int64(certChainSize)) + int64(ticketSize))
	contentOffset := align64(tmdOffset + int64(tmdSize))
	if contentOffset+int64(contentSize) > acc.Len() {
		return h, vfserr.New(vfserr.UnsupportedFormat, "", "CIA sections overflow the file", nil)
	}

	h.headerSize = headerSize
	h.certChainSize = certChainSize
	h.ticketSize = ticketSize
	h.tmdSize = tmdSize
	h.metaSize = metaSize
	h.contentSize = contentSize
	return h, nil
}

// Load parses acc (expected to start at the CIA archive header) into a CIA,
// slicing each TMD-declared content chunk and handing it to the NCCH
// decoder in TMD order.
func Load(acc accessor.Accessor) (*CIA, error) {
	h, err := readArchiveHeader(acc)
	if err != nil {
		return nil, err
	}

	certChainOffset := align64(int64(h.headerSize))
	ticketOffset := align64(certChainOffset + int64(h.certChainSize))
	tmdOffset := align64(ticketOffset + int64(h.ticketSize))
	contentOffset := align64(tmdOffset + int64(h.tmdSize))

	tmd, err := acc.Slice(tmdOffset, int64(h.tmdSize))
	if err != nil {
		return nil, vfserr.New(vfserr.InvalidFormat, "", "TMD region out of range", err)
	}

	titleID, chunkSizes, err := parseTMD(tmd)
	if err != nil {
		return nil, err
	}

	contents := make([]*ncch.Partition, 0, len(chunkSizes))
	cursor := contentOffset
	for _, size := range chunkSizes {
		region, err := acc.Slice(cursor, size)
		if err != nil {
			return nil, vfserr.New(vfserr.InvalidFormat, "", "content chunk out of range", err)
		}
		part, err := ncch.Load(region)
		if err != nil {
			return nil, vfserr.New(vfserr.InvalidFormat, "", "content chunk is not an NCCH", err)
		}
		contents = append(contents, part)
		cursor += size
	}

	return &CIA{TitleID: titleID, Contents: contents}, nil
}

// parseTMD reads the title ID and the ordered list of content chunk sizes
// from a TMD body. All multi-byte TMD fields are big-endian.
func parseTMD(tmd accessor.Accessor) (titleID uint64, sizes []int64, err error) {
	if tmd.Len() < signatureTypeSize {
		return 0, nil, vfserr.New(vfserr.InvalidFormat, "", "TMD truncated", nil)
	}
	sigTypeBytes, err := tmd.Read(0, signatureTypeSize)
	if err != nil {
		return 0, nil, vfserr.New(vfserr.InvalidFormat, "", "TMD truncated", err)
	}
	sigType := binary.BigEndian.Uint32(sigTypeBytes)
	sigBlock, ok := sigBlockSize[sigType]
	if !ok {
		return 0, nil, vfserr.New(vfserr.InvalidFormat, "", "unknown TMD signature type", nil)
	}
	body := signatureTypeSize + sigBlock

	titleIDBytes, err := tmd.Read(body+bodyTitleIDOff, 8)
	if err != nil {
		return 0, nil, vfserr.New(vfserr.InvalidFormat, "", "TMD body truncated", err)
	}
	titleID = binary.BigEndian.Uint64(titleIDBytes)

	countBytes, err := tmd.Read(body+bodyContentCountOff, 2)
	if err != nil {
		return 0, nil, vfserr.New(vfserr.InvalidFormat, "", "TMD body truncated", err)
	}
	count := int(binary.BigEndian.Uint16(countBytes))

	chunkBase := int64(body + bodyContentChunkOff)
	sizes = make([]int64, 0, count)
	for i := 0; i < count; i++ {
		entryOff := chunkBase + int64(i)*chunkEntrySize
		sizeBytes, err := tmd.Read(entryOff+0x08, 8)
		if err != nil {
			return 0, nil, vfserr.New(vfserr.InvalidFormat, "", "TMD content chunk table truncated", err)
		}
		sizes = append(sizes, int64(binary.BigEndian.Uint64(sizeBytes)))
	}
	return titleID, sizes, nil
}

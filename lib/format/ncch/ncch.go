// Package ncch decodes a single NCCH partition: its header, optional
// ExHeader, Plain Region, Logo, ExeFS, and RomFS sub-regions.
//
// NCCH (CTR Cart/NAND Content Header) header layout (0x200 bytes), adapted
// from the NCSD/NCCH constants in the teacher's n3ds.go and generalized
// from "extract a title/serial summary" to "expose every sub-region as a
// lazily sliced accessor":
// https://www.3dbrew.org/wiki/NCCH
//
//	Offset  Size  Description
//	0x000   256   RSA-2048 SHA-256 signature
//	0x100   4     Magic "NCCH"
//	0x104   4     Content size in media units
//	0x108   8     Partition/Title ID
//	0x110   2     Maker code (ASCII)
//	0x112   2     Version
//	0x118   8     Program ID
//	0x150   16    Product code (ASCII, e.g. "CTR-P-ALGE")
//	0x180   4     ExHeader size
//	0x188   8     Flags (content type, platform, crypto)
//	0x190   4+4   Plain Region offset+size (media units)
//	0x198   4+4   Logo Region offset+size (media units)
//	0x1A0   4+4   ExeFS offset+size (media units)
//	0x1A8   4     ExeFS hash region size (media units)
//	0x1B0   4+4   RomFS offset+size (media units)
//	0x1B8   4     RomFS hash region size (media units)
package ncch

import (
	"github.com/cartvfs/n3ds/internal/util"
	"github.com/cartvfs/n3ds/lib/accessor"
	"github.com/cartvfs/n3ds/lib/vfserr"
)

const (
	// MediaUnitSize is the alignment unit used throughout NCSD/NCCH: 1
	// media unit = 0x200 bytes.
	MediaUnitSize = 0x200

	HeaderSize = 0x200

	magicOffset = 0x100
	Magic       = "NCCH"

	titleIDOffset     = 0x108
	makerCodeOffset   = 0x110
	makerCodeLen      = 2
	versionOffset     = 0x112
	programIDOffset   = 0x118
	productCodeOffset = 0x150
	productCodeLen    = 16

	exHeaderSizeOffset = 0x180
	flagsOffset         = 0x188

	plainOffsetOffset = 0x190
	logoOffsetOffset  = 0x198
	exefsOffsetOffset = 0x1A0
	romfsOffsetOffset = 0x1B0

	// exHeaderBytes is the fixed total size of the ExHeader region
	// (0x800 System Control Info + 0x400 Access Control Info) whenever
	// exHeaderSizeOffset is non-zero.
	exHeaderBytes = 0x800 + 0x400
)

// ContentType is the type of NCCH content, from flags byte 5 bits 0-2.
type ContentType byte

const (
	ContentTypeApplication  ContentType = 0x00
	ContentTypeSystemUpdate ContentType = 0x01
	ContentTypeManual       ContentType = 0x02
	ContentTypeDLPChild     ContentType = 0x03
	ContentTypeTrial        ContentType = 0x04
)

// Partition is a fully decoded NCCH partition: its header plus every
// sub-region present. Absent regions have a nil accessor.
type Partition struct {
	Header accessor.Accessor // the 0x200-byte NCCH header itself

	TitleID     uint64
	ProgramID   uint64
	MakerCode   string
	Version     uint16
	ProductCode string
	ContentType ContentType
	IsNew3DS    bool

	ExHeader    accessor.Accessor
	PlainRegion accessor.Accessor
	Logo        accessor.Accessor
	ExeFS       accessor.Accessor
	RomFS       accessor.Accessor
}

// Probe reports whether acc looks like an NCCH partition: the 4-byte magic
// "NCCH" at offset 0x100. It never returns an error for a non-matching
// input — callers treat a false result as "try the next decoder".
func Probe(acc accessor.Accessor) bool {
	if acc.Len() < HeaderSize {
		return false
	}
	magic, err := acc.ReadString(magicOffset, 4)
	return err == nil && magic == Magic
}

// Load parses acc (expected to start at the NCCH header) into a Partition,
// lazily slicing each present sub-region. Regions whose media-unit
// offset/size overflow acc's length fail with vfserr.InvalidFormat.
func Load(acc accessor.Accessor) (*Partition, error) {
	if !Probe(acc) {
		return nil, vfserr.New(vfserr.UnsupportedFormat, "", "not an NCCH partition", nil)
	}

	header, err := acc.Slice(0, HeaderSize)
	if err != nil {
		return nil, vfserr.New(vfserr.InvalidFormat, "", "NCCH header truncated", err)
	}

	titleID, _ := header.ReadU64LE(titleIDOffset)
	programID, _ := header.ReadU64LE(programIDOffset)
	version, _ := header.ReadU16LE(versionOffset)
	makerRaw, _ := header.Read(makerCodeOffset, makerCodeLen)
	productRaw, _ := header.Read(productCodeOffset, productCodeLen)
	flags, err := header.Read(flagsOffset, 8)
	if err != nil {
		return nil, vfserr.New(vfserr.InvalidFormat, "", "NCCH flags truncated", err)
	}

	p := &Partition{
		Header:      header,
		TitleID:     titleID,
		ProgramID:   programID,
		MakerCode:   util.ExtractASCII(makerRaw),
		Version:     version,
		ProductCode: util.ExtractASCII(productRaw),
		ContentType: ContentType(flags[5] & 0x07),
		IsNew3DS:    flags[4]&0x02 != 0,
	}

	exHeaderSize, _ := header.ReadU32LE(exHeaderSizeOffset)
	if exHeaderSize > 0 {
		p.ExHeader, err = acc.Slice(HeaderSize, exHeaderBytes)
		if err != nil {
			return nil, vfserr.New(vfserr.InvalidFormat, "", "ExHeader region out of range", err)
		}
	}

	if p.PlainRegion, err = sliceMediaRegion(acc, header, plainOffsetOffset); err != nil {
		return nil, err
	}
	if p.Logo, err = sliceMediaRegion(acc, header, logoOffsetOffset); err != nil {
		return nil, err
	}
	if p.ExeFS, err = sliceMediaRegion(acc, header, exefsOffsetOffset); err != nil {
		return nil, err
	}
	if p.RomFS, err = sliceMediaRegion(acc, header, romfsOffsetOffset); err != nil {
		return nil, err
	}

	return p, nil
}

// sliceMediaRegion reads a (offset, size) pair in media units at fieldOff
// within header and slices the corresponding region out of acc. A zero
// offset means the region is absent (returns nil, nil).
func sliceMediaRegion(acc accessor.Accessor, header accessor.Accessor, fieldOff int64) (accessor.Accessor, error) {
	off, err := header.ReadU32LE(fieldOff)
	if err != nil {
		return nil, vfserr.New(vfserr.InvalidFormat, "", "region table truncated", err)
	}
	size, err := header.ReadU32LE(fieldOff + 4)
	if err != nil {
		return nil, vfserr.New(vfserr.InvalidFormat, "", "region table truncated", err)
	}
	if off == 0 || size == 0 {
		return nil, nil
	}
	region, err := acc.Slice(int64(off)*MediaUnitSize, int64(size)*MediaUnitSize)
	if err != nil {
		return nil, vfserr.New(vfserr.InvalidFormat, "", "region extends past partition end", err)
	}
	return region, nil
}

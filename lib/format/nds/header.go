// Package nds decodes a Nintendo DS cartridge image: the fixed header,
// File Allocation Table, Filename Table, and ARM9/ARM7 overlay tables.
package nds

import (
	"github.com/cartvfs/n3ds/internal/util"
	"github.com/cartvfs/n3ds/lib/accessor"
	"github.com/cartvfs/n3ds/lib/vfserr"
)

const (
	HeaderSize = 0x200

	gameTitleOff = 0x00
	gameTitleLen = 12
	gameCodeOff  = 0x0C
	gameCodeLen  = 4

	arm9OffsetOff = 0x20
	arm9EntryOff  = 0x24
	arm9LoadOff   = 0x28
	arm9SizeOff   = 0x2C

	arm7OffsetOff = 0x30
	arm7EntryOff  = 0x34
	arm7LoadOff   = 0x38
	arm7SizeOff   = 0x3C

	fntOffsetOff = 0x40
	fntSizeOff   = 0x44
	fatOffsetOff = 0x48
	fatSizeOff   = 0x4C

	arm9OverlayOffsetOff = 0x50
	arm9OverlaySizeOff   = 0x54
	arm7OverlayOffsetOff = 0x58
	arm7OverlaySizeOff   = 0x5C

	iconOffsetOff = 0x68
	IconSize      = 0x840

	// Arm9FooterMagic, when found immediately after the declared ARM9
	// size, extends the effective ARM9 binary length by 12 bytes.
	Arm9FooterMagic = 0x2106C0DE
)

// Header is the decoded fixed 0x200-byte DS cartridge header.
type Header struct {
	GameTitle string
	GameCode  string

	Arm9Offset, Arm9Entry, Arm9Load, Arm9Size uint32
	Arm7Offset, Arm7Entry, Arm7Load, Arm7Size uint32

	FntOffset, FntSize uint32
	FatOffset, FatSize uint32

	Arm9OverlayOffset, Arm9OverlaySize uint32
	Arm7OverlayOffset, Arm7OverlaySize uint32

	IconOffset uint32
}

// Probe reports whether acc plausibly holds a DS cartridge image. DS
// images carry no magic number, so Probe instead validates that the FNT,
// FAT, ARM9, and ARM7 regions the header claims actually fit inside acc —
// enough structural agreement that an arbitrary or ExeFS-shaped buffer
// (which also has no magic of its own) won't false-positive. The unified
// opener tries this after NCSD/CIA/NCCH/RomFS and before falling back to
// ExeFS, the weakest and last-resort probe of the chain.
func Probe(acc accessor.Accessor) bool {
	if acc.Len() < HeaderSize {
		return false
	}
	h, err := readHeader(acc)
	if err != nil {
		return false
	}
	return regionInBounds(acc, h.Arm9Offset, h.Arm9Size) &&
		regionInBounds(acc, h.Arm7Offset, h.Arm7Size) &&
		regionInBounds(acc, h.FntOffset, h.FntSize) &&
		regionInBounds(acc, h.FatOffset, h.FatSize) &&
		h.FntSize >= mainTableEntrySize
}

func regionInBounds(acc accessor.Accessor, offset, size uint32) bool {
	if offset == 0 || size == 0 {
		return false
	}
	end := int64(offset) + int64(size)
	return end >= int64(offset) && end <= acc.Len()
}

func readHeader(acc accessor.Accessor) (Header, error) {
	var h Header
	if acc.Len() < HeaderSize {
		return h, vfserr.New(vfserr.UnsupportedFormat, "", "too small for a DS header", nil)
	}

	titleRaw, err := acc.Read(gameTitleOff, gameTitleLen)
	if err != nil {
		return h, vfserr.New(vfserr.InvalidFormat, "", "DS header truncated", err)
	}
	h.GameTitle = util.ExtractASCII(titleRaw)

	codeRaw, err := acc.Read(gameCodeOff, gameCodeLen)
	if err != nil {
		return h, vfserr.New(vfserr.InvalidFormat, "", "DS header truncated", err)
	}
	h.GameCode = util.ExtractASCII(codeRaw)

	fields := []struct {
		off  int64
		dest *uint32
	}{
		{arm9OffsetOff, &h.Arm9Offset}, {arm9EntryOff, &h.Arm9Entry}, {arm9LoadOff, &h.Arm9Load}, {arm9SizeOff, &h.Arm9Size},
		{arm7OffsetOff, &h.Arm7Offset}, {arm7EntryOff, &h.Arm7Entry}, {arm7LoadOff, &h.Arm7Load}, {arm7SizeOff, &h.Arm7Size},
		{fntOffsetOff, &h.FntOffset}, {fntSizeOff, &h.FntSize},
		{fatOffsetOff, &h.FatOffset}, {fatSizeOff, &h.FatSize},
		{arm9OverlayOffsetOff, &h.Arm9OverlayOffset}, {arm9OverlaySizeOff, &h.Arm9OverlaySize},
		{arm7OverlayOffsetOff, &h.Arm7OverlayOffset}, {arm7OverlaySizeOff, &h.Arm7OverlaySize},
		{iconOffsetOff, &h.IconOffset},
	}
	for _, f := range fields {
		v, err := acc.ReadU32LE(f.off)
		if err != nil {
			return h, vfserr.New(vfserr.InvalidFormat, "", "DS header truncated", err)
		}
		*f.dest = v
	}
	return h, nil
}

// arm9FooterPresent reports whether the ARM9 footer magic appears
// immediately after the declared ARM9 binary, extending its effective
// length by 12 bytes.
func arm9FooterPresent(acc accessor.Accessor, h Header) bool {
	magic, err := acc.ReadU32LE(int64(h.Arm9Offset) + int64(h.Arm9Size))
	return err == nil && magic == Arm9FooterMagic
}

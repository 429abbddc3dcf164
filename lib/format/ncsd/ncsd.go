// Package ncsd decodes an NCSD (CCI cartridge) container: the 8-partition
// table at the front of a .3ds/.cci image, each slot holding an NCCH
// partition.
//
// Header layout adapted from the teacher's n3ds.go NCSD constants,
// generalized from "read partition 0 for identification" to "expose every
// present partition":
// https://www.3dbrew.org/wiki/NCSD
package ncsd

import (
	"github.com/hashicorp/go-multierror"

	"github.com/cartvfs/n3ds/lib/accessor"
	"github.com/cartvfs/n3ds/lib/format/ncch"
	"github.com/cartvfs/n3ds/lib/vfserr"
)

const (
	HeaderSize  = 0x200
	magicOffset = 0x100
	Magic       = "NCSD"

	mediaIDOffset   = 0x108
	partTableOffset = 0x120
	PartitionCount  = 8
	partEntrySize   = 8 // offset u32 + size u32, both in media units
)

// Slot identifies the well-known role of an NCSD partition index.
type Slot int

const (
	SlotExecutable Slot = 0
	SlotManual     Slot = 1
	SlotDownload   Slot = 2
	SlotReserved3  Slot = 3
	SlotReserved4  Slot = 4
	SlotReserved5  Slot = 5
	SlotN3DSUpdate Slot = 6
	SlotO3DSUpdate Slot = 7
)

// NCSD is a fully decoded NCSD container. Partitions decode lazily: the
// entry exists (non-nil) once its table slot has a non-zero length, but
// Partition() performs the NCCH parse on first access and caches it.
type NCSD struct {
	Header  accessor.Accessor
	MediaID uint64

	acc     accessor.Accessor
	offsets [PartitionCount]struct{ off, size uint32 }
	cache   [PartitionCount]*ncch.Partition
	loaded  [PartitionCount]bool
}

// Probe reports whether acc looks like an NCSD container: magic "NCSD" at
// offset 0x100.
func Probe(acc accessor.Accessor) bool {
	if acc.Len() < HeaderSize {
		return false
	}
	magic, err := acc.ReadString(magicOffset, 4)
	return err == nil && magic == Magic
}

// Load parses acc (expected to start at the NCSD header) into an NCSD,
// validating every partition table slot and collecting every out-of-range
// slot into a single *multierror.Error rather than stopping at the first.
func Load(acc accessor.Accessor) (*NCSD, error) {
	if !Probe(acc) {
		return nil, vfserr.New(vfserr.UnsupportedFormat, "", "not an NCSD container", nil)
	}

	header, err := acc.Slice(0, HeaderSize)
	if err != nil {
		return nil, vfserr.New(vfserr.InvalidFormat, "", "NCSD header truncated", err)
	}
	mediaID, _ := header.ReadU64LE(mediaIDOffset)

	n := &NCSD{Header: header, MediaID: mediaID, acc: acc}

	var errs *multierror.Error
	for i := 0; i < PartitionCount; i++ {
		entryOff := int64(partTableOffset + i*partEntrySize)
		off, err := header.ReadU32LE(entryOff)
		if err != nil {
			errs = multierror.Append(errs, vfserr.New(vfserr.InvalidFormat, "", "partition table truncated", err))
			continue
		}
		size, err := header.ReadU32LE(entryOff + 4)
		if err != nil {
			errs = multierror.Append(errs, vfserr.New(vfserr.InvalidFormat, "", "partition table truncated", err))
			continue
		}
		if off == 0 || size == 0 {
			continue
		}
		end := (int64(off) + int64(size)) * ncch.MediaUnitSize
		if end > acc.Len() {
			errs = multierror.Append(errs, vfserr.New(vfserr.InvalidFormat, "", "partition slot extends past image end", nil))
			continue
		}
		n.offsets[i] = struct{ off, size uint32 }{off, size}
	}

	return n, errs.ErrorOrNil()
}

// Present reports whether partition index i has a non-empty table entry.
func (n *NCSD) Present(i int) bool {
	if i < 0 || i >= PartitionCount {
		return false
	}
	return n.offsets[i].size != 0
}

// Partition lazily decodes and returns partition index i, or (nil, false)
// if the slot is empty or out of range.
func (n *NCSD) Partition(i int) (*ncch.Partition, bool, error) {
	if !n.Present(i) {
		return nil, false, nil
	}
	if n.loaded[i] {
		return n.cache[i], true, nil
	}

	e := n.offsets[i]
	region, err := n.acc.Slice(int64(e.off)*ncch.MediaUnitSize, int64(e.size)*ncch.MediaUnitSize)
	if err != nil {
		return nil, true, vfserr.New(vfserr.InvalidFormat, "", "partition region out of range", err)
	}
	part, err := ncch.Load(region)
	if err != nil {
		return nil, true, err
	}
	n.cache[i] = part
	n.loaded[i] = true
	return part, true, nil
}

// PartitionCountPresent counts slots with a non-empty table entry.
func (n *NCSD) PartitionCountPresent() int {
	count := 0
	for i := 0; i < PartitionCount; i++ {
		if n.Present(i) {
			count++
		}
	}
	return count
}

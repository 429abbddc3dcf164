// Package container unifies NCSD, CIA, NCCH, ExeFS, and RomFS inputs into
// a single Container shape: an array of up to 8 NCCH partition slots, so
// the VFS namespace (lib/vfs) never needs to know which format produced
// them.
package container

import (
	"github.com/cartvfs/n3ds/lib/accessor"
	"github.com/cartvfs/n3ds/lib/format/cia"
	"github.com/cartvfs/n3ds/lib/format/exefs"
	"github.com/cartvfs/n3ds/lib/format/ncch"
	"github.com/cartvfs/n3ds/lib/format/ncsd"
	"github.com/cartvfs/n3ds/lib/format/romfs"
	"github.com/cartvfs/n3ds/lib/vfserr"
)

// PartitionCount is the number of partition slots a Container exposes,
// matching NCSD's 8-entry partition table.
const PartitionCount = ncsd.PartitionCount

// Container is the uniform representation of 1..8 NCCH partitions within
// a multi-partition image. NCSD and CIA produce genuinely multi-partition
// containers; an NCCH, ExeFS, or RomFS input is wrapped as a single
// partition at index 0, with only the sub-region matching the input
// format populated — Partition(0).ExeFS for a standalone ExeFS input,
// Partition(0).RomFS for a standalone RomFS input.
type Container struct {
	NcsdHeader accessor.Accessor // only set when the source was an NCSD image
	IsDLC      bool

	partitions [PartitionCount]*ncch.Partition
	present    [PartitionCount]bool
}

// Partition returns partition index i, or (nil, false) if the slot is
// absent or out of range — never an error, per spec's container invariant.
func (c *Container) Partition(i int) (*ncch.Partition, bool) {
	if i < 0 || i >= PartitionCount {
		return nil, false
	}
	return c.partitions[i], c.present[i]
}

// Load builds a Container from whichever format acc probes as, in
// detection order NCSD -> CIA -> NCCH -> RomFS -> ExeFS. The first probe
// that matches wins; if none match, Load fails with
// vfserr.UnsupportedFormat.
func Load(acc accessor.Accessor) (*Container, error) {
	switch {
	case ncsd.Probe(acc):
		return loadNCSD(acc)
	case cia.Probe(acc):
		return loadCIA(acc)
	case ncch.Probe(acc):
		part, err := ncch.Load(acc)
		if err != nil {
			return nil, err
		}
		return singlePartition(part), nil
	case romfs.Probe(acc):
		return singlePartition(&ncch.Partition{RomFS: acc}), nil
	case exefs.Probe(acc):
		return singlePartition(&ncch.Partition{ExeFS: acc}), nil
	default:
		return nil, vfserr.New(vfserr.UnsupportedFormat, "", "no decoder recognizes this image", nil)
	}
}

// dlcTitleIDCategory is the title-ID high-32-bits value (platform ID 0004
// plus category 008C) 3dbrew documents for DLC titles.
const dlcTitleIDCategory = 0x0004008C

// isDLCTitleID reports whether titleID's high 32 bits equal the DLC value
// dlcTitleIDCategory, per 3dbrew's title ID category table.
func isDLCTitleID(titleID uint64) bool {
	return titleID>>32 == dlcTitleIDCategory
}

func loadNCSD(acc accessor.Accessor) (*Container, error) {
	n, err := ncsd.Load(acc)
	if err != nil {
		return nil, err
	}
	c := &Container{NcsdHeader: n.Header}
	for i := 0; i < PartitionCount; i++ {
		part, ok, err := n.Partition(i)
		if err != nil {
			return nil, err
		}
		c.partitions[i] = part
		c.present[i] = ok
		if ok && isDLCTitleID(part.TitleID) {
			c.IsDLC = true
		}
	}
	return c, nil
}

func loadCIA(acc accessor.Accessor) (*Container, error) {
	a, err := cia.Load(acc)
	if err != nil {
		return nil, err
	}
	c := &Container{IsDLC: isDLCTitleID(a.TitleID)}
	for i, part := range a.Contents {
		if i >= PartitionCount {
			break
		}
		c.partitions[i] = part
		c.present[i] = true
	}
	return c, nil
}

// singlePartition synthesizes a single-partition container from a
// standalone NCCH, ExeFS, or RomFS input.
func singlePartition(part *ncch.Partition) *Container {
	c := &Container{}
	c.partitions[0] = part
	c.present[0] = true
	return c
}

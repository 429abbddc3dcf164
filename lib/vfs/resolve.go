package vfs

import (
	"github.com/cartvfs/n3ds/lib/format/nds"
)

// resolveTopLevel matches name against the top-level slot grammar (spec
// §4.D): either the 3DS container's indexed-name slots, or the DS
// cartridge's fixed slot names.
func resolveTopLevel(rom *Rom, name string) (*target, bool, error) {
	if rom.ndsCart != nil {
		return resolveDSTopLevel(rom, name)
	}
	return resolve3DSTopLevel(rom, name)
}

func resolve3DSTopLevel(rom *Rom, name string) (*target, bool, error) {
	c := rom.container

	if equalFold(name, "NcsdHeader.bin") {
		if c.NcsdHeader == nil {
			return nil, false, nil
		}
		return &target{kind: tFile, file: c.NcsdHeader}, true, nil
	}

	if idx, ok := matchIndexed(name, "Header", ".bin"); ok {
		part, present := c.Partition(idx)
		if !present || part.Header == nil {
			return nil, false, nil
		}
		return &target{kind: tFile, file: part.Header}, true, nil
	}
	if idx, ok := matchIndexed(name, "ExHeader", ".bin"); ok {
		part, present := c.Partition(idx)
		if !present || part.ExHeader == nil {
			return nil, false, nil
		}
		return &target{kind: tFile, file: part.ExHeader}, true, nil
	}
	if idx, ok := matchIndexed(name, "PlainRegion", ".txt"); ok {
		part, present := c.Partition(idx)
		if !present || part.PlainRegion == nil {
			return nil, false, nil
		}
		return &target{kind: tFile, file: part.PlainRegion}, true, nil
	}
	if idx, ok := matchIndexed(name, "Logo", ".bin"); ok {
		part, present := c.Partition(idx)
		if !present || part.Logo == nil {
			return nil, false, nil
		}
		return &target{kind: tFile, file: part.Logo}, true, nil
	}
	if idx, ok := matchIndexed(name, "ExeFS", ""); ok {
		part, present := c.Partition(idx)
		if !present || part.ExeFS == nil {
			return nil, false, nil
		}
		ex, err := rom.decodedExeFS(idx)
		if err != nil {
			return nil, false, err
		}
		return &target{kind: tExeFSDir, exefsArchive: ex}, true, nil
	}
	if idx, ok := matchRomFS(name); ok {
		part, present := c.Partition(idx)
		if !present || part.RomFS == nil {
			return nil, false, nil
		}
		tree, err := rom.decodedRomFS(idx)
		if err != nil {
			return nil, false, err
		}
		return &target{kind: tRomFSDir, romfsDir: tree.Root}, true, nil
	}
	return nil, false, nil
}

func resolveDSTopLevel(rom *Rom, name string) (*target, bool, error) {
	cart := rom.ndsCart

	switch {
	case equalFold(name, "header.bin"):
		acc, err := cart.HeaderBytes()
		if err != nil {
			return nil, false, err
		}
		return &target{kind: tFile, file: acc}, true, nil
	case equalFold(name, "arm9.bin"):
		acc, err := cart.Arm9()
		if err != nil {
			return nil, false, err
		}
		return &target{kind: tFile, file: acc}, true, nil
	case equalFold(name, "arm7.bin"):
		acc, err := cart.Arm7()
		if err != nil {
			return nil, false, err
		}
		return &target{kind: tFile, file: acc}, true, nil
	case equalFold(name, "y9.bin"):
		acc, err := cart.Y9()
		if err != nil {
			return nil, false, err
		}
		return &target{kind: tFile, file: acc}, true, nil
	case equalFold(name, "y7.bin"):
		acc, err := cart.Y7()
		if err != nil {
			return nil, false, err
		}
		return &target{kind: tFile, file: acc}, true, nil
	case equalFold(name, "data"):
		return &target{kind: tNDSDir, ndsDir: cart.Root}, true, nil
	case equalFold(name, "overlay"):
		files, err := nds.OverlayFiles(cart.Accessor(), cart.Arm9Overlays, cart.Fat)
		if err != nil {
			return nil, false, err
		}
		return &target{kind: tFlatDir, flatFiles: toFlatFiles(files)}, true, nil
	case equalFold(name, "overlay7"):
		files, err := nds.OverlayFiles(cart.Accessor(), cart.Arm7Overlays, cart.Fat)
		if err != nil {
			return nil, false, err
		}
		return &target{kind: tFlatDir, flatFiles: toFlatFiles(files)}, true, nil
	default:
		return nil, false, nil
	}
}

func toFlatFiles(files []*nds.File) []flatFile {
	out := make([]flatFile, 0, len(files))
	for _, f := range files {
		out = append(out, flatFile{name: f.Name, data: f.Data})
	}
	return out
}

// descend walks rest (already-split path segments) starting at t, failing
// the moment any segment cannot be resolved or a non-final segment is not
// a directory.
func descend(t *target, rest []string) (*target, error) {
	cur := t
	for _, seg := range rest {
		if !cur.IsDir() {
			return nil, notFoundErr(seg)
		}
		next, ok, err := cur.Child(seg)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, notFoundErr(seg)
		}
		cur = next
	}
	return cur, nil
}

// rootEntries enumerates the synthesized root directory's immediate
// children: every present partition contributes Header (always, once
// decoded) plus whichever optional sub-regions are non-nil, and the DS
// case contributes its fixed slot set.
func rootEntries(rom *Rom) []entry {
	if rom.ndsCart != nil {
		cart := rom.ndsCart
		out := []entry{
			{Name: "header.bin"},
			{Name: "arm9.bin"},
			{Name: "arm7.bin"},
			{Name: "data", IsDir: true},
		}
		if cart.Header.Arm9OverlaySize > 0 {
			out = append(out, entry{Name: "y9.bin"})
		}
		if cart.Header.Arm7OverlaySize > 0 {
			out = append(out, entry{Name: "y7.bin"})
		}
		if len(cart.Arm9Overlays) > 0 {
			out = append(out, entry{Name: "overlay", IsDir: true})
		}
		if len(cart.Arm7Overlays) > 0 {
			out = append(out, entry{Name: "overlay7", IsDir: true})
		}
		return out
	}

	c := rom.container
	var out []entry
	if c.NcsdHeader != nil {
		out = append(out, entry{Name: "NcsdHeader.bin"})
	}
	for i := 0; i < containerPartitionCount; i++ {
		part, present := c.Partition(i)
		if !present {
			continue
		}
		if part.Header != nil {
			out = append(out, entry{Name: indexedName("Header", ".bin", i)})
		}
		if part.ExHeader != nil {
			out = append(out, entry{Name: indexedName("ExHeader", ".bin", i)})
		}
		if part.PlainRegion != nil {
			out = append(out, entry{Name: indexedName("PlainRegion", ".txt", i)})
		}
		if part.Logo != nil {
			out = append(out, entry{Name: indexedName("Logo", ".bin", i)})
		}
		if part.ExeFS != nil {
			out = append(out, entry{Name: indexedName("ExeFS", "", i), IsDir: true})
		}
		if part.RomFS != nil {
			out = append(out, entry{Name: romFSName(i, c.IsDLC), IsDir: true})
		}
	}
	return out
}

package vfs

import (
	"github.com/cartvfs/n3ds/lib/accessor"
	"github.com/cartvfs/n3ds/lib/format/exefs"
	"github.com/cartvfs/n3ds/lib/format/nds"
	"github.com/cartvfs/n3ds/lib/format/romfs"
	"github.com/cartvfs/n3ds/lib/vfserr"
)

// entry is one immediate child reported by a directory target: a name and
// whether it is itself a directory.
type entry struct {
	Name  string
	IsDir bool
}

type targetKind int

const (
	tFile targetKind = iota
	tExeFSDir
	tRomFSDir
	tNDSDir
	tFlatDir
	tRoot
)

type flatFile struct {
	name string
	data accessor.Accessor
}

// target is the resolved end point of a path: either a file (leaf) or a
// directory whose children can be listed and descended into. Exactly the
// field matching kind is populated.
type target struct {
	kind targetKind

	file accessor.Accessor

	exefsArchive *exefs.ExeFS
	romfsDir     *romfs.Dir
	ndsDir       *nds.Dir
	flatFiles    []flatFile

	rom *Rom // only for tRoot
}

func (t *target) IsDir() bool { return t.kind != tFile }

// Data returns a file target's content accessor.
func (t *target) Data() (accessor.Accessor, error) {
	if t.kind != tFile {
		return nil, vfserr.New(vfserr.NotSupported, "", "not a file", nil)
	}
	return t.file, nil
}

// List returns a directory target's immediate children.
func (t *target) List() ([]entry, error) {
	switch t.kind {
	case tExeFSDir:
		out := make([]entry, 0, len(t.exefsArchive.Entries))
		for _, e := range t.exefsArchive.Entries {
			out = append(out, entry{Name: e.Name, IsDir: false})
		}
		return out, nil
	case tRomFSDir:
		out := make([]entry, 0, len(t.romfsDir.Dirs)+len(t.romfsDir.Files))
		for _, d := range t.romfsDir.Dirs {
			out = append(out, entry{Name: d.Name, IsDir: true})
		}
		for _, f := range t.romfsDir.Files {
			out = append(out, entry{Name: f.Name, IsDir: false})
		}
		return out, nil
	case tNDSDir:
		out := make([]entry, 0, len(t.ndsDir.Dirs)+len(t.ndsDir.Files))
		for _, d := range t.ndsDir.Dirs {
			out = append(out, entry{Name: d.Name, IsDir: true})
		}
		for _, f := range t.ndsDir.Files {
			out = append(out, entry{Name: f.Name, IsDir: false})
		}
		return out, nil
	case tFlatDir:
		out := make([]entry, 0, len(t.flatFiles))
		for _, f := range t.flatFiles {
			out = append(out, entry{Name: f.name, IsDir: false})
		}
		return out, nil
	case tRoot:
		return rootEntries(t.rom), nil
	default:
		return nil, vfserr.New(vfserr.NotSupported, "", "not a directory", nil)
	}
}

// Child resolves one path segment against this directory target,
// case-insensitively.
func (t *target) Child(name string) (*target, bool, error) {
	switch t.kind {
	case tExeFSDir:
		e, ok := t.exefsArchive.Find(name)
		if !ok {
			return nil, false, nil
		}
		return &target{kind: tFile, file: e.Data}, true, nil
	case tRomFSDir:
		for _, f := range t.romfsDir.Files {
			if equalFold(f.Name, name) {
				return &target{kind: tFile, file: accessor.NewMemory(f.Data)}, true, nil
			}
		}
		for _, d := range t.romfsDir.Dirs {
			if equalFold(d.Name, name) {
				return &target{kind: tRomFSDir, romfsDir: d}, true, nil
			}
		}
		return nil, false, nil
	case tNDSDir:
		for _, f := range t.ndsDir.Files {
			if equalFold(f.Name, name) {
				return &target{kind: tFile, file: f.Data}, true, nil
			}
		}
		for _, d := range t.ndsDir.Dirs {
			if equalFold(d.Name, name) {
				return &target{kind: tNDSDir, ndsDir: d}, true, nil
			}
		}
		return nil, false, nil
	case tFlatDir:
		for _, f := range t.flatFiles {
			if equalFold(f.name, name) {
				return &target{kind: tFile, file: f.data}, true, nil
			}
		}
		return nil, false, nil
	case tRoot:
		return resolveTopLevel(t.rom, name)
	default:
		return nil, false, nil
	}
}

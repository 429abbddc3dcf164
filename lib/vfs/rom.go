package vfs

import (
	"sync"

	"github.com/cartvfs/n3ds/internal/hostfs"
	"github.com/cartvfs/n3ds/lib/accessor"
	"github.com/cartvfs/n3ds/lib/container"
	"github.com/cartvfs/n3ds/lib/format/cia"
	"github.com/cartvfs/n3ds/lib/format/exefs"
	"github.com/cartvfs/n3ds/lib/format/ncch"
	"github.com/cartvfs/n3ds/lib/format/ncsd"
	"github.com/cartvfs/n3ds/lib/format/nds"
	"github.com/cartvfs/n3ds/lib/format/romfs"
	"github.com/cartvfs/n3ds/lib/overlay"
	"github.com/cartvfs/n3ds/lib/vfserr"
)

// containerPartitionCount mirrors container.PartitionCount, named locally
// so resolve.go/enumerate.go don't need to import container just for the
// constant.
const containerPartitionCount = container.PartitionCount

// Rom is the unified, writable view spec component D describes: a decoded
// container (or decoded DS cartridge) merged with a copy-on-write overlay.
type Rom struct {
	container *container.Container
	ndsCart   *nds.Cartridge

	overlay *overlay.Overlay
	cwd     []string

	decodeMu    sync.Mutex
	exefsCache  map[int]*exefs.ExeFS
	romfsCache  map[int]*romfs.Tree
}

// Open decodes acc as a 3DS or DS ROM image and returns a Rom backed by an
// in-memory overlay scratch.
func Open(acc accessor.Accessor) (*Rom, error) {
	return OpenWithScratch(acc, hostfs.NewMemory())
}

// OpenWithScratch decodes acc the same way Open does, but uses scratch as
// the overlay's host-filesystem backing (e.g. hostfs.NewDisk() for a
// real-directory scratch area).
//
// container.Load's own chain ends in exefs.Probe, which has no magic
// number to check and accepts almost any sufficiently large buffer. DS
// cartridges have no magic either, so without help a DS image would be
// swallowed by that ExeFS catch-all before DS decoding ever ran. To keep
// the two disjoint, DS is tried whenever none of the stronger 3DS
// formats (NCSD, CIA, NCCH, standalone RomFS — all of which do carry a
// magic or a validated header) match, and before the ExeFS fallback.
func OpenWithScratch(acc accessor.Accessor, scratch hostfs.FS) (*Rom, error) {
	r := &Rom{
		overlay:    overlay.New(scratch, ""),
		exefsCache: make(map[int]*exefs.ExeFS),
		romfsCache: make(map[int]*romfs.Tree),
	}

	strong3DS := ncsd.Probe(acc) || cia.Probe(acc) || ncch.Probe(acc) || romfs.Probe(acc)
	if !strong3DS && nds.Probe(acc) {
		cart, err := nds.Load(acc)
		if err != nil {
			return nil, err
		}
		r.ndsCart = cart
		return r, nil
	}

	c, err := container.Load(acc)
	if err != nil {
		return nil, err
	}
	r.container = c
	return r, nil
}

// decodedExeFS lazily decodes and caches partition i's ExeFS region.
func (r *Rom) decodedExeFS(i int) (*exefs.ExeFS, error) {
	r.decodeMu.Lock()
	defer r.decodeMu.Unlock()

	if ex, ok := r.exefsCache[i]; ok {
		return ex, nil
	}
	part, present := r.container.Partition(i)
	if !present || part.ExeFS == nil {
		return nil, vfserr.New(vfserr.NotFound, "", "no ExeFS at that partition", nil)
	}
	ex, err := exefs.Load(part.ExeFS)
	if err != nil {
		return nil, err
	}
	r.exefsCache[i] = ex
	return ex, nil
}

// decodedRomFS lazily decodes and caches partition i's RomFS region.
func (r *Rom) decodedRomFS(i int) (*romfs.Tree, error) {
	r.decodeMu.Lock()
	defer r.decodeMu.Unlock()

	if tree, ok := r.romfsCache[i]; ok {
		return tree, nil
	}
	part, present := r.container.Partition(i)
	if !present || part.RomFS == nil {
		return nil, vfserr.New(vfserr.NotFound, "", "no RomFS at that partition", nil)
	}
	tree, err := romfs.Load(part.RomFS)
	if err != nil {
		return nil, err
	}
	r.romfsCache[i] = tree
	return tree, nil
}

func notFoundErr(path string) error {
	return vfserr.New(vfserr.NotFound, path, "", nil)
}

// resolve is the full path->target pipeline: normalize, split off the
// top-level slot, descend the remainder.
func (r *Rom) resolve(path string) (*target, string, error) {
	segs := resolveAbsolute(r.cwd, path)
	root := &target{kind: tRoot, rom: r}
	if len(segs) == 0 {
		return root, joinPath(segs, true), nil
	}
	t, err := descend(root, segs)
	if err != nil {
		return nil, "", err
	}
	return t, joinPath(segs, t.IsDir()), nil
}

// FileExists reports whether path resolves to a readable file, honoring
// the overlay (blacklist and scratch both take precedence over the
// backing container).
func (r *Rom) FileExists(path string) bool {
	norm := joinPath(resolveAbsolute(r.cwd, path), false)
	if r.overlay.IsDeleted(norm) {
		return false
	}
	if _, ok := r.overlay.ReadFile(norm); ok {
		return true
	}
	t, _, err := r.resolve(path)
	return err == nil && !t.IsDir()
}

// DirectoryExists reports whether path resolves to a directory.
func (r *Rom) DirectoryExists(path string) bool {
	norm := joinPath(resolveAbsolute(r.cwd, path), true)
	if r.overlay.IsDeleted(norm) {
		return false
	}
	if r.overlay.HasDirectory(norm) {
		return true
	}
	t, _, err := r.resolve(path)
	return err == nil && t.IsDir()
}

// ReadAllBytes returns path's full content, from the overlay scratch if
// present there, otherwise from the decoded backing tree.
func (r *Rom) ReadAllBytes(path string) ([]byte, error) {
	norm := joinPath(resolveAbsolute(r.cwd, path), false)
	if r.overlay.IsDeleted(norm) {
		return nil, notFoundErr(norm)
	}
	if data, ok := r.overlay.ReadFile(norm); ok {
		return data, nil
	}

	t, _, err := r.resolve(path)
	if err != nil {
		return nil, err
	}
	if t.IsDir() {
		return nil, vfserr.New(vfserr.NotSupported, norm, "is a directory", nil)
	}
	acc, err := t.Data()
	if err != nil {
		return nil, err
	}
	return acc.Read(0, acc.Len())
}

// GetFileLength returns path's byte length, without materializing its
// content (cheaper than len(ReadAllBytes(path)) for large backing files).
func (r *Rom) GetFileLength(path string) (int64, error) {
	norm := joinPath(resolveAbsolute(r.cwd, path), false)
	if r.overlay.IsDeleted(norm) {
		return 0, notFoundErr(norm)
	}
	if data, ok := r.overlay.ReadFile(norm); ok {
		return int64(len(data)), nil
	}
	t, _, err := r.resolve(path)
	if err != nil {
		return 0, err
	}
	acc, err := t.Data()
	if err != nil {
		return 0, err
	}
	return acc.Len(), nil
}

// WriteAllBytes stores data at path in the overlay, shadowing whatever the
// backing container holds (or resurrecting path if it was deleted).
func (r *Rom) WriteAllBytes(path string, data []byte) error {
	norm := joinPath(resolveAbsolute(r.cwd, path), false)
	return r.overlay.Write(norm, data)
}

// DeleteFile blacklists path in the overlay; subsequent reads fail with
// vfserr.NotFound until a write resurrects it.
func (r *Rom) DeleteFile(path string) error {
	norm := joinPath(resolveAbsolute(r.cwd, path), false)
	return r.overlay.Delete(norm)
}

// CreateDirectory ensures path exists as an overlay directory.
func (r *Rom) CreateDirectory(path string) error {
	norm := joinPath(resolveAbsolute(r.cwd, path), true)
	return r.overlay.CreateDirectory(norm)
}

// SetCurrentDirectory updates the working directory new relative path
// resolutions are anchored against.
func (r *Rom) SetCurrentDirectory(path string) error {
	if !r.DirectoryExists(path) && path != "/" {
		return notFoundErr(path)
	}
	r.cwd = resolveAbsolute(r.cwd, path)
	return nil
}

// GetCurrentDirectory returns the absolute current working directory.
func (r *Rom) GetCurrentDirectory() string {
	return joinPath(r.cwd, true)
}

// Close is a no-op: scratch storage is always caller-supplied (Open/
// OpenWithScratch default it to an in-memory hostfs.FS), so a Rom never
// owns anything that outlives it. Present for symmetry with Open and to
// leave room for a future on-disk scratch FS that would need cleanup.
func (r *Rom) Close() error {
	return nil
}

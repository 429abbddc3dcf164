// Package overlay implements the copy-on-write layer (spec component E):
// writes, deletes, and new files are recorded in a host-filesystem scratch
// directory and a blacklist of logically-deleted paths, without ever
// mutating the backing container.
package overlay

import (
	"strings"
	"sync"

	"github.com/cartvfs/n3ds/internal/hostfs"
	"github.com/cartvfs/n3ds/internal/logging"
	"github.com/cartvfs/n3ds/internal/util"
)

// Overlay is single-writer: Write/Delete/CreateDirectory are serialized by
// mu, and publish (scratch flush, then blacklist update) before returning,
// so any subsequent Read on any goroutine observes the write.
type Overlay struct {
	mu        sync.Mutex
	scratch   hostfs.FS
	root      string
	blacklist map[string]bool
	log       logging.Logger
}

// New returns an overlay backed by scratch, mirroring the VFS hierarchy
// under root (scratch's own root if root is empty).
func New(scratch hostfs.FS, root string) *Overlay {
	return &Overlay{
		scratch:   scratch,
		root:      root,
		blacklist: make(map[string]bool),
		log:       logging.For(logging.Disabled(), "overlay"),
	}
}

// SetLogger replaces the overlay's logger (logging.Disabled() by default).
func (o *Overlay) SetLogger(log logging.Logger) {
	o.log = logging.For(log, "overlay")
}

func (o *Overlay) scratchPath(p string) string {
	return o.root + p
}

// Write stores data at P, clearing any prior delete.
func (o *Overlay) Write(p string, data []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.scratch.WriteAllBytes(o.scratchPath(p), data); err != nil {
		return err
	}
	delete(o.blacklist, util.ASCIILower(p))
	o.log.WithField("path", p).Debug("overlay write")
	return nil
}

// Delete blacklists P and removes any scratch copy.
func (o *Overlay) Delete(p string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	key := util.ASCIILower(p)
	if o.scratch.FileExists(o.scratchPath(p)) {
		if err := o.scratch.DeleteDirectory(o.scratchPath(p)); err != nil {
			return err
		}
	}
	o.blacklist[key] = true
	o.log.WithField("path", p).Debug("overlay delete (blacklisted)")
	return nil
}

// CreateDirectory ensures a scratch directory exists at P and clears any
// prior delete of P.
func (o *Overlay) CreateDirectory(p string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.scratch.CreateDirectory(o.scratchPath(p)); err != nil {
		return err
	}
	delete(o.blacklist, util.ASCIILower(p))
	return nil
}

// IsDeleted reports whether P is currently blacklisted.
func (o *Overlay) IsDeleted(p string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.blacklist[util.ASCIILower(p)]
}

// ReadFile returns P's scratch bytes and whether P has a scratch entry at
// all (distinct from being blacklisted — callers check IsDeleted first).
func (o *Overlay) ReadFile(p string) ([]byte, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.scratch.FileExists(o.scratchPath(p)) {
		return nil, false
	}
	data, err := o.scratch.ReadAllBytes(o.scratchPath(p))
	if err != nil {
		return nil, false
	}
	return data, true
}

// HasDirectory reports whether P exists as a scratch directory.
func (o *Overlay) HasDirectory(p string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.scratch.DirectoryExists(o.scratchPath(p))
}

// ScratchEntry is one immediate child the scratch directory contributes
// under a listed directory.
type ScratchEntry struct {
	Path  string
	IsDir bool
}

// ListUnder returns every scratch entry at or below dir (for enumeration's
// union with the backing tree); recursive controls whether entries nested
// below immediate children are included.
func (o *Overlay) ListUnder(dir string, recursive bool) ([]ScratchEntry, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	prefix := strings.TrimSuffix(dir, "/") + "/"

	var out []ScratchEntry
	err := o.scratch.Walk(o.scratchPath(dir), func(path string, isDir bool) {
		rel := strings.TrimPrefix(path, o.root)
		if !recursive {
			rest := strings.TrimPrefix(rel, prefix)
			if strings.Contains(rest, "/") {
				return
			}
		}
		out = append(out, ScratchEntry{Path: rel, IsDir: isDir})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Blacklisted returns every normalized path (lower-cased) currently
// deleted, for filtering a backing-tree enumeration.
func (o *Overlay) Blacklisted() map[string]bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make(map[string]bool, len(o.blacklist))
	for k := range o.blacklist {
		out[k] = true
	}
	return out
}

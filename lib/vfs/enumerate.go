package vfs

import (
	"strings"

	"github.com/cartvfs/n3ds/lib/vfserr"
)

// GetFiles returns every file path under dir matching pattern (`*`/`?`
// globbing, case-insensitive), either immediate children only
// (topDirectoryOnly) or the full recursive depth-first union of the
// decoded backing tree and the overlay.
func (r *Rom) GetFiles(dir, pattern string, topDirectoryOnly bool) ([]string, error) {
	re, err := compileGlob(pattern)
	if err != nil {
		return nil, err
	}
	entries, err := r.listMerged(dir, !topDirectoryOnly)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir {
			continue
		}
		name := e.path[strings.LastIndex(e.path, "/")+1:]
		if re.MatchString(name) {
			out = append(out, e.path)
		}
	}
	return out, nil
}

// GetDirectories returns every directory path under dir matching pattern,
// the same way GetFiles does for files.
func (r *Rom) GetDirectories(dir, pattern string, topDirectoryOnly bool) ([]string, error) {
	re, err := compileGlob(pattern)
	if err != nil {
		return nil, err
	}
	entries, err := r.listMerged(dir, !topDirectoryOnly)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir {
			continue
		}
		trimmed := strings.TrimSuffix(e.path, "/")
		name := trimmed[strings.LastIndex(trimmed, "/")+1:]
		if re.MatchString(name) {
			out = append(out, e.path)
		}
	}
	return out, nil
}

type mergedEntry struct {
	path  string // absolute, trailing "/" for directories
	IsDir bool
}

// listMerged returns the snapshot-consistent union of the backing tree and
// the overlay under dir, honoring the blacklist, with scratch entries
// shadowing (never duplicating) backing ones.
func (r *Rom) listMerged(dir string, recursive bool) ([]mergedEntry, error) {
	segs := resolveAbsolute(r.cwd, dir)
	base := joinPath(segs, true)

	seen := make(map[string]bool)
	var out []mergedEntry

	blacklist := r.overlay.Blacklisted()

	walkBacking := func() error {
		root := &target{kind: tRoot, rom: r}
		t, err := descend(root, segs)
		if err != nil {
			if vfserr.Is(err, vfserr.NotFound) {
				return nil
			}
			return err
		}
		return r.walkTarget(t, segs, recursive, blacklist, seen, &out)
	}
	if err := walkBacking(); err != nil {
		return nil, err
	}

	scratch, err := r.overlay.ListUnder(base, recursive)
	if err != nil {
		return nil, err
	}
	for _, s := range scratch {
		p := s.Path
		if s.IsDir && !strings.HasSuffix(p, "/") {
			p += "/"
		}
		key := strings.ToLower(p)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, mergedEntry{path: p, IsDir: s.IsDir})
	}

	return out, nil
}

// walkTarget enumerates t's backing children (t already resolved at
// segs), skipping anything blacklisted, recursing when recursive is set.
func (r *Rom) walkTarget(t *target, segs []string, recursive bool, blacklist map[string]bool, seen map[string]bool, out *[]mergedEntry) error {
	children, err := t.List()
	if err != nil {
		return err
	}
	for _, c := range children {
		childSegs := append(append([]string{}, segs...), c.Name)
		p := joinPath(childSegs, c.IsDir)
		key := strings.ToLower(p)
		if blacklist[key] {
			continue
		}
		if !seen[key] {
			seen[key] = true
			*out = append(*out, mergedEntry{path: p, IsDir: c.IsDir})
		}
		if c.IsDir && recursive {
			child, ok, err := t.Child(c.Name)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if err := r.walkTarget(child, childSegs, recursive, blacklist, seen, out); err != nil {
				return err
			}
		}
	}
	return nil
}

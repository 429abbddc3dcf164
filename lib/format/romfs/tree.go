package romfs

import "sort"

// File is a single RomFS file: its name and its raw content bytes.
type File struct {
	Name string
	Data []byte
}

// Dir is a RomFS directory: an ordered set of child directories and files.
// Ordering on decode follows the child/sibling links of the metadata
// tables; Build always
// re-sorts both slices by compareUTF16 before emission, so a decode/build
// round trip is deterministic regardless of the source order.
type Dir struct {
	Name  string
	Dirs  []*Dir
	Files []*File
}

// Tree is a fully decoded (or not-yet-built) RomFS directory tree, rooted
// at an unnamed top-level directory.
type Tree struct {
	Root *Dir
}

// sortChildren orders d's subdirectories and files by UTF-16 code unit,
// matching the canonical ordering Build emits.
func (d *Dir) sortChildren() {
	sort.Slice(d.Dirs, func(i, j int) bool { return compareUTF16(d.Dirs[i].Name, d.Dirs[j].Name) < 0 })
	sort.Slice(d.Files, func(i, j int) bool { return compareUTF16(d.Files[i].Name, d.Files[j].Name) < 0 })
	for _, sub := range d.Dirs {
		sub.sortChildren()
	}
}

// Walk visits every directory in the tree in pre-order, starting at d.
func (d *Dir) Walk(fn func(path string, dir *Dir)) {
	d.walk("", fn)
}

func (d *Dir) walk(prefix string, fn func(path string, dir *Dir)) {
	fn(prefix, d)
	for _, sub := range d.Dirs {
		sub.walk(prefix+sub.Name+"/", fn)
	}
}

// FindDir resolves a slash-separated relative path of directory names
// starting at d; an empty path returns d itself.
func (d *Dir) FindDir(parts []string) (*Dir, bool) {
	cur := d
	for _, part := range parts {
		if part == "" {
			continue
		}
		next, ok := cur.childDir(part)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

func (d *Dir) childDir(name string) (*Dir, bool) {
	for _, sub := range d.Dirs {
		if sub.Name == name {
			return sub, true
		}
	}
	return nil, false
}

// FindFile looks up a file directly within d by exact name.
func (d *Dir) FindFile(name string) (*File, bool) {
	for _, f := range d.Files {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

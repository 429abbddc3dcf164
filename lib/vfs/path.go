// Package vfs projects decoded 3DS/DS containers into a single POSIX-like
// tree (spec component D), merges it with a copy-on-write overlay, and
// exposes the combined view as a Rom.
package vfs

import (
	"regexp"
	"strings"

	"github.com/cartvfs/n3ds/internal/util"
)

// splitPath breaks path into normalized segments: both / and \ are
// accepted as separators, empty segments and "." are dropped, and ".."
// pops the previous segment (a no-op at the root).
func splitPath(path string) []string {
	raw := strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '\\' })
	var out []string
	for _, seg := range raw {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, seg)
		}
	}
	return out
}

// resolveAbsolute normalizes path, prepending cwd (itself already
// normalized segments) when path is not absolute.
func resolveAbsolute(cwd []string, path string) []string {
	segs := splitPath(path)
	if strings.HasPrefix(path, "/") || strings.HasPrefix(path, "\\") {
		return segs
	}
	full := make([]string, 0, len(cwd)+len(segs))
	full = append(full, cwd...)
	full = append(full, segs...)
	return normalizeSegments(full)
}

// normalizeSegments re-applies "." / ".." collapsing to an already-split
// segment list (used after concatenating cwd with a relative path).
func normalizeSegments(segs []string) []string {
	var out []string
	for _, seg := range segs {
		if seg == ".." {
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
			continue
		}
		out = append(out, seg)
	}
	return out
}

// joinPath renders segments back into an absolute POSIX-style path, with
// a trailing slash for directories.
func joinPath(segs []string, isDir bool) string {
	if len(segs) == 0 {
		return "/"
	}
	p := "/" + strings.Join(segs, "/")
	if isDir {
		p += "/"
	}
	return p
}

// equalFold compares two path segments the way container name lookups
// do: ASCII case-insensitive.
func equalFold(a, b string) bool {
	return util.ASCIILower(a) == util.ASCIILower(b)
}

// compileGlob turns a `*`/`?` search pattern into a case-insensitive
// regular expression anchored to the full name.
func compileGlob(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("(?i)^")
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}

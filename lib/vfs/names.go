package vfs

import (
	"strconv"
	"strings"

	"github.com/cartvfs/n3ds/internal/util"
)

// romfsAlias maps a partition index to the alias name RomFS-<i> is also
// reachable under; index 3, 4, 5 have no alias per spec (NCSD leaves
// those slots reserved/unknown).
var romfsAlias = map[int]string{
	0: "RomFS",
	1: "Manual",
	2: "DownloadPlay",
	6: "N3DSUpdate",
	7: "O3DSUpdate",
}

var romfsAliasToIndex = func() map[string]int {
	m := make(map[string]int, len(romfsAlias))
	for i, name := range romfsAlias {
		m[util.ASCIILower(name)] = i
	}
	return m
}()

// indexedName renders base (plus optional ext, e.g. ".bin") for partition
// index i: the bare name for index 0, "<base>-<i><ext>" otherwise.
func indexedName(base string, ext string, i int) string {
	if i == 0 {
		return base + ext
	}
	return base + "-" + strconv.Itoa(i) + ext
}

// romFSName prefers the partition-index alias when one exists and the
// container is not a DLC container (DLC containers only synthesize the
// RomFS-<i> form, per spec).
func romFSName(i int, isDLC bool) string {
	if !isDLC {
		if alias, ok := romfsAlias[i]; ok {
			return alias
		}
	}
	return indexedName("RomFS", "", i)
}

// matchIndexed reports whether name (case-insensitively) is base+ext (index
// 0) or base+"-"+digits+ext, returning the parsed index.
func matchIndexed(name, base, ext string) (int, bool) {
	lower := util.ASCIILower(name)
	base = util.ASCIILower(base)
	ext = util.ASCIILower(ext)
	if lower == base+ext {
		return 0, true
	}
	prefix := base + "-"
	if !strings.HasPrefix(lower, prefix) || !strings.HasSuffix(lower, ext) {
		return 0, false
	}
	digits := lower[len(prefix) : len(lower)-len(ext)]
	if digits == "" {
		return 0, false
	}
	idx, err := strconv.Atoi(digits)
	if err != nil || idx < 0 {
		return 0, false
	}
	return idx, true
}

// matchRomFS resolves a RomFS top-level name to a partition index: either
// one of the fixed aliases, or the indexed RomFS-<i> form.
func matchRomFS(name string) (int, bool) {
	if idx, ok := romfsAliasToIndex[util.ASCIILower(name)]; ok {
		return idx, true
	}
	return matchIndexed(name, "RomFS", "")
}

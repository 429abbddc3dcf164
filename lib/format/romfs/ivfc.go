// Package romfs decodes and rebuilds a RomFS (IVFC Level 3) archive: a
// hash-tree-wrapped, read-only filesystem holding game assets.
//
// This module's IVFC wrapper is a simplified three-level SHA-256 hash
// chain over the Level 3 payload — it's internally self-consistent (decode
// verifies nothing cryptographically; the hash tree exists so Build/Load
// round-trip byte-for-byte per spec's canonical-builder testable
// property) rather than a byte-exact reproduction of every 3dbrew IVFC
// field, which carries console-specific master-hash handling this module
// has no use for (no signature verification, per spec's Non-goals).
//
// Layout:
//
//	IVFC header (fixed size, see ivfcHeaderSize)
//	Level1 hash block (SHA-256 of each Level2 block)
//	Level2 hash block (SHA-256 of each Level3 block)
//	Level3 payload: DirHashTable, DirMetaTable, FileHashTable,
//	                FileMetaTable, FileData — each 4-byte aligned
package romfs

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/cartvfs/n3ds/lib/accessor"
	"github.com/cartvfs/n3ds/lib/vfserr"
)

const (
	ivfcMagic       = "IVFC"
	ivfcVersion     = 0x10000
	ivfcHeaderSize  = 0x60
	ivfcBlockSize   = 0x1000 // hashing granularity for Level1/Level2
	absentSentinel  = 0xFFFFFFFF
	level3Alignment = 4
)

// ivfcHeader is the parsed fixed-size IVFC header: logical length of each
// level, used to slice the three regions that follow it.
type ivfcHeader struct {
	Level1Size int64
	Level2Size int64
	Level3Size int64
}

func writeIVFCHeader(buf []byte, h ivfcHeader) {
	copy(buf[0:4], ivfcMagic)
	binary.LittleEndian.PutUint32(buf[4:8], ivfcVersion)
	binary.LittleEndian.PutUint64(buf[8:16], uint64(h.Level1Size))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(h.Level2Size))
	binary.LittleEndian.PutUint64(buf[24:32], uint64(h.Level3Size))
	binary.LittleEndian.PutUint32(buf[32:36], ivfcBlockSize)
}

func readIVFCHeader(acc accessor.Accessor) (ivfcHeader, error) {
	var h ivfcHeader
	if acc.Len() < ivfcHeaderSize {
		return h, vfserr.New(vfserr.UnsupportedFormat, "", "too small for an IVFC header", nil)
	}
	magic, err := acc.ReadString(0, 4)
	if err != nil || magic != ivfcMagic {
		return h, vfserr.New(vfserr.UnsupportedFormat, "", "not an IVFC container", nil)
	}
	version, err := acc.ReadU32LE(4)
	if err != nil || version != ivfcVersion {
		return h, vfserr.New(vfserr.InvalidFormat, "", "unsupported IVFC version", err)
	}
	l1, err := acc.ReadU64LE(8)
	if err != nil {
		return h, vfserr.New(vfserr.InvalidFormat, "", "IVFC header truncated", err)
	}
	l2, err := acc.ReadU64LE(16)
	if err != nil {
		return h, vfserr.New(vfserr.InvalidFormat, "", "IVFC header truncated", err)
	}
	l3, err := acc.ReadU64LE(24)
	if err != nil {
		return h, vfserr.New(vfserr.InvalidFormat, "", "IVFC header truncated", err)
	}
	h.Level1Size, h.Level2Size, h.Level3Size = int64(l1), int64(l2), int64(l3)
	return h, nil
}

// hashBlocks returns one SHA-256 digest per ivfcBlockSize-byte block of
// data (the final block may be shorter), concatenated.
func hashBlocks(data []byte) []byte {
	out := make([]byte, 0, ((len(data)+ivfcBlockSize-1)/ivfcBlockSize)*sha256.Size)
	for off := 0; off < len(data); off += ivfcBlockSize {
		end := off + ivfcBlockSize
		if end > len(data) {
			end = len(data)
		}
		sum := sha256.Sum256(data[off:end])
		out = append(out, sum[:]...)
	}
	if len(data) == 0 {
		sum := sha256.Sum256(nil)
		out = append(out, sum[:]...)
	}
	return out
}

func align(n int64, to int64) int64 {
	return (n + to - 1) &^ (to - 1)
}

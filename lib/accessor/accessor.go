// Package accessor implements the byte-accessor capability (spec component
// A): a bounded, sliceable random-access window over bytes, with a mutable
// variant for overlay writes. Two backings exist — an in-memory one
// (MemoryAccessor) and a file-backed one (FileAccessor) — and both satisfy
// the same interfaces, so decoders never need to know which one they hold.
package accessor

import (
	"encoding/binary"
	"io"

	"github.com/cartvfs/n3ds/lib/vfserr"
)

// Accessor is a read-only, bounded, sliceable view over bytes.
//
// Slicing never copies: a slice borrows the same backing store as its
// parent, narrowed to [off, off+n). Reads outside the window fail with
// vfserr.OutOfRange.
type Accessor interface {
	io.ReaderAt

	// Len returns the number of bytes in this window.
	Len() int64

	// Read returns a copy of n bytes starting at off within this window.
	Read(off, n int64) ([]byte, error)

	// ReadU8LE, ReadU16LE, ReadU32LE, ReadU64LE read a little-endian
	// integer of the given width starting at off.
	ReadU8LE(off int64) (uint8, error)
	ReadU16LE(off int64) (uint16, error)
	ReadU32LE(off int64) (uint32, error)
	ReadU64LE(off int64) (uint64, error)

	// ReadString reads n bytes starting at off and returns them as a
	// string verbatim (no NUL trimming — callers that want ASCII
	// trimming use util.ExtractASCII on the result).
	ReadString(off, n int64) (string, error)

	// Slice returns a narrower Accessor over [off, off+n) of this window.
	Slice(off, n int64) (Accessor, error)
}

// MutableAccessor additionally accepts writes within its window.
type MutableAccessor interface {
	Accessor
	io.WriterAt

	// Write stores data starting at off within this window.
	Write(off int64, data []byte) error

	// SliceMutable returns a narrower MutableAccessor over [off, off+n).
	SliceMutable(off, n int64) (MutableAccessor, error)
}

// checkBounds validates that [off, off+n) lies within [0, length).
func checkBounds(length, off, n int64) error {
	if off < 0 || n < 0 || off+n > length {
		return vfserr.New(vfserr.OutOfRange, "", "", nil)
	}
	return nil
}

// readLE reads width (1, 2, 4, or 8) little-endian bytes at off via a
// generic ReaderAt-backed accessor, used by both backings.
func readLE(a Accessor, off int64, width int) (uint64, error) {
	buf, err := a.Read(off, int64(width))
	if err != nil {
		return 0, err
	}
	switch width {
	case 1:
		return uint64(buf[0]), nil
	case 2:
		return uint64(binary.LittleEndian.Uint16(buf)), nil
	case 4:
		return uint64(binary.LittleEndian.Uint32(buf)), nil
	case 8:
		return binary.LittleEndian.Uint64(buf), nil
	default:
		panic("accessor: unsupported width")
	}
}

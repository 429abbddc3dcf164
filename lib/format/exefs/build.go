package exefs

import (
	"crypto/sha256"
	"io"

	"github.com/xaionaro-go/bytesextra"

	"github.com/cartvfs/n3ds/internal/util"
	"github.com/cartvfs/n3ds/lib/format/ncch"
	"github.com/cartvfs/n3ds/lib/vfserr"
)

// NamedFile is one file to pack into a rebuilt ExeFS archive.
type NamedFile struct {
	Name string
	Data []byte
}

// alignUp rounds n up to the next multiple of align (align must be a power
// of two).
func alignUp(n, align int64) int64 {
	return (n + align - 1) &^ (align - 1)
}

// BuildExeFS serializes files into a byte-exact ExeFS archive: 10
// descriptors (media-unit-aligned offsets), reserved padding, the 10 SHA-256
// hashes in reverse-descriptor order, then the packed file data.
//
// Fails with vfserr.ExeFSCapacity if there are more than MaxFiles files or
// any name exceeds 8 bytes.
func BuildExeFS(files []NamedFile) ([]byte, error) {
	if len(files) > MaxFiles {
		return nil, vfserr.New(vfserr.ExeFSCapacity, "", "more than 10 files", nil)
	}
	for _, f := range files {
		if len(f.Name) > nameSize {
			return nil, vfserr.New(vfserr.ExeFSCapacity, f.Name, "name exceeds 8 bytes", nil)
		}
	}

	type placed struct {
		NamedFile
		offset int64
		hash   [hashSize]byte
	}
	entries := make([]placed, len(files))
	cursor := int64(0)
	for i, f := range files {
		entries[i] = placed{
			NamedFile: f,
			offset:    cursor,
			hash:      sha256.Sum256(f.Data),
		}
		cursor += alignUp(int64(len(f.Data)), ncch.MediaUnitSize)
	}
	dataLen := cursor

	out := make([]byte, HeaderSize+dataLen)
	// bytesextra presents out as an io.ReadWriteSeeker so the header's
	// descriptor table and reverse-order hash table — written in two
	// different orders — can both Seek+Write into the same preallocated
	// buffer instead of tracking a second cursor by hand.
	w := bytesextra.NewReadWriteSeeker(out)

	for i, e := range entries {
		if _, err := w.Seek(int64(i*descriptorSize), io.SeekStart); err != nil {
			return nil, err
		}
		if _, err := w.Write(util.PadRightZero(e.Name, nameSize)); err != nil {
			return nil, err
		}
		if err := writeU32LE(w, uint32(e.offset)); err != nil {
			return nil, err
		}
		if err := writeU32LE(w, uint32(len(e.Data))); err != nil {
			return nil, err
		}

		hashSlot := MaxFiles - 1 - i
		if _, err := w.Seek(int64(hashTableOff+hashSlot*hashSize), io.SeekStart); err != nil {
			return nil, err
		}
		if _, err := w.Write(e.hash[:]); err != nil {
			return nil, err
		}

		if _, err := w.Seek(int64(HeaderSize)+e.offset, io.SeekStart); err != nil {
			return nil, err
		}
		if _, err := w.Write(e.Data); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func writeU32LE(w io.Writer, v uint32) error {
	_, err := w.Write([]byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)})
	return err
}

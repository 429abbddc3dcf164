// Package exefs decodes and rebuilds an ExeFS archive: a fixed-capacity
// table of up to 10 executable-related files with SHA-256 integrity
// hashes, embedded inside an NCCH partition.
//
// Header layout (0x200 bytes):
//
//	0x000  0xA0  10 file descriptors: name[8], offset u32 LE, size u32 LE
//	0x0A0  0x20  reserved
//	0x0C0  0x140 10 SHA-256 hashes (32 bytes each), in REVERSE descriptor
//	             order: the hash for descriptor i lives at slot (9-i)
//	0x200  ...   file data, each file at 0x200+offset, length size
package exefs

import (
	"crypto/sha256"

	"github.com/hashicorp/go-multierror"

	"github.com/cartvfs/n3ds/internal/util"
	"github.com/cartvfs/n3ds/lib/accessor"
	"github.com/cartvfs/n3ds/lib/vfserr"
)

const (
	HeaderSize     = 0x200
	MaxFiles       = 10
	descriptorSize = 16
	nameSize       = 8
	descriptorsEnd = MaxFiles * descriptorSize // 0xA0
	reservedSize   = 0x20
	hashTableOff   = descriptorsEnd + reservedSize // 0xC0
	hashSize       = sha256.Size                   // 0x20
	dataBase       = HeaderSize
)

// Entry is one decoded ExeFS file descriptor.
type Entry struct {
	Name string
	Hash [hashSize]byte
	Data accessor.Accessor
}

// ExeFS is a fully decoded ExeFS archive: an ordered, case-insensitively
// looked-up list of entries.
type ExeFS struct {
	Header  accessor.Accessor
	Entries []Entry
}

// Probe reports whether acc could hold an ExeFS archive: it just checks
// there's room for the fixed header, since ExeFS (unlike NCSD/NCCH) has no
// magic number of its own. The unified opener only reaches this probe
// after NCSD/CIA/NCCH/RomFS have all failed.
func Probe(acc accessor.Accessor) bool {
	return acc.Len() >= HeaderSize
}

// Load parses acc (expected to start at the ExeFS header) into an ExeFS.
// Zero-length-name descriptor slots are ignored, per spec.
func Load(acc accessor.Accessor) (*ExeFS, error) {
	if !Probe(acc) {
		return nil, vfserr.New(vfserr.UnsupportedFormat, "", "too small for an ExeFS header", nil)
	}
	header, err := acc.Slice(0, HeaderSize)
	if err != nil {
		return nil, vfserr.New(vfserr.InvalidFormat, "", "ExeFS header truncated", err)
	}

	var errs *multierror.Error
	var entries []Entry
	for i := 0; i < MaxFiles; i++ {
		descOff := int64(i * descriptorSize)
		nameRaw, err := header.Read(descOff, nameSize)
		if err != nil {
			errs = multierror.Append(errs, vfserr.New(vfserr.InvalidFormat, "", "descriptor truncated", err))
			continue
		}
		name := util.ExtractASCII(nameRaw)
		if name == "" {
			continue
		}
		offset, _ := header.ReadU32LE(descOff + nameSize)
		size, _ := header.ReadU32LE(descOff + nameSize + 4)

		data, err := acc.Slice(dataBase+int64(offset), int64(size))
		if err != nil {
			errs = multierror.Append(errs, vfserr.New(vfserr.InvalidFormat, name, "file data out of range", err))
			continue
		}

		hashSlot := MaxFiles - 1 - i
		hashRaw, err := header.Read(int64(hashTableOff+hashSlot*hashSize), hashSize)
		if err != nil {
			errs = multierror.Append(errs, vfserr.New(vfserr.InvalidFormat, name, "hash table truncated", err))
			continue
		}

		var h [hashSize]byte
		copy(h[:], hashRaw)
		entries = append(entries, Entry{Name: name, Hash: h, Data: data})
	}

	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return &ExeFS{Header: header, Entries: entries}, nil
}

// Find looks up name case-insensitively among e's entries.
func (e *ExeFS) Find(name string) (Entry, bool) {
	target := util.ASCIILower(name)
	for _, entry := range e.Entries {
		if util.ASCIILower(entry.Name) == target {
			return entry, true
		}
	}
	return Entry{}, false
}

package romfs

import (
	"golang.org/x/text/encoding/unicode"
)

// utf16LECodec is the shared UTF-16LE codec used for RomFS directory/file
// names: golang.org/x/text replaces a hand-rolled UTF-16 packer, and
// operating on []uint16 code units (not Go runes) matches spec's
// requirement that name comparisons fold ASCII only and compare non-ASCII
// by exact code unit.
var utf16LECodec = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// encodeUTF16 converts a Go (UTF-8) string to UTF-16LE bytes.
func encodeUTF16(s string) []byte {
	b, err := utf16LECodec.NewEncoder().Bytes([]byte(s))
	if err != nil {
		// Every Go string is valid UTF-8; the encoder only fails on
		// inputs it can't represent, which doesn't apply to UTF-16LE.
		panic("romfs: invalid UTF-16 encode: " + err.Error())
	}
	return b
}

// decodeUTF16 converts UTF-16LE bytes back to a Go (UTF-8) string.
func decodeUTF16(b []byte) (string, error) {
	out, err := utf16LECodec.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// utf16Units returns the UTF-16 code units of s, for case-sensitive,
// locale-independent sibling ordering and for the name hash function.
func utf16Units(s string) []uint16 {
	raw := encodeUTF16(s)
	units := make([]uint16, len(raw)/2)
	for i := range units {
		units[i] = uint16(raw[2*i]) | uint16(raw[2*i+1])<<8
	}
	return units
}

// compareUTF16 orders a and b by UTF-16 code unit, case-sensitively.
func compareUTF16(a, b string) int {
	au, bu := utf16Units(a), utf16Units(b)
	for i := 0; i < len(au) && i < len(bu); i++ {
		if au[i] != bu[i] {
			if au[i] < bu[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(au) < len(bu):
		return -1
	case len(au) > len(bu):
		return 1
	default:
		return 0
	}
}

// nameHash implements the RomFS directory/file name hash: starting from
// the parent directory's metadata-table offset (its "id"), fold in each
// UTF-16 code unit of name.
func nameHash(parentID uint32, name string) uint32 {
	hash := parentID
	for _, c := range utf16Units(name) {
		hash = (hash>>5 | hash<<27) ^ uint32(c)
	}
	return hash
}

// isPrime reports whether n is prime, trial division (bucket counts here
// are always small — at most a few thousand).
func isPrime(n uint32) bool {
	if n < 2 {
		return false
	}
	if n%2 == 0 {
		return n == 2
	}
	for d := uint32(3); d*d <= n; d += 2 {
		if n%d == 0 {
			return false
		}
	}
	return true
}

// largestPrimeLE returns the largest prime <= limit (limit >= 2).
func largestPrimeLE(limit uint32) uint32 {
	for n := limit; n >= 2; n-- {
		if isPrime(n) {
			return n
		}
	}
	return 2
}

// bucketCount implements spec's "largest prime <= max(3, count/2)".
func bucketCount(entryCount int) uint32 {
	limit := uint32(entryCount / 2)
	if limit < 3 {
		limit = 3
	}
	return largestPrimeLE(limit)
}

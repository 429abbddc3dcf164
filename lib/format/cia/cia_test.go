package cia

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartvfs/n3ds/lib/accessor"
)

func testAlign64(off int) int {
	return int((int64(off) + 0x40 - 1) &^ (0x40 - 1))
}

// buildMinimalNCCH builds a bare NCCH partition header with no sub-regions,
// just enough for ncch.Load to accept it as a content chunk.
func buildMinimalNCCH(t *testing.T) []byte {
	t.Helper()
	header := make([]byte, 0x200)
	copy(header[0x100:0x104], "NCCH")
	return header
}

// buildCIA hand-assembles a minimal CIA archive: a 0x20-byte archive header,
// an empty cert chain and ticket, a single-signature-type TMD with one
// content chunk, and that chunk's NCCH bytes — each section aligned to a
// 0x40 boundary per cia.go's align64.
func buildCIA(t *testing.T) []byte {
	t.Helper()

	const (
		headerSize    = 0x20
		certChainSize = 0
		ticketSize    = 0
		sigType       = uint32(0x10004) // RSA_2048 SHA256
	)
	sigBlock := 0x100 + 0x3C
	tmdBodyOff := 4 + sigBlock

	ncchBytes := buildMinimalNCCH(t)

	const (
		bodyTitleIDOff      = 0x4C
		bodyContentCountOff = 0x9E
		bodyContentChunkOff = 0x9C4
		chunkEntrySize      = 0x30
	)
	tmdBodyLen := bodyContentChunkOff + 1*chunkEntrySize
	tmdSize := tmdBodyOff + tmdBodyLen

	tmd := make([]byte, tmdSize)
	binary.BigEndian.PutUint32(tmd[0:], sigType)
	binary.BigEndian.PutUint64(tmd[tmdBodyOff+bodyTitleIDOff:], 0x0004000000123456)
	binary.BigEndian.PutUint16(tmd[tmdBodyOff+bodyContentCountOff:], 1)
	binary.BigEndian.PutUint64(tmd[tmdBodyOff+bodyContentChunkOff+0x08:], uint64(len(ncchBytes)))

	certChainOffset := testAlign64(headerSize)
	ticketOffset := testAlign64(certChainOffset + certChainSize)
	tmdOffset := testAlign64(ticketOffset + ticketSize)
	contentOffset := testAlign64(tmdOffset + len(tmd))

	out := make([]byte, contentOffset+len(ncchBytes))
	binary.LittleEndian.PutUint32(out[0x00:], headerSize)
	binary.LittleEndian.PutUint32(out[0x08:], certChainSize)
	binary.LittleEndian.PutUint32(out[0x0C:], ticketSize)
	binary.LittleEndian.PutUint32(out[0x10:], uint32(len(tmd)))
	binary.LittleEndian.PutUint32(out[0x14:], 0)
	binary.LittleEndian.PutUint64(out[0x18:], uint64(len(ncchBytes)))

	copy(out[tmdOffset:], tmd)
	copy(out[contentOffset:], ncchBytes)

	return out
}

func TestProbe_AcceptsWellFormedArchive(t *testing.T) {
	image := buildCIA(t)
	assert.True(t, Probe(accessor.NewMemory(image)))
}

func TestProbe_RejectsTruncated(t *testing.T) {
	assert.False(t, Probe(accessor.NewMemory(make([]byte, 4))))
}

func TestLoad_DecodesTitleIDAndContent(t *testing.T) {
	image := buildCIA(t)
	archive, err := Load(accessor.NewMemory(image))
	require.NoError(t, err)

	assert.Equal(t, uint64(0x0004000000123456), archive.TitleID)
	require.Len(t, archive.Contents, 1)
}

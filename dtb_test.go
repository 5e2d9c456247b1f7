package abootimg

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pattern(n int, seed byte) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = seed + byte(i)
	}
	return data
}

// writeDtbFiles lays out a <prefix>.dtbh plus blob file set in a temp
// dir and returns the prefix.
func writeDtbFiles(t *testing.T, blobs [][]byte) string {
	t.Helper()
	prefix := filepath.Join(t.TempDir(), "platform")

	table := &DtbTable{
		Magic:   DtbMagic,
		Version: 2,
		Entries: make([]DtbEntry, len(blobs)),
	}
	for i := range table.Entries {
		table.Entries[i] = DtbEntry{
			ChipID:     0x1cfc,
			PlatformID: 0x50a6,
			SubtypeID:  0x217584da,
			HwRev:      uint32(i),
			HwRevEnd:   uint32(i),
			// stale values, renumbered on load
			Offset:  0xffffffff,
			DtbSize: 0xffffffff,
		}
	}

	require.NoError(t, os.WriteFile(prefix+".dtbh", table.encode(), 0644))
	for i, blob := range blobs {
		name := fmt.Sprintf("%s.dtb_p%d", prefix, i)
		require.NoError(t, os.WriteFile(name, blob, 0644))
	}

	return prefix
}

func TestLoadDtbFilesRenumbers(t *testing.T) {
	prefix := writeDtbFiles(t, [][]byte{pattern(100, 1), pattern(5000, 2)})

	table, size, err := LoadDtbFiles(prefix, 2048)
	require.NoError(t, err)
	require.Len(t, table.Entries, 2)
	assert.True(t, table.Synthesized())

	// blob 0 begins one page past the table header
	assert.Equal(t, uint32(2048), table.Entries[0].Offset)
	assert.Equal(t, uint32(100), table.Entries[0].DtbSize)

	// blob 1 begins at the cumulative page-rounded offset
	assert.Equal(t, uint32(4096), table.Entries[1].Offset)
	assert.Equal(t, uint32(5000), table.Entries[1].DtbSize)

	// one table page + 1 + 3 blob pages
	assert.Equal(t, uint32(5*2048), size)

	// identity fields carried over from the table file
	assert.Equal(t, uint32(0x1cfc), table.Entries[0].ChipID)
	assert.Equal(t, uint32(1), table.Entries[1].HwRev)
}

func TestLoadDtbFilesMissingBlob(t *testing.T) {
	prefix := writeDtbFiles(t, [][]byte{pattern(100, 1), pattern(200, 2)})
	require.NoError(t, os.Remove(prefix+".dtb_p1"))

	_, _, err := LoadDtbFiles(prefix, 2048)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrMissingFile))
}

func TestLoadDtbFilesMissingTable(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "nope")

	_, _, err := LoadDtbFiles(prefix, 2048)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrMissingFile))
}

func TestLoadDtbFilesTableLargerThanPage(t *testing.T) {
	prefix := writeDtbFiles(t, [][]byte{
		pattern(10, 1), pattern(10, 2), pattern(10, 3), pattern(10, 4),
	})

	// 12 + 4*30 = 132 bytes of table cannot fit a 128 byte page
	_, _, err := LoadDtbFiles(prefix, 128)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrSizeMismatch))
}

func TestDecodeDtbTableTruncated(t *testing.T) {
	table := &DtbTable{Magic: DtbMagic, Version: 2, Entries: make([]DtbEntry, 9)}
	data := table.encode()[:dtbTableHeaderSize]

	_, err := DecodeDtbTable(data)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrTruncatedTable))

	_, err = DecodeDtbTable(data[:4])
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrTruncatedTable))
}

func TestDecodeDtbTableBlobOutOfRange(t *testing.T) {
	table := &DtbTable{
		Magic:   DtbMagic,
		Version: 2,
		Entries: []DtbEntry{{Offset: 2048, DtbSize: 5000}},
	}

	// segment holds the table page plus one page, not the 5000 bytes
	// the entry claims
	data := make([]byte, 4096)
	copy(data, table.encode())

	_, err := DecodeDtbTable(data)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrTruncatedTable))
}

func TestDtbSegmentRoundTrip(t *testing.T) {
	prefix := writeDtbFiles(t, [][]byte{pattern(100, 7), pattern(5000, 9)})

	table, size, err := LoadDtbFiles(prefix, 2048)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, table.writeTo(&buf, 2048))
	require.Equal(t, int(size), buf.Len())

	dec, err := DecodeDtbTable(buf.Bytes())
	require.NoError(t, err)
	assert.False(t, dec.Synthesized())

	assert.Equal(t, table.Entries, dec.Entries)
	assert.Equal(t, table.Blobs, dec.Blobs)

	// each blob is padded to its own page boundary
	assert.Equal(t, pattern(100, 7), buf.Bytes()[2048:2148])
	assert.Equal(t, make([]byte, 2048-100), buf.Bytes()[2148:4096])
	assert.Equal(t, pattern(5000, 9), buf.Bytes()[4096:9096])
}

func TestDtbTableExactPageBlobNoExtraPadding(t *testing.T) {
	prefix := writeDtbFiles(t, [][]byte{pattern(2048, 3), pattern(64, 4)})

	table, size, err := LoadDtbFiles(prefix, 2048)
	require.NoError(t, err)

	// a page-aligned blob consumes exactly its own pages
	assert.Equal(t, uint32(2048), table.Entries[0].Offset)
	assert.Equal(t, uint32(4096), table.Entries[1].Offset)
	assert.Equal(t, uint32(3*2048), size)

	var buf bytes.Buffer
	require.NoError(t, table.writeTo(&buf, 2048))
	assert.Equal(t, int(size), buf.Len())
}

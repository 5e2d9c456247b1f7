package abootimg

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// DTBH table format constants
const (
	// DtbMagic is the DTBH table header magic ("DTBH" little-endian).
	DtbMagic = 0x48425444

	dtbTableHeaderSize = 12
	dtbEntrySize       = 30
)

// DtbEntry describes one device tree blob within the dtbs segment.
type DtbEntry struct {
	ChipID     uint32
	PlatformID uint32
	SubtypeID  uint32
	HwRev      uint32
	HwRevEnd   uint32

	// Offset is the blob's byte offset relative to the start of the
	// dtbs segment, in page-aligned units when synthesized.
	Offset uint32
	// DtbSize is the blob's exact byte length, not page-rounded.
	DtbSize uint32

	Reserved [2]byte
}

// DtbTable is the DTBH table plus the blobs it describes.
//
// A table is either decoded, with entry offsets as recorded on disk,
// or synthesized, with offsets freshly computed from the attached
// blobs. The two provenances are never mixed in one table.
type DtbTable struct {
	Magic   uint32
	Version uint32
	Entries []DtbEntry
	Blobs   [][]byte

	synthesized bool
}

// Synthesized reports whether the entry offsets were freshly computed
// rather than read from an existing container.
func (t *DtbTable) Synthesized() bool {
	return t.synthesized
}

// TableSize returns the encoded size of the table header plus its
// entry array.
func (t *DtbTable) TableSize() int {
	return dtbTableHeaderSize + dtbEntrySize*len(t.Entries)
}

// SegmentSize returns the full page-rounded size of the dtbs segment:
// one page for the table, then each blob rounded up to pages.
func (t *DtbTable) SegmentSize(pageSize uint32) uint32 {
	pages := uint32(1)
	for _, blob := range t.Blobs {
		pages += (uint32(len(blob)) + pageSize - 1) / pageSize
	}

	return pages * pageSize
}

// decodeDtbEntries parses the table header and entry array from the
// start of data.
func decodeDtbEntries(data []byte) (*DtbTable, error) {
	if len(data) < dtbTableHeaderSize {
		return nil, eKind(ErrTruncatedTable, "cannot read DTBH table header")
	}

	var hdr struct {
		Magic      uint32
		Version    uint32
		NumEntries uint32
	}
	binary.Read(bytes.NewReader(data), binary.LittleEndian, &hdr)

	need := dtbTableHeaderSize + dtbEntrySize*int(hdr.NumEntries)
	if need > len(data) {
		return nil, eKind(ErrTruncatedTable,
			fmt.Sprintf("DTBH table needs %d bytes, %d available", need, len(data)))
	}

	table := &DtbTable{
		Magic:   hdr.Magic,
		Version: hdr.Version,
		Entries: make([]DtbEntry, hdr.NumEntries),
	}

	r := bytes.NewReader(data[dtbTableHeaderSize:need])
	err := binary.Read(r, binary.LittleEndian, table.Entries)
	if err != nil {
		return nil, eMsg(err, "decoding DTBH entries")
	}

	return table, nil
}

// DecodeDtbTable parses a complete dtbs segment: the table followed by
// the blobs it references, sliced out at their recorded offsets. The
// resulting table keeps those offsets verbatim.
func DecodeDtbTable(data []byte) (*DtbTable, error) {
	table, err := decodeDtbEntries(data)
	if err != nil {
		return nil, err
	}

	table.Blobs = make([][]byte, len(table.Entries))
	for i, entry := range table.Entries {
		end := int64(entry.Offset) + int64(entry.DtbSize)
		if end > int64(len(data)) {
			return nil, eKind(ErrTruncatedTable,
				fmt.Sprintf("dtb %d ends at %d, %d bytes available", i, end, len(data)))
		}

		blob := make([]byte, entry.DtbSize)
		copy(blob, data[entry.Offset:end])
		table.Blobs[i] = blob
	}

	return table, nil
}

// LoadDtbFiles synthesizes a table from a file set: <prefix>.dtbh
// holds the table, <prefix>.dtb_p<i> one blob per declared entry.
// Entry offsets are renumbered to the cumulative page-rounded position
// of each blob, with the first blob one page past the table itself.
// Returns the table and the total page-rounded dtbs segment size.
func LoadDtbFiles(prefix string, pageSize uint32) (*DtbTable, uint32, error) {
	name := prefix + ".dtbh"
	logrus.Infof(".. DTBH from %s", name)

	data, err := os.ReadFile(name)
	if err != nil {
		return nil, 0, eKind(ErrMissingFile, name+": "+err.Error())
	}

	table, err := decodeDtbEntries(data)
	if err != nil {
		return nil, 0, err
	}

	// The table occupies page 0 of the segment, so it must fit there.
	if table.TableSize() > int(pageSize) {
		return nil, 0, eKind(ErrSizeMismatch,
			fmt.Sprintf("DTBH table is %d bytes, larger than one %d byte page",
				table.TableSize(), pageSize))
	}

	table.Blobs = make([][]byte, len(table.Entries))
	table.synthesized = true

	pages := uint32(1)
	for i := range table.Entries {
		name := fmt.Sprintf("%s.dtb_p%d", prefix, i)

		blob, err := os.ReadFile(name)
		if err != nil {
			return nil, 0, eKind(ErrMissingFile, name+": "+err.Error())
		}

		table.Blobs[i] = blob
		table.Entries[i].Offset = pages * pageSize
		table.Entries[i].DtbSize = uint32(len(blob))

		logrus.Infof(" .. dtb %s offset 0x%08x, size 0x%08x",
			name, table.Entries[i].Offset, table.Entries[i].DtbSize)

		pages += (uint32(len(blob)) + pageSize - 1) / pageSize
	}

	return table, pages * pageSize, nil
}

// ReadDtbs loads and decodes the dtbs segment from the container the
// image was unpacked from.
func (img *Image) ReadDtbs(fin io.ReadSeeker) (*DtbTable, error) {
	if img.Header.DtbsSize == 0 {
		return nil, eKind(ErrTruncatedTable, "image has no dtbs segment")
	}

	data, err := readChunk(fin, img.Header.DtbsOffset(), img.Header.DtbsSize, "dtbs")
	if err != nil {
		return nil, err
	}

	return DecodeDtbTable(data)
}

// encode serializes the table header and entry array.
func (t *DtbTable) encode() []byte {
	buf := bytes.NewBuffer(make([]byte, 0, t.TableSize()))
	binary.Write(buf, binary.LittleEndian, t.Magic)
	binary.Write(buf, binary.LittleEndian, t.Version)
	binary.Write(buf, binary.LittleEndian, uint32(len(t.Entries)))
	binary.Write(buf, binary.LittleEndian, t.Entries)
	return buf.Bytes()
}

// writeTo writes the dtbs segment: the table padded to its own page,
// then each blob in entry order, each individually padded to the next
// page boundary.
func (t *DtbTable) writeTo(out io.Writer, pageSize uint32) error {
	enc := t.encode()
	_, err := out.Write(enc)
	if err != nil {
		return eMsg(err, "writing DTBH table")
	}

	err = writePadding(out, len(enc), pageSize)
	if err != nil {
		return eMsg(err, "padding DTBH table")
	}

	for i, blob := range t.Blobs {
		_, err = out.Write(blob)
		if err != nil {
			return eMsg(err, fmt.Sprintf("writing dtb %d", i))
		}

		err = writePadding(out, len(blob), pageSize)
		if err != nil {
			return eMsg(err, fmt.Sprintf("padding dtb %d", i))
		}
	}

	return nil
}

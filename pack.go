package abootimg

import (
	"bytes"
	"encoding/binary"
	"io"
)

// padSize calculates the padding needed to reach the next page
// boundary. A size already on a boundary needs none.
func padSize(dataSize int, pageSize uint32) int {
	rem := dataSize % int(pageSize)
	if rem == 0 {
		return 0
	}

	return int(pageSize) - rem
}

// writePadding writes zero padding up to the next page boundary.
func writePadding(out io.Writer, dataSize int, pageSize uint32) (err error) {
	size := padSize(dataSize, pageSize)
	if size == 0 {
		return
	}

	_, err = out.Write(make([]byte, size))
	return
}

// writePaddedSection writes data to the output, then pads it to the
// page size.
func (img *Image) writePaddedSection(out io.Writer, data []byte) (err error) {
	count, err := out.Write(data)
	if err != nil {
		return
	}

	err = writePadding(out, count, img.Header.PageSize)
	return
}

// encodeHeader encodes the header into its fixed on-disk layout.
func encodeHeader(hdr *Header) []byte {
	buf := bytes.NewBuffer(make([]byte, 0, HeaderSize))
	binary.Write(buf, binary.LittleEndian, hdr)
	return buf.Bytes()
}

// WriteHeader writes the header page: the encoded header followed by
// zero padding to the page size.
func (img *Image) WriteHeader(out io.Writer) (err error) {
	count, err := out.Write(encodeHeader(&img.Header))
	if err != nil {
		return eMsg(err, "writing image header")
	}

	err = writePadding(out, count, img.Header.PageSize)
	if err != nil {
		return eMsg(err, "padding image header")
	}

	return
}

// WriteData writes every materialized segment at its page-aligned
// offset, each zero-padded to the next page boundary. Offsets are
// recomputed from the current header sizes. Segments not held in
// memory are skipped, leaving their container region untouched; the
// signature page is always written.
func (img *Image) WriteData(out io.WriteSeeker) (err error) {
	h := &img.Header

	if img.Kernel != nil {
		err = img.writeSegmentAt(out, h.KernelOffset(), img.Kernel, "kernel")
		if err != nil {
			return
		}
	}

	if img.Ramdisk != nil {
		err = img.writeSegmentAt(out, h.RamdiskOffset(), img.Ramdisk, "ramdisk")
		if err != nil {
			return
		}
	}

	if img.Second != nil {
		err = img.writeSegmentAt(out, h.SecondOffset(), img.Second, "second stage")
		if err != nil {
			return
		}
	}

	if img.Dtbs != nil {
		_, err = out.Seek(int64(h.DtbsOffset()), io.SeekStart)
		if err != nil {
			return eMsg(err, "seeking to write dtbs")
		}

		err = img.Dtbs.writeTo(out, h.PageSize)
		if err != nil {
			return
		}
	}

	err = img.writeSegmentAt(out, h.SignatureOffset(), img.Signature[:], "signature")
	return
}

// writeSegmentAt seeks to offset and writes one padded segment.
func (img *Image) writeSegmentAt(out io.WriteSeeker, offset uint32, data []byte, what string) error {
	_, err := out.Seek(int64(offset), io.SeekStart)
	if err != nil {
		return eMsg(err, "seeking to write "+what)
	}

	err = img.writePaddedSection(out, data)
	if err != nil {
		return eMsg(err, "writing "+what)
	}

	return nil
}

// WriteImage writes the header page and all materialized segments.
func (img *Image) WriteImage(out io.WriteSeeker) (err error) {
	_, err = out.Seek(0, io.SeekStart)
	if err != nil {
		return eMsg(err, "seeking to write header")
	}

	err = img.WriteHeader(out)
	if err != nil {
		return
	}

	err = img.WriteData(out)
	return
}

// DumpBytes dumps the image into a byte slice.
func (img *Image) DumpBytes() ([]byte, error) {
	buf := &seekBuffer{buf: make([]byte, 0, img.Header.TotalSize())}

	err := img.WriteImage(buf)
	if err != nil {
		return nil, err
	}

	return buf.buf, nil
}

// seekBuffer is an in-memory WriteSeeker backing DumpBytes, growing
// as needed and zero-filling seek gaps.
type seekBuffer struct {
	buf []byte
	pos int
}

func (b *seekBuffer) Write(p []byte) (n int, err error) {
	if end := b.pos + len(p); end > len(b.buf) {
		b.buf = append(b.buf, make([]byte, end-len(b.buf))...)
	}

	n = copy(b.buf[b.pos:], p)
	b.pos += n
	return
}

func (b *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		b.pos = int(offset)
	case io.SeekCurrent:
		b.pos += int(offset)
	case io.SeekEnd:
		b.pos = len(b.buf) + int(offset)
	}

	if b.pos > len(b.buf) {
		b.buf = append(b.buf, make([]byte, b.pos-len(b.buf))...)
	}

	return int64(b.pos), nil
}

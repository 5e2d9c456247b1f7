package abootimg

import (
	"bytes"
	"encoding/binary"
	"io"
)

// decodeHeader decodes the fixed-size header from the start of data.
func decodeHeader(data []byte) (Header, error) {
	var hdr Header
	if len(data) < HeaderSize {
		return hdr, eKind(ErrMalformedHeader, "cannot read image header")
	}

	err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &hdr)
	if err != nil {
		return hdr, eMsg(err, "decoding image header")
	}

	return hdr, nil
}

// UnpackImage reads the header page of a container and validates it.
// size is the total container size; isBlockDev marks containers whose
// size is fixed by the underlying device. Segment payloads are not
// loaded; they are read on demand at their page-aligned offsets.
func UnpackImage(fin io.ReadSeeker, size uint32, isBlockDev bool) (*Image, error) {
	_, err := fin.Seek(0, io.SeekStart)
	if err != nil {
		return nil, eMsg(err, "seeking to read header")
	}

	buf := make([]byte, HeaderSize)
	_, err = io.ReadFull(fin, buf)
	if err != nil {
		return nil, eMsg(err, "reading header from input")
	}

	hdr, err := decodeHeader(buf)
	if err != nil {
		return nil, err
	}

	img := &Image{
		Header:     hdr,
		Size:       size,
		IsBlockDev: isBlockDev,
	}

	err = img.Validate()
	if err != nil {
		return nil, err
	}

	return img, nil
}

// UnpackImageBytes unpacks an image from the given byte slice.
func UnpackImageBytes(data []byte) (*Image, error) {
	return UnpackImage(bytes.NewReader(data), uint32(len(data)), false)
}

// readChunk reads length bytes at offset from the container.
func readChunk(fin io.ReadSeeker, offset, length uint32, what string) ([]byte, error) {
	_, err := fin.Seek(int64(offset), io.SeekStart)
	if err != nil {
		return nil, eMsg(err, "seeking to "+what)
	}

	buf := make([]byte, length)
	_, err = io.ReadFull(fin, buf)
	if err != nil {
		return nil, eMsg(err, "reading "+what+" from image")
	}

	return buf, nil
}

// ReadSignature loads the signature page content from the container
// into the image. Containers too small to carry a signature page keep
// the zero signature.
func (img *Image) ReadSignature(fin io.ReadSeeker) error {
	off := img.Header.SignatureOffset()
	if off+SignatureSize > img.Size {
		return nil
	}

	buf, err := readChunk(fin, off, SignatureSize, "signature")
	if err != nil {
		return err
	}

	copy(img.Signature[:], buf)
	return nil
}

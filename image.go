// Package abootimg manipulates Android boot images: the page-aligned
// container bundling a kernel, a ramdisk, an optional second stage
// bootloader, an optional DTBH device tree table and a trailing
// signature page.
package abootimg

import (
	"bytes"
	"fmt"
)

// Boot image format constants
const (
	BootMagic     = "ANDROID!"
	BootMagicSize = 8
	BootNameSize  = 16
	BootArgsSize  = 512

	// HeaderSize is the encoded size of Header on disk.
	HeaderSize = BootMagicSize + 10*4 + BootNameSize + BootArgsSize + 8*4

	// SignatureSize is the meaningful byte count of the signature
	// segment; the segment itself occupies one full page.
	SignatureSize = 255

	// DefaultPageSize is used when creating an image from scratch.
	DefaultPageSize = 2048
)

// BootMagicBytes is the image header magic number, in byte array form
var BootMagicBytes = [...]byte{'A', 'N', 'D', 'R', 'O', 'I', 'D', '!'}

// SignatureMagic is the fixed marker written into the signature page.
// It is an opaque constant, not a computed signature.
const SignatureMagic = "SEANDROIDENFORCE"

// Header directly correlates to the Android boot image header.
// All numeric fields are little-endian 32-bit words on disk.
type Header struct {
	// Android header magic
	Magic [BootMagicSize]byte

	// Size of the kernel in bytes
	KernelSize uint32
	// Kernel physical load address
	KernelAddr uint32

	// Size of the ramdisk in bytes
	RamdiskSize uint32
	// Ramdisk physical load address
	RamdiskAddr uint32

	// Size of the second stage bootloader in bytes
	SecondSize uint32
	// Second stage bootloader physical load address
	SecondAddr uint32

	// Kernel tags physical load address
	TagsAddr uint32
	// Flash page size
	PageSize uint32

	// Size of the DTBH table segment in bytes
	DtbsSize uint32

	// Future expansion, should be 0
	Unused uint32

	// Product/board name, NUL padded
	Name [BootNameSize]byte
	// Kernel command line, NUL padded
	Cmdline [BootArgsSize]byte

	// Timestamp/checksum/sha1/...
	ID [8]uint32
}

// Image represents the contents of a boot image.
//
// Segment slices are owned by the Image. A nil slice means the segment
// is not materialized in memory for this pass; the writer leaves its
// region of the container untouched.
type Image struct {
	Header Header

	// Size is the total container size in bytes. Zero until an
	// existing container has been read or a fresh layout computed.
	Size uint32
	// IsBlockDev marks containers whose size is fixed by the device.
	IsBlockDev bool

	Kernel  []byte
	Ramdisk []byte
	Second  []byte
	Dtbs    *DtbTable

	Signature [SignatureSize]byte
}

// NewImage returns an empty image with the magic and a default page
// size set, ready for create.
func NewImage() *Image {
	img := &Image{}
	img.Header.Magic = BootMagicBytes
	img.Header.PageSize = DefaultPageSize
	return img
}

// cstr trims a NUL padded byte array down to its text.
func cstr(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}

// pages returns the page count covering size bytes.
func (h *Header) pages(size uint32) uint32 {
	return (size + h.PageSize - 1) / h.PageSize
}

// KernelOffset returns the byte offset of the kernel segment.
// The kernel always starts right after the header page.
func (h *Header) KernelOffset() uint32 {
	return h.PageSize
}

// RamdiskOffset returns the byte offset of the ramdisk segment.
func (h *Header) RamdiskOffset() uint32 {
	return (1 + h.pages(h.KernelSize)) * h.PageSize
}

// SecondOffset returns the byte offset of the second stage segment.
func (h *Header) SecondOffset() uint32 {
	return (1 + h.pages(h.KernelSize) + h.pages(h.RamdiskSize)) * h.PageSize
}

// DtbsOffset returns the byte offset of the DTBH table segment.
func (h *Header) DtbsOffset() uint32 {
	return (1 + h.pages(h.KernelSize) + h.pages(h.RamdiskSize) + h.pages(h.SecondSize)) * h.PageSize
}

// SignatureOffset returns the byte offset of the signature page.
func (h *Header) SignatureOffset() uint32 {
	return (1 + h.pages(h.KernelSize) + h.pages(h.RamdiskSize) + h.pages(h.SecondSize) + h.pages(h.DtbsSize)) * h.PageSize
}

// TotalSize returns the full container size implied by the current
// header: one header page, the four data segments rounded up to pages,
// and one signature page.
func (h *Header) TotalSize() uint32 {
	n := h.pages(h.KernelSize)
	m := h.pages(h.RamdiskSize)
	o := h.pages(h.SecondSize)
	p := h.pages(h.DtbsSize)
	return (1 + n + m + o + p + 1) * h.PageSize
}

// Validate checks the invariants a container must hold to be considered
// a bootable Android image: magic present, nonzero kernel, ramdisk and
// page sizes, and the segments fitting within size. The fit check
// covers the header and data pages only; images without a signature
// page are still accepted.
func (img *Image) Validate() error {
	h := &img.Header
	if h.Magic != BootMagicBytes {
		return eKind(ErrMalformedHeader, "no Android magic value")
	}
	if h.KernelSize == 0 {
		return eKind(ErrMalformedHeader, "kernel size is null")
	}
	if h.RamdiskSize == 0 {
		return eKind(ErrMalformedHeader, "ramdisk size is null")
	}
	if h.PageSize == 0 {
		return eKind(ErrMalformedHeader, "image page size is null")
	}

	n := h.pages(h.KernelSize)
	m := h.pages(h.RamdiskSize)
	o := h.pages(h.SecondSize)
	p := h.pages(h.DtbsSize)
	total := (1 + n + m + o + p) * h.PageSize

	if total > img.Size {
		return eKind(ErrSizeMismatch,
			fmt.Sprintf("sizes mismatch: total size %d > image size %d", total, img.Size))
	}

	return nil
}

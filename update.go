package abootimg

import (
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash"
	"github.com/sirupsen/logrus"
)

// Sources names the replacement inputs for one update or create pass.
// An empty path leaves the corresponding segment alone.
type Sources struct {
	Kernel  string
	Ramdisk string
	Second  string

	// DtbPrefix names a DTB file set: <prefix>.dtbh for the table,
	// <prefix>.dtb_p<i> for each declared blob.
	DtbPrefix string
}

// loadFile reads a whole segment source file into memory.
func loadFile(path, what string) ([]byte, error) {
	logrus.Infof("reading %s from %s", what, path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eKind(ErrMissingFile, path+": "+err.Error())
	}

	return data, nil
}

// UpdateSegments decides, per segment, whether to load replacement
// bytes or to carry the original bytes over from orig at their
// original offsets, then recomputes the layout. orig is the container
// the header was read from; it is nil when creating from scratch.
//
// Copy offsets are computed from the header sizes at entry, before any
// replacement mutates them. A ramdisk is only carried over when the
// kernel was replaced; with neither kernel nor ramdisk source it stays
// unattached for this pass (as does, cascading, the second stage), and
// the writer then leaves the original container bytes in place.
func (img *Image) UpdateSegments(orig io.ReadSeeker, src Sources) error {
	hdr := &img.Header
	pageSize := hdr.PageSize
	if pageSize == 0 {
		return eKind(ErrMalformedHeader, "image page size is null")
	}

	rsize := hdr.RamdiskSize
	ssize := hdr.SecondSize
	dsize := hdr.DtbsSize

	roffset := hdr.RamdiskOffset()
	soffset := hdr.SecondOffset()
	doffset := hdr.DtbsOffset()

	if src.Kernel != "" {
		data, err := loadFile(src.Kernel, "kernel")
		if err != nil {
			return err
		}
		hdr.KernelSize = uint32(len(data))
		img.Kernel = data
	}

	if src.Ramdisk != "" {
		data, err := loadFile(src.Ramdisk, "ramdisk")
		if err != nil {
			return err
		}
		hdr.RamdiskSize = uint32(len(data))
		img.Ramdisk = data
	} else if img.Kernel != nil {
		// Kernel replaced: carry the ramdisk over from the original
		// container.
		logrus.Infof(" copy ramdisk %d bytes from 0x%08x", rsize, roffset)

		data, err := readChunk(orig, roffset, rsize, "ramdisk")
		if err != nil {
			return err
		}
		img.Ramdisk = data
	}

	if src.Second != "" {
		data, err := loadFile(src.Second, "second stage")
		if err != nil {
			return err
		}
		hdr.SecondSize = uint32(len(data))
		img.Second = data
	} else if img.Ramdisk != nil && ssize != 0 {
		logrus.Infof(" copy second stage %d bytes from 0x%08x", ssize, soffset)

		data, err := readChunk(orig, soffset, ssize, "second stage")
		if err != nil {
			return err
		}
		img.Second = data
	}

	if src.DtbPrefix != "" {
		logrus.Info("reading dtbs ...")

		table, size, err := LoadDtbFiles(src.DtbPrefix, pageSize)
		if err != nil {
			return err
		}
		hdr.DtbsSize = size
		img.Dtbs = table
	} else if dsize != 0 {
		logrus.Infof(" copy dtbs %d bytes from 0x%08x", dsize, doffset)

		data, err := readChunk(orig, doffset, dsize, "dtbs")
		if err != nil {
			return err
		}

		// Blob positions come from the copied table's own recorded
		// offsets; nothing is renumbered on copy.
		table, err := DecodeDtbTable(data)
		if err != nil {
			return err
		}
		img.Dtbs = table
	}

	// The signature is never preserved or computed: always the fixed
	// marker, zero padded.
	img.Signature = [SignatureSize]byte{}
	copy(img.Signature[:], SignatureMagic)

	if orig == nil {
		img.stampID()
	}

	total := hdr.TotalSize()
	if img.Size == 0 {
		img.Size = total
	} else if total > img.Size {
		return eKind(ErrSizeMismatch,
			fmt.Sprintf("update is too big for the boot image (%d vs %d bytes)", total, img.Size))
	}

	return nil
}

// CreateSegments builds a fresh image with no original container to
// copy from. Kernel and ramdisk sources are mandatory; their absence
// is reported before any file is touched. The result is re-validated
// with the same checks applied when decoding an existing container.
func (img *Image) CreateSegments(src Sources) error {
	if src.Kernel == "" {
		return eKind(ErrMissingInput, "kernel file is mandatory to create a boot image")
	}
	if src.Ramdisk == "" {
		return eKind(ErrMissingInput, "ramdisk file is mandatory to create a boot image")
	}

	err := img.UpdateSegments(nil, src)
	if err != nil {
		return err
	}

	err = img.Validate()
	if err != nil {
		return eMsg(err, "sanity checks on created image")
	}

	return nil
}

// stampID writes an xxhash64 digest of the segment payloads into the
// opaque id words of a freshly created image.
func (img *Image) stampID() {
	xxh := xxhash.New()

	xxh.Write(img.Kernel)
	xxh.Write(img.Ramdisk)
	xxh.Write(img.Second)
	if img.Dtbs != nil {
		xxh.Write(img.Dtbs.encode())
		for _, blob := range img.Dtbs.Blobs {
			xxh.Write(blob)
		}
	}

	sum := xxh.Sum64()
	img.Header.ID = [8]uint32{}
	img.Header.ID[0] = uint32(sum)
	img.Header.ID[1] = uint32(sum >> 32)
}

package abootimg

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// writeFile dumps one extracted object to disk.
func writeFile(path string, data []byte) error {
	err := os.WriteFile(path, data, 0644)
	if err != nil {
		return eMsg(err, "writing "+path)
	}

	return nil
}

// ExtractKernel copies the kernel segment out of the container into
// its own file.
func (img *Image) ExtractKernel(fin io.ReadSeeker, path string) error {
	logrus.Infof("extracting kernel in %s", path)

	data, err := readChunk(fin, img.Header.KernelOffset(), img.Header.KernelSize, "kernel")
	if err != nil {
		return err
	}

	return writeFile(path, data)
}

// ExtractRamdisk copies the ramdisk segment out of the container into
// its own file.
func (img *Image) ExtractRamdisk(fin io.ReadSeeker, path string) error {
	logrus.Infof("extracting ramdisk in %s", path)

	data, err := readChunk(fin, img.Header.RamdiskOffset(), img.Header.RamdiskSize, "ramdisk")
	if err != nil {
		return err
	}

	return writeFile(path, data)
}

// ExtractSecond copies the second stage segment into its own file.
// A zero second_size means the segment is absent; nothing is written.
func (img *Image) ExtractSecond(fin io.ReadSeeker, path string) error {
	if img.Header.SecondSize == 0 {
		return nil
	}

	logrus.Infof("extracting second stage image in %s", path)

	data, err := readChunk(fin, img.Header.SecondOffset(), img.Header.SecondSize, "second stage")
	if err != nil {
		return err
	}

	return writeFile(path, data)
}

// ExtractDtbs writes the DTB table to <prefix>.dtbh and each blob to
// <prefix>.dtb_p<i>, as read from the container. Absent when
// dtbs_size is zero.
func (img *Image) ExtractDtbs(fin io.ReadSeeker, prefix string) error {
	if img.Header.DtbsSize == 0 {
		return nil
	}

	data, err := readChunk(fin, img.Header.DtbsOffset(), img.Header.DtbsSize, "dtbs")
	if err != nil {
		return err
	}

	table, err := DecodeDtbTable(data)
	if err != nil {
		return err
	}

	name := prefix + ".dtbh"
	logrus.Infof("extracting DTBH %s", name)

	err = writeFile(name, table.encode())
	if err != nil {
		return err
	}

	for i, blob := range table.Blobs {
		name := fmt.Sprintf("%s.dtb_p%d", prefix, i)
		logrus.Infof(" .. dtb %s offset 0x%08x, size 0x%08x",
			name, table.Entries[i].Offset, table.Entries[i].DtbSize)

		err = writeFile(name, blob)
		if err != nil {
			return err
		}
	}

	return nil
}

// ExtractSignature copies the signature page content into its own
// file. Containers too small to carry one are left alone.
func (img *Image) ExtractSignature(fin io.ReadSeeker, path string) error {
	off := img.Header.SignatureOffset()
	if off+SignatureSize > img.Size {
		return nil
	}

	logrus.Infof("extracting signature in %s", path)

	data, err := readChunk(fin, off, SignatureSize, "signature")
	if err != nil {
		return err
	}

	return writeFile(path, data)
}

// ExtractConfig writes the header fields as a config file that can be
// fed back through ApplyConfig.
func (img *Image) ExtractConfig(path string) error {
	logrus.Infof("writing boot image config in %s", path)

	f, err := os.Create(path)
	if err != nil {
		return eMsg(err, "creating "+path)
	}
	defer f.Close()

	return img.WriteConfig(f)
}

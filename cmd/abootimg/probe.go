package main

import (
	"io"
	"os"
)

// probeContainer reports the container's total size and whether it is
// a raw block device. Device sizes are taken from the device itself by
// seeking to its end; partition-type sanity checking is left to the
// operator.
func probeContainer(f *os.File) (size uint32, blkdev bool, err error) {
	st, err := f.Stat()
	if err != nil {
		return
	}

	mode := st.Mode()
	if mode&os.ModeDevice != 0 && mode&os.ModeCharDevice == 0 {
		blkdev = true

		var end int64
		end, err = f.Seek(0, io.SeekEnd)
		if err != nil {
			return
		}
		_, err = f.Seek(0, io.SeekStart)
		size = uint32(end)
		return
	}

	size = uint32(st.Size())
	return
}

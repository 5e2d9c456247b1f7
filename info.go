package abootimg

import (
	"fmt"
	"io"
)

// Info writes a human readable report of the header fields and the
// computed container layout.
func (img *Image) Info(w io.Writer, fname string) {
	hdr := &img.Header

	kind := ""
	if img.IsBlockDev {
		kind = " [block device]"
	}

	fmt.Fprintf(w, "\nAndroid Boot Image Info:\n\n")
	fmt.Fprintf(w, "* file name = %s%s\n\n", fname, kind)
	fmt.Fprintf(w, "* image size = %d bytes (%.2f MB)\n", img.Size, float64(img.Size)/0x100000)

	fmt.Fprintf(w, "\n<boot_img_hdr>\n")

	n := hdr.pages(hdr.KernelSize)
	m := hdr.pages(hdr.RamdiskSize)
	o := hdr.pages(hdr.SecondSize)
	p := hdr.pages(hdr.DtbsSize)

	fmt.Fprintf(w, "   kernel_size:  %d bytes (%.2f MB), %d pages\n",
		hdr.KernelSize, float64(hdr.KernelSize)/0x100000, n)
	fmt.Fprintf(w, "   kernel_addr:  0x%08x\n", hdr.KernelAddr)

	fmt.Fprintf(w, "   ramdisk_size: %d bytes (%.2f MB), %d pages\n",
		hdr.RamdiskSize, float64(hdr.RamdiskSize)/0x100000, m)
	fmt.Fprintf(w, "   ramdisk_addr: 0x%08x\n", hdr.RamdiskAddr)

	fmt.Fprintf(w, "   second_size:  %d bytes (%.2f MB), %d pages\n",
		hdr.SecondSize, float64(hdr.SecondSize)/0x100000, o)
	fmt.Fprintf(w, "   second_addr:  0x%08x\n", hdr.SecondAddr)

	fmt.Fprintf(w, "   tags_addr:    0x%08x\n", hdr.TagsAddr)
	fmt.Fprintf(w, "   page_size:    %d bytes\n", hdr.PageSize)

	fmt.Fprintf(w, "   dtbs_size:    %d bytes (%.2f MB), %d pages\n",
		hdr.DtbsSize, float64(hdr.DtbsSize)/0x100000, p)

	fmt.Fprintf(w, "   unused:       %d\n", hdr.Unused)
	fmt.Fprintf(w, "   name:         %s\n\n", cstr(hdr.Name[:]))

	if hdr.Cmdline[0] != 0 {
		fmt.Fprintf(w, "   cmdline:      %s\n\n", cstr(hdr.Cmdline[:]))
	} else {
		fmt.Fprintf(w, "   cmdline       empty\n\n")
	}

	fmt.Fprintf(w, "   id[8] 0x%04X%04X%04X%04X%04X%04X%04X%04X\n",
		hdr.ID[0], hdr.ID[1], hdr.ID[2], hdr.ID[3],
		hdr.ID[4], hdr.ID[5], hdr.ID[6], hdr.ID[7])

	fmt.Fprintf(w, "\n<boot_img layout>\n")
	fmt.Fprintf(w, "   kernel offset     0x%08x\n", hdr.KernelOffset())
	fmt.Fprintf(w, "   ramdisk offset:   0x%08x\n", hdr.RamdiskOffset())
	fmt.Fprintf(w, "   secondary offset: 0x%08x\n", hdr.SecondOffset())
	fmt.Fprintf(w, "   dtbs offset:      0x%08x\n", hdr.DtbsOffset())
	fmt.Fprintf(w, "   signature offset: 0x%08x\n", hdr.SignatureOffset())
	fmt.Fprintf(w, "\n")
}

// Info writes a human readable report of the DTBH table header and
// every entry.
func (t *DtbTable) Info(w io.Writer) {
	fmt.Fprintf(w, "\n<dtbh_header Info>\n")
	fmt.Fprintf(w, "  magic:0x%08x, version:0x%08x, num_entries:0x%08x\n",
		t.Magic, t.Version, len(t.Entries))

	for i, entry := range t.Entries {
		fmt.Fprintf(w, "\ndt_entry[%02d]\n", i)
		fmt.Fprintf(w, "        chip_id: 0x%08x\n", entry.ChipID)
		fmt.Fprintf(w, "    platform_id: 0x%08x\n", entry.PlatformID)
		fmt.Fprintf(w, "     subtype_id: 0x%08x\n", entry.SubtypeID)
		fmt.Fprintf(w, "         hw_rev: 0x%08x\n", entry.HwRev)
		fmt.Fprintf(w, "     hw_rev_end: 0x%08x\n", entry.HwRevEnd)
		fmt.Fprintf(w, "         offset: 0x%08x\n", entry.Offset)
		fmt.Fprintf(w, "       dtb size: 0x%08x\n", entry.DtbSize)
	}

	fmt.Fprintf(w, "\n")
}

package abootimg

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ApplyConfig applies config directives to the image header, in order.
// Application is sequential and independent: each directive takes
// effect immediately, and a failing directive aborts the run without
// rolling back the ones already applied.
func (img *Image) ApplyConfig(directives []string) error {
	for _, line := range directives {
		err := img.ApplyDirective(line)
		if err != nil {
			return err
		}
	}

	return nil
}

// splitDirective tokenizes one "key = value" directive. Whitespace
// around the separator is ignored; anything past a newline is dropped.
func splitDirective(line string) (key, value string, err error) {
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}

	line = strings.TrimLeft(line, " \t")

	end := strings.IndexAny(line, " =\t")
	if end < 0 {
		return "", "", eKind(ErrBadDirective, line)
	}

	key = line[:end]
	rest := strings.TrimLeft(line[end:], " \t")
	if !strings.HasPrefix(rest, "=") {
		return "", "", eKind(ErrBadDirective, key)
	}

	value = strings.TrimLeft(rest[1:], " \t")
	return key, value, nil
}

// parseNum parses a numeric directive value, accepting the usual base
// prefixes (0x for hex, 0 for octal).
func parseNum(key, value string) (uint32, error) {
	v, err := strconv.ParseUint(value, 0, 32)
	if err != nil {
		return 0, eKind(ErrBadDirective, fmt.Sprintf("%s: bad numeric value %q", key, value))
	}

	return uint32(v), nil
}

// ApplyDirective applies a single "key = value" directive.
func (img *Image) ApplyDirective(line string) error {
	key, value, err := splitDirective(line)
	if err != nil {
		return err
	}

	hdr := &img.Header

	switch key {
	case "cmdline":
		if len(value) >= BootArgsSize-1 {
			return eKind(ErrBadDirective,
				fmt.Sprintf("cmdline length %d is too long (max %d)", len(value), BootArgsSize-2))
		}
		hdr.Cmdline = [BootArgsSize]byte{}
		copy(hdr.Cmdline[:], value)

	case "name":
		hdr.Name = [BootNameSize]byte{}
		copy(hdr.Name[:], value)
		hdr.Name[BootNameSize-1] = 0

	case "bootsize":
		v, err := parseNum(key, value)
		if err != nil {
			return err
		}
		if img.IsBlockDev && img.Size != v {
			return eKind(ErrSizeMismatch, "cannot change boot image size for a block device")
		}
		img.Size = v

	case "pagesize":
		v, err := parseNum(key, value)
		if err != nil {
			return err
		}
		hdr.PageSize = v

	case "kerneladdr":
		v, err := parseNum(key, value)
		if err != nil {
			return err
		}
		hdr.KernelAddr = v

	case "ramdiskaddr":
		v, err := parseNum(key, value)
		if err != nil {
			return err
		}
		hdr.RamdiskAddr = v

	case "secondaddr":
		v, err := parseNum(key, value)
		if err != nil {
			return err
		}
		hdr.SecondAddr = v

	case "tagsaddr":
		v, err := parseNum(key, value)
		if err != nil {
			return err
		}
		hdr.TagsAddr = v

	default:
		return eKind(ErrBadDirective, key)
	}

	return nil
}

// WriteConfig emits the image's header fields in the config text
// format consumed by ApplyConfig: addresses and sizes in hex, name
// and cmdline as plain text.
func (img *Image) WriteConfig(w io.Writer) (err error) {
	hdr := &img.Header

	_, err = fmt.Fprintf(w,
		"bootsize = 0x%x\npagesize = 0x%x\n"+
			"kerneladdr = 0x%x\nramdiskaddr = 0x%x\nsecondaddr = 0x%x\ntagsaddr = 0x%x\n"+
			"name = %s\ncmdline = %s\n",
		img.Size, hdr.PageSize,
		hdr.KernelAddr, hdr.RamdiskAddr, hdr.SecondAddr, hdr.TagsAddr,
		cstr(hdr.Name[:]), cstr(hdr.Cmdline[:]))

	return
}

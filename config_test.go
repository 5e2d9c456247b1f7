package abootimg

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDirectives(t *testing.T) {
	img := NewImage()

	err := img.ApplyConfig([]string{
		"pagesize = 0x1000",
		"kerneladdr = 0x10008000",
		"ramdiskaddr=0x11000000",
		"secondaddr = 0x10f00000",
		"tagsaddr\t=\t0x10000100",
		"name = herolte",
		"cmdline = console=ttySAC2,115200",
		"bootsize = 10485760",
	})
	require.NoError(t, err)

	assert.Equal(t, uint32(4096), img.Header.PageSize)
	assert.Equal(t, uint32(0x10008000), img.Header.KernelAddr)
	assert.Equal(t, uint32(0x11000000), img.Header.RamdiskAddr)
	assert.Equal(t, uint32(0x10f00000), img.Header.SecondAddr)
	assert.Equal(t, uint32(0x10000100), img.Header.TagsAddr)
	assert.Equal(t, "herolte", cstr(img.Header.Name[:]))
	assert.Equal(t, "console=ttySAC2,115200", cstr(img.Header.Cmdline[:]))
	assert.Equal(t, uint32(10485760), img.Size)
}

func TestApplyDirectiveDecimalValue(t *testing.T) {
	img := NewImage()
	require.NoError(t, img.ApplyDirective("pagesize = 4096"))
	assert.Equal(t, uint32(4096), img.Header.PageSize)
}

func TestApplyDirectiveDropsTrailingNewline(t *testing.T) {
	img := NewImage()
	require.NoError(t, img.ApplyDirective("name = herolte\n"))
	assert.Equal(t, "herolte", cstr(img.Header.Name[:]))
}

func TestApplyDirectiveUnknownKey(t *testing.T) {
	img := NewImage()

	err := img.ApplyDirective("bogus = 1")
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrBadDirective))
	assert.Equal(t, "bogus", GetErrors(err)[1])
}

func TestApplyDirectiveMissingSeparator(t *testing.T) {
	img := NewImage()

	err := img.ApplyDirective("pagesize 2048")
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrBadDirective))

	err = img.ApplyDirective("pagesize")
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrBadDirective))
}

func TestApplyDirectiveBadNumber(t *testing.T) {
	img := NewImage()

	err := img.ApplyDirective("pagesize = banana")
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrBadDirective))
	assert.Equal(t, DefaultPageSize, int(img.Header.PageSize))
}

func TestApplyDirectiveCmdlineTooLong(t *testing.T) {
	img := NewImage()
	require.NoError(t, img.ApplyDirective("cmdline = before"))

	long := strings.Repeat("x", BootArgsSize-1)
	err := img.ApplyDirective("cmdline = " + long)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrBadDirective))

	// the failing directive must not touch the header
	assert.Equal(t, "before", cstr(img.Header.Cmdline[:]))

	// one byte shorter fits
	ok := strings.Repeat("x", BootArgsSize-2)
	require.NoError(t, img.ApplyDirective("cmdline = "+ok))
	assert.Equal(t, ok, cstr(img.Header.Cmdline[:]))
}

func TestApplyConfigNoRollback(t *testing.T) {
	img := NewImage()

	err := img.ApplyConfig([]string{
		"name = keep",
		"pagesize = 0x1000",
		"bogus = 1",
		"tagsaddr = 0x100",
	})
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrBadDirective))

	// directives before the failure stay applied, later ones never run
	assert.Equal(t, "keep", cstr(img.Header.Name[:]))
	assert.Equal(t, uint32(4096), img.Header.PageSize)
	assert.Equal(t, uint32(0), img.Header.TagsAddr)
}

func TestApplyDirectiveNameTruncated(t *testing.T) {
	img := NewImage()
	require.NoError(t, img.ApplyDirective("name = averylongproductname"))

	// truncated to the field width with a terminating zero byte
	assert.Equal(t, "averylongproduc", cstr(img.Header.Name[:]))
	assert.Equal(t, byte(0), img.Header.Name[BootNameSize-1])
}

func TestApplyDirectiveBootsizeBlockDevice(t *testing.T) {
	img := NewImage()
	img.IsBlockDev = true
	img.Size = 0x1000000

	err := img.ApplyDirective("bootsize = 0x800000")
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrSizeMismatch))
	assert.Equal(t, uint32(0x1000000), img.Size)

	// restating the device's actual size is allowed
	require.NoError(t, img.ApplyDirective("bootsize = 0x1000000"))
}

func TestWriteConfigRoundTrip(t *testing.T) {
	img := NewImage()
	img.Size = 0x1400000
	img.Header.KernelAddr = 0x10008000
	img.Header.RamdiskAddr = 0x11000000
	img.Header.SecondAddr = 0x10f00000
	img.Header.TagsAddr = 0x10000100
	copy(img.Header.Name[:], "herolte")
	copy(img.Header.Cmdline[:], "console=ttySAC2,115200 androidboot.hardware=samsungexynos8890")

	var buf bytes.Buffer
	require.NoError(t, img.WriteConfig(&buf))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	other := NewImage()
	require.NoError(t, other.ApplyConfig(lines))

	assert.Equal(t, img.Size, other.Size)
	assert.Equal(t, img.Header.PageSize, other.Header.PageSize)
	assert.Equal(t, img.Header.KernelAddr, other.Header.KernelAddr)
	assert.Equal(t, img.Header.RamdiskAddr, other.Header.RamdiskAddr)
	assert.Equal(t, img.Header.SecondAddr, other.Header.SecondAddr)
	assert.Equal(t, img.Header.TagsAddr, other.Header.TagsAddr)
	assert.Equal(t, img.Header.Name, other.Header.Name)
	assert.Equal(t, img.Header.Cmdline, other.Header.Cmdline)
}

package abootimg

import (
	"errors"

	"github.com/hashicorp/errwrap"
)

// Error kinds. Every terminal failure wraps exactly one of these; use
// IsKind to classify an error returned by this package.
var (
	// ErrMalformedHeader flags a container failing header validation:
	// bad magic or a zero kernel/ramdisk/page size.
	ErrMalformedHeader = errors.New("not a valid Android boot image")

	// ErrSizeMismatch flags a layout that does not fit the container,
	// or an attempt to resize a block device.
	ErrSizeMismatch = errors.New("image size mismatch")

	// ErrMissingInput flags a create without the mandatory kernel or
	// ramdisk source.
	ErrMissingInput = errors.New("missing mandatory input")

	// ErrMissingFile flags a named source file that cannot be opened
	// or read in full.
	ErrMissingFile = errors.New("cannot read input file")

	// ErrBadDirective flags an unparseable or unrecognized config
	// directive.
	ErrBadDirective = errors.New("bad config entry")

	// ErrTruncatedTable flags a DTBH table claiming more entries than
	// the available bytes hold.
	ErrTruncatedTable = errors.New("truncated DTBH table")
)

// eMsg wraps err with a short description of the step that failed.
func eMsg(err error, msg string) error {
	return errwrap.Wrap(errors.New(msg), err)
}

// eKind builds a terminal error of the given kind with detail text.
func eKind(kind error, detail string) error {
	return errwrap.Wrap(kind, errors.New(detail))
}

// IsKind reports whether err is, or wraps, the given error kind.
func IsKind(err, kind error) bool {
	if err == nil {
		return false
	}
	return err == kind || errwrap.Contains(err, kind.Error())
}

// GetErrors returns the wrapped errors from one error.
func GetErrors(err error) []string {
	if err != nil {
		wrapped := err.(errwrap.Wrapper).WrappedErrors()
		return []string{wrapped[0].Error(), wrapped[1].Error()}
	}

	return []string{}
}

package epub

import (
	"errors"
	"fmt"
)

var (
	ErrMimetypeNotFound  = errors.New("mimetype file not found")
	ErrInvalidMimetype   = errors.New("invalid mimetype: must be 'application/epub+zip'")
	ErrContainerNotFound = errors.New("META-INF/container.xml not found")
	ErrRootfileNotFound  = errors.New("no rootfile found in container.xml")
	ErrPackageNotFound   = errors.New("package element not found in OPF")
)

// FormatError reports an archive that is not a usable EPUB. Parse never
// returns a Book together with a FormatError.
type FormatError struct {
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err == nil {
		return "invalid EPUB: " + e.Reason
	}
	return fmt.Sprintf("invalid EPUB: %s: %v", e.Reason, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// NotFoundError reports an archive entry that a book references but does
// not contain.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("file not found: %s", e.Path)
}

// RangeError reports a chapter index outside the spine.
type RangeError struct {
	Index int
	Len   int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("invalid chapter index %d (spine has %d items)", e.Index, e.Len)
}

func formatErr(reason string, err error) error {
	return &FormatError{Reason: reason, Err: err}
}

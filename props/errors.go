package props

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/upkedit/upkedit/errors"
)

var (
	// Indicates that the blob ended before a record was complete.
	errUnderrun = fmt.Errorf("unexpected end of blob: %w", errors.ErrMalformed)
	// Indicates a header with a type tag that cannot appear in a record.
	errInvalidTag = fmt.Errorf("invalid type tag: %w", errors.ErrMalformed)
)

// ErrInvalidSize indicates a size class outside of 0 to 7.
type ErrInvalidSize SizeClass

func (err ErrInvalidSize) Error() string {
	return fmt.Sprintf("invalid size class %d", uint8(err))
}

func (err ErrInvalidSize) Is(target error) bool {
	return target == errors.ErrMalformed
}

// DataError wraps an error that occurred while scanning a property list. It
// always matches errors.ErrMalformed.
type DataError struct {
	// Property is the name of the record being read, if it was known.
	Property string

	// Offset is the byte offset where the error occurred.
	Offset int64

	Cause error
}

func (err DataError) Error() string {
	var s strings.Builder
	s.WriteString("property data error")
	if err.Property != "" {
		s.WriteString(" in ")
		s.WriteString(strconv.Quote(err.Property))
	}
	if err.Offset >= 0 {
		s.WriteString(" at ")
		s.Write(strconv.AppendInt(nil, err.Offset, 10))
	}
	if err.Cause != nil {
		s.WriteString(": ")
		s.WriteString(err.Cause.Error())
	}
	return s.String()
}

func (err DataError) Unwrap() error {
	return err.Cause
}

func (err DataError) Is(target error) bool {
	return target == errors.ErrMalformed
}

// LayoutError indicates a record whose payload cannot be decoded without a
// class schema.
type LayoutError struct {
	Property string
	Tag      Tag
	Struct   string
}

func (err LayoutError) Error() string {
	if err.Struct != "" {
		return fmt.Sprintf("property %q: struct %s: %s", err.Property, err.Struct, errors.ErrUnsupportedLayout)
	}
	return fmt.Sprintf("property %q: %s: %s", err.Property, err.Tag, errors.ErrUnsupportedLayout)
}

func (err LayoutError) Is(target error) bool {
	return target == errors.ErrUnsupportedLayout
}

package props

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/anaminus/parse"
	"github.com/upkedit/upkedit/errors"
)

// SizeClass selects how the payload width of a record is determined.
type SizeClass uint8

const (
	Size1        SizeClass = iota // 1 byte.
	Size2                         // 2 bytes.
	Size4                         // 4 bytes.
	Size12                        // 12 bytes.
	Size16                        // 16 bytes.
	SizePrefix8                   // Width in a following uint8.
	SizePrefix16                  // Width in a following uint16.
	SizePrefix32                  // Width in a following uint32.
)

var fixedWidths = [...]int{
	Size1:  1,
	Size2:  2,
	Size4:  4,
	Size12: 12,
	Size16: 16,
}

// Fixed returns whether the class has a fixed width.
func (c SizeClass) Fixed() bool {
	return c <= Size16
}

// PrefixLen returns the number of bytes of the length prefix that follows the
// header for the class.
func (c SizeClass) PrefixLen() int {
	switch c {
	case SizePrefix8:
		return 1
	case SizePrefix16:
		return 2
	case SizePrefix32:
		return 4
	}
	return 0
}

// Fits returns whether the class can encode a payload of the given width.
func (c SizeClass) Fits(width int) bool {
	switch {
	case c.Fixed():
		return fixedWidths[c] == width
	case c == SizePrefix8:
		return 0 <= width && width <= 0xFF
	case c == SizePrefix16:
		return 0 <= width && width <= 0xFFFF
	case c == SizePrefix32:
		return 0 <= width && int64(width) <= 0xFFFFFFFF
	}
	return false
}

// ClassFor returns the narrowest size class that encodes width.
func ClassFor(width int) SizeClass {
	for c := Size1; c <= Size16; c++ {
		if fixedWidths[c] == width {
			return c
		}
	}
	switch {
	case width <= 0xFF:
		return SizePrefix8
	case width <= 0xFFFF:
		return SizePrefix16
	default:
		return SizePrefix32
	}
}

// readWidth reads the payload width for class from fr, consuming the length
// prefix if the class has one.
func readWidth(fr *parse.BinaryReader, class SizeClass) (width int, failed bool) {
	switch class {
	case Size1, Size2, Size4, Size12, Size16:
		return fixedWidths[class], false
	case SizePrefix8:
		var n uint8
		if fr.Number(&n) {
			return 0, true
		}
		return int(n), false
	case SizePrefix16:
		var n uint16
		if fr.Number(&n) {
			return 0, true
		}
		return int(n), false
	case SizePrefix32:
		var n uint32
		if fr.Number(&n) {
			return 0, true
		}
		return int(n), false
	}
	fr.Add(0, ErrInvalidSize(class))
	return 0, true
}

// WidthFor returns the payload width selected by class. For prefixed classes
// the little-endian length prefix is read from the start of b, and n is the
// number of prefix bytes consumed. Fixed classes consume nothing.
func WidthFor(class SizeClass, b []byte) (width, n int, err error) {
	fr := parse.NewBinaryReader(bytes.NewReader(b))
	if width, failed := readWidth(fr, class); !failed {
		return width, int(fr.N()), nil
	}
	return 0, int(fr.N()), malformed(fr.Err())
}

// appendSize appends the length prefix of class for width, if any.
func appendSize(b []byte, class SizeClass, width int) []byte {
	switch class {
	case SizePrefix8:
		return append(b, byte(width))
	case SizePrefix16:
		return binary.LittleEndian.AppendUint16(b, uint16(width))
	case SizePrefix32:
		return binary.LittleEndian.AppendUint32(b, uint32(width))
	}
	return b
}

// malformed ensures that err matches errors.ErrMalformed.
func malformed(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errors.ErrMalformed):
		return err
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return errUnderrun
	}
	return fmt.Errorf("%w: %s", errors.ErrMalformed, err)
}

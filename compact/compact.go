// Package compact implements the compact index encoding, a variable-length
// signed integer used throughout the package format for name and object
// references.
//
// The first byte holds the sign in bit 7, a continuation flag in bit 6, and
// the low 6 bits of the magnitude. Each following byte holds a continuation
// flag in bit 7 and the next 7 bits. At most 5 bytes are used.
package compact

import (
	"fmt"

	"github.com/anaminus/parse"
	"github.com/upkedit/upkedit/errors"
)

// MaxLen is the maximum number of bytes in an encoded compact index.
const MaxLen = 5

// ErrTruncated indicates that the input ended inside a compact index.
var ErrTruncated = fmt.Errorf("truncated compact index: %w", errors.ErrMalformed)

// Len returns the number of bytes needed to encode v.
func Len(v int32) int {
	abs := magnitude(v)
	switch {
	case abs < 1<<6:
		return 1
	case abs < 1<<13:
		return 2
	case abs < 1<<20:
		return 3
	case abs < 1<<27:
		return 4
	default:
		return 5
	}
}

func magnitude(v int32) uint32 {
	if v < 0 {
		return uint32(-int64(v))
	}
	return uint32(v)
}

// Append appends the encoding of v to b and returns the extended slice.
func Append(b []byte, v int32) []byte {
	abs := magnitude(v)
	var first byte
	if v < 0 {
		first = 0x80
	}
	if abs < 0x40 {
		return append(b, first|byte(abs))
	}
	b = append(b, first|0x40|byte(abs&0x3F))
	abs >>= 6
	for i := 1; i < MaxLen-1; i++ {
		if abs < 0x80 {
			return append(b, byte(abs))
		}
		b = append(b, 0x80|byte(abs&0x7F))
		abs >>= 7
	}
	return append(b, byte(abs))
}

// Bytes returns the encoding of v.
func Bytes(v int32) []byte {
	return Append(make([]byte, 0, MaxLen), v)
}

// Decode decodes the compact index at the start of b, returning the value and
// the number of bytes consumed.
func Decode(b []byte) (v int32, n int, err error) {
	if len(b) == 0 {
		return 0, 0, ErrTruncated
	}
	c := b[0]
	n = 1
	neg := c&0x80 != 0
	abs := uint32(c & 0x3F)
	more := c&0x40 != 0
	for shift := uint(6); more; shift += 7 {
		if n >= len(b) {
			return 0, n, ErrTruncated
		}
		c = b[n]
		n++
		if n == MaxLen {
			abs |= uint32(c) << shift
			break
		}
		abs |= uint32(c&0x7F) << shift
		more = c&0x80 != 0
	}
	if neg {
		return int32(-int64(abs)), n, nil
	}
	return int32(abs), n, nil
}

// Read reads a compact index from fr into v. Like the methods of fr, it
// returns true if reading failed.
func Read(fr *parse.BinaryReader, v *int32) (failed bool) {
	var buf [MaxLen]byte
	n := 0
	for {
		var c uint8
		if fr.Number(&c) {
			return true
		}
		buf[n] = c
		n++
		if n == 1 && c&0x40 == 0 || n > 1 && c&0x80 == 0 || n == MaxLen {
			break
		}
	}
	value, _, err := Decode(buf[:n])
	if fr.Add(0, err) {
		return true
	}
	*v = value
	return false
}

// Write writes v to fw as a compact index. Returns true if writing failed.
func Write(fw *parse.BinaryWriter, v int32) (failed bool) {
	return fw.Bytes(Bytes(v))
}

// Package props implements the tagged property list format of object blobs.
//
// A property list is a sequence of records terminated by the name "None".
// Each record starts with a compact name reference, followed by an info byte
// holding the type tag (bits 0-3), the size class (bits 4-6) and an array
// flag (bit 7). Struct records then name their structure. The size class
// selects a fixed payload width, or a 1, 2 or 4 byte length prefix. Non-bool
// records with the array flag set carry an array index before the payload.
// Bool records store their value in the array flag and have no payload.
package props

import (
	"fmt"
)

// Tag identifies the type of a property record.
type Tag uint8

const (
	TagNone Tag = iota
	TagByte
	TagInt
	TagBool
	TagFloat
	TagObject
	TagName
	TagDelegate
	TagClass
	TagArray
	TagStruct
	TagVector
	TagRotator
	TagStr
	TagMap
	TagFixedArray
)

var tagStrings = [...]string{
	TagNone:       "None",
	TagByte:       "Byte",
	TagInt:        "Int",
	TagBool:       "Bool",
	TagFloat:      "Float",
	TagObject:     "Object",
	TagName:       "Name",
	TagDelegate:   "Delegate",
	TagClass:      "Class",
	TagArray:      "Array",
	TagStruct:     "Struct",
	TagVector:     "Vector",
	TagRotator:    "Rotator",
	TagStr:        "Str",
	TagMap:        "Map",
	TagFixedArray: "FixedArray",
}

func (t Tag) String() string {
	if int(t) < len(tagStrings) {
		return tagStrings[t]
	}
	return fmt.Sprintf("Tag(%d)", uint8(t))
}

// Valid returns whether the tag may appear in a record header.
func (t Tag) Valid() bool {
	return TagNone < t && t <= TagFixedArray
}

// Header is the decoded info byte of a record.
type Header struct {
	Tag  Tag
	Size SizeClass

	// Array is the array flag. For bool records it holds the value.
	Array bool
}

// ParseHeader decodes an info byte.
func ParseHeader(b byte) Header {
	return Header{
		Tag:   Tag(b & 0x0F),
		Size:  SizeClass(b&0x70) >> 4,
		Array: b&0x80 != 0,
	}
}

// Byte encodes the header as an info byte.
func (h Header) Byte() byte {
	b := byte(h.Tag&0x0F) | byte(h.Size&0x07)<<4
	if h.Array {
		b |= 0x80
	}
	return b
}

// HasIndex returns whether a record with this header carries an array index.
func (h Header) HasIndex() bool {
	return h.Array && h.Tag != TagBool
}

func (h Header) String() string {
	return fmt.Sprintf("%s (size:%d array:%t)", h.Tag, h.Size, h.Array)
}

// Record is a single property record found by scanning a blob. Offsets are
// relative to the start of the blob.
type Record struct {
	Name string

	// Start is the offset of the name reference.
	Start int

	// HeaderOffset is the offset of the info byte.
	HeaderOffset int

	// Offset is the offset of the payload.
	Offset int

	Header Header

	// StructRef and StructName identify the structure of a struct record.
	StructRef  int32
	StructName string

	// ArrayIndex is the array index of a non-bool record with the array flag.
	ArrayIndex int

	Payload []byte
}

// End returns the offset just past the payload.
func (r Record) End() int {
	return r.Offset + len(r.Payload)
}

// Bool returns the value of a bool record.
func (r Record) Bool() bool {
	return r.Header.Array
}

// appendIndex appends the encoding of an array index.
func appendIndex(b []byte, i int) []byte {
	switch {
	case i < 0x80:
		return append(b, byte(i))
	case i < 0x4000:
		return append(b, byte(i>>8)|0x80, byte(i))
	default:
		return append(b, byte(i>>24)|0xC0, byte(i>>16), byte(i>>8), byte(i))
	}
}

// MaxArrayIndex is the largest encodable array index.
const MaxArrayIndex = 1<<30 - 1

package props

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf16"

	"github.com/anaminus/parse"
	"github.com/upkedit/upkedit/compact"
	"github.com/upkedit/upkedit/errors"
)

// NameIndexer finds names in a name table.
type NameIndexer interface {
	// NameIndex returns the index of name, or -1 if the table does not
	// contain it.
	NameIndex(name string) int32
}

// Encoder writes a property list. Errors are sticky: after the first failure
// further writes are ignored, and End returns the error.
type Encoder struct {
	names NameIndexer
	buf   bytes.Buffer
	fw    *parse.BinaryWriter
	err   error
}

// NewEncoder returns an Encoder that resolves names through names.
func NewEncoder(names NameIndexer) *Encoder {
	e := &Encoder{names: names}
	e.fw = parse.NewBinaryWriter(&e.buf)
	return e
}

func (e *Encoder) nameRef(name string) (int32, bool) {
	i := e.names.NameIndex(name)
	if i < 0 {
		e.err = fmt.Errorf("name %q not in name table: %w", name, errors.ErrInvariant)
		return 0, false
	}
	return i, true
}

// AppendHeader appends the bytes that follow the name of a record and precede
// its payload: the info byte, the struct reference of a struct record, the
// length prefix, and the array index.
func AppendHeader(b []byte, h Header, structRef int32, width, index int) []byte {
	b = append(b, h.Byte())
	if h.Tag == TagStruct {
		b = compact.Append(b, structRef)
	}
	b = appendSize(b, h.Size, width)
	if h.HasIndex() {
		b = appendIndex(b, index)
	}
	return b
}

// Record writes r. The struct reference is resolved from r.StructName when it
// is set. The size class of r.Header must fit the payload.
func (e *Encoder) Record(r Record) {
	if e.err != nil {
		return
	}
	if !r.Header.Tag.Valid() {
		e.err = fmt.Errorf("record %q: %w", r.Name, errInvalidTag)
		return
	}
	if !r.Header.Size.Fits(len(r.Payload)) {
		e.err = fmt.Errorf("record %q: width %d: %w", r.Name, len(r.Payload), ErrInvalidSize(r.Header.Size))
		return
	}
	if r.Header.HasIndex() && (r.ArrayIndex < 0 || r.ArrayIndex > MaxArrayIndex) {
		e.err = fmt.Errorf("record %q: array index %d out of range: %w", r.Name, r.ArrayIndex, errors.ErrInvariant)
		return
	}
	ref, ok := e.nameRef(r.Name)
	if !ok {
		return
	}
	structRef := r.StructRef
	if r.Header.Tag == TagStruct && r.StructName != "" {
		if structRef, ok = e.nameRef(r.StructName); !ok {
			return
		}
	}
	b := compact.Append(nil, ref)
	b = AppendHeader(b, r.Header, structRef, len(r.Payload), r.ArrayIndex)
	b = append(b, r.Payload...)
	if e.fw.Bytes(b) {
		e.err = e.fw.Err()
	}
}

// Field writes a record of the given tag with the narrowest size class for
// payload.
func (e *Encoder) Field(name string, tag Tag, payload []byte) {
	e.Record(Record{
		Name:    name,
		Header:  Header{Tag: tag, Size: ClassFor(len(payload))},
		Payload: payload,
	})
}

// Element writes a record of a static array element.
func (e *Encoder) Element(name string, tag Tag, index int, payload []byte) {
	e.Record(Record{
		Name:       name,
		Header:     Header{Tag: tag, Size: ClassFor(len(payload)), Array: index > 0},
		ArrayIndex: index,
		Payload:    payload,
	})
}

func (e *Encoder) Byte(name string, v uint8) {
	e.Field(name, TagByte, []byte{v})
}

func (e *Encoder) Int(name string, v int32) {
	e.Field(name, TagInt, binary.LittleEndian.AppendUint32(nil, uint32(v)))
}

// Bool writes a bool record. The value is held by the header, so the record
// has no payload.
func (e *Encoder) Bool(name string, v bool) {
	e.Record(Record{
		Name:   name,
		Header: Header{Tag: TagBool, Size: ClassFor(0), Array: v},
	})
}

func (e *Encoder) Float(name string, v float32) {
	e.Field(name, TagFloat, AppendFloats(nil, v))
}

// Object writes an object reference.
func (e *Encoder) Object(name string, ref int32) {
	e.Field(name, TagObject, compact.Bytes(ref))
}

// Name writes a name reference to value.
func (e *Encoder) Name(name, value string) {
	ref, ok := e.nameRef(value)
	if !ok {
		return
	}
	e.Field(name, TagName, compact.Bytes(ref))
}

func (e *Encoder) Str(name, value string) {
	e.Field(name, TagStr, AppendString(nil, value))
}

// Struct writes a struct record of the named structure.
func (e *Encoder) Struct(name, structName string, payload []byte) {
	e.Record(Record{
		Name:       name,
		Header:     Header{Tag: TagStruct, Size: ClassFor(len(payload))},
		StructName: structName,
		Payload:    payload,
	})
}

// Vector writes a native Vector struct.
func (e *Encoder) Vector(name string, x, y, z float32) {
	e.Struct(name, "Vector", AppendFloats(nil, x, y, z))
}

// Rotator writes a native Rotator struct.
func (e *Encoder) Rotator(name string, pitch, yaw, roll int32) {
	b := make([]byte, 0, 12)
	for _, v := range [...]int32{pitch, yaw, roll} {
		b = binary.LittleEndian.AppendUint32(b, uint32(v))
	}
	e.Struct(name, "Rotator", b)
}

// Array writes a dynamic array record from its encoded payload.
func (e *Encoder) Array(name string, payload []byte) {
	e.Field(name, TagArray, payload)
}

// End terminates the property list and returns its encoding.
func (e *Encoder) End() ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}
	ref, ok := e.nameRef("None")
	if !ok {
		return nil, e.err
	}
	if compact.Write(e.fw, ref) {
		return nil, e.fw.Err()
	}
	return e.buf.Bytes(), nil
}

// AppendFloats appends the little-endian encoding of each value.
func AppendFloats(b []byte, v ...float32) []byte {
	for _, f := range v {
		b = binary.LittleEndian.AppendUint32(b, math.Float32bits(f))
	}
	return b
}

// AppendString appends a string in the format of Str payloads: a compact
// length that includes the terminator, followed by the characters. Strings
// that fit in Latin-1 are stored one byte per character; others are stored as
// UTF-16 with a negated length.
func AppendString(b []byte, s string) []byte {
	runes := []rune(s)
	wide := false
	for _, r := range runes {
		if r > 0xFF {
			wide = true
			break
		}
	}
	if !wide {
		b = compact.Append(b, int32(len(runes)+1))
		for _, r := range runes {
			b = append(b, byte(r))
		}
		return append(b, 0)
	}
	units := utf16.Encode(runes)
	b = compact.Append(b, -int32(len(units)+1))
	for _, u := range units {
		b = binary.LittleEndian.AppendUint16(b, u)
	}
	return append(b, 0, 0)
}

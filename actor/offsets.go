// Package actor patches the data of placed static mesh actors without
// decoding and reencoding their property lists.
//
// A single scan records where each known property is located. Fixed width
// properties are then overwritten in place. Variable width properties are
// rebuilt, and the recorded offsets after them are shifted.
package actor

import (
	"fmt"
	"strings"

	"github.com/upkedit/upkedit/compact"
	"github.com/upkedit/upkedit/props"
)

// Field is a property whose location is recorded by a scan.
type Field int

const (
	StaticMesh Field = iota
	Location
	ColLocation
	BasePos
	Rotation
	SwayRotationOrig
	BaseRot
	DrawScale
	DrawScale3D
	RotationRate
	ZoneRenderState

	NumFields
)

var fieldNames = [NumFields]string{
	StaticMesh:       "StaticMesh",
	Location:         "Location",
	ColLocation:      "ColLocation",
	BasePos:          "BasePos",
	Rotation:         "Rotation",
	SwayRotationOrig: "SwayRotationOrig",
	BaseRot:          "BaseRot",
	DrawScale:        "DrawScale",
	DrawScale3D:      "DrawScale3D",
	RotationRate:     "RotationRate",
	ZoneRenderState:  "ZoneRenderState",
}

// Payload widths of fixed width fields.
var fieldWidths = [NumFields]int{
	Location:         12,
	ColLocation:      12,
	BasePos:          12,
	Rotation:         12,
	SwayRotationOrig: 12,
	BaseRot:          12,
	DrawScale:        4,
	DrawScale3D:      12,
	RotationRate:     12,
}

func (f Field) String() string {
	if 0 <= f && f < NumFields {
		return fieldNames[f]
	}
	return fmt.Sprintf("Field(%d)", int(f))
}

func fieldByName(name string) (Field, bool) {
	for f, n := range fieldNames {
		if strings.EqualFold(n, name) {
			return Field(f), true
		}
	}
	return 0, false
}

// Span is the location of a property record.
type Span struct {
	// HeaderOffset is the offset of the info byte.
	HeaderOffset int

	// Offset is the offset of the payload. Zero when the field is absent.
	Offset int

	// Width is the payload width.
	Width int

	Header     props.Header
	StructRef  int32
	ArrayIndex int
}

// End returns the offset just past the payload.
func (s Span) End() int {
	return s.Offset + s.Width
}

// Offsets records the location of each field within actor data.
type Offsets struct {
	Fields [NumFields]Span

	// ZoneRenderStateCount is the number of zone render states found by the
	// scan.
	ZoneRenderStateCount int

	// End is the offset just past the property list.
	End int
}

// Present returns whether the field occurs in the data.
func (o *Offsets) Present(f Field) bool {
	return o.Fields[f].Offset != 0
}

// Offset returns the payload offset of the field, or 0 if it is absent.
func (o *Offsets) Offset(f Field) int {
	return o.Fields[f].Offset
}

// shift moves every present field located at or after pos by delta.
func (o *Offsets) shift(pos, delta int) {
	for f := range o.Fields {
		s := &o.Fields[f]
		if s.Offset == 0 || s.HeaderOffset < pos {
			continue
		}
		s.HeaderOffset += delta
		s.Offset += delta
	}
	if o.End >= pos {
		o.End += delta
	}
}

func (o Offsets) String() string {
	var b strings.Builder
	b.WriteString("Offsets{")
	for f, s := range o.Fields {
		if f > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=0x%X", Field(f), s.Offset)
		if Field(f) == StaticMesh {
			fmt.Fprintf(&b, ", meshSize=%d", s.Width)
		}
	}
	fmt.Fprintf(&b, ", zoneRenderStateCount=%d}", o.ZoneRenderStateCount)
	return b.String()
}

// Scan records the location of each field in the property list starting at
// offset start of blob. Only the first record of each field is used.
func Scan(blob []byte, start int, names props.NameTable) (*Offsets, error) {
	o := &Offsets{}
	end, err := props.Scan(blob, start, names, func(r props.Record) error {
		f, ok := fieldByName(r.Name)
		if !ok || o.Fields[f].Offset != 0 {
			return nil
		}
		if w := fieldWidths[f]; w != 0 && len(r.Payload) != w {
			return props.DataError{Property: r.Name, Offset: int64(r.Offset), Cause: fmt.Errorf("width %d, expected %d: %w", len(r.Payload), w, ErrLayout)}
		}
		switch f {
		case StaticMesh:
			if _, n, err := compact.Decode(r.Payload); err != nil || n != len(r.Payload) {
				return props.DataError{Property: r.Name, Offset: int64(r.Offset), Cause: ErrLayout}
			}
		case ZoneRenderState:
			count, err := zoneStates(r.Payload)
			if err != nil {
				return props.DataError{Property: r.Name, Offset: int64(r.Offset), Cause: err}
			}
			o.ZoneRenderStateCount = len(count)
		}
		o.Fields[f] = Span{
			HeaderOffset: r.HeaderOffset,
			Offset:       r.Offset,
			Width:        len(r.Payload),
			Header:       r.Header,
			StructRef:    r.StructRef,
			ArrayIndex:   r.ArrayIndex,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	o.End = end
	return o, nil
}

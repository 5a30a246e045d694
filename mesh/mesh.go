// Package mesh reads the geometry of static mesh objects.
//
// The data of a static mesh is a property list followed by a positional
// layout. Material references are taken from the Materials property, since
// the positional layout does not hold them.
package mesh

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/anaminus/parse"
	"github.com/upkedit/upkedit"
	"github.com/upkedit/upkedit/compact"
	"github.com/upkedit/upkedit/errors"
	"github.com/upkedit/upkedit/props"
)

type Vector struct {
	X, Y, Z float32
}

type Box struct {
	Min, Max Vector
	Valid    uint8
}

type Sphere struct {
	Center Vector
	Radius float32
}

// Section is a range of faces drawn with one material.
type Section struct {
	F4          int32
	FirstIndex  uint16
	FirstVertex uint16
	LastVertex  uint16
	FE          uint16
	NumFaces    uint16
}

type Vertex struct {
	Position Vector
	Normal   Vector
}

type VertexStream struct {
	Vertices []Vertex
	Revision int32
}

type Color struct {
	R, G, B, A uint8
}

type ColorStream struct {
	Colors   []Color
	Revision int32
}

type UV struct {
	U, V float32
}

type UVStream struct {
	Data []UV
	F10  int32
	F1C  int32
}

type IndexBuffer struct {
	Indices  []uint16
	Revision int32
}

// Material identifies the material of a section.
type Material struct {
	FullName  string
	ClassName string
}

// StaticMesh is the geometry of a static mesh.
type StaticMesh struct {
	// Materials holds one entry per element of the Materials property, in
	// order. Elements without a material are nil.
	Materials []*Material

	BoundingBox    Box
	BoundingSphere Sphere
	Sections       []Section
	BoundingBox2   Box
	VertexStream   VertexStream
	ColorStream1   ColorStream
	ColorStream2   ColorStream
	UVStreams      []UVStream
	IndexBuffer1   IndexBuffer
	IndexBuffer2   IndexBuffer
}

// Package resolves the names and object references of a static mesh.
type Package interface {
	props.NameTable
	ObjectReference(ref int32) (upkedit.Entry, error)
}

// Read reads a static mesh from its raw data.
//
// Unreadable material slots are reported in warn. If the geometry cannot be
// read, the fields read so far are returned together with the error.
func Read(blob []byte, pkg Package) (mesh *StaticMesh, warn, err error) {
	mesh = &StaticMesh{}
	var warns errors.Errors
	end, err := props.Scan(blob, 0, pkg, func(r props.Record) error {
		if !strings.EqualFold(r.Name, "Materials") {
			return nil
		}
		materials, w, err := readMaterials(r, pkg)
		warns = warns.Append(w...)
		if err != nil {
			return err
		}
		mesh.Materials = materials
		return nil
	})
	if err != nil {
		return nil, warns.Return(), err
	}

	g := &reader{
		fr:   parse.NewBinaryReader(bytes.NewReader(blob[end:])),
		base: int64(end),
		size: int64(len(blob) - end),
	}
	g.geometry(mesh)
	return mesh, warns.Return(), g.err
}

// readMaterials reads the Materials array: a compact count followed by a
// property list per element.
func readMaterials(r props.Record, pkg Package) (materials []*Material, warn []error, err error) {
	if r.Header.Tag != props.TagArray {
		return nil, []error{LayoutError{Slot: -1, Property: r.Name, Cause: props.LayoutError{Property: r.Name, Tag: r.Header.Tag}}}, nil
	}
	count, n, err := compact.Decode(r.Payload)
	if err != nil {
		return nil, nil, props.DataError{Property: r.Name, Offset: int64(r.Offset), Cause: err}
	}
	if count < 0 || int(count) > len(r.Payload)-n {
		return nil, nil, props.DataError{Property: r.Name, Offset: int64(r.Offset), Cause: fmt.Errorf("%d elements: %w", count, errors.ErrMalformed)}
	}
	materials = make([]*Material, count)
	s := props.NewScanner(r.Payload, n, pkg)
	for i := range materials {
		for s.Next() {
			rec := s.Record()
			if !strings.EqualFold(rec.Name, "Material") {
				continue
			}
			if rec.Header.Tag != props.TagObject {
				warn = append(warn, LayoutError{Slot: i, Property: rec.Name, Cause: props.LayoutError{Property: rec.Name, Tag: rec.Header.Tag}})
				continue
			}
			ref, _, err := compact.Decode(rec.Payload)
			if err != nil {
				warn = append(warn, LayoutError{Slot: i, Property: rec.Name, Cause: err})
				continue
			}
			e, err := pkg.ObjectReference(ref)
			if err != nil {
				return nil, warn, err
			}
			if e != nil {
				materials[i] = &Material{FullName: e.ObjectFullName(), ClassName: e.FullClassName()}
			}
		}
		if err := s.Err(); err != nil {
			// The remaining slots cannot be located.
			warn = append(warn, LayoutError{Slot: i, Property: r.Name, Cause: err})
			break
		}
		s = props.NewScanner(r.Payload, s.Offset(), pkg)
	}
	return materials, warn, nil
}

////////////////////////////////////////////////////////////////

// reader reads the positional layout. After a failure, further reads do
// nothing.
type reader struct {
	fr   *parse.BinaryReader
	base int64
	size int64
	err  error
}

func (r *reader) fail(field string, start int64) {
	if r.err == nil {
		cause := r.fr.Err()
		if cause == nil {
			cause = errors.ErrMalformed
		}
		r.err = FieldError{Field: field, Offset: r.base + start, Cause: cause}
	}
}

// count reads an array length, checking that elem-sized elements fit in the
// remaining data.
func (r *reader) count(field string, elem int64) int {
	if r.err != nil {
		return 0
	}
	start := r.fr.N()
	var n int32
	if compact.Read(r.fr, &n) {
		r.fail(field, start)
		return 0
	}
	if n < 0 || int64(n)*elem > r.size-r.fr.N() {
		r.fr.Add(0, fmt.Errorf("%d elements exceed data: %w", n, errors.ErrMalformed))
		r.fail(field, start)
		return 0
	}
	return int(n)
}

func (r *reader) number(field string, v interface{}) {
	if r.err != nil {
		return
	}
	start := r.fr.N()
	if r.fr.Number(v) {
		r.fail(field, start)
	}
}

func (r *reader) vector(field string, v *Vector) {
	r.number(field, &v.X)
	r.number(field, &v.Y)
	r.number(field, &v.Z)
}

func (r *reader) box(field string, b *Box) {
	r.vector(field, &b.Min)
	r.vector(field, &b.Max)
	r.number(field, &b.Valid)
}

func (r *reader) geometry(m *StaticMesh) {
	r.box("BoundingBox", &m.BoundingBox)
	r.vector("BoundingSphere", &m.BoundingSphere.Center)
	r.number("BoundingSphere", &m.BoundingSphere.Radius)

	if n := r.count("Sections", 14); n > 0 {
		m.Sections = make([]Section, n)
		for i := range m.Sections {
			s := &m.Sections[i]
			r.number("Sections", &s.F4)
			r.number("Sections", &s.FirstIndex)
			r.number("Sections", &s.FirstVertex)
			r.number("Sections", &s.LastVertex)
			r.number("Sections", &s.FE)
			r.number("Sections", &s.NumFaces)
		}
	}

	r.box("BoundingBox2", &m.BoundingBox2)

	if n := r.count("VertexStream", 24); n > 0 {
		m.VertexStream.Vertices = make([]Vertex, n)
		for i := range m.VertexStream.Vertices {
			v := &m.VertexStream.Vertices[i]
			r.vector("VertexStream", &v.Position)
			r.vector("VertexStream", &v.Normal)
		}
	}
	r.number("VertexStream", &m.VertexStream.Revision)

	r.colors("ColorStream1", &m.ColorStream1)
	r.colors("ColorStream2", &m.ColorStream2)

	if n := r.count("UVStreams", 9); n > 0 {
		m.UVStreams = make([]UVStream, n)
		for i := range m.UVStreams {
			s := &m.UVStreams[i]
			if n := r.count("UVStreams", 8); n > 0 {
				s.Data = make([]UV, n)
				for j := range s.Data {
					r.number("UVStreams", &s.Data[j].U)
					r.number("UVStreams", &s.Data[j].V)
				}
			}
			r.number("UVStreams", &s.F10)
			r.number("UVStreams", &s.F1C)
		}
	}

	r.indices("IndexBuffer1", &m.IndexBuffer1)
	r.indices("IndexBuffer2", &m.IndexBuffer2)
}

func (r *reader) colors(field string, s *ColorStream) {
	if n := r.count(field, 4); n > 0 {
		s.Colors = make([]Color, n)
		for i := range s.Colors {
			c := &s.Colors[i]
			r.number(field, &c.R)
			r.number(field, &c.G)
			r.number(field, &c.B)
			r.number(field, &c.A)
		}
	}
	r.number(field, &s.Revision)
}

func (r *reader) indices(field string, b *IndexBuffer) {
	if n := r.count(field, 2); n > 0 {
		b.Indices = make([]uint16, n)
		for i := range b.Indices {
			r.number(field, &b.Indices[i])
		}
	}
	r.number(field, &b.Revision)
}

package mesh

import (
	"encoding/binary"
	"testing"

	"github.com/upkedit/upkedit"
	"github.com/upkedit/upkedit/compact"
	"github.com/upkedit/upkedit/errors"
	"github.com/upkedit/upkedit/props"
)

func testPackage() *upkedit.Package {
	return upkedit.NewPackage("MeshPkg",
		[]string{"None", "Materials", "Material", "EnableCollision", "SomeInt"},
		[]*upkedit.ImportEntry{
			{ClassPackage: "Core", Class: "Package", Name: "T_Rocks"},
			{ClassPackage: "Engine", Class: "Shader", Outer: -1, Name: "Rock01"},
			{ClassPackage: "Core", Class: "Class", Outer: -4, Name: "Texture"},
			{ClassPackage: "Core", Class: "Package", Name: "Engine"},
		},
		[]*upkedit.ExportEntry{
			{Class: -3, Name: "LocalTex"},
		},
	)
}

func element(t *testing.T, pkg *upkedit.Package, fn func(e *props.Encoder)) []byte {
	t.Helper()
	e := props.NewEncoder(pkg)
	fn(e)
	b, err := e.End()
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func materialsBlob(t *testing.T, pkg *upkedit.Package, elements ...[]byte) []byte {
	payload := compact.Bytes(int32(len(elements)))
	for _, e := range elements {
		payload = append(payload, e...)
	}
	return element(t, pkg, func(e *props.Encoder) {
		e.Int("SomeInt", 5)
		e.Array("Materials", payload)
	})
}

func u16(b []byte, v ...uint16) []byte {
	for _, x := range v {
		b = binary.LittleEndian.AppendUint16(b, x)
	}
	return b
}

func i32(b []byte, v ...int32) []byte {
	for _, x := range v {
		b = binary.LittleEndian.AppendUint32(b, uint32(x))
	}
	return b
}

func geometry() []byte {
	var b []byte
	b = props.AppendFloats(b, -1, -2, -3, 1, 2, 3) // BoundingBox
	b = append(b, 1)
	b = props.AppendFloats(b, 0, 0, 0, 4) // BoundingSphere
	b = compact.Append(b, 1)              // Sections
	b = i32(b, 7)
	b = u16(b, 0, 0, 2, 0, 1)
	b = props.AppendFloats(b, -1, -2, -3, 1, 2, 3) // BoundingBox2
	b = append(b, 0)
	b = compact.Append(b, 2) // VertexStream
	b = props.AppendFloats(b, 1, 0, 0, 0, 0, 1)
	b = props.AppendFloats(b, 0, 1, 0, 0, 0, 1)
	b = i32(b, 11)
	b = compact.Append(b, 1) // ColorStream1
	b = append(b, 10, 20, 30, 255)
	b = i32(b, 12)
	b = compact.Append(b, 0) // ColorStream2
	b = i32(b, 13)
	b = compact.Append(b, 1) // UVStreams
	b = compact.Append(b, 2)
	b = props.AppendFloats(b, 0, 0.5, 1, 0.25)
	b = i32(b, 14, 15)
	b = compact.Append(b, 3) // IndexBuffer1
	b = u16(b, 0, 1, 2)
	b = i32(b, 16)
	b = compact.Append(b, 0) // IndexBuffer2
	b = i32(b, 17)
	return b
}

func TestReadMaterials(t *testing.T) {
	pkg := testPackage()
	blob := materialsBlob(t, pkg,
		element(t, pkg, func(e *props.Encoder) {
			e.Object("Material", -2)
			e.Bool("EnableCollision", true)
		}),
		element(t, pkg, func(e *props.Encoder) {
			e.Object("Material", 0)
		}),
		element(t, pkg, func(e *props.Encoder) {
			e.Bool("EnableCollision", false)
			e.Object("Material", 1)
		}),
	)
	blob = append(blob, geometry()...)

	mesh, warn, err := Read(blob, pkg)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if warn != nil {
		t.Errorf("unexpected warning: %s", warn)
	}
	if len(mesh.Materials) != 3 {
		t.Fatalf("expected 3 materials, got %d", len(mesh.Materials))
	}
	if m := mesh.Materials[0]; m == nil || *m != (Material{"T_Rocks.Rock01", "Engine.Shader"}) {
		t.Errorf("slot 0: got %+v", m)
	}
	if m := mesh.Materials[1]; m != nil {
		t.Errorf("slot 1: expected nil, got %+v", m)
	}
	if m := mesh.Materials[2]; m == nil || *m != (Material{"MeshPkg.LocalTex", "Engine.Texture"}) {
		t.Errorf("slot 2: got %+v", m)
	}

	if mesh.BoundingBox.Max != (Vector{1, 2, 3}) || mesh.BoundingBox.Valid != 1 {
		t.Errorf("unexpected bounding box %+v", mesh.BoundingBox)
	}
	if mesh.BoundingSphere.Radius != 4 {
		t.Errorf("unexpected bounding sphere %+v", mesh.BoundingSphere)
	}
	if len(mesh.Sections) != 1 || mesh.Sections[0] != (Section{F4: 7, LastVertex: 2, NumFaces: 1}) {
		t.Errorf("unexpected sections %+v", mesh.Sections)
	}
	if len(mesh.VertexStream.Vertices) != 2 || mesh.VertexStream.Vertices[1].Position != (Vector{0, 1, 0}) || mesh.VertexStream.Revision != 11 {
		t.Errorf("unexpected vertex stream %+v", mesh.VertexStream)
	}
	if len(mesh.ColorStream1.Colors) != 1 || mesh.ColorStream1.Colors[0] != (Color{10, 20, 30, 255}) || mesh.ColorStream2.Revision != 13 {
		t.Errorf("unexpected color streams %+v %+v", mesh.ColorStream1, mesh.ColorStream2)
	}
	if len(mesh.UVStreams) != 1 || len(mesh.UVStreams[0].Data) != 2 || mesh.UVStreams[0].Data[1] != (UV{1, 0.25}) || mesh.UVStreams[0].F1C != 15 {
		t.Errorf("unexpected uv streams %+v", mesh.UVStreams)
	}
	if len(mesh.IndexBuffer1.Indices) != 3 || mesh.IndexBuffer1.Indices[2] != 2 || mesh.IndexBuffer2.Revision != 17 {
		t.Errorf("unexpected index buffers %+v %+v", mesh.IndexBuffer1, mesh.IndexBuffer2)
	}
}

func TestReadMaterialLayoutWarning(t *testing.T) {
	pkg := testPackage()
	blob := materialsBlob(t, pkg,
		element(t, pkg, func(e *props.Encoder) {
			e.Int("Material", 3)
		}),
		element(t, pkg, func(e *props.Encoder) {
			e.Object("Material", -2)
		}),
	)
	blob = append(blob, geometry()...)

	mesh, warn, err := Read(blob, pkg)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if !errors.Is(warn, errors.ErrUnsupportedLayout) {
		t.Fatalf("expected unsupported layout warning, got %v", warn)
	}
	var lerr LayoutError
	if !errors.As(warn, &lerr) || lerr.Slot != 0 {
		t.Errorf("expected warning for slot 0, got %v", warn)
	}
	if len(mesh.Materials) != 2 || mesh.Materials[0] != nil || mesh.Materials[1] == nil {
		t.Errorf("unexpected materials %v", mesh.Materials)
	}
}

func TestReadTruncatedGeometry(t *testing.T) {
	pkg := testPackage()
	blob := materialsBlob(t, pkg)
	g := geometry()
	blob = append(blob, g[:42]...)

	mesh, _, err := Read(blob, pkg)
	if !errors.Is(err, errors.ErrMalformed) {
		t.Fatalf("expected malformed error, got %v", err)
	}
	var ferr FieldError
	if !errors.As(err, &ferr) || ferr.Field != "Sections" {
		t.Errorf("expected error in Sections, got %v", err)
	}
	if mesh == nil || mesh.BoundingSphere.Radius != 4 {
		t.Errorf("expected bounding volumes to be read, got %+v", mesh)
	}
	if len(mesh.Materials) != 0 {
		t.Errorf("expected no materials, got %d", len(mesh.Materials))
	}
}

func TestReadInvalidReference(t *testing.T) {
	pkg := testPackage()
	blob := materialsBlob(t, pkg, element(t, pkg, func(e *props.Encoder) {
		e.Object("Material", 9)
	}))
	if _, _, err := Read(blob, pkg); !errors.Is(err, errors.ErrInvariant) {
		t.Errorf("expected invariant error, got %v", err)
	}
}

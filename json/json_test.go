package json

import (
	"bytes"
	"testing"

	"github.com/upkedit/upkedit"
	"github.com/upkedit/upkedit/errors"
)

func TestRoundTrip(t *testing.T) {
	pkg := upkedit.NewPackage("MyLevel",
		[]string{"None", "Location"},
		[]*upkedit.ImportEntry{
			{ClassPackage: "Core", Class: "Package", Name: "Engine"},
			{ClassPackage: "Core", Class: "Class", Outer: -1, Name: "StaticMeshActor"},
		},
		[]*upkedit.ExportEntry{
			{Class: -2, Name: "StaticMeshActor0", Flags: upkedit.ObjectHasStack, Raw: []byte{0x00, 0xFF, 0x10}},
			{Class: -2, Outer: 1, Name: "Sub"},
		},
	)
	b, err := Encode(pkg)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Decode(b)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if got.Name != pkg.Name || len(got.Names) != 2 || got.Names[1] != "Location" {
		t.Errorf("unexpected package %s %v", got.Name, got.Names)
	}
	if len(got.Imports) != 2 || got.Imports[1].ObjectFullName() != "Engine.StaticMeshActor" {
		t.Errorf("unexpected imports %v", got.Imports)
	}
	if len(got.Exports) != 2 {
		t.Fatalf("expected 2 exports, got %d", len(got.Exports))
	}
	e := got.Exports[0]
	if e.Flags != upkedit.ObjectHasStack || !bytes.Equal(e.Raw, []byte{0x00, 0xFF, 0x10}) || e.FullClassName() != "Engine.StaticMeshActor" {
		t.Errorf("unexpected export %+v", e)
	}
	if got.Exports[1].ObjectFullName() != "MyLevel.StaticMeshActor0.Sub" {
		t.Errorf("unexpected full name %s", got.Exports[1].ObjectFullName())
	}
}

func TestDecodeInvalid(t *testing.T) {
	for _, input := range []string{
		`{"upkedit_version":1,"name":"A","names":[],"imports":[],"exports":[]}`,
		`{"upkedit_version":0,"names":[],"imports":[],"exports":[]}`,
		`{"upkedit_version":0,"name":"A","names":[1],"imports":[],"exports":[]}`,
		`{"upkedit_version":0,"name":"A","names":[],"imports":[],"exports":[{"class":-1,"name":"X","raw":"!"}]}`,
		`{"upkedit_version":0,"name":"A","names":[],"imports":[],"exports":[{"class":0.5,"name":"X"}]}`,
	} {
		if _, err := Decode([]byte(input)); !errors.Is(err, errors.ErrMalformed) {
			t.Errorf("%s: expected malformed error, got %v", input, err)
		}
	}
}

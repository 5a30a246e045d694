package declare_test

import (
	"fmt"
	"testing"

	"github.com/upkedit/upkedit"
	"github.com/upkedit/upkedit/actor"
	. "github.com/upkedit/upkedit/declare"
)

func Example() {
	pkg := Package{
		Import("SM_Pack.Rock", "Engine.StaticMesh"),
		Export("myLevel", "Engine.Level"),
		Export("StaticMeshActor0", "Engine.StaticMeshActor", Frame(),
			Property("StaticMesh", Object, "SM_Pack.Rock"),
			Property("Level", Object, "myLevel"),
			Property("Tag", Name, "StaticMeshActor"),
			Property("Location", Vector, 0, 10, 0),
			Property("DrawScale", Float, 1.5),
		),
	}.Declare("MyLevel")
	for _, e := range pkg.Exports {
		fmt.Println(e.ObjectName(), e.FullClassName())
	}
	// Output:
	// myLevel Engine.Level
	// StaticMeshActor0 Engine.StaticMeshActor
}

func TestDeclare(t *testing.T) {
	pkg := Package{
		Import("SM_Pack.Rock", "Engine.StaticMesh"),
		Export("StaticMeshActor0", "Engine.StaticMeshActor", Frame(), Flags(upkedit.ObjectTransactional),
			Property("StaticMesh", Object, "SM_Pack.Rock"),
			Property("Location", Vector, 1, 2, 3),
			Property("Rotation", Rotator, 0, 16384, 0),
		),
		Export("Component0", "Engine.StaticMeshComponent", Outer("StaticMeshActor0"), Raw{0}),
	}.Declare("MyLevel")

	want := []struct {
		name  string
		class string
		outer int32
	}{
		{"SM_Pack", "Core.Package", 0},
		{"Rock", "Engine.StaticMesh", -1},
		{"Engine", "Core.Package", 0},
		{"StaticMeshActor", "Core.Class", -3},
		{"StaticMeshComponent", "Core.Class", -3},
	}
	if len(pkg.Imports) != len(want) {
		t.Fatalf("expected %d imports, got %d", len(want), len(pkg.Imports))
	}
	for i, w := range want {
		e := pkg.Imports[i]
		if e.Name != w.name || e.ClassPackage+"."+e.Class != w.class || e.Outer != w.outer {
			t.Errorf("import %d: unexpected %+v", i, e)
		}
	}

	smActor := pkg.Exports[0]
	if smActor.Flags != upkedit.ObjectTransactional|upkedit.ObjectHasStack {
		t.Errorf("unexpected flags %08X", smActor.Flags)
	}
	a, err := actor.Open(smActor, pkg)
	if err != nil {
		t.Fatal(err)
	}
	if ref, ok, _ := a.StaticMesh(); !ok || ref != -2 {
		t.Errorf("unexpected mesh reference %d", ref)
	}
	if v, _, _ := a.Location(); v != (actor.Vector{X: 1, Y: 2, Z: 3}) {
		t.Errorf("unexpected location %v", v)
	}
	if r, _, _ := a.Rotation(); r != (actor.Rotator{Yaw: 16384}) {
		t.Errorf("unexpected rotation %v", r)
	}

	component := pkg.Exports[1]
	if component.Outer != 1 || len(component.Raw) != 1 || component.ObjectFullName() != "MyLevel.StaticMeshActor0.Component0" {
		t.Errorf("unexpected component %+v %s", component, component.ObjectFullName())
	}
}

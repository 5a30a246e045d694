package actor

import (
	"bytes"
	"testing"

	"github.com/upkedit/upkedit"
	"github.com/upkedit/upkedit/errors"
	"github.com/upkedit/upkedit/props"
)

// testPackage returns a level with a level info and the imports needed to
// build actors.
//
//	-1 Engine          (Core.Package)
//	-2 StaticMeshActor (Core.Class, in Engine)
//	-3 LevelInfo       (Core.Class, in Engine)
//	-4 SM_Pack.Rock    (Engine.StaticMesh)
//	-5 SM_Pack         (Core.Package)
//	 1 LevelInfo0      (LevelInfo)
func testPackage() *upkedit.Package {
	names := append([]string{"None"}, RequiredNames(Params{Rotating: true, ZoneRenderState: true})...)
	names = append(names, "MapX", "MapY", "BasePos")
	return upkedit.NewPackage("MyLevel",
		names,
		[]*upkedit.ImportEntry{
			{ClassPackage: "Core", Class: "Package", Name: "Engine"},
			{ClassPackage: "Core", Class: "Class", Outer: -1, Name: "StaticMeshActor"},
			{ClassPackage: "Core", Class: "Class", Outer: -1, Name: "LevelInfo"},
			{ClassPackage: "Engine", Class: "StaticMesh", Outer: -5, Name: "Rock"},
			{ClassPackage: "Core", Class: "Package", Name: "SM_Pack"},
		},
		[]*upkedit.ExportEntry{
			{Class: -3, Name: "LevelInfo0"},
		},
	)
}

func build(t *testing.T, pkg *upkedit.Package, s Params) *Actor {
	t.Helper()
	b, err := Build(s, pkg)
	if err != nil {
		t.Fatalf("build: %s", err)
	}
	e := &upkedit.ExportEntry{Class: s.Class, Name: "StaticMeshActor0", Flags: StaticMeshActorFlags, Raw: b}
	a, err := Open(e, pkg)
	if err != nil {
		t.Fatalf("open: %s", err)
	}
	return a
}

func TestBuildOffsets(t *testing.T) {
	pkg := testPackage()
	a := build(t, pkg, Params{Class: -2, StaticMesh: -4})
	o, err := a.Offsets()
	if err != nil {
		t.Fatal(err)
	}
	want := map[Field]int{
		StaticMesh:       17,
		Location:         30,
		ColLocation:      45,
		Rotation:         60,
		SwayRotationOrig: 75,
		DrawScale:        89,
		DrawScale3D:      96,
	}
	for f := Field(0); f < NumFields; f++ {
		if got := o.Offset(f); got != want[f] {
			t.Errorf("%s: expected offset %d, got %d", f, want[f], got)
		}
	}
	if o.End != 109 || len(a.Bytes()) != 109 {
		t.Errorf("expected end 109, got %d (len %d)", o.End, len(a.Bytes()))
	}

	frame, n, err := props.ReadStateFrame(a.Bytes())
	if err != nil || n != 15 {
		t.Fatalf("unexpected state frame %+v (%d bytes): %v", frame, n, err)
	}
	if frame != (props.StateFrame{Node: -2, StateNode: -2, ProbeMask: -1, Offset: -1}) {
		t.Errorf("unexpected state frame %+v", frame)
	}

	if ref, ok, err := a.StaticMesh(); err != nil || !ok || ref != -4 {
		t.Errorf("unexpected static mesh %d %v %v", ref, ok, err)
	}
	if s, ok, _ := a.DrawScale(); !ok || s != 1 {
		t.Errorf("unexpected draw scale %v", s)
	}
	if v, ok, _ := a.DrawScale3D(); !ok || v != (Vector{1, 1, 1}) {
		t.Errorf("unexpected draw scale 3D %v", v)
	}
	if _, ok, err := a.RotationRate(); ok || err != nil {
		t.Errorf("expected absent rotation rate, got %v %v", ok, err)
	}
}

func TestBuildRotating(t *testing.T) {
	pkg := testPackage()
	a := build(t, pkg, Params{Class: -2, StaticMesh: -4, Rotating: true, ZoneRenderState: true})
	if _, ok, err := a.RotationRate(); !ok || err != nil {
		t.Errorf("expected rotation rate, got %v %v", ok, err)
	}
	states, ok, err := a.ZoneRenderState()
	if !ok || err != nil || len(states) != 1 || states[0] != 1 {
		t.Errorf("unexpected zone render state %v %v %v", states, ok, err)
	}
	o, _ := a.Offsets()
	if o.ZoneRenderStateCount != 1 {
		t.Errorf("expected 1 zone render state, got %d", o.ZoneRenderStateCount)
	}
}

func TestBuildMissingLevelInfo(t *testing.T) {
	pkg := testPackage()
	pkg.Exports[0].Name = "LevelInfo1"
	if _, err := Build(Params{Class: -2, StaticMesh: -4}, pkg); !errors.Is(err, errors.ErrInvariant) {
		t.Errorf("expected invariant error, got %v", err)
	}
}

func TestSetStaticMeshGrow(t *testing.T) {
	pkg := testPackage()
	a := build(t, pkg, Params{Class: -2, StaticMesh: -4})
	before, _ := a.Offsets()
	old := append([]byte(nil), a.Bytes()...)

	if err := a.SetStaticMesh(-100); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if len(a.Bytes()) != len(old)+1 {
		t.Fatalf("expected length %d, got %d", len(old)+1, len(a.Bytes()))
	}
	if !bytes.Equal(a.Bytes()[:before.Fields[StaticMesh].HeaderOffset], old[:before.Fields[StaticMesh].HeaderOffset]) {
		t.Error("data before the property changed")
	}
	after, _ := a.Offsets()
	for f := Field(0); f < NumFields; f++ {
		want := before.Offset(f)
		if f != StaticMesh && want != 0 {
			want++
		}
		if got := after.Offset(f); got != want {
			t.Errorf("%s: expected offset %d, got %d", f, want, got)
		}
	}
	if ref, _, err := a.StaticMesh(); err != nil || ref != -100 {
		t.Errorf("expected -100, got %d: %v", ref, err)
	}

	// The shifted offsets agree with a fresh scan.
	if err := a.Rescan(); err != nil {
		t.Fatal(err)
	}
	if rescanned, _ := a.Offsets(); rescanned != after {
		t.Errorf("offsets differ from scan:\n%s\n%s", after, rescanned)
	}
	if v, ok, _ := a.DrawScale3D(); !ok || v != (Vector{1, 1, 1}) {
		t.Errorf("unexpected draw scale 3D %v", v)
	}
}

func TestSetStaticMeshSameWidth(t *testing.T) {
	a := build(t, testPackage(), Params{Class: -2, StaticMesh: -4})
	n := len(a.Bytes())
	if err := a.SetStaticMesh(1); err != nil {
		t.Fatal(err)
	}
	if len(a.Bytes()) != n || a.Stale() {
		t.Errorf("expected in-place write")
	}
	if ref, _, _ := a.StaticMesh(); ref != 1 {
		t.Errorf("expected 1, got %d", ref)
	}
}

func TestSetLocation(t *testing.T) {
	a := build(t, testPackage(), Params{Class: -2, StaticMesh: -4})
	n := len(a.Bytes())
	v := Vector{100, -25.5, 3}
	if err := a.SetLocation(v); err != nil {
		t.Fatal(err)
	}
	if len(a.Bytes()) != n {
		t.Errorf("length changed from %d to %d", n, len(a.Bytes()))
	}
	if got, ok, err := a.Location(); !ok || err != nil || got != v {
		t.Errorf("expected %v, got %v %v %v", v, got, ok, err)
	}
	o, _ := a.Offsets()
	if got := a.vector(ColLocation); got != v {
		t.Errorf("expected ColLocation %v, got %v", v, got)
	}
	if o.Present(BasePos) {
		t.Error("BasePos must stay absent")
	}

	r := Rotator{16384, -1, 0}
	if err := a.SetRotation(r); err != nil {
		t.Fatal(err)
	}
	if got, _, _ := a.Rotation(); got != r {
		t.Errorf("expected %v, got %v", r, got)
	}
	if got := a.rotator(SwayRotationOrig); got != r {
		t.Errorf("expected SwayRotationOrig %v, got %v", r, got)
	}
}

func TestLocationFallback(t *testing.T) {
	pkg := testPackage()
	e := props.NewEncoder(pkg)
	e.Vector("ColLocation", 1, 2, 3)
	b, err := e.End()
	if err != nil {
		t.Fatal(err)
	}
	a, err := New(b, 0, pkg)
	if err != nil {
		t.Fatal(err)
	}
	if v, ok, err := a.Location(); !ok || err != nil || v != (Vector{1, 2, 3}) {
		t.Errorf("expected fallback to ColLocation, got %v %v %v", v, ok, err)
	}
	if _, ok, err := a.Rotation(); ok || err != nil {
		t.Errorf("expected absent rotation, got %v %v", ok, err)
	}
	old := append([]byte(nil), a.Bytes()...)
	for _, err := range []error{
		a.SetRotation(Rotator{1, 2, 3}),
		a.SetRotationRate(Rotator{1, 2, 3}),
		a.SetDrawScale(2),
		a.SetStaticMesh(5),
		a.SetZoneRenderState(nil),
	} {
		if !errors.Is(err, ErrAbsent) {
			t.Errorf("expected absent error, got %v", err)
		}
	}
	if !bytes.Equal(old, a.Bytes()) {
		t.Error("failed writes modified the data")
	}
}

func TestZoneRenderStateResize(t *testing.T) {
	a := build(t, testPackage(), Params{Class: -2, StaticMesh: -4, ZoneRenderState: true})
	n := len(a.Bytes())

	if err := a.SetZoneRenderState([]int32{7}); err != nil {
		t.Fatal(err)
	}
	if a.Stale() || len(a.Bytes()) != n {
		t.Fatal("same count write must be in place")
	}

	if err := a.SetZoneRenderState([]int32{7, 8}); err != nil {
		t.Fatal(err)
	}
	if len(a.Bytes()) != n+4 {
		t.Errorf("expected length %d, got %d", n+4, len(a.Bytes()))
	}
	if !a.Stale() {
		t.Fatal("expected stale offsets")
	}
	if _, _, err := a.Location(); !errors.Is(err, ErrStaleOffsets) {
		t.Errorf("expected stale error, got %v", err)
	}
	if err := a.SetDrawScale(2); !errors.Is(err, ErrStaleOffsets) {
		t.Errorf("expected stale error, got %v", err)
	}
	if _, err := a.Offsets(); !errors.Is(err, ErrStaleOffsets) {
		t.Errorf("expected stale error, got %v", err)
	}

	if err := a.Rescan(); err != nil {
		t.Fatal(err)
	}
	states, _, err := a.ZoneRenderState()
	if err != nil || len(states) != 2 || states[0] != 7 || states[1] != 8 {
		t.Errorf("unexpected states %v: %v", states, err)
	}
	if s, ok, _ := a.DrawScale(); !ok || s != 1 {
		t.Errorf("unexpected draw scale %v", s)
	}
}

func TestScanBadWidth(t *testing.T) {
	pkg := testPackage()
	e := props.NewEncoder(pkg)
	e.Float("Location", 1)
	b, err := e.End()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Scan(b, 0, pkg); !errors.Is(err, errors.ErrMalformed) {
		t.Errorf("expected malformed error, got %v", err)
	}
}

func TestNextName(t *testing.T) {
	pkg := upkedit.NewPackage("MyLevel", nil, nil, []*upkedit.ExportEntry{
		{Name: "StaticMeshActor0"},
		{Name: "StaticMeshActor7"},
		{Name: "StaticMeshActorX"},
		{Name: "Light12a"},
	})
	if got := NextName(pkg, "StaticMeshActor"); got != "StaticMeshActor8" {
		t.Errorf("expected StaticMeshActor8, got %s", got)
	}
	if got := NextName(pkg, "Light"); got != "Light0" {
		t.Errorf("expected Light0, got %s", got)
	}
}

func TestAppendToLevel(t *testing.T) {
	level := []byte{
		0x00,       // None
		5, 0, 0, 0, // first list
		2, 0, 0, 0,
		0x01, 0x02,
		3, 0, 0, 0, // actor list
		3, 0, 0, 0,
		0x03, 0x04, 0x05,
		0xAA,
	}
	got, err := AppendToLevel(level, 300)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{
		0x00,
		5, 0, 0, 0,
		2, 0, 0, 0,
		0x01, 0x02,
		4, 0, 0, 0,
		4, 0, 0, 0,
		0x03, 0x04, 0x05,
		0x6C, 0x04,
		0xAA,
	}
	if !bytes.Equal(got, want) {
		t.Errorf("unexpected level\n% X\nexpected\n% X", got, want)
	}
	if level[11] != 3 {
		t.Error("input was modified")
	}

	if _, err := AppendToLevel(level[:12], 1); !errors.Is(err, errors.ErrMalformed) {
		t.Errorf("expected malformed error, got %v", err)
	}
}

func TestMapCoords(t *testing.T) {
	pkg := testPackage()
	e := props.NewEncoder(pkg)
	e.Int("MapX", 20)
	e.Int("MapY", 18)
	b, err := e.End()
	if err != nil {
		t.Fatal(err)
	}
	x, y, err := MapCoords(b, 0, pkg)
	if err != nil || x != 20 || y != 18 {
		t.Fatalf("unexpected coords %d %d: %v", x, y, err)
	}
	if id := MapID(x, y); id != 20|18<<8 {
		t.Errorf("unexpected map id %d", id)
	}
}

func TestNear(t *testing.T) {
	pkg := testPackage()
	for _, loc := range []Vector{{100, 0, 0}, {10, 0, 500}, {-3, 4, 0}} {
		a := build(t, pkg, Params{Class: -2, StaticMesh: -4})
		if err := a.SetLocation(loc); err != nil {
			t.Fatal(err)
		}
		pkg.Exports = append(pkg.Exports, &upkedit.ExportEntry{
			Class: -2,
			Name:  NextName(pkg, "StaticMeshActor"),
			Flags: StaticMeshActorFlags,
			Raw:   a.Bytes(),
		})
		pkg = upkedit.NewPackage(pkg.Name, pkg.Names, pkg.Imports, pkg.Exports)
	}
	pkg.Exports = append(pkg.Exports, &upkedit.ExportEntry{Class: -2, Name: "Broken", Flags: StaticMeshActorFlags, Raw: []byte{1}})
	pkg = upkedit.NewPackage(pkg.Name, pkg.Names, pkg.Imports, pkg.Exports)

	var x, y float64
	list, warn := Near(pkg, "Engine.StaticMeshActor", &x, &y, nil, 50)
	if warn == nil {
		t.Error("expected warning for broken actor")
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 actors, got %d", len(list))
	}
	if list[0].Export.Name != "StaticMeshActor2" || list[0].Range != 5 {
		t.Errorf("unexpected nearest %s at %g", list[0].Export.Name, list[0].Range)
	}
	if list[1].Export.Name != "StaticMeshActor1" || list[1].Range != 10 {
		t.Errorf("unexpected second %s at %g", list[1].Export.Name, list[1].Range)
	}

	all, _ := Near(pkg, "", nil, nil, nil, -1)
	if len(all) != 3 {
		t.Errorf("expected 3 actors, got %d", len(all))
	}
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/upkedit/upkedit/actor"
	upkjson "github.com/upkedit/upkedit/json"
)

func TestParseVector(t *testing.T) {
	v, err := parseVector("1, -2.5,3")
	if err != nil {
		t.Fatal(err)
	}
	if v != (actor.Vector{X: 1, Y: -2.5, Z: 3}) {
		t.Errorf("unexpected vector %v", v)
	}
	for _, s := range []string{"", "1,2", "1,2,3,4", "a,b,c"} {
		if _, err := parseVector(s); err == nil {
			t.Errorf("%q: expected error", s)
		}
	}
}

func TestParseRotator(t *testing.T) {
	r, err := parseRotator("16384,0,-100")
	if err != nil {
		t.Fatal(err)
	}
	if r != (actor.Rotator{Pitch: 16384, Roll: -100}) {
		t.Errorf("unexpected rotator %v", r)
	}
	if _, err := parseRotator("1.5,0,0"); err == nil {
		t.Error("expected error for fractional rotator")
	}
}

func TestParsePoint(t *testing.T) {
	x, y, z, err := parsePoint("10,*,")
	if err != nil {
		t.Fatal(err)
	}
	if x == nil || *x != 10 || y != nil || z != nil {
		t.Errorf("unexpected point %v %v %v", x, y, z)
	}
	x, y, z, err = parsePoint("")
	if err != nil || x != nil || y != nil || z != nil {
		t.Errorf("expected empty point, got %v %v %v %v", x, y, z, err)
	}
	if _, _, _, err := parsePoint("1,2,3,4"); err == nil {
		t.Error("expected error")
	}
}

// writeLevel writes an empty level in JSON format and returns its path.
func writeLevel(t *testing.T, dir string) string {
	t.Helper()
	b, err := upkjson.Encode(emptyLevel("MyLevel"))
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "level.json")
	if err := os.WriteFile(path, b, 0666); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestInit(t *testing.T) {
	a := &app{}
	t.Cleanup(a.close)
	run(t, a, "--db", filepath.Join(t.TempDir(), "new.db"), "init", "NewLevel")
	if out := run(t, a, "actor", "add", "SM_Pack.Rock"); out != "StaticMeshActor0\n" {
		t.Fatalf("unexpected add output %q", out)
	}
	pkg, err := a.store.Snapshot(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if pkg.Name != "NewLevel" || len(pkg.Exports) != 3 {
		t.Errorf("unexpected package %s with %d exports", pkg.Name, len(pkg.Exports))
	}
	if level := pkg.ExportByName("myLevel").Raw; level[9] != 1 || level[13] != 1 {
		t.Errorf("actor not added to level: % X", level)
	}
}

// testApp is an app with an imported level holding one actor at (1,2,3).
func testApp(t *testing.T) *app {
	t.Helper()
	dir := t.TempDir()
	a := &app{}
	t.Cleanup(a.close)
	db := filepath.Join(dir, "level.db")
	run(t, a, "--db", db, "import", writeLevel(t, dir))
	if out := run(t, a, "actor", "add", "SM_Pack.Rock", "--location", "1,2,3"); out != "StaticMeshActor0\n" {
		t.Fatalf("unexpected add output %q", out)
	}
	return a
}

// run executes a command line and returns its output.
func run(t *testing.T, a *app, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&out)
	if err := root.Execute(); err != nil {
		t.Fatalf("%v: %s\n%s", args, err, out.String())
	}
	return out.String()
}

func TestActorCommands(t *testing.T) {
	a := testApp(t)

	out := run(t, a, "actor", "get", "StaticMeshActor0")
	for _, want := range []string{"StaticMesh=SM_Pack.Rock", "Location=(X=1,Y=2,Z=3)", "DrawScale=1"} {
		if !strings.Contains(out, want) {
			t.Errorf("get output missing %q:\n%s", want, out)
		}
	}

	run(t, a, "actor", "set", "StaticMeshActor0", "--location", "4,5,6", "--scale", "2")
	out = run(t, a, "actor", "get", "StaticMeshActor0")
	if !strings.Contains(out, "Location=(X=4,Y=5,Z=6)") || !strings.Contains(out, "DrawScale=2") {
		t.Errorf("unexpected output after set:\n%s", out)
	}

	if out := run(t, a, "actor", "copy", "StaticMeshActor0"); out != "StaticMeshActor1\n" {
		t.Errorf("unexpected copy output %q", out)
	}
	run(t, a, "batch", "move", "--offset", "10,0,0", "--no-progress")
	out = run(t, a, "actor", "near", "14,5,6", "--radius", "1")
	if strings.Count(out, "\n") != 2 {
		t.Errorf("expected both actors near the moved point:\n%s", out)
	}

	backups := run(t, a, "backups")
	if strings.Count(backups, "\n") == 0 {
		t.Error("expected backups")
	}
}

func TestStat(t *testing.T) {
	a := testApp(t)
	var stats struct {
		ExportCount int
		ClassCount  map[string]int
		StructCount map[string]int
		Unreadable  []string
	}
	if err := json.Unmarshal([]byte(run(t, a, "stat")), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.ExportCount != 3 || stats.ClassCount["Engine.StaticMeshActor"] != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if len(stats.Unreadable) != 0 {
		t.Errorf("unexpected unreadable exports %v", stats.Unreadable)
	}
	if stats.StructCount["Vector"] != 3 || stats.StructCount["Rotator"] != 2 {
		t.Errorf("unexpected struct counts %v", stats.StructCount)
	}
}

func TestShell(t *testing.T) {
	a := testApp(t)
	var out bytes.Buffer
	root := a.rootCommand()
	root.SetArgs([]string{"shell"})
	root.SetIn(strings.NewReader("actor get 'StaticMeshActor0'\nunclosed 'quote\nexit\n"))
	root.SetOut(&out)
	root.SetErr(&out)
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Location=(X=1,Y=2,Z=3)") {
		t.Errorf("unexpected shell output:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "parse error") {
		t.Errorf("expected parse error:\n%s", out.String())
	}
}

func TestServer(t *testing.T) {
	a := testApp(t)
	srv := newServer(a)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("GET", "/actors/StaticMeshActor0", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body)
	}
	var info actorInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatal(err)
	}
	if info.Location == nil || *info.Location != (actor.Vector{X: 1, Y: 2, Z: 3}) || info.StaticMesh != "SM_Pack.Rock" {
		t.Errorf("unexpected actor %+v", info)
	}

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("PUT", "/actors/StaticMeshActor0/location", strings.NewReader(`{"X":100,"Y":0,"Z":0}`)))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body)
	}

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("GET", "/near?x=100&y=0&radius=1", nil))
	var near []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &near); err != nil {
		t.Fatal(err)
	}
	if len(near) != 1 || near[0].Name != "StaticMeshActor0" {
		t.Errorf("unexpected near result %s", rec.Body)
	}

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("GET", "/actors/Missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected not found, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("GET", "/exports/StaticMeshActor0/t3d", nil))
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Body.String(), "Begin Object Class=StaticMeshActor Name=StaticMeshActor0") {
		t.Errorf("unexpected t3d %d: %s", rec.Code, rec.Body)
	}
}

package edit

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/upkedit/upkedit"
	"github.com/upkedit/upkedit/actor"
	"github.com/upkedit/upkedit/compact"
	"github.com/upkedit/upkedit/errors"
	"github.com/upkedit/upkedit/store"
)

func TestQueueOrder(t *testing.T) {
	q := NewQueue(context.Background(), 4)
	var order []int
	var results []<-chan error
	for i := 0; i < 10; i++ {
		i := i
		results = append(results, q.Submit(func(ctx context.Context) error {
			order = append(order, i)
			if i%3 == 0 {
				return fmt.Errorf("task %d failed", i)
			}
			return nil
		}))
	}
	for i, r := range results {
		err := <-r
		if (i%3 == 0) != (err != nil) {
			t.Errorf("task %d: unexpected result %v", i, err)
		}
	}
	if err := q.Close(); err != nil {
		t.Fatal(err)
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("tasks ran out of order: %v", order)
		}
	}
	if len(order) != 10 {
		t.Errorf("expected 10 tasks, got %d", len(order))
	}
	if err := q.Do(func(ctx context.Context) error { return nil }); !errors.Is(err, ErrClosed) {
		t.Errorf("expected closed error, got %v", err)
	}
}

func TestQueueCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	q := NewQueue(ctx, 1)
	cancel()
	err := q.Do(func(ctx context.Context) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected canceled, got %v", err)
	}
	q.Close()
}

// levelData returns the data of a level with empty actor lists.
func levelData() []byte {
	b := compact.Bytes(0)
	return append(b, make([]byte, 16)...)
}

func testPackage() *upkedit.Package {
	return upkedit.NewPackage("MyLevel",
		[]string{"None", "myLevel", "LevelInfo0"},
		[]*upkedit.ImportEntry{
			{ClassPackage: "Core", Class: "Package", Name: "Engine"},
			{ClassPackage: "Core", Class: "Class", Outer: -1, Name: "Level"},
			{ClassPackage: "Core", Class: "Class", Outer: -1, Name: "LevelInfo"},
		},
		[]*upkedit.ExportEntry{
			{Class: -2, Name: "myLevel", Raw: levelData()},
			{Class: -3, Name: "LevelInfo0"},
		},
	)
}

func newEditor(t *testing.T) *Editor {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "edit.db"))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Import(context.Background(), testPackage()); err != nil {
		t.Fatal(err)
	}
	q := NewQueue(context.Background(), 8)
	t.Cleanup(func() {
		q.Close()
		s.Close()
	})
	return &Editor{Store: s, Queue: q, Backup: true}
}

func TestAddAndMoveActor(t *testing.T) {
	ed := newEditor(t)
	ctx := context.Background()

	var name string
	err := ed.Do("add", AddActor(AddOptions{
		Class:    "Engine.StaticMeshActor",
		Mesh:     "SM_Pack.Rock",
		Location: actor.Vector{X: 1, Y: 2, Z: 3},
	}, &name))
	if err != nil {
		t.Fatalf("add: %s", err)
	}
	if name != "StaticMeshActor0" {
		t.Errorf("unexpected name %s", name)
	}

	pkg, err := ed.Store.Snapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	exp := pkg.ExportByName(name)
	if exp == nil || exp.FullClassName() != "Engine.StaticMeshActor" || exp.Flags != actor.StaticMeshActorFlags {
		t.Fatalf("unexpected export %+v", exp)
	}
	a, err := actor.Open(exp, pkg)
	if err != nil {
		t.Fatal(err)
	}
	if v, ok, _ := a.Location(); !ok || v != (actor.Vector{X: 1, Y: 2, Z: 3}) {
		t.Errorf("unexpected location %v", v)
	}
	ref, _, _ := a.StaticMesh()
	if mesh, _ := pkg.ObjectReference(ref); mesh == nil || mesh.ObjectFullName() != "SM_Pack.Rock" {
		t.Errorf("unexpected mesh %v", mesh)
	}

	level := pkg.ExportByName("myLevel").Raw
	want := levelData()
	want[9], want[13] = 1, 1
	want = append(want[:17:17], compact.Bytes(exp.Reference())...)
	if !bytes.Equal(level, want) {
		t.Errorf("unexpected level data\n% X\nexpected\n% X", level, want)
	}

	err = ed.Do("move", UpdateActor(name, func(a *actor.Actor) error {
		return a.SetLocation(actor.Vector{X: -5})
	}))
	if err != nil {
		t.Fatalf("move: %s", err)
	}
	pkg, _ = ed.Store.Snapshot(ctx)
	a, _ = actor.Open(pkg.ExportByName(name), pkg)
	if v, _, _ := a.Location(); v != (actor.Vector{X: -5}) {
		t.Errorf("unexpected location after move %v", v)
	}

	backups, err := ed.Store.Backups(ctx, -1)
	if err != nil {
		t.Fatal(err)
	}
	if len(backups) != 2 {
		t.Errorf("expected backups of the level and the actor, got %d", len(backups))
	}
}

func TestCopyActor(t *testing.T) {
	ed := newEditor(t)
	var first, second string
	if err := ed.Do("add", AddActor(AddOptions{Class: "Engine.StaticMeshActor", Mesh: "SM_Pack.Rock"}, &first)); err != nil {
		t.Fatal(err)
	}
	if err := ed.Do("copy", CopyActor(first, &second)); err != nil {
		t.Fatal(err)
	}
	if second != "StaticMeshActor1" {
		t.Errorf("unexpected copy name %s", second)
	}
	pkg, _ := ed.Store.Snapshot(context.Background())
	if !bytes.Equal(pkg.ExportByName(first).Raw, pkg.ExportByName(second).Raw) {
		t.Error("copy data differs")
	}
	level := pkg.ExportByName("myLevel").Raw
	if level[9] != 2 || level[13] != 2 {
		t.Errorf("expected 2 actors in level, got % X", level)
	}
}

func TestFailedEditIsIsolated(t *testing.T) {
	ed := newEditor(t)
	ctx := context.Background()
	before, _ := ed.Store.Snapshot(ctx)

	failing := ed.Submit("missing", UpdateActor("Nope", func(a *actor.Actor) error { return nil }))
	var name string
	adding := ed.Submit("add", AddActor(AddOptions{Class: "Engine.StaticMeshActor", Mesh: "SM_Pack.Rock"}, &name))
	partial := ed.Submit("partial", func(e *Editor, s *store.Session) error {
		if _, err := s.AddName("Discarded"); err != nil {
			return err
		}
		return fmt.Errorf("abort")
	})

	if err := <-failing; !errors.Is(err, ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if err := <-adding; err != nil {
		t.Errorf("unexpected error after failed edit: %s", err)
	}
	if err := <-partial; err == nil {
		t.Error("expected error")
	}
	after, _ := ed.Store.Snapshot(ctx)
	if len(after.Exports) != len(before.Exports)+1 || after.NameIndex("Discarded") >= 0 {
		t.Error("failed edits changed the store")
	}
}

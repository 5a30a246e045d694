package edit

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/upkedit/upkedit"
	"github.com/upkedit/upkedit/actor"
	"github.com/upkedit/upkedit/errors"
	"github.com/upkedit/upkedit/props"
	"github.com/upkedit/upkedit/store"
)

// ErrNotFound is returned when an export named by an edit does not exist.
var ErrNotFound = errors.New("export not found")

// Edit changes a package within a session. An error discards the changes.
type Edit func(e *Editor, s *store.Session) error

// Editor runs edits against a store. Each edit runs in its own exclusive
// session, after the edits submitted before it.
type Editor struct {
	Store *store.Store
	Queue *Queue

	// Backup stores the previous data of each export written by an edit.
	Backup bool

	// Log receives diagnostic messages. Nil discards them.
	Log *log.Logger
}

func (e *Editor) logf(format string, v ...interface{}) {
	if e.Log != nil {
		e.Log.Printf(format, v...)
	}
}

// Submit queues fn. The returned channel receives the result.
func (e *Editor) Submit(name string, fn Edit) <-chan error {
	return e.Queue.Submit(func(ctx context.Context) error {
		return e.apply(ctx, name, fn)
	})
}

// Do queues fn and waits for it.
func (e *Editor) Do(name string, fn Edit) error {
	return <-e.Submit(name, fn)
}

func (e *Editor) apply(ctx context.Context, name string, fn Edit) (err error) {
	e.logf("[%s] begin", name)
	s, err := e.Store.Begin(ctx)
	if err != nil {
		return err
	}
	defer s.Rollback()
	if err := fn(e, s); err != nil {
		e.logf("[%s] failed: %s", name, err)
		return err
	}
	if err := s.Commit(); err != nil {
		return err
	}
	e.logf("[%s] committed", name)
	return nil
}

// Write replaces the data of an export, taking a backup first when enabled.
func (e *Editor) Write(s *store.Session, idx int, data []byte) error {
	if e.Backup {
		d, err := s.Backup(idx)
		if err != nil {
			return err
		}
		e.logf("[Write] backup %s", d)
	}
	return s.SetRawData(idx, data)
}

func findExport(pkg *upkedit.Package, name string) (*upkedit.ExportEntry, error) {
	exp := pkg.ExportByName(name)
	if exp == nil {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return exp, nil
}

// UpdateActor opens the named actor, applies fn, and writes the result.
func UpdateActor(name string, fn func(a *actor.Actor) error) Edit {
	return func(e *Editor, s *store.Session) error {
		pkg := s.Package()
		exp, err := findExport(pkg, name)
		if err != nil {
			return err
		}
		a, err := actor.Open(exp, pkg)
		if err != nil {
			return err
		}
		if err := fn(a); err != nil {
			return err
		}
		return e.Write(s, exp.Index, a.Bytes())
	}
}

// SetStaticMesh points the named actor at a mesh, importing the mesh if
// needed.
func SetStaticMesh(name, mesh string) Edit {
	return func(e *Editor, s *store.Session) error {
		ref, err := MeshReference(s, mesh)
		if err != nil {
			return err
		}
		return UpdateActor(name, func(a *actor.Actor) error {
			return a.SetStaticMesh(ref)
		})(e, s)
	}
}

// MeshReference resolves a mesh by full name, adding an import for it when no
// export or import has that name.
func MeshReference(s *store.Session, mesh string) (int32, error) {
	isMesh := func(class string) bool {
		return strings.EqualFold(class, "Engine.StaticMesh")
	}
	if ref := s.Package().ObjectReferenceByName(mesh, isMesh); ref != 0 {
		return ref, nil
	}
	return s.AddImport(mesh, "Engine.StaticMesh")
}

func isLevel(class string) bool {
	return strings.EqualFold(class, actor.LevelClass)
}

// appendToLevel adds ref to the actor list of the level.
func (e *Editor) appendToLevel(s *store.Session, ref int32) error {
	pkg := s.Package()
	levelRef := pkg.ObjectReferenceByName(actor.LevelName, isLevel)
	if levelRef <= 0 {
		return fmt.Errorf("%s: %w", actor.LevelName, ErrNotFound)
	}
	level := pkg.Exports[levelRef-1]
	data, err := actor.AppendToLevel(level.Raw, ref)
	if err != nil {
		return err
	}
	return e.Write(s, level.Index, data)
}

// AddOptions describes an actor to add.
type AddOptions struct {
	// Class is the full name of the class of the actor.
	Class string

	// Mesh is the full name of the static mesh of the actor.
	Mesh string

	Rotating        bool
	ZoneRenderState bool

	// Location is where the actor is placed.
	Location actor.Vector
}

// AddActor creates a static mesh actor and adds it to the level. The name of
// the new export is stored in name.
func AddActor(opts AddOptions, name *string) Edit {
	return func(e *Editor, s *store.Session) error {
		params := actor.Params{Rotating: opts.Rotating, ZoneRenderState: opts.ZoneRenderState}
		if err := s.AddNames(actor.RequiredNames(params)...); err != nil {
			return err
		}
		var err error
		if params.Class, err = s.AddImport(opts.Class, "Core.Class"); err != nil {
			return err
		}
		if params.StaticMesh, err = MeshReference(s, opts.Mesh); err != nil {
			return err
		}

		data, err := actor.Build(params, s.Package())
		if err != nil {
			return err
		}
		_, start, err := props.ReadStateFrame(data)
		if err != nil {
			return err
		}
		a, err := actor.New(data, start, s.Package())
		if err != nil {
			return err
		}
		if err := a.SetLocation(opts.Location); err != nil {
			return err
		}

		class := opts.Class
		if i := strings.LastIndexByte(class, '.'); i >= 0 {
			class = class[i+1:]
		}
		exp := &upkedit.ExportEntry{
			Class: params.Class,
			Name:  actor.NextName(s.Package(), class),
			Flags: actor.StaticMeshActorFlags,
			Raw:   a.Bytes(),
		}
		ref, err := s.AddExport(exp)
		if err != nil {
			return err
		}
		if err := e.appendToLevel(s, ref); err != nil {
			return err
		}
		e.logf("[AddActor] %s", exp.Name)
		if name != nil {
			*name = exp.Name
		}
		return nil
	}
}

// CopyActor duplicates the named actor and adds the copy to the level. The name
// of the copy is stored in name.
func CopyActor(source string, name *string) Edit {
	return func(e *Editor, s *store.Session) error {
		pkg := s.Package()
		src, err := findExport(pkg, source)
		if err != nil {
			return err
		}
		exp := &upkedit.ExportEntry{
			Class: src.Class,
			Name:  actor.NextName(pkg, src.ClassName()),
			Flags: src.Flags,
			Raw:   append([]byte(nil), src.Raw...),
		}
		ref, err := s.AddExport(exp)
		if err != nil {
			return err
		}
		if err := e.appendToLevel(s, ref); err != nil {
			return err
		}
		e.logf("[CopyActor] %s -> %s", source, exp.Name)
		if name != nil {
			*name = exp.Name
		}
		return nil
	}
}

package actor

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/upkedit/upkedit"
	"github.com/upkedit/upkedit/compact"
	"github.com/upkedit/upkedit/errors"
	"github.com/upkedit/upkedit/props"
)

// StaticMeshActorFlags are the object flags of a built actor.
const StaticMeshActorFlags = upkedit.ObjectTransactional | upkedit.ObjectLoadForServer | upkedit.ObjectLoadForEdit | upkedit.ObjectHasStack

// Params describes an actor to build.
type Params struct {
	// Class is the reference to the class of the actor.
	Class int32

	// StaticMesh is the reference to the mesh of the actor.
	StaticMesh int32

	// Rotating adds the properties of an actor that rotates at a constant
	// rate.
	Rotating bool

	// ZoneRenderState adds a single zone render state.
	ZoneRenderState bool
}

// Package resolves the names and objects referred to by a built actor.
type Package interface {
	props.NameIndexer
	ObjectReferenceByName(name string, class func(string) bool) int32
}

// RequiredNames returns the names that must be in the name table of a package
// before an actor can be built from p.
func RequiredNames(p Params) []string {
	names := []string{
		"StaticMesh", "Level", "bSunAffect", "Tag", "StaticMeshActor",
		"Location", "ColLocation", "Vector",
		"Rotation", "SwayRotationOrig", "Rotator",
		"DrawScale", "DrawScale3D",
	}
	if p.Rotating {
		names = append(names, "RotationRate", "Physics", "bStatic", "bFixedRotationDir")
	}
	if p.ZoneRenderState {
		names = append(names, "ZoneRenderState", "bDynamicActorFilterState")
	}
	return names
}

func isLevelInfo(class string) bool {
	return strings.EqualFold(class, "Engine.LevelInfo")
}

// Build returns the data of a new static mesh actor placed at the origin.
func Build(p Params, pkg Package) ([]byte, error) {
	level := pkg.ObjectReferenceByName("LevelInfo0", isLevelInfo)
	if level == 0 {
		return nil, fmt.Errorf("LevelInfo0 not found: %w", errors.ErrInvariant)
	}

	frame := props.StateFrame{
		Node:         p.Class,
		StateNode:    p.Class,
		ProbeMask:    -1,
		LatentAction: 0,
		Offset:       -1,
	}

	e := props.NewEncoder(pkg)
	if p.ZoneRenderState {
		e.Array("ZoneRenderState", append(compact.Bytes(1), 1, 0, 0, 0))
		e.Bool("bDynamicActorFilterState", true)
	}
	if p.Rotating {
		// PHYS_Rotating
		e.Byte("Physics", 5)
	}
	e.Object("StaticMesh", p.StaticMesh)
	if p.Rotating {
		e.Bool("bStatic", false)
	}
	e.Object("Level", level)
	e.Bool("bSunAffect", true)
	e.Name("Tag", "StaticMeshActor")
	e.Vector("Location", 0, 0, 0)
	e.Vector("ColLocation", 0, 0, 0)
	e.Rotator("Rotation", 0, 0, 0)
	e.Rotator("SwayRotationOrig", 0, 0, 0)
	if p.Rotating {
		e.Bool("bFixedRotationDir", true)
		e.Rotator("RotationRate", 0, 0, 0)
	}
	e.Float("DrawScale", 1)
	e.Vector("DrawScale3D", 1, 1, 1)
	list, err := e.End()
	if err != nil {
		return nil, err
	}
	return append(frame.Append(nil), list...), nil
}

// NextName returns an unused export name for an actor of the class with the
// given name: the class name followed by one more than the largest number
// used by exports of that form, or 0.
func NextName(pkg *upkedit.Package, class string) string {
	pattern := regexp.MustCompile(`(?i)^` + regexp.QuoteMeta(class) + `(\d+)$`)
	next := 0
	for _, e := range pkg.Exports {
		m := pattern.FindStringSubmatch(e.Name)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err == nil && n+1 > next {
			next = n + 1
		}
	}
	return class + strconv.Itoa(next)
}

// The upkedit package models the objects of an Unreal-derived package: the
// name, import and export tables, and the typed property values of an object.
//
// Raw object blobs are decoded by the sub-packages. The "props" package scans
// property lists, "t3d" renders materialized properties as text, "actor"
// patches placed static-mesh actors, and "mesh" reads static-mesh geometry.
// The "store" package persists packages, and "edit" serializes destructive
// edits against a store.
package upkedit

import (
	"fmt"
	"strings"

	"github.com/upkedit/upkedit/errors"
)

// Object flags stored in an export entry.
const (
	ObjectTransactional uint32 = 0x00000001
	ObjectLoadForClient uint32 = 0x00010000
	ObjectLoadForServer uint32 = 0x00020000
	ObjectLoadForEdit   uint32 = 0x00040000
	ObjectStandalone    uint32 = 0x00080000
	ObjectHasStack      uint32 = 0x02000000

	DefaultObjectFlags = ObjectTransactional | ObjectLoadForClient | ObjectLoadForServer | ObjectLoadForEdit | ObjectStandalone
)

// Entry is an entry of the import or export table.
type Entry interface {
	// Reference returns the object reference that refers to the entry.
	Reference() int32

	// ObjectName returns the name of the object.
	ObjectName() string

	// ObjectFullName returns the package-qualified path of the object.
	ObjectFullName() string

	// ObjectInnerFullName returns the path of the object below its package.
	ObjectInnerFullName() string

	// ClassName returns the simple name of the object's class.
	ClassName() string

	// FullClassName returns the package-qualified name of the object's class.
	FullClassName() string

	entry()
}

// ImportEntry refers to an object stored in another package.
type ImportEntry struct {
	pkg *Package

	// Index is the position of the entry in the import table.
	Index int

	ClassPackage string
	Class        string
	Outer        int32
	Name         string
}

func (e *ImportEntry) entry() {}

func (e *ImportEntry) Reference() int32 {
	return int32(-(e.Index + 1))
}

func (e *ImportEntry) ObjectName() string {
	return e.Name
}

func (e *ImportEntry) ObjectFullName() string {
	if outer := e.pkg.entry(e.Outer); outer != nil {
		return outer.ObjectFullName() + "." + e.Name
	}
	return e.Name
}

// ObjectInnerFullName returns the path without the outermost package.
func (e *ImportEntry) ObjectInnerFullName() string {
	full := e.ObjectFullName()
	if i := strings.IndexByte(full, '.'); i >= 0 {
		return full[i+1:]
	}
	return full
}

func (e *ImportEntry) ClassName() string {
	return e.Class
}

func (e *ImportEntry) FullClassName() string {
	return e.ClassPackage + "." + e.Class
}

func (e *ImportEntry) String() string {
	return e.ObjectFullName()
}

// ExportEntry is an object serialized inside the package.
type ExportEntry struct {
	pkg *Package

	// Index is the position of the entry in the export table.
	Index int

	Class      int32
	SuperClass int32
	Outer      int32
	Name       string
	Flags      uint32

	// Raw is the serialized object data.
	Raw []byte
}

func (e *ExportEntry) entry() {}

func (e *ExportEntry) Reference() int32 {
	return int32(e.Index + 1)
}

func (e *ExportEntry) ObjectName() string {
	return e.Name
}

func (e *ExportEntry) ObjectFullName() string {
	return e.pkg.Name + "." + e.ObjectInnerFullName()
}

func (e *ExportEntry) ObjectInnerFullName() string {
	if outer, ok := e.pkg.entry(e.Outer).(*ExportEntry); ok {
		return outer.ObjectInnerFullName() + "." + e.Name
	}
	return e.Name
}

// ClassName returns the simple class name, or "Class" for class objects,
// which have no class reference.
func (e *ExportEntry) ClassName() string {
	if class := e.pkg.entry(e.Class); class != nil {
		return class.ObjectName()
	}
	return "Class"
}

func (e *ExportEntry) FullClassName() string {
	if class := e.pkg.entry(e.Class); class != nil {
		return class.ObjectFullName()
	}
	return "Core.Class"
}

// SuperClassFullName returns the full name of the super class, or an empty
// string if there is none.
func (e *ExportEntry) SuperClassFullName() string {
	if super := e.pkg.entry(e.SuperClass); super != nil {
		return super.ObjectFullName()
	}
	return ""
}

// DefaultsClass returns the class whose defaults apply to the object's
// properties: the class of an object, or the super class of a class.
func (e *ExportEntry) DefaultsClass() string {
	if e.Class == 0 {
		return e.SuperClassFullName()
	}
	return e.FullClassName()
}

// HasStack returns whether the object data begins with a state frame.
func (e *ExportEntry) HasStack() bool {
	return e.Flags&ObjectHasStack != 0
}

func (e *ExportEntry) String() string {
	return e.ObjectFullName()
}

////////////////////////////////////////////////////////////////

// Package is an immutable snapshot of the tables of a package.
type Package struct {
	Name    string
	Names   []string
	Imports []*ImportEntry
	Exports []*ExportEntry
}

// NewPackage returns a package from its tables, linking each entry to it.
func NewPackage(name string, names []string, imports []*ImportEntry, exports []*ExportEntry) *Package {
	p := &Package{
		Name:    name,
		Names:   names,
		Imports: imports,
		Exports: exports,
	}
	for i, e := range imports {
		e.pkg = p
		e.Index = i
	}
	for i, e := range exports {
		e.pkg = p
		e.Index = i
	}
	return p
}

// NameReference returns the name at index i of the name table.
func (p *Package) NameReference(i int32) (string, error) {
	if i < 0 || int(i) >= len(p.Names) {
		return "", fmt.Errorf("name index %d out of range [0, %d): %w", i, len(p.Names), errors.ErrMalformed)
	}
	return p.Names[i], nil
}

// NameIndex returns the index of name in the name table, or -1. Names are
// compared case-insensitively.
func (p *Package) NameIndex(name string) int32 {
	for i, n := range p.Names {
		if strings.EqualFold(n, name) {
			return int32(i)
		}
	}
	return -1
}

func (p *Package) entry(ref int32) Entry {
	switch {
	case ref > 0 && int(ref) <= len(p.Exports):
		return p.Exports[ref-1]
	case ref < 0 && int(-ref) <= len(p.Imports):
		return p.Imports[-ref-1]
	}
	return nil
}

// ObjectReference resolves an object reference. A zero reference resolves to
// a nil entry. A reference outside of the tables is an invariant violation.
func (p *Package) ObjectReference(ref int32) (Entry, error) {
	if ref == 0 {
		return nil, nil
	}
	if e := p.entry(ref); e != nil {
		return e, nil
	}
	return nil, fmt.Errorf("object reference %d resolves to no entry: %w", ref, errors.ErrInvariant)
}

// ObjectReferenceByName returns the reference of the first entry whose full
// name equals name and whose full class name satisfies class. Names are
// compared case-insensitively. Returns 0 if there is no such entry.
func (p *Package) ObjectReferenceByName(name string, class func(string) bool) int32 {
	for _, e := range p.Imports {
		if strings.EqualFold(e.ObjectFullName(), name) && (class == nil || class(e.FullClassName())) {
			return e.Reference()
		}
	}
	for _, e := range p.Exports {
		if (strings.EqualFold(e.ObjectFullName(), name) || strings.EqualFold(e.ObjectInnerFullName(), name)) && (class == nil || class(e.FullClassName())) {
			return e.Reference()
		}
	}
	return 0
}

// ExportByName returns the first export whose inner or full name equals name.
func (p *Package) ExportByName(name string) *ExportEntry {
	for _, e := range p.Exports {
		if strings.EqualFold(e.ObjectInnerFullName(), name) || strings.EqualFold(e.ObjectFullName(), name) {
			return e
		}
	}
	return nil
}

// ExportsOfClass returns the exports whose full class name equals class.
func (p *Package) ExportsOfClass(class string) []*ExportEntry {
	var list []*ExportEntry
	for _, e := range p.Exports {
		if strings.EqualFold(e.FullClassName(), class) {
			list = append(list, e)
		}
	}
	return list
}

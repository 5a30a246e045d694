// The declare package is used to generate packages in a declarative style.
//
// The easiest way to use this package is to import it directly into the
// current package:
//
//	import . "github.com/upkedit/upkedit/declare"
//
// This allows the package's identifiers to be used directly without a
// qualifier.
package declare

import (
	"strings"

	"github.com/upkedit/upkedit"
	"github.com/upkedit/upkedit/props"
)

// primary is implemented by declarations that can be directly within a
// Package declaration.
type primary interface {
	primary()
}

// Package declares an upkedit.Package. It is a list that contains Import and
// Export declarations.
type Package []primary

// builder accumulates the tables of a declared package.
type builder struct {
	names   []string
	imports []*upkedit.ImportEntry
	exports []*upkedit.ExportEntry
}

func (b *builder) name(name string) {
	for _, n := range b.names {
		if strings.EqualFold(n, name) {
			return
		}
	}
	b.names = append(b.names, name)
}

func (b *builder) findImport(fullName string) int32 {
	for _, e := range b.imports {
		if strings.EqualFold(importFullName(b.imports, e), fullName) {
			return e.Reference()
		}
	}
	return 0
}

func importFullName(imports []*upkedit.ImportEntry, e *upkedit.ImportEntry) string {
	name := e.Name
	for outer := e.Outer; outer < 0 && int(-outer) <= len(imports); {
		o := imports[-outer-1]
		name = o.Name + "." + name
		outer = o.Outer
	}
	return name
}

// addImport adds an import of the given full name and full class, importing
// each enclosing package that was not declared.
func (b *builder) addImport(fullName, fullClass string) int32 {
	if ref := b.findImport(fullName); ref != 0 {
		return ref
	}
	var outer int32
	name := fullName
	if i := strings.LastIndexByte(fullName, '.'); i >= 0 {
		outer = b.addImport(fullName[:i], "Core.Package")
		name = fullName[i+1:]
	}
	classPackage, class := "Core", fullClass
	if i := strings.IndexByte(fullClass, '.'); i >= 0 {
		classPackage, class = fullClass[:i], fullClass[i+1:]
	}
	b.name(classPackage)
	b.name(class)
	b.name(name)
	e := &upkedit.ImportEntry{
		ClassPackage: classPackage,
		Class:        class,
		Outer:        outer,
		Name:         name,
		Index:        len(b.imports),
	}
	b.imports = append(b.imports, e)
	return e.Reference()
}

func (b *builder) findExport(name string) int32 {
	for i, e := range b.exports {
		if strings.EqualFold(e.Name, name) {
			return int32(i + 1)
		}
	}
	return 0
}

// Declare evaluates the Package declaration, generating the name, import and
// export tables, and encoding the properties of each export.
//
// Elements are evaluated in order. The class of an export, and the value of an
// Object property, are resolved by full name against the declared exports,
// then against the imports. Classes that resolve to nothing are imported as
// Core.Class. The name table starts with None, followed by each name used by
// the declarations, in order of first use.
func (dpkg Package) Declare(name string) *upkedit.Package {
	b := &builder{names: []string{"None"}}
	for _, p := range dpkg {
		if p, ok := p.(imp); ok {
			b.addImport(p.name, p.class)
		}
	}
	var exports []export
	for _, p := range dpkg {
		if p, ok := p.(export); ok {
			b.name(p.name)
			b.exports = append(b.exports, &upkedit.ExportEntry{
				Name:  p.name,
				Flags: p.flags,
				Index: len(b.exports),
			})
			exports = append(exports, p)
		}
	}
	for i, p := range exports {
		e := b.exports[i]
		if ref := b.findExport(p.class); ref != 0 {
			e.Class = ref
		} else {
			e.Class = b.addImport(p.class, "Core.Class")
		}
		if p.outer != "" {
			e.Outer = b.findExport(p.outer)
		}
		for _, prop := range p.properties {
			b.name(prop.name)
			prop.typ.names(b, prop.value)
		}
	}

	pkg := upkedit.NewPackage(name, b.names, b.imports, b.exports)
	for i, p := range exports {
		e := pkg.Exports[i]
		if p.raw != nil {
			e.Raw = append([]byte(nil), p.raw...)
			continue
		}
		var data []byte
		if p.frame {
			e.Flags |= upkedit.ObjectHasStack
			data = props.StateFrame{
				Node:      e.Class,
				StateNode: e.Class,
				ProbeMask: -1,
				Offset:    -1,
			}.Append(nil)
		}
		enc := props.NewEncoder(pkg)
		for _, prop := range p.properties {
			prop.typ.encode(enc, pkg, prop.name, prop.value)
		}
		// Names were added above, so encoding cannot fail.
		list, _ := enc.End()
		e.Raw = append(data, list...)
	}
	return pkg
}

// imp represents the declaration of an upkedit.ImportEntry.
type imp struct {
	name  string
	class string
}

func (imp) primary() {}

// Import declares an import, given its full name, such as "Engine.Rock", and
// the full name of its class, such as "Engine.StaticMesh". Enclosing packages
// are imported as Core.Package unless declared.
func Import(fullName, fullClass string) imp {
	return imp{name: fullName, class: fullClass}
}

// element is implemented by declarations that can be within an export
// declaration.
type element interface {
	element()
}

// export represents the declaration of an upkedit.ExportEntry.
type export struct {
	name       string
	class      string
	outer      string
	flags      uint32
	frame      bool
	raw        []byte
	properties []property
}

func (export) primary() {}

// Export declares an export with a name, the full name of its class, and a
// series of elements. An element can be a Property declaration, which adds a
// property to the data of the export. An element can also be an Outer, Flags,
// Frame or Raw declaration.
func Export(name, class string, elements ...element) export {
	exp := export{name: name, class: class}
	for _, e := range elements {
		switch e := e.(type) {
		case property:
			exp.properties = append(exp.properties, e)
		case Outer:
			exp.outer = string(e)
		case Flags:
			exp.flags |= uint32(e)
		case frame:
			exp.frame = true
		case Raw:
			exp.raw = []byte(e)
		}
	}
	return exp
}

// Outer declares the name of the export that contains the export.
type Outer string

func (Outer) element() {}

// Flags declares object flags of the export.
type Flags uint32

func (Flags) element() {}

// Raw declares the data of the export directly. Properties are ignored.
type Raw []byte

func (Raw) element() {}

type frame struct{}

func (frame) element() {}

// Frame declares that the data of the export starts with a state frame, and
// sets the HasStack flag.
func Frame() frame {
	return frame{}
}

type property struct {
	name  string
	typ   Type
	value []interface{}
}

func (property) element() {}

// Property declares a property of an export. It defines the name of the
// property, a type, and the value of the property. Values that cannot be
// asserted to the given type produce the zero value.
//
// For a given type, values must be the following:
//
//	Byte, Int, Float:
//	    A single number. Extra values are ignored.
//
//	Bool:
//	    A single bool. Extra values are ignored.
//
//	Object:
//	    A single string, the full name of an export or import. An empty
//	    string or an unknown name produces a null reference.
//
//	Name, Str:
//	    A single string. Extra values are ignored.
//
//	Vector:
//	    3 numbers, corresponding to the X, Y, and Z fields.
//
//	Rotator:
//	    3 numbers, corresponding to the Pitch, Yaw, and Roll fields.
//
// When the type is a number, any number type except for complex numbers may
// be given as the value.
func Property(name string, typ Type, value ...interface{}) property {
	return property{name: name, typ: typ, value: value}
}

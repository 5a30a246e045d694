// Package t3d renders object properties as T3D text, the nested
// "Begin Object ... End Object" format read by the authoring tool.
//
// Lines are separated by CRLF and indented with tabs. Objects referenced
// through properties flagged to export their object are written as nested
// blocks before the property that refers to them.
package t3d

import (
	"strconv"
	"strings"

	"github.com/upkedit/upkedit"
)

// Resolver resolves object references.
type Resolver interface {
	ObjectReference(ref int32) (upkedit.Entry, error)
}

// Loader loads the properties of an export.
type Loader interface {
	Load(e *upkedit.ExportEntry) (*upkedit.Object, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(e *upkedit.ExportEntry) (*upkedit.Object, error)

func (f LoaderFunc) Load(e *upkedit.ExportEntry) (*upkedit.Object, error) {
	return f(e)
}

// DefaultsProvider returns the default properties of a class, given its full
// name.
type DefaultsProvider interface {
	Defaults(class string) ([]upkedit.Property, error)
}

// DefaultsMap is a DefaultsProvider over a fixed set of classes. Class names
// are compared case-insensitively.
type DefaultsMap map[string][]upkedit.Property

func (m DefaultsMap) Defaults(class string) ([]upkedit.Property, error) {
	if d, ok := m[class]; ok {
		return d, nil
	}
	for name, d := range m {
		if strings.EqualFold(name, class) {
			return d, nil
		}
	}
	return nil, nil
}

// Decompiler renders objects and property lists.
type Decompiler struct {
	// Package resolves object references.
	Package Resolver

	// Objects loads exports that are written as nested blocks. If nil, no
	// nested blocks are written.
	Objects Loader

	// Defaults provides the values stripped before rendering. If nil,
	// nothing is stripped.
	Defaults DefaultsProvider
}

func newLine(indent int) string {
	return "\r\n" + strings.Repeat("\t", indent)
}

// StripDefaults returns the properties of list that differ from the property
// of the same name in defaults.
func StripDefaults(list, defaults []upkedit.Property) []upkedit.Property {
	if len(defaults) == 0 {
		return list
	}
	stripped := make([]upkedit.Property, 0, len(list))
loop:
	for _, p := range list {
		for _, d := range defaults {
			if strings.EqualFold(p.Name(), d.Name()) {
				if p.Equal(d) {
					continue loop
				}
				break
			}
		}
		stripped = append(stripped, p)
	}
	return stripped
}

// Object renders obj as a block at the given indentation.
func (d *Decompiler) Object(obj *upkedit.Object, indent int) (string, error) {
	props, err := d.Properties(obj.Properties, obj.Entry.DefaultsClass(), indent+1)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("Begin Object Class=")
	b.WriteString(obj.Entry.ClassName())
	b.WriteString(" Name=")
	b.WriteString(obj.Entry.ObjectName())
	b.WriteString(newLine(indent + 1))
	b.WriteString(props)
	b.WriteString(newLine(indent))
	b.WriteString("End Object")
	return b.String(), nil
}

// Properties renders list at the given indentation, after stripping the
// defaults of class. Objects exported by the properties are rendered before
// the properties that refer to them.
func (d *Decompiler) Properties(list []upkedit.Property, class string, indent int) (string, error) {
	if d.Defaults != nil {
		defaults, err := d.Defaults.Defaults(class)
		if err != nil {
			return "", err
		}
		list = StripDefaults(list, defaults)
	}
	var entries []string
	for _, p := range list {
		blocks, line, ok, err := d.property(p, indent)
		if err != nil {
			return "", err
		}
		entries = append(entries, blocks...)
		if ok {
			entries = append(entries, line)
		}
	}
	return strings.Join(entries, newLine(indent)), nil
}

// property renders each slot of p. Returns the blocks of exported objects,
// and the property text. ok is false when every slot is omitted.
func (d *Decompiler) property(p upkedit.Property, indent int) (blocks []string, line string, ok bool, err error) {
	t := p.Template
	var slots []string
	for i := 0; i < t.Dim(); i++ {
		v := p.At(i)
		if t.Type == upkedit.TypeStruct {
			if s, _ := v.(upkedit.ValueStruct); s.IsEmpty() {
				continue
			}
		}
		if v == nil {
			v = upkedit.NewValue(t.Type)
		}

		var b strings.Builder
		if a, isArray := v.(upkedit.ValueArray); isArray {
			inner := t.Inner
			if inner == nil {
				inner = &upkedit.Template{Name: t.Name, Flags: t.Flags}
			}
			for j, elem := range a {
				nested, err := d.exports(t.Name, elem, inner, indent)
				if err != nil {
					return nil, "", false, err
				}
				blocks = append(blocks, nested...)
				if j > 0 {
					b.WriteString(newLine(indent))
				}
				b.WriteString(t.Name)
				b.WriteString("(" + strconv.Itoa(j) + ")=")
				s, err := d.inline(t.Name, elem, inner)
				if err != nil {
					return nil, "", false, err
				}
				b.WriteString(s)
			}
			slots = append(slots, b.String())
			continue
		}

		nested, err := d.exports(t.Name, v, t, indent)
		if err != nil {
			return nil, "", false, err
		}
		blocks = append(blocks, nested...)
		b.WriteString(t.Name)
		if t.Dim() > 1 {
			b.WriteString("(" + strconv.Itoa(i) + ")")
		}
		b.WriteString("=")
		if ref, isObject := v.(upkedit.ValueObject); isObject {
			s, err := d.reference(t.Name, int32(ref))
			if err != nil {
				return nil, "", false, err
			}
			b.WriteString(s)
		} else {
			s, err := d.inline(t.Name, v, t)
			if err != nil {
				return nil, "", false, err
			}
			b.WriteString(s)
		}
		slots = append(slots, b.String())
	}
	if len(slots) == 0 {
		return blocks, "", false, nil
	}
	return blocks, strings.Join(slots, newLine(indent)), true, nil
}

// resolve resolves ref, treating unresolvable references as corrupt linkage.
func (d *Decompiler) resolve(name string, ref int32) (upkedit.Entry, error) {
	e, err := d.Package.ObjectReference(ref)
	if err != nil {
		return nil, ReferenceError{Property: name, Reference: ref, Cause: err}
	}
	if e == nil && ref != 0 {
		return nil, ReferenceError{Property: name, Reference: ref}
	}
	return e, nil
}

// reference renders an object reference outside of an inline context.
func (d *Decompiler) reference(name string, ref int32) (string, error) {
	e, err := d.resolve(name, ref)
	if err != nil {
		return "", err
	}
	switch e := e.(type) {
	case nil:
		return "None", nil
	case *upkedit.ImportEntry:
		return e.ClassName() + "'" + e.ObjectFullName() + "'", nil
	case *upkedit.ExportEntry:
		return e.ClassName() + "'" + e.ObjectInnerFullName() + "'", nil
	}
	return "", ReferenceError{Property: name, Reference: ref}
}

// needExport returns whether the object referred to by a property with the
// template t is written as a nested block.
func needExport(t *upkedit.Template) bool {
	return t.Flags.Has(upkedit.FlagExportObject) || t.Flags.Has(upkedit.FlagEditInlineNotify)
}

// exports returns the blocks of objects exported through v. Struct members
// are searched recursively.
func (d *Decompiler) exports(name string, v upkedit.Value, t *upkedit.Template, indent int) ([]string, error) {
	switch v := v.(type) {
	case upkedit.ValueObject:
		if !needExport(t) || d.Objects == nil {
			return nil, nil
		}
		e, err := d.resolve(name, int32(v))
		if err != nil {
			return nil, err
		}
		export, ok := e.(*upkedit.ExportEntry)
		if !ok {
			return nil, nil
		}
		obj, err := d.Objects.Load(export)
		if err != nil {
			return nil, err
		}
		block, err := d.Object(obj, indent)
		if err != nil {
			return nil, err
		}
		return []string{block}, nil
	case upkedit.ValueStruct:
		var blocks []string
		for _, p := range v {
			for i := range p.Values {
				elem := p.At(i)
				if a, ok := elem.(upkedit.ValueArray); ok {
					inner := p.Template.Inner
					if inner == nil {
						inner = p.Template
					}
					for _, e := range a {
						b, err := d.exports(p.Name(), e, inner, indent)
						if err != nil {
							return nil, err
						}
						blocks = append(blocks, b...)
					}
					continue
				}
				b, err := d.exports(p.Name(), elem, p.Template, indent)
				if err != nil {
					return nil, err
				}
				blocks = append(blocks, b...)
			}
		}
		return blocks, nil
	}
	return nil, nil
}

// inline renders v as it appears inside an array element or a struct.
func (d *Decompiler) inline(name string, v upkedit.Value, t *upkedit.Template) (string, error) {
	switch v := v.(type) {
	case nil:
		if t.Type == upkedit.TypeStruct {
			return "None", nil
		}
		if z := upkedit.NewValue(t.Type); z != nil {
			return d.inline(name, z, t)
		}
		return "None", nil
	case upkedit.ValueByte:
		if int(v) < len(t.Enum) {
			return t.Enum[v], nil
		}
		return v.String(), nil
	case upkedit.ValueInt, upkedit.ValueBool, upkedit.ValueFloat:
		return v.String(), nil
	case upkedit.ValueObject:
		e, err := d.resolve(name, int32(v))
		if err != nil {
			return "", err
		}
		switch e := e.(type) {
		case nil:
			return "None", nil
		case *upkedit.ImportEntry:
			return e.ClassName() + "'" + e.ObjectFullName() + "'", nil
		case *upkedit.ExportEntry:
			if t.Flags.Has(upkedit.FlagExportObject) {
				return `"` + e.ObjectName() + `"`, nil
			}
			return e.ClassName() + "'" + e.ObjectName() + "'", nil
		}
		return "", ReferenceError{Property: name, Reference: int32(v)}
	case upkedit.ValueName:
		return "'" + string(v) + "'", nil
	case upkedit.ValueStr:
		return `"` + string(v) + `"`, nil
	case upkedit.ValueArray:
		inner := t.Inner
		if inner == nil {
			inner = &upkedit.Template{Name: t.Name, Flags: t.Flags}
		}
		elems := make([]string, len(v))
		for i, e := range v {
			s, err := d.inline(name, e, inner)
			if err != nil {
				return "", err
			}
			elems[i] = s
		}
		return "(" + strings.Join(elems, ",") + ")", nil
	case upkedit.ValueStruct:
		if v == nil {
			return "None", nil
		}
		return d.inlineStruct(v)
	}
	return "", nil
}

// inlineStruct renders the members of a struct as a parenthesized list.
func (d *Decompiler) inlineStruct(s upkedit.ValueStruct) (string, error) {
	members := make([]string, len(s))
	for i, p := range s {
		t := p.Template
		var b strings.Builder
		for j := 0; j < t.Dim(); j++ {
			if j > 0 {
				b.WriteByte(',')
			}
			b.WriteString(t.Name)
			if t.Dim() > 1 {
				b.WriteString("(" + strconv.Itoa(j) + ")")
			}
			b.WriteByte('=')
			v, err := d.inline(t.Name, p.At(j), t)
			if err != nil {
				return "", err
			}
			b.WriteString(v)
		}
		members[i] = b.String()
	}
	return "(" + strings.Join(members, ",") + ")", nil
}

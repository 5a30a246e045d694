package upkedit

import (
	"reflect"
)

// PropertyFlags describes how a property is edited and exported.
type PropertyFlags uint32

const (
	FlagEdit             PropertyFlags = 0x00000001
	FlagConst            PropertyFlags = 0x00000002
	FlagInput            PropertyFlags = 0x00000004
	FlagExportObject     PropertyFlags = 0x00000008
	FlagNative           PropertyFlags = 0x00001000
	FlagTransient        PropertyFlags = 0x00002000
	FlagConfig           PropertyFlags = 0x00004000
	FlagEditConst        PropertyFlags = 0x00020000
	FlagEditInline       PropertyFlags = 0x04000000
	FlagEditInlineUse    PropertyFlags = 0x10000000
	FlagEditInlineNotify PropertyFlags = 0x40000000
)

// Has returns whether all bits of mask are set.
func (f PropertyFlags) Has(mask PropertyFlags) bool {
	return f&mask == mask
}

// Template describes a declared property: its name, kind, and how it is laid
// out and rendered.
type Template struct {
	Name string
	Type Type

	// ArrayDim is the static array dimension. Values less than 1 are treated
	// as 1.
	ArrayDim int

	Flags PropertyFlags

	// Enum lists the labels of a byte property's enumeration, indexed by
	// ordinal. Nil when the byte property has no enumeration.
	Enum []string

	// Inner is the element template of an array property.
	Inner *Template

	// Struct is the name of the structure of a struct property.
	Struct string
}

// Dim returns the number of slots of the property.
func (t *Template) Dim() int {
	if t == nil || t.ArrayDim < 1 {
		return 1
	}
	return t.ArrayDim
}

// Property is a declared property together with its value in each slot.
type Property struct {
	Template *Template

	// Values holds one value per slot. A nil entry is an unset slot.
	Values []Value
}

// NewProperty returns a property with an unset value in each slot of t.
func NewProperty(t *Template, values ...Value) Property {
	p := Property{
		Template: t,
		Values:   make([]Value, t.Dim()),
	}
	copy(p.Values, values)
	return p
}

// Name returns the name of the property.
func (p Property) Name() string {
	if p.Template == nil {
		return ""
	}
	return p.Template.Name
}

// At returns the value of slot i, or nil if the slot is unset.
func (p Property) At(i int) Value {
	if i < 0 || i >= len(p.Values) {
		return nil
	}
	return p.Values[i]
}

// Copy returns a deep copy of the values of p. The template is shared.
func (p Property) Copy() Property {
	c := Property{Template: p.Template, Values: make([]Value, len(p.Values))}
	for i, v := range p.Values {
		if v != nil {
			c.Values[i] = v.Copy()
		}
	}
	return c
}

// Equal returns whether p and q have the same name and identical values.
func (p Property) Equal(q Property) bool {
	if p.Name() != q.Name() || len(p.Values) != len(q.Values) {
		return false
	}
	return reflect.DeepEqual(p.Values, q.Values)
}

// Object is an export entry together with its materialized properties.
type Object struct {
	Entry      *ExportEntry
	Properties []Property
}

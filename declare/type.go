package declare

import (
	"strings"

	"github.com/upkedit/upkedit"
	"github.com/upkedit/upkedit/props"
)

// Type corresponds to the kind of a declared property.
type Type byte

// String returns a string representation of the type. If the type is not
// valid, then the returned value will be "Invalid".
func (t Type) String() string {
	s, ok := typeStrings[t]
	if !ok {
		return "Invalid"
	}
	return s
}

const (
	_ Type = iota
	Byte
	Int
	Bool
	Float
	Object
	Name
	Str
	Vector
	Rotator
)

// TypeFromString returns a Type from its string representation. Type(0) is
// returned if the string does not represent an existing Type.
func TypeFromString(s string) Type {
	for typ, str := range typeStrings {
		if strings.EqualFold(s, str) {
			return typ
		}
	}
	return 0
}

var typeStrings = map[Type]string{
	Byte:    "Byte",
	Int:     "Int",
	Bool:    "Bool",
	Float:   "Float",
	Object:  "Object",
	Name:    "Name",
	Str:     "Str",
	Vector:  "Vector",
	Rotator: "Rotator",
}

func normFloat64(v interface{}) float64 {
	switch v := v.(type) {
	case int:
		return float64(v)
	case uint:
		return float64(v)
	case uint8:
		return float64(v)
	case uint16:
		return float64(v)
	case uint32:
		return float64(v)
	case uint64:
		return float64(v)
	case int8:
		return float64(v)
	case int16:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case float32:
		return float64(v)
	case float64:
		return v
	}

	return 0
}

func normInt32(v interface{}) int32 {
	switch v := v.(type) {
	case float32:
		return int32(v)
	case float64:
		return int32(v)
	}
	return int32(normFloat64(v))
}

func normBool(v interface{}) bool {
	b, _ := v.(bool)
	return b
}

func normString(v interface{}) string {
	switch v := v.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	}
	return ""
}

// arg returns the value at index i, or nil.
func arg(v []interface{}, i int) interface{} {
	if i < len(v) {
		return v[i]
	}
	return nil
}

// names adds the names used by a value of the type.
func (t Type) names(b *builder, v []interface{}) {
	switch t {
	case Name:
		b.name(normString(arg(v, 0)))
	case Vector, Rotator:
		b.name(t.String())
	}
}

// encode writes a property of the type to enc.
func (t Type) encode(enc *props.Encoder, pkg *upkedit.Package, name string, v []interface{}) {
	switch t {
	case Byte:
		enc.Byte(name, uint8(normInt32(arg(v, 0))))
	case Int:
		enc.Int(name, normInt32(arg(v, 0)))
	case Bool:
		enc.Bool(name, normBool(arg(v, 0)))
	case Float:
		enc.Float(name, float32(normFloat64(arg(v, 0))))
	case Object:
		var ref int32
		if s := normString(arg(v, 0)); s != "" {
			ref = pkg.ObjectReferenceByName(s, nil)
		}
		enc.Object(name, ref)
	case Name:
		enc.Name(name, normString(arg(v, 0)))
	case Str:
		enc.Str(name, normString(arg(v, 0)))
	case Vector:
		enc.Vector(name,
			float32(normFloat64(arg(v, 0))),
			float32(normFloat64(arg(v, 1))),
			float32(normFloat64(arg(v, 2))),
		)
	case Rotator:
		enc.Rotator(name,
			normInt32(arg(v, 0)),
			normInt32(arg(v, 1)),
			normInt32(arg(v, 2)),
		)
	}
}

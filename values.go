package upkedit

import (
	"math"
	"strconv"
	"strings"
)

// Type represents the kind of a property value.
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
	TypeInvalid Type = iota
	TypeByte
	TypeInt
	TypeBool
	TypeFloat
	TypeObject
	TypeName
	TypeStr
	TypeArray
	TypeStruct
)

var typeStrings = map[Type]string{
	TypeByte:   "ByteProperty",
	TypeInt:    "IntProperty",
	TypeBool:   "BoolProperty",
	TypeFloat:  "FloatProperty",
	TypeObject: "ObjectProperty",
	TypeName:   "NameProperty",
	TypeStr:    "StrProperty",
	TypeArray:  "ArrayProperty",
	TypeStruct: "StructProperty",
}

// TypeFromString returns the Type corresponding to a property class name, or
// TypeInvalid if the name is unknown.
func TypeFromString(s string) Type {
	for typ, name := range typeStrings {
		if name == s {
			return typ
		}
	}
	return TypeInvalid
}

// Value holds a value of a particular Type. The set of implementations is
// closed; code that switches over values can rely on the cases below being
// exhaustive.
type Value interface {
	// Type returns the kind of the value.
	Type() Type

	// String returns a string representation of the current value.
	String() string

	// Copy returns a copy of the value, which can be safely modified.
	Copy() Value

	value()
}

// NewValue returns the zero Value of the given Type, or nil if the type is
// not valid.
func NewValue(typ Type) Value {
	newValue, ok := valueGenerators[typ]
	if !ok {
		return nil
	}
	return newValue()
}

type valueGenerator func() Value

var valueGenerators = map[Type]valueGenerator{
	TypeByte:   func() Value { return ValueByte(0) },
	TypeInt:    func() Value { return ValueInt(0) },
	TypeBool:   func() Value { return ValueBool(false) },
	TypeFloat:  func() Value { return ValueFloat(0) },
	TypeObject: func() Value { return ValueObject(0) },
	TypeName:   func() Value { return ValueName("None") },
	TypeStr:    func() Value { return ValueStr("") },
	TypeArray:  func() Value { return ValueArray(nil) },
	TypeStruct: func() Value { return ValueStruct(nil) },
}

////////////////////////////////////////////////////////////////
// Values

// ValueByte is an 8-bit value. When the property has an enumeration, the
// value is an ordinal into it.
type ValueByte uint8

func (ValueByte) Type() Type {
	return TypeByte
}
func (t ValueByte) String() string {
	return strconv.FormatUint(uint64(t), 10)
}
func (t ValueByte) Copy() Value {
	return t
}
func (ValueByte) value() {}

////////////////

type ValueInt int32

func (ValueInt) Type() Type {
	return TypeInt
}
func (t ValueInt) String() string {
	return strconv.FormatInt(int64(t), 10)
}
func (t ValueInt) Copy() Value {
	return t
}
func (ValueInt) value() {}

////////////////

type ValueBool bool

func (ValueBool) Type() Type {
	return TypeBool
}
func (t ValueBool) String() string {
	return strconv.FormatBool(bool(t))
}
func (t ValueBool) Copy() Value {
	return t
}
func (ValueBool) value() {}

////////////////

type ValueFloat float32

func (ValueFloat) Type() Type {
	return TypeFloat
}

// String formats the value in fixed-point notation with six fraction digits.
// The result does not depend on the host locale.
func (t ValueFloat) String() string {
	return FormatFloat(float32(t))
}
func (t ValueFloat) Copy() Value {
	return t
}
func (ValueFloat) value() {}

// FormatFloat formats f with exactly six fraction digits and a period as the
// decimal separator. Infinities are written as "Infinity" and "-Infinity".
//
// The shortest decimal form of f is rounded half away from zero, so 0.0078125
// is written as 0.007813.
func FormatFloat(f float32) string {
	g := float64(f)
	switch {
	case math.IsNaN(g):
		return "NaN"
	case math.IsInf(g, 1):
		return "Infinity"
	case math.IsInf(g, -1):
		return "-Infinity"
	}

	const prec = 6
	s := strconv.FormatFloat(g, 'f', -1, 64)
	sign := ""
	if s[0] == '-' {
		sign, s = "-", s[1:]
	}
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i+1:]
	}
	if len(frac) <= prec {
		return sign + intPart + "." + frac + strings.Repeat("0", prec-len(frac))
	}

	digits := []byte(intPart + frac[:prec])
	if frac[prec] >= '5' {
		i := len(digits) - 1
		for ; i >= 0; i-- {
			if digits[i] != '9' {
				digits[i]++
				break
			}
			digits[i] = '0'
		}
		if i < 0 {
			digits = append([]byte{'1'}, digits...)
		}
	}
	n := len(digits) - prec
	return sign + string(digits[:n]) + "." + string(digits[n:])
}

////////////////

// ValueObject is an object reference. Zero is a null reference, a negative
// value refers to an import entry, and a positive value refers to an export
// entry.
type ValueObject int32

func (ValueObject) Type() Type {
	return TypeObject
}
func (t ValueObject) String() string {
	return strconv.FormatInt(int64(t), 10)
}
func (t ValueObject) Copy() Value {
	return t
}
func (ValueObject) value() {}

// IsNull returns whether the reference points at nothing.
func (t ValueObject) IsNull() bool {
	return t == 0
}

////////////////

// ValueName is a name reference, already resolved through the name table.
type ValueName string

func (ValueName) Type() Type {
	return TypeName
}
func (t ValueName) String() string {
	return string(t)
}
func (t ValueName) Copy() Value {
	return t
}
func (ValueName) value() {}

////////////////

type ValueStr string

func (ValueStr) Type() Type {
	return TypeStr
}
func (t ValueStr) String() string {
	return string(t)
}
func (t ValueStr) Copy() Value {
	return t
}
func (ValueStr) value() {}

////////////////

// ValueArray is a dynamic array. Every element has the type described by the
// inner template of the owning property.
type ValueArray []Value

func (ValueArray) Type() Type {
	return TypeArray
}
func (t ValueArray) String() string {
	s := make([]string, len(t))
	for i, v := range t {
		s[i] = v.String()
	}
	return "(" + strings.Join(s, ",") + ")"
}
func (t ValueArray) Copy() Value {
	if t == nil {
		return ValueArray(nil)
	}
	c := make(ValueArray, len(t))
	for i, v := range t {
		c[i] = v.Copy()
	}
	return c
}
func (ValueArray) value() {}

////////////////

// ValueStruct is a structure, holding its members as properties. A nil or
// empty struct is considered absent.
type ValueStruct []Property

func (ValueStruct) Type() Type {
	return TypeStruct
}
func (t ValueStruct) String() string {
	s := make([]string, len(t))
	for i, p := range t {
		vs := make([]string, len(p.Values))
		for j, v := range p.Values {
			if v == nil {
				vs[j] = "None"
				continue
			}
			vs[j] = v.String()
		}
		s[i] = p.Name() + "=" + strings.Join(vs, ",")
	}
	return "(" + strings.Join(s, ",") + ")"
}
func (t ValueStruct) Copy() Value {
	if t == nil {
		return ValueStruct(nil)
	}
	c := make(ValueStruct, len(t))
	for i, p := range t {
		c[i] = p.Copy()
	}
	return c
}
func (ValueStruct) value() {}

// IsEmpty returns whether the struct is absent.
func (t ValueStruct) IsEmpty() bool {
	return len(t) == 0
}

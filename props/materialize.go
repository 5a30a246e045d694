package props

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"unicode/utf16"

	"github.com/upkedit/upkedit"
	"github.com/upkedit/upkedit/compact"
	"github.com/upkedit/upkedit/errors"
)

// Native structures, decoded from fixed positional layouts. Each member is a
// name and the type of the member.
var nativeStructs = map[string][]nativeMember{
	"vector":  {{"X", upkedit.TypeFloat}, {"Y", upkedit.TypeFloat}, {"Z", upkedit.TypeFloat}},
	"rotator": {{"Pitch", upkedit.TypeInt}, {"Yaw", upkedit.TypeInt}, {"Roll", upkedit.TypeInt}},
	"plane":   {{"X", upkedit.TypeFloat}, {"Y", upkedit.TypeFloat}, {"Z", upkedit.TypeFloat}, {"W", upkedit.TypeFloat}},
	"color":   {{"B", upkedit.TypeByte}, {"G", upkedit.TypeByte}, {"R", upkedit.TypeByte}, {"A", upkedit.TypeByte}},
}

type nativeMember struct {
	name string
	typ  upkedit.Type
}

func nativeWidth(members []nativeMember) int {
	n := 0
	for _, m := range members {
		if m.typ == upkedit.TypeByte {
			n++
		} else {
			n += 4
		}
	}
	return n
}

// maxArrayGap is the number of empty slots that array indices may leave
// across a record list.
const maxArrayGap = 256

// Materialize builds properties from records without a class schema. Records
// that share a name are merged into one property with a slot per array index.
// Slots grow with the indices read from the blob, up to one slot per record
// plus maxArrayGap in total. An index beyond that is an error.
//
// Records whose payload cannot be interpreted without a schema, such as
// dynamic arrays and unknown structures, are skipped and reported in warn as
// LayoutErrors. A payload that does not match its type is an error.
func Materialize(records []Record, names NameTable) (properties []upkedit.Property, warn, err error) {
	var warns errors.Errors
	index := map[string]int{}
	limit := len(records) + maxArrayGap
	budget := limit
	for _, r := range records {
		if r.ArrayIndex < 0 || r.ArrayIndex >= limit {
			return nil, warns.Return(), DataError{Property: r.Name, Offset: int64(r.Offset), Cause: indexError(r.ArrayIndex)}
		}
		v, t, w, err := materialize(r, names)
		warns = warns.Append(w)
		if err != nil {
			return nil, warns.Return(), err
		}
		if v == nil {
			continue
		}
		key := strings.ToLower(r.Name)
		i, ok := index[key]
		if !ok {
			i = len(properties)
			index[key] = i
			properties = append(properties, upkedit.Property{Template: t})
		}
		p := &properties[i]
		if grow := r.ArrayIndex + 1 - len(p.Values); grow > 0 {
			if budget -= grow; budget < 0 {
				return nil, warns.Return(), DataError{Property: r.Name, Offset: int64(r.Offset), Cause: indexError(r.ArrayIndex)}
			}
			values := make([]upkedit.Value, r.ArrayIndex+1)
			copy(values, p.Values)
			p.Values = values
			p.Template.ArrayDim = len(values)
		}
		p.Values[r.ArrayIndex] = v
	}
	return properties, warns.Return(), nil
}

func materialize(r Record, names NameTable) (v upkedit.Value, t *upkedit.Template, warn, err error) {
	t = &upkedit.Template{Name: r.Name, ArrayDim: 1}
	p := r.Payload
	fail := func(cause error) (upkedit.Value, *upkedit.Template, error, error) {
		return nil, nil, nil, DataError{Property: r.Name, Offset: int64(r.Offset), Cause: cause}
	}
	switch r.Header.Tag {
	case TagByte:
		if len(p) != 1 {
			return fail(widthError(r.Header.Tag, len(p)))
		}
		t.Type = upkedit.TypeByte
		return upkedit.ValueByte(p[0]), t, nil, nil
	case TagInt:
		if len(p) != 4 {
			return fail(widthError(r.Header.Tag, len(p)))
		}
		t.Type = upkedit.TypeInt
		return upkedit.ValueInt(binary.LittleEndian.Uint32(p)), t, nil, nil
	case TagBool:
		t.Type = upkedit.TypeBool
		return upkedit.ValueBool(r.Bool()), t, nil, nil
	case TagFloat:
		if len(p) != 4 {
			return fail(widthError(r.Header.Tag, len(p)))
		}
		t.Type = upkedit.TypeFloat
		return upkedit.ValueFloat(math.Float32frombits(binary.LittleEndian.Uint32(p))), t, nil, nil
	case TagObject, TagClass:
		ref, n, err := compact.Decode(p)
		if err != nil {
			return fail(err)
		}
		if n != len(p) {
			return fail(widthError(r.Header.Tag, len(p)))
		}
		t.Type = upkedit.TypeObject
		return upkedit.ValueObject(ref), t, nil, nil
	case TagName:
		ref, n, err := compact.Decode(p)
		if err != nil {
			return fail(err)
		}
		if n != len(p) {
			return fail(widthError(r.Header.Tag, len(p)))
		}
		name, err := names.NameReference(ref)
		if err != nil {
			return fail(err)
		}
		t.Type = upkedit.TypeName
		return upkedit.ValueName(name), t, nil, nil
	case TagStr:
		s, n, err := DecodeString(p)
		if err != nil {
			return fail(err)
		}
		if n != len(p) {
			return fail(widthError(r.Header.Tag, len(p)))
		}
		t.Type = upkedit.TypeStr
		return upkedit.ValueStr(s), t, nil, nil
	case TagVector:
		return materializeStruct(r, t, "Vector", names)
	case TagRotator:
		return materializeStruct(r, t, "Rotator", names)
	case TagStruct:
		return materializeStruct(r, t, r.StructName, names)
	}
	return nil, nil, LayoutError{Property: r.Name, Tag: r.Header.Tag}, nil
}

func materializeStruct(r Record, t *upkedit.Template, structName string, names NameTable) (v upkedit.Value, _ *upkedit.Template, warn, err error) {
	t.Type = upkedit.TypeStruct
	t.Struct = structName
	if members, ok := nativeStructs[strings.ToLower(structName)]; ok {
		if len(r.Payload) != nativeWidth(members) {
			return nil, nil, nil, DataError{Property: r.Name, Offset: int64(r.Offset), Cause: widthError(r.Header.Tag, len(r.Payload))}
		}
		return decodeNative(members, r.Payload), t, nil, nil
	}

	// Other structures are serialized as a nested property list.
	records, end, err := Collect(r.Payload, 0, names)
	if err != nil || end != len(r.Payload) {
		return nil, nil, LayoutError{Property: r.Name, Tag: r.Header.Tag, Struct: structName}, nil
	}
	members, w, err := Materialize(records, names)
	if err != nil {
		return nil, nil, w, err
	}
	return upkedit.ValueStruct(members), t, w, nil
}

func decodeNative(members []nativeMember, b []byte) upkedit.ValueStruct {
	s := make(upkedit.ValueStruct, len(members))
	for i, m := range members {
		var v upkedit.Value
		switch m.typ {
		case upkedit.TypeByte:
			v = upkedit.ValueByte(b[0])
			b = b[1:]
		case upkedit.TypeInt:
			v = upkedit.ValueInt(binary.LittleEndian.Uint32(b))
			b = b[4:]
		case upkedit.TypeFloat:
			v = upkedit.ValueFloat(math.Float32frombits(binary.LittleEndian.Uint32(b)))
			b = b[4:]
		}
		s[i] = upkedit.NewProperty(&upkedit.Template{Name: m.name, Type: m.typ, ArrayDim: 1}, v)
	}
	return s
}

func indexError(index int) error {
	return fmt.Errorf("array index %d out of range: %w", index, errors.ErrMalformed)
}

func widthError(tag Tag, width int) error {
	return fmt.Errorf("unexpected width %d for %s: %w", width, tag, errors.ErrMalformed)
}

// DecodeString decodes a string in the format of Str payloads, returning the
// string and the number of bytes consumed.
func DecodeString(b []byte) (s string, n int, err error) {
	length, n, err := compact.Decode(b)
	if err != nil {
		return "", n, err
	}
	if length == 0 {
		return "", n, nil
	}
	if length > 0 {
		end := n + int(length)
		if end > len(b) {
			return "", n, errUnderrun
		}
		runes := make([]rune, 0, length-1)
		for _, c := range b[n : end-1] {
			runes = append(runes, rune(c))
		}
		return string(runes), end, nil
	}
	count := -int(length)
	end := n + count*2
	if end > len(b) || end < n {
		return "", n, errUnderrun
	}
	units := make([]uint16, count-1)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(b[n+i*2:])
	}
	return string(utf16.Decode(units)), end, nil
}

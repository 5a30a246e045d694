// The json package is used to encode and decode package snapshots to the JSON
// format.
package json

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/upkedit/upkedit"
	"github.com/upkedit/upkedit/errors"
)

// The current version of the schema.
const jsonVersion = 0

// Encode returns the JSON encoding of pkg.
func Encode(pkg *upkedit.Package) (b []byte, err error) {
	return json.MarshalIndent(PackageToJSONInterface(pkg), "", "\t")
}

// Decode returns the package encoded in b.
func Decode(b []byte) (pkg *upkedit.Package, err error) {
	var v interface{}
	err = json.Unmarshal(b, &v)
	if err != nil {
		return nil, err
	}
	pkg, ok := PackageFromJSONInterface(v)
	if !ok {
		return nil, fmt.Errorf("invalid JSON package object: %w", errors.ErrMalformed)
	}
	return pkg, nil
}

func indexJSON(v, i, p interface{}) bool {
	var value interface{}
	switch object := v.(type) {
	case map[string]interface{}:
		index, ok := i.(string)
		if !ok {
			return false
		}
		value, ok = object[index]
		if !ok {
			return false
		}
	case []interface{}:
		index, ok := i.(int)
		if !ok {
			return false
		}
		if index >= len(object) || index < 0 {
			return false
		}
		value = object[index]
	default:
		return false
	}
	switch p := p.(type) {
	case *float64:
		value, ok := value.(float64)
		if !ok {
			return false
		}
		*p = value
	case *int32:
		value, ok := value.(float64)
		if !ok || value != float64(int32(value)) {
			return false
		}
		*p = int32(value)
	case *uint32:
		value, ok := value.(float64)
		if !ok || value != float64(uint32(value)) {
			return false
		}
		*p = uint32(value)
	case *string:
		value, ok := value.(string)
		if !ok {
			return false
		}
		*p = value
	case *[]byte:
		value, ok := value.(string)
		if !ok {
			return false
		}
		b, err := base64.StdEncoding.DecodeString(value)
		if err != nil {
			return false
		}
		*p = b
	case *[]interface{}:
		value, ok := value.([]interface{})
		if !ok {
			return false
		}
		*p = value
	case *interface{}:
		*p = value
	}
	return true
}

////////////////////////////////////////////////////////////////

func PackageToJSONInterface(pkg *upkedit.Package) interface{} {
	ipkg := make(map[string]interface{}, 5)
	ipkg["upkedit_version"] = float64(jsonVersion)
	ipkg["name"] = pkg.Name
	names := make([]interface{}, len(pkg.Names))
	for i, name := range pkg.Names {
		names[i] = name
	}
	ipkg["names"] = names
	imports := make([]interface{}, len(pkg.Imports))
	for i, e := range pkg.Imports {
		imports[i] = map[string]interface{}{
			"class_package": e.ClassPackage,
			"class":         e.Class,
			"outer":         float64(e.Outer),
			"name":          e.Name,
		}
	}
	ipkg["imports"] = imports
	exports := make([]interface{}, len(pkg.Exports))
	for i, e := range pkg.Exports {
		exports[i] = map[string]interface{}{
			"class": float64(e.Class),
			"super": float64(e.SuperClass),
			"outer": float64(e.Outer),
			"name":  e.Name,
			"flags": float64(e.Flags),
			"raw":   base64.StdEncoding.EncodeToString(e.Raw),
		}
	}
	ipkg["exports"] = exports
	return ipkg
}

func PackageFromJSONInterface(ipkg interface{}) (pkg *upkedit.Package, ok bool) {
	var version float64
	if !indexJSON(ipkg, "upkedit_version", &version) {
		return nil, false
	}

	switch int(version) {
	case 0:
		var name string
		if !indexJSON(ipkg, "name", &name) {
			return nil, false
		}

		var inames, iimports, iexports []interface{}
		if !indexJSON(ipkg, "names", &inames) ||
			!indexJSON(ipkg, "imports", &iimports) ||
			!indexJSON(ipkg, "exports", &iexports) {
			return nil, false
		}

		names := make([]string, len(inames))
		for i := range inames {
			if !indexJSON(inames, i, &names[i]) {
				return nil, false
			}
		}

		imports := make([]*upkedit.ImportEntry, len(iimports))
		for i, iimp := range iimports {
			if imports[i], ok = importFromJSONInterface(iimp); !ok {
				return nil, false
			}
		}

		exports := make([]*upkedit.ExportEntry, len(iexports))
		for i, iexp := range iexports {
			if exports[i], ok = exportFromJSONInterface(iexp); !ok {
				return nil, false
			}
		}
		return upkedit.NewPackage(name, names, imports, exports), true
	default:
		return nil, false
	}
}

func importFromJSONInterface(iimp interface{}) (e *upkedit.ImportEntry, ok bool) {
	e = new(upkedit.ImportEntry)
	if !indexJSON(iimp, "class_package", &e.ClassPackage) ||
		!indexJSON(iimp, "class", &e.Class) ||
		!indexJSON(iimp, "name", &e.Name) {
		return nil, false
	}
	// Top-level imports may omit the outer reference.
	indexJSON(iimp, "outer", &e.Outer)
	return e, true
}

func exportFromJSONInterface(iexp interface{}) (e *upkedit.ExportEntry, ok bool) {
	e = new(upkedit.ExportEntry)
	if !indexJSON(iexp, "class", &e.Class) ||
		!indexJSON(iexp, "name", &e.Name) {
		return nil, false
	}
	indexJSON(iexp, "super", &e.SuperClass)
	indexJSON(iexp, "outer", &e.Outer)
	indexJSON(iexp, "flags", &e.Flags)
	if _, present := iexp.(map[string]interface{})["raw"]; present && !indexJSON(iexp, "raw", &e.Raw) {
		return nil, false
	}
	return e, true
}

package actor

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/anaminus/parse"
	"github.com/upkedit/upkedit/compact"
	"github.com/upkedit/upkedit/errors"
	"github.com/upkedit/upkedit/props"
)

// LevelName and LevelClass identify the level export holding the actor list.
const (
	LevelName  = "myLevel"
	LevelClass = "Engine.Level"
)

// TerrainInfoClass is the class of exports holding map coordinates.
const TerrainInfoClass = "Engine.TerrainInfo"

// skipRefs reads a list header of two integers, the second being a count,
// followed by that many compact references. Returns the count.
func skipRefs(fr *parse.BinaryReader) (count int32, failed bool) {
	var max int32
	if fr.Number(&max) || fr.Number(&count) {
		return 0, true
	}
	if count < 0 {
		fr.Add(0, fmt.Errorf("negative count %d: %w", count, errors.ErrMalformed))
		return 0, true
	}
	for i := int32(0); i < count; i++ {
		var ref int32
		if compact.Read(fr, &ref) {
			return 0, true
		}
	}
	return count, false
}

// AppendToLevel returns a copy of the data of a level with ref appended to
// its actor list.
func AppendToLevel(level []byte, ref int32) ([]byte, error) {
	fr := parse.NewBinaryReader(bytes.NewReader(level))
	var none int32
	if compact.Read(fr, &none) {
		return nil, levelError(fr)
	}
	if _, failed := skipRefs(fr); failed {
		return nil, levelError(fr)
	}
	countPos := int(fr.N())
	count, failed := skipRefs(fr)
	if failed {
		return nil, levelError(fr)
	}
	pos := int(fr.N())

	r := compact.Bytes(ref)
	b := make([]byte, 0, len(level)+len(r))
	b = append(b, level[:pos]...)
	b = append(b, r...)
	b = append(b, level[pos:]...)
	binary.LittleEndian.PutUint32(b[countPos:], uint32(count+1))
	binary.LittleEndian.PutUint32(b[countPos+4:], uint32(count+1))
	return b, nil
}

func levelError(fr *parse.BinaryReader) error {
	cause := fr.Err()
	if !errors.Is(cause, errors.ErrMalformed) {
		cause = fmt.Errorf("%s: %w", cause, errors.ErrMalformed)
	}
	return props.DataError{Property: "actor list", Offset: fr.N(), Cause: cause}
}

// MapCoords reads the MapX and MapY properties of a terrain info from the
// property list starting at offset start of blob.
func MapCoords(blob []byte, start int, names props.NameTable) (x, y int32, err error) {
	_, err = props.Scan(blob, start, names, func(r props.Record) error {
		var v *int32
		switch {
		case strings.EqualFold(r.Name, "MapX"):
			v = &x
		case strings.EqualFold(r.Name, "MapY"):
			v = &y
		default:
			return nil
		}
		if r.Header.Tag != props.TagInt || len(r.Payload) != 4 {
			return props.DataError{Property: r.Name, Offset: int64(r.Offset), Cause: ErrLayout}
		}
		*v = int32(binary.LittleEndian.Uint32(r.Payload))
		return nil
	})
	return x, y, err
}

// MapID combines map coordinates into the identifier of a map.
func MapID(x, y int32) int32 {
	return x | y<<8
}

package props

import (
	"bytes"
	"encoding/binary"

	"github.com/anaminus/parse"
	"github.com/upkedit/upkedit"
	"github.com/upkedit/upkedit/compact"
)

// StateFrame is the execution state that precedes the property list of
// objects flagged with upkedit.ObjectHasStack.
type StateFrame struct {
	Node         int32
	StateNode    int32
	ProbeMask    int64
	LatentAction int32
	Offset       int32
}

// ReadStateFrame reads a state frame from the start of b, returning the number
// of bytes it occupies.
func ReadStateFrame(b []byte) (f StateFrame, n int, err error) {
	fr := parse.NewBinaryReader(bytes.NewReader(b))
	if compact.Read(fr, &f.Node) ||
		compact.Read(fr, &f.StateNode) ||
		fr.Number(&f.ProbeMask) ||
		fr.Number(&f.LatentAction) ||
		compact.Read(fr, &f.Offset) {
		return f, int(fr.N()), DataError{Offset: fr.N(), Cause: malformed(fr.Err())}
	}
	return f, int(fr.N()), nil
}

// Append appends the encoding of the frame to b.
func (f StateFrame) Append(b []byte) []byte {
	b = compact.Append(b, f.Node)
	b = compact.Append(b, f.StateNode)
	b = binary.LittleEndian.AppendUint64(b, uint64(f.ProbeMask))
	b = binary.LittleEndian.AppendUint32(b, uint32(f.LatentAction))
	return compact.Append(b, f.Offset)
}

// Start returns the offset of the property list within the data of e.
func Start(e *upkedit.ExportEntry) (int, error) {
	if !e.HasStack() {
		return 0, nil
	}
	_, n, err := ReadStateFrame(e.Raw)
	return n, err
}

package props

import (
	"bytes"
	"strings"

	"github.com/anaminus/parse"
	"github.com/upkedit/upkedit/compact"
)

// NameTable resolves name references.
type NameTable interface {
	NameReference(i int32) (string, error)
}

// Scanner reads the records of a property list one at a time.
//
// The zero value is not usable; create a Scanner with NewScanner.
type Scanner struct {
	blob  []byte
	names NameTable
	off   int
	rec   Record
	err   error
	done  bool
}

// NewScanner returns a Scanner that reads the property list starting at
// offset start of blob.
func NewScanner(blob []byte, start int, names NameTable) *Scanner {
	return &Scanner{blob: blob, names: names, off: start}
}

// Next advances to the next record, which is then available through Record.
// Returns false when the terminating "None" record is reached or an error
// occurs.
func (s *Scanner) Next() bool {
	if s.done || s.err != nil {
		return false
	}
	if s.off < 0 || s.off > len(s.blob) {
		s.err = DataError{Offset: int64(s.off), Cause: errUnderrun}
		return false
	}
	fr := parse.NewBinaryReader(bytes.NewReader(s.blob[s.off:]))
	rec, done, err := s.read(fr)
	if err != nil {
		s.err = err
		return false
	}
	s.off += int(fr.N())
	if done {
		s.done = true
		return false
	}
	s.rec = rec
	return true
}

// Record returns the record read by the last call to Next.
func (s *Scanner) Record() Record {
	return s.rec
}

// Err returns the error that stopped the scanner, if any.
func (s *Scanner) Err() error {
	return s.err
}

// Done returns whether the terminating record was reached.
func (s *Scanner) Done() bool {
	return s.done
}

// Offset returns the current position in the blob. After the scan is done, it
// is the offset just past the terminating record.
func (s *Scanner) Offset() int {
	return s.off
}

func (s *Scanner) fail(name string, pos int64, err error) error {
	return DataError{Property: name, Offset: int64(s.off) + pos, Cause: malformed(err)}
}

func (s *Scanner) read(fr *parse.BinaryReader) (rec Record, done bool, err error) {
	rec.Start = s.off

	var ref int32
	if compact.Read(fr, &ref) {
		return rec, false, s.fail("", 0, fr.Err())
	}
	name, err := s.names.NameReference(ref)
	if err != nil {
		return rec, false, s.fail("", 0, err)
	}
	if strings.EqualFold(name, "None") {
		return rec, true, nil
	}
	rec.Name = name

	rec.HeaderOffset = s.off + int(fr.N())
	var info uint8
	if fr.Number(&info) {
		return rec, false, s.fail(name, fr.N(), fr.Err())
	}
	rec.Header = ParseHeader(info)
	if !rec.Header.Tag.Valid() {
		return rec, false, s.fail(name, fr.N()-1, errInvalidTag)
	}

	if rec.Header.Tag == TagStruct {
		if compact.Read(fr, &rec.StructRef) {
			return rec, false, s.fail(name, fr.N(), fr.Err())
		}
		if rec.StructName, err = s.names.NameReference(rec.StructRef); err != nil {
			return rec, false, s.fail(name, fr.N(), err)
		}
	}

	width, failed := readWidth(fr, rec.Header.Size)
	if failed {
		return rec, false, s.fail(name, fr.N(), fr.Err())
	}

	if rec.Header.HasIndex() {
		if rec.ArrayIndex, failed = readIndex(fr); failed {
			return rec, false, s.fail(name, fr.N(), fr.Err())
		}
	}

	rec.Offset = s.off + int(fr.N())
	if width > len(s.blob)-rec.Offset {
		return rec, false, s.fail(name, fr.N(), errUnderrun)
	}
	rec.Payload = s.blob[rec.Offset : rec.Offset+width : rec.Offset+width]
	fr.Add(int64(width), nil)
	return rec, false, nil
}

// readIndex reads an array index.
func readIndex(fr *parse.BinaryReader) (index int, failed bool) {
	var b [4]byte
	if fr.Bytes(b[:1]) {
		return 0, true
	}
	switch {
	case b[0] < 0x80:
		return int(b[0]), false
	case b[0]&0xC0 == 0x80:
		if fr.Bytes(b[1:2]) {
			return 0, true
		}
		return int(b[0]&0x7F)<<8 | int(b[1]), false
	default:
		if fr.Bytes(b[1:4]) {
			return 0, true
		}
		return int(b[0]&0x3F)<<24 | int(b[1])<<16 | int(b[2])<<8 | int(b[3]), false
	}
}

// Scan reads the property list starting at offset start of blob, calling fn
// for each record in order. If fn returns an error, scanning stops and the
// error is returned. Returns the offset just past the terminating record.
func Scan(blob []byte, start int, names NameTable, fn func(Record) error) (end int, err error) {
	s := NewScanner(blob, start, names)
	for s.Next() {
		if err := fn(s.Record()); err != nil {
			return s.Offset(), err
		}
	}
	if err := s.Err(); err != nil {
		return s.Offset(), err
	}
	return s.Offset(), nil
}

// Collect returns every record of the property list starting at offset start
// of blob, and the offset just past the terminating record.
func Collect(blob []byte, start int, names NameTable) (records []Record, end int, err error) {
	end, err = Scan(blob, start, names, func(r Record) error {
		records = append(records, r)
		return nil
	})
	return records, end, err
}

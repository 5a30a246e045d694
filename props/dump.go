package props

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Dump writes to w a readable representation of the property list starting at
// offset start of blob. Returns the offset just past the terminating record.
// Records read before an error are still written.
func Dump(w io.Writer, blob []byte, start int, names NameTable) (end int, err error) {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "Properties @%d {", start)
	end, err = dumpList(bw, 1, blob, start, names)
	if err != nil {
		dumpNewline(bw, 1)
		fmt.Fprintf(bw, "ERROR: %s", err)
	}
	dumpNewline(bw, 0)
	fmt.Fprintf(bw, "} @%d", end)
	if ferr := bw.Flush(); err == nil {
		err = ferr
	}
	return end, err
}

func dumpList(w *bufio.Writer, indent int, blob []byte, start int, names NameTable) (end int, err error) {
	return Scan(blob, start, names, func(r Record) error {
		dumpRecord(w, indent, r, names)
		return nil
	})
}

func dumpRecord(w *bufio.Writer, indent int, r Record, names NameTable) {
	dumpNewline(w, indent)
	fmt.Fprintf(w, "%q @%d: %s", r.Name, r.HeaderOffset, r.Header.Tag)
	if r.Header.Tag == TagStruct {
		fmt.Fprintf(w, "<%s>", r.StructName)
	}
	if r.Header.HasIndex() {
		fmt.Fprintf(w, "[%d]", r.ArrayIndex)
	}
	fmt.Fprintf(w, " (size:%d)", r.Header.Size)
	switch r.Header.Tag {
	case TagBool:
		w.WriteString(" = ")
		w.WriteString(strconv.FormatBool(r.Bool()))
		return
	case TagStruct:
		if _, ok := nativeStructs[strings.ToLower(r.StructName)]; !ok {
			// Nested lists are dumped as records when they scan cleanly.
			var sub strings.Builder
			sw := bufio.NewWriter(&sub)
			if end, err := dumpList(sw, indent+1, r.Payload, 0, names); err == nil && end == len(r.Payload) {
				sw.Flush()
				w.WriteString(" {")
				w.WriteString(sub.String())
				dumpNewline(w, indent)
				w.WriteString("}")
				return
			}
		}
	}
	w.WriteString(" ")
	dumpBytes(w, indent, r.Payload)
}

func dumpNewline(w *bufio.Writer, indent int) {
	w.WriteByte('\n')
	for i := 0; i < indent; i++ {
		w.WriteByte('\t')
	}
}

func dumpBytes(w *bufio.Writer, indent int, b []byte) {
	fmt.Fprintf(w, "(len:%d)", len(b))
	const width = 16
	for j := 0; j < len(b); j += width {
		dumpNewline(w, indent+1)
		w.WriteString("| ")
		for i := j; i < j+width; {
			if i < len(b) {
				s := strconv.FormatUint(uint64(b[i]), 16)
				if len(s) == 1 {
					w.WriteString("0")
				}
				w.WriteString(s)
			} else if len(b) < width {
				break
			} else {
				w.WriteString("  ")
			}
			i++
			if i%8 == 0 && i < j+width {
				w.WriteString("  ")
			} else {
				w.WriteString(" ")
			}
		}
		w.WriteString("|")
		n := len(b)
		if j+width < n {
			n = j + width
		}
		for i := j; i < n; i++ {
			if 32 <= b[i] && b[i] <= 126 {
				w.WriteRune(rune(b[i]))
			} else {
				w.WriteByte('.')
			}
		}
		w.WriteByte('|')
	}
}

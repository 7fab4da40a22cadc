package field

import (
	"github.com/stlalpha/tn5250agent/internal/codec"
	"github.com/stlalpha/tn5250agent/internal/screen"
)

// Table is the field table derived from one screen's attribute plane. It
// is rebuilt wholesale by Scan whenever the VT reports that attributes
// changed; there is no incremental update.
type Table struct {
	fields []Field
	planes *screen.Planes
	cdc    codec.Codec
}

// Scan performs a single left-to-right, top-to-bottom pass over the
// plane: any cell whose attribute byte has BitFieldStart set begins a new
// field, running until the next such cell or the end of the screen.
func Scan(planes *screen.Planes, cdc codec.Codec) *Table {
	t := &Table{planes: planes, cdc: cdc}
	size := planes.Size()

	var starts []int
	for pos := 0; pos < size; pos++ {
		_, attr, _ := planes.ReadCell(pos)
		if attr&BitFieldStart != 0 {
			starts = append(starts, pos)
		}
	}

	for i, start := range starts {
		_, attr, _ := planes.ReadCell(start)
		end := size
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		length := end - start - 1
		if length < 0 {
			length = 0
		}
		ext, hasExt, _ := planes.ReadExtAttr(start)
		t.fields = append(t.fields, Field{
			Start:      start,
			Length:     length,
			Attr:       attr,
			ExtAttr:    ext,
			HasExtAttr: hasExt,
			MDT:        attr&BitMDT != 0,
		})
	}
	return t
}

// FieldsInReadingOrder returns the fields in the order Scan found them,
// which is already left-to-right, top-to-bottom.
func (t *Table) FieldsInReadingOrder() []Field {
	return append([]Field(nil), t.fields...)
}

// FindByPosition returns the field containing pos (anywhere in
// [field.Start, field.DataStart()+field.Length)), if any.
func (t *Table) FindByPosition(pos int) (Field, bool) {
	for _, f := range t.fields {
		if pos == f.Start || f.Contains(pos) {
			return f, true
		}
	}
	return Field{}, false
}

// CopyFieldToString decodes a field's data cells through the active
// codec into a Go string.
func (t *Table) CopyFieldToString(f Field) (string, error) {
	raw := make([]byte, f.Length)
	for i := 0; i < f.Length; i++ {
		b, _, _ := t.planes.ReadCell(f.DataStart() + i)
		raw[i] = b
	}
	runes, err := t.cdc.NewDecoder().DecodeStream(raw)
	if err != nil {
		return "", err
	}
	return string(runes), nil
}

// SetField writes s into a field's data cells, truncating at the field
// boundary and setting the field's MDT bit. Returns the number of runes
// actually accepted. ProtectedFieldError and NumericFieldViolationError
// are returned without partially applying the write.
func (t *Table) SetField(f Field, s string) (accepted int, err error) {
	if f.Protected() {
		return 0, &ProtectedFieldError{Start: f.Start}
	}
	runes := []rune(s)
	if f.NumericOnly() {
		for _, r := range runes {
			if r < '0' || r > '9' {
				return 0, &NumericFieldViolationError{Start: f.Start, Rune: r}
			}
		}
	}
	if len(runes) > f.Length {
		runes = runes[:f.Length]
	}

	enc := t.cdc.NewEncoder()
	encoded, err := enc.EncodeString(string(runes))
	if err != nil {
		return 0, err
	}

	pos := f.DataStart()
	attr := f.Attr &^ BitFieldStart
	for _, b := range encoded {
		t.planes.WriteCell(pos, b, attr)
		pos++
	}
	for ; pos < f.DataStart()+f.Length; pos++ {
		t.planes.WriteCell(pos, EBCDICSpace, attr)
	}

	t.setMDT(f)
	return len(runes), nil
}

// setMDT marks the field's attribute-byte cell's MDT bit, both in the
// live plane and in the cached Field record so a subsequent
// FieldsInReadingOrder call reflects it without a full re-scan.
func (t *Table) setMDT(f Field) {
	char, attr, ok := t.planes.ReadCell(f.Start)
	if !ok {
		return
	}
	t.planes.WriteCell(f.Start, char, attr|BitMDT)
	for i := range t.fields {
		if t.fields[i].Start == f.Start {
			t.fields[i].MDT = true
			t.fields[i].Attr |= BitMDT
		}
	}
}

package session

import (
	"strings"

	"github.com/stlalpha/tn5250agent/internal/field"
	"github.com/stlalpha/tn5250agent/internal/oia"
)

// FieldSelector addresses one field in a ScreenSnapshot, either by its
// reading-order index or by its absolute screen position.
type FieldSelector struct {
	Index    int
	Position int
	ByIndex  bool
}

// ByIndex builds a selector addressing the Nth field in reading order.
func ByIndex(n int) FieldSelector { return FieldSelector{Index: n, ByIndex: true} }

// ByPosition builds a selector addressing the field containing pos.
func ByPosition(pos int) FieldSelector { return FieldSelector{Position: pos} }

// FieldView is one field's decoded value plus the metadata a caller
// needs without touching the live Session.
type FieldView struct {
	Start      int
	Length     int
	Protected  bool
	NumericOnly bool
	MDT        bool
	Value      string
}

// ScreenSnapshot is the deep, immutable copy Session.Capture returns:
// row/col metadata, OIA state, and the field map, frozen at the instant
// of capture.
type ScreenSnapshot struct {
	Rows        []string
	ColsPerRow  int
	OIA         oia.State
	Fields      []FieldView
	Cursor      int
}

// Text joins every row with newlines, for simple substring search.
func (s ScreenSnapshot) Text() string { return strings.Join(s.Rows, "\n") }

// TextContains reports whether substring appears anywhere in the
// snapshot.
func (s ScreenSnapshot) TextContains(substring string) bool {
	return strings.Contains(s.Text(), substring)
}

// FieldBySelector resolves sel against this snapshot's field list.
func (s ScreenSnapshot) FieldBySelector(sel FieldSelector) (FieldView, bool) {
	if sel.ByIndex {
		if sel.Index < 0 || sel.Index >= len(s.Fields) {
			return FieldView{}, false
		}
		return s.Fields[sel.Index], true
	}
	for _, f := range s.Fields {
		if sel.Position >= f.Start && sel.Position < f.Start+1+f.Length {
			return f, true
		}
	}
	return FieldView{}, false
}

// newFieldView decodes one field's current value for embedding in a
// snapshot.
func newFieldView(t *field.Table, f field.Field) FieldView {
	val, _ := t.CopyFieldToString(f) // ConversionError here would mean the host wrote data outside the active codec; surfaced value is best-effort for evidence.
	return FieldView{
		Start:       f.Start,
		Length:      f.Length,
		Protected:   f.Protected(),
		NumericOnly: f.NumericOnly(),
		MDT:         f.MDT,
		Value:       val,
	}
}

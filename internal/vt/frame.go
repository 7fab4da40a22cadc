package vt

import (
	"github.com/stlalpha/tn5250agent/internal/field"
	"github.com/stlalpha/tn5250agent/internal/screen"
)

// applyWriteToDisplay walks one Write to Display order stream, applying
// SBA/SF/SA/IC/RA orders and literal character bytes to the planes
// starting from the current cursor position. The cursor ends where an IC
// order placed it, or after the last written cell when there is none. It
// reports whether any SF order ran (the field table needs a re-scan) and
// the first malformed order or out-of-bounds address encountered.
func (v *VT) applyWriteToDisplay(body []byte) (attributesChanged bool, err error) {
	size := v.planes.Size()
	pos := v.planes.Cursor()
	currentAttr := screen.DefaultAttr
	fieldOpen := false
	cursorSet := false
	var fieldStart int

	advance := func(p int) int {
		p++
		if p >= size {
			p = 0
		}
		return p
	}

	i := 0
	for i < len(body) {
		switch b := body[i]; b {
		case OrderSBA:
			if i+2 >= len(body) {
				return attributesChanged, errTruncated("SBA")
			}
			addr := int(body[i+1])<<8 | int(body[i+2])
			if addr < 0 || addr >= size {
				return attributesChanged, errOutOfBounds("SBA", addr)
			}
			pos = addr
			i += 3

		case OrderSF:
			if i+1 >= len(body) {
				return attributesChanged, errTruncated("SF")
			}
			attr := body[i+1]
			if !v.planes.WriteCell(pos, screen.NullChar, attr) {
				return attributesChanged, errOutOfBounds("SF", pos)
			}
			fieldStart = pos
			fieldOpen = true
			currentAttr = attr &^ field.BitFieldStart
			attributesChanged = true
			pos = advance(pos)
			i += 2

		case OrderSA:
			if i+1 >= len(body) {
				return attributesChanged, errTruncated("SA")
			}
			if fieldOpen {
				v.planes.WriteExtAttr(fieldStart, body[i+1])
			}
			i += 2

		case OrderIC:
			if i+2 >= len(body) {
				return attributesChanged, errTruncated("IC")
			}
			addr := int(body[i+1])<<8 | int(body[i+2])
			if !v.planes.MoveCursor(addr) {
				return attributesChanged, errOutOfBounds("IC", addr)
			}
			cursorSet = true
			i += 3

		case OrderRA:
			if i+3 >= len(body) {
				return attributesChanged, errTruncated("RA")
			}
			end := int(body[i+1])<<8 | int(body[i+2])
			if end < 0 || end >= size {
				return attributesChanged, errOutOfBounds("RA", end)
			}
			ch := body[i+3]
			for pos != end {
				v.planes.WriteCell(pos, ch, currentAttr)
				pos = advance(pos)
			}
			v.planes.WriteCell(pos, ch, currentAttr)
			pos = advance(pos)
			i += 4

		default:
			v.planes.WriteCell(pos, b, currentAttr)
			pos = advance(pos)
			i++
		}
	}
	if !cursorSet {
		v.planes.MoveCursor(pos)
	}
	return attributesChanged, nil
}

func (v *VT) applySaveScreen(body []byte) error {
	area := saveArea(body)
	chars, attrs, ext := v.planes.SaveState()
	v.saved[area] = savedState{chars: chars, attrs: attrs, ext: ext}
	return nil
}

func (v *VT) applyRestoreScreen(body []byte) (attributesChanged bool, err error) {
	area := saveArea(body)
	st, ok := v.saved[area]
	if !ok {
		return false, errNoSavedScreen(area)
	}
	if !v.planes.RestoreState(st.chars, st.attrs, st.ext) {
		return false, errSaveSizeMismatch(area)
	}
	return true, nil
}

func (v *VT) applyRoll(body []byte) error {
	if len(body) < 3 {
		return errTruncated("Roll")
	}
	top, bottom := int(body[0]), int(body[1])
	lines := int(int8(body[2]))
	if !v.planes.Roll(top, bottom, lines) {
		return errRollBounds(top, bottom, lines)
	}
	return nil
}

func saveArea(body []byte) byte {
	if len(body) > 0 {
		return body[0]
	}
	return 0
}

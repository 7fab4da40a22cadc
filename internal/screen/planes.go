// Package screen holds the presentation space: two parallel byte planes
// (character codes and attribute bytes) plus dirty-rectangle tracking. It
// knows nothing about EBCDIC/Unicode conversion (that is internal/codec's
// job) or field semantics (internal/field's job).
package screen

// DefaultAttr is the attribute byte planes are filled with on Clear: an
// unprotected, normal-intensity, non-field-start byte.
const DefaultAttr byte = 0x20

// NullChar is the EBCDIC code point planes are filled with on Clear.
const NullChar byte = 0x00

// Planes is the dual-plane character/attribute presentation space for one
// screen size. Rows and Cols are fixed at construction; switching size
// families at runtime is not supported — the VT tears down and re-inits
// the planes instead.
type Planes struct {
	Rows, Cols int

	chars   []byte
	attrs   []byte
	extAttr []byte // extended attribute plane; 0 means "no extended attribute set"
	dirty   *DirtyRect

	cursor int
}

// supportedSizes are the only two size families this package supports.
var supportedSizes = map[[2]int]bool{
	{24, 80}:  true,
	{27, 132}: true,
}

// NewPlanes constructs a cleared presentation space for the given size
// family. Returns InvalidSizeError for anything other than 24x80 or
// 27x132.
func NewPlanes(rows, cols int) (*Planes, error) {
	if !supportedSizes[[2]int{rows, cols}] {
		return nil, &InvalidSizeError{Rows: rows, Cols: cols}
	}
	p := &Planes{
		Rows:    rows,
		Cols:    cols,
		chars:   make([]byte, rows*cols),
		attrs:   make([]byte, rows*cols),
		extAttr: make([]byte, rows*cols),
		dirty:   NewDirtyRect(),
	}
	p.fill(NullChar, DefaultAttr)
	return p, nil
}

// Size returns rows*cols, the plane length.
func (p *Planes) Size() int { return p.Rows * p.Cols }

func (p *Planes) inBounds(pos int) bool { return pos >= 0 && pos < p.Size() }

func (p *Planes) rowCol(pos int) (row, col int) { return pos / p.Cols, pos % p.Cols }

// ReadCell returns the character and attribute byte at pos. ok is false
// for an out-of-range position.
func (p *Planes) ReadCell(pos int) (char, attr byte, ok bool) {
	if !p.inBounds(pos) {
		return 0, 0, false
	}
	return p.chars[pos], p.attrs[pos], true
}

// WriteCell sets the character and attribute byte at pos, marking it
// dirty. ok is false (no write performed) for an out-of-range position.
func (p *Planes) WriteCell(pos int, char, attr byte) (ok bool) {
	if !p.inBounds(pos) {
		return false
	}
	p.chars[pos] = char
	p.attrs[pos] = attr
	row, col := p.rowCol(pos)
	p.dirty.Union(row, col)
	return true
}

// ReadExtAttr returns the extended attribute byte at pos and whether one
// has been set (0 is the "none" sentinel). ok is false for an
// out-of-range position.
func (p *Planes) ReadExtAttr(pos int) (ext byte, has bool, ok bool) {
	if !p.inBounds(pos) {
		return 0, false, false
	}
	ext = p.extAttr[pos]
	return ext, ext != 0, true
}

// WriteExtAttr sets the extended attribute byte at pos without touching
// the char or base-attribute planes. ok is false for an out-of-range
// position.
func (p *Planes) WriteExtAttr(pos int, ext byte) (ok bool) {
	if !p.inBounds(pos) {
		return false
	}
	p.extAttr[pos] = ext
	row, col := p.rowCol(pos)
	p.dirty.Union(row, col)
	return true
}

// Cursor returns the current cursor position.
func (p *Planes) Cursor() int { return p.cursor }

// MoveCursor sets the cursor position. moved is false, and the cursor is
// left unchanged, for an out-of-range position.
func (p *Planes) MoveCursor(pos int) (moved bool) {
	if !p.inBounds(pos) {
		return false
	}
	p.cursor = pos
	return true
}

// Clear fills both planes with NullChar/DefaultAttr, resets the cursor to
// 0, and marks the whole screen dirty.
func (p *Planes) Clear() {
	p.fill(NullChar, DefaultAttr)
	p.cursor = 0
	p.dirty.Reset()
	p.dirty.Union(0, 0)
	p.dirty.Union(p.Rows-1, p.Cols-1)
}

func (p *Planes) fill(char, attr byte) {
	for i := range p.chars {
		p.chars[i] = char
		p.attrs[i] = attr
		p.extAttr[i] = 0
	}
}

// ClearFieldAttributes strips the field-start bit (and every other
// attribute bit) from every cell without touching displayed characters,
// the behavior the VT needs for the "Clear Format Table" opcode (spec
// §4.8): the screen keeps its text but every field boundary disappears,
// so a subsequent field re-scan finds zero fields.
func (p *Planes) ClearFieldAttributes(clearedAttr byte) {
	for i := range p.attrs {
		p.attrs[i] = clearedAttr
		p.extAttr[i] = 0
	}
	p.dirty.Union(0, 0)
	p.dirty.Union(p.Rows-1, p.Cols-1)
}

// Roll shifts the rows in [topRow, bottomRow] (inclusive) by lines: a
// positive count scrolls content up (row topRow is lost, a blank row
// appears at bottomRow); a negative count scrolls down. Used by the VT's
// Roll opcode. Out-of-range row bounds are rejected.
func (p *Planes) Roll(topRow, bottomRow, lines int) bool {
	if topRow < 0 || bottomRow >= p.Rows || topRow > bottomRow || lines == 0 {
		return false
	}
	span := bottomRow - topRow + 1
	if lines > span {
		lines = span
	}
	if lines < -span {
		lines = -span
	}
	rowBytes := func(row int) (int, int) { return row * p.Cols, (row + 1) * p.Cols }

	shifted := make([]byte, span*p.Cols)
	shiftedAttr := make([]byte, span*p.Cols)
	shiftedExt := make([]byte, span*p.Cols)
	for i := 0; i < span; i++ {
		srcRow := topRow + i + lines
		dstStart := i * p.Cols
		if srcRow < topRow || srcRow > bottomRow {
			for j := 0; j < p.Cols; j++ {
				shifted[dstStart+j] = NullChar
				shiftedAttr[dstStart+j] = DefaultAttr
			}
			continue
		}
		s, e := rowBytes(srcRow)
		copy(shifted[dstStart:dstStart+p.Cols], p.chars[s:e])
		copy(shiftedAttr[dstStart:dstStart+p.Cols], p.attrs[s:e])
		copy(shiftedExt[dstStart:dstStart+p.Cols], p.extAttr[s:e])
	}
	for i := 0; i < span; i++ {
		s, e := rowBytes(topRow + i)
		dstStart := i * p.Cols
		copy(p.chars[s:e], shifted[dstStart:dstStart+p.Cols])
		copy(p.attrs[s:e], shiftedAttr[dstStart:dstStart+p.Cols])
		copy(p.extAttr[s:e], shiftedExt[dstStart:dstStart+p.Cols])
	}
	p.dirty.Union(topRow, 0)
	p.dirty.Union(bottomRow, p.Cols-1)
	return true
}

// SaveState returns a deep copy of the char, attribute, and extended
// attribute planes, for the VT's Save Screen opcode.
func (p *Planes) SaveState() (chars, attrs, ext []byte) {
	return append([]byte(nil), p.chars...), append([]byte(nil), p.attrs...), append([]byte(nil), p.extAttr...)
}

// RestoreState overwrites the planes with a previously saved state from
// SaveState. ok is false (no change applied) if the slice lengths don't
// match this Planes' size.
func (p *Planes) RestoreState(chars, attrs, ext []byte) (ok bool) {
	if len(chars) != p.Size() || len(attrs) != p.Size() || len(ext) != p.Size() {
		return false
	}
	copy(p.chars, chars)
	copy(p.attrs, attrs)
	copy(p.extAttr, ext)
	p.dirty.Union(0, 0)
	p.dirty.Union(p.Rows-1, p.Cols-1)
	return true
}

// RowBytes returns the raw (EBCDIC) character bytes for one row, for
// callers that decode through a codec themselves (evidence snapshots,
// field value copies).
func (p *Planes) RowBytes(row int) []byte {
	if row < 0 || row >= p.Rows {
		return nil
	}
	s := row * p.Cols
	return append([]byte(nil), p.chars[s:s+p.Cols]...)
}

// Dirty returns the accumulated dirty bounding rectangle since the last
// ResetDirty.
func (p *Planes) Dirty() *DirtyRect { return p.dirty }

// ResetDirty clears the dirty accumulator, typically called after the VT
// has finished applying one frame's orders and evidence has been emitted.
func (p *Planes) ResetDirty() { p.dirty.Reset() }

package codec

// dbcsCodec implements CCSID 930 (Japan, mixed SBCS/DBCS). Bytes outside a
// shift-in/shift-out run decode through the same single-byte table as the
// other CCSIDs; within a shift-in run, two-byte codes are looked up in a
// dedicated double-byte table built once at construction.
type dbcsCodec struct {
	*sbcsCodec
	byteToRune map[uint16]rune
	runeToByte map[rune]uint16
}

func newDBCSCodec(ccsid int) *dbcsCodec {
	base := newSBCSCodec(ccsid)
	c := &dbcsCodec{
		sbcsCodec:  base,
		byteToRune: make(map[uint16]rune),
		runeToByte: make(map[rune]uint16),
	}
	// Populate the double-byte plane. Real CCSID 930 maps specific lead/
	// trail byte pairs in 0x40-0xFE to JIS X 0208 Kanji/Kana; we build a
	// deterministic, fully bijective plane over the same lead/trail byte
	// range so every valid two-byte sequence round-trips, anchored at the
	// CJK Unified Ideographs block.
	next := rune(0x4E00)
	for lead := 0x40; lead <= 0xFE; lead++ {
		for trail := 0x40; trail <= 0xFE; trail++ {
			code := uint16(lead)<<8 | uint16(trail)
			c.byteToRune[code] = next
			c.runeToByte[next] = code
			next++
		}
	}
	return c
}

func (c *dbcsCodec) IsDBCS() bool { return true }

func (c *dbcsCodec) NewDecoder() *Decoder {
	return &Decoder{codec: c, dbcs: c}
}

func (c *dbcsCodec) NewEncoder() *Encoder {
	return &Encoder{codec: c, dbcs: c}
}

// decodePair looks up a two-byte DBCS code. The second return is false if
// the lead/trail pair has no assigned scalar.
func (c *dbcsCodec) decodePair(lead, trail byte) (rune, bool) {
	r, ok := c.byteToRune[uint16(lead)<<8|uint16(trail)]
	return r, ok
}

// encodePair returns the lead/trail bytes for a scalar requiring DBCS
// representation. The second return is false if r has no DBCS code point.
func (c *dbcsCodec) encodePair(r rune) (lead, trail byte, ok bool) {
	code, found := c.runeToByte[r]
	if !found {
		return 0, 0, false
	}
	return byte(code >> 8), byte(code), true
}

// Decoder is a stateful byte-stream decoder. For single-byte codecs state
// never changes; for the DBCS codec it tracks shift mode and a pending
// lead byte across calls.
type Decoder struct {
	codec Codec
	dbcs  *dbcsCodec

	dbcsActive         bool
	awaitingSecondByte bool
	leadByte           byte
}

// DecodeByte feeds one wire byte into the decoder. It returns the decoded
// scalar, or the sentinel rune 0 ("no character yet") when the byte was a
// shift control or the first half of a DBCS pair.
func (d *Decoder) DecodeByte(b byte) (rune, error) {
	if d.dbcs == nil {
		return d.codec.DecodeByte(b), nil
	}
	switch {
	case b == shiftIn:
		d.dbcsActive = true
		d.awaitingSecondByte = false
		return 0, nil
	case b == shiftOut:
		d.dbcsActive = false
		d.awaitingSecondByte = false
		return 0, nil
	case d.dbcsActive && !d.awaitingSecondByte:
		d.leadByte = b
		d.awaitingSecondByte = true
		return 0, nil
	case d.dbcsActive && d.awaitingSecondByte:
		d.awaitingSecondByte = false
		r, ok := d.dbcs.decodePair(d.leadByte, b)
		if !ok {
			return 0, &ConversionError{Ccsid: d.dbcs.Ccsid(), Scalar: rune(uint16(d.leadByte)<<8 | uint16(b))}
		}
		return r, nil
	default:
		return d.codec.DecodeByte(b), nil
	}
}

// DBCSActive reports whether the decoder is currently inside a shift-in run.
func (d *Decoder) DBCSActive() bool { return d.dbcsActive }

// AwaitingSecondByte reports whether the decoder has consumed the first of
// a two-byte DBCS pair and is waiting on its partner.
func (d *Decoder) AwaitingSecondByte() bool { return d.awaitingSecondByte }

// DecodeStream decodes a full byte slice, dropping sentinel-only bytes and
// returning the resulting scalars in order. It is a convenience wrapper
// used by callers (and tests) that don't need per-byte granularity.
func (d *Decoder) DecodeStream(data []byte) ([]rune, error) {
	out := make([]rune, 0, len(data))
	for _, b := range data {
		r, err := d.DecodeByte(b)
		if err != nil {
			return out, err
		}
		if r != 0 {
			out = append(out, r)
		}
	}
	return out, nil
}

// Encoder is a stateful byte-stream encoder mirroring Decoder. It buffers
// shift state across calls so a caller can stream runes one at a time and
// call Finish to flush any trailing shift-out.
type Encoder struct {
	codec Codec
	dbcs  *dbcsCodec
	inDBCS bool
}

// EncodeRune appends the wire bytes for one scalar, inserting a shift-in or
// shift-out as the scalar's DBCS-ness changes relative to the previous one.
func (e *Encoder) EncodeRune(r rune) ([]byte, error) {
	if e.dbcs == nil {
		b, err := e.codec.EncodeRune(r)
		if err != nil {
			return nil, err
		}
		return []byte{b}, nil
	}

	if lead, trail, ok := e.dbcs.encodePair(r); ok {
		var out []byte
		if !e.inDBCS {
			out = append(out, shiftIn)
			e.inDBCS = true
		}
		return append(out, lead, trail), nil
	}

	b, err := e.codec.EncodeRune(r)
	if err != nil {
		return nil, err
	}
	var out []byte
	if e.inDBCS {
		out = append(out, shiftOut)
		e.inDBCS = false
	}
	return append(out, b), nil
}

// Finish flushes a trailing shift-out if the encoder ended mid-DBCS-run.
func (e *Encoder) Finish() []byte {
	if e.inDBCS {
		e.inDBCS = false
		return []byte{shiftOut}
	}
	return nil
}

// EncodeString encodes a full string in one call, handling shift-in/
// shift-out transitions and the trailing Finish automatically.
func (e *Encoder) EncodeString(s string) ([]byte, error) {
	var out []byte
	for _, r := range s {
		b, err := e.EncodeRune(r)
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	out = append(out, e.Finish()...)
	return out, nil
}

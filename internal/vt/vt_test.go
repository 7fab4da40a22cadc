package vt

import (
	"testing"

	"github.com/stlalpha/tn5250agent/internal/codec"
	"github.com/stlalpha/tn5250agent/internal/oia"
	"github.com/stlalpha/tn5250agent/internal/screen"
)

func newTestVT(t *testing.T) (*VT, *screen.Planes) {
	t.Helper()
	planes, err := screen.NewPlanes(24, 80)
	if err != nil {
		t.Fatalf("NewPlanes: %v", err)
	}
	cdc, err := codec.Default().Lookup(37)
	if err != nil {
		t.Fatalf("Lookup(37): %v", err)
	}
	return New(planes, cdc, oia.New()), planes
}

func frameBytes(opcode Opcode, flags byte, body ...byte) []byte {
	return append([]byte{byte(opcode), flags}, body...)
}

func TestWriteToDisplayCreatesFieldAndUnlocksKeyboard(t *testing.T) {
	v, planes := newTestVT(t)

	body := []byte{
		OrderSBA, 0x00, 0x05,
		OrderSF, 0x80, // field-start, unprotected
		0xC1, 0xC2, // 'A','B' in CCSID 37
		OrderIC, 0x00, 0x06,
	}
	v.ApplyFrame(frameBytes(OpWriteToDisplay, 0, body...))

	char, attr, ok := planes.ReadCell(5)
	if !ok || char != screen.NullChar || attr != 0x80 {
		t.Fatalf("ReadCell(5) = %x,%x,%v want null/0x80", char, attr, ok)
	}
	char, _, _ = planes.ReadCell(6)
	if char != 0xC1 {
		t.Fatalf("ReadCell(6) char = %x, want 0xC1", char)
	}
	if planes.Cursor() != 6 {
		t.Fatalf("Cursor() = %d, want 6 (set by IC)", planes.Cursor())
	}

	f, found := v.Fields().FindByPosition(6)
	if !found {
		t.Fatal("expected a field at position 6")
	}
	if f.Protected() {
		t.Fatal("field should not be protected")
	}
	if v.OIA().Snapshot().KeyboardLocked {
		t.Fatal("flags=0 should leave the keyboard unlocked")
	}
}

func TestWriteToDisplaySetsKeyboardLock(t *testing.T) {
	v, _ := newTestVT(t)
	v.ApplyFrame(frameBytes(OpWriteToDisplay, FlagKeyboardLock))
	if !v.OIA().Snapshot().KeyboardLocked {
		t.Fatal("FlagKeyboardLock should lock the keyboard")
	}
}

func TestClearUnitResetsPlanesAndFields(t *testing.T) {
	v, planes := newTestVT(t)
	body := []byte{OrderSBA, 0x00, 0x00, OrderSF, 0x80, 0xC1}
	v.ApplyFrame(frameBytes(OpWriteToDisplay, 0, body...))
	if len(v.Fields().FieldsInReadingOrder()) == 0 {
		t.Fatal("setup: expected a field before Clear Unit")
	}

	v.ApplyFrame(frameBytes(OpClearUnit, 0))

	char, attr, _ := planes.ReadCell(0)
	if char != screen.NullChar || attr != screen.DefaultAttr {
		t.Fatalf("after Clear Unit, cell 0 = %x,%x, want null/default", char, attr)
	}
	if len(v.Fields().FieldsInReadingOrder()) != 0 {
		t.Fatal("Clear Unit should leave zero fields")
	}
}

func TestUnknownOpcodeIsProtocolErrorAndSessionStaysUsable(t *testing.T) {
	v, _ := newTestVT(t)
	var gotErr error
	v.OnEvent(func(ev Event) {
		if ev.Kind == EventProtocolError {
			gotErr = ev.Err
		}
	})

	v.ApplyFrame(frameBytes(Opcode(0xEE), 0))
	if gotErr == nil {
		t.Fatal("expected a ProtocolError event for an unknown opcode")
	}
	if v.State() != StateIdle {
		t.Fatalf("State() = %v, want Idle after a protocol error", v.State())
	}

	// VT must still be usable: a well-formed frame after the bad one
	// applies normally.
	v.ApplyFrame(frameBytes(OpWriteToDisplay, 0, OrderSBA, 0x00, 0x00, 0xC1))
	if v.State() != StateIdle {
		t.Fatal("VT should still be usable after a dropped protocol error frame")
	}
}

func TestSaveAndRestoreScreen(t *testing.T) {
	v, planes := newTestVT(t)
	v.ApplyFrame(frameBytes(OpWriteToDisplay, 0, OrderSBA, 0x00, 0x00, 0xC1))
	v.ApplyFrame(frameBytes(OpSaveScreen, 0))

	v.ApplyFrame(frameBytes(OpClearUnit, 0))
	char, _, _ := planes.ReadCell(0)
	if char != screen.NullChar {
		t.Fatal("setup: Clear Unit should have blanked cell 0")
	}

	v.ApplyFrame(frameBytes(OpRestoreScreen, 0))
	char, _, _ = planes.ReadCell(0)
	if char != 0xC1 {
		t.Fatalf("after Restore Screen, cell 0 = %x, want 0xC1", char)
	}
}

func TestRollOpcodeShiftsRowsUp(t *testing.T) {
	v, planes := newTestVT(t)
	v.ApplyFrame(frameBytes(OpWriteToDisplay, 0, OrderSBA, 0x00, 0x00, 0xC1)) // row 0, col 0
	v.ApplyFrame(frameBytes(OpWriteToDisplay, 0, OrderSBA, 0x00, 0x50, 0xC2)) // row 1, col 0 (80 = row*80+col)

	v.ApplyFrame(frameBytes(OpRoll, 0, 0, 1, 1)) // top=0, bottom=1, lines=1

	char, _, _ := planes.ReadCell(0)
	if char != 0xC2 {
		t.Fatalf("ReadCell(0) after Roll = %x, want 0xC2 (row 1 shifted into row 0)", char)
	}
	char, _, _ = planes.ReadCell(80)
	if char != screen.NullChar {
		t.Fatalf("ReadCell(80) after Roll = %x, want blanked trailing row", char)
	}
}

func TestRollOpcodeOutOfRangeBoundsIsProtocolError(t *testing.T) {
	v, _ := newTestVT(t)
	var gotErr error
	v.OnEvent(func(ev Event) {
		if ev.Kind == EventProtocolError {
			gotErr = ev.Err
		}
	})
	v.ApplyFrame(frameBytes(OpRoll, 0, 0, 30, 1)) // bottom=30 is out of range for 24 rows
	if gotErr == nil {
		t.Fatal("expected a protocol error for an out-of-range Roll")
	}
}

func TestRestoreScreenWithNoSaveIsProtocolError(t *testing.T) {
	v, _ := newTestVT(t)
	var gotErr error
	v.OnEvent(func(ev Event) {
		if ev.Kind == EventProtocolError {
			gotErr = ev.Err
		}
	})
	v.ApplyFrame(frameBytes(OpRestoreScreen, 0))
	if gotErr == nil {
		t.Fatal("expected a protocol error restoring an unsaved area")
	}
}

type fakeWriter struct {
	written []byte
}

func (f *fakeWriter) WriteEOR(p []byte) error {
	f.written = append([]byte(nil), p...)
	return nil
}

func TestBuildReplyIncludesOnlyMDTFields(t *testing.T) {
	v, _ := newTestVT(t)
	body := []byte{
		OrderSBA, 0x00, 0x00,
		OrderSF, 0x80, // unprotected field, no MDT yet
		0x40, // space
	}
	v.ApplyFrame(frameBytes(OpWriteToDisplay, 0, body...))

	f, ok := v.Fields().FindByPosition(1)
	if !ok {
		t.Fatal("expected a field at position 1")
	}
	if _, err := v.Fields().SetField(f, "HI"); err != nil {
		t.Fatalf("SetField: %v", err)
	}

	w := &fakeWriter{}
	if err := v.TransmitReply(w, AIDEnter); err != nil {
		t.Fatalf("TransmitReply: %v", err)
	}
	if len(w.written) == 0 {
		t.Fatal("expected a transmitted reply")
	}
	if w.written[0] != byte(AIDEnter) {
		t.Fatalf("reply AID byte = %x, want %x", w.written[0], byte(AIDEnter))
	}
	if !v.OIA().Snapshot().SystemWait {
		t.Fatal("TransmitReply should set SystemWait")
	}
}

func TestLookupAID(t *testing.T) {
	if aid, ok := LookupAID("enter"); !ok || aid != AIDEnter {
		t.Fatalf("LookupAID(enter) = %v,%v want AIDEnter,true", aid, ok)
	}
	if _, ok := LookupAID("bogus"); ok {
		t.Fatal("LookupAID(bogus) should fail")
	}
}

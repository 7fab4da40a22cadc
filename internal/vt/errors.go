package vt

import "fmt"

// ProtocolError is returned for malformed frames: unknown opcodes, orders
// truncated mid-argument, or addresses outside the screen. Per spec
// §4.8/§7, a ProtocolError never closes the session — the frame is
// dropped and logged, and the VT keeps consuming the next one.
type ProtocolError struct {
	Opcode byte
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("vt: protocol error (opcode 0x%02X): %s", e.Opcode, e.Reason)
}

func errTruncated(order string) error {
	return fmt.Errorf("%s order truncated", order)
}

func errOutOfBounds(order string, addr int) error {
	return fmt.Errorf("%s address %d out of bounds", order, addr)
}

func errNoSavedScreen(area byte) error {
	return fmt.Errorf("no saved screen for area %d", area)
}

func errSaveSizeMismatch(area byte) error {
	return fmt.Errorf("saved screen size mismatch for area %d", area)
}

func errRollBounds(top, bottom, lines int) error {
	return fmt.Errorf("roll bounds invalid (top=%d bottom=%d lines=%d)", top, bottom, lines)
}

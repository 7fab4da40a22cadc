package codec

import "fmt"

// UnknownCcsidError is returned by Lookup when no codec is registered for
// the requested CCSID.
type UnknownCcsidError struct {
	Ccsid int
}

func (e *UnknownCcsidError) Error() string {
	return fmt.Sprintf("codec: unknown CCSID %d", e.Ccsid)
}

// ConversionError is returned when a Unicode scalar has no representation
// in a CCSID's code page. Callers must never see a silently substituted
// '?' in its place — see spec property 2.
type ConversionError struct {
	Ccsid  int
	Scalar rune
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("codec: CCSID %d cannot represent U+%04X", e.Ccsid, e.Scalar)
}

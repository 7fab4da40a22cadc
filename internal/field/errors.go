package field

import "fmt"

// ProtectedFieldError is returned by Table.SetField when the target field
// is protected.
type ProtectedFieldError struct {
	Start int
}

func (e *ProtectedFieldError) Error() string {
	return fmt.Sprintf("field: position %d is protected", e.Start)
}

// NumericFieldViolationError is returned by Table.SetField when the value
// contains a non-digit character and the target field is numeric-only.
type NumericFieldViolationError struct {
	Start int
	Rune  rune
}

func (e *NumericFieldViolationError) Error() string {
	return fmt.Sprintf("field: position %d rejected non-digit %q", e.Start, e.Rune)
}

package vt

// EventKind identifies what changed after the VT finished applying one
// frame, so the session and evidence recorder can react.
type EventKind int

const (
	EventScreenUpdated  EventKind = iota // a frame was applied without error
	EventFieldsRescanned                 // field table was recomputed
	EventReplySent                       // an outbound record was transmitted
	EventProtocolError                   // a malformed frame was dropped
)

// Event is delivered synchronously to every registered Listener, in the
// order the triggering update happened.
type Event struct {
	Kind   EventKind
	Opcode Opcode
	Err    error // set only for EventProtocolError
}

// Listener receives VT events. Implementations must not block or call
// back into the VT.
type Listener func(Event)

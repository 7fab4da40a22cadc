// Package evidence implements the append-only ledger a workflow run
// accumulates: one Record per keystroke, screen capture, wait, or error,
// plus the plain-text screen dumps and JSON report a run produces at the
// end. The recorder is a passive subscriber — it never drives a Session,
// only observes the events callers feed it.
package evidence

import "time"

// Kind identifies what a Record describes.
type Kind string

const (
	KindKeystroke      Kind = "keystroke"
	KindScreenSnapshot Kind = "screen_snapshot"
	KindWaitStart      Kind = "wait_start"
	KindWaitComplete   Kind = "wait_complete"
	KindError          Kind = "error"
	KindOIATransition  Kind = "oia_transition"
)

// Record is one entry in the ledger. Payload holds the kind-specific
// detail (keystroke text, a screen snapshot reference, a predicate
// description, an error message, or an OIA before/after pair) as a plain
// string rather than a nested payload type, so every record is directly
// loggable.
type Record struct {
	Timestamp time.Time
	SessionID string
	StepID    string
	Kind      Kind
	Payload   string
}

// newRecord stamps a Record with the fields every entry carries.
func newRecord(sessionID, stepID string, kind Kind, payload string, at time.Time) Record {
	return Record{Timestamp: at, SessionID: sessionID, StepID: stepID, Kind: kind, Payload: payload}
}

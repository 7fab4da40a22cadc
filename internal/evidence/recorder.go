package evidence

import (
	"fmt"
	"sync"
	"time"

	"github.com/stlalpha/tn5250agent/internal/logging"
	"github.com/stlalpha/tn5250agent/internal/oia"
	"github.com/stlalpha/tn5250agent/internal/session"
	"github.com/stlalpha/tn5250agent/internal/vt"
)

// Recorder accumulates Records for one run, keyed by (session_id,
// step_id). It subscribes to a Session's state-change and wait-event
// listeners and a VT's event listener; it never calls back into either.
type Recorder struct {
	mu      sync.Mutex
	records []Record
	stepSeq int
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// nextStepID allocates the next sequential step identifier for this run.
// Sequential IDs (rather than random ones) keep a ledger readable in the
// order steps actually happened, which is what the report and text dump
// are for.
func (r *Recorder) nextStepID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stepSeq++
	return fmt.Sprintf("step-%04d", r.stepSeq)
}

func (r *Recorder) append(sessionID string, kind Kind, payload string) Record {
	rec := newRecord(sessionID, r.nextStepID(), kind, payload, time.Now())
	r.mu.Lock()
	r.records = append(r.records, rec)
	r.mu.Unlock()
	return rec
}

// RecordKeystroke logs a SendKeys input string.
func (r *Recorder) RecordKeystroke(sessionID, input string) Record {
	return r.append(sessionID, KindKeystroke, input)
}

// RecordScreenSnapshot logs a full-screen text dump, typically the result
// of Session.Capture().Text().
func (r *Recorder) RecordScreenSnapshot(sessionID, text string) Record {
	return r.append(sessionID, KindScreenSnapshot, text)
}

// RecordWaitStart logs the beginning of a WaitFor call.
func (r *Recorder) RecordWaitStart(sessionID, predicateDesc string) Record {
	return r.append(sessionID, KindWaitStart, predicateDesc)
}

// RecordWaitComplete logs the outcome of a WaitFor call (success or the
// error it returned).
func (r *Recorder) RecordWaitComplete(sessionID string, err error) Record {
	payload := "ok"
	if err != nil {
		payload = err.Error()
	}
	return r.append(sessionID, KindWaitComplete, payload)
}

// RecordError logs any other failure worth preserving in the ledger.
func (r *Recorder) RecordError(sessionID string, err error) Record {
	return r.append(sessionID, KindError, err.Error())
}

// RecordOIATransition logs an OIA state change.
func (r *Recorder) RecordOIATransition(sessionID string, prev, next oia.State) Record {
	return r.append(sessionID, KindOIATransition, fmt.Sprintf("%+v -> %+v", prev, next))
}

// Records returns a copy of every record appended so far, in order.
func (r *Recorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Record(nil), r.records...)
}

// AttachToSession subscribes the recorder to sess's lifecycle transitions
// and to every WaitFor call's start/end boundary, so a caller need only
// wire the session once per run. A screen snapshot is recorded at both
// wait_for boundaries, alongside the wait_start/wait_complete entries; a
// failed wait also adds an error entry. Call AttachToVT as well (once the session is
// connected) to also capture snapshots on every screen update and
// protocol error.
func (r *Recorder) AttachToSession(sess *session.Session) {
	sess.OnStateChange(func(ev session.SessionChangeEvent) {
		r.append(ev.SessionID, KindOIATransition, fmt.Sprintf("lifecycle %s -> %s", ev.Prev, ev.Next))
	})
	sess.OnWaitEvent(func(ev session.WaitEvent) {
		switch ev.Phase {
		case session.WaitPhaseStart:
			r.RecordWaitStart(ev.SessionID, ev.Predicate)
			r.RecordScreenSnapshot(ev.SessionID, sess.Capture().Text())
		case session.WaitPhaseComplete:
			r.RecordWaitComplete(ev.SessionID, ev.Err)
			r.RecordScreenSnapshot(ev.SessionID, sess.Capture().Text())
			if ev.Err != nil {
				r.RecordError(ev.SessionID, ev.Err)
			}
		}
	})
}

// AttachToVT subscribes the recorder to a VT's post-frame events, logging
// a screen snapshot (via captureText) whenever the screen changed and a
// protocol error whenever one is reported. Obtain v from sess.VT() once
// Connect has run.
func (r *Recorder) AttachToVT(sessionID string, v *vt.VT, captureText func() string) {
	v.OnEvent(func(ev vt.Event) {
		switch ev.Kind {
		case vt.EventScreenUpdated:
			r.RecordScreenSnapshot(sessionID, captureText())
		case vt.EventProtocolError:
			r.RecordError(sessionID, ev.Err)
		}
	})
	v.OIA().OnChange(func(prev, next oia.State) {
		r.RecordOIATransition(sessionID, prev, next)
	})
	logging.Debug("evidence: attached recorder to session %s", sessionID)
}

// Package session ties the transport, negotiate, codec, screen, field,
// oia, vt, and stream packages together into one connected terminal
// session, and a bounded pool of them.
package session

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stlalpha/tn5250agent/internal/codec"
	"github.com/stlalpha/tn5250agent/internal/field"
	"github.com/stlalpha/tn5250agent/internal/negotiate"
	"github.com/stlalpha/tn5250agent/internal/oia"
	"github.com/stlalpha/tn5250agent/internal/screen"
	"github.com/stlalpha/tn5250agent/internal/stream"
	"github.com/stlalpha/tn5250agent/internal/transport"
	"github.com/stlalpha/tn5250agent/internal/vt"
)

// Session owns one connected 5250 terminal: its transport, its VT (and
// therefore its screen, field table, and OIA), and the background task
// that pumps reassembled records into the VT. A Session is built once by
// NewSession and Connect, then driven entirely through SendKeys, WaitFor,
// Capture, ReadField, and WriteField.
type Session struct {
	ID string

	cfg Config
	cdc codec.Codec

	mu    sync.Mutex
	state LifecycleState
	framed *transport.FramedConn
	vt     *vt.VT
	producer *stream.Producer
	cancelRun context.CancelFunc
	runDone   chan struct{}

	stateListeners  []StateChangeListener
	configListeners []ConfigChangeListener
	waitListeners   []WaitEventListener
}

// NewSession validates cfg and returns an unconnected Session. Call
// Connect to bring up the transport and negotiation.
func NewSession(cfg Config) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cdc, err := codec.Default().Lookup(cfg.Ccsid)
	if err != nil {
		return nil, err
	}
	return &Session{
		ID:    uuid.NewString(),
		cfg:   cfg,
		cdc:   cdc,
		state: StateUnconnected,
	}, nil
}

// State returns the current lifecycle state.
func (s *Session) State() LifecycleState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// OnStateChange registers a listener invoked after every lifecycle
// transition.
func (s *Session) OnStateChange(fn StateChangeListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stateListeners = append(s.stateListeners, fn)
}

// OnConfigChange registers a listener invoked when the owning pool's
// policy config file changes.
func (s *Session) OnConfigChange(fn ConfigChangeListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configListeners = append(s.configListeners, fn)
}

// configChangeListeners returns a copy of the registered OnConfigChange
// listeners, for the owning Pool to notify after a policy reload.
func (s *Session) configChangeListeners() []ConfigChangeListener {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ConfigChangeListener(nil), s.configListeners...)
}

// OnWaitEvent registers a listener invoked at the start of every WaitFor
// call and again when it returns, so a recorder can log a screen
// snapshot at both wait_for boundaries and on failure without WaitFor
// itself knowing anything about the evidence ledger.
func (s *Session) OnWaitEvent(fn WaitEventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waitListeners = append(s.waitListeners, fn)
}

func (s *Session) emitWaitEvent(ev WaitEvent) {
	s.mu.Lock()
	listeners := append([]WaitEventListener(nil), s.waitListeners...)
	s.mu.Unlock()
	for _, l := range listeners {
		l(ev)
	}
}

// VT returns the session's underlying virtual terminal, or nil before
// Connect has run. Exposed so a caller can attach an evidence recorder
// to the VT's event stream via Recorder.AttachToVT.
func (s *Session) VT() *vt.VT {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vt
}

func (s *Session) setState(next LifecycleState) {
	s.mu.Lock()
	prev := s.state
	s.state = next
	listeners := append([]StateChangeListener(nil), s.stateListeners...)
	s.mu.Unlock()

	if prev == next {
		return
	}
	log.Printf("INFO: session %s: %s -> %s", s.ID, prev, next)
	for _, l := range listeners {
		l(SessionChangeEvent{SessionID: s.ID, Prev: prev, Next: next})
	}
}

// Connect dials the host, negotiates telnet options and the TN5250E
// device name, and starts the background record pump. Connect is
// idempotent: calling it again on an already-connected Session is a
// no-op.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateUnconnected && s.state != StateError && s.state != StateClosed {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	s.setState(StateNegotiating)

	conn, err := transport.Dial(ctx, s.cfg.dialConfig())
	if err != nil {
		s.setState(StateError)
		return &SessionError{Kind: SessionErrorTransport, Err: err}
	}
	framed := transport.NewFramedConn(conn)

	negotiator := negotiate.NewNegotiator(framed, s.cfg.negotiateConfig())
	if err := negotiator.Negotiate(ctx); err != nil {
		framed.Close()
		s.setState(StateError)
		return &SessionError{Kind: SessionErrorProtocol, Err: err}
	}

	planes, err := screen.NewPlanes(s.cfg.ScreenSize.Rows, s.cfg.ScreenSize.Cols)
	if err != nil {
		framed.Close()
		s.setState(StateError)
		return &SessionError{Kind: SessionErrorProtocol, Err: err}
	}
	o := oia.New()
	virtualTerm := vt.New(planes, s.cdc, o)
	producer := stream.NewProducer(framed)

	runCtx, cancel := context.WithCancel(context.Background())
	runDone := make(chan struct{})

	s.mu.Lock()
	s.framed = framed
	s.vt = virtualTerm
	s.producer = producer
	s.cancelRun = cancel
	s.runDone = runDone
	s.mu.Unlock()

	go func() {
		if err := producer.Run(runCtx); err != nil {
			log.Printf("WARN: session %s: producer stopped: %v", s.ID, err)
			o.SetCommError(oia.CommErrorTransportClosed)
		}
	}()
	go func() {
		defer close(runDone)
		if err := virtualTerm.Run(runCtx, producer.Records()); err != nil && runCtx.Err() == nil {
			log.Printf("WARN: session %s: vt run stopped: %v", s.ID, err)
		}
	}()

	s.setState(StateConnected)
	return nil
}

// Disconnect tears down the background tasks and closes the transport.
// Idempotent: calling it on an unconnected or already-closed Session is a
// no-op.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	if s.state == StateClosed || s.state == StateUnconnected {
		s.mu.Unlock()
		return nil
	}
	cancel := s.cancelRun
	framed := s.framed
	runDone := s.runDone
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	var closeErr error
	if framed != nil {
		closeErr = framed.Close()
	}
	if runDone != nil {
		<-runDone
	}
	s.setState(StateClosed)
	return closeErr
}

// SendKeys parses input (literal text interleaved with bracketed
// mnemonics like [tab] and [enter]) and applies it against the current
// field under the cursor, transmitting an AID record at the point where
// the input names one. Returns *InputInhibitedError if the keyboard is locked and
// queueUntilUnlock is false; *MultipleAidError if input names more than
// one AID.
func (s *Session) SendKeys(ctx context.Context, input string, queueUntilUnlock bool) error {
	segments, err := parseKeystrokes(input)
	if err != nil {
		return err
	}

	s.mu.Lock()
	v := s.vt
	framed := s.framed
	s.mu.Unlock()
	if v == nil {
		return &SessionError{Kind: SessionErrorClosed, Err: fmt.Errorf("session not connected")}
	}

	if v.OIA().Snapshot().Locked() {
		if !queueUntilUnlock {
			return &InputInhibitedError{}
		}
		if err := s.waitUnlocked(ctx); err != nil {
			return err
		}
	}

	fields := v.Fields()
	cursor := v.Planes().Cursor()
	current, hasField := fields.FindByPosition(cursor)

	for _, seg := range segments {
		switch {
		case seg.hasAID:
			if err := v.TransmitReply(framed, seg.aid); err != nil {
				return &SessionError{Kind: SessionErrorTransport, Err: err}
			}
		case seg.nav != "":
			current, hasField = s.navigate(fields, current, hasField, seg.nav)
		default:
			if !hasField {
				continue
			}
			if _, err := fields.SetField(current, seg.text); err != nil {
				return err
			}
		}
	}
	return nil
}

// navigate advances the cursor to the next (tab) or previous (backtab)
// unprotected field, matching a real terminal's Tab key.
func (s *Session) navigate(fields *field.Table, current field.Field, hasCurrent bool, nav string) (field.Field, bool) {
	all := fields.FieldsInReadingOrder()
	if len(all) == 0 {
		return field.Field{}, false
	}
	idx := -1
	if hasCurrent {
		for i, f := range all {
			if f.Start == current.Start {
				idx = i
				break
			}
		}
	}
	step := 1
	if nav == navBacktab {
		step = -1
	}
	for n := 0; n < len(all); n++ {
		idx = (idx + step + len(all)) % len(all)
		if !all[idx].Protected() {
			s.mu.Lock()
			v := s.vt
			s.mu.Unlock()
			if v != nil {
				v.Planes().MoveCursor(all[idx].DataStart())
			}
			return all[idx], true
		}
	}
	return current, hasCurrent
}

func (s *Session) waitUnlocked(ctx context.Context) error {
	return s.WaitFor(ctx, 30*time.Second, Predicate{Kind: PredicateKeyboardUnlock})
}

// ReadField decodes the current value of the field sel addresses.
func (s *Session) ReadField(sel FieldSelector) (string, error) {
	snap := s.Capture()
	view, ok := snap.FieldBySelector(sel)
	if !ok {
		return "", fmt.Errorf("session: no field for selector")
	}
	return view.Value, nil
}

// WriteField writes value into the field sel addresses without
// transmitting an AID.
func (s *Session) WriteField(sel FieldSelector, value string) error {
	s.mu.Lock()
	v := s.vt
	s.mu.Unlock()
	if v == nil {
		return &SessionError{Kind: SessionErrorClosed, Err: fmt.Errorf("session not connected")}
	}
	fields := v.Fields()
	all := fields.FieldsInReadingOrder()
	var target field.Field
	var ok bool
	if sel.ByIndex {
		if sel.Index >= 0 && sel.Index < len(all) {
			target, ok = all[sel.Index], true
		}
	} else {
		target, ok = fields.FindByPosition(sel.Position)
	}
	if !ok {
		return fmt.Errorf("session: no field for selector")
	}
	_, err := fields.SetField(target, value)
	return err
}

// SignalBell clears a pending audible-alarm indication, the equivalent of
// a user acknowledging a terminal beep.
func (s *Session) SignalBell() {
	s.mu.Lock()
	v := s.vt
	s.mu.Unlock()
	if v != nil {
		v.OIA().ClearAlarm()
	}
}

// HandleSystemRequest sends the System Request AID. Spec §9 leaves SYSREQ
// semantics ambiguous as to whether it should also interrupt an in-flight
// wait_for; this implementation transmits the AID exactly like any other
// (see DESIGN.md for the resolution), since a real terminal's SysRq key
// behaves as an ordinary AID from the wire's point of view.
func (s *Session) HandleSystemRequest(ctx context.Context) error {
	return s.SendKeys(ctx, "[sysrq]", false)
}

// Capture returns a deep, immutable snapshot of the current screen, OIA,
// and field map.
func (s *Session) Capture() ScreenSnapshot {
	s.mu.Lock()
	v := s.vt
	s.mu.Unlock()
	if v == nil {
		return ScreenSnapshot{}
	}

	planes := v.Planes()
	rows := make([]string, planes.Rows)
	dec := s.cdc.NewDecoder()
	for r := 0; r < planes.Rows; r++ {
		runes, _ := dec.DecodeStream(planes.RowBytes(r))
		rows[r] = string(runes)
	}

	fields := v.Fields()
	all := fields.FieldsInReadingOrder()
	views := make([]FieldView, len(all))
	for i, f := range all {
		views[i] = newFieldView(fields, f)
	}

	return ScreenSnapshot{
		Rows:       rows,
		ColsPerRow: planes.Cols,
		OIA:        v.OIA().Snapshot(),
		Fields:     views,
		Cursor:     planes.Cursor(),
	}
}

// WaitFor blocks until every predicate in preds holds simultaneously
// against the live session (the "wait plus search" rule: each evaluation
// re-captures the screen, so a predicate satisfied only momentarily
// between polls can still be missed), ctx is cancelled, or timeout elapses.
// A WaitEvent is emitted to OnWaitEvent listeners at entry and again when
// WaitFor returns, so an attached recorder can snapshot both boundaries
// and any failure.
func (s *Session) WaitFor(ctx context.Context, timeout time.Duration, preds ...Predicate) (err error) {
	desc := predicateNames(preds)
	s.emitWaitEvent(WaitEvent{SessionID: s.ID, Phase: WaitPhaseStart, Predicate: desc})
	defer func() {
		s.emitWaitEvent(WaitEvent{SessionID: s.ID, Phase: WaitPhaseComplete, Predicate: desc, Err: err})
	}()

	deadline := time.Now().Add(timeout)
	cycle := &lockCycleState{}
	const pollInterval = 25 * time.Millisecond

	for {
		snap := s.Capture()
		allTrue := true
		for _, p := range preds {
			if !p.evaluate(snap, cycle) {
				allTrue = false
				break
			}
		}
		if allTrue {
			return nil
		}

		select {
		case <-ctx.Done():
			return &CancelledError{Op: "wait_for"}
		case <-time.After(pollInterval):
		}
		if time.Now().After(deadline) {
			return &WaitTimeoutError{Predicate: predicateNames(preds), Elapsed: timeout.String()}
		}
	}
}

func predicateNames(preds []Predicate) string {
	if len(preds) == 1 {
		return preds[0].String()
	}
	names := make([]string, len(preds))
	for i, p := range preds {
		names[i] = p.String()
	}
	out := names[0]
	for _, n := range names[1:] {
		out += "+" + n
	}
	return out
}

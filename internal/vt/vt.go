// Package vt implements the Virtual Terminal: the top-level state machine
// that consumes reassembled 5250 records from internal/stream, applies
// their opcodes and orders to a screen.Planes and field.Table, drives an
// oia.OIA, and assembles outbound reply records for an AID key.
package vt

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/stlalpha/tn5250agent/internal/codec"
	"github.com/stlalpha/tn5250agent/internal/field"
	"github.com/stlalpha/tn5250agent/internal/oia"
	"github.com/stlalpha/tn5250agent/internal/screen"
)

// State names the VT's top-level state machine.
type State int

const (
	StateIdle State = iota
	StateReceiving
	StateApplying
	StateReplying
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateReceiving:
		return "Receiving"
	case StateApplying:
		return "Applying"
	case StateReplying:
		return "Replying"
	case StateError:
		return "Error"
	default:
		return "Unknown"
	}
}

// readMode tracks which "Read ..." opcode the host last issued, so
// BuildReply knows which fields to include in the next transmitted
// record.
type readMode int

const (
	readModeNone readMode = iota
	readModeInputFields
	readModeMDTFields
)

// savedState is one Save Screen slot's contents. The Save/Restore Screen
// opcodes support multiple named save areas.
type savedState struct {
	chars, attrs, ext []byte
}

// FrameWriter is the subset of *transport.FramedConn the VT needs to
// transmit a reply record.
type FrameWriter interface {
	WriteEOR(p []byte) error
}

// VT owns exactly one session's presentation space, field table, and OIA.
// Each session has its own VT task; nothing else touches these resources.
type VT struct {
	mu     sync.Mutex
	state  State
	planes *screen.Planes
	cdc    codec.Codec
	oia    *oia.OIA
	fields *field.Table

	saved           map[byte]savedState
	pendingReadMode readMode
	lastErrorCode   string

	listeners []Listener
}

// New constructs a VT over a freshly-cleared screen of the given size,
// using cdc for every field value encode/decode. The field table starts
// empty; the first Write to Display populates it.
func New(planes *screen.Planes, cdc codec.Codec, o *oia.OIA) *VT {
	return &VT{
		state:  StateIdle,
		planes: planes,
		cdc:    cdc,
		oia:    o,
		fields: field.Scan(planes, cdc),
		saved:  make(map[byte]savedState),
	}
}

// Planes returns the underlying presentation space.
func (v *VT) Planes() *screen.Planes { return v.planes }

// Fields returns the current field table.
func (v *VT) Fields() *field.Table {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.fields
}

// OIA returns the status vector this VT drives.
func (v *VT) OIA() *oia.OIA { return v.oia }

// State returns the current top-level state.
func (v *VT) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// OnEvent registers a listener for post-frame events. Listeners are
// called synchronously and in registration order from inside ApplyFrame,
// so they observe events in causal order with the updates that triggered
// them.
func (v *VT) OnEvent(fn Listener) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.listeners = append(v.listeners, fn)
}

func (v *VT) emit(ev Event) {
	for _, l := range v.listeners {
		l(ev)
	}
}

// Run consumes records from the channel (typically stream.Producer's
// Records()) until it's closed or ctx is cancelled, applying each one in
// turn. Cancellation never interrupts a frame already being applied: the
// select only looks for the next record after ApplyFrame returns, so a
// frame always applies atomically before cancellation is observed.
func (v *VT) Run(ctx context.Context, records <-chan []byte) error {
	for {
		select {
		case rec, ok := <-records:
			if !ok {
				return nil
			}
			v.setState(StateReceiving)
			v.ApplyFrame(rec)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (v *VT) setState(s State) {
	v.mu.Lock()
	v.state = s
	v.mu.Unlock()
}

// ApplyFrame interprets one complete 5250 record. Protocol errors (an
// unknown opcode, a malformed order) are logged and swallowed: the frame
// is discarded and the VT returns to Idle, never transitioning to
// StateError for those. ApplyFrame returning leaves the VT in StateIdle
// in all non-fatal cases.
func (v *VT) ApplyFrame(rec []byte) {
	v.setState(StateApplying)
	defer v.setState(StateIdle)

	if len(rec) < 2 {
		v.protocolError(0, "frame shorter than header", fmt.Errorf("frame length %d", len(rec)))
		return
	}
	opcode := Opcode(rec[0])
	flags := rec[1]
	body := rec[2:]
	chars, attrs, ext := v.planes.SaveState()
	cursor := v.planes.Cursor()

	attributesChanged := false
	var err error
	switch opcode {
	case OpWriteToDisplay:
		attributesChanged, err = v.applyWriteToDisplay(body)
	case OpClearUnit:
		v.planes.Clear()
		v.pendingReadMode = readModeNone
		attributesChanged = true
	case OpClearFormatTable:
		v.planes.ClearFieldAttributes(screen.DefaultAttr)
		attributesChanged = true
	case OpReadInputFields:
		v.pendingReadMode = readModeInputFields
	case OpReadMDTFields:
		v.pendingReadMode = readModeMDTFields
	case OpSaveScreen:
		err = v.applySaveScreen(body)
	case OpRestoreScreen:
		attributesChanged, err = v.applyRestoreScreen(body)
	case OpWriteErrorCode:
		v.applyWriteErrorCode(body)
	case OpRoll:
		err = v.applyRoll(body)
	default:
		err = fmt.Errorf("unrecognized opcode")
	}

	if err != nil {
		v.planes.RestoreState(chars, attrs, ext)
		v.planes.MoveCursor(cursor)
		v.protocolError(rec[0], err.Error(), err)
		return
	}

	if attributesChanged {
		v.fields = field.Scan(v.planes, v.cdc)
		v.emit(Event{Kind: EventFieldsRescanned, Opcode: opcode})
	}
	v.applyHeaderFlags(flags)
	v.emit(Event{Kind: EventScreenUpdated, Opcode: opcode})
}

func (v *VT) protocolError(opcode byte, reason string, cause error) {
	pe := &ProtocolError{Opcode: opcode, Reason: reason}
	log.Printf("WARN: vt: %v (cause: %v)", pe, cause)
	v.emit(Event{Kind: EventProtocolError, Err: pe})
}

// applyHeaderFlags maps the frame header's flag byte onto OIA transitions.
func (v *VT) applyHeaderFlags(flags byte) {
	v.oia.SetKeyboardLocked(flags&FlagKeyboardLock != 0)
	v.oia.SetMessageWait(flags&FlagMessageWait != 0)
	if flags&FlagAlarmPending != 0 {
		v.oia.RaiseAlarm()
	}
	if flags&FlagSystemWaitOff != 0 {
		v.oia.SetSystemWait(false)
	}
}

func (v *VT) applyWriteErrorCode(body []byte) {
	v.lastErrorCode = string(body)
	v.oia.RaiseAlarm()
	v.oia.SetMessageWait(true)
}

// LastErrorCode returns the text of the most recent Write Error Code
// opcode, or "" if none has been seen.
func (v *VT) LastErrorCode() string { return v.lastErrorCode }

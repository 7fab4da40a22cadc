// Package negotiate implements the telnet option negotiation state machine
// and TN5250E device-name/terminal-type exchange. It is a table-driven
// small-state machine: each option tracks whether the
// local and remote sides have reached "active", and the overall
// negotiation succeeds only once BINARY, END_OF_RECORD, and TERMINAL_TYPE
// are active on both sides.
package negotiate

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/stlalpha/tn5250agent/internal/logging"
	"github.com/stlalpha/tn5250agent/internal/transport"
)

// Telnet option numbers this negotiator understands.
const (
	optEcho      byte = 1
	optSGA       byte = 3
	optTermType  byte = 24
	optEOR       byte = 25
	optNewEnviron byte = 39
)

// requiredOptions is the set a negotiation must bring to mutual "active"
// before a session can start exchanging 5250 records: BINARY (option 0),
// END_OF_RECORD, and TERMINAL_TYPE.
var requiredOptions = []byte{0, optEOR, optTermType}

// ScreenSize identifies the negotiated presentation space dimensions.
type ScreenSize struct {
	Rows, Cols int
}

// deviceTypeForSize maps a screen size (and whether the session is DBCS)
// to one of the device terminal type strings the host recognizes.
func deviceTypeForSize(size ScreenSize, dbcs bool) string {
	switch {
	case size.Rows == 27 && size.Cols == 132:
		return "IBM-5555-C01"
	case dbcs:
		return "IBM-5555-B01"
	case size.Rows == 24 && size.Cols == 80:
		return "IBM-3179-2"
	default:
		return "IBM-3179-2"
	}
}

// Config carries the session fields the negotiator needs from the session
// configuration.
type Config struct {
	DeviceName          string   // requested device name, 1-10 uppercase chars, or "" for auto
	AlternateDeviceNames []string // tried in order if DeviceName is rejected
	User                string   // optional, sent via NEW_ENVIRON USERVAR
	ScreenSize          ScreenSize
	DBCS                bool
	Timeout             time.Duration
}

type optionState struct {
	localActive  bool
	remoteActive bool
}

// Negotiator drives one connection's telnet option negotiation and device
// name exchange. It is not safe for concurrent use; one session owns one
// Negotiator for the duration of connect().
type Negotiator struct {
	conn *transport.FramedConn
	cfg  Config

	options map[byte]*optionState

	deviceNameAttempt   int
	allocatedDeviceName string
	deviceNameConfirmed bool
	termTypeRequested   bool

	done      chan struct{}
	ready     chan struct{}
	readyOnce sync.Once
}

// NewNegotiator constructs a Negotiator bound to conn.
func NewNegotiator(conn *transport.FramedConn, cfg Config) *Negotiator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	n := &Negotiator{
		conn:    conn,
		cfg:     cfg,
		options: make(map[byte]*optionState),
		done:    make(chan struct{}),
		ready:   make(chan struct{}),
	}
	for _, opt := range []byte{0, optEcho, optSGA, optTermType, optEOR, optNewEnviron} {
		n.options[opt] = &optionState{}
	}
	conn.OnOption(n.handleOption)
	conn.OnSubnegotiation(n.handleSubnegotiation)
	return n
}

// AllocatedDeviceName returns the device name the host confirmed, once
// Negotiate has returned successfully.
func (n *Negotiator) AllocatedDeviceName() string { return n.allocatedDeviceName }

// Negotiate sends the initial option requests and blocks, pumping frames
// from conn, until BINARY/EOR/TERMINAL_TYPE are mutually active and the
// device name exchange has been confirmed, ctx is cancelled, or the
// configured timeout elapses.
func (n *Negotiator) Negotiate(ctx context.Context) error {
	if err := n.sendInitialRequests(); err != nil {
		return err
	}

	deadline := time.Now().Add(n.cfg.Timeout)

	// Pump frames off the wire under a deadline until the handshake
	// completes or time runs out. Every option/subnegotiation callback
	// fires inline from ReadFrame, so no separate reader goroutine is
	// needed here.
	discard := make([]byte, 256)
	for {
		select {
		case <-n.ready:
			return nil
		case <-n.done:
			return n.deviceNameFailure()
		case <-ctx.Done():
		default:
		}
		if ctx.Err() != nil || time.Now().After(deadline) {
			if !n.requiredActive() {
				return &TelnetNegotiationFailedError{Pending: n.pendingOptionNames()}
			}
			return n.deviceNameFailure()
		}

		n.conn.SetDeadline(time.Now().Add(100 * time.Millisecond))
		_, _, err := n.conn.ReadFrame(discard)
		if err != nil {
			if isTimeout(err) {
				continue
			}
			return err
		}
		select {
		case <-n.ready:
			return nil
		case <-n.done:
			return n.deviceNameFailure()
		default:
		}
	}
}

func isTimeout(err error) bool {
	type timeoutErr interface{ Timeout() bool }
	te, ok := err.(timeoutErr)
	return ok && te.Timeout()
}

// checkReady closes n.ready the first time both the required telnet
// options and the device name exchange have completed.
func (n *Negotiator) checkReady() {
	if n.requiredActive() && n.deviceNameConfirmed {
		n.readyOnce.Do(func() { close(n.ready) })
	}
}

func (n *Negotiator) sendInitialRequests() error {
	if err := n.conn.SendCommand(byte(transport.DO), 0); err != nil { // DO BINARY
		return err
	}
	if err := n.conn.SendCommand(byte(transport.WILL), 0); err != nil { // WILL BINARY
		return err
	}
	if err := n.conn.SendCommand(byte(transport.DO), optEOR); err != nil {
		return err
	}
	if err := n.conn.SendCommand(byte(transport.WILL), optEOR); err != nil {
		return err
	}
	if err := n.conn.SendCommand(byte(transport.DO), optTermType); err != nil {
		return err
	}
	if err := n.conn.SendCommand(byte(transport.DO), optNewEnviron); err != nil {
		return err
	}
	return nil
}

func (n *Negotiator) requiredActive() bool {
	for _, opt := range requiredOptions {
		st := n.options[opt]
		if st == nil || !st.localActive || !st.remoteActive {
			return false
		}
	}
	return true
}

func (n *Negotiator) pendingOptionNames() []string {
	names := map[byte]string{0: "BINARY", optEOR: "END_OF_RECORD", optTermType: "TERMINAL_TYPE"}
	var pending []string
	for _, opt := range requiredOptions {
		st := n.options[opt]
		if st == nil || !st.localActive || !st.remoteActive {
			pending = append(pending, names[opt])
		}
	}
	return pending
}

func (n *Negotiator) handleOption(ev transport.OptionEvent) {
	st := n.options[ev.Option]
	if st == nil {
		st = &optionState{}
		n.options[ev.Option] = st
	}
	switch ev.Command {
	case transport.WILL:
		st.remoteActive = true
		n.conn.SendCommand(byte(transport.DO), ev.Option)
		if ev.Option == optTermType && !n.termTypeRequested {
			n.requestTermType()
		}
	case transport.WONT:
		st.remoteActive = false
	case transport.DO:
		st.localActive = true
		n.conn.SendCommand(byte(transport.WILL), ev.Option)
	case transport.DONT:
		st.localActive = false
	}
	logging.Debug("negotiate: option %d cmd %d -> local=%v remote=%v", ev.Option, ev.Command, st.localActive, st.remoteActive)
	n.checkReady()
}

func (n *Negotiator) requestTermType() {
	n.termTypeRequested = true
	// IAC SB TERM_TYPE SEND IAC SE
	n.conn.SendSubnegotiation(optTermType, []byte{1})
}

const (
	newEnvironIS   byte = 0
	newEnvironSEND byte = 1
	newEnvironVAR  byte = 0
	newEnvironVALUE byte = 1
	newEnvironUSERVAR byte = 3
)

func (n *Negotiator) handleSubnegotiation(ev transport.SubnegotiationEvent) {
	switch ev.Option {
	case optTermType:
		if len(ev.Data) >= 1 && ev.Data[0] == newEnvironSEND {
			name := n.currentDeviceNameAttempt()
			termType := deviceTypeForSize(n.cfg.ScreenSize, n.cfg.DBCS)
			reply := append([]byte{newEnvironIS}, []byte(termType)...)
			n.conn.SendSubnegotiation(optTermType, reply)
			log.Printf("INFO: negotiate: sent terminal type %s for device %s", termType, name)
		}
	case optNewEnviron:
		n.handleNewEnviron(ev.Data)
	}
}

func (n *Negotiator) handleNewEnviron(data []byte) {
	if len(data) >= 1 && data[0] == newEnvironSEND {
		name := n.currentDeviceNameAttempt()
		reply := []byte{newEnvironIS}
		reply = append(reply, newEnvironVAR)
		reply = append(reply, []byte("DEVNAME")...)
		reply = append(reply, newEnvironVALUE)
		reply = append(reply, []byte(name)...)
		if n.cfg.User != "" {
			reply = append(reply, newEnvironUSERVAR)
			reply = append(reply, []byte("USER")...)
			reply = append(reply, newEnvironVALUE)
			reply = append(reply, []byte(n.cfg.User)...)
		}
		n.conn.SendSubnegotiation(optNewEnviron, reply)
		return
	}

	if len(data) >= 1 && data[0] == newEnvironIS {
		if allocated, ok := parseDevname(data[1:]); ok {
			n.allocatedDeviceName = allocated
			n.deviceNameConfirmed = true
			log.Printf("INFO: negotiate: host allocated device name %s", allocated)
			n.checkReady()
			return
		}
		// Host replied but offered no DEVNAME: treat as a rejection of
		// the attempted name and advance to the next alternate, if any.
		n.advanceDeviceNameAttempt()
	}
}

// parseDevname scans a NEW_ENVIRON IS payload for a DEVNAME VAR/VALUE pair.
func parseDevname(payload []byte) (string, bool) {
	i := 0
	for i < len(payload) {
		tag := payload[i]
		i++
		if tag != newEnvironVAR && tag != newEnvironUSERVAR {
			continue
		}
		nameEnd := i
		for nameEnd < len(payload) && payload[nameEnd] != newEnvironVALUE {
			nameEnd++
		}
		varName := string(payload[i:nameEnd])
		i = nameEnd
		if i >= len(payload) || payload[i] != newEnvironVALUE {
			continue
		}
		i++
		valueEnd := i
		for valueEnd < len(payload) && payload[valueEnd] != newEnvironVAR && payload[valueEnd] != newEnvironUSERVAR {
			valueEnd++
		}
		value := string(payload[i:valueEnd])
		i = valueEnd
		if varName == "DEVNAME" {
			return value, true
		}
	}
	return "", false
}

func (n *Negotiator) currentDeviceNameAttempt() string {
	if n.deviceNameAttempt == 0 {
		if n.cfg.DeviceName != "" {
			return n.cfg.DeviceName
		}
	}
	idx := n.deviceNameAttempt - 1
	if idx >= 0 && idx < len(n.cfg.AlternateDeviceNames) {
		return n.cfg.AlternateDeviceNames[idx]
	}
	return ""
}

func (n *Negotiator) advanceDeviceNameAttempt() {
	n.deviceNameAttempt++
	if n.currentDeviceNameAttempt() == "" {
		close(n.done)
	}
}

func (n *Negotiator) deviceNameFailure() error {
	tried := []string{n.cfg.DeviceName}
	tried = append(tried, n.cfg.AlternateDeviceNames...)
	return &DeviceNameRejectedError{Tried: tried}
}

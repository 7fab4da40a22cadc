package transport

import (
	"bufio"
	"bytes"
	"sync"
	"time"
)

// Telnet command bytes (RFC 854) and the handful of options/commands this
// module cares about (RFC 855 subnegotiation, RFC 885 end-of-record).
const (
	IAC  byte = 255
	DONT byte = 254
	DO   byte = 253
	WONT byte = 252
	WILL byte = 251
	SB   byte = 250
	EOR  byte = 239 // end-of-record marker, framed as IAC EOR
	SE   byte = 240
)

// telnetState is the IAC byte-stream parser's state, persisted across Read
// calls so a split IAC sequence at a read boundary is handled correctly.
type telnetState int

const (
	stateData telnetState = iota
	stateIAC
	stateOption
	stateSB
	stateSBData
	stateSBIAC
)

// OptionEvent is delivered to the registered handler whenever the peer
// sends IAC WILL/WONT/DO/DONT <option>.
type OptionEvent struct {
	Command byte // WILL, WONT, DO, or DONT
	Option  byte
}

// SubnegotiationEvent is delivered once a complete IAC SB ... IAC SE block
// has been read.
type SubnegotiationEvent struct {
	Option byte
	Data   []byte
}

// FramedConn layers telnet IAC framing over a byte stream. Reads return
// only application payload: option requests and subnegotiation blocks are
// intercepted and routed to the registered handlers, never mixed into the
// returned bytes.
type FramedConn struct {
	conn   *Conn
	reader *bufio.Reader
	writeMu sync.Mutex

	state    telnetState
	sbOption byte
	sbData   []byte
	sbCmd    byte // the command byte that put us in stateOption (WILL/WONT/DO/DONT)

	onOption         func(OptionEvent)
	onSubnegotiation func(SubnegotiationEvent)

	// pendingEOR is not set anywhere; ReadFrame reports each IAC EOR
	// record boundary through its eor result instead.
	pendingEOR bool
}

// NewFramedConn wraps conn with telnet IAC handling.
func NewFramedConn(conn *Conn) *FramedConn {
	return &FramedConn{
		conn:   conn,
		reader: bufio.NewReaderSize(conn, 4096),
		state:  stateData,
	}
}

// OnOption registers the callback invoked for every WILL/WONT/DO/DONT.
func (f *FramedConn) OnOption(fn func(OptionEvent)) { f.onOption = fn }

// OnSubnegotiation registers the callback invoked for every completed
// subnegotiation block.
func (f *FramedConn) OnSubnegotiation(fn func(SubnegotiationEvent)) { f.onSubnegotiation = fn }

// ReadFrame reads from the stream until either p is full, an IAC EOR marker
// is seen (eor=true is returned with the payload collected so far), or an
// error occurs. Escaped 0xFF (IAC IAC) bytes are unescaped transparently.
func (f *FramedConn) ReadFrame(p []byte) (n int, eor bool, err error) {
	if len(p) == 0 {
		return 0, false, nil
	}

	buf := make([]byte, 1)
	for n < len(p) {
		m, rerr := f.reader.Read(buf)
		if m == 0 {
			if rerr != nil {
				if n > 0 {
					return n, false, nil
				}
				return 0, false, NormalizeReadErr(rerr)
			}
			continue
		}
		b := buf[0]
		produced, isEOR := f.feed(b)
		if produced {
			p[n] = b
			n++
		}
		if isEOR {
			return n, true, nil
		}
		if rerr != nil {
			if n > 0 {
				return n, false, nil
			}
			return 0, false, NormalizeReadErr(rerr)
		}
	}
	return n, false, nil
}

// feed processes one raw wire byte through the IAC state machine. It
// returns (true, false) when b is application payload to deliver, and
// (false, true) when b completed an IAC EOR marker.
func (f *FramedConn) feed(b byte) (payload bool, eor bool) {
	switch f.state {
	case stateData:
		if b == IAC {
			f.state = stateIAC
			return false, false
		}
		return true, false

	case stateIAC:
		switch b {
		case IAC:
			f.state = stateData
			return true, false // escaped 0xFF
		case WILL, WONT, DO, DONT:
			f.sbCmd = b
			f.state = stateOption
			return false, false
		case SB:
			f.state = stateSB
			return false, false
		case EOR:
			f.state = stateData
			return false, true
		default:
			f.state = stateData
			return false, false
		}

	case stateOption:
		f.state = stateData
		if f.onOption != nil {
			f.onOption(OptionEvent{Command: f.sbCmd, Option: b})
		}
		return false, false

	case stateSB:
		f.sbOption = b
		f.sbData = f.sbData[:0]
		f.state = stateSBData
		return false, false

	case stateSBData:
		if b == IAC {
			f.state = stateSBIAC
			return false, false
		}
		f.sbData = append(f.sbData, b)
		return false, false

	case stateSBIAC:
		switch b {
		case SE:
			f.state = stateData
			if f.onSubnegotiation != nil {
				f.onSubnegotiation(SubnegotiationEvent{Option: f.sbOption, Data: append([]byte(nil), f.sbData...)})
			}
			return false, false
		case IAC:
			f.sbData = append(f.sbData, IAC)
			f.state = stateSBData
			return false, false
		default:
			f.state = stateData
			return false, false
		}
	}
	return false, false
}

// Write sends application payload, escaping any 0xFF byte as IAC IAC.
func (f *FramedConn) Write(p []byte) (int, error) {
	f.writeMu.Lock()
	defer f.writeMu.Unlock()

	if !bytes.Contains(p, []byte{IAC}) {
		return f.conn.Write(p)
	}
	escaped := make([]byte, 0, len(p)+8)
	for _, b := range p {
		if b == IAC {
			escaped = append(escaped, IAC, IAC)
		} else {
			escaped = append(escaped, b)
		}
	}
	if _, err := f.conn.Write(escaped); err != nil {
		return 0, err
	}
	return len(p), nil
}

// WriteEOR writes p (escaping 0xFF) followed by IAC EOR, completing one
// 5250 record's outbound framing.
func (f *FramedConn) WriteEOR(p []byte) error {
	if _, err := f.Write(p); err != nil {
		return err
	}
	f.writeMu.Lock()
	defer f.writeMu.Unlock()
	_, err := f.conn.Write([]byte{IAC, EOR})
	return err
}

// SendCommand writes a raw IAC <cmd> <option> sequence.
func (f *FramedConn) SendCommand(cmd, option byte) error {
	f.writeMu.Lock()
	defer f.writeMu.Unlock()
	_, err := f.conn.Write([]byte{IAC, cmd, option})
	return err
}

// SendSubnegotiation writes IAC SB <option> <data> IAC SE.
func (f *FramedConn) SendSubnegotiation(option byte, data []byte) error {
	f.writeMu.Lock()
	defer f.writeMu.Unlock()
	out := make([]byte, 0, len(data)+6)
	out = append(out, IAC, SB, option)
	out = append(out, data...)
	out = append(out, IAC, SE)
	_, err := f.conn.Write(out)
	return err
}

// SetDeadline sets the read/write deadline on the underlying connection, so
// callers (e.g. the negotiator) can bound a blocking ReadFrame call.
func (f *FramedConn) SetDeadline(t time.Time) error { return f.conn.SetDeadline(t) }

// Close closes the underlying connection.
func (f *FramedConn) Close() error { return f.conn.Close() }

// IsEncrypted reports whether the underlying connection is TLS.
func (f *FramedConn) IsEncrypted() bool { return f.conn.IsEncrypted() }

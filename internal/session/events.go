package session

// LifecycleState is one of the Session's lifecycle states.
type LifecycleState int

const (
	StateUnconnected LifecycleState = iota
	StateNegotiating
	StateConnected
	StateReading
	StateLocked
	StateError
	StateClosed
)

func (s LifecycleState) String() string {
	switch s {
	case StateUnconnected:
		return "Unconnected"
	case StateNegotiating:
		return "Negotiating"
	case StateConnected:
		return "Connected"
	case StateReading:
		return "Reading"
	case StateLocked:
		return "Locked"
	case StateError:
		return "Error"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// SessionChangeEvent is delivered to on_state_change listeners whenever
// the Session's lifecycle state transitions.
type SessionChangeEvent struct {
	SessionID string
	Prev, Next LifecycleState
}

// SessionConfigEvent is delivered to on_config_change listeners when the
// pool policy config file changes, sourced from the fsnotify-backed
// ConfigWatcher.
type SessionConfigEvent struct {
	SessionID   string
	MaxSessions int
	QueuePolicy QueuePolicy
}

// StateChangeListener receives SessionChangeEvent notifications.
type StateChangeListener func(SessionChangeEvent)

// ConfigChangeListener receives SessionConfigEvent notifications.
type ConfigChangeListener func(SessionConfigEvent)

// WaitPhase identifies which boundary of a WaitFor call a WaitEvent
// reports.
type WaitPhase int

const (
	WaitPhaseStart WaitPhase = iota
	WaitPhaseComplete
)

// WaitEvent is delivered to on_wait_event listeners at the start of every
// WaitFor call and again when it returns. Err is nil on the start event
// and on a successful completion; it carries the returned error
// (*CancelledError, *WaitTimeoutError, ...) on a failed completion.
type WaitEvent struct {
	SessionID string
	Phase     WaitPhase
	Predicate string
	Err       error
}

// WaitEventListener receives WaitEvent notifications.
type WaitEventListener func(WaitEvent)

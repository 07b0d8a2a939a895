package connection

// State is the connection lifecycle state.
type State int

const (
	// StateDisconnected means no socket exists.
	StateDisconnected State = iota

	// StateConnecting means a dial is in flight.
	StateConnecting

	// StateConnected means the socket is open and usable.
	StateConnected

	// StateFailed means the retry budget is exhausted. Only an explicit
	// Connect leaves this state.
	StateFailed
)

// String returns the string representation of a State.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// StateChange describes one transition, delivered to state watchers.
type StateChange struct {
	Old State
	New State
	Err error
}

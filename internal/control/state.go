package control

import "fmt"

// State is the lifecycle state of a TCP channel. Exactly one State exists
// per channel and only the channel itself mutates it.
type State int

const (
	// StateFresh means Connect has never been called (or the last explicit
	// Connect attempt failed before a socket existed).
	StateFresh State = iota

	// StateConnecting means a dial is in progress, either an explicit
	// Connect or a silent reconnect after an idle close.
	StateConnecting

	// StateOpen means the socket is established and usable.
	StateOpen

	// StateClosing means Disconnect is tearing the channel down.
	StateClosing

	// StateDead is terminal. Every operation on a dead channel is a silent
	// successful no-op.
	StateDead
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateFresh:
		return "fresh"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateDead:
		return "dead"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

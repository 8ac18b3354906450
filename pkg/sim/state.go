// Package sim defines the simulator capability contract consumed by the
// sync engine and the connection state it moves through.
package sim

// State represents the connection state of the simulator session.
type State string

const (
	// StateDisconnected indicates no session is open.
	StateDisconnected State = "disconnected"
	// StateConnecting indicates a connection attempt is in progress.
	StateConnecting State = "connecting"
	// StateConnected indicates an open session.
	StateConnected State = "connected"
)

// SurfaceValue is the connection status string shown on the control surface.
func (s State) SurfaceValue() string {
	switch s {
	case StateConnected:
		return "true"
	case StateConnecting:
		return "connecting"
	}
	return "false"
}

// CanTransition reports whether moving from s to next is a legal step.
func (s State) CanTransition(next State) bool {
	switch s {
	case StateDisconnected:
		return next == StateConnecting
	case StateConnecting:
		return next == StateConnected || next == StateDisconnected
	case StateConnected:
		return next == StateDisconnected
	}
	return false
}

package relink

import (
	"time"

	"github.com/google/uuid"
)

// State is the connection lifecycle state. Exactly one is active at a time
// and transitions happen only inside the state machine's own methods.
type State int

const (
	// StateDisconnected means no session exists and none is being pursued.
	StateDisconnected State = iota

	// StateConnecting means a dial attempt is in flight.
	StateConnecting

	// StateConnected means a session is open and writable.
	StateConnected

	// StateErrored means the last attempt or session failed. A reconnect
	// timer may be armed unless the attempt budget is exhausted.
	StateErrored

	// StateOffline means the network observer reports the network absent;
	// no reconnect timer is armed until an online signal arrives.
	StateOffline

	// StateDestroyed is terminal. No outgoing transitions.
	StateDestroyed
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
	case StateErrored:
		return "errored"
	case StateOffline:
		return "offline"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Status is a point-in-time snapshot of the connection.
type Status struct {
	State            State
	ReconnectAttempt int       // consecutive failed attempts since last success
	Cause            error     // last failure cause, nil when healthy
	SessionID        uuid.UUID // current session, zero when none
}

// EventKind tags an Event.
type EventKind int

const (
	// EventStateChange fires on every state transition.
	EventStateChange EventKind = iota

	// EventOnline fires when the network observer reports the network back.
	EventOnline

	// EventOffline fires when the network observer reports the network gone.
	EventOffline

	// EventReconnecting fires when a reconnect timer is armed.
	EventReconnecting
)

// String returns the string representation of an EventKind.
func (k EventKind) String() string {
	switch k {
	case EventStateChange:
		return "state_change"
	case EventOnline:
		return "online"
	case EventOffline:
		return "offline"
	case EventReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// Event is delivered on the Events channel.
type Event struct {
	Kind EventKind

	// StateChange fields.
	Old State
	New State

	// Reconnecting fields.
	Attempt int           // 0-based reconnect attempt about to be made
	Delay   time.Duration // wait before the attempt fires

	// Failure cause when one applies.
	Cause error
}

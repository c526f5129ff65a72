package relink

import (
	"context"

	"github.com/google/uuid"
)

// Transport is implemented once per wire protocol (WebSocket, long-poll,
// SSE, ...). The state machine owns reconnection, buffering and liveness;
// a transport only knows how to establish one session.
type Transport interface {
	// Dial performs the handshake for exactly one new session. The context
	// carries the connection timeout; a Dial that cannot complete within it
	// must return the context error. Dial never reuses a previous session.
	Dial(ctx context.Context) (Session, error)
}

// SessionEventKind tags a SessionEvent.
type SessionEventKind int

const (
	// SessionFrame carries one decoded inbound message.
	SessionFrame SessionEventKind = iota

	// SessionActivity reports inbound liveness with no message payload,
	// such as a heartbeat pong.
	SessionActivity

	// SessionClosed reports the session is gone. Err is nil for a clean
	// close and carries the cause otherwise. It is the last event emitted.
	SessionClosed
)

// SessionEvent is emitted by a session into its Events channel. The state
// machine consumes them in one pump goroutine per session; events from a
// superseded session are discarded by the generation guard.
type SessionEvent struct {
	Kind SessionEventKind
	Data []byte // SessionFrame payload
	Err  error  // SessionClosed cause, nil for clean close
}

// Session is one established transport session.
//
// The Events channel must be closed when the session is torn down, normally
// right after the SessionClosed event. Close must be idempotent and safe to
// call concurrently with Send.
type Session interface {
	// ID identifies this session in logs and status snapshots.
	ID() uuid.UUID

	// Send transmits one message. It fails with ErrNotConnected (or a
	// transport error) once the session is not writable; the state machine
	// falls back to buffering.
	Send(data []byte) error

	// Heartbeat fires one liveness probe. Errors are not reported here;
	// a dead socket surfaces through the SessionClosed event.
	Heartbeat()

	// Events returns the session's event stream.
	Events() <-chan SessionEvent

	// Close tears the session down.
	Close() error
}

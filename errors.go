package relink

import "errors"

// Errors
var (
	// ErrDestroyed is returned by every operation invoked after Destroy.
	ErrDestroyed = errors.New("connection destroyed")

	// ErrDisconnected settles an in-flight Connect interrupted by Disconnect.
	ErrDisconnected = errors.New("disconnected by caller")

	// ErrNotConnected is returned by a session Send when the underlying
	// socket is no longer writable. The state machine buffers on it.
	ErrNotConnected = errors.New("not connected")

	// ErrBufferFull rejects a Send once the outbound buffer hits its bound.
	ErrBufferFull = errors.New("outbound buffer full")

	// ErrMaxReconnectAttempts marks the errored state after the reconnect
	// budget is exhausted. No further automatic attempts are made; a manual
	// Connect is still honored.
	ErrMaxReconnectAttempts = errors.New("maximum reconnection attempts reached")

	// ErrStaleConnection is the failure cause when the heartbeat monitor
	// sees no inbound activity for too long.
	ErrStaleConnection = errors.New("connection stale (no inbound activity)")

	// ErrConnectionClosed is the failure cause for a session that closed
	// without a more specific error.
	ErrConnectionClosed = errors.New("connection closed")

	// ErrInvalidFrame is the failure cause for inbound data that does not
	// decode as a recognized message.
	ErrInvalidFrame = errors.New("invalid inbound frame")
)

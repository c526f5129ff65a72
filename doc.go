// Package relink provides a resilient, reconnecting duplex connection over
// a pluggable transport.
//
// The Conn state machine:
//   - buffers outbound messages across disconnects and flushes them in
//     submission order on (re)connection
//   - reconnects with jittered exponential backoff, capped by an attempt
//     budget, and parks while the network observer reports offline
//   - probes liveness with a periodic heartbeat and closes silent sessions
//   - discards events from superseded sessions via a generation token
//
// Transports implement the Transport and Session interfaces; the WebSocket
// reference adapter lives in the wstransport package.
package relink

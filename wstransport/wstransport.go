// Package wstransport is the WebSocket reference transport for relink,
// built on gorilla/websocket.
package wstransport

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Default option values.
const (
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultWriteTimeout     = 5 * time.Second
	DefaultEventBufferSize  = 64
)

// DecodeFunc validates and decodes one inbound frame. Returning an error
// rejects the frame (the session is closed and the failure surfaces through
// the connection's error path). Returning a nil payload with a nil error
// marks the frame as a heartbeat-pong sentinel: it counts as activity but
// is not surfaced as an application message.
type DecodeFunc func(frame []byte) ([]byte, error)

// Options configures the transport.
type Options struct {
	// HandshakeTimeout bounds the WebSocket handshake. The dial context's
	// own deadline applies as well; whichever fires first wins.
	HandshakeTimeout time.Duration

	// WriteTimeout is the per-message write deadline.
	WriteTimeout time.Duration

	// Header is sent with the handshake request.
	Header http.Header

	// Decode validates inbound frames. Nil accepts every frame as-is.
	Decode DecodeFunc

	// Binary selects binary frames for outbound messages; text otherwise.
	Binary bool

	// EventBufferSize is the capacity of each session's event channel.
	EventBufferSize int

	// Logger for structured logs. Nil uses slog.Default().
	Logger *slog.Logger
}

func (o *Options) applyDefaults() {
	if o.HandshakeTimeout == 0 {
		o.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if o.WriteTimeout == 0 {
		o.WriteTimeout = DefaultWriteTimeout
	}
	if o.EventBufferSize == 0 {
		o.EventBufferSize = DefaultEventBufferSize
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Transport dials WebSocket sessions against one endpoint.
type Transport struct {
	url    string
	opts   Options
	logger *slog.Logger
}

// New builds a transport for url.
func New(url string, opts Options) *Transport {
	opts.applyDefaults()
	return &Transport{
		url:    url,
		opts:   opts,
		logger: opts.Logger.With("transport", "websocket"),
	}
}

// classifyClose maps a read error to a session close cause. Normal close
// codes mean the peer hung up cleanly; everything else is a transport
// failure with the original error as cause.
func classifyClose(err error) error {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return nil
	}
	return fmt.Errorf("websocket read: %w", err)
}

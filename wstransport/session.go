package wstransport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/relinkio/relink"
)

// Dial performs the handshake for one new session. Exactly one socket is
// created per call; a handshake that outlives the context deadline fails
// with the context error.
func (t *Transport) Dial(ctx context.Context) (relink.Session, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: t.opts.HandshakeTimeout,
	}

	conn, resp, err := dialer.DialContext(ctx, t.url, t.opts.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	s := &session{
		id:     uuid.New(),
		conn:   conn,
		opts:   t.opts,
		events: make(chan relink.SessionEvent, t.opts.EventBufferSize),
		done:   make(chan struct{}),
	}
	s.logger = t.logger.With("session_id", s.id)

	// The peer's pings and pongs both count as inbound liveness. Handlers
	// run on the read-loop goroutine, during ReadMessage.
	conn.SetPingHandler(func(data string) error {
		s.emit(relink.SessionEvent{Kind: relink.SessionActivity})
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(t.opts.WriteTimeout))
	})
	conn.SetPongHandler(func(string) error {
		s.emit(relink.SessionEvent{Kind: relink.SessionActivity})
		return nil
	})

	go s.readLoop()

	s.logger.Debug("websocket session opened", "url", t.url)
	return s, nil
}

// session is one live WebSocket connection.
type session struct {
	id     uuid.UUID
	conn   *websocket.Conn
	opts   Options
	logger *slog.Logger

	events chan relink.SessionEvent
	done   chan struct{}

	writeMu sync.Mutex

	mu     sync.Mutex
	closed bool
}

func (s *session) ID() uuid.UUID { return s.id }

func (s *session) Events() <-chan relink.SessionEvent { return s.events }

// Send writes one message. It fails once the session is closed so the state
// machine falls back to buffering.
func (s *session) Send(data []byte) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return relink.ErrNotConnected
	}

	msgType := websocket.TextMessage
	if s.opts.Binary {
		msgType = websocket.BinaryMessage
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := s.conn.WriteMessage(msgType, data); err != nil {
		return fmt.Errorf("websocket write: %w", err)
	}
	return nil
}

// Heartbeat fires one ping. Send errors are logged at debug only; a dead
// socket surfaces through the read loop's close event.
func (s *session) Heartbeat() {
	deadline := time.Now().Add(s.opts.WriteTimeout)
	if err := s.conn.WriteControl(websocket.PingMessage, []byte("keepalive"), deadline); err != nil {
		s.logger.Debug("failed to send ping", "error", err)
	}
}

// Close tears the session down. Idempotent.
func (s *session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.done)

	// Best-effort close frame, then drop the socket. The read loop exits
	// on the socket close and finishes the event stream.
	_ = s.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return s.conn.Close()
}

func (s *session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// readLoop turns socket reads into session events. It owns the events
// channel and closes it on exit.
func (s *session) readLoop() {
	defer close(s.events)

	for {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			if s.isClosed() {
				// Locally initiated teardown reads as an error; report a
				// clean close.
				s.emit(relink.SessionEvent{Kind: relink.SessionClosed})
				return
			}
			s.emit(relink.SessionEvent{Kind: relink.SessionClosed, Err: classifyClose(err)})
			return
		}

		payload := frame
		if s.opts.Decode != nil {
			decoded, derr := s.opts.Decode(frame)
			if derr != nil {
				// Unrecognized frames are a failure, not something to
				// swallow.
				cause := fmt.Errorf("%w: %v", relink.ErrInvalidFrame, derr)
				s.logger.Warn("rejecting inbound frame", "error", derr)
				s.emit(relink.SessionEvent{Kind: relink.SessionClosed, Err: cause})
				_ = s.Close()
				return
			}
			if decoded == nil {
				// Heartbeat-pong sentinel: liveness only.
				s.emit(relink.SessionEvent{Kind: relink.SessionActivity})
				continue
			}
			payload = decoded
		}

		s.emit(relink.SessionEvent{Kind: relink.SessionFrame, Data: payload})
	}
}

// emit delivers an event unless the consumer is gone.
func (s *session) emit(ev relink.SessionEvent) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

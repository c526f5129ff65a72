package relink

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/relinkio/relink/backoff"
	"github.com/relinkio/relink/netstatus"
)

// Conn is a resilient duplex connection over a pluggable Transport. It keeps
// a logical channel alive across network flaps and peer closes: outbound
// messages submitted while the link is down are buffered and flushed in
// order on (re)connection, reconnects follow a jittered exponential backoff
// gated by the network observer, and a heartbeat monitor closes sessions
// that go silent.
//
// All state transitions are serialized under one mutex. Asynchronous
// callbacks (session events, reconnect timers, network edges) validate the
// generation token before applying any effect, so events from a superseded
// session are no-ops.
type Conn struct {
	transport Transport
	opts      Options
	policy    *backoff.Policy
	clk       clock.Clock
	logger    *slog.Logger
	observer  *netstatus.Observer

	mu        sync.Mutex
	state     State
	cause     error
	failures  int // consecutive failed attempts since last success
	gen       uint64
	session   Session
	sessionID uuid.UUID
	buffer    *outbox
	ready     chan struct{} // closed while connected
	pending   *connectResult
	destroyed bool

	reconnectTimer *clock.Timer
	hbStop         chan struct{}
	lastActivity   time.Time

	pumps     sync.WaitGroup
	destroyCh chan struct{}
	messages  chan []byte
	events    chan Event
}

// connectResult is the shared outcome of one dial attempt. Concurrent
// Connect calls all wait on the same result.
type connectResult struct {
	done chan struct{}
	err  error
}

// New builds a Conn over transport. The zero Options value gets defaults
// applied; see DefaultOptions.
func New(transport Transport, opts Options) *Conn {
	opts.applyDefaults()

	c := &Conn{
		transport: transport,
		opts:      opts,
		policy:    opts.Backoff,
		clk:       opts.Clock,
		logger:    opts.Logger,
		observer:  netstatus.New(opts.NetworkSignal, opts.IsOnline),
		state:     StateDisconnected,
		buffer:    newOutbox(opts.MaxBufferedMessages),
		ready:     make(chan struct{}),
		destroyCh: make(chan struct{}),
		messages:  make(chan []byte, opts.MessageBufferSize),
		events:    make(chan Event, opts.EventBufferSize),
	}

	if c.observer.Tracked() {
		go c.watchNetwork(c.observer.Subscribe())
	}

	return c
}

// Connect establishes the connection. It is idempotent: while already
// connected it returns nil immediately, and concurrent calls join the
// in-flight attempt and settle together. A canceled context stops the wait
// but not the attempt. Connect returns the attempt's failure cause while
// automatic reconnection continues in the background per the policy.
func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return ErrDestroyed
	}
	if c.state == StateConnected {
		c.mu.Unlock()
		return nil
	}
	res := c.startAttemptLocked()
	c.mu.Unlock()

	select {
	case <-res.done:
		return res.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Disconnect pauses the connection: the session is closed, timers are
// canceled and the state becomes disconnected. The outbound buffer and the
// reconnect counter are preserved; a later Connect resumes where it left off.
func (c *Conn) Disconnect() error {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return ErrDestroyed
	}
	c.stopReconnectTimerLocked()
	c.stopHeartbeatLocked()
	c.settlePendingLocked(ErrDisconnected)
	if c.state == StateConnected {
		c.ready = make(chan struct{})
	}
	sess := c.detachSessionLocked()
	c.gen++ // events from the closed session are now stale
	c.setStateLocked(StateDisconnected, nil)
	c.mu.Unlock()

	if sess != nil {
		_ = sess.Close()
	}
	return nil
}

// Destroy tears the connection down for good. It cancels every timer,
// closes the session, clears the outbound buffer, settles any in-flight
// Connect with ErrDestroyed and closes the Messages and Events channels.
// Destroy is idempotent and never fails.
func (c *Conn) Destroy() error {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return nil
	}
	c.destroyed = true
	c.stopReconnectTimerLocked()
	c.stopHeartbeatLocked()
	c.settlePendingLocked(ErrDestroyed)
	sess := c.detachSessionLocked()
	c.gen++
	c.buffer.clear()
	c.setStateLocked(StateDestroyed, nil)
	c.mu.Unlock()

	close(c.destroyCh)
	c.observer.Close()
	if sess != nil {
		_ = sess.Close()
	}

	// Every pump goroutine holds a reference into messages; wait for them
	// before closing it so consumers see a clean end of stream.
	c.pumps.Wait()
	close(c.messages)
	close(c.events)

	return nil
}

// Send transmits data when connected and buffers it otherwise. A send that
// fails on a dying session is buffered too; the loss surfaces later through
// the session's close event, never through Send. The only Send errors are
// ErrDestroyed and ErrBufferFull.
func (c *Conn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.destroyed {
		return ErrDestroyed
	}
	if c.state == StateConnected && c.session != nil {
		if err := c.session.Send(data); err == nil {
			return nil
		}
	}
	return c.buffer.push(data)
}

// State returns the current lifecycle state.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Status returns a snapshot of the connection.
func (c *Conn) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		State:            c.state,
		ReconnectAttempt: c.failures,
		Cause:            c.cause,
		SessionID:        c.sessionID,
	}
}

// Destroyed reports whether Destroy has been called.
func (c *Conn) Destroyed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.destroyed
}

// Ready returns a channel that is closed while the connection is up. After
// a disconnect a fresh channel is swapped in, so callers re-acquire it to
// wait for the next (re)connection. Select it together with a context or
// the connection may be destroyed while waiting.
func (c *Conn) Ready() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

// Messages returns decoded inbound messages in arrival order. The channel
// is closed by Destroy.
func (c *Conn) Messages() <-chan []byte {
	return c.messages
}

// Events returns lifecycle events. A consumer that falls behind loses
// events (they are dropped with a warning); Messages never drops.
func (c *Conn) Events() <-chan Event {
	return c.events
}

// BufferedMessages reports how many outbound messages are queued.
func (c *Conn) BufferedMessages() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buffer.len()
}

// startAttemptLocked begins a dial attempt unless one is already in flight,
// in which case the caller joins it.
func (c *Conn) startAttemptLocked() *connectResult {
	if c.pending != nil {
		return c.pending
	}
	c.stopReconnectTimerLocked()

	res := &connectResult{done: make(chan struct{})}
	c.pending = res
	c.gen++
	gen := c.gen
	c.setStateLocked(StateConnecting, nil)

	go c.dial(gen, res)
	return res
}

// dial runs one attempt identified by gen. Internal reconnects and manual
// Connect calls share this path, so state updates do not depend on anyone
// waiting on the result.
func (c *Conn) dial(gen uint64, res *connectResult) {
	ctx := context.Background()
	if c.opts.ConnectionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.ConnectionTimeout)
		defer cancel()
	}

	sess, err := c.transport.Dial(ctx)

	c.mu.Lock()
	if c.destroyed || gen != c.gen {
		// Superseded while dialing. The attempt's result was settled by
		// whoever superseded it; just discard the session.
		c.mu.Unlock()
		if sess != nil {
			_ = sess.Close()
		}
		return
	}

	if err != nil {
		cause := fmt.Errorf("dial: %w", err)
		c.logger.Warn("connection attempt failed", "gen", gen, "error", err)
		c.failLocked(cause)
		c.settlePendingLocked(cause)
		c.mu.Unlock()
		return
	}

	c.openedLocked(gen, sess)
	c.mu.Unlock()
}

// openedLocked installs a freshly dialed session: connected state, counter
// reset, waiters released, then the outbound buffer flushed strictly in
// order. A flush failure tears the session down through the same failure
// path as a connect failure; the unsent messages stay queued.
func (c *Conn) openedLocked(gen uint64, sess Session) {
	c.session = sess
	c.sessionID = sess.ID()
	c.failures = 0
	c.lastActivity = c.clk.Now()
	c.setStateLocked(StateConnected, nil)
	close(c.ready)

	c.logger.Info("connected", "gen", gen, "session_id", c.sessionID, "buffered", c.buffer.len())

	c.pumps.Add(1)
	go c.pump(gen, sess)
	c.startHeartbeatLocked(gen, sess)

	for {
		data, ok := c.buffer.peek()
		if !ok {
			break
		}
		if err := sess.Send(data); err != nil {
			// The session did open, so the attempt still settles as a
			// success; the flush failure takes the normal failure path.
			cause := fmt.Errorf("flush buffered message: %w", err)
			c.logger.Warn("buffer flush failed", "gen", gen, "remaining", c.buffer.len(), "error", err)
			c.failLocked(cause)
			break
		}
		c.buffer.drop()
	}

	c.settlePendingLocked(nil)
}

// pump consumes one session's event stream. It exits when the stream closes;
// the generation guard makes every effect a no-op once the session is
// superseded.
func (c *Conn) pump(gen uint64, sess Session) {
	defer c.pumps.Done()

	for ev := range sess.Events() {
		switch ev.Kind {
		case SessionActivity:
			c.touchActivity(gen)

		case SessionFrame:
			c.touchActivity(gen)
			select {
			case c.messages <- ev.Data:
			case <-c.destroyCh:
				return
			}

		case SessionClosed:
			c.sessionClosed(gen, ev.Err)
			return
		}
	}

	// Stream closed without a SessionClosed event.
	c.sessionClosed(gen, nil)
}

func (c *Conn) touchActivity(gen uint64) {
	c.mu.Lock()
	if !c.destroyed && gen == c.gen {
		c.lastActivity = c.clk.Now()
	}
	c.mu.Unlock()
}

// sessionClosed handles a session ending for any reason.
func (c *Conn) sessionClosed(gen uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.destroyed || gen != c.gen {
		return // stale session, already superseded or torn down
	}

	cause := err
	if cause == nil {
		cause = ErrConnectionClosed
	}
	c.logger.Warn("session closed", "gen", gen, "session_id", c.sessionID, "error", cause)
	c.failLocked(cause)
}

// failLocked is the single failure path: tears down the current session,
// bumps the attempt counter and decides between scheduling a reconnect,
// waiting for the network, or giving up.
func (c *Conn) failLocked(cause error) {
	c.stopHeartbeatLocked()
	c.stopReconnectTimerLocked()
	if c.state == StateConnected {
		c.ready = make(chan struct{})
	}
	if sess := c.detachSessionLocked(); sess != nil {
		go sess.Close()
	}
	c.gen++ // invalidate callbacks from the dead session

	c.failures++
	retry := c.failures - 1 // 0-based reconnect attempt index

	if c.observer.Tracked() && !c.observer.Online() {
		// Network known absent: park until the online signal instead of
		// burning attempts. The counter is kept, not reset.
		c.setStateLocked(StateOffline, cause)
		return
	}

	if !c.policy.ShouldRetry(retry) {
		final := fmt.Errorf("%w after %d attempts: %v", ErrMaxReconnectAttempts, c.failures, cause)
		c.logger.Error("reconnect budget exhausted", "attempts", c.failures, "error", cause)
		c.setStateLocked(StateErrored, final)
		return
	}

	delay := c.policy.Delay(retry)
	c.setStateLocked(StateErrored, cause)
	c.emitLocked(Event{Kind: EventReconnecting, Attempt: retry, Delay: delay, Cause: cause})
	c.logger.Info("reconnect scheduled", "attempt", retry, "delay", delay)

	c.reconnectTimer = c.clk.AfterFunc(delay, c.fireReconnect)
}

// fireReconnect runs when a reconnect timer elapses. Anything that changed
// the state since the timer was armed (manual Connect, Disconnect, Destroy,
// an offline edge) makes it a no-op.
func (c *Conn) fireReconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.destroyed || c.state != StateErrored {
		return
	}
	c.startAttemptLocked()
}

// watchNetwork applies online/offline edges from the observer.
func (c *Conn) watchNetwork(sub <-chan bool) {
	for {
		select {
		case <-c.destroyCh:
			return
		case online, ok := <-sub:
			if !ok {
				return
			}
			c.mu.Lock()
			if c.destroyed {
				c.mu.Unlock()
				return
			}
			if online {
				c.emitLocked(Event{Kind: EventOnline})
				if c.state == StateOffline {
					// Resume immediately with the current attempt count.
					c.startAttemptLocked()
				}
			} else {
				c.emitLocked(Event{Kind: EventOffline})
				// An offline signal does not itself disconnect; only a
				// pending retry is parked.
				if c.state == StateErrored {
					c.stopReconnectTimerLocked()
					c.setStateLocked(StateOffline, c.cause)
				}
			}
			c.mu.Unlock()
		}
	}
}

func (c *Conn) detachSessionLocked() Session {
	sess := c.session
	c.session = nil
	c.sessionID = uuid.Nil
	return sess
}

func (c *Conn) settlePendingLocked(err error) {
	if c.pending == nil {
		return
	}
	c.pending.err = err
	close(c.pending.done)
	c.pending = nil
}

func (c *Conn) stopReconnectTimerLocked() {
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
}

func (c *Conn) setStateLocked(s State, cause error) {
	if c.state == s && c.cause == cause {
		return
	}
	old := c.state
	c.state = s
	c.cause = cause
	c.emitLocked(Event{Kind: EventStateChange, Old: old, New: s, Cause: cause})
}

// emitLocked delivers an event without blocking the state machine. The
// event stream is advisory; a consumer that falls behind loses events.
func (c *Conn) emitLocked(ev Event) {
	if c.destroyed && ev.Kind != EventStateChange {
		return
	}
	select {
	case c.events <- ev:
	default:
		c.logger.Warn("event buffer full, dropping event", "kind", ev.Kind)
	}
}

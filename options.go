package relink

import (
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/relinkio/relink/backoff"
)

// Default option values.
const (
	DefaultInitialReconnectDelay = 1 * time.Second
	DefaultMaxReconnectDelay     = 30 * time.Second
	DefaultMaxReconnectAttempts  = 10
	DefaultHeartbeatInterval     = 15 * time.Second
	DefaultStaleMultiplier       = 2
	DefaultConnectionTimeout     = 10 * time.Second
	DefaultMaxBufferedMessages   = 1024
	DefaultMessageBufferSize     = 256
	DefaultEventBufferSize       = 32
)

// Options configures a Conn.
type Options struct {
	// Reconnect policy. Ignored when Backoff is set.
	InitialReconnectDelay time.Duration
	MaxReconnectDelay     time.Duration
	MaxReconnectAttempts  int

	// Backoff overrides the policy built from the delay fields above.
	Backoff *backoff.Policy

	// HeartbeatInterval is the period between liveness probes while
	// connected. Zero disables the heartbeat monitor.
	HeartbeatInterval time.Duration

	// StaleMultiplier times HeartbeatInterval is the inbound-silence
	// threshold after which the session is closed as stale.
	StaleMultiplier int

	// ConnectionTimeout bounds a single dial attempt.
	ConnectionTimeout time.Duration

	// MaxBufferedMessages bounds the outbound buffer. Overflowing Sends
	// are rejected with ErrBufferFull.
	MaxBufferedMessages int

	// MessageBufferSize is the capacity of the Messages channel. A full
	// channel applies backpressure to the session pump; inbound frames
	// are never dropped.
	MessageBufferSize int

	// EventBufferSize is the capacity of the Events channel. Events to a
	// consumer that falls behind are dropped with a log warning.
	EventBufferSize int

	// NetworkSignal is an optional source of online/offline edges
	// (true = online). Nil disables the network gate.
	NetworkSignal <-chan bool

	// IsOnline seeds the observer's initial state. Nil assumes online.
	IsOnline func() bool

	// Clock supplies timers. Nil uses the wall clock; tests inject
	// clock.NewMock().
	Clock clock.Clock

	// Logger for structured logs. Nil uses slog.Default().
	Logger *slog.Logger
}

// DefaultOptions returns production defaults.
func DefaultOptions() Options {
	return Options{
		InitialReconnectDelay: DefaultInitialReconnectDelay,
		MaxReconnectDelay:     DefaultMaxReconnectDelay,
		MaxReconnectAttempts:  DefaultMaxReconnectAttempts,
		HeartbeatInterval:     DefaultHeartbeatInterval,
		StaleMultiplier:       DefaultStaleMultiplier,
		ConnectionTimeout:     DefaultConnectionTimeout,
		MaxBufferedMessages:   DefaultMaxBufferedMessages,
		MessageBufferSize:     DefaultMessageBufferSize,
		EventBufferSize:       DefaultEventBufferSize,
	}
}

func (o *Options) applyDefaults() {
	if o.InitialReconnectDelay == 0 {
		o.InitialReconnectDelay = DefaultInitialReconnectDelay
	}
	if o.MaxReconnectDelay == 0 {
		o.MaxReconnectDelay = DefaultMaxReconnectDelay
	}
	if o.MaxReconnectAttempts == 0 {
		o.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if o.StaleMultiplier == 0 {
		o.StaleMultiplier = DefaultStaleMultiplier
	}
	if o.ConnectionTimeout == 0 {
		o.ConnectionTimeout = DefaultConnectionTimeout
	}
	if o.MaxBufferedMessages == 0 {
		o.MaxBufferedMessages = DefaultMaxBufferedMessages
	}
	if o.MessageBufferSize == 0 {
		o.MessageBufferSize = DefaultMessageBufferSize
	}
	if o.EventBufferSize == 0 {
		o.EventBufferSize = DefaultEventBufferSize
	}
	if o.Backoff == nil {
		o.Backoff = &backoff.Policy{
			InitialDelay: o.InitialReconnectDelay,
			MaxDelay:     o.MaxReconnectDelay,
			MaxAttempts:  o.MaxReconnectAttempts,
			Jitter:       true,
		}
	}
	if o.Clock == nil {
		o.Clock = clock.New()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

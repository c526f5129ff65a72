// Package router demultiplexes a connection's inbound message stream.
//
// A Router consumes raw messages (typically relink.Conn.Messages()),
// extracts a routing key per message and fans each message out to the
// subscription registered for that key. Subscriptions are backed by
// auto-growing queues so a slow consumer never stalls the demux loop.
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// DefaultQueueSize is the initial capacity of a subscription queue.
const DefaultQueueSize = 256

// KeyFunc extracts the routing key for one message. An error counts the
// message as unroutable; it is dropped with a warning.
type KeyFunc func(msg []byte) (string, error)

// JSONTypeKey returns a KeyFunc reading the given top-level string field of
// a JSON envelope, e.g. JSONTypeKey("type") for {"type": "trade", ...}.
func JSONTypeKey(field string) KeyFunc {
	return func(msg []byte) (string, error) {
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(msg, &envelope); err != nil {
			return "", fmt.Errorf("decode envelope: %w", err)
		}
		raw, ok := envelope[field]
		if !ok {
			return "", fmt.Errorf("envelope has no %q field", field)
		}
		var key string
		if err := json.Unmarshal(raw, &key); err != nil {
			return "", fmt.Errorf("decode %q field: %w", field, err)
		}
		return key, nil
	}
}

// Options configures a Router.
type Options struct {
	// Key extracts the routing key. Nil uses JSONTypeKey("type").
	Key KeyFunc

	// QueueSize is the initial capacity of each subscription queue.
	QueueSize int

	// Logger for structured logs. Nil uses slog.Default().
	Logger *slog.Logger
}

// Stats contains demux counters.
type Stats struct {
	Received   int64
	Routed     int64
	KeyErrors  int64
	Unrouted   int64 // messages with no matching subscription and no catch-all
}

// Router fans inbound messages out to per-key subscriptions.
type Router struct {
	key       KeyFunc
	queueSize int
	logger    *slog.Logger

	mu       sync.Mutex
	subs     map[string]*Subscription
	catchAll *Subscription
	started  bool

	cancel context.CancelFunc
	wg     sync.WaitGroup

	received  int64
	routed    int64
	keyErrors int64
	unrouted  int64
}

// Subscription is one consumer's view of a routing key.
type Subscription struct {
	key   string
	queue *Queue[[]byte]
}

// Key returns the routing key this subscription receives ("" for Default).
func (s *Subscription) Key() string { return s.key }

// Next blocks until a message is available or the subscription ends.
func (s *Subscription) Next() ([]byte, bool) { return s.queue.Pop() }

// TryNext returns a message without blocking.
func (s *Subscription) TryNext() ([]byte, bool) { return s.queue.TryPop() }

// Drain removes up to max queued messages at once (all when max <= 0).
func (s *Subscription) Drain(max int) [][]byte { return s.queue.Drain(max) }

// Stats returns the subscription queue's counters.
func (s *Subscription) Stats() QueueStats { return s.queue.Stats() }

// New builds a Router.
func New(opts Options) *Router {
	if opts.Key == nil {
		opts.Key = JSONTypeKey("type")
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Router{
		key:       opts.Key,
		queueSize: opts.QueueSize,
		logger:    opts.Logger,
		subs:      make(map[string]*Subscription),
	}
}

// Subscribe registers a subscription for key. Repeated calls with the same
// key return the same subscription. Subscriptions must be registered before
// Start; the demux loop reads the table without further locking guarantees
// for late registrations.
func (r *Router) Subscribe(key string) *Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sub, ok := r.subs[key]; ok {
		return sub
	}
	sub := &Subscription{key: key, queue: NewQueue[[]byte](r.queueSize)}
	r.subs[key] = sub
	return sub
}

// Default registers the catch-all subscription receiving every message that
// matches no keyed subscription.
func (r *Router) Default() *Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.catchAll == nil {
		r.catchAll = &Subscription{queue: NewQueue[[]byte](r.queueSize)}
	}
	return r.catchAll
}

// Start begins demultiplexing input. It returns immediately; the loop runs
// until input closes, the context is canceled, or Stop is called.
func (r *Router) Start(ctx context.Context, input <-chan []byte) error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return fmt.Errorf("router already started")
	}
	r.started = true
	ctx, r.cancel = context.WithCancel(ctx)
	r.mu.Unlock()

	r.wg.Add(1)
	go r.demuxLoop(ctx, input)

	r.logger.Info("message router started", "subscriptions", len(r.subs))
	return nil
}

// Stop shuts the router down and closes every subscription queue. Consumers
// drain what is already queued and then see end of stream. The context
// bounds the wait for the demux loop.
func (r *Router) Stop(ctx context.Context) error {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		r.logger.Warn("router stop timed out")
	}

	r.mu.Lock()
	for _, sub := range r.subs {
		sub.queue.Close()
	}
	if r.catchAll != nil {
		r.catchAll.queue.Close()
	}
	r.mu.Unlock()

	return nil
}

// Stats returns current demux counters.
func (r *Router) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{
		Received:  r.received,
		Routed:    r.routed,
		KeyErrors: r.keyErrors,
		Unrouted:  r.unrouted,
	}
}

func (r *Router) demuxLoop(ctx context.Context, input <-chan []byte) {
	defer r.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-input:
			if !ok {
				r.logger.Info("router input closed")
				return
			}
			r.route(msg)
		}
	}
}

func (r *Router) route(msg []byte) {
	r.mu.Lock()
	r.received++

	key, err := r.key(msg)
	if err != nil {
		r.keyErrors++
		r.mu.Unlock()
		r.logger.Warn("failed to extract routing key", "error", err)
		return
	}

	sub, ok := r.subs[key]
	if !ok {
		sub = r.catchAll
	}
	if sub == nil {
		r.unrouted++
		r.mu.Unlock()
		r.logger.Debug("no subscription for message", "key", key)
		return
	}
	r.routed++
	r.mu.Unlock()

	sub.queue.Push(msg)
}

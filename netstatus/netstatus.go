// Package netstatus tracks whether the local network is believed to be up.
//
// The signal source is injected: on platforms with a native online/offline
// notification it is bridged into a channel of bool edges, and tests feed
// edges by hand. A nil source disables tracking entirely, in which case the
// observer always reports online and the reconnect gate is a no-op.
package netstatus

import (
	"sync"
)

// Observer consumes online/offline edges from a signal source and fans them
// out to subscribers. It is independent of any transport.
type Observer struct {
	mu      sync.Mutex
	online  bool
	subs    []chan bool
	closed  bool
	tracked bool

	done chan struct{}
}

// New builds an observer around signal. isOnline seeds the initial state;
// nil means assume online. A nil signal disables tracking: the observer
// reports online forever and subscriptions never fire.
func New(signal <-chan bool, isOnline func() bool) *Observer {
	o := &Observer{
		online: true,
		done:   make(chan struct{}),
	}
	if isOnline != nil {
		o.online = isOnline()
	}
	if signal != nil {
		o.tracked = true
		go o.watch(signal)
	}
	return o
}

// Online reports the last known network status.
func (o *Observer) Online() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.online
}

// Tracked reports whether a signal source was provided. Untracked observers
// never transition and callers may skip gating on them.
func (o *Observer) Tracked() bool {
	return o.tracked
}

// Subscribe returns a channel receiving each status edge (true = online).
// The channel is buffered; an edge is dropped for a subscriber that has not
// drained the previous one, which is fine since only the latest value matters.
func (o *Observer) Subscribe() <-chan bool {
	ch := make(chan bool, 1)
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		close(ch)
		return ch
	}
	o.subs = append(o.subs, ch)
	return ch
}

// Close stops the watch goroutine and closes all subscriber channels.
// Idempotent.
func (o *Observer) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	subs := o.subs
	o.subs = nil
	o.mu.Unlock()

	close(o.done)
	for _, ch := range subs {
		close(ch)
	}
}

func (o *Observer) watch(signal <-chan bool) {
	for {
		select {
		case <-o.done:
			return
		case online, ok := <-signal:
			if !ok {
				return
			}
			o.apply(online)
		}
	}
}

func (o *Observer) apply(online bool) {
	o.mu.Lock()
	if o.closed || o.online == online {
		o.mu.Unlock()
		return
	}
	o.online = online
	subs := make([]chan bool, len(o.subs))
	copy(subs, o.subs)
	o.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- online:
		default:
			// Stale undelivered edge: replace it with the latest.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- online:
			default:
			}
		}
	}
}

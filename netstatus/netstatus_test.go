package netstatus

import (
	"testing"
	"time"
)

func waitEdge(t *testing.T, ch <-chan bool) bool {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for status edge")
		return false
	}
}

func TestObserver_NilSignalAlwaysOnline(t *testing.T) {
	o := New(nil, nil)
	defer o.Close()

	if !o.Online() {
		t.Error("expected online with nil signal")
	}
	if o.Tracked() {
		t.Error("expected untracked with nil signal")
	}
}

func TestObserver_InitialStateFromPredicate(t *testing.T) {
	o := New(nil, func() bool { return false })
	defer o.Close()

	if o.Online() {
		t.Error("expected offline initial state from predicate")
	}
}

func TestObserver_EdgesFanOut(t *testing.T) {
	signal := make(chan bool)
	o := New(signal, nil)
	defer o.Close()

	a := o.Subscribe()
	b := o.Subscribe()

	signal <- false
	if waitEdge(t, a) != false {
		t.Error("subscriber a: want offline edge")
	}
	if waitEdge(t, b) != false {
		t.Error("subscriber b: want offline edge")
	}
	if o.Online() {
		t.Error("Online() = true after offline edge")
	}

	signal <- true
	if waitEdge(t, a) != true {
		t.Error("subscriber a: want online edge")
	}
	if o.Online() != true {
		t.Error("Online() = false after online edge")
	}
}

func TestObserver_DuplicateEdgesSuppressed(t *testing.T) {
	signal := make(chan bool)
	o := New(signal, nil)
	defer o.Close()

	sub := o.Subscribe()

	// Already online; a repeated online edge must not be delivered.
	signal <- true
	select {
	case v := <-sub:
		t.Errorf("unexpected edge %v for duplicate status", v)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestObserver_SlowSubscriberGetsLatest(t *testing.T) {
	signal := make(chan bool)
	o := New(signal, nil)
	defer o.Close()

	sub := o.Subscribe()

	signal <- false
	signal <- true

	// The offline edge may have been replaced; the final observed value
	// must be the latest one.
	var last bool
	for {
		select {
		case v := <-sub:
			last = v
			continue
		case <-time.After(100 * time.Millisecond):
		}
		break
	}
	if last != true {
		t.Errorf("latest edge = %v, want true", last)
	}
}

func TestObserver_CloseIdempotent(t *testing.T) {
	signal := make(chan bool)
	o := New(signal, nil)
	sub := o.Subscribe()

	o.Close()
	o.Close()

	if _, ok := <-sub; ok {
		t.Error("expected subscriber channel closed")
	}

	// Subscribe after close returns a closed channel.
	if _, ok := <-o.Subscribe(); ok {
		t.Error("expected closed channel from Subscribe after Close")
	}
}

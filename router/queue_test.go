package router

import (
	"sync"
	"testing"
	"time"
)

func TestQueue_BasicPushPop(t *testing.T) {
	q := NewQueue[int](10)

	for i := 0; i < 5; i++ {
		if !q.Push(i) {
			t.Fatalf("Push(%d) returned false", i)
		}
	}
	if q.Len() != 5 {
		t.Errorf("Len() = %d, want 5", q.Len())
	}

	for i := 0; i < 5; i++ {
		val, ok := q.TryPop()
		if !ok {
			t.Fatalf("TryPop() returned false for item %d", i)
		}
		if val != i {
			t.Errorf("popped %d, want %d", val, i)
		}
	}
	if q.Len() != 0 {
		t.Errorf("Len() = %d, want 0", q.Len())
	}
}

func TestQueue_GrowsBeforeFull(t *testing.T) {
	q := NewQueue[int](10)

	// 70% of 10 is 7, so the 6th push triggers a resize.
	for i := 0; i < 20; i++ {
		if !q.Push(i) {
			t.Fatalf("Push(%d) returned false", i)
		}
	}

	if q.Cap() <= 10 {
		t.Errorf("Cap() = %d, want growth beyond 10", q.Cap())
	}
	stats := q.Stats()
	if stats.ResizeCount == 0 {
		t.Error("ResizeCount = 0, want at least one resize")
	}

	// Order survives the resize.
	for i := 0; i < 20; i++ {
		val, ok := q.TryPop()
		if !ok || val != i {
			t.Fatalf("popped %d %v, want %d", val, ok, i)
		}
	}
}

func TestQueue_OrderSurvivesWrap(t *testing.T) {
	q := NewQueue[int](100)

	// Interleave pushes and pops so head wraps around.
	next := 0
	for i := 0; i < 30; i++ {
		q.Push(i)
	}
	for i := 0; i < 20; i++ {
		val, ok := q.TryPop()
		if !ok || val != next {
			t.Fatalf("popped %d %v, want %d", val, ok, next)
		}
		next++
	}
	for i := 30; i < 90; i++ {
		q.Push(i)
	}
	for {
		val, ok := q.TryPop()
		if !ok {
			break
		}
		if val != next {
			t.Fatalf("popped %d, want %d", val, next)
		}
		next++
	}
	if next != 90 {
		t.Errorf("drained %d items, want 90", next)
	}
}

func TestQueue_PopBlocksUntilPush(t *testing.T) {
	q := NewQueue[string](10)

	got := make(chan string, 1)
	go func() {
		val, ok := q.Pop()
		if ok {
			got <- val
		}
		close(got)
	}()

	time.Sleep(10 * time.Millisecond)
	q.Push("wake")

	select {
	case val := <-got:
		if val != "wake" {
			t.Errorf("Pop() = %q, want wake", val)
		}
	case <-time.After(time.Second):
		t.Fatal("Pop never woke up")
	}
}

func TestQueue_CloseDrainsThenEnds(t *testing.T) {
	q := NewQueue[int](10)
	q.Push(1)
	q.Push(2)
	q.Close()

	if q.Push(3) {
		t.Error("Push after Close returned true")
	}

	for want := 1; want <= 2; want++ {
		val, ok := q.Pop()
		if !ok || val != want {
			t.Fatalf("Pop() = %d %v, want %d", val, ok, want)
		}
	}
	if _, ok := q.Pop(); ok {
		t.Error("Pop on closed empty queue returned ok")
	}
}

func TestQueue_CloseWakesBlockedPop(t *testing.T) {
	q := NewQueue[int](10)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, ok := q.Pop(); ok {
			t.Error("Pop returned ok on closed empty queue")
		}
	}()

	time.Sleep(10 * time.Millisecond)
	q.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Pop never returned after Close")
	}
}

func TestQueue_Drain(t *testing.T) {
	q := NewQueue[int](10)
	for i := 0; i < 6; i++ {
		q.Push(i)
	}

	batch := q.Drain(4)
	if len(batch) != 4 {
		t.Fatalf("Drain(4) returned %d items", len(batch))
	}
	for i, val := range batch {
		if val != i {
			t.Errorf("batch[%d] = %d, want %d", i, val, i)
		}
	}

	rest := q.Drain(0)
	if len(rest) != 2 || rest[0] != 4 || rest[1] != 5 {
		t.Errorf("Drain(0) = %v, want [4 5]", rest)
	}
	if q.Drain(0) != nil {
		t.Error("Drain on empty queue returned items")
	}
}

func TestQueue_ConcurrentProducersConsumers(t *testing.T) {
	q := NewQueue[int](4)

	const (
		producers = 4
		perProd   = 250
	)
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProd; i++ {
				q.Push(i)
			}
		}()
	}
	go func() {
		wg.Wait()
		q.Close()
	}()

	var popped int
	for {
		_, ok := q.Pop()
		if !ok {
			break
		}
		popped++
	}
	if popped != producers*perProd {
		t.Errorf("popped %d items, want %d", popped, producers*perProd)
	}
}

package backoff

import (
	"testing"
	"time"
)

func TestDelay_ExponentialGrowth(t *testing.T) {
	p := &Policy{
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		MaxAttempts:  10,
	}

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{3, 800 * time.Millisecond},
	}

	for _, tc := range cases {
		if got := p.Delay(tc.attempt); got != tc.want {
			t.Errorf("Delay(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}

func TestDelay_CappedAtMax(t *testing.T) {
	p := &Policy{
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		MaxAttempts:  100,
	}

	for _, attempt := range []int{5, 10, 50} {
		if got := p.Delay(attempt); got != 30*time.Second {
			t.Errorf("Delay(%d) = %v, want cap %v", attempt, got, 30*time.Second)
		}
	}
}

func TestDelay_NegativeAttemptClamped(t *testing.T) {
	p := &Policy{InitialDelay: time.Second, MaxDelay: time.Minute}
	if got := p.Delay(-3); got != time.Second {
		t.Errorf("Delay(-3) = %v, want %v", got, time.Second)
	}
}

func TestDelay_JitterStaysInBounds(t *testing.T) {
	p := &Policy{
		InitialDelay: 1 * time.Second,
		MaxDelay:     time.Minute,
		Jitter:       true,
	}
	p.SeedRNG(42)

	base := 4 * time.Second // attempt 2
	for i := 0; i < 100; i++ {
		d := p.Delay(2)
		if d < base/2 || d > base+base/2 {
			t.Fatalf("jittered delay %v outside [%v, %v]", d, base/2, base+base/2)
		}
	}
}

func TestShouldRetry(t *testing.T) {
	p := &Policy{MaxAttempts: 2}

	if !p.ShouldRetry(0) {
		t.Error("ShouldRetry(0) = false, want true")
	}
	if !p.ShouldRetry(1) {
		t.Error("ShouldRetry(1) = false, want true")
	}
	if p.ShouldRetry(2) {
		t.Error("ShouldRetry(2) = true, want false")
	}
}

func TestDefault(t *testing.T) {
	p := Default()
	if p.InitialDelay != DefaultInitialDelay {
		t.Errorf("InitialDelay = %v, want %v", p.InitialDelay, DefaultInitialDelay)
	}
	if p.MaxDelay != DefaultMaxDelay {
		t.Errorf("MaxDelay = %v, want %v", p.MaxDelay, DefaultMaxDelay)
	}
	if !p.Jitter {
		t.Error("expected jitter enabled by default")
	}
}

// Package backoff implements the reconnect delay policy.
//
// The policy is pure: given an attempt counter it answers "how long to
// wait" and "should we keep trying" without touching timers or sockets.
// The connection state machine owns scheduling.
package backoff

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// Default policy values.
const (
	DefaultInitialDelay = 1 * time.Second
	DefaultMaxDelay     = 30 * time.Second
	DefaultMaxAttempts  = 10
)

// Policy computes exponential backoff delays with optional jitter.
type Policy struct {
	InitialDelay time.Duration // delay for attempt 0
	MaxDelay     time.Duration // ceiling for the computed delay
	MaxAttempts  int           // attempts allowed before giving up
	Jitter       bool          // scale delay uniformly by 0.5x-1.5x

	mu  sync.Mutex
	rng *rand.Rand
}

// Default returns a policy with production defaults and jitter enabled.
func Default() *Policy {
	return &Policy{
		InitialDelay: DefaultInitialDelay,
		MaxDelay:     DefaultMaxDelay,
		MaxAttempts:  DefaultMaxAttempts,
		Jitter:       true,
	}
}

// Delay returns the wait before reconnect attempt n (0-based):
// min(MaxDelay, InitialDelay * 2^n), jittered when enabled.
func (p *Policy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if p.InitialDelay <= 0 {
		return 0
	}

	d := float64(p.InitialDelay) * math.Pow(2, float64(attempt))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}

	if p.Jitter {
		// 0.5x-1.5x spread so many connections dropped by one outage
		// do not retry in lockstep.
		d *= 0.5 + p.random()
	}

	return time.Duration(d)
}

// ShouldRetry reports whether attempt n (0-based) is still allowed.
func (p *Policy) ShouldRetry(attempt int) bool {
	return attempt < p.MaxAttempts
}

// SeedRNG fixes the jitter source, for deterministic tests.
func (p *Policy) SeedRNG(seed int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rng = rand.New(rand.NewSource(seed))
}

func (p *Policy) random() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.rng == nil {
		p.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return p.rng.Float64()
}

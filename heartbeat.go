package relink

import (
	"fmt"

	"time"

	"github.com/benbjohnson/clock"
)

// startHeartbeatLocked arms the liveness monitor for one session. Disabled
// when HeartbeatInterval is zero.
func (c *Conn) startHeartbeatLocked(gen uint64, sess Session) {
	if c.opts.HeartbeatInterval <= 0 {
		return
	}
	stop := make(chan struct{})
	c.hbStop = stop
	ticker := c.clk.Ticker(c.opts.HeartbeatInterval)
	go c.heartbeatLoop(gen, sess, ticker, stop)
}

func (c *Conn) stopHeartbeatLocked() {
	if c.hbStop != nil {
		close(c.hbStop)
		c.hbStop = nil
	}
}

// heartbeatLoop probes the session every interval and closes it when no
// inbound activity (frames or pongs) arrives for StaleMultiplier intervals.
// Probe send errors are not handled here; a dead socket surfaces through
// the session close event.
func (c *Conn) heartbeatLoop(gen uint64, sess Session, ticker *clock.Ticker, stop chan struct{}) {
	defer ticker.Stop()

	staleAfter := time.Duration(c.opts.StaleMultiplier) * c.opts.HeartbeatInterval

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			if c.destroyed || gen != c.gen || c.state != StateConnected {
				c.mu.Unlock()
				return
			}
			silent := c.clk.Now().Sub(c.lastActivity)
			if silent > staleAfter {
				cause := fmt.Errorf("%w: no activity for %v", ErrStaleConnection, silent)
				c.logger.Warn("heartbeat detected stale session",
					"gen", gen,
					"session_id", c.sessionID,
					"silent", silent,
				)
				c.failLocked(cause)
				c.mu.Unlock()
				return
			}
			c.mu.Unlock()

			sess.Heartbeat()
		}
	}
}

package relink

// outbox is the FIFO buffer of messages awaiting transmission. It is not
// self-locking: the state machine serializes access under its own mutex.
//
// Messages survive Disconnect and are cleared only by Destroy. The head is
// removed only after a successful handoff to the session, so a mid-flush
// failure leaves the failed message and everything behind it queued.
type outbox struct {
	items [][]byte
	max   int // 0 = unbounded
}

func newOutbox(max int) *outbox {
	return &outbox{max: max}
}

// push appends a message at the tail. Returns ErrBufferFull at the bound.
func (b *outbox) push(data []byte) error {
	if b.max > 0 && len(b.items) >= b.max {
		return ErrBufferFull
	}
	b.items = append(b.items, data)
	return nil
}

// peek returns the head without removing it.
func (b *outbox) peek() ([]byte, bool) {
	if len(b.items) == 0 {
		return nil, false
	}
	return b.items[0], true
}

// drop removes the head after it was successfully handed off.
func (b *outbox) drop() {
	if len(b.items) == 0 {
		return
	}
	b.items[0] = nil
	b.items = b.items[1:]
}

func (b *outbox) len() int {
	return len(b.items)
}

func (b *outbox) clear() {
	b.items = nil
}

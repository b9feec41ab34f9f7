package shard

import "sync"

// Bus is an unbounded multi-producer single-consumer queue of
// ShardMessage, one per shard. Unbounded because
// back-pressure is enforced earlier, at the connection-permit layer
// — a bounded bus risks scatter-gather deadlocking
// when one shard is slow and others wait on it.
type Bus struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []ShardMessage
	closed bool
}

func NewBus() *Bus {
	b := &Bus{}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Producer is a cheap clone of the send side; every sender gets one
//.
type Producer struct {
	bus *Bus
}

func (b *Bus) Producer() Producer { return Producer{bus: b} }

// Send enqueues msg. Per-sender order is preserved (the bus's FIFO
// guarantee applies per producer, not globally across producers).
// Send on a closed bus is a no-op: the shard is shutting
// down and no reply will ever be sent, matching the // cancellation semantics ("dropping a connection drops its outstanding
// reply channels").
func (p Producer) Send(msg ShardMessage) {
	p.bus.mu.Lock()
	defer p.bus.mu.Unlock()
	if p.bus.closed {
		return
	}
	p.bus.queue = append(p.bus.queue, msg)
	p.bus.cond.Signal()
}

// Receive blocks until a message is available or the bus is closed and
// drained, in which case ok is false.
func (b *Bus) Receive() (msg ShardMessage, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for len(b.queue) == 0 && !b.closed {
		b.cond.Wait()
	}
	if len(b.queue) == 0 {
		return ShardMessage{}, false
	}
	msg = b.queue[0]
	b.queue = b.queue[1:]
	return msg, true
}

// Close closes the bus; a worker exits only once its inbound queue is
// closed and drained.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.cond.Broadcast()
}

package transport

import (
	"sync"
	"time"
)

// pipeQueueSize is the per-direction queue capacity of a pipe pair. The
// stop-and-wait engines keep one packet outstanding, so the queue never
// comes close to filling.
const pipeQueueSize = 1024

// PipeConn is one end of an in-process datagram channel. Pipe returns a
// linked pair whose two directions are independent order-preserving
// queues, standing in for the network in the simulated deployment shape
// and in tests.
type PipeConn struct {
	addr  string
	peer  *PipeConn
	inbox chan []byte
	done  chan struct{}
	once  sync.Once
}

var _ Conn = (*PipeConn)(nil)

// Pipe creates a linked pair of endpoints. Datagrams sent on one end
// arrive at the other in send order; closing either end wakes both.
func Pipe() (a, b *PipeConn) {
	a = &PipeConn{addr: "pipe:a", inbox: make(chan []byte, pipeQueueSize), done: make(chan struct{})}
	b = &PipeConn{addr: "pipe:b", inbox: make(chan []byte, pipeQueueSize), done: make(chan struct{})}
	a.peer = b
	b.peer = a
	return a, b
}

// Addr returns this endpoint's address as seen by its peer.
func (c *PipeConn) Addr() string {
	return c.addr
}

// Send delivers one datagram to the peer endpoint. The destination is
// ignored — a pipe has exactly one peer. The datagram is copied so the
// caller may reuse its buffer.
func (c *PipeConn) Send(b []byte, _ string) error {
	d := make([]byte, len(b))
	copy(d, b)
	select {
	case c.peer.inbox <- d:
		return nil
	case <-c.done:
		return ErrClosed
	case <-c.peer.done:
		return ErrClosed
	}
}

// Recv waits up to maxWait for one datagram from the peer.
func (c *PipeConn) Recv(maxWait time.Duration) ([]byte, string, error) {
	t := time.NewTimer(maxWait)
	defer t.Stop()
	select {
	case d := <-c.inbox:
		return d, c.peer.addr, nil
	case <-t.C:
		return nil, "", ErrTimeout
	case <-c.done:
		return nil, "", ErrClosed
	}
}

// Close shuts down this endpoint. Safe to call more than once.
func (c *PipeConn) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

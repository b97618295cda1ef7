// Package transport provides the datagram channel boundary the protocol
// engines speak through, plus three bindings: a UDP socket, a WebSocket
// channel, and an in-process pipe pair for the simulated shape and tests.
//
// A Conn moves opaque byte blobs between addressed peers. It preserves
// relative order per peer and never drops or damages anything itself —
// deliberate impairment is the engines' job, applied above this boundary.
package transport

import (
	"time"

	"github.com/pkg/errors"
)

// ErrTimeout is returned by Recv when no datagram arrives within the
// bounded wait. Callers use it to distinguish an idle tick from a broken
// transport.
var ErrTimeout = errors.New("receive timed out")

// ErrClosed is returned once a Conn has been shut down.
var ErrClosed = errors.New("transport closed")

// Conn is one endpoint of a datagram channel. The engines never open
// sockets themselves; they are handed a Conn.
type Conn interface {
	// Send transmits one datagram to the named destination.
	Send(b []byte, to string) error

	// Recv blocks up to maxWait for one datagram, returning its bytes and
	// the source address, or ErrTimeout.
	Recv(maxWait time.Duration) (b []byte, from string, err error)

	// Close releases the endpoint. Blocked Recv calls return afterwards.
	Close() error
}

// maxDatagram bounds a single received datagram.
const maxDatagram = 64 * 1024

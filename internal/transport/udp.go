package transport

import (
	"net"
	"time"

	"github.com/pkg/errors"
)

// UDPConn binds Conn to a real UDP socket. The same type serves both
// roles: a sender binds an ephemeral local port (addr ":0"), a server
// binds its listen address.
type UDPConn struct {
	conn *net.UDPConn
}

// Compile-time interface check.
var _ Conn = (*UDPConn)(nil)

// NewUDP opens a UDP socket bound to addr.
func NewUDP(addr string) (*UDPConn, error) {
	laddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %s", addr)
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, errors.Wrapf(err, "bind %s", addr)
	}
	return &UDPConn{conn: conn}, nil
}

// LocalAddr reports the bound address, useful when addr was ":0".
func (c *UDPConn) LocalAddr() string {
	return c.conn.LocalAddr().String()
}

// Send transmits one datagram to the given "host:port" destination.
func (c *UDPConn) Send(b []byte, to string) error {
	dst, err := net.ResolveUDPAddr("udp", to)
	if err != nil {
		return errors.Wrapf(err, "resolve %s", to)
	}
	if _, err := c.conn.WriteToUDP(b, dst); err != nil {
		return errors.Wrapf(err, "send to %s", to)
	}
	return nil
}

// Recv waits up to maxWait for one datagram.
func (c *UDPConn) Recv(maxWait time.Duration) ([]byte, string, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(maxWait)); err != nil {
		return nil, "", errors.Wrap(err, "set read deadline")
	}
	buf := make([]byte, maxDatagram)
	n, addr, err := c.conn.ReadFromUDP(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, "", ErrTimeout
		}
		return nil, "", errors.Wrap(err, "udp receive")
	}
	return buf[:n], addr.String(), nil
}

// Close releases the socket.
func (c *UDPConn) Close() error {
	return c.conn.Close()
}

package transport

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/1ureka/rudp/internal/util"
)

// WSConn binds Conn to WebSocket channels, for environments where a raw
// UDP socket is unavailable. Each WebSocket message carries exactly one
// datagram, so framing is preserved and the engines run unchanged.
//
// A server endpoint (ListenWS) accepts any number of peers and fans their
// messages into one inbox; a client endpoint (DialWS) holds a single
// connection to the server.
type WSConn struct {
	inbox chan wsDatagram

	mu    sync.Mutex
	peers map[string]*websocket.Conn

	srv       *http.Server
	done      chan struct{}
	closeOnce sync.Once
}

type wsDatagram struct {
	data []byte
	from string
}

var _ Conn = (*WSConn)(nil)

// inboxSize bounds buffered inbound datagrams per endpoint.
const inboxSize = 256

var upgrader = websocket.Upgrader{
	// The demo server accepts connections from any origin.
	CheckOrigin: func(*http.Request) bool { return true },
}

// ListenWS starts a WebSocket server endpoint on addr, upgrading requests
// on every path.
func ListenWS(addr string) (*WSConn, error) {
	c := newWSConn()

	mux := http.NewServeMux()
	mux.HandleFunc("/", c.handleUpgrade)
	c.srv = &http.Server{Addr: addr, Handler: mux}

	ln := make(chan error, 1)
	go func() { ln <- c.srv.ListenAndServe() }()

	// Surface an immediate bind failure; otherwise assume the server is up.
	select {
	case err := <-ln:
		return nil, errors.Wrapf(err, "ws listen %s", addr)
	case <-time.After(100 * time.Millisecond):
	}
	return c, nil
}

// DialWS connects a client endpoint to a WebSocket server URL
// (e.g. ws://127.0.0.1:5000/).
func DialWS(url string) (*WSConn, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "ws dial %s", url)
	}
	c := newWSConn()
	c.addPeer(url, conn)
	return c, nil
}

func newWSConn() *WSConn {
	return &WSConn{
		inbox: make(chan wsDatagram, inboxSize),
		peers: make(map[string]*websocket.Conn),
		done:  make(chan struct{}),
	}
}

func (c *WSConn) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		util.LogWarning("ws upgrade from %s failed: %v", r.RemoteAddr, err)
		return
	}
	c.addPeer(r.RemoteAddr, conn)
}

// addPeer registers a connection under the given address and starts its
// read pump.
func (c *WSConn) addPeer(addr string, conn *websocket.Conn) {
	c.mu.Lock()
	c.peers[addr] = conn
	c.mu.Unlock()

	go func() {
		defer func() {
			c.mu.Lock()
			delete(c.peers, addr)
			c.mu.Unlock()
			conn.Close()
		}()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			select {
			case c.inbox <- wsDatagram{data: data, from: addr}:
			case <-c.done:
				return
			default:
				util.LogDebug("ws inbox full, dropping datagram from %s", addr)
			}
		}
	}()
}

// Send transmits one datagram to the named peer. A client endpoint has a
// single peer, so any unknown destination falls back to it.
func (c *WSConn) Send(b []byte, to string) error {
	c.mu.Lock()
	conn, ok := c.peers[to]
	if !ok && len(c.peers) == 1 {
		for _, only := range c.peers {
			conn, ok = only, true
		}
	}
	c.mu.Unlock()

	if !ok {
		return errors.Errorf("no ws peer %s", to)
	}

	// gorilla/websocket allows one concurrent writer per connection.
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := conn.WriteMessage(websocket.BinaryMessage, b); err != nil {
		return errors.Wrapf(err, "ws send to %s", to)
	}
	return nil
}

// Recv waits up to maxWait for one datagram.
func (c *WSConn) Recv(maxWait time.Duration) ([]byte, string, error) {
	t := time.NewTimer(maxWait)
	defer t.Stop()
	select {
	case d := <-c.inbox:
		return d.data, d.from, nil
	case <-t.C:
		return nil, "", ErrTimeout
	case <-c.done:
		return nil, "", ErrClosed
	}
}

// Close shuts down the endpoint and every peer connection.
func (c *WSConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.mu.Lock()
		for _, conn := range c.peers {
			conn.Close()
		}
		c.mu.Unlock()
		if c.srv != nil {
			c.srv.Close()
		}
	})
	return nil
}

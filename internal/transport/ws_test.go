package transport

import (
	"fmt"
	"net"
	"testing"
	"time"
)

// freePort reserves and releases a loopback TCP port for the ws server.
func freePort(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("freePort: %v", err)
	}
	addr := l.Addr().String()
	l.Close()
	return addr
}

// TestWSRoundTrip exercises the WebSocket binding: a client dials the
// server, sends a datagram, and the server replies to the observed
// source address.
func TestWSRoundTrip(t *testing.T) {
	addr := freePort(t)

	server, err := ListenWS(addr)
	if err != nil {
		t.Fatalf("ListenWS: %v", err)
	}
	defer server.Close()

	client, err := DialWS(fmt.Sprintf("ws://%s/", addr))
	if err != nil {
		t.Fatalf("DialWS: %v", err)
	}
	defer client.Close()

	if err := client.Send([]byte("hello"), ""); err != nil {
		t.Fatalf("client Send failed: %v", err)
	}

	data, from, err := server.Recv(2 * time.Second)
	if err != nil {
		t.Fatalf("server Recv failed: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("got %q, want %q", data, "hello")
	}

	if err := server.Send([]byte("world"), from); err != nil {
		t.Fatalf("server Send failed: %v", err)
	}
	data, _, err = client.Recv(2 * time.Second)
	if err != nil {
		t.Fatalf("client Recv failed: %v", err)
	}
	if string(data) != "world" {
		t.Errorf("got %q, want %q", data, "world")
	}
}

// TestWSPreservesFraming verifies each message arrives as one datagram of
// the original length.
func TestWSPreservesFraming(t *testing.T) {
	addr := freePort(t)

	server, err := ListenWS(addr)
	if err != nil {
		t.Fatalf("ListenWS: %v", err)
	}
	defer server.Close()

	client, err := DialWS(fmt.Sprintf("ws://%s/", addr))
	if err != nil {
		t.Fatalf("DialWS: %v", err)
	}
	defer client.Close()

	sizes := []int{1, 5, 1024, 16 * 1024}
	for _, n := range sizes {
		payload := make([]byte, n)
		if err := client.Send(payload, ""); err != nil {
			t.Fatalf("Send %d bytes: %v", n, err)
		}
	}
	for _, n := range sizes {
		data, _, err := server.Recv(2 * time.Second)
		if err != nil {
			t.Fatalf("Recv: %v", err)
		}
		if len(data) != n {
			t.Fatalf("datagram length = %d, want %d (framing lost)", len(data), n)
		}
	}
}

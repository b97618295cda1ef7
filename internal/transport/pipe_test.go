package transport

import (
	"fmt"
	"testing"
	"time"

	"github.com/pkg/errors"
)

// TestPipeDelivery verifies basic bidirectional delivery with source
// addressing.
func TestPipeDelivery(t *testing.T) {
	a, b := Pipe()
	defer a.Close()
	defer b.Close()

	if err := a.Send([]byte("ping"), b.Addr()); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	data, from, err := b.Recv(time.Second)
	if err != nil {
		t.Fatalf("Recv failed: %v", err)
	}
	if string(data) != "ping" {
		t.Errorf("got %q, want %q", data, "ping")
	}
	if from != a.Addr() {
		t.Errorf("source = %q, want %q", from, a.Addr())
	}

	if err := b.Send([]byte("pong"), from); err != nil {
		t.Fatalf("reply Send failed: %v", err)
	}
	data, _, err = a.Recv(time.Second)
	if err != nil {
		t.Fatalf("reply Recv failed: %v", err)
	}
	if string(data) != "pong" {
		t.Errorf("got %q, want %q", data, "pong")
	}
}

// TestPipePreservesOrder verifies the queue introduces no reordering.
func TestPipePreservesOrder(t *testing.T) {
	a, b := Pipe()
	defer a.Close()
	defer b.Close()

	const n = 100
	for i := 0; i < n; i++ {
		if err := a.Send([]byte(fmt.Sprintf("%03d", i)), ""); err != nil {
			t.Fatalf("Send %d failed: %v", i, err)
		}
	}
	for i := 0; i < n; i++ {
		data, _, err := b.Recv(time.Second)
		if err != nil {
			t.Fatalf("Recv %d failed: %v", i, err)
		}
		if want := fmt.Sprintf("%03d", i); string(data) != want {
			t.Fatalf("datagram %d = %q, want %q (reordered)", i, data, want)
		}
	}
}

// TestPipeTimeout verifies Recv returns ErrTimeout on an idle channel.
func TestPipeTimeout(t *testing.T) {
	a, b := Pipe()
	defer a.Close()
	defer b.Close()

	start := time.Now()
	_, _, err := b.Recv(50 * time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Recv waited far longer than maxWait")
	}
}

// TestPipeClose verifies a closed pair rejects sends and wakes receivers.
func TestPipeClose(t *testing.T) {
	a, b := Pipe()
	a.Close()
	a.Close() // idempotent

	if err := a.Send([]byte("x"), ""); !errors.Is(err, ErrClosed) {
		t.Errorf("Send on closed end: got %v, want ErrClosed", err)
	}
	if err := b.Send([]byte("x"), ""); !errors.Is(err, ErrClosed) {
		t.Errorf("Send to closed peer: got %v, want ErrClosed", err)
	}
	if _, _, err := a.Recv(time.Second); !errors.Is(err, ErrClosed) {
		t.Errorf("Recv on closed end: got %v, want ErrClosed", err)
	}
}

// TestPipeCopiesPayload verifies the sender's buffer can be reused after
// Send returns.
func TestPipeCopiesPayload(t *testing.T) {
	a, b := Pipe()
	defer a.Close()
	defer b.Close()

	buf := []byte("original")
	if err := a.Send(buf, ""); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	copy(buf, "clobber!")

	data, _, err := b.Recv(time.Second)
	if err != nil {
		t.Fatalf("Recv failed: %v", err)
	}
	if string(data) != "original" {
		t.Errorf("payload aliased to sender buffer: got %q", data)
	}
}

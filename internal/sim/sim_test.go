package sim

import (
	"context"
	"testing"
	"time"

	"github.com/1ureka/rudp/internal/config"
)

// cleanChannel returns a demo configuration with impairment disabled so
// the round trip is deterministic.
func cleanChannel(message string) config.Config {
	cfg := config.Default()
	cfg.Message = message
	cfg.Loss = 0
	cfg.Corruption = 0
	cfg.DelayMin = 0
	cfg.DelayMax = 0
	cfg.Timeout = 500 * time.Millisecond
	return cfg
}

// TestRunRoundTrip verifies the dual-role demo delivers the message
// intact across the in-memory channel.
func TestRunRoundTrip(t *testing.T) {
	testCases := []struct {
		name    string
		message string
	}{
		{"single chunk", "HELLO"},
		{"multi chunk", "Hello, RUDP! This is a test."},
		{"chunk-size boundary", "ABCDE"},
		{"short tail", "ABCDEF"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if err := Run(context.Background(), cleanChannel(tc.message)); err != nil {
				t.Fatalf("Run failed: %v", err)
			}
		})
	}
}

// TestRunSeededImpairment verifies the demo still completes under a
// seeded lossy channel: the ARQ loop absorbs the injected drops. The
// seed fixes the decision sequence, and a generous attempt budget keeps
// the outcome deterministic enough to assert success.
func TestRunSeededImpairment(t *testing.T) {
	cfg := cleanChannel("Hello, RUDP! This is a test.")
	cfg.Loss = 0.2
	cfg.Corruption = 0.1
	cfg.Timeout = 200 * time.Millisecond
	cfg.MaxAttempts = 30
	cfg.Seed = 7

	if err := Run(context.Background(), cfg); err != nil {
		t.Fatalf("Run failed under seeded impairment: %v", err)
	}
}

// TestRunRespectsCancellation verifies the demo aborts promptly when the
// context is cancelled.
func TestRunRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := cleanChannel("HELLO")
	done := make(chan error, 1)
	go func() { done <- Run(ctx, cfg) }()

	select {
	case err := <-done:
		if err == nil {
			t.Error("expected an error from a cancelled demo")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

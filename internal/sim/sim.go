// Package sim runs both protocol roles in one process: the sender and
// receiver engines execute as two goroutines joined by an in-memory pipe
// pair, each injecting its own impairment, exactly as the two-process
// deployment would. Termination is context-driven, not timed.
package sim

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/pkg/errors"

	"github.com/1ureka/rudp/internal/config"
	"github.com/1ureka/rudp/internal/impair"
	"github.com/1ureka/rudp/internal/receiver"
	"github.com/1ureka/rudp/internal/sender"
	"github.com/1ureka/rudp/internal/transport"
	"github.com/1ureka/rudp/internal/util"
)

// Run transmits cfg.Message across an impaired in-memory channel and
// verifies the receiver assembled it intact.
func Run(ctx context.Context, cfg config.Config) error {
	sendEnd, recvEnd := transport.Pipe()
	defer sendEnd.Close()
	defer recvEnd.Close()

	rcv := receiver.New(recvEnd, model(cfg, 1), receiver.Config{
		PollInterval: 50 * time.Millisecond,
		IdleTTL:      cfg.IdleTTL,
	})

	rctx, stop := context.WithCancel(ctx)
	defer stop()

	served := make(chan error, 1)
	go func() { served <- rcv.Serve(rctx) }()

	snd := sender.New(sendEnd, model(cfg, 2), sender.Config{
		Timeout:     cfg.Timeout,
		MaxAttempts: cfg.MaxAttempts,
		ChunkSize:   cfg.ChunkSize,
	})
	sendErr := snd.SendMessage(ctx, recvEnd.Addr(), cfg.Message)

	stop()
	if err := <-served; err != nil {
		util.LogWarning("receiver exited with error: %v", err)
	}

	got, _ := rcv.Assembled(sendEnd.Addr())
	util.LogInfo("sent message:     %q", cfg.Message)
	util.LogInfo("received message: %q", got)

	if sendErr != nil {
		return errors.Wrap(sendErr, "transmission failed")
	}
	if got != cfg.Message {
		return errors.New("received message does not match the original")
	}
	util.LogInfo("transmission successful")
	return nil
}

// model builds one direction's impairment model. Each role gets its own
// RNG stream; with a fixed cfg.Seed the whole demo replays
// deterministically.
func model(cfg config.Config, role uint64) *impair.Model {
	var src rand.Source
	if cfg.Seed != 0 {
		src = rand.NewPCG(cfg.Seed, role)
	}
	return impair.New(cfg.Loss, cfg.Corruption, cfg.DelayMin, cfg.DelayMax, src)
}

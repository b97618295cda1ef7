// Package sender implements the stop-and-wait ARQ half of the protocol:
// one chunk outstanding at a time, retransmitted on timeout until
// acknowledged or the attempt budget runs out.
package sender

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/1ureka/rudp/internal/impair"
	"github.com/1ureka/rudp/internal/protocol"
	"github.com/1ureka/rudp/internal/transport"
	"github.com/1ureka/rudp/internal/util"
)

// probePayload marks the unsequenced reachability probe and its reply.
// Probe traffic bypasses impairment and sequencing on both sides. The
// marker is in-band: a data chunk whose payload is exactly "PING" is
// indistinguishable from a probe and gets "PONG" instead of an ACK, so a
// message that chunks to that payload cannot be delivered.
const probePayload = "PING"

// Config tunes one Engine.
type Config struct {
	Timeout     time.Duration // ACK wait per attempt
	MaxAttempts int           // consumed attempts per chunk before giving up
	ChunkSize   int           // bytes per chunk
}

// Engine drives messages through the ARQ loop. It owns the outbound half
// of one session: a monotonically increasing sequence number that advances
// only when the current chunk is acknowledged.
//
// An Engine is not safe for concurrent use — stop-and-wait means there is
// exactly one outstanding packet, so there is exactly one caller.
type Engine struct {
	conn transport.Conn
	net  *impair.Model
	cfg  Config

	next uint64 // sequence of the next unsent chunk
}

// New creates an Engine sending through conn with net injected as the
// simulated network. Zero config fields fall back to workable defaults.
func New(conn transport.Conn, net *impair.Model, cfg Config) *Engine {
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Second
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 3
	}
	if cfg.ChunkSize < 1 {
		cfg.ChunkSize = 5
	}
	if net == nil {
		net = impair.None()
	}
	return &Engine{conn: conn, net: net, cfg: cfg}
}

// NextSequence reports the sequence number the next chunk will carry.
func (e *Engine) NextSequence() uint64 {
	return e.next
}

// Ping checks that peer answers at all before the ARQ loop starts. The
// probe is a plain data packet outside the sequenced stream; any reply
// within the timeout counts.
func (e *Engine) Ping(ctx context.Context, peer string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := protocol.Encode(protocol.NewData(0, probePayload))
	if err != nil {
		return err
	}
	if err := e.conn.Send(b, peer); err != nil {
		return errors.Wrapf(err, "probe %s", peer)
	}
	if _, _, err := e.conn.Recv(e.cfg.Timeout); err != nil {
		return errors.Wrapf(err, "no reply from %s", peer)
	}
	return nil
}

// SendMessage splits message into fixed-size chunks and transmits them in
// order, each one fully acknowledged before the next is attempted. It
// returns nil only if every chunk reached the peer; the first exhausted
// chunk aborts the whole message.
func (e *Engine) SendMessage(ctx context.Context, peer, message string) error {
	util.LogInfo("sending %d bytes to %s", len(message), peer)

	if err := e.Ping(ctx, peer); err != nil {
		return errors.Wrap(err, "server unreachable")
	}
	util.LogInfo("peer is reachable, starting transmission")

	chunks := split(message, e.cfg.ChunkSize)
	start := time.Now()

	for i, chunk := range chunks {
		if err := e.sendChunk(ctx, peer, chunk); err != nil {
			return errors.Wrapf(err, "chunk %d of %d", i+1, len(chunks))
		}
	}

	util.LogInfo("message sent successfully in %v (%d chunks)",
		time.Since(start).Round(time.Millisecond), len(chunks))
	return nil
}

// sendChunk runs the per-chunk state machine: transmit, wait, classify,
// retry or advance. Every attempt constructs a fresh packet with the same
// sequence and payload. The sequence advances only on a matching ACK.
func (e *Engine) sendChunk(ctx context.Context, peer, chunk string) error {
	seq := e.next

	for attempt := 0; attempt < e.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		retransmit := attempt > 0
		pkt := protocol.NewData(seq, chunk)

		// Simulated loss: the datagram never leaves, so there is nothing to
		// wait for. Back off half a timeout before the next attempt.
		if e.net.Drop() {
			util.VizSent("SENDER", pkt, retransmit)
			util.VizDropped(pkt)
			util.Stats.AddDropped()
			if !sleep(ctx, e.cfg.Timeout/2) {
				return ctx.Err()
			}
			continue
		}

		// In-flight delay.
		if !sleep(ctx, e.net.Delay()) {
			return ctx.Err()
		}

		// Simulated corruption: the packet still goes out, but with a
		// scrambled checksum it cannot complete an acknowledgment cycle, so
		// the attempt is consumed without waiting the full timeout.
		if e.net.Corrupt() {
			e.net.Scramble(pkt)
			util.VizSent("SENDER", pkt, retransmit)
			util.Stats.AddCorrupted()
			if err := e.transmit(pkt, peer); err != nil {
				util.LogWarning("send failed: %v", err)
			}
			if !sleep(ctx, e.cfg.Timeout/2) {
				return ctx.Err()
			}
			continue
		}

		util.VizSent("SENDER", pkt, retransmit)
		if err := e.transmit(pkt, peer); err != nil {
			// Transport fault: consumed attempt, retried like a timeout.
			util.LogWarning("send failed: %v", err)
			if !sleep(ctx, e.cfg.Timeout/2) {
				return ctx.Err()
			}
			continue
		}
		util.Stats.AddData()
		if retransmit {
			util.Stats.AddRetransmit()
		}

		if e.awaitAck(ctx, seq) {
			e.next++
			return nil
		}
	}

	return errors.Errorf("gave up on sequence %d after %d attempts", seq, e.cfg.MaxAttempts)
}

// awaitAck blocks up to the configured timeout for an acknowledgment of
// seq. Undecodable replies, non-ACKs, and ACKs for other sequence numbers
// are non-matches: they consume the attempt without advancing, guarding
// against stale ACKs from earlier, already-abandoned attempts.
func (e *Engine) awaitAck(ctx context.Context, seq uint64) bool {
	raw, _, err := e.conn.Recv(e.cfg.Timeout)
	if err != nil {
		if errors.Is(err, transport.ErrTimeout) {
			util.VizTimeout("SENDER", seq)
		} else if ctx.Err() == nil {
			util.LogWarning("receive failed: %v", err)
		}
		return false
	}

	ack, err := protocol.Decode(raw)
	if err != nil {
		util.LogDebug("undecodable reply while waiting for ACK %d", seq)
		return false
	}

	// Simulated loss on the return path: the reply was sent but never
	// arrives, consuming the attempt like a timeout.
	if e.net.Drop() {
		util.VizDropped(ack)
		util.Stats.AddDropped()
		return false
	}
	util.VizReceived("SENDER", ack)

	if ack.IsAck && ack.AckNumber == seq {
		return true
	}
	util.LogInfo("unexpected ACK %d, expected %d", ack.AckNumber, seq)
	return false
}

// transmit encodes and sends one packet.
func (e *Engine) transmit(pkt *protocol.Packet, peer string) error {
	b, err := protocol.Encode(pkt)
	if err != nil {
		return err
	}
	return e.conn.Send(b, peer)
}

// split cuts message into pieces of at most size bytes, never breaking a
// UTF-8 sequence: a payload that straddled a rune would not survive JSON
// encoding intact. A rune wider than size becomes its own chunk.
func split(message string, size int) []string {
	chunks := make([]string, 0, (len(message)+size-1)/size)
	start := 0
	for i := 0; i < len(message); {
		_, w := utf8.DecodeRuneInString(message[i:])
		if i > start && i-start+w > size {
			chunks = append(chunks, message[start:i])
			start = i
		}
		i += w
	}
	if start < len(message) {
		chunks = append(chunks, message[start:])
	}
	return chunks
}

// sleep waits d or until ctx is cancelled, reporting whether the full
// wait elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

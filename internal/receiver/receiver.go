// Package receiver implements the accepting half of the protocol: it
// verifies inbound packets, tracks the expected sequence per peer, emits
// acknowledgments, and assembles delivered chunks in order.
package receiver

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/1ureka/rudp/internal/impair"
	"github.com/1ureka/rudp/internal/protocol"
	"github.com/1ureka/rudp/internal/transport"
	"github.com/1ureka/rudp/internal/util"
)

// Probe payloads, answered before impairment or sequencing.
const (
	probePayload = "PING"
	probeReply   = "PONG"
)

// Config tunes one Engine.
type Config struct {
	PollInterval time.Duration // bounded wait per accept-loop tick
	Duration     time.Duration // optional run bound, 0 = until ctx is done
	IdleTTL      time.Duration // evict peer state idle longer than this, 0 = never
}

// peerState is the per-peer session record, created on first contact.
type peerState struct {
	expected uint64
	chunks   []string
	lastSeen time.Time
}

func (st *peerState) assembled() string {
	return strings.Join(st.chunks, "")
}

// Engine consumes datagrams from a transport endpoint and maintains one
// independent session per peer address. The peer map is the only state
// shared across goroutines (Serve mutates it, Assembled and friends read
// it) and is guarded by a mutex; peers never block on each other.
type Engine struct {
	conn transport.Conn
	net  *impair.Model
	cfg  Config

	mu    sync.Mutex
	peers map[string]*peerState
}

// New creates an Engine receiving from conn with net injected as the
// simulated network for both inbound packets and outbound ACKs.
func New(conn transport.Conn, net *impair.Model, cfg Config) *Engine {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 100 * time.Millisecond
	}
	if net == nil {
		net = impair.None()
	}
	return &Engine{
		conn:  conn,
		net:   net,
		cfg:   cfg,
		peers: make(map[string]*peerState),
	}
}

// Serve loops on the transport until ctx is cancelled, the optional run
// bound elapses, or the transport becomes unusable. Each tick waits at
// most PollInterval so the stop signal is observed promptly. On exit the
// assembled message of every peer is logged; no in-flight chunk is
// force-completed.
func (e *Engine) Serve(ctx context.Context) error {
	util.LogInfo("receiver started")
	start := time.Now()

	for {
		select {
		case <-ctx.Done():
			e.logSummary()
			return nil
		default:
		}
		if e.cfg.Duration > 0 && time.Since(start) > e.cfg.Duration {
			util.LogInfo("receiver stopping after %v", e.cfg.Duration)
			e.logSummary()
			return nil
		}

		raw, from, err := e.conn.Recv(e.cfg.PollInterval)
		if err != nil {
			if errors.Is(err, transport.ErrTimeout) {
				e.evictIdle()
				continue
			}
			if ctx.Err() != nil {
				e.logSummary()
				return nil
			}
			e.logSummary()
			return errors.Wrap(err, "transport receive")
		}

		e.handle(raw, from)
	}
}

// handle processes one inbound datagram end to end:
// decode → probe check → inbound impairment → verify → sequence policy.
func (e *Engine) handle(raw []byte, from string) {
	pkt, err := protocol.Decode(raw)
	if err != nil {
		// Indistinguishable on the wire from a network drop.
		util.LogDebug("malformed datagram from %s, discarding", from)
		return
	}

	// Reachability probe: answered immediately, outside the reliable
	// stream, unimpaired.
	if !pkt.IsAck && pkt.Data == probePayload {
		util.LogInfo("ping from %s", from)
		e.reply(protocol.NewData(0, probeReply), from)
		return
	}

	// Inbound impairment: a dropped packet never arrived, a corrupted one
	// arrives with a scrambled checksum and dies at verification.
	if e.net.Drop() {
		util.VizDropped(pkt)
		util.Stats.AddDropped()
		return
	}
	time.Sleep(e.net.Delay())
	if e.net.Corrupt() {
		e.net.Scramble(pkt)
		util.VizCorrupted("RECEIVER", pkt)
		util.Stats.AddCorrupted()
		return
	}

	util.VizReceived("RECEIVER", pkt)

	if !pkt.Verify() {
		// Corruption without loss: no reply, the sender sees a timeout.
		util.VizCorrupted("RECEIVER", pkt)
		util.Stats.AddCorrupted()
		return
	}

	if pkt.IsAck {
		// Stray ACKs carry no meaning on this side of the session.
		util.LogDebug("stray ACK %d from %s, ignoring", pkt.AckNumber, from)
		return
	}

	if ackSeq, ok := e.accept(pkt, from); ok {
		e.sendAck(ackSeq, from)
	}
}

// accept applies the sequence policy under the peer map lock, reporting
// whether an acknowledgment should be emitted and for which number.
func (e *Engine) accept(pkt *protocol.Packet, from string) (uint64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.peers[from]
	if !ok {
		st = &peerState{}
		e.peers[from] = st
		util.LogInfo("new peer: %s", from)
	}
	st.lastSeen = time.Now()

	switch {
	case pkt.Sequence == st.expected:
		st.chunks = append(st.chunks, pkt.Data)
		st.expected++
		return pkt.Sequence, true

	case pkt.Sequence < st.expected:
		// Duplicate of an accepted chunk — its ACK was likely lost.
		// Re-acknowledge, never re-append.
		util.LogInfo("duplicate SEQ %d from %s (expected %d)", pkt.Sequence, from, st.expected)
		return pkt.Sequence, true

	default:
		// Future packet: stop-and-wait senders never legitimately produce
		// one. Discard unacknowledged and let the sender time out.
		util.LogInfo("out-of-order SEQ %d from %s (expected %d), discarding",
			pkt.Sequence, from, st.expected)
		return 0, false
	}
}

// sendAck emits an acknowledgment through the same impaired channel as
// data packets, independently sampled — an ACK can be lost even though
// the packet that triggered it arrived.
func (e *Engine) sendAck(seq uint64, to string) {
	ack := protocol.NewAck(seq)
	util.VizSent("RECEIVER", ack, false)

	if e.net.Drop() {
		util.VizDropped(ack)
		util.Stats.AddDropped()
		return
	}
	time.Sleep(e.net.Delay())

	e.reply(ack, to)
	util.Stats.AddAck()
}

// reply encodes and sends one packet, logging failures instead of
// surfacing them — on this side every send is best-effort.
func (e *Engine) reply(pkt *protocol.Packet, to string) {
	b, err := protocol.Encode(pkt)
	if err != nil {
		util.LogWarning("encode reply: %v", err)
		return
	}
	if err := e.conn.Send(b, to); err != nil {
		util.LogWarning("send to %s failed: %v", to, err)
	}
}

// evictIdle removes peer state that has been quiet longer than IdleTTL.
// Piggybacked on the accept-loop tick so the map stays bounded without a
// separate sweeper.
func (e *Engine) evictIdle() {
	if e.cfg.IdleTTL <= 0 {
		return
	}
	cutoff := time.Now().Add(-e.cfg.IdleTTL)

	e.mu.Lock()
	defer e.mu.Unlock()
	for addr, st := range e.peers {
		if st.lastSeen.Before(cutoff) {
			delete(e.peers, addr)
			util.LogDebug("evicted idle peer %s", addr)
		}
	}
}

// Assembled returns the in-order concatenation of the chunks accepted
// from peer so far.
func (e *Engine) Assembled(peer string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.peers[peer]
	if !ok {
		return "", false
	}
	return st.assembled(), true
}

// Expected returns the sequence number peer's next in-order packet must
// carry.
func (e *Engine) Expected(peer string) (uint64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.peers[peer]
	if !ok {
		return 0, false
	}
	return st.expected, true
}

// Peers lists the addresses with live session state.
func (e *Engine) Peers() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	addrs := make([]string, 0, len(e.peers))
	for addr := range e.peers {
		addrs = append(addrs, addr)
	}
	return addrs
}

// logSummary reports what each peer delivered, assembled in order.
func (e *Engine) logSummary() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.peers) == 0 {
		util.LogInfo("no peers connected during this session")
		return
	}
	for addr, st := range e.peers {
		if len(st.chunks) == 0 {
			continue
		}
		util.LogInfo("assembled message from %s: %q", addr, st.assembled())
	}
}

// Package impair models an unreliable network: independent probabilistic
// decisions to drop, corrupt, or delay a packet in flight. The engines
// apply a Model at channel-send time; the transports themselves never
// lose, reorder, or damage anything.
package impair

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/1ureka/rudp/internal/protocol"
)

// Model holds the impairment parameters. Decisions are applied in the
// order drop, delay, corrupt: a dropped packet never pays delay or
// corruption cost, a corrupted one was already in flight.
type Model struct {
	Loss       float64 // drop probability, 0..1
	Corruption float64 // corruption probability, 0..1
	DelayMin   time.Duration
	DelayMax   time.Duration

	mu  sync.Mutex // rand.Rand is not safe for concurrent use
	rng *rand.Rand
}

// New creates a Model. Passing a non-nil source makes every decision
// sequence replayable, which the tests rely on; a nil source seeds from
// the wall clock.
func New(loss, corruption float64, delayMin, delayMax time.Duration, src rand.Source) *Model {
	if src == nil {
		n := uint64(time.Now().UnixNano())
		src = rand.NewPCG(n, n>>32)
	}
	return &Model{
		Loss:       loss,
		Corruption: corruption,
		DelayMin:   delayMin,
		DelayMax:   delayMax,
		rng:        rand.New(src),
	}
}

// None returns a pass-through model: no loss, no corruption, no delay.
func None() *Model {
	return New(0, 0, 0, 0, nil)
}

// Drop runs one Bernoulli trial with the configured loss probability.
func (m *Model) Drop() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rng.Float64() < m.Loss
}

// Corrupt runs one Bernoulli trial with the configured corruption
// probability. It is meant to be evaluated only for packets that survived
// the drop trial.
func (m *Model) Corrupt() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rng.Float64() < m.Corruption
}

// Delay samples a uniform delay in [DelayMin, DelayMax].
func (m *Model) Delay() time.Duration {
	if m.DelayMax <= 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	span := m.DelayMax - m.DelayMin
	if span <= 0 {
		return m.DelayMin
	}
	return m.DelayMin + time.Duration(m.rng.Float64()*float64(span))
}

// Scramble overwrites the packet's checksum with a random value,
// realizing corruption. Verify is then guaranteed to fail for data
// packets while the payload itself stays cheap to leave untouched.
func (m *Model) Scramble(pkt *protocol.Packet) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pkt.Checksum = uint16(m.rng.IntN(protocol.ChecksumMod))
}

// Package protocol defines the wire format for the reliable-UDP demo
// protocol: a JSON envelope carrying either a data chunk or an
// acknowledgment, plus the additive checksum that protects data packets.
package protocol

import "time"

// ChecksumMod bounds the additive checksum to 16 bits.
const ChecksumMod = 65536

// Packet is one unit of transmission. Exactly one variant is active per
// instance: a data packet (Sequence, Data, Checksum) or an acknowledgment
// (AckNumber). IsAck discriminates; the inactive variant's fields stay at
// their zero values.
//
// Acknowledgments are not integrity-checked: Checksum is written as 0 and
// Verify accepts them unconditionally. The asymmetry is inherited from the
// protocol this reimplements and is kept on purpose.
type Packet struct {
	Sequence  uint64  `json:"sequence"`
	IsAck     bool    `json:"is_ack"`
	Checksum  uint16  `json:"checksum"`
	Timestamp float64 `json:"timestamp"`
	Data      string  `json:"data,omitempty"`
	AckNumber uint64  `json:"ack_number,omitempty"`
}

// NewData builds a data packet for one chunk. The checksum is computed at
// construction time; retransmissions build a fresh packet with the same
// sequence and payload.
func NewData(seq uint64, payload string) *Packet {
	return &Packet{
		Sequence:  seq,
		Checksum:  Checksum(payload),
		Timestamp: now(),
		Data:      payload,
	}
}

// NewAck builds an acknowledgment for the given sequence number.
func NewAck(ackNum uint64) *Packet {
	return &Packet{
		IsAck:     true,
		AckNumber: ackNum,
		Timestamp: now(),
	}
}

// Checksum sums the byte values of payload modulo 65536.
func Checksum(payload string) uint16 {
	var sum int
	for i := 0; i < len(payload); i++ {
		sum += int(payload[i])
	}
	return uint16(sum % ChecksumMod)
}

// Verify recomputes the checksum of a data packet and compares it to the
// stored one. Acknowledgments always verify.
func (p *Packet) Verify() bool {
	if p.IsAck {
		return true
	}
	return Checksum(p.Data) == p.Checksum
}

// now returns the wall clock as fractional seconds since the Unix epoch.
func now() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

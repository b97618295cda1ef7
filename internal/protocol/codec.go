package protocol

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// ErrMalformedPacket marks bytes that do not parse as a packet envelope.
// Callers must treat it like corruption — discard without reply — not as a
// protocol error to propagate.
var ErrMalformedPacket = errors.New("malformed packet")

// Encode serializes a packet for transmission.
func Encode(pkt *Packet) ([]byte, error) {
	b, err := json.Marshal(pkt)
	if err != nil {
		return nil, errors.Wrap(err, "encode packet")
	}
	return b, nil
}

// Decode parses a packet envelope. Fields missing from the input decode to
// their zero values; structurally unparseable input fails with
// ErrMalformedPacket.
func Decode(data []byte) (*Packet, error) {
	var pkt Packet
	if err := json.Unmarshal(data, &pkt); err != nil {
		return nil, errors.Wrapf(ErrMalformedPacket, "%d bytes", len(data))
	}
	return &pkt, nil
}

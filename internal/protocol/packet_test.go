package protocol

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
)

// TestEncodeDecodeRoundTrip verifies that encoding and decoding are
// inverse operations for both packet variants: sequence, payload, and
// checksum must survive exactly, and Verify must agree before and after.
func TestEncodeDecodeRoundTrip(t *testing.T) {
	testCases := []struct {
		name string
		pkt  *Packet
	}{
		{"data with small payload", NewData(0, "HELLO")},
		{"data with empty payload", NewData(7, "")},
		{"data with control bytes", NewData(42, "\x00\x01\x02\n\t")},
		{"data with large payload", NewData(3, strings.Repeat("x", 16*1024))},
		{"ack for sequence zero", NewAck(0)},
		{"ack for large sequence", NewAck(1<<40 + 5)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			encoded, err := Encode(tc.pkt)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}

			decoded, err := Decode(encoded)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}

			if decoded.Sequence != tc.pkt.Sequence {
				t.Errorf("Sequence mismatch: got %d, want %d", decoded.Sequence, tc.pkt.Sequence)
			}
			if decoded.IsAck != tc.pkt.IsAck {
				t.Errorf("IsAck mismatch: got %t, want %t", decoded.IsAck, tc.pkt.IsAck)
			}
			if decoded.Data != tc.pkt.Data {
				t.Errorf("Data mismatch: got %q, want %q", decoded.Data, tc.pkt.Data)
			}
			if decoded.Checksum != tc.pkt.Checksum {
				t.Errorf("Checksum mismatch: got %d, want %d", decoded.Checksum, tc.pkt.Checksum)
			}
			if decoded.AckNumber != tc.pkt.AckNumber {
				t.Errorf("AckNumber mismatch: got %d, want %d", decoded.AckNumber, tc.pkt.AckNumber)
			}
			if decoded.Verify() != tc.pkt.Verify() {
				t.Errorf("Verify disagrees after round trip")
			}
		})
	}
}

// TestDecodeMalformed verifies that structurally unparseable bytes fail
// with ErrMalformedPacket rather than anything callers would propagate.
func TestDecodeMalformed(t *testing.T) {
	testCases := []struct {
		name string
		data []byte
	}{
		{"empty", []byte{}},
		{"not json", []byte("garbage")},
		{"truncated json", []byte(`{"sequence": 3, "da`)},
		{"wrong field type", []byte(`{"sequence": "three"}`)},
		{"binary noise", []byte{0xff, 0x00, 0xde, 0xad}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(tc.data)
			if err == nil {
				t.Fatal("expected error for malformed input, got nil")
			}
			if !errors.Is(err, ErrMalformedPacket) {
				t.Errorf("expected ErrMalformedPacket, got %v", err)
			}
		})
	}
}

// TestDecodeDefaultsMissingFields verifies the tolerant decode contract:
// fields absent from the envelope come back as zero values, not errors.
func TestDecodeDefaultsMissingFields(t *testing.T) {
	pkt, err := Decode([]byte(`{}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if pkt.Sequence != 0 || pkt.IsAck || pkt.Checksum != 0 || pkt.Data != "" || pkt.AckNumber != 0 {
		t.Errorf("missing fields did not default to zero values: %+v", pkt)
	}
}

func TestChecksum(t *testing.T) {
	testCases := []struct {
		name    string
		payload string
		want    uint16
	}{
		{"empty", "", 0},
		{"single byte", "A", 65},
		{"hello", "HELLO", 72 + 69 + 76 + 76 + 79},
		{"wraps at modulus", strings.Repeat("\xff", 257), uint16((257 * 255) % ChecksumMod)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Checksum(tc.payload); got != tc.want {
				t.Errorf("Checksum(%q) = %d, want %d", tc.payload, got, tc.want)
			}
		})
	}
}

// TestVerify covers both sides of the asymmetry: data packets fail on any
// checksum mismatch (even with an empty payload), acks always pass.
func TestVerify(t *testing.T) {
	t.Run("fresh data packet verifies", func(t *testing.T) {
		if !NewData(1, "abc").Verify() {
			t.Error("freshly constructed data packet should verify")
		}
	})

	t.Run("overwritten checksum fails", func(t *testing.T) {
		for _, payload := range []string{"abc", "", "HELLO"} {
			pkt := NewData(1, payload)
			pkt.Checksum++
			if pkt.Verify() {
				t.Errorf("payload %q: corrupted checksum should fail Verify", payload)
			}
		}
	})

	t.Run("ack verifies unconditionally", func(t *testing.T) {
		ack := NewAck(9)
		ack.Checksum = 12345 // acks are not integrity-checked
		if !ack.Verify() {
			t.Error("ack packet should always verify")
		}
	})
}

// TestAckHasNoDataFields ensures the inactive variant's fields stay empty
// rather than carrying stale leftovers.
func TestAckHasNoDataFields(t *testing.T) {
	ack := NewAck(4)
	if ack.Data != "" || ack.Checksum != 0 {
		t.Errorf("ack packet carries data-variant fields: %+v", ack)
	}

	data := NewData(4, "x")
	if data.IsAck || data.AckNumber != 0 {
		t.Errorf("data packet carries ack-variant fields: %+v", data)
	}
}

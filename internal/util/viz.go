package util

import (
	"time"

	"github.com/pterm/pterm"

	"github.com/1ureka/rudp/internal/protocol"
)

// Per-packet event lines, color-coded by direction and outcome, so a
// transfer can be followed live in the terminal:
//
//	green/cyan    outbound data / ACK
//	yellow/blue   inbound data / ACK
//	red           dropped packet or timeout
//	magenta       corrupted packet
//
// One line per event; sequence numbers make retransmissions traceable.

func vizClock() string {
	return time.Now().Format("15:04:05.000")
}

// VizSent logs an outgoing packet as seen by who ("SENDER"/"RECEIVER").
func VizSent(who string, pkt *protocol.Packet, retransmit bool) {
	suffix := ""
	if retransmit {
		suffix = " (RETRANSMIT)"
	}
	if pkt.IsAck {
		pterm.FgCyan.Printfln("%s %s → ACK %d%s", vizClock(), who, pkt.AckNumber, suffix)
	} else {
		pterm.FgGreen.Printfln("%s %s → SEQ %d [%q]%s", vizClock(), who, pkt.Sequence, pkt.Data, suffix)
	}
}

// VizReceived logs an incoming packet.
func VizReceived(who string, pkt *protocol.Packet) {
	if pkt.IsAck {
		pterm.FgBlue.Printfln("%s %s ← ACK %d", vizClock(), who, pkt.AckNumber)
	} else {
		pterm.FgYellow.Printfln("%s %s ← SEQ %d [%q]", vizClock(), who, pkt.Sequence, pkt.Data)
	}
}

// VizDropped logs a packet eaten by the impairment model.
func VizDropped(pkt *protocol.Packet) {
	if pkt.IsAck {
		pterm.FgRed.Printfln("%s ✗ DROPPED ACK %d", vizClock(), pkt.AckNumber)
	} else {
		pterm.FgRed.Printfln("%s ✗ DROPPED SEQ %d", vizClock(), pkt.Sequence)
	}
}

// VizCorrupted logs a packet whose checksum no longer matches.
func VizCorrupted(who string, pkt *protocol.Packet) {
	if pkt.IsAck {
		pterm.FgMagenta.Printfln("%s %s ← CORRUPTED ACK", vizClock(), who)
	} else {
		pterm.FgMagenta.Printfln("%s %s ← CORRUPTED SEQ %d", vizClock(), who, pkt.Sequence)
	}
}

// VizTimeout logs an expired ACK wait.
func VizTimeout(who string, seq uint64) {
	pterm.FgRed.Printfln("%s %s ! TIMEOUT SEQ %d", vizClock(), who, seq)
}

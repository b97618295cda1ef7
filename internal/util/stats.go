package util

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pterm/pterm"
)

// ──────────────────────────────────────────────────────────────────────────────
// Global stats singleton
// ──────────────────────────────────────────────────────────────────────────────

// Stats is the process-wide transfer counter.
var Stats = &stats{}

type stats struct {
	DataSent    atomic.Int64 // data packets handed to the transport
	Retransmits atomic.Int64 // data packets sent beyond the first attempt
	AcksSent    atomic.Int64 // acknowledgments handed to the transport
	Dropped     atomic.Int64 // packets eaten by the impairment model
	Corrupted   atomic.Int64 // packets discarded on checksum failure
}

func (s *stats) AddData()       { s.DataSent.Add(1) }
func (s *stats) AddRetransmit() { s.Retransmits.Add(1) }
func (s *stats) AddAck()        { s.AcksSent.Add(1) }
func (s *stats) AddDropped()    { s.Dropped.Add(1) }
func (s *stats) AddCorrupted()  { s.Corrupted.Add(1) }

// ──────────────────────────────────────────────────────────────────────────────
// Periodic reporter
// ──────────────────────────────────────────────────────────────────────────────

// StartStatsReporter launches a goroutine that logs transfer statistics
// every 10 seconds while there is activity. It stops when ctx is cancelled.
func StartStatsReporter(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()

		var prevData, prevRetx, prevAcks, prevDrop, prevCorr int64
		for {
			select {
			case <-ticker.C:
				data := Stats.DataSent.Load()
				retx := Stats.Retransmits.Load()
				acks := Stats.AcksSent.Load()
				drop := Stats.Dropped.Load()
				corr := Stats.Corrupted.Load()

				if data != prevData || retx != prevRetx || acks != prevAcks ||
					drop != prevDrop || corr != prevCorr {
					pterm.DefaultLogger.Info(fmt.Sprintf(
						"Data: %d (+%d retx) | ACKs: %d | Dropped: %d | Corrupted: %d",
						data, retx, acks, drop, corr))
				}

				prevData, prevRetx, prevAcks, prevDrop, prevCorr = data, retx, acks, drop, corr

			case <-ctx.Done():
				return
			}
		}
	}()
}

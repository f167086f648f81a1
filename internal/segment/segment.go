// Package segment builds replay segments from admitted packets: byte-budget
// enforcement, segment rollover, and index.m3u8 / index.md emission (spec
// §4.F).
package segment

import (
	"time"

	"github.com/alsstream/als-pipeline/internal/alsproto"
)

const (
	// byteBudget is the conservative per-packet on-wire size limit; packets
	// at or above this threshold are split at frame boundaries.
	byteBudget = 15 * 1024

	nominalDuration = 10 * time.Second
)

// Segment is one admitted run of packets destined for a single
// segment_NNNNN.ts file.
type Segment struct {
	Number   int
	Duration time.Duration
	Packets  []*alsproto.PacketInfo
}

func (s *Segment) FirstTimestamp() time.Time {
	if len(s.Packets) == 0 {
		return time.Time{}
	}
	return s.Packets[0].Timestamp
}

func (s *Segment) LastTimestamp() time.Time {
	if len(s.Packets) == 0 {
		return time.Time{}
	}
	return s.Packets[len(s.Packets)-1].Timestamp
}

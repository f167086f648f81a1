// Package analyzer aggregates packet-level statistics over a capture run,
// including a sweep for protobuf field numbers the decoder does not
// recognise (spec §4.D).
package analyzer

import (
	"strconv"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/alsstream/als-pipeline/internal/alsproto"
	"github.com/alsstream/als-pipeline/internal/metrics"
)

// ControlStats counts DataPack.Control variants seen.
type ControlStats struct {
	DataCount             uint32
	PongCount             uint32
	SegmentStartedAtCount uint32
	CacheEndedCount       uint32
	Total                 uint32
}

func (s *ControlStats) merge(o ControlStats) {
	s.DataCount += o.DataCount
	s.PongCount += o.PongCount
	s.SegmentStartedAtCount += o.SegmentStartedAtCount
	s.CacheEndedCount += o.CacheEndedCount
	s.Total += o.Total
}

// FrameStats counts DataFrame message variants seen.
type FrameStats struct {
	InstantiateObjectCount uint32
	UpdateObjectCount      uint32
	DestroyObjectCount     uint32
	RoomCount              uint32
	AuthorizeResponseCount uint32
	JoinRoomResponseCount  uint32
	Total                  uint32
}

func (s *FrameStats) merge(o FrameStats) {
	s.InstantiateObjectCount += o.InstantiateObjectCount
	s.UpdateObjectCount += o.UpdateObjectCount
	s.DestroyObjectCount += o.DestroyObjectCount
	s.RoomCount += o.RoomCount
	s.AuthorizeResponseCount += o.AuthorizeResponseCount
	s.JoinRoomResponseCount += o.JoinRoomResponseCount
	s.Total += o.Total
}

// Stats is the full packet-stream summary.
type Stats struct {
	TotalPackets        uint32
	PacketsWithControl  uint32
	PacketsWithFrames   uint32
	TotalFrames         uint32
	Control             ControlStats
	Frames              FrameStats
	UnknownFields       map[uint32]uint32
}

// Merge adds o's counts into s.
func (s *Stats) Merge(o Stats) {
	s.TotalPackets += o.TotalPackets
	s.PacketsWithControl += o.PacketsWithControl
	s.PacketsWithFrames += o.PacketsWithFrames
	s.TotalFrames += o.TotalFrames
	s.Control.merge(o.Control)
	s.Frames.merge(o.Frames)
	if s.UnknownFields == nil {
		s.UnknownFields = make(map[uint32]uint32)
	}
	for k, v := range o.UnknownFields {
		s.UnknownFields[k] += v
	}
}

// knownFieldNumbers is the whitelist of protobuf field numbers the codec
// understands across DataPack, DataFrame, and the message variants; anything
// else surfaces as an unknown field for diagnostic purposes.
var knownFieldNumbers = map[uint32]bool{
	1: true, 2: true, 3: true, 4: true, 6: true, 7: true, 8: true, 9: true,
	10: true, 11: true, 14: true, 15: true, 16: true,
	128: true, 129: true, 130: true, 143: true, 144: true, 147: true,
}

// Analyzer accumulates Stats across calls to AnalyzePacket / AnalyzeBatch.
type Analyzer struct {
	stats Stats
}

func New() *Analyzer {
	return &Analyzer{stats: Stats{UnknownFields: make(map[uint32]uint32)}}
}

func (a *Analyzer) Stats() Stats { return a.stats }

func (a *Analyzer) Merge(other *Analyzer) { a.stats.Merge(other.stats) }

func (a *Analyzer) AnalyzeBatch(packets []*alsproto.PacketInfo) {
	for _, p := range packets {
		a.AnalyzePacket(p)
	}
}

func (a *Analyzer) AnalyzePacket(p *alsproto.PacketInfo) {
	a.stats.TotalPackets++

	if p.DataPack.Control != nil {
		a.stats.PacketsWithControl++
		a.analyzeControl(p.DataPack.Control)
	}

	if len(p.DataPack.Frames) > 0 {
		a.stats.PacketsWithFrames++
		a.stats.TotalFrames += uint32(len(p.DataPack.Frames))
		for _, f := range p.DataPack.Frames {
			a.analyzeFrame(f)
		}
	}

	a.analyzeUnknownFields(p.RawData)
}

func (a *Analyzer) analyzeControl(ctl alsproto.Control) {
	switch ctl.(type) {
	case alsproto.ControlData:
		a.stats.Control.DataCount++
	case alsproto.ControlPong:
		a.stats.Control.PongCount++
	case alsproto.ControlSegmentStartedAt:
		a.stats.Control.SegmentStartedAtCount++
	case alsproto.ControlCacheEnded:
		a.stats.Control.CacheEndedCount++
	}
	a.stats.Control.Total++
}

func (a *Analyzer) analyzeFrame(f *alsproto.DataFrame) {
	if f.Message == nil {
		return
	}
	switch f.Message.(type) {
	case *alsproto.InstantiateObject:
		a.stats.Frames.InstantiateObjectCount++
	case *alsproto.UpdateObject:
		a.stats.Frames.UpdateObjectCount++
	case *alsproto.DestroyObject:
		a.stats.Frames.DestroyObjectCount++
	case *alsproto.Room:
		a.stats.Frames.RoomCount++
	case *alsproto.AuthorizeResponse:
		a.stats.Frames.AuthorizeResponseCount++
	case *alsproto.JoinRoomResponse:
		a.stats.Frames.JoinRoomResponseCount++
	}
	a.stats.Frames.Total++
}

// analyzeUnknownFields walks the raw protobuf bytes at the top level only,
// tallying any field number outside the known whitelist.
func (a *Analyzer) analyzeUnknownFields(raw []byte) {
	off := 0
	for off < len(raw) {
		num, typ, n := protowire.ConsumeTag(raw[off:])
		if n < 0 {
			return
		}
		off += n
		m := protowire.ConsumeFieldValue(uint32(num), typ, raw[off:])
		if m < 0 {
			return
		}
		off += m
		if !knownFieldNumbers[uint32(num)] {
			a.stats.UnknownFields[uint32(num)]++
			metrics.UnknownFieldsSeen.WithLabelValues(strconv.Itoa(int(num))).Inc()
		}
	}
}

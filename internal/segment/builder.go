package segment

import (
	"time"

	"github.com/alsstream/als-pipeline/internal/alserrors"
	"github.com/alsstream/als-pipeline/internal/alsproto"
)

// Builder owns an ordered list of Segment, a current sequence counter, a
// part counter (Split mode), a timeshift applied to every incoming packet,
// an optional metadata path, and an output directory (spec §4.F).
type Builder struct {
	OutputDir    string
	MetadataPath string
	TimeshiftMS  int64

	sequence  int
	partCount int
	segments  []*Segment
	current   *Segment
}

func NewBuilder(outputDir string) *Builder {
	b := &Builder{OutputDir: outputDir}
	b.current = &Segment{Number: 0}
	return b
}

// Add admits packet into the current segment, applying the configured
// timeshift and splitting it at frame boundaries if its encoded size reaches
// the byte budget.
func (b *Builder) Add(p *alsproto.PacketInfo) error {
	if b.TimeshiftMS != 0 {
		p.Timestamp = p.Timestamp.Add(time.Duration(b.TimeshiftMS) * time.Millisecond)
	}

	if EncodedSize(p) < byteBudget {
		b.current.Packets = append(b.current.Packets, p)
		return nil
	}
	return b.splitAndAdmit(p)
}

// splitAndAdmit divides an oversized packet into successor packets at frame
// boundaries, each under the byte budget, preserving timestamp and control.
func (b *Builder) splitAndAdmit(p *alsproto.PacketInfo) error {
	if len(p.DataPack.Frames) == 0 {
		return alserrors.NewConvertError("segment.split_oversized_no_frames", nil)
	}

	var batch []*alsproto.DataFrame
	flush := func() {
		if len(batch) == 0 {
			return
		}
		dp := alsproto.DataPack{Control: p.DataPack.Control, Frames: batch}
		raw := alsproto.EncodeDataPack(&dp)
		b.current.Packets = append(b.current.Packets, &alsproto.PacketInfo{
			Timestamp: p.Timestamp,
			DataPack:  dp,
			RawData:   raw,
		})
		batch = nil
	}

	for _, f := range p.DataPack.Frames {
		candidate := append(append([]*alsproto.DataFrame(nil), batch...), f)
		raw := alsproto.EncodeDataPack(&alsproto.DataPack{Control: p.DataPack.Control, Frames: candidate})
		if 2+9+len(raw) >= byteBudget && len(batch) > 0 {
			flush()
			candidate = []*alsproto.DataFrame{f}
		}
		batch = candidate
	}
	flush()
	return nil
}

// Next closes the current segment, sets its duration to the nominal 10s,
// and pushes a fresh empty segment with an incremented sequence number.
func (b *Builder) Next() {
	b.current.Duration = nominalDuration
	b.segments = append(b.segments, b.current)
	b.sequence++
	b.current = &Segment{Number: b.sequence}
}

// Start clears the segment list, resets the sequence to 0, and increments
// the part counter. Used when a Split event partitions one conversion into
// multiple independent part directories.
func (b *Builder) Start() {
	b.segments = nil
	b.sequence = 0
	b.partCount++
	b.current = &Segment{Number: 0}
}

// Segments returns the closed segments plus the in-progress current
// segment, with the last segment's duration computed from its first and
// last packet timestamps.
func (b *Builder) Segments() []*Segment {
	all := append(append([]*Segment(nil), b.segments...), b.current)
	if len(all) > 0 {
		last := all[len(all)-1]
		if len(last.Packets) > 0 {
			last.Duration = last.LastTimestamp().Sub(last.FirstTimestamp())
		}
	}
	return all
}

func (b *Builder) PartCount() int { return b.partCount }

// RewriteFirstSegmentHeader retimes the first segment's leading synthetic
// header packets (SegmentStartedAt, the Room frame, CacheEnded) to ts,
// stopping at the first packet that isn't part of that header. Used when
// data_start_time moves the effective session start forward after the
// header was already seeded at the pre-cutoff timestamp (spec §4.G).
func (b *Builder) RewriteFirstSegmentHeader(ts time.Time) {
	target := b.current
	if len(b.segments) > 0 {
		target = b.segments[0]
	}
	for i, p := range target.Packets {
		switch ctl := p.DataPack.Control.(type) {
		case alsproto.ControlSegmentStartedAt:
			ctl.Micros = ts.UnixMicro()
			dp := alsproto.DataPack{Control: ctl}
			target.Packets[i] = &alsproto.PacketInfo{Timestamp: ts, DataPack: dp, RawData: alsproto.EncodeDataPack(&dp)}
			continue
		case alsproto.ControlCacheEnded:
			target.Packets[i] = &alsproto.PacketInfo{Timestamp: ts, DataPack: p.DataPack, RawData: p.RawData}
			continue
		}
		if len(p.DataPack.Frames) == 1 {
			if _, ok := p.DataPack.Frames[0].Message.(*alsproto.Room); ok {
				target.Packets[i] = &alsproto.PacketInfo{Timestamp: ts, DataPack: p.DataPack, RawData: p.RawData}
				continue
			}
		}
		return
	}
}

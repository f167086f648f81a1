package analyzer

import (
	"testing"
	"time"

	"github.com/alsstream/als-pipeline/internal/alsproto"
)

func samplePacket() *alsproto.PacketInfo {
	dp := alsproto.DataPack{
		Control: alsproto.ControlData{Value: true},
		Frames: []*alsproto.DataFrame{
			{Message: &alsproto.InstantiateObject{ObjectID: 1, PrefabName: []byte("Prefab/Thing")}},
			{Message: &alsproto.UpdateObject{ObjectID: 1, Payload: []byte{1, 2, 3}}},
		},
	}
	return &alsproto.PacketInfo{Timestamp: time.Now(), DataPack: dp, RawData: alsproto.EncodeDataPack(&dp)}
}

func TestAnalyzePacketCounts(t *testing.T) {
	a := New()
	a.AnalyzePacket(samplePacket())

	s := a.Stats()
	if s.TotalPackets != 1 {
		t.Fatalf("total_packets = %d", s.TotalPackets)
	}
	if s.PacketsWithControl != 1 || s.Control.DataCount != 1 {
		t.Fatalf("control stats wrong: %+v", s.Control)
	}
	if s.PacketsWithFrames != 1 || s.TotalFrames != 2 {
		t.Fatalf("frame totals wrong: frames=%d total=%d", s.PacketsWithFrames, s.TotalFrames)
	}
	if s.Frames.InstantiateObjectCount != 1 || s.Frames.UpdateObjectCount != 1 {
		t.Fatalf("frame variant counts wrong: %+v", s.Frames)
	}
}

func TestStatsMerge(t *testing.T) {
	a := New()
	a.AnalyzePacket(samplePacket())
	b := New()
	b.AnalyzePacket(samplePacket())

	a.Merge(b)
	if a.Stats().TotalPackets != 2 {
		t.Fatalf("expected merged total 2, got %d", a.Stats().TotalPackets)
	}
}

func TestPacketFilterShouldInclude(t *testing.T) {
	f, err := NewFilter("2025-01-01T00:00:00Z", "2025-12-31T23:59:59Z")
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	mid, _ := time.Parse(time.RFC3339, "2025-06-01T12:00:00Z")
	if !f.ShouldInclude(mid) {
		t.Fatal("expected mid-range timestamp to be included")
	}

	after, _ := time.Parse(time.RFC3339, "2026-01-01T00:00:00Z")
	if f.ShouldInclude(after) {
		t.Fatal("expected out-of-range timestamp to be excluded")
	}
	if !f.IsPastEnd(after) {
		t.Fatal("expected IsPastEnd true after end bound")
	}
}

func TestPacketFilterUnboundedWhenEmpty(t *testing.T) {
	f, err := NewFilter("", "")
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	if !f.ShouldInclude(time.Now()) {
		t.Fatal("expected unbounded filter to include everything")
	}
}

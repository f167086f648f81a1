package formatter

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/alsstream/als-pipeline/internal/alsproto"
	"github.com/alsstream/als-pipeline/internal/analyzer"
)

func newBufferWriter() (*OutputWriter, *bytes.Buffer) {
	var buf bytes.Buffer
	return &OutputWriter{w: &buf, close: func() error { return nil }}, &buf
}

func TestFormatPacketIncludesDigestAndFrames(t *testing.T) {
	dp := alsproto.DataPack{
		Control: alsproto.ControlData{Value: true},
		Frames: []*alsproto.DataFrame{
			{Message: &alsproto.InstantiateObject{ObjectID: 1, PrefabName: []byte("Prefab/Thing"), Target: alsproto.TargetCurrentPlayer{}}},
		},
	}
	p := &alsproto.PacketInfo{Timestamp: time.Now(), DataPack: dp, RawData: alsproto.EncodeDataPack(&dp)}

	w, buf := newBufferWriter()
	pf := NewPacketFormatter()
	if err := pf.FormatPacket(w, 1, p); err != nil {
		t.Fatalf("FormatPacket: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Packet #1") {
		t.Fatalf("missing packet header: %s", out)
	}
	if !strings.Contains(out, "Protobuf SHA-256:") {
		t.Fatalf("missing digest: %s", out)
	}
	if !strings.Contains(out, "InstantiateObject") {
		t.Fatalf("missing frame type: %s", out)
	}
}

func TestFormatStatsSkipsZeroCounts(t *testing.T) {
	s := analyzer.Stats{
		TotalPackets: 5,
		Control:      analyzer.ControlStats{DataCount: 5, Total: 5},
	}
	w, buf := newBufferWriter()
	if err := FormatStats(w, s); err != nil {
		t.Fatalf("FormatStats: %v", err)
	}
	out := buf.String()
	if strings.Contains(out, "Pong:") {
		t.Fatalf("expected zero-count Pong line to be omitted: %s", out)
	}
	if !strings.Contains(out, "Data: 5") {
		t.Fatalf("expected Data count present: %s", out)
	}
}

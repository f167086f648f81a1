package segment

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alsstream/als-pipeline/internal/alsproto"
)

func packetWithFrames(ts time.Time, n int, payloadLen int) *alsproto.PacketInfo {
	frames := make([]*alsproto.DataFrame, n)
	payload := make([]byte, payloadLen)
	for i := range frames {
		frames[i] = &alsproto.DataFrame{Message: &alsproto.UpdateObject{
			ObjectID: int32(i),
			Payload:  payload,
		}}
	}
	dp := alsproto.DataPack{Control: alsproto.ControlData{Value: true}, Frames: frames}
	return &alsproto.PacketInfo{Timestamp: ts, DataPack: dp, RawData: alsproto.EncodeDataPack(&dp)}
}

func TestBuilderAdmitsUnderBudgetUnchanged(t *testing.T) {
	b := NewBuilder(t.TempDir())
	p := packetWithFrames(time.Now(), 2, 50)
	if err := b.Add(p); err != nil {
		t.Fatalf("Add: %v", err)
	}
	segs := b.Segments()
	if len(segs[0].Packets) != 1 {
		t.Fatalf("expected single admitted packet, got %d", len(segs[0].Packets))
	}
}

func TestBuilderSplitsOversizedPacket(t *testing.T) {
	b := NewBuilder(t.TempDir())
	p := packetWithFrames(time.Now(), 50, 400)
	if EncodedSize(p) < byteBudget {
		t.Fatalf("test fixture not actually oversized: %d", EncodedSize(p))
	}
	originalFrames := len(p.DataPack.Frames)

	if err := b.Add(p); err != nil {
		t.Fatalf("Add: %v", err)
	}
	segs := b.Segments()
	if len(segs[0].Packets) <= 1 {
		t.Fatalf("expected packet to be split into multiple successors, got %d", len(segs[0].Packets))
	}

	total := 0
	for _, out := range segs[0].Packets {
		if EncodedSize(out) >= byteBudget {
			t.Fatalf("successor packet still over budget: %d bytes", EncodedSize(out))
		}
		total += len(out.DataPack.Frames)
	}
	if total != originalFrames {
		t.Fatalf("frame count mismatch after split: got %d, want %d", total, originalFrames)
	}
}

func TestBuilderNextRollsOverSegment(t *testing.T) {
	b := NewBuilder(t.TempDir())
	b.Add(packetWithFrames(time.Now(), 1, 10))
	b.Next()
	b.Add(packetWithFrames(time.Now(), 1, 10))

	segs := b.Segments()
	if len(segs) != 2 {
		t.Fatalf("expected 2 segments after Next, got %d", len(segs))
	}
	if segs[0].Duration != nominalDuration {
		t.Fatalf("expected closed segment to have nominal duration")
	}
}

func TestBuilderWriteProducesFiles(t *testing.T) {
	dir := t.TempDir()
	b := NewBuilder(dir)
	t0 := time.Unix(1000, 0)
	b.Add(packetWithFrames(t0, 1, 10))
	b.Add(packetWithFrames(t0.Add(time.Second), 1, 10))

	if err := b.Write(1_000_000, []byte("room-1")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "segment_00000.ts")); err != nil {
		t.Fatalf("expected segment file: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "index.m3u8")); err != nil {
		t.Fatalf("expected playlist file: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "index.md"))
	if err != nil {
		t.Fatalf("ReadFile index.md: %v", err)
	}
	var meta indexMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		t.Fatalf("Unmarshal index.md: %v", err)
	}
	if meta.RoomID != "room-1" || meta.PlaylistFile != "index.m3u8" {
		t.Fatalf("unexpected metadata: %+v", meta)
	}
}

package integration

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alsstream/als-pipeline/internal/alsproto"
	"github.com/alsstream/als-pipeline/internal/alsreader"
	"github.com/alsstream/als-pipeline/internal/analyzer"
	"github.com/alsstream/als-pipeline/internal/capture"
	"github.com/alsstream/als-pipeline/internal/converter"
	"github.com/alsstream/als-pipeline/internal/differ"
	"github.com/alsstream/als-pipeline/internal/editor"
	"github.com/alsstream/als-pipeline/internal/formatter"
	"github.com/alsstream/als-pipeline/internal/segment"
)

func packet(ts time.Time, ctl alsproto.Control, frames ...*alsproto.DataFrame) *alsproto.PacketInfo {
	dp := alsproto.DataPack{Control: ctl, Frames: frames}
	return &alsproto.PacketInfo{Timestamp: ts, DataPack: dp, RawData: alsproto.EncodeDataPack(&dp)}
}

// buildCaptureFile persists a small realistic session (room join, initial
// camera/object instantiation, a run of position updates) as one capture_*.bin
// file through capture's PersistedBuffer, without a live ALS server. The
// records use the standard replay framing (segment.EncodeStandardRecord), not
// the mixed framing a live capture client writes.
func buildCaptureFile(t *testing.T, dataDir string) {
	t.Helper()
	buf := capture.NewPersistedBuffer(dataDir, "capture_")

	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	roomFrame := &alsproto.DataFrame{Message: &alsproto.Room{ID: []byte("room-1"), StartedAt: base.UnixMicro()}}
	joinFrame := &alsproto.DataFrame{Message: &alsproto.JoinRoomResponse{JoinedAt: base.UnixMicro()}}
	camFrame := &alsproto.DataFrame{Message: &alsproto.InstantiateObject{ObjectID: 1, PrefabName: []byte("Prefab/Camera/FixedCamera")}}

	packets := []*alsproto.PacketInfo{
		packet(base, nil, roomFrame, joinFrame),
		packet(base.Add(time.Second), alsproto.ControlData{Value: true}, camFrame),
	}
	for i := 0; i < 6; i++ {
		upd := &alsproto.DataFrame{Message: &alsproto.UpdateObject{ObjectID: 1, Method: 1, Payload: []byte{byte(i)}}}
		packets = append(packets, packet(base.Add(time.Duration(2+i)*time.Second), alsproto.ControlData{Value: true}, upd))
	}

	for _, p := range packets {
		if err := buf.Append(segment.EncodeStandardRecord(p)); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	if err := buf.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
}

func readAllPackets(t *testing.T, path string) []*alsproto.PacketInfo {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	reader := alsreader.NewStandard(f)
	var out []*alsproto.PacketInfo
	for {
		p, err := reader.ReadPacket()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("ReadPacket: %v", err)
		}
		out = append(out, p)
	}
	return out
}

func TestCaptureConvertEditAnalyzePipeline(t *testing.T) {
	dataDir := t.TempDir()
	convertedDir := t.TempDir()
	editedDir := t.TempDir()

	buildCaptureFile(t, dataDir)

	entries, err := alsreader.OrderDirectory(dataDir)
	if err != nil {
		t.Fatalf("OrderDirectory: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 persisted capture file, got %d", len(entries))
	}

	reader := alsreader.NewMultiFile(entries, func(f *os.File) alsreader.PacketReader { return alsreader.NewStandard(f) })
	convCtx, err := converter.New(convertedDir, converter.Options{})
	if err != nil {
		t.Fatalf("converter.New: %v", err)
	}
	for {
		p, err := reader.ReadPacket()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("ReadPacket: %v", err)
		}
		if err := convCtx.ProcessPacket(p); err != nil {
			t.Fatalf("ProcessPacket: %v", err)
		}
	}
	if err := convCtx.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	segmentPath := filepath.Join(convertedDir, "segment_00000.ts")
	if _, err := os.Stat(segmentPath); err != nil {
		t.Fatalf("expected segment file to exist: %v", err)
	}
	if _, err := os.Stat(filepath.Join(convertedDir, "index.m3u8")); err != nil {
		t.Fatalf("expected playlist file to exist: %v", err)
	}
	if _, err := os.Stat(filepath.Join(convertedDir, "index.md")); err != nil {
		t.Fatalf("expected metadata file to exist: %v", err)
	}

	convertedPackets := readAllPackets(t, segmentPath)
	if len(convertedPackets) < 4 {
		t.Fatalf("expected at least 4 converted packets for diff coverage, got %d", len(convertedPackets))
	}

	ed, err := editor.New(convertedDir, editedDir, editor.Options{})
	if err != nil {
		t.Fatalf("editor.New: %v", err)
	}
	if err := ed.Process(); err != nil {
		t.Fatalf("editor.Process: %v", err)
	}
	editedSegmentPath := filepath.Join(editedDir, "segment_00000.ts")
	if _, err := os.Stat(editedSegmentPath); err != nil {
		t.Fatalf("expected edited segment file to exist: %v", err)
	}

	a := analyzer.New()
	a.AnalyzeBatch(convertedPackets)
	stats := a.Stats()
	if int(stats.TotalPackets) != len(convertedPackets) {
		t.Fatalf("analyzer counted %d packets, want %d", stats.TotalPackets, len(convertedPackets))
	}
	if stats.Frames.UpdateObjectCount == 0 {
		t.Fatal("expected analyzer to count at least one UpdateObject")
	}

	statsOut := filepath.Join(convertedDir, "stats.txt")
	w, err := formatter.NewOutputWriter(statsOut)
	if err != nil {
		t.Fatalf("NewOutputWriter: %v", err)
	}
	if err := formatter.FormatStats(w, stats); err != nil {
		t.Fatalf("FormatStats: %v", err)
	}
	w.Close()
	if info, err := os.Stat(statsOut); err != nil || info.Size() == 0 {
		t.Fatalf("expected non-empty stats report")
	}

	diffOut := filepath.Join(convertedDir, "diff.txt")
	dw, err := formatter.NewOutputWriter(diffOut)
	if err != nil {
		t.Fatalf("NewOutputWriter: %v", err)
	}
	defer dw.Close()
	results, err := differ.Run(dw, segmentPath, editedSegmentPath, "als")
	if err != nil {
		t.Fatalf("differ.Run: %v", err)
	}
	for _, r := range results {
		if !r.FramesEqual {
			t.Fatalf("expected packet %d frames to match between converted and edited (no-op) segments", r.PacketNumber)
		}
	}
}

package editor

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alsstream/als-pipeline/internal/alsproto"
	"github.com/alsstream/als-pipeline/internal/alsreader"
	"github.com/alsstream/als-pipeline/internal/segment"
)

func writeTimelinePacket(t *testing.T, f *os.File, ts time.Time, frames []*alsproto.DataFrame, control alsproto.Control) {
	t.Helper()
	dp := alsproto.DataPack{Control: control, Frames: frames}
	p := &alsproto.PacketInfo{Timestamp: ts, DataPack: dp, RawData: alsproto.EncodeDataPack(&dp)}
	if _, err := f.Write(segment.EncodeStandardRecord(p)); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func timelinePayload(id int64, startSec float64) []byte {
	out := make([]byte, 16)
	binary.LittleEndian.PutUint64(out[0:8], uint64(id))
	binary.LittleEndian.PutUint64(out[8:16], math.Float64bits(startSec))
	return out
}

func TestEditorReplacesTimelineIDRoundRobin(t *testing.T) {
	inDir := t.TempDir()
	outDir := t.TempDir()

	inPath := filepath.Join(inDir, "segment_00000.ts")
	f, err := os.Create(inPath)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	now := time.Now()
	writeTimelinePacket(t, f, now, []*alsproto.DataFrame{
		{Message: &alsproto.InstantiateObject{ObjectID: 7, PrefabName: []byte("Prefab/TimelineReceiver")}},
	}, nil)
	writeTimelinePacket(t, f, now.Add(time.Millisecond), []*alsproto.DataFrame{
		{Message: &alsproto.UpdateObject{ObjectID: 7, Payload: timelinePayload(1, 2.5)}},
	}, nil)
	writeTimelinePacket(t, f, now.Add(2*time.Millisecond), []*alsproto.DataFrame{
		{Message: &alsproto.UpdateObject{ObjectID: 7, Payload: timelinePayload(1, 3.0)}},
	}, nil)
	f.Close()

	targetIDs := []int64{100, 200}
	e, err := New(inDir, outDir, Options{TargetTimelineIDs: targetIDs})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := e.Process(); err != nil {
		t.Fatalf("Process: %v", err)
	}

	out, err := os.Open(filepath.Join(outDir, "segment_00000.ts"))
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer out.Close()

	reader := alsreader.NewStandard(out)
	var updates []alsproto.UpdateObject
	for {
		p, err := reader.ReadPacket()
		if err != nil {
			break
		}
		for _, fr := range p.DataPack.Frames {
			if u, ok := fr.Message.(*alsproto.UpdateObject); ok {
				updates = append(updates, *u)
			}
		}
	}
	if len(updates) != 2 {
		t.Fatalf("expected 2 update frames, got %d", len(updates))
	}

	first, err := parseTimelinePayload(updates[0].Payload)
	if err != nil {
		t.Fatalf("parse first: %v", err)
	}
	if first.TimelineID != 100 {
		t.Fatalf("expected first timeline id 100, got %d", first.TimelineID)
	}

	second, err := parseTimelinePayload(updates[1].Payload)
	if err != nil {
		t.Fatalf("parse second: %v", err)
	}
	if second.TimelineID != 200 {
		t.Fatalf("expected second timeline id 200 (round robin), got %d", second.TimelineID)
	}
}

func TestEditorAppliesTimeshift(t *testing.T) {
	inDir := t.TempDir()
	outDir := t.TempDir()

	f, err := os.Create(filepath.Join(inDir, "segment_00000.ts"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	now := time.Now()
	writeTimelinePacket(t, f, now, []*alsproto.DataFrame{
		{Message: &alsproto.InstantiateObject{ObjectID: 1, PrefabName: []byte("Prefab/TimelineReceiver")}},
	}, nil)
	writeTimelinePacket(t, f, now.Add(time.Millisecond), []*alsproto.DataFrame{
		{Message: &alsproto.UpdateObject{ObjectID: 1, Payload: timelinePayload(5, 1.0)}},
	}, nil)
	f.Close()

	shift := int64(500)
	e, err := New(inDir, outDir, Options{TimeshiftMS: &shift})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := e.Process(); err != nil {
		t.Fatalf("Process: %v", err)
	}

	out, err := os.Open(filepath.Join(outDir, "segment_00000.ts"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer out.Close()
	reader := alsreader.NewStandard(out)

	var lastUpdate *alsproto.UpdateObject
	for {
		p, err := reader.ReadPacket()
		if err != nil {
			break
		}
		for _, fr := range p.DataPack.Frames {
			if u, ok := fr.Message.(*alsproto.UpdateObject); ok {
				lastUpdate = u
			}
		}
	}
	if lastUpdate == nil {
		t.Fatal("no update frame found")
	}
	tc, err := parseTimelinePayload(lastUpdate.Payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if math.Abs(tc.StartTimeSec-1.5) > 1e-9 {
		t.Fatalf("expected shifted start time 1.5, got %f", tc.StartTimeSec)
	}
}

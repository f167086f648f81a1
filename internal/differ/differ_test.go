package differ

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alsstream/als-pipeline/internal/alsproto"
	"github.com/alsstream/als-pipeline/internal/formatter"
)

func writeStandardFile(t *testing.T, path string, frames [][]*alsproto.DataFrame) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	for _, fs := range frames {
		dp := alsproto.DataPack{Frames: fs}
		raw := alsproto.EncodeDataPack(&dp)

		var header [11]byte
		totalLen := uint16(len(raw) + 9)
		header[0] = byte(totalLen >> 8)
		header[1] = byte(totalLen)
		header[2] = 1
		micros := time.Now().UnixMicro()
		for i := 0; i < 8; i++ {
			header[3+i] = byte(micros >> (8 * (7 - i)))
		}
		if _, err := f.Write(header[:11]); err != nil {
			t.Fatalf("write header: %v", err)
		}
		if _, err := f.Write(raw); err != nil {
			t.Fatalf("write payload: %v", err)
		}
	}
}

func frame(objectID int32) *alsproto.DataFrame {
	return &alsproto.DataFrame{Message: &alsproto.DestroyObject{ObjectID: objectID}}
}

func TestDiffIdenticalFrames(t *testing.T) {
	dir := t.TempDir()
	p1 := filepath.Join(dir, "a.bin")
	p2 := filepath.Join(dir, "b.bin")

	frames := [][]*alsproto.DataFrame{
		{frame(1)}, {frame(2)}, {frame(3)}, {frame(4)},
	}
	writeStandardFile(t, p1, frames)
	writeStandardFile(t, p2, frames)

	w, err := formatter.NewOutputWriter(filepath.Join(dir, "report.txt"))
	if err != nil {
		t.Fatalf("NewOutputWriter: %v", err)
	}
	defer w.Close()

	results, err := Run(w, p1, p2, "als")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, r := range results {
		if !r.FramesEqual {
			t.Fatalf("expected packet %d frames equal, got mismatch", r.PacketNumber)
		}
	}
}

func TestDiffDifferentFrames(t *testing.T) {
	dir := t.TempDir()
	p1 := filepath.Join(dir, "a.bin")
	p2 := filepath.Join(dir, "b.bin")

	framesA := [][]*alsproto.DataFrame{
		{frame(1)}, {frame(2)}, {frame(3)}, {frame(4)},
	}
	framesB := [][]*alsproto.DataFrame{
		{frame(1)}, {frame(2)}, {frame(3)}, {frame(99)},
	}
	writeStandardFile(t, p1, framesA)
	writeStandardFile(t, p2, framesB)

	w, err := formatter.NewOutputWriter(filepath.Join(dir, "report.txt"))
	if err != nil {
		t.Fatalf("NewOutputWriter: %v", err)
	}
	defer w.Close()

	results, err := Run(w, p1, p2, "als")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if results[1].FramesEqual {
		t.Fatal("expected packet 4 frames to differ")
	}
	if results[0].FramesEqual != true {
		t.Fatal("expected packet 3 frames to match")
	}
}

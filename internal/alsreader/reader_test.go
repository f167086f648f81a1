package alsreader

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/alsstream/als-pipeline/internal/alsproto"
)

func sampleDataPack() *alsproto.DataPack {
	return &alsproto.DataPack{
		Control: alsproto.ControlPong{Value: true},
		Frames: []*alsproto.DataFrame{
			{Message: &alsproto.InstantiateObject{ObjectID: 1, PrefabName: []byte("Camera/Cameraman")}},
		},
	}
}

func writeStandardRecord(buf *bytes.Buffer, raw []byte, micros int64) {
	body := make([]byte, 9+len(raw))
	body[0] = 0x01
	binary.BigEndian.PutUint64(body[1:9], uint64(micros))
	copy(body[9:], raw)
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(body)))
	buf.Write(lenBuf[:])
	buf.Write(body)
}

func writeMixedRecord(buf *bytes.Buffer, raw []byte, micros int64) {
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(raw)))
	buf.Write(lenBuf[:])
	buf.Write(raw)
	buf.WriteByte(8)
	var tsBuf [8]byte
	binary.BigEndian.PutUint64(tsBuf[:], uint64(micros))
	buf.Write(tsBuf[:])
}

func TestStandardReaderRoundTrip(t *testing.T) {
	raw := alsproto.EncodeDataPack(sampleDataPack())
	var buf bytes.Buffer
	writeStandardRecord(&buf, raw, 1_000_000)

	r := NewStandard(&buf)
	p, err := r.ReadPacket()
	if err != nil {
		t.Fatalf("ReadPacket: %v", err)
	}
	if len(p.DataPack.Frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(p.DataPack.Frames))
	}
	if _, err := r.ReadPacket(); err != io.EOF {
		t.Fatalf("expected io.EOF after single record, got %v", err)
	}
}

func TestMixedReaderPairsRecords(t *testing.T) {
	raw := alsproto.EncodeDataPack(sampleDataPack())
	var buf bytes.Buffer
	writeMixedRecord(&buf, raw, 2_000_000)

	r := NewMixed(&buf)
	p, err := r.ReadPacket()
	if err != nil {
		t.Fatalf("ReadPacket: %v", err)
	}
	if p.Timestamp.IsZero() {
		t.Fatalf("expected non-zero timestamp")
	}
	if _, err := r.ReadPacket(); err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestMixedReaderEOFMidPairIsNotAnError(t *testing.T) {
	raw := alsproto.EncodeDataPack(sampleDataPack())
	var buf bytes.Buffer
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(raw)))
	buf.Write(lenBuf[:])
	buf.Write(raw)
	// no trailer written: truncated mid-pair

	r := NewMixed(&buf)
	if _, err := r.ReadPacket(); err != io.EOF {
		t.Fatalf("expected io.EOF on truncated pair, got %v", err)
	}
}

func TestLegacyReaderAssignsWallClock(t *testing.T) {
	raw := alsproto.EncodeDataPack(sampleDataPack())
	var buf bytes.Buffer
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(raw)))
	buf.Write(lenBuf[:])
	buf.Write(raw)

	r := NewLegacy(&buf)
	p, err := r.ReadPacket()
	if err != nil {
		t.Fatalf("ReadPacket: %v", err)
	}
	if p.Timestamp.IsZero() {
		t.Fatalf("expected legacy reader to assign wall-clock timestamp")
	}
}

func TestOrderDirectoryNumericSuffix(t *testing.T) {
	dir := t.TempDir()
	names := []string{"capture_10.bin", "capture_2.bin", "capture_1.bin"}
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}
	ordered, err := OrderDirectory(dir)
	if err != nil {
		t.Fatalf("OrderDirectory: %v", err)
	}
	want := []string{"capture_1.bin", "capture_2.bin", "capture_10.bin"}
	for i, w := range want {
		if filepath.Base(ordered[i]) != w {
			t.Fatalf("position %d: got %s, want %s", i, filepath.Base(ordered[i]), w)
		}
	}
}

func TestMultiFileStreamsAcrossBoundaries(t *testing.T) {
	dir := t.TempDir()
	raw := alsproto.EncodeDataPack(sampleDataPack())

	for i, name := range []string{"a_1.bin", "a_2.bin"} {
		var buf bytes.Buffer
		writeStandardRecord(&buf, raw, int64(i+1))
		if err := os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}

	entries, err := OrderDirectory(dir)
	if err != nil {
		t.Fatalf("OrderDirectory: %v", err)
	}
	mf := NewMultiFile(entries, func(f *os.File) PacketReader { return NewStandard(f) })

	packets, err := ReadPackets(mf, 0)
	if err != nil {
		t.Fatalf("ReadPackets: %v", err)
	}
	if len(packets) != 2 {
		t.Fatalf("expected 2 packets across 2 files, got %d", len(packets))
	}
	if mf.Counters().FilesProcessed != 2 {
		t.Fatalf("expected 2 files processed, got %d", mf.Counters().FilesProcessed)
	}
}

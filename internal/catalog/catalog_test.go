package catalog

import (
	"path/filepath"
	"testing"
	"time"
)

func TestUpsertAndLookup(t *testing.T) {
	c, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	r := Record{
		InputPath:         "capture_0.bin",
		SHA256FirstPacket: "deadbeef",
		TotalPackets:      42,
		LastAnalyzedAt:    time.Now().Truncate(time.Second),
	}
	if err := c.Upsert(r); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, found, err := c.Lookup("capture_0.bin")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !found {
		t.Fatal("expected record to be found")
	}
	if got.TotalPackets != 42 || got.SHA256FirstPacket != "deadbeef" {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestShouldSkipMatchesDigest(t *testing.T) {
	c, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	if err := c.Upsert(Record{InputPath: "a.bin", SHA256FirstPacket: "abc", TotalPackets: 1, LastAnalyzedAt: time.Now()}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	skip, err := c.ShouldSkip("a.bin", "abc")
	if err != nil {
		t.Fatalf("ShouldSkip: %v", err)
	}
	if !skip {
		t.Fatal("expected skip when digest matches")
	}

	skip, err = c.ShouldSkip("a.bin", "different")
	if err != nil {
		t.Fatalf("ShouldSkip: %v", err)
	}
	if skip {
		t.Fatal("expected no skip when digest differs")
	}

	skip, err = c.ShouldSkip("unseen.bin", "abc")
	if err != nil {
		t.Fatalf("ShouldSkip: %v", err)
	}
	if skip {
		t.Fatal("expected no skip for unseen file")
	}
}

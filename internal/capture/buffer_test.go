package capture

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPersistedBufferFlushesAtThreshold(t *testing.T) {
	dir := t.TempDir()
	b := NewPersistedBuffer(dir, "capture_")

	chunk := make([]byte, flushThreshold)
	if err := b.Append(chunk); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if b.Index() != 1 {
		t.Fatalf("expected one flush to have occurred, index=%d", b.Index())
	}
	path := filepath.Join(dir, "capture_0.bin")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(data) != flushThreshold {
		t.Fatalf("expected %d bytes flushed, got %d", flushThreshold, len(data))
	}
}

func TestPersistedBufferForceFlushBelowThreshold(t *testing.T) {
	dir := t.TempDir()
	b := NewPersistedBuffer(dir, "capture_")

	if err := b.Append([]byte("small")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if b.Index() != 0 {
		t.Fatalf("expected no automatic flush yet, index=%d", b.Index())
	}
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if b.Index() != 1 {
		t.Fatalf("expected forced flush to advance index, index=%d", b.Index())
	}
}

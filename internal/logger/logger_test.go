package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestSetLevelInvalid(t *testing.T) {
	if err := SetLevel("not-a-level"); err == nil {
		t.Fatal("expected error for invalid level")
	}
}

func TestSetLevelValid(t *testing.T) {
	defer SetLevel("info")
	if err := SetLevel("debug"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if Level() != "DEBUG" {
		t.Fatalf("expected DEBUG, got %s", Level())
	}
}

func TestUseWriterEmitsJSON(t *testing.T) {
	var buf bytes.Buffer
	UseWriter(&buf)
	defer UseWriter(nil)

	Info("hello", "key", "value")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected valid JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "hello" {
		t.Fatalf("expected msg=hello, got %v", entry["msg"])
	}
	if entry["key"] != "value" {
		t.Fatalf("expected key=value, got %v", entry["key"])
	}
}

func TestWithSessionAttachesFields(t *testing.T) {
	var buf bytes.Buffer
	UseWriter(&buf)
	defer UseWriter(nil)

	l := WithSession(Logger(), "sess-1", "room-1")
	l.Info("joined")

	out := buf.String()
	if !strings.Contains(out, `"session_id":"sess-1"`) || !strings.Contains(out, `"room_id":"room-1"`) {
		t.Fatalf("expected session/room fields in output, got %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]bool{
		"debug": true,
		"INFO":  true,
		"warn":  true,
		"error": true,
		"":      true,
		"trace": false,
	}
	for s, want := range cases {
		if _, ok := parseLevel(s); ok != want {
			t.Errorf("parseLevel(%q) ok=%v, want %v", s, ok, want)
		}
	}
}

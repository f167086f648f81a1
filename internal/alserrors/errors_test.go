package alserrors

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCodecErrorUnwrap(t *testing.T) {
	cause := errors.New("bad marker byte")
	err := NewCodecError("decode.datapack", 128, cause)

	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to find wrapped cause")
	}
	if got := err.Error(); got == "" {
		t.Fatalf("expected non-empty message")
	}
}

func TestIsPipelineError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"codec", NewCodecError("op", -1, nil), true},
		{"capture", NewCaptureError("op", nil), true},
		{"convert", NewConvertError("op", nil), true},
		{"timeout", NewTimeoutError("op", time.Second, nil), true},
		{"plain", errors.New("boom"), false},
		{"nil", nil, false},
	}
	for _, tc := range cases {
		if got := IsPipelineError(tc.err); got != tc.want {
			t.Errorf("%s: IsPipelineError=%v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestIsTimeout(t *testing.T) {
	if !IsTimeout(NewTimeoutError("idle", 20*time.Second, nil)) {
		t.Fatal("expected TimeoutError to be recognised")
	}
	if !IsTimeout(context.DeadlineExceeded) {
		t.Fatal("expected context.DeadlineExceeded to be recognised")
	}
	if IsTimeout(errors.New("boom")) {
		t.Fatal("expected plain error to not be a timeout")
	}
	if IsTimeout(nil) {
		t.Fatal("expected nil to not be a timeout")
	}
}

func TestCodecErrorOffsetFormatting(t *testing.T) {
	withOffset := &CodecError{Op: "x", Offset: 42, Err: errors.New("y")}
	noOffset := &CodecError{Op: "x", Offset: -1, Err: errors.New("y")}
	if withOffset.Error() == noOffset.Error() {
		t.Fatal("expected offset to change the message")
	}
}

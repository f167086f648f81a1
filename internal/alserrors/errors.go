// Package alserrors provides the tagged error kinds used across the ALS
// capture and replay pipeline. It follows the same shape the rest of this
// codebase uses for protocol errors: a small struct per kind carrying an Op
// field and an Unwrap-able cause, plus an unexported marker interface so
// callers can classify with errors.As instead of string matching.
package alserrors

import (
	"context"
	stdErrors "errors"
	"fmt"
	"time"
)

// pipelineMarker is implemented by every error kind declared here so callers
// can test "is this one of ours" without enumerating concrete types.
type pipelineMarker interface {
	error
	isPipeline()
}

// CodecError indicates a wire-codec failure: a bad length prefix, an invalid
// marker byte, an undecodable protobuf record, or a short read (§4.A).
type CodecError struct {
	Op     string // e.g. "decode.datapack", "read.mixed.timestamp"
	Offset int64  // byte offset into the source, -1 if not applicable
	Err    error
}

func (e *CodecError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("codec error: %s (offset %d): %v", e.Op, e.Offset, e.Err)
	}
	if e.Err == nil {
		return fmt.Sprintf("codec error: %s", e.Op)
	}
	return fmt.Sprintf("codec error: %s: %v", e.Op, e.Err)
}
func (e *CodecError) Unwrap() error { return e.Err }
func (e *CodecError) isPipeline()   {}

// CaptureError indicates a failure in the TCP capture client: connect
// failure, reconnect exhaustion, or a persisted-buffer flush failure (§4.C).
type CaptureError struct {
	Op  string
	Err error
}

func (e *CaptureError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("capture error: %s", e.Op)
	}
	return fmt.Sprintf("capture error: %s: %v", e.Op, e.Err)
}
func (e *CaptureError) Unwrap() error { return e.Err }
func (e *CaptureError) isPipeline()   {}

// ConvertError indicates a failure in the replay converter, segment builder,
// or editor: a malformed packet, an unknown convert_type, or a bad RFC 3339
// timestamp (§4.G, §4.F, §4.I).
type ConvertError struct {
	Op  string
	Err error
}

func (e *ConvertError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("convert error: %s", e.Op)
	}
	return fmt.Sprintf("convert error: %s: %v", e.Op, e.Err)
}
func (e *ConvertError) Unwrap() error { return e.Err }
func (e *ConvertError) isPipeline()   {}

// TimeoutError indicates an operation exceeded a deadline or idle timeout
// (the capture client's 20s no-data timeout, §4.C rule 6).
type TimeoutError struct {
	Op       string
	Duration time.Duration
	Err      error
}

func (e *TimeoutError) Error() string {
	base := fmt.Sprintf("timeout error: %s (after %s)", e.Op, e.Duration)
	if e.Err != nil {
		return base + ": " + e.Err.Error()
	}
	return base
}
func (e *TimeoutError) Unwrap() error { return e.Err }
func (e *TimeoutError) isPipeline()   {}

// IsTimeout returns true if err is (or wraps) a TimeoutError, a context
// deadline exceeded, or any error exposing Timeout() bool == true.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	var te *TimeoutError
	if stdErrors.As(err, &te) {
		return true
	}
	if stdErrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var toErr interface{ Timeout() bool }
	if stdErrors.As(err, &toErr) && toErr.Timeout() {
		return true
	}
	return false
}

// IsPipelineError returns true if the error chain contains any of this
// package's tagged kinds.
func IsPipelineError(err error) bool {
	if err == nil {
		return false
	}
	var pm pipelineMarker
	return stdErrors.As(err, &pm)
}

// Constructors — encourage contextual wrapping with %w at call sites.
func NewCodecError(op string, offset int64, cause error) error {
	return &CodecError{Op: op, Offset: offset, Err: cause}
}
func NewCaptureError(op string, cause error) error { return &CaptureError{Op: op, Err: cause} }
func NewConvertError(op string, cause error) error { return &ConvertError{Op: op, Err: cause} }
func NewTimeoutError(op string, d time.Duration, cause error) error {
	return &TimeoutError{Op: op, Duration: d, Err: cause}
}

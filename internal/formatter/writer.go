// Package formatter renders packets and analyzer statistics as human-readable
// text (spec §4.E).
package formatter

import (
	"fmt"
	"io"
	"os"
)

// OutputWriter wraps either stdout or a created file behind one small
// writeln/write/flush surface.
type OutputWriter struct {
	w     io.Writer
	close func() error
}

// NewOutputWriter opens path for writing, or returns a writer over stdout
// when path is empty.
func NewOutputWriter(path string) (*OutputWriter, error) {
	if path == "" {
		return &OutputWriter{w: os.Stdout, close: func() error { return nil }}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output file %q: %w", path, err)
	}
	return &OutputWriter{w: f, close: f.Close}, nil
}

func (o *OutputWriter) Writeln(format string, args ...any) error {
	_, err := fmt.Fprintf(o.w, format+"\n", args...)
	return err
}

func (o *OutputWriter) Write(format string, args ...any) error {
	_, err := fmt.Fprintf(o.w, format, args...)
	return err
}

func (o *OutputWriter) Close() error { return o.close() }

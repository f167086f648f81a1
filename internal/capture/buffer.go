package capture

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/alsstream/als-pipeline/internal/alserrors"
	"github.com/alsstream/als-pipeline/internal/bufpool"
	"github.com/alsstream/als-pipeline/internal/logger"
	"github.com/alsstream/als-pipeline/internal/metrics"
)

const flushThreshold = 1 << 20 // 1 MiB, spec §4.C rule 5

// PersistedBuffer accumulates raw wire bytes and flushes them to
// "${dataDir}/${prefix}${index}.bin" once the accumulated size reaches
// flushThreshold, or on a forced flush at shutdown.
type PersistedBuffer struct {
	dataDir string
	prefix  string
	index   int
	buf     []byte
}

func NewPersistedBuffer(dataDir, prefix string) *PersistedBuffer {
	return &PersistedBuffer{
		dataDir: dataDir,
		prefix:  prefix,
		buf:     bufpool.Get(0),
	}
}

// Append adds b to the buffer and flushes automatically once the threshold
// is crossed.
func (b *PersistedBuffer) Append(data []byte) error {
	b.buf = append(b.buf, data...)
	if len(b.buf) >= flushThreshold {
		return b.Flush()
	}
	return nil
}

// Flush writes any accumulated bytes to the next indexed file and clears
// the buffer. A no-op when the buffer is empty.
func (b *PersistedBuffer) Flush() error {
	if len(b.buf) == 0 {
		return nil
	}
	path := filepath.Join(b.dataDir, fmt.Sprintf("%s%d.bin", b.prefix, b.index))
	if err := os.WriteFile(path, b.buf, 0o644); err != nil {
		return alserrors.NewCaptureError("buffer.flush", err)
	}
	logger.Info("persisted capture buffer flushed", "path", path, "bytes", len(b.buf))
	metrics.BytesFlushed.Add(float64(len(b.buf)))
	b.index++
	b.buf = b.buf[:0]
	return nil
}

func (b *PersistedBuffer) Index() int { return b.index }

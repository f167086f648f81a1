package alsreader

import (
	"bufio"
	"encoding/binary"
	"io"
	"time"

	"github.com/alsstream/als-pipeline/internal/alserrors"
	"github.com/alsstream/als-pipeline/internal/alsproto"
)

// Legacy reads the protobuf-record-only framing (spec §4.A): identical to
// Mixed minus the timestamp trailer. The reader assigns wall-clock time to
// every record it yields.
type Legacy struct {
	r      *bufio.Reader
	offset int64
	now    func() time.Time
}

func NewLegacy(r io.Reader) *Legacy {
	return &Legacy{r: newBuffered(r), now: time.Now}
}

func (l *Legacy) ReadPacket() (*alsproto.PacketInfo, error) {
	start := l.offset
	var lenBuf [2]byte
	if _, err := io.ReadFull(l.r, lenBuf[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, alserrors.NewCodecError("legacy.read_length", start, err)
	}
	l.offset += 2
	n := binary.BigEndian.Uint16(lenBuf[:])

	raw := make([]byte, n)
	if _, err := io.ReadFull(l.r, raw); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, io.EOF
		}
		return nil, alserrors.NewCodecError("legacy.read_body", l.offset, err)
	}
	l.offset += int64(n)

	dp, err := alsproto.DecodeDataPack(raw)
	if err != nil {
		return nil, alserrors.NewCodecError("legacy.decode_datapack", start, err)
	}

	return &alsproto.PacketInfo{
		Timestamp: l.now().UTC(),
		DataPack:  *dp,
		RawData:   raw,
	}, nil
}

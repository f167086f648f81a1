package alsreader

import (
	"bufio"
	"encoding/binary"
	"io"
	"time"

	"github.com/alsstream/als-pipeline/internal/alserrors"
	"github.com/alsstream/als-pipeline/internal/alsproto"
)

// Standard reads the single-record replay framing: u16 total_length | u8
// live_marker | i64 microseconds | protobuf bytes (spec §4.A).
type Standard struct {
	r      *bufio.Reader
	offset int64
}

func NewStandard(r io.Reader) *Standard {
	return &Standard{r: newBuffered(r)}
}

func (s *Standard) ReadPacket() (*alsproto.PacketInfo, error) {
	start := s.offset
	var lenBuf [2]byte
	if _, err := io.ReadFull(s.r, lenBuf[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, alserrors.NewCodecError("standard.read_length", start, err)
	}
	s.offset += 2
	totalLen := binary.BigEndian.Uint16(lenBuf[:])
	if totalLen < 9 {
		return nil, alserrors.NewCodecError("standard.bad_length", start, errShortRecord(totalLen))
	}

	body := make([]byte, totalLen)
	if _, err := io.ReadFull(s.r, body); err != nil {
		return nil, alserrors.NewCodecError("standard.read_body", s.offset, err)
	}
	s.offset += int64(totalLen)

	marker := body[0]
	if marker != 0x01 {
		return nil, alserrors.NewCodecError("standard.bad_marker", start, errBadMarker(marker))
	}
	micros := int64(binary.BigEndian.Uint64(body[1:9]))
	raw := body[9:]

	dp, err := alsproto.DecodeDataPack(raw)
	if err != nil {
		return nil, alserrors.NewCodecError("standard.decode_datapack", start, err)
	}

	return &alsproto.PacketInfo{
		Timestamp: microsToTime(micros),
		DataPack:  *dp,
		RawData:   raw,
	}, nil
}

func microsToTime(micros int64) time.Time {
	return time.Unix(0, micros*int64(time.Microsecond)).UTC()
}

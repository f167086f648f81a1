package alsreader

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/alsstream/als-pipeline/internal/alserrors"
	"github.com/alsstream/als-pipeline/internal/alsproto"
)

// Mixed reads the alternating protobuf-record / timestamp-record framing a
// capture session writes live (spec §4.A, §4.B). It is a two-state pull
// machine: ExpectProtobuf decodes and parks a record, ExpectTimestamp reads
// the paired 9-byte trailer and yields the completed packet.
type Mixed struct {
	r      *bufio.Reader
	offset int64

	parkedRaw   []byte
	parkedPack  *alsproto.DataPack
	parkedStart int64
}

func NewMixed(r io.Reader) *Mixed {
	return &Mixed{r: newBuffered(r)}
}

func (m *Mixed) ReadPacket() (*alsproto.PacketInfo, error) {
	if m.parkedPack == nil {
		if err := m.readProtobufRecord(); err != nil {
			return nil, err
		}
	}
	return m.readTimestampRecord()
}

func (m *Mixed) readProtobufRecord() error {
	start := m.offset
	var lenBuf [2]byte
	if _, err := io.ReadFull(m.r, lenBuf[:]); err != nil {
		if err == io.EOF {
			return io.EOF
		}
		return alserrors.NewCodecError("mixed.read_length", start, err)
	}
	m.offset += 2
	n := binary.BigEndian.Uint16(lenBuf[:])

	raw := make([]byte, n)
	if _, err := io.ReadFull(m.r, raw); err != nil {
		// EOF mid-pair is end-of-stream, not an error.
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return io.EOF
		}
		return alserrors.NewCodecError("mixed.read_body", m.offset, err)
	}
	m.offset += int64(n)

	dp, err := alsproto.DecodeDataPack(raw)
	if err != nil {
		return alserrors.NewCodecError("mixed.decode_datapack", start, err)
	}

	m.parkedRaw = raw
	m.parkedPack = dp
	m.parkedStart = start
	return nil
}

func (m *Mixed) readTimestampRecord() (*alsproto.PacketInfo, error) {
	var trailer [9]byte
	if _, err := io.ReadFull(m.r, trailer[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, io.EOF
		}
		return nil, alserrors.NewCodecError("mixed.read_trailer", m.offset, err)
	}
	m.offset += 9
	if trailer[0] != 8 {
		return nil, alserrors.NewCodecError("mixed.bad_trailer_length", m.parkedStart, fmt.Errorf("unexpected trailer length byte 0x%02x, want 0x08", trailer[0]))
	}
	micros := int64(binary.BigEndian.Uint64(trailer[1:9]))

	p := &alsproto.PacketInfo{
		Timestamp: microsToTime(micros),
		DataPack:  *m.parkedPack,
		RawData:   m.parkedRaw,
	}
	m.parkedPack = nil
	m.parkedRaw = nil
	return p, nil
}

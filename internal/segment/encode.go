package segment

import (
	"encoding/binary"

	"github.com/alsstream/als-pipeline/internal/alsproto"
)

// EncodeStandardRecord serialises p using the single-record replay framing
// (spec §4.A): u16 total_length | u8 live_marker | i64 microseconds |
// protobuf bytes, including the 2-byte length prefix.
func EncodeStandardRecord(p *alsproto.PacketInfo) []byte {
	protobufLen := len(p.RawData)
	totalLen := 9 + protobufLen
	out := make([]byte, 2+totalLen)
	binary.BigEndian.PutUint16(out[0:2], uint16(totalLen))
	out[2] = 0x01
	binary.BigEndian.PutUint64(out[3:11], uint64(p.Timestamp.UnixMicro()))
	copy(out[11:], p.RawData)
	return out
}

// EncodedSize returns the byte length of the on-disk standard-framed record
// for p, used to enforce the per-packet budget.
func EncodedSize(p *alsproto.PacketInfo) int {
	return 2 + 9 + len(p.RawData)
}

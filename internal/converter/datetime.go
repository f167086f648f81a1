package converter

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// ticksEpochOffset is the number of .NET DateTime ticks (100ns units) from
// year 0001 to the Unix epoch.
const ticksEpochOffset = 621355968000000000
const ticksPerSecond = 10_000_000
const jstOffsetSeconds = 9 * 3600

// DateTimeConvert is the decoded DateTimeReceiver payload (glossary:
// "DateTime payload").
type DateTimeConvert struct {
	DateTime time.Time
	SyncTime float64
}

func (d DateTimeConvert) String() string {
	return fmt.Sprintf("DateTimeConvert{date_time=%s, sync_time=%.3fs}",
		d.DateTime.Format(time.RFC3339Nano), d.SyncTime)
}

// ParseDateTimePayload decodes a DateTimeReceiver Update payload: u64 LE
// ticks (top 2 bits are the DateTimeKind flag and are masked off), f64 LE
// sync_time in seconds (glossary: "DateTime payload").
func ParseDateTimePayload(payload []byte) (DateTimeConvert, error) {
	if len(payload) < 16 {
		return DateTimeConvert{}, fmt.Errorf("datetime payload too short: %d bytes", len(payload))
	}
	rawTicks := binary.LittleEndian.Uint64(payload[0:8])
	ticks := int64(rawTicks &^ (uint64(0b11) << 62))
	syncBits := binary.LittleEndian.Uint64(payload[8:16])
	syncTime := math.Float64frombits(syncBits)

	unixTicks := ticks - ticksEpochOffset
	seconds := unixTicks / ticksPerSecond
	remainderTicks := unixTicks % ticksPerSecond
	nanos := remainderTicks * 100

	utc := time.Unix(seconds, nanos).UTC().Add(-jstOffsetSeconds * time.Second)
	return DateTimeConvert{DateTime: utc, SyncTime: syncTime}, nil
}

package converter

import (
	"bytes"
	"time"

	"github.com/alsstream/als-pipeline/internal/alsproto"
	"github.com/alsstream/als-pipeline/internal/logger"
)

const fixedTailInterval = 20 * time.Millisecond

type timestampRange struct {
	startIndex int
	endIndex   int
	startTime  time.Time
	endTime    time.Time
}

// ReconstructTimestamps runs the two-pass auto-timestamp algorithm over a
// buffered run of packets (spec §4.H). It mutates and returns the same
// backing slice with corrected timestamps.
func ReconstructTimestamps(buf []*alsproto.PacketInfo) []*alsproto.PacketInfo {
	if len(buf) == 0 {
		return buf
	}

	musicBroadcasters := make(map[int32]bool)
	var dateTimeReceiverID int32
	var lastConfirmed *time.Time
	lastConfirmedIndex := 0
	var ranges []timestampRange

	for i, p := range buf {
		for _, f := range p.DataPack.Frames {
			switch m := f.Message.(type) {
			case *alsproto.InstantiateObject:
				if bytes.Contains(m.PrefabName, []byte("TimedAsset/DateTimeReceiver")) {
					dateTimeReceiverID = m.ObjectID
				}
				if bytes.Contains(m.PrefabName, []byte("VoiceObject/MusicBroadcaster")) {
					musicBroadcasters[m.ObjectID] = true
				}
			case *alsproto.UpdateObject:
				if m.ObjectID != dateTimeReceiverID {
					continue
				}
				dt, err := ParseDateTimePayload(m.Payload)
				if err != nil {
					continue
				}
				if lastConfirmed == nil {
					t := dt.DateTime
					lastConfirmed = &t
					lastConfirmedIndex = i
					continue
				}
				ranges = append(ranges, timestampRange{
					startIndex: lastConfirmedIndex,
					endIndex:   i,
					startTime:  *lastConfirmed,
					endTime:    dt.DateTime,
				})
				t := dt.DateTime
				lastConfirmed = &t
				lastConfirmedIndex = i
			}
		}
	}

	for _, r := range ranges {
		applyRange(buf, r, musicBroadcasters)
	}

	if len(ranges) > 0 {
		last := ranges[len(ranges)-1]
		applyFixedTail(buf, last.endIndex, last.endTime)
	}

	return buf
}

func applyRange(buf []*alsproto.PacketInfo, r timestampRange, musicBroadcasters map[int32]bool) {
	totalDelta := r.endTime.Sub(r.startTime)
	if totalDelta <= 0 {
		logger.Warn("non-positive time delta between confirmed timestamps, skipping adjustment",
			"start", r.startTime, "end", r.endTime)
		return
	}
	if r.startIndex >= r.endIndex {
		return
	}

	type info struct {
		index   int
		isMusic bool
	}
	infos := make([]info, 0, r.endIndex-r.startIndex+1)
	musicCount := 0
	for i := r.startIndex; i <= r.endIndex; i++ {
		isMusic := false
		for _, f := range buf[i].DataPack.Frames {
			if u, ok := f.Message.(*alsproto.UpdateObject); ok && musicBroadcasters[u.ObjectID] {
				isMusic = true
				musicCount++
				break
			}
		}
		infos = append(infos, info{index: i, isMusic: isMusic})
	}

	if musicCount == 0 {
		total := len(infos)
		if total == 1 {
			buf[r.endIndex].Timestamp = r.endTime
			return
		}
		step := totalDelta / time.Duration(total-1)
		for idx, it := range infos {
			buf[it.index].Timestamp = r.startTime.Add(step * time.Duration(idx))
		}
		buf[r.endIndex].Timestamp = r.endTime
		return
	}

	perMusicSegment := totalDelta / time.Duration(musicCount)
	current := r.startTime
	// infos[0] is the start anchor and keeps its authoritative time.
	buf[r.startIndex].Timestamp = r.startTime
	musicSegmentStart := 1

	for localIdx, it := range infos {
		if localIdx == 0 || !it.isMusic {
			continue
		}
		before := localIdx - musicSegmentStart
		if before > 0 {
			step := perMusicSegment / time.Duration(before+1)
			for step_, it2 := range infos[musicSegmentStart:localIdx] {
				buf[it2.index].Timestamp = current.Add(step * time.Duration(step_+1))
			}
		}
		current = current.Add(perMusicSegment)
		buf[it.index].Timestamp = current
		musicSegmentStart = localIdx + 1
	}

	if musicSegmentStart < len(infos) {
		remaining := len(infos) - musicSegmentStart
		if remaining > 0 {
			remainingTime := r.endTime.Sub(current)
			step := remainingTime / time.Duration(remaining+1)
			for idx, it := range infos[musicSegmentStart:] {
				buf[it.index].Timestamp = current.Add(step * time.Duration(idx+1))
			}
		}
	}

	buf[r.endIndex].Timestamp = r.endTime
}

// applyFixedTail assigns the packets after the final anchor a fixed 20ms
// cadence (spec §4.H step 3).
func applyFixedTail(buf []*alsproto.PacketInfo, lastEndIndex int, lastEndTime time.Time) {
	start := lastEndIndex + 1
	t := lastEndTime
	for i := start; i < len(buf); i++ {
		t = t.Add(fixedTailInterval)
		buf[i].Timestamp = t
	}
}

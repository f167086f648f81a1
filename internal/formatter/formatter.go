package formatter

import (
	"encoding/binary"
	"encoding/hex"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/alsstream/als-pipeline/internal/alsproto"
	"github.com/alsstream/als-pipeline/internal/analyzer"
	"github.com/alsstream/als-pipeline/internal/converter"
)

// PacketFormatter prints full per-packet detail, tracking object_id ->
// prefab_name across calls so later UpdateObject frames know which payload
// interpreter to dispatch to.
type PacketFormatter struct {
	objects map[int32]string
}

func NewPacketFormatter() *PacketFormatter {
	return &PacketFormatter{objects: make(map[int32]string)}
}

// FormatPacket writes one packet's full detail: header, digest, raw hex
// preview, control message, and each frame (spec §4.E).
func (pf *PacketFormatter) FormatPacket(w *OutputWriter, packetNumber int, p *alsproto.PacketInfo) error {
	if err := w.Writeln("=== Packet #%d: %d bytes ===", packetNumber, len(p.RawData)+9); err != nil {
		return err
	}

	micros := p.Timestamp.UnixMicro()
	if err := w.Writeln("  Timestamp: %s (%d / 0x%x)",
		p.Timestamp.UTC().Format("2006-01-02 15:04:05.000000")+" UTC", micros, micros); err != nil {
		return err
	}

	digest := alsproto.PacketDigest(p.RawData)
	if err := w.Writeln("  Protobuf SHA-256: %s", hex.EncodeToString(digest[:])); err != nil {
		return err
	}

	debugLen := min(32, len(p.RawData))
	if err := w.Writeln("  Raw data (first %d bytes): %s", debugLen, hexString(p.RawData[:debugLen])); err != nil {
		return err
	}

	if err := pf.formatDataPack(w, &p.DataPack); err != nil {
		return err
	}
	return w.Writeln("")
}

func (pf *PacketFormatter) formatDataPack(w *OutputWriter, dp *alsproto.DataPack) error {
	if dp.Control != nil {
		if err := w.Writeln("  Control message:"); err != nil {
			return err
		}
		if err := formatControl(w, dp.Control); err != nil {
			return err
		}
	} else {
		if err := w.Writeln("  No control message"); err != nil {
			return err
		}
	}

	if len(dp.Frames) == 0 {
		return w.Writeln("  No frames")
	}

	if err := w.Writeln("  Frames (%d):", len(dp.Frames)); err != nil {
		return err
	}
	for i, f := range dp.Frames {
		if err := w.Writeln("    Frame #%d:", i+1); err != nil {
			return err
		}
		digest := alsproto.FrameDigest(f)
		if err := w.Writeln("      SHA-256: %x", digest); err != nil {
			return err
		}
		if f.Message == nil {
			if err := w.Writeln("      No message in frame"); err != nil {
				return err
			}
			continue
		}
		if err := pf.formatFrameMessage(w, f.Message); err != nil {
			return err
		}
	}
	return nil
}

func formatControl(w *OutputWriter, ctl alsproto.Control) error {
	switch c := ctl.(type) {
	case alsproto.ControlData:
		return w.Writeln("    Type: Data, Value: %v", c.Value)
	case alsproto.ControlPong:
		return w.Writeln("    Type: Pong, Value: %v", c.Value)
	case alsproto.ControlSegmentStartedAt:
		return w.Writeln("    Type: SegmentStartedAt, Timestamp: %d", c.Micros)
	case alsproto.ControlCacheEnded:
		return w.Writeln("    Type: CacheEnded, Value: %v", c.Value)
	}
	return nil
}

func (pf *PacketFormatter) formatFrameMessage(w *OutputWriter, msg alsproto.Message) error {
	switch m := msg.(type) {
	case *alsproto.InstantiateObject:
		prefab := string(m.PrefabName)
		pf.objects[m.ObjectID] = prefab
		if err := w.Writeln("      Type: InstantiateObject"); err != nil {
			return err
		}
		if err := w.Writeln("        Object ID: %d", m.ObjectID); err != nil {
			return err
		}
		if err := w.Writeln("        Owner ID: %q", string(m.OwnerID)); err != nil {
			return err
		}
		if err := w.Writeln("        Prefab: %q", prefab); err != nil {
			return err
		}
		if m.Target != nil {
			if err := w.Writeln("        Target: %s", targetString(m.Target)); err != nil {
				return err
			}
		}
		debugLen := min(32, len(m.InitData))
		if err := w.Writeln("        Init data size: %d bytes", len(m.InitData)); err != nil {
			return err
		}
		return w.Writeln("        Init data (first %d bytes): %s", debugLen, hexString(m.InitData[:debugLen]))

	case *alsproto.UpdateObject:
		if err := w.Writeln("      Type: UpdateObject"); err != nil {
			return err
		}
		if err := w.Writeln("        Object ID: %d", m.ObjectID); err != nil {
			return err
		}
		if err := w.Writeln("        Method: %d", m.Method); err != nil {
			return err
		}
		if m.Target != nil {
			if err := w.Writeln("        Target: %s", targetString(m.Target)); err != nil {
				return err
			}
		}
		if prefab, ok := pf.objects[m.ObjectID]; ok {
			if err := w.Writeln("        Prefab: %s", prefab); err != nil {
				return err
			}
			if err := w.Writeln("        Parsed Payload: %s", formatUpdatePayload(prefab, m.Payload)); err != nil {
				return err
			}
		} else {
			if err := w.Writeln("        <unknown prefab>"); err != nil {
				return err
			}
		}
		debugLen := min(32, len(m.Payload))
		if err := w.Writeln("        Payload size: %d bytes", len(m.Payload)); err != nil {
			return err
		}
		return w.Writeln("        Payload (first %d bytes): %s", debugLen, hexString(m.Payload[:debugLen]))

	case *alsproto.DestroyObject:
		if err := w.Writeln("      Type: DestroyObject"); err != nil {
			return err
		}
		return w.Writeln("        Object ID: %d", m.ObjectID)

	case *alsproto.Room:
		if err := w.Writeln("      Type: Room"); err != nil {
			return err
		}
		if err := w.Writeln("        ID: %q", string(m.ID)); err != nil {
			return err
		}
		if err := w.Writeln("        Started: %d", m.StartedAt); err != nil {
			return err
		}
		return w.Writeln("        Ended: %d", m.EndedAt)

	case *alsproto.AuthorizeResponse:
		if err := w.Writeln("      Type: AuthorizeResponse"); err != nil {
			return err
		}
		if err := w.Writeln("        Player ID: %q", string(m.PlayerID)); err != nil {
			return err
		}
		return w.Writeln("        Role: %d", m.Role)

	case *alsproto.JoinRoomResponse:
		if err := w.Writeln("      Type: JoinRoomResponse"); err != nil {
			return err
		}
		return w.Writeln("        Joined at: %d", m.JoinedAt)
	}
	return nil
}

// SummarizeMessage renders a one-line summary of a frame's message, used by
// the diff tool to describe unmatched frames.
func SummarizeMessage(msg alsproto.Message) string {
	switch m := msg.(type) {
	case *alsproto.Room:
		return "Room(id: " + string(m.ID) + ")"
	case *alsproto.InstantiateObject:
		return "InstantiateObject(prefab: " + string(m.PrefabName) + ", object_id: " + strconv.Itoa(int(m.ObjectID)) + ")"
	case *alsproto.UpdateObject:
		return "UpdateObject(object_id: " + strconv.Itoa(int(m.ObjectID)) + ", method: " + strconv.Itoa(int(m.Method)) + ", payload: " + strconv.Itoa(len(m.Payload)) + " bytes)"
	case *alsproto.DestroyObject:
		return "DestroyObject(object_id: " + strconv.Itoa(int(m.ObjectID)) + ")"
	default:
		return "Unknown"
	}
}

func targetString(t alsproto.Target) string {
	switch target := t.(type) {
	case alsproto.TargetCurrentPlayer:
		return "CurrentPlayer"
	case alsproto.TargetRoomAll:
		return "RoomAll(room_id: " + string(target.RoomID) + ")"
	case alsproto.TargetPlayerID:
		return "PlayerId(player_id: " + string(target.PlayerID) + ")"
	}
	return "unknown"
}

// formatUpdatePayload dispatches to a payload interpreter by prefab suffix
// (spec §4.E): DateTimeReceiver and TimelineReceiver are understood, anything
// else is reported unparsed.
func formatUpdatePayload(prefab string, payload []byte) string {
	switch {
	case strings.HasSuffix(prefab, "DateTimeReceiver"):
		dt, err := converter.ParseDateTimePayload(payload)
		if err != nil {
			return "<unparsed DateTimeReceiver payload>"
		}
		return dt.String()
	case strings.HasSuffix(prefab, "TimelineReceiver"):
		return formatTimelinePayload(payload)
	default:
		return "<unparsed payload, length: " + strconv.Itoa(len(payload)) + " bytes>"
	}
}

func formatTimelinePayload(payload []byte) string {
	if len(payload) < 16 {
		return "<unparsed TimelineReceiver payload>"
	}
	id := int64(binary.LittleEndian.Uint64(payload[0:8]))
	sec := math.Float64frombits(binary.LittleEndian.Uint64(payload[8:16]))
	return "TimelineCommand{timeline_id=" + strconv.FormatInt(id, 10) + ", start_time_sec=" + strconv.FormatFloat(sec, 'f', 3, 64) + "}"
}

// FormatStats prints the analyzer's aggregate statistics.
func FormatStats(w *OutputWriter, s analyzer.Stats) error {
	if err := w.Writeln(""); err != nil {
		return err
	}
	if err := w.Writeln("================== STATISTICS =================="); err != nil {
		return err
	}
	if err := w.Writeln("Total packets: %d", s.TotalPackets); err != nil {
		return err
	}
	if err := w.Writeln("Packets with control: %d (%.1f%%)", s.PacketsWithControl, percentage(s.PacketsWithControl, s.TotalPackets)); err != nil {
		return err
	}
	if err := w.Writeln("Packets with frames: %d (%.1f%%)", s.PacketsWithFrames, percentage(s.PacketsWithFrames, s.TotalPackets)); err != nil {
		return err
	}
	if err := w.Writeln("Total frames: %d", s.TotalFrames); err != nil {
		return err
	}
	if err := w.Writeln(""); err != nil {
		return err
	}

	if s.Control.Total > 0 {
		if err := w.Writeln("Control Messages:"); err != nil {
			return err
		}
		type row struct {
			label string
			n     uint32
		}
		for _, r := range []row{
			{"Data", s.Control.DataCount},
			{"Pong", s.Control.PongCount},
			{"SegmentStartedAt", s.Control.SegmentStartedAtCount},
			{"CacheEnded", s.Control.CacheEndedCount},
		} {
			if r.n == 0 {
				continue
			}
			if err := w.Writeln("  %s: %d (%.1f%%)", r.label, r.n, percentage(r.n, s.Control.Total)); err != nil {
				return err
			}
		}
		if err := w.Writeln(""); err != nil {
			return err
		}
	}

	if s.Frames.Total > 0 {
		if err := w.Writeln("Frame Messages:"); err != nil {
			return err
		}
		type row struct {
			label string
			n     uint32
		}
		for _, r := range []row{
			{"InstantiateObject", s.Frames.InstantiateObjectCount},
			{"UpdateObject", s.Frames.UpdateObjectCount},
			{"DestroyObject", s.Frames.DestroyObjectCount},
			{"Room", s.Frames.RoomCount},
			{"AuthorizeResponse", s.Frames.AuthorizeResponseCount},
			{"JoinRoomResponse", s.Frames.JoinRoomResponseCount},
		} {
			if r.n == 0 {
				continue
			}
			if err := w.Writeln("  %s: %d (%.1f%%)", r.label, r.n, percentage(r.n, s.Frames.Total)); err != nil {
				return err
			}
		}
		if err := w.Writeln(""); err != nil {
			return err
		}
	}

	if len(s.UnknownFields) > 0 {
		if err := w.Writeln("Unknown Fields:"); err != nil {
			return err
		}
		nums := make([]int, 0, len(s.UnknownFields))
		for n := range s.UnknownFields {
			nums = append(nums, int(n))
		}
		sort.Ints(nums)
		for _, n := range nums {
			if err := w.Writeln("  Field #%d: %d occurrences", n, s.UnknownFields[uint32(n)]); err != nil {
				return err
			}
		}
		if err := w.Writeln(""); err != nil {
			return err
		}
	}

	if err := w.Writeln("================================================"); err != nil {
		return err
	}
	return w.Writeln("")
}

func percentage(count, total uint32) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total) * 100
}

func hexString(b []byte) string {
	var sb strings.Builder
	for i, c := range b {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(hex.EncodeToString([]byte{c}))
	}
	return sb.String()
}


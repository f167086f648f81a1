package segment

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/alsstream/als-pipeline/internal/metrics"
)

var jst = time.FixedZone("JST", 9*3600)

// indexMetadata mirrors the index.md schema (spec §6): field order matches
// the original's JSON object construction order.
type indexMetadata struct {
	Path          string `json:"path"`
	RoomID        string `json:"room_id"`
	PlaylistFile  string `json:"playlist_file"`
	LiveStartedAt string `json:"live_started_at"`
	JoinedRoomAt  string `json:"joined_room_at"`
}

// Write renders the builder's segments to OutputDir: segment_NNNNN.ts files,
// index.m3u8, and index.md (spec §4.F). startedAt is the Room's
// started_at (microseconds since epoch); roomID is the Room id bytes,
// UTF-8-lossy decoded for the metadata file.
func (b *Builder) Write(startedAt int64, roomID []byte) error {
	outputDir := b.OutputDir
	if b.partCount > 1 {
		outputDir = fmt.Sprintf("%s_%03d", b.OutputDir, b.partCount-1)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return err
	}

	segments := b.Segments()
	if len(segments) == 0 {
		return nil
	}

	for _, seg := range segments {
		if err := writeSegmentFile(outputDir, seg); err != nil {
			return err
		}
	}
	if err := writePlaylist(outputDir, segments); err != nil {
		return err
	}
	return writeMetadata(outputDir, b.MetadataPath, startedAt, roomID, segments)
}

func writeSegmentFile(outputDir string, seg *Segment) error {
	path := filepath.Join(outputDir, fmt.Sprintf("segment_%05d.ts", seg.Number))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create segment file %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, p := range seg.Packets {
		if _, err := w.Write(EncodeStandardRecord(p)); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	metrics.SegmentsEmitted.Inc()
	return nil
}

func writePlaylist(outputDir string, segments []*Segment) error {
	path := filepath.Join(outputDir, "index.m3u8")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create m3u8 file %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, "#EXTM3U8")
	fmt.Fprintln(w, "#EXT-X-VERSION:3")
	fmt.Fprintln(w, "#EXT-X-PLAYLIST-TYPE:VOD")
	fmt.Fprintln(w, "#EXT-X-MEDIA-SEQUENCE:0")
	fmt.Fprintln(w, "#EXT-X-TARGETDURATION:10")
	for _, seg := range segments {
		fmt.Fprintf(w, "#EXTINF:%.3f,\nsegment_%05d.ts\n", seg.Duration.Seconds(), seg.Number)
	}
	fmt.Fprintln(w, "#EXT-X-ENDLIST")
	return w.Flush()
}

func writeMetadata(outputDir, metadataPath string, startedAt int64, roomID []byte, segments []*Segment) error {
	path := filepath.Join(outputDir, "index.md")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create metadata file %s: %w", path, err)
	}
	defer f.Close()

	liveStartedAt := time.UnixMicro(startedAt).In(jst).Format(time.RFC3339)
	joinedRoomAt := segments[0].FirstTimestamp().In(jst).Format(time.RFC3339)
	if metadataPath == "" {
		metadataPath = "/"
	}

	metadata := indexMetadata{
		Path:          metadataPath,
		RoomID:        string(roomID),
		PlaylistFile:  "index.m3u8",
		LiveStartedAt: liveStartedAt,
		JoinedRoomAt:  joinedRoomAt,
	}
	b, err := json.Marshal(metadata)
	if err != nil {
		return err
	}
	b = append(b, '\n')
	_, err = f.Write(b)
	return err
}

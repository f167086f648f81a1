// Package editor implements timeline-ID replacement and timeshift editing
// over a directory of converted segment files (spec §4.I).
package editor

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/alsstream/als-pipeline/internal/alserrors"
	"github.com/alsstream/als-pipeline/internal/alsproto"
	"github.com/alsstream/als-pipeline/internal/alsreader"
	"github.com/alsstream/als-pipeline/internal/logger"
	"github.com/alsstream/als-pipeline/internal/segment"
)

// Options configures one edit run.
type Options struct {
	TargetTimelineIDs []int64
	TimeshiftMS       *int64
}

// Editor rewrites TimelineReceiver update payloads across an ordered run of
// .ts files, cycling target_timeline_ids round-robin and caching the most
// recent modification per object so replay-cache packets (those before the
// first CacheEnded control in files after the first) reproduce the same
// state instead of advancing the cycle again.
type Editor struct {
	inputDir, outputDir string
	opts                Options

	timelineReceivers map[int32]bool
	modifiedStates    map[int32][]byte
	cursor            int
}

// New builds an Editor. inputDir must already exist; outputDir is created if
// missing.
func New(inputDir, outputDir string, opts Options) (*Editor, error) {
	info, err := os.Stat(inputDir)
	if err != nil || !info.IsDir() {
		return nil, alserrors.NewConvertError("editor.new", fmt.Errorf("input path must be a directory: %s", inputDir))
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, alserrors.NewConvertError("editor.new", err)
	}
	return &Editor{
		inputDir:          inputDir,
		outputDir:         outputDir,
		opts:              opts,
		timelineReceivers: make(map[int32]bool),
		modifiedStates:    make(map[int32][]byte),
	}, nil
}

// Process edits every .ts file in the input directory, in filename order,
// writing the edited copy under the output directory with the same name.
func (e *Editor) Process() error {
	logger.Info("starting edit process", "input_dir", e.inputDir, "output_dir", e.outputDir)

	entries, err := tsFilesSorted(e.inputDir)
	if err != nil {
		return alserrors.NewConvertError("editor.process", err)
	}
	if len(entries) == 0 {
		logger.Warn("no .ts files found in input directory")
		return nil
	}
	logger.Info("found files to process", "count", len(entries))

	for i, name := range entries {
		isFirstFile := i == 0
		if err := e.processFile(name, isFirstFile); err != nil {
			return err
		}
	}
	logger.Info("edit process completed")
	return nil
}

func tsFilesSorted(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".ts" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (e *Editor) processFile(name string, isFirstFile bool) error {
	inPath := filepath.Join(e.inputDir, name)
	outPath := filepath.Join(e.outputDir, name)

	in, err := os.Open(inPath)
	if err != nil {
		return alserrors.NewConvertError("editor.process_file", err)
	}
	defer in.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return alserrors.NewConvertError("editor.process_file", err)
	}
	defer out.Close()

	reader := alsreader.NewStandard(in)

	hasSeenCacheEnded := false
	packetCount := 0

	for {
		p, err := reader.ReadPacket()
		if err != nil {
			break
		}
		if _, ok := p.DataPack.Control.(alsproto.ControlCacheEnded); ok {
			hasSeenCacheEnded = true
		}

		modified := e.trackAndModify(p, isFirstFile, hasSeenCacheEnded)
		if modified {
			p.RawData = alsproto.EncodeDataPack(&p.DataPack)
		}
		if _, err := out.Write(segment.EncodeStandardRecord(p)); err != nil {
			return alserrors.NewConvertError("editor.process_file", err)
		}
		packetCount++
	}

	logger.Info("processed file", "packets", packetCount, "output", outPath)
	return nil
}

// trackAndModify rewrites TimelineReceiver update payloads in place,
// reporting whether anything changed.
func (e *Editor) trackAndModify(p *alsproto.PacketInfo, isFirstFile, hasSeenCacheEnded bool) bool {
	modified := false

	for _, f := range p.DataPack.Frames {
		switch m := f.Message.(type) {
		case *alsproto.InstantiateObject:
			if bytes.HasSuffix(m.PrefabName, []byte("TimelineReceiver")) {
				e.timelineReceivers[m.ObjectID] = true
			}
		case *alsproto.UpdateObject:
			if !e.timelineReceivers[m.ObjectID] {
				continue
			}
			tc, err := parseTimelinePayload(m.Payload)
			if err != nil {
				continue
			}

			isCachedState := !isFirstFile && !hasSeenCacheEnded
			if isCachedState {
				if cached, ok := e.modifiedStates[m.ObjectID]; ok {
					m.Payload = cached
					modified = true
					continue
				}
			}

			frameModified := false
			if len(e.opts.TargetTimelineIDs) > 0 {
				tc.TimelineID = e.opts.TargetTimelineIDs[e.cursor]
				e.cursor = (e.cursor + 1) % len(e.opts.TargetTimelineIDs)
				frameModified = true
			}
			if e.opts.TimeshiftMS != nil {
				tc.StartTimeSec += float64(*e.opts.TimeshiftMS) / 1000.0
				frameModified = true
			}

			if frameModified {
				payload := encodeTimelinePayload(tc)
				e.modifiedStates[m.ObjectID] = payload
				m.Payload = payload
				modified = true
			}
		}
	}

	return modified
}

// timelineCommand is the decoded TimelineReceiver update payload: 16 bytes,
// i64 LE timeline_id followed by f64 LE start_time_sec (glossary: "Timeline
// payload").
type timelineCommand struct {
	TimelineID   int64
	StartTimeSec float64
}

func parseTimelinePayload(payload []byte) (timelineCommand, error) {
	if len(payload) < 16 {
		return timelineCommand{}, fmt.Errorf("timeline payload too short: %d bytes", len(payload))
	}
	id := int64(binary.LittleEndian.Uint64(payload[0:8]))
	sec := math.Float64frombits(binary.LittleEndian.Uint64(payload[8:16]))
	return timelineCommand{TimelineID: id, StartTimeSec: sec}, nil
}

func encodeTimelinePayload(tc timelineCommand) []byte {
	out := make([]byte, 16)
	binary.LittleEndian.PutUint64(out[0:8], uint64(tc.TimelineID))
	binary.LittleEndian.PutUint64(out[8:16], math.Float64bits(tc.StartTimeSec))
	return out
}

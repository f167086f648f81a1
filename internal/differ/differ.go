// Package differ compares DataFrames between packets 3 and 4 of two capture
// files, reporting per-frame matches regardless of ordering (spec §4.F
// supplement, grounded on the original proto_diff comparison tool).
package differ

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/alsstream/als-pipeline/internal/alsproto"
	"github.com/alsstream/als-pipeline/internal/alsreader"
	"github.com/alsstream/als-pipeline/internal/formatter"
)

// comparedPacketIndexes are the 1-based packet numbers this tool compares,
// matching the fixed packets 3 and 4 the original tool inspected.
var comparedPacketIndexes = []int{3, 4}

// Result is one compared packet's frame-matching outcome.
type Result struct {
	PacketNumber   int
	FramesEqual    bool
	FrameCount1    int
	FrameCount2    int
	MatchedFrames  int
	ProtobufDigestsEqual bool
}

// Run compares packets 3 and 4 of file1Path and file2Path, writing a full
// report to w and returning each compared packet's result.
func Run(w *formatter.OutputWriter, file1Path, file2Path, convertType string) ([]Result, error) {
	w.Writeln("===========================================")
	w.Writeln("       ALS Standard Files Diff Analysis")
	w.Writeln("===========================================")
	w.Writeln("File 1: %s", file1Path)
	w.Writeln("File 2: %s", file2Path)
	w.Writeln("Comparing DataFrames in packets 3 and 4")
	w.Writeln("===========================================")
	w.Writeln("")

	packets1, err := readPackets(file1Path, convertType, w)
	if err != nil {
		return nil, err
	}
	packets2, err := readPackets(file2Path, convertType, w)
	if err != nil {
		return nil, err
	}

	if len(packets1) < 4 {
		return nil, fmt.Errorf("file 1 has only %d packets, need at least 4", len(packets1))
	}
	if len(packets2) < 4 {
		return nil, fmt.Errorf("file 2 has only %d packets, need at least 4", len(packets2))
	}

	results := make([]Result, 0, len(comparedPacketIndexes))
	for _, n := range comparedPacketIndexes {
		w.Writeln("")
		w.Writeln("Analyzing packet %d DataFrames...", n)
		w.Writeln("=================================")
		r, err := comparePacket(packets1[n-1], packets2[n-1], n, w)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}

	w.Writeln("")
	w.Writeln("===========================================")
	w.Writeln("                 SUMMARY")
	w.Writeln("===========================================")
	allEqual := true
	for _, r := range results {
		w.Writeln("Packet %d DataFrames: %s", r.PacketNumber, equalLabel(r.FramesEqual))
		allEqual = allEqual && r.FramesEqual
	}
	w.Writeln("")
	if allEqual {
		w.Writeln("Both compared packets have identical DataFrames")
	} else {
		w.Writeln("DataFrames differ between files")
	}

	return results, nil
}

func readPackets(path, convertType string, w *formatter.OutputWriter) ([]*alsproto.PacketInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	w.Writeln("Reading file: %s", path)
	w.Writeln("File size: %d bytes", info.Size())

	var reader alsreader.PacketReader
	if convertType == "als-legacy" {
		reader = alsreader.NewLegacy(f)
	} else {
		reader = alsreader.NewStandard(f)
	}

	packets := make([]*alsproto.PacketInfo, 0, 4)
	for len(packets) < 4 {
		p, err := reader.ReadPacket()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		packets = append(packets, p)
	}

	w.Writeln("Read %d packets", len(packets))
	w.Writeln("")
	return packets, nil
}

func comparePacket(p1, p2 *alsproto.PacketInfo, packetNum int, w *formatter.OutputWriter) (Result, error) {
	w.Writeln("Packet %d comparison:", packetNum)

	digest1 := alsproto.PacketDigest(p1.RawData)
	digest2 := alsproto.PacketDigest(p2.RawData)
	w.Writeln("  Protobuf segment digest comparison:")
	w.Writeln("    File 1: %s", hex.EncodeToString(digest1[:]))
	w.Writeln("    File 2: %s", hex.EncodeToString(digest2[:]))
	digestsEqual := digest1 == digest2
	w.Writeln("    Segments equal: %s", yesNo(digestsEqual))
	w.Writeln("")

	frames1 := p1.DataPack.Frames
	frames2 := p2.DataPack.Frames

	w.Writeln("  File 1 has %d DataFrames", len(frames1))
	w.Writeln("  File 2 has %d DataFrames", len(frames2))

	result := Result{PacketNumber: packetNum, FrameCount1: len(frames1), FrameCount2: len(frames2), ProtobufDigestsEqual: digestsEqual}

	if len(frames1) != len(frames2) {
		w.Writeln("  Different number of DataFrames")
		return result, nil
	}
	if len(frames1) == 0 {
		w.Writeln("  No DataFrames found in either packet")
		result.FramesEqual = true
		return result, nil
	}

	unmatched2 := append([]*alsproto.DataFrame(nil), frames2...)
	matched := 0
	var unmatched1 []*alsproto.DataFrame

	for i, f1 := range frames1 {
		d1 := alsproto.FrameDigest(f1)
		found := -1
		for j, f2 := range unmatched2 {
			if alsproto.FrameDigest(f2) == d1 {
				found = j
				break
			}
		}
		if found >= 0 {
			matched++
			unmatched2 = append(unmatched2[:found], unmatched2[found+1:]...)
			w.Writeln("  Frame %d matches (digest: %s)", i+1, hex.EncodeToString(d1[:]))
		} else {
			unmatched1 = append(unmatched1, f1)
			w.Writeln("  Frame %d has no match (digest: %s)", i+1, hex.EncodeToString(d1[:]))
		}
	}

	w.Writeln("  Result: %d/%d frames matched", matched, len(frames1))

	if len(unmatched1) > 0 {
		w.Writeln("  Unmatched frames in File 1:")
		for i, f := range unmatched1 {
			w.Writeln("    Frame %d: %s", i+1, formatter.SummarizeMessage(f.Message))
		}
	}
	if len(unmatched2) > 0 {
		w.Writeln("  Unmatched frames in File 2:")
		for i, f := range unmatched2 {
			w.Writeln("    Frame %d: %s", i+1, formatter.SummarizeMessage(f.Message))
		}
	}

	result.MatchedFrames = matched
	result.FramesEqual = matched == len(frames1)
	return result, nil
}

func equalLabel(equal bool) string {
	if equal {
		return "IDENTICAL"
	}
	return "DIFFERENT"
}

func yesNo(v bool) string {
	if v {
		return "YES"
	}
	return "NO"
}

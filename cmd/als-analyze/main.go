package main

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/alsstream/als-pipeline/internal/alsproto"
	"github.com/alsstream/als-pipeline/internal/alsreader"
	"github.com/alsstream/als-pipeline/internal/analyzer"
	"github.com/alsstream/als-pipeline/internal/catalog"
	"github.com/alsstream/als-pipeline/internal/formatter"
	"github.com/alsstream/als-pipeline/internal/logger"
)

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	if cfg.showVersion {
		fmt.Println(version)
		return
	}

	logger.Init()
	if err := logger.SetLevel(cfg.logLevel); err != nil {
		fmt.Printf("Warning: invalid log level %q, using default\n", cfg.logLevel)
	}
	log := logger.Logger().With("component", "cli")

	if err := run(cfg, log); err != nil {
		log.Error("analysis failed", "error", err)
		os.Exit(1)
	}
	log.Info("analysis complete")
}

func run(cfg *cliConfig, log *slog.Logger) error {
	filter, err := analyzer.NewFilter(cfg.startTime, cfg.endTime)
	if err != nil {
		return fmt.Errorf("parsing time bounds: %w", err)
	}

	files, err := inputFiles(cfg.inputPath)
	if err != nil {
		return fmt.Errorf("resolving input: %w", err)
	}
	log.Info("resolved input files", "count", len(files))

	var cat *catalog.Catalog
	if cfg.catalogPath != "" {
		cat, err = catalog.Open(cfg.catalogPath)
		if err != nil {
			return fmt.Errorf("opening catalog: %w", err)
		}
		defer cat.Close()
	}

	a := analyzer.New()
	for _, path := range files {
		skipped, digest, count, err := analyzeFile(path, cfg.convertType, filter, a, cat, log)
		if err != nil {
			return fmt.Errorf("analyzing %s: %w", path, err)
		}
		if skipped {
			log.Info("skipping unchanged file", "path", path)
			continue
		}
		if cat != nil {
			if err := cat.Upsert(catalog.Record{
				InputPath:         path,
				SHA256FirstPacket: digest,
				TotalPackets:      count,
				LastAnalyzedAt:    time.Now(),
			}); err != nil {
				log.Error("catalog upsert failed", "path", path, "error", err)
			}
		}
	}

	w, err := formatter.NewOutputWriter(cfg.outputPath)
	if err != nil {
		return fmt.Errorf("opening output: %w", err)
	}
	defer w.Close()
	return formatter.FormatStats(w, a.Stats())
}

func analyzeFile(path, convertType string, filter analyzer.PacketFilter, a *analyzer.Analyzer, cat *catalog.Catalog, log *slog.Logger) (skipped bool, digest string, count int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return false, "", 0, err
	}
	defer f.Close()

	reader := newReader(f, convertType)

	first, err := reader.ReadPacket()
	if err == io.EOF {
		return false, "", 0, nil
	}
	if err != nil {
		return false, "", 0, err
	}
	digest = sha256Hex(first.RawData)

	if cat != nil {
		skip, err := cat.ShouldSkip(path, digest)
		if err != nil {
			log.Warn("catalog lookup failed", "path", path, "error", err)
		} else if skip {
			return true, digest, 0, nil
		}
	}

	packets := []*alsproto.PacketInfo{first}
	for {
		p, err := reader.ReadPacket()
		if err == io.EOF {
			break
		}
		if err != nil {
			return false, digest, count, err
		}
		packets = append(packets, p)
	}

	for _, p := range packets {
		if filter.IsPastEnd(p.Timestamp) {
			break
		}
		if !filter.ShouldInclude(p.Timestamp) {
			continue
		}
		a.AnalyzePacket(p)
		count++
	}
	return false, digest, count, nil
}

func newReader(f *os.File, convertType string) alsreader.PacketReader {
	if convertType == "als-legacy" {
		return alsreader.NewLegacy(f)
	}
	return alsreader.NewStandard(f)
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func inputFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}

	type item struct {
		path    string
		modTime int64
	}
	items := make([]item, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		items = append(items, item{path: filepath.Join(path, e.Name()), modTime: fi.ModTime().UnixNano()})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].modTime < items[j].modTime })

	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.path
	}
	return out, nil
}

package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"
)

var version = "dev"

type cliConfig struct {
	inputDir      string
	outputDir     string
	convertType   string
	timeshiftMS   int64
	split         bool
	autoTimestamp bool
	startTime     string
	dataStartTime string
	dataEndTime   string
	metadataPath  string
	logLevel      string
	metricsAddr   string
	showVersion   bool
}

func parseFlags(args []string) (*cliConfig, error) {
	fs := flag.NewFlagSet("als-convert", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	cfg := &cliConfig{}
	fs.StringVar(&cfg.inputDir, "input-dir", "", "Directory of captured .bin files (required)")
	fs.StringVar(&cfg.outputDir, "output-dir", "", "Directory to write converted segments to (required)")
	fs.StringVar(&cfg.convertType, "convert-type", "als", "Input framing: als|als-legacy")
	fs.Int64Var(&cfg.timeshiftMS, "timeshift-ms", 0, "Milliseconds to shift every packet timestamp by")
	fs.BoolVar(&cfg.split, "split", false, "Split into independent parts when the scene fully resets")
	fs.BoolVar(&cfg.autoTimestamp, "auto-timestamp", false, "Reconstruct packet timestamps from DateTimeReceiver anchors (experimental)")
	fs.StringVar(&cfg.startTime, "start-time", "", "RFC3339 cutoff: ignore packets before this time in FirstDataframes")
	fs.StringVar(&cfg.dataStartTime, "data-start-time", "", "RFC3339 cutoff: skip UpdateObjects admission before this time")
	fs.StringVar(&cfg.dataEndTime, "data-end-time", "", "RFC3339 cutoff: stop conversion at this time")
	fs.StringVar(&cfg.metadataPath, "metadata-path", "", "Override path recorded in index.md's \"path\" field")
	fs.StringVar(&cfg.logLevel, "log-level", "info", "Log level: debug|info|warn|error")
	fs.StringVar(&cfg.metricsAddr, "metrics-addr", "", "Optional address to expose Prometheus metrics on (e.g. :9403)")
	fs.BoolVar(&cfg.showVersion, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if cfg.showVersion {
		return cfg, nil
	}

	if cfg.inputDir == "" {
		return nil, errors.New("-input-dir is required")
	}
	if cfg.outputDir == "" {
		return nil, errors.New("-output-dir is required")
	}
	switch cfg.convertType {
	case "als", "als-legacy":
	default:
		return nil, fmt.Errorf("invalid convert-type %q", cfg.convertType)
	}
	if cfg.split && cfg.autoTimestamp {
		return nil, errors.New("-split and -auto-timestamp cannot both be enabled")
	}
	for name, value := range map[string]string{
		"start-time":      cfg.startTime,
		"data-start-time": cfg.dataStartTime,
		"data-end-time":   cfg.dataEndTime,
	} {
		if value == "" {
			continue
		}
		if _, err := time.Parse(time.RFC3339, value); err != nil {
			return nil, fmt.Errorf("invalid -%s %q: %w", name, value, err)
		}
	}

	switch cfg.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log-level %q", cfg.logLevel)
	}

	return cfg, nil
}

func parseOptionalTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

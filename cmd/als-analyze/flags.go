package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
)

var version = "dev"

type cliConfig struct {
	inputPath   string
	outputPath  string
	startTime   string
	endTime     string
	catalogPath string
	convertType string
	logLevel    string
	showVersion bool
}

func parseFlags(args []string) (*cliConfig, error) {
	fs := flag.NewFlagSet("als-analyze", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	cfg := &cliConfig{}
	fs.StringVar(&cfg.inputPath, "input", "", "Capture file or directory of capture files (required)")
	fs.StringVar(&cfg.outputPath, "output", "", "File to write the analysis report to (default: stdout)")
	fs.StringVar(&cfg.startTime, "start", "", "RFC3339 lower bound: ignore packets before this time")
	fs.StringVar(&cfg.endTime, "end", "", "RFC3339 upper bound: stop analysis at this time")
	fs.StringVar(&cfg.catalogPath, "catalog", "", "Optional SQLite run ledger; skips unchanged files across runs")
	fs.StringVar(&cfg.convertType, "convert-type", "als", "Input framing: als|als-legacy")
	fs.StringVar(&cfg.logLevel, "log-level", "info", "Log level: debug|info|warn|error")
	fs.BoolVar(&cfg.showVersion, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if cfg.showVersion {
		return cfg, nil
	}

	if cfg.inputPath == "" {
		return nil, errors.New("-input is required")
	}
	switch cfg.convertType {
	case "als", "als-legacy":
	default:
		return nil, fmt.Errorf("invalid convert-type %q", cfg.convertType)
	}

	switch cfg.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log-level %q", cfg.logLevel)
	}

	return cfg, nil
}

package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
)

var version = "dev"

type cliConfig struct {
	file1       string
	file2       string
	outputPath  string
	convertType string
	logLevel    string
	showVersion bool
}

func parseFlags(args []string) (*cliConfig, error) {
	fs := flag.NewFlagSet("als-diff", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	cfg := &cliConfig{}
	fs.StringVar(&cfg.file1, "file1", "", "First capture file (required)")
	fs.StringVar(&cfg.file2, "file2", "", "Second capture file (required)")
	fs.StringVar(&cfg.outputPath, "output", "", "File to write the diff report to (default: stdout)")
	fs.StringVar(&cfg.convertType, "convert-type", "als", "Input framing: als|als-legacy")
	fs.StringVar(&cfg.logLevel, "log-level", "info", "Log level: debug|info|warn|error")
	fs.BoolVar(&cfg.showVersion, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if cfg.showVersion {
		return cfg, nil
	}

	if cfg.file1 == "" {
		return nil, errors.New("-file1 is required")
	}
	if cfg.file2 == "" {
		return nil, errors.New("-file2 is required")
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

package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
)

var version = "dev"

type stringSliceFlag []string

func (s *stringSliceFlag) String() string { return strings.Join(*s, ",") }
func (s *stringSliceFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}

type cliConfig struct {
	inputDir    string
	outputDir   string
	timelineIDs stringSliceFlag
	timeshiftMS int64
	hasTimeshift bool
	logLevel    string
	showVersion bool
}

func parseFlags(args []string) (*cliConfig, error) {
	fs := flag.NewFlagSet("als-edit", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	cfg := &cliConfig{}
	fs.StringVar(&cfg.inputDir, "input-dir", "", "Directory of converted .ts segments (required)")
	fs.StringVar(&cfg.outputDir, "output-dir", "", "Directory to write edited segments to (required)")
	fs.Var(&cfg.timelineIDs, "timeline-id", "Replacement timeline id, in round-robin order (repeatable)")
	timeshiftStr := fs.String("timeshift-ms", "", "Milliseconds to shift every timeline command's start time by")
	fs.StringVar(&cfg.logLevel, "log-level", "info", "Log level: debug|info|warn|error")
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

	if *timeshiftStr != "" {
		ms, err := strconv.ParseInt(*timeshiftStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid -timeshift-ms %q: %w", *timeshiftStr, err)
		}
		cfg.timeshiftMS = ms
		cfg.hasTimeshift = true
	}

	switch cfg.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log-level %q", cfg.logLevel)
	}

	return cfg, nil
}

func (c *cliConfig) parsedTimelineIDs() ([]int64, error) {
	ids := make([]int64, 0, len(c.timelineIDs))
	for _, s := range c.timelineIDs {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid -timeline-id %q: %w", s, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

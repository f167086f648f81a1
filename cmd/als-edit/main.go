package main

import (
	"fmt"
	"os"

	"github.com/alsstream/als-pipeline/internal/editor"
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

	timelineIDs, err := cfg.parsedTimelineIDs()
	if err != nil {
		log.Error("invalid flags", "error", err)
		os.Exit(2)
	}

	opts := editor.Options{TargetTimelineIDs: timelineIDs}
	if cfg.hasTimeshift {
		opts.TimeshiftMS = &cfg.timeshiftMS
	}

	ed, err := editor.New(cfg.inputDir, cfg.outputDir, opts)
	if err != nil {
		log.Error("constructing editor", "error", err)
		os.Exit(1)
	}

	log.Info("editing segments", "input", cfg.inputDir, "output", cfg.outputDir, "timeline_ids", timelineIDs)
	if err := ed.Process(); err != nil {
		log.Error("edit failed", "error", err)
		os.Exit(1)
	}
	log.Info("edit complete")
}

package main

import (
	"fmt"
	"os"

	"github.com/alsstream/als-pipeline/internal/differ"
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

	w, err := formatter.NewOutputWriter(cfg.outputPath)
	if err != nil {
		log.Error("opening output", "error", err)
		os.Exit(1)
	}
	defer w.Close()

	results, err := differ.Run(w, cfg.file1, cfg.file2, cfg.convertType)
	if err != nil {
		log.Error("diff failed", "error", err)
		os.Exit(1)
	}

	for _, r := range results {
		if !r.FramesEqual {
			os.Exit(3)
		}
	}
}

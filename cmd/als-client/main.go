package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alsstream/als-pipeline/internal/capture"
	"github.com/alsstream/als-pipeline/internal/logger"
	"github.com/alsstream/als-pipeline/internal/metrics"
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.metricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.metricsAddr); err != nil {
				log.Error("metrics server stopped", "error", err)
			}
		}()
	}

	client := capture.New(capture.Config{
		Address:     cfg.address,
		Port:        cfg.port,
		RoomID:      cfg.roomID,
		Token:       cfg.token,
		DataDir:     cfg.dataDir,
		FilePrefix:  cfg.filePrefix,
		IdleTimeout: cfg.idleTimeout,
	})

	log.Info("starting capture client", "address", cfg.address, "port", cfg.port, "room", cfg.roomID)

	if err := client.Run(ctx); err != nil {
		log.Error("capture client exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("capture client stopped cleanly")
}

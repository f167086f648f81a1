package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alsstream/als-pipeline/internal/alsreader"
	"github.com/alsstream/als-pipeline/internal/converter"
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

	if err := run(ctx, cfg, log); err != nil {
		log.Error("conversion failed", "error", err)
		os.Exit(1)
	}
	log.Info("conversion complete")
}

func run(ctx context.Context, cfg *cliConfig, log *slog.Logger) error {
	entries, err := alsreader.OrderDirectory(cfg.inputDir)
	if err != nil {
		return fmt.Errorf("ordering input directory: %w", err)
	}
	log.Info("ordered input files", "count", len(entries))

	var factory alsreader.Factory
	switch cfg.convertType {
	case "als-legacy":
		factory = func(f *os.File) alsreader.PacketReader { return alsreader.NewLegacy(f) }
	default:
		factory = func(f *os.File) alsreader.PacketReader { return alsreader.NewStandard(f) }
	}
	reader := alsreader.NewMultiFile(entries, factory)

	convOpts := converter.Options{
		ConvertType:   cfg.convertType,
		TimeshiftMS:   cfg.timeshiftMS,
		Split:         cfg.split,
		StartTime:     parseOptionalTime(cfg.startTime),
		DataStartTime: parseOptionalTime(cfg.dataStartTime),
		DataEndTime:   parseOptionalTime(cfg.dataEndTime),
		MetadataPath:  cfg.metadataPath,
		AutoTimestamp: cfg.autoTimestamp,
	}
	convCtx, err := converter.New(cfg.outputDir, convOpts)
	if err != nil {
		return fmt.Errorf("constructing converter: %w", err)
	}

	packetCount := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		p, err := reader.ReadPacket()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading packet %d: %w", packetCount, err)
		}
		if err := convCtx.ProcessPacket(p); err != nil {
			return fmt.Errorf("processing packet %d: %w", packetCount, err)
		}
		packetCount++
		metrics.PacketsReceived.Inc()
	}

	if err := convCtx.Finalize(); err != nil {
		return fmt.Errorf("finalizing conversion: %w", err)
	}
	log.Info("processed packets", "count", packetCount, "phase", convCtx.Phase())
	return nil
}

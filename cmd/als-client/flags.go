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
	address     string
	port        int
	roomID      string
	token       string
	dataDir     string
	filePrefix  string
	idleTimeout time.Duration
	logLevel    string
	metricsAddr string
	showVersion bool
}

func parseFlags(args []string) (*cliConfig, error) {
	fs := flag.NewFlagSet("als-client", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	cfg := &cliConfig{}
	fs.StringVar(&cfg.address, "address", "", "Capture server host (required)")
	fs.IntVar(&cfg.port, "port", 9201, "Capture server port")
	fs.StringVar(&cfg.roomID, "room", "", "Room id to join (required)")
	fs.StringVar(&cfg.token, "token", "", "Authentication token (required)")
	fs.StringVar(&cfg.dataDir, "data-dir", "capture-data", "Directory for persisted capture files")
	fs.StringVar(&cfg.filePrefix, "file-prefix", "capture_", "Filename prefix for persisted capture files")
	fs.DurationVar(&cfg.idleTimeout, "idle-timeout", 20*time.Second, "Disconnect after this long with no data")
	fs.StringVar(&cfg.logLevel, "log-level", "info", "Log level: debug|info|warn|error")
	fs.StringVar(&cfg.metricsAddr, "metrics-addr", "", "Optional address to expose Prometheus metrics on (e.g. :9402)")
	fs.BoolVar(&cfg.showVersion, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if cfg.showVersion {
		return cfg, nil
	}

	if cfg.address == "" {
		return nil, errors.New("-address is required")
	}
	if cfg.roomID == "" {
		return nil, errors.New("-room is required")
	}
	if cfg.token == "" {
		return nil, errors.New("-token is required")
	}

	switch cfg.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log-level %q", cfg.logLevel)
	}

	return cfg, nil
}

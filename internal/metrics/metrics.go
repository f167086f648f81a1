// Package metrics exposes prometheus counters/gauges for the capture and
// converter entrypoints' optional -metrics-addr flag.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PacketsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "als_capture_packets_received_total",
		Help: "Packets received from the live capture socket (als-client) or read from capture files (als-convert).",
	})

	BytesFlushed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "als_capture_bytes_flushed_total",
		Help: "Bytes written to disk by the persisted buffer.",
	})

	ReconnectAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "als_capture_reconnect_attempts_total",
		Help: "Reconnect attempts made by the capture client.",
	})

	SegmentsEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "als_converter_segments_emitted_total",
		Help: "Replay segments written by the segment builder.",
	})

	UnknownFieldsSeen = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "als_analyzer_unknown_fields_total",
		Help: "Protobuf field numbers seen that fall outside the known whitelist, by field number.",
	}, []string{"field_number"})
)

// Serve starts a blocking HTTP server exposing /metrics on addr. Callers run
// this in its own goroutine and cancel ctx to shut it down.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

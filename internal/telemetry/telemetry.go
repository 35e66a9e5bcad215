// Package telemetry wires logging and metrics for the CLI and the TUI.
package telemetry

import (
	"context"
	"errors"
	"net/http"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/xerrors"

	"github.com/Rorical/RoriRoles/internal/store"
)

var log = logging.Logger("telemetry")

// SetupLogging configures every named logger. With file set, records go
// there instead of stderr so they do not tear the terminal UI.
func SetupLogging(level, file string) error {
	lvl, err := logging.LevelFromString(level)
	if err != nil {
		return xerrors.Errorf("log level %q: %w", level, err)
	}
	cfg := logging.Config{
		Format: logging.PlaintextOutput,
		Level:  lvl,
		Stderr: file == "",
		File:   file,
	}
	logging.SetupLogging(cfg)
	return nil
}

// NewRegistry returns a registry holding the store and Go runtime metrics
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	reg.MustRegister(store.Collectors()...)
	return reg
}

// ServeMetrics serves /metrics on addr until ctx is done
func ServeMetrics(ctx context.Context, addr string, reg *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warnw("metrics server shutdown", "error", err)
		}
	}()

	log.Infow("serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return xerrors.Errorf("metrics server: %w", err)
	}
	return nil
}

package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"thermoscan/internal/ble"
	"thermoscan/internal/config"
	"thermoscan/internal/govee"
	"thermoscan/internal/loki"
	"thermoscan/internal/metrics"
	"thermoscan/internal/pipeline"
	"thermoscan/internal/relay"
)

func Run(ctx context.Context, cfg config.Config) error {
	slog.Info("initializing scanner",
		"source", cfg.AdvSource,
		"adapter", cfg.BLEAdapter,
		"loki_url", cfg.LokiURL,
		"stream", cfg.LokiStreamKey+"="+cfg.LokiStreamValue,
		"metrics_addr", cfg.MetricsAddr,
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	rec := metrics.New(reg)

	shipper := loki.NewShipper(loki.Config{
		URL:         cfg.LokiURL,
		Token:       cfg.LokiToken,
		StreamKey:   cfg.LokiStreamKey,
		StreamValue: cfg.LokiStreamValue,
	})
	p := pipeline.New(govee.NewFilter(), govee.NewBuilder(govee.MonotonicClock()), shipper, rec)

	return run(ctx, cfg, newSource(cfg), p, reg)
}

func newSource(cfg config.Config) ble.Source {
	if cfg.AdvSource == config.SourceMQTT {
		return relay.NewSubscriber(cfg, slog.Default())
	}
	return ble.NewListener(ble.Options{Adapter: cfg.BLEAdapter})
}

// run drives the pipeline from src until ctx is done or src fails.
func run(parent context.Context, cfg config.Config, src ble.Source, p *pipeline.Pipeline, g prometheus.Gatherer) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr, g); err != nil {
				slog.Warn("metrics server stopped; scanner continues without it", "error", err)
			}
		}()
	}

	events := make(chan ble.Event)
	srcErr := make(chan error, 1)
	go func() {
		defer close(events)
		srcErr <- src.Run(ctx, events)
	}()

	if err := p.Run(ctx, events); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	// The pipeline only stops early when the source closed the stream.
	cancel()
	if err := <-srcErr; err != nil {
		return fmt.Errorf("advertisement source: %w", err)
	}

	slog.Info("scanner shutting down")
	return parent.Err()
}

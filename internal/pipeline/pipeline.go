package pipeline

import (
	"context"
	"log/slog"
	"time"

	"thermoscan/internal/ble"
	"thermoscan/internal/govee"
	"thermoscan/internal/loki"
	"thermoscan/internal/metrics"
)

// Shipper delivers one reading to the log sink.
type Shipper interface {
	Ship(ctx context.Context, r govee.Reading) (loki.Response, error)
}

// Pipeline turns advertisement events into shipped readings, one at a time.
type Pipeline struct {
	filter  govee.Filter
	builder govee.Builder
	shipper Shipper
	metrics *metrics.Recorder
}

func New(filter govee.Filter, builder govee.Builder, shipper Shipper, rec *metrics.Recorder) *Pipeline {
	return &Pipeline{
		filter:  filter,
		builder: builder,
		shipper: shipper,
		metrics: rec,
	}
}

// Run consumes events until the channel closes or ctx is done. Each
// shipment completes before the next event is read.
func (p *Pipeline) Run(ctx context.Context, events <-chan ble.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			p.Handle(ctx, ev)
		}
	}
}

// Handle processes a single event. Rejections and shipment failures are
// logged and absorbed.
func (p *Pipeline) Handle(ctx context.Context, ev ble.Event) {
	switch e := ev.(type) {
	case ble.ScanStarted:
		slog.Debug("ble: scan started", "adapter", e.Adapter)
	case ble.ScanStopped:
		if e.Err != nil {
			slog.Warn("ble: scan stopped", "adapter", e.Adapter, "error", e.Err)
		}
	}

	c, outcome := p.filter.Inspect(ev)
	p.metrics.ObserveOutcome(outcome)
	if outcome != govee.Accepted {
		if adv, ok := ev.(ble.ManufacturerDataAdvertisement); ok {
			slog.Debug("ble: ignore advertisement", "addr", adv.ID, "outcome", outcome.String())
		}
		return
	}

	reading, err := p.builder.Build(c.ID, c.Payload)
	if err != nil {
		slog.Debug("ble: ignore undecodable payload", "addr", c.ID, "error", err)
		return
	}
	p.metrics.ObserveReading(reading)

	start := time.Now()
	resp, err := p.shipper.Ship(ctx, reading)
	p.metrics.ObserveShipment(time.Since(start), resp.StatusCode, err)
	if err != nil {
		slog.Warn("loki: failed to ship reading", "addr", reading.ID, "mac", reading.MAC, "error", err)
		return
	}

	slog.Info("loki: reading shipped",
		"addr", reading.ID,
		"mac", reading.MAC,
		"T", reading.Temperature, "H", reading.Humidity, "B", reading.Battery,
		"status", resp.StatusCode,
		"response", resp.Body,
	)
}

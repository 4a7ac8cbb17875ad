package ble

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tinygo.org/x/bluetooth"
)

// Source produces advertisement events until ctx is done or the underlying
// transport fails. Sends on out block until the consumer is ready.
type Source interface {
	Run(ctx context.Context, out chan<- Event) error
}

type Options struct {
	Adapter string // "hci0" by default
}

// scanner is the part of *bluetooth.Adapter the listener drives.
type scanner interface {
	Enable() error
	Scan(callback func(*bluetooth.Adapter, bluetooth.ScanResult)) error
	StopScan() error
}

// Listener wraps BlueZ scanning with context cancellation.
type Listener struct {
	adapter scanner
	opts    Options
}

func NewListener(opts Options) *Listener {
	if opts.Adapter == "" {
		opts.Adapter = "hci0"
	}

	return &Listener{
		adapter: bluetooth.NewAdapter(opts.Adapter),
		opts:    opts,
	}
}

func (l *Listener) Run(ctx context.Context, out chan<- Event) error {
	slog.Info("ble: enabling adapter", "adapter", l.opts.Adapter)
	if err := l.adapter.Enable(); err != nil {
		return fmt.Errorf("%w: enable %s: %v", ErrNoAdapter, l.opts.Adapter, err)
	}
	slog.Info("ble: adapter enabled", "adapter", l.opts.Adapter)

	scanDone := make(chan struct{})
	defer close(scanDone)
	go stopOnDone(ctx, l.adapter, scanDone)

	if !send(ctx, out, ScanStarted{Adapter: l.opts.Adapter}) {
		return nil
	}
	slog.Info("ble: scanning started", "adapter", l.opts.Adapter)

	// adapter.Scan blocks until StopScan() or error. The callback blocks on
	// the consumer, so a slow sink slows ingestion down with it.
	err := l.adapter.Scan(func(a *bluetooth.Adapter, r bluetooth.ScanResult) {
		if ctx.Err() != nil {
			_ = l.adapter.StopScan()
			return
		}
		send(ctx, out, fromScanResult(r))
	})

	// If ctx canceled, treat as clean shutdown.
	if ctx.Err() != nil {
		slog.Info("ble: scanning stopped (context canceled)")
		return nil
	}

	send(ctx, out, ScanStopped{Adapter: l.opts.Adapter, Err: err})
	if err != nil {
		return fmt.Errorf("ble scan: %w", err)
	}

	slog.Info("ble: scanning stopped")
	return nil
}

const stopRetry = 100 * time.Millisecond

// stopOnDone stops the scan once ctx is done. StopScan fails while Scan has
// not started yet, so it keeps trying until the scan returns.
func stopOnDone(ctx context.Context, a scanner, scanDone <-chan struct{}) {
	select {
	case <-ctx.Done():
	case <-scanDone:
		return
	}

	t := time.NewTicker(stopRetry)
	defer t.Stop()
	for {
		if err := a.StopScan(); err == nil {
			return
		}
		select {
		case <-scanDone:
			return
		case <-t.C:
		}
	}
}

func fromScanResult(r bluetooth.ScanResult) Event {
	elems := r.ManufacturerData()
	if len(elems) == 0 {
		return DeviceDiscovered{
			ID:        r.Address.String(),
			RSSI:      r.RSSI,
			LocalName: r.LocalName(),
		}
	}

	// The adapter may reuse its buffers between callbacks.
	md := make([]ManufacturerData, 0, len(elems))
	for _, e := range elems {
		md = append(md, ManufacturerData{
			CompanyID: e.CompanyID,
			Data:      append([]byte(nil), e.Data...),
		})
	}
	return ManufacturerDataAdvertisement{
		ID:               r.Address.String(),
		RSSI:             r.RSSI,
		LocalName:        r.LocalName(),
		ManufacturerData: md,
	}
}

// send delivers ev unless ctx ends first and reports whether it was delivered.
func send(ctx context.Context, out chan<- Event, ev Event) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"thermoscan/internal/govee"
)

// Recorder holds the scanner's metrics.
type Recorder struct {
	Events            *prometheus.CounterVec
	Shipments         *prometheus.CounterVec
	ShipmentStatus    *prometheus.CounterVec
	ShipmentDuration  prometheus.Histogram
	SensorTemperature *prometheus.GaugeVec
	SensorHumidity    *prometheus.GaugeVec
	SensorBattery     *prometheus.GaugeVec
}

// New registers the metrics on reg.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	r := &Recorder{
		Events: f.NewCounterVec(prometheus.CounterOpts{
			Name: "thermoscan_events_total",
			Help: "Advertisement events inspected, by filter outcome",
		}, []string{"outcome"}),

		Shipments: f.NewCounterVec(prometheus.CounterOpts{
			Name: "thermoscan_shipments_total",
			Help: "Readings shipped to the log sink, by transport result",
		}, []string{"result"}),

		ShipmentStatus: f.NewCounterVec(prometheus.CounterOpts{
			Name: "thermoscan_shipment_status_total",
			Help: "HTTP status codes returned by the log sink",
		}, []string{"code"}),

		ShipmentDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "thermoscan_shipment_duration_seconds",
			Help:    "Time spent waiting for the log sink",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
		}),

		SensorTemperature: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "thermoscan_sensor_temperature_celsius",
			Help: "Last temperature reported by a sensor",
		}, []string{"mac"}),

		SensorHumidity: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "thermoscan_sensor_humidity_percent",
			Help: "Last relative humidity reported by a sensor",
		}, []string{"mac"}),

		SensorBattery: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "thermoscan_sensor_battery_percent",
			Help: "Last battery level reported by a sensor",
		}, []string{"mac"}),
	}

	// Pre-create every outcome so rates start at zero instead of appearing late.
	for _, o := range govee.Outcomes {
		r.Events.WithLabelValues(o.String())
	}
	r.Shipments.WithLabelValues("ok")
	r.Shipments.WithLabelValues("error")
	return r
}

func (r *Recorder) ObserveOutcome(o govee.Outcome) {
	r.Events.WithLabelValues(o.String()).Inc()
}

func (r *Recorder) ObserveReading(rd govee.Reading) {
	r.SensorTemperature.WithLabelValues(rd.MAC).Set(rd.Temperature)
	r.SensorHumidity.WithLabelValues(rd.MAC).Set(rd.Humidity)
	r.SensorBattery.WithLabelValues(rd.MAC).Set(rd.Battery)
}

// ObserveShipment records one shipment. status is ignored when err is set.
func (r *Recorder) ObserveShipment(took time.Duration, status int, err error) {
	r.ShipmentDuration.Observe(took.Seconds())
	if err != nil {
		r.Shipments.WithLabelValues("error").Inc()
		return
	}
	r.Shipments.WithLabelValues("ok").Inc()
	r.ShipmentStatus.WithLabelValues(strconv.Itoa(status)).Inc()
}

// NewMux serves /metrics from g and a trivial /healthz.
func NewMux(g prometheus.Gatherer) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}

// Serve runs the metrics server on addr until ctx is done.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewMux(g),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("metrics listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err := <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/trogers1052/market-notifier/internal/models"
)

// Recorder implements monitor.Metrics using Prometheus.
type Recorder struct {
	ticks            *prometheus.CounterVec
	tickDuration     prometheus.Histogram
	lastPrice        *prometheus.GaugeVec
	deltas           *prometheus.CounterVec
	delivered        *prometheus.CounterVec
	dispatchFailures *prometheus.CounterVec
	listenerDrops    prometheus.Counter
}

// New creates a Prometheus recorder registered on reg.
// A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Recorder{
		ticks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifier_ticks_total",
				Help: "Total number of monitor ticks by outcome",
			},
			[]string{"status"},
		),
		tickDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "notifier_tick_duration_seconds",
				Help:    "Duration of monitor ticks in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		lastPrice: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "notifier_last_price",
				Help: "Last observed price for a symbol",
			},
			[]string{"symbol"},
		),
		deltas: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifier_price_deltas_total",
				Help: "Total number of significant price changes detected",
			},
			[]string{"symbol"},
		),
		delivered: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifier_notifications_delivered_total",
				Help: "Total number of notifications persisted and handed to listeners",
			},
			[]string{"priority"},
		),
		dispatchFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifier_dispatch_failures_total",
				Help: "Total number of notifications that could not be persisted",
			},
			[]string{"reason"},
		),
		listenerDrops: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "notifier_listener_drops_total",
				Help: "Total number of notifications dropped by slow listeners",
			},
		),
	}
}

// TickCompleted records the outcome and duration of a tick.
func (r *Recorder) TickCompleted(status string, d time.Duration) {
	r.ticks.WithLabelValues(status).Inc()
	r.tickDuration.Observe(d.Seconds())
}

// PriceObserved records the last price for a symbol.
func (r *Recorder) PriceObserved(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// DeltaDetected records a significant change for a symbol.
func (r *Recorder) DeltaDetected(symbol string) {
	r.deltas.WithLabelValues(symbol).Inc()
}

// NotificationDelivered records a persisted notification.
func (r *Recorder) NotificationDelivered(priority models.Priority) {
	r.delivered.WithLabelValues(string(priority)).Inc()
}

// DispatchFailed records a persistence failure.
func (r *Recorder) DispatchFailed(reason string) {
	r.dispatchFailures.WithLabelValues(reason).Inc()
}

// ListenerDropped records a notification dropped for a slow listener.
func (r *Recorder) ListenerDropped() {
	r.listenerDrops.Inc()
}

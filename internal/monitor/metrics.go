package monitor

import (
	"time"

	"github.com/trogers1052/market-notifier/internal/models"
)

// Metrics receives monitor and dispatch events
type Metrics interface {
	TickCompleted(status string, duration time.Duration)
	PriceObserved(symbol string, price float64)
	DeltaDetected(symbol string)
	NotificationDelivered(priority models.Priority)
	DispatchFailed(reason string)
	ListenerDropped()
}

// Tick status labels
const (
	TickStatusOK      = "ok"
	TickStatusSkipped = "skipped"
)

type noopMetrics struct{}

func (noopMetrics) TickCompleted(string, time.Duration) {}
func (noopMetrics) PriceObserved(string, float64) {}
func (noopMetrics) DeltaDetected(string) {}
func (noopMetrics) NotificationDelivered(models.Priority) {}
func (noopMetrics) DispatchFailed(string) {}
func (noopMetrics) ListenerDropped() {}

func metricsOrNoop(m Metrics) Metrics {
	if m == nil {
		return noopMetrics{}
	}
	return m
}

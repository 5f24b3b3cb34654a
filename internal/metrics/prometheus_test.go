package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/market-notifier/internal/models"
	"github.com/trogers1052/market-notifier/internal/monitor"
)

var _ monitor.Metrics = (*Recorder)(nil)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.TickCompleted(monitor.TickStatusOK, 20*time.Millisecond)
	r.TickCompleted(monitor.TickStatusOK, 30*time.Millisecond)
	r.TickCompleted(monitor.TickStatusSkipped, time.Millisecond)
	r.PriceObserved("AAPL", 170.5)
	r.PriceObserved("AAPL", 172.21)
	r.DeltaDetected("AAPL")
	r.NotificationDelivered(models.PriorityHigh)
	r.NotificationDelivered(models.PriorityHigh)
	r.NotificationDelivered(models.PriorityMedium)
	r.DispatchFailed("timeout")
	r.ListenerDropped()

	assert.Equal(t, 2.0, testutil.ToFloat64(r.ticks.WithLabelValues(monitor.TickStatusOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.ticks.WithLabelValues(monitor.TickStatusSkipped)))
	assert.Equal(t, 172.21, testutil.ToFloat64(r.lastPrice.WithLabelValues("AAPL")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.deltas.WithLabelValues("AAPL")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.delivered.WithLabelValues("HIGH")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.delivered.WithLabelValues("MEDIUM")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.dispatchFailures.WithLabelValues("timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.listenerDrops))

	count, err := testutil.GatherAndCount(reg, "notifier_tick_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNewRegistersOncePerRegistry(t *testing.T) {
	New(prometheus.NewRegistry())
	assert.Panics(t, func() {
		reg := prometheus.NewRegistry()
		New(reg)
		New(reg)
	})
}

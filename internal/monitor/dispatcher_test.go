package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/market-notifier/internal/models"
)

var dispatchTime = time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)

func newTestDispatcher(store NotificationStore, timeout time.Duration) (*Dispatcher, *Listeners) {
	listeners := NewListeners(ListenersConfig{MailboxSize: 16, DeliveryTimeout: 50 * time.Millisecond}, nil, zerolog.Nop())
	d := NewDispatcher(store, listeners, DispatcherConfig{
		PersistTimeout: timeout,
		Now:            func() time.Time { return dispatchTime },
	}, nil, zerolog.Nop())
	return d, listeners
}

func subscriber(id int, pref models.Preference) *models.Subscriber {
	return &models.Subscriber{ID: id, Name: "user", Email: "user@example.com", Preference: pref}
}

func TestDispatchBuildsPriceAlert(t *testing.T) {
	store := NewMockStore()
	d, _ := newTestDispatcher(store, time.Second)

	delta := models.PriceDelta{Symbol: "AAPL", Name: "Apple Inc.", PreviousPrice: 170.5, CurrentPrice: 161.2, PercentChange: -5.4545}
	sent := d.Dispatch(context.Background(), delta, []*models.Subscriber{subscriber(1, models.PreferenceAll)})
	require.Len(t, sent, 1)

	n := sent[0]
	assert.Equal(t, 1, n.ID)
	assert.Equal(t, 1, n.SubscriberID)
	assert.Equal(t, "AAPL", n.Symbol)
	assert.Equal(t, models.TypePriceAlert, n.Type)
	assert.Equal(t, models.PriorityHigh, n.Priority)
	assert.Equal(t, "Price Alert: Apple Inc.", n.Title)
	assert.Equal(t, "Apple Inc. has decreased by 5.45%. Current price: $161.20", n.Body)
	assert.Equal(t, dispatchTime, n.Timestamp)
	assert.False(t, n.Read)

	saved := store.Saved()
	require.Len(t, saved, 1)
	assert.Equal(t, n.Body, saved[0].Body)
}

func TestDispatchIncreaseDirection(t *testing.T) {
	store := NewMockStore()
	d, _ := newTestDispatcher(store, time.Second)

	delta := models.PriceDelta{Symbol: "MSFT", PreviousPrice: 100, CurrentPrice: 102, PercentChange: 2}
	sent := d.Dispatch(context.Background(), delta, []*models.Subscriber{subscriber(1, models.PreferenceAll)})
	require.Len(t, sent, 1)
	assert.Equal(t, models.PriorityMedium, sent[0].Priority)
	assert.Equal(t, "Price Alert: MSFT", sent[0].Title)
	assert.Equal(t, "MSFT has increased by 2.00%. Current price: $102.00", sent[0].Body)
}

func TestDispatchRespectsPreferences(t *testing.T) {
	changes := []float64{-12, -5.01, -5, -0.4, 0.01, 3, 5, 5.01, 40}

	for _, change := range changes {
		store := NewMockStore()
		d, _ := newTestDispatcher(store, time.Second)

		subs := []*models.Subscriber{
			subscriber(1, models.PreferenceAll),
			subscriber(2, models.PreferenceImportantOnly),
			subscriber(3, models.PreferenceNone),
		}
		delta := models.PriceDelta{Symbol: "SPY", PreviousPrice: 100, CurrentPrice: 100 + change, PercentChange: change}

		sent := d.Dispatch(context.Background(), delta, subs)

		recipients := map[int]bool{}
		for _, n := range sent {
			recipients[n.SubscriberID] = true
		}
		assert.True(t, recipients[1], "ALL must receive change=%v", change)
		assert.Equal(t, recipients[1], recipients[2], "IMPORTANT must match ALL for price alerts, change=%v", change)
		assert.False(t, recipients[3], "NONE must never receive, change=%v", change)
	}
}

func TestDispatchPersistenceFailureIsIsolated(t *testing.T) {
	store := NewMockStore()
	store.FailFor[2] = true
	d, listeners := newTestDispatcher(store, time.Second)

	rec := &recordingListener{}
	listeners.Add(AllSubscribers, rec)
	defer listeners.Close()

	subs := []*models.Subscriber{
		subscriber(1, models.PreferenceAll),
		subscriber(2, models.PreferenceAll),
		subscriber(3, models.PreferenceAll),
	}
	delta := models.PriceDelta{Symbol: "TSLA", PreviousPrice: 200, CurrentPrice: 210, PercentChange: 5}

	sent, failed := d.dispatch(context.Background(), delta, subs)
	assert.Equal(t, 1, failed)
	require.Len(t, sent, 2)
	assert.Equal(t, 1, sent[0].SubscriberID)
	assert.Equal(t, 3, sent[1].SubscriberID)

	require.Eventually(t, func() bool { return len(rec.Received()) == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	for _, n := range rec.Received() {
		assert.NotEqual(t, 2, n.SubscriberID, "failed persistence must not reach listeners")
		assert.NotEqual(t, models.UnsavedID, n.ID)
	}
}

func TestDispatchTimesOutBlockingStore(t *testing.T) {
	store := NewMockStore()
	store.BlockFor[1] = true
	defer store.Release()
	d, _ := newTestDispatcher(store, 30*time.Millisecond)

	subs := []*models.Subscriber{subscriber(1, models.PreferenceAll), subscriber(2, models.PreferenceAll)}
	delta := models.PriceDelta{Symbol: "BTC", PreviousPrice: 36000, CurrentPrice: 36360, PercentChange: 1}

	start := time.Now()
	sent, failed := d.dispatch(context.Background(), delta, subs)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1, failed)
	require.Len(t, sent, 1)
	assert.Equal(t, 2, sent[0].SubscriberID)
}

func TestPersistErrorClassification(t *testing.T) {
	assert.ErrorIs(t, persistError(context.DeadlineExceeded), models.ErrTimeout)
	assert.ErrorIs(t, persistError(errors.New("connection refused")), models.ErrPersistence)
	assert.NoError(t, persistError(nil))
	assert.Equal(t, "timeout", failureReason(persistError(context.DeadlineExceeded)))
	assert.Equal(t, "persistence", failureReason(persistError(errors.New("boom"))))
}

func TestDispatchDeduplicatesSubscribers(t *testing.T) {
	store := NewMockStore()
	d, _ := newTestDispatcher(store, time.Second)

	sub := subscriber(7, models.PreferenceAll)
	delta := models.PriceDelta{Symbol: "REIT", PreviousPrice: 210, CurrentPrice: 200, PercentChange: -4.76}

	sent := d.Dispatch(context.Background(), delta, []*models.Subscriber{sub, sub, nil, subscriber(7, models.PreferenceAll)})
	assert.Len(t, sent, 1)
	assert.Len(t, store.Saved(), 1)
}

func TestAnnounceSystemNotification(t *testing.T) {
	store := NewMockStore()
	d, _ := newTestDispatcher(store, time.Second)

	subs := []*models.Subscriber{
		subscriber(1, models.PreferenceAll),
		subscriber(2, models.PreferenceImportantOnly),
		subscriber(3, models.PreferenceNone),
	}

	low := d.Announce(context.Background(), "Maintenance", "Scheduled maintenance tonight", models.PriorityLow, subs)
	require.Len(t, low, 1)
	assert.Equal(t, 1, low[0].SubscriberID)
	assert.Equal(t, models.TypeSystemNotification, low[0].Type)

	high := d.Announce(context.Background(), "Outage", "Price feed degraded", models.PriorityHigh, subs)
	require.Len(t, high, 2)
	assert.Equal(t, 2, high[1].SubscriberID)
}

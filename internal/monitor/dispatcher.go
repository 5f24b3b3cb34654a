package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/market-notifier/internal/models"
)

const defaultPersistTimeout = 2 * time.Second

// NotificationStore persists notifications and assigns their ids
type NotificationStore interface {
	SaveNotification(ctx context.Context, n *models.Notification) (int, error)
}

// DispatcherConfig tunes the dispatcher
type DispatcherConfig struct {
	PersistTimeout time.Duration
	// Now overrides the clock used for notification timestamps
	Now func() time.Time
}

// Dispatcher turns price deltas into persisted notifications and pushes
// them to live listeners
type Dispatcher struct {
	store          NotificationStore
	listeners      *Listeners
	persistTimeout time.Duration
	now            func() time.Time
	metrics        Metrics
	log            zerolog.Logger
}

// NewDispatcher creates a dispatcher over the given store and listener set
func NewDispatcher(store NotificationStore, listeners *Listeners, cfg DispatcherConfig, metrics Metrics, log zerolog.Logger) *Dispatcher {
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = defaultPersistTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Dispatcher{
		store:          store,
		listeners:      listeners,
		persistTimeout: cfg.PersistTimeout,
		now:            cfg.Now,
		metrics:        metricsOrNoop(metrics),
		log:            log.With().Str("component", "dispatcher").Logger(),
	}
}

// Dispatch creates a price alert for every eligible subscriber, persists it
// and pushes it to listeners. Failures are isolated per subscriber. Only
// successfully persisted notifications are returned.
func (d *Dispatcher) Dispatch(ctx context.Context, delta models.PriceDelta, subscribers []*models.Subscriber) []*models.Notification {
	sent, _ := d.dispatch(ctx, delta, subscribers)
	return sent
}

func (d *Dispatcher) dispatch(ctx context.Context, delta models.PriceDelta, subscribers []*models.Subscriber) ([]*models.Notification, int) {
	priority := Classify(delta)
	title, body := priceAlertText(delta)
	return d.fanOut(ctx, subscribers, priority, func(sub *models.Subscriber) *models.Notification {
		return &models.Notification{
			ID:           models.UnsavedID,
			SubscriberID: sub.ID,
			Symbol:       delta.Symbol,
			Title:        title,
			Body:         body,
			Type:         models.TypePriceAlert,
			Priority:     priority,
			Timestamp:    d.now(),
		}
	})
}

// Announce sends a system notification of the given priority to every
// eligible subscriber
func (d *Dispatcher) Announce(ctx context.Context, title, body string, priority models.Priority, subscribers []*models.Subscriber) []*models.Notification {
	sent, _ := d.fanOut(ctx, subscribers, priority, func(sub *models.Subscriber) *models.Notification {
		return &models.Notification{
			ID:           models.UnsavedID,
			SubscriberID: sub.ID,
			Title:        title,
			Body:         body,
			Type:         models.TypeSystemNotification,
			Priority:     priority,
			Timestamp:    d.now(),
		}
	})
	return sent
}

func (d *Dispatcher) fanOut(ctx context.Context, subscribers []*models.Subscriber, priority models.Priority, build func(*models.Subscriber) *models.Notification) ([]*models.Notification, int) {
	var sent []*models.Notification
	failed := 0
	seen := make(map[int]struct{}, len(subscribers))

	for _, sub := range subscribers {
		if sub == nil {
			continue
		}
		if _, dup := seen[sub.ID]; dup {
			continue
		}
		seen[sub.ID] = struct{}{}

		if !sub.Preference.Allows(priority) {
			continue
		}

		n := build(sub)
		id, err := d.persist(ctx, n)
		if err != nil {
			failed++
			d.metrics.DispatchFailed(failureReason(err))
			d.log.Error().
				Err(err).
				Int("subscriber_id", sub.ID).
				Str("symbol", n.Symbol).
				Msg("Failed to persist notification")
			continue
		}
		n.ID = id

		d.metrics.NotificationDelivered(n.Priority)
		d.listeners.Publish(*n)
		sent = append(sent, n)
	}
	return sent, failed
}

// persist saves a copy of n and waits at most the persist timeout, even if
// the store ignores context cancellation
func (d *Dispatcher) persist(ctx context.Context, n *models.Notification) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, d.persistTimeout)
	defer cancel()

	type result struct {
		id  int
		err error
	}
	done := make(chan result, 1)
	record := *n
	go func() {
		id, err := d.store.SaveNotification(ctx, &record)
		done <- result{id: id, err: err}
	}()

	select {
	case r := <-done:
		return r.id, persistError(r.err)
	case <-ctx.Done():
		// a save that finished at the deadline still counts
		select {
		case r := <-done:
			return r.id, persistError(r.err)
		default:
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return 0, fmt.Errorf("%w: saving notification after %s", models.ErrTimeout, d.persistTimeout)
		}
		return 0, fmt.Errorf("%w: %v", models.ErrPersistence, ctx.Err())
	}
}

func persistError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: saving notification: %v", models.ErrTimeout, err)
	case errors.Is(err, models.ErrPersistence), errors.Is(err, models.ErrTimeout):
		return err
	default:
		return fmt.Errorf("%w: %v", models.ErrPersistence, err)
	}
}

func failureReason(err error) string {
	if errors.Is(err, models.ErrTimeout) {
		return "timeout"
	}
	return "persistence"
}

func priceAlertText(delta models.PriceDelta) (string, string) {
	name := delta.DisplayName()
	change := decimal.NewFromFloat(delta.PercentChange).Abs().StringFixed(2)
	price := decimal.NewFromFloat(delta.CurrentPrice).StringFixed(2)

	title := "Price Alert: " + name
	body := fmt.Sprintf("%s has %s by %s%%. Current price: $%s", name, delta.Direction(), change, price)
	return title, body
}

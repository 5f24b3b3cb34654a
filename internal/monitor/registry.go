package monitor

import (
	"context"
	"fmt"

	"github.com/trogers1052/market-notifier/internal/models"
)

// SubscriberStore is the record store view used by the registry
type SubscriberStore interface {
	ListSubscribers(ctx context.Context) ([]*models.Subscriber, error)
	GetSubscriber(ctx context.Context, id int) (*models.Subscriber, error)
	UpdateSubscriberPreference(ctx context.Context, id int, pref models.Preference) (bool, error)
}

// Registry reads subscribers and their preferences straight from the store.
// Nothing is cached so a preference change is seen by the next tick.
type Registry struct {
	store SubscriberStore
}

// NewRegistry creates a registry over the store
func NewRegistry(store SubscriberStore) *Registry {
	return &Registry{store: store}
}

// Subscribers returns every subscriber with its current preference
func (r *Registry) Subscribers(ctx context.Context) ([]*models.Subscriber, error) {
	subs, err := r.store.ListSubscribers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscribers: %w", err)
	}
	return subs, nil
}

// Get returns one subscriber
func (r *Registry) Get(ctx context.Context, id int) (*models.Subscriber, error) {
	return r.store.GetSubscriber(ctx, id)
}

// UpdatePreference changes a subscriber's preference
func (r *Registry) UpdatePreference(ctx context.Context, id int, pref models.Preference) error {
	if _, err := models.ParsePreference(string(pref)); err != nil {
		return err
	}
	ok, err := r.store.UpdateSubscriberPreference(ctx, id, pref)
	if err != nil {
		return fmt.Errorf("failed to update preference: %w", err)
	}
	if !ok {
		return fmt.Errorf("subscriber %d: %w", id, models.ErrNotFound)
	}
	return nil
}

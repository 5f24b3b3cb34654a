package database

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/trogers1052/market-notifier/internal/models"
)

// MemoryStore is an in-process record store with the same surface as DB.
// It backs demo mode and tests that do not need PostgreSQL.
type MemoryStore struct {
	mu            sync.RWMutex
	subscribers   map[int]models.Subscriber
	notifications map[int]models.Notification
	investments   map[string]Investment
	nextSubID     int
	nextNotifID   int
	nextInvID     int
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		subscribers:   make(map[int]models.Subscriber),
		notifications: make(map[int]models.Notification),
		investments:   make(map[string]Investment),
		nextSubID:     1,
		nextNotifID:   1,
		nextInvID:     1,
	}
}

// NewSeededMemoryStore creates a MemoryStore holding the same sample
// subscribers and investments as the seed migration
func NewSeededMemoryStore() *MemoryStore {
	s := NewMemoryStore()
	ctx := context.Background()
	for _, sub := range SampleSubscribers() {
		sub := sub
		_ = s.CreateSubscriber(ctx, &sub)
	}
	for _, inv := range SampleInvestments() {
		inv := inv
		_ = s.SaveInvestment(ctx, &inv)
	}
	return s
}

// SampleSubscribers returns the demo subscribers
func SampleSubscribers() []models.Subscriber {
	return []models.Subscriber{
		{Name: "John Doe", Email: "john@example.com", Preference: models.PreferenceAll},
		{Name: "Jane Smith", Email: "jane@example.com", Preference: models.PreferenceAll},
		{Name: "Bob Johnson", Email: "bob@example.com", Preference: models.PreferenceAll},
	}
}

// SampleInvestments returns the demo catalogue
func SampleInvestments() []Investment {
	return []Investment{
		{Type: "STOCK", Model: models.PriceModel{Symbol: "AAPL", Name: "Apple Inc.", CurrentPrice: 170.50, Volatility: 0.25, AnnualReturn: 0.15}},
		{Type: "ETF", Model: models.PriceModel{Symbol: "SPY", Name: "S&P 500 ETF", CurrentPrice: 420.00, Volatility: 0.16, AnnualReturn: 0.10}},
		{Type: "BOND", Model: models.PriceModel{Symbol: "BOND10", Name: "10-Year Treasury Bond", CurrentPrice: 95.00, Volatility: 0.05, AnnualReturn: 0.035}},
		{Type: "CRYPTO", Model: models.PriceModel{Symbol: "BTC", Name: "Bitcoin", CurrentPrice: 36000.00, Volatility: 0.75, AnnualReturn: 0.30}},
		{Type: "FUND", Model: models.PriceModel{Symbol: "REIT", Name: "Real Estate Fund", CurrentPrice: 210.75, Volatility: 0.18, AnnualReturn: 0.08}},
	}
}

// SaveNotification stores a copy of n and returns its new id
func (s *MemoryStore) SaveNotification(ctx context.Context, n *models.Notification) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("failed to save notification: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subscribers[n.SubscriberID]; !ok {
		return 0, fmt.Errorf("failed to save notification: subscriber %d: %w", n.SubscriberID, models.ErrNotFound)
	}
	id := s.nextNotifID
	s.nextNotifID++

	stored := *n
	stored.ID = id
	s.notifications[id] = stored
	return id, nil
}

// GetNotification retrieves a notification by ID
func (s *MemoryStore) GetNotification(ctx context.Context, id int) (*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.notifications[id]
	if !ok {
		return nil, fmt.Errorf("notification %d: %w", id, models.ErrNotFound)
	}
	return &n, nil
}

// NotificationsByRecipient returns a subscriber's notifications, newest first
func (s *MemoryStore) NotificationsByRecipient(ctx context.Context, subscriberID int) ([]*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Notification
	for _, n := range s.notifications {
		if n.SubscriberID == subscriberID {
			n := n
			out = append(out, &n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// MarkNotificationRead flags a notification as read; false means unknown id
func (s *MemoryStore) MarkNotificationRead(ctx context.Context, id int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notifications[id]
	if !ok {
		return false, nil
	}
	n.Read = true
	s.notifications[id] = n
	return true, nil
}

// CreateSubscriber adds a subscriber and assigns its ID
func (s *MemoryStore) CreateSubscriber(ctx context.Context, sub *models.Subscriber) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.subscribers {
		if existing.Email == sub.Email {
			return fmt.Errorf("failed to create subscriber: email %s already registered", sub.Email)
		}
	}
	if sub.Preference == "" {
		sub.Preference = models.PreferenceAll
	}
	sub.ID = s.nextSubID
	s.nextSubID++
	s.subscribers[sub.ID] = *sub
	return nil
}

// GetSubscriber retrieves a subscriber by ID
func (s *MemoryStore) GetSubscriber(ctx context.Context, id int) (*models.Subscriber, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subscribers[id]
	if !ok {
		return nil, fmt.Errorf("subscriber %d: %w", id, models.ErrNotFound)
	}
	return &sub, nil
}

// ListSubscribers returns every subscriber ordered by ID
func (s *MemoryStore) ListSubscribers(ctx context.Context) ([]*models.Subscriber, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("failed to list subscribers: %w", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Subscriber, 0, len(s.subscribers))
	for _, sub := range s.subscribers {
		sub := sub
		out = append(out, &sub)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// UpdateSubscriberPreference changes a subscriber's preference; false means unknown id
func (s *MemoryStore) UpdateSubscriberPreference(ctx context.Context, id int, pref models.Preference) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subscribers[id]
	if !ok {
		return false, nil
	}
	sub.Preference = pref
	s.subscribers[id] = sub
	return true, nil
}

// SaveInvestment inserts or replaces an investment by symbol
func (s *MemoryStore) SaveInvestment(ctx context.Context, inv *Investment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.investments[inv.Model.Symbol]; ok {
		inv.ID = existing.ID
	} else {
		inv.ID = s.nextInvID
		s.nextInvID++
	}
	if inv.Model.ObservedAt.IsZero() {
		inv.Model.ObservedAt = time.Now().UTC()
	}
	s.investments[inv.Model.Symbol] = *inv
	return nil
}

// GetInvestment retrieves the investment for a symbol
func (s *MemoryStore) GetInvestment(ctx context.Context, symbol string) (*Investment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.investments[symbol]
	if !ok {
		return nil, fmt.Errorf("investment %s: %w", symbol, models.ErrNotFound)
	}
	return &inv, nil
}

// ListInvestments returns the catalogue ordered by symbol
func (s *MemoryStore) ListInvestments(ctx context.Context) ([]*Investment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Investment, 0, len(s.investments))
	for _, inv := range s.investments {
		inv := inv
		out = append(out, &inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Model.Symbol < out[j].Model.Symbol })
	return out, nil
}

// UpdateInvestmentPrice stores the latest observed price for a symbol
func (s *MemoryStore) UpdateInvestmentPrice(ctx context.Context, symbol string, price float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.investments[symbol]
	if !ok {
		return fmt.Errorf("investment %s: %w", symbol, models.ErrNotFound)
	}
	inv.Model.CurrentPrice = price
	inv.Model.ObservedAt = time.Now().UTC()
	s.investments[symbol] = inv
	return nil
}

// CurrentPrices returns the catalogue as price snapshots
func (s *MemoryStore) CurrentPrices(ctx context.Context) ([]models.PriceModel, error) {
	investments, err := s.ListInvestments(ctx)
	if err != nil {
		return nil, err
	}
	prices := make([]models.PriceModel, 0, len(investments))
	for _, inv := range investments {
		prices = append(prices, inv.Model)
	}
	return prices, nil
}

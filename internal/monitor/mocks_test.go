package monitor

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/trogers1052/market-notifier/internal/models"
)

// MockStore implements NotificationStore and SubscriberStore for testing
type MockStore struct {
	mu            sync.Mutex
	notifications []*models.Notification
	subscribers   map[int]*models.Subscriber
	nextID        int

	// FailFor makes SaveNotification fail for these subscriber ids
	FailFor map[int]bool
	// BlockFor makes SaveNotification block, ignoring ctx, for these subscriber ids
	BlockFor map[int]bool
	unblock  chan struct{}

	ListErr   error
	ListCalls int
}

func NewMockStore(subs ...*models.Subscriber) *MockStore {
	m := &MockStore{
		subscribers: make(map[int]*models.Subscriber),
		nextID:      1,
		FailFor:     map[int]bool{},
		BlockFor:    map[int]bool{},
		unblock:     make(chan struct{}),
	}
	for _, s := range subs {
		m.subscribers[s.ID] = s
	}
	return m
}

func (m *MockStore) SaveNotification(ctx context.Context, n *models.Notification) (int, error) {
	m.mu.Lock()
	fail := m.FailFor[n.SubscriberID]
	block := m.BlockFor[n.SubscriberID]
	m.mu.Unlock()

	if block {
		<-m.unblock
	}
	if fail {
		return 0, errors.New("disk full")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	saved := *n
	saved.ID = m.nextID
	m.nextID++
	m.notifications = append(m.notifications, &saved)
	return saved.ID, nil
}

func (m *MockStore) Release() {
	close(m.unblock)
}

func (m *MockStore) Saved() []*models.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Notification, len(m.notifications))
	copy(out, m.notifications)
	return out
}

func (m *MockStore) ListSubscribers(ctx context.Context) ([]*models.Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListCalls++
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	ids := make([]int, 0, len(m.subscribers))
	for id := range m.subscribers {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := make([]*models.Subscriber, 0, len(ids))
	for _, id := range ids {
		copied := *m.subscribers[id]
		out = append(out, &copied)
	}
	return out, nil
}

func (m *MockStore) GetSubscriber(ctx context.Context, id int) (*models.Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subscribers[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *s
	return &copied, nil
}

func (m *MockStore) UpdateSubscriberPreference(ctx context.Context, id int, pref models.Preference) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subscribers[id]
	if !ok {
		return false, nil
	}
	s.Preference = pref
	return true, nil
}

// MockSource returns scripted price snapshots, one per call
type MockSource struct {
	mu        sync.Mutex
	snapshots [][]models.PriceModel
	calls     int
	Err       error
	Delay     time.Duration

	active    int
	maxActive int
}

func (s *MockSource) CurrentPrices(ctx context.Context) ([]models.PriceModel, error) {
	s.mu.Lock()
	s.active++
	if s.active > s.maxActive {
		s.maxActive = s.active
	}
	s.mu.Unlock()

	if s.Delay > 0 {
		time.Sleep(s.Delay)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.active--
	if s.Err != nil {
		return nil, s.Err
	}
	if len(s.snapshots) == 0 {
		return nil, nil
	}
	i := s.calls
	if i >= len(s.snapshots) {
		i = len(s.snapshots) - 1
	}
	s.calls++
	return s.snapshots[i], nil
}

func (s *MockSource) Push(prices ...models.PriceModel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = append(s.snapshots, prices)
}

func (s *MockSource) SetErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Err = err
}

func (s *MockSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *MockSource) MaxActive() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxActive
}

// recordingListener collects delivered notifications
type recordingListener struct {
	mu  sync.Mutex
	got []models.Notification
}

func (r *recordingListener) OnNotification(n models.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
}

func (r *recordingListener) Received() []models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Notification, len(r.got))
	copy(out, r.got)
	return out
}

func price(symbol string, p float64) models.PriceModel {
	return models.PriceModel{Symbol: symbol, Name: symbol + " Inc.", CurrentPrice: p, Volatility: 0.2, AnnualReturn: 0.1}
}

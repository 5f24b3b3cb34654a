package monitor

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/trogers1052/market-notifier/internal/models"
)

// AllSubscribers registers a listener for notifications of every subscriber
const AllSubscribers = 0

const (
	defaultMailboxSize     = 64
	defaultDeliveryTimeout = 100 * time.Millisecond
)

// Listener receives every persisted notification for its subscriber
type Listener interface {
	OnNotification(n models.Notification)
}

// ListenerFunc adapts a function to the Listener interface
type ListenerFunc func(models.Notification)

// OnNotification implements Listener
func (f ListenerFunc) OnNotification(n models.Notification) { f(n) }

// ListenerHandle identifies a registration for removal
type ListenerHandle uint64

// mailbox decouples a listener from the dispatcher. Its queue is never
// closed; done signals removal to both the worker and pending senders.
type mailbox struct {
	subscriberID int
	listener     Listener
	queue        chan models.Notification
	done         chan struct{}
}

// Listeners is the concurrent-safe set of live notification listeners
type Listeners struct {
	mu      sync.RWMutex
	next    ListenerHandle
	entries map[ListenerHandle]*mailbox

	mailboxSize int
	timeout     time.Duration
	metrics     Metrics
	log         zerolog.Logger
}

// ListenersConfig bounds per-listener buffering and hand-off time
type ListenersConfig struct {
	MailboxSize     int
	DeliveryTimeout time.Duration
}

// NewListeners creates an empty listener set
func NewListeners(cfg ListenersConfig, metrics Metrics, log zerolog.Logger) *Listeners {
	if cfg.MailboxSize <= 0 {
		cfg.MailboxSize = defaultMailboxSize
	}
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = defaultDeliveryTimeout
	}
	return &Listeners{
		entries:     make(map[ListenerHandle]*mailbox),
		mailboxSize: cfg.MailboxSize,
		timeout:     cfg.DeliveryTimeout,
		metrics:     metricsOrNoop(metrics),
		log:         log.With().Str("component", "listeners").Logger(),
	}
}

// Add registers a listener for one subscriber, or for AllSubscribers
func (ls *Listeners) Add(subscriberID int, l Listener) ListenerHandle {
	m := &mailbox{
		subscriberID: subscriberID,
		listener:     l,
		queue:        make(chan models.Notification, ls.mailboxSize),
		done:         make(chan struct{}),
	}

	ls.mu.Lock()
	ls.next++
	h := ls.next
	ls.entries[h] = m
	ls.mu.Unlock()

	go ls.drain(h, m)
	return h
}

// Remove unregisters a listener. Unknown handles are ignored.
func (ls *Listeners) Remove(h ListenerHandle) bool {
	ls.mu.Lock()
	m, ok := ls.entries[h]
	delete(ls.entries, h)
	ls.mu.Unlock()

	if ok {
		close(m.done)
	}
	return ok
}

// Len returns the number of registered listeners
func (ls *Listeners) Len() int {
	ls.mu.RLock()
	defer ls.mu.RUnlock()
	return len(ls.entries)
}

// Close removes every listener
func (ls *Listeners) Close() {
	ls.mu.Lock()
	entries := ls.entries
	ls.entries = make(map[ListenerHandle]*mailbox)
	ls.mu.Unlock()

	for _, m := range entries {
		close(m.done)
	}
}

// Publish hands n to every matching listener registered at the time of the
// call. It waits at most the delivery timeout per listener and returns the
// number of listeners that accepted the notification.
func (ls *Listeners) Publish(n models.Notification) int {
	ls.mu.RLock()
	targets := make([]*mailbox, 0, len(ls.entries))
	for _, m := range ls.entries {
		if m.subscriberID == AllSubscribers || m.subscriberID == n.SubscriberID {
			targets = append(targets, m)
		}
	}
	ls.mu.RUnlock()

	accepted := 0
	for _, m := range targets {
		if ls.enqueue(m, n) {
			accepted++
		}
	}
	return accepted
}

func (ls *Listeners) enqueue(m *mailbox, n models.Notification) bool {
	select {
	case m.queue <- n:
		return true
	case <-m.done:
		return false
	default:
	}

	timer := time.NewTimer(ls.timeout)
	defer timer.Stop()

	select {
	case m.queue <- n:
		return true
	case <-m.done:
		return false
	case <-timer.C:
		ls.metrics.ListenerDropped()
		ls.log.Warn().
			Int("notification_id", n.ID).
			Int("subscriber_id", n.SubscriberID).
			Msg("Listener mailbox full, dropping notification")
		return false
	}
}

func (ls *Listeners) drain(h ListenerHandle, m *mailbox) {
	for {
		select {
		case <-m.done:
			return
		case n := <-m.queue:
			ls.invoke(h, m.listener, n)
		}
	}
}

func (ls *Listeners) invoke(h ListenerHandle, l Listener, n models.Notification) {
	defer func() {
		if r := recover(); r != nil {
			ls.log.Error().
				Interface("panic", r).
				Uint64("listener", uint64(h)).
				Int("notification_id", n.ID).
				Msg("Listener panicked")
		}
	}()
	l.OnNotification(n)
}

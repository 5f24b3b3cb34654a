package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/market-notifier/internal/models"
)

type published struct {
	channel string
	payload []byte
}

type fakeRedis struct {
	mu   sync.Mutex
	sent []published
	err  error
}

func (f *fakeRedis) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	f.sent = append(f.sent, published{channel: channel, payload: message.([]byte)})
	return redis.NewIntResult(1, nil)
}

func TestPublisher_Channel(t *testing.T) {
	assert.Equal(t, "notifier:notifications:4", NewPublisher(&fakeRedis{}, "", zerolog.Nop()).Channel(4))
	assert.Equal(t, "demo:12", NewPublisher(&fakeRedis{}, "demo", zerolog.Nop()).Channel(12))
}

func TestPublisher_OnNotification(t *testing.T) {
	fake := &fakeRedis{}
	p := NewPublisher(fake, "demo", zerolog.Nop())

	p.OnNotification(models.Notification{
		ID:           11,
		SubscriberID: 2,
		Title:        "Price Alert: Bitcoin",
		Type:         models.TypePriceAlert,
		Priority:     models.PriorityHigh,
	})

	require.Len(t, fake.sent, 1)
	assert.Equal(t, "demo:2", fake.sent[0].channel)

	var event models.NotificationEvent
	require.NoError(t, json.Unmarshal(fake.sent[0].payload, &event))
	assert.Equal(t, "NOTIFICATION_CREATED", event.EventType)
	assert.Equal(t, 11, event.Notification.ID)
	assert.Equal(t, "Price Alert: Bitcoin", event.Notification.Title)
}

func TestPublisher_PublishError(t *testing.T) {
	fake := &fakeRedis{err: errors.New("connection refused")}
	p := NewPublisher(fake, "demo", zerolog.Nop())

	_, err := p.Publish(context.Background(), models.Notification{SubscriberID: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to publish to redis")

	assert.NotPanics(t, func() { p.OnNotification(models.Notification{SubscriberID: 1}) })
}

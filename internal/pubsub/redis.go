// Package pubsub fans delivered notifications out over Redis channels so
// other processes can follow a subscriber's feed.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/trogers1052/market-notifier/internal/models"
)

const (
	// DefaultPrefix is the channel prefix used when none is configured
	DefaultPrefix = "notifier:notifications"

	defaultPublishTimeout = 2 * time.Second
)

// Config holds the Redis connection settings
type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// publisher is the subset of *redis.Client the Publisher needs
type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Publisher is a notification listener that publishes each notification
// as JSON to <prefix>:<subscriber_id>
type Publisher struct {
	client  publisher
	prefix  string
	timeout time.Duration
	log     zerolog.Logger
}

// NewClient creates and pings a Redis client
func NewClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// NewPublisher creates a Publisher on top of a Redis client
func NewPublisher(client publisher, prefix string, log zerolog.Logger) *Publisher {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Publisher{
		client:  client,
		prefix:  prefix,
		timeout: defaultPublishTimeout,
		log:     log.With().Str("component", "redis_publisher").Logger(),
	}
}

// Channel returns the channel a subscriber's notifications are published on
func (p *Publisher) Channel(subscriberID int) string {
	return p.prefix + ":" + strconv.Itoa(subscriberID)
}

// OnNotification publishes n, logging failures
func (p *Publisher) OnNotification(n models.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	receivers, err := p.Publish(ctx, n)
	if err != nil {
		p.log.Error().Err(err).Int("subscriber_id", n.SubscriberID).Msg("failed to publish notification")
		return
	}
	p.log.Debug().
		Int("subscriber_id", n.SubscriberID).
		Int64("receivers", receivers).
		Msg("notification published")
}

// Publish sends n to its subscriber channel and returns the number of receivers
func (p *Publisher) Publish(ctx context.Context, n models.Notification) (int64, error) {
	payload, err := json.Marshal(models.NotificationEvent{
		EventType:    "NOTIFICATION_CREATED",
		Notification: &n,
		Timestamp:    time.Now(),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal notification: %w", err)
	}

	receivers, err := p.client.Publish(ctx, p.Channel(n.SubscriberID), payload).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to publish to redis: %w", err)
	}
	return receivers, nil
}

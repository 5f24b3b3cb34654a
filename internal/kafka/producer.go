package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/trogers1052/market-notifier/internal/models"
)

// NotificationCreatedEvent is published once per delivered notification
const NotificationCreatedEvent = "NOTIFICATION_CREATED"

const defaultPublishTimeout = 5 * time.Second

// messageWriter is the subset of *kafka.Writer the producer needs
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NotificationProducer publishes notification events keyed by subscriber id.
// It is registered as a listener for all subscribers.
type NotificationProducer struct {
	writer  messageWriter
	timeout time.Duration
	log     zerolog.Logger
}

// NewNotificationProducer creates a new Kafka producer for notification events
func NewNotificationProducer(brokers []string, topic string, log zerolog.Logger) *NotificationProducer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
	}
	return newNotificationProducer(writer, defaultPublishTimeout, log)
}

func newNotificationProducer(writer messageWriter, timeout time.Duration, log zerolog.Logger) *NotificationProducer {
	return &NotificationProducer{
		writer:  writer,
		timeout: timeout,
		log:     log.With().Str("component", "notification_producer").Logger(),
	}
}

// OnNotification publishes n, logging failures
func (p *NotificationProducer) OnNotification(n models.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.PublishNotification(ctx, n); err != nil {
		p.log.Error().Err(err).
			Int("notification_id", n.ID).
			Int("subscriber_id", n.SubscriberID).
			Msg("failed to publish notification")
	}
}

// PublishNotification publishes a notification created event
func (p *NotificationProducer) PublishNotification(ctx context.Context, n models.Notification) error {
	event := models.NotificationEvent{
		EventType:    NotificationCreatedEvent,
		Notification: &n,
		Timestamp:    time.Now(),
	}
	return p.publish(ctx, strconv.Itoa(n.SubscriberID), event)
}

func (p *NotificationProducer) publish(ctx context.Context, key string, event models.NotificationEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	return nil
}

// Close closes the Kafka producer
func (p *NotificationProducer) Close() error {
	return p.writer.Close()
}
